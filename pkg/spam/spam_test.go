package spam_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/postoffice/pkg/cache"
	"github.com/dmitrymomot/postoffice/pkg/spam"
)

func newService(t *testing.T, opts ...spam.Option) *spam.Service {
	t.Helper()

	flags := cache.NewMemory[bool](cache.WithCleanupInterval(0))
	t.Cleanup(func() { _ = flags.Close() })
	return spam.New(flags, opts...)
}

func TestService_Domains(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newService(t)

	require.NoError(t, s.BlockDomain(ctx, "@Blocked.com "))

	blocked, err := s.IsDomainBlocked(ctx, "x@BLOCKED.COM")
	require.NoError(t, err)
	assert.True(t, blocked)

	blocked, err = s.IsDomainBlocked(ctx, "x@example.com")
	require.NoError(t, err)
	assert.False(t, blocked)

	blocked, err = s.IsDomainBlocked(ctx, "no-domain")
	require.NoError(t, err)
	assert.False(t, blocked)

	require.NoError(t, s.UnblockDomain(ctx, "blocked.com"))
	blocked, err = s.IsDomainBlocked(ctx, "x@blocked.com")
	require.NoError(t, err)
	assert.False(t, blocked)

	require.ErrorIs(t, s.BlockDomain(ctx, "  "), spam.ErrEmptyDomain)
}

func TestService_RecentFailures(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("mark and clear", func(t *testing.T) {
		t.Parallel()

		s := newService(t)
		require.NoError(t, s.MarkFailure(ctx, "user@Example.com"))

		failed, err := s.HasRecentFailure(ctx, "user@example.com")
		require.NoError(t, err)
		assert.True(t, failed)

		failed, err = s.HasRecentFailure(ctx, "other@example.com")
		require.NoError(t, err)
		assert.False(t, failed)

		require.NoError(t, s.ClearFailure(ctx, "user@example.com"))
		failed, err = s.HasRecentFailure(ctx, "user@example.com")
		require.NoError(t, err)
		assert.False(t, failed)
	})

	t.Run("failure mark expires", func(t *testing.T) {
		t.Parallel()

		s := newService(t, spam.WithFailureTTL(20*time.Millisecond))
		require.NoError(t, s.MarkFailure(ctx, "user@example.com"))

		require.Eventually(t, func() bool {
			failed, err := s.HasRecentFailure(ctx, "user@example.com")
			return err == nil && !failed
		}, time.Second, 10*time.Millisecond)
	})
}
