package records_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/postoffice/pkg/records"
)

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := records.NewMemoryStore()

	ok := records.Record{ID: uuid.New(), AttemptID: uuid.New(), ToAddress: "a@b.co", IsSuccess: true}
	failed := records.Record{ID: uuid.New(), AttemptID: uuid.New(), ToAddress: "a@b.co", FailureReason: "blocked_domain"}
	other := records.Record{ID: uuid.New(), AttemptID: uuid.New(), ToAddress: "c@d.co", IsSuccess: true}
	for _, r := range []records.Record{ok, failed, other} {
		require.NoError(t, s.Append(ctx, r))
	}

	got, err := s.ByAttempt(ctx, failed.AttemptID)
	require.NoError(t, err)
	assert.Equal(t, "blocked_domain", got.FailureReason)

	_, err = s.ByAttempt(ctx, uuid.New())
	require.ErrorIs(t, err, records.ErrNotFound)

	list, err := s.List(ctx, records.Filter{ToAddress: "a@b.co"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, failed.ID, list[0].ID, "newest first")

	success := true
	list, err = s.List(ctx, records.Filter{Success: &success, Limit: 1})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, other.ID, list[0].ID)

	assert.Len(t, s.All(), 3)
}
