package storage

import (
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "missing bucket", cfg: Config{AccessKey: "a", SecretKey: "s"}},
		{name: "missing access key", cfg: Config{Bucket: "b", SecretKey: "s"}},
		{name: "missing secret key", cfg: Config{Bucket: "b", AccessKey: "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, err := New(tt.cfg)
			require.Nil(t, s)
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	t.Run("defaults region", func(t *testing.T) {
		t.Parallel()
		cfg := Config{Bucket: "b", AccessKey: "a", SecretKey: "s"}
		require.NoError(t, cfg.validate())
		assert.Equal(t, DefaultRegion, cfg.Region)
	})
}

func TestWrapS3Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		fallback error
		want     error
	}{
		{
			name:     "no such key code",
			err:      &smithy.GenericAPIError{Code: "NoSuchKey"},
			fallback: ErrDeleteFailed,
			want:     ErrNotFound,
		},
		{
			name:     "access denied code",
			err:      &smithy.GenericAPIError{Code: "AccessDenied"},
			fallback: ErrUploadFailed,
			want:     ErrAccessDenied,
		},
		{
			name:     "typed no such key",
			err:      &types.NoSuchKey{},
			fallback: ErrListFailed,
			want:     ErrNotFound,
		},
		{
			name:     "unknown error uses fallback",
			err:      errors.New("connection reset"),
			fallback: ErrUploadFailed,
			want:     ErrUploadFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.ErrorIs(t, wrapS3Error(tt.err, tt.fallback), tt.want)
		})
	}
}
