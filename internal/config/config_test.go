package config

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/postoffice/pkg/mailer"
)

func TestParse_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := parse(env.Options{Environment: map[string]string{}})
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 30*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, 10, cfg.Dispatch.Workers)
	assert.False(t, cfg.Dispatch.Durable)
	assert.Equal(t, SpoolFile, cfg.Spool.Kind)
	assert.Equal(t, int64(64<<20), cfg.Spool.MaxTransfer)
	assert.Equal(t, time.Hour, cfg.Spam.RecentFailureTTL)
	assert.Equal(t, "stdout", cfg.Mailer.Transport)
	assert.Equal(t, "overwrite", cfg.Mailer.TemplateDuplicates)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Empty(t, cfg.DB.ConnectionString)
	assert.Empty(t, cfg.Redis.URL)
}

func TestParse_Values(t *testing.T) {
	t.Parallel()

	cfg, err := parse(env.Options{Environment: map[string]string{
		"HTTP_ADDR":           ":9000",
		"DATABASE_URL":        "postgres://localhost/postoffice",
		"DISPATCH_DURABLE":    "true",
		"DISPATCH_WORKERS":    "4",
		"MAIL_TRANSPORT":      "ses",
		"SES_REGION":          "eu-west-1",
		"SPOOL_KIND":          "s3",
		"S3_BUCKET":           "mail",
		"BLOCKED_DOMAINS":     "spam.test,junk.test",
		"TEMPLATE_DUPLICATES": "reject",
	}})
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTP.Addr)
	assert.True(t, cfg.Dispatch.Durable)
	assert.Equal(t, 4, cfg.Dispatch.Workers)
	assert.Equal(t, "eu-west-1", cfg.SES.Region)
	assert.Equal(t, "mail", cfg.Storage.Bucket)
	assert.Equal(t, []string{"spam.test", "junk.test"}, cfg.Spam.BlockedDomains)

	policy, err := mailer.ParseDuplicatePolicy(cfg.Mailer.TemplateDuplicates)
	require.NoError(t, err)
	assert.Equal(t, mailer.Reject, policy)
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		environ map[string]string
		wantErr error
	}{
		{"unknown transport", map[string]string{"MAIL_TRANSPORT": "pigeon"}, ErrUnknownTransport},
		{"unknown spool", map[string]string{"SPOOL_KIND": "tape"}, ErrUnknownSpool},
		{"s3 spool without bucket", map[string]string{"SPOOL_KIND": "s3"}, ErrObjectSpoolNoBucket},
		{"durable without db", map[string]string{"DISPATCH_DURABLE": "true"}, ErrDurableNeedsDB},
		{"bad duplicate policy", map[string]string{"TEMPLATE_DUPLICATES": "version"}, mailer.ErrUnknownPolicy},
		{"bad duration", map[string]string{"SHUTDOWN_TIMEOUT": "soon"}, ErrParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := parse(env.Options{Environment: tt.environ})
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}
