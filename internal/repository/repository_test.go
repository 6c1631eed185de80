package repository_test

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/postoffice/internal/repository"
)

func TestMigrations(t *testing.T) {
	t.Parallel()

	names, err := fs.Glob(repository.Migrations(), "*.sql")
	require.NoError(t, err)
	assert.Equal(t, []string{"00001_templates.sql", "00002_mail_records.sql"}, names)

	data, err := fs.ReadFile(repository.Migrations(), "00002_mail_records.sql")
	require.NoError(t, err)
	assert.Contains(t, string(data), "-- +goose Up")
}
