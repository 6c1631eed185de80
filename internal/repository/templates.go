package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/postoffice/pkg/mailer"
)

// Templates is a mailer.Store backed by the mail_templates table.
type Templates struct {
	db DBTX
}

// NewTemplates creates a template store.
func NewTemplates(db DBTX) *Templates {
	return &Templates{db: db}
}

const findTemplate = `SELECT name, body FROM mail_templates WHERE name = $1`

func (s *Templates) FindByName(ctx context.Context, name string) (mailer.Template, error) {
	var t mailer.Template
	err := s.db.QueryRow(ctx, findTemplate, name).Scan(&t.Name, &t.Body)
	if errors.Is(err, pgx.ErrNoRows) {
		return mailer.Template{}, fmt.Errorf("%w: %s", mailer.ErrTemplateNotFound, name)
	}
	if err != nil {
		return mailer.Template{}, fmt.Errorf("repository: find template: %w", err)
	}
	return t, nil
}

const (
	upsertTemplate = `INSERT INTO mail_templates (name, body) VALUES ($1, $2)
ON CONFLICT (name) DO UPDATE SET body = EXCLUDED.body, updated_at = now()`

	insertTemplate = `INSERT INTO mail_templates (name, body) VALUES ($1, $2)
ON CONFLICT (name) DO NOTHING`
)

func (s *Templates) Save(ctx context.Context, t mailer.Template, policy mailer.DuplicatePolicy) error {
	query := upsertTemplate
	if policy == mailer.Reject {
		query = insertTemplate
	}

	tag, err := s.db.Exec(ctx, query, t.Name, t.Body)
	if err != nil {
		return fmt.Errorf("repository: save template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", mailer.ErrTemplateExists, t.Name)
	}
	return nil
}

var _ mailer.Store = (*Templates)(nil)
