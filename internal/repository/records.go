package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/postoffice/pkg/records"
)

// Records is an append-only records.Store backed by the mail_records table.
type Records struct {
	db DBTX
}

// NewRecords creates a record store.
func NewRecords(db DBTX) *Records {
	return &Records{db: db}
}

const recordColumns = `id, attempt_id, from_address, from_name, to_address, title,
template_name, template_parameters, is_success, failure_reason, failure_detail, created_at`

const appendRecord = `INSERT INTO mail_records (` + recordColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

func (s *Records) Append(ctx context.Context, r records.Record) error {
	params := r.TemplateParameters
	if len(params) == 0 {
		params = []byte("{}")
	}
	_, err := s.db.Exec(ctx, appendRecord,
		r.ID, r.AttemptID, r.FromAddress, r.FromName, r.ToAddress, r.Title,
		r.TemplateName, string(params), r.IsSuccess, r.FailureReason, r.FailureDetail, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("repository: append record: %w", err)
	}
	return nil
}

func (s *Records) ByAttempt(ctx context.Context, attemptID uuid.UUID) (records.Record, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+recordColumns+` FROM mail_records WHERE attempt_id = $1 ORDER BY created_at DESC LIMIT 1`,
		attemptID,
	)
	if err != nil {
		return records.Record{}, fmt.Errorf("repository: find record: %w", err)
	}
	r, err := pgx.CollectExactlyOneRow(rows, scanRecord)
	if errors.Is(err, pgx.ErrNoRows) {
		return records.Record{}, records.ErrNotFound
	}
	if err != nil {
		return records.Record{}, fmt.Errorf("repository: find record: %w", err)
	}
	return r, nil
}

func (s *Records) List(ctx context.Context, f records.Filter) ([]records.Record, error) {
	var (
		where []string
		args  []any
	)
	if f.ToAddress != "" {
		args = append(args, f.ToAddress)
		where = append(where, fmt.Sprintf("to_address = $%d", len(args)))
	}
	if f.Success != nil {
		args = append(args, *f.Success)
		where = append(where, fmt.Sprintf("is_success = $%d", len(args)))
	}

	var sb strings.Builder
	sb.WriteString(`SELECT ` + recordColumns + ` FROM mail_records`)
	if len(where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	sb.WriteString(" ORDER BY created_at DESC, id DESC")
	if f.Limit > 0 {
		args = append(args, f.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}

	rows, err := s.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("repository: list records: %w", err)
	}
	list, err := pgx.CollectRows(rows, scanRecord)
	if err != nil {
		return nil, fmt.Errorf("repository: list records: %w", err)
	}
	return list, nil
}

func scanRecord(row pgx.CollectableRow) (records.Record, error) {
	var (
		r      records.Record
		params []byte
	)
	err := row.Scan(
		&r.ID, &r.AttemptID, &r.FromAddress, &r.FromName, &r.ToAddress, &r.Title,
		&r.TemplateName, &params, &r.IsSuccess, &r.FailureReason, &r.FailureDetail, &r.CreatedAt,
	)
	r.TemplateParameters = params
	return r, err
}

var (
	_ records.Store  = (*Records)(nil)
	_ records.Reader = (*Records)(nil)
)
