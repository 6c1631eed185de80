package postoffice

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/postoffice/pkg/address"
	"github.com/dmitrymomot/postoffice/pkg/logger"
	"github.com/dmitrymomot/postoffice/pkg/records"
)

// FailureMarker remembers recipients whose delivery failed.
type FailureMarker interface {
	MarkFailure(ctx context.Context, addr string) error
}

// Recorder appends one record per send attempt. It never returns errors:
// store failures are logged so they cannot be mistaken for send failures.
type Recorder struct {
	store  records.Store
	marker FailureMarker
	logger *slog.Logger
	now    func() time.Time
}

// NewRecorder creates a Recorder. marker may be nil.
func NewRecorder(store records.Store, marker FailureMarker, log *slog.Logger) *Recorder {
	if log == nil {
		log = logger.NewNope()
	}
	return &Recorder{store: store, marker: marker, logger: log, now: time.Now}
}

// Success records a delivered message addressed to the validated recipient.
func (r *Recorder) Success(ctx context.Context, attemptID uuid.UUID, req SendRequest, to string) {
	rec := r.record(ctx, attemptID, req)
	rec.ToAddress = to
	rec.IsSuccess = true
	r.append(ctx, rec)
}

// Failure records a failed attempt with the recipient as submitted.
// Transport failures also mark the recipient as recently failed.
func (r *Recorder) Failure(ctx context.Context, attemptID uuid.UUID, req SendRequest, err error) {
	rec := r.record(ctx, attemptID, req)
	rec.ToAddress = req.ToAddress
	rec.FailureReason = string(ReasonOf(err))
	if err != nil {
		rec.FailureDetail = err.Error()
	}
	r.append(ctx, rec)

	if r.marker != nil && ReasonOf(err) == ReasonTransportDeliveryFailed {
		to, perr := address.Parse(req.ToAddress)
		if perr != nil {
			to = req.ToAddress
		}
		if merr := r.marker.MarkFailure(context.WithoutCancel(ctx), to); merr != nil {
			r.logger.WarnContext(ctx, "failed to mark recipient failure",
				slog.String("to", to),
				slog.Any("error", merr),
			)
		}
	}
}

func (r *Recorder) record(ctx context.Context, attemptID uuid.UUID, req SendRequest) records.Record {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return records.Record{
		ID:                 id,
		AttemptID:          attemptID,
		FromAddress:        req.FromAddress,
		FromName:           req.FromName,
		Title:              req.Title,
		TemplateName:       req.TemplateName,
		TemplateParameters: r.parameters(ctx, req.TemplateParameters),
		CreatedAt:          r.now().UTC(),
	}
}

func (r *Recorder) parameters(ctx context.Context, params map[string]any) json.RawMessage {
	if len(params) == 0 {
		return json.RawMessage("{}")
	}
	data, err := json.Marshal(params)
	if err != nil {
		r.logger.WarnContext(ctx, "template parameters are not serializable", slog.Any("error", err))
		return json.RawMessage("{}")
	}
	return data
}

func (r *Recorder) append(ctx context.Context, rec records.Record) {
	if err := r.store.Append(context.WithoutCancel(ctx), rec); err != nil {
		r.logger.ErrorContext(ctx, "failed to append mail record",
			slog.String("attempt_id", rec.AttemptID.String()),
			slog.Bool("is_success", rec.IsSuccess),
			slog.Any("error", err),
		)
	}
}
