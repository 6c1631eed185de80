package postoffice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/postoffice/pkg/attachment"
	"github.com/dmitrymomot/postoffice/pkg/logger"
	"github.com/dmitrymomot/postoffice/pkg/mailer"
)

// Delivery is a built message waiting to be sent.
type Delivery struct {
	Message   *Message    `json:"message"`
	Request   SendRequest `json:"request"`
	AttemptID uuid.UUID   `json:"attempt_id"`
}

// Scheduler runs deliveries later. dispatch.Pool and dispatch.Queue
// implement it.
type Scheduler interface {
	Start(ctx context.Context) error
	Schedule(ctx context.Context, delay time.Duration, d Delivery) error
	Stop(ctx context.Context) error
}

// Dispatcher sends built messages and records the outcome. Immediate and
// scheduled sends both end in Deliver.
type Dispatcher struct {
	sender   mailer.Sender
	fetcher  *attachment.Fetcher
	recorder *Recorder
	logger   *slog.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(sender mailer.Sender, fetcher *attachment.Fetcher, recorder *Recorder, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = logger.NewNope()
	}
	return &Dispatcher{sender: sender, fetcher: fetcher, recorder: recorder, logger: log}
}

// Deliver loads the attachments, sends the message and records the outcome.
// Spooled attachments are released on every path.
func (d *Dispatcher) Deliver(ctx context.Context, dl Delivery) error {
	ctx = logger.WithAttemptID(ctx, dl.AttemptID.String())
	msg := dl.Message
	atts := msg.Attachments()
	defer d.fetcher.Release(context.WithoutCancel(ctx), atts)

	files, err := d.fetcher.Load(ctx, atts)
	if err != nil {
		ferr := fieldError(FieldAttachments, err, ReasonAttachmentFetchFailed)
		d.recorder.Failure(ctx, dl.AttemptID, dl.Request, ferr)
		return ferr
	}

	if err := d.send(ctx, msg.Email(files)); err != nil {
		ferr := &Error{
			Field:  FieldTransport,
			Reason: ReasonTransportDeliveryFailed,
			Err:    errors.Join(ErrDeliveryFailed, err),
		}
		d.recorder.Failure(ctx, dl.AttemptID, dl.Request, ferr)
		d.logger.WarnContext(ctx, "mail delivery failed",
			slog.String("to", msg.To()),
			slog.String("template", msg.Template()),
			slog.Any("error", err),
		)
		return ferr
	}

	d.recorder.Success(ctx, dl.AttemptID, dl.Request, msg.To())
	d.logger.InfoContext(ctx, "mail sent",
		slog.String("to", msg.To()),
		slog.String("template", msg.Template()),
		slog.String("attachments", attachment.Names(atts)),
	)
	return nil
}

// send calls the transport, turning a panic into an error so the attempt
// is still recorded.
func (d *Dispatcher) send(ctx context.Context, email *mailer.Email) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.ErrorContext(ctx, "mail transport panicked",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			err = fmt.Errorf("%w: %v", ErrTransportPanic, r)
		}
	}()
	return d.sender.Send(ctx, email)
}

// Run is Deliver for schedulers that do not take errors.
// The outcome is already recorded.
func (d *Dispatcher) Run(ctx context.Context, dl Delivery) {
	_ = d.Deliver(ctx, dl)
}

// Abort records a delivery dropped before it ran and releases its attachments.
func (d *Dispatcher) Abort(ctx context.Context, dl Delivery) {
	ctx = logger.WithAttemptID(ctx, dl.AttemptID.String())
	d.fetcher.Release(ctx, dl.Message.Attachments())
	d.recorder.Failure(ctx, dl.AttemptID, dl.Request, &Error{
		Field:  FieldDispatch,
		Reason: ReasonDispatchAborted,
		Err:    ErrDispatchAborted,
	})
	d.logger.WarnContext(ctx, "scheduled mail dropped",
		slog.String("to", dl.Message.To()),
	)
}
