package postoffice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/postoffice/pkg/address"
	"github.com/dmitrymomot/postoffice/pkg/attachment"
	"github.com/dmitrymomot/postoffice/pkg/cache"
	"github.com/dmitrymomot/postoffice/pkg/logger"
	"github.com/dmitrymomot/postoffice/pkg/mailer"
	"github.com/dmitrymomot/postoffice/pkg/records"
	"github.com/dmitrymomot/postoffice/pkg/spam"
)

// PostOffice runs send requests through the pipeline.
type PostOffice struct {
	validator  *address.Validator
	resolver   *mailer.Resolver
	templates  mailer.Store
	fetcher    *attachment.Fetcher
	recorder   *Recorder
	dispatcher *Dispatcher
	scheduler  Scheduler
	logger     *slog.Logger
	policy     mailer.DuplicatePolicy
}

// New wires a PostOffice. WithSender is required; every other collaborator
// has an in-memory default.
func New(opts ...Option) (*PostOffice, error) {
	cfg := &config{policy: mailer.Overwrite}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.sender == nil {
		return nil, ErrSenderRequired
	}
	if cfg.logger == nil {
		cfg.logger = logger.NewNope()
	}
	if cfg.blocklist == nil {
		cfg.blocklist = spam.New(cache.NewMemory[bool](), spam.WithLogger(cfg.logger))
	}
	if cfg.marker == nil {
		if m, ok := cfg.blocklist.(FailureMarker); ok {
			cfg.marker = m
		}
	}
	if cfg.templates == nil {
		cfg.templates = mailer.NewMemoryStore()
	}
	if cfg.records == nil {
		cfg.records = records.NewMemoryStore()
	}
	if cfg.fetcher == nil {
		spool, err := attachment.NewFileSpool("")
		if err != nil {
			return nil, err
		}
		cfg.fetcher = attachment.NewFetcher(attachment.NewHTTPTransport(nil), spool,
			attachment.WithLogger(cfg.logger),
		)
	}
	if cfg.scheduler == nil {
		cfg.scheduler = PoolScheduler()
	}

	recorder := NewRecorder(cfg.records, cfg.marker, cfg.logger)
	dispatcher := NewDispatcher(cfg.sender, cfg.fetcher, recorder, cfg.logger)
	scheduler, err := cfg.scheduler(dispatcher, cfg.logger)
	if err != nil {
		return nil, fmt.Errorf("postoffice: create scheduler: %w", err)
	}

	return &PostOffice{
		validator:  address.NewValidator(cfg.blocklist),
		resolver:   mailer.NewResolver(cfg.templates),
		templates:  cfg.templates,
		fetcher:    cfg.fetcher,
		recorder:   recorder,
		dispatcher: dispatcher,
		scheduler:  scheduler,
		logger:     cfg.logger,
		policy:     cfg.policy,
	}, nil
}

// Start starts the scheduler for delayed sends.
func (p *PostOffice) Start(ctx context.Context) error {
	return p.scheduler.Start(ctx)
}

// Shutdown stops the scheduler, waiting for delayed sends until ctx is done.
func (p *PostOffice) Shutdown(ctx context.Context) error {
	return p.scheduler.Stop(ctx)
}

// NewBuilder returns an empty Builder over the PostOffice collaborators.
func (p *PostOffice) NewBuilder() *Builder {
	return NewBuilder(p.validator, p.resolver, p.fetcher)
}

// Send processes every request independently and returns one outcome per
// request, in order. A failed request never stops the batch.
func (p *PostOffice) Send(ctx context.Context, reqs []SendRequest) []Outcome {
	outcomes := make([]Outcome, len(reqs))
	for i, req := range reqs {
		outcomes[i] = p.send(ctx, req)
	}
	return outcomes
}

func (p *PostOffice) send(ctx context.Context, req SendRequest) Outcome {
	attemptID := uuid.New()
	ctx = logger.WithAttemptID(ctx, attemptID.String())

	b := p.NewBuilder().
		To(ctx, req.ToAddress).
		From(req.FromAddress).
		Title(req.Title).
		Template(ctx, req.TemplateName).
		FromName(req.FromName).
		Parameters(req.TemplateParameters).
		Attachments(req.Attachments)
	if req.DelaySeconds == nil {
		b.SendNow()
	} else {
		b.SendAfter(*req.DelaySeconds)
	}

	msg, err := b.Build(ctx)
	if err != nil {
		return p.fail(ctx, attemptID, req, err)
	}

	dl := Delivery{AttemptID: attemptID, Request: req, Message: msg}
	if msg.Immediate() {
		if err := p.dispatcher.Deliver(ctx, dl); err != nil {
			return Outcome{AttemptID: attemptID, Status: StatusFailed, Err: err}
		}
		return Outcome{AttemptID: attemptID, Status: StatusSent}
	}

	if err := p.scheduler.Schedule(ctx, msg.Delay(), dl); err != nil {
		p.fetcher.Release(context.WithoutCancel(ctx), msg.Attachments())
		return p.fail(ctx, attemptID, req, &Error{
			Field:  FieldDispatch,
			Reason: ReasonDispatchRejected,
			Err:    errors.Join(ErrDispatchRejected, err),
		})
	}

	p.logger.InfoContext(ctx, "mail scheduled",
		slog.String("to", msg.To()),
		slog.Duration("delay", msg.Delay()),
	)
	return Outcome{AttemptID: attemptID, Status: StatusScheduled}
}

func (p *PostOffice) fail(ctx context.Context, attemptID uuid.UUID, req SendRequest, err error) Outcome {
	p.recorder.Failure(ctx, attemptID, req, err)

	level := slog.LevelWarn
	var e *Error
	if errors.As(err, &e) && e.IsContractViolation() {
		level = slog.LevelError
	}
	p.logger.Log(ctx, level, "mail attempt failed",
		slog.String("reason", string(ReasonOf(err))),
		slog.Any("error", err),
	)
	return Outcome{AttemptID: attemptID, Status: StatusFailed, Err: err}
}

// CreateTemplates stores templates under the configured duplicate policy.
// Every request is checked before anything is saved; blank names and bodies
// are rejected. Templates saved before a failing one stay saved.
func (p *PostOffice) CreateTemplates(ctx context.Context, reqs []CreateTemplateRequest) error {
	for _, r := range reqs {
		if strings.TrimSpace(r.Name) == "" {
			return mailer.ErrBlankTemplateName
		}
		if strings.TrimSpace(r.Body) == "" {
			return fmt.Errorf("%w: %s", mailer.ErrBlankTemplateBody, r.Name)
		}
	}

	saved := make([]string, 0, len(reqs))
	defer func() { p.resolver.Invalidate(saved...) }()

	for _, r := range reqs {
		if err := p.templates.Save(ctx, mailer.Template{Name: r.Name, Body: r.Body}, p.policy); err != nil {
			return err
		}
		saved = append(saved, r.Name)
	}

	p.logger.InfoContext(ctx, "templates saved", slog.Int("count", len(saved)))
	return nil
}

// SweepSpool removes spooled attachments older than age, left behind by
// crashed workers.
func (p *PostOffice) SweepSpool(ctx context.Context, age time.Duration) error {
	n, err := p.fetcher.Sweep(ctx, age)
	if err != nil {
		return err
	}
	if n > 0 {
		p.logger.InfoContext(ctx, "spool swept", slog.Int("removed", n))
	}
	return nil
}
