package postoffice

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/postoffice/pkg/address"
	"github.com/dmitrymomot/postoffice/pkg/attachment"
	"github.com/dmitrymomot/postoffice/pkg/dispatch"
	"github.com/dmitrymomot/postoffice/pkg/mailer"
	"github.com/dmitrymomot/postoffice/pkg/records"
)

// SchedulerFactory builds the scheduler for delayed sends once the
// dispatcher exists.
type SchedulerFactory func(d *Dispatcher, logger *slog.Logger) (Scheduler, error)

// Option configures a PostOffice.
type Option func(*config)

type config struct {
	blocklist address.Blocklist
	marker    FailureMarker
	templates mailer.Store
	fetcher   *attachment.Fetcher
	sender    mailer.Sender
	records   records.Store
	scheduler SchedulerFactory
	logger    *slog.Logger
	policy    mailer.DuplicatePolicy
}

// WithBlocklist sets the recipient blocklist. When it also implements
// FailureMarker, transport failures are reported back to it.
// Defaults to an in-memory spam.Service.
func WithBlocklist(bl address.Blocklist) Option {
	return func(c *config) {
		if bl != nil {
			c.blocklist = bl
		}
	}
}

// WithFailureMarker overrides where transport failures are reported.
func WithFailureMarker(m FailureMarker) Option {
	return func(c *config) {
		if m != nil {
			c.marker = m
		}
	}
}

// WithTemplates sets the template store. Defaults to mailer.MemoryStore.
func WithTemplates(s mailer.Store) Option {
	return func(c *config) {
		if s != nil {
			c.templates = s
		}
	}
}

// WithDuplicatePolicy decides what CreateTemplates does with an existing name.
// Defaults to mailer.Overwrite.
func WithDuplicatePolicy(p mailer.DuplicatePolicy) Option {
	return func(c *config) {
		c.policy = p
	}
}

// WithFetcher sets the attachment fetcher.
// Defaults to HTTP downloads into a temporary file spool.
func WithFetcher(f *attachment.Fetcher) Option {
	return func(c *config) {
		if f != nil {
			c.fetcher = f
		}
	}
}

// WithSender sets the mail transport. Required.
func WithSender(s mailer.Sender) Option {
	return func(c *config) {
		if s != nil {
			c.sender = s
		}
	}
}

// WithRecords sets the record store. Defaults to records.MemoryStore.
func WithRecords(s records.Store) Option {
	return func(c *config) {
		if s != nil {
			c.records = s
		}
	}
}

// WithScheduler sets how delayed sends are scheduled.
// Defaults to PoolScheduler with dispatch.DefaultWorkers.
func WithScheduler(f SchedulerFactory) Option {
	return func(c *config) {
		if f != nil {
			c.scheduler = f
		}
	}
}

// WithLogger sets the logger. If nil, logging is disabled.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// PoolScheduler schedules delayed sends in memory. Sends still pending when
// Shutdown gives up are recorded as dispatch_aborted.
func PoolScheduler(opts ...dispatch.PoolOption) SchedulerFactory {
	return func(d *Dispatcher, logger *slog.Logger) (Scheduler, error) {
		opts = append([]dispatch.PoolOption{dispatch.WithLogger(logger)}, opts...)
		return dispatch.NewPool(d.Run, d.Abort, opts...), nil
	}
}

// QueueScheduler stores delayed sends in Postgres through River. The
// attachment spool must be shared by every process working the queue.
func QueueScheduler(pool *pgxpool.Pool, opts ...dispatch.QueueOption) SchedulerFactory {
	return func(d *Dispatcher, logger *slog.Logger) (Scheduler, error) {
		opts = append([]dispatch.QueueOption{dispatch.WithQueueLogger(logger)}, opts...)
		q, err := dispatch.NewQueue(pool, d.Deliver, opts...)
		if err != nil {
			return nil, err
		}
		return q, nil
	}
}
