package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"

	"github.com/dmitrymomot/postoffice/pkg/logger"
)

const (
	taskKind     = "postoffice:task"
	periodicKind = "postoffice:periodic"
)

// ErrHandler runs a stored task and reports failures to the queue log.
type ErrHandler[T any] func(ctx context.Context, task T) error

type periodicTask struct {
	handler  func(context.Context) error
	name     string
	schedule string
}

type queueConfig struct {
	logger   *slog.Logger
	periodic []periodicTask
	workers  int
}

// QueueOption configures a Queue.
type QueueOption func(*queueConfig)

// WithQueueWorkers sets the number of concurrent River workers.
func WithQueueWorkers(n int) QueueOption {
	return func(c *queueConfig) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithQueueLogger sets the queue logger. River logs through it as well.
func WithQueueLogger(l *slog.Logger) QueueOption {
	return func(c *queueConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithPeriodicTask registers fn to run on a 5-field cron schedule.
func WithPeriodicTask(name, schedule string, fn func(context.Context) error) QueueOption {
	return func(c *queueConfig) {
		c.periodic = append(c.periodic, periodicTask{name: name, schedule: schedule, handler: fn})
	}
}

type taskArgs struct {
	Payload json.RawMessage `json:"payload"`
}

func (taskArgs) Kind() string { return taskKind }

type periodicArgs struct {
	Name string `json:"name"`
}

func (periodicArgs) Kind() string { return periodicKind }

type taskWorker[T any] struct {
	river.WorkerDefaults[taskArgs]
	handle ErrHandler[T]
	logger *slog.Logger
}

func (w *taskWorker[T]) Work(ctx context.Context, job *river.Job[taskArgs]) error {
	var task T
	if err := json.Unmarshal(job.Args.Payload, &task); err != nil {
		return errors.Join(ErrInvalidPayload, err)
	}

	if err := w.handle(ctx, task); err != nil {
		w.logger.ErrorContext(ctx, "dispatch task failed",
			slog.Int64("job_id", job.ID),
			slog.Any("error", err),
		)
		return err
	}
	return nil
}

type periodicWorker struct {
	river.WorkerDefaults[periodicArgs]
	handlers map[string]func(context.Context) error
	logger   *slog.Logger
}

func (w *periodicWorker) Work(ctx context.Context, job *river.Job[periodicArgs]) error {
	fn, ok := w.handlers[job.Args.Name]
	if !ok {
		return fmt.Errorf("dispatch: unknown periodic task %q", job.Args.Name)
	}
	if err := fn(ctx); err != nil {
		w.logger.ErrorContext(ctx, "periodic task failed",
			slog.String("task", job.Args.Name),
			slog.Any("error", err),
		)
		return err
	}
	return nil
}

// Queue is a durable delayed task scheduler backed by River.
// Every task is inserted with a single attempt.
type Queue[T any] struct {
	pool   *pgxpool.Pool
	client *river.Client[pgx.Tx]
	logger *slog.Logger

	mu      sync.Mutex
	started bool
	stopped bool
}

// NewQueue creates a River client that runs handle for every stored task.
// Tasks can be scheduled before Start; they run once a started queue
// sharing the database picks them up.
func NewQueue[T any](pool *pgxpool.Pool, handle ErrHandler[T], opts ...QueueOption) (*Queue[T], error) {
	if pool == nil {
		return nil, ErrPoolRequired
	}

	cfg := &queueConfig{workers: DefaultWorkers}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logger.NewNope()
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, &taskWorker[T]{handle: handle, logger: cfg.logger})

	var periodicJobs []*river.PeriodicJob
	if len(cfg.periodic) > 0 {
		handlers := make(map[string]func(context.Context) error, len(cfg.periodic))
		for _, p := range cfg.periodic {
			schedule, err := parseCronSchedule(p.schedule)
			if err != nil {
				return nil, fmt.Errorf("dispatch: invalid cron schedule %q: %w", p.schedule, err)
			}
			handlers[p.name] = p.handler
			name := p.name
			periodicJobs = append(periodicJobs, river.NewPeriodicJob(
				schedule,
				func() (river.JobArgs, *river.InsertOpts) {
					return periodicArgs{Name: name}, &river.InsertOpts{MaxAttempts: 1}
				},
				&river.PeriodicJobOpts{RunOnStart: false},
			))
		}
		river.AddWorker(workers, &periodicWorker{handlers: handlers, logger: cfg.logger})
	}

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: cfg.workers},
		},
		Workers:      workers,
		PeriodicJobs: periodicJobs,
		Logger:       cfg.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("dispatch: create client: %w", err)
	}

	return &Queue[T]{pool: pool, client: client, logger: cfg.logger}, nil
}

// Migrate creates or upgrades the River tables.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if pool == nil {
		return ErrPoolRequired
	}
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return fmt.Errorf("dispatch: create migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		return fmt.Errorf("dispatch: migrate: %w", err)
	}
	return nil
}

// Schedule stores task to run after delay.
func (q *Queue[T]) Schedule(ctx context.Context, delay time.Duration, task T) error {
	if delay < 0 {
		return ErrInvalidDelay
	}

	q.mu.Lock()
	stopped := q.stopped
	q.mu.Unlock()
	if stopped {
		return ErrStopped
	}

	args, opts, err := buildTaskArgs(task, delay)
	if err != nil {
		return err
	}
	if _, err := q.client.Insert(ctx, args, opts); err != nil {
		return fmt.Errorf("dispatch: enqueue: %w", err)
	}
	return nil
}

func buildTaskArgs[T any](task T, delay time.Duration) (taskArgs, *river.InsertOpts, error) {
	payload, err := json.Marshal(task)
	if err != nil {
		return taskArgs{}, nil, errors.Join(ErrInvalidPayload, err)
	}
	return taskArgs{Payload: payload}, &river.InsertOpts{
		MaxAttempts: 1,
		ScheduledAt: time.Now().Add(delay),
	}, nil
}

// Start begins working stored tasks.
func (q *Queue[T]) Start(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.started {
		return ErrAlreadyStarted
	}
	if err := q.client.Start(ctx); err != nil {
		return fmt.Errorf("dispatch: start client: %w", err)
	}
	q.started = true

	q.logger.InfoContext(ctx, "dispatch queue started")
	return nil
}

// Stop waits for running tasks. Stored tasks stay in the database.
func (q *Queue[T]) Stop(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.started {
		return ErrNotStarted
	}
	if err := q.client.Stop(ctx); err != nil {
		return fmt.Errorf("dispatch: stop client: %w", err)
	}
	q.started = false
	q.stopped = true

	q.logger.InfoContext(ctx, "dispatch queue stopped")
	return nil
}

// Healthcheck reports whether the queue is running and its database reachable.
// Compatible with health.CheckFunc.
func (q *Queue[T]) Healthcheck() func(context.Context) error {
	return func(ctx context.Context) error {
		q.mu.Lock()
		started := q.started
		q.mu.Unlock()

		if !started {
			return errors.Join(ErrHealthcheckFailed, ErrNotStarted)
		}
		if err := q.pool.Ping(ctx); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}
