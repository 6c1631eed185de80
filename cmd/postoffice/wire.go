package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/postoffice"
	"github.com/dmitrymomot/postoffice/internal/config"
	"github.com/dmitrymomot/postoffice/internal/repository"
	"github.com/dmitrymomot/postoffice/pkg/attachment"
	"github.com/dmitrymomot/postoffice/pkg/cache"
	"github.com/dmitrymomot/postoffice/pkg/db"
	"github.com/dmitrymomot/postoffice/pkg/dispatch"
	"github.com/dmitrymomot/postoffice/pkg/mailer"
	"github.com/dmitrymomot/postoffice/pkg/mailer/resend"
	"github.com/dmitrymomot/postoffice/pkg/mailer/ses"
	"github.com/dmitrymomot/postoffice/pkg/mailer/stdout"
	"github.com/dmitrymomot/postoffice/pkg/records"
	"github.com/dmitrymomot/postoffice/pkg/redis"
	"github.com/dmitrymomot/postoffice/pkg/spam"
	"github.com/dmitrymomot/postoffice/pkg/storage"
)

const (
	spamPrefix     = "postoffice:spam:"
	templatePrefix = "postoffice:template:"
	sweepTaskName  = "spool_sweep"
)

type recordStore interface {
	records.Store
	records.Reader
}

// infra holds the optional backing services.
type infra struct {
	pool    *pgxpool.Pool
	redis   goredis.UniversalClient
	records recordStore
}

func (i *infra) close() {
	if i.redis != nil {
		_ = i.redis.Close()
	}
	if i.pool != nil {
		i.pool.Close()
	}
}

// connect opens Postgres and Redis when they are configured.
func connect(ctx context.Context, cfg config.Config, log *slog.Logger) (*infra, error) {
	deps := &infra{}

	if cfg.DB.ConnectionString != "" {
		pool, err := db.Connect(ctx, cfg.DB)
		if err != nil {
			return nil, err
		}
		deps.pool = pool

		if err := db.Migrate(ctx, pool, repository.Migrations(), cfg.DB.MigrationsTable, log); err != nil {
			deps.close()
			return nil, err
		}
		deps.records = repository.NewRecords(pool)
	}

	if cfg.Redis.URL != "" {
		client, err := redis.Open(ctx, cfg.Redis)
		if err != nil {
			deps.close()
			return nil, err
		}
		deps.redis = client
	}

	return deps, nil
}

// build assembles the post office and returns the blocklist it gates on.
func build(ctx context.Context, cfg config.Config, deps *infra, log *slog.Logger) (*postoffice.PostOffice, *spam.Service, error) {
	policy, err := mailer.ParseDuplicatePolicy(cfg.Mailer.TemplateDuplicates)
	if err != nil {
		return nil, nil, err
	}

	blocklist, err := newBlocklist(ctx, cfg.Spam, deps, log)
	if err != nil {
		return nil, nil, err
	}

	sender, err := newSender(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	fetcher, err := newFetcher(cfg, log)
	if err != nil {
		return nil, nil, err
	}

	opts := []postoffice.Option{
		postoffice.WithSender(sender),
		postoffice.WithBlocklist(blocklist),
		postoffice.WithTemplates(newTemplateStore(cfg.Mailer, deps)),
		postoffice.WithDuplicatePolicy(policy),
		postoffice.WithFetcher(fetcher),
		postoffice.WithLogger(log),
	}
	if deps.records != nil {
		opts = append(opts, postoffice.WithRecords(deps.records))
	} else {
		mem := records.NewMemoryStore()
		deps.records = mem
		opts = append(opts, postoffice.WithRecords(mem))
	}

	var po *postoffice.PostOffice
	if cfg.Dispatch.Durable {
		if err := dispatch.Migrate(ctx, deps.pool); err != nil {
			return nil, nil, err
		}
		sweep := func(ctx context.Context) error {
			return po.SweepSpool(ctx, cfg.Dispatch.SweepAge)
		}
		opts = append(opts, postoffice.WithScheduler(postoffice.QueueScheduler(deps.pool,
			dispatch.WithQueueWorkers(cfg.Dispatch.Workers),
			dispatch.WithPeriodicTask(sweepTaskName, cfg.Dispatch.SweepSchedule, sweep),
		)))
	} else {
		opts = append(opts, postoffice.WithScheduler(postoffice.PoolScheduler(
			dispatch.WithWorkers(cfg.Dispatch.Workers),
		)))
	}

	po, err = postoffice.New(opts...)
	if err != nil {
		return nil, nil, err
	}
	return po, blocklist, nil
}

func newBlocklist(ctx context.Context, cfg config.Spam, deps *infra, log *slog.Logger) (*spam.Service, error) {
	var flags cache.Cache[bool]
	if deps.redis != nil {
		flags = cache.NewRedis[bool](deps.redis, spamPrefix, 0)
	} else {
		flags = cache.NewMemory[bool]()
	}

	svc := spam.New(flags, spam.WithFailureTTL(cfg.RecentFailureTTL), spam.WithLogger(log))
	for _, domain := range cfg.BlockedDomains {
		if err := svc.BlockDomain(ctx, domain); err != nil {
			return nil, fmt.Errorf("block domain %q: %w", domain, err)
		}
	}
	return svc, nil
}

func newTemplateStore(cfg mailer.Config, deps *infra) mailer.Store {
	var store mailer.Store = mailer.NewMemoryStore()
	if deps.pool == nil {
		return store
	}
	store = repository.NewTemplates(deps.pool)
	if cfg.TemplateCacheTTL <= 0 {
		return store
	}

	var c cache.Cache[mailer.Template]
	if deps.redis != nil {
		c = cache.NewRedis[mailer.Template](deps.redis, templatePrefix, cfg.TemplateCacheTTL)
	} else {
		c = cache.NewMemory[mailer.Template](cache.WithDefaultTTL(cfg.TemplateCacheTTL))
	}
	return mailer.NewCachedStore(store, c, cfg.TemplateCacheTTL)
}

func newSender(ctx context.Context, cfg config.Config) (mailer.Sender, error) {
	switch cfg.Mailer.Transport {
	case "resend":
		s, err := resend.New(cfg.Resend)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "ses":
		s, err := ses.New(ctx, cfg.SES)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return stdout.New(), nil
	}
}

func newFetcher(cfg config.Config, log *slog.Logger) (*attachment.Fetcher, error) {
	var spool attachment.Spool
	switch cfg.Spool.Kind {
	case config.SpoolS3:
		s3, err := storage.New(cfg.Storage)
		if err != nil {
			return nil, err
		}
		spool = attachment.NewObjectSpool(s3, cfg.Spool.Prefix)
	default:
		fs, err := attachment.NewFileSpool(cfg.Spool.Dir)
		if err != nil {
			return nil, err
		}
		spool = fs
	}

	transport := attachment.NewHTTPTransport(&http.Client{Timeout: cfg.Spool.FetchTimeout})
	return attachment.NewFetcher(transport, spool,
		attachment.WithMaxTransfer(cfg.Spool.MaxTransfer),
		attachment.WithLogger(log),
	), nil
}
