// Command postoffice runs the mail dispatch HTTP service.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/postoffice"
	"github.com/dmitrymomot/postoffice/internal/config"
	"github.com/dmitrymomot/postoffice/internal/httpapi"
	"github.com/dmitrymomot/postoffice/pkg/db"
	"github.com/dmitrymomot/postoffice/pkg/logger"
	"github.com/dmitrymomot/postoffice/pkg/redis"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(cfg.Logger, logger.AttemptIDExtractor(), httpapi.RequestIDExtractor())
	defer sentry.Flush(2 * time.Second)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := connect(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer deps.close()

	po, blocklist, err := build(ctx, cfg, deps, log)
	if err != nil {
		return err
	}
	if err := po.Start(context.WithoutCancel(ctx)); err != nil {
		return err
	}

	var sweeper *cron.Cron
	if !cfg.Dispatch.Durable {
		sweeper, err = startSweeper(ctx, cfg.Dispatch, po, log)
		if err != nil {
			return errors.Join(err, po.Shutdown(ctx))
		}
	}

	opts := []httpapi.Option{
		httpapi.WithBlocklist(blocklist),
		httpapi.WithHealthTimeout(cfg.HTTP.HealthTimeout),
		httpapi.WithMaxBodyBytes(cfg.HTTP.MaxBodyBytes),
		httpapi.WithLogger(log),
	}
	if deps.records != nil {
		opts = append(opts, httpapi.WithRecords(deps.records))
	}
	if deps.pool != nil {
		opts = append(opts, httpapi.WithReadinessCheck("postgres", db.Healthcheck(deps.pool)))
	}
	if deps.redis != nil {
		opts = append(opts, httpapi.WithReadinessCheck("redis", redis.Healthcheck(deps.redis)))
	}

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           httpapi.New(po, opts...).Handler(),
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       2 * time.Minute,
	}

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return errors.Join(err, po.Shutdown(ctx))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server starting", slog.String("address", ln.Addr().String()))
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()

		var errs []error
		if err := server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		if sweeper != nil {
			<-sweeper.Stop().Done()
		}
		if err := po.Shutdown(shutdownCtx); err != nil {
			log.Error("dispatcher shutdown failed", slog.Any("error", err))
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		log.Error("shutdown completed with errors", slog.Any("error", err))
		return err
	}
	log.Info("shutdown completed")
	return nil
}

// startSweeper removes stale spooled attachments on the configured schedule.
// The durable queue runs the same sweep as a periodic job instead.
func startSweeper(ctx context.Context, cfg config.Dispatch, po *postoffice.PostOffice, log *slog.Logger) (*cron.Cron, error) {
	sweep := func() {
		if err := po.SweepSpool(ctx, cfg.SweepAge); err != nil {
			log.WarnContext(ctx, "spool sweep failed", slog.Any("error", err))
		}
	}
	sweep()

	c := cron.New()
	if _, err := c.AddFunc(cfg.SweepSchedule, sweep); err != nil {
		return nil, fmt.Errorf("spool sweep schedule %q: %w", cfg.SweepSchedule, err)
	}
	c.Start()
	return c, nil
}
