package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/evcraddock/house-calendar/internal/cache"
	"github.com/evcraddock/house-calendar/internal/feedsync"
	"github.com/evcraddock/house-calendar/internal/importer"
	"github.com/evcraddock/house-calendar/internal/logging"
	"github.com/evcraddock/house-calendar/internal/notify"
	"github.com/evcraddock/house-calendar/internal/scheduler"
	"github.com/evcraddock/house-calendar/internal/web"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the JSON API and the periodic feed sync.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, listen)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "address to listen on (default from config)")

	return cmd
}

func runServe(cmd *cobra.Command, listen string) error {
	cfg, repo, database, err := openRepo()
	if err != nil {
		return err
	}
	defer closeDB(database)
	if listen != "" {
		cfg.Listen = listen
	}

	logger := logging.Setup(cfg.DevMode)
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	merger, err := newMerger(cfg, repo, logger)
	if err != nil {
		return err
	}
	sched := scheduler.New(merger, logger)

	avail := cache.New(nil, cfg.Redis.TTL)
	if cfg.Redis.Addr != "" {
		rdb, err := cache.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Warn("availability cache disabled", "err", err)
		} else {
			defer func() { _ = rdb.Close() }()
			avail = cache.New(rdb, cfg.Redis.TTL)
			logger.Info("availability cache enabled", "addr", cfg.Redis.Addr)
		}
	}

	pub := notify.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Queue, logger)
	sched.OnComplete(pub.Hook("feed"))
	sched.OnComplete(func(ctx context.Context, _ *feedsync.Summary) {
		if err := avail.Invalidate(ctx); err != nil {
			logger.Warn("invalidating availability cache", "err", err)
		}
	})

	srv, err := web.NewServer(web.Options{
		Houses:   repo,
		Sync:     sched,
		Importer: importer.New(merger),
		Notifier: pub,
		Cache:    avail,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	httpSrv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.ListenAndServe()
	}()
	logger.Info("server starting", "addr", "http://"+cfg.Listen, "feed", cfg.Feed.URL)

	if err := sched.Start(ctx, cfg.Sync.Schedule); err != nil {
		_ = httpSrv.Close()
		return err
	}
	if cfg.Sync.OnStart {
		go func() {
			if _, err := sched.Trigger(ctx); err != nil {
				logger.Error("startup sync failed", "err", err)
			}
		}()
	}

	var serveErr error
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = fmt.Errorf("serving http: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "err", err)
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		logger.Warn("waiting for running sync", "err", err)
	}
	return serveErr
}
