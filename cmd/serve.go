package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"newsmint/api"
	"newsmint/events"
	"newsmint/feeds"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and background workers",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		log.Error("startup failed", zap.Error(err))
		return err
	}
	defer a.Close()

	importer := a.importer()

	if cfg.KafkaEnabled() {
		consumer, err := events.NewConsumer(events.ConsumerConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaSubmissionsTopic,
			GroupID: cfg.KafkaGroupID,
			Handler: events.NewSubmissionHandler(a.svc, log),
			Logger:  log,
		})
		if err != nil {
			log.Error("failed to create kafka consumer", zap.Error(err))
			return err
		}
		defer func() { _ = consumer.Close() }()

		// The group may take a while to balance; don't block the API on it
		go func() {
			if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("kafka consumer failed to start", zap.Error(err))
			}
		}()
	}

	if cfg.FeedImportCron != "" {
		presets := cfg.FeedImportPresets
		if len(presets) == 0 {
			presets = []string{feeds.DefaultPreset}
		}
		scheduler := feeds.NewScheduler(importer, presets, cfg.FeedImportAddress, cfg.FeedImportCount, log)
		if err := scheduler.Start(ctx, cfg.FeedImportCron); err != nil {
			log.Error("failed to schedule feed import", zap.Error(err))
			return err
		}
		defer scheduler.Stop()
	}

	router := api.NewRouter(api.Deps{
		News:        a.svc,
		Metagraph:   a.metagraph,
		Importer:    importer,
		RoutePrefix: cfg.RoutePrefix,
		Logger:      log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting API server",
			zap.String("addr", srv.Addr),
			zap.String("news_prefix", cfg.RoutePrefix),
			zap.String("metagraph", a.metagraph.BaseURL()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("server error", zap.Error(err))
			return err
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
		return err
	}
	return nil
}
