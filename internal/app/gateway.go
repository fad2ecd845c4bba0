package app

import (
	"context"
	"fmt"

	"github.com/andreyxaxa/Spectra/config"
	"github.com/andreyxaxa/Spectra/internal/controller/restapi"
	"github.com/andreyxaxa/Spectra/internal/controller/worker/outbox"
	"github.com/andreyxaxa/Spectra/internal/infrastructure/events"
	"github.com/andreyxaxa/Spectra/internal/repo/persistent"
	"github.com/andreyxaxa/Spectra/internal/usecase/image"
	"github.com/andreyxaxa/Spectra/pkg/httpserver"
	"github.com/andreyxaxa/Spectra/pkg/logger"
	"github.com/andreyxaxa/Spectra/pkg/metrics"
	"github.com/andreyxaxa/Spectra/pkg/postgres"
)

// RunGateway serves the ingestion API. With the outbox enabled it also runs the relay.
func RunGateway(cfg *config.Config) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Logger
	l := logger.New(cfg.Log.Level)

	// Metrics
	m := metrics.New()

	// Repository
	blobRepo, err := newBlobRepo(ctx, cfg)
	if err != nil {
		l.Fatal(fmt.Errorf("app - RunGateway - newBlobRepo: %w", err))
	}

	pg, err := postgres.New(cfg.PG.URL, postgres.MaxPoolSize(cfg.PG.PoolMax))
	if err != nil {
		l.Fatal(fmt.Errorf("app - RunGateway - postgres.New: %w", err))
	}
	defer pg.Close()

	// Broker
	b, err := newBroker(ctx, cfg, l)
	if err != nil {
		l.Fatal(fmt.Errorf("app - RunGateway - newBroker: %w", err))
	}
	defer func() {
		if err := b.close(); err != nil {
			l.Error(fmt.Errorf("app - RunGateway - b.close: %w", err))
		}
	}()

	bus := events.NewBus(b.publisher, m)

	// Use-Case
	var opts []image.Option
	if cfg.Outbox.Enabled {
		opts = append(opts, image.WithOutbox(persistent.NewOutboxRepo(pg, cfg.Outbox.ClaimLease), pg, cfg.Outbox.Retention))
	}

	imageUseCase := image.New(
		blobRepo,
		persistent.NewImageMetadataRepo(pg),
		bus,
		l,
		m,
		opts...,
	)

	// Outbox Relay Worker
	var outboxRelayWorker *outbox.OutboxRelay
	if cfg.Outbox.Enabled {
		outboxRelayWorker = outbox.New(
			imageUseCase,
			bus,
			l,
			cfg.Outbox.PollInterval,
			cfg.Outbox.CleanupInterval,
			cfg.Outbox.MarkFailedInterval,
			cfg.Outbox.ProcessBatchTimeout,
			cfg.Outbox.BatchSize,
			cfg.Outbox.MaxRetries,
		)
	}

	// HTTP Server
	httpServer := httpserver.New(l,
		httpserver.Port(cfg.HTTP.Port),
		httpserver.Prefork(cfg.HTTP.UsePreforkMode),
		httpserver.BodyLimit(cfg.HTTP.BodyLimit),
	)
	restapi.NewRouter(httpServer.App, cfg, imageUseCase, m, l)

	// Start Components
	if outboxRelayWorker != nil {
		err = outboxRelayWorker.Start(ctx)
		if err != nil {
			l.Fatal(fmt.Errorf("app - RunGateway - outboxRelayWorker.Start: %w", err))
		}
	}
	httpServer.Start()

	// Waiting Signal
	waitSignal(l, "RunGateway", httpServer.Notify())

	// Shutdown
	err = httpServer.Shutdown()
	if err != nil {
		l.Error(fmt.Errorf("app - RunGateway - httpServer.Shutdown: %w", err))
	}

	if outboxRelayWorker != nil {
		orlShutdownCtx, orlShutdownCancel := context.WithTimeout(ctx, cfg.Outbox.ShutdownTimeout)
		defer orlShutdownCancel()

		err = outboxRelayWorker.Shutdown(orlShutdownCtx)
		if err != nil {
			l.Error(fmt.Errorf("app - RunGateway - outboxRelayWorker.Shutdown: %w", err))
		}
	}
}
