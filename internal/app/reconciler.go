package app

import (
	"context"
	"fmt"

	"github.com/andreyxaxa/Spectra/config"
	"github.com/andreyxaxa/Spectra/internal/controller/broker"
	"github.com/andreyxaxa/Spectra/internal/infrastructure"
	"github.com/andreyxaxa/Spectra/internal/repo/persistent"
	"github.com/andreyxaxa/Spectra/internal/usecase/reconcile"
	"github.com/andreyxaxa/Spectra/pkg/logger"
	"github.com/andreyxaxa/Spectra/pkg/metrics"
	"github.com/andreyxaxa/Spectra/pkg/postgres"
)

// RunReconciler consumes image.processed and patches thumbnail keys into the records.
func RunReconciler(cfg *config.Config) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Logger
	l := logger.New(cfg.Log.Level)

	// Metrics
	m := metrics.New()

	// Repository
	pg, err := postgres.New(cfg.PG.URL, postgres.MaxPoolSize(cfg.PG.PoolMax))
	if err != nil {
		l.Fatal(fmt.Errorf("app - RunReconciler - postgres.New: %w", err))
	}
	defer pg.Close()

	// Use-Case
	reconcileUseCase := reconcile.New(persistent.NewImageMetadataRepo(pg), l)

	consumerProcess{
		name:       "RunReconciler",
		routingKey: infrastructure.RoutingKeyProcessed,
		handler: func(*brokerConn) broker.Handler {
			return broker.ProcessedHandler(reconcileUseCase)
		},
	}.run(ctx, cfg, l, m)
}
