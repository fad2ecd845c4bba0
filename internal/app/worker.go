package app

import (
	"context"
	"fmt"

	"github.com/andreyxaxa/Spectra/config"
	"github.com/andreyxaxa/Spectra/internal/controller/broker"
	"github.com/andreyxaxa/Spectra/internal/infrastructure"
	"github.com/andreyxaxa/Spectra/internal/infrastructure/events"
	"github.com/andreyxaxa/Spectra/internal/infrastructure/processor"
	"github.com/andreyxaxa/Spectra/internal/usecase/thumbnail"
	"github.com/andreyxaxa/Spectra/pkg/logger"
	"github.com/andreyxaxa/Spectra/pkg/metrics"
)

// RunWorker consumes image.received and writes thumbnails.
func RunWorker(cfg *config.Config) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Logger
	l := logger.New(cfg.Log.Level)

	// Metrics
	m := metrics.New()

	// Repository
	blobRepo, err := newBlobRepo(ctx, cfg)
	if err != nil {
		l.Fatal(fmt.Errorf("app - RunWorker - newBlobRepo: %w", err))
	}

	consumerProcess{
		name:       "RunWorker",
		routingKey: infrastructure.RoutingKeyReceived,
		handler: func(b *brokerConn) broker.Handler {
			// Use-Case
			thumbnailUseCase := thumbnail.New(
				blobRepo,
				processor.New(),
				events.NewBus(b.publisher, m),
				l,
				cfg.Worker.ThumbnailWidth,
				cfg.Worker.ThumbnailHeight,
				cfg.Worker.CPUTimeout,
			)

			return broker.ReceivedHandler(thumbnailUseCase)
		},
	}.run(ctx, cfg, l, m)
}
