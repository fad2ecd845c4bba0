package app

import (
	"context"
	"fmt"
	"runtime"

	"github.com/andreyxaxa/Spectra/config"
	"github.com/andreyxaxa/Spectra/internal/controller/broker"
	"github.com/andreyxaxa/Spectra/internal/controller/restapi"
	"github.com/andreyxaxa/Spectra/internal/infrastructure"
	"github.com/andreyxaxa/Spectra/pkg/httpserver"
	"github.com/andreyxaxa/Spectra/pkg/logger"
	"github.com/andreyxaxa/Spectra/pkg/metrics"
)

// consumerProcess is the shared lifecycle of the worker and the reconciler:
// one queue, one controller and a probe server.
type consumerProcess struct {
	name       string
	routingKey string
	handler    func(b *brokerConn) broker.Handler
}

func (p consumerProcess) run(ctx context.Context, cfg *config.Config, l logger.Interface, m *metrics.Metrics) {
	binding, ok := findBinding(Topology(cfg), p.routingKey)
	if !ok {
		l.Fatal(fmt.Errorf("app - %s - no queue bound to %s", p.name, p.routingKey))
	}

	// Broker
	b, err := newBroker(ctx, cfg, l)
	if err != nil {
		l.Fatal(fmt.Errorf("app - %s - newBroker: %w", p.name, err))
	}
	defer func() {
		if err := b.close(); err != nil {
			l.Error(fmt.Errorf("app - %s - b.close: %w", p.name, err))
		}
	}()

	ec, err := b.newConsumer(ctx, binding)
	if err != nil {
		l.Fatal(fmt.Errorf("app - %s - b.newConsumer: %w", p.name, err))
	}

	workers := cfg.Worker.Concurrency
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	// Broker as Controller
	controller := broker.New(
		binding.Queue,
		ec,
		p.handler(b),
		l,
		m,
		cfg.Worker.AckTimeout,
		cfg.Worker.ProcessTimeout,
		broker.RetryPolicy{
			MaxAttempts:  cfg.Worker.MaxAttempts,
			InitialDelay: cfg.Worker.RetryInitialDelay,
			MaxDelay:     cfg.Worker.RetryMaxDelay,
			Multiplier:   cfg.Worker.RetryMultiplier,
			Jitter:       cfg.Worker.RetryJitter,
		},
		workers,
	)

	// Probe Server
	probeServer := httpserver.New(l, httpserver.Port(cfg.HTTP.ProbePort))
	restapi.NewProbeRouter(probeServer.App, cfg, m, b.ready)

	// Start Components
	err = controller.Start(ctx)
	if err != nil {
		l.Fatal(fmt.Errorf("app - %s - controller.Start: %w", p.name, err))
	}
	probeServer.Start()

	l.Info("app - %s - consuming %s with %d workers", p.name, binding.Queue, workers)

	// Waiting Signal
	waitSignal(l, p.name, probeServer.Notify())

	// Shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.Worker.ShutdownTimeout)
	defer shutdownCancel()

	err = controller.Shutdown(shutdownCtx)
	if err != nil {
		l.Error(fmt.Errorf("app - %s - controller.Shutdown: %w", p.name, err))
	}

	err = probeServer.Shutdown()
	if err != nil {
		l.Error(fmt.Errorf("app - %s - probeServer.Shutdown: %w", p.name, err))
	}
}

func findBinding(t infrastructure.Topology, routingKey string) (infrastructure.Binding, bool) {
	queue, ok := t.Queue(routingKey)
	return infrastructure.Binding{Queue: queue, RoutingKey: routingKey}, ok
}
