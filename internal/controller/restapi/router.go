package restapi

import (
	"github.com/andreyxaxa/Spectra/config"
	v1 "github.com/andreyxaxa/Spectra/internal/controller/restapi/v1"
	"github.com/andreyxaxa/Spectra/internal/usecase"
	"github.com/andreyxaxa/Spectra/pkg/logger"
	"github.com/andreyxaxa/Spectra/pkg/metrics"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// @title Spectra image gateway
// @version 1.0.0
// @host localhost:8080
// @BasePath /api
func NewRouter(app *fiber.App, cfg *config.Config, img usecase.ImageUseCase, m *metrics.Metrics, l logger.Interface) {
	// Swagger
	if cfg.Swagger.Enabled {
		app.Get("/swagger/*", swagger.HandlerDefault)
	}

	NewProbeRouter(app, cfg, m, nil)

	// Routers
	apiGroup := app.Group("/api")
	{
		v1.NewImageRoutes(apiGroup, img, l)
	}
}

// NewProbeRouter serves only health and metrics, for processes without a public API.
// A nil ready reports ready whenever the process is up.
func NewProbeRouter(app *fiber.App, cfg *config.Config, m *metrics.Metrics, ready func() bool) {
	if ready == nil {
		ready = func() bool { return true }
	}

	// K8s probes
	app.Use(healthcheck.New(healthcheck.Config{
		LivenessEndpoint:  "/healthz",
		ReadinessEndpoint: "/readyz",
		ReadinessProbe:    func(*fiber.Ctx) bool { return ready() },
	}))

	// Prometheus metrics
	if cfg.Metrics.Enabled && m != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
	}
}
