package middleware

import (
	"sync"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
)

var (
	promOnce sync.Once
	prom     *fiberprometheus.FiberPrometheus
)

// InitMetrics returns the process-wide HTTP metrics collector. fiberprometheus
// registers on the default registry, so it is created once and shared by
// every server instance (tests build many).
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		prom = fiberprometheus.New(serviceName)
		prom.SetSkipPaths([]string{"/metrics", "/health/live", "/health/ready"})
	})
	return prom
}

// MetricsMiddleware records request counts and latencies.
func MetricsMiddleware(p *fiberprometheus.FiberPrometheus) fiber.Handler {
	return p.Middleware
}

// RegisterMetricsRoute mounts the Prometheus exposition endpoint at /metrics.
func RegisterMetricsRoute(app *fiber.App, p *fiberprometheus.FiberPrometheus) {
	p.RegisterAt(app, "/metrics")
}
