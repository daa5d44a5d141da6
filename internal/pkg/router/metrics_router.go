package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuelReschke/CreatorPay/internal/pkg/middleware"
)

// MetricsRouter exposes the Prometheus registry behind the admin credentials.
type MetricsRouter struct {
	gatherer prometheus.Gatherer
	creds    middleware.AdminCredentials
}

func (h MetricsRouter) InstallRouter(app *fiber.App) {
	gatherer := h.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	app.Get("/metrics",
		middleware.AdminAuth(h.creds),
		adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})),
	)
}

func NewMetricsRouter(gatherer prometheus.Gatherer, creds middleware.AdminCredentials) *MetricsRouter {
	return &MetricsRouter{gatherer: gatherer, creds: creds}
}
