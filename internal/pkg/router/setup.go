package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ManuelReschke/CreatorPay/app/controllers"
	"github.com/ManuelReschke/CreatorPay/internal/pkg/middleware"
)

// Router registers one group of routes on the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

// Dependencies are the controllers and infrastructure the routes are bound to.
type Dependencies struct {
	Webhooks *controllers.WebhookController
	Checkout *controllers.CheckoutController
	Ledger   *controllers.LedgerController
	Admin    *controllers.AdminLedgerController

	AdminCredentials middleware.AdminCredentials
	Gatherer         prometheus.Gatherer
	// LimiterStorage backs the API rate limiter. Nil keeps the counters in memory.
	LimiterStorage fiber.Storage
}

func InstallRouter(app *fiber.App, deps Dependencies) {
	// Webhooks are registered outside the rate-limited API group; the
	// processor retries on 429 and would only add load.
	setup(app,
		NewWebhookRouter(deps.Webhooks),
		NewApiRouter(deps),
		NewMetricsRouter(deps.Gatherer, deps.AdminCredentials),
	)
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
