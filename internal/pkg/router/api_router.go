package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/ManuelReschke/CreatorPay/internal/pkg/env"
	"github.com/ManuelReschke/CreatorPay/internal/pkg/middleware"
)

type ApiRouter struct {
	deps Dependencies
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiter.Config{
		Max:        env.GetEnvInt("API_RATE_LIMIT", 60),
		Expiration: time.Minute,
		Storage:    h.deps.LimiterStorage,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate_limited"})
		},
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group("/v1")
	v1.Post("/checkout", h.deps.Checkout.HandleCreateCheckout)
	v1.Post("/checkout/verify", h.deps.Checkout.HandleVerifyCheckout)
	v1.Get("/entitlements/:id", h.deps.Ledger.HandleGetEntitlement)
	v1.Get("/creators/:id/summary", h.deps.Ledger.HandleGetSummary)
	v1.Get("/creators/:id/transactions", h.deps.Ledger.HandleListTransactions)

	admin := v1.Group("/admin",
		middleware.AdminAuth(h.deps.AdminCredentials),
		middleware.AdminContext,
		middleware.RequireAdmin,
	)
	admin.Post("/creators/:id/recompute", h.deps.Admin.HandleRecompute)
	admin.Post("/creators/:id/statements", h.deps.Admin.HandleStatementExport)
	admin.Get("/events/:id/audit", h.deps.Admin.HandleAudit)
}

func NewApiRouter(deps Dependencies) *ApiRouter {
	return &ApiRouter{deps: deps}
}
