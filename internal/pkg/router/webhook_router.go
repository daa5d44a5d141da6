package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/CreatorPay/app/controllers"
)

type WebhookRouter struct {
	webhooks *controllers.WebhookController
}

func (h WebhookRouter) InstallRouter(app *fiber.App) {
	hooks := app.Group("/webhooks")
	hooks.Post("/stripe", h.webhooks.HandleStripeWebhook)
}

func NewWebhookRouter(webhooks *controllers.WebhookController) *WebhookRouter {
	return &WebhookRouter{webhooks: webhooks}
}
