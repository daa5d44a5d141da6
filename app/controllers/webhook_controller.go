package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/CreatorPay/internal/pkg/billing"
)

const webhookTimeout = 15 * time.Second

// WebhookController receives payment processor events.
type WebhookController struct {
	processor *billing.WebhookProcessor
}

func NewWebhookController(p *billing.WebhookProcessor) *WebhookController {
	return &WebhookController{processor: p}
}

// HandleStripeWebhook verifies and applies one event. Any non-2xx response
// makes the processor redeliver, so only failures a retry can fix return 5xx
// or 409.
func (wc *WebhookController) HandleStripeWebhook(c *fiber.Ctx) error {
	payload := append([]byte(nil), c.BodyRaw()...)

	ctx, cancel := context.WithTimeout(c.UserContext(), webhookTimeout)
	defer cancel()

	ev, outcome, err := wc.processor.Handle(ctx, payload, c.Get(billing.SignatureHeader))
	if err != nil {
		status, code := webhookErrorStatus(err)
		if status >= fiber.StatusInternalServerError {
			log.Errorf("[Webhook] processing failed: %v", err)
		} else {
			log.Warnf("[Webhook] rejected delivery: %v", err)
		}
		resp := fiber.Map{"error": code}
		if ev != nil {
			resp["eventId"] = ev.ID
		}
		return c.Status(status).JSON(resp)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"ok":      true,
		"eventId": ev.ID,
		"outcome": outcome,
	})
}

func webhookErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, billing.ErrInvalidSignature):
		return fiber.StatusBadRequest, "invalid_signature"
	case errors.Is(err, billing.ErrMalformedEvent):
		return fiber.StatusBadRequest, "malformed_event"
	case errors.Is(err, billing.ErrMissingMetadata):
		return fiber.StatusBadRequest, "missing_metadata"
	case errors.Is(err, billing.ErrEventInFlight):
		return fiber.StatusConflict, "event_in_flight"
	default:
		return fiber.StatusInternalServerError, "processing_failed"
	}
}
