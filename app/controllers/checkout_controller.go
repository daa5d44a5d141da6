package controllers

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/CreatorPay/internal/pkg/billing"
	"github.com/ManuelReschke/CreatorPay/internal/pkg/checkout"
)

type verifyCheckoutRequest struct {
	SessionID    string `json:"sessionId" validate:"required"`
	SubscriberID string `json:"subscriberId" validate:"required"`
}

// CheckoutController starts checkout sessions and confirms them
// synchronously when the payer returns before the webhook arrives.
type CheckoutController struct {
	builder    *checkout.Builder
	reconciler *billing.Reconciler
	validate   *validator.Validate
}

func NewCheckoutController(builder *checkout.Builder, reconciler *billing.Reconciler) *CheckoutController {
	return &CheckoutController{
		builder:    builder,
		reconciler: reconciler,
		validate:   validator.New(),
	}
}

func (cc *CheckoutController) HandleCreateCheckout(c *fiber.Ctx) error {
	var req checkout.Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request"})
	}
	req.SubscriberID = strings.TrimSpace(req.SubscriberID)
	req.CreatorID = strings.TrimSpace(req.CreatorID)

	session, err := cc.builder.Create(c.UserContext(), req)
	switch {
	case err == nil:
		return c.Status(fiber.StatusOK).JSON(session)
	case errors.Is(err, checkout.ErrUnknownProduct):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown_product"})
	case errors.Is(err, checkout.ErrInvalidRequest):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request"})
	default:
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "checkout_unavailable"})
	}
}

func (cc *CheckoutController) HandleVerifyCheckout(c *fiber.Ctx) error {
	var req verifyCheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request"})
	}
	if err := cc.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request"})
	}

	ent, err := cc.reconciler.VerifyCheckout(c.UserContext(), req.SessionID, req.SubscriberID)
	if err != nil {
		status, code := verifyErrorStatus(err)
		if status >= fiber.StatusInternalServerError {
			log.Errorf("[Checkout] verifying session %s failed: %v", req.SessionID, err)
		}
		return c.Status(status).JSON(fiber.Map{"error": code})
	}
	return c.Status(fiber.StatusOK).JSON(ent)
}

func verifyErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, billing.ErrSessionMismatch):
		return fiber.StatusForbidden, "session_mismatch"
	case errors.Is(err, billing.ErrSessionNotPaid):
		return fiber.StatusConflict, "session_not_paid"
	case errors.Is(err, billing.ErrEventInFlight):
		return fiber.StatusConflict, "in_flight"
	case errors.Is(err, billing.ErrMissingMetadata):
		return fiber.StatusBadRequest, "missing_metadata"
	case errors.Is(err, billing.ErrVerificationDisabled):
		return fiber.StatusServiceUnavailable, "verification_disabled"
	case errors.Is(err, billing.ErrStoreUnavailable):
		return fiber.StatusInternalServerError, "store_unavailable"
	default:
		return fiber.StatusBadGateway, "processor_unavailable"
	}
}
