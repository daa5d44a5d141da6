package controllers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/CreatorPay/app/models"
	"github.com/ManuelReschke/CreatorPay/internal/pkg/billing"
	"github.com/ManuelReschke/CreatorPay/internal/pkg/cache"
	"github.com/ManuelReschke/CreatorPay/internal/pkg/statements"
)

const (
	defaultTransactionLimit = 100
	maxTransactionLimit     = 500
)

// LedgerController serves read-only views of entitlements and the ledger.
type LedgerController struct {
	reconciler *billing.Reconciler
	readModels *cache.ReadModels
}

// NewLedgerController creates the controller. readModels may be nil, in which
// case every read goes to the database.
func NewLedgerController(reconciler *billing.Reconciler, readModels *cache.ReadModels) *LedgerController {
	return &LedgerController{reconciler: reconciler, readModels: readModels}
}

func (lc *LedgerController) handleError(c *fiber.Ctx, message string, err error) error {
	log.Errorf("[Ledger] %s: %v", message, err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "store_unavailable"})
}

func (lc *LedgerController) entitlement(ctx context.Context, id string) (*models.Entitlement, error) {
	if lc.readModels == nil {
		return lc.reconciler.Entitlement(ctx, id)
	}
	return lc.readModels.Entitlement(ctx, id, lc.reconciler.Entitlement)
}

func (lc *LedgerController) summary(ctx context.Context, id string) (*models.CreatorSummary, error) {
	if lc.readModels == nil {
		return lc.reconciler.Summary(ctx, id)
	}
	return lc.readModels.Summary(ctx, id, lc.reconciler.Summary)
}

func (lc *LedgerController) HandleGetEntitlement(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	ent, err := lc.entitlement(c.UserContext(), id)
	if err != nil {
		return lc.handleError(c, "loading entitlement "+id, err)
	}
	return c.Status(fiber.StatusOK).JSON(ent)
}

func (lc *LedgerController) HandleGetSummary(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	s, err := lc.summary(c.UserContext(), id)
	if err != nil {
		return lc.handleError(c, "loading summary "+id, err)
	}
	return c.Status(fiber.StatusOK).JSON(s)
}

// HandleListTransactions lists a creator's ledger, optionally filtered by
// status and revenue month.
func (lc *LedgerController) HandleListTransactions(c *fiber.Ctx) error {
	filter := billing.TransactionFilter{
		OwnerID: strings.TrimSpace(c.Params("id")),
		Status:  strings.TrimSpace(c.Query("status")),
		Month:   strings.TrimSpace(c.Query("month")),
		Limit:   c.QueryInt("limit", defaultTransactionLimit),
	}

	switch filter.Status {
	case "", models.TransactionStatusCompleted, models.TransactionStatusPending, models.TransactionStatusFailed:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_status"})
	}
	if filter.Month != "" {
		if err := statements.ValidateMonth(filter.Month); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_month"})
		}
	}
	if filter.Limit <= 0 || filter.Limit > maxTransactionLimit {
		filter.Limit = defaultTransactionLimit
	}

	txs, err := lc.reconciler.Transactions(c.UserContext(), filter)
	if err != nil {
		return lc.handleError(c, "listing transactions of "+filter.OwnerID, err)
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"creatorId":    filter.OwnerID,
		"transactions": txs,
		"count":        len(txs),
	})
}
