package controllers

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/CreatorPay/internal/pkg/billing"
	"github.com/ManuelReschke/CreatorPay/internal/pkg/jobqueue"
	"github.com/ManuelReschke/CreatorPay/internal/pkg/statements"
	"github.com/ManuelReschke/CreatorPay/internal/pkg/usercontext"
)

// JobEnqueuer schedules the background ledger jobs.
type JobEnqueuer interface {
	EnqueueRecompute(ctx context.Context, creatorID string) (*jobqueue.Job, error)
	EnqueueStatementExport(ctx context.Context, creatorID, month string) (*jobqueue.Job, error)
}

// AdminLedgerController exposes the ledger recovery and export operations.
type AdminLedgerController struct {
	reconciler *billing.Reconciler
	jobs       JobEnqueuer
}

func NewAdminLedgerController(reconciler *billing.Reconciler, jobs JobEnqueuer) *AdminLedgerController {
	return &AdminLedgerController{reconciler: reconciler, jobs: jobs}
}

func (ac *AdminLedgerController) handleError(c *fiber.Ctx, message string, err error) error {
	log.Errorf("[Admin] %s: %v", message, err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": message})
}

func accepted(c *fiber.Ctx, job *jobqueue.Job) error {
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"jobId":  job.ID,
		"type":   job.Type,
		"status": job.Status,
	})
}

// HandleRecompute rebuilds a creator summary from the ledger. By default the
// work is queued; ?sync=true runs it inline and returns the new summary.
func (ac *AdminLedgerController) HandleRecompute(c *fiber.Ctx) error {
	creatorID := strings.TrimSpace(c.Params("id"))
	log.Infof("[Admin] %s requested summary recompute for %s", usercontext.GetUsername(c), creatorID)

	if c.QueryBool("sync", false) {
		s, err := ac.reconciler.Recompute(c.UserContext(), creatorID)
		if err != nil {
			return ac.handleError(c, "recompute failed", err)
		}
		return c.Status(fiber.StatusOK).JSON(s)
	}

	job, err := ac.jobs.EnqueueRecompute(c.UserContext(), creatorID)
	if err != nil {
		return ac.handleError(c, "enqueue failed", err)
	}
	return accepted(c, job)
}

func (ac *AdminLedgerController) HandleStatementExport(c *fiber.Ctx) error {
	creatorID := strings.TrimSpace(c.Params("id"))
	month := strings.TrimSpace(c.Query("month"))
	if err := statements.ValidateMonth(month); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_month"})
	}

	job, err := ac.jobs.EnqueueStatementExport(c.UserContext(), creatorID, month)
	if err != nil {
		return ac.handleError(c, "enqueue failed", err)
	}
	log.Infof("[Admin] %s queued %s statement for %s (job %s)", usercontext.GetUsername(c), month, creatorID, job.ID)
	return accepted(c, job)
}

// HandleAudit checks that the ledger entries of one event add up to its gross.
func (ac *AdminLedgerController) HandleAudit(c *fiber.Ctx) error {
	eventID := strings.TrimSpace(c.Params("id"))
	rep, err := ac.reconciler.Audit(c.UserContext(), eventID)
	if errors.Is(err, billing.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no_ledger_entries"})
	}
	if err != nil {
		return ac.handleError(c, "audit failed", err)
	}
	return c.Status(fiber.StatusOK).JSON(rep)
}
