package jobqueue

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/CreatorPay/app/models"
	"github.com/ManuelReschke/CreatorPay/internal/pkg/notify"
)

// SummaryRecomputer rebuilds a creator summary from the ledger.
type SummaryRecomputer interface {
	Recompute(ctx context.Context, creatorID string) (*models.CreatorSummary, error)
}

// StatementExporter writes a creator's monthly statement and returns its location.
type StatementExporter interface {
	Export(ctx context.Context, creatorID, month string) (string, error)
}

// NotifyProcessor delivers queued notifications through n.
func NotifyProcessor(n notify.Notifier) Processor {
	return func(ctx context.Context, job *Job) error {
		p, err := NotifyJobPayloadFromMap(job.Payload)
		if err != nil {
			return fmt.Errorf("invalid notify payload: %w", err)
		}
		return n.Notify(ctx, notify.Message{
			UserID:      p.UserID,
			Type:        p.Type,
			Title:       p.Title,
			Content:     p.Content,
			ReferenceID: p.ReferenceID,
		})
	}
}

func RecomputeProcessor(r SummaryRecomputer) Processor {
	return func(ctx context.Context, job *Job) error {
		p, err := RecomputeSummaryJobPayloadFromMap(job.Payload)
		if err != nil {
			return fmt.Errorf("invalid recompute payload: %w", err)
		}
		if p.CreatorID == "" {
			return fmt.Errorf("recompute job %s without creator id", job.ID)
		}
		s, err := r.Recompute(ctx, p.CreatorID)
		if err != nil {
			return err
		}
		log.Infof("[JobQueue] Recomputed summary for %s: available=%d total=%d", s.CreatorID, s.AvailableBalance, s.TotalEarnings)
		return nil
	}
}

func ExportProcessor(e StatementExporter) Processor {
	return func(ctx context.Context, job *Job) error {
		p, err := ExportStatementJobPayloadFromMap(job.Payload)
		if err != nil {
			return fmt.Errorf("invalid export payload: %w", err)
		}
		location, err := e.Export(ctx, p.CreatorID, p.Month)
		if err != nil {
			return err
		}
		log.Infof("[JobQueue] Exported statement for %s %s to %s", p.CreatorID, p.Month, location)
		return nil
	}
}

// QueuedNotifier defers notifications to the job queue so a slow or failing
// channel never blocks event processing.
type QueuedNotifier struct {
	queue *Queue
}

func NewQueuedNotifier(q *Queue) *QueuedNotifier {
	return &QueuedNotifier{queue: q}
}

func (n *QueuedNotifier) Notify(ctx context.Context, msg notify.Message) error {
	payload := NotifyJobPayload{
		UserID:      msg.UserID,
		Type:        msg.Type,
		Title:       msg.Title,
		Content:     msg.Content,
		ReferenceID: msg.ReferenceID,
	}
	_, err := n.queue.EnqueueJob(ctx, JobTypeNotify, payload.ToMap())
	return err
}
