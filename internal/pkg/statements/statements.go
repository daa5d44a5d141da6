// Package statements renders a creator's ledger for one month as CSV and
// stores it in object storage.
package statements

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/ManuelReschke/CreatorPay/app/models"
	"github.com/ManuelReschke/CreatorPay/internal/pkg/billing"
)

var ErrInvalidMonth = errors.New("month must be formatted YYYY-MM")

// Header is the first CSV row of every statement.
var Header = []string{"created_at", "transaction_id", "event_id", "kind", "depth", "subscriber_id", "description", "status", "amount", "gross"}

// TransactionSource lists ledger entries.
type TransactionSource interface {
	Transactions(ctx context.Context, filter billing.TransactionFilter) ([]models.Transaction, error)
}

// Uploader persists a rendered statement and returns where it went.
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

type Exporter struct {
	source   TransactionSource
	uploader Uploader
	keyFor   func(creatorID, month string) string
}

func NewExporter(source TransactionSource, uploader Uploader, cfg *Config) *Exporter {
	return &Exporter{source: source, uploader: uploader, keyFor: cfg.ObjectKey}
}

// ValidateMonth checks a YYYY-MM month string.
func ValidateMonth(month string) error {
	if _, err := time.Parse("2006-01", month); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidMonth, month)
	}
	return nil
}

// Render writes the completed and pending entries of creatorID for month as CSV to w.
func Render(ctx context.Context, source TransactionSource, creatorID, month string, w io.Writer) (int, error) {
	if err := ValidateMonth(month); err != nil {
		return 0, err
	}
	txs, err := source.Transactions(ctx, billing.TransactionFilter{OwnerID: creatorID, Month: month})
	if err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return 0, err
	}
	var total int64
	for _, t := range txs {
		if t.Status == models.TransactionStatusCompleted {
			total += t.Amount
		}
		if err := cw.Write([]string{
			t.CreatedAt.UTC().Format(time.RFC3339),
			t.ID,
			t.EventID,
			t.Kind,
			strconv.Itoa(t.Depth),
			t.SubscriberID,
			t.Description,
			t.Status,
			strconv.FormatInt(t.Amount, 10),
			strconv.FormatInt(t.Gross, 10),
		}); err != nil {
			return 0, err
		}
	}
	if err := cw.Write([]string{"", "", "", "total", "", "", "", models.TransactionStatusCompleted, strconv.FormatInt(total, 10), ""}); err != nil {
		return 0, err
	}
	cw.Flush()
	return len(txs), cw.Error()
}

// Export renders and uploads the statement, returning its location.
func (e *Exporter) Export(ctx context.Context, creatorID, month string) (string, error) {
	if creatorID == "" {
		return "", errors.New("creator id is required")
	}
	var buf bytes.Buffer
	if _, err := Render(ctx, e.source, creatorID, month, &buf); err != nil {
		return "", fmt.Errorf("render statement %s/%s: %w", creatorID, month, err)
	}
	return e.uploader.Upload(ctx, e.keyFor(creatorID, month), buf.Bytes(), "text/csv")
}
