package billing

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ManuelReschke/CreatorPay/app/models"
)

// SummaryCredit is the set of counter increments applied to a creator summary
// together with a ledger entry.
type SummaryCredit struct {
	CreatorID string
	Month     string
	Available int64
	Total     int64
	Monthly   int64
	Direct    int64
	Network   int64
}

func (c SummaryCredit) IsZero() bool {
	return c.Available == 0 && c.Total == 0 && c.Monthly == 0 && c.Direct == 0 && c.Network == 0
}

// TransactionFilter narrows ListTransactions. Empty fields do not filter.
type TransactionFilter struct {
	OwnerID string
	EventID string
	Status  string
	Month   string
	Limit   int
}

// EntitlementMutator changes e in place and reports whether it wants the
// result persisted. exists is false when no record was stored yet.
type EntitlementMutator func(e *models.Entitlement, exists bool) (bool, error)

// Repository provides DB operations used by the reconciliation service.
type Repository interface {
	ClaimEvent(ctx context.Context, event *models.ProcessedEvent) (*models.ProcessedEvent, error)
	GetEvent(ctx context.Context, provider, eventID string) (*models.ProcessedEvent, error)
	MarkEventProcessed(ctx context.Context, id uint, processingError string) error
	MarkEventFailed(ctx context.Context, id uint, processingError string) error

	GetEntitlement(ctx context.Context, subscriberID string) (*models.Entitlement, error)
	FindEntitlementBySubscription(ctx context.Context, subscriptionID string) (*models.Entitlement, error)
	UpdateEntitlement(ctx context.Context, subscriberID string, fn EntitlementMutator) (*models.Entitlement, bool, error)

	AppendTransaction(ctx context.Context, entry *models.Transaction, credit SummaryCredit) (bool, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]models.Transaction, error)
	GetSummary(ctx context.Context, creatorID string) (*models.CreatorSummary, error)
	ReplaceSummary(ctx context.Context, summary *models.CreatorSummary) error

	GetReferralEdge(ctx context.Context, creatorID string) (*models.ReferralEdge, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (r *gormRepository) ClaimEvent(ctx context.Context, event *models.ProcessedEvent) (*models.ProcessedEvent, error) {
	db := r.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "event_id"},
		},
		DoNothing: true,
	}).Create(event).Error; err != nil {
		return nil, err
	}

	if err := db.Model(&models.ProcessedEvent{}).
		Where("provider = ? AND event_id = ?", event.Provider, event.EventID).
		UpdateColumn("attempts", gorm.Expr("attempts + ?", 1)).Error; err != nil {
		return nil, err
	}
	return r.GetEvent(ctx, event.Provider, event.EventID)
}

func (r *gormRepository) GetEvent(ctx context.Context, provider, eventID string) (*models.ProcessedEvent, error) {
	var stored models.ProcessedEvent
	err := r.db.WithContext(ctx).
		Where("provider = ? AND event_id = ?", provider, eventID).
		First(&stored).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &stored, nil
}

func (r *gormRepository) MarkEventProcessed(ctx context.Context, id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.WithContext(ctx).Model(&models.ProcessedEvent{}).Where("id = ?", id).Updates(updates).Error
}

func (r *gormRepository) MarkEventFailed(ctx context.Context, id uint, processingError string) error {
	return r.db.WithContext(ctx).Model(&models.ProcessedEvent{}).
		Where("id = ? AND processed_at IS NULL", id).
		Update("processing_error", processingError).Error
}

func (r *gormRepository) GetEntitlement(ctx context.Context, subscriberID string) (*models.Entitlement, error) {
	var e models.Entitlement
	if err := r.db.WithContext(ctx).Where("subscriber_id = ?", subscriberID).First(&e).Error; err != nil {
		return nil, notFound(err)
	}
	return &e, nil
}

func (r *gormRepository) FindEntitlementBySubscription(ctx context.Context, subscriptionID string) (*models.Entitlement, error) {
	if subscriptionID == "" {
		return nil, ErrNotFound
	}
	var e models.Entitlement
	if err := r.db.WithContext(ctx).
		Where("processor_subscription_id = ?", subscriptionID).
		Order("updated_at DESC").
		First(&e).Error; err != nil {
		return nil, notFound(err)
	}
	return &e, nil
}

func (r *gormRepository) UpdateEntitlement(ctx context.Context, subscriberID string, fn EntitlementMutator) (*models.Entitlement, bool, error) {
	var (
		result  models.Entitlement
		changed bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists := true
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("subscriber_id = ?", subscriberID).
			First(&result).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			exists = false
			result = models.Entitlement{SubscriberID: subscriberID}
		} else if err != nil {
			return err
		}

		changed, err = fn(&result, exists)
		if err != nil || !changed {
			return err
		}
		result.SubscriberID = subscriberID
		if exists {
			return tx.Save(&result).Error
		}
		return tx.Create(&result).Error
	})
	if err != nil {
		return nil, false, err
	}
	return &result, changed, nil
}

// AppendTransaction inserts entry unless its entry key already exists and, in
// the same DB transaction, applies credit only when the entry is new.
func (r *gormRepository) AppendTransaction(ctx context.Context, entry *models.Transaction, credit SummaryCredit) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "entry_key"}},
			DoNothing: true,
		}).Create(entry)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		created = true
		if credit.CreatorID == "" || credit.IsZero() {
			return nil
		}
		return incrementSummary(tx, credit)
	})
	return created, err
}

// incrementSummary upserts the summary row with single-statement increments.
// The monthly counter restarts when a newer month arrives and ignores credits
// for months older than the stored one.
func incrementSummary(tx *gorm.DB, c SummaryCredit) error {
	row := models.CreatorSummary{
		CreatorID:        c.CreatorID,
		AvailableBalance: c.Available,
		TotalEarnings:    c.Total,
		MonthlyRevenue:   c.Monthly,
		DirectEarnings:   c.Direct,
		NetworkEarnings:  c.Network,
		RevenueMonth:     c.Month,
	}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "creator_id"}},
		DoUpdates: clause.Set{
			{Column: clause.Column{Name: "available_balance"}, Value: gorm.Expr("available_balance + ?", c.Available)},
			{Column: clause.Column{Name: "total_earnings"}, Value: gorm.Expr("total_earnings + ?", c.Total)},
			{Column: clause.Column{Name: "direct_earnings"}, Value: gorm.Expr("direct_earnings + ?", c.Direct)},
			{Column: clause.Column{Name: "network_earnings"}, Value: gorm.Expr("network_earnings + ?", c.Network)},
			{Column: clause.Column{Name: "monthly_revenue"}, Value: gorm.Expr(
				"CASE WHEN revenue_month = ? THEN monthly_revenue + ? WHEN revenue_month > ? THEN monthly_revenue ELSE ? END",
				c.Month, c.Monthly, c.Month, c.Monthly)},
			{Column: clause.Column{Name: "revenue_month"}, Value: gorm.Expr(
				"CASE WHEN revenue_month > ? THEN revenue_month ELSE ? END", c.Month, c.Month)},
			{Column: clause.Column{Name: "updated_at"}, Value: time.Now()},
		},
	}).Create(&row).Error
}

func (r *gormRepository) ListTransactions(ctx context.Context, filter TransactionFilter) ([]models.Transaction, error) {
	q := r.db.WithContext(ctx).Model(&models.Transaction{})
	if filter.OwnerID != "" {
		q = q.Where("owner_id = ?", filter.OwnerID)
	}
	if filter.EventID != "" {
		q = q.Where("event_id = ?", filter.EventID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Month != "" {
		q = q.Where("revenue_month = ?", filter.Month)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var out []models.Transaction
	err := q.Order("created_at ASC").Order("id ASC").Find(&out).Error
	return out, err
}

func (r *gormRepository) GetSummary(ctx context.Context, creatorID string) (*models.CreatorSummary, error) {
	var s models.CreatorSummary
	if err := r.db.WithContext(ctx).Where("creator_id = ?", creatorID).First(&s).Error; err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (r *gormRepository) ReplaceSummary(ctx context.Context, summary *models.CreatorSummary) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "creator_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"available_balance",
			"total_earnings",
			"monthly_revenue",
			"direct_earnings",
			"network_earnings",
			"revenue_month",
			"updated_at",
		}),
	}).Create(summary).Error
}

func (r *gormRepository) GetReferralEdge(ctx context.Context, creatorID string) (*models.ReferralEdge, error) {
	var edge models.ReferralEdge
	if err := r.db.WithContext(ctx).Where("creator_id = ?", creatorID).First(&edge).Error; err != nil {
		return nil, notFound(err)
	}
	return &edge, nil
}
