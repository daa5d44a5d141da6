package billing

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/CreatorPay/app/models"
	"github.com/ManuelReschke/CreatorPay/internal/pkg/catalog"
	"github.com/ManuelReschke/CreatorPay/internal/pkg/checkout"
	"github.com/ManuelReschke/CreatorPay/internal/pkg/metrics"
	"github.com/ManuelReschke/CreatorPay/internal/pkg/notify"
)

// DefaultLeaseTTL bounds how long one worker may hold an event.
const DefaultLeaseTTL = 30 * time.Second

// Locker serializes concurrent deliveries of the same event.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), acquired bool, err error)
}

// Invalidator drops cached read models after a write.
type Invalidator interface {
	InvalidateEntitlement(ctx context.Context, subscriberID string)
	InvalidateSummary(ctx context.Context, creatorID string)
}

// SessionFetcher reads checkout session state from the processor.
type SessionFetcher interface {
	FetchSession(ctx context.Context, sessionID string) (*checkout.SessionStatus, error)
}

// Reconciler applies verified payment events to entitlements and the ledger.
type Reconciler struct {
	repo       Repository
	dispatcher *Dispatcher
	catalog    *catalog.Catalog
	locker     Locker
	leaseTTL   time.Duration
	notifier   notify.Notifier
	metrics    *metrics.Metrics
	cache      Invalidator
	sessions   SessionFetcher
	now        func() time.Time
}

type Option func(*Reconciler)

func WithCatalog(c *catalog.Catalog) Option {
	return func(r *Reconciler) { r.catalog = c }
}

// WithLocker serializes deliveries of the same event through l.
func WithLocker(l Locker, ttl time.Duration) Option {
	return func(r *Reconciler) { r.locker, r.leaseTTL = l, ttl }
}

func WithNotifier(n notify.Notifier) Option {
	return func(r *Reconciler) { r.notifier = n }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Reconciler) { r.metrics = m }
}

func WithInvalidator(c Invalidator) Option {
	return func(r *Reconciler) { r.cache = c }
}

// WithSessionFetcher enables the synchronous checkout verification path.
func WithSessionFetcher(s SessionFetcher) Option {
	return func(r *Reconciler) { r.sessions = s }
}

func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// NewReconciler creates a reconciler from an injected repository.
func NewReconciler(repo Repository, opts ...Option) *Reconciler {
	r := &Reconciler{
		repo:     repo,
		catalog:  catalog.Default(),
		leaseTTL: DefaultLeaseTTL,
		notifier: notify.Nop,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.leaseTTL <= 0 {
		r.leaseTTL = DefaultLeaseTTL
	}

	d := NewDispatcher()
	d.Register(EventCheckoutCompleted, r.handleCheckoutCompleted)
	d.Register(EventSubscriptionUpdated, r.handleSubscriptionUpdated)
	d.Register(EventSubscriptionDeleted, r.handleSubscriptionCanceled)
	d.Register(EventInvoicePaid, r.handleInvoicePaid)
	d.Register(EventInvoicePaymentSucceded, r.handleInvoicePaid)
	d.Register(EventInvoicePaymentFailed, r.handleInvoicePaymentFailed)
	r.dispatcher = d
	return r
}

// NewReconcilerFromDB creates a reconciler from a GORM DB handle.
func NewReconcilerFromDB(db *gorm.DB, opts ...Option) *Reconciler {
	return NewReconciler(NewRepository(db), opts...)
}

func (r *Reconciler) Dispatcher() *Dispatcher {
	return r.dispatcher
}

// ProcessEvent applies ev at most once in effect. Redelivered events that
// already reached a terminal outcome return OutcomeDuplicate. Store failures
// leave the event claimable so a redelivery re-runs every idempotent step.
func (r *Reconciler) ProcessEvent(ctx context.Context, ev *Event) (outcome Outcome, err error) {
	start := r.now()
	defer func() {
		label := outcome
		if err != nil && label == "" {
			label = OutcomeFailed
		}
		r.metrics.ObserveEvent(ev.Type, string(label), time.Since(start))
	}()

	if !r.dispatcher.Handles(ev.Type) {
		return r.dispatcher.Dispatch(ctx, ev)
	}

	release, err := r.lease(ctx, "event:"+ev.ID)
	if err != nil {
		return "", err
	}
	defer release()

	rec, err := r.repo.ClaimEvent(ctx, &models.ProcessedEvent{
		Provider:       ProviderStripe,
		EventID:        ev.ID,
		EventType:      ev.Type,
		PayloadJSON:    string(ev.Raw),
		SignatureValid: true,
	})
	if err != nil {
		return "", storeErr("claim event", err)
	}
	if rec.IsTerminal() {
		log.Infof("[Billing] event %s (%s) already processed, skipping", ev.ID, ev.Type)
		return OutcomeDuplicate, nil
	}

	outcome, err = r.dispatcher.Dispatch(ctx, ev)
	switch {
	case err == nil:
		if merr := r.repo.MarkEventProcessed(ctx, rec.ID, ""); merr != nil {
			return "", storeErr("mark event processed", merr)
		}
		return outcome, nil
	case errors.Is(err, ErrMissingMetadata), errors.Is(err, ErrMalformedEvent):
		log.Errorf("[Billing] event %s (%s) rejected: %v", ev.ID, ev.Type, err)
		if merr := r.repo.MarkEventProcessed(ctx, rec.ID, err.Error()); merr != nil {
			log.Errorf("[Billing] failed to record rejection of %s: %v", ev.ID, merr)
		}
		return OutcomeRejected, err
	default:
		log.Errorf("[Billing] event %s (%s) failed, awaiting redelivery: %v", ev.ID, ev.Type, err)
		if merr := r.repo.MarkEventFailed(ctx, rec.ID, err.Error()); merr != nil {
			log.Errorf("[Billing] failed to record failure of %s: %v", ev.ID, merr)
		}
		return OutcomeFailed, err
	}
}

func (r *Reconciler) lease(ctx context.Context, key string) (func(), error) {
	if r.locker == nil {
		return func() {}, nil
	}
	release, ok, err := r.locker.Acquire(ctx, key, r.leaseTTL)
	if err != nil {
		// Ledger and entitlement writes stay idempotent without the lease.
		log.Warnf("[Billing] lease for %s unavailable, continuing without it: %v", key, err)
		return func() {}, nil
	}
	if !ok {
		return nil, ErrEventInFlight
	}
	return release, nil
}

func (r *Reconciler) notify(ctx context.Context, msg notify.Message) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.Notify(ctx, msg); err != nil {
		log.Errorf("[Billing] notification %s for %s failed: %v", msg.Type, msg.UserID, err)
	}
}

func (r *Reconciler) invalidateEntitlement(ctx context.Context, subscriberID string) {
	if r.cache != nil {
		r.cache.InvalidateEntitlement(ctx, subscriberID)
	}
}

func (r *Reconciler) invalidateSummary(ctx context.Context, creatorID string) {
	if r.cache != nil {
		r.cache.InvalidateSummary(ctx, creatorID)
	}
}

// Entitlement returns the stored entitlement or a free/inactive default.
func (r *Reconciler) Entitlement(ctx context.Context, subscriberID string) (*models.Entitlement, error) {
	e, err := r.repo.GetEntitlement(ctx, subscriberID)
	if errors.Is(err, ErrNotFound) {
		return &models.Entitlement{
			SubscriberID: subscriberID,
			Tier:         "free",
			Status:       models.EntitlementStatusInactive,
		}, nil
	}
	if err != nil {
		return nil, storeErr("get entitlement", err)
	}
	return e, nil
}

// Summary returns the creator's financial summary, zero-valued if none exists.
func (r *Reconciler) Summary(ctx context.Context, creatorID string) (*models.CreatorSummary, error) {
	s, err := r.repo.GetSummary(ctx, creatorID)
	if errors.Is(err, ErrNotFound) {
		return &models.CreatorSummary{CreatorID: creatorID}, nil
	}
	if err != nil {
		return nil, storeErr("get summary", err)
	}
	return s, nil
}

// Transactions lists ledger entries of an owner.
func (r *Reconciler) Transactions(ctx context.Context, filter TransactionFilter) ([]models.Transaction, error) {
	out, err := r.repo.ListTransactions(ctx, filter)
	if err != nil {
		return nil, storeErr("list transactions", err)
	}
	return out, nil
}
