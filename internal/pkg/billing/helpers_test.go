package billing

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/CreatorPay/app/models"
	"github.com/ManuelReschke/CreatorPay/internal/pkg/catalog"
	"github.com/ManuelReschke/CreatorPay/internal/pkg/entitlements"
	"github.com/ManuelReschke/CreatorPay/internal/pkg/notify"
)

const testSecret = "whsec_test_secret"

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func testCatalog() *catalog.Catalog {
	return catalog.New(
		catalog.Product{ID: "bronze", Kind: catalog.KindSubscription, Tier: entitlements.TierBronze, PriceID: "price_bronze", Amount: 990},
		catalog.Product{ID: "silver", Kind: catalog.KindSubscription, Tier: entitlements.TierSilver, PriceID: "price_silver", Amount: 1990},
		catalog.Product{ID: "gold", Kind: catalog.KindSubscription, Tier: entitlements.TierGold, PriceID: "price_gold", Amount: 3990},
		catalog.Product{ID: "platinum", Kind: catalog.KindSubscription, Tier: entitlements.TierPlatinum, PriceID: "price_platinum", Amount: 7990},
		catalog.Product{ID: "shoutout", Kind: catalog.KindService, PriceID: "price_shoutout", Amount: 1500},
	)
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []notify.Message
}

func (n *recordingNotifier) Notify(ctx context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
	return nil
}

func (n *recordingNotifier) ofType(typ string) []notify.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notify.Message
	for _, m := range n.messages {
		if m.Type == typ {
			out = append(out, m)
		}
	}
	return out
}

type fixture struct {
	repo     *MemoryRepository
	notifier *recordingNotifier
	rec      *Reconciler
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{repo: NewMemoryRepository(), notifier: &recordingNotifier{}}
	base := []Option{
		WithCatalog(testCatalog()),
		WithNotifier(f.notifier),
		WithClock(func() time.Time { return testNow }),
	}
	f.rec = NewReconciler(f.repo, append(base, opts...)...)
	return f
}

// event builds a parsed event as the verifier would return it.
func event(t *testing.T, id, typ string, created time.Time, object interface{}) *Event {
	t.Helper()
	obj, err := json.Marshal(object)
	require.NoError(t, err)
	payload, err := json.Marshal(map[string]interface{}{
		"id":      id,
		"object":  "event",
		"type":    typ,
		"created": created.Unix(),
		"data":    map[string]json.RawMessage{"object": obj},
	})
	require.NoError(t, err)
	ev, err := ParseEvent(payload)
	require.NoError(t, err)
	return ev
}

func meta(subscriber, creator, tier string) map[string]string {
	m := map[string]string{}
	if subscriber != "" {
		m["subscriberId"] = subscriber
	}
	if creator != "" {
		m["creatorId"] = creator
	}
	if tier != "" {
		m["tier"] = tier
	}
	return m
}

func checkoutObject(sessionID, mode string, md map[string]string, amount int64) map[string]interface{} {
	return map[string]interface{}{
		"id":             sessionID,
		"object":         "checkout.session",
		"mode":           mode,
		"status":         "complete",
		"payment_status": "paid",
		"customer":       "cus_" + sessionID,
		"subscription":   "sub_" + sessionID,
		"amount_total":   amount,
		"metadata":       md,
	}
}

func subscriptionObject(subID, status string, md map[string]string) map[string]interface{} {
	return map[string]interface{}{
		"id":       subID,
		"object":   "subscription",
		"status":   status,
		"customer": "cus_1",
		"metadata": md,
	}
}

func invoiceObject(invoiceID, subID string, amount int64, md map[string]string) map[string]interface{} {
	return map[string]interface{}{
		"id":           invoiceID,
		"object":       "invoice",
		"customer":     "cus_1",
		"subscription": subID,
		"amount_paid":  amount,
		"subscription_details": map[string]interface{}{
			"metadata": md,
		},
	}
}

func edge(creator, referredBy string, active bool) models.ReferralEdge {
	e := models.ReferralEdge{CreatorID: creator, ReferralCode: "code_" + creator, Active: active}
	if referredBy != "" {
		ref := referredBy
		e.ReferredBy = &ref
	}
	return e
}

func ledgerByOwner(t *testing.T, repo Repository, eventID string) map[string]models.Transaction {
	t.Helper()
	txs, err := repo.ListTransactions(context.Background(), TransactionFilter{EventID: eventID})
	require.NoError(t, err)
	out := make(map[string]models.Transaction, len(txs))
	for _, tx := range txs {
		_, dup := out[tx.OwnerID]
		require.False(t, dup, "duplicate ledger entry for %s", tx.OwnerID)
		out[tx.OwnerID] = tx
	}
	return out
}

// flakyRepository fails selected ledger appends once to simulate a store
// outage in the middle of the distribution saga.
type flakyRepository struct {
	Repository
	mu       sync.Mutex
	failKind map[string]bool
}

var errFlaky = errors.New("connection reset by peer")

func (f *flakyRepository) AppendTransaction(ctx context.Context, entry *models.Transaction, credit SummaryCredit) (bool, error) {
	f.mu.Lock()
	fail := f.failKind[entry.Kind]
	delete(f.failKind, entry.Kind)
	f.mu.Unlock()
	if fail {
		return false, errFlaky
	}
	return f.Repository.AppendTransaction(ctx, entry, credit)
}

type fakeLocker struct {
	mu   sync.Mutex
	held map[string]bool
	err  error
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: map[string]bool{}}
}

func (l *fakeLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	if l.err != nil {
		return nil, false, l.err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, false, nil
	}
	l.held[key] = true
	return func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}, true, nil
}
