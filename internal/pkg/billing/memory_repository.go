package billing

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ManuelReschke/CreatorPay/app/models"
)

// MemoryRepository is an in-process Repository used by tests and local
// tooling. It mirrors the uniqueness and increment semantics of the SQL store.
type MemoryRepository struct {
	mu           sync.Mutex
	events       map[string]*models.ProcessedEvent
	nextEventID  uint
	entitlements map[string]models.Entitlement
	transactions []models.Transaction
	entryKeys    map[string]struct{}
	summaries    map[string]models.CreatorSummary
	edges        map[string]models.ReferralEdge
	writes       int
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		events:       make(map[string]*models.ProcessedEvent),
		entitlements: make(map[string]models.Entitlement),
		entryKeys:    make(map[string]struct{}),
		summaries:    make(map[string]models.CreatorSummary),
		edges:        make(map[string]models.ReferralEdge),
	}
}

// Writes returns the number of mutating calls that reached the store.
func (m *MemoryRepository) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// AddReferralEdge stores an edge, as the signup flow would.
func (m *MemoryRepository) AddReferralEdge(edge models.ReferralEdge) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edges[edge.CreatorID] = edge
}

// PutEntitlement seeds an entitlement record.
func (m *MemoryRepository) PutEntitlement(e models.Entitlement) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entitlements[e.SubscriberID] = e
}

func eventKey(provider, eventID string) string {
	return provider + "|" + eventID
}

func (m *MemoryRepository) ClaimEvent(ctx context.Context, event *models.ProcessedEvent) (*models.ProcessedEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	key := eventKey(event.Provider, event.EventID)
	stored, ok := m.events[key]
	if !ok {
		m.nextEventID++
		cp := *event
		cp.ID = m.nextEventID
		cp.CreatedAt = time.Now()
		stored = &cp
		m.events[key] = stored
	}
	stored.Attempts++
	out := *stored
	return &out, nil
}

func (m *MemoryRepository) GetEvent(ctx context.Context, provider, eventID string) (*models.ProcessedEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.events[eventKey(provider, eventID)]
	if !ok {
		return nil, ErrNotFound
	}
	out := *stored
	return &out, nil
}

func (m *MemoryRepository) findEvent(id uint) *models.ProcessedEvent {
	for _, e := range m.events {
		if e.ID == id {
			return e
		}
	}
	return nil
}

func (m *MemoryRepository) MarkEventProcessed(ctx context.Context, id uint, processingError string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if e := m.findEvent(id); e != nil {
		now := time.Now()
		e.ProcessedAt = &now
		e.ProcessingError = processingError
	}
	return nil
}

func (m *MemoryRepository) MarkEventFailed(ctx context.Context, id uint, processingError string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if e := m.findEvent(id); e != nil && e.ProcessedAt == nil {
		e.ProcessingError = processingError
	}
	return nil
}

func (m *MemoryRepository) GetEntitlement(ctx context.Context, subscriberID string) (*models.Entitlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entitlements[subscriberID]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (m *MemoryRepository) FindEntitlementBySubscription(ctx context.Context, subscriptionID string) (*models.Entitlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if subscriptionID == "" {
		return nil, ErrNotFound
	}
	for _, e := range m.entitlements {
		if e.ProcessorSubscriptionID == subscriptionID {
			return &e, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryRepository) UpdateEntitlement(ctx context.Context, subscriberID string, fn EntitlementMutator) (*models.Entitlement, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, exists := m.entitlements[subscriberID]
	if !exists {
		e = models.Entitlement{SubscriberID: subscriberID}
	}
	changed, err := fn(&e, exists)
	if err != nil {
		return nil, false, err
	}
	if changed {
		m.writes++
		now := time.Now()
		if !exists {
			e.CreatedAt = now
		}
		e.SubscriberID = subscriberID
		e.UpdatedAt = now
		m.entitlements[subscriberID] = e
	}
	return &e, changed, nil
}

func (m *MemoryRepository) AppendTransaction(ctx context.Context, entry *models.Transaction, credit SummaryCredit) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry.EntryKey == "" {
		entry.EntryKey = models.TransactionEntryKey(entry.EventID, entry.Kind, entry.OwnerID)
	}
	if _, dup := m.entryKeys[entry.EntryKey]; dup {
		return false, nil
	}
	m.writes++
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Status == "" {
		entry.Status = models.TransactionStatusCompleted
	}
	entry.CreatedAt = time.Now()
	m.entryKeys[entry.EntryKey] = struct{}{}
	m.transactions = append(m.transactions, *entry)

	if credit.CreatorID == "" || credit.IsZero() {
		return true, nil
	}
	s, ok := m.summaries[credit.CreatorID]
	if !ok {
		s = models.CreatorSummary{CreatorID: credit.CreatorID, RevenueMonth: credit.Month}
	}
	s.AvailableBalance += credit.Available
	s.TotalEarnings += credit.Total
	s.DirectEarnings += credit.Direct
	s.NetworkEarnings += credit.Network
	switch {
	case s.RevenueMonth == credit.Month:
		s.MonthlyRevenue += credit.Monthly
	case s.RevenueMonth < credit.Month:
		s.MonthlyRevenue = credit.Monthly
		s.RevenueMonth = credit.Month
	}
	s.UpdatedAt = time.Now()
	m.summaries[credit.CreatorID] = s
	return true, nil
}

func (m *MemoryRepository) ListTransactions(ctx context.Context, filter TransactionFilter) ([]models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Transaction
	for _, t := range m.transactions {
		if filter.OwnerID != "" && t.OwnerID != filter.OwnerID {
			continue
		}
		if filter.EventID != "" && t.EventID != filter.EventID {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.Month != "" && t.RevenueMonth != filter.Month {
			continue
		}
		out = append(out, t)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryRepository) GetSummary(ctx context.Context, creatorID string) (*models.CreatorSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.summaries[creatorID]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *MemoryRepository) ReplaceSummary(ctx context.Context, summary *models.CreatorSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	s := *summary
	s.UpdatedAt = time.Now()
	m.summaries[summary.CreatorID] = s
	return nil
}

func (m *MemoryRepository) GetReferralEdge(ctx context.Context, creatorID string) (*models.ReferralEdge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.edges[creatorID]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}
