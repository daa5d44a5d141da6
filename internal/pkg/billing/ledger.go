package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/CreatorPay/app/models"
	"github.com/ManuelReschke/CreatorPay/internal/pkg/commission"
)

// revenue is one settled payment to be distributed over the ledger.
type revenue struct {
	EventID      string
	SubscriberID string
	CreatorID    string
	Gross        int64
	Month        string
	Description  string
}

// creditFor maps a ledger entry to the summary counters it moves. Both the
// incremental path and Recompute go through it.
func creditFor(kind, ownerID string, amount int64, month string) SummaryCredit {
	c := SummaryCredit{CreatorID: ownerID, Month: month}
	switch {
	case kind == models.TransactionKindSubscriptionRevenue:
		c.Available, c.Total, c.Monthly, c.Direct = amount, amount, amount, amount
	case models.IsCommissionKind(kind):
		c.Available, c.Network = amount, amount
	case kind == models.TransactionKindPlatformRevenue:
		c.Available, c.Total, c.Monthly = amount, amount, amount
	}
	return c
}

// applyRevenue runs the distribution saga. Every step is an append keyed by
// (event, kind, owner) committed together with its summary increment, so a
// retry after a partial failure only performs the missing steps.
func (r *Reconciler) applyRevenue(ctx context.Context, in revenue) error {
	if in.Gross <= 0 {
		return nil
	}
	shares := commission.Split(in.Gross)

	if err := r.appendEntry(ctx, in, models.TransactionKindSubscriptionRevenue, in.CreatorID, 0, shares.Creator, in.Description); err != nil {
		return err
	}

	chain, err := r.referralChain(ctx, in.CreatorID)
	if err != nil {
		return err
	}
	res := commission.Calculate(in.Gross, chain)
	for _, p := range res.Payouts {
		if p.Amount == 0 {
			continue
		}
		desc := fmt.Sprintf("level %d commission from %s", p.Depth, in.CreatorID)
		if err := r.appendEntry(ctx, in, models.CommissionKind(p.Depth), p.Payee, p.Depth, p.Amount, desc); err != nil {
			return err
		}
		r.metrics.ObserveCommission(p.Depth)
	}

	profit := shares.Platform - res.Total
	if err := r.appendEntry(ctx, in, models.TransactionKindPlatformRevenue, models.PlatformOwnerID, 0, profit, "platform share of "+in.CreatorID); err != nil {
		return err
	}

	log.Infof("[Billing] event %s distributed %d: creator %s=%d commissions=%d platform=%d",
		in.EventID, in.Gross, in.CreatorID, shares.Creator, res.Total, profit)
	return nil
}

func (r *Reconciler) appendEntry(ctx context.Context, in revenue, kind, ownerID string, depth int, amount int64, desc string) error {
	entry := &models.Transaction{
		OwnerID:      ownerID,
		Kind:         kind,
		Depth:        depth,
		Amount:       amount,
		Gross:        in.Gross,
		RevenueMonth: in.Month,
		Description:  desc,
		SubscriberID: in.SubscriberID,
		EventID:      in.EventID,
		Status:       models.TransactionStatusCompleted,
		EntryKey:     models.TransactionEntryKey(in.EventID, kind, ownerID),
	}
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("%w: %s entry for %s: %v", ErrMalformedEvent, kind, ownerID, err)
	}
	created, err := r.repo.AppendTransaction(ctx, entry, creditFor(kind, ownerID, amount, in.Month))
	if err != nil {
		return storeErr("append "+kind, err)
	}
	r.metrics.ObserveLedgerEntry(kind, amount, created)
	if created {
		r.invalidateSummary(ctx, ownerID)
	}
	return nil
}

// referralChain returns the ancestors of creatorID, nearest first, for at most
// commission.MaxDepth levels. The walk ends at a root, at an inactive edge, at
// an ancestor without an edge of its own (still paid) or on a cycle.
func (r *Reconciler) referralChain(ctx context.Context, creatorID string) ([]string, error) {
	edge, err := r.repo.GetReferralEdge(ctx, creatorID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("get referral edge", err)
	}
	if !edge.Active {
		return nil, nil
	}

	seen := map[string]bool{creatorID: true}
	var chain []string
	for len(chain) < commission.MaxDepth {
		next, ok := edge.Referrer()
		if !ok {
			break
		}
		if seen[next] {
			log.Warnf("[Billing] referral cycle at %s while walking from %s", next, creatorID)
			break
		}
		ancestor, err := r.repo.GetReferralEdge(ctx, next)
		if errors.Is(err, ErrNotFound) {
			chain = append(chain, next)
			break
		}
		if err != nil {
			return nil, storeErr("get referral edge", err)
		}
		if !ancestor.Active {
			break
		}
		chain = append(chain, next)
		seen[next] = true
		edge = ancestor
	}
	return chain, nil
}

// Recompute rebuilds a summary from the completed ledger entries of creatorID.
func (r *Reconciler) Recompute(ctx context.Context, creatorID string) (*models.CreatorSummary, error) {
	txs, err := r.repo.ListTransactions(ctx, TransactionFilter{OwnerID: creatorID, Status: models.TransactionStatusCompleted})
	if err != nil {
		return nil, storeErr("list transactions", err)
	}

	month := r.now().UTC().Format("2006-01")
	s := &models.CreatorSummary{CreatorID: creatorID, RevenueMonth: month}
	for _, t := range txs {
		c := creditFor(t.Kind, t.OwnerID, t.Amount, t.RevenueMonth)
		s.AvailableBalance += c.Available
		s.TotalEarnings += c.Total
		s.DirectEarnings += c.Direct
		s.NetworkEarnings += c.Network
		if t.RevenueMonth == month {
			s.MonthlyRevenue += c.Monthly
		}
	}
	if err := r.repo.ReplaceSummary(ctx, s); err != nil {
		return nil, storeErr("replace summary", err)
	}
	r.invalidateSummary(ctx, creatorID)
	log.Infof("[Billing] recomputed summary for %s from %d entries", creatorID, len(txs))
	return s, nil
}

// AuditReport checks that the entries of one payment add up to its gross.
type AuditReport struct {
	EventID  string               `json:"event_id"`
	Gross    int64                `json:"gross"`
	Sum      int64                `json:"sum"`
	Entries  []models.Transaction `json:"entries"`
	Balanced bool                 `json:"balanced"`
	Problems []string             `json:"problems,omitempty"`
}

// Audit verifies the ledger entries written for eventID.
func (r *Reconciler) Audit(ctx context.Context, eventID string) (*AuditReport, error) {
	txs, err := r.repo.ListTransactions(ctx, TransactionFilter{EventID: eventID})
	if err != nil {
		return nil, storeErr("list transactions", err)
	}
	if len(txs) == 0 {
		return nil, ErrNotFound
	}

	rep := &AuditReport{EventID: eventID, Entries: txs, Gross: txs[0].Gross}
	var hasCreator, hasPlatform bool
	for _, t := range txs {
		rep.Sum += t.Amount
		if t.Gross != rep.Gross {
			rep.Problems = append(rep.Problems, fmt.Sprintf("entry %s records gross %d, expected %d", t.ID, t.Gross, rep.Gross))
		}
		switch t.Kind {
		case models.TransactionKindSubscriptionRevenue:
			hasCreator = true
		case models.TransactionKindPlatformRevenue:
			hasPlatform = true
		}
	}
	if !hasCreator {
		rep.Problems = append(rep.Problems, "creator revenue entry missing")
	}
	if !hasPlatform {
		rep.Problems = append(rep.Problems, "platform revenue entry missing")
	}
	if rep.Sum != rep.Gross {
		rep.Problems = append(rep.Problems, fmt.Sprintf("entries sum to %d, gross is %d", rep.Sum, rep.Gross))
	}
	rep.Balanced = len(rep.Problems) == 0
	return rep, nil
}
