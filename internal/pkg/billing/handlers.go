package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/stripe/stripe-go/v79"

	"github.com/ManuelReschke/CreatorPay/app/models"
	"github.com/ManuelReschke/CreatorPay/internal/pkg/entitlements"
	"github.com/ManuelReschke/CreatorPay/internal/pkg/notify"
)

func checkoutClaimKey(sessionID string) string {
	return "checkout_session:" + sessionID
}

func (r *Reconciler) eventMonth(ev *Event) string {
	at := ev.CreatedAt()
	if at.IsZero() {
		at = r.now().UTC()
	}
	return at.Format("2006-01")
}

// checkoutGrant is the entitlement change implied by a completed checkout,
// whichever path observed it first.
type checkoutGrant struct {
	SessionID      string
	Metadata       Metadata
	CustomerID     string
	SubscriptionID string
	At             time.Time
	Source         string
}

func (r *Reconciler) handleCheckoutCompleted(ctx context.Context, ev *Event) error {
	var s stripe.CheckoutSession
	if err := ev.Decode(&s); err != nil {
		return err
	}
	if s.ID == "" {
		return fmt.Errorf("%w: checkout session without id", ErrMalformedEvent)
	}
	md := MetadataFrom(s.Metadata)
	if err := md.Validate(ev.Type); err != nil {
		return err
	}

	if s.Mode == stripe.CheckoutSessionModePayment {
		return r.applyRevenue(ctx, revenue{
			EventID:      ev.ID,
			SubscriberID: md.SubscriberID,
			CreatorID:    md.CreatorID,
			Gross:        s.AmountTotal,
			Month:        r.eventMonth(ev),
			Description:  "service purchase " + md.ProductID,
		})
	}

	_, err := r.applyCheckout(ctx, checkoutGrant{
		SessionID:      s.ID,
		Metadata:       md,
		CustomerID:     customerID(s.Customer),
		SubscriptionID: subscriptionID(s.Subscription),
		At:             ev.CreatedAt(),
		Source:         ev.ID,
	})
	return err
}

func (r *Reconciler) applyCheckout(ctx context.Context, g checkoutGrant) (*models.Entitlement, error) {
	release, err := r.lease(ctx, checkoutClaimKey(g.SessionID))
	if err != nil {
		return nil, err
	}
	defer release()

	rec, err := r.repo.ClaimEvent(ctx, &models.ProcessedEvent{
		Provider:       ProviderStripe,
		EventID:        checkoutClaimKey(g.SessionID),
		EventType:      EventCheckoutCompleted,
		PayloadJSON:    g.Source,
		SignatureValid: true,
	})
	if err != nil {
		return nil, storeErr("claim checkout session", err)
	}
	if rec.IsTerminal() {
		return r.Entitlement(ctx, g.Metadata.SubscriberID)
	}

	tier := g.Metadata.TierValue()
	e, changed, err := r.repo.UpdateEntitlement(ctx, g.Metadata.SubscriberID, func(e *models.Entitlement, exists bool) (bool, error) {
		if exists && e.IsStale(g.At) {
			return false, nil
		}
		if exists && e.Status == models.EntitlementStatusCanceled &&
			g.SubscriptionID != "" && e.ProcessorSubscriptionID == g.SubscriptionID {
			return false, nil
		}
		e.CreatorID = g.Metadata.CreatorID
		e.Tier = string(tier)
		e.Status = models.EntitlementStatusActive
		if g.CustomerID != "" {
			e.ProcessorCustomerID = g.CustomerID
		}
		if g.SubscriptionID != "" {
			e.ProcessorSubscriptionID = g.SubscriptionID
		}
		e.Touch(g.At)
		entitlements.Normalize(e)
		return true, nil
	})
	if err != nil {
		return nil, storeErr("update entitlement", err)
	}
	if err := r.repo.MarkEventProcessed(ctx, rec.ID, ""); err != nil {
		return nil, storeErr("mark checkout session processed", err)
	}

	if changed {
		r.invalidateEntitlement(ctx, e.SubscriberID)
		log.Infof("[Billing] subscriber %s now %s/%s via checkout %s", e.SubscriberID, e.Tier, e.Status, g.SessionID)
		r.notify(ctx, notify.Message{
			UserID:      e.SubscriberID,
			Type:        models.NotificationTypeSubscriptionActive,
			Title:       "Subscription active",
			Content:     fmt.Sprintf("Your %s membership is now active.", e.Tier),
			ReferenceID: g.SessionID,
		})
	}
	return e, nil
}

// resolveSubscriber finds the subscriber an event refers to, from metadata or
// from the stored processor subscription id.
func (r *Reconciler) resolveSubscriber(ctx context.Context, eventType string, md *Metadata, subID string) error {
	if md.SubscriberID != "" && md.CreatorID != "" && md.Tier != "" {
		return nil
	}
	e, err := r.repo.FindEntitlementBySubscription(ctx, subID)
	if errors.Is(err, ErrNotFound) {
		if md.SubscriberID == "" {
			return missingMetadata(eventType, "SubscriberID")
		}
		return nil
	}
	if err != nil {
		return storeErr("find entitlement by subscription", err)
	}
	if md.SubscriberID == "" {
		md.SubscriberID = e.SubscriberID
	}
	if md.SubscriberID != e.SubscriberID {
		return nil
	}
	if md.CreatorID == "" {
		md.CreatorID = e.CreatorID
	}
	if md.Tier == "" && entitlements.NormalizeTier(e.Tier).IsPaid() {
		md.Tier = e.Tier
	}
	return nil
}

func (r *Reconciler) handleSubscriptionUpdated(ctx context.Context, ev *Event) error {
	var sub stripe.Subscription
	if err := ev.Decode(&sub); err != nil {
		return err
	}
	if sub.ID == "" {
		return fmt.Errorf("%w: subscription without id", ErrMalformedEvent)
	}
	md := MetadataFrom(sub.Metadata)
	if t, ok := r.catalog.TierForPrice(SubscriptionPriceID(&sub)); ok && md.Tier == "" {
		md.Tier = string(t)
	}
	if err := r.resolveSubscriber(ctx, ev.Type, &md, sub.ID); err != nil {
		return err
	}
	tier, tierKnown := entitlements.ParseTier(md.Tier)
	status := entitlements.NormalizeStatus(string(sub.Status))
	at := ev.CreatedAt()

	e, changed, err := r.repo.UpdateEntitlement(ctx, md.SubscriberID, func(e *models.Entitlement, exists bool) (bool, error) {
		if exists && e.IsStale(at) {
			log.Infof("[Billing] skipping stale %s for %s", ev.Type, e.SubscriberID)
			return false, nil
		}
		if !exists && !tierKnown {
			return false, missingMetadata(ev.Type, "Tier")
		}
		if tierKnown {
			e.Tier = string(tier)
		}
		if md.CreatorID != "" {
			e.CreatorID = md.CreatorID
		}
		e.Status = status
		if c := customerID(sub.Customer); c != "" {
			e.ProcessorCustomerID = c
		}
		e.ProcessorSubscriptionID = sub.ID
		e.Touch(at)
		entitlements.Normalize(e)
		return true, nil
	})
	if err != nil {
		return storeErr("update entitlement", err)
	}
	if changed {
		r.invalidateEntitlement(ctx, e.SubscriberID)
	}
	return nil
}

func (r *Reconciler) handleSubscriptionCanceled(ctx context.Context, ev *Event) error {
	var sub stripe.Subscription
	if err := ev.Decode(&sub); err != nil {
		return err
	}
	if sub.ID == "" {
		return fmt.Errorf("%w: subscription without id", ErrMalformedEvent)
	}
	md := MetadataFrom(sub.Metadata)
	if err := r.resolveSubscriber(ctx, ev.Type, &md, sub.ID); err != nil {
		return err
	}
	at := ev.CreatedAt()

	var previous string
	e, changed, err := r.repo.UpdateEntitlement(ctx, md.SubscriberID, func(e *models.Entitlement, exists bool) (bool, error) {
		// A newer subscription replaced this one; its cancellation must not revoke access.
		if exists && e.ProcessorSubscriptionID != "" && e.ProcessorSubscriptionID != sub.ID {
			return false, nil
		}
		previous = e.Tier
		if md.CreatorID != "" && e.CreatorID == "" {
			e.CreatorID = md.CreatorID
		}
		e.Tier = string(entitlements.TierFree)
		e.Status = models.EntitlementStatusCanceled
		e.ProcessorSubscriptionID = sub.ID
		if c := customerID(sub.Customer); c != "" {
			e.ProcessorCustomerID = c
		}
		e.Touch(at)
		entitlements.Normalize(e)
		return true, nil
	})
	if err != nil {
		return storeErr("update entitlement", err)
	}
	if !changed {
		log.Infof("[Billing] cancellation of %s does not match current subscription of %s", sub.ID, md.SubscriberID)
		return nil
	}

	r.invalidateEntitlement(ctx, e.SubscriberID)
	r.notify(ctx, notify.Message{
		UserID:      e.SubscriberID,
		Type:        models.NotificationTypeDowngrade,
		Title:       "Subscription canceled",
		Content:     fmt.Sprintf("Your %s membership ended. You now have free access.", entitlements.NormalizeTier(previous)),
		ReferenceID: sub.ID,
	})
	return nil
}

func (r *Reconciler) handleInvoicePaid(ctx context.Context, ev *Event) error {
	var inv stripe.Invoice
	if err := ev.Decode(&inv); err != nil {
		return err
	}
	if inv.ID == "" {
		return fmt.Errorf("%w: invoice without id", ErrMalformedEvent)
	}
	md := InvoiceMetadata(ev, &inv)
	subID := InvoiceSubscriptionID(ev, &inv)
	if t, ok := r.catalog.TierForPrice(InvoicePriceID(&inv)); ok && md.Tier == "" {
		md.Tier = string(t)
	}
	if err := r.resolveSubscriber(ctx, ev.Type, &md, subID); err != nil {
		return err
	}
	if err := md.Validate(ev.Type); err != nil {
		return err
	}

	if inv.AmountPaid > 0 {
		if err := r.applyRevenue(ctx, revenue{
			EventID:      ev.ID,
			SubscriberID: md.SubscriberID,
			CreatorID:    md.CreatorID,
			Gross:        inv.AmountPaid,
			Month:        r.eventMonth(ev),
			Description:  fmt.Sprintf("%s membership invoice %s", md.TierValue(), inv.ID),
		}); err != nil {
			return err
		}
	}

	at := ev.CreatedAt()
	tier := md.TierValue()
	e, changed, err := r.repo.UpdateEntitlement(ctx, md.SubscriberID, func(e *models.Entitlement, exists bool) (bool, error) {
		if exists && e.IsStale(at) {
			return false, nil
		}
		reactivate := !exists ||
			e.Status == models.EntitlementStatusPastDue ||
			e.Status == models.EntitlementStatusInactive ||
			(e.Status == models.EntitlementStatusCanceled && subID != "" && subID != e.ProcessorSubscriptionID)
		if reactivate {
			e.Status = models.EntitlementStatusActive
		}
		if e.Status == models.EntitlementStatusActive {
			e.Tier = string(tier)
		}
		e.CreatorID = md.CreatorID
		if subID != "" {
			e.ProcessorSubscriptionID = subID
		}
		if c := customerID(inv.Customer); c != "" {
			e.ProcessorCustomerID = c
		}
		e.Touch(at)
		entitlements.Normalize(e)
		return true, nil
	})
	if err != nil {
		return storeErr("update entitlement", err)
	}
	if changed {
		r.invalidateEntitlement(ctx, e.SubscriberID)
	}
	return nil
}

func (r *Reconciler) handleInvoicePaymentFailed(ctx context.Context, ev *Event) error {
	var inv stripe.Invoice
	if err := ev.Decode(&inv); err != nil {
		return err
	}
	if inv.ID == "" {
		return fmt.Errorf("%w: invoice without id", ErrMalformedEvent)
	}
	md := InvoiceMetadata(ev, &inv)
	subID := InvoiceSubscriptionID(ev, &inv)
	if err := r.resolveSubscriber(ctx, ev.Type, &md, subID); err != nil {
		return err
	}
	at := ev.CreatedAt()

	e, changed, err := r.repo.UpdateEntitlement(ctx, md.SubscriberID, func(e *models.Entitlement, exists bool) (bool, error) {
		if !exists || e.IsStale(at) {
			return false, nil
		}
		if e.Status != models.EntitlementStatusActive {
			return false, nil
		}
		e.Status = models.EntitlementStatusPastDue
		e.Touch(at)
		entitlements.Normalize(e)
		return true, nil
	})
	if err != nil {
		return storeErr("update entitlement", err)
	}
	if changed {
		r.invalidateEntitlement(ctx, e.SubscriberID)
	}

	r.notify(ctx, notify.Message{
		UserID:      md.SubscriberID,
		Type:        models.NotificationTypePaymentFailed,
		Title:       "Payment failed",
		Content:     "We could not charge your payment method. Please update it to keep your membership.",
		ReferenceID: inv.ID,
	})
	return nil
}
