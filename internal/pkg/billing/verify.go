package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ManuelReschke/CreatorPay/app/models"
	"github.com/ManuelReschke/CreatorPay/internal/pkg/checkout"
)

var ErrVerificationDisabled = errors.New("checkout verification is not configured")

// VerifyCheckout is the synchronous fallback for a delayed webhook. It applies
// the same entitlement change as checkout.session.completed under the same
// per-session claim, so whichever path runs second is a no-op.
func (r *Reconciler) VerifyCheckout(ctx context.Context, sessionID, subscriberID string) (*models.Entitlement, error) {
	if r.sessions == nil {
		return nil, ErrVerificationDisabled
	}
	st, err := r.sessions.FetchSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("fetch checkout session %s: %w", sessionID, err)
	}

	md := MetadataFrom(st.Metadata)
	if md.SubscriberID == "" || md.SubscriberID != subscriberID {
		return nil, ErrSessionMismatch
	}
	if !st.IsPaid() {
		return nil, ErrSessionNotPaid
	}
	if st.Mode == checkout.ModePayment {
		return r.Entitlement(ctx, subscriberID)
	}
	if t, ok := r.catalog.TierForPrice(st.PriceID); ok {
		md.Tier = string(t)
	}
	if err := md.Validate("checkout.verify"); err != nil {
		return nil, err
	}

	return r.applyCheckout(ctx, checkoutGrant{
		SessionID:      sessionID,
		Metadata:       md,
		CustomerID:     st.CustomerID,
		SubscriptionID: st.SubscriptionID,
		At:             time.Time{},
		Source:         "verify:" + sessionID,
	})
}
