// Package checkout builds processor checkout sessions for tier subscriptions
// and one-off service purchases. It never writes local state; entitlements and
// ledger entries follow from the processor's events.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/CreatorPay/internal/pkg/catalog"
	"github.com/ManuelReschke/CreatorPay/internal/pkg/entitlements"
)

const (
	ModeSubscription = "subscription"
	ModePayment      = "payment"
)

var (
	ErrUnknownProduct = catalog.ErrUnknownProduct
	ErrInvalidRequest = errors.New("invalid checkout request")
)

// Request asks for a checkout of either a tier or a service product.
type Request struct {
	SubscriberID string `json:"subscriberId" validate:"required"`
	CreatorID    string `json:"creatorId" validate:"required"`
	Tier         string `json:"tier" validate:"required_without=ProductID"`
	ProductID    string `json:"productId" validate:"required_without=Tier"`
}

// Session is what the payer's client needs to mount the embedded checkout.
type Session struct {
	ID           string `json:"sessionId"`
	ClientSecret string `json:"checkoutClientSecret"`
}

type SessionParams struct {
	Mode              string
	PriceID           string
	Quantity          int64
	ReturnURL         string
	ClientReferenceID string
	Metadata          map[string]string
}

// SessionStatus is the processor-side state of a checkout session.
type SessionStatus struct {
	ID             string
	Mode           string
	Status         string
	PaymentStatus  string
	CustomerID     string
	SubscriptionID string
	PriceID        string
	AmountTotal    int64
	Currency       string
	Metadata       map[string]string
}

// IsPaid reports whether the session completed with a settled payment.
func (s *SessionStatus) IsPaid() bool {
	if s == nil || s.Status != "complete" {
		return false
	}
	return s.PaymentStatus == "paid" || s.PaymentStatus == "no_payment_required"
}

// Gateway is the processor API used by the builder and the verification path.
type Gateway interface {
	CreateSession(ctx context.Context, params SessionParams) (*Session, error)
	FetchSession(ctx context.Context, sessionID string) (*SessionStatus, error)
}

type Builder struct {
	catalog   *catalog.Catalog
	gateway   Gateway
	returnURL string
	validate  *validator.Validate
}

// NewBuilder creates a builder. returnURL receives the session id as the
// session_id query parameter.
func NewBuilder(cat *catalog.Catalog, gateway Gateway, returnURL string) *Builder {
	return &Builder{
		catalog:   cat,
		gateway:   gateway,
		returnURL: returnURL,
		validate:  validator.New(),
	}
}

func (b *Builder) resolve(req Request) (catalog.Product, error) {
	if req.ProductID != "" {
		return b.catalog.Lookup(req.ProductID)
	}
	tier, ok := entitlements.ParseTier(req.Tier)
	if !ok {
		return catalog.Product{}, ErrUnknownProduct
	}
	return b.catalog.ForTier(tier)
}

// Params resolves req into the session request sent to the processor.
func (b *Builder) Params(req Request) (SessionParams, error) {
	if err := b.validate.Struct(req); err != nil {
		return SessionParams{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	product, err := b.resolve(req)
	if err != nil {
		return SessionParams{}, err
	}
	if product.PriceID == "" {
		return SessionParams{}, ErrUnknownProduct
	}

	mode := ModePayment
	tier := entitlements.TierFree
	if product.IsSubscription() {
		mode = ModeSubscription
		tier = product.Tier
	}

	return SessionParams{
		Mode:              mode,
		PriceID:           product.PriceID,
		Quantity:          1,
		ReturnURL:         b.buildReturnURL(),
		ClientReferenceID: req.SubscriberID,
		Metadata: map[string]string{
			"subscriberId": req.SubscriberID,
			"creatorId":    req.CreatorID,
			"tier":         string(tier),
			"productId":    product.ID,
		},
	}, nil
}

func (b *Builder) buildReturnURL() string {
	base := strings.TrimSpace(b.returnURL)
	if base == "" {
		return ""
	}
	sep := "?"
	if u, err := url.Parse(base); err == nil && u.RawQuery != "" {
		sep = "&"
	}
	// The placeholder is substituted by the processor and must stay unescaped.
	return base + sep + "session_id={CHECKOUT_SESSION_ID}"
}

// Create builds and submits a checkout session.
func (b *Builder) Create(ctx context.Context, req Request) (*Session, error) {
	params, err := b.Params(req)
	if err != nil {
		return nil, err
	}
	session, err := b.gateway.CreateSession(ctx, params)
	if err != nil {
		log.Errorf("[Checkout] creating session for subscriber %s failed: %v", req.SubscriberID, err)
		return nil, err
	}
	log.Infof("[Checkout] created %s session %s for subscriber %s", params.Mode, session.ID, req.SubscriberID)
	return session, nil
}

// Fetch returns the processor-side state of a session.
func (b *Builder) Fetch(ctx context.Context, sessionID string) (*SessionStatus, error) {
	return b.gateway.FetchSession(ctx, sessionID)
}
