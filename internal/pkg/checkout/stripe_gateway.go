package checkout

import (
	"context"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

// StripeGateway talks to the Stripe Checkout Sessions API.
type StripeGateway struct {
	api *client.API
}

func NewStripeGateway(secretKey string, backends *stripe.Backends) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, backends)
	return &StripeGateway{api: api}
}

func (g *StripeGateway) CreateSession(ctx context.Context, p SessionParams) (*Session, error) {
	quantity := p.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	params := &stripe.CheckoutSessionParams{
		UIMode: stripe.String("embedded"),
		Mode:   stripe.String(p.Mode),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(p.PriceID), Quantity: stripe.Int64(quantity)},
		},
		ReturnURL: stripe.String(p.ReturnURL),
	}
	if p.ClientReferenceID != "" {
		params.ClientReferenceID = stripe.String(p.ClientReferenceID)
	}
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}
	if p.Mode == ModeSubscription {
		params.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{Metadata: p.Metadata}
	} else {
		params.PaymentIntentData = &stripe.CheckoutSessionPaymentIntentDataParams{Metadata: p.Metadata}
	}
	params.Context = ctx

	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, err
	}
	return &Session{ID: s.ID, ClientSecret: s.ClientSecret}, nil
}

func (g *StripeGateway) FetchSession(ctx context.Context, sessionID string) (*SessionStatus, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("line_items")

	s, err := g.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return nil, err
	}
	status := &SessionStatus{
		ID:            s.ID,
		Mode:          string(s.Mode),
		Status:        string(s.Status),
		PaymentStatus: string(s.PaymentStatus),
		AmountTotal:   s.AmountTotal,
		Currency:      string(s.Currency),
		Metadata:      s.Metadata,
	}
	if s.Customer != nil {
		status.CustomerID = s.Customer.ID
	}
	if s.Subscription != nil {
		status.SubscriptionID = s.Subscription.ID
	}
	if s.LineItems != nil {
		for _, li := range s.LineItems.Data {
			if li != nil && li.Price != nil {
				status.PriceID = li.Price.ID
				break
			}
		}
	}
	return status, nil
}
