package billing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stripe/stripe-go/v79"

	"github.com/ManuelReschke/CreatorPay/internal/pkg/entitlements"
)

const ProviderStripe = "stripe"

const (
	EventCheckoutCompleted      = "checkout.session.completed"
	EventSubscriptionUpdated    = "customer.subscription.updated"
	EventSubscriptionDeleted    = "customer.subscription.deleted"
	EventInvoicePaid            = "invoice.paid"
	EventInvoicePaymentSucceded = "invoice.payment_succeeded"
	EventInvoicePaymentFailed   = "invoice.payment_failed"
)

// Event is a verified processor event envelope. Object holds the raw nested
// resource which handlers decode into the matching processor type.
type Event struct {
	ID       string    `json:"id"`
	Type     string    `json:"type"`
	Created  int64     `json:"created"`
	Livemode bool      `json:"livemode"`
	Data     EventData `json:"data"`

	Raw []byte `json:"-"`
}

type EventData struct {
	Object json.RawMessage `json:"object"`
}

// CreatedAt returns the processor-side creation time of the event.
func (e *Event) CreatedAt() time.Time {
	if e.Created <= 0 {
		return time.Time{}
	}
	return time.Unix(e.Created, 0).UTC()
}

// Decode unmarshals the nested object into v.
func (e *Event) Decode(v interface{}) error {
	if err := json.Unmarshal(e.Data.Object, v); err != nil {
		return fmt.Errorf("%w: %s object: %v", ErrMalformedEvent, e.Type, err)
	}
	return nil
}

// ParseEvent decodes an event envelope and checks the fields every handler
// relies on.
func ParseEvent(payload []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	var missing []string
	if strings.TrimSpace(ev.ID) == "" {
		missing = append(missing, "id")
	}
	if strings.TrimSpace(ev.Type) == "" {
		missing = append(missing, "type")
	}
	obj := bytes.TrimSpace(ev.Data.Object)
	if len(obj) == 0 || obj[0] != '{' {
		missing = append(missing, "data.object")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrMalformedEvent, strings.Join(missing, ", "))
	}
	ev.Raw = payload
	return &ev, nil
}

// Metadata is the typed metadata bag attached to checkout sessions,
// subscriptions and invoices.
type Metadata struct {
	SubscriberID string `validate:"required"`
	CreatorID    string `validate:"required"`
	Tier         string `validate:"required,tier"`
	ProductID    string
}

var metadataValidator = newMetadataValidator()

func newMetadataValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("tier", func(fl validator.FieldLevel) bool {
		_, ok := entitlements.ParseTier(fl.Field().String())
		return ok
	})
	return v
}

var metadataKeys = map[string][]string{
	"subscriber": {"subscriberId", "subscriber_id", "userId", "user_id"},
	"creator":    {"creatorId", "creator_id"},
	"tier":       {"tier"},
	"product":    {"productId", "product_id"},
}

func pick(bags []map[string]string, keys []string) string {
	for _, bag := range bags {
		for _, k := range keys {
			if v := strings.TrimSpace(bag[k]); v != "" {
				return v
			}
		}
	}
	return ""
}

// MetadataFrom merges metadata bags; earlier bags win.
func MetadataFrom(bags ...map[string]string) Metadata {
	return Metadata{
		SubscriberID: pick(bags, metadataKeys["subscriber"]),
		CreatorID:    pick(bags, metadataKeys["creator"]),
		Tier:         strings.ToLower(pick(bags, metadataKeys["tier"])),
		ProductID:    pick(bags, metadataKeys["product"]),
	}
}

// Validate returns ErrMissingMetadata naming the absent or invalid fields.
func (m Metadata) Validate(eventType string) error {
	err := metadataValidator.Struct(m)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("%w: %s: %v", ErrMissingMetadata, eventType, err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return missingMetadata(eventType, fields...)
}

// TierValue returns the parsed tier, free when absent.
func (m Metadata) TierValue() entitlements.Tier {
	return entitlements.NormalizeTier(m.Tier)
}

type invoiceParent struct {
	Parent *struct {
		SubscriptionDetails *struct {
			Metadata     map[string]string `json:"metadata"`
			Subscription string            `json:"subscription"`
		} `json:"subscription_details"`
	} `json:"parent"`
}

// InvoiceMetadata collects metadata from the invoice itself, its subscription
// details (both the legacy and the parent-scoped shape) and the first line item.
func InvoiceMetadata(ev *Event, inv *stripe.Invoice) Metadata {
	var bags []map[string]string
	bags = append(bags, inv.Metadata)
	if inv.SubscriptionDetails != nil {
		bags = append(bags, inv.SubscriptionDetails.Metadata)
	}
	var p invoiceParent
	if err := json.Unmarshal(ev.Data.Object, &p); err == nil && p.Parent != nil && p.Parent.SubscriptionDetails != nil {
		bags = append(bags, p.Parent.SubscriptionDetails.Metadata)
	}
	if inv.Lines != nil {
		for _, line := range inv.Lines.Data {
			if line != nil && len(line.Metadata) > 0 {
				bags = append(bags, line.Metadata)
				break
			}
		}
	}
	return MetadataFrom(bags...)
}

// InvoiceSubscriptionID returns the subscription the invoice belongs to.
func InvoiceSubscriptionID(ev *Event, inv *stripe.Invoice) string {
	if inv.Subscription != nil && inv.Subscription.ID != "" {
		return inv.Subscription.ID
	}
	var p invoiceParent
	if err := json.Unmarshal(ev.Data.Object, &p); err == nil && p.Parent != nil && p.Parent.SubscriptionDetails != nil {
		return p.Parent.SubscriptionDetails.Subscription
	}
	return ""
}

// InvoicePriceID returns the price of the first priced line item.
func InvoicePriceID(inv *stripe.Invoice) string {
	if inv.Lines == nil {
		return ""
	}
	for _, line := range inv.Lines.Data {
		if line != nil && line.Price != nil && line.Price.ID != "" {
			return line.Price.ID
		}
	}
	return ""
}

// SubscriptionPriceID returns the price of the first subscription item.
func SubscriptionPriceID(sub *stripe.Subscription) string {
	if sub.Items == nil {
		return ""
	}
	for _, item := range sub.Items.Data {
		if item != nil && item.Price != nil && item.Price.ID != "" {
			return item.Price.ID
		}
	}
	return ""
}

func customerID(c *stripe.Customer) string {
	if c == nil {
		return ""
	}
	return c.ID
}

func subscriptionID(s *stripe.Subscription) string {
	if s == nil {
		return ""
	}
	return s.ID
}
