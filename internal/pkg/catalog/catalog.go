package catalog

import (
	"errors"
	"sort"
	"strings"

	"github.com/ManuelReschke/CreatorPay/internal/pkg/entitlements"
	"github.com/ManuelReschke/CreatorPay/internal/pkg/env"
)

const (
	KindSubscription = "subscription"
	KindService      = "service"
)

var ErrUnknownProduct = errors.New("unknown product")

// Product is a purchasable item. Amount is in minor units.
type Product struct {
	ID       string
	Name     string
	Kind     string
	Tier     entitlements.Tier
	PriceID  string
	Amount   int64
	Currency string
}

// IsSubscription reports whether checkout should create a recurring subscription.
func (p Product) IsSubscription() bool {
	return p.Kind == KindSubscription
}

// Catalog is the centralized price and tier table.
type Catalog struct {
	byID    map[string]Product
	byPrice map[string]Product
}

// Default returns the built-in catalog with price ids overridable through
// STRIPE_PRICE_<TIER> and STRIPE_PRICE_PRODUCT_<ID>.
func Default() *Catalog {
	products := []Product{
		{ID: "bronze", Name: "Bronze membership", Kind: KindSubscription, Tier: entitlements.TierBronze, Amount: 990},
		{ID: "silver", Name: "Silver membership", Kind: KindSubscription, Tier: entitlements.TierSilver, Amount: 1990},
		{ID: "gold", Name: "Gold membership", Kind: KindSubscription, Tier: entitlements.TierGold, Amount: 3990},
		{ID: "platinum", Name: "Platinum membership", Kind: KindSubscription, Tier: entitlements.TierPlatinum, Amount: 7990},
		{ID: "shoutout", Name: "Personal shoutout", Kind: KindService, Amount: 1500},
		{ID: "consultation", Name: "1:1 consultation", Kind: KindService, Amount: 4900},
	}
	for i := range products {
		p := &products[i]
		p.Currency = "usd"
		key := "STRIPE_PRICE_PRODUCT_" + strings.ToUpper(p.ID)
		if p.IsSubscription() {
			key = "STRIPE_PRICE_" + strings.ToUpper(string(p.Tier))
		}
		p.PriceID = env.GetEnv(key, "price_"+p.ID)
	}
	return New(products...)
}

func New(products ...Product) *Catalog {
	c := &Catalog{
		byID:    make(map[string]Product, len(products)),
		byPrice: make(map[string]Product, len(products)),
	}
	for _, p := range products {
		c.byID[p.ID] = p
		if p.PriceID != "" {
			c.byPrice[p.PriceID] = p
		}
	}
	return c
}

// Lookup returns the product with the given id.
func (c *Catalog) Lookup(id string) (Product, error) {
	p, ok := c.byID[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return Product{}, ErrUnknownProduct
	}
	return p, nil
}

// ForTier returns the subscription product of a paid tier.
func (c *Catalog) ForTier(t entitlements.Tier) (Product, error) {
	if !t.IsPaid() {
		return Product{}, ErrUnknownProduct
	}
	for _, p := range c.byID {
		if p.IsSubscription() && p.Tier == t {
			return p, nil
		}
	}
	return Product{}, ErrUnknownProduct
}

// TierForPrice resolves the tier a processor price id grants.
func (c *Catalog) TierForPrice(priceID string) (entitlements.Tier, bool) {
	p, ok := c.byPrice[priceID]
	if !ok || !p.IsSubscription() {
		return "", false
	}
	return p.Tier, true
}

// Products returns all products sorted by amount.
func (c *Catalog) Products() []Product {
	out := make([]Product, 0, len(c.byID))
	for _, p := range c.byID {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount == out[j].Amount {
			return out[i].ID < out[j].ID
		}
		return out[i].Amount < out[j].Amount
	})
	return out
}
