package entitlements

import (
	"strings"

	"github.com/ManuelReschke/CreatorPay/app/models"
)

type Tier string

const (
	TierFree     Tier = "free"
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

// Tiers lists every tier in ascending order.
var Tiers = []Tier{TierFree, TierBronze, TierSilver, TierGold, TierPlatinum}

// Rank returns the ordering of a tier. Unknown tiers rank as free.
func (t Tier) Rank() int {
	switch t {
	case TierBronze:
		return 1
	case TierSilver:
		return 2
	case TierGold:
		return 3
	case TierPlatinum:
		return 4
	default:
		return 0
	}
}

// IsPaid reports whether the tier requires a subscription.
func (t Tier) IsPaid() bool {
	return t.Rank() > 0
}

// ParseTier resolves a tier name. The numeric aliases tier1..tier4 are
// accepted as well.
func ParseTier(raw string) (Tier, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "free", "tier0":
		return TierFree, true
	case "bronze", "tier1":
		return TierBronze, true
	case "silver", "tier2":
		return TierSilver, true
	case "gold", "tier3":
		return TierGold, true
	case "platinum", "tier4":
		return TierPlatinum, true
	default:
		return "", false
	}
}

// NormalizeTier maps unknown values to free.
func NormalizeTier(raw string) Tier {
	if t, ok := ParseTier(raw); ok {
		return t
	}
	return TierFree
}

// NormalizeStatus maps processor subscription statuses to entitlement statuses.
func NormalizeStatus(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "active", "trialing":
		return models.EntitlementStatusActive
	case "past_due", "unpaid":
		return models.EntitlementStatusPastDue
	case "canceled", "cancelled":
		return models.EntitlementStatusCanceled
	default:
		return models.EntitlementStatusInactive
	}
}

// IsEntitling reports whether the status grants access to the paid tier.
func IsEntitling(status string) bool {
	return status == models.EntitlementStatusActive || status == models.EntitlementStatusPastDue
}

// Normalize enforces that canceled and inactive entitlements carry the free tier.
func Normalize(e *models.Entitlement) {
	if e == nil {
		return
	}
	e.Tier = string(NormalizeTier(e.Tier))
	if e.Status == "" {
		e.Status = models.EntitlementStatusInactive
	}
	if !IsEntitling(e.Status) {
		e.Tier = string(TierFree)
	}
}

// CanAccess reports whether the entitlement unlocks content gated at required.
func CanAccess(e *models.Entitlement, required Tier) bool {
	if required.Rank() == 0 {
		return true
	}
	if e == nil || !IsEntitling(e.Status) {
		return false
	}
	return NormalizeTier(e.Tier).Rank() >= required.Rank()
}
