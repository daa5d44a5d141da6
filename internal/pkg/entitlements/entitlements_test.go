package entitlements

import (
	"testing"

	"github.com/ManuelReschke/CreatorPay/app/models"
	"github.com/stretchr/testify/assert"
)

func TestParseTier(t *testing.T) {
	tests := []struct {
		in   string
		want Tier
		ok   bool
	}{
		{"gold", TierGold, true},
		{" Platinum ", TierPlatinum, true},
		{"tier1", TierBronze, true},
		{"free", TierFree, true},
		{"diamond", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseTier(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestTierRankOrder(t *testing.T) {
	for i := 1; i < len(Tiers); i++ {
		assert.Greater(t, Tiers[i].Rank(), Tiers[i-1].Rank())
	}
	assert.False(t, TierFree.IsPaid())
	assert.True(t, TierBronze.IsPaid())
}

func TestNormalizeStatus(t *testing.T) {
	assert.Equal(t, models.EntitlementStatusActive, NormalizeStatus("trialing"))
	assert.Equal(t, models.EntitlementStatusPastDue, NormalizeStatus("unpaid"))
	assert.Equal(t, models.EntitlementStatusCanceled, NormalizeStatus("canceled"))
	assert.Equal(t, models.EntitlementStatusInactive, NormalizeStatus("incomplete_expired"))
}

func TestNormalizeForcesFreeWhenNotEntitling(t *testing.T) {
	for _, tier := range Tiers {
		for _, status := range []string{models.EntitlementStatusCanceled, models.EntitlementStatusInactive} {
			e := &models.Entitlement{Tier: string(tier), Status: status}
			Normalize(e)
			assert.Equal(t, string(TierFree), e.Tier)
		}
	}

	e := &models.Entitlement{Tier: "gold", Status: models.EntitlementStatusPastDue}
	Normalize(e)
	assert.Equal(t, "gold", e.Tier)
}

func TestCanAccess(t *testing.T) {
	e := &models.Entitlement{Tier: "silver", Status: models.EntitlementStatusActive}
	assert.True(t, CanAccess(e, TierBronze))
	assert.True(t, CanAccess(e, TierSilver))
	assert.False(t, CanAccess(e, TierGold))
	assert.True(t, CanAccess(nil, TierFree))

	e.Status = models.EntitlementStatusCanceled
	assert.False(t, CanAccess(e, TierBronze))
}
