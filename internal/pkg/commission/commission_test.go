package commission

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		gross, creator, platform int64
	}{
		{3990, 2793, 1197},
		{1990, 1393, 597},
		{1, 0, 1},
		{999, 699, 300},
		{0, 0, 0},
	}
	for _, tt := range tests {
		s := Split(tt.gross)
		assert.Equal(t, tt.creator, s.Creator, "gross %d", tt.gross)
		assert.Equal(t, tt.platform, s.Platform, "gross %d", tt.gross)
	}
}

func TestCalculateScenarioFullChain(t *testing.T) {
	res := Calculate(3990, []string{"a", "b", "c", "d"})
	require.Len(t, res.Payouts, 4)
	assert.Equal(t, []int64{399, 199, 119, 79}, []int64{
		res.Payouts[0].Amount, res.Payouts[1].Amount, res.Payouts[2].Amount, res.Payouts[3].Amount,
	})
	assert.Equal(t, int64(796), res.Total)

	d := Distribute(3990, []string{"a", "b", "c", "d"})
	assert.Equal(t, int64(401), d.PlatformProfit)
}

func TestCalculateScenarioNoReferrer(t *testing.T) {
	d := Distribute(1990, nil)
	assert.Empty(t, d.Commissions.Payouts)
	assert.Equal(t, int64(1393), d.Creator)
	assert.Equal(t, int64(597), d.PlatformProfit)
}

func TestCalculateCapsDepth(t *testing.T) {
	chain := []string{"a", "b", "c", "d", "e", "f"}
	res := Calculate(10000, chain)
	require.Len(t, res.Payouts, MaxDepth)
	for i, p := range res.Payouts {
		assert.Equal(t, i+1, p.Depth)
		assert.Equal(t, chain[i], p.Payee)
	}
	assert.Equal(t, int64(2000), res.Total)
}

func TestDistributionProperties(t *testing.T) {
	chains := [][]string{nil, {"a"}, {"a", "b"}, {"a", "b", "c"}, {"a", "b", "c", "d"}, {"a", "b", "c", "d", "e"}}
	for gross := int64(1); gross <= 5000; gross++ {
		for _, chain := range chains {
			d := Distribute(gross, chain)
			name := fmt.Sprintf("gross=%d chain=%d", gross, len(chain))

			var sum int64
			for _, p := range d.Commissions.Payouts {
				assert.GreaterOrEqual(t, p.Amount, int64(0), name)
				sum += p.Amount
			}
			if sum != d.Commissions.Total {
				t.Fatalf("%s: payout sum %d != total %d", name, sum, d.Commissions.Total)
			}
			if d.Creator+d.Commissions.Total+d.PlatformProfit != gross {
				t.Fatalf("%s: allocation does not sum to gross", name)
			}
			if d.Commissions.Total > gross*MaxTotalPercent()/100 {
				t.Fatalf("%s: commissions exceed bound", name)
			}
			if d.PlatformProfit < 0 {
				t.Fatalf("%s: negative platform profit", name)
			}
			want := len(chain)
			if want > MaxDepth {
				want = MaxDepth
			}
			if len(d.Commissions.Payouts) != want {
				t.Fatalf("%s: got %d payouts, want %d", name, len(d.Commissions.Payouts), want)
			}
		}
	}
}

func TestRate(t *testing.T) {
	assert.Equal(t, int64(0), Rate(0))
	assert.Equal(t, int64(10), Rate(1))
	assert.Equal(t, int64(2), Rate(4))
	assert.Equal(t, int64(0), Rate(5))
	assert.Equal(t, int64(20), MaxTotalPercent())
}
