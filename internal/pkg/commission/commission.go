// Package commission splits gross revenue between creator and platform and
// computes multi-level referral commissions. Amounts are integer minor units.
package commission

// MaxDepth is the deepest referral level that earns a commission.
const MaxDepth = 4

// CreatorSharePercent is the creator's share of gross revenue.
const CreatorSharePercent = 70

var rates = [MaxDepth + 1]int64{0, 10, 5, 3, 2}

// Rate returns the commission percentage paid at depth, or 0 outside 1..MaxDepth.
func Rate(depth int) int64 {
	if depth < 1 || depth > MaxDepth {
		return 0
	}
	return rates[depth]
}

// MaxTotalPercent is the sum of all level rates.
func MaxTotalPercent() int64 {
	var total int64
	for d := 1; d <= MaxDepth; d++ {
		total += rates[d]
	}
	return total
}

type Payout struct {
	Payee  string
	Depth  int
	Amount int64
}

type Result struct {
	Payouts []Payout
	Total   int64
}

// Calculate pays floor(gross*rate/100) to each ancestor in chain, nearest
// first, up to MaxDepth levels. Zero amounts are still reported so callers
// see every level that was reached.
func Calculate(gross int64, chain []string) Result {
	var res Result
	if gross <= 0 {
		return res
	}
	for i, payee := range chain {
		depth := i + 1
		if depth > MaxDepth {
			break
		}
		amount := gross * Rate(depth) / 100
		res.Payouts = append(res.Payouts, Payout{Payee: payee, Depth: depth, Amount: amount})
		res.Total += amount
	}
	return res
}

type Shares struct {
	Gross    int64
	Creator  int64
	Platform int64
}

// Split divides gross between creator and platform. The platform keeps the
// rounding remainder.
func Split(gross int64) Shares {
	if gross <= 0 {
		return Shares{}
	}
	creator := gross * CreatorSharePercent / 100
	return Shares{Gross: gross, Creator: creator, Platform: gross - creator}
}

// Distribution is the full allocation of one payment.
type Distribution struct {
	Shares
	Commissions    Result
	PlatformProfit int64
}

// Distribute combines Split and Calculate. PlatformProfit is what the
// platform retains after paying commissions out of its share.
func Distribute(gross int64, chain []string) Distribution {
	s := Split(gross)
	c := Calculate(gross, chain)
	return Distribution{Shares: s, Commissions: c, PlatformProfit: s.Platform - c.Total}
}
