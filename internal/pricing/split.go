package pricing

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Share is one vendor's part of a cart-level quote.
type Share struct {
	Subtotal   decimal.Decimal
	ServiceFee decimal.Decimal
	Discount   decimal.Decimal
	Total      decimal.Decimal
}

// Split spreads serviceFee and discount over the vendor subtotals in
// proportion to each subtotal. Amounts are allocated in whole cents with the
// largest-remainder method, so the shares always add up to the cart exactly.
// Equal remainders favour the earlier vendor.
func Split(subtotals []decimal.Decimal, serviceFee, discount decimal.Decimal) []Share {
	weights := make([]int64, len(subtotals))
	for i, s := range subtotals {
		weights[i] = toCents(s)
	}
	fees := allocate(toCents(serviceFee), weights)
	discounts := allocate(toCents(discount), weights)

	shares := make([]Share, len(subtotals))
	for i := range subtotals {
		fee, disc := fromCents(fees[i]), fromCents(discounts[i])
		shares[i] = Share{
			Subtotal:   fromCents(weights[i]),
			ServiceFee: fee,
			Discount:   disc,
			Total:      fromCents(weights[i] + fees[i] - discounts[i]),
		}
	}
	return shares
}

func allocate(amount int64, weights []int64) []int64 {
	out := make([]int64, len(weights))
	if len(weights) == 0 {
		return out
	}
	var total int64
	for _, w := range weights {
		total += w
	}
	if total == 0 {
		out[len(out)-1] = amount
		return out
	}

	remainders := make([]int64, len(weights))
	var given int64
	for i, w := range weights {
		out[i] = amount * w / total
		remainders[i] = amount * w % total
		given += out[i]
	}

	order := make([]int, len(weights))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return remainders[order[a]] > remainders[order[b]]
	})
	for i := int64(0); i < amount-given; i++ {
		out[order[i%int64(len(order))]]++
	}
	return out
}

func toCents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

func fromCents(c int64) decimal.Decimal {
	return decimal.New(c, -2)
}
