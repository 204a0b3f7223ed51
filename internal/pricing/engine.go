// Package pricing computes what a cart costs: the discount strategy, voucher
// eligibility and how cart-level amounts are shared between vendor orders.
// Everything here is free of storage and clocks so it can be tested directly.
package pricing

import (
	"github.com/shopspring/decimal"

	"kantin/internal/models"
)

// Strategy is the discount rule that produced a Quote.
type Strategy string

const (
	StrategyRegular Strategy = "regular"
	StrategyBulk    Strategy = "bulk"
	StrategyVoucher Strategy = "voucher"
)

var hundred = decimal.NewFromInt(100)

// Quote is the priced cart.
type Quote struct {
	Subtotal   decimal.Decimal `json:"subtotal"`
	ServiceFee decimal.Decimal `json:"service_fee"`
	Discount   decimal.Decimal `json:"discount"`
	Total      decimal.Decimal `json:"total"`
	Strategy   Strategy        `json:"strategy"`
}

// VoucherApplied reports whether the quote spends the voucher it was given.
func (q Quote) VoucherApplied() bool {
	return q.Strategy == StrategyVoucher
}

// Engine selects and applies a discount strategy.
type Engine struct {
	BulkThreshold int
	BulkPercent   decimal.Decimal
}

// NewEngine returns an Engine that grants bulkPercent off the subtotal once a
// cart holds at least bulkThreshold items.
func NewEngine(bulkThreshold int, bulkPercent decimal.Decimal) Engine {
	return Engine{BulkThreshold: bulkThreshold, BulkPercent: bulkPercent}
}

// Compute prices a cart. A voucher that applies always wins over the bulk and
// regular strategies. The discount is rounded to cents and kept within
// [0, subtotal+serviceFee].
func (e Engine) Compute(subtotal, serviceFee decimal.Decimal, itemCount int, promo *ValidatedPromotion) Quote {
	strategy := StrategyRegular
	discount := decimal.Zero

	if promo != nil {
		if d, ok := e.voucherDiscount(subtotal, serviceFee, itemCount, promo.Promotion); ok {
			strategy, discount = StrategyVoucher, d
		}
	}
	if strategy != StrategyVoucher && e.BulkThreshold > 0 && itemCount >= e.BulkThreshold {
		strategy = StrategyBulk
		discount = percentOf(subtotal, e.BulkPercent)
	}

	discount = clamp(discount.Round(2), decimal.Zero, subtotal.Add(serviceFee))
	return Quote{
		Subtotal:   subtotal,
		ServiceFee: serviceFee,
		Discount:   discount,
		Total:      subtotal.Add(serviceFee).Sub(discount),
		Strategy:   strategy,
	}
}

func (e Engine) voucherDiscount(subtotal, serviceFee decimal.Decimal, itemCount int, p models.Promotion) (decimal.Decimal, bool) {
	switch p.Kind {
	case models.PromotionFixedVoucher:
		return decimal.Min(p.Value, subtotal.Add(serviceFee)), true
	case models.PromotionPercentage:
		return capped(percentOf(subtotal, p.Value), p.MaxDiscount), true
	case models.PromotionBulkThreshold:
		if e.BulkThreshold > 0 && itemCount < e.BulkThreshold {
			return decimal.Zero, false
		}
		return capped(percentOf(subtotal, p.Value), p.MaxDiscount), true
	default:
		return decimal.Zero, false
	}
}

func percentOf(amount, percent decimal.Decimal) decimal.Decimal {
	return amount.Mul(percent).Div(hundred)
}

func capped(d decimal.Decimal, max decimal.NullDecimal) decimal.Decimal {
	if max.Valid && d.GreaterThan(max.Decimal) {
		return max.Decimal
	}
	return d
}

func clamp(d, lo, hi decimal.Decimal) decimal.Decimal {
	if d.LessThan(lo) {
		return lo
	}
	if d.GreaterThan(hi) {
		return hi
	}
	return d
}
