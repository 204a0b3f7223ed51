package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PromotionKind selects how a promotion's Value is interpreted.
type PromotionKind string

const (
	// PromotionFixedVoucher takes Value off the bill.
	PromotionFixedVoucher PromotionKind = "fixed_voucher"
	// PromotionPercentage takes Value percent of the subtotal, capped by MaxDiscount.
	PromotionPercentage PromotionKind = "percentage"
	// PromotionBulkThreshold takes Value percent of the subtotal once the cart
	// reaches the bulk item threshold.
	PromotionBulkThreshold PromotionKind = "bulk_threshold"
)

// Promotion is a reward a user has redeemed and may spend on one checkout.
type Promotion struct {
	ID          string              `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID      string              `json:"user_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_promotion_user_code"`
	Code        string              `json:"code" gorm:"type:varchar(64);not null;uniqueIndex:idx_promotion_user_code"`
	Kind        PromotionKind       `json:"kind" gorm:"type:varchar(20);not null"`
	Value       decimal.Decimal     `json:"value" gorm:"type:numeric(12,2);not null"`
	MinSpend    decimal.NullDecimal `json:"min_spend" gorm:"type:numeric(12,2)"`
	MaxDiscount decimal.NullDecimal `json:"max_discount" gorm:"type:numeric(12,2)"`
	RedeemedAt  time.Time           `json:"redeemed_at" gorm:"not null"`
	ExpiresAt   *time.Time          `json:"expires_at,omitempty"`
	Used        bool                `json:"used" gorm:"not null;default:false"`
	UsedAt      *time.Time          `json:"used_at,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}
