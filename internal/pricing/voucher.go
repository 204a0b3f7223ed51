package pricing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"kantin/internal/models"
)

// DefaultVoucherValidity is how long a redeemed reward can be spent.
const DefaultVoucherValidity = 30 * 24 * time.Hour

type VoucherErrorCode string

const (
	VoucherNotFound      VoucherErrorCode = "not_found"
	VoucherAlreadyUsed   VoucherErrorCode = "already_used"
	VoucherExpired       VoucherErrorCode = "expired"
	VoucherBelowMinSpend VoucherErrorCode = "below_min_spend"
)

// VoucherError explains why a voucher cannot be applied.
type VoucherError struct {
	Code    VoucherErrorCode
	Message string
}

func (e *VoucherError) Error() string {
	return e.Message
}

// Is matches any VoucherError carrying the same code.
func (e *VoucherError) Is(target error) bool {
	t, ok := target.(*VoucherError)
	return ok && t.Code == e.Code
}

var (
	ErrVoucherNotFound    = &VoucherError{Code: VoucherNotFound, Message: "voucher not found"}
	ErrVoucherAlreadyUsed = &VoucherError{Code: VoucherAlreadyUsed, Message: "voucher has already been used"}
	ErrVoucherExpired     = &VoucherError{Code: VoucherExpired, Message: "voucher has expired"}
)

// ValidatedPromotion is a promotion that passed validation for one subtotal.
type ValidatedPromotion struct {
	models.Promotion
}

// VoucherValidator checks whether a redeemed reward can be spent. It never
// changes the promotion; consumption happens when a checkout commits.
type VoucherValidator struct {
	Validity time.Duration
}

func NewVoucherValidator(validity time.Duration) VoucherValidator {
	if validity <= 0 {
		validity = DefaultVoucherValidity
	}
	return VoucherValidator{Validity: validity}
}

// Validate returns the promotion ready for pricing or a *VoucherError.
func (v VoucherValidator) Validate(promo *models.Promotion, subtotal decimal.Decimal, now time.Time) (*ValidatedPromotion, error) {
	if promo == nil {
		return nil, ErrVoucherNotFound
	}
	if promo.Used {
		return nil, ErrVoucherAlreadyUsed
	}
	if now.After(promo.RedeemedAt.Add(v.Validity)) {
		return nil, ErrVoucherExpired
	}
	if promo.ExpiresAt != nil && now.After(*promo.ExpiresAt) {
		return nil, ErrVoucherExpired
	}
	if promo.MinSpend.Valid && subtotal.LessThan(promo.MinSpend.Decimal) {
		return nil, &VoucherError{
			Code:    VoucherBelowMinSpend,
			Message: fmt.Sprintf("minimum spend of %s required", promo.MinSpend.Decimal.StringFixed(2)),
		}
	}
	return &ValidatedPromotion{Promotion: *promo}, nil
}
