package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentMethodOnline  PaymentMethod = "online"
	PaymentMethodEWallet PaymentMethod = "ewallet"
	PaymentMethodCash    PaymentMethod = "cash"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// Payment records how an order is settled. One per order.
type Payment struct {
	ID             uint            `json:"id" gorm:"primaryKey"`
	OrderID        string          `json:"order_id" gorm:"type:varchar(36);uniqueIndex;not null"`
	Method         PaymentMethod   `json:"method" gorm:"type:varchar(20);not null"`
	Status         PaymentStatus   `json:"status" gorm:"type:varchar(20);not null"`
	Amount         decimal.Decimal `json:"amount" gorm:"type:numeric(12,2);not null"`
	TransactionRef *string         `json:"transaction_ref,omitempty" gorm:"type:varchar(64)"`
	PaidAt         *time.Time      `json:"paid_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
