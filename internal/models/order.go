package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is a step of the order lifecycle.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusAccepted  OrderStatus = "accepted"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// IsTerminal reports whether no further transition is possible.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

func (s OrderStatus) String() string {
	return string(s)
}

// OrderItem is a line of an order. UnitPrice is the catalog price copied when
// the order was created and is never recomputed.
type OrderItem struct {
	ID             uint            `json:"id" gorm:"primaryKey"`
	OrderID        string          `json:"order_id" gorm:"type:varchar(36);index;not null"`
	ItemID         string          `json:"item_id" gorm:"type:varchar(36);not null"`
	Name           string          `json:"name" gorm:"type:varchar(120)"`
	Quantity       int             `json:"quantity" gorm:"not null"`
	UnitPrice      decimal.Decimal `json:"unit_price" gorm:"type:numeric(12,2);not null"`
	SpecialRequest string          `json:"special_request,omitempty" gorm:"type:varchar(255)"`
}

// LineTotal is UnitPrice multiplied by Quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order is one vendor's share of a checkout.
type Order struct {
	ID         string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CheckoutID string          `json:"checkout_id" gorm:"type:varchar(36);index;not null"`
	UserID     string          `json:"user_id" gorm:"type:varchar(36);index;not null"`
	VendorID   string          `json:"vendor_id" gorm:"type:varchar(36);index;not null"`
	Subtotal   decimal.Decimal `json:"subtotal" gorm:"type:numeric(12,2);not null"`
	ServiceFee decimal.Decimal `json:"service_fee" gorm:"type:numeric(12,2);not null"`
	Discount   decimal.Decimal `json:"discount" gorm:"type:numeric(12,2);not null"`
	TotalPrice decimal.Decimal `json:"total_price" gorm:"type:numeric(12,2);not null"`
	Status     OrderStatus     `json:"status" gorm:"type:varchar(20);index;not null"`
	Version    int             `json:"-" gorm:"not null;default:1"`
	Items      []OrderItem     `json:"items,omitempty" gorm:"foreignKey:OrderID"`
	Payment    *Payment        `json:"payment,omitempty" gorm:"foreignKey:OrderID"`
	Pickup     *Pickup         `json:"pickup,omitempty" gorm:"foreignKey:OrderID"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
