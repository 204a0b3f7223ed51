package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventKind names a lifecycle event of an order.
type EventKind string

const (
	EventCreated   EventKind = "created"
	EventAccepted  EventKind = "accepted"
	EventPreparing EventKind = "preparing"
	EventReady     EventKind = "ready"
	EventCollected EventKind = "collected"
	EventCancelled EventKind = "cancelled"
)

// OrderEvent is handed to observers after a committed change. It is not stored.
type OrderEvent struct {
	Order      Order     `json:"order"`
	Kind       EventKind `json:"kind"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Notification is a message shown to the customer who placed an order.
type Notification struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"type:varchar(36);index;not null"`
	OrderID   string    `json:"order_id" gorm:"type:varchar(36);not null"`
	Kind      EventKind `json:"kind" gorm:"type:varchar(20);not null"`
	Message   string    `json:"message" gorm:"type:varchar(255);not null"`
	Read      bool      `json:"read" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at"`
}

// VendorDailyStats are the counters behind a vendor's dashboard.
type VendorDailyStats struct {
	VendorID  string          `json:"vendor_id" gorm:"primaryKey;type:varchar(36)"`
	Day       string          `json:"day" gorm:"primaryKey;type:varchar(10)"`
	Created   int             `json:"created" gorm:"not null;default:0"`
	Accepted  int             `json:"accepted" gorm:"not null;default:0"`
	Preparing int             `json:"preparing" gorm:"not null;default:0"`
	Ready     int             `json:"ready" gorm:"not null;default:0"`
	Collected int             `json:"collected" gorm:"not null;default:0"`
	Cancelled int             `json:"cancelled" gorm:"not null;default:0"`
	Revenue   decimal.Decimal `json:"revenue" gorm:"type:numeric(12,2);not null;default:0"`
}
