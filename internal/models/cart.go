package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartLine is one item in a user's cart. UnitPriceSnapshot is informational;
// checkout always re-reads the catalog price.
type CartLine struct {
	ID                uint            `json:"id" gorm:"primaryKey"`
	UserID            string          `json:"user_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_cart_user_item"`
	ItemID            string          `json:"item_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_cart_user_item"`
	Quantity          int             `json:"quantity" gorm:"not null"`
	SpecialRequest    string          `json:"special_request,omitempty" gorm:"type:varchar(255)"`
	UnitPriceSnapshot decimal.Decimal `json:"unit_price_snapshot" gorm:"type:numeric(12,2);not null"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// MenuItem is the catalog entry a cart line points at. A nil Stock means the
// vendor does not track stock for it.
type MenuItem struct {
	ID          string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	VendorID    string          `json:"vendor_id" gorm:"type:varchar(36);index;not null"`
	Name        string          `json:"name" gorm:"type:varchar(120);not null"`
	Price       decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"`
	IsAvailable bool            `json:"is_available" gorm:"not null"`
	Stock       *int            `json:"stock,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// LoyaltyBalance is the points a user has collected.
type LoyaltyBalance struct {
	UserID    string    `json:"user_id" gorm:"primaryKey;type:varchar(36)"`
	Points    int64     `json:"points" gorm:"not null;default:0"`
	UpdatedAt time.Time `json:"updated_at"`
}
