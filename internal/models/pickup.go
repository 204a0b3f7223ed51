package models

import "time"

type PickupStatus string

const (
	PickupStatusWaiting   PickupStatus = "waiting"
	PickupStatusReady     PickupStatus = "ready"
	PickupStatusCollected PickupStatus = "collected"
	PickupStatusCancelled PickupStatus = "cancelled"
)

// Pickup is the collection ticket of an order. QueueNumber is unique per
// vendor and day.
type Pickup struct {
	ID          uint         `json:"id" gorm:"primaryKey"`
	OrderID     string       `json:"order_id" gorm:"type:varchar(36);uniqueIndex;not null"`
	VendorID    string       `json:"vendor_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_pickup_vendor_day_queue"`
	Day         string       `json:"day" gorm:"type:varchar(10);not null;uniqueIndex:idx_pickup_vendor_day_queue"`
	QueueNumber int          `json:"queue_number" gorm:"not null;uniqueIndex:idx_pickup_vendor_day_queue"`
	QRCode      string       `json:"qr_code" gorm:"type:varchar(64);uniqueIndex;not null"`
	Status      PickupStatus `json:"status" gorm:"type:varchar(20);not null"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// QueueCounter holds the last queue number handed out for a vendor on a day.
type QueueCounter struct {
	VendorID   string `gorm:"primaryKey;type:varchar(36)"`
	Day        string `gorm:"primaryKey;type:varchar(10)"`
	LastNumber int    `gorm:"not null"`
}

// DayLayout is how calendar days are stored on pickups and counters.
const DayLayout = "2006-01-02"

// Day returns the calendar day of t in loc.
func Day(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DayLayout)
}
