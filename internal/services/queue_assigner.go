package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"kantin/internal/models"
	"kantin/internal/repositories"
)

// DefaultQueueBase is the first queue number a vendor hands out each day.
const DefaultQueueBase = 100

var qrNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("kantin/pickup"))

// QueueAssigner issues pickup tickets. Days are cut in loc.
type QueueAssigner struct {
	base int
	loc  *time.Location
}

func NewQueueAssigner(base int, loc *time.Location) *QueueAssigner {
	if base <= 0 {
		base = DefaultQueueBase
	}
	if loc == nil {
		loc = time.UTC
	}
	return &QueueAssigner{base: base, loc: loc}
}

// Assign takes the next queue number of vendorID for the day of at and builds
// the waiting pickup for orderID. repo must be bound to the transaction that
// stores the pickup.
func (q *QueueAssigner) Assign(ctx context.Context, repo repositories.QueueRepository, orderID, vendorID string, at time.Time) (*models.Pickup, error) {
	day := models.Day(at, q.loc)
	n, err := repo.Next(ctx, vendorID, day, q.base)
	if err != nil {
		return nil, fmt.Errorf("assign queue number for vendor %s: %w", vendorID, err)
	}
	return &models.Pickup{
		OrderID:     orderID,
		VendorID:    vendorID,
		Day:         day,
		QueueNumber: n,
		QRCode:      QRCode(orderID, day),
		Status:      models.PickupStatusWaiting,
	}, nil
}

// QRCode is the scan key printed on a pickup ticket. The same order and day
// always give the same code.
func QRCode(orderID, day string) string {
	key := uuid.NewSHA1(qrNamespace, []byte(orderID+"|"+day))
	return strings.ReplaceAll(day, "-", "") + "-" + key.String()
}
