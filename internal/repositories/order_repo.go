package repositories

import (
	"context"
	"time"

	"kantin/internal/models"
)

// OrderRepository defines the interface for order data access. An order is
// always written together with its items, payment and pickup.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	GetForUpdate(ctx context.Context, id string) (*models.Order, error)
	GetByQRCode(ctx context.Context, qrCode string) (*models.Order, error)
	ListByUser(ctx context.Context, userID string) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id string, from models.OrderStatus, version int, to models.OrderStatus) error
	UpdatePickupStatus(ctx context.Context, orderID string, status models.PickupStatus) error
	UpdatePaymentStatus(ctx context.Context, orderID string, status models.PaymentStatus, paidAt *time.Time) error
}
