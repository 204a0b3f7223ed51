package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"kantin/internal/models"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{db: db}
}

// Create inserts the order followed by its items, payment and pickup.
func (r *GORMOrderRepository) Create(ctx context.Context, order *models.Order) error {
	db := r.db.WithContext(ctx)
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if order.Version == 0 {
		order.Version = 1
	}
	if err := db.Omit(clause.Associations).Create(order).Error; err != nil {
		return translate(err, "create order")
	}

	for i := range order.Items {
		order.Items[i].OrderID = order.ID
	}
	if len(order.Items) > 0 {
		if err := db.Create(&order.Items).Error; err != nil {
			return translate(err, fmt.Sprintf("create items of order %s", order.ID))
		}
	}
	if order.Payment != nil {
		order.Payment.OrderID = order.ID
		if err := db.Create(order.Payment).Error; err != nil {
			return translate(err, fmt.Sprintf("create payment of order %s", order.ID))
		}
	}
	if order.Pickup != nil {
		order.Pickup.OrderID = order.ID
		if err := db.Create(order.Pickup).Error; err != nil {
			return translate(err, fmt.Sprintf("create pickup of order %s", order.ID))
		}
	}
	return nil
}

// GetByID returns an order with its items, payment and pickup.
func (r *GORMOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Payment").
		Preload("Pickup").
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, translate(err, fmt.Sprintf("get order %s", id))
	}
	return &order, nil
}

// GetForUpdate reads the bare order row and locks it until the surrounding
// transaction ends. SQLite has no row locks and serializes writers instead.
func (r *GORMOrderRepository) GetForUpdate(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, translate(err, fmt.Sprintf("lock order %s", id))
	}
	return &order, nil
}

// GetByQRCode resolves a scanned pickup code to its order.
func (r *GORMOrderRepository) GetByQRCode(ctx context.Context, qrCode string) (*models.Order, error) {
	var pickup models.Pickup
	if err := r.db.WithContext(ctx).First(&pickup, "qr_code = ?", qrCode).Error; err != nil {
		return nil, translate(err, "get pickup by qr code")
	}
	return r.GetByID(ctx, pickup.OrderID)
}

// ListByUser returns a user's orders, newest first.
func (r *GORMOrderRepository) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Payment").
		Preload("Pickup").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, translate(err, fmt.Sprintf("list orders of user %s", userID))
	}
	return orders, nil
}

// UpdateStatus writes the new status only if the row still has the status and
// version the caller read. Otherwise ErrConflict is returned and nothing changes.
func (r *GORMOrderRepository) UpdateStatus(ctx context.Context, id string, from models.OrderStatus, version int, to models.OrderStatus) error {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ? AND version = ?", id, from, version).
		Updates(map[string]interface{}{
			"status":     to,
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return translate(res.Error, fmt.Sprintf("update status of order %s", id))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("order %s changed since it was read: %w", id, ErrConflict)
	}
	return nil
}

// UpdatePickupStatus sets the status of an order's pickup ticket.
func (r *GORMOrderRepository) UpdatePickupStatus(ctx context.Context, orderID string, status models.PickupStatus) error {
	res := r.db.WithContext(ctx).
		Model(&models.Pickup{}).
		Where("order_id = ?", orderID).
		Update("status", status)
	if res.Error != nil {
		return translate(res.Error, fmt.Sprintf("update pickup of order %s", orderID))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("pickup of order %s: %w", orderID, ErrNotFound)
	}
	return nil
}

// UpdatePaymentStatus sets the status of an order's payment.
func (r *GORMOrderRepository) UpdatePaymentStatus(ctx context.Context, orderID string, status models.PaymentStatus, paidAt *time.Time) error {
	updates := map[string]interface{}{"status": status}
	if paidAt != nil {
		updates["paid_at"] = *paidAt
	}
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("order_id = ?", orderID).
		Updates(updates)
	if res.Error != nil {
		return translate(res.Error, fmt.Sprintf("update payment of order %s", orderID))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("payment of order %s: %w", orderID, ErrNotFound)
	}
	return nil
}
