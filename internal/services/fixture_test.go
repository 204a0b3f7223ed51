package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"kantin/internal/models"
	"kantin/internal/pricing"
	"kantin/internal/repositories"
	"kantin/internal/services"
	"kantin/internal/testdb"
	"kantin/pkg/payment"
)

type recordedEvent struct {
	OrderID string
	Kind    models.EventKind
	Status  models.OrderStatus
}

// recordingNotifier keeps every event it is handed.
type recordingNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (n *recordingNotifier) Notify(_ context.Context, order models.Order, kind models.EventKind) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, recordedEvent{OrderID: order.ID, Kind: kind, Status: order.Status})
}

func (n *recordingNotifier) kinds() []models.EventKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]models.EventKind, len(n.events))
	for i, e := range n.events {
		out[i] = e.Kind
	}
	return out
}

type fixture struct {
	db       *gorm.DB
	uow      *repositories.GORMUnitOfWork
	repos    repositories.Repositories
	gateway  *payment.SimulatedGateway
	notifier *recordingNotifier
	checkout *services.CheckoutService
	orders   *services.OrderService
	carts    *services.CartService
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithGateway(t, nil)
}

// newFixtureWithGateway builds the services over a fresh database. A nil
// gateway approves every charge.
func newFixtureWithGateway(t *testing.T, gw payment.Gateway) *fixture {
	t.Helper()
	db := testdb.Open(t)
	uow := repositories.NewGORMUnitOfWork(db)
	sim := payment.NewSimulatedGateway(0)
	if gw == nil {
		gw = sim
	}
	notifier := &recordingNotifier{}
	log := zap.NewNop()

	checkout := services.NewCheckoutService(
		uow,
		pricing.NewEngine(3, decimal.NewFromInt(5)),
		pricing.NewVoucherValidator(pricing.DefaultVoucherValidity),
		services.NewQueueAssigner(100, time.UTC),
		gw,
		notifier,
		decimal.RequireFromString("2.00"),
		log,
	)
	return &fixture{
		db:       db,
		uow:      uow,
		repos:    uow.Repositories(),
		gateway:  sim,
		notifier: notifier,
		checkout: checkout,
		orders:   services.NewOrderService(uow, notifier, log),
		carts:    services.NewCartService(uow),
	}
}

func (f *fixture) menuItem(t *testing.T, vendorID, name, price string, stock *int) *models.MenuItem {
	t.Helper()
	item := &models.MenuItem{
		VendorID:    vendorID,
		Name:        name,
		Price:       decimal.RequireFromString(price),
		IsAvailable: true,
		Stock:       stock,
	}
	require.NoError(t, f.repos.Catalog.Create(context.Background(), item))
	return item
}

func (f *fixture) addToCart(t *testing.T, userID string, item *models.MenuItem, qty int) {
	t.Helper()
	_, err := f.carts.AddItem(context.Background(), userID, item.ID, qty, "")
	require.NoError(t, err)
}

func (f *fixture) voucher(t *testing.T, userID, code string, kind models.PromotionKind, value string) *models.Promotion {
	t.Helper()
	promo := &models.Promotion{
		UserID:     userID,
		Code:       code,
		Kind:       kind,
		Value:      decimal.RequireFromString(value),
		RedeemedAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, f.repos.Promotions.Create(context.Background(), promo))
	return promo
}

func (f *fixture) count(t *testing.T, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

func intPtr(n int) *int { return &n }

func customer(id string) services.Principal {
	return services.Principal{UserID: id, Role: services.RoleCustomer}
}

func vendor(vendorID string) services.Principal {
	return services.Principal{UserID: "staff-" + vendorID, Role: services.RoleVendor, VendorID: vendorID}
}
