package services_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kantin/internal/models"
	"kantin/internal/pricing"
	"kantin/internal/repositories"
	"kantin/internal/services"
	"kantin/pkg/payment"
)

func TestCheckout_SplitsCartPerVendor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// vendor ids sort a before b, so the 30.00 group is first
	soto := f.menuItem(t, "vendor-a", "Soto Ayam", "10.00", nil)
	bakso := f.menuItem(t, "vendor-b", "Bakso", "35.00", intPtr(10))
	f.addToCart(t, "user-1", soto, 3)
	f.addToCart(t, "user-1", bakso, 2)
	promo := f.voucher(t, "user-1", "POTONG10", models.PromotionFixedVoucher, "10.00")

	res, err := f.checkout.Checkout(ctx, services.CheckoutRequest{
		UserID:        "user-1",
		PaymentMethod: models.PaymentMethodCash,
		PromotionCode: "POTONG10",
	})
	require.NoError(t, err)

	assert.Equal(t, pricing.StrategyVoucher, res.Quote.Strategy)
	assert.Equal(t, "92.00", res.Quote.Total.StringFixed(2))
	require.Len(t, res.Orders, 2)
	assert.Equal(t, []string{res.Orders[0].ID, res.Orders[1].ID}, res.OrderIDs)

	a, b := res.Orders[0], res.Orders[1]
	assert.Equal(t, "vendor-a", a.VendorID)
	assert.Equal(t, "27.60", a.TotalPrice.StringFixed(2))
	assert.Equal(t, "0.60", a.ServiceFee.StringFixed(2))
	assert.Equal(t, "3.00", a.Discount.StringFixed(2))
	assert.Equal(t, "vendor-b", b.VendorID)
	assert.Equal(t, "64.40", b.TotalPrice.StringFixed(2))
	assert.Equal(t, res.Quote.Total.StringFixed(2), a.TotalPrice.Add(b.TotalPrice).StringFixed(2))

	for _, o := range res.Orders {
		stored, err := f.repos.Orders.GetByID(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusPending, stored.Status)
		assert.Equal(t, res.CheckoutID, stored.CheckoutID)
		require.NotNil(t, stored.Payment)
		assert.Equal(t, models.PaymentStatusPending, stored.Payment.Status)
		assert.Equal(t, models.PaymentMethodCash, stored.Payment.Method)
		require.NotNil(t, stored.Pickup)
		assert.Equal(t, 100, stored.Pickup.QueueNumber)
		assert.Equal(t, models.PickupStatusWaiting, stored.Pickup.Status)
		assert.Equal(t, services.QRCode(o.ID, stored.Pickup.Day), stored.Pickup.QRCode)
	}

	cart, err := f.repos.Carts.GetCart(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, cart)

	used, err := f.repos.Promotions.FindByUserAndCode(ctx, "user-1", promo.Code)
	require.NoError(t, err)
	assert.True(t, used.Used)

	balance, err := f.repos.Loyalty.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(92), balance.Points)
	assert.Equal(t, int64(92), res.PointsAwarded)

	item, err := f.repos.Catalog.GetAvailableItem(ctx, bakso.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, *item.Stock)

	assert.Equal(t, []models.EventKind{models.EventCreated, models.EventCreated}, f.notifier.kinds())
}

func TestCheckout_OrderItemsSnapshotCatalogPrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item := f.menuItem(t, "vendor-a", "Mie Ayam", "12.00", nil)
	f.addToCart(t, "user-1", item, 1)
	// price goes up after the item was put in the cart
	require.NoError(t, f.db.Model(&models.MenuItem{}).Where("id = ?", item.ID).Update("price", "15.00").Error)

	res, err := f.checkout.Checkout(ctx, services.CheckoutRequest{UserID: "user-1", PaymentMethod: models.PaymentMethodCash})
	require.NoError(t, err)

	stored, err := f.repos.Orders.GetByID(ctx, res.OrderIDs[0])
	require.NoError(t, err)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, "15.00", stored.Items[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "17.00", stored.TotalPrice.StringFixed(2))
}

func TestCheckout_BulkStrategy(t *testing.T) {
	f := newFixture(t)

	item := f.menuItem(t, "vendor-a", "Gado-gado", "16.00", nil)
	side := f.menuItem(t, "vendor-a", "Kerupuk", "2.00", nil)
	f.addToCart(t, "user-1", item, 3)
	f.addToCart(t, "user-1", side, 1)

	res, err := f.checkout.Checkout(context.Background(), services.CheckoutRequest{UserID: "user-1", PaymentMethod: models.PaymentMethodEWallet})
	require.NoError(t, err)

	assert.Equal(t, pricing.StrategyBulk, res.Quote.Strategy)
	assert.Equal(t, "2.50", res.Quote.Discount.StringFixed(2))
	assert.Equal(t, "49.50", res.Quote.Total.StringFixed(2))
	assert.Equal(t, int64(49), res.PointsAwarded)

	stored, err := f.repos.Orders.GetByID(context.Background(), res.OrderIDs[0])
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, stored.Payment.Status)
	require.NotNil(t, stored.Payment.TransactionRef)
	assert.Contains(t, *stored.Payment.TransactionRef, "EW-")
	assert.NotNil(t, stored.Payment.PaidAt)
}

func TestCheckout_EmptyCart(t *testing.T) {
	f := newFixture(t)

	_, err := f.checkout.Checkout(context.Background(), services.CheckoutRequest{UserID: "user-1", PaymentMethod: models.PaymentMethodCash})
	assert.ErrorIs(t, err, services.ErrEmptyCart)
	assert.Empty(t, f.notifier.kinds())
}

func TestCheckout_UnknownPaymentMethod(t *testing.T) {
	f := newFixture(t)

	_, err := f.checkout.Checkout(context.Background(), services.CheckoutRequest{UserID: "user-1", PaymentMethod: "barter"})
	assert.ErrorIs(t, err, services.ErrInvalidInput)
}

// countingDecider approves every charge except the nth.
func countingDecider(n int32) payment.Decider {
	var calls int32
	return func(payment.ChargeRequest) bool {
		return atomic.AddInt32(&calls, 1) != n
	}
}

func TestCheckout_DeclineRollsEverythingBack(t *testing.T) {
	gw := payment.NewSimulatedGatewayWithDecider(countingDecider(2))
	f := newFixtureWithGateway(t, gw)
	ctx := context.Background()

	for i, v := range []string{"vendor-a", "vendor-b", "vendor-c"} {
		item := f.menuItem(t, v, fmt.Sprintf("Menu %d", i), "10.00", intPtr(5))
		f.addToCart(t, "user-1", item, 1)
	}
	f.voucher(t, "user-1", "POTONG5", models.PromotionFixedVoucher, "5.00")

	_, err := f.checkout.Checkout(ctx, services.CheckoutRequest{
		UserID:        "user-1",
		PaymentMethod: models.PaymentMethodOnline,
		PromotionCode: "POTONG5",
	})
	require.ErrorIs(t, err, services.ErrPaymentDeclined)

	assert.Zero(t, f.count(t, &models.Order{}))
	assert.Zero(t, f.count(t, &models.OrderItem{}))
	assert.Zero(t, f.count(t, &models.Payment{}))
	assert.Zero(t, f.count(t, &models.Pickup{}))
	assert.Zero(t, f.count(t, &models.LoyaltyBalance{}))

	cart, err := f.repos.Carts.GetCart(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, cart, 3)

	promo, err := f.repos.Promotions.FindByUserAndCode(ctx, "user-1", "POTONG5")
	require.NoError(t, err)
	assert.False(t, promo.Used)

	var items []models.MenuItem
	require.NoError(t, f.db.Find(&items).Error)
	for _, item := range items {
		assert.Equal(t, 5, *item.Stock, "stock of %s", item.Name)
	}
	assert.Empty(t, f.notifier.kinds())

	// the queue starts over as if nothing happened
	res, err := f.checkout.Checkout(ctx, services.CheckoutRequest{UserID: "user-1", PaymentMethod: models.PaymentMethodOnline})
	require.NoError(t, err)
	stored, err := f.repos.Orders.GetByID(ctx, res.OrderIDs[0])
	require.NoError(t, err)
	assert.Equal(t, 100, stored.Pickup.QueueNumber)
}

// recordingGateway remembers the reference of every approved charge.
type recordingGateway struct {
	*payment.SimulatedGateway
	mu   sync.Mutex
	refs []string
}

func (g *recordingGateway) Charge(ctx context.Context, req payment.ChargeRequest) (payment.ChargeResult, error) {
	res, err := g.SimulatedGateway.Charge(ctx, req)
	if err == nil {
		g.mu.Lock()
		g.refs = append(g.refs, res.TransactionRef)
		g.mu.Unlock()
	}
	return res, err
}

func TestCheckout_RefundsChargesOfFailedCheckout(t *testing.T) {
	gw := &recordingGateway{SimulatedGateway: payment.NewSimulatedGatewayWithDecider(countingDecider(2))}
	f := newFixtureWithGateway(t, gw)

	f.addToCart(t, "user-1", f.menuItem(t, "vendor-a", "Pecel", "8.00", nil), 1)
	f.addToCart(t, "user-1", f.menuItem(t, "vendor-b", "Rawon", "14.00", nil), 1)

	_, err := f.checkout.Checkout(context.Background(), services.CheckoutRequest{UserID: "user-1", PaymentMethod: models.PaymentMethodOnline})
	require.ErrorIs(t, err, services.ErrPaymentDeclined)
	require.Len(t, gw.refs, 1)
	assert.True(t, gw.Refunded(gw.refs[0]))
}

func TestCheckout_VoucherSingleUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.menuItem(t, "vendor-a", "Nasi Uduk", "20.00", nil)
	f.voucher(t, "user-1", "HEMAT", models.PromotionFixedVoucher, "4.00")

	f.addToCart(t, "user-1", item, 1)
	res, err := f.checkout.Checkout(ctx, services.CheckoutRequest{UserID: "user-1", PaymentMethod: models.PaymentMethodCash, PromotionCode: "HEMAT"})
	require.NoError(t, err)
	assert.Equal(t, "18.00", res.Quote.Total.StringFixed(2))

	f.addToCart(t, "user-1", item, 1)
	_, err = f.checkout.Checkout(ctx, services.CheckoutRequest{UserID: "user-1", PaymentMethod: models.PaymentMethodCash, PromotionCode: "HEMAT"})
	assert.ErrorIs(t, err, pricing.ErrVoucherAlreadyUsed)

	// the failed attempt left the cart alone
	cart, err := f.repos.Carts.GetCart(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, cart, 1)
}

func TestCheckout_ConcurrentVoucherUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.menuItem(t, "vendor-a", "Nasi Kuning", "20.00", nil)
	f.voucher(t, "user-1", "SEKALI", models.PromotionFixedVoucher, "4.00")
	f.addToCart(t, "user-1", item, 1)

	// two devices of the same user submit the same cart at once
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.checkout.Checkout(ctx, services.CheckoutRequest{UserID: "user-1", PaymentMethod: models.PaymentMethodCash, PromotionCode: "SEKALI"})
		}(i)
	}
	wg.Wait()

	// The shared cart is emptied by the winner, so the loser stops at the
	// cart or at the voucher. The used = false guard on its own is covered by
	// TestPromotionRepository_MarkUsedOnce.
	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		var voucherErr *pricing.VoucherError
		if !errors.Is(err, services.ErrEmptyCart) && !errors.As(err, &voucherErr) {
			t.Errorf("unexpected error from losing checkout: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, int64(1), f.count(t, &models.Order{}))

	promo, err := f.repos.Promotions.FindByUserAndCode(ctx, "user-1", "SEKALI")
	require.NoError(t, err)
	assert.True(t, promo.Used)
}

// stockLog records the order in which a checkout takes stock.
type stockLog struct {
	repositories.UnitOfWork
	mu  sync.Mutex
	ids []string
}

func (l *stockLog) Do(ctx context.Context, fn func(r repositories.Repositories) error) error {
	return l.UnitOfWork.Do(ctx, func(r repositories.Repositories) error {
		r.Catalog = stockRecorder{CatalogRepository: r.Catalog, log: l}
		return fn(r)
	})
}

type stockRecorder struct {
	repositories.CatalogRepository
	log *stockLog
}

func (c stockRecorder) DecrementStock(ctx context.Context, id string, qty int) error {
	c.log.mu.Lock()
	c.log.ids = append(c.log.ids, id)
	c.log.mu.Unlock()
	return c.CatalogRepository.DecrementStock(ctx, id, qty)
}

func TestCheckout_TakesStockInItemOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, item := range []models.MenuItem{
		{ID: "item-z", VendorID: "vendor-a", Name: "Es Campur", Price: decimal.RequireFromString("7.00"), IsAvailable: true, Stock: intPtr(5)},
		{ID: "item-c", VendorID: "vendor-b", Name: "Martabak", Price: decimal.RequireFromString("15.00"), IsAvailable: true, Stock: intPtr(5)},
		{ID: "item-m", VendorID: "vendor-a", Name: "Gado-gado", Price: decimal.RequireFromString("12.00"), IsAvailable: true, Stock: intPtr(5)},
	} {
		item := item
		require.NoError(t, f.repos.Catalog.Create(ctx, &item))
		f.addToCart(t, "user-1", &item, 1)
	}

	uow := &stockLog{UnitOfWork: f.uow}
	checkout := services.NewCheckoutService(
		uow,
		pricing.NewEngine(3, decimal.NewFromInt(5)),
		pricing.NewVoucherValidator(pricing.DefaultVoucherValidity),
		services.NewQueueAssigner(100, time.UTC),
		f.gateway,
		f.notifier,
		decimal.RequireFromString("2.00"),
		zap.NewNop(),
	)
	res, err := checkout.Checkout(ctx, services.CheckoutRequest{UserID: "user-1", PaymentMethod: models.PaymentMethodCash})
	require.NoError(t, err)
	assert.Len(t, res.OrderIDs, 2)

	// cart order was z, c, m
	assert.Equal(t, []string{"item-c", "item-m", "item-z"}, uow.ids)
}

func TestCheckout_VoucherErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.menuItem(t, "vendor-a", "Lontong", "9.00", nil)
	f.addToCart(t, "user-1", item, 1)

	expired := &models.Promotion{
		UserID:     "user-1",
		Code:       "LAMA",
		Kind:       models.PromotionPercentage,
		Value:      decimal.NewFromInt(10),
		RedeemedAt: time.Now().Add(-31 * 24 * time.Hour),
	}
	require.NoError(t, f.repos.Promotions.Create(ctx, expired))
	minSpend := &models.Promotion{
		UserID:     "user-1",
		Code:       "MINIMAL",
		Kind:       models.PromotionFixedVoucher,
		Value:      decimal.NewFromInt(3),
		MinSpend:   decimal.NewNullDecimal(decimal.NewFromInt(25)),
		RedeemedAt: time.Now(),
	}
	require.NoError(t, f.repos.Promotions.Create(ctx, minSpend))

	tests := []struct {
		code string
		want error
	}{
		{"NOPE", pricing.ErrVoucherNotFound},
		{"LAMA", pricing.ErrVoucherExpired},
		{"MINIMAL", &pricing.VoucherError{Code: pricing.VoucherBelowMinSpend}},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			_, err := f.checkout.Checkout(ctx, services.CheckoutRequest{UserID: "user-1", PaymentMethod: models.PaymentMethodCash, PromotionCode: tt.code})
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Zero(t, f.count(t, &models.Order{}))
}

func TestCheckout_UnavailableAndOutOfStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("unavailable", func(t *testing.T) {
		item := f.menuItem(t, "vendor-a", "Sate", "15.00", nil)
		f.addToCart(t, "user-1", item, 1)
		require.NoError(t, f.db.Model(&models.MenuItem{}).Where("id = ?", item.ID).Update("is_available", false).Error)

		_, err := f.checkout.Checkout(ctx, services.CheckoutRequest{UserID: "user-1", PaymentMethod: models.PaymentMethodCash})
		assert.ErrorIs(t, err, services.ErrItemUnavailable)
	})

	t.Run("out of stock", func(t *testing.T) {
		item := f.menuItem(t, "vendor-a", "Martabak", "25.00", intPtr(1))
		f.addToCart(t, "user-2", item, 2)

		_, err := f.checkout.Checkout(ctx, services.CheckoutRequest{UserID: "user-2", PaymentMethod: models.PaymentMethodCash})
		assert.ErrorIs(t, err, services.ErrOutOfStock)

		got, err := f.repos.Catalog.GetAvailableItem(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, *got.Stock)
	})
}

func TestCheckout_QueueNumbersUnderConcurrency(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	const n = 10

	item := f.menuItem(t, "vendor-a", "Es Campur", "7.00", nil)
	for i := 0; i < n; i++ {
		f.addToCart(t, fmt.Sprintf("user-%d", i), item, 1)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		orderIDs []string
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.checkout.Checkout(ctx, services.CheckoutRequest{UserID: fmt.Sprintf("user-%d", i), PaymentMethod: models.PaymentMethodCash})
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			orderIDs = append(orderIDs, res.OrderIDs...)
			mu.Unlock()
		}(i)
	}
	wg.Wait()
	require.Len(t, orderIDs, n)

	numbers := make([]int, 0, n)
	for _, id := range orderIDs {
		o, err := f.repos.Orders.GetByID(ctx, id)
		require.NoError(t, err)
		numbers = append(numbers, o.Pickup.QueueNumber)
	}
	sort.Ints(numbers)
	for i, got := range numbers {
		assert.Equal(t, 100+i, got)
	}
}

type panickingGateway struct{}

func (panickingGateway) Charge(context.Context, payment.ChargeRequest) (payment.ChargeResult, error) {
	panic("gateway bug")
}

func (panickingGateway) Refund(context.Context, string) error { return nil }

func TestCheckout_PanicBecomesPersistenceFailure(t *testing.T) {
	f := newFixtureWithGateway(t, panickingGateway{})
	f.addToCart(t, "user-1", f.menuItem(t, "vendor-a", "Tahu Tek", "11.00", nil), 1)

	var err error
	assert.NotPanics(t, func() {
		_, err = f.checkout.Checkout(context.Background(), services.CheckoutRequest{UserID: "user-1", PaymentMethod: models.PaymentMethodOnline})
	})
	assert.ErrorIs(t, err, services.ErrPersistence)
	assert.Zero(t, f.count(t, &models.Order{}))

	cart, cartErr := f.repos.Carts.GetCart(context.Background(), "user-1")
	require.NoError(t, cartErr)
	assert.Len(t, cart, 1)
}
