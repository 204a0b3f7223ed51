package notify_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kantin/internal/models"
	"kantin/internal/notify"
	"kantin/internal/repositories"
	"kantin/internal/testdb"
)

// MockObserver is a mock implementation of notify.Observer
type MockObserver struct {
	mock.Mock
}

func (m *MockObserver) OnOrderEvent(ctx context.Context, event models.OrderEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockPublisher is a mock implementation of notify.Publisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, key string, v interface{}) error {
	args := m.Called(ctx, key, v)
	return args.Error(0)
}

// MockRoutedPublisher is a mock implementation of notify.RoutedPublisher
type MockRoutedPublisher struct {
	mock.Mock
}

func (m *MockRoutedPublisher) PublishJSON(routingKey string, v interface{}) error {
	args := m.Called(routingKey, v)
	return args.Error(0)
}

func sampleOrder() models.Order {
	return models.Order{
		ID:         "order-1",
		CheckoutID: "checkout-1",
		UserID:     "user-1",
		VendorID:   "vendor-a",
		TotalPrice: decimal.RequireFromString("27.60"),
		Status:     models.OrderStatusPending,
		Pickup:     &models.Pickup{QueueNumber: 101},
	}
}

func TestDispatcher_DeliversToEveryObserver(t *testing.T) {
	d := notify.NewDispatcher(zap.NewNop())
	first, second := new(MockObserver), new(MockObserver)
	matchCreated := mock.MatchedBy(func(e models.OrderEvent) bool {
		return e.Kind == models.EventCreated && e.Order.ID == "order-1" && !e.OccurredAt.IsZero()
	})
	first.On("OnOrderEvent", mock.Anything, matchCreated).Return(nil).Once()
	second.On("OnOrderEvent", mock.Anything, matchCreated).Return(nil).Once()

	d.Subscribe("first", first)
	d.Subscribe("second", second)
	d.Notify(context.Background(), sampleOrder(), models.EventCreated)

	first.AssertExpectations(t)
	second.AssertExpectations(t)
}

func TestDispatcher_IsolatesFailingObservers(t *testing.T) {
	d := notify.NewDispatcher(zap.NewNop())
	last := new(MockObserver)
	last.On("OnOrderEvent", mock.Anything, mock.Anything).Return(nil).Once()

	d.Subscribe("erroring", notify.ObserverFunc(func(context.Context, models.OrderEvent) error {
		return errors.New("smtp down")
	}))
	d.Subscribe("panicking", notify.ObserverFunc(func(context.Context, models.OrderEvent) error {
		panic("nil map")
	}))
	d.Subscribe("last", last)

	assert.NotPanics(t, func() {
		d.Notify(context.Background(), sampleOrder(), models.EventReady)
	})
	last.AssertExpectations(t)
}

func TestDispatcher_NoObservers(t *testing.T) {
	d := notify.NewDispatcher(zap.NewNop())
	assert.NotPanics(t, func() {
		d.Notify(context.Background(), sampleOrder(), models.EventCreated)
	})
}

func TestCustomerNotifier(t *testing.T) {
	db := testdb.Open(t)
	repo := repositories.NewGORMNotificationRepository(db)
	n := notify.NewCustomerNotifier(repo)
	ctx := context.Background()

	require.NoError(t, n.OnOrderEvent(ctx, models.OrderEvent{Order: sampleOrder(), Kind: models.EventCreated, OccurredAt: time.Now()}))
	require.NoError(t, n.OnOrderEvent(ctx, models.OrderEvent{Order: sampleOrder(), Kind: models.EventReady, OccurredAt: time.Now()}))

	list, err := repo.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, models.EventReady, list[0].Kind)
	assert.Equal(t, "Order #101 is ready for pickup.", list[0].Message)
	assert.Equal(t, "Order #101 placed. Total 27.60.", list[1].Message)
	assert.False(t, list[0].Read)
}

func TestVendorDashboard(t *testing.T) {
	db := testdb.Open(t)
	repo := repositories.NewGORMVendorStatsRepository(db)
	dash := notify.NewVendorDashboard(repo, time.UTC)
	ctx := context.Background()
	at := time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)

	for _, kind := range []models.EventKind{models.EventCreated, models.EventAccepted, models.EventCollected} {
		require.NoError(t, dash.OnOrderEvent(ctx, models.OrderEvent{Order: sampleOrder(), Kind: kind, OccurredAt: at}))
	}

	stats, err := repo.Get(ctx, "vendor-a", "2026-10-17")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Created)
	assert.Equal(t, 1, stats.Accepted)
	assert.Equal(t, 1, stats.Collected)
	assert.Equal(t, "27.60", stats.Revenue.StringFixed(2))
}

func TestAnalyticsCounter(t *testing.T) {
	t.Run("counts without a sink", func(t *testing.T) {
		a := notify.NewAnalyticsCounter(nil)
		ctx := context.Background()
		require.NoError(t, a.OnOrderEvent(ctx, models.OrderEvent{Order: sampleOrder(), Kind: models.EventCreated}))
		require.NoError(t, a.OnOrderEvent(ctx, models.OrderEvent{Order: sampleOrder(), Kind: models.EventCreated}))
		require.NoError(t, a.OnOrderEvent(ctx, models.OrderEvent{Order: sampleOrder(), Kind: models.EventCancelled}))

		snap := a.Snapshot()
		assert.Equal(t, int64(2), snap[models.EventCreated])
		assert.Equal(t, int64(1), snap[models.EventCancelled])
	})

	t.Run("streams to the sink", func(t *testing.T) {
		sink := new(MockPublisher)
		sink.On("Publish", mock.Anything, "order-1", mock.MatchedBy(func(m notify.EventMessage) bool {
			return m.Kind == "created" && m.Total == "27.60" && m.QueueNumber == 101
		})).Return(nil).Once()

		a := notify.NewAnalyticsCounter(sink)
		require.NoError(t, a.OnOrderEvent(context.Background(), models.OrderEvent{Order: sampleOrder(), Kind: models.EventCreated}))
		sink.AssertExpectations(t)
	})

	t.Run("sink errors surface but the count stays", func(t *testing.T) {
		sink := new(MockPublisher)
		sink.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))

		a := notify.NewAnalyticsCounter(sink)
		assert.Error(t, a.OnOrderEvent(context.Background(), models.OrderEvent{Order: sampleOrder(), Kind: models.EventReady}))
		assert.Equal(t, int64(1), a.Snapshot()[models.EventReady])
	})
}

func TestBrokerRelay(t *testing.T) {
	pub := new(MockRoutedPublisher)
	pub.On("PublishJSON", "order.accepted", mock.AnythingOfType("notify.EventMessage")).Return(nil).Once()

	relay := notify.NewBrokerRelay(pub)
	require.NoError(t, relay.OnOrderEvent(context.Background(), models.OrderEvent{Order: sampleOrder(), Kind: models.EventAccepted}))
	pub.AssertExpectations(t)
}
