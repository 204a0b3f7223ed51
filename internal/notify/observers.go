package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"kantin/internal/models"
	"kantin/internal/repositories"
)

// CustomerNotifier writes a notification for the customer who owns the order.
type CustomerNotifier struct {
	repo repositories.NotificationRepository
}

func NewCustomerNotifier(repo repositories.NotificationRepository) *CustomerNotifier {
	return &CustomerNotifier{repo: repo}
}

func (n *CustomerNotifier) OnOrderEvent(ctx context.Context, event models.OrderEvent) error {
	return n.repo.Create(ctx, &models.Notification{
		UserID:  event.Order.UserID,
		OrderID: event.Order.ID,
		Kind:    event.Kind,
		Message: customerMessage(event),
	})
}

func customerMessage(event models.OrderEvent) string {
	queue := ""
	if event.Order.Pickup != nil {
		queue = fmt.Sprintf(" #%d", event.Order.Pickup.QueueNumber)
	}
	switch event.Kind {
	case models.EventCreated:
		return fmt.Sprintf("Order%s placed. Total %s.", queue, event.Order.TotalPrice.StringFixed(2))
	case models.EventAccepted:
		return fmt.Sprintf("Order%s was accepted by the vendor.", queue)
	case models.EventPreparing:
		return fmt.Sprintf("Order%s is being prepared.", queue)
	case models.EventReady:
		return fmt.Sprintf("Order%s is ready for pickup.", queue)
	case models.EventCollected:
		return fmt.Sprintf("Order%s was collected. Enjoy your meal!", queue)
	case models.EventCancelled:
		return fmt.Sprintf("Order%s was cancelled.", queue)
	default:
		return fmt.Sprintf("Order%s was updated.", queue)
	}
}

// VendorDashboard keeps the per-day counters shown on a vendor's dashboard.
// Revenue is booked when an order is collected.
type VendorDashboard struct {
	repo repositories.VendorStatsRepository
	loc  *time.Location
}

func NewVendorDashboard(repo repositories.VendorStatsRepository, loc *time.Location) *VendorDashboard {
	return &VendorDashboard{repo: repo, loc: loc}
}

func (v *VendorDashboard) OnOrderEvent(ctx context.Context, event models.OrderEvent) error {
	revenue := decimal.Zero
	if event.Kind == models.EventCollected {
		revenue = event.Order.TotalPrice
	}
	day := models.Day(event.OccurredAt, v.loc)
	return v.repo.Increment(ctx, event.Order.VendorID, day, event.Kind, revenue)
}

// Publisher is a message stream keyed by order.
type Publisher interface {
	Publish(ctx context.Context, key string, v interface{}) error
}

// AnalyticsCounter counts events per kind in memory and, when a sink is set,
// streams every event to it.
type AnalyticsCounter struct {
	mu     sync.Mutex
	counts map[models.EventKind]int64
	sink   Publisher
}

// NewAnalyticsCounter creates a counter. sink may be nil.
func NewAnalyticsCounter(sink Publisher) *AnalyticsCounter {
	return &AnalyticsCounter{counts: make(map[models.EventKind]int64), sink: sink}
}

func (a *AnalyticsCounter) OnOrderEvent(ctx context.Context, event models.OrderEvent) error {
	a.mu.Lock()
	a.counts[event.Kind]++
	a.mu.Unlock()

	if a.sink == nil {
		return nil
	}
	return a.sink.Publish(ctx, event.Order.ID, NewEventMessage(event))
}

// Snapshot returns a copy of the counters.
func (a *AnalyticsCounter) Snapshot() map[models.EventKind]int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[models.EventKind]int64, len(a.counts))
	for k, n := range a.counts {
		out[k] = n
	}
	return out
}

// RoutedPublisher publishes a message under a routing key.
type RoutedPublisher interface {
	PublishJSON(routingKey string, v interface{}) error
}

// BrokerRelay forwards events to the message broker as order.<kind>.
type BrokerRelay struct {
	pub RoutedPublisher
}

func NewBrokerRelay(pub RoutedPublisher) *BrokerRelay {
	return &BrokerRelay{pub: pub}
}

func (b *BrokerRelay) OnOrderEvent(_ context.Context, event models.OrderEvent) error {
	return b.pub.PublishJSON(RoutingKey(event.Kind), NewEventMessage(event))
}
