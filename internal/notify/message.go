package notify

import (
	"time"

	"kantin/internal/models"
)

// EventMessage is the wire form of an order event on the brokers.
type EventMessage struct {
	OrderID     string    `json:"order_id"`
	CheckoutID  string    `json:"checkout_id"`
	UserID      string    `json:"user_id"`
	VendorID    string    `json:"vendor_id"`
	Kind        string    `json:"kind"`
	Status      string    `json:"status"`
	Total       string    `json:"total"`
	QueueNumber int       `json:"queue_number,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// NewEventMessage flattens event into an EventMessage.
func NewEventMessage(event models.OrderEvent) EventMessage {
	msg := EventMessage{
		OrderID:    event.Order.ID,
		CheckoutID: event.Order.CheckoutID,
		UserID:     event.Order.UserID,
		VendorID:   event.Order.VendorID,
		Kind:       string(event.Kind),
		Status:     string(event.Order.Status),
		Total:      event.Order.TotalPrice.StringFixed(2),
		OccurredAt: event.OccurredAt,
	}
	if event.Order.Pickup != nil {
		msg.QueueNumber = event.Order.Pickup.QueueNumber
	}
	return msg
}

// RoutingKey is the broker routing key of an event kind.
func RoutingKey(kind models.EventKind) string {
	return "order." + string(kind)
}
