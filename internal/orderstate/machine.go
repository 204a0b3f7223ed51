// Package orderstate owns the order lifecycle. The transition table below is
// the only place that decides which status changes are legal and who may
// request them.
package orderstate

import (
	"errors"
	"fmt"

	"kantin/internal/models"
)

// Actor is the party asking for a transition.
type Actor string

const (
	ActorCustomer Actor = "customer"
	ActorVendor   Actor = "vendor"
)

var ErrIllegalTransition = errors.New("illegal order status transition")

// TransitionError describes a rejected transition. It matches
// ErrIllegalTransition with errors.Is.
type TransitionError struct {
	From  models.OrderStatus
	To    models.OrderStatus
	Actor Actor
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s cannot move an order from %s to %s", e.Actor, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrIllegalTransition
}

type edge struct {
	from models.OrderStatus
	to   models.OrderStatus
}

type rule struct {
	actors []Actor
	event  models.EventKind
}

var transitions = map[edge]rule{
	{models.OrderStatusPending, models.OrderStatusAccepted}:   {[]Actor{ActorVendor}, models.EventAccepted},
	{models.OrderStatusAccepted, models.OrderStatusPreparing}: {[]Actor{ActorVendor}, models.EventPreparing},
	{models.OrderStatusPreparing, models.OrderStatusReady}:    {[]Actor{ActorVendor}, models.EventReady},
	{models.OrderStatusReady, models.OrderStatusCompleted}:    {[]Actor{ActorVendor}, models.EventCollected},

	{models.OrderStatusPending, models.OrderStatusCancelled}:   {[]Actor{ActorCustomer, ActorVendor}, models.EventCancelled},
	{models.OrderStatusAccepted, models.OrderStatusCancelled}:  {[]Actor{ActorCustomer, ActorVendor}, models.EventCancelled},
	{models.OrderStatusPreparing, models.OrderStatusCancelled}: {[]Actor{ActorCustomer, ActorVendor}, models.EventCancelled},
	// Food that is already waiting on the counter can only be written off by the vendor.
	{models.OrderStatusReady, models.OrderStatusCancelled}: {[]Actor{ActorVendor}, models.EventCancelled},
}

var forward = map[models.OrderStatus]models.OrderStatus{
	models.OrderStatusPending:   models.OrderStatusAccepted,
	models.OrderStatusAccepted:  models.OrderStatusPreparing,
	models.OrderStatusPreparing: models.OrderStatusReady,
	models.OrderStatusReady:     models.OrderStatusCompleted,
}

// Initial is the status every new order starts in.
func Initial() models.OrderStatus {
	return models.OrderStatusPending
}

// NextStatus returns the status one step forward of s.
func NextStatus(s models.OrderStatus) (models.OrderStatus, bool) {
	next, ok := forward[s]
	return next, ok
}

// Allowed reports whether actor may move an order from one status to another.
func Allowed(from, to models.OrderStatus, actor Actor) bool {
	r, ok := transitions[edge{from, to}]
	if !ok {
		return false
	}
	for _, a := range r.actors {
		if a == actor {
			return true
		}
	}
	return false
}

// Result is the outcome of an accepted transition.
type Result struct {
	Order       models.Order
	From        models.OrderStatus
	Event       models.EventKind
	Description string
}

// Transition moves order to the requested status. The given order is not
// modified; the returned Result carries the updated copy and the single event
// the change produces.
func Transition(order models.Order, to models.OrderStatus, actor Actor) (Result, error) {
	from := order.Status
	r, ok := transitions[edge{from, to}]
	if !ok || !Allowed(from, to, actor) {
		return Result{}, &TransitionError{From: from, To: to, Actor: actor}
	}

	order.Status = to
	return Result{
		Order:       order,
		From:        from,
		Event:       r.event,
		Description: describe(order.ID, from, to, actor),
	}, nil
}

// MoveToNext advances order exactly one step along the fulfilment pipeline.
func MoveToNext(order models.Order, actor Actor) (Result, error) {
	next, ok := NextStatus(order.Status)
	if !ok {
		return Result{}, &TransitionError{From: order.Status, To: order.Status, Actor: actor}
	}
	return Transition(order, next, actor)
}

// Cancel moves order to cancelled.
func Cancel(order models.Order, actor Actor) (Result, error) {
	return Transition(order, models.OrderStatusCancelled, actor)
}

func describe(orderID string, from, to models.OrderStatus, actor Actor) string {
	if to == models.OrderStatusCancelled {
		return fmt.Sprintf("order %s cancelled by %s while %s", orderID, actor, from)
	}
	return fmt.Sprintf("order %s moved from %s to %s by %s", orderID, from, to, actor)
}
