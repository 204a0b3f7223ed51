package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"kantin/internal/models"
	"kantin/internal/orderstate"
	"kantin/internal/repositories"
)

// OrderService handles business logic related to orders after checkout.
// Every status change goes through orderstate and is written with an
// optimistic version check.
type OrderService struct {
	uow      repositories.UnitOfWork
	notifier EventNotifier
	log      *zap.Logger
	now      func() time.Time
}

// NewOrderService creates a new OrderService.
func NewOrderService(uow repositories.UnitOfWork, notifier EventNotifier, log *zap.Logger) *OrderService {
	return &OrderService{
		uow:      uow,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// TransitionResult is a committed status change.
type TransitionResult struct {
	Order       *models.Order      `json:"order"`
	From        models.OrderStatus `json:"from"`
	Description string             `json:"description"`
}

// GetOrderByID retrieves an order the principal may see.
func (s *OrderService) GetOrderByID(ctx context.Context, p Principal, id string) (*models.Order, error) {
	order, err := s.uow.Repositories().Orders.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("order %s: %w", id, ErrOrderNotFound)
	}
	if err != nil {
		s.log.Error("failed to load order", zap.String("order_id", id), zap.Error(err))
		return nil, ErrPersistence
	}
	if _, err := actorFor(p, order); err != nil {
		return nil, err
	}
	return order, nil
}

// ListOrders returns the orders a customer placed.
func (s *OrderService) ListOrders(ctx context.Context, p Principal) ([]models.Order, error) {
	orders, err := s.uow.Repositories().Orders.ListByUser(ctx, p.UserID)
	if err != nil {
		s.log.Error("failed to list orders", zap.String("user_id", p.UserID), zap.Error(err))
		return nil, ErrPersistence
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

// UpdateOrderStatus moves an order to the requested status.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, p Principal, id string, to models.OrderStatus) (*TransitionResult, error) {
	return s.change(ctx, p, "order "+id, byID(id), func(o models.Order, a orderstate.Actor) (orderstate.Result, error) {
		return orderstate.Transition(o, to, a)
	})
}

// AdvanceOrder moves an order one step along the pipeline.
func (s *OrderService) AdvanceOrder(ctx context.Context, p Principal, id string) (*TransitionResult, error) {
	return s.change(ctx, p, "order "+id, byID(id), orderstate.MoveToNext)
}

// CancelOrder cancels an order on behalf of its customer or its vendor.
func (s *OrderService) CancelOrder(ctx context.Context, p Principal, id string) (*TransitionResult, error) {
	return s.change(ctx, p, "order "+id, byID(id), orderstate.Cancel)
}

// CollectByQRCode completes the order whose pickup ticket was scanned.
func (s *OrderService) CollectByQRCode(ctx context.Context, p Principal, qrCode string) (*TransitionResult, error) {
	locate := func(ctx context.Context, r repositories.Repositories) (string, error) {
		order, err := r.Orders.GetByQRCode(ctx, qrCode)
		if err != nil {
			return "", err
		}
		return order.ID, nil
	}
	return s.change(ctx, p, "pickup "+qrCode, locate, func(o models.Order, a orderstate.Actor) (orderstate.Result, error) {
		return orderstate.Transition(o, models.OrderStatusCompleted, a)
	})
}

type locator func(ctx context.Context, r repositories.Repositories) (string, error)

type decider func(order models.Order, actor orderstate.Actor) (orderstate.Result, error)

func byID(id string) locator {
	return func(context.Context, repositories.Repositories) (string, error) { return id, nil }
}

// change applies one transition, retrying once if another request changed
// the order in between. ref names the order in errors returned to the caller.
func (s *OrderService) change(ctx context.Context, p Principal, ref string, locate locator, decide decider) (*TransitionResult, error) {
	res, event, err := s.applyOnce(ctx, p, locate, decide)
	if errors.Is(err, repositories.ErrConflict) {
		res, event, err = s.applyOnce(ctx, p, locate, decide)
	}
	if err != nil {
		return nil, s.classify(p, ref, err)
	}

	s.log.Info("order status changed",
		zap.String("order_id", res.Order.ID),
		zap.String("user_id", p.UserID),
		zap.String("description", res.Description))
	s.notifier.Notify(context.WithoutCancel(ctx), *res.Order, event)
	return res, nil
}

func (s *OrderService) applyOnce(ctx context.Context, p Principal, locate locator, decide decider) (*TransitionResult, models.EventKind, error) {
	var (
		res   *TransitionResult
		event models.EventKind
	)
	err := s.uow.Do(ctx, func(r repositories.Repositories) error {
		id, err := locate(ctx, r)
		if err != nil {
			return err
		}
		order, err := r.Orders.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		actor, err := actorFor(p, order)
		if err != nil {
			return err
		}

		outcome, err := decide(*order, actor)
		if err != nil {
			return err
		}
		if err := r.Orders.UpdateStatus(ctx, order.ID, outcome.From, order.Version, outcome.Order.Status); err != nil {
			return err
		}
		if err := s.applySideEffects(ctx, r, order.ID, outcome.Order.Status); err != nil {
			return err
		}

		updated, err := r.Orders.GetByID(ctx, order.ID)
		if err != nil {
			return err
		}
		res = &TransitionResult{Order: updated, From: outcome.From, Description: outcome.Description}
		event = outcome.Event
		return nil
	})
	return res, event, err
}

// applySideEffects keeps the pickup ticket and payment in step with the order.
func (s *OrderService) applySideEffects(ctx context.Context, r repositories.Repositories, orderID string, to models.OrderStatus) error {
	switch to {
	case models.OrderStatusReady:
		return r.Orders.UpdatePickupStatus(ctx, orderID, models.PickupStatusReady)
	case models.OrderStatusCompleted:
		if err := r.Orders.UpdatePickupStatus(ctx, orderID, models.PickupStatusCollected); err != nil {
			return err
		}
		order, err := r.Orders.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Payment != nil && order.Payment.Status == models.PaymentStatusPending {
			now := s.now()
			return r.Orders.UpdatePaymentStatus(ctx, orderID, models.PaymentStatusPaid, &now)
		}
	case models.OrderStatusCancelled:
		if err := r.Orders.UpdatePickupStatus(ctx, orderID, models.PickupStatusCancelled); err != nil {
			return err
		}
		order, err := r.Orders.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Payment != nil && order.Payment.Status == models.PaymentStatusPending {
			return r.Orders.UpdatePaymentStatus(ctx, orderID, models.PaymentStatusFailed, nil)
		}
	}
	return nil
}

func (s *OrderService) classify(p Principal, ref string, err error) error {
	switch {
	case errors.Is(err, orderstate.ErrIllegalTransition), errors.Is(err, ErrForbidden):
		return err
	case errors.Is(err, repositories.ErrNotFound):
		return fmt.Errorf("%s: %w", ref, ErrOrderNotFound)
	case errors.Is(err, repositories.ErrConflict):
		return ErrConcurrencyConflict
	default:
		s.log.Error("order transition failed", zap.String("user_id", p.UserID), zap.Error(err))
		return ErrPersistence
	}
}

// actorFor decides in which capacity p acts on order.
func actorFor(p Principal, order *models.Order) (orderstate.Actor, error) {
	switch {
	case p.Role == RoleCustomer && order.UserID == p.UserID:
		return orderstate.ActorCustomer, nil
	case p.Role == RoleVendor && p.VendorID != "" && order.VendorID == p.VendorID:
		return orderstate.ActorVendor, nil
	default:
		return "", fmt.Errorf("order %s: %w", order.ID, ErrForbidden)
	}
}
