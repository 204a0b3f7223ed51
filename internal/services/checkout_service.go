package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"kantin/internal/models"
	"kantin/internal/orderstate"
	"kantin/internal/pricing"
	"kantin/internal/repositories"
	"kantin/pkg/payment"
)

// EventNotifier receives committed order events.
type EventNotifier interface {
	Notify(ctx context.Context, order models.Order, kind models.EventKind)
}

// CheckoutRequest is a user's request to turn their cart into orders.
type CheckoutRequest struct {
	UserID        string
	PaymentMethod models.PaymentMethod
	PromotionCode string
}

// CheckoutResult describes a committed checkout.
type CheckoutResult struct {
	CheckoutID    string         `json:"checkout_id"`
	OrderIDs      []string       `json:"order_ids"`
	Orders        []models.Order `json:"orders"`
	Quote         pricing.Quote  `json:"quote"`
	PointsAwarded int64          `json:"points_awarded"`
}

// CheckoutService turns a cart into one order per vendor. Either every order
// of a checkout is stored together with the voucher use, the loyalty points
// and the emptied cart, or nothing is.
type CheckoutService struct {
	uow        repositories.UnitOfWork
	engine     pricing.Engine
	validator  pricing.VoucherValidator
	queue      *QueueAssigner
	gateway    payment.Gateway
	notifier   EventNotifier
	serviceFee decimal.Decimal
	log        *zap.Logger
	now        func() time.Time
}

// NewCheckoutService creates a new CheckoutService.
func NewCheckoutService(
	uow repositories.UnitOfWork,
	engine pricing.Engine,
	validator pricing.VoucherValidator,
	queue *QueueAssigner,
	gateway payment.Gateway,
	notifier EventNotifier,
	serviceFee decimal.Decimal,
	log *zap.Logger,
) *CheckoutService {
	return &CheckoutService{
		uow:        uow,
		engine:     engine,
		validator:  validator,
		queue:      queue,
		gateway:    gateway,
		notifier:   notifier,
		serviceFee: serviceFee,
		log:        log,
		now:        time.Now,
	}
}

// vendorGroup is the part of a cart sold by one vendor.
type vendorGroup struct {
	vendorID string
	items    []models.OrderItem
	subtotal decimal.Decimal
}

// Checkout places the user's cart. A lost race on a queue number or on the
// voucher is retried once before it is reported as ErrConcurrencyConflict.
func (s *CheckoutService) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	switch req.PaymentMethod {
	case models.PaymentMethodOnline, models.PaymentMethodEWallet, models.PaymentMethodCash:
	default:
		return nil, fmt.Errorf("%w: unknown payment method %q", ErrInvalidInput, req.PaymentMethod)
	}

	res, err := s.attempt(ctx, req)
	if errors.Is(err, repositories.ErrConflict) {
		s.log.Warn("checkout conflicted, retrying", zap.String("user_id", req.UserID), zap.Error(err))
		res, err = s.attempt(ctx, req)
	}
	if err != nil {
		return nil, s.classify(req, err)
	}

	notifyCtx := context.WithoutCancel(ctx)
	for _, order := range res.Orders {
		s.notifier.Notify(notifyCtx, order, models.EventCreated)
	}

	s.log.Info("checkout completed",
		zap.String("user_id", req.UserID),
		zap.String("checkout_id", res.CheckoutID),
		zap.Strings("order_ids", res.OrderIDs),
		zap.String("total", res.Quote.Total.StringFixed(2)),
		zap.String("strategy", string(res.Quote.Strategy)))
	return res, nil
}

// attempt runs one checkout transaction. Charges taken during a failed
// attempt are refunded before it returns.
func (s *CheckoutService) attempt(ctx context.Context, req CheckoutRequest) (res *CheckoutResult, err error) {
	var charged []string
	defer func() {
		if p := recover(); p != nil {
			s.log.Error("checkout panicked",
				zap.String("user_id", req.UserID),
				zap.Any("panic", p),
				zap.Stack("stack"))
			res, err = nil, ErrPersistence
		}
		if err != nil {
			s.refund(ctx, req.UserID, charged)
		}
	}()

	now := s.now()
	err = s.uow.Do(ctx, func(r repositories.Repositories) error {
		lines, err := r.Carts.GetCart(ctx, req.UserID)
		if err != nil {
			return fmt.Errorf("load cart: %w", err)
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		groups, itemCount, err := s.groupByVendor(ctx, r, lines)
		if err != nil {
			return err
		}

		subtotal := decimal.Zero
		subtotals := make([]decimal.Decimal, len(groups))
		for i, g := range groups {
			subtotals[i] = g.subtotal
			subtotal = subtotal.Add(g.subtotal)
		}

		promo, err := s.loadPromotion(ctx, r, req, subtotal, now)
		if err != nil {
			return err
		}
		quote := s.engine.Compute(subtotal, s.serviceFee, itemCount, promo)
		shares := pricing.Split(subtotals, quote.ServiceFee, quote.Discount)

		res = &CheckoutResult{CheckoutID: uuid.New().String(), Quote: quote}
		for i, g := range groups {
			order, ref, err := s.placeOrder(ctx, r, req, res.CheckoutID, g, shares[i], now)
			if ref != "" {
				charged = append(charged, ref)
			}
			if err != nil {
				return err
			}
			res.Orders = append(res.Orders, *order)
			res.OrderIDs = append(res.OrderIDs, order.ID)
		}

		if quote.VoucherApplied() {
			if err := r.Promotions.MarkUsed(ctx, promo.ID, now); err != nil {
				return fmt.Errorf("consume voucher %s: %w", promo.Code, err)
			}
		}
		res.PointsAwarded = quote.Total.Floor().IntPart()
		if res.PointsAwarded > 0 {
			if err := r.Loyalty.AddPoints(ctx, req.UserID, res.PointsAwarded); err != nil {
				return fmt.Errorf("award loyalty points: %w", err)
			}
		}
		if err := r.Carts.ClearCart(ctx, req.UserID); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// groupByVendor prices every cart line from the live catalog, takes the stock
// and partitions the lines by vendor. Stock rows are locked in item id order
// so concurrent checkouts never wait on each other in a cycle. Groups come
// back sorted by vendor id.
func (s *CheckoutService) groupByVendor(ctx context.Context, r repositories.Repositories, lines []models.CartLine) ([]*vendorGroup, int, error) {
	lines = append([]models.CartLine(nil), lines...)
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].ItemID < lines[j].ItemID })

	byVendor := make(map[string]*vendorGroup)
	itemCount := 0
	for _, line := range lines {
		item, err := r.Catalog.GetAvailableItem(ctx, line.ItemID)
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, 0, fmt.Errorf("item %s: %w", line.ItemID, ErrItemUnavailable)
		}
		if err != nil {
			return nil, 0, fmt.Errorf("load item %s: %w", line.ItemID, err)
		}
		if !item.IsAvailable {
			return nil, 0, fmt.Errorf("%s: %w", item.Name, ErrItemUnavailable)
		}
		if err := r.Catalog.DecrementStock(ctx, item.ID, line.Quantity); err != nil {
			if errors.Is(err, repositories.ErrInsufficientStock) {
				return nil, 0, fmt.Errorf("%s: %w", item.Name, ErrOutOfStock)
			}
			return nil, 0, fmt.Errorf("take stock of %s: %w", item.ID, err)
		}

		g, ok := byVendor[item.VendorID]
		if !ok {
			g = &vendorGroup{vendorID: item.VendorID, subtotal: decimal.Zero}
			byVendor[item.VendorID] = g
		}
		oi := models.OrderItem{
			ItemID:         item.ID,
			Name:           item.Name,
			Quantity:       line.Quantity,
			UnitPrice:      item.Price,
			SpecialRequest: line.SpecialRequest,
		}
		g.items = append(g.items, oi)
		g.subtotal = g.subtotal.Add(oi.LineTotal())
		itemCount += line.Quantity
	}

	groups := make([]*vendorGroup, 0, len(byVendor))
	for _, g := range byVendor {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].vendorID < groups[j].vendorID })
	return groups, itemCount, nil
}

func (s *CheckoutService) loadPromotion(ctx context.Context, r repositories.Repositories, req CheckoutRequest, subtotal decimal.Decimal, now time.Time) (*pricing.ValidatedPromotion, error) {
	if req.PromotionCode == "" {
		return nil, nil
	}
	promo, err := r.Promotions.FindByUserAndCode(ctx, req.UserID, req.PromotionCode)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, pricing.ErrVoucherNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load voucher %s: %w", req.PromotionCode, err)
	}
	return s.validator.Validate(promo, subtotal, now)
}

// placeOrder stores one vendor's order with its payment and pickup. The
// returned reference is set whenever money was taken, even if a later step
// failed.
func (s *CheckoutService) placeOrder(ctx context.Context, r repositories.Repositories, req CheckoutRequest, checkoutID string, g *vendorGroup, share pricing.Share, now time.Time) (*models.Order, string, error) {
	order := &models.Order{
		ID:         uuid.New().String(),
		CheckoutID: checkoutID,
		UserID:     req.UserID,
		VendorID:   g.vendorID,
		Subtotal:   share.Subtotal,
		ServiceFee: share.ServiceFee,
		Discount:   share.Discount,
		TotalPrice: share.Total,
		Status:     orderstate.Initial(),
		Version:    1,
		Items:      g.items,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	pickup, err := s.queue.Assign(ctx, r.Queue, order.ID, g.vendorID, now)
	if err != nil {
		return nil, "", err
	}
	order.Pickup = pickup

	pay, err := s.settle(ctx, order, req.PaymentMethod, now)
	if err != nil {
		return nil, "", err
	}
	order.Payment = pay

	ref := ""
	if req.PaymentMethod == models.PaymentMethodOnline && pay.TransactionRef != nil {
		ref = *pay.TransactionRef
	}
	if err := r.Orders.Create(ctx, order); err != nil {
		return nil, ref, fmt.Errorf("store order for vendor %s: %w", g.vendorID, err)
	}
	return order, ref, nil
}

// settle builds the payment record of order. Online payments are charged
// here; a decline fails the whole checkout.
func (s *CheckoutService) settle(ctx context.Context, order *models.Order, method models.PaymentMethod, now time.Time) (*models.Payment, error) {
	pay := &models.Payment{
		OrderID: order.ID,
		Method:  method,
		Status:  models.PaymentStatusPending,
		Amount:  order.TotalPrice,
	}

	switch method {
	case models.PaymentMethodOnline:
		res, err := s.gateway.Charge(ctx, payment.ChargeRequest{
			OrderID: order.ID,
			UserID:  order.UserID,
			Amount:  order.TotalPrice,
		})
		if err != nil {
			return nil, fmt.Errorf("vendor %s: %v: %w", order.VendorID, err, ErrPaymentDeclined)
		}
		pay.Status = models.PaymentStatusPaid
		pay.TransactionRef = &res.TransactionRef
		pay.PaidAt = &now
	case models.PaymentMethodEWallet:
		ref := "EW-" + uuid.New().String()
		pay.Status = models.PaymentStatusPaid
		pay.TransactionRef = &ref
		pay.PaidAt = &now
	}
	return pay, nil
}

func (s *CheckoutService) refund(ctx context.Context, userID string, refs []string) {
	refundCtx := context.WithoutCancel(ctx)
	for _, ref := range refs {
		if err := s.gateway.Refund(refundCtx, ref); err != nil {
			s.log.Error("refund failed",
				zap.String("user_id", userID),
				zap.String("transaction_ref", ref),
				zap.Error(err))
			continue
		}
		s.log.Info("charge refunded", zap.String("user_id", userID), zap.String("transaction_ref", ref))
	}
}

// classify keeps expected outcomes as they are and hides everything else
// behind a generic error after logging it.
func (s *CheckoutService) classify(req CheckoutRequest, err error) error {
	var voucherErr *pricing.VoucherError
	switch {
	case errors.Is(err, ErrEmptyCart),
		errors.Is(err, ErrPaymentDeclined),
		errors.Is(err, ErrItemUnavailable),
		errors.Is(err, ErrOutOfStock),
		errors.Is(err, ErrInvalidInput),
		errors.As(err, &voucherErr):
		s.log.Info("checkout rejected", zap.String("user_id", req.UserID), zap.Error(err))
		return err
	case errors.Is(err, repositories.ErrConflict):
		s.log.Warn("checkout conflicted twice", zap.String("user_id", req.UserID), zap.Error(err))
		return ErrConcurrencyConflict
	case errors.Is(err, ErrPersistence):
		return err
	default:
		s.log.Error("checkout failed",
			zap.String("user_id", req.UserID),
			zap.String("payment_method", string(req.PaymentMethod)),
			zap.String("promotion_code", req.PromotionCode),
			zap.Error(err))
		return ErrPersistence
	}
}
