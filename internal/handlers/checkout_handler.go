package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"kantin/internal/models"
	"kantin/internal/services"
)

// CheckoutHandler handles HTTP requests for checkout.
type CheckoutHandler struct {
	service  *services.CheckoutService
	validate *validator.Validate
	log      *zap.Logger
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(service *services.CheckoutService, log *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		service:  service,
		validate: validator.New(),
		log:      log,
	}
}

// RegisterRoutes registers the checkout route. Extra handlers, such as a rate
// limiter, run before the checkout itself.
func (h *CheckoutHandler) RegisterRoutes(router fiber.Router, before ...fiber.Handler) {
	handlers := append(before, h.HandleCheckout)
	router.Post("/checkout", handlers...)
}

// CheckoutRequest represents the request body for checkout.
type CheckoutRequest struct {
	PaymentMethod string `json:"payment_method" validate:"required,oneof=online ewallet cash"`
	PromotionCode string `json:"promotion_code" validate:"omitempty,max=64"`
}

// HandleCheckout turns the caller's cart into orders.
func (h *CheckoutHandler) HandleCheckout(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	var req CheckoutRequest
	if ok, err := parseBody(c, h.validate, &req); !ok {
		return err
	}

	res, err := h.service.Checkout(c.UserContext(), services.CheckoutRequest{
		UserID:        p.UserID,
		PaymentMethod: models.PaymentMethod(req.PaymentMethod),
		PromotionCode: req.PromotionCode,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(fiber.Map{
		"message":        "Checkout successful",
		"checkout_id":    res.CheckoutID,
		"order_ids":      res.OrderIDs,
		"orders":         res.Orders,
		"quote":          res.Quote,
		"points_awarded": res.PointsAwarded,
	})
}
