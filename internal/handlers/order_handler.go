package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"kantin/internal/middleware"
	"kantin/internal/models"
	"kantin/internal/services"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service  *services.OrderService
	validate *validator.Validate
	log      *zap.Logger
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService, log *zap.Logger) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: validator.New(),
		log:      log,
	}
}

// RegisterRoutes registers the order and pickup routes with the Fiber app.
func (h *OrderHandler) RegisterRoutes(router fiber.Router) {
	orderRoutes := router.Group("/orders")
	orderRoutes.Get("/", h.HandleGetOrders)
	orderRoutes.Get("/:id", h.HandleGetOrderByID)
	orderRoutes.Put("/:id/status", h.HandleUpdateOrderStatus)
	orderRoutes.Post("/:id/advance", middleware.VendorOnly(), h.HandleAdvanceOrder)
	orderRoutes.Post("/:id/cancel", h.HandleCancelOrder)

	router.Post("/pickups/verify", middleware.VendorOnly(), h.HandleVerifyPickup)
}

// UpdateStatusRequest represents the request body for a status change.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending accepted preparing ready completed cancelled"`
}

// VerifyPickupRequest represents a scanned pickup ticket.
type VerifyPickupRequest struct {
	QRCode string `json:"qr_code" validate:"required,max=64"`
}

// HandleGetOrders lists the caller's own orders.
func (h *OrderHandler) HandleGetOrders(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	orders, err := h.service.ListOrders(c.UserContext(), p)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(orders)
}

// HandleGetOrderByID retrieves a single order by its ID.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	order, err := h.service.GetOrderByID(c.UserContext(), p, c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(order)
}

// HandleUpdateOrderStatus moves an order to the requested status.
func (h *OrderHandler) HandleUpdateOrderStatus(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	var req UpdateStatusRequest
	if ok, err := parseBody(c, h.validate, &req); !ok {
		return err
	}

	res, err := h.service.UpdateOrderStatus(c.UserContext(), p, c.Params("id"), models.OrderStatus(req.Status))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return transitioned(c, res)
}

// HandleAdvanceOrder moves an order one step along the pipeline.
func (h *OrderHandler) HandleAdvanceOrder(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	res, err := h.service.AdvanceOrder(c.UserContext(), p, c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return transitioned(c, res)
}

// HandleCancelOrder cancels an order.
func (h *OrderHandler) HandleCancelOrder(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	res, err := h.service.CancelOrder(c.UserContext(), p, c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return transitioned(c, res)
}

// HandleVerifyPickup completes the order whose ticket was scanned at the counter.
func (h *OrderHandler) HandleVerifyPickup(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	var req VerifyPickupRequest
	if ok, err := parseBody(c, h.validate, &req); !ok {
		return err
	}

	res, err := h.service.CollectByQRCode(c.UserContext(), p, req.QRCode)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return transitioned(c, res)
}

func transitioned(c *fiber.Ctx, res *services.TransitionResult) error {
	return c.JSON(fiber.Map{
		"message": res.Description,
		"status":  res.Order.Status,
		"order":   res.Order,
	})
}
