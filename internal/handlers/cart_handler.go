package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"kantin/internal/services"
)

// CartHandler handles HTTP requests for the caller's cart.
type CartHandler struct {
	service  *services.CartService
	validate *validator.Validate
	log      *zap.Logger
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(service *services.CartService, log *zap.Logger) *CartHandler {
	return &CartHandler{
		service:  service,
		validate: validator.New(),
		log:      log,
	}
}

// RegisterRoutes registers the cart routes with the Fiber app.
func (h *CartHandler) RegisterRoutes(router fiber.Router) {
	cartRoutes := router.Group("/cart")
	cartRoutes.Get("/", h.HandleGetCart)
	cartRoutes.Post("/items", h.HandleAddItem)
	cartRoutes.Delete("/items/:itemId", h.HandleRemoveItem)
}

// AddItemRequest represents the request body for adding an item to the cart.
type AddItemRequest struct {
	ItemID         string `json:"item_id" validate:"required"`
	Quantity       int    `json:"quantity" validate:"required,min=1,max=10"`
	SpecialRequest string `json:"special_request" validate:"max=255"`
}

// HandleGetCart returns the caller's cart.
func (h *CartHandler) HandleGetCart(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	cart, err := h.service.GetCart(c.UserContext(), p.UserID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(cart)
}

// HandleAddItem adds an item to the caller's cart or replaces its line.
func (h *CartHandler) HandleAddItem(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	var req AddItemRequest
	if ok, err := parseBody(c, h.validate, &req); !ok {
		return err
	}

	line, err := h.service.AddItem(c.UserContext(), p.UserID, req.ItemID, req.Quantity, req.SpecialRequest)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(line)
}

// HandleRemoveItem removes an item from the caller's cart.
func (h *CartHandler) HandleRemoveItem(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	if err := h.service.RemoveItem(c.UserContext(), p.UserID, c.Params("itemId")); err != nil {
		return respondError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
