package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"kantin/internal/services"
)

// AccountHandler handles HTTP requests about the signed-in user.
type AccountHandler struct {
	service *services.AccountService
	log     *zap.Logger
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(service *services.AccountService, log *zap.Logger) *AccountHandler {
	return &AccountHandler{service: service, log: log}
}

// RegisterRoutes registers the account and vendor dashboard routes.
func (h *AccountHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/me", h.HandleMe)
	router.Get("/vendors/:id/dashboard", h.HandleVendorDashboard)
}

// HandleMe returns the caller's loyalty points and notifications.
func (h *AccountHandler) HandleMe(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	summary, err := h.service.Summary(c.UserContext(), p)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(summary)
}

// HandleVendorDashboard returns a vendor's counters for ?day=YYYY-MM-DD, or today.
func (h *AccountHandler) HandleVendorDashboard(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	stats, err := h.service.VendorDashboard(c.UserContext(), p, c.Params("id"), c.Query("day"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(stats)
}
