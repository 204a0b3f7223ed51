package handlers

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"kantin/internal/middleware"
	"kantin/internal/orderstate"
	"kantin/internal/pricing"
	"kantin/internal/repositories"
	"kantin/internal/services"
)

// respondError writes the HTTP form of err. Anything not recognised as an
// expected outcome is logged and answered with a generic 500.
func respondError(c *fiber.Ctx, log *zap.Logger, err error) error {
	var voucherErr *pricing.VoucherError
	switch {
	case errors.As(err, &voucherErr):
		return reply(c, fiber.StatusBadRequest, "voucher_"+string(voucherErr.Code), voucherErr.Message)
	case errors.Is(err, services.ErrEmptyCart):
		return reply(c, fiber.StatusBadRequest, "empty_cart", "Your cart is empty")
	case errors.Is(err, services.ErrItemUnavailable):
		return reply(c, fiber.StatusBadRequest, "item_unavailable", err.Error())
	case errors.Is(err, services.ErrOutOfStock):
		return reply(c, fiber.StatusBadRequest, "out_of_stock", err.Error())
	case errors.Is(err, services.ErrInvalidInput):
		return reply(c, fiber.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, services.ErrPaymentDeclined):
		return reply(c, fiber.StatusPaymentRequired, "payment_declined", "Payment was declined, nothing was charged")
	case errors.Is(err, services.ErrForbidden):
		return reply(c, fiber.StatusForbidden, "forbidden", "You are not allowed to do this")
	case errors.Is(err, services.ErrOrderNotFound), errors.Is(err, repositories.ErrNotFound):
		return reply(c, fiber.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, orderstate.ErrIllegalTransition):
		return reply(c, fiber.StatusConflict, "illegal_transition", err.Error())
	case errors.Is(err, services.ErrConcurrencyConflict):
		return reply(c, fiber.StatusConflict, "conflict", services.ErrConcurrencyConflict.Error())
	default:
		if !errors.Is(err, services.ErrPersistence) {
			log.Error("unhandled error",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err))
		}
		return reply(c, fiber.StatusInternalServerError, "internal", "Something went wrong, please try again")
	}
}

func reply(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"message": message,
		"code":    code,
	})
}

// parseBody binds the JSON body into dst and validates it. It reports false
// after writing a 400 response.
func parseBody(c *fiber.Ctx, validate *validator.Validate, dst interface{}) (bool, error) {
	if err := c.BodyParser(dst); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := validate.Struct(dst); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "Validation failed",
			})
		}
		errorMessages := make(map[string]string)
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  errorMessages,
		})
	}
	return true, nil
}

// principal returns the caller set by middleware.AuthRequired.
func principal(c *fiber.Ctx) (services.Principal, error) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return services.Principal{}, fiber.ErrUnauthorized
	}
	return p, nil
}
