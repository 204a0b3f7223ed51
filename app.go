package main

import (
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"kantin/internal/config"
	"kantin/internal/handlers"
	"kantin/internal/middleware"
	"kantin/internal/notify"
	"kantin/internal/pricing"
	"kantin/internal/repositories"
	"kantin/internal/services"
	"kantin/pkg/payment"
)

// Dependencies is everything NewApp puts behind the HTTP routes.
type Dependencies struct {
	DB              *gorm.DB
	Identity        *services.IdentityService
	Checkout        *services.CheckoutService
	Carts           *services.CartService
	Orders          *services.OrderService
	Accounts        *services.AccountService
	Analytics       *notify.AnalyticsCounter
	CheckoutLimiter *middleware.RateLimiter
	Log             *zap.Logger
}

// newDependencies builds the services over db. Events go to dispatcher and
// online payments to gateway.
func newDependencies(cfg *config.Config, db *gorm.DB, dispatcher *notify.Dispatcher, analytics *notify.AnalyticsCounter, gateway payment.Gateway, log *zap.Logger) Dependencies {
	uow := repositories.NewGORMUnitOfWork(db)

	checkout := services.NewCheckoutService(
		uow,
		pricing.NewEngine(cfg.BulkThreshold, cfg.BulkDiscountPercent),
		pricing.NewVoucherValidator(cfg.VoucherValidity),
		services.NewQueueAssigner(cfg.QueueBase, cfg.QueueLocation),
		gateway,
		dispatcher,
		cfg.ServiceFee,
		log,
	)

	return Dependencies{
		DB:              db,
		Identity:        services.NewIdentityService(cfg.JWTSecret, log),
		Checkout:        checkout,
		Carts:           services.NewCartService(uow),
		Orders:          services.NewOrderService(uow, dispatcher, log),
		Accounts:        services.NewAccountService(uow, cfg.QueueLocation, log),
		Analytics:       analytics,
		CheckoutLimiter: middleware.NewRateLimiter(cfg.CheckoutRatePerMinute),
		Log:             log,
	}
}

// subscribeObservers registers the observers that live inside the service.
func subscribeObservers(cfg *config.Config, db *gorm.DB, dispatcher *notify.Dispatcher, analytics *notify.AnalyticsCounter) {
	repos := repositories.NewGORMRepositories(db)
	dispatcher.Subscribe("customer-notifier", notify.NewCustomerNotifier(repos.Notifications))
	dispatcher.Subscribe("vendor-dashboard", notify.NewVendorDashboard(repos.VendorStats, cfg.QueueLocation))
	dispatcher.Subscribe("analytics", analytics)
}

// NewApp builds the Fiber app with every route registered.
func NewApp(deps Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{AppName: "kantin"})

	// --- Middleware ---
	app.Use(recover.New())
	app.Use(fiberlogger.New())

	// --- Health Check Endpoint ---
	app.Get("/health", func(c *fiber.Ctx) error {
		status, code := "healthy", fiber.StatusOK
		if sqlDB, err := deps.DB.DB(); err != nil || sqlDB.PingContext(c.UserContext()) != nil {
			status, code = "unhealthy", fiber.StatusServiceUnavailable
		}
		body := fiber.Map{
			"status": status,
			"time":   time.Now().Format(time.RFC3339),
		}
		if deps.Analytics != nil {
			body["events"] = deps.Analytics.Snapshot()
		}
		return c.Status(code).JSON(body)
	})

	// --- API Routes ---
	apiV1 := app.Group("/api/v1", middleware.AuthRequired(deps.Identity))

	handlers.NewCheckoutHandler(deps.Checkout, deps.Log).
		RegisterRoutes(apiV1, middleware.PerUser(deps.CheckoutLimiter))
	handlers.NewCartHandler(deps.Carts, deps.Log).RegisterRoutes(apiV1)
	handlers.NewOrderHandler(deps.Orders, deps.Log).RegisterRoutes(apiV1)
	handlers.NewAccountHandler(deps.Accounts, deps.Log).RegisterRoutes(apiV1)

	return app
}
