package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"kantin/internal/config"
	"kantin/internal/database"
	"kantin/internal/logger"
	"kantin/internal/models"
	"kantin/internal/notify"
	"kantin/internal/repositories"
	"kantin/internal/services"
	"kantin/pkg/kafka"
	"kantin/pkg/payment"
	"kantin/pkg/rabbitmq"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(cfg.LogEnv)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()

	// --- Database ---
	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseDSN, zlog)
	if err != nil {
		zlog.Fatal("failed to open database", zap.Error(err))
	}
	if err := repositories.Migrate(db); err != nil {
		zlog.Fatal("failed to migrate database", zap.Error(err))
	}

	// --- Event observers ---
	dispatcher := notify.NewDispatcher(zlog)

	var sink notify.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaAnalyticsTopic)
		defer producer.Close()
		sink = producer
		zlog.Info("streaming order analytics to kafka",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic", cfg.KafkaAnalyticsTopic))
	}
	analytics := notify.NewAnalyticsCounter(sink)
	subscribeObservers(cfg, db, dispatcher, analytics)

	if cfg.RabbitMQURL != "" {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL}, zlog)
		if err != nil {
			zlog.Fatal("failed to initialize RabbitMQ client", zap.Error(err))
		}
		defer mqClient.Close()
		dispatcher.Subscribe("broker-relay", notify.NewBrokerRelay(mqClient))

		// Log what downstream consumers of the exchange receive.
		messageHandler := func(msg amqp.Delivery) error {
			zlog.Info("order event received",
				zap.String("routing_key", msg.RoutingKey),
				zap.ByteString("body", msg.Body))
			return nil
		}
		if err := mqClient.ConsumeOrderEvents("kantin.order-events", messageHandler); err != nil {
			zlog.Error("failed to start RabbitMQ consumer", zap.Error(err))
		}
	}

	// --- Services and HTTP ---
	gateway := payment.NewBreakerGateway(
		payment.NewSimulatedGateway(cfg.PaymentDeclineRate),
		cfg.PaymentTimeout,
		zlog,
	)
	deps := newDependencies(cfg, db, dispatcher, analytics, gateway, zlog)

	if cfg.DatabaseDriver == "sqlite" {
		seedDemo(context.Background(), repositories.NewGORMRepositories(db), deps.Identity, zlog)
	}

	app := NewApp(deps)

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		zlog.Info("starting server", zap.String("port", cfg.AppPort))
		if err := app.Listen(cfg.AppPort); err != nil {
			zlog.Fatal("server failed to start", zap.Error(err))
		}
	}()

	<-quit
	zlog.Info("shutting down server")
	if err := app.Shutdown(); err != nil {
		zlog.Error("error during Fiber shutdown", zap.Error(err))
	}
	zlog.Info("server gracefully stopped")
}

// demoMenu is served when running on SQLite so the API can be tried locally.
var demoMenu = []models.MenuItem{
	{ID: "menu-nasi-campur", VendorID: "vendor-warung", Name: "Nasi Campur", Price: decimal.RequireFromString("18.00"), IsAvailable: true},
	{ID: "menu-es-teh", VendorID: "vendor-warung", Name: "Es Teh Manis", Price: decimal.RequireFromString("4.00"), IsAvailable: true},
	{ID: "menu-mie-ayam", VendorID: "vendor-mie", Name: "Mie Ayam", Price: decimal.RequireFromString("15.00"), IsAvailable: true, Stock: intPtr(40)},
	{ID: "menu-pangsit", VendorID: "vendor-mie", Name: "Pangsit Goreng", Price: decimal.RequireFromString("8.50"), IsAvailable: true, Stock: intPtr(25)},
}

// seedDemo stores the demo menu and logs tokens for a demo student and the
// staff of each demo vendor.
func seedDemo(ctx context.Context, repos repositories.Repositories, identity *services.IdentityService, zlog *zap.Logger) {
	vendors := map[string]bool{}
	for i := range demoMenu {
		item := demoMenu[i]
		vendors[item.VendorID] = true
		err := repos.Catalog.Create(ctx, &item)
		switch {
		case errors.Is(err, repositories.ErrConflict):
			continue
		case err != nil:
			zlog.Error("error seeding menu item", zap.String("item_id", item.ID), zap.Error(err))
		default:
			zlog.Info("seeded menu item", zap.String("item_id", item.ID), zap.String("name", item.Name))
		}
	}

	principals := []services.Principal{{UserID: "student-1", Role: services.RoleCustomer}}
	for vendorID := range vendors {
		principals = append(principals, services.Principal{UserID: "staff-" + vendorID, Role: services.RoleVendor, VendorID: vendorID})
	}
	for _, p := range principals {
		token, err := identity.IssueToken(p)
		if err != nil {
			zlog.Error("failed to issue demo token", zap.String("user_id", p.UserID), zap.Error(err))
			continue
		}
		zlog.Info("demo token", zap.String("user_id", p.UserID), zap.String("role", string(p.Role)), zap.String("token", token))
	}
}

func intPtr(n int) *int { return &n }
