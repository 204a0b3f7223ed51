package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds every setting the service reads at startup.
type Config struct {
	AppPort             string
	DatabaseDriver      string
	DatabaseDSN         string
	RabbitMQURL         string
	KafkaBrokers        []string
	KafkaAnalyticsTopic string
	JWTSecret           string
	LogEnv              string

	ServiceFee          decimal.Decimal
	BulkThreshold       int
	BulkDiscountPercent decimal.Decimal
	QueueBase           int
	QueueLocation       *time.Location
	VoucherValidity     time.Duration

	PaymentTimeout     time.Duration
	PaymentDeclineRate float64

	CheckoutRatePerMinute int
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("DATABASE_DRIVER", "postgres")
	v.SetDefault("DATABASE_DSN", "host=127.0.0.1 user=postgres password=postgres dbname=kantin port=5432 sslmode=disable")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_ANALYTICS_TOPIC", "order-analytics")
	v.SetDefault("JWT_SECRET", "change-me")
	v.SetDefault("LOG_ENV", "development")
	v.SetDefault("SERVICE_FEE", "2.00")
	v.SetDefault("BULK_THRESHOLD", 3)
	v.SetDefault("BULK_DISCOUNT_PERCENT", "5")
	v.SetDefault("QUEUE_BASE", 100)
	v.SetDefault("QUEUE_TIMEZONE", "UTC")
	v.SetDefault("VOUCHER_VALIDITY_DAYS", 30)
	v.SetDefault("PAYMENT_TIMEOUT", "3s")
	v.SetDefault("PAYMENT_DECLINE_RATE", 0.0)
	v.SetDefault("CHECKOUT_RATE_PER_MINUTE", 10)
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()
	return FromViper(v)
}

// FromViper builds a Config from v and validates it.
func FromViper(v *viper.Viper) (*Config, error) {
	fee, err := decimal.NewFromString(v.GetString("SERVICE_FEE"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVICE_FEE: %w", err)
	}
	if fee.IsNegative() {
		return nil, fmt.Errorf("invalid SERVICE_FEE: must not be negative")
	}
	bulkPercent, err := decimal.NewFromString(v.GetString("BULK_DISCOUNT_PERCENT"))
	if err != nil {
		return nil, fmt.Errorf("invalid BULK_DISCOUNT_PERCENT: %w", err)
	}
	if bulkPercent.IsNegative() || bulkPercent.GreaterThan(decimal.NewFromInt(100)) {
		return nil, fmt.Errorf("invalid BULK_DISCOUNT_PERCENT: must be between 0 and 100")
	}
	loc, err := time.LoadLocation(v.GetString("QUEUE_TIMEZONE"))
	if err != nil {
		return nil, fmt.Errorf("invalid QUEUE_TIMEZONE: %w", err)
	}

	driver := strings.ToLower(v.GetString("DATABASE_DRIVER"))
	if driver != "postgres" && driver != "sqlite" {
		return nil, fmt.Errorf("unsupported DATABASE_DRIVER %q", driver)
	}

	rate := v.GetFloat64("PAYMENT_DECLINE_RATE")
	if rate < 0 || rate > 1 {
		return nil, fmt.Errorf("invalid PAYMENT_DECLINE_RATE: must be between 0 and 1")
	}

	var brokers []string
	for _, b := range strings.Split(v.GetString("KAFKA_BROKERS"), ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}

	return &Config{
		AppPort:               v.GetString("APP_PORT"),
		DatabaseDriver:        driver,
		DatabaseDSN:           v.GetString("DATABASE_DSN"),
		RabbitMQURL:           v.GetString("RABBITMQ_URL"),
		KafkaBrokers:          brokers,
		KafkaAnalyticsTopic:   v.GetString("KAFKA_ANALYTICS_TOPIC"),
		JWTSecret:             v.GetString("JWT_SECRET"),
		LogEnv:                v.GetString("LOG_ENV"),
		ServiceFee:            fee,
		BulkThreshold:         v.GetInt("BULK_THRESHOLD"),
		BulkDiscountPercent:   bulkPercent,
		QueueBase:             v.GetInt("QUEUE_BASE"),
		QueueLocation:         loc,
		VoucherValidity:       time.Duration(v.GetInt("VOUCHER_VALIDITY_DAYS")) * 24 * time.Hour,
		PaymentTimeout:        v.GetDuration("PAYMENT_TIMEOUT"),
		PaymentDeclineRate:    rate,
		CheckoutRatePerMinute: v.GetInt("CHECKOUT_RATE_PER_MINUTE"),
	}, nil
}
