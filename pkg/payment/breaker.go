package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// BreakerGateway bounds every call to the wrapped gateway with a timeout and
// stops calling it while it keeps failing. A declined charge is an answer,
// not a failure, and does not count against the circuit.
type BreakerGateway struct {
	next    Gateway
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker[ChargeResult]
	log     *zap.Logger
}

// NewBreakerGateway wraps next. The circuit opens after five consecutive
// failures and half-opens again after thirty seconds.
func NewBreakerGateway(next Gateway, timeout time.Duration, log *zap.Logger) *BreakerGateway {
	settings := gobreaker.Settings{
		Name:        "payment-gateway",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrDeclined)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}
	return &BreakerGateway{
		next:    next,
		timeout: timeout,
		cb:      gobreaker.NewCircuitBreaker[ChargeResult](settings),
		log:     log,
	}
}

// Charge runs the charge through the circuit. Timeouts, an open circuit and
// provider errors are all reported as ErrDeclined.
func (g *BreakerGateway) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	res, err := g.cb.Execute(func() (ChargeResult, error) {
		return g.next.Charge(ctx, req)
	})
	switch {
	case err == nil:
		return res, nil
	case errors.Is(err, ErrDeclined):
		return ChargeResult{}, err
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return ChargeResult{}, fmt.Errorf("payment provider unavailable: %w", ErrDeclined)
	case errors.Is(err, context.DeadlineExceeded):
		return ChargeResult{}, fmt.Errorf("payment provider timed out after %s: %w", g.timeout, ErrDeclined)
	default:
		g.log.Error("payment provider error", zap.String("order_id", req.OrderID), zap.Error(err))
		return ChargeResult{}, fmt.Errorf("payment provider error: %w", ErrDeclined)
	}
}

// Refund is passed straight through with the same timeout.
func (g *BreakerGateway) Refund(ctx context.Context, transactionRef string) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return g.next.Refund(ctx, transactionRef)
}
