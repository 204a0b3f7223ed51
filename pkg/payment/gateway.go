// Package payment simulates the card/online payment provider used at checkout.
package payment

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrDeclined is returned when the provider refuses a charge.
var ErrDeclined = errors.New("payment declined")

// ChargeRequest asks the provider to take Amount for one order.
type ChargeRequest struct {
	OrderID string
	UserID  string
	Amount  decimal.Decimal
}

// ChargeResult is a successful charge.
type ChargeResult struct {
	TransactionRef string
}

// Gateway is the payment provider as seen by checkout.
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
	Refund(ctx context.Context, transactionRef string) error
}

// Decider decides whether a charge is approved.
type Decider func(req ChargeRequest) bool

// SimulatedGateway approves charges unless its Decider says otherwise.
type SimulatedGateway struct {
	decide Decider

	mu       sync.Mutex
	refunded map[string]bool
}

// NewSimulatedGateway declines roughly declineRate of all charges.
func NewSimulatedGateway(declineRate float64) *SimulatedGateway {
	return NewSimulatedGatewayWithDecider(func(ChargeRequest) bool {
		return rand.Float64() >= declineRate
	})
}

// NewSimulatedGatewayWithDecider uses decide to approve or decline charges.
func NewSimulatedGatewayWithDecider(decide Decider) *SimulatedGateway {
	return &SimulatedGateway{decide: decide, refunded: make(map[string]bool)}
}

func (g *SimulatedGateway) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	if err := ctx.Err(); err != nil {
		return ChargeResult{}, err
	}
	if !req.Amount.IsPositive() {
		return ChargeResult{TransactionRef: "PAY-" + uuid.New().String()}, nil
	}
	if !g.decide(req) {
		return ChargeResult{}, fmt.Errorf("order %s: %w", req.OrderID, ErrDeclined)
	}
	return ChargeResult{TransactionRef: "PAY-" + uuid.New().String()}, nil
}

// Refund records transactionRef as refunded. Refunding twice is a no-op.
func (g *SimulatedGateway) Refund(ctx context.Context, transactionRef string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refunded[transactionRef] = true
	return nil
}

// Refunded reports whether transactionRef has been refunded.
func (g *SimulatedGateway) Refunded(transactionRef string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.refunded[transactionRef]
}
