package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"kantin/internal/models"
	"kantin/internal/repositories"
)

// MaxLineQuantity is the most units of one item a cart line may hold.
const MaxLineQuantity = 10

// CartService handles business logic related to carts.
type CartService struct {
	repos repositories.Repositories
}

// NewCartService creates a new CartService.
func NewCartService(uow repositories.UnitOfWork) *CartService {
	return &CartService{repos: uow.Repositories()}
}

// CartView is a cart with the estimated subtotal of its snapshots. Checkout
// prices from the live catalog, so the final amount may differ.
type CartView struct {
	Lines    []models.CartLine `json:"lines"`
	Subtotal decimal.Decimal   `json:"subtotal"`
}

// GetCart retrieves a user's cart.
func (s *CartService) GetCart(ctx context.Context, userID string) (*CartView, error) {
	lines, err := s.repos.Carts.GetCart(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.UnitPriceSnapshot.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	if lines == nil {
		lines = []models.CartLine{}
	}
	return &CartView{Lines: lines, Subtotal: subtotal}, nil
}

// AddItem puts quantity units of an available item in the cart, replacing any
// line already holding it.
func (s *CartService) AddItem(ctx context.Context, userID, itemID string, quantity int, specialRequest string) (*models.CartLine, error) {
	if quantity < 1 || quantity > MaxLineQuantity {
		return nil, fmt.Errorf("%w: quantity must be between 1 and %d", ErrInvalidInput, MaxLineQuantity)
	}

	item, err := s.repos.Catalog.GetAvailableItem(ctx, itemID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("item %s: %w", itemID, ErrItemUnavailable)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load item %s: %w", itemID, err)
	}
	if !item.IsAvailable {
		return nil, fmt.Errorf("%s: %w", item.Name, ErrItemUnavailable)
	}

	line := &models.CartLine{
		UserID:            userID,
		ItemID:            itemID,
		Quantity:          quantity,
		SpecialRequest:    specialRequest,
		UnitPriceSnapshot: item.Price,
	}
	if err := s.repos.Carts.UpsertLine(ctx, line); err != nil {
		return nil, fmt.Errorf("failed to save cart line: %w", err)
	}
	return line, nil
}

// RemoveItem deletes an item from the cart.
func (s *CartService) RemoveItem(ctx context.Context, userID, itemID string) error {
	err := s.repos.Carts.RemoveLine(ctx, userID, itemID)
	if errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("item %s is not in the cart: %w", itemID, repositories.ErrNotFound)
	}
	return err
}
