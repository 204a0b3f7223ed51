package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"kantin/internal/models"
	"kantin/internal/repositories"
)

// AccountService serves what a signed-in user sees about themselves: loyalty
// points, notifications and, for vendor staff, the dashboard counters.
type AccountService struct {
	repos repositories.Repositories
	loc   *time.Location
	log   *zap.Logger
	now   func() time.Time
}

// NewAccountService creates a new AccountService. Dashboard days are cut in loc.
func NewAccountService(uow repositories.UnitOfWork, loc *time.Location, log *zap.Logger) *AccountService {
	if loc == nil {
		loc = time.UTC
	}
	return &AccountService{repos: uow.Repositories(), loc: loc, log: log, now: time.Now}
}

// AccountSummary is the caller's profile as far as ordering is concerned.
type AccountSummary struct {
	Principal     Principal             `json:"principal"`
	LoyaltyPoints int64                 `json:"loyalty_points"`
	Notifications []models.Notification `json:"notifications"`
}

// Summary returns the caller's points and notifications.
func (s *AccountService) Summary(ctx context.Context, p Principal) (*AccountSummary, error) {
	summary := &AccountSummary{Principal: p, Notifications: []models.Notification{}}

	balance, err := s.repos.Loyalty.Get(ctx, p.UserID)
	switch {
	case err == nil:
		summary.LoyaltyPoints = balance.Points
	case !errors.Is(err, repositories.ErrNotFound):
		s.log.Error("failed to load loyalty balance", zap.String("user_id", p.UserID), zap.Error(err))
		return nil, ErrPersistence
	}

	list, err := s.repos.Notifications.ListByUser(ctx, p.UserID)
	if err != nil {
		s.log.Error("failed to load notifications", zap.String("user_id", p.UserID), zap.Error(err))
		return nil, ErrPersistence
	}
	if list != nil {
		summary.Notifications = list
	}
	return summary, nil
}

// VendorDashboard returns the counters of vendorID for day, or today when
// day is empty. Only the vendor's own staff may read them.
func (s *AccountService) VendorDashboard(ctx context.Context, p Principal, vendorID, day string) (*models.VendorDailyStats, error) {
	if p.Role != RoleVendor || p.VendorID != vendorID {
		return nil, fmt.Errorf("dashboard of vendor %s: %w", vendorID, ErrForbidden)
	}
	if day == "" {
		day = models.Day(s.now(), s.loc)
	} else if _, err := time.Parse(models.DayLayout, day); err != nil {
		return nil, fmt.Errorf("%w: day must look like %s", ErrInvalidInput, models.DayLayout)
	}

	stats, err := s.repos.VendorStats.Get(ctx, vendorID, day)
	if err != nil {
		s.log.Error("failed to load vendor stats", zap.String("vendor_id", vendorID), zap.Error(err))
		return nil, ErrPersistence
	}
	return stats, nil
}
