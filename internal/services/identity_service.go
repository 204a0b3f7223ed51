package services

import (
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
	"go.uber.org/zap"
)

// Role is what a signed-in principal acts as.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleVendor   Role = "vendor"
)

// Principal is the authenticated caller. VendorID is set for vendor staff.
type Principal struct {
	UserID   string `json:"user_id"`
	Role     Role   `json:"role"`
	VendorID string `json:"vendor_id,omitempty"`
}

// IdentityService reads the principal out of tokens issued by the campus
// identity provider. Sign-in itself happens elsewhere; IssueToken exists for
// local runs and tests.
type IdentityService struct {
	jwtSecret  []byte
	tokenDurat time.Duration
	log        *zap.Logger
}

// NewIdentityService creates a new IdentityService.
func NewIdentityService(jwtSecret string, log *zap.Logger) *IdentityService {
	return &IdentityService{
		jwtSecret:  []byte(jwtSecret),
		tokenDurat: 24 * time.Hour,
		log:        log,
	}
}

// IssueToken signs a token for p.
func (s *IdentityService) IssueToken(p Principal) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":   p.UserID,
		"role":      string(p.Role),
		"vendor_id": p.VendorID,
		"exp":       time.Now().Add(s.tokenDurat).Unix(),
		"iat":       time.Now().Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken parses and validates a JWT token, returning the principal it names.
func (s *IdentityService) ValidateToken(tokenString string) (Principal, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		s.log.Debug("token validation error", zap.Error(err))
		return Principal{}, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Principal{}, fmt.Errorf("invalid token")
	}

	userID, _ := claims["user_id"].(string)
	role, _ := claims["role"].(string)
	vendorID, _ := claims["vendor_id"].(string)
	p := Principal{UserID: userID, Role: Role(role), VendorID: vendorID}

	switch {
	case p.UserID == "":
		return Principal{}, fmt.Errorf("invalid token: missing user_id")
	case p.Role != RoleCustomer && p.Role != RoleVendor:
		return Principal{}, fmt.Errorf("invalid token: unknown role %q", role)
	case p.Role == RoleVendor && p.VendorID == "":
		return Principal{}, fmt.Errorf("invalid token: vendor token without vendor_id")
	}
	return p, nil
}
