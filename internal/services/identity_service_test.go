package services_test

import (
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kantin/internal/services"
)

func TestIdentityService_RoundTrip(t *testing.T) {
	ids := services.NewIdentityService("test_jwt_secret", zap.NewNop())

	for _, p := range []services.Principal{customer("user-1"), vendor("vendor-a")} {
		token, err := ids.IssueToken(p)
		require.NoError(t, err)

		got, err := ids.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
}

func TestIdentityService_RejectsBadTokens(t *testing.T) {
	ids := services.NewIdentityService("test_jwt_secret", zap.NewNop())
	sign := func(secret string, claims jwt.MapClaims) string {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return token
	}
	exp := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong secret", sign("other_secret", jwt.MapClaims{"user_id": "u", "role": "customer", "exp": exp})},
		{"expired", sign("test_jwt_secret", jwt.MapClaims{"user_id": "u", "role": "customer", "exp": time.Now().Add(-time.Hour).Unix()})},
		{"missing user", sign("test_jwt_secret", jwt.MapClaims{"role": "customer", "exp": exp})},
		{"unknown role", sign("test_jwt_secret", jwt.MapClaims{"user_id": "u", "role": "admin", "exp": exp})},
		{"vendor without vendor id", sign("test_jwt_secret", jwt.MapClaims{"user_id": "u", "role": "vendor", "exp": exp})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ids.ValidateToken(tt.token)
			assert.Error(t, err)
		})
	}
}
