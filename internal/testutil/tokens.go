package testutil

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"strata-violations/internal/model"
)

// StaffToken signs an access token the way the identity service does.
func StaffToken(t *testing.T, secret string, principal model.Principal) string {
	t.Helper()

	claims := jwt.MapClaims{
		"uid":   principal.UserID,
		"email": principal.Email,
		"role":  string(principal.Role),
		"kind":  "staff",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}
