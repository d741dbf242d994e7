package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/security"
)

func manager() security.Principal {
	return security.Principal{
		UserID:            "u-1",
		Role:              security.RoleWarehouseManager,
		AllowedWarehouses: []string{"w1", "w2"},
		Permissions:       []string{string(security.CapabilityDispatch)},
	}
}

func TestTokenRoundTrip(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("secret"))

	token, expiresAt, err := svc.GenerateAccessToken(manager(), "sess-1")
	require.NoError(t, err)

	sess, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, manager(), sess.Principal)
	assert.Equal(t, "sess-1", sess.SessionID)
	assert.WithinDuration(t, expiresAt, sess.ExpiresAt, time.Second)
}

func TestValidateTokenRejects(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("secret"))
	good, _, err := svc.GenerateAccessToken(manager(), "s")
	require.NoError(t, err)

	expired := NewJWTService(DefaultJWTConfig("secret"))
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	old, _, err := expired.GenerateAccessToken(manager(), "s")
	require.NoError(t, err)

	otherIssuer := NewJWTService(JWTConfig{Secret: "secret", Issuer: "elsewhere", AccessTokenTTL: time.Minute})
	foreign, _, err := otherIssuer.GenerateAccessToken(manager(), "s")
	require.NoError(t, err)

	badRole := manager()
	badRole.Role = "janitor"
	unknown, _, err := svc.GenerateAccessToken(badRole, "s")
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "u-1", Role: "superadmin"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		svc   *JWTService
		token string
	}{
		{"garbage", svc, "not-a-token"},
		{"wrong secret", NewJWTService(DefaultJWTConfig("other")), good},
		{"expired", svc, old},
		{"wrong issuer", svc, foreign},
		{"unknown role", svc, unknown},
		{"unsigned", svc, unsigned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.svc.ValidateToken(tt.token)
			require.Error(t, err)
			assert.Equal(t, apperror.CodeUnauthorized, apperror.Kind(err))
		})
	}
}
