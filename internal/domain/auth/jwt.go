// Package auth turns bearer tokens issued by the identity service into
// principal snapshots for the ledger.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/security"
)

// JWTConfig holds JWT configuration.
type JWTConfig struct {
	Secret         string
	Issuer         string
	AccessTokenTTL time.Duration
}

// DefaultJWTConfig returns default JWT configuration.
func DefaultJWTConfig(secret string) JWTConfig {
	return JWTConfig{
		Secret:         secret,
		Issuer:         "stockledger",
		AccessTokenTTL: 15 * time.Minute,
	}
}

// Claims represents JWT claims.
type Claims struct {
	jwt.RegisteredClaims
	UserID            string   `json:"uid"`
	Role              string   `json:"role"`
	AllowedWarehouses []string `json:"whs,omitempty"`
	Permissions       []string `json:"perms,omitempty"`
}

// Session is a validated token.
type Session struct {
	Principal security.Principal
	SessionID string
	ExpiresAt time.Time
}

// JWTService handles JWT operations.
type JWTService struct {
	config JWTConfig
	now    func() time.Time
}

// NewJWTService creates a new JWT service.
func NewJWTService(config JWTConfig) *JWTService {
	return &JWTService{config: config, now: time.Now}
}

// GenerateAccessToken signs a token carrying p.
func (s *JWTService) GenerateAccessToken(p security.Principal, sessionID string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.config.AccessTokenTTL)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Issuer:    s.config.Issuer,
			Subject:   p.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID:            p.UserID,
		Role:              string(p.Role),
		AllowedWarehouses: p.AllowedWarehouses,
		Permissions:       p.Permissions,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// ValidateToken verifies tokenString and returns the principal snapshot it carries.
// Every failure is an Unauthorized error.
func (s *JWTService) ValidateToken(tokenString string) (*Session, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	},
		jwt.WithIssuer(s.config.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		msg := "invalid token"
		if errors.Is(err, jwt.ErrTokenExpired) {
			msg = "token expired"
		}
		return nil, apperror.NewUnauthorized(msg).WithCause(err)
	}
	if !token.Valid {
		return nil, apperror.NewUnauthorized("invalid token")
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return nil, apperror.NewUnauthorized("token has no subject")
	}
	role := security.Role(claims.Role)
	if !role.Valid() {
		return nil, apperror.NewUnauthorized("token has unknown role").WithDetail("role", claims.Role)
	}

	sess := &Session{
		Principal: security.Principal{
			UserID:            userID,
			Role:              role,
			AllowedWarehouses: claims.AllowedWarehouses,
			Permissions:       claims.Permissions,
		},
		SessionID: claims.ID,
	}
	if claims.ExpiresAt != nil {
		sess.ExpiresAt = claims.ExpiresAt.Time
	}
	return sess, nil
}
