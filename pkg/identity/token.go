package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aliasttt/bonusweb-sub000/pkg/config"
)

// Roles carried by identity tokens. The external identity layer mints them;
// this service only verifies.
const (
	RoleCustomer = "customer"
	RoleBusiness = "business"
)

// Claims unpacks the subset of the identity token this service cares about.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// ParseToken verifies the HMAC signature and issuer and returns the claims.
func ParseToken(cfg config.IdentityConfig, raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return []byte(cfg.JWTSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token missing subject")
	}
	return claims, nil
}

// MintToken issues a signed token. Production tokens come from the identity
// layer; this exists for local development and tests.
func MintToken(cfg config.IdentityConfig, subject, role string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
