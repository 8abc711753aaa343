package middleware

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// GenerateToken signs a bearer token that lets its holder act as subject. role may be
// empty; RoleIssuer unlocks asset registration and minting.
func GenerateToken(subject uuid.UUID, role, secret, issuer string, expiryDuration time.Duration) (string, error) {
	if expiryDuration <= 0 {
		return "", fmt.Errorf("token expiry must be positive, got %s", expiryDuration)
	}
	now := time.Now()
	claims := LedgerClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiryDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
