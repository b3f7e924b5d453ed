package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"campusrx/m/domain"
	"campusrx/m/internal/config"
)

var signingMethod = jwt.SigningMethodHS256

// Claims is the payload of an issued session token.
type Claims struct {
	UserID     string      `json:"user_id"`
	Role       domain.Role `json:"role"`
	PharmacyID string      `json:"pharmacy_id,omitempty"`
	jwt.RegisteredClaims
}

// Token is a signed session token and its expiry.
type Token struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// MintToken signs a session token for u.
func MintToken(cfg config.JWTConfig, now time.Time, u domain.User) (Token, error) {
	if cfg.Secret == "" {
		return Token{}, fmt.Errorf("jwt secret is required")
	}
	if cfg.TTL <= 0 {
		return Token{}, fmt.Errorf("jwt ttl must be positive")
	}
	expiry := now.Add(cfg.TTL)
	claims := Claims{
		UserID:     u.ID,
		Role:       u.Role,
		PharmacyID: u.PharmacyID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiry),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return Token{}, fmt.Errorf("signing jwt: %w", err)
	}
	return Token{AccessToken: signed, ExpiresAt: expiry}, nil
}

// ParseToken verifies signature, issuer and expiry and returns the claims.
func ParseToken(cfg config.JWTConfig, tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (any, error) {
			if token.Method != signingMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return []byte(cfg.Secret), nil
		},
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
