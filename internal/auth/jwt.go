package auth

import (
	"errors"
	"time"

	"perks/config"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the platform identity. MerchantID is set on MERCHANT
// tokens and zero otherwise.
type Claims struct {
	UserID     uint   `json:"user_id"`
	MerchantID uint   `json:"merchant_id,omitempty"`
	Role       string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateAccessToken signs a token the same way the platform gateway does.
// Used by operational tooling and tests; production tokens arrive already
// issued.
func GenerateAccessToken(cfg *config.JWTConfig, userID, merchantID uint, role string) (string, error) {
	claims := Claims{
		UserID:     userID,
		MerchantID: merchantID,
		Role:       role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(cfg.AccessExpiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    cfg.Issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.AccessSecret))
}

var ErrInvalidToken = errors.New("invalid token")

func ParseAccessToken(cfg *config.JWTConfig, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(cfg.AccessSecret), nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
