package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sukull/istikrar/config"
)

// Claims defines JWT claims used in the application. UserID is the external identity id.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// GenerateToken issues a JWT for userID signed with the configured secret.
func GenerateToken(userID string, duration time.Duration) (string, error) {
	return GenerateTokenWithSecret(config.Get().JWTSecret, userID, duration)
}

// GenerateTokenWithSecret issues a JWT for userID signed with secret.
func GenerateTokenWithSecret(secret, userID string, duration time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken validates a JWT against the configured secret.
func ParseToken(tokenStr string) (*Claims, error) {
	return ParseTokenWithSecret(config.Get().JWTSecret, tokenStr)
}

// ParseTokenWithSecret validates a JWT and returns its claims.
func ParseTokenWithSecret(secret, tokenStr string) (*Claims, error) {
	if secret == "" {
		return nil, errors.New("jwt secret not configured")
	}
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	if claims.UserID == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}
