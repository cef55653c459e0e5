// Package auth validates the bearer tokens issued by the external identity
// provider. GenerateJWT exists for development tokens and tests.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/robe-lope/bookbuddy-swapper/internal/utils"
)

// Issuer is stamped on tokens generated by this service.
const Issuer = "bookbuddy-swapper"

// Claims defines the structure of the JWT claims.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// GenerateJWT creates a signed token for userID.
func GenerateJWT(userID utils.SixID, secretKey string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    Issuer,
			Subject:   userID.String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT: %w", err)
	}

	return tokenString, nil
}

// ValidateJWT verifies a JWT string and returns the claims if valid.
func ValidateJWT(tokenString string, secretKey string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secretKey), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWT: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid JWT")
	}

	return claims, nil
}

// SubjectID returns the acting user's ID carried by the claims. The
// user_id claim wins over the standard subject when both are set.
func (c *Claims) SubjectID() (utils.SixID, error) {
	raw := c.UserID
	if raw == "" {
		raw = c.Subject
	}
	id, err := utils.ParseSixID(raw)
	if err != nil {
		return utils.SixID{}, fmt.Errorf("token subject %q is not a user ID: %w", raw, err)
	}
	return id, nil
}
