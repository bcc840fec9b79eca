package utils

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// GenerateToken signs an HS256 access token carrying the user's id and role.
func GenerateToken(secret, userID, email, role string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"id":    userID,
		"email": email,
		"role":  role,
		"exp":   time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
