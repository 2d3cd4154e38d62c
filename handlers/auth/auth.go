package auth

import (
	"crypto/rand"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

// TokenTTL is how long a session token stays valid.
const TokenTTL = 24 * time.Hour

var jwtSecret []byte

// SessionClaims represents the custom claims for the JWT. The subject is the
// session id.
type SessionClaims struct {
	jwt.RegisteredClaims
	OrderID string `json:"orderId"`
}

func InitAuth() {
	jwtSecret = []byte(os.Getenv("SESSION_SECRET"))
	if len(jwtSecret) == 0 {
		logrus.Warn("SESSION_SECRET is not set. Using a random secret, session tokens will not survive a restart.")
		jwtSecret = make([]byte, 32)
		if _, err := rand.Read(jwtSecret); err != nil {
			logrus.Fatalf("failed to generate session secret: %v", err)
		}
	}
}

// SetSecret replaces the signing secret.
func SetSecret(secret []byte) {
	jwtSecret = secret
}

// CreateToken issues a token for the session of an order.
func CreateToken(sessionID, orderID string) (string, error) {
	if len(jwtSecret) == 0 {
		return "", fmt.Errorf("session secret is not configured")
	}
	now := time.Now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionID,
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		OrderID: orderID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

func ParseToken(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return jwtSecret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*SessionClaims); ok && token.Valid && claims.Subject != "" {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}
