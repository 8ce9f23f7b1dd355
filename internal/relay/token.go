package relay

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Subject identifies tokens minted by the Telegram bot
const Subject = "telegram-bot"

const tokenTTL = 5 * time.Minute

// ErrInvalidToken is returned when a relay token fails verification
var ErrInvalidToken = errors.New("invalid relay token")

// IssueToken signs a short-lived HS256 token the API accepts in place of a
// wallet signature
func IssueToken(secret string, now time.Time) (string, error) {
	if secret == "" {
		return "", errors.New("relay secret is empty")
	}
	claims := jwt.RegisteredClaims{
		Subject:   Subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// VerifyToken checks signature, expiry and subject
func VerifyToken(secret, raw string) error {
	if secret == "" || raw == "" {
		return ErrInvalidToken
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithSubject(Subject))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
