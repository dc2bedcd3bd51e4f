package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthService issues and validates the HS256 tokens that gate the push
// channel. An empty secret disables token checks entirely.
type AuthService struct {
	secret []byte
	expiry time.Duration
}

// Claims is the JWT claims structure for dashboard clients.
type Claims struct {
	ServerName string `json:"server_name"`
	jwt.RegisteredClaims
}

func NewAuthService(secret string, expiry time.Duration) *AuthService {
	if expiry <= 0 {
		expiry = 90 * 24 * time.Hour
	}

	return &AuthService{secret: []byte(secret), expiry: expiry}
}

// Enabled reports whether token checks apply.
func (a *AuthService) Enabled() bool {
	return len(a.secret) > 0
}

// GenerateToken creates a new signed token for the named server.
func (a *AuthService) GenerateToken(serverName string) (string, error) {
	if !a.Enabled() {
		return "", errors.New("auth is disabled: no signing secret configured")
	}

	now := time.Now()
	claims := Claims{
		ServerName: serverName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(a.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "nexamon",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(a.secret)
}

// ValidateToken verifies and parses a token.
func (a *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	if !a.Enabled() {
		return nil, errors.New("auth is disabled: no signing secret configured")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}

// TokenExpiry returns when a token issued now would expire.
func (a *AuthService) TokenExpiry() time.Time {
	return time.Now().Add(a.expiry)
}
