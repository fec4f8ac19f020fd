package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"fx-signal-bot/internal/logger"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "fx-signal-bot"

var ErrUnauthorized = errors.New("unauthorized")

// Auth issues and checks HS256 bearer tokens for webhook senders.
type Auth struct {
	secret []byte
}

type Claims struct {
	Source string `json:"source"`
	jwt.RegisteredClaims
}

func NewAuth(secret string) (*Auth, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	return &Auth{secret: []byte(secret)}, nil
}

// GenerateToken signs a token for a sender such as "tradingview".
func (a *Auth) GenerateToken(source string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Source: source,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return s, nil
}

func (a *Auth) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if !token.Valid {
		return nil, ErrUnauthorized
	}
	return claims, nil
}

// Middleware rejects requests without a valid "Authorization: Bearer" token.
func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := a.ValidateToken(raw)
		if err != nil {
			logger.Warn(r.Context(), "Rejected webhook token", "error", err, "remote", r.RemoteAddr)
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		logger.Debug(r.Context(), "Webhook token accepted", "source", claims.Source)
		next.ServeHTTP(w, r)
	})
}
