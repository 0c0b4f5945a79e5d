package server

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jonathan/candidate-matcher/internal/config"
	"github.com/jonathan/candidate-matcher/internal/server/middleware"
)

// tokenIssuer is the iss claim of every API token.
const tokenIssuer = "candidate-matcher"

// JWTService issues and validates API tokens.
type JWTService struct {
	config config.JWTConfig
	now    func() time.Time
}

// NewJWTService creates a new JWT service with the given configuration.
func NewJWTService(cfg config.JWTConfig) *JWTService {
	return &JWTService{config: cfg, now: time.Now}
}

// GenerateToken issues a token for the named API client.
func (s *JWTService) GenerateToken(subject string) (string, error) {
	if subject == "" {
		return "", errors.New("token subject is empty")
	}
	if s.config.Secret == "" {
		return "", errors.New("auth.jwt-secret is not configured")
	}
	now := s.now()
	hours := s.config.ExpirationHours
	if hours < 1 {
		hours = 24
	}

	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(hours) * time.Hour)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken checks the signature, issuer and time claims.
func (s *JWTService) ValidateToken(tokenString string) (middleware.SubjectGetter, error) {
	if tokenString == "" {
		return nil, errors.New("token string is empty")
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("token expired: %w", err)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, fmt.Errorf("invalid token signature: %w", err)
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("malformed token: %w", err)
		}
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("token is not valid")
	}
	return claims, nil
}
