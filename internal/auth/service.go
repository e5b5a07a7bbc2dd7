// Package auth provides the operator login surface. The deployment has a
// single operator account configured through the environment; the service
// issues short-lived HMAC access tokens consumed by the httpkit middleware.
package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"cam_backend/platform/apperr"
	"cam_backend/platform/config"
)

const errInvalidCredentials = "invalid email or password"

// TokenResult is a successful login response.
type TokenResult struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Service verifies operator credentials and mints access tokens.
type Service struct {
	operatorEmail string
	passwordHash  string
	accessSecret  []byte
	accessTTL     time.Duration

	now func() time.Time
}

// NewService creates the auth service from the operator configuration.
func NewService(cfg config.AuthServiceConfig) *Service {
	ttl := cfg.GetAccessTokenTTL()
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Service{
		operatorEmail: strings.ToLower(cfg.GetOperatorEmail()),
		passwordHash:  cfg.GetOperatorPasswordHash(),
		accessSecret:  []byte(cfg.GetJWTAccessSecret()),
		accessTTL:     ttl,
		now:           time.Now,
	}
}

// Login validates the credentials and returns a signed access token.
// Wrong email and wrong password fail with the same message.
func (s *Service) Login(email, password string) (TokenResult, error) {
	if strings.ToLower(strings.TrimSpace(email)) != s.operatorEmail {
		// Both failure paths must cost one bcrypt comparison.
		_ = bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(password))
		return TokenResult{}, apperr.Unauthorized(errInvalidCredentials)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(password)); err != nil {
		return TokenResult{}, apperr.Unauthorized(errInvalidCredentials)
	}

	now := s.now().UTC()
	expiresAt := now.Add(s.accessTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   s.operatorEmail,
		"roles": []string{"operator"},
		"iat":   now.Unix(),
		"exp":   expiresAt.Unix(),
	})

	signed, err := token.SignedString(s.accessSecret)
	if err != nil {
		return TokenResult{}, apperr.Internal("failed to sign access token")
	}
	return TokenResult{AccessToken: signed, ExpiresAt: expiresAt}, nil
}

// HashPassword produces the bcrypt hash expected in OPERATOR_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
