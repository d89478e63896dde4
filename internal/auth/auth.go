// Package auth signs principals in with email and password and issues the
// session tokens carrying their identity. The token is the sole carrier of
// identity for every authorization check.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"certflow/internal/apperr"
	"certflow/internal/domain"
	"certflow/internal/ports"
)

// Service authenticates principals and mints session tokens.
type Service struct {
	profiles ports.ProfileRepository
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
}

func New(profiles ports.ProfileRepository, secret []byte, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Service{profiles: profiles, secret: secret, ttl: ttl, now: time.Now}
}

// SignIn verifies credentials and returns a signed session token.
func (s *Service) SignIn(ctx context.Context, email, password string) (string, domain.Principal, error) {
	if email == "" || password == "" {
		return "", domain.Principal{}, apperr.Validation("email and password are required")
	}
	profile, found, err := s.profiles.GetProfileByEmail(ctx, email)
	if err != nil {
		return "", domain.Principal{}, apperr.Remote("load profile", err)
	}
	if !found {
		return "", domain.Principal{}, apperr.Unauthenticated("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(password)); err != nil {
		return "", domain.Principal{}, apperr.Unauthenticated("invalid credentials")
	}

	now := s.now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   profile.Principal.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", domain.Principal{}, apperr.Wrap(apperr.CodeRemote, "sign token", err)
	}
	return token, profile.Principal, nil
}

// ParseToken validates a session token and returns the principal id.
func (s *Service) ParseToken(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return "", apperr.Unauthenticated("invalid session")
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", apperr.Unauthenticated("invalid session")
	}
	return claims.Subject, nil
}

// HashPassword produces the stored credential hash for a password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
