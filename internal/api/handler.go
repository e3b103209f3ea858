// Package api provides the HTTP handlers and router for the blogmate
// account and notification API.
package api

import (
	"context"
	"log/slog"
	"time"

	"blogmate/internal/domain"
	"blogmate/internal/service/avatar"
	"blogmate/internal/service/delegation"
	"blogmate/internal/service/profile"
	"blogmate/internal/service/provisioning"
)

// PasswordAuthenticator checks email/password credentials. Only the local
// identity backend provides one.
type PasswordAuthenticator interface {
	Authenticate(ctx context.Context, email, password string) (*domain.Principal, error)
}

// TokenIssuer signs bearer tokens for authenticated principals.
type TokenIssuer interface {
	Issue(subject, email string, ttl time.Duration) (string, time.Time, error)
}

// LoginConfig enables POST /auth/token. Leave Authenticator nil to disable it.
type LoginConfig struct {
	Authenticator PasswordAuthenticator
	Issuer        TokenIssuer
	TTL           time.Duration
}

// Handler serves every API route.
type Handler struct {
	users          *provisioning.Provisioner
	tokens         *delegation.TokenManager // nil when Kakao is not configured
	profiles       *profile.Service
	avatars        *avatar.Service
	login          LoginConfig
	kakaoResultURL string
	logger         *slog.Logger
}

// HandlerDeps lists the services a Handler needs.
type HandlerDeps struct {
	Users          *provisioning.Provisioner
	Tokens         *delegation.TokenManager
	Profiles       *profile.Service
	Avatars        *avatar.Service
	Login          LoginConfig
	KakaoResultURL string
	Logger         *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(d HandlerDeps) *Handler {
	if d.Login.TTL <= 0 {
		d.Login.TTL = time.Hour
	}
	return &Handler{
		users:          d.Users,
		tokens:         d.Tokens,
		profiles:       d.Profiles,
		avatars:        d.Avatars,
		login:          d.Login,
		kakaoResultURL: d.KakaoResultURL,
		logger:         d.Logger,
	}
}

func errBadRequest(msg string) error {
	return domain.ErrValidation("%s", msg)
}
