// Package app wires repositories, identity backends, provider clients and
// services into the HTTP router.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"blogmate/internal/api"
	"blogmate/internal/config"
	"blogmate/internal/db"
	"blogmate/internal/db/crypto"
	"blogmate/internal/db/repository"
	"blogmate/internal/domain"
	"blogmate/internal/identity"
	"blogmate/internal/kakao"
	"blogmate/internal/middleware"
	"blogmate/internal/objectstore"
	"blogmate/internal/service/avatar"
	"blogmate/internal/service/delegation"
	"blogmate/internal/service/profile"
	"blogmate/internal/service/provisioning"
)

// loginTokenTTL is the lifetime of tokens issued by POST /auth/token.
const loginTokenTTL = 12 * time.Hour

// Deps holds the external dependencies that main() must provide.
type Deps struct {
	Cfg    *config.Config
	Pool   *db.Pool
	Logger *slog.Logger
	// HTTPClient is used for every outbound call. If nil, one is built with
	// Cfg.HTTPClientTimeout.
	HTTPClient *http.Client
}

// Services groups the services the router and startup tasks need.
type Services struct {
	Provisioner *provisioning.Provisioner
	Tokens      *delegation.TokenManager // nil when Kakao is not configured
	Profiles    *profile.Service
	Avatars     *avatar.Service
}

// App holds the fully-wired application.
type App struct {
	Services Services
	Router   http.Handler

	closers []io.Closer
}

// New wires everything from deps. The context bounds background work such
// as the rate limiter sweeper and OIDC key refresh.
func New(ctx context.Context, deps Deps) (*App, error) {
	cfg := deps.Cfg
	logger := deps.Logger
	httpClient := deps.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.HTTPClientTimeout}
	}
	a := &App{}

	// === Repositories ===
	encryptor, err := crypto.NewEncryptor(cfg.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("encryption key: %w", err)
	}
	profileRepo := repository.NewProfileRepo(deps.Pool)
	tokenRepo := repository.NewDelegatedTokenRepo(deps.Pool, encryptor)

	// === Identity backend ===
	var (
		identitySvc domain.IdentityService
		login       api.LoginConfig
	)
	switch cfg.Identity.Backend {
	case config.IdentityBackendGoTrue:
		gotrue, err := identity.NewGoTrueService(identity.GoTrueConfig{
			BaseURL:    cfg.Identity.GoTrueURL,
			ServiceKey: cfg.Identity.GoTrueServiceKey,
			HTTPClient: httpClient,
			Logger:     logger.With("component", "gotrue"),
			Purger:     repository.NewPrincipalDataRepo(deps.Pool),
		})
		if err != nil {
			return nil, fmt.Errorf("gotrue identity backend: %w", err)
		}
		identitySvc = gotrue
	default:
		local := identity.NewLocalService(repository.NewPrincipalRepo(deps.Pool), logger.With("component", "identity"))
		identitySvc = local
		login.Authenticator = local
	}

	// === Bearer token validation ===
	validator, issuer, err := newValidator(ctx, cfg.Auth, httpClient)
	if err != nil {
		return nil, err
	}
	if login.Authenticator != nil && issuer != nil {
		login.Issuer = issuer
		login.TTL = loginTokenTTL
	} else {
		login = api.LoginConfig{}
	}

	// === Object store ===
	store, err := objectstore.New(ctx, cfg.Avatar)
	if err != nil {
		return nil, fmt.Errorf("avatar store: %w", err)
	}
	if c, ok := store.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	// === Services ===
	a.Services = Services{
		Provisioner: provisioning.NewProvisioner(identitySvc, profileRepo, provisioning.Config{
			MinPasswordLength: cfg.Identity.PasswordMinLength,
			DefaultJobTitle:   cfg.Identity.DefaultJobTitle,
		}, logger.With("component", "provisioning")),
		Profiles: profile.NewService(profileRepo, logger.With("component", "profile")),
		Avatars:  avatar.NewService(store, profileRepo, cfg.Avatar.MaxBytes, logger.With("component", "avatar")),
	}
	if cfg.Kakao.Enabled() {
		tokens, err := newKakaoTokenManager(cfg, tokenRepo, httpClient, logger.With("component", "kakao"))
		if err != nil {
			return nil, err
		}
		a.Services.Tokens = tokens
	} else {
		logger.Info("kakao integration disabled")
	}

	// === Router ===
	avatarDir := ""
	if cfg.Avatar.Backend == config.AvatarBackendLocal {
		avatarDir = cfg.Avatar.LocalDir
	}
	a.Router = api.NewRouter(api.RouterConfig{
		Handler: api.NewHandler(api.HandlerDeps{
			Users:          a.Services.Provisioner,
			Tokens:         a.Services.Tokens,
			Profiles:       a.Services.Profiles,
			Avatars:        a.Services.Avatars,
			Login:          login,
			KakaoResultURL: cfg.Kakao.ResultURL,
			Logger:         logger.With("component", "api"),
		}),
		Validator: validator,
		Profiles:  profileRepo,
		RateLimiter: middleware.NewRateLimiter(ctx, middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		}),
		CORSOrigins: cfg.CORSAllowedOrigins,
		AvatarDir:   avatarDir,
		Logger:      logger.With("component", "http"),
	})

	return a, nil
}

// Close releases clients that hold resources.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// newValidator picks OIDC when an issuer or JWKS URL is configured and the
// shared-secret validator otherwise. The HS256 validator doubles as the
// token issuer for local logins; it is nil in OIDC mode.
func newValidator(ctx context.Context, auth config.AuthConfig, httpClient *http.Client) (middleware.JWTValidator, *middleware.HS256Validator, error) {
	if auth.OIDCEnabled() {
		ctx = oidcClientContext(ctx, httpClient)
		if auth.JWKSURL != "" {
			return middleware.NewOIDCValidatorFromJWKS(ctx, auth.JWKSURL, auth.IssuerURL, auth.Audience, auth.AllowedIssuers), nil, nil
		}
		v, err := middleware.NewOIDCValidator(ctx, auth.IssuerURL, auth.Audience, auth.AllowedIssuers)
		if err != nil {
			return nil, nil, err
		}
		return v, nil, nil
	}
	v, err := middleware.NewHS256Validator(auth.JWTSecret, auth.Audience)
	if err != nil {
		return nil, nil, err
	}
	return v, v, nil
}

func newKakaoTokenManager(cfg *config.Config, tokens domain.DelegatedTokenRepository, httpClient *http.Client, logger *slog.Logger) (*delegation.TokenManager, error) {
	oauthClient, err := kakao.NewOAuthClient(kakao.OAuthConfig{
		ClientID:     cfg.Kakao.ClientID,
		ClientSecret: cfg.Kakao.ClientSecret,
		RedirectURL:  cfg.Kakao.RedirectURI,
		AuthURL:      cfg.Kakao.AuthURL,
		TokenURL:     cfg.Kakao.TokenURL,
		Scopes:       strings.Fields(strings.ReplaceAll(cfg.Kakao.Scope, ",", " ")),
		HTTPClient:   httpClient,
	})
	if err != nil {
		return nil, err
	}
	talk, err := kakao.NewTalkClient(kakao.TalkConfig{APIURL: cfg.Kakao.APIURL, HTTPClient: httpClient})
	if err != nil {
		return nil, err
	}
	return delegation.NewTokenManager(tokens, oauthClient, talk, delegation.Config{
		Provider:    domain.ProviderKakao,
		LinkURL:     cfg.AppURL,
		ButtonTitle: cfg.Kakao.ButtonTitle,
		StateSecret: cfg.Kakao.StateSecret,
	}, nil, logger)
}
