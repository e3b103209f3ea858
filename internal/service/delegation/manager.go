// Package delegation manages the OAuth credential each user grants to a
// third-party messaging provider and sends messages with it.
//
// Per principal a credential moves through
//
//	NoToken -> Active -> Stale -> (Refreshing) -> Active | ReauthRequired
//
// Every transition happens inside a single inbound request. There is no
// background refresher.
package delegation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/singleflight"

	"blogmate/internal/domain"
)

const (
	defaultMaxMessageRunes = 200
	ellipsis               = "..."

	// grantTimeout bounds a token grant plus the write that stores it. The
	// pair runs detached from the request context.
	grantTimeout = 30 * time.Second
)

// Config holds per-provider delegation settings.
type Config struct {
	Provider        string
	LinkURL         string // call-to-action target in every message
	ButtonTitle     string
	MaxMessageRunes int
	StateSecret     string
	StateTTL        time.Duration
}

// TokenManager acquires, refreshes and uses delegated credentials.
type TokenManager struct {
	tokens   domain.DelegatedTokenRepository
	endpoint domain.TokenEndpoint
	sender   domain.MessageSender
	states   *StateSigner
	cfg      Config
	now      domain.Clock
	logger   *slog.Logger

	refreshes singleflight.Group
}

// NewTokenManager creates a TokenManager. A nil clock selects time.Now.
func NewTokenManager(
	tokens domain.DelegatedTokenRepository,
	endpoint domain.TokenEndpoint,
	sender domain.MessageSender,
	cfg Config,
	now domain.Clock,
	logger *slog.Logger,
) (*TokenManager, error) {
	if cfg.Provider == "" {
		cfg.Provider = domain.ProviderKakao
	}
	if cfg.MaxMessageRunes <= 0 {
		cfg.MaxMessageRunes = defaultMaxMessageRunes
	}
	if now == nil {
		now = time.Now
	}
	states, err := NewStateSigner(cfg.StateSecret, cfg.StateTTL, now)
	if err != nil {
		return nil, err
	}
	return &TokenManager{
		tokens:   tokens,
		endpoint: endpoint,
		sender:   sender,
		states:   states,
		cfg:      cfg,
		now:      now,
		logger:   logger,
	}, nil
}

// AuthorizeURL returns the provider consent URL for principalID.
func (m *TokenManager) AuthorizeURL(principalID string) (string, error) {
	if principalID == "" {
		return "", domain.ErrValidation("principal id is required")
	}
	state, err := m.states.Sign(principalID)
	if err != nil {
		return "", err
	}
	return m.endpoint.AuthCodeURL(state), nil
}

// VerifyState returns the principal a consent callback belongs to.
func (m *TokenManager) VerifyState(state string) (string, error) {
	return m.states.Verify(state)
}

// Acquire exchanges an authorization code and stores the resulting
// credential, replacing any existing one for the principal.
func (m *TokenManager) Acquire(ctx context.Context, code, principalID string) error {
	if strings.TrimSpace(code) == "" || principalID == "" {
		return domain.ErrValidation("authorization code and principal id are required")
	}
	ctx, cancel := detached(ctx)
	defer cancel()

	grant, err := m.endpoint.Exchange(ctx, code)
	if err != nil {
		return domain.ErrAuthExchangeFailed(err, "authorization code exchange failed")
	}
	if grant.AccessToken == "" {
		return domain.ErrAuthExchangeFailed(nil, "token endpoint returned no access token")
	}

	if _, err := m.tokens.Upsert(ctx, &domain.DelegatedToken{
		PrincipalID:  principalID,
		Provider:     m.cfg.Provider,
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		ExpiresAt:    m.now().Add(grant.ExpiresIn),
	}); err != nil {
		return err
	}
	m.logger.InfoContext(ctx, "delegated token acquired",
		"principal_id", principalID, "provider", m.cfg.Provider,
		"has_refresh_token", grant.RefreshToken != "")
	return nil
}

// EnsureFreshToken returns a usable access token, refreshing a stale one.
func (m *TokenManager) EnsureFreshToken(ctx context.Context, principalID string) (string, error) {
	tok, err := m.load(ctx, principalID)
	if err != nil {
		return "", err
	}
	if !tok.IsStale(m.now()) {
		return tok.AccessToken, nil
	}
	if tok.RefreshToken == "" {
		return "", domain.ErrReauthRequired(nil, "access token expired and no refresh token is stored")
	}

	// Coalesce concurrent refreshes of the same credential in this process.
	// A caller that gives up stops waiting; the shared refresh carries on.
	ch := m.refreshes.DoChan(principalID, func() (interface{}, error) {
		return m.refresh(ctx, tok)
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), grantTimeout)
}

func (m *TokenManager) refresh(ctx context.Context, tok *domain.DelegatedToken) (string, error) {
	ctx, cancel := detached(ctx)
	defer cancel()

	grant, err := m.endpoint.Refresh(ctx, tok.RefreshToken)
	if err != nil {
		m.logger.WarnContext(ctx, "delegated token refresh failed",
			"principal_id", tok.PrincipalID, "provider", m.cfg.Provider, "error", err)
		return "", domain.ErrReauthRequired(err, "token refresh failed")
	}
	if grant.AccessToken == "" {
		return "", domain.ErrReauthRequired(nil, "token endpoint returned no access token")
	}

	next := *tok
	next.AccessToken = grant.AccessToken
	if grant.RefreshToken != "" {
		next.RefreshToken = grant.RefreshToken
	}
	next.ExpiresAt = m.now().Add(grant.ExpiresIn)
	if _, err := m.tokens.Upsert(ctx, &next); err != nil {
		return "", err
	}
	m.logger.InfoContext(ctx, "delegated token refreshed",
		"principal_id", tok.PrincipalID, "provider", m.cfg.Provider,
		"rotated_refresh_token", grant.RefreshToken != "")
	return next.AccessToken, nil
}

// Send delivers message to the principal's own chat. Messages longer than
// the configured limit are cut and end in "...".
func (m *TokenManager) Send(ctx context.Context, principalID, message string) error {
	if strings.TrimSpace(message) == "" {
		return domain.ErrValidation("message is required")
	}
	accessToken, err := m.EnsureFreshToken(ctx, principalID)
	if err != nil {
		return err
	}
	err = m.sender.SendText(ctx, accessToken, domain.TextMessage{
		Text:        Truncate(message, m.cfg.MaxMessageRunes),
		LinkURL:     m.cfg.LinkURL,
		ButtonTitle: m.cfg.ButtonTitle,
	})
	if err != nil {
		return domain.ErrDeliveryFailed(err, "message delivery failed")
	}
	m.logger.InfoContext(ctx, "message sent", "principal_id", principalID, "provider", m.cfg.Provider)
	return nil
}

// Status reports whether principalID has a credential and whether it expired.
func (m *TokenManager) Status(ctx context.Context, principalID string) (domain.ConnectionStatus, error) {
	tok, err := m.tokens.Get(ctx, principalID, m.cfg.Provider)
	var notFound *domain.NotFoundError
	switch {
	case errors.As(err, &notFound):
		return domain.ConnectionStatus{}, nil
	case err != nil:
		return domain.ConnectionStatus{}, err
	}
	return domain.ConnectionStatus{Connected: true, Expired: tok.IsStale(m.now())}, nil
}

// Disconnect forgets the principal's credential. Disconnecting twice is not
// an error.
func (m *TokenManager) Disconnect(ctx context.Context, principalID string) error {
	err := m.tokens.Delete(ctx, principalID, m.cfg.Provider)
	var notFound *domain.NotFoundError
	if err != nil && !errors.As(err, &notFound) {
		return err
	}
	if err == nil {
		m.logger.InfoContext(ctx, "delegated token removed", "principal_id", principalID, "provider", m.cfg.Provider)
	}
	return nil
}

func (m *TokenManager) load(ctx context.Context, principalID string) (*domain.DelegatedToken, error) {
	tok, err := m.tokens.Get(ctx, principalID, m.cfg.Provider)
	var notFound *domain.NotFoundError
	if errors.As(err, &notFound) {
		return nil, domain.ErrNotConnected("%s is not connected", m.cfg.Provider)
	}
	return tok, err
}

// Truncate shortens s to at most limit characters, replacing the tail with
// "..." when it had to cut.
func Truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	keep := limit - len(ellipsis)
	if keep < 0 {
		keep = 0
	}
	r := []rune(s)
	return string(r[:keep]) + ellipsis
}
