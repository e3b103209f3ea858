// Package kakao implements the KakaoTalk OAuth token endpoint and the
// "send to me" memo API.
package kakao

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"blogmate/internal/domain"
)

// OAuthConfig holds configuration for creating an OAuthClient.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	Scopes       []string
	// HTTPClient is used for token requests. If nil, http.DefaultClient is used.
	HTTPClient *http.Client
}

// TokenError is a rejection from the token endpoint.
type TokenError struct {
	StatusCode  int
	Code        string // e.g. "invalid_grant"
	Description string // e.g. "authorization code not found for code=..."
}

func (e *TokenError) Error() string {
	if e.Description != "" {
		return e.Description
	}
	if e.Code != "" {
		return e.Code
	}
	return fmt.Sprintf("token endpoint returned %d", e.StatusCode)
}

var _ domain.TokenEndpoint = (*OAuthClient)(nil)

// OAuthClient talks to kauth.kakao.com. Client credentials are sent in the
// form body, which is what Kakao expects.
type OAuthClient struct {
	cfg        *oauth2.Config
	httpClient *http.Client
}

// NewOAuthClient creates an OAuthClient.
func NewOAuthClient(c OAuthConfig) (*OAuthClient, error) {
	if c.ClientID == "" {
		return nil, fmt.Errorf("kakao: ClientID is required")
	}
	if c.TokenURL == "" || c.AuthURL == "" {
		return nil, fmt.Errorf("kakao: AuthURL and TokenURL are required")
	}
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OAuthClient{
		cfg: &oauth2.Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			RedirectURL:  c.RedirectURL,
			Scopes:       c.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   c.AuthURL,
				TokenURL:  c.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: httpClient,
	}, nil
}

// AuthCodeURL returns the consent page URL carrying state.
func (c *OAuthClient) AuthCodeURL(state string) string {
	return c.cfg.AuthCodeURL(state)
}

// Exchange trades an authorization code for a token grant.
func (c *OAuthClient) Exchange(ctx context.Context, code string) (*domain.TokenGrant, error) {
	tok, err := c.cfg.Exchange(c.withClient(ctx), code)
	if err != nil {
		return nil, tokenError(err)
	}
	return grantFrom(tok), nil
}

// Refresh runs the refresh_token grant. The returned RefreshToken equals the
// input when Kakao did not rotate it.
func (c *OAuthClient) Refresh(ctx context.Context, refreshToken string) (*domain.TokenGrant, error) {
	src := c.cfg.TokenSource(c.withClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, tokenError(err)
	}
	return grantFrom(tok), nil
}

func (c *OAuthClient) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

func grantFrom(tok *oauth2.Token) *domain.TokenGrant {
	g := &domain.TokenGrant{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	switch {
	case tok.ExpiresIn > 0:
		g.ExpiresIn = time.Duration(tok.ExpiresIn) * time.Second
	case !tok.Expiry.IsZero():
		g.ExpiresIn = time.Until(tok.Expiry).Round(time.Second)
	}
	return g
}

func tokenError(err error) error {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return err
	}
	te := &TokenError{Code: re.ErrorCode, Description: re.ErrorDescription}
	if re.Response != nil {
		te.StatusCode = re.Response.StatusCode
	}
	return te
}
