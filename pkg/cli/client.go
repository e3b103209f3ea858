package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// APIError is a non-2xx response from the blogmate API.
type APIError struct {
	HTTPStatus int    `json:"-"`
	Code       int    `json:"code"`
	Kind       string `json:"kind,omitempty"`
	Message    string `json:"message"`
	RequestID  string `json:"request_id,omitempty"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.HTTPStatus)
	}
	if e.Kind != "" {
		msg = e.Kind + ": " + msg
	}
	if e.RequestID != "" {
		return fmt.Sprintf("%s (HTTP %d, request %s)", msg, e.HTTPStatus, e.RequestID)
	}
	return fmt.Sprintf("%s (HTTP %d)", msg, e.HTTPStatus)
}

// Client talks to the blogmate HTTP API.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewClient returns a Client for baseURL authenticating with token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Do sends body as JSON to path and decodes a JSON response into out.
// Either body or out may be nil.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 300 {
		apiErr := &APIError{HTTPStatus: resp.StatusCode}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(data, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// User mirrors an entry of GET /v1/admin/users.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	Name      string    `json:"name"`
	IsAdmin   bool      `json:"is_admin"`
	AvatarURL *string   `json:"avatar_url"`
}

// Profile mirrors GET /v1/profile.
type Profile struct {
	ID             string    `json:"id"`
	PrincipalID    string    `json:"principal_id"`
	Name           string    `json:"name"`
	Job            string    `json:"job"`
	Experience     string    `json:"experience"`
	BlogStyle      string    `json:"blog_style"`
	AdditionalInfo string    `json:"additional_info"`
	IsAdmin        bool      `json:"is_admin"`
	AvatarURL      *string   `json:"avatar_url"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// KakaoStatus mirrors GET /v1/kakao/status.
type KakaoStatus struct {
	Connected bool `json:"connected"`
	Expired   bool `json:"expired"`
}

// LoginResult mirrors POST /auth/token.
type LoginResult struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var resp struct {
		Users []User `json:"users"`
	}
	if err := c.Do(ctx, http.MethodGet, "/v1/admin/users", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

func (c *Client) CreateUser(ctx context.Context, email, password, name string) (*User, error) {
	body := map[string]string{"email": email, "password": password, "name": name}
	var u User
	if err := c.Do(ctx, http.MethodPost, "/v1/admin/users", nil, body, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.Do(ctx, http.MethodDelete, "/v1/admin/users/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) SetPassword(ctx context.Context, id, password string) error {
	body := map[string]string{"password": password}
	return c.Do(ctx, http.MethodPut, "/v1/admin/users/"+url.PathEscape(id)+"/password", nil, body, nil)
}

func (c *Client) SetAdmin(ctx context.Context, id string, isAdmin bool) error {
	body := map[string]bool{"is_admin": isAdmin}
	return c.Do(ctx, http.MethodPut, "/v1/admin/users/"+url.PathEscape(id)+"/admin", nil, body, nil)
}

func (c *Client) GetProfile(ctx context.Context) (*Profile, error) {
	var p Profile
	if err := c.Do(ctx, http.MethodGet, "/v1/profile", nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) KakaoStatus(ctx context.Context) (*KakaoStatus, error) {
	var s KakaoStatus
	if err := c.Do(ctx, http.MethodGet, "/v1/kakao/status", nil, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) KakaoSend(ctx context.Context, message string) error {
	return c.Do(ctx, http.MethodPost, "/v1/kakao/send", nil, map[string]string{"message": message}, nil)
}

// KakaoAuthorizeURL returns the consent URL the user must open in a browser.
func (c *Client) KakaoAuthorizeURL(ctx context.Context) (string, error) {
	var resp struct {
		URL string `json:"url"`
	}
	q := url.Values{"format": []string{"json"}}
	if err := c.Do(ctx, http.MethodGet, "/v1/kakao/authorize", q, nil, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

func (c *Client) KakaoDisconnect(ctx context.Context) error {
	return c.Do(ctx, http.MethodDelete, "/v1/kakao/connection", nil, nil, nil)
}

// Login exchanges email and password for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	body := map[string]string{"email": email, "password": password}
	var res LoginResult
	if err := c.Do(ctx, http.MethodPost, "/auth/token", nil, body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
