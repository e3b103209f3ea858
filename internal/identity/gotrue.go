// Package identity provides the IdentityService backends: a GoTrue admin API
// client for hosted auth and a SQLite-backed local service.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	gotrue "github.com/supabase-community/gotrue-go"
	"github.com/supabase-community/gotrue-go/types"

	"blogmate/internal/domain"
)

const (
	gotruePageSize    = 200
	duplicateErrorTag = "already"
)

// GoTrueConfig holds configuration for creating a GoTrueService.
type GoTrueConfig struct {
	// BaseURL is the auth service root, e.g. "https://<project>.supabase.co/auth/v1".
	BaseURL string
	// ServiceKey is the service-role key sent as bearer token and apikey header.
	ServiceKey string
	// HTTPClient supplies the transport and timeout. If nil, http.DefaultClient is used.
	HTTPClient *http.Client
	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
	// Purger removes local rows owned by a deleted principal. Optional.
	Purger domain.PrincipalDataPurger
}

// APIError is a non-2xx answer from the GoTrue admin API. GoTrue has used
// several body shapes over time; all of them are folded into Text.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"error_code"`
	Msg        string `json:"msg"`
	Message    string `json:"message"`
	ErrorText  string `json:"error"`
	Desc       string `json:"error_description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gotrue: %d %s", e.StatusCode, e.Text())
}

// Text returns the most descriptive message present in the body.
func (e *APIError) Text() string {
	for _, s := range []string{e.Msg, e.Message, e.Desc, e.ErrorText} {
		if s != "" {
			return s
		}
	}
	return http.StatusText(e.StatusCode)
}

// IsDuplicate reports whether the error says the email is already registered.
func (e *APIError) IsDuplicate() bool {
	return e.Code == "email_exists" || e.Code == "user_already_exists" ||
		strings.Contains(strings.ToLower(e.Text()), duplicateErrorTag)
}

// statusPrefix is how gotrue-go reports non-2xx responses:
// "response status code <n>: <body>".
const statusPrefix = "response status code "

// asAPIError recovers the status and body from a gotrue-go error.
func asAPIError(err error) (*APIError, bool) {
	rest, ok := strings.CutPrefix(err.Error(), statusPrefix)
	if !ok {
		return nil, false
	}
	code, body, _ := strings.Cut(rest, ": ")
	status, convErr := strconv.Atoi(code)
	if convErr != nil {
		return nil, false
	}
	apiErr := &APIError{StatusCode: status}
	if json.Unmarshal([]byte(body), apiErr) != nil {
		apiErr.Message = strings.TrimSpace(body)
	}
	return apiErr, true
}

func remoteError(err error) error {
	if apiErr, ok := asAPIError(err); ok {
		return apiErr
	}
	return err
}

// callTransport binds one gotrue-go call to a context and extra query
// parameters, neither of which the library's admin methods accept.
type callTransport struct {
	ctx   context.Context
	query url.Values
	base  http.RoundTripper
}

func (t callTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(t.ctx)
	if len(t.query) > 0 {
		q := r.URL.Query()
		for k, vs := range t.query {
			q[k] = vs
		}
		r.URL.RawQuery = q.Encode()
	}
	return t.base.RoundTrip(r)
}

var _ domain.IdentityService = (*GoTrueService)(nil)

// GoTrueService implements domain.IdentityService against the GoTrue
// (Supabase Auth) admin API.
type GoTrueService struct {
	client     gotrue.Client
	httpClient *http.Client
	logger     *slog.Logger
	purger     domain.PrincipalDataPurger
}

// NewGoTrueService creates a GoTrueService.
func NewGoTrueService(cfg GoTrueConfig) (*GoTrueService, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("identity: GoTrue BaseURL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("identity: invalid GoTrue BaseURL %q: %w", cfg.BaseURL, err)
	}
	if cfg.ServiceKey == "" {
		return nil, fmt.Errorf("identity: GoTrue ServiceKey is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	// The project reference only builds the default supabase.co URL, which
	// WithCustomGoTrueURL replaces.
	client := gotrue.New("", cfg.ServiceKey).
		WithCustomGoTrueURL(strings.TrimRight(cfg.BaseURL, "/")).
		WithToken(cfg.ServiceKey)
	return &GoTrueService{
		client:     client,
		httpClient: httpClient,
		logger:     logger,
		purger:     cfg.Purger,
	}, nil
}

// api returns a client whose requests carry ctx and query.
func (s *GoTrueService) api(ctx context.Context, query url.Values) gotrue.Client {
	base := s.httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	return s.client.WithClient(http.Client{
		Transport: callTransport{ctx: ctx, query: query, base: base},
		Timeout:   s.httpClient.Timeout,
	})
}

func parseUserID(id string) (uuid.UUID, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, domain.ErrIdentityService(err, "principal id %q is not a GoTrue user id", id)
	}
	return uid, nil
}

func principalFrom(u types.User) domain.Principal {
	return domain.Principal{ID: u.ID.String(), Email: u.Email, CreatedAt: u.CreatedAt}
}

// CreatePrincipal creates a user with email_confirm set, so no confirmation
// mail is sent.
func (s *GoTrueService) CreatePrincipal(ctx context.Context, email, password string) (*domain.Principal, error) {
	resp, err := s.api(ctx, nil).AdminCreateUser(types.AdminCreateUserRequest{
		Email:        email,
		Password:     &password,
		EmailConfirm: true,
	})
	if err != nil {
		err = remoteError(err)
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.IsDuplicate() {
			return nil, domain.ErrDuplicatePrincipal("%s", apiErr.Text())
		}
		return nil, domain.ErrIdentityService(err, "create principal")
	}
	if resp.ID == uuid.Nil {
		return nil, domain.ErrIdentityService(nil, "create principal: response carried no user id")
	}
	p := principalFrom(resp.User)
	s.logger.Info("principal created", "principal_id", p.ID)
	return &p, nil
}

// DeletePrincipal deletes the remote user, then purges local data it owned.
func (s *GoTrueService) DeletePrincipal(ctx context.Context, id string) error {
	uid, err := parseUserID(id)
	if err != nil {
		return err
	}
	if err := s.api(ctx, nil).AdminDeleteUser(types.AdminDeleteUserRequest{UserID: uid}); err != nil {
		return domain.ErrIdentityService(remoteError(err), "delete principal %s", id)
	}
	s.logger.Info("principal deleted", "principal_id", id)
	if s.purger == nil {
		return nil
	}
	if err := s.purger.Purge(ctx, id); err != nil {
		s.logger.Error("purge local data after principal delete", "principal_id", id, "error", err)
		return fmt.Errorf("purge local data for %s: %w", id, err)
	}
	return nil
}

// ListPrincipals pages through /admin/users in the service's own order.
func (s *GoTrueService) ListPrincipals(ctx context.Context) ([]domain.Principal, error) {
	var out []domain.Principal
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("page", strconv.Itoa(page))
		q.Set("per_page", strconv.Itoa(gotruePageSize))

		resp, err := s.api(ctx, q).AdminListUsers()
		if err != nil {
			return nil, domain.ErrIdentityService(remoteError(err), "list principals")
		}
		for _, u := range resp.Users {
			out = append(out, principalFrom(u))
		}
		if len(resp.Users) < gotruePageSize {
			return out, nil
		}
	}
}

// SetPassword replaces the user's password.
func (s *GoTrueService) SetPassword(ctx context.Context, id, password string) error {
	uid, err := parseUserID(id)
	if err != nil {
		return err
	}
	_, err = s.api(ctx, nil).AdminUpdateUser(types.AdminUpdateUserRequest{UserID: uid, Password: password})
	if err != nil {
		return domain.ErrIdentityService(remoteError(err), "set password for %s", id)
	}
	return nil
}
