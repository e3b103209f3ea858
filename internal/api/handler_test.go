package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blogmate/internal/db"
	"blogmate/internal/db/crypto"
	"blogmate/internal/db/repository"
	"blogmate/internal/domain"
	"blogmate/internal/middleware"
	"blogmate/internal/service/avatar"
	"blogmate/internal/service/delegation"
	"blogmate/internal/service/profile"
	"blogmate/internal/service/provisioning"
	"blogmate/internal/testutil"
)

const jwtSecret = "api-test-secret"

type testEnv struct {
	server   *httptest.Server
	issuer   *middleware.HS256Validator
	identity *testutil.FakeIdentityService
	profiles *repository.ProfileRepo
	tokens   *delegation.TokenManager
	endpoint *testutil.MockTokenEndpoint
	sender   *testutil.MockMessageSender
	store    *testutil.MockObjectStore
}

func newTestEnv(t *testing.T, login *LoginConfig) *testEnv {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	pool := db.OpenTestSQLite(t)
	enc, err := crypto.NewEncryptor(strings.Repeat("0f", 32))
	require.NoError(t, err)

	env := &testEnv{
		identity: testutil.NewFakeIdentityService(),
		profiles: repository.NewProfileRepo(pool),
		endpoint: &testutil.MockTokenEndpoint{},
		sender:   &testutil.MockMessageSender{},
		store:    &testutil.MockObjectStore{},
	}
	env.issuer, err = middleware.NewHS256Validator(jwtSecret, "")
	require.NoError(t, err)

	env.tokens, err = delegation.NewTokenManager(
		repository.NewDelegatedTokenRepo(pool, enc), env.endpoint, env.sender,
		delegation.Config{LinkURL: "http://app", ButtonTitle: "글 관리하기", StateSecret: "state"},
		nil, logger)
	require.NoError(t, err)

	deps := HandlerDeps{
		Users:          provisioning.NewProvisioner(env.identity, env.profiles, provisioning.Config{MinPasswordLength: 6, DefaultJobTitle: "간호 상담사"}, logger),
		Tokens:         env.tokens,
		Profiles:       profile.NewService(env.profiles, logger),
		Avatars:        avatar.NewService(env.store, env.profiles, 0, logger),
		KakaoResultURL: "http://app/profile",
		Logger:         logger,
	}
	if login != nil {
		deps.Login = *login
	}
	router := NewRouter(RouterConfig{
		Handler:     NewHandler(deps),
		Validator:   env.issuer,
		Profiles:    env.profiles,
		CORSOrigins: []string{"*"},
		Logger:      logger,
	})
	env.server = httptest.NewServer(router)
	t.Cleanup(env.server.Close)
	return env
}

func (e *testEnv) seedUser(t *testing.T, id, email string, admin bool) string {
	t.Helper()
	e.identity.Seed(id, email)
	_, err := e.profiles.Create(context.Background(), &domain.Profile{PrincipalID: id, Name: id, IsAdmin: admin})
	require.NoError(t, err)
	tok, _, err := e.issuer.Issue(id, email, time.Hour)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.server.URL+path, rdr)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	resp, err := client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, nil)
	resp := env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))
}

func TestAdminUsers_Lifecycle(t *testing.T) {
	env := newTestEnv(t, nil)
	admin := env.seedUser(t, "admin-1", "root@x.com", true)

	resp := env.do(t, http.MethodPost, "/v1/admin/users", admin, CreateUserRequest{Email: "a@x.com", Password: "secret1", Name: "Ann"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[User](t, resp)
	assert.Equal(t, "a@x.com", created.Email)

	resp = env.do(t, http.MethodGet, "/v1/admin/users", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[map[string][]User](t, resp)["users"]
	require.Len(t, list, 2)
	assert.Equal(t, "Ann", list[1].Name)
	assert.False(t, list[1].IsAdmin)

	resp = env.do(t, http.MethodPut, "/v1/admin/users/"+created.ID+"/password", admin, SetPasswordRequest{Password: "another1"})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "another1", env.identity.Password(created.ID))

	resp = env.do(t, http.MethodPut, "/v1/admin/users/"+created.ID+"/admin", admin, SetAdminRequest{IsAdmin: true})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(t, http.MethodDelete, "/v1/admin/users/"+created.ID, admin, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestAdminUsers_ErrorMapping(t *testing.T) {
	env := newTestEnv(t, nil)
	admin := env.seedUser(t, "admin-1", "root@x.com", true)
	user := env.seedUser(t, "user-1", "user@x.com", false)

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		body       any
		wantStatus int
		wantKind   domain.Kind
	}{
		{"duplicate", http.MethodPost, "/v1/admin/users", admin, CreateUserRequest{Email: "USER@x.com", Password: "secret1", Name: "Dup"}, http.StatusBadRequest, domain.KindDuplicatePrincipal},
		{"self delete", http.MethodDelete, "/v1/admin/users/admin-1", admin, nil, http.StatusBadRequest, domain.KindSelfDeleteForbidden},
		{"short password", http.MethodPost, "/v1/admin/users", admin, CreateUserRequest{Email: "b@x.com", Password: "123", Name: "B"}, http.StatusBadRequest, ""},
		{"unknown field", http.MethodPost, "/v1/admin/users", admin, map[string]string{"mail": "x"}, http.StatusBadRequest, ""},
		{"non admin", http.MethodGet, "/v1/admin/users", user, nil, http.StatusForbidden, ""},
		{"anonymous", http.MethodGet, "/v1/admin/users", "", nil, http.StatusUnauthorized, ""},
		{"bad token", http.MethodGet, "/v1/admin/users", "garbage", nil, http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			body := decode[ErrorResponse](t, resp)
			assert.Equal(t, tt.wantStatus, body.Code)
			assert.Equal(t, string(tt.wantKind), body.Kind)
			assert.NotEmpty(t, body.RequestID)
		})
	}

	t.Run("identity outage is bad gateway", func(t *testing.T) {
		env.identity.ListErr = context.DeadlineExceeded
		defer func() { env.identity.ListErr = nil }()
		resp := env.do(t, http.MethodGet, "/v1/admin/users", admin, nil)
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
		assert.Equal(t, string(domain.KindIdentityServiceError), decode[ErrorResponse](t, resp).Kind)
	})
}

func TestProfile(t *testing.T) {
	env := newTestEnv(t, nil)
	tok := env.seedUser(t, "user-1", "user@x.com", false)

	resp := env.do(t, http.MethodPut, "/v1/profile", tok, UpdateProfileRequest{Name: "Ann", Job: "간호사", BlogStyle: "친근"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "간호사", decode[Profile](t, resp).Job)

	resp = env.do(t, http.MethodGet, "/v1/profile", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	p := decode[Profile](t, resp)
	assert.Equal(t, "Ann", p.Name)
	assert.Equal(t, "친근", p.BlogStyle)

	resp = env.do(t, http.MethodPut, "/v1/profile", tok, UpdateProfileRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func avatarRequest(t *testing.T, url, token, filename, contentType string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestAvatar(t *testing.T) {
	env := newTestEnv(t, nil)
	tok := env.seedUser(t, "user-1", "user@x.com", false)

	resp, err := http.DefaultClient.Do(avatarRequest(t, env.server.URL+"/v1/profile/avatar", tok, "me.webp", "image/webp", []byte("RIFF")))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "https://cdn.example.com/avatars/user-1/avatar.webp", decode[AvatarResponse](t, resp).AvatarURL)

	resp2, err := http.DefaultClient.Do(avatarRequest(t, env.server.URL+"/v1/profile/avatar", tok, "doc.txt", "text/plain", []byte("hi")))
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)

	resp4 := env.do(t, http.MethodDelete, "/v1/profile/avatar", tok, nil)
	assert.Equal(t, http.StatusNoContent, resp4.StatusCode)
	p, err := env.profiles.GetByPrincipal(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Nil(t, p.AvatarURL)
}

func TestKakaoFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	tok := env.seedUser(t, "u1", "u1@x.com", false)
	env.endpoint.ExchangeFn = func(_ context.Context, code string) (*domain.TokenGrant, error) {
		if code != "code1" {
			return nil, &kakaoErr{"authorization code not found"}
		}
		return &domain.TokenGrant{AccessToken: "A1", RefreshToken: "R1", ExpiresIn: time.Hour}, nil
	}

	resp := env.do(t, http.MethodGet, "/v1/kakao/status", tok, nil)
	assert.Equal(t, KakaoStatus{}, decode[KakaoStatus](t, resp))

	resp = env.do(t, http.MethodPost, "/v1/kakao/send", tok, SendRequest{Message: "hi"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, string(domain.KindNotConnected), decode[ErrorResponse](t, resp).Kind)

	resp = env.do(t, http.MethodGet, "/v1/kakao/authorize?format=json", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	authURL, err := url.Parse(decode[AuthorizeResponse](t, resp).URL)
	require.NoError(t, err)
	state := authURL.Query().Get("state")
	require.NotEmpty(t, state)

	resp = env.do(t, http.MethodGet, "/v1/kakao/authorize", tok, nil)
	assert.Equal(t, http.StatusFound, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/oauth/kakao/callback?code=code1&state="+url.QueryEscape(state), "", nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "http://app/profile?kakao=success", resp.Header.Get("Location"))

	resp = env.do(t, http.MethodGet, "/v1/kakao/status", tok, nil)
	assert.Equal(t, KakaoStatus{Connected: true, Expired: false}, decode[KakaoStatus](t, resp))

	resp = env.do(t, http.MethodPost, "/v1/kakao/send", tok, SendRequest{Message: "새 글"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, env.sender.Sent, 1)
	assert.Equal(t, "A1", env.sender.Sent[0].AccessToken)

	resp = env.do(t, http.MethodDelete, "/v1/kakao/connection", tok, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = env.do(t, http.MethodGet, "/v1/kakao/status", tok, nil)
	assert.Equal(t, KakaoStatus{}, decode[KakaoStatus](t, resp))
}

type kakaoErr struct{ msg string }

func (e *kakaoErr) Error() string { return e.msg }

func TestKakaoCallback_Errors(t *testing.T) {
	env := newTestEnv(t, nil)
	state, err := env.tokens.AuthorizeURL("u1")
	require.NoError(t, err)
	u, _ := url.Parse(state)
	validState := u.Query().Get("state")
	env.endpoint.ExchangeFn = func(context.Context, string) (*domain.TokenGrant, error) {
		return nil, &kakaoErr{"invalid_grant"}
	}

	tests := []struct {
		name    string
		query   string
		wantMsg string
	}{
		{"provider error", "error=access_denied", "access_denied"},
		{"missing code", "state=" + url.QueryEscape(validState), callbackMissingCode},
		{"bad state", "code=c&state=forged", callbackInvalidState},
		{"exchange rejected", "code=c&state=" + url.QueryEscape(validState), callbackExchangeError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, http.MethodGet, "/oauth/kakao/callback?"+tt.query, "", nil)
			require.Equal(t, http.StatusFound, resp.StatusCode)
			loc, err := url.Parse(resp.Header.Get("Location"))
			require.NoError(t, err)
			assert.Equal(t, "error", loc.Query().Get("kakao"))
			assert.Equal(t, tt.wantMsg, loc.Query().Get("message"))
		})
	}
}

type stubAuthenticator struct{}

func (stubAuthenticator) Authenticate(_ context.Context, email, password string) (*domain.Principal, error) {
	if email == "a@x.com" && password == "secret1" {
		return &domain.Principal{ID: "u1", Email: email}, nil
	}
	return nil, domain.ErrAccessDenied("invalid email or password")
}

func TestIssueToken(t *testing.T) {
	issuer, err := middleware.NewHS256Validator(jwtSecret, "")
	require.NoError(t, err)
	env := newTestEnv(t, &LoginConfig{Authenticator: stubAuthenticator{}, Issuer: issuer, TTL: time.Minute})

	resp := env.do(t, http.MethodPost, "/auth/token", "", LoginRequest{Email: "a@x.com", Password: "secret1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	tr := decode[TokenResponse](t, resp)
	assert.Equal(t, "Bearer", tr.TokenType)

	resp = env.do(t, http.MethodGet, "/v1/kakao/status", tr.AccessToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/auth/token", "", LoginRequest{Email: "a@x.com", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestIssueToken_DisabledWithoutAuthenticator(t *testing.T) {
	env := newTestEnv(t, nil)
	resp := env.do(t, http.MethodPost, "/auth/token", "", LoginRequest{Email: "a@x.com", Password: "secret1"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestKakaoDisabled(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	h := NewHandler(HandlerDeps{Logger: logger, KakaoResultURL: "http://app/profile"})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/kakao/status", nil).WithContext(testutil.UserCtx("u1"))
	h.kakaoStatus(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
