package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blogmate/internal/config"
	"blogmate/internal/db"
	"blogmate/internal/domain"
	"blogmate/internal/testutil"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		EncryptionKey:      strings.Repeat("0", 64),
		AppURL:             "http://localhost:8080",
		RateLimitRPS:       1000,
		RateLimitBurst:     1000,
		CORSAllowedOrigins: []string{"*"},
		Auth:               config.AuthConfig{JWTSecret: "app-test-secret"},
		Identity: config.IdentityConfig{
			Backend:           config.IdentityBackendLocal,
			PasswordMinLength: 6,
			DefaultJobTitle:   "간호 상담사",
		},
		Avatar: config.AvatarConfig{
			Backend:       config.AvatarBackendLocal,
			LocalDir:      t.TempDir(),
			PublicBaseURL: "http://localhost:8080/avatars",
			MaxBytes:      2 << 20,
		},
	}
}

func newTestApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	a, err := New(ctx, Deps{Cfg: cfg, Pool: db.OpenTestSQLite(t), Logger: slog.New(slog.DiscardHandler)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestNew_LocalBackendEndToEnd(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	assert.Nil(t, a.Services.Tokens)

	// First account is created directly and promoted through the bootstrap path.
	admin, err := a.Services.Provisioner.Create(testutil.AdminCtx("bootstrap"), domain.CreateUserRequest{
		Email: "root@x.com", Password: "secret1", Name: "Root",
	})
	require.NoError(t, err)
	require.NoError(t, a.Services.Provisioner.EnsureBootstrapAdmin(context.Background(), "root@x.com"))

	srv := httptest.NewServer(a.Router)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/auth/token", "application/json",
		strings.NewReader(`{"email":"root@x.com","password":"secret1"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var tok struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tok))

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/v1/admin/users", nil)
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	body, _ := io.ReadAll(resp2.Body)
	require.Equal(t, http.StatusOK, resp2.StatusCode, string(body))
	assert.Contains(t, string(body), admin.ID)

	req3, _ := http.NewRequest(http.MethodGet, srv.URL+"/v1/kakao/status", nil)
	req3.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	resp3, err := http.DefaultClient.Do(req3)
	require.NoError(t, err)
	defer resp3.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp3.StatusCode)
}

func TestNew_KakaoEnabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Kakao = config.KakaoConfig{
		ClientID:    "kakao-app",
		RedirectURI: "http://localhost:8080/oauth/kakao/callback",
		AuthURL:     "https://kauth.kakao.com/oauth/authorize",
		TokenURL:    "https://kauth.kakao.com/oauth/token",
		APIURL:      "https://kapi.kakao.com",
		Scope:       "talk_message",
		ButtonTitle: "글 관리하기",
		StateSecret: "state",
		ResultURL:   "http://localhost:8080/profile",
	}
	a := newTestApp(t, cfg)
	require.NotNil(t, a.Services.Tokens)

	u, err := a.Services.Tokens.AuthorizeURL("u1")
	require.NoError(t, err)
	assert.Contains(t, u, "client_id=kakao-app")
	assert.Contains(t, u, "scope=talk_message")
	assert.Contains(t, u, "response_type=code")
}

func TestNew_GoTrueBackendHasNoLogin(t *testing.T) {
	cfg := testConfig(t)
	cfg.Identity.Backend = config.IdentityBackendGoTrue
	cfg.Identity.GoTrueURL = "http://gotrue.invalid/auth/v1"
	cfg.Identity.GoTrueServiceKey = "service-key"
	a := newTestApp(t, cfg)

	srv := httptest.NewServer(a.Router)
	defer srv.Close()
	resp, err := http.Post(srv.URL+"/auth/token", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestNew_BadEncryptionKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.EncryptionKey = "short"
	_, err := New(context.Background(), Deps{Cfg: cfg, Pool: db.OpenTestSQLite(t), Logger: slog.New(slog.DiscardHandler)})
	require.Error(t, err)
}
