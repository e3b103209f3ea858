package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blogmate/internal/db"
)

// serverEnv clears the variables run reads so the host environment does not
// leak into a test, then applies overrides.
func serverEnv(t *testing.T, overrides map[string]string) {
	t.Helper()
	for _, k := range []string{
		"META_DB_PATH", "LISTEN_ADDR", "TLS_CERT_FILE", "TLS_KEY_FILE", "ENV", "LOG_LEVEL",
		"IDENTITY_BACKEND", "GOTRUE_URL", "GOTRUE_SERVICE_KEY", "AVATAR_BACKEND",
		"AUTH_ISSUER_URL", "AUTH_AUDIENCE", "JWT_SECRET", "KAKAO_CLIENT_ID",
	} {
		t.Setenv(k, "")
	}
	for k, v := range overrides {
		t.Setenv(k, v)
	}
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
}

func tableNames(t *testing.T, path string) []string {
	t.Helper()
	conn, err := db.OpenSQLite(path, db.ModeRead, 1)
	require.NoError(t, err)
	defer conn.Close()

	rows, err := conn.Query(`SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name`)
	require.NoError(t, err)
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names = append(names, name)
	}
	require.NoError(t, rows.Err())
	return names
}

func TestRun_MigrateOnly(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "meta.sqlite")
	serverEnv(t, map[string]string{"META_DB_PATH": dbPath})

	var logs bytes.Buffer
	err := run([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env"), "--migrate-only"}, &logs)
	require.NoError(t, err)

	assert.Contains(t, logs.String(), "migrations applied")
	assert.NotContains(t, logs.String(), "HTTP API listening")
	assert.Subset(t, tableNames(t, dbPath), []string{"principals", "profiles", "delegated_tokens"})

	// A second run finds nothing to apply.
	logs.Reset()
	require.NoError(t, run([]string{"--env-file", "", "--migrate-only"}, &logs))
	assert.NotContains(t, logs.String(), "applied migration")
}

func TestRun_ReadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "from-env-file.sqlite")
	serverEnv(t, nil)
	envFile := filepath.Join(dir, "server.env")
	require.NoError(t, os.WriteFile(envFile, []byte("# local\nMETA_DB_PATH="+dbPath+"\n"), 0o600))

	var logs bytes.Buffer
	require.NoError(t, run([]string{"--env-file", envFile, "--migrate-only"}, &logs))

	_, err := os.Stat(dbPath)
	require.NoError(t, err)
	assert.Contains(t, logs.String(), dbPath)
}

func TestRun_StartupErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "unknown flag",
			args:    []string{"--listen", ":9"},
			wantErr: "unknown flag",
		},
		{
			name:    "tls cert without key",
			env:     map[string]string{"TLS_CERT_FILE": "/etc/blogmate/cert.pem"},
			wantErr: "TLS_CERT_FILE and TLS_KEY_FILE",
		},
		{
			name:    "production without tls",
			env:     map[string]string{"ENV": "production", "ENCRYPTION_KEY": "k", "JWT_SECRET": "s", "CORS_ALLOWED_ORIGINS": "https://blog.example.com"},
			wantErr: "TLS_CERT_FILE/TLS_KEY_FILE must be set in production",
		},
		{
			name:    "gotrue without credentials",
			env:     map[string]string{"IDENTITY_BACKEND": "gotrue"},
			wantErr: "GOTRUE_URL and GOTRUE_SERVICE_KEY",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dbPath := filepath.Join(t.TempDir(), "meta.sqlite")
			env := map[string]string{"META_DB_PATH": dbPath, "CORS_ALLOWED_ORIGINS": "", "ENCRYPTION_KEY": "", "ALLOW_INSECURE_HTTP": ""}
			for k, v := range tt.env {
				env[k] = v
			}
			serverEnv(t, env)

			args := append([]string{"--env-file", "", "--migrate-only"}, tt.args...)
			err := run(args, &bytes.Buffer{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)

			_, statErr := os.Stat(dbPath)
			assert.True(t, os.IsNotExist(statErr), "database must not be created when startup fails")
		})
	}
}

func TestCurlHostForListenAddr(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		listenAddr string
		want       string
	}{
		{name: "port only", listenAddr: ":8080", want: "localhost:8080"},
		{name: "ipv4 host and port", listenAddr: "127.0.0.1:8080", want: "127.0.0.1:8080"},
		{name: "wildcard ipv4", listenAddr: "0.0.0.0:8080", want: "localhost:8080"},
		{name: "wildcard ipv6", listenAddr: "[::]:8080", want: "localhost:8080"},
		{name: "ipv6 loopback", listenAddr: "[::1]:8080", want: "[::1]:8080"},
		{name: "trim host and port", listenAddr: " localhost:9090 ", want: "localhost:9090"},
		{name: "trim port only", listenAddr: "  :7070  ", want: "localhost:7070"},
		{name: "empty falls back", listenAddr: "", want: "localhost:8080"},
		{name: "whitespace falls back", listenAddr: "   ", want: "localhost:8080"},
		{name: "malformed passes through", listenAddr: "localhost", want: "localhost"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := curlHostForListenAddr(tt.listenAddr)

			assert.Equal(t, tt.want, got)
		})
	}
}
