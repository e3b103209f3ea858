// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	insecureEncryptionKey = "0000000000000000000000000000000000000000000000000000000000000000"
	insecureJWTSecret     = "dev-secret-change-in-production"
)

// Identity backends.
const (
	IdentityBackendLocal  = "local"
	IdentityBackendGoTrue = "gotrue"
)

// Avatar storage backends.
const (
	AvatarBackendLocal = "local"
	AvatarBackendS3    = "s3"
	AvatarBackendGCS   = "gcs"
	AvatarBackendAzure = "azure"
)

// AuthConfig holds bearer-token validation settings.
type AuthConfig struct {
	IssuerURL      string   // OIDC issuer URL (e.g., https://<project>.supabase.co/auth/v1)
	JWKSURL        string   // Override JWKS URL (if no .well-known discovery)
	JWTSecret      string   // HS256 shared secret (GoTrue JWT secret or local dev secret)
	Audience       string   // Required JWT audience claim
	AllowedIssuers []string // Accepted issuers (defaults to [IssuerURL])
	BootstrapAdmin string   // Email granted admin rights at startup
}

// OIDCEnabled returns true when an external identity provider is configured.
func (a *AuthConfig) OIDCEnabled() bool {
	return a.IssuerURL != "" || a.JWKSURL != ""
}

// IdentityConfig selects and configures the identity service backend.
type IdentityConfig struct {
	Backend           string // "local" (default) or "gotrue"
	GoTrueURL         string // base URL of the GoTrue auth service, e.g. https://x.supabase.co/auth/v1
	GoTrueServiceKey  string // service-role key used for the admin API
	PasswordMinLength int    // default 6
	DefaultJobTitle   string // job title written to freshly provisioned profiles
}

// KakaoConfig holds the KakaoTalk OAuth client and messaging settings.
type KakaoConfig struct {
	ClientID     string
	ClientSecret string // optional; only sent when the app has one enabled
	RedirectURI  string
	AuthURL      string
	TokenURL     string
	APIURL       string
	Scope        string
	ButtonTitle  string
	StateSecret  string // HMAC key for the signed OAuth state parameter
	ResultURL    string // where the callback redirects the browser when done
}

// Enabled returns true when a Kakao client id is configured.
func (k *KakaoConfig) Enabled() bool {
	return k.ClientID != ""
}

// AvatarConfig selects the object store for profile images.
type AvatarConfig struct {
	Backend       string
	LocalDir      string
	PublicBaseURL string
	MaxBytes      int64

	// S3 fields are optional; nil when not configured.
	S3KeyID    *string
	S3Secret   *string
	S3Endpoint *string
	S3Region   *string
	S3Bucket   *string

	GCSBucket          string
	GCSCredentialsFile string

	AzureAccountName string
	AzureAccountKey  string
	AzureContainer   string
}

// HasS3Config returns true if all required S3 fields are set.
func (a *AvatarConfig) HasS3Config() bool {
	return a.S3KeyID != nil && a.S3Secret != nil &&
		a.S3Region != nil && a.S3Bucket != nil
}

// Config holds the configuration for the blogmate API server.
type Config struct {
	MetaDBPath        string // path to the SQLite database
	ListenAddr        string // HTTP listen address (default ":8080")
	TLSCertFile       string // TLS certificate file path (optional)
	TLSKeyFile        string // TLS private key file path (optional)
	AllowInsecureHTTP bool   // allow non-TLS listener in production (for trusted TLS termination)
	EncryptionKey     string // 64-char hex string (32-byte AES key) for encrypting stored tokens
	LogLevel          string // log level: debug, info, warn, error (default "info")
	Env               string // environment: "development" (default) or "production"
	AppURL            string // public base URL of the web application

	// Outbound HTTP timeout for identity, OAuth and messaging calls.
	HTTPClientTimeout time.Duration

	// Rate limiting
	RateLimitRPS   float64 // sustained requests per second (default 100)
	RateLimitBurst int     // burst capacity (default 200)

	// CORS
	CORSAllowedOrigins []string // allowed origins for CORS (default: ["*"])

	Auth     AuthConfig
	Identity IdentityConfig
	Kakao    KakaoConfig
	Avatar   AvatarConfig

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when the server is running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		MetaDBPath:        os.Getenv("META_DB_PATH"),
		ListenAddr:        os.Getenv("LISTEN_ADDR"),
		TLSCertFile:       os.Getenv("TLS_CERT_FILE"),
		TLSKeyFile:        os.Getenv("TLS_KEY_FILE"),
		EncryptionKey:     os.Getenv("ENCRYPTION_KEY"),
		LogLevel:          os.Getenv("LOG_LEVEL"),
		Env:               os.Getenv("ENV"),
		AppURL:            strings.TrimRight(os.Getenv("APP_URL"), "/"),
		AllowInsecureHTTP: parseBoolEnvDefault("ALLOW_INSECURE_HTTP", false),
	}

	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimitRPS = f
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitBurst = n
		}
	}
	if v := os.Getenv("HTTP_CLIENT_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("HTTP_CLIENT_TIMEOUT: %w", err)
		}
		cfg.HTTPClientTimeout = d
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.CORSAllowedOrigins = splitList(v)
	}

	cfg.Auth = AuthConfig{
		IssuerURL:      os.Getenv("AUTH_ISSUER_URL"),
		JWKSURL:        os.Getenv("AUTH_JWKS_URL"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		Audience:       os.Getenv("AUTH_AUDIENCE"),
		BootstrapAdmin: strings.TrimSpace(os.Getenv("AUTH_BOOTSTRAP_ADMIN")),
	}
	if v := os.Getenv("AUTH_ALLOWED_ISSUERS"); v != "" {
		cfg.Auth.AllowedIssuers = splitList(v)
	}

	cfg.Identity = IdentityConfig{
		Backend:          strings.ToLower(os.Getenv("IDENTITY_BACKEND")),
		GoTrueURL:        strings.TrimRight(os.Getenv("GOTRUE_URL"), "/"),
		GoTrueServiceKey: os.Getenv("GOTRUE_SERVICE_KEY"),
		DefaultJobTitle:  os.Getenv("DEFAULT_JOB_TITLE"),
	}
	if v := os.Getenv("PASSWORD_MIN_LENGTH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("PASSWORD_MIN_LENGTH must be a positive integer, got %q", v)
		}
		cfg.Identity.PasswordMinLength = n
	}

	cfg.Kakao = KakaoConfig{
		ClientID:     os.Getenv("KAKAO_CLIENT_ID"),
		ClientSecret: os.Getenv("KAKAO_CLIENT_SECRET"),
		RedirectURI:  os.Getenv("KAKAO_REDIRECT_URI"),
		AuthURL:      os.Getenv("KAKAO_AUTH_URL"),
		TokenURL:     os.Getenv("KAKAO_TOKEN_URL"),
		APIURL:       strings.TrimRight(os.Getenv("KAKAO_API_URL"), "/"),
		Scope:        os.Getenv("KAKAO_SCOPE"),
		ButtonTitle:  os.Getenv("KAKAO_BUTTON_TITLE"),
		StateSecret:  os.Getenv("OAUTH_STATE_SECRET"),
		ResultURL:    os.Getenv("KAKAO_RESULT_URL"),
	}

	cfg.Avatar = AvatarConfig{
		Backend:            strings.ToLower(os.Getenv("AVATAR_BACKEND")),
		LocalDir:           os.Getenv("AVATAR_LOCAL_DIR"),
		PublicBaseURL:      strings.TrimRight(os.Getenv("AVATAR_PUBLIC_BASE_URL"), "/"),
		GCSBucket:          os.Getenv("GCS_BUCKET"),
		GCSCredentialsFile: os.Getenv("GCS_CREDENTIALS_FILE"),
		AzureAccountName:   os.Getenv("AZURE_ACCOUNT_NAME"),
		AzureAccountKey:    os.Getenv("AZURE_ACCOUNT_KEY"),
		AzureContainer:     os.Getenv("AZURE_CONTAINER"),
	}
	cfg.Avatar.S3KeyID = optionalEnv("KEY_ID")
	cfg.Avatar.S3Secret = optionalEnv("SECRET")
	cfg.Avatar.S3Endpoint = optionalEnv("ENDPOINT")
	cfg.Avatar.S3Region = optionalEnv("REGION")
	cfg.Avatar.S3Bucket = optionalEnv("BUCKET")

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() error {
	if c.MetaDBPath == "" {
		c.MetaDBPath = "blogmate.sqlite"
	}
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.AppURL == "" {
		c.AppURL = "http://localhost:8080"
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return fmt.Errorf("both TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	}
	if c.EncryptionKey == "" {
		c.EncryptionKey = insecureEncryptionKey
		c.Warnings = append(c.Warnings, "ENCRYPTION_KEY not set, using insecure default. Set ENCRYPTION_KEY in production!")
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.HTTPClientTimeout == 0 {
		c.HTTPClientTimeout = 10 * time.Second
	}
	if c.RateLimitRPS == 0 {
		c.RateLimitRPS = 100
	}
	if c.RateLimitBurst == 0 {
		c.RateLimitBurst = 200
	}
	if len(c.CORSAllowedOrigins) == 0 {
		c.CORSAllowedOrigins = []string{"*"}
	}

	if c.Auth.JWTSecret == "" && !c.Auth.OIDCEnabled() {
		c.Auth.JWTSecret = insecureJWTSecret
		c.Warnings = append(c.Warnings, "neither JWT_SECRET nor AUTH_ISSUER_URL is set, using insecure dev JWT secret")
	}

	if c.Identity.Backend == "" {
		c.Identity.Backend = IdentityBackendLocal
	}
	if c.Identity.PasswordMinLength == 0 {
		c.Identity.PasswordMinLength = 6
	}
	if c.Identity.DefaultJobTitle == "" {
		c.Identity.DefaultJobTitle = "간호 상담사"
	}

	if c.Kakao.AuthURL == "" {
		c.Kakao.AuthURL = "https://kauth.kakao.com/oauth/authorize"
	}
	if c.Kakao.TokenURL == "" {
		c.Kakao.TokenURL = "https://kauth.kakao.com/oauth/token"
	}
	if c.Kakao.APIURL == "" {
		c.Kakao.APIURL = "https://kapi.kakao.com"
	}
	if c.Kakao.Scope == "" {
		c.Kakao.Scope = "talk_message"
	}
	if c.Kakao.ButtonTitle == "" {
		c.Kakao.ButtonTitle = "글 관리하기"
	}
	if c.Kakao.RedirectURI == "" {
		c.Kakao.RedirectURI = c.AppURL + "/oauth/kakao/callback"
	}
	if c.Kakao.ResultURL == "" {
		c.Kakao.ResultURL = c.AppURL + "/profile"
	}
	if c.Kakao.StateSecret == "" {
		c.Kakao.StateSecret = c.Auth.JWTSecret
		if c.Kakao.Enabled() {
			c.Warnings = append(c.Warnings, "OAUTH_STATE_SECRET not set, signing OAuth state with JWT_SECRET")
		}
	}
	if !c.Kakao.Enabled() {
		c.Warnings = append(c.Warnings, "KAKAO_CLIENT_ID not set, KakaoTalk notifications are disabled")
	}

	if c.Avatar.Backend == "" {
		c.Avatar.Backend = AvatarBackendLocal
	}
	if c.Avatar.LocalDir == "" {
		c.Avatar.LocalDir = "avatars"
	}
	if c.Avatar.PublicBaseURL == "" && c.Avatar.Backend == AvatarBackendLocal {
		c.Avatar.PublicBaseURL = c.AppURL + "/avatars"
	}
	if c.Avatar.MaxBytes == 0 {
		c.Avatar.MaxBytes = 2 << 20
	}
	return nil
}

func (c *Config) validate() error {
	switch c.Identity.Backend {
	case IdentityBackendLocal:
	case IdentityBackendGoTrue:
		if c.Identity.GoTrueURL == "" || c.Identity.GoTrueServiceKey == "" {
			return fmt.Errorf("GOTRUE_URL and GOTRUE_SERVICE_KEY are required when IDENTITY_BACKEND=gotrue")
		}
	default:
		return fmt.Errorf("unknown IDENTITY_BACKEND %q (want local or gotrue)", c.Identity.Backend)
	}

	switch c.Avatar.Backend {
	case AvatarBackendLocal:
	case AvatarBackendS3:
		if !c.Avatar.HasS3Config() {
			return fmt.Errorf("KEY_ID, SECRET, REGION and BUCKET are required when AVATAR_BACKEND=s3")
		}
	case AvatarBackendGCS:
		if c.Avatar.GCSBucket == "" {
			return fmt.Errorf("GCS_BUCKET is required when AVATAR_BACKEND=gcs")
		}
	case AvatarBackendAzure:
		if c.Avatar.AzureAccountName == "" || c.Avatar.AzureAccountKey == "" || c.Avatar.AzureContainer == "" {
			return fmt.Errorf("AZURE_ACCOUNT_NAME, AZURE_ACCOUNT_KEY and AZURE_CONTAINER are required when AVATAR_BACKEND=azure")
		}
	default:
		return fmt.Errorf("unknown AVATAR_BACKEND %q", c.Avatar.Backend)
	}

	if c.Kakao.Enabled() && c.Kakao.StateSecret == "" {
		return fmt.Errorf("OAUTH_STATE_SECRET is required when KAKAO_CLIENT_ID is set and JWT_SECRET is empty")
	}
	if c.Auth.IssuerURL != "" && c.Auth.Audience == "" {
		return fmt.Errorf("AUTH_AUDIENCE is required when AUTH_ISSUER_URL is set")
	}

	// Production mode: insecure defaults are fatal errors.
	if c.IsProduction() {
		if c.EncryptionKey == insecureEncryptionKey {
			return fmt.Errorf("ENCRYPTION_KEY must be set in production (ENV=production)")
		}
		if c.Auth.JWTSecret == insecureJWTSecret {
			return fmt.Errorf("JWT_SECRET or AUTH_ISSUER_URL must be set in production (ENV=production)")
		}
		if len(c.CORSAllowedOrigins) == 1 && c.CORSAllowedOrigins[0] == "*" {
			return fmt.Errorf("CORS wildcard (*) is not allowed in production (ENV=production)")
		}
		if c.TLSCertFile == "" && !c.AllowInsecureHTTP {
			return fmt.Errorf("TLS_CERT_FILE/TLS_KEY_FILE must be set in production unless ALLOW_INSECURE_HTTP=true")
		}
	}
	return nil
}

func optionalEnv(key string) *string {
	if v := os.Getenv(key); v != "" {
		return &v
	}
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseBoolEnvDefault(key string, defaultVal bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch v {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return defaultVal
	}
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(strings.TrimPrefix(key, "export "))
		value = stripQuotes(strings.TrimSpace(value))
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes matching surrounding double or single quotes.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
