package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"blogmate/internal/middleware"
)

// RouterConfig holds everything NewRouter mounts.
type RouterConfig struct {
	Handler     *Handler
	Validator   middleware.JWTValidator
	Profiles    middleware.ProfileLookup
	RateLimiter *middleware.RateLimiter // nil disables rate limiting
	CORSOrigins []string
	AvatarDir   string // serve /avatars/* from disk when set
	Logger      *slog.Logger
}

// NewRouter builds the chi router for the whole API.
func NewRouter(cfg RouterConfig) http.Handler {
	h := cfg.Handler

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Handler)
	}
	r.Use(chimw.Timeout(60 * time.Second))

	r.Get("/healthz", healthz)
	r.Get("/oauth/kakao/callback", h.kakaoCallback)
	if h.login.Authenticator != nil && h.login.Issuer != nil {
		r.Post("/auth/token", h.issueToken)
	}
	if cfg.AvatarDir != "" {
		fs := http.StripPrefix("/avatars/", http.FileServer(http.Dir(cfg.AvatarDir)))
		r.Get("/avatars/*", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600")
			fs.ServeHTTP(w, r)
		})
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Authenticator(cfg.Validator, cfg.Profiles, cfg.Logger))

		r.Get("/profile", h.getProfile)
		r.Put("/profile", h.updateProfile)
		r.Post("/profile/avatar", h.uploadAvatar)
		r.Delete("/profile/avatar", h.deleteAvatar)

		r.Get("/kakao/authorize", h.kakaoAuthorize)
		r.Get("/kakao/status", h.kakaoStatus)
		r.Post("/kakao/send", h.kakaoSend)
		r.Delete("/kakao/connection", h.kakaoDisconnect)

		r.Route("/admin/users", func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			r.Get("/", h.listUsers)
			r.Post("/", h.createUser)
			r.Delete("/{id}", h.deleteUser)
			r.Put("/{id}/password", h.setUserPassword)
			r.Put("/{id}/admin", h.setUserAdmin)
		})
	})

	return r
}
