package api

import (
	"time"

	"blogmate/internal/domain"
)

// User is the admin listing entry.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	Name      string    `json:"name"`
	IsAdmin   bool      `json:"is_admin"`
	AvatarURL *string   `json:"avatar_url"`
}

// CreateUserRequest is the body of POST /v1/admin/users.
type CreateUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// SetPasswordRequest is the body of PUT /v1/admin/users/{id}/password.
type SetPasswordRequest struct {
	Password string `json:"password"`
}

// SetAdminRequest is the body of PUT /v1/admin/users/{id}/admin.
type SetAdminRequest struct {
	IsAdmin bool `json:"is_admin"`
}

// Profile is the caller's profile.
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

// UpdateProfileRequest is the body of PUT /v1/profile.
type UpdateProfileRequest struct {
	Name           string `json:"name"`
	Job            string `json:"job"`
	Experience     string `json:"experience"`
	BlogStyle      string `json:"blog_style"`
	AdditionalInfo string `json:"additional_info"`
}

// AvatarResponse is returned by POST /v1/profile/avatar.
type AvatarResponse struct {
	AvatarURL string `json:"avatar_url"`
}

// KakaoStatus is returned by GET /v1/kakao/status.
type KakaoStatus struct {
	Connected bool `json:"connected"`
	Expired   bool `json:"expired"`
}

// SendRequest is the body of POST /v1/kakao/send.
type SendRequest struct {
	Message string `json:"message"`
}

// AuthorizeResponse is returned by GET /v1/kakao/authorize?format=json.
type AuthorizeResponse struct {
	URL string `json:"url"`
}

// LoginRequest is the body of POST /auth/token.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse is returned by POST /auth/token.
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func userToAPI(s domain.UserSummary) User {
	return User{
		ID:        s.ID,
		Email:     s.Email,
		CreatedAt: s.CreatedAt,
		Name:      s.Name,
		IsAdmin:   s.IsAdmin,
		AvatarURL: s.AvatarURL,
	}
}

func profileToAPI(p *domain.Profile) Profile {
	return Profile{
		ID:             p.ID,
		PrincipalID:    p.PrincipalID,
		Name:           p.Name,
		Job:            p.Job,
		Experience:     p.Experience,
		BlogStyle:      p.BlogStyle,
		AdditionalInfo: p.AdditionalInfo,
		IsAdmin:        p.IsAdmin,
		AvatarURL:      p.AvatarURL,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}
