package domain

import (
	"strings"
	"time"
)

// Principal is an authentication record owned by the identity service.
// The application only ever creates or deletes it through IdentityService.
type Principal struct {
	ID        string
	Email     string
	CreatedAt time.Time
}

// CreateUserRequest holds parameters for provisioning a new account.
type CreateUserRequest struct {
	Email    string
	Password string
	Name     string
}

// Validate checks that the request is well-formed. minPasswordLen is the
// configured password policy.
func (r *CreateUserRequest) Validate(minPasswordLen int) error {
	r.Email = strings.TrimSpace(r.Email)
	r.Name = strings.TrimSpace(r.Name)
	if r.Email == "" || r.Password == "" || r.Name == "" {
		return ErrValidation("email, password and name are required")
	}
	if !strings.Contains(r.Email, "@") {
		return ErrValidation("email %q is not a valid address", r.Email)
	}
	return validatePassword(r.Password, minPasswordLen)
}

// ProvisionedUser is the result of a successful provisioning.
type ProvisionedUser struct {
	Principal
	Name string
}

// UserSummary joins a principal with its profile for administrative listings.
// Principals created out-of-band have no profile; they get empty defaults.
type UserSummary struct {
	ID        string
	Email     string
	CreatedAt time.Time
	Name      string
	IsAdmin   bool
	AvatarURL *string
}

// SetPasswordRequest holds parameters for an administrative password reset.
type SetPasswordRequest struct {
	PrincipalID string
	Password    string
}

// Validate checks that the request is well-formed.
func (r *SetPasswordRequest) Validate(minPasswordLen int) error {
	if r.PrincipalID == "" || r.Password == "" {
		return ErrValidation("principal id and new password are required")
	}
	return validatePassword(r.Password, minPasswordLen)
}

func validatePassword(password string, minLen int) error {
	if len([]rune(password)) < minLen {
		return ErrValidation("password must be at least %d characters", minLen)
	}
	return nil
}
