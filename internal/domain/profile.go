package domain

import "time"

// Profile is the application-side record of an author. Exactly one exists
// per principal.
type Profile struct {
	ID             string
	PrincipalID    string
	Name           string
	Job            string
	Experience     string
	BlogStyle      string
	AdditionalInfo string
	IsAdmin        bool
	AvatarURL      *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// UpdateProfileRequest holds the user-editable profile fields.
type UpdateProfileRequest struct {
	Name           string
	Job            string
	Experience     string
	BlogStyle      string
	AdditionalInfo string
}

// Validate checks that the request is well-formed.
func (r *UpdateProfileRequest) Validate() error {
	if r.Name == "" {
		return ErrValidation("profile name is required")
	}
	return nil
}
