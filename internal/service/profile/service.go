// Package profile serves a user's own profile record.
package profile

import (
	"context"
	"errors"
	"log/slog"

	"blogmate/internal/domain"
)

// Service reads and writes the caller's profile.
type Service struct {
	profiles domain.ProfileRepository
	logger   *slog.Logger
}

// NewService creates a profile Service.
func NewService(profiles domain.ProfileRepository, logger *slog.Logger) *Service {
	return &Service{profiles: profiles, logger: logger}
}

// Get returns the caller's profile.
func (s *Service) Get(ctx context.Context) (*domain.Profile, error) {
	caller, err := callerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return s.profiles.GetByPrincipal(ctx, caller.ID)
}

// Save updates the caller's editable fields, creating the profile when the
// principal was made out-of-band and has none yet. Admin rights and the
// avatar are never touched here.
func (s *Service) Save(ctx context.Context, req domain.UpdateProfileRequest) (*domain.Profile, error) {
	caller, err := callerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p, err := s.profiles.Update(ctx, caller.ID, req)
	var notFound *domain.NotFoundError
	if !errors.As(err, &notFound) {
		return p, err
	}
	p, err = s.profiles.Create(ctx, &domain.Profile{
		PrincipalID:    caller.ID,
		Name:           req.Name,
		Job:            req.Job,
		Experience:     req.Experience,
		BlogStyle:      req.BlogStyle,
		AdditionalInfo: req.AdditionalInfo,
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "profile created", "principal_id", caller.ID)
	return p, nil
}

func callerFromContext(ctx context.Context) (domain.ContextPrincipal, error) {
	p, ok := domain.PrincipalFromContext(ctx)
	if !ok || p.ID == "" {
		return p, domain.ErrAccessDenied("authentication required")
	}
	return p, nil
}
