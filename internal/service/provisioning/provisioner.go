// Package provisioning creates and removes application accounts. An account
// is a principal in the identity service plus a profile row in SQLite; the
// two are kept in step with compensating deletes.
package provisioning

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"blogmate/internal/domain"
)

// Config holds provisioning policy.
type Config struct {
	MinPasswordLength int
	DefaultJobTitle   string
}

// Provisioner coordinates the identity service and the profile store.
type Provisioner struct {
	identity domain.IdentityService
	profiles domain.ProfileRepository
	cfg      Config
	logger   *slog.Logger
}

// NewProvisioner creates a Provisioner.
func NewProvisioner(identity domain.IdentityService, profiles domain.ProfileRepository, cfg Config, logger *slog.Logger) *Provisioner {
	if cfg.MinPasswordLength <= 0 {
		cfg.MinPasswordLength = 6
	}
	return &Provisioner{identity: identity, profiles: profiles, cfg: cfg, logger: logger}
}

// Create provisions a pre-verified principal and its non-admin profile. If
// the profile insert fails the principal is deleted again before the error
// is returned.
func (p *Provisioner) Create(ctx context.Context, req domain.CreateUserRequest) (_ *domain.ProvisionedUser, err error) {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	if err := req.Validate(p.cfg.MinPasswordLength); err != nil {
		return nil, err
	}

	principal, err := p.identity.CreatePrincipal(ctx, req.Email, req.Password)
	if err != nil {
		return nil, identityError(err, "create principal")
	}

	undo := newCompensator(p.logger.With("principal_id", principal.ID))
	defer undo.unwind(ctx, &err)
	undo.register("delete principal", func(ctx context.Context) error {
		return p.identity.DeletePrincipal(ctx, principal.ID)
	})

	if _, err = p.profiles.Create(ctx, &domain.Profile{
		PrincipalID: principal.ID,
		Name:        req.Name,
		Job:         p.cfg.DefaultJobTitle,
		IsAdmin:     false,
	}); err != nil {
		return nil, err
	}
	undo.release()

	p.logger.InfoContext(ctx, "user provisioned", "actor", actor.ID, "principal_id", principal.ID)
	return &domain.ProvisionedUser{Principal: *principal, Name: req.Name}, nil
}

// Delete removes a principal. Its profile and delegated tokens go with it at
// the storage layer. Deleting yourself is refused before any remote call.
func (p *Provisioner) Delete(ctx context.Context, principalID string) error {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return err
	}
	if strings.TrimSpace(principalID) == "" {
		return domain.ErrValidation("principal id is required")
	}
	if principalID == actor.ID {
		return domain.ErrSelfDeleteForbidden("you cannot delete your own account")
	}
	if err := p.identity.DeletePrincipal(ctx, principalID); err != nil {
		return identityError(err, "delete principal")
	}
	p.logger.InfoContext(ctx, "user deleted", "actor", actor.ID, "principal_id", principalID)
	return nil
}

// List joins every principal with its profile, in identity-service order.
// Principals without a profile get an empty name, no admin flag and no avatar.
func (p *Provisioner) List(ctx context.Context) ([]domain.UserSummary, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	var (
		principals []domain.Principal
		profiles   []domain.Profile
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		principals, err = p.identity.ListPrincipals(gctx)
		return identityError(err, "list principals")
	})
	g.Go(func() error {
		var err error
		profiles, err = p.profiles.List(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byPrincipal := make(map[string]*domain.Profile, len(profiles))
	for i := range profiles {
		byPrincipal[profiles[i].PrincipalID] = &profiles[i]
	}

	out := make([]domain.UserSummary, 0, len(principals))
	for _, pr := range principals {
		s := domain.UserSummary{ID: pr.ID, Email: pr.Email, CreatedAt: pr.CreatedAt}
		if prof, ok := byPrincipal[pr.ID]; ok {
			s.Name = prof.Name
			s.IsAdmin = prof.IsAdmin
			s.AvatarURL = prof.AvatarURL
		}
		out = append(out, s)
	}
	return out, nil
}

// SetPassword resets a principal's password.
func (p *Provisioner) SetPassword(ctx context.Context, req domain.SetPasswordRequest) error {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return err
	}
	if err := req.Validate(p.cfg.MinPasswordLength); err != nil {
		return err
	}
	if err := p.identity.SetPassword(ctx, req.PrincipalID, req.Password); err != nil {
		return identityError(err, "set password")
	}
	p.logger.InfoContext(ctx, "password reset", "actor", actor.ID, "principal_id", req.PrincipalID)
	return nil
}

// SetAdmin grants or revokes administrator rights. Admins cannot revoke
// their own rights.
func (p *Provisioner) SetAdmin(ctx context.Context, principalID string, isAdmin bool) error {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return err
	}
	if principalID == actor.ID && !isAdmin {
		return domain.ErrValidation("you cannot revoke your own admin rights")
	}
	if err := p.profiles.SetAdmin(ctx, principalID, isAdmin); err != nil {
		return err
	}
	p.logger.InfoContext(ctx, "admin flag changed", "actor", actor.ID, "principal_id", principalID, "is_admin", isAdmin)
	return nil
}

// EnsureBootstrapAdmin grants admin rights to the principal with the given
// email, creating its profile if it was made out-of-band. It runs at startup
// without a caller identity. A missing principal is logged, not an error.
func (p *Provisioner) EnsureBootstrapAdmin(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil
	}
	principals, err := p.identity.ListPrincipals(ctx)
	if err != nil {
		return identityError(err, "list principals")
	}
	var target *domain.Principal
	for i := range principals {
		if strings.EqualFold(principals[i].Email, email) {
			target = &principals[i]
			break
		}
	}
	if target == nil {
		p.logger.WarnContext(ctx, "bootstrap admin not found in identity service", "email", email)
		return nil
	}

	_, err = p.profiles.GetByPrincipal(ctx, target.ID)
	var notFound *domain.NotFoundError
	switch {
	case errors.As(err, &notFound):
		name, _, _ := strings.Cut(target.Email, "@")
		_, err = p.profiles.Create(ctx, &domain.Profile{
			PrincipalID: target.ID, Name: name, Job: p.cfg.DefaultJobTitle, IsAdmin: true,
		})
		if err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		if err := p.profiles.SetAdmin(ctx, target.ID, true); err != nil {
			return err
		}
	}
	p.logger.InfoContext(ctx, "bootstrap admin ensured", "principal_id", target.ID)
	return nil
}

func requireAdmin(ctx context.Context) (domain.ContextPrincipal, error) {
	p, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return p, domain.ErrAccessDenied("authentication required")
	}
	if !p.IsAdmin {
		return p, domain.ErrAccessDenied("admin privileges required")
	}
	return p, nil
}

// identityError leaves classified errors alone and marks anything else as an
// identity-service failure.
func identityError(err error, op string) error {
	if err == nil || domain.KindOf(err) != "" {
		return err
	}
	return domain.ErrIdentityService(err, "%s", op)
}
