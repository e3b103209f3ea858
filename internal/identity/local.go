package identity

import (
	"context"
	"errors"
	"log/slog"

	"blogmate/internal/domain"
)

// PrincipalStore persists local principals with their password hashes.
// Implemented by repository.PrincipalRepo.
type PrincipalStore interface {
	Create(ctx context.Context, email, passwordHash string) (*domain.Principal, error)
	GetByEmail(ctx context.Context, email string) (*domain.Principal, string, error)
	List(ctx context.Context) ([]domain.Principal, error)
	SetPasswordHash(ctx context.Context, id, passwordHash string) error
	Delete(ctx context.Context, id string) error
}

var _ domain.IdentityService = (*LocalService)(nil)

// LocalService is an IdentityService backed by the application's own SQLite
// database. Principals are always pre-verified; there is no confirmation step.
type LocalService struct {
	store  PrincipalStore
	params HashParams
	logger *slog.Logger
}

// NewLocalService creates a LocalService using DefaultHashParams.
func NewLocalService(store PrincipalStore, logger *slog.Logger) *LocalService {
	return &LocalService{store: store, params: DefaultHashParams, logger: logger}
}

// WithHashParams overrides the Argon2id cost, mainly so tests stay fast.
func (s *LocalService) WithHashParams(p HashParams) *LocalService {
	s.params = p
	return s
}

// CreatePrincipal implements domain.IdentityService.
func (s *LocalService) CreatePrincipal(ctx context.Context, email, password string) (*domain.Principal, error) {
	hash, err := HashPassword(password, s.params)
	if err != nil {
		return nil, domain.ErrIdentityService(err, "hash password")
	}
	p, err := s.store.Create(ctx, email, hash)
	if err != nil {
		var conflict *domain.ConflictError
		if errors.As(err, &conflict) {
			return nil, domain.ErrDuplicatePrincipal("a user with email %q is already registered", email)
		}
		return nil, domain.ErrIdentityService(err, "create principal")
	}
	s.logger.Info("principal created", "principal_id", p.ID)
	return p, nil
}

// DeletePrincipal implements domain.IdentityService. The principals delete
// trigger removes the profile and delegated tokens in the same statement.
func (s *LocalService) DeletePrincipal(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return domain.ErrIdentityService(err, "delete principal %s", id)
	}
	s.logger.Info("principal deleted", "principal_id", id)
	return nil
}

// ListPrincipals implements domain.IdentityService.
func (s *LocalService) ListPrincipals(ctx context.Context) ([]domain.Principal, error) {
	ps, err := s.store.List(ctx)
	if err != nil {
		return nil, domain.ErrIdentityService(err, "list principals")
	}
	return ps, nil
}

// SetPassword implements domain.IdentityService.
func (s *LocalService) SetPassword(ctx context.Context, id, password string) error {
	hash, err := HashPassword(password, s.params)
	if err != nil {
		return domain.ErrIdentityService(err, "hash password")
	}
	if err := s.store.SetPasswordHash(ctx, id, hash); err != nil {
		return domain.ErrIdentityService(err, "set password for %s", id)
	}
	return nil
}

// Authenticate checks an email/password pair. Unknown emails and wrong
// passwords both yield the same AccessDeniedError.
func (s *LocalService) Authenticate(ctx context.Context, email, password string) (*domain.Principal, error) {
	p, hash, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		var notFound *domain.NotFoundError
		if errors.As(err, &notFound) {
			return nil, domain.ErrAccessDenied("invalid email or password")
		}
		return nil, err
	}
	ok, err := VerifyPassword(password, hash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrAccessDenied("invalid email or password")
	}
	return p, nil
}
