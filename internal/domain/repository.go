package domain

import (
	"context"
	"time"
)

// ProfileRepository provides single-row access to profiles keyed by principal.
type ProfileRepository interface {
	Create(ctx context.Context, p *Profile) (*Profile, error)
	GetByPrincipal(ctx context.Context, principalID string) (*Profile, error)
	List(ctx context.Context) ([]Profile, error)
	Update(ctx context.Context, principalID string, req UpdateProfileRequest) (*Profile, error)
	SetAdmin(ctx context.Context, principalID string, isAdmin bool) error
	SetAvatarURL(ctx context.Context, principalID string, avatarURL *string) error
}

// DelegatedTokenRepository stores one delegated credential per
// (principal, provider). Upsert overwrites every field of an existing row.
type DelegatedTokenRepository interface {
	Get(ctx context.Context, principalID, provider string) (*DelegatedToken, error)
	Upsert(ctx context.Context, t *DelegatedToken) (*DelegatedToken, error)
	Delete(ctx context.Context, principalID, provider string) error
}

// PrincipalDataPurger removes every local record owned by a principal. It is
// the storage-level cascade for identity backends that live outside SQLite.
type PrincipalDataPurger interface {
	Purge(ctx context.Context, principalID string) error
}

// Clock returns the current time. Services take one so expiry logic is testable.
type Clock func() time.Time
