package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"blogmate/internal/db"
	"blogmate/internal/db/crypto"
	"blogmate/internal/domain"
)

// Compile-time check.
var _ domain.DelegatedTokenRepository = (*DelegatedTokenRepo)(nil)

// DelegatedTokenRepo implements DelegatedTokenRepository with encrypted storage.
// Token values are sealed with the owning principal and provider as
// associated data.
type DelegatedTokenRepo struct {
	pool *db.Pool
	enc  *crypto.Encryptor
}

// NewDelegatedTokenRepo creates a new DelegatedTokenRepo.
func NewDelegatedTokenRepo(pool *db.Pool, enc *crypto.Encryptor) *DelegatedTokenRepo {
	return &DelegatedTokenRepo{pool: pool, enc: enc}
}

func tokenOwner(principalID, provider string) string {
	return provider + ":" + principalID
}

// Get returns the decrypted token for (principalID, provider).
func (r *DelegatedTokenRepo) Get(ctx context.Context, principalID, provider string) (*domain.DelegatedToken, error) {
	return r.get(ctx, r.pool.Read, principalID, provider)
}

func (r *DelegatedTokenRepo) get(ctx context.Context, q queryRower, principalID, provider string) (*domain.DelegatedToken, error) {
	var (
		t                           domain.DelegatedToken
		encAccess, encRefresh       string
		expiresAt, createdAt, updAt string
	)
	err := q.QueryRowContext(ctx, `
		SELECT id, principal_id, provider, access_token_encrypted, refresh_token_encrypted,
			expires_at, created_at, updated_at
		FROM delegated_tokens WHERE principal_id = ? AND provider = ?`, principalID, provider).
		Scan(&t.ID, &t.PrincipalID, &t.Provider, &encAccess, &encRefresh, &expiresAt, &createdAt, &updAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound("no %s token for principal %q", provider, principalID)
		}
		return nil, mapDBError(err)
	}

	owner := tokenOwner(principalID, provider)
	if t.AccessToken, err = r.enc.Open(encAccess, owner); err != nil {
		return nil, fmt.Errorf("decrypt access token: %w", err)
	}
	if t.RefreshToken, err = r.enc.Open(encRefresh, owner); err != nil {
		return nil, fmt.Errorf("decrypt refresh token: %w", err)
	}
	if t.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return nil, err
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if t.UpdatedAt, err = parseTime(updAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// Upsert inserts the token or overwrites every mutable field of the existing
// row for (principal, provider). The row id and created_at are preserved.
func (r *DelegatedTokenRepo) Upsert(ctx context.Context, t *domain.DelegatedToken) (*domain.DelegatedToken, error) {
	owner := tokenOwner(t.PrincipalID, t.Provider)
	encAccess, err := r.enc.Seal(t.AccessToken, owner)
	if err != nil {
		return nil, fmt.Errorf("encrypt access token: %w", err)
	}
	encRefresh, err := r.enc.Seal(t.RefreshToken, owner)
	if err != nil {
		return nil, fmt.Errorf("encrypt refresh token: %w", err)
	}

	now := formatTime(nowUTC())
	_, err = r.pool.Write.ExecContext(ctx, `
		INSERT INTO delegated_tokens (id, principal_id, provider, access_token_encrypted,
			refresh_token_encrypted, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (principal_id, provider) DO UPDATE SET
			access_token_encrypted  = excluded.access_token_encrypted,
			refresh_token_encrypted = excluded.refresh_token_encrypted,
			expires_at              = excluded.expires_at,
			updated_at              = excluded.updated_at`,
		domain.NewID(), t.PrincipalID, t.Provider, encAccess, encRefresh,
		formatTime(t.ExpiresAt), now, now)
	if err != nil {
		return nil, fmt.Errorf("upsert delegated token: %w", mapDBError(err))
	}
	return r.get(ctx, r.pool.Write, t.PrincipalID, t.Provider)
}

// Delete removes the token for (principalID, provider).
func (r *DelegatedTokenRepo) Delete(ctx context.Context, principalID, provider string) error {
	res, err := r.pool.Write.ExecContext(ctx,
		`DELETE FROM delegated_tokens WHERE principal_id = ? AND provider = ?`, principalID, provider)
	if err != nil {
		return fmt.Errorf("delete delegated token: %w", err)
	}
	return requireAffected(res, "no %s token for principal %q", provider, principalID)
}
