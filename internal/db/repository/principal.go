package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"blogmate/internal/db"
	"blogmate/internal/domain"
)

// PrincipalRepo stores principals and their password hashes for the local
// identity backend. Deleting a principal cascades to its profile and tokens
// through the principals delete trigger.
type PrincipalRepo struct {
	pool *db.Pool
}

// NewPrincipalRepo creates a new PrincipalRepo.
func NewPrincipalRepo(pool *db.Pool) *PrincipalRepo {
	return &PrincipalRepo{pool: pool}
}

// Create inserts a principal. The email is unique case-insensitively; a
// duplicate fails with a ConflictError.
func (r *PrincipalRepo) Create(ctx context.Context, email, passwordHash string) (*domain.Principal, error) {
	p := &domain.Principal{
		ID:        domain.NewID(),
		Email:     strings.TrimSpace(email),
		CreatedAt: nowUTC(),
	}
	ts := formatTime(p.CreatedAt)
	_, err := r.pool.Write.ExecContext(ctx,
		`INSERT INTO principals (id, email, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Email, passwordHash, ts, ts)
	if err != nil {
		var conflict *domain.ConflictError
		if errors.As(mapDBError(err), &conflict) {
			return nil, domain.ErrConflict("principal with email %q already exists", p.Email)
		}
		return nil, fmt.Errorf("insert principal: %w", err)
	}
	return p, nil
}

// GetByEmail returns the principal and its password hash.
func (r *PrincipalRepo) GetByEmail(ctx context.Context, email string) (*domain.Principal, string, error) {
	var (
		p         domain.Principal
		hash      string
		createdAt string
	)
	err := r.pool.Read.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM principals WHERE lower(email) = lower(?)`,
		strings.TrimSpace(email)).Scan(&p.ID, &p.Email, &hash, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", domain.ErrNotFound("principal with email %q not found", email)
		}
		return nil, "", mapDBError(err)
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, "", err
	}
	return &p, hash, nil
}

// List returns every principal in creation order.
func (r *PrincipalRepo) List(ctx context.Context) ([]domain.Principal, error) {
	rows, err := r.pool.Read.QueryContext(ctx,
		`SELECT id, email, created_at FROM principals ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list principals: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.Principal
	for rows.Next() {
		var (
			p         domain.Principal
			createdAt string
		)
		if err := rows.Scan(&p.ID, &p.Email, &createdAt); err != nil {
			return nil, err
		}
		if p.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SetPasswordHash replaces the stored password hash.
func (r *PrincipalRepo) SetPasswordHash(ctx context.Context, id, passwordHash string) error {
	res, err := r.pool.Write.ExecContext(ctx,
		`UPDATE principals SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, formatTime(nowUTC()), id)
	if err != nil {
		return fmt.Errorf("set password hash: %w", err)
	}
	return requireAffected(res, "principal %q not found", id)
}

// Delete removes a principal; the trigger removes its profile and tokens.
func (r *PrincipalRepo) Delete(ctx context.Context, id string) error {
	res, err := r.pool.Write.ExecContext(ctx, `DELETE FROM principals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete principal: %w", err)
	}
	return requireAffected(res, "principal %q not found", id)
}
