package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"blogmate/internal/db"
	"blogmate/internal/domain"
)

// Compile-time check.
var _ domain.ProfileRepository = (*ProfileRepo)(nil)

const profileColumns = `id, principal_id, name, job, experience, blog_style, additional_info,
	is_admin, avatar_url, created_at, updated_at`

// ProfileRepo implements ProfileRepository on the profiles table.
type ProfileRepo struct {
	pool *db.Pool
}

// NewProfileRepo creates a new ProfileRepo.
func NewProfileRepo(pool *db.Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

// Create inserts a profile. A second profile for the same principal fails
// with a ConflictError.
func (r *ProfileRepo) Create(ctx context.Context, p *domain.Profile) (*domain.Profile, error) {
	now := nowUTC()
	id := p.ID
	if id == "" {
		id = domain.NewID()
	}
	_, err := r.pool.Write.ExecContext(ctx, `
		INSERT INTO profiles (id, principal_id, name, job, experience, blog_style, additional_info,
			is_admin, avatar_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, p.PrincipalID, p.Name, p.Job, p.Experience, p.BlogStyle, p.AdditionalInfo,
		boolToInt(p.IsAdmin), nullString(p.AvatarURL), formatTime(now), formatTime(now))
	if err != nil {
		var conflict *domain.ConflictError
		if errors.As(mapDBError(err), &conflict) {
			return nil, domain.ErrConflict("profile for principal %q already exists", p.PrincipalID)
		}
		return nil, fmt.Errorf("insert profile: %w", err)
	}
	return r.get(ctx, r.pool.Write, p.PrincipalID)
}

// GetByPrincipal returns the profile owned by principalID.
func (r *ProfileRepo) GetByPrincipal(ctx context.Context, principalID string) (*domain.Profile, error) {
	return r.get(ctx, r.pool.Read, principalID)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *ProfileRepo) get(ctx context.Context, q queryRower, principalID string) (*domain.Profile, error) {
	row := q.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE principal_id = ?`, principalID)
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound("profile for principal %q not found", principalID)
		}
		return nil, mapDBError(err)
	}
	return p, nil
}

// List returns every profile ordered by creation time.
func (r *ProfileRepo) List(ctx context.Context) ([]domain.Profile, error) {
	rows, err := r.pool.Read.QueryContext(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// Update overwrites the user-editable fields of a profile.
func (r *ProfileRepo) Update(ctx context.Context, principalID string, req domain.UpdateProfileRequest) (*domain.Profile, error) {
	res, err := r.pool.Write.ExecContext(ctx, `
		UPDATE profiles
		SET name = ?, job = ?, experience = ?, blog_style = ?, additional_info = ?, updated_at = ?
		WHERE principal_id = ?`,
		req.Name, req.Job, req.Experience, req.BlogStyle, req.AdditionalInfo, formatTime(nowUTC()), principalID)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	if err := requireAffected(res, "profile for principal %q not found", principalID); err != nil {
		return nil, err
	}
	return r.get(ctx, r.pool.Write, principalID)
}

// SetAdmin sets the administrative flag.
func (r *ProfileRepo) SetAdmin(ctx context.Context, principalID string, isAdmin bool) error {
	res, err := r.pool.Write.ExecContext(ctx,
		`UPDATE profiles SET is_admin = ?, updated_at = ? WHERE principal_id = ?`,
		boolToInt(isAdmin), formatTime(nowUTC()), principalID)
	if err != nil {
		return fmt.Errorf("set admin: %w", err)
	}
	return requireAffected(res, "profile for principal %q not found", principalID)
}

// SetAvatarURL stores or clears (nil) the avatar URL.
func (r *ProfileRepo) SetAvatarURL(ctx context.Context, principalID string, avatarURL *string) error {
	res, err := r.pool.Write.ExecContext(ctx,
		`UPDATE profiles SET avatar_url = ?, updated_at = ? WHERE principal_id = ?`,
		nullString(avatarURL), formatTime(nowUTC()), principalID)
	if err != nil {
		return fmt.Errorf("set avatar url: %w", err)
	}
	return requireAffected(res, "profile for principal %q not found", principalID)
}

func scanProfile(row rowScanner) (*domain.Profile, error) {
	var (
		p                    domain.Profile
		isAdmin              int64
		avatar               sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(&p.ID, &p.PrincipalID, &p.Name, &p.Job, &p.Experience, &p.BlogStyle,
		&p.AdditionalInfo, &isAdmin, &avatar, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	p.IsAdmin = isAdmin != 0
	p.AvatarURL = stringPtr(avatar)
	var err error
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}
