package repository

import (
	"context"
	"fmt"

	"blogmate/internal/db"
	"blogmate/internal/domain"
)

var _ domain.PrincipalDataPurger = (*PrincipalDataRepo)(nil)

// PrincipalDataRepo deletes everything a principal owns locally. It mirrors
// the principals delete trigger for identity backends that do not store
// principals in SQLite.
type PrincipalDataRepo struct {
	pool *db.Pool
}

// NewPrincipalDataRepo creates a new PrincipalDataRepo.
func NewPrincipalDataRepo(pool *db.Pool) *PrincipalDataRepo {
	return &PrincipalDataRepo{pool: pool}
}

// Purge removes the principal's delegated tokens and profile in one
// transaction. Purging a principal with no local data is a no-op.
func (r *PrincipalDataRepo) Purge(ctx context.Context, principalID string) (err error) {
	tx, err := r.pool.Write.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin purge: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, stmt := range []string{
		`DELETE FROM delegated_tokens WHERE principal_id = ?`,
		`DELETE FROM profiles WHERE principal_id = ?`,
	} {
		if _, err = tx.ExecContext(ctx, stmt, principalID); err != nil {
			return fmt.Errorf("purge principal data: %w", err)
		}
	}
	return tx.Commit()
}

