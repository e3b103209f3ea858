package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internaldb "blogmate/internal/db"
	"blogmate/internal/domain"
)

func TestPrincipalDataRepo_Purge(t *testing.T) {
	pool := internaldb.OpenTestSQLite(t)
	profiles := NewProfileRepo(pool)
	tokens := NewDelegatedTokenRepo(pool, newTestEncryptor(t))
	purger := NewPrincipalDataRepo(pool)
	ctx := context.Background()

	for _, id := range []string{"p1", "p2"} {
		_, err := profiles.Create(ctx, &domain.Profile{PrincipalID: id, Name: id})
		require.NoError(t, err)
		_, err = tokens.Upsert(ctx, &domain.DelegatedToken{
			PrincipalID: id, Provider: domain.ProviderKakao, AccessToken: "a", ExpiresAt: time.Now(),
		})
		require.NoError(t, err)
	}

	require.NoError(t, purger.Purge(ctx, "p1"))

	var notFound *domain.NotFoundError
	_, err := profiles.GetByPrincipal(ctx, "p1")
	assert.ErrorAs(t, err, &notFound)
	_, err = tokens.Get(ctx, "p1", domain.ProviderKakao)
	assert.ErrorAs(t, err, &notFound)

	_, err = profiles.GetByPrincipal(ctx, "p2")
	require.NoError(t, err, "other principals are untouched")
	_, err = tokens.Get(ctx, "p2", domain.ProviderKakao)
	require.NoError(t, err)

	require.NoError(t, purger.Purge(ctx, "never-existed"))
}
