package identity

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internaldb "blogmate/internal/db"
	"blogmate/internal/db/repository"
	"blogmate/internal/domain"
)

func newLocal(t *testing.T) (*LocalService, *repository.ProfileRepo) {
	t.Helper()
	pool := internaldb.OpenTestSQLite(t)
	svc := NewLocalService(repository.NewPrincipalRepo(pool), slog.New(slog.DiscardHandler)).
		WithHashParams(fastHashParams)
	return svc, repository.NewProfileRepo(pool)
}

func TestLocalService_CreateAuthenticate(t *testing.T) {
	svc, _ := newLocal(t)
	ctx := context.Background()

	p, err := svc.CreatePrincipal(ctx, "ann@example.com", "secret1")
	require.NoError(t, err)

	got, err := svc.Authenticate(ctx, "ANN@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	var denied *domain.AccessDeniedError
	_, err = svc.Authenticate(ctx, "ann@example.com", "wrong")
	assert.ErrorAs(t, err, &denied)
	_, err = svc.Authenticate(ctx, "nobody@example.com", "secret1")
	assert.ErrorAs(t, err, &denied)
}

func TestLocalService_DuplicateEmail(t *testing.T) {
	svc, _ := newLocal(t)
	ctx := context.Background()

	_, err := svc.CreatePrincipal(ctx, "ann@example.com", "secret1")
	require.NoError(t, err)

	_, err = svc.CreatePrincipal(ctx, "ann@example.com", "other12")
	assert.True(t, domain.IsKind(err, domain.KindDuplicatePrincipal))
}

func TestLocalService_SetPassword(t *testing.T) {
	svc, _ := newLocal(t)
	ctx := context.Background()

	p, err := svc.CreatePrincipal(ctx, "ann@example.com", "secret1")
	require.NoError(t, err)
	require.NoError(t, svc.SetPassword(ctx, p.ID, "secret2"))

	_, err = svc.Authenticate(ctx, "ann@example.com", "secret2")
	require.NoError(t, err)

	err = svc.SetPassword(ctx, "ghost", "secret2")
	assert.True(t, domain.IsKind(err, domain.KindIdentityServiceError))
}

func TestLocalService_DeleteCascades(t *testing.T) {
	svc, profiles := newLocal(t)
	ctx := context.Background()

	p, err := svc.CreatePrincipal(ctx, "ann@example.com", "secret1")
	require.NoError(t, err)
	_, err = profiles.Create(ctx, &domain.Profile{PrincipalID: p.ID, Name: "Ann"})
	require.NoError(t, err)

	require.NoError(t, svc.DeletePrincipal(ctx, p.ID))

	list, err := svc.ListPrincipals(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	_, err = profiles.GetByPrincipal(ctx, p.ID)
	var notFound *domain.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}
