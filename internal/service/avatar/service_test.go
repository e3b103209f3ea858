package avatar

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blogmate/internal/db"
	"blogmate/internal/db/repository"
	"blogmate/internal/domain"
	"blogmate/internal/testutil"
)

func newTestService(t *testing.T) (*Service, *testutil.MockObjectStore, *repository.ProfileRepo) {
	t.Helper()
	repo := repository.NewProfileRepo(db.OpenTestSQLite(t))
	_, err := repo.Create(context.Background(), &domain.Profile{PrincipalID: "u1", Name: "Ann"})
	require.NoError(t, err)
	store := &testutil.MockObjectStore{BaseURL: "https://cdn.example.com/avatars"}
	return NewService(store, repo, 0, slog.New(slog.DiscardHandler)), store, repo
}

func TestUpload(t *testing.T) {
	svc, store, repo := newTestService(t)
	img := []byte("\x89PNG fake image")

	url, err := svc.Upload(testutil.UserCtx("u1"), Upload{
		Filename: "Me.PNG", ContentType: "image/png", Size: int64(len(img)), Body: bytes.NewReader(img),
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/avatars/u1/avatar.png", url)

	obj, ok := store.Objects["u1/avatar.png"]
	require.True(t, ok)
	assert.Equal(t, img, obj.Data)
	assert.Equal(t, "image/png", obj.ContentType)
	assert.ElementsMatch(t, []string{"u1/avatar.jpg", "u1/avatar.png", "u1/avatar.gif", "u1/avatar.webp"}, store.Deleted)

	p, err := repo.GetByPrincipal(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, p.AvatarURL)
	assert.Equal(t, url, *p.AvatarURL)
}

func TestUpload_Rejections(t *testing.T) {
	tests := []struct {
		name string
		up   Upload
	}{
		{"too large", Upload{Filename: "a.png", ContentType: "image/png", Size: DefaultMaxBytes + 1, Body: bytes.NewReader(nil)}},
		{"not an image", Upload{Filename: "a.pdf", ContentType: "application/pdf", Size: 10, Body: bytes.NewReader(nil)}},
		{"no body", Upload{Filename: "a.png", ContentType: "image/png", Size: 10}},
		{"svg", Upload{Filename: "a.svg", ContentType: "image/svg+xml", Size: 10, Body: bytes.NewReader([]byte("<svg/>"))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, _ := newTestService(t)
			_, err := svc.Upload(testutil.UserCtx("u1"), tt.up)
			var v *domain.ValidationError
			require.ErrorAs(t, err, &v)
			assert.Empty(t, store.Objects)
		})
	}
}

func TestUpload_StoreFailure(t *testing.T) {
	svc, store, repo := newTestService(t)
	store.PutErr = errors.New("bucket not found")

	_, err := svc.Upload(testutil.UserCtx("u1"), Upload{Filename: "a.jpg", ContentType: "image/jpeg", Size: 1, Body: bytes.NewReader([]byte("x"))})
	require.ErrorIs(t, err, store.PutErr)

	p, err := repo.GetByPrincipal(context.Background(), "u1")
	require.NoError(t, err)
	assert.Nil(t, p.AvatarURL)
}

func TestDelete(t *testing.T) {
	svc, store, repo := newTestService(t)
	_, err := svc.Upload(testutil.UserCtx("u1"), Upload{Filename: "a.gif", ContentType: "image/gif", Size: 1, Body: bytes.NewReader([]byte("x"))})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(testutil.UserCtx("u1")))
	assert.Empty(t, store.Objects)

	p, err := repo.GetByPrincipal(context.Background(), "u1")
	require.NoError(t, err)
	assert.Nil(t, p.AvatarURL)

	var denied *domain.AccessDeniedError
	assert.ErrorAs(t, svc.Delete(context.Background()), &denied)
}

func TestExtension(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		filename    string
		want        string
		wantErr     bool
	}{
		{name: "jpeg type", contentType: "image/jpeg", filename: "photo.JPEG", want: "jpg"},
		{name: "type wins over name", contentType: "image/png", filename: "photo.jpg", want: "png"},
		{name: "type with params", contentType: "image/webp; q=1", filename: "x", want: "webp"},
		{name: "upper-case type", contentType: "IMAGE/GIF", filename: "x", want: "gif"},
		{name: "octet-stream falls back to name", contentType: "application/octet-stream", filename: "a.jpeg", want: "jpg"},
		{name: "missing type falls back to name", filename: "dir/me.WEBP", want: "webp"},
		{name: "svg refused", contentType: "image/svg+xml", filename: "a.svg", wantErr: true},
		{name: "tiff refused", contentType: "image/tiff", filename: "a.tiff", wantErr: true},
		{name: "pdf refused", contentType: "application/pdf", filename: "a.pdf", wantErr: true},
		{name: "unknown name refused", contentType: "application/octet-stream", filename: "a.svg", wantErr: true},
		{name: "no type no name", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extension(tt.contentType, tt.filename)
			if tt.wantErr {
				var v *domain.ValidationError
				require.ErrorAs(t, err, &v)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, knownExtensions, got)
		})
	}
}

func TestUpload_StoresCanonicalTypeAndExtension(t *testing.T) {
	svc, store, _ := newTestService(t)

	url, err := svc.Upload(testutil.UserCtx("u1"), Upload{
		Filename: "me.jpeg", ContentType: "application/octet-stream", Size: 1, Body: bytes.NewReader([]byte("x")),
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/avatars/u1/avatar.jpg", url)
	obj, ok := store.Objects["u1/avatar.jpg"]
	require.True(t, ok)
	assert.Equal(t, "image/jpeg", obj.ContentType)
}
