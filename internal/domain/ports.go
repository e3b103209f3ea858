package domain

import (
	"context"
	"io"
)

// IdentityService is the authentication backend that owns principals.
// Implementations: identity.GoTrueService (remote), identity.LocalService (SQLite).
type IdentityService interface {
	// CreatePrincipal creates a pre-verified principal. A duplicate email
	// must surface as a DuplicatePrincipal *Error.
	CreatePrincipal(ctx context.Context, email, password string) (*Principal, error)
	DeletePrincipal(ctx context.Context, id string) error
	ListPrincipals(ctx context.Context) ([]Principal, error)
	SetPassword(ctx context.Context, id, password string) error
}

// TokenEndpoint is an OAuth 2.0 token endpoint plus its authorize URL.
// Implemented by kakao.OAuthClient.
type TokenEndpoint interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*TokenGrant, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenGrant, error)
}

// MessageSender delivers a text message on behalf of the token owner.
// Implemented by kakao.TalkClient.
type MessageSender interface {
	SendText(ctx context.Context, accessToken string, msg TextMessage) error
}

// ObjectStore is a flat key/value blob store that can hand out public URLs.
// Implementations live in internal/objectstore (S3, GCS, Azure, local disk).
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	Delete(ctx context.Context, keys ...string) error
	PublicURL(key string) string
}
