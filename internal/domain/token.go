package domain

import "time"

// ProviderKakao identifies the KakaoTalk messaging provider.
const ProviderKakao = "kakao"

// DelegatedToken is the OAuth credential a principal granted to the
// application for a third-party messaging provider. At most one exists per
// (principal, provider).
type DelegatedToken struct {
	ID           string
	PrincipalID  string
	Provider     string
	AccessToken  string
	RefreshToken string // empty when the provider never issued one
	ExpiresAt    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsStale reports whether the access token can no longer be used at now.
func (t *DelegatedToken) IsStale(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// TokenGrant is what an OAuth token endpoint returns for either grant type.
// RefreshToken is empty when a refresh grant did not rotate it.
type TokenGrant struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

// ConnectionStatus reports whether a principal has a delegated credential and
// whether its access token has expired.
type ConnectionStatus struct {
	Connected bool
	Expired   bool
}

// TextMessage is the provider-neutral payload of a delegated send.
type TextMessage struct {
	Text        string
	LinkURL     string
	ButtonTitle string
}
