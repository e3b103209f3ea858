// Package testutil provides shared mocks and in-memory fakes of domain
// interfaces for use in tests across the codebase.
package testutil

import (
	"context"
	"io"
	"sync"

	"blogmate/internal/domain"
)

// === Profile Repository Mock ===

// MockProfileRepo implements domain.ProfileRepository for testing.
type MockProfileRepo struct {
	CreateFn         func(ctx context.Context, p *domain.Profile) (*domain.Profile, error)
	GetByPrincipalFn func(ctx context.Context, principalID string) (*domain.Profile, error)
	ListFn           func(ctx context.Context) ([]domain.Profile, error)
	UpdateFn         func(ctx context.Context, principalID string, req domain.UpdateProfileRequest) (*domain.Profile, error)
	SetAdminFn       func(ctx context.Context, principalID string, isAdmin bool) error
	SetAvatarURLFn   func(ctx context.Context, principalID string, avatarURL *string) error
}

// Create implements the interface method for testing.
func (m *MockProfileRepo) Create(ctx context.Context, p *domain.Profile) (*domain.Profile, error) {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, p)
	}
	panic("unexpected call to MockProfileRepo.Create")
}

// GetByPrincipal implements the interface method for testing.
func (m *MockProfileRepo) GetByPrincipal(ctx context.Context, principalID string) (*domain.Profile, error) {
	if m.GetByPrincipalFn != nil {
		return m.GetByPrincipalFn(ctx, principalID)
	}
	panic("unexpected call to MockProfileRepo.GetByPrincipal")
}

// List implements the interface method for testing.
func (m *MockProfileRepo) List(ctx context.Context) ([]domain.Profile, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx)
	}
	panic("unexpected call to MockProfileRepo.List")
}

// Update implements the interface method for testing.
func (m *MockProfileRepo) Update(ctx context.Context, principalID string, req domain.UpdateProfileRequest) (*domain.Profile, error) {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, principalID, req)
	}
	panic("unexpected call to MockProfileRepo.Update")
}

// SetAdmin implements the interface method for testing.
func (m *MockProfileRepo) SetAdmin(ctx context.Context, principalID string, isAdmin bool) error {
	if m.SetAdminFn != nil {
		return m.SetAdminFn(ctx, principalID, isAdmin)
	}
	panic("unexpected call to MockProfileRepo.SetAdmin")
}

// SetAvatarURL implements the interface method for testing.
func (m *MockProfileRepo) SetAvatarURL(ctx context.Context, principalID string, avatarURL *string) error {
	if m.SetAvatarURLFn != nil {
		return m.SetAvatarURLFn(ctx, principalID, avatarURL)
	}
	panic("unexpected call to MockProfileRepo.SetAvatarURL")
}

// === Token Endpoint Mock ===

// MockTokenEndpoint implements domain.TokenEndpoint and counts calls.
type MockTokenEndpoint struct {
	AuthCodeURLFn func(state string) string
	ExchangeFn    func(ctx context.Context, code string) (*domain.TokenGrant, error)
	RefreshFn     func(ctx context.Context, refreshToken string) (*domain.TokenGrant, error)

	mu            sync.Mutex
	exchangeCalls int
	refreshCalls  int
}

// AuthCodeURL implements the interface method for testing.
func (m *MockTokenEndpoint) AuthCodeURL(state string) string {
	if m.AuthCodeURLFn != nil {
		return m.AuthCodeURLFn(state)
	}
	return "https://kauth.example.com/oauth/authorize?state=" + state
}

// Exchange implements the interface method for testing.
func (m *MockTokenEndpoint) Exchange(ctx context.Context, code string) (*domain.TokenGrant, error) {
	m.mu.Lock()
	m.exchangeCalls++
	m.mu.Unlock()
	if m.ExchangeFn != nil {
		return m.ExchangeFn(ctx, code)
	}
	panic("unexpected call to MockTokenEndpoint.Exchange")
}

// Refresh implements the interface method for testing.
func (m *MockTokenEndpoint) Refresh(ctx context.Context, refreshToken string) (*domain.TokenGrant, error) {
	m.mu.Lock()
	m.refreshCalls++
	m.mu.Unlock()
	if m.RefreshFn != nil {
		return m.RefreshFn(ctx, refreshToken)
	}
	panic("unexpected call to MockTokenEndpoint.Refresh")
}

// ExchangeCalls returns how many times Exchange was called.
func (m *MockTokenEndpoint) ExchangeCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exchangeCalls
}

// RefreshCalls returns how many times Refresh was called.
func (m *MockTokenEndpoint) RefreshCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshCalls
}

// === Message Sender Mock ===

// SentMessage is one recorded MessageSender call.
type SentMessage struct {
	AccessToken string
	Message     domain.TextMessage
}

// MockMessageSender implements domain.MessageSender and records every call.
type MockMessageSender struct {
	SendTextFn func(ctx context.Context, accessToken string, msg domain.TextMessage) error

	mu   sync.Mutex
	Sent []SentMessage
}

// SendText implements the interface method for testing.
func (m *MockMessageSender) SendText(ctx context.Context, accessToken string, msg domain.TextMessage) error {
	m.mu.Lock()
	m.Sent = append(m.Sent, SentMessage{AccessToken: accessToken, Message: msg})
	m.mu.Unlock()
	if m.SendTextFn != nil {
		return m.SendTextFn(ctx, accessToken, msg)
	}
	return nil
}

// === Object Store Mock ===

// StoredObject is one object held by MockObjectStore.
type StoredObject struct {
	ContentType string
	Data        []byte
}

// MockObjectStore is an in-memory domain.ObjectStore.
type MockObjectStore struct {
	PutErr    error
	DeleteErr error
	BaseURL   string

	mu      sync.Mutex
	Objects map[string]StoredObject
	Deleted []string
}

// Put implements the interface method for testing.
func (m *MockObjectStore) Put(_ context.Context, key, contentType string, body io.Reader, _ int64) error {
	if m.PutErr != nil {
		return m.PutErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Objects == nil {
		m.Objects = map[string]StoredObject{}
	}
	m.Objects[key] = StoredObject{ContentType: contentType, Data: data}
	return nil
}

// Delete implements the interface method for testing.
func (m *MockObjectStore) Delete(_ context.Context, keys ...string) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.Objects, k)
		m.Deleted = append(m.Deleted, k)
	}
	return nil
}

// PublicURL implements the interface method for testing.
func (m *MockObjectStore) PublicURL(key string) string {
	base := m.BaseURL
	if base == "" {
		base = "https://cdn.example.com/avatars"
	}
	return base + "/" + key
}
