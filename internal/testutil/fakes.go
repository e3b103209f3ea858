package testutil

import (
	"context"
	"strings"
	"sync"
	"time"

	"blogmate/internal/domain"
)

// FakeIdentityService is an in-memory domain.IdentityService. Set the XxxErr
// fields to inject failures; call counters record every attempt.
type FakeIdentityService struct {
	CreateErr error
	DeleteErr error
	ListErr   error
	SetPwErr  error

	mu          sync.Mutex
	principals  []domain.Principal
	passwords   map[string]string
	nextID      int
	CreateCalls int
	DeleteCalls int
	ListCalls   int
	SetPwCalls  int
}

// NewFakeIdentityService creates an empty FakeIdentityService.
func NewFakeIdentityService() *FakeIdentityService {
	return &FakeIdentityService{passwords: map[string]string{}}
}

// Seed adds a principal directly, bypassing CreatePrincipal.
func (f *FakeIdentityService) Seed(id, email string) domain.Principal {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := domain.Principal{ID: id, Email: email, CreatedAt: time.Now().UTC()}
	f.principals = append(f.principals, p)
	return p
}

// CreatePrincipal implements domain.IdentityService.
func (f *FakeIdentityService) CreatePrincipal(_ context.Context, email, password string) (*domain.Principal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CreateCalls++
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}
	for _, p := range f.principals {
		if strings.EqualFold(p.Email, email) {
			return nil, domain.ErrDuplicatePrincipal("A user with this email address has already been registered")
		}
	}
	f.nextID++
	p := domain.Principal{ID: "u-" + itoa(f.nextID), Email: email, CreatedAt: time.Now().UTC()}
	f.principals = append(f.principals, p)
	f.passwords[p.ID] = password
	return &p, nil
}

// DeletePrincipal implements domain.IdentityService.
func (f *FakeIdentityService) DeletePrincipal(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DeleteCalls++
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	for i, p := range f.principals {
		if p.ID == id {
			f.principals = append(f.principals[:i], f.principals[i+1:]...)
			delete(f.passwords, id)
			return nil
		}
	}
	return domain.ErrIdentityService(nil, "user %s not found", id)
}

// ListPrincipals implements domain.IdentityService.
func (f *FakeIdentityService) ListPrincipals(_ context.Context) ([]domain.Principal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ListCalls++
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return append([]domain.Principal(nil), f.principals...), nil
}

// SetPassword implements domain.IdentityService.
func (f *FakeIdentityService) SetPassword(_ context.Context, id, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SetPwCalls++
	if f.SetPwErr != nil {
		return f.SetPwErr
	}
	f.passwords[id] = password
	return nil
}

// Password returns the password last set for id.
func (f *FakeIdentityService) Password(id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.passwords[id]
}

// RemoteCalls returns the total number of calls of any kind.
func (f *FakeIdentityService) RemoteCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.CreateCalls + f.DeleteCalls + f.ListCalls + f.SetPwCalls
}

// FakeTokenRepo is an in-memory domain.DelegatedTokenRepository.
type FakeTokenRepo struct {
	GetErr    error
	UpsertErr error

	mu      sync.Mutex
	rows    map[string]domain.DelegatedToken
	Upserts int
}

// NewFakeTokenRepo creates an empty FakeTokenRepo.
func NewFakeTokenRepo() *FakeTokenRepo {
	return &FakeTokenRepo{rows: map[string]domain.DelegatedToken{}}
}

func tokenKey(principalID, provider string) string { return provider + ":" + principalID }

// Get implements domain.DelegatedTokenRepository.
func (f *FakeTokenRepo) Get(_ context.Context, principalID, provider string) (*domain.DelegatedToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.GetErr != nil {
		return nil, f.GetErr
	}
	t, ok := f.rows[tokenKey(principalID, provider)]
	if !ok {
		return nil, domain.ErrNotFound("no %s token for principal %q", provider, principalID)
	}
	return &t, nil
}

// Upsert implements domain.DelegatedTokenRepository.
func (f *FakeTokenRepo) Upsert(_ context.Context, t *domain.DelegatedToken) (*domain.DelegatedToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Upserts++
	if f.UpsertErr != nil {
		return nil, f.UpsertErr
	}
	key := tokenKey(t.PrincipalID, t.Provider)
	now := time.Now().UTC()
	row := *t
	if existing, ok := f.rows[key]; ok {
		row.ID = existing.ID
		row.CreatedAt = existing.CreatedAt
	} else {
		row.ID = domain.NewID()
		row.CreatedAt = now
	}
	row.UpdatedAt = now
	f.rows[key] = row
	return &row, nil
}

// Delete implements domain.DelegatedTokenRepository.
func (f *FakeTokenRepo) Delete(_ context.Context, principalID, provider string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := tokenKey(principalID, provider)
	if _, ok := f.rows[key]; !ok {
		return domain.ErrNotFound("no %s token for principal %q", provider, principalID)
	}
	delete(f.rows, key)
	return nil
}

// Put stores a row directly, bypassing Upsert accounting.
func (f *FakeTokenRepo) Put(t domain.DelegatedToken) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.ID == "" {
		t.ID = domain.NewID()
	}
	f.rows[tokenKey(t.PrincipalID, t.Provider)] = t
}

// Len returns the number of stored rows.
func (f *FakeTokenRepo) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

// FixedClock returns a clock that always reports t.
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// AdminCtx returns a context carrying an admin principal with the given id.
func AdminCtx(id string) context.Context {
	return domain.WithPrincipal(context.Background(), domain.ContextPrincipal{
		ID: id, Email: id + "@example.com", IsAdmin: true,
	})
}

// UserCtx returns a context carrying a non-admin principal with the given id.
func UserCtx(id string) context.Context {
	return domain.WithPrincipal(context.Background(), domain.ContextPrincipal{
		ID: id, Email: id + "@example.com",
	})
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var b [20]byte
	i := len(b)
	for n > 0 {
		i--
		b[i] = byte('0' + n%10)
		n /= 10
	}
	return string(b[i:])
}
