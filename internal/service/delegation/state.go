package delegation

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"blogmate/internal/domain"
)

const (
	stateAudience   = "blogmate-oauth-state"
	defaultStateTTL = 10 * time.Minute
)

// StateSigner issues and checks the OAuth "state" parameter. The state is a
// short-lived HS256 JWT whose subject is the principal that started the
// consent flow, so the callback can be handled without a session.
type StateSigner struct {
	secret []byte
	ttl    time.Duration
	now    domain.Clock
}

// NewStateSigner creates a StateSigner. ttl <= 0 selects ten minutes.
func NewStateSigner(secret string, ttl time.Duration, now domain.Clock) (*StateSigner, error) {
	if secret == "" {
		return nil, errors.New("oauth state secret is required")
	}
	if ttl <= 0 {
		ttl = defaultStateTTL
	}
	if now == nil {
		now = time.Now
	}
	return &StateSigner{secret: []byte(secret), ttl: ttl, now: now}, nil
}

// Sign returns a state token bound to principalID.
func (s *StateSigner) Sign(principalID string) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   principalID,
		Audience:  jwt.ClaimStrings{stateAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		ID:        uuid.NewString(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify checks a state token and returns the principal it was issued for.
func (s *StateSigner) Verify(state string) (string, error) {
	if state == "" {
		return "", domain.ErrValidation("missing oauth state")
	}
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(state, &claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(stateAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", domain.ErrValidation("invalid or expired oauth state")
	}
	if claims.Subject == "" {
		return "", domain.ErrValidation("oauth state has no subject")
	}
	return claims.Subject, nil
}
