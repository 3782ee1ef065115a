package session

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "scamguard"

// DefaultTTL is the forward expiry for issued session tokens.
const DefaultTTL = 7 * 24 * time.Hour

// ErrInvalidToken indicates the token failed verification (bad signature,
// expired, or missing subject).
var ErrInvalidToken = errors.New("invalid session token")

// Manager issues and verifies the service's own signed session tokens.
// The secret is passed in at construction; there is no global state.
type Manager struct {
	secret []byte
	ttl    time.Duration
}

// NewManager builds a Manager. A zero ttl falls back to DefaultTTL; a
// negative ttl is kept as-is and produces already-expired tokens.
func NewManager(secret []byte, ttl time.Duration) *Manager {
	if ttl == 0 {
		ttl = DefaultTTL
	}
	return &Manager{secret: secret, ttl: ttl}
}

// Issue signs a token carrying the subject id with a fixed forward expiry.
func (m *Manager) Issue(subjectID string) (string, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return "", errors.New("subject id is required")
	}
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subjectID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify checks signature and expiry, returning the subject id.
func (m *Manager) Verify(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrInvalidToken
	}
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
