package identity

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bryanwahyu/scamguard/internal/domain/users"
)

const (
	appleIssuer  = "https://appleid.apple.com"
	appleKeysURL = appleIssuer + "/auth/keys"
)

// AppleVerifier validates Apple ID tokens against Apple's published JWKS.
// Claims are only trusted after the signature, issuer, audience and expiry
// check out.
type AppleVerifier struct {
	Audience string

	httpc   *http.Client
	keysURL string

	mu   sync.Mutex
	keys map[string]*rsa.PublicKey
}

func NewAppleVerifier(audience string) *AppleVerifier {
	return &AppleVerifier{
		Audience: audience,
		httpc:    &http.Client{Timeout: 10 * time.Second},
		keysURL:  appleKeysURL,
	}
}

func (a *AppleVerifier) Verify(ctx context.Context, token string) (*users.Identity, error) {
	claims := jwt.MapClaims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(appleIssuer),
		jwt.WithExpirationRequired(),
	}
	if a.Audience != "" {
		opts = append(opts, jwt.WithAudience(a.Audience))
	}

	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token header missing kid")
		}
		return a.publicKey(ctx, kid)
	}, opts...)
	if err != nil {
		if errors.Is(err, users.ErrUpstream) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", users.ErrInvalidExternalToken, err)
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, fmt.Errorf("%w: subject claim missing", users.ErrInvalidExternalToken)
	}
	ident := &users.Identity{SubjectID: sub}
	if v, ok := claims["email"].(string); ok {
		ident.Email = v
	}
	return ident, nil
}

// publicKey resolves a signing key by kid, refetching the JWKS once when the
// kid is unknown (Apple rotates keys).
func (a *AppleVerifier) publicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if key, ok := a.keys[kid]; ok {
		return key, nil
	}
	if err := a.fetchKeysLocked(ctx); err != nil {
		return nil, err
	}
	if key, ok := a.keys[kid]; ok {
		return key, nil
	}
	return nil, fmt.Errorf("no signing key for kid %q", kid)
}

type jwk struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func (a *AppleVerifier) fetchKeysLocked(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.keysURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", users.ErrUpstream, err)
	}
	resp, err := a.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", users.ErrUpstream, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: jwks fetch returned %d", users.ErrUpstream, resp.StatusCode)
	}

	var body struct {
		Keys []jwk `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("%w: decoding jwks: %v", users.ErrUpstream, err)
	}

	keys := make(map[string]*rsa.PublicKey, len(body.Keys))
	for _, k := range body.Keys {
		if k.Kty != "RSA" {
			continue
		}
		pub, err := rsaKeyFromJWK(k)
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}
	if len(keys) == 0 {
		return fmt.Errorf("%w: jwks contained no usable keys", users.ErrUpstream)
	}
	a.keys = keys
	return nil
}

func rsaKeyFromJWK(k jwk) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, err
	}
	eb, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, err
	}
	e := 0
	for _, b := range eb {
		e = e<<8 | int(b)
	}
	if e == 0 {
		return nil, errors.New("invalid exponent")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: e}, nil
}
