package identity

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/scamguard/internal/domain/users"
)

const testKid = "test-key-1"

func newTestKeyAndJWKS(t *testing.T) (*rsa.PrivateKey, *httptest.Server) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"keys": []map[string]string{{
				"kid": testKid,
				"kty": "RSA",
				"alg": "RS256",
				"use": "sig",
				"n":   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.PublicKey.E)).Bytes()),
			}},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)

	return key, srv
}

func signAppleToken(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = testKid
	signed, err := tok.SignedString(key)
	require.NoError(t, err)
	return signed
}

func appleClaims(mutate func(jwt.MapClaims)) jwt.MapClaims {
	claims := jwt.MapClaims{
		"iss":   appleIssuer,
		"aud":   "com.example.app",
		"sub":   "001234.abcdef",
		"email": "user@example.com",
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	if mutate != nil {
		mutate(claims)
	}
	return claims
}

func newTestVerifier(audience, keysURL string) *AppleVerifier {
	v := NewAppleVerifier(audience)
	v.keysURL = keysURL
	return v
}

func TestAppleVerify(t *testing.T) {
	key, srv := newTestKeyAndJWKS(t)
	v := newTestVerifier("com.example.app", srv.URL)

	token := signAppleToken(t, key, appleClaims(nil))
	ident, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, "001234.abcdef", ident.SubjectID)
	require.Equal(t, "user@example.com", ident.Email)
}

func TestAppleVerify_Expired(t *testing.T) {
	key, srv := newTestKeyAndJWKS(t)
	v := newTestVerifier("com.example.app", srv.URL)

	token := signAppleToken(t, key, appleClaims(func(c jwt.MapClaims) {
		c["exp"] = time.Now().Add(-time.Hour).Unix()
	}))
	_, err := v.Verify(context.Background(), token)
	require.ErrorIs(t, err, users.ErrInvalidExternalToken)
}

func TestAppleVerify_WrongAudience(t *testing.T) {
	key, srv := newTestKeyAndJWKS(t)
	v := newTestVerifier("com.example.app", srv.URL)

	token := signAppleToken(t, key, appleClaims(func(c jwt.MapClaims) {
		c["aud"] = "com.other.app"
	}))
	_, err := v.Verify(context.Background(), token)
	require.ErrorIs(t, err, users.ErrInvalidExternalToken)
}

func TestAppleVerify_WrongIssuer(t *testing.T) {
	key, srv := newTestKeyAndJWKS(t)
	v := newTestVerifier("com.example.app", srv.URL)

	token := signAppleToken(t, key, appleClaims(func(c jwt.MapClaims) {
		c["iss"] = "https://evil.example.com"
	}))
	_, err := v.Verify(context.Background(), token)
	require.ErrorIs(t, err, users.ErrInvalidExternalToken)
}

func TestAppleVerify_SignedByUnknownKey(t *testing.T) {
	_, srv := newTestKeyAndJWKS(t)
	v := newTestVerifier("com.example.app", srv.URL)

	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	token := signAppleToken(t, otherKey, appleClaims(nil))

	_, err = v.Verify(context.Background(), token)
	require.ErrorIs(t, err, users.ErrInvalidExternalToken)
}

func TestAppleVerify_JWKSUnreachable(t *testing.T) {
	key, srv := newTestKeyAndJWKS(t)
	srv.Close()
	v := newTestVerifier("com.example.app", srv.URL)

	token := signAppleToken(t, key, appleClaims(nil))
	_, err := v.Verify(context.Background(), token)
	require.ErrorIs(t, err, users.ErrUpstream)
}

func TestAppleVerify_MissingSubject(t *testing.T) {
	key, srv := newTestKeyAndJWKS(t)
	v := newTestVerifier("com.example.app", srv.URL)

	token := signAppleToken(t, key, appleClaims(func(c jwt.MapClaims) {
		delete(c, "sub")
	}))
	_, err := v.Verify(context.Background(), token)
	require.ErrorIs(t, err, users.ErrInvalidExternalToken)
}

func TestAppleVerify_CachesKeysAcrossCalls(t *testing.T) {
	key, srv := newTestKeyAndJWKS(t)
	v := newTestVerifier("com.example.app", srv.URL)

	token := signAppleToken(t, key, appleClaims(nil))
	_, err := v.Verify(context.Background(), token)
	require.NoError(t, err)

	// second verify must not need the JWKS endpoint anymore
	srv.Close()
	_, err = v.Verify(context.Background(), token)
	require.NoError(t, err)
}

func TestAppleVerify_GarbageToken(t *testing.T) {
	_, srv := newTestKeyAndJWKS(t)
	v := newTestVerifier("com.example.app", srv.URL)

	_, err := v.Verify(context.Background(), "not-a-jwt")
	require.ErrorIs(t, err, users.ErrInvalidExternalToken)
	require.False(t, errors.Is(err, users.ErrUpstream))
}
