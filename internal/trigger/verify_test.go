package trigger

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	callbackURL = "https://bot.example.com/skip-votes/resolve"
	currentKey  = "sig_current"
	nextKey     = "sig_next"
)

func sign(t *testing.T, key string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(key))
	require.NoError(t, err)
	return s
}

func claimsFor(body []byte, sub string) jwt.MapClaims {
	sum := sha256.Sum256(body)
	now := time.Now()
	return jwt.MapClaims{
		"iss":  "Upstash",
		"sub":  sub,
		"iat":  now.Unix(),
		"nbf":  now.Unix(),
		"exp":  now.Add(5 * time.Minute).Unix(),
		"jti":  "jwt_1",
		"body": base64.RawURLEncoding.EncodeToString(sum[:]),
	}
}

func TestVerify(t *testing.T) {
	body := []byte(`{"tenant":"T1","channel":"C1","vote_id":"abc123"}`)
	v := NewVerifier(currentKey, nextKey)

	expired := claimsFor(body, callbackURL)
	expired["exp"] = time.Now().Add(-time.Minute).Unix()

	wrongIssuer := claimsFor(body, callbackURL)
	wrongIssuer["iss"] = "someone"

	testCases := []struct {
		name      string
		signature string
		body      []byte
		wantErr   bool
	}{
		{name: "current key", signature: sign(t, currentKey, claimsFor(body, callbackURL)), body: body},
		{name: "next key", signature: sign(t, nextKey, claimsFor(body, callbackURL)), body: body},
		{name: "unknown key", signature: sign(t, "other", claimsFor(body, callbackURL)), body: body, wantErr: true},
		{name: "tampered body", signature: sign(t, currentKey, claimsFor(body, callbackURL)), body: []byte(`{"vote_id":"zzz"}`), wantErr: true},
		{name: "wrong subject", signature: sign(t, currentKey, claimsFor(body, "https://evil.example.com")), body: body, wantErr: true},
		{name: "wrong issuer", signature: sign(t, currentKey, wrongIssuer), body: body, wantErr: true},
		{name: "expired", signature: sign(t, currentKey, expired), body: body, wantErr: true},
		{name: "missing", signature: "", body: body, wantErr: true},
		{name: "garbage", signature: "not.a.jwt", body: body, wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Verify(tc.signature, tc.body, callbackURL)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrUnauthenticated)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestVerifyRejectsNoneAlgorithm(t *testing.T) {
	body := []byte(`{}`)
	token := jwt.NewWithClaims(jwt.SigningMethodNone, claimsFor(body, callbackURL))
	s, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	assert.ErrorIs(t, NewVerifier(currentKey, "").Verify(s, body, callbackURL), ErrUnauthenticated)
}

func TestVerifyWithoutKeys(t *testing.T) {
	body := []byte(`{}`)
	s := sign(t, currentKey, claimsFor(body, callbackURL))
	assert.ErrorIs(t, NewVerifier("", "").Verify(s, body, callbackURL), ErrUnauthenticated)
}
