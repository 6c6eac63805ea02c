package trigger

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt"
)

const upstashIssuer = "Upstash"

// ErrUnauthenticated is returned for deliveries that do not carry a valid
// QStash signature.
var ErrUnauthenticated = errors.New("trigger delivery not authenticated")

// Verifier checks the Upstash-Signature JWT of a delivery. QStash signs with
// the current key and rotates to the next one, so both are tried.
type Verifier struct {
	CurrentKey string
	NextKey    string
}

func NewVerifier(currentKey, nextKey string) *Verifier {
	return &Verifier{CurrentKey: currentKey, NextKey: nextKey}
}

// Verify authenticates body as delivered to url. An empty url skips the
// subject check.
func (v *Verifier) Verify(signature string, body []byte, url string) error {
	if signature == "" {
		return fmt.Errorf("%w: missing signature", ErrUnauthenticated)
	}
	var lastErr error
	for _, key := range []string{v.CurrentKey, v.NextKey} {
		if key == "" {
			continue
		}
		err := verifyWithKey(signature, body, url, key)
		if err == nil {
			return nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.New("no signing keys configured")
	}
	return fmt.Errorf("%w: %v", ErrUnauthenticated, lastErr)
}

func verifyWithKey(signature string, body []byte, url, key string) error {
	token, err := jwt.Parse(signature, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(key), nil
	})
	if err != nil {
		return err
	}
	if !token.Valid {
		return errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return errors.New("invalid claims")
	}
	if !claims.VerifyIssuer(upstashIssuer, true) {
		return errors.New("invalid issuer")
	}
	if url != "" {
		if sub, _ := claims["sub"].(string); sub != url {
			return fmt.Errorf("invalid subject %q", sub)
		}
	}
	claimed, _ := claims["body"].(string)
	sum := sha256.Sum256(body)
	if strings.TrimRight(claimed, "=") != strings.TrimRight(base64.URLEncoding.EncodeToString(sum[:]), "=") {
		return errors.New("body hash mismatch")
	}
	return nil
}
