package slack

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"
)

const (
	signatureVersion = "v0"
	// MaxRequestAge bounds replayed requests.
	MaxRequestAge = 5 * time.Minute
)

var ErrInvalidSignature = errors.New("invalid slack signature")

// VerifyRequest checks the X-Slack-Signature of a request body.
func VerifyRequest(signingSecret, signature, timestamp string, body []byte, now time.Time) error {
	if signingSecret == "" {
		return fmt.Errorf("%w: no signing secret configured", ErrInvalidSignature)
	}
	if signature == "" || timestamp == "" {
		return fmt.Errorf("%w: missing headers", ErrInvalidSignature)
	}
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad timestamp", ErrInvalidSignature)
	}
	age := now.Sub(time.Unix(ts, 0))
	if age > MaxRequestAge || age < -MaxRequestAge {
		return fmt.Errorf("%w: stale request", ErrInvalidSignature)
	}
	expected := Sign(signingSecret, timestamp, body)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}

// Sign computes the v0 signature Slack sends for body.
func Sign(signingSecret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(signingSecret))
	mac.Write([]byte(signatureVersion + ":" + timestamp + ":"))
	mac.Write(body)
	return signatureVersion + "=" + hex.EncodeToString(mac.Sum(nil))
}
