package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const signingSecretPrefix = "whsec_"

// decodeSigningSecret turns a "whsec_<base64>" configuration value into raw
// key bytes. A secret without the prefix is used as-is.
func decodeSigningSecret(secret string) ([]byte, error) {
	if !strings.HasPrefix(secret, signingSecretPrefix) {
		return []byte(secret), nil
	}
	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, signingSecretPrefix))
	if err != nil {
		return nil, fmt.Errorf("webhook: malformed signing secret: %w", err)
	}
	return key, nil
}

// verifyTimestampedHMAC checks a timestamped, versioned signature header:
// expected = base64(HMAC-SHA256(key, "{id}.{timestamp}.{body}")). The header
// may carry several space-separated signatures, each optionally tagged with
// a "v1," scheme prefix; any single constant-time match accepts. Timestamps
// older or newer than the tolerance are rejected before any comparison.
func verifyTimestampedHMAC(key []byte, eventID, timestamp, signatureHeader string, body []byte, now time.Time, tolerance time.Duration) error {
	if eventID == "" || timestamp == "" || signatureHeader == "" {
		return ErrMissingSignature
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrStaleTimestamp
	}
	age := now.Sub(time.Unix(ts, 0))
	if age > tolerance || age < -tolerance {
		return ErrStaleTimestamp
	}

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(eventID))
	mac.Write([]byte("."))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	for _, candidate := range strings.Fields(signatureHeader) {
		if scheme, sig, ok := strings.Cut(candidate, ","); ok {
			if scheme != "v1" {
				continue
			}
			candidate = sig
		}
		if hmac.Equal([]byte(candidate), []byte(expected)) {
			return nil
		}
	}
	return ErrSignatureMismatch
}

// verifyBodyHMAC checks a whole-body HMAC header: expected =
// base64(HMAC-SHA256(secret, body)). No freshness check; the sender does not
// timestamp its signatures.
func verifyBodyHMAC(secret string, body []byte, signatureHeader string) error {
	if signatureHeader == "" {
		return ErrMissingSignature
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(signatureHeader), []byte(expected)) {
		return ErrSignatureMismatch
	}
	return nil
}
