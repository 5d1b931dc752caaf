package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signTimestamped(key []byte, eventID string, ts int64, body []byte) string {
	mac := hmac.New(sha256.New, key)
	fmt.Fprintf(mac, "%s.%d.", eventID, ts)
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestDecodeSigningSecret(t *testing.T) {
	t.Run("strips the prefix and base64-decodes", func(t *testing.T) {
		raw := []byte("0123456789abcdef0123456789abcdef")
		secret := "whsec_" + base64.StdEncoding.EncodeToString(raw)

		key, err := decodeSigningSecret(secret)
		require.NoError(t, err)
		assert.Equal(t, raw, key)
	})

	t.Run("uses an unprefixed secret as-is", func(t *testing.T) {
		key, err := decodeSigningSecret("plain-shared-key")
		require.NoError(t, err)
		assert.Equal(t, []byte("plain-shared-key"), key)
	})

	t.Run("rejects a prefixed secret that is not base64", func(t *testing.T) {
		_, err := decodeSigningSecret("whsec_%%%not-base64%%%")
		assert.Error(t, err)
	})
}

func TestVerifyTimestampedHMAC(t *testing.T) {
	key := []byte("shared-signing-key")
	body := []byte(`{"event_type":"receipt_created","shop_id":4242}`)
	now := time.Unix(1_700_000_000, 0)
	tolerance := 300 * time.Second

	sign := func(eventID string, ts int64) string {
		return signTimestamped(key, eventID, ts, body)
	}

	t.Run("accepts a fresh valid signature", func(t *testing.T) {
		ts := now.Unix()
		sig := sign("evt_1", ts)
		err := verifyTimestampedHMAC(key, "evt_1", fmt.Sprint(ts), sig, body, now, tolerance)
		assert.NoError(t, err)
	})

	t.Run("accepts a v1-tagged signature among several candidates", func(t *testing.T) {
		ts := now.Unix()
		header := "v0,stale-scheme v1,not-this-one v1," + sign("evt_1", ts)
		err := verifyTimestampedHMAC(key, "evt_1", fmt.Sprint(ts), header, body, now, tolerance)
		assert.NoError(t, err)
	})

	t.Run("accepts just inside the tolerance", func(t *testing.T) {
		ts := now.Add(-299 * time.Second).Unix()
		err := verifyTimestampedHMAC(key, "evt_1", fmt.Sprint(ts), sign("evt_1", ts), body, now, tolerance)
		assert.NoError(t, err)
	})

	t.Run("rejects a timestamp past the tolerance", func(t *testing.T) {
		ts := now.Add(-301 * time.Second).Unix()
		err := verifyTimestampedHMAC(key, "evt_1", fmt.Sprint(ts), sign("evt_1", ts), body, now, tolerance)
		assert.ErrorIs(t, err, ErrStaleTimestamp)
	})

	t.Run("rejects a timestamp from the future past the tolerance", func(t *testing.T) {
		ts := now.Add(301 * time.Second).Unix()
		err := verifyTimestampedHMAC(key, "evt_1", fmt.Sprint(ts), sign("evt_1", ts), body, now, tolerance)
		assert.ErrorIs(t, err, ErrStaleTimestamp)
	})

	t.Run("rejects an unparseable timestamp", func(t *testing.T) {
		err := verifyTimestampedHMAC(key, "evt_1", "not-a-number", sign("evt_1", now.Unix()), body, now, tolerance)
		assert.ErrorIs(t, err, ErrStaleTimestamp)
	})

	t.Run("rejects a tampered body", func(t *testing.T) {
		ts := now.Unix()
		sig := sign("evt_1", ts)
		tampered := append([]byte(nil), body...)
		tampered[0] ^= 0x01
		err := verifyTimestampedHMAC(key, "evt_1", fmt.Sprint(ts), sig, tampered, now, tolerance)
		assert.ErrorIs(t, err, ErrSignatureMismatch)
	})

	t.Run("rejects a signature for a different event id", func(t *testing.T) {
		ts := now.Unix()
		err := verifyTimestampedHMAC(key, "evt_2", fmt.Sprint(ts), sign("evt_1", ts), body, now, tolerance)
		assert.ErrorIs(t, err, ErrSignatureMismatch)
	})

	t.Run("rejects when candidates carry unknown scheme tags only", func(t *testing.T) {
		ts := now.Unix()
		header := "v2," + sign("evt_1", ts)
		err := verifyTimestampedHMAC(key, "evt_1", fmt.Sprint(ts), header, body, now, tolerance)
		assert.ErrorIs(t, err, ErrSignatureMismatch)
	})

	t.Run("rejects missing material", func(t *testing.T) {
		ts := fmt.Sprint(now.Unix())
		assert.ErrorIs(t, verifyTimestampedHMAC(key, "", ts, "sig", body, now, tolerance), ErrMissingSignature)
		assert.ErrorIs(t, verifyTimestampedHMAC(key, "evt_1", "", "sig", body, now, tolerance), ErrMissingSignature)
		assert.ErrorIs(t, verifyTimestampedHMAC(key, "evt_1", ts, "", body, now, tolerance), ErrMissingSignature)
	})
}

func TestVerifyBodyHMAC(t *testing.T) {
	secret := "shopify-api-secret"
	body := []byte(`{"id":123}`)

	sign := func(b []byte) string {
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write(b)
		return base64.StdEncoding.EncodeToString(mac.Sum(nil))
	}

	t.Run("accepts a valid signature", func(t *testing.T) {
		assert.NoError(t, verifyBodyHMAC(secret, body, sign(body)))
	})

	t.Run("rejects a flipped body byte", func(t *testing.T) {
		tampered := append([]byte(nil), body...)
		tampered[len(tampered)-1] ^= 0x01
		assert.ErrorIs(t, verifyBodyHMAC(secret, tampered, sign(body)), ErrSignatureMismatch)
	})

	t.Run("rejects a missing header", func(t *testing.T) {
		assert.ErrorIs(t, verifyBodyHMAC(secret, body, ""), ErrMissingSignature)
	})

	t.Run("rejects a signature under the wrong secret", func(t *testing.T) {
		mac := hmac.New(sha256.New, []byte("other-secret"))
		mac.Write(body)
		sig := base64.StdEncoding.EncodeToString(mac.Sum(nil))
		assert.ErrorIs(t, verifyBodyHMAC(secret, body, sig), ErrSignatureMismatch)
	})
}
