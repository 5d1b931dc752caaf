package vault

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerpulse/backend/internal/domain/shared"
)

func testKey() []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func TestNewRejectsBadKeySize(t *testing.T) {
	_, err := New(make([]byte, 16))
	assert.Error(t, err)

	_, err = New(make([]byte, 33))
	assert.Error(t, err)

	_, err = New(testKey())
	assert.NoError(t, err)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	v, err := New(testKey())
	require.NoError(t, err)

	plaintexts := []string{
		"",
		"shpat_a1b2c3d4e5f6",
		"a refresh token with spaces and unicode: 日本語",
		strings.Repeat("x", 4096),
	}

	for _, pt := range plaintexts {
		blob, err := v.Encrypt(pt)
		require.NoError(t, err)
		assert.NotEqual(t, pt, blob)

		got, err := v.Decrypt(blob)
		require.NoError(t, err)
		assert.Equal(t, pt, got)
	}
}

func TestEncryptProducesFreshNonces(t *testing.T) {
	v, err := New(testKey())
	require.NoError(t, err)

	a, err := v.Encrypt("same plaintext")
	require.NoError(t, err)
	b, err := v.Encrypt("same plaintext")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestDecryptTamperedBlob(t *testing.T) {
	v, err := New(testKey())
	require.NoError(t, err)

	blob, err := v.Encrypt("keyspb_secret_value")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(blob)
	require.NoError(t, err)

	// Flip one byte at every position; each flip must be rejected.
	for i := range raw {
		tampered := make([]byte, len(raw))
		copy(tampered, raw)
		tampered[i] ^= 0x01

		_, err := v.Decrypt(base64.StdEncoding.EncodeToString(tampered))
		assert.ErrorIs(t, err, shared.ErrIntegrity, "flipped byte %d", i)
	}
}

func TestDecryptMalformedBlob(t *testing.T) {
	v, err := New(testKey())
	require.NoError(t, err)

	tests := []struct {
		name string
		blob string
	}{
		{"not base64", "!!!not-base64!!!"},
		{"empty", ""},
		{"too short", base64.StdEncoding.EncodeToString([]byte("short"))},
		{"nonce only", base64.StdEncoding.EncodeToString(make([]byte, 24))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Decrypt(tt.blob)
			assert.ErrorIs(t, err, shared.ErrIntegrity)
		})
	}
}

func TestDecryptWithWrongKey(t *testing.T) {
	v1, err := New(testKey())
	require.NoError(t, err)

	other := testKey()
	other[0] ^= 0xff
	v2, err := New(other)
	require.NoError(t, err)

	blob, err := v1.Encrypt("secret")
	require.NoError(t, err)

	_, err = v2.Decrypt(blob)
	assert.ErrorIs(t, err, shared.ErrIntegrity)
}
