package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authkit-session/internal/common/errors"
)

func TestNewEncryptor(t *testing.T) {
	_, err := NewEncryptor("")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))

	enc, err := NewEncryptor("short")
	require.NoError(t, err)
	assert.NotNil(t, enc)
}

func TestEncryptor_RoundTrip(t *testing.T) {
	enc, err := NewEncryptor("a-passphrase-for-tests")
	require.NoError(t, err)

	tests := []struct {
		name  string
		value string
	}{
		{"refresh token", "rt_01HXYZABCDEF"},
		{"json user", `{"id":"user_1","email":"a@b.c"}`},
		{"unicode", "jeton-éphémère-🔑"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sealed, err := enc.Seal("workos:refresh-token", tt.value)
			require.NoError(t, err)
			assert.NotEqual(t, tt.value, sealed)

			opened, err := enc.Open("workos:refresh-token", sealed)
			require.NoError(t, err)
			assert.Equal(t, tt.value, opened)
		})
	}
}

func TestEncryptor_Empty(t *testing.T) {
	enc, err := NewEncryptor("k")
	require.NoError(t, err)

	sealed, err := enc.Seal("k", "")
	require.NoError(t, err)
	assert.Empty(t, sealed)

	opened, err := enc.Open("k", "")
	require.NoError(t, err)
	assert.Empty(t, opened)
}

func TestEncryptor_NonceIsRandom(t *testing.T) {
	enc, err := NewEncryptor("k")
	require.NoError(t, err)

	a, err := enc.Seal("key", "same")
	require.NoError(t, err)
	b, err := enc.Seal("key", "same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestEncryptor_BoundToKeyName(t *testing.T) {
	enc, err := NewEncryptor("k")
	require.NoError(t, err)

	sealed, err := enc.Seal("workos:refresh-token", "secret")
	require.NoError(t, err)

	_, err = enc.Open("workos:access-token", sealed)
	assert.Error(t, err)
}

func TestEncryptor_WrongPassphrase(t *testing.T) {
	a, err := NewEncryptor("first")
	require.NoError(t, err)
	b, err := NewEncryptor("second")
	require.NoError(t, err)

	sealed, err := a.Seal("key", "secret")
	require.NoError(t, err)

	_, err = b.Open("key", sealed)
	assert.Error(t, err)
}

func TestEncryptor_InvalidData(t *testing.T) {
	enc, err := NewEncryptor("k")
	require.NoError(t, err)

	_, err = enc.Open("key", "not base64!!")
	assert.Error(t, err)

	_, err = enc.Open("key", "YWJj")
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
}
