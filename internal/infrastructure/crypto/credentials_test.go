package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEncryptor(t *testing.T) *Encryptor {
	t.Helper()
	key, err := GenerateKey()
	require.NoError(t, err)
	enc, err := NewEncryptor(key)
	require.NoError(t, err)
	return enc
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	enc := newTestEncryptor(t)

	for _, plaintext := range []string{"parent@mos.ru", "p@ssw0rd с кириллицей", "x"} {
		ct, err := enc.Encrypt(plaintext)
		require.NoError(t, err)
		assert.NotEqual(t, plaintext, ct)

		got, err := enc.Decrypt(ct)
		require.NoError(t, err)
		assert.Equal(t, plaintext, got)
	}
}

func TestEncrypt_EmptyPassthrough(t *testing.T) {
	enc := newTestEncryptor(t)

	ct, err := enc.Encrypt("")
	require.NoError(t, err)
	assert.Empty(t, ct)

	pt, err := enc.Decrypt("")
	require.NoError(t, err)
	assert.Empty(t, pt)
}

func TestEncrypt_NoncesDiffer(t *testing.T) {
	enc := newTestEncryptor(t)

	a, err := enc.Encrypt("same secret")
	require.NoError(t, err)
	b, err := enc.Encrypt("same secret")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestDecrypt_WrongKey(t *testing.T) {
	enc := newTestEncryptor(t)
	other := newTestEncryptor(t)

	ct, err := enc.Encrypt("secret")
	require.NoError(t, err)

	_, err = other.Decrypt(ct)
	assert.ErrorIs(t, err, ErrDecryptFailed)
}

func TestDecrypt_Tampered(t *testing.T) {
	enc := newTestEncryptor(t)

	_, err := enc.Decrypt("not base64!!!")
	assert.ErrorIs(t, err, ErrDecryptFailed)

	_, err = enc.Decrypt("c2hvcnQ=") // valid base64, shorter than a nonce
	assert.ErrorIs(t, err, ErrDecryptFailed)
}

func TestNewEncryptor_InvalidKey(t *testing.T) {
	_, err := NewEncryptor("dG9vc2hvcnQ=")
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = NewEncryptor("***")
	assert.ErrorIs(t, err, ErrInvalidKey)
}
