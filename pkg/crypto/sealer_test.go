package crypto

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealerRoundTrip(t *testing.T) {
	s, err := NewSealer("super-secret", "gate-codes")
	require.NoError(t, err)

	sealed, err := s.Encrypt("#4521*")
	require.NoError(t, err)
	assert.NotEmpty(t, sealed.Ciphertext)
	assert.NotEmpty(t, sealed.IV)
	assert.NotEmpty(t, sealed.AuthTag)
	assert.NotContains(t, sealed.Ciphertext, "4521")

	plain, err := s.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "#4521*", plain)
}

func TestSealerUsesFreshNonce(t *testing.T) {
	s, err := NewSealer("super-secret", "gate-codes")
	require.NoError(t, err)

	a, err := s.Encrypt("1234")
	require.NoError(t, err)
	b, err := s.Encrypt("1234")
	require.NoError(t, err)
	assert.NotEqual(t, a.IV, b.IV)
	assert.NotEqual(t, a.Ciphertext+a.AuthTag, b.Ciphertext+b.AuthTag)
}

func TestSealerRejectsTamperedTag(t *testing.T) {
	s, err := NewSealer("super-secret", "gate-codes")
	require.NoError(t, err)
	sealed, err := s.Encrypt("1234")
	require.NoError(t, err)

	other, err := s.Encrypt("9999")
	require.NoError(t, err)
	sealed.AuthTag = other.AuthTag

	_, err = s.Decrypt(sealed)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDecrypt))
}

func TestSealerKeysAreSeparatedByInfo(t *testing.T) {
	a, err := NewSealer("super-secret", "gate-codes")
	require.NoError(t, err)
	b, err := NewSealer("super-secret", "other-purpose")
	require.NoError(t, err)

	sealed, err := a.Encrypt("1234")
	require.NoError(t, err)
	_, err = b.Decrypt(sealed)
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestSealerValidation(t *testing.T) {
	_, err := NewSealer("", "gate-codes")
	assert.ErrorIs(t, err, ErrEmptySecret)

	s, err := NewSealer("secret", "gate-codes")
	require.NoError(t, err)
	_, err = s.Encrypt("")
	assert.ErrorIs(t, err, ErrEmptyPlaintext)

	_, err = s.Decrypt(Sealed{Ciphertext: "!!", IV: "", AuthTag: ""})
	assert.ErrorIs(t, err, ErrDecrypt)
}
