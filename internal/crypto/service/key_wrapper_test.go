package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/token-rest/internal/crypto/domain"
)

func newTestChain(t *testing.T) *cryptoDomain.MasterKeyChain {
	t.Helper()

	k1 := make([]byte, cryptoDomain.KeySize)
	k2 := make([]byte, cryptoDomain.KeySize)
	k2[0] = 1

	chain, err := cryptoDomain.NewMasterKeyChain("mk2",
		&cryptoDomain.MasterKey{ID: "mk1", Key: k1},
		&cryptoDomain.MasterKey{ID: "mk2", Key: k2},
	)
	require.NoError(t, err)
	t.Cleanup(chain.Close)
	return chain
}

func TestKeyWrapper(t *testing.T) {
	wrapper := NewKeyWrapper(NewAEADManager())
	chain := newTestChain(t)

	t.Run("Success_WrapUnwrap", func(t *testing.T) {
		key, err := wrapper.GenerateKey()
		require.NoError(t, err)
		require.Len(t, key, cryptoDomain.KeySize)

		active, err := chain.Active()
		require.NoError(t, err)

		wrapped, err := wrapper.Wrap(active, cryptoDomain.ChaCha20, key, []byte("vault-key:1"))
		require.NoError(t, err)
		assert.Equal(t, "mk2", wrapped.MasterKeyID)
		assert.NotContains(t, string(wrapped.Ciphertext), string(key))

		unwrapped, err := wrapper.Unwrap(chain, wrapped, []byte("vault-key:1"))
		require.NoError(t, err)
		assert.Equal(t, key, unwrapped)
	})

	t.Run("Error_WrongAAD", func(t *testing.T) {
		key, err := wrapper.GenerateKey()
		require.NoError(t, err)
		active, err := chain.Active()
		require.NoError(t, err)

		wrapped, err := wrapper.Wrap(active, cryptoDomain.AESGCM, key, []byte("vault-key:1"))
		require.NoError(t, err)

		_, err = wrapper.Unwrap(chain, wrapped, []byte("vault-key:2"))
		assert.ErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)
	})

	t.Run("Error_UnknownMasterKey", func(t *testing.T) {
		_, err := wrapper.Unwrap(chain, cryptoDomain.WrappedKey{MasterKeyID: "gone"}, nil)
		assert.ErrorIs(t, err, cryptoDomain.ErrMasterKeyNotFound)
	})
}
