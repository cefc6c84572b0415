package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKMSService_OpenKeeper(t *testing.T) {
	ctx := context.Background()
	kms := NewKMSService()

	t.Run("Success_LocalSecretsRoundTrip", func(t *testing.T) {
		keeper, err := kms.OpenKeeper(ctx, "base64key://smGbjm71Nxd1Ig5FS0wj9SlbzAIrnolCz9bQQ6uAhl4=")
		require.NoError(t, err)
		defer func() { _ = keeper.Close() }()

		ciphertext, err := keeper.Encrypt(ctx, []byte("master-key-material"))
		require.NoError(t, err)

		plaintext, err := keeper.Decrypt(ctx, ciphertext)
		require.NoError(t, err)
		assert.Equal(t, []byte("master-key-material"), plaintext)
	})

	t.Run("Error_UnknownScheme", func(t *testing.T) {
		_, err := kms.OpenKeeper(ctx, "nope://key")
		assert.Error(t, err)
	})
}
