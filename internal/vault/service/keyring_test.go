package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/token-rest/internal/crypto/domain"
	cryptoService "github.com/allisson/token-rest/internal/crypto/service"
	apperrors "github.com/allisson/token-rest/internal/errors"
	vaultDomain "github.com/allisson/token-rest/internal/vault/domain"
)

type fakeKeyReader struct {
	mu    sync.Mutex
	keys  map[vaultDomain.KeyRef]*vaultDomain.VaultKey
	loads atomic.Int32
	delay time.Duration
}

func (f *fakeKeyReader) GetKey(ctx context.Context, vaultID uuid.UUID, version int) (*vaultDomain.VaultKey, error) {
	f.loads.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key, ok := f.keys[vaultDomain.KeyRef{VaultID: vaultID, Version: version}]
	if !ok {
		return nil, vaultDomain.ErrVaultKeyNotFound
	}
	return key, nil
}

type keyringFixture struct {
	keyring *Keyring
	reader  *fakeKeyReader
	chain   *cryptoDomain.MasterKeyChain
	wrapper *cryptoService.KeyWrapperService
	vault   *vaultDomain.Vault
}

func newKeyringFixture(t *testing.T) *keyringFixture {
	t.Helper()

	chain, err := cryptoDomain.NewMasterKeyChain("mk1", &cryptoDomain.MasterKey{
		ID:  "mk1",
		Key: make([]byte, cryptoDomain.KeySize),
	})
	require.NoError(t, err)
	t.Cleanup(chain.Close)

	wrapper := cryptoService.NewKeyWrapper(cryptoService.NewAEADManager())
	reader := &fakeKeyReader{keys: make(map[vaultDomain.KeyRef]*vaultDomain.VaultKey)}

	f := &keyringFixture{
		keyring: NewKeyring(chain, reader, wrapper, cryptoService.NewAEADManager()),
		reader:  reader,
		chain:   chain,
		wrapper: wrapper,
		vault:   &vaultDomain.Vault{ID: uuid.New(), Name: "cards"},
	}

	macKey, err := wrapper.GenerateKey()
	require.NoError(t, err)
	master, err := chain.Active()
	require.NoError(t, err)
	f.vault.MacKey, err = wrapper.Wrap(master, cryptoDomain.AESGCM, macKey, vaultDomain.MacKeyAAD(f.vault.ID))
	require.NoError(t, err)

	f.addVersion(t, 1, cryptoDomain.AESGCM)
	return f
}

func (f *keyringFixture) addVersion(t *testing.T, version int, alg cryptoDomain.Algorithm) {
	t.Helper()

	raw, err := f.wrapper.GenerateKey()
	require.NoError(t, err)
	master, err := f.chain.Active()
	require.NoError(t, err)
	wrapped, err := f.wrapper.Wrap(master, alg, raw, vaultDomain.VaultKeyAAD(f.vault.ID, version))
	require.NoError(t, err)

	f.reader.mu.Lock()
	f.reader.keys[vaultDomain.KeyRef{VaultID: f.vault.ID, Version: version}] = &vaultDomain.VaultKey{
		VaultID: f.vault.ID,
		Version: version,
		Wrapped: wrapped,
	}
	f.reader.mu.Unlock()
}

func TestKeyring_EncryptDecrypt(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_RoundTrip", func(t *testing.T) {
		f := newKeyringFixture(t)
		ref := vaultDomain.KeyRef{VaultID: f.vault.ID, Version: 1}
		aad := vaultDomain.AssociatedData(f.vault.ID, "tok", 1, vaultDomain.ClassificationPAN)

		sealed, err := f.keyring.Encrypt(ctx, ref, []byte("4111111111111111"), aad)
		require.NoError(t, err)
		assert.Len(t, sealed.Tag, cryptoDomain.TagSize)
		assert.Len(t, sealed.Ciphertext, 16)

		plaintext, err := f.keyring.Decrypt(ctx, ref, sealed, aad)
		require.NoError(t, err)
		assert.Equal(t, []byte("4111111111111111"), plaintext)
	})

	t.Run("Error_TamperedTag", func(t *testing.T) {
		f := newKeyringFixture(t)
		ref := vaultDomain.KeyRef{VaultID: f.vault.ID, Version: 1}

		sealed, err := f.keyring.Encrypt(ctx, ref, []byte("secret"), []byte("aad"))
		require.NoError(t, err)

		sealed.Tag[3] ^= 0xff
		_, err = f.keyring.Decrypt(ctx, ref, sealed, []byte("aad"))
		assert.True(t, apperrors.Is(err, apperrors.ErrIntegrity))
	})

	t.Run("Error_SwappedToken", func(t *testing.T) {
		f := newKeyringFixture(t)
		ref := vaultDomain.KeyRef{VaultID: f.vault.ID, Version: 1}

		sealed, err := f.keyring.Encrypt(ctx, ref, []byte("secret"),
			vaultDomain.AssociatedData(f.vault.ID, "tok-a", 1, vaultDomain.ClassificationGeneric))
		require.NoError(t, err)

		_, err = f.keyring.Decrypt(ctx, ref, sealed,
			vaultDomain.AssociatedData(f.vault.ID, "tok-b", 1, vaultDomain.ClassificationGeneric))
		assert.True(t, apperrors.Is(err, apperrors.ErrIntegrity))
	})

	t.Run("Error_TruncatedTag", func(t *testing.T) {
		f := newKeyringFixture(t)
		ref := vaultDomain.KeyRef{VaultID: f.vault.ID, Version: 1}

		_, err := f.keyring.Decrypt(ctx, ref, &vaultDomain.Sealed{Tag: []byte{1}}, nil)
		assert.ErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)
	})

	t.Run("Error_UnknownVersion", func(t *testing.T) {
		f := newKeyringFixture(t)
		_, err := f.keyring.Encrypt(ctx, vaultDomain.KeyRef{VaultID: f.vault.ID, Version: 9}, []byte("x"), nil)
		assert.ErrorIs(t, err, vaultDomain.ErrVaultKeyNotFound)
	})

	t.Run("Success_VersionsAreIndependent", func(t *testing.T) {
		f := newKeyringFixture(t)
		f.addVersion(t, 2, cryptoDomain.ChaCha20)
		v1 := vaultDomain.KeyRef{VaultID: f.vault.ID, Version: 1}
		v2 := vaultDomain.KeyRef{VaultID: f.vault.ID, Version: 2}

		sealed, err := f.keyring.Encrypt(ctx, v1, []byte("old"), nil)
		require.NoError(t, err)

		_, err = f.keyring.Decrypt(ctx, v2, sealed, nil)
		assert.True(t, apperrors.Is(err, apperrors.ErrIntegrity))

		plaintext, err := f.keyring.Decrypt(ctx, v1, sealed, nil)
		require.NoError(t, err)
		assert.Equal(t, []byte("old"), plaintext)
	})
}

func TestKeyring_LoadsKeyOnce(t *testing.T) {
	ctx := context.Background()
	f := newKeyringFixture(t)
	f.reader.delay = 20 * time.Millisecond
	ref := vaultDomain.KeyRef{VaultID: f.vault.ID, Version: 1}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.keyring.Encrypt(ctx, ref, []byte("x"), nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), f.reader.loads.Load())

	f.keyring.Forget(f.vault.ID)
	_, err := f.keyring.Encrypt(ctx, ref, []byte("x"), nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.reader.loads.Load())
}

func TestKeyring_SharedLoadSurvivesCallerCancel(t *testing.T) {
	f := newKeyringFixture(t)
	f.reader.delay = 50 * time.Millisecond
	ref := vaultDomain.KeyRef{VaultID: f.vault.ID, Version: 1}

	first, cancel := context.WithCancel(context.Background())
	firstDone := make(chan error, 1)
	go func() {
		_, err := f.keyring.Encrypt(first, ref, []byte("x"), nil)
		firstDone <- err
	}()

	for f.reader.loads.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	cancel()

	_, err := f.keyring.Encrypt(context.Background(), ref, []byte("y"), nil)
	require.NoError(t, err)
	assert.NoError(t, <-firstDone)
	assert.Equal(t, int32(1), f.reader.loads.Load())
}

func TestKeyring_Digest(t *testing.T) {
	ctx := context.Background()
	f := newKeyringFixture(t)

	d1, err := f.keyring.Digest(ctx, f.vault, []byte("4111111111111111"))
	require.NoError(t, err)
	assert.Len(t, d1, 32)

	d2, err := f.keyring.Digest(ctx, f.vault, []byte("4111111111111111"))
	require.NoError(t, err)
	assert.Equal(t, d1, d2)

	d3, err := f.keyring.Digest(ctx, f.vault, []byte("5555555555554444"))
	require.NoError(t, err)
	assert.NotEqual(t, d1, d3)

	other := newKeyringFixture(t)
	d4, err := other.keyring.Digest(ctx, other.vault, []byte("4111111111111111"))
	require.NoError(t, err)
	assert.NotEqual(t, d1, d4)
}

func TestKeyring_RandomBytes(t *testing.T) {
	f := newKeyringFixture(t)

	b, err := f.keyring.RandomBytes(24)
	require.NoError(t, err)
	assert.Len(t, b, 24)
}
