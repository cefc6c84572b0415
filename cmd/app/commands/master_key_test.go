package commands

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/token-rest/internal/crypto/domain"
	cryptoService "github.com/allisson/token-rest/internal/crypto/service"
)

const localKMSKeyURI = "base64key://smGbjm71Nxd1Ig5FS0wj9SlbzAIrnolCz9bQQ6uAhl4="

type mockKMSKeeper struct {
	mock.Mock
}

func (m *mockKMSKeeper) Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error) {
	args := m.Called(ctx, ciphertext)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *mockKMSKeeper) Encrypt(ctx context.Context, plaintext []byte) ([]byte, error) {
	args := m.Called(ctx, plaintext)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *mockKMSKeeper) Close() error {
	return m.Called().Error(0)
}

type mockKMSService struct {
	mock.Mock
}

func (m *mockKMSService) OpenKeeper(ctx context.Context, keyURI string) (cryptoDomain.KMSKeeper, error) {
	args := m.Called(ctx, keyURI)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(cryptoDomain.KMSKeeper), args.Error(1)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var envLine = regexp.MustCompile(`(?m)^([A-Z_]+)="([^"]*)"$`)

func parseEnv(t *testing.T, output string) map[string]string {
	t.Helper()
	env := map[string]string{}
	for _, m := range envLine.FindAllStringSubmatch(output, -1) {
		env[m[1]] = m[2]
	}
	return env
}

func TestRunCreateMasterKey(t *testing.T) {
	ctx := context.Background()

	t.Run("plaintext key loads into a chain", func(t *testing.T) {
		var out bytes.Buffer
		err := RunCreateMasterKey(ctx, &mockKMSService{}, discardLogger(), &out, "mk-dev", "")
		require.NoError(t, err)

		env := parseEnv(t, out.String())
		assert.Equal(t, "mk-dev", env["ACTIVE_MASTER_KEY_ID"])
		assert.NotContains(t, env, "KMS_KEY_URI")
		assert.Contains(t, out.String(), "WARNING")

		chain, err := cryptoDomain.LoadMasterKeyChain(ctx, env["MASTER_KEYS"], env["ACTIVE_MASTER_KEY_ID"], "", nil, discardLogger())
		require.NoError(t, err)
		defer chain.Close()
		_, ok := chain.Get("mk-dev")
		assert.True(t, ok)
	})

	t.Run("kms wrapped key loads through the same keeper", func(t *testing.T) {
		var out bytes.Buffer
		kms := cryptoService.NewKMSService()
		err := RunCreateMasterKey(ctx, kms, discardLogger(), &out, "mk-kms", localKMSKeyURI)
		require.NoError(t, err)

		env := parseEnv(t, out.String())
		assert.Equal(t, localKMSKeyURI, env["KMS_KEY_URI"])

		chain, err := cryptoDomain.LoadMasterKeyChain(
			ctx, env["MASTER_KEYS"], env["ACTIVE_MASTER_KEY_ID"], env["KMS_KEY_URI"], kms, discardLogger())
		require.NoError(t, err)
		defer chain.Close()
		key, err := chain.Active()
		require.NoError(t, err)
		assert.Len(t, key.Key, cryptoDomain.KeySize)
	})

	t.Run("default key id", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, RunCreateMasterKey(ctx, &mockKMSService{}, discardLogger(), &out, "", ""))
		assert.Regexp(t, `ACTIVE_MASTER_KEY_ID="master-key-\d{4}-\d{2}-\d{2}"`, out.String())
	})

	t.Run("keeper open failure", func(t *testing.T) {
		kms := &mockKMSService{}
		kms.On("OpenKeeper", ctx, "awskms://alias/missing").Return(nil, errors.New("no credentials"))

		var out bytes.Buffer
		err := RunCreateMasterKey(ctx, kms, discardLogger(), &out, "mk", "awskms://alias/missing")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to open KMS keeper")
		assert.Empty(t, out.String())
		kms.AssertExpectations(t)
	})

	t.Run("encrypt failure closes the keeper", func(t *testing.T) {
		kms := &mockKMSService{}
		keeper := &mockKMSKeeper{}
		kms.On("OpenKeeper", ctx, localKMSKeyURI).Return(keeper, nil)
		keeper.On("Encrypt", ctx, mock.AnythingOfType("[]uint8")).Return(nil, errors.New("denied"))
		keeper.On("Close").Return(nil)

		var out bytes.Buffer
		err := RunCreateMasterKey(ctx, kms, discardLogger(), &out, "mk", localKMSKeyURI)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to encrypt master key with KMS")
		kms.AssertExpectations(t)
		keeper.AssertExpectations(t)
	})
}

func TestRunRotateMasterKey(t *testing.T) {
	ctx := context.Background()
	existing := "old-key:AAECAwQFBgcICQoLDA0ODxAREhMUFRYXGBkaGxwdHh8="

	t.Run("appends the new key and activates it", func(t *testing.T) {
		kms := &mockKMSService{}
		keeper := &mockKMSKeeper{}
		kms.On("OpenKeeper", ctx, localKMSKeyURI).Return(keeper, nil)
		keeper.On("Encrypt", ctx, mock.AnythingOfType("[]uint8")).Return([]byte("encrypted-key"), nil)
		keeper.On("Close").Return(nil)

		var out bytes.Buffer
		err := RunRotateMasterKey(ctx, kms, discardLogger(), &out, "new-key", localKMSKeyURI, existing, "old-key")
		require.NoError(t, err)

		env := parseEnv(t, out.String())
		assert.Equal(t, existing+",new-key:ZW5jcnlwdGVkLWtleQ==", env["MASTER_KEYS"])
		assert.Equal(t, "new-key", env["ACTIVE_MASTER_KEY_ID"])
		assert.Contains(t, out.String(), "rewrap-vault-keys")
		kms.AssertExpectations(t)
		keeper.AssertExpectations(t)
	})

	t.Run("plaintext rotation keeps both keys loadable", func(t *testing.T) {
		var out bytes.Buffer
		err := RunRotateMasterKey(ctx, &mockKMSService{}, discardLogger(), &out, "new-key", "", existing, "old-key")
		require.NoError(t, err)

		env := parseEnv(t, out.String())
		chain, err := cryptoDomain.LoadMasterKeyChain(ctx, env["MASTER_KEYS"], env["ACTIVE_MASTER_KEY_ID"], "", nil, discardLogger())
		require.NoError(t, err)
		defer chain.Close()
		_, ok := chain.Get("old-key")
		assert.True(t, ok)
		assert.Equal(t, "new-key", chain.ActiveMasterKeyID())
	})

	tests := []struct {
		name     string
		keyID    string
		existing string
		activeID string
		wantErr  string
	}{
		{name: "missing master keys", keyID: "k2", activeID: "old-key", wantErr: "MASTER_KEYS is not set"},
		{name: "missing active id", keyID: "k2", existing: existing, wantErr: "ACTIVE_MASTER_KEY_ID is not set"},
		{name: "reused id", keyID: "old-key", existing: existing, activeID: "old-key", wantErr: "matches the active one"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := RunRotateMasterKey(ctx, &mockKMSService{}, discardLogger(), &out, tt.keyID, "", tt.existing, tt.activeID)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
