package commands

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"time"

	cryptoDomain "github.com/allisson/token-rest/internal/crypto/domain"
	cryptoService "github.com/allisson/token-rest/internal/crypto/service"
)

// encodedMasterKey generates a 32-byte master key and returns it base64
// encoded, encrypted through the KMS keeper first when kmsKeyURI is set. The
// raw key is zeroed before returning.
func encodedMasterKey(
	ctx context.Context,
	opener cryptoDomain.KeeperOpener,
	logger *slog.Logger,
	kmsKeyURI string,
) (string, error) {
	masterKey, err := cryptoService.NewKeyWrapper(cryptoService.NewAEADManager()).GenerateKey()
	if err != nil {
		return "", fmt.Errorf("failed to generate master key: %w", err)
	}
	defer cryptoDomain.Zero(masterKey)

	if kmsKeyURI == "" {
		return base64.StdEncoding.EncodeToString(masterKey), nil
	}

	keeper, err := opener.OpenKeeper(ctx, kmsKeyURI)
	if err != nil {
		return "", fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	defer func() {
		if closeErr := keeper.Close(); closeErr != nil {
			logger.Warn("failed to close kms keeper", slog.Any("error", closeErr))
		}
	}()

	ciphertext, err := keeper.Encrypt(ctx, masterKey)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt master key with KMS: %w", err)
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

func defaultMasterKeyID(keyID string) string {
	if keyID != "" {
		return keyID
	}
	return fmt.Sprintf("master-key-%s", time.Now().UTC().Format("2006-01-02"))
}

// RunCreateMasterKey prints the environment for a new master key. With an empty
// kmsKeyURI the key is printed as plain base64, which is only suitable for
// development.
func RunCreateMasterKey(
	ctx context.Context,
	opener cryptoDomain.KeeperOpener,
	logger *slog.Logger,
	writer io.Writer,
	keyID, kmsKeyURI string,
) error {
	keyID = defaultMasterKeyID(keyID)

	encodedKey, err := encodedMasterKey(ctx, opener, logger, kmsKeyURI)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(writer, "# Master key configuration")
	_, _ = fmt.Fprintln(writer, "# Copy these environment variables to your .env file or secrets manager")
	if kmsKeyURI == "" {
		_, _ = fmt.Fprintln(writer, "# WARNING: plaintext master key, set KMS_KEY_URI outside development")
	} else {
		_, _ = fmt.Fprintf(writer, "KMS_KEY_URI=\"%s\"\n", kmsKeyURI)
	}
	_, _ = fmt.Fprintf(writer, "MASTER_KEYS=\"%s:%s\"\n", keyID, encodedKey)
	_, _ = fmt.Fprintf(writer, "ACTIVE_MASTER_KEY_ID=\"%s\"\n", keyID)
	return nil
}

// RunRotateMasterKey generates a new master key, appends it to the existing
// MASTER_KEYS and prints the environment with the new key active. Vault keys
// keep their old wrapping until rewrap-vault-keys runs.
func RunRotateMasterKey(
	ctx context.Context,
	opener cryptoDomain.KeeperOpener,
	logger *slog.Logger,
	writer io.Writer,
	keyID, kmsKeyURI, existingMasterKeys, existingActiveKeyID string,
) error {
	if existingMasterKeys == "" {
		return fmt.Errorf("MASTER_KEYS is not set - cannot rotate without existing keys")
	}
	if existingActiveKeyID == "" {
		return fmt.Errorf("ACTIVE_MASTER_KEY_ID is not set")
	}

	keyID = defaultMasterKeyID(keyID)
	if keyID == existingActiveKeyID {
		return fmt.Errorf("new master key id %q matches the active one", keyID)
	}

	encodedKey, err := encodedMasterKey(ctx, opener, logger, kmsKeyURI)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(writer, "# Master key rotation")
	_, _ = fmt.Fprintln(writer, "# Update these environment variables in your .env file or secrets manager")
	if kmsKeyURI != "" {
		_, _ = fmt.Fprintf(writer, "KMS_KEY_URI=\"%s\"\n", kmsKeyURI)
	}
	_, _ = fmt.Fprintf(writer, "MASTER_KEYS=\"%s,%s:%s\"\n", existingMasterKeys, keyID, encodedKey)
	_, _ = fmt.Fprintf(writer, "ACTIVE_MASTER_KEY_ID=\"%s\"\n", keyID)
	_, _ = fmt.Fprintln(writer)
	_, _ = fmt.Fprintln(writer, "# 1. Update the variables above and restart the application")
	_, _ = fmt.Fprintln(writer, "# 2. Rewrap every vault key: app rewrap-vault-keys")
	_, _ = fmt.Fprintf(writer, "# 3. Remove %s from MASTER_KEYS once no audit log to verify was signed with it\n",
		existingActiveKeyID)

	logger.Info("master key generated", slog.String("key_id", keyID))
	return nil
}
