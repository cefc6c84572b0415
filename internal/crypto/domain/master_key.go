package domain

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// MasterKey is a root key used only to wrap vault keys and derive the audit
// signing key.
type MasterKey struct {
	ID  string
	Key []byte
}

// KMSKeeper is the subset of *secrets.Keeper the master key chain needs.
type KMSKeeper interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	Close() error
}

// KeeperOpener opens a KMS keeper from a gocloud.dev secrets URI.
type KeeperOpener interface {
	OpenKeeper(ctx context.Context, keyURI string) (KMSKeeper, error)
}

// MasterKeyChain holds every configured master key and the id of the one used
// for new wrapping operations.
type MasterKeyChain struct {
	activeID string
	keys     sync.Map
}

// NewMasterKeyChain builds a chain from already decoded keys. The active id must
// be present.
func NewMasterKeyChain(activeID string, keys ...*MasterKey) (*MasterKeyChain, error) {
	mkc := &MasterKeyChain{activeID: activeID}
	for _, k := range keys {
		if len(k.Key) != KeySize {
			mkc.Close()
			return nil, fmt.Errorf("%w: master key %s must be %d bytes, got %d",
				ErrInvalidKeySize, k.ID, KeySize, len(k.Key))
		}
		mkc.keys.Store(k.ID, &MasterKey{ID: k.ID, Key: append([]byte(nil), k.Key...)})
	}
	if _, ok := mkc.Get(activeID); !ok {
		mkc.Close()
		return nil, fmt.Errorf("%w: ACTIVE_MASTER_KEY_ID=%s", ErrActiveMasterKeyNotFound, activeID)
	}
	return mkc, nil
}

// ActiveMasterKeyID returns the id of the key used for new wrapping operations.
func (m *MasterKeyChain) ActiveMasterKeyID() string {
	return m.activeID
}

// Active returns the active master key.
func (m *MasterKeyChain) Active() (*MasterKey, error) {
	key, ok := m.Get(m.activeID)
	if !ok {
		return nil, ErrActiveMasterKeyNotFound
	}
	return key, nil
}

// Get returns the master key with the given id.
func (m *MasterKeyChain) Get(id string) (*MasterKey, bool) {
	if masterKey, ok := m.keys.Load(id); ok {
		return masterKey.(*MasterKey), true
	}
	return nil, false
}

// Close zeroes every key and empties the chain.
func (m *MasterKeyChain) Close() {
	m.keys.Range(func(_, value any) bool {
		Zero(value.(*MasterKey).Key)
		return true
	})
	m.activeID = ""
	m.keys.Clear()
}

// LoadMasterKeyChain parses MASTER_KEYS ("id:base64,id:base64") and
// ACTIVE_MASTER_KEY_ID. When kmsKeyURI is set every entry is KMS ciphertext and
// is decrypted through the keeper before use.
func LoadMasterKeyChain(
	ctx context.Context,
	rawKeys string,
	activeID string,
	kmsKeyURI string,
	opener KeeperOpener,
	logger *slog.Logger,
) (*MasterKeyChain, error) {
	if rawKeys == "" {
		return nil, ErrMasterKeysNotSet
	}
	if activeID == "" {
		return nil, ErrActiveMasterKeyIDNotSet
	}

	var keeper KMSKeeper
	if kmsKeyURI != "" {
		var err error
		keeper, err = opener.OpenKeeper(ctx, kmsKeyURI)
		if err != nil {
			return nil, err
		}
		defer func() {
			if closeErr := keeper.Close(); closeErr != nil {
				logger.Warn("failed to close kms keeper", slog.Any("error", closeErr))
			}
		}()
	}

	var keys []*MasterKey
	defer func() {
		for _, k := range keys {
			Zero(k.Key)
		}
	}()

	for part := range strings.SplitSeq(rawKeys, ",") {
		p := strings.SplitN(strings.TrimSpace(part), ":", 2)
		if len(p) != 2 || p[0] == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidMasterKeysFormat, part)
		}
		id := p[0]

		decoded, err := base64.StdEncoding.DecodeString(p[1])
		if err != nil {
			return nil, fmt.Errorf("%w for %s: %v", ErrInvalidMasterKeyBase64, id, err)
		}

		if keeper != nil {
			plain, err := keeper.Decrypt(ctx, decoded)
			if err != nil {
				return nil, fmt.Errorf("failed to decrypt master key %s with kms: %w", id, err)
			}
			decoded = plain
		}

		keys = append(keys, &MasterKey{ID: id, Key: decoded})
	}

	chain, err := NewMasterKeyChain(activeID, keys...)
	if err != nil {
		return nil, err
	}

	logger.Info("master key chain loaded",
		slog.Int("keys", len(keys)),
		slog.String("active_master_key_id", activeID),
		slog.Bool("kms", keeper != nil),
	)

	return chain, nil
}
