package domain

import (
	"encoding/binary"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/token-rest/internal/crypto/domain"
)

// VaultKey is one version of a vault's data key, wrapped by a master key.
// Versions are immutable and never deleted.
type VaultKey struct {
	VaultID   uuid.UUID
	Version   int
	Wrapped   cryptoDomain.WrappedKey
	CreatedAt time.Time
}

// KeyRef identifies a vault key version.
type KeyRef struct {
	VaultID uuid.UUID
	Version int
}

// VaultKeyAAD is the associated data used when wrapping a vault key.
func VaultKeyAAD(vaultID uuid.UUID, version int) []byte {
	buf := make([]byte, 0, 10+16+4)
	buf = append(buf, "vault-key/"...)
	buf = append(buf, vaultID[:]...)
	return binary.BigEndian.AppendUint32(buf, uint32(version))
}

// MacKeyAAD is the associated data used when wrapping a vault MAC key.
func MacKeyAAD(vaultID uuid.UUID) []byte {
	buf := make([]byte, 0, 8+16)
	buf = append(buf, "mac-key/"...)
	return append(buf, vaultID[:]...)
}
