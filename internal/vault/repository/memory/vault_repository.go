package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/token-rest/internal/crypto/domain"
	vaultDomain "github.com/allisson/token-rest/internal/vault/domain"
)

// VaultRepository keeps vaults and their key versions in maps guarded by one
// mutex. Vault writes are rare, so a single lock is enough.
type VaultRepository struct {
	mu     sync.RWMutex
	vaults map[uuid.UUID]vaultDomain.Vault
	keys   map[vaultDomain.KeyRef]vaultDomain.VaultKey
}

// NewVaultRepository creates an empty VaultRepository.
func NewVaultRepository() *VaultRepository {
	return &VaultRepository{
		vaults: make(map[uuid.UUID]vaultDomain.Vault),
		keys:   make(map[vaultDomain.KeyRef]vaultDomain.VaultKey),
	}
}

func (r *VaultRepository) Create(_ context.Context, vault *vaultDomain.Vault) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, v := range r.vaults {
		if v.Name == vault.Name {
			return vaultDomain.ErrVaultAlreadyExists
		}
	}
	r.vaults[vault.ID] = *vault
	return nil
}

func (r *VaultRepository) GetByName(_ context.Context, name string) (*vaultDomain.Vault, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, v := range r.vaults {
		if v.Name == name {
			return &v, nil
		}
	}
	return nil, vaultDomain.ErrVaultNotFound
}

func (r *VaultRepository) GetByID(_ context.Context, id uuid.UUID) (*vaultDomain.Vault, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.vaults[id]
	if !ok {
		return nil, vaultDomain.ErrVaultNotFound
	}
	return &v, nil
}

func (r *VaultRepository) List(_ context.Context, offset, limit int) ([]*vaultDomain.Vault, error) {
	r.mu.RLock()
	out := make([]*vaultDomain.Vault, 0, len(r.vaults))
	for _, v := range r.vaults {
		out = append(out, &v)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return page(out, offset, limit), nil
}

func (r *VaultRepository) UpdateActiveKeyVersion(_ context.Context, vaultID uuid.UUID, version int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.vaults[vaultID]
	if !ok {
		return vaultDomain.ErrVaultNotFound
	}
	v.ActiveKeyVersion = version
	r.vaults[vaultID] = v
	return nil
}

func (r *VaultRepository) UpdateMacKey(_ context.Context, vaultID uuid.UUID, macKey cryptoDomain.WrappedKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.vaults[vaultID]
	if !ok {
		return vaultDomain.ErrVaultNotFound
	}
	v.MacKey = macKey
	r.vaults[vaultID] = v
	return nil
}

// Keys returns the key version view of the repository.
func (r *VaultRepository) Keys() *VaultKeyRepository {
	return &VaultKeyRepository{r}
}

// VaultKeyRepository is the key version half of VaultRepository.
type VaultKeyRepository struct {
	r *VaultRepository
}

func (k *VaultKeyRepository) Create(_ context.Context, key *vaultDomain.VaultKey) error {
	k.r.mu.Lock()
	defer k.r.mu.Unlock()

	ref := vaultDomain.KeyRef{VaultID: key.VaultID, Version: key.Version}
	if _, ok := k.r.keys[ref]; ok {
		return vaultDomain.ErrVaultKeyExists
	}
	k.r.keys[ref] = *key
	return nil
}

func (k *VaultKeyRepository) GetKey(_ context.Context, vaultID uuid.UUID, version int) (*vaultDomain.VaultKey, error) {
	k.r.mu.RLock()
	defer k.r.mu.RUnlock()

	key, ok := k.r.keys[vaultDomain.KeyRef{VaultID: vaultID, Version: version}]
	if !ok {
		return nil, vaultDomain.ErrVaultKeyNotFound
	}
	return &key, nil
}

func (k *VaultKeyRepository) ListByVault(_ context.Context, vaultID uuid.UUID) ([]*vaultDomain.VaultKey, error) {
	k.r.mu.RLock()
	var out []*vaultDomain.VaultKey
	for ref, key := range k.r.keys {
		if ref.VaultID == vaultID {
			out = append(out, &key)
		}
	}
	k.r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func (k *VaultKeyRepository) Update(_ context.Context, key *vaultDomain.VaultKey) error {
	k.r.mu.Lock()
	defer k.r.mu.Unlock()

	ref := vaultDomain.KeyRef{VaultID: key.VaultID, Version: key.Version}
	if _, ok := k.r.keys[ref]; !ok {
		return vaultDomain.ErrVaultKeyNotFound
	}
	k.r.keys[ref] = *key
	return nil
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
