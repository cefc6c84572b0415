// Package memory provides an in-process vault store. It backs tests and
// single node development setups; nothing survives a restart.
package memory

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	vaultDomain "github.com/allisson/token-rest/internal/vault/domain"
)

type recordKey struct {
	vaultID uuid.UUID
	token   string
}

type entry struct {
	mu     sync.Mutex
	record vaultDomain.TokenRecord
}

func (e *entry) snapshot() vaultDomain.TokenRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.record
}

// TokenRepository is a vault store backed by sync.Map.
type TokenRepository struct {
	records    sync.Map // recordKey -> *entry
	quarantine sync.Map // recordKey -> time.Time
}

// NewTokenRepository creates an empty TokenRepository.
func NewTokenRepository() *TokenRepository {
	return &TokenRepository{}
}

// InsertIfAbsent stores a copy of record unless the token is taken.
func (r *TokenRepository) InsertIfAbsent(_ context.Context, record *vaultDomain.TokenRecord) (bool, error) {
	e := &entry{record: *record}
	_, loaded := r.records.LoadOrStore(recordKey{vaultID: record.VaultID, token: record.Token}, e)
	return !loaded, nil
}

// Get returns a copy of the record.
func (r *TokenRepository) Get(_ context.Context, vaultID uuid.UUID, token string) (*vaultDomain.TokenRecord, error) {
	key := recordKey{vaultID: vaultID, token: token}
	v, ok := r.records.Load(key)
	if !ok {
		return nil, vaultDomain.ErrTokenNotFound
	}
	return r.withQuarantine(key, v.(*entry).snapshot()), nil
}

// Delete removes a record and its quarantine entry.
func (r *TokenRepository) Delete(_ context.Context, vaultID uuid.UUID, token string) (bool, error) {
	key := recordKey{vaultID: vaultID, token: token}
	_, existed := r.records.LoadAndDelete(key)
	r.quarantine.Delete(key)
	return existed, nil
}

// TouchLastAccessed sets the last access time of a record. Missing records are ignored.
func (r *TokenRepository) TouchLastAccessed(_ context.Context, vaultID uuid.UUID, token string, at time.Time) error {
	v, ok := r.records.Load(recordKey{vaultID: vaultID, token: token})
	if !ok {
		return nil
	}
	e := v.(*entry)
	e.mu.Lock()
	e.record.LastAccessedAt = &at
	e.mu.Unlock()
	return nil
}

// Quarantine records an integrity failure. The first entry wins.
func (r *TokenRepository) Quarantine(_ context.Context, vaultID uuid.UUID, token, _ string, at time.Time) error {
	r.quarantine.LoadOrStore(recordKey{vaultID: vaultID, token: token}, at)
	return nil
}

// ListByValueDigest returns matching records ordered by creation time.
func (r *TokenRepository) ListByValueDigest(
	_ context.Context,
	vaultID uuid.UUID,
	digest []byte,
	offset, limit int,
) ([]*vaultDomain.TokenRecord, error) {
	matches := make([]*vaultDomain.TokenRecord, 0)
	r.records.Range(func(k, v any) bool {
		key := k.(recordKey)
		if key.vaultID != vaultID {
			return true
		}
		record := v.(*entry).snapshot()
		if bytes.Equal(record.ValueDigest, digest) {
			matches = append(matches, r.withQuarantine(key, record))
		}
		return true
	})

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].Token < matches[j].Token
		}
		return matches[i].CreatedAt.Before(matches[j].CreatedAt)
	})

	if offset >= len(matches) {
		return make([]*vaultDomain.TokenRecord, 0), nil
	}
	end := len(matches)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return matches[offset:end], nil
}

// DeleteExpired deletes (or with dryRun counts) records that expired before the given time.
func (r *TokenRepository) DeleteExpired(_ context.Context, before time.Time, dryRun bool) (int64, error) {
	var count int64
	r.records.Range(func(k, v any) bool {
		record := v.(*entry).snapshot()
		if record.ExpiresAt == nil || !record.ExpiresAt.Before(before) {
			return true
		}
		if dryRun {
			count++
			return true
		}
		if _, deleted := r.records.LoadAndDelete(k); deleted {
			r.quarantine.Delete(k)
			count++
		}
		return true
	})
	return count, nil
}

// CountByVault counts the records of a vault.
func (r *TokenRepository) CountByVault(_ context.Context, vaultID uuid.UUID) (int64, error) {
	var count int64
	r.records.Range(func(k, _ any) bool {
		if k.(recordKey).vaultID == vaultID {
			count++
		}
		return true
	})
	return count, nil
}

func (r *TokenRepository) withQuarantine(key recordKey, record vaultDomain.TokenRecord) *vaultDomain.TokenRecord {
	if v, ok := r.quarantine.Load(key); ok {
		at := v.(time.Time)
		record.QuarantinedAt = &at
	}
	return &record
}
