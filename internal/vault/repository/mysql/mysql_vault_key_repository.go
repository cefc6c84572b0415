package mysql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/token-rest/internal/crypto/domain"
	"github.com/allisson/token-rest/internal/database"
	apperrors "github.com/allisson/token-rest/internal/errors"
	vaultDomain "github.com/allisson/token-rest/internal/vault/domain"
)

// MySQLVaultKeyRepository implements vault key persistence for MySQL.
type MySQLVaultKeyRepository struct {
	db *sql.DB
}

// NewMySQLVaultKeyRepository creates a new MySQLVaultKeyRepository.
func NewMySQLVaultKeyRepository(db *sql.DB) *MySQLVaultKeyRepository {
	return &MySQLVaultKeyRepository{db: db}
}

// Create inserts a new key version.
func (m *MySQLVaultKeyRepository) Create(ctx context.Context, key *vaultDomain.VaultKey) error {
	querier := database.GetTx(ctx, m.db)

	vaultID, err := key.VaultID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal vault id")
	}

	query := `INSERT INTO vault_keys (vault_id, version, master_key_id, algorithm, encrypted_key, nonce, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		vaultID,
		key.Version,
		key.Wrapped.MasterKeyID,
		key.Wrapped.Algorithm,
		key.Wrapped.Ciphertext,
		key.Wrapped.Nonce,
		key.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return vaultDomain.ErrVaultKeyExists
		}
		return apperrors.Wrap(err, "failed to create vault key")
	}
	return nil
}

// GetKey returns one key version.
func (m *MySQLVaultKeyRepository) GetKey(
	ctx context.Context,
	vaultID uuid.UUID,
	version int,
) (*vaultDomain.VaultKey, error) {
	querier := database.GetTx(ctx, m.db)

	id, err := vaultID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal vault id")
	}

	query := `SELECT vault_id, version, master_key_id, algorithm, encrypted_key, nonce, created_at
			  FROM vault_keys WHERE vault_id = ? AND version = ?`

	key, err := scanVaultKey(querier.QueryRowContext(ctx, query, id, version))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, vaultDomain.ErrVaultKeyNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get vault key")
	}
	return key, nil
}

// ListByVault returns every key version of a vault, oldest first.
func (m *MySQLVaultKeyRepository) ListByVault(
	ctx context.Context,
	vaultID uuid.UUID,
) ([]*vaultDomain.VaultKey, error) {
	querier := database.GetTx(ctx, m.db)

	id, err := vaultID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal vault id")
	}

	query := `SELECT vault_id, version, master_key_id, algorithm, encrypted_key, nonce, created_at
			  FROM vault_keys WHERE vault_id = ? ORDER BY version ASC`

	rows, err := querier.QueryContext(ctx, query, id)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list vault keys")
	}
	defer func() {
		_ = rows.Close()
	}()

	keys := make([]*vaultDomain.VaultKey, 0)
	for rows.Next() {
		key, err := scanVaultKey(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan vault key")
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "error iterating vault keys")
	}
	return keys, nil
}

// Update stores a new wrapping for an existing key version.
func (m *MySQLVaultKeyRepository) Update(ctx context.Context, key *vaultDomain.VaultKey) error {
	querier := database.GetTx(ctx, m.db)

	vaultID, err := key.VaultID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal vault id")
	}

	query := `UPDATE vault_keys SET master_key_id = ?, algorithm = ?, encrypted_key = ?, nonce = ?
			  WHERE vault_id = ? AND version = ?`

	result, err := querier.ExecContext(
		ctx,
		query,
		key.Wrapped.MasterKeyID,
		key.Wrapped.Algorithm,
		key.Wrapped.Ciphertext,
		key.Wrapped.Nonce,
		vaultID,
		key.Version,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update vault key")
	}
	return requireOneRow(result, vaultDomain.ErrVaultKeyNotFound)
}

func scanVaultKey(row rowScanner) (*vaultDomain.VaultKey, error) {
	var key vaultDomain.VaultKey
	var vaultID []byte
	var algorithm string

	err := row.Scan(
		&vaultID,
		&key.Version,
		&key.Wrapped.MasterKeyID,
		&algorithm,
		&key.Wrapped.Ciphertext,
		&key.Wrapped.Nonce,
		&key.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := key.VaultID.UnmarshalBinary(vaultID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal vault id")
	}

	key.Wrapped.Algorithm = cryptoDomain.Algorithm(algorithm)
	return &key, nil
}
