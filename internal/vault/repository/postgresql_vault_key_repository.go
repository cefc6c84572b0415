package repository

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

// PostgreSQLVaultKeyRepository implements vault key persistence for PostgreSQL.
type PostgreSQLVaultKeyRepository struct {
	db *sql.DB
}

// NewPostgreSQLVaultKeyRepository creates a new PostgreSQLVaultKeyRepository.
func NewPostgreSQLVaultKeyRepository(db *sql.DB) *PostgreSQLVaultKeyRepository {
	return &PostgreSQLVaultKeyRepository{db: db}
}

// Create inserts a new key version.
func (p *PostgreSQLVaultKeyRepository) Create(ctx context.Context, key *vaultDomain.VaultKey) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO vault_keys (vault_id, version, master_key_id, algorithm, encrypted_key, nonce, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := querier.ExecContext(
		ctx,
		query,
		key.VaultID,
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
func (p *PostgreSQLVaultKeyRepository) GetKey(
	ctx context.Context,
	vaultID uuid.UUID,
	version int,
) (*vaultDomain.VaultKey, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT vault_id, version, master_key_id, algorithm, encrypted_key, nonce, created_at
			  FROM vault_keys WHERE vault_id = $1 AND version = $2`

	key, err := scanVaultKey(querier.QueryRowContext(ctx, query, vaultID, version))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, vaultDomain.ErrVaultKeyNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get vault key")
	}
	return key, nil
}

// ListByVault returns every key version of a vault, oldest first.
func (p *PostgreSQLVaultKeyRepository) ListByVault(
	ctx context.Context,
	vaultID uuid.UUID,
) ([]*vaultDomain.VaultKey, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT vault_id, version, master_key_id, algorithm, encrypted_key, nonce, created_at
			  FROM vault_keys WHERE vault_id = $1 ORDER BY version ASC`

	rows, err := querier.QueryContext(ctx, query, vaultID)
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
func (p *PostgreSQLVaultKeyRepository) Update(ctx context.Context, key *vaultDomain.VaultKey) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE vault_keys SET master_key_id = $1, algorithm = $2, encrypted_key = $3, nonce = $4
			  WHERE vault_id = $5 AND version = $6`

	result, err := querier.ExecContext(
		ctx,
		query,
		key.Wrapped.MasterKeyID,
		key.Wrapped.Algorithm,
		key.Wrapped.Ciphertext,
		key.Wrapped.Nonce,
		key.VaultID,
		key.Version,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update vault key")
	}
	return requireOneRow(result, vaultDomain.ErrVaultKeyNotFound)
}

func scanVaultKey(row rowScanner) (*vaultDomain.VaultKey, error) {
	var key vaultDomain.VaultKey
	var algorithm string

	err := row.Scan(
		&key.VaultID,
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

	key.Wrapped.Algorithm = cryptoDomain.Algorithm(algorithm)
	return &key, nil
}
