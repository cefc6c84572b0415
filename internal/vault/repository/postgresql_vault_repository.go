// Package repository implements the vault store and vault key persistence.
// PostgreSQL lives here; MySQL and the in-memory store live in subpackages.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/token-rest/internal/crypto/domain"
	"github.com/allisson/token-rest/internal/database"
	apperrors "github.com/allisson/token-rest/internal/errors"
	vaultDomain "github.com/allisson/token-rest/internal/vault/domain"
)

const vaultColumns = `id, name, classification, format_type, token_length, algorithm, active_key_version,
	token_ttl_seconds, mac_master_key_id, mac_algorithm, mac_encrypted_key, mac_nonce, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// PostgreSQLVaultRepository implements vault persistence for PostgreSQL.
type PostgreSQLVaultRepository struct {
	db *sql.DB
}

// NewPostgreSQLVaultRepository creates a new PostgreSQLVaultRepository.
func NewPostgreSQLVaultRepository(db *sql.DB) *PostgreSQLVaultRepository {
	return &PostgreSQLVaultRepository{db: db}
}

// Create inserts a vault. A duplicate name returns ErrVaultAlreadyExists.
func (p *PostgreSQLVaultRepository) Create(ctx context.Context, vault *vaultDomain.Vault) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO vaults (` + vaultColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := querier.ExecContext(
		ctx,
		query,
		vault.ID,
		vault.Name,
		vault.Classification,
		vault.Format,
		vault.TokenLength,
		vault.Algorithm,
		vault.ActiveKeyVersion,
		int64(vault.TokenTTL/time.Second),
		vault.MacKey.MasterKeyID,
		vault.MacKey.Algorithm,
		vault.MacKey.Ciphertext,
		vault.MacKey.Nonce,
		vault.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return vaultDomain.ErrVaultAlreadyExists
		}
		return apperrors.Wrap(err, "failed to create vault")
	}
	return nil
}

// GetByName returns the vault with the given name.
func (p *PostgreSQLVaultRepository) GetByName(ctx context.Context, name string) (*vaultDomain.Vault, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + vaultColumns + ` FROM vaults WHERE name = $1`

	vault, err := scanVault(querier.QueryRowContext(ctx, query, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, vaultDomain.ErrVaultNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get vault by name")
	}
	return vault, nil
}

// GetByID returns the vault with the given id.
func (p *PostgreSQLVaultRepository) GetByID(ctx context.Context, id uuid.UUID) (*vaultDomain.Vault, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + vaultColumns + ` FROM vaults WHERE id = $1`

	vault, err := scanVault(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, vaultDomain.ErrVaultNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get vault by id")
	}
	return vault, nil
}

// List returns vaults ordered by name.
func (p *PostgreSQLVaultRepository) List(ctx context.Context, offset, limit int) ([]*vaultDomain.Vault, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + vaultColumns + ` FROM vaults ORDER BY name ASC LIMIT $1 OFFSET $2`

	rows, err := querier.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list vaults")
	}
	defer func() {
		_ = rows.Close()
	}()

	vaults := make([]*vaultDomain.Vault, 0)
	for rows.Next() {
		vault, err := scanVault(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan vault")
		}
		vaults = append(vaults, vault)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "error iterating vaults")
	}
	return vaults, nil
}

// UpdateActiveKeyVersion switches the key version used for new records.
func (p *PostgreSQLVaultRepository) UpdateActiveKeyVersion(
	ctx context.Context,
	vaultID uuid.UUID,
	version int,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE vaults SET active_key_version = $1 WHERE id = $2`

	result, err := querier.ExecContext(ctx, query, version, vaultID)
	if err != nil {
		return apperrors.Wrap(err, "failed to update active key version")
	}
	return requireOneRow(result, vaultDomain.ErrVaultNotFound)
}

// UpdateMacKey replaces the wrapping of the vault MAC key.
func (p *PostgreSQLVaultRepository) UpdateMacKey(
	ctx context.Context,
	vaultID uuid.UUID,
	macKey cryptoDomain.WrappedKey,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE vaults SET mac_master_key_id = $1, mac_algorithm = $2, mac_encrypted_key = $3, mac_nonce = $4
			  WHERE id = $5`

	result, err := querier.ExecContext(
		ctx,
		query,
		macKey.MasterKeyID,
		macKey.Algorithm,
		macKey.Ciphertext,
		macKey.Nonce,
		vaultID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update vault mac key")
	}
	return requireOneRow(result, vaultDomain.ErrVaultNotFound)
}

func scanVault(row rowScanner) (*vaultDomain.Vault, error) {
	var vault vaultDomain.Vault
	var classification, format, algorithm, macAlgorithm string
	var ttlSeconds int64

	err := row.Scan(
		&vault.ID,
		&vault.Name,
		&classification,
		&format,
		&vault.TokenLength,
		&algorithm,
		&vault.ActiveKeyVersion,
		&ttlSeconds,
		&vault.MacKey.MasterKeyID,
		&macAlgorithm,
		&vault.MacKey.Ciphertext,
		&vault.MacKey.Nonce,
		&vault.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	vault.Classification = vaultDomain.Classification(classification)
	vault.Format = vaultDomain.FormatType(format)
	vault.Algorithm = cryptoDomain.Algorithm(algorithm)
	vault.MacKey.Algorithm = cryptoDomain.Algorithm(macAlgorithm)
	vault.TokenTTL = time.Duration(ttlSeconds) * time.Second
	return &vault, nil
}

func requireOneRow(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get rows affected")
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}
