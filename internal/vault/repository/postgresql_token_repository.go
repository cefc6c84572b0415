package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/token-rest/internal/database"
	apperrors "github.com/allisson/token-rest/internal/errors"
	vaultDomain "github.com/allisson/token-rest/internal/vault/domain"
)

const tokenColumns = `t.vault_id, t.token, t.ciphertext, t.integrity_tag, t.nonce, t.key_version,
	t.classification, t.value_digest, t.mask, t.metadata, t.created_at, t.last_accessed_at, t.expires_at,
	q.quarantined_at`

// PostgreSQLTokenRepository is the PostgreSQL vault store.
type PostgreSQLTokenRepository struct {
	db *sql.DB
}

// NewPostgreSQLTokenRepository creates a new PostgreSQLTokenRepository.
func NewPostgreSQLTokenRepository(db *sql.DB) *PostgreSQLTokenRepository {
	return &PostgreSQLTokenRepository{db: db}
}

// InsertIfAbsent relies on the (vault_id, token) primary key; ON CONFLICT DO
// NOTHING leaves the existing row untouched and affects zero rows.
func (p *PostgreSQLTokenRepository) InsertIfAbsent(
	ctx context.Context,
	record *vaultDomain.TokenRecord,
) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	metadataJSON, err := marshalMetadata(record.Metadata)
	if err != nil {
		return false, err
	}

	query := `INSERT INTO tokens
			  (vault_id, token, ciphertext, integrity_tag, nonce, key_version, classification,
			   value_digest, mask, metadata, created_at, last_accessed_at, expires_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			  ON CONFLICT (vault_id, token) DO NOTHING`

	result, err := querier.ExecContext(
		ctx,
		query,
		record.VaultID,
		record.Token,
		record.Ciphertext,
		record.IntegrityTag,
		record.Nonce,
		record.KeyVersion,
		record.Classification,
		record.ValueDigest,
		record.Mask,
		metadataJSON,
		record.CreatedAt,
		record.LastAccessedAt,
		record.ExpiresAt,
	)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to insert token record")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to get rows affected")
	}
	return rowsAffected == 1, nil
}

// Get returns a record joined with its quarantine entry.
func (p *PostgreSQLTokenRepository) Get(
	ctx context.Context,
	vaultID uuid.UUID,
	token string,
) (*vaultDomain.TokenRecord, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + tokenColumns + `
			  FROM tokens t
			  LEFT JOIN token_quarantine q ON q.vault_id = t.vault_id AND q.token = t.token
			  WHERE t.vault_id = $1 AND t.token = $2`

	record, err := scanTokenRecord(querier.QueryRowContext(ctx, query, vaultID, token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, vaultDomain.ErrTokenNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get token record")
	}
	return record, nil
}

// Delete removes a record. Its quarantine entry goes with it through the
// cascading foreign key, so a token reissued later starts clean.
func (p *PostgreSQLTokenRepository) Delete(ctx context.Context, vaultID uuid.UUID, token string) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM tokens WHERE vault_id = $1 AND token = $2`, vaultID, token)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to delete token record")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to get rows affected")
	}
	return rowsAffected > 0, nil
}

// TouchLastAccessed sets the last access time of a record.
func (p *PostgreSQLTokenRepository) TouchLastAccessed(
	ctx context.Context,
	vaultID uuid.UUID,
	token string,
	at time.Time,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE tokens SET last_accessed_at = $1 WHERE vault_id = $2 AND token = $3`

	if _, err := querier.ExecContext(ctx, query, at, vaultID, token); err != nil {
		return apperrors.Wrap(err, "failed to touch token record")
	}
	return nil
}

// Quarantine marks a record as failing its integrity check. The first entry wins.
func (p *PostgreSQLTokenRepository) Quarantine(
	ctx context.Context,
	vaultID uuid.UUID,
	token, reason string,
	at time.Time,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO token_quarantine (vault_id, token, reason, quarantined_at)
			  VALUES ($1, $2, $3, $4)
			  ON CONFLICT (vault_id, token) DO NOTHING`

	if _, err := querier.ExecContext(ctx, query, vaultID, token, reason, at); err != nil {
		return apperrors.Wrap(err, "failed to quarantine token record")
	}
	return nil
}

// ListByValueDigest returns the records of a vault holding the digested value.
func (p *PostgreSQLTokenRepository) ListByValueDigest(
	ctx context.Context,
	vaultID uuid.UUID,
	digest []byte,
	offset, limit int,
) ([]*vaultDomain.TokenRecord, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + tokenColumns + `
			  FROM tokens t
			  LEFT JOIN token_quarantine q ON q.vault_id = t.vault_id AND q.token = t.token
			  WHERE t.vault_id = $1 AND t.value_digest = $2
			  ORDER BY t.created_at ASC, t.token ASC
			  LIMIT $3 OFFSET $4`

	rows, err := querier.QueryContext(ctx, query, vaultID, digest, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list token records")
	}
	defer func() {
		_ = rows.Close()
	}()

	records := make([]*vaultDomain.TokenRecord, 0)
	for rows.Next() {
		record, err := scanTokenRecord(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan token record")
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "error iterating token records")
	}
	return records, nil
}

// DeleteExpired deletes (or with dryRun counts) records that expired before the
// given time. Quarantine entries of deleted records cascade.
func (p *PostgreSQLTokenRepository) DeleteExpired(
	ctx context.Context,
	before time.Time,
	dryRun bool,
) (int64, error) {
	if before.IsZero() {
		return 0, apperrors.New("before timestamp cannot be zero")
	}

	querier := database.GetTx(ctx, p.db)

	if dryRun {
		var count int64
		err := querier.QueryRowContext(ctx, `SELECT COUNT(*) FROM tokens WHERE expires_at < $1`, before).
			Scan(&count)
		if err != nil {
			return 0, apperrors.Wrap(err, "failed to count expired token records")
		}
		return count, nil
	}

	result, err := querier.ExecContext(ctx, `DELETE FROM tokens WHERE expires_at < $1`, before)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete expired token records")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to get rows affected")
	}
	return rowsAffected, nil
}

// CountByVault counts the records of a vault.
func (p *PostgreSQLTokenRepository) CountByVault(ctx context.Context, vaultID uuid.UUID) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	var count int64
	err := querier.QueryRowContext(ctx, `SELECT COUNT(*) FROM tokens WHERE vault_id = $1`, vaultID).Scan(&count)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count token records")
	}
	return count, nil
}

func scanTokenRecord(row rowScanner) (*vaultDomain.TokenRecord, error) {
	var record vaultDomain.TokenRecord
	var classification string
	var metadataJSON []byte

	err := row.Scan(
		&record.VaultID,
		&record.Token,
		&record.Ciphertext,
		&record.IntegrityTag,
		&record.Nonce,
		&record.KeyVersion,
		&classification,
		&record.ValueDigest,
		&record.Mask,
		&metadataJSON,
		&record.CreatedAt,
		&record.LastAccessedAt,
		&record.ExpiresAt,
		&record.QuarantinedAt,
	)
	if err != nil {
		return nil, err
	}

	record.Classification = vaultDomain.Classification(classification)
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &record.Metadata); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal metadata")
		}
	}
	return &record, nil
}

func marshalMetadata(metadata map[string]any) ([]byte, error) {
	if metadata == nil {
		return nil, nil
	}
	b, err := json.Marshal(metadata)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal metadata")
	}
	return b, nil
}
