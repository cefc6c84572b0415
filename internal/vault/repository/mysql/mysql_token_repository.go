package mysql

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

// MySQLTokenRepository is the MySQL vault store.
type MySQLTokenRepository struct {
	db *sql.DB
}

// NewMySQLTokenRepository creates a new MySQLTokenRepository.
func NewMySQLTokenRepository(db *sql.DB) *MySQLTokenRepository {
	return &MySQLTokenRepository{db: db}
}

// InsertIfAbsent relies on the (vault_id, token) primary key. A duplicate key
// error means another record owns the token.
func (m *MySQLTokenRepository) InsertIfAbsent(
	ctx context.Context,
	record *vaultDomain.TokenRecord,
) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	vaultID, err := record.VaultID.MarshalBinary()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to marshal vault id")
	}

	var metadataJSON []byte
	if record.Metadata != nil {
		metadataJSON, err = json.Marshal(record.Metadata)
		if err != nil {
			return false, apperrors.Wrap(err, "failed to marshal metadata")
		}
	}

	query := `INSERT INTO tokens
			  (vault_id, token, ciphertext, integrity_tag, nonce, key_version, classification,
			   value_digest, mask, metadata, created_at, last_accessed_at, expires_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		vaultID,
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
		if database.IsUniqueViolation(err) {
			return false, nil
		}
		return false, apperrors.Wrap(err, "failed to insert token record")
	}
	return true, nil
}

// Get returns a record joined with its quarantine entry.
func (m *MySQLTokenRepository) Get(
	ctx context.Context,
	vaultID uuid.UUID,
	token string,
) (*vaultDomain.TokenRecord, error) {
	querier := database.GetTx(ctx, m.db)

	id, err := vaultID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal vault id")
	}

	query := `SELECT ` + tokenColumns + `
			  FROM tokens t
			  LEFT JOIN token_quarantine q ON q.vault_id = t.vault_id AND q.token = t.token
			  WHERE t.vault_id = ? AND t.token = ?`

	record, err := scanTokenRecord(querier.QueryRowContext(ctx, query, id, token))
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
func (m *MySQLTokenRepository) Delete(ctx context.Context, vaultID uuid.UUID, token string) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	id, err := vaultID.MarshalBinary()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to marshal vault id")
	}

	result, err := querier.ExecContext(ctx, `DELETE FROM tokens WHERE vault_id = ? AND token = ?`, id, token)
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
func (m *MySQLTokenRepository) TouchLastAccessed(
	ctx context.Context,
	vaultID uuid.UUID,
	token string,
	at time.Time,
) error {
	querier := database.GetTx(ctx, m.db)

	id, err := vaultID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal vault id")
	}

	query := `UPDATE tokens SET last_accessed_at = ? WHERE vault_id = ? AND token = ?`

	if _, err := querier.ExecContext(ctx, query, at, id, token); err != nil {
		return apperrors.Wrap(err, "failed to touch token record")
	}
	return nil
}

// Quarantine marks a record as failing its integrity check. The first entry wins.
func (m *MySQLTokenRepository) Quarantine(
	ctx context.Context,
	vaultID uuid.UUID,
	token, reason string,
	at time.Time,
) error {
	querier := database.GetTx(ctx, m.db)

	id, err := vaultID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal vault id")
	}

	query := `INSERT IGNORE INTO token_quarantine (vault_id, token, reason, quarantined_at) VALUES (?, ?, ?, ?)`

	if _, err := querier.ExecContext(ctx, query, id, token, reason, at); err != nil {
		return apperrors.Wrap(err, "failed to quarantine token record")
	}
	return nil
}

// ListByValueDigest returns the records of a vault holding the digested value.
func (m *MySQLTokenRepository) ListByValueDigest(
	ctx context.Context,
	vaultID uuid.UUID,
	digest []byte,
	offset, limit int,
) ([]*vaultDomain.TokenRecord, error) {
	querier := database.GetTx(ctx, m.db)

	id, err := vaultID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal vault id")
	}

	query := `SELECT ` + tokenColumns + `
			  FROM tokens t
			  LEFT JOIN token_quarantine q ON q.vault_id = t.vault_id AND q.token = t.token
			  WHERE t.vault_id = ? AND t.value_digest = ?
			  ORDER BY t.created_at ASC, t.token ASC
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, id, digest, limit, offset)
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
func (m *MySQLTokenRepository) DeleteExpired(ctx context.Context, before time.Time, dryRun bool) (int64, error) {
	if before.IsZero() {
		return 0, apperrors.New("before timestamp cannot be zero")
	}

	querier := database.GetTx(ctx, m.db)

	if dryRun {
		var count int64
		err := querier.QueryRowContext(ctx, `SELECT COUNT(*) FROM tokens WHERE expires_at < ?`, before).Scan(&count)
		if err != nil {
			return 0, apperrors.Wrap(err, "failed to count expired token records")
		}
		return count, nil
	}

	result, err := querier.ExecContext(ctx, `DELETE FROM tokens WHERE expires_at < ?`, before)
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
func (m *MySQLTokenRepository) CountByVault(ctx context.Context, vaultID uuid.UUID) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	id, err := vaultID.MarshalBinary()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to marshal vault id")
	}

	var count int64
	if err := querier.QueryRowContext(ctx, `SELECT COUNT(*) FROM tokens WHERE vault_id = ?`, id).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to count token records")
	}
	return count, nil
}

func scanTokenRecord(row rowScanner) (*vaultDomain.TokenRecord, error) {
	var record vaultDomain.TokenRecord
	var vaultID, metadataJSON []byte
	var classification string

	err := row.Scan(
		&vaultID,
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

	if err := record.VaultID.UnmarshalBinary(vaultID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal vault id")
	}

	record.Classification = vaultDomain.Classification(classification)
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &record.Metadata); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal metadata")
		}
	}
	return &record, nil
}
