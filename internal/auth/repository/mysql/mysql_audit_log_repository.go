package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	authDomain "github.com/allisson/token-rest/internal/auth/domain"
	"github.com/allisson/token-rest/internal/database"
	apperrors "github.com/allisson/token-rest/internal/errors"
)

// MySQLAuditLogRepository implements audit log persistence for MySQL.
type MySQLAuditLogRepository struct {
	db *sql.DB
}

// NewMySQLAuditLogRepository creates a new MySQLAuditLogRepository.
func NewMySQLAuditLogRepository(db *sql.DB) *MySQLAuditLogRepository {
	return &MySQLAuditLogRepository{db: db}
}

func (m *MySQLAuditLogRepository) Create(ctx context.Context, auditLog *authDomain.AuditLog) error {
	querier := database.GetTx(ctx, m.db)

	id, err := auditLog.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal audit log id")
	}
	clientID, err := auditLog.ClientID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal client id")
	}

	var metadata []byte
	if auditLog.Metadata != nil {
		if metadata, err = json.Marshal(auditLog.Metadata); err != nil {
			return apperrors.Wrap(err, "failed to marshal audit log metadata")
		}
	}

	query := `INSERT INTO audit_logs (id, request_id, client_id, capability, path, outcome, reason,
			  metadata, signature, master_key_id, is_signed, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	if _, err := querier.ExecContext(
		ctx,
		query,
		id,
		auditLog.RequestID,
		clientID,
		auditLog.Capability,
		auditLog.Path,
		auditLog.Outcome,
		auditLog.Reason,
		metadata,
		auditLog.Signature,
		auditLog.MasterKeyID,
		auditLog.IsSigned,
		auditLog.CreatedAt,
	); err != nil {
		return apperrors.Wrap(err, "failed to create audit log")
	}
	return nil
}

// List returns entries newest first. Both bounds are inclusive.
func (m *MySQLAuditLogRepository) List(
	ctx context.Context,
	offset, limit int,
	createdAtFrom, createdAtTo *time.Time,
) ([]*authDomain.AuditLog, error) {
	querier := database.GetTx(ctx, m.db)

	var conditions []string
	var args []any
	if createdAtFrom != nil {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, *createdAtFrom)
	}
	if createdAtTo != nil {
		conditions = append(conditions, "created_at <= ?")
		args = append(args, *createdAtTo)
	}

	query := `SELECT id, request_id, client_id, capability, path, outcome, reason,
			  metadata, signature, master_key_id, is_signed, created_at
			  FROM audit_logs`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit logs")
	}
	defer func() {
		_ = rows.Close()
	}()

	auditLogs := make([]*authDomain.AuditLog, 0)
	for rows.Next() {
		var auditLog authDomain.AuditLog
		var id, clientID, metadata []byte
		if err := rows.Scan(
			&id,
			&auditLog.RequestID,
			&clientID,
			&auditLog.Capability,
			&auditLog.Path,
			&auditLog.Outcome,
			&auditLog.Reason,
			&metadata,
			&auditLog.Signature,
			&auditLog.MasterKeyID,
			&auditLog.IsSigned,
			&auditLog.CreatedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan audit log")
		}
		if err := auditLog.ID.UnmarshalBinary(id); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal audit log id")
		}
		if err := auditLog.ClientID.UnmarshalBinary(clientID); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal client id")
		}
		if metadata != nil {
			if err := json.Unmarshal(metadata, &auditLog.Metadata); err != nil {
				return nil, apperrors.Wrap(err, "failed to unmarshal audit log metadata")
			}
		}
		auditLogs = append(auditLogs, &auditLog)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate audit logs")
	}
	return auditLogs, nil
}
