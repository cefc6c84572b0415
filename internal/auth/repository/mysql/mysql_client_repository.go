// Package mysql persists clients, bearer tokens and audit logs in MySQL. UUIDs
// are stored as BINARY(16).
package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	authDomain "github.com/allisson/token-rest/internal/auth/domain"
	"github.com/allisson/token-rest/internal/database"
	apperrors "github.com/allisson/token-rest/internal/errors"
)

type rowScanner interface {
	Scan(dest ...any) error
}

// MySQLClientRepository implements client persistence for MySQL.
type MySQLClientRepository struct {
	db *sql.DB
}

// NewMySQLClientRepository creates a new MySQLClientRepository.
func NewMySQLClientRepository(db *sql.DB) *MySQLClientRepository {
	return &MySQLClientRepository{db: db}
}

func (m *MySQLClientRepository) Create(ctx context.Context, client *authDomain.Client) error {
	querier := database.GetTx(ctx, m.db)

	id, err := client.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal client id")
	}
	policies, err := json.Marshal(client.Policies)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal client policies")
	}

	query := `INSERT INTO clients (id, secret, name, is_active, policies, created_at)
			  VALUES (?, ?, ?, ?, ?, ?)`

	if _, err := querier.ExecContext(
		ctx, query, id, client.Secret, client.Name, client.IsActive, policies, client.CreatedAt,
	); err != nil {
		return apperrors.Wrap(err, "failed to create client")
	}
	return nil
}

func (m *MySQLClientRepository) Update(ctx context.Context, client *authDomain.Client) error {
	querier := database.GetTx(ctx, m.db)

	id, err := client.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal client id")
	}
	policies, err := json.Marshal(client.Policies)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal client policies")
	}

	// MySQL reports zero affected rows for unchanged values, so existence is
	// checked by the caller through Get.
	query := `UPDATE clients SET name = ?, is_active = ?, policies = ? WHERE id = ?`

	if _, err := querier.ExecContext(ctx, query, client.Name, client.IsActive, policies, id); err != nil {
		return apperrors.Wrap(err, "failed to update client")
	}
	return nil
}

func (m *MySQLClientRepository) Get(ctx context.Context, clientID uuid.UUID) (*authDomain.Client, error) {
	querier := database.GetTx(ctx, m.db)

	id, err := clientID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal client id")
	}

	query := `SELECT id, secret, name, is_active, policies, created_at FROM clients WHERE id = ?`

	client, err := scanClient(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, authDomain.ErrClientNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get client")
	}
	return client, nil
}

func (m *MySQLClientRepository) List(ctx context.Context, offset, limit int) ([]*authDomain.Client, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, secret, name, is_active, policies, created_at
			  FROM clients
			  ORDER BY id DESC
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list clients")
	}
	defer func() {
		_ = rows.Close()
	}()

	clients := make([]*authDomain.Client, 0)
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan client")
		}
		clients = append(clients, client)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate clients")
	}
	return clients, nil
}

func scanClient(row rowScanner) (*authDomain.Client, error) {
	var client authDomain.Client
	var id, policies []byte
	if err := row.Scan(&id, &client.Secret, &client.Name, &client.IsActive, &policies, &client.CreatedAt); err != nil {
		return nil, err
	}
	if err := client.ID.UnmarshalBinary(id); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal client id")
	}
	if err := json.Unmarshal(policies, &client.Policies); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal client policies")
	}
	return &client, nil
}
