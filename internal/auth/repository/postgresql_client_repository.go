// Package repository persists clients, bearer tokens and audit logs.
// PostgreSQL lives here; MySQL lives in the mysql subpackage.
package repository

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

// PostgreSQLClientRepository implements client persistence for PostgreSQL.
// Policies are stored as JSONB.
type PostgreSQLClientRepository struct {
	db *sql.DB
}

// NewPostgreSQLClientRepository creates a new PostgreSQLClientRepository.
func NewPostgreSQLClientRepository(db *sql.DB) *PostgreSQLClientRepository {
	return &PostgreSQLClientRepository{db: db}
}

func (p *PostgreSQLClientRepository) Create(ctx context.Context, client *authDomain.Client) error {
	querier := database.GetTx(ctx, p.db)

	policies, err := json.Marshal(client.Policies)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal client policies")
	}

	query := `INSERT INTO clients (id, secret, name, is_active, policies, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6)`

	if _, err := querier.ExecContext(
		ctx, query, client.ID, client.Secret, client.Name, client.IsActive, policies, client.CreatedAt,
	); err != nil {
		return apperrors.Wrap(err, "failed to create client")
	}
	return nil
}

func (p *PostgreSQLClientRepository) Update(ctx context.Context, client *authDomain.Client) error {
	querier := database.GetTx(ctx, p.db)

	policies, err := json.Marshal(client.Policies)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal client policies")
	}

	query := `UPDATE clients SET name = $1, is_active = $2, policies = $3 WHERE id = $4`

	result, err := querier.ExecContext(ctx, query, client.Name, client.IsActive, policies, client.ID)
	if err != nil {
		return apperrors.Wrap(err, "failed to update client")
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return authDomain.ErrClientNotFound
	}
	return nil
}

func (p *PostgreSQLClientRepository) Get(ctx context.Context, clientID uuid.UUID) (*authDomain.Client, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, secret, name, is_active, policies, created_at FROM clients WHERE id = $1`

	client, err := scanClient(querier.QueryRowContext(ctx, query, clientID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, authDomain.ErrClientNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get client")
	}
	return client, nil
}

func (p *PostgreSQLClientRepository) List(ctx context.Context, offset, limit int) ([]*authDomain.Client, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, secret, name, is_active, policies, created_at
			  FROM clients
			  ORDER BY id DESC
			  LIMIT $1 OFFSET $2`

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
	var policies []byte
	if err := row.Scan(
		&client.ID, &client.Secret, &client.Name, &client.IsActive, &policies, &client.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(policies, &client.Policies); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal client policies")
	}
	return &client, nil
}
