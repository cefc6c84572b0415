package mysql

import (
	"context"
	"database/sql"
	"errors"

	authDomain "github.com/allisson/token-rest/internal/auth/domain"
	"github.com/allisson/token-rest/internal/database"
	apperrors "github.com/allisson/token-rest/internal/errors"
)

// MySQLTokenRepository implements bearer token persistence for MySQL.
type MySQLTokenRepository struct {
	db *sql.DB
}

// NewMySQLTokenRepository creates a new MySQLTokenRepository.
func NewMySQLTokenRepository(db *sql.DB) *MySQLTokenRepository {
	return &MySQLTokenRepository{db: db}
}

func (m *MySQLTokenRepository) Create(ctx context.Context, token *authDomain.Token) error {
	querier := database.GetTx(ctx, m.db)

	id, err := token.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal token id")
	}
	clientID, err := token.ClientID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal client id")
	}

	query := `INSERT INTO auth_tokens (id, token_hash, client_id, expires_at, revoked_at, created_at)
			  VALUES (?, ?, ?, ?, ?, ?)`

	if _, err := querier.ExecContext(
		ctx, query, id, token.TokenHash, clientID, token.ExpiresAt, token.RevokedAt, token.CreatedAt,
	); err != nil {
		return apperrors.Wrap(err, "failed to create auth token")
	}
	return nil
}

func (m *MySQLTokenRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*authDomain.Token, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, token_hash, client_id, expires_at, revoked_at, created_at
			  FROM auth_tokens WHERE token_hash = ?`

	var token authDomain.Token
	var id, clientID []byte
	err := querier.QueryRowContext(ctx, query, tokenHash).Scan(
		&id, &token.TokenHash, &clientID, &token.ExpiresAt, &token.RevokedAt, &token.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, authDomain.ErrTokenNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get auth token")
	}
	if err := token.ID.UnmarshalBinary(id); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal token id")
	}
	if err := token.ClientID.UnmarshalBinary(clientID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal client id")
	}
	return &token, nil
}
