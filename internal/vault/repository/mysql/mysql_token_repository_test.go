package mysql

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vaultDomain "github.com/allisson/token-rest/internal/vault/domain"
)

func newTestRecord(vaultID uuid.UUID) *vaultDomain.TokenRecord {
	return &vaultDomain.TokenRecord{
		VaultID:        vaultID,
		Token:          "abcdEFGH1234",
		Ciphertext:     []byte("ciphertext"),
		IntegrityTag:   []byte("0123456789abcdef"),
		Nonce:          []byte("nonce-123456"),
		KeyVersion:     1,
		Classification: vaultDomain.ClassificationGeneric,
		ValueDigest:    []byte("digest"),
		CreatedAt:      time.Now().UTC(),
	}
}

func TestMySQLTokenRepository_InsertIfAbsent(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_Inserted", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		record := newTestRecord(uuid.New())
		vaultID, _ := record.VaultID.MarshalBinary()
		mock.ExpectExec("INSERT INTO tokens").
			WithArgs(
				vaultID, record.Token, record.Ciphertext, record.IntegrityTag, record.Nonce,
				1, "generic", record.ValueDigest, "", sqlmock.AnyArg(), record.CreatedAt, nil, nil,
			).
			WillReturnResult(sqlmock.NewResult(0, 1))

		inserted, err := NewMySQLTokenRepository(db).InsertIfAbsent(ctx, record)
		require.NoError(t, err)
		assert.True(t, inserted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Success_DuplicateKeyIsCollision", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectExec("INSERT INTO tokens").WillReturnError(&mysql.MySQLError{Number: 1062})

		inserted, err := NewMySQLTokenRepository(db).InsertIfAbsent(ctx, newTestRecord(uuid.New()))
		require.NoError(t, err)
		assert.False(t, inserted)
	})

	t.Run("Error_OtherDriverError", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectExec("INSERT INTO tokens").WillReturnError(&mysql.MySQLError{Number: 1213})

		_, err = NewMySQLTokenRepository(db).InsertIfAbsent(ctx, newTestRecord(uuid.New()))
		assert.Error(t, err)
	})
}

func TestMySQLTokenRepository_Get(t *testing.T) {
	ctx := context.Background()
	columns := []string{
		"vault_id", "token", "ciphertext", "integrity_tag", "nonce", "key_version",
		"classification", "value_digest", "mask", "metadata", "created_at", "last_accessed_at", "expires_at",
		"quarantined_at",
	}

	t.Run("Success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		vaultID := uuid.New()
		idBytes, _ := vaultID.MarshalBinary()
		expiresAt := time.Now().UTC().Add(time.Hour)

		mock.ExpectQuery("LEFT JOIN token_quarantine").
			WithArgs(idBytes, "tok").
			WillReturnRows(sqlmock.NewRows(columns).AddRow(
				idBytes, "tok", []byte("ct"), []byte("tag"), []byte("nonce"), 1,
				"generic", []byte("digest"), "", nil, time.Now().UTC(), nil, expiresAt, nil,
			))

		record, err := NewMySQLTokenRepository(db).Get(ctx, vaultID, "tok")
		require.NoError(t, err)
		assert.Equal(t, vaultID, record.VaultID)
		assert.False(t, record.IsQuarantined())
		require.NotNil(t, record.ExpiresAt)
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectQuery("FROM tokens").WillReturnRows(sqlmock.NewRows(columns))

		_, err = NewMySQLTokenRepository(db).Get(ctx, uuid.New(), "tok")
		assert.ErrorIs(t, err, vaultDomain.ErrTokenNotFound)
	})
}

func TestMySQLTokenRepository_Quarantine(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec("INSERT IGNORE INTO token_quarantine").WillReturnResult(sqlmock.NewResult(0, 1))

	err = NewMySQLTokenRepository(db).Quarantine(context.Background(), uuid.New(), "tok", "tag mismatch", time.Now())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLTokenRepository_Delete(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		expected bool
	}{
		{"Success_Existing", 1, true},
		{"Success_Missing", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer func() { _ = db.Close() }()

			vaultID := uuid.New()
			id, err := vaultID.MarshalBinary()
			require.NoError(t, err)
			// one statement: the quarantine entry cascades
			mock.ExpectExec("DELETE FROM tokens WHERE vault_id").WithArgs(id, "tok").
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			deleted, err := NewMySQLTokenRepository(db).Delete(context.Background(), vaultID, "tok")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, deleted)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestMySQLTokenRepository_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	before := time.Now().UTC()

	t.Run("Success_DryRun", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM tokens WHERE expires_at").WithArgs(before).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

		count, err := NewMySQLTokenRepository(db).DeleteExpired(ctx, before, true)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Success_Delete", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectExec("DELETE FROM tokens WHERE expires_at").WithArgs(before).
			WillReturnResult(sqlmock.NewResult(0, 3))

		count, err := NewMySQLTokenRepository(db).DeleteExpired(ctx, before, false)
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMySQLVaultRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec("INSERT INTO vaults").WillReturnError(&mysql.MySQLError{Number: 1062})

	err = NewMySQLVaultRepository(db).Create(context.Background(), &vaultDomain.Vault{ID: uuid.New(), Name: "cards"})
	assert.ErrorIs(t, err, vaultDomain.ErrVaultAlreadyExists)
}
