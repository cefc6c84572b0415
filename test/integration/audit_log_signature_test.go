package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/token-rest/internal/app"
	authDomain "github.com/allisson/token-rest/internal/auth/domain"
	vaultDomain "github.com/allisson/token-rest/internal/vault/domain"
)

func TestIntegration_AuditLogSignatures(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	for _, d := range drivers {
		t.Run(d.name, func(t *testing.T) {
			tc := setupIntegrationTest(t, d.dbDriver)
			defer teardownIntegrationTest(t, tc)

			ctx := context.Background()
			from := time.Now().UTC().Add(-time.Hour)
			to := time.Now().UTC().Add(time.Hour)

			auditLogUseCase, err := tc.container.AuditLogUseCase()
			require.NoError(t, err)
			// entries signed under a rotated key only verify with that key loaded
			verifier := auditLogUseCase
			var rotated *app.Container
			defer func() {
				if rotated != nil {
					_ = rotated.Shutdown(ctx)
				}
			}()

			clientID := uuid.Must(uuid.NewV7())
			entry := &authDomain.AuditLog{
				RequestID:  "req-1",
				ClientID:   clientID,
				Capability: authDomain.TokenizeCapability,
				Path:       "/v1/vaults/cards/tokens",
				Outcome:    authDomain.OutcomeAllowed,
				Metadata:   map[string]any{"status": 201},
			}

			t.Run("SignedOnCreate", func(t *testing.T) {
				require.NoError(t, auditLogUseCase.Create(ctx, entry))
				require.NoError(t, auditLogUseCase.RecordAccess(ctx, vaultDomain.AccessEvent{
					VaultName: "cards",
					Token:     "4000001234567899",
					Requester: vaultDomain.RequesterContext{ClientID: clientID, RequestID: "req-2"},
					Outcome:   vaultDomain.OutcomeDenied,
					Reason:    "policy_denied",
					At:        time.Now(),
				}))

				report, err := auditLogUseCase.Verify(ctx, &from, &to)
				require.NoError(t, err)
				// the root client's token issuance is not audited; only the two entries above exist
				assert.Equal(t, 2, report.Total)
				assert.Equal(t, 2, report.Valid)
				assert.Empty(t, report.Invalid)
			})

			t.Run("SurvivesMasterKeyRotation", func(t *testing.T) {
				chain, err := tc.container.MasterKeyChain()
				require.NoError(t, err)
				oldKey, err := chain.Active()
				require.NoError(t, err)

				cfg := *tc.container.Config()
				cfg.MasterKeys = cfg.MasterKeys + "," + randomMasterKey("integration-key-2")
				cfg.ActiveMasterKeyID = "integration-key-2"
				rotated = app.NewContainer(&cfg)

				rotatedUseCase, err := rotated.AuditLogUseCase()
				require.NoError(t, err)
				require.NoError(t, rotatedUseCase.Create(ctx, &authDomain.AuditLog{
					RequestID:  "req-3",
					ClientID:   clientID,
					Capability: authDomain.RotateCapability,
					Path:       "/v1/vaults/cards/rotate",
					Outcome:    authDomain.OutcomeAllowed,
				}))

				report, err := rotatedUseCase.Verify(ctx, &from, &to)
				require.NoError(t, err)
				assert.Equal(t, 3, report.Total)
				assert.Equal(t, 3, report.Valid)

				logs, err := rotatedUseCase.List(ctx, 0, 10, &from, &to)
				require.NoError(t, err)
				keyIDs := map[string]int{}
				for _, l := range logs {
					require.NotNil(t, l.MasterKeyID)
					keyIDs[*l.MasterKeyID]++
				}
				assert.Equal(t, 2, keyIDs[oldKey.ID])
				assert.Equal(t, 1, keyIDs["integration-key-2"])
				verifier = rotatedUseCase
			})

			t.Run("DetectsTampering", func(t *testing.T) {
				var idValue any = entry.ID
				query := "UPDATE audit_logs SET path = '/v1/vaults/other/tokens' WHERE id = $1"
				if tc.dbDriver == "mysql" {
					raw, err := entry.ID.MarshalBinary()
					require.NoError(t, err)
					idValue = raw
					query = "UPDATE audit_logs SET path = '/v1/vaults/other/tokens' WHERE id = ?"
				}
				result, err := tc.db.ExecContext(ctx, query, idValue)
				require.NoError(t, err)
				affected, err := result.RowsAffected()
				require.NoError(t, err)
				require.Equal(t, int64(1), affected)

				report, err := verifier.Verify(ctx, &from, &to)
				require.NoError(t, err)
				assert.Equal(t, []uuid.UUID{entry.ID}, report.Invalid)
				assert.Equal(t, report.Total-1, report.Valid)
			})
		})
	}
}
