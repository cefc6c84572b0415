package governance

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vaultDomain "github.com/allisson/token-rest/internal/vault/domain"
)

const testRules = `
default: deny
rules:
  - name: fraud-team-never
    clients: ["fraud-*"]
    classifications: ["PAN"]
    effect: deny
  - name: billing-cards
    vaults: ["cards", "cards-*"]
    classifications: ["PAN"]
    clients: ["billing-*"]
    effect: allow
    scope: billing
  - name: support-generic
    classifications: ["generic"]
    clients: ["support"]
    effect: allow
`

func TestRuleEvaluator_Evaluate(t *testing.T) {
	rules, err := ParseRuleSet([]byte(testRules))
	require.NoError(t, err)
	e := NewRuleEvaluator(rules)

	tests := []struct {
		name           string
		vault          string
		classification vaultDomain.Classification
		client         string
		allow          bool
		scope          string
		reason         string
	}{
		{"billing on cards", "cards", vaultDomain.ClassificationPAN, "billing-api", true, "billing", ""},
		{"billing on cards-eu", "cards-eu", vaultDomain.ClassificationPAN, "billing-worker", true, "billing", ""},
		{"billing on other vault", "ssn", vaultDomain.ClassificationPAN, "billing-api", false, "", ReasonNoMatchingRule},
		{"fraud denied first", "cards", vaultDomain.ClassificationPAN, "fraud-bot", false, "", ReasonPolicyDenied},
		{"support generic", "notes", vaultDomain.ClassificationGeneric, "support", true, "", ""},
		{"support on PAN", "cards", vaultDomain.ClassificationPAN, "support", false, "", ReasonNoMatchingRule},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newTestRequest()
			req.VaultName = tt.vault
			req.Classification = tt.classification
			req.Requester.ClientName = tt.client

			decision, err := e.Evaluate(context.Background(), req)
			require.NoError(t, err)
			assert.Equal(t, tt.allow, decision.Allow)
			assert.Equal(t, tt.scope, decision.Scope)
			assert.Equal(t, tt.reason, decision.Reason)
		})
	}
}

func TestParseRuleSet(t *testing.T) {
	t.Run("Success_DefaultsToDeny", func(t *testing.T) {
		rs, err := ParseRuleSet([]byte("rules: []"))
		require.NoError(t, err)
		assert.Equal(t, EffectDeny, rs.Default)
	})

	t.Run("Success_DefaultAllow", func(t *testing.T) {
		rs, err := ParseRuleSet([]byte("default: allow"))
		require.NoError(t, err)

		decision, err := NewRuleEvaluator(rs).Evaluate(context.Background(), newTestRequest())
		require.NoError(t, err)
		assert.True(t, decision.Allow)
	})

	t.Run("Error_InvalidEffect", func(t *testing.T) {
		_, err := ParseRuleSet([]byte("rules:\n  - name: x\n    effect: maybe\n"))
		assert.Error(t, err)
	})

	t.Run("Error_InvalidDefault", func(t *testing.T) {
		_, err := ParseRuleSet([]byte("default: sometimes"))
		assert.Error(t, err)
	})

	t.Run("Error_BadPattern", func(t *testing.T) {
		_, err := ParseRuleSet([]byte("rules:\n  - effect: allow\n    vaults: [\"[\"]\n"))
		assert.Error(t, err)
	})

	t.Run("Error_MalformedYAML", func(t *testing.T) {
		_, err := ParseRuleSet([]byte("rules: ["))
		assert.Error(t, err)
	})
}

func TestLoadRuleSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testRules), 0o600))

	rs, err := LoadRuleSet(path)
	require.NoError(t, err)
	assert.Len(t, rs.Rules, 3)

	_, err = LoadRuleSet(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
