package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/allisson/token-rest/internal/errors"
	vaultDomain "github.com/allisson/token-rest/internal/vault/domain"
)

func TestValidatePlaintext(t *testing.T) {
	tests := []struct {
		name           string
		classification vaultDomain.Classification
		plaintext      string
		valid          bool
	}{
		{"visa test card", vaultDomain.ClassificationPAN, "4111111111111111", true},
		{"amex test card", vaultDomain.ClassificationPAN, "378282246310005", true},
		{"pan fails luhn", vaultDomain.ClassificationPAN, "4111111111111112", false},
		{"pan with spaces", vaultDomain.ClassificationPAN, "4111 1111 1111 1111", false},
		{"pan too short", vaultDomain.ClassificationPAN, "42424242424", false},
		{"pan too long", vaultDomain.ClassificationPAN, "42424242424242424242", false},
		{"generic text", vaultDomain.ClassificationGeneric, "123-45-6789", true},
		{"generic empty", vaultDomain.ClassificationGeneric, "", false},
		{"generic too large", vaultDomain.ClassificationGeneric, strings.Repeat("a", 4097), false},
		{"generic invalid utf8", vaultDomain.ClassificationGeneric, "\xff\xfe", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePlaintext(tt.classification, []byte(tt.plaintext))
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
		})
	}

	t.Run("Error_UnknownClassification", func(t *testing.T) {
		err := ValidatePlaintext("ssn", []byte("x"))
		assert.ErrorIs(t, err, vaultDomain.ErrInvalidClassification)
	})
}

func TestMaskFor(t *testing.T) {
	assert.Equal(t, "************1111", MaskFor(vaultDomain.ClassificationPAN, []byte("4111111111111111")))
	assert.Empty(t, MaskFor(vaultDomain.ClassificationGeneric, []byte("secret")))
}
