package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestAssociatedData(t *testing.T) {
	vaultID := uuid.New()
	base := AssociatedData(vaultID, "1234", 1, ClassificationPAN)

	assert.Equal(t, base, AssociatedData(vaultID, "1234", 1, ClassificationPAN))
	assert.NotEqual(t, base, AssociatedData(uuid.New(), "1234", 1, ClassificationPAN))
	assert.NotEqual(t, base, AssociatedData(vaultID, "1235", 1, ClassificationPAN))
	assert.NotEqual(t, base, AssociatedData(vaultID, "1234", 2, ClassificationPAN))
	assert.NotEqual(t, base, AssociatedData(vaultID, "1234", 1, ClassificationGeneric))
	// length prefixes keep token and classification boundaries unambiguous
	assert.NotEqual(t,
		AssociatedData(vaultID, "ab", 1, "c"),
		AssociatedData(vaultID, "a", 1, "bc"),
	)
}

func TestTokenRecord_IsExpired(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	assert.False(t, (&TokenRecord{}).IsExpired(now))
	assert.True(t, (&TokenRecord{ExpiresAt: &past}).IsExpired(now))
	assert.True(t, (&TokenRecord{ExpiresAt: &now}).IsExpired(now))
	assert.False(t, (&TokenRecord{ExpiresAt: &future}).IsExpired(now))
}

func TestMaskPAN(t *testing.T) {
	assert.Equal(t, "************1111", MaskPAN("4111111111111111"))
	assert.Equal(t, "***", MaskPAN("123"))
}

func TestParsers(t *testing.T) {
	c, err := ParseClassification("PAN")
	assert.NoError(t, err)
	assert.Equal(t, ClassificationPAN, c)

	_, err = ParseClassification("ssn")
	assert.ErrorIs(t, err, ErrInvalidClassification)

	f, err := ParseFormatType("alphanumeric")
	assert.NoError(t, err)
	assert.Equal(t, FormatAlphanumeric, f)

	_, err = ParseFormatType("luhn")
	assert.ErrorIs(t, err, ErrInvalidFormatType)

	assert.True(t, ValidVaultName("cards"))
	assert.True(t, ValidVaultName("cards_eu-1"))
	assert.False(t, ValidVaultName("Cards"))
	assert.False(t, ValidVaultName("-cards"))
	assert.False(t, ValidVaultName(""))
}
