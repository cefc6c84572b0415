package service

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenService(t *testing.T) {
	svc := NewTokenService()

	plain, hash, err := svc.GenerateToken()
	require.NoError(t, err)

	raw, err := base64.URLEncoding.DecodeString(plain)
	require.NoError(t, err)
	assert.Len(t, raw, bearerTokenSize)
	assert.Len(t, hash, 64)
	assert.Equal(t, hash, svc.HashToken(plain))
	assert.NotEqual(t, hash, svc.HashToken(plain+"x"))

	other, _, err := svc.GenerateToken()
	require.NoError(t, err)
	assert.NotEqual(t, plain, other)
}
