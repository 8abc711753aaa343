package pagination

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeToken(t *testing.T) {
	createdAt := time.Date(2023, 5, 15, 14, 30, 45, 123456789, time.UTC)
	id := uuid.New()

	token := EncodeToken(createdAt, id)
	assert.NotEmpty(t, token, "Token should not be empty")
	assert.NotContains(t, token, "+")
	assert.NotContains(t, token, "/")

	decodedAt, decodedID, err := DecodeToken(token)
	require.NoError(t, err)
	assert.Equal(t, createdAt, decodedAt, "Created at time should match after decode")
	assert.Equal(t, id, decodedID)

	// Non-UTC times keep their instant
	local := time.Date(2024, 2, 29, 23, 59, 59, 1, time.FixedZone("X", 5*3600))
	decodedAt, _, err = DecodeToken(EncodeToken(local, id))
	require.NoError(t, err)
	assert.True(t, local.Equal(decodedAt))
}

func TestDecodeTokenErrors(t *testing.T) {
	encode := func(s string) string { return base64.RawURLEncoding.EncodeToString([]byte(s)) }

	tests := []struct {
		name  string
		token string
	}{
		{"not base64", "!!!"},
		{"missing separator", encode("2024-01-01T00:00:00Z")},
		{"bad time", encode("yesterday|" + uuid.NewString())},
		{"bad id", encode("2024-01-01T00:00:00Z|not-a-uuid")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DecodeToken(tt.token)
			assert.Error(t, err)
		})
	}
}
