package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	pos := cursorPosition{
		DiscoveredAt: time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC),
		DedupeKey:    "abc123",
	}

	token := encodeCursor(pos)
	require.NotEmpty(t, token)

	decoded, err := decodeCursor(token)
	require.NoError(t, err)

	assert.True(t, pos.DiscoveredAt.Equal(decoded.DiscoveredAt))
	assert.Equal(t, pos.DedupeKey, decoded.DedupeKey)
}

func TestDecodeCursor_InvalidBase64(t *testing.T) {
	_, err := decodeCursor("not%%%valid")
	assert.Error(t, err)
}

func TestDecodeCursor_InvalidJSON(t *testing.T) {
	// Valid base64, not a cursor document.
	_, err := decodeCursor("bm90LWpzb24")
	assert.Error(t, err)
}
