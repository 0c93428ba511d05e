package database

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// cursorPosition marks the last row of a page for keyset pagination.
type cursorPosition struct {
	DiscoveredAt time.Time `json:"d"`
	DedupeKey    string    `json:"k"`
}

// encodeCursor renders a position as an opaque continuation token.
func encodeCursor(pos cursorPosition) string {
	raw, err := json.Marshal(pos)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}

// decodeCursor parses a continuation token produced by encodeCursor.
func decodeCursor(token string) (cursorPosition, error) {
	var pos cursorPosition

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return pos, fmt.Errorf("invalid cursor: %w", err)
	}

	if err := json.Unmarshal(raw, &pos); err != nil {
		return pos, fmt.Errorf("invalid cursor: %w", err)
	}

	return pos, nil
}
