package dedupe_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonesrussell/regintake/internal/dedupe"
)

func TestKey_Deterministic(t *testing.T) {
	a := dedupe.Key("https://ftc.gov/news/item?id=42", "Tue, 02 Jan 2024 15:04:05 GMT")
	b := dedupe.Key("https://ftc.gov/news/item?id=42", "Tue, 02 Jan 2024 15:04:05 GMT")

	assert.Equal(t, a, b)
}

func TestKey_Shape(t *testing.T) {
	key := dedupe.Key("https://ftc.gov/news/item", "2024-01-02")

	assert.Len(t, key, 64)
	assert.Regexp(t, "^[0-9a-f]{64}$", key)
}

func TestKey_SensitiveToEachInput(t *testing.T) {
	base := dedupe.Key("https://ftc.gov/news/item", "2024-01-02")

	assert.NotEqual(t, base, dedupe.Key("https://ftc.gov/news/other", "2024-01-02"))
	assert.NotEqual(t, base, dedupe.Key("https://ftc.gov/news/item", "2024-01-03"))
}

func TestKey_SeparatorPreventsAmbiguity(t *testing.T) {
	// Moving characters across the url/date boundary must change the key.
	a := dedupe.Key("https://ftc.gov/a", "b2024")
	b := dedupe.Key("https://ftc.gov/ab", "2024")

	assert.NotEqual(t, a, b)
}
