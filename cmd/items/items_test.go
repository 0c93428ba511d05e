package items

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "uppercase flag value", input: "NEW", want: "new"},
		{name: "mixed case", input: "Reviewed", want: "reviewed"},
		{name: "already lowercase", input: "promoted", want: "promoted"},
		{name: "surrounding whitespace", input: " rejected ", want: "rejected"},
		{name: "empty means no filter", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeStatus(tt.input))
		})
	}
}

func TestTruncate(t *testing.T) {
	t.Run("short string untouched", func(t *testing.T) {
		assert.Equal(t, "FTC order", truncate("FTC order", 60))
	})

	t.Run("long string shortened with ellipsis", func(t *testing.T) {
		got := truncate(strings.Repeat("a", 80), 10)
		assert.Equal(t, "aaaaaaa...", got)
	})

	t.Run("multi-byte runes survive truncation", func(t *testing.T) {
		got := truncate(strings.Repeat("é", 80), 10)
		assert.True(t, utf8.ValidString(got))
		assert.Equal(t, strings.Repeat("é", 7)+"...", got)
	})

	t.Run("exact length untouched", func(t *testing.T) {
		s := strings.Repeat("é", 10)
		assert.Equal(t, s, truncate(s, 10))
	})
}
