package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonesrussell/regintake/internal/domain"
)

func TestNormalizeEntityName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase passthrough", "acme", "acme"},
		{"uppercase folded", "ACME CORP", "acmecorp"},
		{"punctuation stripped", "S.E.C.", "sec"},
		{"whitespace collapsed away", "Acme  Corp", "acmecorp"},
		{"digits kept", "Area 51 Holdings", "area51holdings"},
		{"empty input", "", ""},
		{"only punctuation", "...", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.NormalizeEntityName(tt.in))
		})
	}
}

func TestNormalizeEntityName_Collisions(t *testing.T) {
	variants := []string{"Acme Corp.", "ACME CORP", "Acme  Corp", "acme-corp"}

	for _, v := range variants {
		assert.Equal(t, "acmecorp", domain.NormalizeEntityName(v))
	}
}

func TestIntakeItemTerminal(t *testing.T) {
	assert.False(t, (&domain.IntakeItem{Status: domain.IntakeStatusNew}).Terminal())
	assert.False(t, (&domain.IntakeItem{Status: domain.IntakeStatusReviewed}).Terminal())
	assert.True(t, (&domain.IntakeItem{Status: domain.IntakeStatusPromoted}).Terminal())
	assert.True(t, (&domain.IntakeItem{Status: domain.IntakeStatusRejected}).Terminal())
}
