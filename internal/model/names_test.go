package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFoldName(t *testing.T) {
	assert.Equal(t, "apollo", FoldName("Apollo"))
	assert.Equal(t, "acme corp", FoldName("  ACME   Corp "))
	assert.True(t, SameName("Straße GmbH", "STRASSE gmbh"))
	assert.False(t, SameName("Beta", "Gamma"))
}

func TestSlug(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Acme Corp", "acme_corp"},
		{"  Beta, Inc. ", "beta_inc"},
		{"Salesforce.com", "salesforce_com"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slug(tt.in), tt.in)
	}
}
