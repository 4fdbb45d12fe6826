package milestone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRulesNext(t *testing.T) {
	r := DefaultRules()

	tests := []struct {
		name   string
		branch string
		tag    string
		want   string
	}{
		{"develop branch", "develop", "beaker-22.3", "23.0"},
		{"master branch", "master", "beaker-22.3", "23.0"},
		{"maintenance branch", "release-22", "beaker-22.3", "22.4"},
		{"release candidate on develop", "develop", "beaker-22.0rc1", "22.0"},
		{"release candidate on maintenance", "release-22", "beaker-22.0rc2", "22.0"},
		{"double digit minor", "release-9", "beaker-9.9", "9.10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Next(tt.branch, tt.tag)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRulesNext_Idempotent(t *testing.T) {
	r := DefaultRules()
	first, err := r.Next("develop", "beaker-22.3")
	require.NoError(t, err)
	second, err := r.Next("develop", "beaker-22.3")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRulesNext_BadTag(t *testing.T) {
	r := DefaultRules()

	_, err := r.Next("develop", "v22.3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "beaker-")

	_, err = r.Next("develop", "beaker-twenty")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid version")
}

func TestRulesIsMaintenance(t *testing.T) {
	r := DefaultRules()
	assert.True(t, r.IsMaintenance("release-28"))
	assert.False(t, r.IsMaintenance("develop"))
	assert.False(t, Rules{}.IsMaintenance("release-28"))
}
