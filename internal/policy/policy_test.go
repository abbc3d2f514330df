package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	p := Default()
	require.NoError(t, p.Validate())

	assert.Equal(t, 20, p.Match.Baseline)
	assert.Equal(t, 50, p.Match.Neutral)
	assert.Equal(t, 25, p.Match.MedicalSupervision.Bonus)
	assert.Equal(t, 30, p.Match.MedicalSupervision.Penalty)
	assert.Equal(t, 50, p.Priority.Accessibility)
	assert.Equal(t, 50, p.Priority.UnacknowledgedCritical)
}

func TestLoadFile_OverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"match":{"baseline":30},"priority":{"accessibility":55}}`), 0o600))

	p, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 30, p.Match.Baseline)
	assert.Equal(t, 55, p.Priority.Accessibility)
	// 未覆盖的字段保持默认值
	assert.Equal(t, 50, p.Match.Neutral)
	assert.Equal(t, []string{"copd", "asthma"}, p.Keywords.Respiratory)
}

func TestLoadFile_EmptyPathReturnsDefault(t *testing.T) {
	p, err := LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, Default(), p)
}

func TestLoadFile_Invalid(t *testing.T) {
	dir := t.TempDir()

	negative := filepath.Join(dir, "negative.json")
	require.NoError(t, os.WriteFile(negative, []byte(`{"match":{"medical_supervision":{"bonus":-1}}}`), 0o600))
	_, err := LoadFile(negative)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "must not be negative")

	emptyKeywords := filepath.Join(dir, "keywords.json")
	require.NoError(t, os.WriteFile(emptyKeywords, []byte(`{"keywords":{"insulin":[]}}`), 0o600))
	_, err = LoadFile(emptyKeywords)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "keywords.insulin")

	_, err = LoadFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestContainsAny(t *testing.T) {
	assert.True(t, ContainsAny([]string{"Type 2 Diabetes"}, []string{"diabetes"}))
	assert.True(t, ContainsAny([]string{"asthma", "COPD stage 2"}, []string{"copd"}))
	assert.False(t, ContainsAny([]string{"hypertension"}, []string{"diabetes"}))
	assert.False(t, ContainsAny(nil, []string{"diabetes"}))
	assert.False(t, ContainsAny([]string{"anything"}, []string{""}))
}
