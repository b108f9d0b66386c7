package patterns

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRicoh = `
manufacturer_key: ricoh
aliases: ["savin", "lanier"]
validation_regex: "^SC[0-9]{3}$"
patterns:
  - name: service_call
    regex: "SC[0-9]{3}"
    category: hardware
    severity_hint: high
extraction_rules:
  min_confidence: 0.8
  max_codes_per_page: 10
  context_window_chars: 150
  text_window_after_chars: 2000
`

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestRegistry_LoadAndGet(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "ricoh.yaml", sampleRicoh)

	reg := NewRegistry(dir)
	require.NoError(t, reg.Load())

	ps, err := reg.Get("Ricoh")
	require.NoError(t, err)
	assert.Equal(t, "ricoh", ps.ManufacturerKey)
	assert.Len(t, ps.Patterns, 1)
	assert.NotNil(t, ps.Patterns[0].Compiled())
}

func TestRegistry_GetByAlias(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "ricoh.yaml", sampleRicoh)

	reg := NewRegistry(dir)
	require.NoError(t, reg.Load())

	ps, err := reg.Get("savin")
	require.NoError(t, err)
	assert.Equal(t, "ricoh", ps.ManufacturerKey)
}

func TestRegistry_GetUnknownManufacturer(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "ricoh.yaml", sampleRicoh)

	reg := NewRegistry(dir)
	require.NoError(t, reg.Load())

	_, err := reg.Get("brother")
	assert.Error(t, err)
}

func TestRegistry_RebrandHint(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "kyocera.yaml", `
manufacturer_key: kyocera
validation_regex: "^C[0-9]{4}$"
patterns:
  - name: fault
    regex: "C[0-9]{4}"
    category: hardware
extraction_rules:
  min_confidence: 0.75
  max_codes_per_page: 15
  context_window_chars: 200
  text_window_after_chars: 2500
`)

	reg := NewRegistry(dir)
	require.NoError(t, reg.Load())

	_, err := reg.Get("utax")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no pattern set registered")
}

func TestRegistry_ValidationRegex(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "ricoh.yaml", sampleRicoh)

	reg := NewRegistry(dir)
	require.NoError(t, reg.Load())

	ps, err := reg.Get("ricoh")
	require.NoError(t, err)

	assert.True(t, ps.Validate("SC542"))
	assert.False(t, ps.Validate("page 542"))
}

func TestRegistry_ListManufacturers(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "ricoh.yaml", sampleRicoh)

	reg := NewRegistry(dir)
	require.NoError(t, reg.Load())

	assert.ElementsMatch(t, []string{"ricoh"}, reg.ListManufacturers())
}

func TestRegistry_FailedReloadKeepsPreviousSnapshot(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "ricoh.yaml", sampleRicoh)

	reg := NewRegistry(dir)
	require.NoError(t, reg.Load())

	writeFixture(t, dir, "broken.yaml", "patterns:\n  - regex: \"(unclosed\"\n")
	err := reg.Load()
	require.Error(t, err)

	ps, getErr := reg.Get("ricoh")
	require.NoError(t, getErr)
	assert.Equal(t, "ricoh", ps.ManufacturerKey)
}
