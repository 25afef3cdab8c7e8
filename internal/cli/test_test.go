package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestCommand_HarnessScenarios(t *testing.T) {
	cmd := NewTestCommand(textOpts())
	out, err := execute(t, cmd, "", scenariosDir, "--golden", goldenDir)
	require.NoError(t, err, out)

	assert.Contains(t, out, "✓ counter_increment_reset")
	assert.Contains(t, out, "✓ search_merge")
	assert.Contains(t, out, "6 passed, 0 failed, 6 total")
	assert.Contains(t, out, "All scenarios passed")
}

func TestTestCommand_Filter(t *testing.T) {
	cmd := NewTestCommand(jsonOpts())
	out, err := execute(t, cmd, "", scenariosDir, "--golden", goldenDir, "--filter", "login_*")
	require.NoError(t, err, out)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Data.Total)
	for _, s := range resp.Data.Scenarios {
		assert.True(t, s.Pass, s.Name)
		assert.Len(t, s.Digest, 64)
	}
}

func TestTestCommand_UpdateThenCompare(t *testing.T) {
	dir := t.TempDir()
	copyScenario(t, dir, "counter_increment_reset")

	out, err := execute(t, NewTestCommand(textOpts()), "", dir, "--update")
	require.NoError(t, err, out)

	got, err := os.ReadFile(filepath.Join(dir, "golden", "counter_increment_reset.golden"))
	require.NoError(t, err)
	want, err := os.ReadFile(filepath.Join(goldenDir, "counter_increment_reset.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))

	out, err = execute(t, NewTestCommand(textOpts()), "", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestTestCommand_GoldenMismatch(t *testing.T) {
	dir := t.TempDir()
	copyScenario(t, dir, "counter_decrement_rejected")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "counter_decrement_rejected.golden"), []byte(`{"trace":[]}`), 0o644))

	out, err := execute(t, NewTestCommand(textOpts()), "", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ counter_decrement_rejected")
	assert.Contains(t, out, "does not match golden file")
	assert.Contains(t, out, "final_state differs (golden <none>, got 0)")
}

func TestTestCommand_InvalidScenarioFails(t *testing.T) {
	cmd := NewTestCommand(textOpts())
	out, err := execute(t, cmd, "", invalidDir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "failed to load scenario")
	assert.Contains(t, out, "0 passed, 4 failed, 4 total")
}

func TestTestCommand_MissingDir(t *testing.T) {
	_, err := execute(t, NewTestCommand(textOpts()), "", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommand_NoScenarios(t *testing.T) {
	out, err := execute(t, NewTestCommand(textOpts()), "", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestFindScenarioFiles_SkipsGoldenDir(t *testing.T) {
	dir := t.TempDir()
	copyScenario(t, dir, "login_roundtrip")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "stray.yaml"), []byte("x: 1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644))

	files, err := findScenarioFiles(dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "login_roundtrip.yaml")}, files)

	_, err = findScenarioFiles(dir, "[")
	assert.Error(t, err)
}
