package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoadWithNoFileReturnsDefaults(t *testing.T) {
	l := NewLoader(nil, "")
	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoadAppliesTestModeOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corridors.yaml")
	require.NoError(t, os.WriteFile(path, []byte("test_mode: true\n"), 0o644))

	l := NewLoader(nil, path)
	cfg, err := l.Load()
	require.NoError(t, err)
	assert.True(t, cfg.TestMode)
	assert.Equal(t, 10*time.Second, cfg.ReaperSweepInterval)
	assert.Equal(t, 60*time.Second, cfg.ReaperStaleThreshold)
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	l := NewLoader(nil, filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestHolderReloadSwapsSnapshotOnFileChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corridors.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ai_workers: 4\n"), 0o644))

	loader := NewLoader(nil, path)
	h, err := NewHolder(loader, testLogger())
	require.NoError(t, err)
	assert.Equal(t, 4, h.Get().AIWorkers)

	require.NoError(t, os.WriteFile(path, []byte("ai_workers: 9\n"), 0o644))
	require.NoError(t, h.Reload())
	assert.Equal(t, 9, h.Get().AIWorkers)
}

func TestHolderReloadKeepsOldSnapshotOnBadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corridors.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ai_workers: 4\n"), 0o644))

	loader := NewLoader(nil, path)
	h, err := NewHolder(loader, testLogger())
	require.NoError(t, err)

	// ai_workers: "not-an-int" fails to unmarshal into an int field.
	require.NoError(t, os.WriteFile(path, []byte("ai_workers: \"not-an-int\"\n"), 0o644))
	err = h.Reload()
	assert.Error(t, err)
	assert.Equal(t, 4, h.Get().AIWorkers)
}

func TestDefaultSearchConfigConvertsToModelConfiguration(t *testing.T) {
	d := Defaults().DefaultSearch
	cfg := d.ToModelConfiguration(42)
	assert.Equal(t, int64(42), cfg.RandomSeed)
	assert.Equal(t, d.MinSimulations, cfg.MinSimulations)
	assert.Equal(t, d.MaxSimulations, cfg.MaxSimulations)
}
