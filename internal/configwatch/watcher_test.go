package configwatch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/usts/internal/cliconfig"
)

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\nresponse_delay = \"50ms\"\n"), 0o644))

	got := make(chan cliconfig.FileConfig, 4)
	w := New(path, 20*time.Millisecond, nil, func(fc cliconfig.FileConfig) { got <- fc })
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("[server]\nresponse_delay = \"5ms\"\nlog_level = \"debug\"\n"), 0o644))

	select {
	case fc := <-got:
		assert.Equal(t, "5ms", fc.Server.ResponseDelay)
		assert.Equal(t, "debug", fc.Server.LogLevel)
	case <-time.After(3 * time.Second):
		t.Fatal("reload not triggered")
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(""), 0o644))

	got := make(chan cliconfig.FileConfig, 1)
	w := New(path, 10*time.Millisecond, nil, func(fc cliconfig.FileConfig) { got <- fc })
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.toml"), []byte("x"), 0o644))

	select {
	case <-got:
		t.Fatal("unexpected reload")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_InvalidFileKeepsSettings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(""), 0o644))

	got := make(chan cliconfig.FileConfig, 1)
	w := New(path, 10*time.Millisecond, nil, func(fc cliconfig.FileConfig) { got <- fc })
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("[server\n"), 0o644))

	select {
	case <-got:
		t.Fatal("reload must not fire for an unparsable file")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_StartMissingDir(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "nope", "config.toml"), 0, nil, func(cliconfig.FileConfig) {})
	assert.Error(t, w.Start(context.Background()))
}
