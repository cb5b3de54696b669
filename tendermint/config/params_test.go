package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadOverlaysOntoDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tendercore.yaml")
	// Duration fields are plain YAML integers of nanoseconds, since neither
	// yaml.v2 nor time.Duration know how to parse "5s"-style strings.
	require.NoError(t, os.WriteFile(path, []byte("propose_base: 5000000000\nlog_level: debug\n"), 0o600))

	p, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 5*time.Second, p.ProposeBase)
	require.Equal(t, "debug", p.LogLevel)
	// Untouched fields keep their defaults.
	require.Equal(t, Default.PrevoteBase, p.PrevoteBase)
	require.Equal(t, Default.PeerQueueSize, p.PeerQueueSize)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestTimeoutsConversion(t *testing.T) {
	tp := Default.Timeouts()
	require.Equal(t, Default.ProposeBase, tp.ProposeBase)
	require.Equal(t, Default.PrecommitDelta, tp.PrecommitDelta)
}
