package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLoggingCreatesFile(t *testing.T) {
	dir := t.TempDir()
	lf := filepath.Join(dir, "nested", "model-dispatch.log")

	require.NoError(t, SetupLogging(lf))
	_, err := os.Stat(lf)
	assert.NoError(t, err, "expected the log file and its directory to be created")
}

func TestRequestLoggerPrefix(t *testing.T) {
	l := RequestLogger("GET", "/queue-status", "req-1")
	assert.Contains(t, l.Prefix(), "req-1")
	assert.Contains(t, l.Prefix(), "GET")
	assert.Contains(t, l.Prefix(), "/queue-status")
}
