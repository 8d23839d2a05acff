package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitializeFileWritesOnlyToFile(t *testing.T) {
	dir := t.TempDir()
	l := InitializeFile("chat_client", dir)

	l.Debug("hidden")
	l.SetDebugMode(true)
	l.Debug("shown", zap.String("k", "v"))
	l.Info("hello")
	l.Sync()

	files, err := filepath.Glob(filepath.Join(dir, "log_*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	body, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(body), `"msg":"hello"`)
	assert.Contains(t, string(body), `"msg":"shown"`)
	assert.NotContains(t, string(body), "hidden")
	assert.Contains(t, string(body), `"service":"chat_client"`)
}

func TestDebugToggle(t *testing.T) {
	SetNewNop()
	assert.False(t, Log.IsDebug())
	Log.SetDebugMode(true)
	assert.True(t, Log.IsDebug())
}
