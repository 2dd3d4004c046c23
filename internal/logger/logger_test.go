package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew_FallsBackToInfoOnBadLevel(t *testing.T) {
	l, err := New(Config{Level: "verbose", Encoding: "xml"})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestNew_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	l, err := New(Config{Level: "debug", OutputPath: path})
	require.NoError(t, err)

	l.Debug("hello")
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"level":"DEBUG"`)
	assert.Contains(t, string(data), `"timestamp"`)
}

func TestNew_ServiceFieldsAndComponentName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	l, err := New(Config{OutputPath: path, Service: "storygen", Command: "worker"})
	require.NoError(t, err)

	l.Named("StoryEngine").Info("started")
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"service":"storygen"`)
	assert.Contains(t, string(data), `"command":"worker"`)
	assert.Contains(t, string(data), `"component":"StoryEngine"`)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 10))
	assert.Equal(t, "ab...(truncated)", Truncate("abcdef", 2))
	assert.Equal(t, "abcdef", Truncate("abcdef", 0))
}

func TestTruncate_KeepsRunesWhole(t *testing.T) {
	// "ж" и "ё" занимают по 2 байта
	s := "жёлудь"
	for max := 1; max < len(s); max++ {
		got := Truncate(s, max)
		assert.True(t, utf8.ValidString(got), "max=%d got=%q", max, got)
		assert.True(t, strings.HasSuffix(got, "...(truncated)"))
		assert.LessOrEqual(t, len(strings.TrimSuffix(got, "...(truncated)")), max)
	}
	assert.Equal(t, "ж...(truncated)", Truncate(s, 3))
}
