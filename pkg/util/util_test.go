package util

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "00:00:00.000", FormatDuration(0))
	assert.Equal(t, "01:02:03.500", FormatDuration(time.Hour+2*time.Minute+3500*time.Millisecond))
	assert.Equal(t, "00:00:01.234", FormatDuration(1234400*time.Microsecond))
	assert.Equal(t, "00:00:00.000", FormatDuration(-time.Second))
}

func TestParseFrameRate(t *testing.T) {
	assert.Equal(t, 30.0, ParseFrameRate("30/1"))
	assert.InDelta(t, 29.97, ParseFrameRate("30000/1001"), 0.001)
	assert.Equal(t, 0.0, ParseFrameRate("0/0"))
	assert.Equal(t, 0.0, ParseFrameRate("30"))
	assert.Equal(t, 0.0, ParseFrameRate("a/b"))
	assert.Equal(t, 0.0, ParseFrameRate("30/x"))
}

func TestSecondsToFrames(t *testing.T) {
	assert.Equal(t, 30, SecondsToFrames(1, 30))
	assert.Equal(t, 30, SecondsToFrames(1, 29.97))
	assert.Equal(t, 15, SecondsToFrames(0.5, 29.97))
	assert.Equal(t, 0, SecondsToFrames(0, 30))
	assert.Equal(t, 0, SecondsToFrames(1, 0))
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsureDir(dir))
	assert.True(t, FileExists(dir))
	assert.False(t, FileExists(filepath.Join(dir, "missing")))

	f, err := os.Create(filepath.Join(dir, "file"))
	require.NoError(t, err)
	f.Close()
	assert.True(t, FileExists(f.Name()))
}

func TestJobDir(t *testing.T) {
	at := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	assert.Equal(t, filepath.Join("work", "20240506_070809_abc"), JobDir("work", "abc", at))
}
