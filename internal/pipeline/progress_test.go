package pipeline

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/kikiluvv/reframe/internal/ffmpeg"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeEvent(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	buf.Reset()
	return entry
}

func TestLogProgress(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

	report := logProgress(logger, "audio mux", 200)
	report(&ffmpeg.Progress{Frame: 50, FPS: 25, Time: "00:00:02.000000", Speed: "2x"})

	entry := decodeEvent(t, &buf)
	assert.Equal(t, "ffmpeg progress", entry["message"])
	assert.Equal(t, "audio mux", entry["stage"])
	assert.Equal(t, 50.0, entry["frame"])
	assert.Equal(t, 25.0, entry["fps"])
	assert.Equal(t, "2x", entry["speed"])
	assert.Equal(t, 25.0, entry["percent"])

	// ffmpeg can overshoot the frame count ffprobe reported
	report(&ffmpeg.Progress{Frame: 210})
	assert.Equal(t, 100.0, decodeEvent(t, &buf)["percent"])
}

func TestLogProgressUnknownTotal(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

	logProgress(logger, "scene detection", 0)(&ffmpeg.Progress{Frame: 3})

	entry := decodeEvent(t, &buf)
	assert.Equal(t, "scene detection", entry["stage"])
	assert.NotContains(t, entry, "percent")
}

func TestLogProgressRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.InfoLevel)

	logProgress(logger, "audio mux", 10)(&ffmpeg.Progress{Frame: 1})
	assert.Zero(t, buf.Len())
}
