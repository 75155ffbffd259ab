package pipeline

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kikiluvv/reframe/internal/config"
	"github.com/kikiluvv/reframe/internal/ffmpeg"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// skipIfNoFFmpeg skips the test if ffmpeg is not available
func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH - install with: brew install ffmpeg")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not found in PATH - install with: brew install ffmpeg")
	}
}

// testConfig runs the saliency detector so no model files are needed
func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.WorkDir = t.TempDir()
	cfg.Detector.Kind = config.DetectorSaliency
	cfg.Output.Width = 90
	cfg.Output.Height = 160
	cfg.FFmpeg.Preset = "ultrafast"
	return cfg
}

func sampleVideo(t *testing.T) string {
	t.Helper()
	ff, err := ffmpeg.New(zerolog.Nop(), "", 0)
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "sample.mp4")
	err = ff.Run(context.Background(), ffmpeg.RunOptions{
		Args: []string{
			"-f", "lavfi", "-i", "testsrc=size=320x180:rate=10:duration=2",
			"-f", "lavfi", "-i", "sine=frequency=440:duration=2",
			"-c:v", "libx264", "-pix_fmt", "yuv420p",
			"-c:a", "aac",
			"-shortest",
			out,
		},
	})
	require.NoError(t, err)
	return out
}

func TestRunEndToEnd(t *testing.T) {
	skipIfNoFFmpeg(t)

	tests := []struct {
		name     string
		strategy string
		cut      string
	}{
		{"history perceptual", config.StrategyHistory, config.CutPerceptual},
		{"history ffmpeg cuts", config.StrategyHistory, config.CutFFmpeg},
		{"buffer", config.StrategyBuffer, config.CutPerceptual},
		{"passthrough", config.StrategyPassthrough, config.CutPerceptual},
	}

	input := sampleVideo(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Smoothing.Strategy = tt.strategy
			cfg.Cut.Method = tt.cut

			p, err := New(zerolog.Nop(), cfg)
			require.NoError(t, err)
			defer p.Close()

			result, err := p.Run(context.Background(), RunOptions{Input: input})
			require.NoError(t, err)

			assert.False(t, result.Cancelled)
			assert.True(t, result.HasAudio)
			assert.Equal(t, 20, result.Stats.Decoded)
			assert.Equal(t, result.Stats.Decoded, result.Stats.Written, "every frame is written exactly once")
			assert.Equal(t, filepath.Join(result.Job.Dir, outputName), result.Job.Output)
			assert.True(t, strings.HasPrefix(result.Job.Dir, cfg.WorkDir))

			ff, err := ffmpeg.New(zerolog.Nop(), "", 0)
			require.NoError(t, err)
			info, err := ff.ProbeVideo(context.Background(), result.Job.Output)
			require.NoError(t, err)
			assert.Equal(t, 90, info.Width)
			assert.Equal(t, 160, info.Height)
			assert.True(t, info.HasAudio)

			_, err = os.Stat(filepath.Join(result.Job.Dir, silentName))
			assert.True(t, os.IsNotExist(err), "intermediate video is removed")
		})
	}
}

func TestRunExplicitOutputWithoutAudio(t *testing.T) {
	skipIfNoFFmpeg(t)

	cfg := testConfig(t)
	cfg.Audio.Keep = false
	p, err := New(zerolog.Nop(), cfg)
	require.NoError(t, err)
	defer p.Close()

	output := filepath.Join(t.TempDir(), "out", "vertical.mp4")
	result, err := p.Run(context.Background(), RunOptions{Input: sampleVideo(t), Output: output})
	require.NoError(t, err)
	assert.Equal(t, output, result.Job.Output)
	assert.False(t, result.HasAudio)

	_, err = os.Stat(output)
	assert.NoError(t, err)
}

func TestRunRejectsMissingInput(t *testing.T) {
	skipIfNoFFmpeg(t)

	p, err := New(zerolog.Nop(), testConfig(t))
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Run(context.Background(), RunOptions{})
	assert.Error(t, err)

	_, err = p.Run(context.Background(), RunOptions{Input: filepath.Join(t.TempDir(), "missing.mp4")})
	assert.Error(t, err)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Smoothing.Strategy = "kalman"

	_, err := New(zerolog.Nop(), cfg)
	assert.Error(t, err)
}
