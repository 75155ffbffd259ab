package ffmpeg

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kikiluvv/reframe/pkg/util"
)

// exit messages ffmpeg prints when the null muxer receives no frames
var emptySceneOutput = []string{"Conversion failed", "Invalid return value", "Output file is empty"}

// DetectScenes returns the timestamps of scene changes scoring above threshold
func (e *Executor) DetectScenes(ctx context.Context, input string, threshold float64, progressFunc ProgressFunc) ([]time.Duration, error) {
	if threshold <= 0 || threshold >= 1 {
		return nil, fmt.Errorf("scene threshold must be in (0, 1), got %f", threshold)
	}

	e.logger.Info().
		Str("input", input).
		Float64("threshold", threshold).
		Msg("detecting scene changes")

	var (
		mu     sync.Mutex
		scenes []time.Duration
	)

	err := e.Run(ctx, RunOptions{
		Args: []string{
			"-i", input,
			"-an",
			"-vf", NewFilterBuilder().SceneSelect(threshold).ShowInfo().Build(),
			"-f", "null",
			"-",
		},
		ProgressHandler: progressFunc,
		LogHandler: func(line string) {
			ts, ok := parseSceneLine(line)
			if !ok {
				return
			}
			mu.Lock()
			scenes = append(scenes, ts)
			mu.Unlock()
			e.logger.Debug().Str("at", util.FormatDuration(ts)).Msg("scene change")
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !isEmptySceneOutput(err) {
			return nil, fmt.Errorf("scene detection failed: %w", err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	sort.Slice(scenes, func(i, j int) bool { return scenes[i] < scenes[j] })

	e.logger.Info().Int("scenes", len(scenes)).Msg("scene detection complete")
	return scenes, nil
}

func isEmptySceneOutput(err error) bool {
	for _, msg := range emptySceneOutput {
		if strings.Contains(err.Error(), msg) {
			return true
		}
	}
	return false
}

// parseSceneLine extracts the pts_time of a showinfo line
func parseSceneLine(line string) (time.Duration, bool) {
	_, rest, ok := strings.Cut(line, "pts_time:")
	if !ok {
		return 0, false
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || math.IsNaN(seconds) || seconds < 0 {
		return 0, false
	}
	return time.Duration(seconds * float64(time.Second)), true
}
