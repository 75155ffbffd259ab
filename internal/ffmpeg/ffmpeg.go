package ffmpeg

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Executor handles all ffmpeg operations with progress streaming
type Executor struct {
	logger      zerolog.Logger
	ffmpegPath  string
	ffprobePath string
	threads     int
}

// New creates a new ffmpeg executor. An empty binaryPath searches PATH; a
// configured ffmpeg binary expects ffprobe in the same directory.
func New(logger zerolog.Logger, binaryPath string, threads int) (*Executor, error) {
	ffmpegPath, ffprobePath, err := resolveBinaries(binaryPath)
	if err != nil {
		return nil, err
	}

	return &Executor{
		logger:      logger.With().Str("component", "ffmpeg").Logger(),
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		threads:     threads,
	}, nil
}

func resolveBinaries(binaryPath string) (string, string, error) {
	if binaryPath == "" {
		ffmpegPath, err := exec.LookPath("ffmpeg")
		if err != nil {
			return "", "", fmt.Errorf("ffmpeg not found in PATH: %w", err)
		}
		ffprobePath, err := exec.LookPath("ffprobe")
		if err != nil {
			return "", "", fmt.Errorf("ffprobe not found in PATH: %w", err)
		}
		return ffmpegPath, ffprobePath, nil
	}

	ffmpegPath, err := exec.LookPath(binaryPath)
	if err != nil {
		return "", "", fmt.Errorf("ffmpeg not found at %s: %w", binaryPath, err)
	}
	name := strings.Replace(filepath.Base(ffmpegPath), "ffmpeg", "ffprobe", 1)
	ffprobePath, err := exec.LookPath(filepath.Join(filepath.Dir(ffmpegPath), name))
	if err != nil {
		return "", "", fmt.Errorf("ffprobe not found next to %s: %w", ffmpegPath, err)
	}
	return ffmpegPath, ffprobePath, nil
}

// baseArgs are prepended to every ffmpeg invocation
func (e *Executor) baseArgs(loglevel string) []string {
	args := []string{"-y", "-hide_banner", "-loglevel", loglevel}
	if e.threads > 0 {
		args = append(args, "-threads", fmt.Sprintf("%d", e.threads))
	}
	return args
}

// Run executes ffmpeg with the given arguments and streams progress
func (e *Executor) Run(ctx context.Context, opts RunOptions) error {
	if len(opts.Args) == 0 {
		return fmt.Errorf("no arguments provided")
	}

	args := append(e.baseArgs("info"), "-progress", "pipe:2")
	args = append(args, opts.Args...)

	e.logger.Debug().
		Str("cmd", "ffmpeg").
		Strs("args", args).
		Msg("executing ffmpeg")

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)

	// Stream stderr (progress + logs)
	go func() {
		defer wg.Done()
		streamOutput(stderr, opts.ProgressHandler, opts.LogHandler)
	}()

	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			if opts.LogHandler != nil {
				opts.LogHandler(scanner.Text())
			}
		}
	}()

	wg.Wait()

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg execution failed: %w", err)
	}

	e.logger.Debug().Msg("ffmpeg execution completed")
	return nil
}

// streamOutput parses ffmpeg output and calls handlers
func streamOutput(r io.Reader, progressHandler ProgressFunc, logHandler func(string)) {
	scanner := bufio.NewScanner(r)
	progressData := &Progress{}

	for scanner.Scan() {
		line := scanner.Text()

		if logHandler != nil {
			logHandler(line)
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)

		switch key {
		case "frame":
			fmt.Sscanf(value, "%d", &progressData.Frame)
		case "fps":
			fmt.Sscanf(value, "%f", &progressData.FPS)
		case "bitrate":
			progressData.Bitrate = value
		case "out_time":
			progressData.Time = value
		case "speed":
			progressData.Speed = value
		case "progress":
			// End of progress block
			if progressHandler != nil && progressData.Frame > 0 {
				progressHandler(progressData)
			}
			progressData = &Progress{}
		}
	}
}

// logStderr forwards a child's stderr to the debug log until it closes
func (e *Executor) logStderr(r io.Reader, stage string) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		e.logger.Debug().Str("ffmpeg", scanner.Text()).Msg(stage)
	}
}
