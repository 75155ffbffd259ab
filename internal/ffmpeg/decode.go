package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"time"

	"github.com/kikiluvv/reframe/internal/media"
)

// Decoder reads decoded frames of a video from an ffmpeg pipe
type Decoder struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	reader *bufio.Reader
	done   chan struct{}

	width  int
	height int
	fps    float64
	index  int
	eof    bool
	closed bool
}

// NewDecoder starts ffmpeg decoding info's video stream to raw RGBA frames
func (e *Executor) NewDecoder(ctx context.Context, info *VideoInfo) (*Decoder, error) {
	if info == nil || info.Width <= 0 || info.Height <= 0 {
		return nil, fmt.Errorf("decoder needs probed video dimensions")
	}
	if info.FPS <= 0 {
		return nil, fmt.Errorf("decoder needs a positive frame rate, got %f", info.FPS)
	}

	args := append(e.baseArgs("error"),
		"-i", info.FilePath,
		"-an", "-sn",
		"-f", "rawvideo",
		"-pix_fmt", rawPixFmt,
		"-",
	)

	e.logger.Debug().
		Str("cmd", "ffmpeg").
		Strs("args", args).
		Msg("starting decoder")

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start decoder: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		e.logStderr(stderr, "decoder output")
	}()

	return &Decoder{
		cmd:    cmd,
		stdout: stdout,
		reader: bufio.NewReaderSize(stdout, info.Width*info.Height*4),
		done:   done,
		width:  info.Width,
		height: info.Height,
		fps:    info.FPS,
	}, nil
}

// Next returns the next frame, or io.EOF once the stream is exhausted
func (d *Decoder) Next() (media.Frame, error) {
	if d.closed || d.eof {
		return media.Frame{}, io.EOF
	}

	img := image.NewRGBA(image.Rect(0, 0, d.width, d.height))
	if _, err := io.ReadFull(d.reader, img.Pix); err != nil {
		if errors.Is(err, io.EOF) {
			d.eof = true
			return media.Frame{}, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return media.Frame{}, fmt.Errorf("truncated frame %d: %w", d.index, err)
		}
		return media.Frame{}, fmt.Errorf("read frame %d: %w", d.index, err)
	}

	frame := media.Frame{
		Index:     d.index,
		Timestamp: time.Duration(float64(d.index) / d.fps * float64(time.Second)),
		Image:     img,
	}
	d.index++
	return frame, nil
}

// Close stops the decoder and waits for ffmpeg to exit. Exit failures are
// only reported once the stream was read to the end; an early stop kills
// the pipe on purpose.
func (d *Decoder) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true

	d.stdout.Close()
	<-d.done
	err := d.cmd.Wait()

	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && !d.eof {
		return nil
	}
	return fmt.Errorf("decoder failed: %w", err)
}
