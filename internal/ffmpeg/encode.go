package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os/exec"
)

// Encoder writes raw frames into an ffmpeg encoding pipe
type Encoder struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	writer *bufio.Writer
	done   chan struct{}
	buf    *image.RGBA

	opts   EncodeOptions
	frames int
	closed bool
}

// NewEncoder starts ffmpeg encoding raw RGBA frames of opts.Width x
// opts.Height to opts.Output. Audio is added separately by MuxAudio.
func (e *Executor) NewEncoder(ctx context.Context, opts EncodeOptions) (*Encoder, error) {
	if err := validateEncodeOptions(opts); err != nil {
		return nil, fmt.Errorf("invalid encode options: %w", err)
	}

	codec := opts.VideoCodec
	if codec == "" {
		codec = DefaultVideoCodec
	}
	crf := opts.CRF
	if crf == 0 {
		crf = DefaultCRF
	}
	preset := opts.Preset
	if preset == "" {
		preset = DefaultPreset
	}

	args := append(e.baseArgs("error"),
		"-f", "rawvideo",
		"-pix_fmt", rawPixFmt,
		"-s", fmt.Sprintf("%dx%d", opts.Width, opts.Height),
		"-r", fmt.Sprintf("%.6f", opts.FPS),
		"-i", "-",
		"-an",
		"-vf", NewFilterBuilder().Format(DefaultPixFmt).Build(),
		"-c:v", codec,
		"-crf", fmt.Sprintf("%d", crf),
		"-preset", preset,
		"-movflags", "+faststart",
		opts.Output,
	)

	e.logger.Debug().
		Str("cmd", "ffmpeg").
		Strs("args", args).
		Msg("starting encoder")

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start encoder: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		e.logStderr(stderr, "encoder output")
	}()

	e.logger.Info().
		Str("output", opts.Output).
		Int("width", opts.Width).
		Int("height", opts.Height).
		Float64("fps", opts.FPS).
		Msg("encoder started")

	return &Encoder{
		cmd:    cmd,
		stdin:  stdin,
		writer: bufio.NewWriterSize(stdin, opts.Width*opts.Height*4),
		done:   done,
		buf:    image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height)),
		opts:   opts,
	}, nil
}

// WriteFrame encodes img, which must match the encoder dimensions
func (enc *Encoder) WriteFrame(img image.Image) error {
	if enc.closed {
		return errors.New("encoder is closed")
	}

	b := img.Bounds()
	if b.Dx() != enc.opts.Width || b.Dy() != enc.opts.Height {
		return fmt.Errorf("frame is %dx%d, encoder expects %dx%d",
			b.Dx(), b.Dy(), enc.opts.Width, enc.opts.Height)
	}

	pix := rgbaPix(img, enc.buf)
	if _, err := enc.writer.Write(pix); err != nil {
		return fmt.Errorf("write frame %d: %w", enc.frames, err)
	}
	enc.frames++
	return nil
}

// Frames returns the number of frames written
func (enc *Encoder) Frames() int {
	return enc.frames
}

// Close flushes pending frames and waits for ffmpeg to finish the file
func (enc *Encoder) Close() error {
	if enc.closed {
		return nil
	}
	enc.closed = true

	flushErr := enc.writer.Flush()
	enc.stdin.Close()
	<-enc.done

	if err := enc.cmd.Wait(); err != nil {
		return fmt.Errorf("encoder failed: %w", err)
	}
	if flushErr != nil {
		return fmt.Errorf("flush frames: %w", flushErr)
	}
	return nil
}

// rgbaPix returns img as tightly packed RGBA bytes, converting into buf when
// img is not already in that layout.
func rgbaPix(img image.Image, buf *image.RGBA) []byte {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Stride == 4*rgba.Rect.Dx() && rgba.Rect.Min == (image.Point{}) {
		return rgba.Pix
	}
	if nrgba, ok := img.(*image.NRGBA); ok && nrgba.Stride == 4*nrgba.Rect.Dx() && nrgba.Rect.Min == (image.Point{}) && opaque(nrgba) {
		return nrgba.Pix
	}
	draw.Draw(buf, buf.Bounds(), img, img.Bounds().Min, draw.Src)
	return buf.Pix
}

func opaque(img *image.NRGBA) bool {
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0xff {
			return false
		}
	}
	return true
}

func validateEncodeOptions(opts EncodeOptions) error {
	if opts.Output == "" {
		return fmt.Errorf("output path is required")
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return fmt.Errorf("invalid frame size %dx%d", opts.Width, opts.Height)
	}
	if opts.Width%2 != 0 || opts.Height%2 != 0 {
		return fmt.Errorf("frame size %dx%d must be even for %s", opts.Width, opts.Height, DefaultPixFmt)
	}
	if opts.FPS <= 0 {
		return fmt.Errorf("FPS must be positive")
	}
	if opts.CRF < 0 || opts.CRF > 51 {
		return fmt.Errorf("CRF must be between 0 and 51")
	}
	return nil
}
