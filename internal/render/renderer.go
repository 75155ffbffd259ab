package render

import (
	"fmt"
	"image"

	"github.com/kikiluvv/reframe/internal/smoothing"
	"github.com/rs/zerolog"
)

// Sink consumes rendered frames in order
type Sink interface {
	WriteFrame(img image.Image) error
}

// Renderer crops every emitted frame and forwards it to a sink
type Renderer struct {
	logger  zerolog.Logger
	cropper *Cropper
	sink    Sink
	written int
	last    int
}

// NewRenderer creates a renderer writing to sink
func NewRenderer(logger zerolog.Logger, cropper *Cropper, sink Sink) *Renderer {
	return &Renderer{
		logger:  logger.With().Str("component", "renderer").Logger(),
		cropper: cropper,
		sink:    sink,
		last:    -1,
	}
}

// Emit renders outputs in order. Frames must arrive strictly increasing.
func (r *Renderer) Emit(outputs ...smoothing.Output) error {
	for _, out := range outputs {
		if out.Frame.Index <= r.last {
			return fmt.Errorf("frame %d emitted after frame %d", out.Frame.Index, r.last)
		}

		img, err := r.cropper.Apply(out.Frame.Image, out.Crop)
		if err != nil {
			return fmt.Errorf("render frame %d: %w", out.Frame.Index, err)
		}
		if err := r.sink.WriteFrame(img); err != nil {
			return fmt.Errorf("write frame %d: %w", out.Frame.Index, err)
		}

		r.last = out.Frame.Index
		r.written++

		r.logger.Trace().
			Int("frame", out.Frame.Index).
			Stringer("crop", out.Crop).
			Msg("frame rendered")
	}
	return nil
}

// Written returns the number of frames written to the sink
func (r *Renderer) Written() int {
	return r.written
}
