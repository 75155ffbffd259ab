package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/kikiluvv/reframe/internal/crop"
	"github.com/kikiluvv/reframe/internal/detect"
	"github.com/kikiluvv/reframe/internal/media"
	"github.com/kikiluvv/reframe/internal/render"
	"github.com/kikiluvv/reframe/internal/smoothing"
	"github.com/rs/zerolog"
)

// GraphicOptions controls when the graphic detector runs
type GraphicOptions struct {
	Threshold float64
	// Keep checks frames without objects of interest.
	Keep bool
	// Prioritize checks every frame.
	Prioritize bool
}

// Reframer runs the per-frame loop: detect, compute a crop, smooth, render
type Reframer struct {
	logger    zerolog.Logger
	detector  detect.Detector
	graphic   detect.Detector
	filter    detect.FilterOptions
	graphics  GraphicOptions
	cropOpts  crop.CalculateOptions
	processor smoothing.Processor
	renderer  *render.Renderer
	ball      *detect.BallTracker
}

// ReframerConfig wires a Reframer. Graphic may be nil.
type ReframerConfig struct {
	Detector  detect.Detector
	Graphic   detect.Detector
	Filter    detect.FilterOptions
	Graphics  GraphicOptions
	Crop      crop.CalculateOptions
	Processor smoothing.Processor
	Renderer  *render.Renderer
}

// NewReframer creates a reframing loop
func NewReframer(logger zerolog.Logger, cfg ReframerConfig) *Reframer {
	r := &Reframer{
		logger:    logger.With().Str("component", "reframer").Logger(),
		detector:  cfg.Detector,
		graphic:   cfg.Graphic,
		filter:    cfg.Filter,
		graphics:  cfg.Graphics,
		cropOpts:  cfg.Crop,
		processor: cfg.Processor,
		renderer:  cfg.Renderer,
	}
	if cfg.Filter.Object == detect.BallLabel {
		r.ball = detect.NewBallTracker()
	}
	return r
}

// Run consumes src until io.EOF or cancellation. Buffered frames are always
// finalized and rendered; on cancellation the returned error wraps ctx.Err().
func (r *Reframer) Run(ctx context.Context, src FrameSource) (Stats, error) {
	var stats Stats
	var runErr error

	for {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		frame, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("decode frame %d: %w", stats.Decoded, err)
		}
		stats.Decoded++

		a, err := r.analyze(ctx, frame)
		if err != nil {
			if ctx.Err() != nil {
				runErr = ctx.Err()
				break
			}
			return stats, err
		}
		switch {
		case a.graphic:
			stats.Graphic++
		case a.predicted:
			stats.Predicted++
		case a.input.ObjectCount > 0:
			stats.Detected++
		}

		outputs, err := r.processor.Process(a.input)
		if err != nil {
			return stats, fmt.Errorf("smooth frame %d: %w", frame.Index, err)
		}
		if err := r.renderer.Emit(outputs...); err != nil {
			return stats, err
		}
	}

	if err := r.renderer.Emit(r.processor.Finalize()...); err != nil {
		return stats, err
	}
	stats.Written = r.renderer.Written()

	if runErr != nil {
		r.logger.Warn().Int("frames", stats.Decoded).Msg("reframing cancelled")
		return stats, fmt.Errorf("reframing interrupted: %w", runErr)
	}
	return stats, nil
}

// analysis is the per-frame outcome of detection
type analysis struct {
	input     smoothing.Input
	graphic   bool
	predicted bool
}

// analyze detects objects in frame and computes its raw crop
func (r *Reframer) analyze(ctx context.Context, frame media.Frame) (analysis, error) {
	w, h := float64(frame.Width()), float64(frame.Height())

	objects, err := r.detector.Detect(ctx, frame.Image)
	if err != nil {
		return analysis{}, fmt.Errorf("detect frame %d: %w", frame.Index, err)
	}
	objects = detect.Filter(objects, r.filter, w, h)

	predicted := false
	if r.ball != nil {
		objects, predicted = r.ball.Track(objects, w, h)
	}

	graphic := false
	if r.graphic != nil && (r.graphics.Prioritize || (len(objects) == 0 && r.graphics.Keep)) {
		boxes, err := r.graphic.Detect(ctx, frame.Image)
		if err != nil {
			return analysis{}, fmt.Errorf("graphic detect frame %d: %w", frame.Index, err)
		}
		graphic = detect.IsGraphic(boxes, w, h, r.graphics.Threshold)
	}

	opts := r.cropOpts
	opts.Graphic = graphic
	result := crop.Calculate(opts, w, h, detect.Boxes(objects))

	r.logger.Trace().
		Int("frame", frame.Index).
		Int("objects", len(objects)).
		Bool("graphic", graphic).
		Bool("predicted", predicted).
		Stringer("crop", result).
		Msg("raw crop")

	return analysis{
		input: smoothing.Input{
			Frame:       frame,
			Crop:        result,
			ObjectCount: len(objects),
		},
		graphic:   graphic,
		predicted: predicted,
	}, nil
}
