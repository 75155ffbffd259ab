package detect

import (
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/muesli/smartcrop"
	"github.com/rs/zerolog"
)

// SaliencyLabel names the single object a SaliencyDetector reports
const SaliencyLabel = "salient"

// SaliencyDetector reports the most interesting region of a frame as one
// object, for footage without a usable object model.
type SaliencyDetector struct {
	logger   zerolog.Logger
	analyzer smartcrop.Analyzer
	ratioW   int
	ratioH   int
}

// NewSaliencyDetector creates a detector whose region has the given aspect
// ratio, e.g. 9x16.
func NewSaliencyDetector(logger zerolog.Logger, ratioW, ratioH int) (*SaliencyDetector, error) {
	if ratioW <= 0 || ratioH <= 0 {
		return nil, fmt.Errorf("invalid saliency ratio %dx%d", ratioW, ratioH)
	}
	return &SaliencyDetector{
		logger:   logger.With().Str("detector", "saliency").Logger(),
		analyzer: smartcrop.NewAnalyzer(&resizer{filter: imaging.Linear}),
		ratioW:   ratioW,
		ratioH:   ratioH,
	}, nil
}

// Detect runs the saliency analysis, honouring ctx cancellation
func (d *SaliencyDetector) Detect(ctx context.Context, img image.Image) ([]Object, error) {
	type result struct {
		rect image.Rectangle
		err  error
	}
	resultChan := make(chan result, 1)

	go func() {
		rect, err := d.analyzer.FindBestCrop(img, d.ratioW, d.ratioH)
		resultChan <- result{rect: rect, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultChan:
		if res.err != nil {
			return nil, fmt.Errorf("finding salient region: %w", res.err)
		}
		if res.rect.Empty() {
			return nil, nil
		}
		return []Object{{
			Name:       SaliencyLabel,
			Confidence: 1,
			Box:        boxFromRect(res.rect),
		}}, nil
	}
}

// Close is a no-op
func (d *SaliencyDetector) Close() error {
	return nil
}

// resizer implements the smartcrop.Resizer interface
type resizer struct {
	filter imaging.ResampleFilter
}

func (r *resizer) Resize(img image.Image, width, height uint) image.Image {
	return imaging.Resize(img, int(width), int(height), r.filter)
}
