package detect

import (
	"context"
	"fmt"
	"image"
	"math"
	"os"

	pigo "github.com/esimov/pigo/core"
	"github.com/rs/zerolog"
)

// FaceLabel names the objects a FaceDetector reports
const FaceLabel = "face"

// FaceOptions tunes the pigo cascade
type FaceOptions struct {
	CascadePath string
	// MinQuality drops detections with a lower cascade score.
	MinQuality float64
	// MinSizePct is the smallest face as a percentage of the short side.
	MinSizePct   int
	ShiftFactor  float64
	ScaleFactor  float64
	IoUThreshold float64
}

// DefaultFaceOptions returns the standard cascade tuning
func DefaultFaceOptions() FaceOptions {
	return FaceOptions{
		MinQuality:   10.0,
		MinSizePct:   1,
		ShiftFactor:  0.1,
		ScaleFactor:  1.1,
		IoUThreshold: 0.2,
	}
}

// faceSaturationQ is the cascade score mapped to full confidence
const faceSaturationQ = 20.0

// FaceDetector finds frontal faces with a pigo cascade
type FaceDetector struct {
	logger     zerolog.Logger
	classifier *pigo.Pigo
	opts       FaceOptions
}

// NewFaceDetector loads the cascade at opts.CascadePath
func NewFaceDetector(logger zerolog.Logger, opts FaceOptions) (*FaceDetector, error) {
	data, err := os.ReadFile(opts.CascadePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read face cascade: %w", err)
	}

	classifier, err := pigo.NewPigo().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack face cascade: %w", err)
	}

	logger.Info().Str("cascade", opts.CascadePath).Msg("face cascade loaded")

	return &FaceDetector{
		logger:     logger.With().Str("detector", "face").Logger(),
		classifier: classifier,
		opts:       opts,
	}, nil
}

// Detect runs the cascade over a grayscale copy of img
func (d *FaceDetector) Detect(ctx context.Context, img image.Image) ([]Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b := img.Bounds()
	cols, rows := b.Dx(), b.Dy()
	minSide := min(cols, rows)

	params := pigo.CascadeParams{
		MinSize:     max(20, minSide*d.opts.MinSizePct/100),
		MaxSize:     minSide,
		ShiftFactor: d.opts.ShiftFactor,
		ScaleFactor: d.opts.ScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: pigo.RgbToGrayscale(img),
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	dets := d.classifier.RunCascade(params, 0.0)
	dets = d.classifier.ClusterDetections(dets, d.opts.IoUThreshold)

	faces := make([]Object, 0, len(dets))
	for _, det := range dets {
		q := float64(det.Q)
		if q < d.opts.MinQuality {
			continue
		}
		half := det.Scale / 2
		rect := image.Rect(det.Col-half, det.Row-half, det.Col+half, det.Row+half)
		faces = append(faces, Object{
			Name:       FaceLabel,
			Confidence: math.Min(1, q/faceSaturationQ),
			Box:        boxFromRect(rect.Intersect(image.Rect(0, 0, cols, rows))),
		})
	}

	d.logger.Debug().Int("faces", len(faces)).Msg("face detection complete")
	return faces, nil
}

// Close is a no-op; the cascade lives in memory
func (d *FaceDetector) Close() error {
	return nil
}
