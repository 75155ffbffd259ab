// Package detect finds objects of interest in decoded frames.
package detect

import (
	"context"
	"image"
	"math"
	"sort"

	"github.com/kikiluvv/reframe/internal/crop"
)

// Object is a single detection in frame pixel coordinates
type Object struct {
	Name       string
	Confidence float64
	Box        crop.Area
}

// Detector finds objects in a frame
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]Object, error)
	Close() error
}

// BallLabel skips the area threshold and enables position prediction
const BallLabel = "ball"

// graphicMinConfidence is the confidence a box needs to count toward the
// graphic area
const graphicMinConfidence = 0.80

// FilterOptions selects the objects of interest
type FilterOptions struct {
	Object        string
	MinConfidence float64
	// MinArea is the minimum object area as a fraction of the frame area.
	MinArea float64
}

// Filter keeps objects matching the wanted name that clear the confidence
// and area thresholds.
func Filter(objects []Object, opts FilterOptions, frameWidth, frameHeight float64) []Object {
	frameArea := frameWidth * frameHeight
	kept := make([]Object, 0, len(objects))
	for _, o := range objects {
		if o.Confidence < opts.MinConfidence || o.Name != opts.Object {
			continue
		}
		if opts.Object != BallLabel {
			if frameArea <= 0 || o.Box.Width*o.Box.Height/frameArea < opts.MinArea {
				continue
			}
		}
		kept = append(kept, o)
	}
	return kept
}

// Boxes returns the bounding boxes of objects
func Boxes(objects []Object) []crop.Area {
	boxes := make([]crop.Area, len(objects))
	for i, o := range objects {
		boxes[i] = o.Box
	}
	return boxes
}

func boxFromRect(r image.Rectangle) crop.Area {
	return crop.NewArea(float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy()))
}

// CombinedArea sums the areas of confident boxes
func CombinedArea(objects []Object) float64 {
	var total float64
	for _, o := range objects {
		if o.Confidence >= graphicMinConfidence {
			total += o.Box.Width * o.Box.Height
		}
	}
	return total
}

// IsGraphic reports whether confident boxes cover at least threshold of the
// frame. A non-positive threshold or empty frame is never graphic.
func IsGraphic(objects []Object, frameWidth, frameHeight, threshold float64) bool {
	if threshold <= 0 {
		return false
	}
	frameArea := frameWidth * frameHeight
	if frameArea <= 0 {
		return false
	}
	return CombinedArea(objects) >= frameArea*threshold
}

// IoU is the intersection over union of two boxes
func IoU(a, b crop.Area) float64 {
	x1 := math.Max(a.X, b.X)
	y1 := math.Max(a.Y, b.Y)
	x2 := math.Min(a.X+a.Width, b.X+b.Width)
	y2 := math.Min(a.Y+a.Height, b.Y+b.Height)

	inter := math.Max(0, x2-x1) * math.Max(0, y2-y1)
	union := a.Width*a.Height + b.Width*b.Height - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// NonMaxSuppression keeps the most confident box of every overlapping group
// of same-name detections.
func NonMaxSuppression(objects []Object, iouThreshold float64) []Object {
	sorted := append([]Object(nil), objects...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	kept := make([]Object, 0, len(sorted))
	for _, candidate := range sorted {
		suppressed := false
		for _, k := range kept {
			if k.Name == candidate.Name && IoU(k.Box, candidate.Box) > iouThreshold {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, candidate)
		}
	}
	return kept
}
