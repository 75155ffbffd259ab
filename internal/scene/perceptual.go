// Package scene detects hard cuts between consecutive video frames.
package scene

import (
	"fmt"
	"image"
	"math"

	"github.com/kikiluvv/reframe/internal/media"
	"github.com/nfnt/resize"
)

const (
	thumbWidth    = 64
	thumbHeight   = 36
	histogramBins = 32
)

// Default thresholds
const (
	DefaultSimilarity = 0.4
	DefaultStart      = 0.8
)

// PerceptualDetector compares small grayscale thumbnails of consecutive
// frames. Frames whose luminance histograms correlate at or above start are
// never cuts; otherwise a cut is reported when the per-pixel similarity drops
// below similarity.
type PerceptualDetector struct {
	similarity float64
	start      float64

	cachedIndex int
	cached      []float64
}

// NewPerceptualDetector creates a detector with the given thresholds
func NewPerceptualDetector(similarity, start float64) *PerceptualDetector {
	return &PerceptualDetector{
		similarity:  similarity,
		start:       start,
		cachedIndex: -1,
	}
}

// IsCut reports whether current starts a new scene
func (d *PerceptualDetector) IsCut(previous, current media.Frame) (bool, error) {
	if previous.Image == nil || current.Image == nil {
		return false, fmt.Errorf("cannot compare frames %d and %d: missing image", previous.Index, current.Index)
	}

	prevThumb := d.thumbnail(previous)
	curThumb := d.thumbnail(current)

	if HistogramCorrelation(prevThumb, curThumb) >= d.start {
		return false, nil
	}
	return PixelSimilarity(prevThumb, curThumb) < d.similarity, nil
}

// thumbnail returns normalised luminance values; the most recent frame is
// cached since every frame is compared twice.
func (d *PerceptualDetector) thumbnail(f media.Frame) []float64 {
	if f.Index == d.cachedIndex && d.cached != nil {
		return d.cached
	}
	thumb := luminance(resize.Resize(thumbWidth, thumbHeight, f.Image, resize.Bilinear))
	d.cachedIndex = f.Index
	d.cached = thumb
	return thumb
}

func luminance(img image.Image) []float64 {
	bounds := img.Bounds()
	out := make([]float64, 0, bounds.Dx()*bounds.Dy())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			lum := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
			out = append(out, lum/255.0)
		}
	}
	return out
}

// HistogramCorrelation is the Pearson correlation of the luminance
// histograms of a and b, in [-1, 1]. Identical flat histograms correlate 1.
func HistogramCorrelation(a, b []float64) float64 {
	ha, hb := histogram(a), histogram(b)

	var meanA, meanB float64
	for i := range ha {
		meanA += ha[i]
		meanB += hb[i]
	}
	meanA /= histogramBins
	meanB /= histogramBins

	var num, varA, varB float64
	for i := range ha {
		da, db := ha[i]-meanA, hb[i]-meanB
		num += da * db
		varA += da * da
		varB += db * db
	}

	denom := math.Sqrt(varA * varB)
	if denom == 0 {
		if ha == hb {
			return 1
		}
		return 0
	}
	return num / denom
}

func histogram(values []float64) [histogramBins]float64 {
	var h [histogramBins]float64
	if len(values) == 0 {
		return h
	}
	for _, v := range values {
		bin := int(v * histogramBins)
		if bin >= histogramBins {
			bin = histogramBins - 1
		}
		if bin < 0 {
			bin = 0
		}
		h[bin]++
	}
	for i := range h {
		h[i] /= float64(len(values))
	}
	return h
}

// PixelSimilarity is 1 minus the mean absolute luminance difference
func PixelSimilarity(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 1
	}
	var diff float64
	for i := 0; i < n; i++ {
		diff += math.Abs(a[i] - b[i])
	}
	return 1 - diff/float64(n)
}
