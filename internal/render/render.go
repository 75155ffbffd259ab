// Package render turns smoothed crop decisions into output frames.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/kikiluvv/reframe/internal/crop"
)

// ErrEmptyCrop is returned when a crop area does not overlap the frame
var ErrEmptyCrop = errors.New("crop area is empty")

// Cropper cuts crop results out of frames and scales them to the output size
type Cropper struct {
	width  int
	height int
	filter imaging.ResampleFilter
}

// NewCropper creates a cropper producing width x height frames
func NewCropper(width, height int) (*Cropper, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid output size %dx%d", width, height)
	}
	return &Cropper{
		width:  width,
		height: height,
		filter: imaging.Lanczos,
	}, nil
}

// Size returns the output dimensions
func (c *Cropper) Size() (int, int) {
	return c.width, c.height
}

// Apply renders result from img.
//
// Single crops fill the output. Stacked crops fill the top and bottom halves.
// Resize letterboxes the area onto black.
func (c *Cropper) Apply(img image.Image, result crop.Result) (*image.NRGBA, error) {
	switch result.Kind {
	case crop.KindSingle:
		return c.fill(img, result.Top, c.width, c.height)

	case crop.KindStacked:
		topHeight := c.height / 2
		top, err := c.fill(img, result.Top, c.width, topHeight)
		if err != nil {
			return nil, fmt.Errorf("top half: %w", err)
		}
		bottom, err := c.fill(img, result.Bottom, c.width, c.height-topHeight)
		if err != nil {
			return nil, fmt.Errorf("bottom half: %w", err)
		}
		canvas := imaging.New(c.width, c.height, color.Black)
		canvas = imaging.Paste(canvas, top, image.Pt(0, 0))
		return imaging.Paste(canvas, bottom, image.Pt(0, topHeight)), nil

	case crop.KindResize:
		region, err := cut(img, result.Top)
		if err != nil {
			return nil, err
		}
		fitted := imaging.Fit(region, c.width, c.height, c.filter)
		return imaging.PasteCenter(imaging.New(c.width, c.height, color.Black), fitted), nil

	default:
		return nil, fmt.Errorf("unknown crop kind %d", result.Kind)
	}
}

func (c *Cropper) fill(img image.Image, area crop.Area, width, height int) (*image.NRGBA, error) {
	region, err := cut(img, area)
	if err != nil {
		return nil, err
	}
	return imaging.Resize(region, width, height, c.filter), nil
}

// cut crops area out of img, clipped to the frame bounds
func cut(img image.Image, area crop.Area) (*image.NRGBA, error) {
	b := img.Bounds()
	rect := image.Rect(
		b.Min.X+int(math.Round(area.X)),
		b.Min.Y+int(math.Round(area.Y)),
		b.Min.X+int(math.Round(area.X+area.Width)),
		b.Min.Y+int(math.Round(area.Y+area.Height)),
	).Intersect(b)
	if rect.Empty() {
		return nil, fmt.Errorf("%w: %s", ErrEmptyCrop, area)
	}
	return imaging.Crop(img, rect), nil
}
