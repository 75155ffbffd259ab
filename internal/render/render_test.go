package render

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/kikiluvv/reframe/internal/crop"
	"github.com/kikiluvv/reframe/internal/media"
	"github.com/kikiluvv/reframe/internal/smoothing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// split is red on the left half and blue on the right
func split(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x < w/2 {
				img.Set(x, y, color.RGBA{R: 255, A: 255})
			} else {
				img.Set(x, y, color.RGBA{B: 255, A: 255})
			}
		}
	}
	return img
}

func rgb(img image.Image, x, y int) (uint8, uint8, uint8) {
	r, g, b, _ := img.At(x, y).RGBA()
	return uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)
}

func TestNewCropperInvalidSize(t *testing.T) {
	_, err := NewCropper(0, 100)
	assert.Error(t, err)
}

func TestApplySingle(t *testing.T) {
	c, err := NewCropper(90, 160)
	require.NoError(t, err)

	out, err := c.Apply(split(320, 180), crop.Single(crop.NewArea(200, 0, 100, 180)))
	require.NoError(t, err)

	assert.Equal(t, image.Rect(0, 0, 90, 160), out.Bounds())
	r, _, b := rgb(out, 45, 80)
	assert.Equal(t, uint8(0), r)
	assert.Equal(t, uint8(255), b)
}

func TestApplyStacked(t *testing.T) {
	c, err := NewCropper(90, 160)
	require.NoError(t, err)

	result := crop.Stacked(crop.NewArea(0, 0, 100, 90), crop.NewArea(220, 0, 100, 90))
	out, err := c.Apply(split(320, 180), result)
	require.NoError(t, err)

	assert.Equal(t, image.Rect(0, 0, 90, 160), out.Bounds())
	r, _, _ := rgb(out, 45, 40)
	assert.Equal(t, uint8(255), r, "top half comes from the left crop")
	_, _, b := rgb(out, 45, 120)
	assert.Equal(t, uint8(255), b, "bottom half comes from the right crop")
}

func TestApplyResizeLetterboxes(t *testing.T) {
	c, err := NewCropper(90, 160)
	require.NoError(t, err)

	out, err := c.Apply(split(320, 180), crop.Resize(crop.NewArea(0, 0, 320, 180)))
	require.NoError(t, err)

	assert.Equal(t, image.Rect(0, 0, 90, 160), out.Bounds())
	r, g, b := rgb(out, 45, 2)
	assert.Equal(t, [3]uint8{0, 0, 0}, [3]uint8{r, g, b}, "padding is black")
	r, _, _ = rgb(out, 10, 80)
	assert.Greater(t, r, uint8(200))
}

func TestApplyClipsToFrame(t *testing.T) {
	c, err := NewCropper(90, 160)
	require.NoError(t, err)

	out, err := c.Apply(split(320, 180), crop.Single(crop.NewArea(280, -20, 100, 220)))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 90, 160), out.Bounds())
}

func TestApplyEmptyCrop(t *testing.T) {
	c, err := NewCropper(90, 160)
	require.NoError(t, err)

	_, err = c.Apply(split(320, 180), crop.Single(crop.NewArea(400, 0, 100, 180)))
	assert.ErrorIs(t, err, ErrEmptyCrop)

	_, err = c.Apply(split(320, 180), crop.Result{})
	assert.Error(t, err)
}

type memorySink struct {
	frames []image.Image
	err    error
}

func (s *memorySink) WriteFrame(img image.Image) error {
	if s.err != nil {
		return s.err
	}
	s.frames = append(s.frames, img)
	return nil
}

func output(index int, result crop.Result) smoothing.Output {
	return smoothing.Output{
		Frame: media.Frame{Index: index, Image: split(320, 180)},
		Crop:  result,
	}
}

func TestRendererEmit(t *testing.T) {
	c, err := NewCropper(90, 160)
	require.NoError(t, err)
	sink := &memorySink{}
	r := NewRenderer(zerolog.Nop(), c, sink)

	single := crop.Single(crop.NewArea(0, 0, 100, 180))
	require.NoError(t, r.Emit(output(0, single), output(1, single)))
	require.NoError(t, r.Emit())
	require.NoError(t, r.Emit(output(2, single)))

	assert.Equal(t, 3, r.Written())
	assert.Len(t, sink.frames, 3)
}

func TestRendererRejectsReorder(t *testing.T) {
	c, err := NewCropper(90, 160)
	require.NoError(t, err)
	r := NewRenderer(zerolog.Nop(), c, &memorySink{})

	single := crop.Single(crop.NewArea(0, 0, 100, 180))
	require.NoError(t, r.Emit(output(3, single)))
	assert.Error(t, r.Emit(output(3, single)))
	assert.Error(t, r.Emit(output(1, single)))
}

func TestRendererSinkError(t *testing.T) {
	c, err := NewCropper(90, 160)
	require.NoError(t, err)
	boom := errors.New("pipe closed")
	r := NewRenderer(zerolog.Nop(), c, &memorySink{err: boom})

	err = r.Emit(output(0, crop.Single(crop.NewArea(0, 0, 100, 180))))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, r.Written())
}
