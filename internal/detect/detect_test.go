package detect

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/kikiluvv/reframe/internal/crop"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func obj(name string, conf, x, y, w, h float64) Object {
	return Object{Name: name, Confidence: conf, Box: crop.NewArea(x, y, w, h)}
}

func TestFilter(t *testing.T) {
	opts := FilterOptions{Object: "person", MinConfidence: 0.7, MinArea: 0.0025}
	// 1920x1080 frame; 0.25% is 5184 px²
	objects := []Object{
		obj("person", 0.9, 0, 0, 100, 100),
		obj("person", 0.6, 0, 0, 100, 100),
		obj("person", 0.9, 0, 0, 50, 50),
		obj("car", 0.95, 0, 0, 200, 200),
	}

	kept := Filter(objects, opts, 1920, 1080)
	require.Len(t, kept, 1)
	assert.Equal(t, 100.0, kept[0].Box.Width)
}

func TestFilterBallSkipsArea(t *testing.T) {
	opts := FilterOptions{Object: "ball", MinConfidence: 0.7, MinArea: 0.0025}
	objects := []Object{
		obj("ball", 0.8, 10, 10, 8, 8),
		obj("ball", 0.5, 10, 10, 8, 8),
	}

	kept := Filter(objects, opts, 1920, 1080)
	assert.Len(t, kept, 1)
}

func TestIsGraphic(t *testing.T) {
	objects := []Object{
		obj("graphic", 0.9, 0, 0, 100, 100),
		obj("graphic", 0.79, 0, 0, 500, 500),
	}
	assert.Equal(t, 10000.0, CombinedArea(objects))

	// 10000 / 2073600 ≈ 0.0048
	assert.False(t, IsGraphic(objects, 1920, 1080, 0.009))
	assert.True(t, IsGraphic(objects, 1920, 1080, 0.004))
	assert.False(t, IsGraphic(objects, 1920, 1080, 0))
	assert.False(t, IsGraphic(objects, 0, 0, 0.004))
	assert.False(t, IsGraphic(nil, 1920, 1080, 0.009))
}

func TestIoU(t *testing.T) {
	a := crop.NewArea(0, 0, 10, 10)
	assert.Equal(t, 1.0, IoU(a, a))
	assert.Equal(t, 0.0, IoU(a, crop.NewArea(20, 20, 10, 10)))
	assert.InDelta(t, 50.0/150.0, IoU(a, crop.NewArea(5, 0, 10, 10)), 1e-9)
}

func TestNonMaxSuppression(t *testing.T) {
	objects := []Object{
		obj("person", 0.7, 2, 0, 100, 100),
		obj("person", 0.9, 0, 0, 100, 100),
		obj("ball", 0.8, 0, 0, 100, 100),
		obj("person", 0.6, 500, 0, 100, 100),
	}

	kept := NonMaxSuppression(objects, 0.45)
	require.Len(t, kept, 3)
	assert.Equal(t, 0.9, kept[0].Confidence)
	assert.Equal(t, "ball", kept[1].Name, "different classes never suppress each other")
	assert.Equal(t, 500.0, kept[2].Box.X)
}

func TestAnchorCount(t *testing.T) {
	assert.Equal(t, 8400, anchorCount(640))
	assert.Equal(t, 2100, anchorCount(320))
}

func TestLetterboxMapping(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 1280, 720))
	lb := newLetterbox(src, 640)

	assert.InDelta(t, 0.5, lb.scale, 1e-9)
	assert.Equal(t, 0.0, lb.padX)
	assert.Equal(t, 140.0, lb.padY)

	box := lb.toSource(100, 190, 50, 100)
	assert.InDelta(t, 200, box.X, 1e-9)
	assert.InDelta(t, 100, box.Y, 1e-9)
	assert.InDelta(t, 100, box.Width, 1e-9)
	assert.InDelta(t, 200, box.Height, 1e-9)

	// boxes spilling into the padding are clipped to the frame
	clipped := lb.toSource(-20, 100, 60, 60)
	assert.Equal(t, 0.0, clipped.X)
	assert.Equal(t, 0.0, clipped.Y)
}

func TestLetterboxPixels(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 64, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 64; x++ {
			src.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}

	lb := newLetterbox(src, 64)
	data := lb.pixels()
	require.Len(t, data, 3*64*64)

	plane := 64 * 64
	// top row is padding
	assert.InDelta(t, 114.0/255.0, data[0], 1e-6)
	// center is the red frame
	center := 32*64 + 32
	assert.InDelta(t, 1.0, data[center], 0.01)
	assert.InDelta(t, 0.0, data[plane+center], 0.01)
	assert.InDelta(t, 0.0, data[2*plane+center], 0.01)
}

func TestDecodePredictions(t *testing.T) {
	labels := []string{"person", "ball"}
	anchors := 3
	rows := 4 + len(labels)
	data := make([]float32, rows*anchors)
	set := func(row, anchor int, v float32) { data[row*anchors+anchor] = v }

	// anchor 0: confident person
	set(0, 0, 100)
	set(1, 0, 100)
	set(2, 0, 20)
	set(3, 0, 40)
	set(4, 0, 0.9)
	set(5, 0, 0.1)
	// anchor 1: weak
	set(4, 1, 0.2)
	// anchor 2: ball
	set(0, 2, 50)
	set(1, 2, 50)
	set(2, 2, 10)
	set(3, 2, 10)
	set(5, 2, 0.6)

	lb := letterbox{scale: 1, srcW: 640, srcH: 640}
	objects := decodePredictions(data, labels, anchors, 0.5, lb)
	require.Len(t, objects, 2)

	assert.Equal(t, "person", objects[0].Name)
	assert.InDelta(t, 0.9, objects[0].Confidence, 1e-6)
	assert.Equal(t, crop.NewArea(90, 80, 20, 40), objects[0].Box)
	assert.Equal(t, "ball", objects[1].Name)

	assert.Nil(t, decodePredictions(data[:4], labels, anchors, 0.5, lb))
}

func TestSaliencyDetector(t *testing.T) {
	d, err := NewSaliencyDetector(zerolog.Nop(), 9, 16)
	require.NoError(t, err)
	defer d.Close()

	img := image.NewRGBA(image.Rect(0, 0, 320, 180))
	for y := 60; y < 120; y++ {
		for x := 200; x < 240; x++ {
			img.Set(x, y, color.RGBA{R: 220, G: 30, B: 30, A: 255})
		}
	}

	objects, err := d.Detect(context.Background(), img)
	require.NoError(t, err)
	require.Len(t, objects, 1)

	o := objects[0]
	assert.Equal(t, SaliencyLabel, o.Name)
	assert.Greater(t, o.Box.Width, 0.0)
	assert.LessOrEqual(t, o.Box.X+o.Box.Width, 320.0)
	assert.LessOrEqual(t, o.Box.Y+o.Box.Height, 180.0)
}

func TestSaliencyDetectorCancelled(t *testing.T) {
	d, err := NewSaliencyDetector(zerolog.Nop(), 9, 16)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// either the analysis or the cancellation may win the race
	_, err = d.Detect(ctx, image.NewRGBA(image.Rect(0, 0, 64, 64)))
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func TestSaliencyDetectorInvalidRatio(t *testing.T) {
	_, err := NewSaliencyDetector(zerolog.Nop(), 0, 16)
	assert.Error(t, err)
}
