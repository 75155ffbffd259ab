package crop

import (
	"math"
	"sort"
)

// CalculateOptions controls how a raw crop is derived from detections
type CalculateOptions struct {
	// AspectRatio is output width / output height (9/16 for vertical video).
	AspectRatio float64
	UseStack    bool
	Graphic     bool
}

// DefaultAspectRatio is the 1080x1920 portrait output
const DefaultAspectRatio = 9.0 / 16.0

// Calculate derives the raw crop candidate for one frame from the boxes of
// the detected objects of interest.
func Calculate(opts CalculateOptions, frameWidth, frameHeight float64, objects []Area) Result {
	if opts.Graphic {
		return Resize(NewArea(0, 0, frameWidth, frameHeight))
	}

	aspect := opts.AspectRatio
	if aspect <= 0 {
		aspect = DefaultAspectRatio
	}
	cropWidth := math.Min(frameWidth, frameHeight*aspect)

	if len(objects) == 0 {
		return Single(NewArea((frameWidth-cropWidth)/2, 0, cropWidth, frameHeight))
	}

	union := boundingBox(objects)
	if opts.UseStack && len(objects) >= 2 && union.Width > cropWidth {
		return stackedCrop(frameWidth, frameHeight, aspect, objects)
	}

	cx, _ := union.Center()
	return Single(NewArea(clampOrigin(cx-cropWidth/2, cropWidth, frameWidth), 0, cropWidth, frameHeight))
}

// stackedCrop builds two half-height windows around the two largest objects,
// the leftmost on top.
func stackedCrop(frameWidth, frameHeight, aspect float64, objects []Area) Result {
	largest := append([]Area(nil), objects...)
	sort.SliceStable(largest, func(i, j int) bool {
		return largest[i].Width*largest[i].Height > largest[j].Width*largest[j].Height
	})
	first, second := largest[0], largest[1]
	if first.X > second.X {
		first, second = second, first
	}

	halfHeight := frameHeight / 2
	width := math.Min(frameWidth, frameHeight*aspect)

	window := func(a Area) Area {
		cx, cy := a.Center()
		return NewArea(
			clampOrigin(cx-width/2, width, frameWidth),
			clampOrigin(cy-halfHeight/2, halfHeight, frameHeight),
			width,
			halfHeight,
		)
	}
	return Stacked(window(first), window(second))
}

func boundingBox(objects []Area) Area {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, o := range objects {
		minX = math.Min(minX, o.X)
		minY = math.Min(minY, o.Y)
		maxX = math.Max(maxX, o.X+o.Width)
		maxY = math.Max(maxY, o.Y+o.Height)
	}
	return NewArea(minX, minY, maxX-minX, maxY-minY)
}

func clampOrigin(origin, size, limit float64) float64 {
	if origin+size > limit {
		origin = limit - size
	}
	return math.Max(0, origin)
}
