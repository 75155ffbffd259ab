package detect

import (
	"math"

	"github.com/kikiluvv/reframe/internal/crop"
)

// maxPredictedFrames bounds how long a lost ball is extrapolated
const maxPredictedFrames = 15

// PredictBox extrapolates the next box from the three previous ones using
// the last velocity plus half the change in velocity. The size is taken from
// last and the origin is clamped to [0, maxX] x [0, maxY].
func PredictBox(threeAgo, twoAgo, last crop.Area, maxX, maxY float64) crop.Area {
	v1x, v1y := twoAgo.X-threeAgo.X, twoAgo.Y-threeAgo.Y
	v2x, v2y := last.X-twoAgo.X, last.Y-twoAgo.Y

	x := last.X + v2x + 0.5*(v2x-v1x)
	y := last.Y + v2y + 0.5*(v2y-v1y)

	return crop.NewArea(
		math.Min(math.Max(x, 0), maxX),
		math.Min(math.Max(y, 0), maxY),
		last.Width,
		last.Height,
	)
}

// BallTracker fills in frames where the ball was not detected with a
// position predicted from the last three known boxes.
type BallTracker struct {
	recent    []crop.Area
	predicted int
}

// NewBallTracker creates an empty tracker
func NewBallTracker() *BallTracker {
	return &BallTracker{recent: make([]crop.Area, 0, 3)}
}

// Track returns objects unchanged when a ball was detected and records the
// most confident one. Otherwise it returns a single predicted ball, or nil
// when fewer than three boxes are known or the ball has been lost for too
// long. The second result reports whether the box was predicted.
func (t *BallTracker) Track(objects []Object, frameWidth, frameHeight float64) ([]Object, bool) {
	if len(objects) > 0 {
		best := objects[0]
		for _, o := range objects[1:] {
			if o.Confidence > best.Confidence {
				best = o
			}
		}
		t.push(best.Box)
		t.predicted = 0
		return objects, false
	}

	if len(t.recent) < 3 || t.predicted >= maxPredictedFrames {
		return nil, false
	}

	box := PredictBox(t.recent[0], t.recent[1], t.recent[2], frameWidth, frameHeight)
	t.push(box)
	t.predicted++
	return []Object{{Name: BallLabel, Box: box}}, true
}

func (t *BallTracker) push(box crop.Area) {
	if len(t.recent) == 3 {
		copy(t.recent, t.recent[1:])
		t.recent = t.recent[:2]
	}
	t.recent = append(t.recent, box)
}
