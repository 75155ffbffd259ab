package crop

import "math"

// IsSimilar reports whether two crops are the same within tolerance percent of
// the frame width. Only crops of the same kind can be similar, and Resize
// crops never are.
func IsSimilar(a, b Result, frameWidth, tolerance float64) bool {
	switch {
	case a.Kind == KindSingle && b.Kind == KindSingle:
		return a.Top.WithinPercentage(b.Top, frameWidth, tolerance)
	case a.Kind == KindStacked && b.Kind == KindStacked:
		return a.Top.WithinPercentage(b.Top, frameWidth, tolerance) &&
			a.Bottom.WithinPercentage(b.Bottom, frameWidth, tolerance)
	default:
		return false
	}
}

// IsClassSame reports whether two object counts fall in the same class:
// none, one or several.
func IsClassSame(a, b int) bool {
	return countClass(a) == countClass(b)
}

func countClass(n int) int {
	switch {
	case n <= 0:
		return 0
	case n == 1:
		return 1
	default:
		return 2
	}
}

// Select picks the crop to keep when a pending change has to be resolved.
// Collapsing to a single subject is preferred, splitting a single subject is
// not; everything else goes to whichever candidate is closest to latest.
func Select(previous, change, latest Result) Result {
	switch {
	case previous.Kind == KindStacked && change.Kind == KindSingle:
		return change
	case previous.Kind == KindResize && change.Kind == KindSingle:
		return change
	case previous.Kind == KindSingle && change.Kind == KindStacked:
		return previous
	case previous.Kind == KindSingle && change.Kind == KindResize:
		return previous
	default:
		return Closest(previous, change, latest)
	}
}

// Closest returns the candidate whose center is nearest to latest's center.
// Ties go to previous.
func Closest(previous, change, latest Result) Result {
	lx, ly := latest.Center()
	if centerDistance(change, lx, ly) < centerDistance(previous, lx, ly) {
		return change
	}
	return previous
}

func centerDistance(r Result, x, y float64) float64 {
	cx, cy := r.Center()
	return math.Hypot(cx-x, cy-y)
}
