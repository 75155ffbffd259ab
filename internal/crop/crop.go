package crop

import (
	"fmt"
	"math"
)

// Area is a rectangle in frame pixel coordinates
type Area struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// NewArea creates an area, clamping negative sizes to zero
func NewArea(x, y, width, height float64) Area {
	return Area{
		X:      x,
		Y:      y,
		Width:  math.Max(0, width),
		Height: math.Max(0, height),
	}
}

// Center returns the center point of the area
func (a Area) Center() (float64, float64) {
	return a.X + a.Width/2, a.Y + a.Height/2
}

// WithinPercentage reports whether every coordinate of a and b differs by at
// most percentage% of frameWidth.
func (a Area) WithinPercentage(b Area, frameWidth, percentage float64) bool {
	if percentage < 0 {
		percentage = 0
	}
	limit := frameWidth * percentage / 100.0

	return math.Abs(a.X-b.X) <= limit &&
		math.Abs(a.Y-b.Y) <= limit &&
		math.Abs(a.Width-b.Width) <= limit &&
		math.Abs(a.Height-b.Height) <= limit
}

func (a Area) String() string {
	return fmt.Sprintf("{x:%.1f y:%.1f w:%.1f h:%.1f}", a.X, a.Y, a.Width, a.Height)
}

// Kind tags the variant held by a Result
type Kind int

const (
	// KindSingle crops the frame to one rectangle.
	KindSingle Kind = iota + 1
	// KindStacked crops two rectangles rendered as top/bottom halves.
	KindStacked
	// KindResize keeps the whole frame.
	KindResize
)

func (k Kind) String() string {
	switch k {
	case KindSingle:
		return "single"
	case KindStacked:
		return "stacked"
	case KindResize:
		return "resize"
	default:
		return "unknown"
	}
}

// Result is the crop decision for a frame. Bottom is only meaningful for
// KindStacked. Results are plain values and safe to copy.
type Result struct {
	Kind   Kind
	Top    Area
	Bottom Area
}

// Single creates a single-rectangle crop
func Single(a Area) Result {
	return Result{Kind: KindSingle, Top: a}
}

// Stacked creates a two-rectangle split-screen crop
func Stacked(top, bottom Area) Result {
	return Result{Kind: KindStacked, Top: top, Bottom: bottom}
}

// Resize creates a whole-frame passthrough
func Resize(a Area) Result {
	return Result{Kind: KindResize, Top: a}
}

// Center returns the center of the crop; for stacked crops it is the
// midpoint of both component centers.
func (r Result) Center() (float64, float64) {
	x, y := r.Top.Center()
	if r.Kind == KindStacked {
		bx, by := r.Bottom.Center()
		return (x + bx) / 2, (y + by) / 2
	}
	return x, y
}

func (r Result) String() string {
	switch r.Kind {
	case KindStacked:
		return fmt.Sprintf("stacked(%s, %s)", r.Top, r.Bottom)
	case KindSingle, KindResize:
		return fmt.Sprintf("%s(%s)", r.Kind, r.Top)
	default:
		return "none"
	}
}
