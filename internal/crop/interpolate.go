package crop

// Interpolate returns n crops moving from start to destination. Only the x
// coordinate is interpolated; y, width and height snap to destination. When
// either crop is not Single the result is n copies of destination.
func Interpolate(start, destination Result, n int) []Result {
	if n <= 0 {
		return []Result{}
	}

	out := make([]Result, n)
	if start.Kind != KindSingle || destination.Kind != KindSingle || n == 1 {
		for i := range out {
			out[i] = destination
		}
		return out
	}

	from, to := start.Top, destination.Top
	step := 1.0 / float64(n-1)
	for i := range out {
		t := float64(i) * step
		out[i] = Single(Area{
			X:      from.X + t*(to.X-from.X),
			Y:      to.Y,
			Width:  to.Width,
			Height: to.Height,
		})
	}
	// land exactly on the destination regardless of float drift
	out[n-1] = destination
	return out
}
