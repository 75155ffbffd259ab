package util

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// FormatDuration renders d as an ffmpeg timestamp (HH:MM:SS.mmm).
// Negative durations clamp to zero.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Millisecond)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	return fmt.Sprintf("%02d:%02d:%06.3f", int(h), int(m), d.Seconds())
}

// ParseFrameRate parses an ffprobe rational such as "30000/1001".
// Malformed or zero-denominator rates give 0.
func ParseFrameRate(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		return 0
	}
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	q, err := strconv.ParseFloat(den, 64)
	if err != nil || q == 0 {
		return 0
	}
	return n / q
}

// SecondsToFrames converts a duration in seconds to a whole frame count at
// fps, rounding to nearest. Non-positive inputs give 0.
func SecondsToFrames(seconds, fps float64) int {
	if seconds <= 0 || fps <= 0 {
		return 0
	}
	return int(math.Round(seconds * fps))
}
