package scene

import (
	"sort"
	"time"

	"github.com/kikiluvv/reframe/internal/media"
)

// TimelineDetector reports cuts from a precomputed list of scene change
// timestamps, such as the output of ffmpeg scene detection.
type TimelineDetector struct {
	cuts []time.Duration
}

// NewTimelineDetector creates a detector from scene change timestamps
func NewTimelineDetector(cuts []time.Duration) *TimelineDetector {
	sorted := append([]time.Duration(nil), cuts...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return &TimelineDetector{cuts: sorted}
}

// IsCut reports whether a scene change falls in (previous, current]
func (d *TimelineDetector) IsCut(previous, current media.Frame) (bool, error) {
	i := sort.Search(len(d.cuts), func(i int) bool {
		return d.cuts[i] > previous.Timestamp
	})
	return i < len(d.cuts) && d.cuts[i] <= current.Timestamp, nil
}

// Len returns the number of known scene changes
func (d *TimelineDetector) Len() int {
	return len(d.cuts)
}
