package pipeline

import (
	"time"

	"github.com/kikiluvv/reframe/internal/media"
)

// outputName is the file written inside a job directory
const outputName = "processed_video.mp4"

// silentName holds the encoded video before audio is muxed back
const silentName = "video_only.mp4"

// RunOptions configures a single reframing run
type RunOptions struct {
	Input string
	// Output overrides the default path inside the job directory.
	Output string
}

// Job identifies one reframing run
type Job struct {
	ID        string
	Input     string
	Dir       string
	Output    string
	StartedAt time.Time
}

// Result summarises a finished run
type Result struct {
	Job       Job
	Stats     Stats
	Elapsed   time.Duration
	HasAudio  bool
	Cancelled bool
}

// Stats counts frames through the reframing loop. Graphic, Predicted and
// Detected are exclusive, in that order.
type Stats struct {
	Decoded   int
	Written   int
	Graphic   int
	Detected  int
	Predicted int
}

// FrameSource yields decoded frames in order and io.EOF at the end
type FrameSource interface {
	Next() (media.Frame, error)
}
