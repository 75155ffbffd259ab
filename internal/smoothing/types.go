// Package smoothing turns a noisy per-frame stream of crop candidates into a
// stable sequence of committed crops.
//
// Processors are single-owner state machines: Process is called once per
// decoded frame in input order and returns the frames that became ready for
// rendering, always in input order. Finalize flushes whatever is still
// buffered at end of stream so no frame is ever dropped.
package smoothing

import (
	"github.com/kikiluvv/reframe/internal/crop"
	"github.com/kikiluvv/reframe/internal/media"
)

// Input is one frame together with the raw crop computed for it
type Input struct {
	Frame       media.Frame
	Crop        crop.Result
	ObjectCount int
}

// Output is a frame whose crop has been decided
type Output struct {
	Frame media.Frame
	Crop  crop.Result
}

// Processor is a crop smoothing strategy
type Processor interface {
	Process(in Input) ([]Output, error)
	Finalize() []Output
}

// CutDetector reports hard scene boundaries between consecutive frames
type CutDetector interface {
	IsCut(previous, current media.Frame) (bool, error)
}

// Passthrough emits every frame immediately with its own crop. It is used
// when the smoothing window is zero.
type Passthrough struct{}

// Process emits the frame unchanged
func (Passthrough) Process(in Input) ([]Output, error) {
	return []Output{{Frame: in.Frame, Crop: in.Crop}}, nil
}

// Finalize has nothing buffered
func (Passthrough) Finalize() []Output {
	return nil
}
