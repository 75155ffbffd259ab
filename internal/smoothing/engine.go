package smoothing

import (
	"fmt"

	"github.com/kikiluvv/reframe/internal/crop"
	"github.com/kikiluvv/reframe/internal/media"
	"github.com/rs/zerolog"
)

// minTrustedRun is the shortest pending run allowed to override the
// committed crop when a change is force-resolved.
const minTrustedRun = 8

// EngineConfig configures the history smoothing engine
type EngineConfig struct {
	// FrameWidth is the source frame width in pixels; similarity tolerance
	// is a percentage of it.
	FrameWidth float64
	// Tolerance is the similarity tolerance in percent of FrameWidth.
	Tolerance float64
	// SmoothFrames is the pending run length needed before a crop change is
	// accepted. Zero disables smoothing.
	SmoothFrames int
}

// HistoryEngine delays crop changes until they prove durable. Frames whose
// crop diverges from the committed one are buffered; the buffer is then
// either discarded as noise, committed with an interpolated transition, or
// force-resolved on a cut or an unstable change.
type HistoryEngine struct {
	logger zerolog.Logger
	cfg    EngineConfig
	cuts   CutDetector

	previous      crop.Result
	hasPrevious   bool
	previousCount int
	lastFrame     media.Frame
	history       *CropHistory
}

// NewHistoryEngine creates an engine in the first-frame state. A nil cuts
// detector never reports cuts.
func NewHistoryEngine(logger zerolog.Logger, cuts CutDetector, cfg EngineConfig) *HistoryEngine {
	if cfg.Tolerance < 0 {
		cfg.Tolerance = 0
	}
	return &HistoryEngine{
		logger:  logger.With().Str("component", "history-smoothing").Logger(),
		cfg:     cfg,
		cuts:    cuts,
		history: NewCropHistory(),
	}
}

// Process feeds one frame through the state machine
func (e *HistoryEngine) Process(in Input) ([]Output, error) {
	if e.cfg.SmoothFrames <= 0 {
		return []Output{{Frame: in.Frame, Crop: in.Crop}}, nil
	}

	if !e.hasPrevious {
		e.remember(in.Frame)
		e.commit(in.Crop, in.ObjectCount)
		return []Output{{Frame: in.Frame, Crop: in.Crop}}, nil
	}

	// lastFrame is always set once a crop is committed, so the first frame
	// is the only one compared against nothing.
	isCut := false
	if e.cuts != nil {
		cut, err := e.cuts.IsCut(e.lastFrame, in.Frame)
		if err != nil {
			return nil, fmt.Errorf("cut detection failed at frame %d: %w", in.Frame.Index, err)
		}
		isCut = cut
	}

	sameClass := crop.IsClassSame(in.ObjectCount, e.previousCount)
	similar := crop.IsSimilar(in.Crop, e.previous, e.cfg.FrameWidth, e.cfg.Tolerance)

	e.logger.Debug().
		Int("frame", in.Frame.Index).
		Stringer("latest", in.Crop).
		Stringer("previous", e.previous).
		Int("objects", in.ObjectCount).
		Int("previous_objects", e.previousCount).
		Int("history", e.history.Len()).
		Bool("cut", isCut).
		Bool("same_class", sameClass).
		Bool("similar", similar).
		Msg("smoothing frame")

	var (
		out       []Output
		decision  crop.Result
		count     = in.ObjectCount
		committed = true
	)

	switch {
	case isCut:
		if front, ok := e.history.PeekFront(); ok {
			out, _ = e.resolve(front.Crop, in.Crop, true)
		}
		decision = in.Crop

	case sameClass && similar:
		out = e.drain(e.previous)
		decision = e.previous
		count = e.previousCount

	default:
		front, ok := e.history.PeekFront()
		if !ok {
			e.history.Add(in.Crop, in.Frame, in.ObjectCount)
			committed = false
			break
		}

		stable := crop.IsSimilar(in.Crop, front.Crop, e.cfg.FrameWidth, e.cfg.Tolerance) &&
			crop.IsClassSame(in.ObjectCount, front.ObjectCount)

		switch {
		case stable && e.history.Len() >= e.cfg.SmoothFrames:
			out, decision = e.resolve(front.Crop, in.Crop, false)
		case stable:
			e.history.Add(front.Crop, in.Frame, front.ObjectCount)
			committed = false
		default:
			out, decision = e.resolve(front.Crop, in.Crop, true)
		}
	}

	e.remember(in.Frame)
	if !committed {
		return out, nil
	}

	e.commit(decision, count)
	return append(out, Output{Frame: in.Frame, Crop: decision}), nil
}

// Finalize flushes pending frames with the last committed crop
func (e *HistoryEngine) Finalize() []Output {
	if e.history.IsEmpty() {
		return nil
	}
	e.logger.Debug().Int("frames", e.history.Len()).Msg("finalizing pending history")
	return e.drain(e.previous)
}

// Committed returns the current committed crop, if any frame was processed
func (e *HistoryEngine) Committed() (crop.Result, bool) {
	return e.previous, e.hasPrevious
}

// Pending returns the length of the current pending-change run
func (e *HistoryEngine) Pending() int {
	return e.history.Len()
}

// resolve drains the history through an interpolated transition from the
// committed crop toward the proposed change and returns the crop it landed
// on. With selection the target is chosen between the committed crop and the
// change; short runs always fall back to the committed crop.
func (e *HistoryEngine) resolve(change, latest crop.Result, selection bool) ([]Output, crop.Result) {
	n := e.history.Len()

	target := change
	if selection {
		if n < minTrustedRun {
			target = e.previous
		} else {
			target = crop.Select(e.previous, change, latest)
		}
	}

	steps := crop.Interpolate(e.previous, target, n)
	out := make([]Output, 0, n)
	for i := 0; ; i++ {
		entry, ok := e.history.PopFront()
		if !ok {
			break
		}
		c := target
		if i < len(steps) {
			c = steps[i]
		}
		out = append(out, Output{Frame: entry.Frame, Crop: c})
	}

	e.logger.Debug().
		Int("frames", len(out)).
		Bool("selection", selection).
		Stringer("target", target).
		Msg("resolved pending change")

	return out, target
}

// drain emits every buffered frame with c
func (e *HistoryEngine) drain(c crop.Result) []Output {
	out := make([]Output, 0, e.history.Len())
	for {
		entry, ok := e.history.PopFront()
		if !ok {
			return out
		}
		out = append(out, Output{Frame: entry.Frame, Crop: c})
	}
}

func (e *HistoryEngine) commit(c crop.Result, objectCount int) {
	e.previous = c
	e.hasPrevious = true
	e.previousCount = objectCount
}

func (e *HistoryEngine) remember(f media.Frame) {
	e.lastFrame = f
}
