package smoothing

import (
	"github.com/kikiluvv/reframe/internal/crop"
	"github.com/kikiluvv/reframe/pkg/util"
	"github.com/rs/zerolog"
)

const (
	// bufferTolerance is the fixed similarity tolerance, in percent of frame width
	bufferTolerance = 10.0
	// bufferHistorySize is how many recent crops are kept for matching
	bufferHistorySize = 5
)

// CropBuffer is the time-windowed strategy: frames are held for up to a
// fixed duration and committed in bulk under a single crop.
type CropBuffer struct {
	logger        zerolog.Logger
	frameWidth    float64
	maxBufferSize int
	frames        []Input
	cropHistory   []crop.Result
}

// NewCropBuffer creates a buffer holding round(bufferSeconds*fps) frames
func NewCropBuffer(logger zerolog.Logger, frameWidth, bufferSeconds, fps float64) *CropBuffer {
	size := max(1, util.SecondsToFrames(bufferSeconds, fps))
	return &CropBuffer{
		logger:        logger.With().Str("component", "crop-buffer").Logger(),
		frameWidth:    frameWidth,
		maxBufferSize: size,
	}
}

// MaxBufferSize returns the buffer capacity in frames
func (b *CropBuffer) MaxBufferSize() int {
	return b.maxBufferSize
}

// Len returns the number of buffered frames
func (b *CropBuffer) Len() int {
	return len(b.frames)
}

// Add appends a frame and records its crop in the rolling history
func (b *CropBuffer) Add(in Input) {
	b.cropHistory = append(b.cropHistory, in.Crop)
	if len(b.cropHistory) > bufferHistorySize {
		b.cropHistory = b.cropHistory[1:]
	}
	b.frames = append(b.frames, in)
}

// Commit decides whether the buffered frames can be released given the
// incoming crop, and returns them if so.
func (b *CropBuffer) Commit(current crop.Result) []Output {
	return b.commit(current, 0)
}

// commit ignores the newest skip history entries when matching, so a frame
// never matches the crop it just recorded itself.
func (b *CropBuffer) commit(current crop.Result, skip int) []Output {
	if len(b.frames) == 0 {
		return nil
	}

	oldest := b.frames[0].Crop
	if len(b.frames) >= 2 && crop.IsSimilar(current, oldest, b.frameWidth, bufferTolerance) {
		b.logger.Debug().Int("frames", len(b.frames)).Msg("committing buffer with oldest crop")
		return b.flush(func(Input) crop.Result { return oldest })
	}

	if len(b.frames) < b.maxBufferSize {
		return nil
	}

	if match, ok := b.recentMatch(current, skip); ok {
		b.logger.Debug().Int("frames", len(b.frames)).Msg("committing buffer with matching historical crop")
		return b.flush(func(Input) crop.Result { return match })
	}

	b.logger.Debug().Int("frames", len(b.frames)).Msg("committing buffer with per-frame crops")
	return b.flush(func(f Input) crop.Result { return f.Crop })
}

// Process adds the frame and commits against its own crop. The match skips
// the entry just added for in, unlike calling Add then Commit: a full buffer
// would otherwise always match the incoming crop against itself and drain
// every frame with it.
func (b *CropBuffer) Process(in Input) ([]Output, error) {
	b.Add(in)
	return b.commit(in.Crop, 1), nil
}

// Finalize releases any remaining frames with their own crops
func (b *CropBuffer) Finalize() []Output {
	return b.flush(func(f Input) crop.Result { return f.Crop })
}

func (b *CropBuffer) recentMatch(current crop.Result, skip int) (crop.Result, bool) {
	for i := len(b.cropHistory) - 1 - skip; i >= 0; i-- {
		if crop.IsSimilar(current, b.cropHistory[i], b.frameWidth, bufferTolerance) {
			return b.cropHistory[i], true
		}
	}
	return crop.Result{}, false
}

func (b *CropBuffer) flush(pick func(Input) crop.Result) []Output {
	if len(b.frames) == 0 {
		return nil
	}
	out := make([]Output, len(b.frames))
	for i, f := range b.frames {
		out[i] = Output{Frame: f.Frame, Crop: pick(f)}
	}
	b.frames = b.frames[:0]
	return out
}
