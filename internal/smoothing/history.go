package smoothing

import (
	"github.com/kikiluvv/reframe/internal/crop"
	"github.com/kikiluvv/reframe/internal/media"
)

// HistoryEntry is a buffered frame waiting for a smoothing decision
type HistoryEntry struct {
	Frame       media.Frame
	Crop        crop.Result
	ObjectCount int
}

// CropHistory is a FIFO of frames accumulated during a pending change
type CropHistory struct {
	entries []HistoryEntry
	head    int
}

// NewCropHistory creates an empty history
func NewCropHistory() *CropHistory {
	return &CropHistory{}
}

// Add appends an entry at the back
func (h *CropHistory) Add(c crop.Result, frame media.Frame, objectCount int) {
	h.entries = append(h.entries, HistoryEntry{
		Frame:       frame,
		Crop:        c,
		ObjectCount: objectCount,
	})
}

// PeekFront returns the oldest entry without removing it
func (h *CropHistory) PeekFront() (HistoryEntry, bool) {
	if h.Len() == 0 {
		return HistoryEntry{}, false
	}
	return h.entries[h.head], true
}

// PopFront removes and returns the oldest entry
func (h *CropHistory) PopFront() (HistoryEntry, bool) {
	if h.Len() == 0 {
		return HistoryEntry{}, false
	}
	e := h.entries[h.head]
	h.entries[h.head] = HistoryEntry{}
	h.head++
	if h.head == len(h.entries) {
		// drained: reuse the backing array
		h.entries = h.entries[:0]
		h.head = 0
	}
	return e, true
}

// Len returns the number of buffered entries
func (h *CropHistory) Len() int {
	return len(h.entries) - h.head
}

// IsEmpty reports whether nothing is buffered
func (h *CropHistory) IsEmpty() bool {
	return h.Len() == 0
}
