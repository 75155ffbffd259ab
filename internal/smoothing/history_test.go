package smoothing

import (
	"testing"

	"github.com/kikiluvv/reframe/internal/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCropHistoryFIFO(t *testing.T) {
	h := NewCropHistory()
	assert.True(t, h.IsEmpty())

	_, ok := h.PeekFront()
	assert.False(t, ok)
	_, ok = h.PopFront()
	assert.False(t, ok)

	for i := 0; i < 3; i++ {
		h.Add(single(float64(i), 0, 10, 10), media.Frame{Index: i}, i)
	}
	assert.Equal(t, 3, h.Len())

	front, ok := h.PeekFront()
	require.True(t, ok)
	assert.Equal(t, 0, front.Frame.Index)
	assert.Equal(t, 3, h.Len(), "peek does not consume")

	for i := 0; i < 3; i++ {
		e, ok := h.PopFront()
		require.True(t, ok)
		assert.Equal(t, i, e.Frame.Index)
		assert.Equal(t, i, e.ObjectCount)
	}
	assert.True(t, h.IsEmpty())

	// reusable after a full drain
	h.Add(single(5, 0, 10, 10), media.Frame{Index: 9}, 1)
	e, ok := h.PopFront()
	require.True(t, ok)
	assert.Equal(t, 9, e.Frame.Index)
}
