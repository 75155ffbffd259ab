package detect

import (
	"testing"

	"github.com/kikiluvv/reframe/internal/crop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredictBox(t *testing.T) {
	tests := []struct {
		name                   string
		threeAgo, twoAgo, last crop.Area
		want                   crop.Area
	}{
		{
			name:     "constant velocity",
			threeAgo: crop.NewArea(0, 0, 10, 10),
			twoAgo:   crop.NewArea(10, 5, 10, 10),
			last:     crop.NewArea(20, 10, 10, 10),
			want:     crop.NewArea(30, 15, 10, 10),
		},
		{
			name:     "accelerating",
			threeAgo: crop.NewArea(0, 100, 10, 10),
			twoAgo:   crop.NewArea(10, 100, 10, 10),
			last:     crop.NewArea(30, 100, 10, 10),
			want:     crop.NewArea(55, 100, 10, 10),
		},
		{
			name:     "stationary",
			threeAgo: crop.NewArea(500, 300, 12, 12),
			twoAgo:   crop.NewArea(500, 300, 12, 12),
			last:     crop.NewArea(500, 300, 12, 12),
			want:     crop.NewArea(500, 300, 12, 12),
		},
		{
			name:     "clamped at origin",
			threeAgo: crop.NewArea(100, 20, 10, 10),
			twoAgo:   crop.NewArea(50, 10, 10, 10),
			last:     crop.NewArea(0, 0, 10, 10),
			want:     crop.NewArea(0, 0, 10, 10),
		},
		{
			name:     "clamped at frame edge",
			threeAgo: crop.NewArea(1800, 1000, 10, 10),
			twoAgo:   crop.NewArea(1850, 1040, 10, 10),
			last:     crop.NewArea(1900, 1070, 10, 10),
			want:     crop.NewArea(1920, 1080, 10, 10),
		},
		{
			name:     "size follows last box",
			threeAgo: crop.NewArea(0, 0, 40, 40),
			twoAgo:   crop.NewArea(0, 0, 20, 20),
			last:     crop.NewArea(0, 0, 8, 6),
			want:     crop.NewArea(0, 0, 8, 6),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PredictBox(tt.threeAgo, tt.twoAgo, tt.last, 1920, 1080)
			assert.InDelta(t, tt.want.X, got.X, 1e-9)
			assert.InDelta(t, tt.want.Y, got.Y, 1e-9)
			assert.Equal(t, tt.want.Width, got.Width)
			assert.Equal(t, tt.want.Height, got.Height)
		})
	}
}

func TestBallTracker(t *testing.T) {
	tr := NewBallTracker()
	ball := func(x float64) []Object { return []Object{obj(BallLabel, 0.9, x, 50, 8, 8)} }

	// fewer than three known positions: nothing to extrapolate
	tr.Track(ball(0), 1920, 1080)
	tr.Track(ball(10), 1920, 1080)
	objects, predicted := tr.Track(nil, 1920, 1080)
	assert.Empty(t, objects)
	assert.False(t, predicted)

	tr.Track(ball(20), 1920, 1080)
	objects, predicted = tr.Track(nil, 1920, 1080)
	require.Len(t, objects, 1)
	assert.True(t, predicted)
	assert.Equal(t, BallLabel, objects[0].Name)
	assert.InDelta(t, 30.0, objects[0].Box.X, 1e-9)

	// predictions feed the next prediction
	objects, _ = tr.Track(nil, 1920, 1080)
	require.Len(t, objects, 1)
	assert.InDelta(t, 40.0, objects[0].Box.X, 1e-9)

	// a detection passes through untouched
	detected := ball(500)
	objects, predicted = tr.Track(detected, 1920, 1080)
	assert.Equal(t, detected, objects)
	assert.False(t, predicted)
}

func TestBallTrackerKeepsMostConfident(t *testing.T) {
	tr := NewBallTracker()
	for _, x := range []float64{0, 10} {
		tr.Track([]Object{obj(BallLabel, 0.9, x, 0, 8, 8)}, 1920, 1080)
	}
	tr.Track([]Object{
		obj(BallLabel, 0.7, 900, 0, 8, 8),
		obj(BallLabel, 0.95, 20, 0, 8, 8),
	}, 1920, 1080)

	objects, predicted := tr.Track(nil, 1920, 1080)
	require.True(t, predicted)
	assert.InDelta(t, 30.0, objects[0].Box.X, 1e-9)
}

func TestBallTrackerGivesUp(t *testing.T) {
	tr := NewBallTracker()
	for _, x := range []float64{0, 1, 2} {
		tr.Track([]Object{obj(BallLabel, 0.9, x, 0, 8, 8)}, 1920, 1080)
	}

	for i := 0; i < maxPredictedFrames; i++ {
		_, predicted := tr.Track(nil, 1920, 1080)
		require.True(t, predicted, "frame %d", i)
	}
	objects, predicted := tr.Track(nil, 1920, 1080)
	assert.Empty(t, objects)
	assert.False(t, predicted)
}
