package media

import (
	"image"
	"time"
)

// Frame is one decoded video frame
type Frame struct {
	Index     int
	Timestamp time.Duration
	Image     image.Image
}

// Width returns the pixel width of the frame image
func (f Frame) Width() int {
	if f.Image == nil {
		return 0
	}
	return f.Image.Bounds().Dx()
}

// Height returns the pixel height of the frame image
func (f Frame) Height() int {
	if f.Image == nil {
		return 0
	}
	return f.Image.Bounds().Dy()
}
