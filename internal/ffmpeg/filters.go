package ffmpeg

import (
	"fmt"
	"strings"
)

// FilterBuilder helps construct ffmpeg filter chains
type FilterBuilder struct {
	filters []string
}

// NewFilterBuilder creates a new filter builder
func NewFilterBuilder() *FilterBuilder {
	return &FilterBuilder{
		filters: make([]string, 0),
	}
}

// SceneSelect keeps only frames whose scene score exceeds threshold
func (fb *FilterBuilder) SceneSelect(threshold float64) *FilterBuilder {
	if threshold <= 0 {
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("select='gt(scene,%f)'", threshold))
	return fb
}

// ShowInfo logs pts_time for every frame reaching it
func (fb *FilterBuilder) ShowInfo() *FilterBuilder {
	fb.filters = append(fb.filters, "showinfo")
	return fb
}

// Format converts frames to the given pixel format
func (fb *FilterBuilder) Format(pixFmt string) *FilterBuilder {
	if pixFmt == "" {
		return fb
	}
	fb.filters = append(fb.filters, "format="+pixFmt)
	return fb
}

// Build returns the complete filter string joined with commas
func (fb *FilterBuilder) Build() string {
	if len(fb.filters) == 0 {
		return ""
	}
	return strings.Join(fb.filters, ",")
}
