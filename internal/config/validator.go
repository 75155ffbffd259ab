package config

import (
	"fmt"
)

// Validate checks cfg, normalising out-of-range values that have a sensible
// permissive reading and rejecting the rest.
func Validate(cfg *Config) error {
	if cfg.WorkDir == "" {
		return fmt.Errorf("work_dir is required")
	}

	// Validate output
	if cfg.Output.Width <= 0 || cfg.Output.Height <= 0 {
		return fmt.Errorf("output size must be positive, got %dx%d", cfg.Output.Width, cfg.Output.Height)
	}
	if cfg.Output.Width%2 != 0 || cfg.Output.Height%2 != 0 {
		return fmt.Errorf("output size must be even, got %dx%d", cfg.Output.Width, cfg.Output.Height)
	}

	// Validate ffmpeg
	if cfg.FFmpeg.Threads < 0 {
		cfg.FFmpeg.Threads = 0
	}
	if cfg.FFmpeg.CRF < 0 || cfg.FFmpeg.CRF > 51 {
		return fmt.Errorf("ffmpeg.crf must be between 0 and 51, got %d", cfg.FFmpeg.CRF)
	}

	if err := validateDetector(&cfg.Detector); err != nil {
		return fmt.Errorf("detector validation failed: %w", err)
	}

	// Validate graphic
	if cfg.Graphic.Threshold < 0 {
		cfg.Graphic.Threshold = 0
	}
	if cfg.Graphic.Prioritize && cfg.Graphic.ModelPath == "" {
		return fmt.Errorf("graphic.prioritize requires graphic.model_path")
	}

	if err := validateSmoothing(&cfg.Smoothing); err != nil {
		return fmt.Errorf("smoothing validation failed: %w", err)
	}

	if err := validateCut(&cfg.Cut); err != nil {
		return fmt.Errorf("cut validation failed: %w", err)
	}

	return nil
}

func validateDetector(d *DetectorConfig) error {
	switch d.Kind {
	case DetectorYOLO:
		if d.ModelPath == "" {
			return fmt.Errorf("detector.model_path is required for %s", d.Kind)
		}
		if d.InputSize <= 0 || d.InputSize%32 != 0 {
			return fmt.Errorf("detector.input_size must be a positive multiple of 32, got %d", d.InputSize)
		}
		if d.Object == "" {
			return fmt.Errorf("detector.object is required")
		}
	case DetectorFace:
		if d.CascadePath == "" {
			return fmt.Errorf("detector.cascade_path is required for %s", d.Kind)
		}
	case DetectorSaliency:
	default:
		return fmt.Errorf("unknown detector.kind %q (want %s, %s or %s)",
			d.Kind, DetectorYOLO, DetectorFace, DetectorSaliency)
	}

	if d.ProbThreshold < 0 || d.ProbThreshold > 1 {
		return fmt.Errorf("detector.prob_threshold must be in [0, 1], got %f", d.ProbThreshold)
	}
	if d.AreaThreshold < 0 {
		d.AreaThreshold = 0
	}
	if d.IoUThreshold <= 0 || d.IoUThreshold > 1 {
		d.IoUThreshold = 0.45
	}
	return nil
}

func validateSmoothing(s *SmoothingConfig) error {
	switch s.Strategy {
	case StrategyHistory, StrategyBuffer, StrategyPassthrough:
	default:
		return fmt.Errorf("unknown smoothing.strategy %q (want %s, %s or %s)",
			s.Strategy, StrategyHistory, StrategyBuffer, StrategyPassthrough)
	}

	if s.Percentage < 0 {
		s.Percentage = 0
	}
	if s.Duration < 0 {
		s.Duration = 0
	}
	if s.BufferSeconds <= 0 {
		// a non-positive window still buffers one frame
		s.BufferSeconds = 0
	}
	return nil
}

func validateCut(c *CutConfig) error {
	switch c.Method {
	case CutPerceptual:
		if c.Similarity < 0 || c.Similarity > 1 {
			return fmt.Errorf("cut.similarity must be in [0, 1], got %f", c.Similarity)
		}
		if c.Start < 0 || c.Start > 1 {
			return fmt.Errorf("cut.start must be in [0, 1], got %f", c.Start)
		}
	case CutFFmpeg:
		if c.SceneThreshold <= 0 || c.SceneThreshold >= 1 {
			return fmt.Errorf("cut.scene_threshold must be in (0, 1), got %f", c.SceneThreshold)
		}
	default:
		return fmt.Errorf("unknown cut.method %q (want %s or %s)", c.Method, CutPerceptual, CutFFmpeg)
	}
	return nil
}
