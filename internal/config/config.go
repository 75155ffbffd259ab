package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type contextKey string

const configKey contextKey = "config"

// Config holds all application configuration
type Config struct {
	// Core settings
	WorkDir string `yaml:"work_dir"`

	FFmpeg    FFmpegConfig    `yaml:"ffmpeg"`
	Output    OutputConfig    `yaml:"output"`
	Detector  DetectorConfig  `yaml:"detector"`
	Graphic   GraphicConfig   `yaml:"graphic"`
	Smoothing SmoothingConfig `yaml:"smoothing"`
	Cut       CutConfig       `yaml:"cut"`
	Audio     AudioConfig     `yaml:"audio"`
}

type FFmpegConfig struct {
	BinaryPath string `yaml:"binary_path"`
	Threads    int    `yaml:"threads"`
	Preset     string `yaml:"preset"`
	CRF        int    `yaml:"crf"`
}

type OutputConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// DetectorConfig selects the object detector and which of its objects to
// follow.
type DetectorConfig struct {
	Kind          string  `yaml:"kind"`
	ModelPath     string  `yaml:"model_path"`
	CascadePath   string  `yaml:"cascade_path"`
	Object        string  `yaml:"object"`
	ProbThreshold float64 `yaml:"prob_threshold"`
	AreaThreshold float64 `yaml:"area_threshold"`
	InputSize     int     `yaml:"input_size"`
	IoUThreshold  float64 `yaml:"iou_threshold"`
}

// GraphicConfig controls on-screen graphic detection. An empty model path
// disables it.
type GraphicConfig struct {
	ModelPath     string  `yaml:"model_path"`
	Threshold     float64 `yaml:"threshold"`
	MinConfidence float64 `yaml:"min_confidence"`
	Keep          bool    `yaml:"keep"`
	Prioritize    bool    `yaml:"prioritize"`
}

type SmoothingConfig struct {
	Strategy string `yaml:"strategy"`
	// Percentage is the similarity tolerance in percent of frame width.
	Percentage float64 `yaml:"percentage"`
	// Duration is the seconds a new crop must hold before it is accepted.
	Duration      float64 `yaml:"duration"`
	BufferSeconds float64 `yaml:"buffer_seconds"`
	UseStackCrop  bool    `yaml:"use_stack_crop"`
}

type CutConfig struct {
	Method         string  `yaml:"method"`
	Similarity     float64 `yaml:"similarity"`
	Start          float64 `yaml:"start"`
	SceneThreshold float64 `yaml:"scene_threshold"`
}

type AudioConfig struct {
	Keep bool `yaml:"keep"`
}

// Smoothing strategies
const (
	StrategyHistory     = "history"
	StrategyBuffer      = "buffer"
	StrategyPassthrough = "none"
)

// Detector kinds
const (
	DetectorYOLO     = "yolo"
	DetectorFace     = "face"
	DetectorSaliency = "saliency"
)

// Cut methods
const (
	CutPerceptual = "perceptual"
	CutFFmpeg     = "ffmpeg"
)

// Load reads configuration from file or returns defaults
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = findConfigFile()
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

// Default returns the built-in configuration
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		WorkDir: "./work",
		FFmpeg: FFmpegConfig{
			BinaryPath: "",
			Threads:    0,
			Preset:     "medium",
			CRF:        23,
		},
		Output: OutputConfig{
			Width:  1080,
			Height: 1920,
		},
		Detector: DetectorConfig{
			Kind:          DetectorYOLO,
			ModelPath:     "./models/yolov8n.onnx",
			CascadePath:   "./models/facefinder",
			Object:        "person",
			ProbThreshold: 0.7,
			AreaThreshold: 0.0025,
			InputSize:     640,
			IoUThreshold:  0.45,
		},
		Graphic: GraphicConfig{
			ModelPath:     "",
			Threshold:     0.009,
			MinConfidence: 0.5,
			Keep:          true,
			Prioritize:    false,
		},
		Smoothing: SmoothingConfig{
			Strategy:      StrategyHistory,
			Percentage:    7.5,
			Duration:      1.0,
			BufferSeconds: 1.0,
			UseStackCrop:  false,
		},
		Cut: CutConfig{
			Method:         CutPerceptual,
			Similarity:     0.4,
			Start:          0.8,
			SceneThreshold: 0.3,
		},
		Audio: AudioConfig{
			Keep: true,
		},
	}
}

func findConfigFile() string {
	candidates := []string{
		"./reframe.yaml",
		"./reframe.yml",
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".reframe", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return defaultConfig()
}
