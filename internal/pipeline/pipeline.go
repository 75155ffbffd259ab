package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/kikiluvv/reframe/internal/config"
	"github.com/kikiluvv/reframe/internal/crop"
	"github.com/kikiluvv/reframe/internal/detect"
	"github.com/kikiluvv/reframe/internal/ffmpeg"
	"github.com/kikiluvv/reframe/internal/render"
	"github.com/kikiluvv/reframe/internal/scene"
	"github.com/kikiluvv/reframe/internal/smoothing"
	"github.com/kikiluvv/reframe/pkg/util"
	"github.com/rs/zerolog"
)

// Pipeline orchestrates the entire reframing workflow
type Pipeline struct {
	logger   zerolog.Logger
	config   *config.Config
	ffmpeg   *ffmpeg.Executor
	detector detect.Detector
	graphic  detect.Detector
	filter   detect.FilterOptions
}

// New creates a new pipeline instance, loading the configured models
func New(logger zerolog.Logger, cfg *config.Config) (*Pipeline, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	ffmpegExec, err := ffmpeg.New(logger, cfg.FFmpeg.BinaryPath, cfg.FFmpeg.Threads)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ffmpeg: %w", err)
	}

	detector, filter, err := buildDetector(logger, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize detector: %w", err)
	}

	p := &Pipeline{
		logger:   logger.With().Str("component", "pipeline").Logger(),
		config:   cfg,
		ffmpeg:   ffmpegExec,
		detector: detector,
		filter:   filter,
	}

	if cfg.Graphic.ModelPath != "" {
		graphic, err := detect.NewYOLODetector(logger, detect.YOLOOptions{
			ModelPath:     cfg.Graphic.ModelPath,
			InputSize:     cfg.Detector.InputSize,
			Labels:        detect.GraphicLabels(),
			MinConfidence: cfg.Graphic.MinConfidence,
			IoUThreshold:  cfg.Detector.IoUThreshold,
		})
		if err != nil {
			detector.Close()
			return nil, fmt.Errorf("failed to initialize graphic detector: %w", err)
		}
		p.graphic = graphic
	}

	return p, nil
}

func buildDetector(logger zerolog.Logger, cfg *config.Config) (detect.Detector, detect.FilterOptions, error) {
	d := cfg.Detector
	filter := detect.FilterOptions{
		Object:        d.Object,
		MinConfidence: d.ProbThreshold,
		MinArea:       d.AreaThreshold,
	}

	switch d.Kind {
	case config.DetectorYOLO:
		detector, err := detect.NewYOLODetector(logger, detect.YOLOOptions{
			ModelPath:     d.ModelPath,
			InputSize:     d.InputSize,
			Labels:        detect.COCOLabels(),
			MinConfidence: d.ProbThreshold,
			IoUThreshold:  d.IoUThreshold,
		})
		return detector, filter, err

	case config.DetectorFace:
		opts := detect.DefaultFaceOptions()
		opts.CascadePath = d.CascadePath
		detector, err := detect.NewFaceDetector(logger, opts)
		filter.Object = detect.FaceLabel
		return detector, filter, err

	case config.DetectorSaliency:
		detector, err := detect.NewSaliencyDetector(logger, cfg.Output.Width, cfg.Output.Height)
		filter.Object = detect.SaliencyLabel
		return detector, filter, err

	default:
		return nil, filter, fmt.Errorf("unknown detector kind %q", d.Kind)
	}
}

// Close releases pipeline resources
func (p *Pipeline) Close() error {
	var errs []error
	if p.graphic != nil {
		errs = append(errs, p.graphic.Close())
	}
	if p.detector != nil {
		errs = append(errs, p.detector.Close())
	}
	return errors.Join(errs...)
}

// Run reframes opts.Input into a vertical video
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (*Result, error) {
	if opts.Input == "" {
		return nil, fmt.Errorf("input path cannot be empty")
	}
	if !util.FileExists(opts.Input) {
		return nil, fmt.Errorf("input not found: %s", opts.Input)
	}

	job, err := p.newJob(opts)
	if err != nil {
		return nil, err
	}
	logger := p.logger.With().Str("job", job.ID).Logger()

	logger.Info().
		Str("input", job.Input).
		Str("output", job.Output).
		Msg("starting reframing job")

	// Stage 1: Extract video metadata
	info, err := p.ffmpeg.ProbeVideo(ctx, job.Input)
	if err != nil {
		return nil, fmt.Errorf("failed to probe video: %w", err)
	}

	logger.Info().
		Dur("duration", info.Duration).
		Int("width", info.Width).
		Int("height", info.Height).
		Float64("fps", info.FPS).
		Int("frames", info.FrameCount).
		Msg("video metadata extracted")

	// Stage 2: Smoothing strategy
	processor, err := p.buildProcessor(ctx, logger, info)
	if err != nil {
		return nil, err
	}

	// Stage 3: Frame loop
	muxAudio := p.config.Audio.Keep && info.HasAudio
	videoPath := job.Output
	if muxAudio {
		videoPath = filepath.Join(job.Dir, silentName)
	}

	stats, runErr := p.reframe(ctx, logger, info, processor, videoPath)
	cancelled := runErr != nil && ctx.Err() != nil
	if runErr != nil && !cancelled {
		return nil, runErr
	}

	// Stage 4: Audio
	if muxAudio {
		if cancelled {
			err = os.Rename(videoPath, job.Output)
		} else {
			err = p.ffmpeg.MuxAudio(ctx, videoPath, job.Input, job.Output,
				logProgress(logger, "audio mux", info.FrameCount))
			if err == nil {
				err = os.Remove(videoPath)
			}
		}
		if err != nil {
			return nil, fmt.Errorf("failed to finish output: %w", err)
		}
	}

	result := &Result{
		Job:       job,
		Stats:     stats,
		Elapsed:   time.Since(job.StartedAt),
		HasAudio:  muxAudio && !cancelled,
		Cancelled: cancelled,
	}

	logger.Info().
		Str("output", job.Output).
		Int("frames", stats.Written).
		Int("graphic_frames", stats.Graphic).
		Int("predicted_frames", stats.Predicted).
		Dur("elapsed", result.Elapsed).
		Bool("cancelled", cancelled).
		Msg("reframing job complete")

	return result, runErr
}

func (p *Pipeline) newJob(opts RunOptions) (Job, error) {
	job := Job{
		ID:        uuid.NewString()[:8],
		Input:     opts.Input,
		StartedAt: time.Now(),
	}
	job.Dir = util.JobDir(p.config.WorkDir, job.ID, job.StartedAt)
	if err := util.EnsureDir(job.Dir); err != nil {
		return Job{}, fmt.Errorf("failed to create job directory: %w", err)
	}

	job.Output = opts.Output
	if job.Output == "" {
		job.Output = filepath.Join(job.Dir, outputName)
	} else if err := util.EnsureDir(filepath.Dir(job.Output)); err != nil {
		return Job{}, fmt.Errorf("failed to create output directory: %w", err)
	}
	return job, nil
}

// reframe decodes, processes and encodes every frame into videoPath
func (p *Pipeline) reframe(ctx context.Context, logger zerolog.Logger, info *ffmpeg.VideoInfo, processor smoothing.Processor, videoPath string) (Stats, error) {
	out := p.config.Output
	cropper, err := render.NewCropper(out.Width, out.Height)
	if err != nil {
		return Stats{}, err
	}

	// The encoder outlives cancellation so the partial video stays playable
	enc, err := p.ffmpeg.NewEncoder(context.WithoutCancel(ctx), ffmpeg.EncodeOptions{
		Output: videoPath,
		Width:  out.Width,
		Height: out.Height,
		FPS:    info.FPS,
		CRF:    p.config.FFmpeg.CRF,
		Preset: p.config.FFmpeg.Preset,
	})
	if err != nil {
		return Stats{}, fmt.Errorf("failed to start encoder: %w", err)
	}

	dec, err := p.ffmpeg.NewDecoder(ctx, info)
	if err != nil {
		enc.Close()
		return Stats{}, fmt.Errorf("failed to start decoder: %w", err)
	}

	reframer := NewReframer(logger, ReframerConfig{
		Detector: p.detector,
		Graphic:  p.graphic,
		Filter:   p.filter,
		Graphics: GraphicOptions{
			Threshold:  p.config.Graphic.Threshold,
			Keep:       p.config.Graphic.Keep,
			Prioritize: p.config.Graphic.Prioritize,
		},
		Crop: crop.CalculateOptions{
			AspectRatio: float64(out.Width) / float64(out.Height),
			UseStack:    p.config.Smoothing.UseStackCrop,
		},
		Processor: processor,
		Renderer:  render.NewRenderer(logger, cropper, enc),
	})

	stats, runErr := reframer.Run(ctx, dec)

	decErr := dec.Close()
	encErr := enc.Close()

	if runErr != nil {
		return stats, runErr
	}
	if decErr != nil {
		return stats, decErr
	}
	if encErr != nil {
		return stats, encErr
	}
	return stats, nil
}

// buildProcessor creates the configured smoothing strategy
func (p *Pipeline) buildProcessor(ctx context.Context, logger zerolog.Logger, info *ffmpeg.VideoInfo) (smoothing.Processor, error) {
	s := p.config.Smoothing
	frameWidth := float64(info.Width)

	switch s.Strategy {
	case config.StrategyHistory:
		cuts, err := p.buildCutDetector(ctx, logger, info)
		if err != nil {
			return nil, err
		}
		frames := util.SecondsToFrames(s.Duration, info.FPS)
		logger.Info().
			Int("smooth_frames", frames).
			Float64("tolerance", s.Percentage).
			Str("cut_method", p.config.Cut.Method).
			Msg("using history smoothing")
		return smoothing.NewHistoryEngine(logger, cuts, smoothing.EngineConfig{
			FrameWidth:   frameWidth,
			Tolerance:    s.Percentage,
			SmoothFrames: frames,
		}), nil

	case config.StrategyBuffer:
		buffer := smoothing.NewCropBuffer(logger, frameWidth, s.BufferSeconds, info.FPS)
		logger.Info().Int("buffer_frames", buffer.MaxBufferSize()).Msg("using buffer smoothing")
		return buffer, nil

	case config.StrategyPassthrough:
		logger.Info().Msg("smoothing disabled")
		return smoothing.Passthrough{}, nil

	default:
		return nil, fmt.Errorf("unknown smoothing strategy %q", s.Strategy)
	}
}

// buildCutDetector creates the configured hard-cut detector
func (p *Pipeline) buildCutDetector(ctx context.Context, logger zerolog.Logger, info *ffmpeg.VideoInfo) (smoothing.CutDetector, error) {
	c := p.config.Cut

	switch c.Method {
	case config.CutPerceptual:
		return scene.NewPerceptualDetector(c.Similarity, c.Start), nil

	case config.CutFFmpeg:
		cuts, err := p.ffmpeg.DetectScenes(ctx, info.FilePath, c.SceneThreshold,
			logProgress(logger, "scene detection", 0))
		if err != nil {
			return nil, fmt.Errorf("failed to detect scenes: %w", err)
		}
		return scene.NewTimelineDetector(cuts), nil

	default:
		return nil, fmt.Errorf("unknown cut method %q", c.Method)
	}
}

// logProgress reports ffmpeg progress for a long-running stage. The percent
// field is only set when total frames are known.
func logProgress(logger zerolog.Logger, stage string, totalFrames int) ffmpeg.ProgressFunc {
	return func(p *ffmpeg.Progress) {
		ev := logger.Debug().
			Str("stage", stage).
			Int("frame", p.Frame).
			Float64("fps", p.FPS).
			Str("time", p.Time).
			Str("speed", p.Speed)
		if totalFrames > 0 {
			ev = ev.Float64("percent", math.Min(100, float64(p.Frame)*100/float64(totalFrames)))
		}
		ev.Msg("ffmpeg progress")
	}
}
