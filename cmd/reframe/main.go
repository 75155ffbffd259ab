package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kikiluvv/reframe/internal/config"
	"github.com/kikiluvv/reframe/internal/logging"
	"github.com/kikiluvv/reframe/internal/pipeline"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	cfgFile   string
	verbose   bool
	trace     bool
	logFormat string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "reframe",
	Short: "reframe - landscape to vertical video reframing",
	Long:  "Follows the subject of a landscape video and renders a smoothed vertical crop of it.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logging
		if err := logging.Init(logging.Options{
			Verbose: verbose,
			Trace:   trace,
			Format:  logFormat,
		}); err != nil {
			return err
		}

		// Load config
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		// Store config in context
		ctx := config.WithConfig(cmd.Context(), cfg)
		cmd.SetContext(ctx)

		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./reframe.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&trace, "trace", false, "log every frame")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "log format (console|json)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(configCmd)
}

var runCmd = &cobra.Command{
	Use:   "run [input video]",
	Short: "Reframe a video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		if err := applyRunFlags(cmd, cfg); err != nil {
			return err
		}

		pipe, err := pipeline.New(log.Logger, cfg)
		if err != nil {
			return err
		}
		defer pipe.Close()

		output, _ := cmd.Flags().GetString("output")
		result, err := pipe.Run(cmd.Context(), pipeline.RunOptions{
			Input:  args[0],
			Output: output,
		})
		if result != nil && result.Cancelled {
			log.Warn().
				Str("output", result.Job.Output).
				Int("frames", result.Stats.Written).
				Msg("interrupted, partial video written")
			return err
		}
		if err != nil {
			log.Error().Err(err).Msg("reframing failed")
			return err
		}

		fmt.Println(result.Job.Output)
		return nil
	},
}

func init() {
	f := runCmd.Flags()
	f.StringP("output", "o", "", "output file (default: <work_dir>/<job>/processed_video.mp4)")
	f.Int("width", 0, "output width")
	f.Int("height", 0, "output height")
	f.String("detector", "", "detector kind (yolo|face|saliency)")
	f.String("model", "", "detector model path")
	f.String("object", "", "object class to follow")
	f.Float64("prob-threshold", 0, "minimum detection confidence")
	f.String("graphic-model", "", "graphic detector model path")
	f.Bool("prioritize-graphic", false, "check every frame for graphics")
	f.String("strategy", "", "smoothing strategy (history|buffer|none)")
	f.Float64("smooth-percentage", 0, "crop tolerance in percent of frame width")
	f.Float64("smooth-duration", 0, "seconds a new crop must hold before it is accepted")
	f.Float64("buffer-seconds", 0, "look-ahead window for buffer smoothing")
	f.Bool("stack", false, "stack two subjects vertically")
	f.String("cut-method", "", "cut detection method (perceptual|ffmpeg)")
	f.Bool("no-audio", false, "drop the source audio")
}

// applyRunFlags overrides cfg with every flag set on the command line
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()

	ints := map[string]*int{
		"width":  &cfg.Output.Width,
		"height": &cfg.Output.Height,
	}
	strs := map[string]*string{
		"detector":      &cfg.Detector.Kind,
		"model":         &cfg.Detector.ModelPath,
		"object":        &cfg.Detector.Object,
		"graphic-model": &cfg.Graphic.ModelPath,
		"strategy":      &cfg.Smoothing.Strategy,
		"cut-method":    &cfg.Cut.Method,
	}
	floats := map[string]*float64{
		"prob-threshold":    &cfg.Detector.ProbThreshold,
		"smooth-percentage": &cfg.Smoothing.Percentage,
		"smooth-duration":   &cfg.Smoothing.Duration,
		"buffer-seconds":    &cfg.Smoothing.BufferSeconds,
	}
	bools := map[string]*bool{
		"prioritize-graphic": &cfg.Graphic.Prioritize,
		"stack":              &cfg.Smoothing.UseStackCrop,
	}

	var err error
	for name, dst := range ints {
		if f.Changed(name) {
			if *dst, err = f.GetInt(name); err != nil {
				return err
			}
		}
	}
	for name, dst := range strs {
		if f.Changed(name) {
			if *dst, err = f.GetString(name); err != nil {
				return err
			}
		}
	}
	for name, dst := range floats {
		if f.Changed(name) {
			if *dst, err = f.GetFloat64(name); err != nil {
				return err
			}
		}
	}
	for name, dst := range bools {
		if f.Changed(name) {
			if *dst, err = f.GetBool(name); err != nil {
				return err
			}
		}
	}

	if f.Changed("no-audio") {
		drop, err := f.GetBool("no-audio")
		if err != nil {
			return err
		}
		cfg.Audio.Keep = !drop
	}
	return nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Config management commands",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "reframe.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
		if err := config.Default().Save(path); err != nil {
			return err
		}
		log.Info().Str("path", path).Msg("config written")
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(cfg)
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}
