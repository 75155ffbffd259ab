package ffmpeg

import (
	"context"
	"fmt"
)

// MuxAudio copies video's picture and source's first audio stream, if any,
// into output. The audio is re-encoded and cut to the video length.
func (e *Executor) MuxAudio(ctx context.Context, video, source, output string, progressFunc ProgressFunc) error {
	if video == "" || source == "" || output == "" {
		return fmt.Errorf("video, source and output paths are required")
	}

	e.logger.Info().
		Str("video", video).
		Str("source", source).
		Str("output", output).
		Msg("muxing audio")

	args := []string{
		"-i", video,
		"-i", source,
		"-map", "0:v:0",
		"-map", "1:a:0?",
		"-c:v", "copy",
		"-c:a", DefaultAudioCodec,
		"-shortest",
		"-movflags", "+faststart",
		output,
	}

	opts := RunOptions{
		Args:            args,
		ProgressHandler: progressFunc,
		LogHandler: func(line string) {
			e.logger.Trace().Str("ffmpeg", line).Msg("audio mux")
		},
	}

	if err := e.Run(ctx, opts); err != nil {
		return fmt.Errorf("audio mux failed: %w", err)
	}

	e.logger.Info().Str("output", output).Msg("audio mux complete")
	return nil
}
