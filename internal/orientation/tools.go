package orientation

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"mediasync/internal/media/ffprobe"
)

// commandContext is swapped out by tests to fake ffmpeg.
var commandContext = exec.CommandContext

type execProber struct {
	binary  string
	timeout time.Duration
}

func (p *execProber) Probe(ctx context.Context, path string) (ffprobe.Video, error) {
	probeCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	return ffprobe.InspectVideo(probeCtx, p.binary, path)
}

type execRewriter struct {
	binary string
}

func (r *execRewriter) Rewrite(ctx context.Context, inputPath, outputPath, filter, preset string, crf int) error {
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-noautorotate",
		"-i", inputPath,
		"-vf", filter,
		"-map", "0",
		"-c:a", "copy",
		"-c:s", "copy",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-crf", strconv.Itoa(crf),
		"-preset", preset,
		"-movflags", "+faststart",
		"-metadata:s:v:0", "rotate=0",
		outputPath,
	}
	cmd := commandContext(ctx, r.binary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg timed out: %w", ctx.Err())
		}
		return fmt.Errorf("ffmpeg failed: %w (output: %s)", err, string(output))
	}
	return nil
}
