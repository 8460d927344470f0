// Package video shrinks video files in place by shelling out to ffmpeg.
package video

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// DefaultFactor is applied to both spatial dimensions.
const DefaultFactor = 0.6

type runner func(ctx context.Context, name string, args ...string) error

type Downscaler struct {
	ffmpeg string
	factor float64
	run    runner
}

func New(ffmpegPath string, factor float64) *Downscaler {
	if strings.TrimSpace(ffmpegPath) == "" {
		ffmpegPath = "ffmpeg"
	}
	if factor <= 0 {
		factor = DefaultFactor
	}
	return &Downscaler{ffmpeg: ffmpegPath, factor: factor, run: execRun}
}

// Downscale re-encodes the file at path with both dimensions multiplied by the
// factor and replaces the original with the result. Codec and bitrate are
// left to ffmpeg's defaults for the container.
func (d *Downscaler) Downscale(ctx context.Context, path string) error {
	out := filepath.Join(filepath.Dir(path), "scaled-"+filepath.Base(path))

	log.Ctx(ctx).Info().Str("file", path).Float64("factor", d.factor).Msg("downscaling video")

	if err := d.run(ctx, d.ffmpeg, d.args(path, out)...); err != nil {
		_ = os.Remove(out)
		return fmt.Errorf("ffmpeg: %w", err)
	}

	if err := os.Rename(out, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// args builds the ffmpeg command line. Dimensions are rounded down to even
// numbers since most encoders reject odd sizes.
func (d *Downscaler) args(in, out string) []string {
	scale := fmt.Sprintf("scale=trunc(iw*%[1]g/2)*2:trunc(ih*%[1]g/2)*2", d.factor)
	return []string{"-y", "-hide_banner", "-loglevel", "error", "-i", in, "-vf", scale, out}
}

func execRun(ctx context.Context, name string, args ...string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}
