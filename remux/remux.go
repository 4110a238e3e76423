package remux

import (
	"context"
	"os"
	"os/exec"

	"github.com/pkg/errors"
)

// CheckFFmpeg verifies that the given ffmpeg binary is runnable.
func CheckFFmpeg(ffmpeg string) error {
	checkffmpeg := exec.Command(ffmpeg, "-h")
	_, err := checkffmpeg.Output()
	if err != nil {
		return err
	}
	return nil
}

// RemuxArgs builds the ffmpeg argument list for a container-only
// rewrite. All streams are mapped and stream-copied, no transcoding,
// and the moov atom moves up front so playback can start while the
// device is still pulling the file.
func RemuxArgs(input, output string) []string {
	return []string{
		"-loglevel", "error",
		"-i", input,
		"-map", "0",
		"-c", "copy",
		"-movflags", "+faststart",
		"-y",
		output,
	}
}

// Remux rewrites input into output's container without touching the
// codec data. ctx cancellation kills the ffmpeg process.
func Remux(ctx context.Context, ffmpeg, input, output string) error {
	if _, err := os.Stat(input); err != nil {
		return errors.Wrap(err, "remux")
	}

	if err := CheckFFmpeg(ffmpeg); err != nil {
		return errors.Wrap(err, "remux: ffmpeg not available")
	}

	cmd := exec.CommandContext(ctx, ffmpeg, RemuxArgs(input, output)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return errors.Wrapf(err, "remux: ffmpeg failed: %s", string(out))
	}
	return nil
}
