package whisperx

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

func buildFFmpegExtractArgs(source, dest string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-map", "0:a:0",
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	}
}

// ExtractFullAudio extracts the first audio stream from a source file.
// The output is a mono 16kHz WAV file suitable for WhisperX.
func ExtractFullAudio(ctx context.Context, ffmpegBinary, source, dest string) error {
	if strings.TrimSpace(source) == "" {
		return fmt.Errorf("extract audio: source path required")
	}
	cmd := exec.CommandContext(ctx, ffmpegBinary, buildFFmpegExtractArgs(source, dest)...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg extract: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
