package deps

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const libassProbeTimeout = 10 * time.Second

// CheckLibass reports whether the ffmpeg build exposes the ass subtitle filter.
// Burning karaoke subtitles is impossible without it.
func CheckLibass(ctx context.Context, ffmpegBinary string) Status {
	result := Status{
		Name:        "libass",
		Command:     strings.TrimSpace(ffmpegBinary),
		Description: "ffmpeg ass filter for subtitle burn-in",
	}
	if result.Command == "" {
		result.Detail = "command not configured"
		return result
	}
	if _, err := exec.LookPath(result.Command); err != nil {
		result.Detail = fmt.Sprintf("binary %q not found", result.Command)
		return result
	}

	probeCtx, cancel := context.WithTimeout(ctx, libassProbeTimeout)
	defer cancel()

	cmd := exec.CommandContext(probeCtx, result.Command, "-hide_banner", "-filters")
	output, err := cmd.Output()
	if err != nil {
		result.Detail = fmt.Sprintf("list filters: %v", err)
		return result
	}
	if !HasASSFilter(output) {
		result.Detail = "ffmpeg built without libass (ass filter missing)"
		return result
	}
	result.Available = true
	return result
}

// HasASSFilter scans `ffmpeg -filters` output for the ass filter entry.
func HasASSFilter(listing []byte) bool {
	scanner := bufio.NewScanner(bytes.NewReader(listing))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		// " T.. ass  V->V  Render ASS subtitles..."
		if len(fields) >= 2 && fields[1] == "ass" {
			return true
		}
	}
	return false
}
