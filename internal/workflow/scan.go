package workflow

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"karaoke/internal/services"
)

// VideoExtensions lists the container extensions picked up by ScanDir.
var VideoExtensions = []string{".mp4", ".avi", ".mov", ".mkv", ".flv", ".wmv", ".webm"}

// IsVideoFile reports whether path has a supported video extension.
func IsVideoFile(path string) bool {
	return slices.Contains(VideoExtensions, strings.ToLower(filepath.Ext(path)))
}

// ScanDir lists the video files directly inside dir, sorted by name. A JSON
// file sharing a video's stem is attached as its transcript.
func ScanDir(dir string) ([]FileInput, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "workflow", "scan", dir, err)
	}
	var inputs []FileInput
	for _, entry := range entries {
		if entry.IsDir() || !IsVideoFile(entry.Name()) {
			continue
		}
		source, err := filepath.Abs(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", entry.Name(), err)
		}
		inputs = append(inputs, FileInput{Source: source, Transcript: sidecarTranscript(source)})
	}
	slices.SortFunc(inputs, func(a, b FileInput) int { return strings.Compare(a.Source, b.Source) })
	return inputs, nil
}
