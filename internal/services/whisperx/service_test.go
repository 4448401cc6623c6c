package whisperx

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"karaoke/internal/services"
)

func TestBuildArgsCPUWithLanguage(t *testing.T) {
	svc := NewService(Config{Language: "en-US"}, "")
	args := svc.buildArgs("/work/a.wav", "/work")
	joined := strings.Join(args, " ")
	for _, want := range []string{
		"--index-url " + PypiIndexURL,
		"whisperx /work/a.wav",
		"--model " + DefaultModel,
		"--output_format json",
		"--vad_method silero",
		"--language en",
		"--device cpu --compute_type float32",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected %q in args %q", want, joined)
		}
	}
	if slices.Contains(args, "--hf_token") {
		t.Fatalf("did not expect hf token for silero: %v", args)
	}
}

func TestBuildArgsCUDAPyannote(t *testing.T) {
	svc := NewService(Config{CUDAEnabled: true, VADMethod: VADMethodPyannote, HFToken: "hf", Language: "klingon-nonsense"}, "")
	args := svc.buildArgs("/work/a.wav", "/work")
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "--extra-index-url "+PypiIndexURL) {
		t.Fatalf("expected extra index for cuda: %q", joined)
	}
	if !strings.Contains(joined, "--hf_token hf") || !strings.Contains(joined, "--device cuda") {
		t.Fatalf("unexpected cuda args: %q", joined)
	}
	if strings.Contains(joined, "--language") {
		t.Fatalf("expected invalid language to be dropped: %q", joined)
	}
}

func TestTranscribeRunsExtractionThenWhisperX(t *testing.T) {
	workDir := t.TempDir()
	svc := NewService(Config{}, "ffmpeg-test")
	var calls []string
	svc.WithCommandRunner(func(_ context.Context, name string, args ...string) error {
		calls = append(calls, name)
		if name == UVXCommand {
			return os.WriteFile(filepath.Join(workDir, "clip.json"), []byte(`{"segments":[]}`), 0o644)
		}
		return nil
	})
	path, err := svc.Transcribe(context.Background(), "/videos/clip.mp4", workDir)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if path != filepath.Join(workDir, "clip.json") {
		t.Fatalf("unexpected transcript path %q", path)
	}
	if len(calls) != 2 || calls[0] != "ffmpeg-test" || calls[1] != UVXCommand {
		t.Fatalf("unexpected command order %v", calls)
	}
}

func TestTranscribeClassifiesTimeout(t *testing.T) {
	svc := NewService(Config{Timeout: time.Millisecond}, "")
	svc.WithCommandRunner(func(ctx context.Context, _ string, _ ...string) error {
		<-ctx.Done()
		return ctx.Err()
	})
	_, err := svc.Transcribe(context.Background(), "/videos/clip.mp4", t.TempDir())
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout marker, got %v", err)
	}
}

func TestDecodeSegmentsHandlesMissingWordTimes(t *testing.T) {
	data := []byte(`{"segments":[{"text":"Hi 42","start":0.5,"end":1.5,"words":[{"word":"Hi","start":0.5,"end":0.9,"score":0.9},{"word":"42"}]}]}`)
	segments, err := DecodeSegments(data)
	if err != nil {
		t.Fatalf("DecodeSegments: %v", err)
	}
	if len(segments) != 1 || len(segments[0].Words) != 2 {
		t.Fatalf("unexpected segments %+v", segments)
	}
	if segments[0].Words[1].Start != nil {
		t.Fatalf("expected missing start to decode as nil")
	}
}
