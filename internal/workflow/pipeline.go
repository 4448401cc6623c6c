package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"karaoke/internal/config"
	"karaoke/internal/fileutil"
	"karaoke/internal/layout"
	"karaoke/internal/logging"
	"karaoke/internal/media/ffprobe"
	"karaoke/internal/render"
	"karaoke/internal/services"
	"karaoke/internal/services/whisperx"
	"karaoke/internal/subtitles"
	"karaoke/internal/textutil"
	"karaoke/internal/transcript"
)

// Transcriber produces a word-timing JSON file for a video.
type Transcriber interface {
	Transcribe(ctx context.Context, videoPath, workDir string) (string, error)
}

// ProbeFunc inspects a media file.
type ProbeFunc func(ctx context.Context, binary, path string) (ffprobe.Result, error)

// Pipeline is the production FileProcessor: probe, load words, synthesize
// the ASS track, build the render plan and encode.
type Pipeline struct {
	cfg         *config.Config
	logger      *slog.Logger
	probe       ProbeFunc
	transcriber Transcriber
}

// NewPipeline constructs a pipeline backed by ffprobe, ffmpeg and WhisperX.
func NewPipeline(cfg *config.Config, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{
		cfg:    cfg,
		logger: logger,
		probe:  ffprobe.Inspect,
		transcriber: whisperx.NewService(whisperx.Config{
			Model:       cfg.Transcription.Model,
			Language:    cfg.Transcription.Language,
			CUDAEnabled: cfg.Transcription.CUDAEnabled,
			VADMethod:   cfg.Transcription.VADMethod,
			HFToken:     cfg.Transcription.HFToken,
			Timeout:     cfg.TranscriptionTimeout(),
		}, cfg.Render.FFmpegBinary),
	}
}

// WithTranscriber replaces the WhisperX transcriber.
func (p *Pipeline) WithTranscriber(t Transcriber) *Pipeline {
	p.transcriber = t
	return p
}

// WithProbe replaces ffprobe.Inspect.
func (p *Pipeline) WithProbe(fn ProbeFunc) *Pipeline {
	p.probe = fn
	return p
}

// Process implements FileProcessor.
func (p *Pipeline) Process(ctx context.Context, task FileTask) (OutputFile, error) {
	source := task.Input.Source
	logger := logging.WithContext(ctx, p.logger).With(logging.String(logging.FieldFile, filepath.Base(source)))

	if info, err := os.Stat(source); err != nil {
		return OutputFile{}, services.Wrap(services.ErrNotFound, "pipeline", "stat source", source, err)
	} else if info.IsDir() {
		return OutputFile{}, services.Wrap(services.ErrValidation, "pipeline", "stat source", source+" is a directory", nil)
	}

	style, err := task.Options.style()
	if err != nil {
		return OutputFile{}, err
	}

	meta, err := p.inspect(ctx, source)
	if err != nil {
		return OutputFile{}, err
	}

	workDir := filepath.Join(p.cfg.Paths.WorkDir, task.JobID)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return OutputFile{}, services.Wrap(services.ErrConfiguration, "pipeline", "ensure work dir", workDir, err)
	}

	words, err := p.loadWords(ctx, logger, task, workDir)
	if err != nil {
		return OutputFile{}, err
	}

	stem := outputStem(source)
	outputName := stem + p.cfg.Render.OutputSuffix + ".mp4"
	subtitlePath := filepath.Join(workDir, stem+".ass")
	encodePath := filepath.Join(workDir, outputName)

	plan, err := render.Build(meta, subtitlePath, task.Options.renderConfig(p.cfg, source, encodePath, task.Index), task.Reference)
	if err != nil {
		return OutputFile{}, err
	}

	track, err := subtitles.Generate(words, task.Options.generateOptions(style, plan.Frame))
	if err != nil {
		return OutputFile{}, err
	}
	if err := track.WriteFile(subtitlePath); err != nil {
		return OutputFile{}, services.Wrap(services.ErrConfiguration, "pipeline", "write subtitles", subtitlePath, err)
	}
	if !p.cfg.Render.KeepSubtitles {
		defer os.Remove(subtitlePath)
	}
	logger.Info("subtitle track written",
		logging.String(logging.FieldEventType, "subtitles_written"),
		logging.Int("words", len(words)),
		logging.Int("cues", len(track.Events)),
		logging.String("style", style.Name),
	)

	runner := render.NewRunner(p.cfg.Render.FFmpegBinary, p.cfg.EncodeTimeout(), logger)
	if task.Progress != nil {
		runner = runner.WithProgress(func(pr render.Progress) {
			if pr.Percent >= 0 {
				task.Progress(pr.Percent)
			}
		})
	}
	if err := runner.Run(ctx, plan); err != nil {
		return OutputFile{}, err
	}

	finalPath := filepath.Join(task.OutputDir, outputName)
	if err := os.MkdirAll(task.OutputDir, 0o755); err != nil {
		return OutputFile{}, services.Wrap(services.ErrConfiguration, "pipeline", "ensure output dir", task.OutputDir, err)
	}
	if err := fileutil.MoveFile(encodePath, finalPath); err != nil {
		_ = os.Remove(encodePath)
		return OutputFile{}, services.Wrap(services.ErrConfiguration, "pipeline", "move output", finalPath, err)
	}
	if p.cfg.Render.KeepSubtitles {
		if err := fileutil.MoveFile(subtitlePath, filepath.Join(task.OutputDir, stem+".ass")); err != nil {
			logger.Warn("subtitle track not kept",
				logging.Error(err),
				logging.String(logging.FieldEventType, "subtitles_keep_failed"),
				logging.String(logging.FieldImpact, "the rendered video is unaffected"),
			)
		}
	}

	info, err := os.Stat(finalPath)
	if err != nil {
		return OutputFile{}, services.Wrap(services.ErrExternalTool, "pipeline", "stat output", finalPath, err)
	}
	return OutputFile{Name: outputName, Path: finalPath, Size: info.Size()}, nil
}

func (p *Pipeline) inspect(ctx context.Context, source string) (ffprobe.Result, error) {
	probeCtx := ctx
	if timeout := p.cfg.ProbeTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	meta, err := p.probe(probeCtx, p.cfg.Render.FFprobeBinary, source)
	if err == nil {
		return meta, nil
	}
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return ffprobe.Result{}, services.Wrap(services.ErrCancelled, "pipeline", "probe", "", err)
	case errors.Is(probeCtx.Err(), context.DeadlineExceeded):
		return ffprobe.Result{}, services.Wrap(services.ErrTimeout, "pipeline", "probe", source, err)
	}
	return ffprobe.Result{}, services.Wrap(services.ErrValidation, "pipeline", "probe", "unreadable metadata", err)
}

// loadWords resolves word timings: an explicit transcript, then a JSON
// sidecar next to the video, then WhisperX when transcription is enabled.
func (p *Pipeline) loadWords(ctx context.Context, logger *slog.Logger, task FileTask, workDir string) ([]layout.Word, error) {
	path := strings.TrimSpace(task.Input.Transcript)
	if path == "" {
		path = sidecarTranscript(task.Input.Source)
	}
	if path == "" {
		if !deref(task.Options.Transcribe) || p.transcriber == nil {
			return nil, services.Wrap(services.ErrValidation, "pipeline", "word timings",
				"no transcript found and transcription is disabled", nil)
		}
		logger.Info("transcribing audio",
			logging.String(logging.FieldEventType, "transcription_started"),
			logging.String(logging.FieldStage, "transcription"),
		)
		produced, err := p.transcriber.Transcribe(ctx, task.Input.Source, workDir)
		if err != nil {
			return nil, err
		}
		path = produced
	}

	words, err := transcript.Load(path)
	if err != nil {
		return nil, err
	}
	if len(words) == 0 {
		return nil, services.Wrap(services.ErrValidation, "pipeline", "word timings", fmt.Sprintf("%s contains no words", filepath.Base(path)), nil)
	}
	return words, nil
}

func sidecarTranscript(source string) string {
	candidate := strings.TrimSuffix(source, filepath.Ext(source)) + ".json"
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		return candidate
	}
	return ""
}

func outputStem(source string) string {
	stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	if clean := textutil.SanitizeFileName(stem); clean != "" {
		return clean
	}
	return "video"
}
