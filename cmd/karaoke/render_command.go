package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"karaoke/internal/config"
	"karaoke/internal/logging"
	"karaoke/internal/render"
	"karaoke/internal/subtitles"
	"karaoke/internal/transcript"
	"karaoke/internal/workflow"
)

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var flags optionFlags
	var transcriptPath string
	var outputDir string
	var keepSubtitles bool
	var verbose bool

	cmd := &cobra.Command{
		Use:   "render <video>",
		Short: "Render one karaoke video locally without the daemon",
		Long: "Render one karaoke video locally. Word timings come from --transcript, a sidecar\n" +
			"JSON next to the video, or WhisperX when --transcribe is set.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if keepSubtitles {
				cfg.Render.KeepSubtitles = true
			}

			opts := flags.options(cmd).Resolve(cfg)
			if err := opts.Validate(); err != nil {
				return err
			}

			source, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			if strings.TrimSpace(transcriptPath) != "" {
				if transcriptPath, err = config.ExpandPath(transcriptPath); err != nil {
					return err
				}
			}
			if strings.TrimSpace(outputDir) == "" {
				outputDir = cfg.Paths.OutputDir
			} else if outputDir, err = config.ExpandPath(outputDir); err != nil {
				return err
			}

			logger, err := cliLogger(cfg, verbose)
			if err != nil {
				return err
			}

			runID := "local-" + uuid.NewString()
			defer os.RemoveAll(filepath.Join(cfg.Paths.WorkDir, runID))

			out := cmd.OutOrStdout()
			interactive := shouldColorize(out)
			name := filepath.Base(source)
			last := -1
			task := workflow.FileTask{
				JobID:     runID,
				Total:     1,
				Input:     workflow.FileInput{Source: source, Transcript: transcriptPath},
				Options:   opts,
				OutputDir: outputDir,
				Reference: time.Now(),
				Progress: func(percent float64) {
					if !interactive || int(percent) == last {
						return
					}
					last = int(percent)
					fmt.Fprintf(out, "\rRendering %s: %3d%%", name, last)
				},
			}

			result, err := workflow.NewPipeline(cfg, logger).Process(cmd.Context(), task)
			if interactive && last >= 0 {
				fmt.Fprintln(out)
			}
			if err != nil {
				return fmt.Errorf("render %s: %w", name, err)
			}
			fmt.Fprintf(out, "Rendered %s -> %s (%s)\n", name, result.Path, formatBytes(result.Size))
			return nil
		},
	}

	flags.bind(cmd)
	cmd.Flags().StringVarP(&transcriptPath, "transcript", "t", "", "Word timing JSON (defaults to a sidecar .json next to the video)")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Directory for the rendered file (defaults to paths.output_dir)")
	cmd.Flags().BoolVar(&keepSubtitles, "keep-subtitles", false, "Keep the generated .ass track next to the output")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level")
	return cmd
}

func newSubtitlesCommand(ctx *commandContext) *cobra.Command {
	var flags optionFlags
	var outputPath string
	var width, height int

	cmd := &cobra.Command{
		Use:   "subtitles <transcript>",
		Short: "Generate a karaoke ASS subtitle track from word timings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opts := flags.options(cmd).Resolve(cfg)
			if err := opts.Validate(); err != nil {
				return err
			}

			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			words, err := transcript.Load(path)
			if err != nil {
				return err
			}

			genOpts, err := opts.SubtitleOptions(render.Dimensions{Width: width, Height: height})
			if err != nil {
				return err
			}
			track, err := subtitles.Generate(words, genOpts)
			if err != nil {
				return err
			}

			if strings.TrimSpace(outputPath) == "" || outputPath == "-" {
				_, err := track.WriteTo(cmd.OutOrStdout())
				return err
			}
			if outputPath, err = config.ExpandPath(outputPath); err != nil {
				return err
			}
			if err := track.WriteFile(outputPath); err != nil {
				return fmt.Errorf("write subtitles: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d cues to %s\n", len(track.Events), outputPath)
			return nil
		},
	}

	flags.bind(cmd)
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Destination .ass file (stdout when empty or -)")
	cmd.Flags().IntVar(&width, "width", 1920, "Frame width the track is laid out for")
	cmd.Flags().IntVar(&height, "height", 1080, "Frame height the track is laid out for")
	return cmd
}

func cliLogger(cfg *config.Config, verbose bool) (*slog.Logger, error) {
	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	return logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stderr"},
	})
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
