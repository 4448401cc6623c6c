package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"karaoke/internal/api"
	"karaoke/internal/logs"
	"karaoke/internal/logstream"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int
	var jobID string
	var component string
	var level string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display daemon logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := logs.NewStreamClient(ctx.apiBind(), ctx.apiToken())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printed, err := logstream.Stream(cmd.Context(), client, cfg.LogFilePath(), logstream.Options{
				Lines:  lines,
				Follow: follow,
				Filters: logstream.Filters{
					JobID:     jobID,
					Component: component,
					Level:     level,
				},
			}, func(evt api.LogEvent) {
				fmt.Fprintln(out, formatLogEvent(evt))
			}, func(line string) {
				fmt.Fprintln(out, line)
			})
			if err != nil {
				if errors.Is(err, logstream.ErrFiltersRequireAPI) {
					return fmt.Errorf("%w; start karaoked or drop --job/--component/--level", err)
				}
				return err
			}
			if !printed && !follow {
				fmt.Fprintln(out, "No log entries available")
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&lines, "lines", "n", 10, "Number of lines to show (0 for all)")
	cmd.Flags().StringVar(&jobID, "job", "", "Only show logs for one job")
	cmd.Flags().StringVar(&component, "component", "", "Only show logs from one component")
	cmd.Flags().StringVar(&level, "level", "", "Minimum level (debug, info, warn, error)")
	return cmd
}

func formatLogEvent(evt api.LogEvent) string {
	ts := evt.Timestamp
	if parsed, err := time.Parse(time.RFC3339Nano, evt.Timestamp); err == nil {
		ts = parsed.Local().Format("2006-01-02 15:04:05")
	}
	level := strings.ToUpper(strings.TrimSpace(evt.Level))
	if level == "" {
		level = "INFO"
	}
	parts := []string{ts, level}
	if component := strings.TrimSpace(evt.Component); component != "" {
		parts = append(parts, fmt.Sprintf("[%s]", component))
	}
	line := strings.Join(parts, " ")
	if subject := logSubject(evt.JobID, evt.File); subject != "" {
		line += " " + subject
	}
	if message := strings.TrimSpace(evt.Message); message != "" {
		line += " - " + message
	}
	return line
}

func logSubject(jobID, file string) string {
	if len(jobID) > 8 {
		jobID = jobID[:8]
	}
	switch {
	case jobID != "" && file != "":
		return fmt.Sprintf("Job %s (%s)", jobID, file)
	case jobID != "":
		return "Job " + jobID
	default:
		return file
	}
}
