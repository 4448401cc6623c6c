package main

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"karaoke/internal/api"
	"karaoke/internal/config"
	"karaoke/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, dependency and notification status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			var status *api.DaemonStatus
			client, err := api.NewClient(ctx.apiBind(), ctx.apiToken())
			if err != nil {
				return err
			}
			if client != nil {
				remote, err := client.Status(cmd.Context())
				switch {
				case err == nil:
					status = &remote
				case !api.IsAPIUnavailable(err):
					return err
				}
			}

			deps := api.FromDependencies(preflight.CheckSystemDeps(cmd.Context(), cfg))
			sinks := api.FromCheckResults(preflight.CheckSinks(cmd.Context(), cfg))
			if status != nil {
				deps, sinks = status.Dependencies, status.Sinks
			}

			if jsonOutput {
				return writeJSON(cmd, map[string]any{
					"daemon":       status,
					"dependencies": deps,
					"sinks":        sinks,
				})
			}

			colorize := shouldColorize(cmd.OutOrStdout())
			var lines []string
			lines = append(lines, renderSectionHeader("Daemon", colorize)...)
			lines = append(lines, daemonLines(status, ctx.apiBind(), colorize)...)
			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
			lines = append(lines, dependencyLines(deps, colorize)...)
			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Directories", colorize)...)
			lines = append(lines, directoryLines(cfg, colorize)...)
			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Notifications", colorize)...)
			lines = append(lines, sinkLines(sinks, colorize)...)
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(lines, "\n"))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func daemonLines(status *api.DaemonStatus, bind string, colorize bool) []string {
	if status == nil {
		message := "Not running"
		if strings.TrimSpace(bind) == "" {
			message = "API disabled (paths.api_bind is empty)"
		}
		return []string{renderStatusLine("Karaoke", statusError, message, colorize)}
	}
	lines := []string{
		renderStatusLine("Karaoke", statusOK, fmt.Sprintf("Running (pid %d, %s)", status.PID, bind), colorize),
	}
	wf := status.Workflow
	lines = append(lines, renderStatusLine("Workers", statusInfo,
		fmt.Sprintf("%d workers, %d active, %d queued", wf.Workers, len(wf.Active), wf.Queued), colorize))
	if len(wf.JobCounts) > 0 {
		lines = append(lines, renderStatusLine("Jobs", statusInfo, formatCounts(wf.JobCounts), colorize))
	}
	if len(status.StoredJobs) > 0 {
		lines = append(lines, renderStatusLine("Stored", statusInfo, formatCounts(status.StoredJobs), colorize))
	}
	if wf.LastError != "" {
		lines = append(lines, renderStatusLine("Last error", statusWarn, wf.LastError, colorize))
	}
	lines = append(lines, renderStatusLine("Output", statusInfo, status.OutputDir, colorize))
	lines = append(lines, renderStatusLine("Log", statusInfo, status.LogPath, colorize))
	return lines
}

// formatCounts renders counts as sorted key=value pairs.
func formatCounts(counts map[string]int) string {
	keys := slices.Sorted(maps.Keys(counts))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[k]))
	}
	return strings.Join(parts, " ")
}

func dependencyLines(deps []api.DependencyStatus, colorize bool) []string {
	lines := make([]string, 0, len(deps)+1)
	missing := make([]string, 0)
	for _, dep := range deps {
		if dep.Available {
			message := "Ready"
			if dep.Command != "" {
				message = fmt.Sprintf("Ready (command: %s)", dep.Command)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}

		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
		if !dep.Optional {
			missing = append(missing, dep.Name)
		}
	}
	if len(missing) > 0 {
		lines = append(lines, renderStatusLine("Missing dependencies", statusWarn, fmt.Sprintf("%s (see README.md for install steps)", strings.Join(missing, ", ")), colorize))
	}
	return lines
}

func directoryLines(cfg *config.Config, colorize bool) []string {
	return []string{
		directoryStatusLine("Output", cfg.Paths.OutputDir, colorize),
		directoryStatusLine("Work", cfg.Paths.WorkDir, colorize),
		directoryStatusLine("Logs", cfg.Paths.LogDir, colorize),
	}
}

func directoryStatusLine(label, path string, colorize bool) string {
	result := preflight.CheckDirectoryAccess(label, path)
	if result.Passed {
		return renderStatusLine(label, statusOK, result.Detail, colorize)
	}
	return renderStatusLine(label, statusError, result.Detail, colorize)
}

func sinkLines(sinks []api.CheckResult, colorize bool) []string {
	if len(sinks) == 0 {
		return []string{renderStatusLine("Sinks", statusInfo, "None configured", colorize)}
	}
	lines := make([]string, 0, len(sinks))
	for _, sink := range sinks {
		kind := statusOK
		if !sink.Passed {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(sink.Name, kind, sink.Detail, colorize))
	}
	return lines
}
