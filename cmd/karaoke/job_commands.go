package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"karaoke/internal/api"
	"karaoke/internal/config"
	"karaoke/internal/workflow"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var flags optionFlags
	var dir string
	var transcriptPath string
	var wait bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "submit [video...]",
		Short: "Submit videos to the daemon as one batch job",
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := collectInputs(args, dir, transcriptPath)
			if err != nil {
				return err
			}
			req := api.SubmitRequest{Files: files, Options: flags.options(cmd)}

			return ctx.withClient(func(client *api.Client) error {
				job, err := client.Submit(cmd.Context(), req)
				if err != nil {
					return err
				}
				if !wait {
					if jsonOutput {
						return writeJSON(cmd, job)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Submitted job %s (%d files)\n", job.JobID, job.TotalFiles)
					return nil
				}
				final, err := waitForJob(cmd, client, job, !jsonOutput)
				if err != nil {
					return err
				}
				if jsonOutput {
					if err := writeJSON(cmd, final); err != nil {
						return err
					}
				} else {
					printJobSummary(cmd, final)
				}
				if final.Status != string(workflow.StatusCompleted) {
					return fmt.Errorf("job %s %s: %s", final.JobID, final.Status, final.Error)
				}
				return nil
			})
		},
	}

	flags.bind(cmd)
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Submit every video in a directory")
	cmd.Flags().StringVarP(&transcriptPath, "transcript", "t", "", "Word timing JSON for a single video")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Wait for the job to finish and print progress")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

// collectInputs resolves CLI arguments and --dir into absolute inputs.
func collectInputs(args []string, dir, transcriptPath string) ([]workflow.FileInput, error) {
	var files []workflow.FileInput
	if strings.TrimSpace(dir) != "" {
		expanded, err := config.ExpandPath(dir)
		if err != nil {
			return nil, err
		}
		scanned, err := workflow.ScanDir(expanded)
		if err != nil {
			return nil, err
		}
		if len(scanned) == 0 {
			return nil, fmt.Errorf("no video files found in %s", expanded)
		}
		files = append(files, scanned...)
	}
	for _, arg := range args {
		source, err := config.ExpandPath(arg)
		if err != nil {
			return nil, err
		}
		files = append(files, workflow.FileInput{Source: source})
	}
	if len(files) == 0 {
		return nil, errors.New("no input files: pass videos or --dir")
	}
	if strings.TrimSpace(transcriptPath) != "" {
		if len(files) != 1 {
			return nil, errors.New("--transcript applies to a single video; use sidecar .json files for batches")
		}
		expanded, err := config.ExpandPath(transcriptPath)
		if err != nil {
			return nil, err
		}
		files[0].Transcript = expanded
	}
	return files, nil
}

// waitForJob long-polls the event feed until the job is terminal.
func waitForJob(cmd *cobra.Command, client *api.Client, job api.Job, verbose bool) (api.Job, error) {
	out := cmd.OutOrStdout()
	ctx := cmd.Context()
	var since uint64
	for !terminal(job.Status) {
		resp, err := client.Events(ctx, since, job.JobID, true)
		if err != nil {
			return job, err
		}
		since = resp.Next
		for _, evt := range resp.Events {
			if evt.Job != nil {
				job = *evt.Job
			}
			if !verbose {
				continue
			}
			switch workflow.EventType(evt.Type) {
			case workflow.EventFileStarted:
				fmt.Fprintf(out, "[%3d%%] rendering %s\n", job.Progress, evt.File)
			case workflow.EventFileCompleted:
				fmt.Fprintf(out, "[%3d%%] finished %s\n", job.Progress, evt.File)
			case workflow.EventFileFailed:
				fmt.Fprintf(out, "[%3d%%] failed %s\n", job.Progress, evt.File)
			case workflow.EventJobDeleted:
				return job, fmt.Errorf("job %s was deleted", job.JobID)
			}
		}
		if len(resp.Events) == 0 {
			// The long poll expired; refresh in case events were evicted.
			if job, err = client.Job(ctx, job.JobID); err != nil {
				return job, err
			}
		}
	}
	return job, nil
}

func terminal(status string) bool {
	s, ok := workflow.ParseStatus(status)
	return ok && s.Terminal()
}

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "jobs",
		Aliases: []string{"ls"},
		Short:   "List jobs known to the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				jobs, err := client.Jobs(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, jobs)
				}
				if len(jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No jobs")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderJobsTable(jobs))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Filter by status (pending, processing, completed, failed, cancelled)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one job with per-file results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				job, err := client.Job(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, job)
				}
				printJobDetail(cmd, job)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <job-id>",
		Short: "Cancel a pending or processing job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				job, err := client.Cancel(cmd.Context(), args[0])
				if err != nil {
					if errors.Is(err, workflow.ErrJobFinished) {
						return fmt.Errorf("job %s already finished", args[0])
					}
					return err
				}
				if job.Status == string(workflow.StatusProcessing) {
					fmt.Fprintf(cmd.OutOrStdout(), "Cancellation requested for job %s (stopping %s)\n", job.JobID, job.CurrentFile)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Job %s cancelled\n", job.JobID)
				return nil
			})
		},
	}
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	var removeOutputs bool

	cmd := &cobra.Command{
		Use:   "delete <job-id>",
		Short: "Delete a finished or pending job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				if err := client.Delete(cmd.Context(), args[0], removeOutputs); err != nil {
					if errors.Is(err, workflow.ErrJobProcessing) {
						return fmt.Errorf("job %s is processing; cancel it first", args[0])
					}
					return err
				}
				message := fmt.Sprintf("Job %s deleted", args[0])
				if removeOutputs {
					message += " with its outputs"
				}
				fmt.Fprintln(cmd.OutOrStdout(), message)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&removeOutputs, "outputs", false, "Also remove rendered files")
	return cmd
}

func printJobSummary(cmd *cobra.Command, job api.Job) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Job %s %s: %d rendered, %d failed of %d\n",
		job.JobID, job.Status, job.ProcessedFiles, job.FailedFiles, job.TotalFiles)
	for _, f := range job.OutputFiles {
		fmt.Fprintf(out, "  %s\n", f.Path)
	}
}

func printJobDetail(cmd *cobra.Command, job api.Job) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Job:        %s\n", job.JobID)
	fmt.Fprintf(out, "Status:     %s (%d%%)\n", job.Status, job.Progress)
	if job.CurrentFile != "" {
		fmt.Fprintf(out, "Current:    %s\n", job.CurrentFile)
	}
	fmt.Fprintf(out, "Files:      %d rendered, %d failed of %d\n", job.ProcessedFiles, job.FailedFiles, job.TotalFiles)
	fmt.Fprintf(out, "Style:      %s\n", job.Options.Style)
	fmt.Fprintf(out, "Output dir: %s\n", job.OutputDir)
	fmt.Fprintf(out, "Created:    %s\n", job.CreatedAt)
	if job.FinishedAt != "" {
		fmt.Fprintf(out, "Finished:   %s\n", job.FinishedAt)
	}
	if job.Error != "" {
		fmt.Fprintf(out, "Error:      %s\n", job.Error)
	}
	if len(job.Files) == 0 {
		return
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, renderFilesTable(job.Files))
}

func renderJobsTable(jobs []api.Job) string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		rows = append(rows, []string{
			job.JobID,
			job.Status,
			fmt.Sprintf("%d%%", job.Progress),
			fmt.Sprintf("%d/%d", job.ProcessedFiles+job.FailedFiles, job.TotalFiles),
			fmt.Sprintf("%d", job.FailedFiles),
			job.CurrentFile,
			job.CreatedAt,
		})
	}
	return renderTable(
		[]string{"ID", "Status", "Progress", "Files", "Failed", "Current", "Created"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft},
	)
}

func renderFilesTable(files []api.FileResult) string {
	rows := make([][]string, 0, len(files))
	for _, f := range files {
		result := f.Output
		if f.Error != "" {
			result = f.ErrorKind + ": " + f.Error
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", f.Index+1),
			filepath.Base(f.Source),
			f.Status,
			result,
		})
	}
	return renderTable(
		[]string{"#", "Source", "Status", "Result"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
	)
}
