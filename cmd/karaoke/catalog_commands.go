package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"karaoke/internal/api"
)

func newStylesCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "styles",
		Short: "List subtitle style templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			styles := catalog(ctx, cmd, (*api.Client).Styles, api.Styles)
			if jsonOutput {
				return writeJSON(cmd, api.StylesResponse{Styles: styles})
			}
			rows := make([][]string, 0, len(styles))
			for _, s := range styles {
				id := s.ID
				if s.Recommended {
					id += " *"
				}
				rows = append(rows, []string{id, s.Name, s.Description})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "Name", "Description"}, rows, nil))
			fmt.Fprintln(cmd.OutOrStdout(), "* recommended")
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newRatiosCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "ratios",
		Short: "List output aspect ratio presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			ratios := catalog(ctx, cmd, (*api.Client).Ratios, api.Ratios)
			if jsonOutput {
				return writeJSON(cmd, api.RatiosResponse{Ratios: ratios})
			}
			rows := make([][]string, 0, len(ratios))
			for _, r := range ratios {
				rows = append(rows, []string{r.ID, r.Name, r.Resolution, r.Description})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "Name", "Resolution", "Description"}, rows, nil))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

// catalog asks the daemon and falls back to the built-in list when no
// daemon answers.
func catalog[T any](ctx *commandContext, cmd *cobra.Command, remote func(*api.Client, context.Context) ([]T, error), local func() []T) []T {
	client, err := api.NewClient(ctx.apiBind(), ctx.apiToken())
	if err != nil || client == nil {
		return local()
	}
	items, err := remote(client, cmd.Context())
	if err != nil {
		return local()
	}
	return items
}
