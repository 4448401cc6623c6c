// Command karaoked runs the karaoke render daemon: the worker pool, the job
// store and the HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"karaoke/internal/config"
	"karaoke/internal/daemonrun"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCommand().Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string
	var envFile string
	var opts daemonrun.Options

	cmd := &cobra.Command{
		Use:           "karaoked",
		Short:         "Karaoke render daemon",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if envFile = strings.TrimSpace(envFile); envFile != "" {
				if err := godotenv.Overload(envFile); err != nil {
					return fmt.Errorf("load env file: %w", err)
				}
			}
			cfg, _, _, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return daemonrun.Run(cmd.Context(), cfg, opts)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Configuration file path")
	cmd.Flags().StringVar(&envFile, "env-file", "", "Additional .env file loaded before the config")
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "", "Override logging.level")
	cmd.Flags().BoolVar(&opts.Development, "dev", false, "Include source locations in logs")
	return cmd
}
