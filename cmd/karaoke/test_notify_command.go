package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"karaoke/internal/notifications"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification through the configured sinks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Notifications.NtfyTopic == "" && cfg.Notifications.RedisAddr == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "Notification not sent: no ntfy topic or Redis address configured")
				return nil
			}
			service := notifications.NewService(cfg)
			defer service.Close()

			sendCtx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()
			if err := service.Publish(sendCtx, notifications.EventTest, notifications.Payload{}); err != nil {
				return fmt.Errorf("send test notification: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent")
			return nil
		},
	}
}
