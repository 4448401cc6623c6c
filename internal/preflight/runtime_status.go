package preflight

import (
	"context"
	"strings"

	"karaoke/internal/config"
)

// CheckNtfyFromConfig evaluates ntfy status from config and connectivity.
func CheckNtfyFromConfig(ctx context.Context, cfg *config.Config) Result {
	const name = "ntfy"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	return CheckNtfy(ctx, cfg.Notifications.NtfyTopic)
}

// CheckRedisFromConfig evaluates Redis status from config and connectivity.
func CheckRedisFromConfig(ctx context.Context, cfg *config.Config) Result {
	const name = "Redis"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	n := cfg.Notifications
	if strings.TrimSpace(n.RedisAddr) == "" {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	return CheckRedis(ctx, n.RedisAddr, n.RedisPassword, n.RedisDB)
}

// CheckSinks reports the status of every notification sink.
func CheckSinks(ctx context.Context, cfg *config.Config) []Result {
	return []Result{
		CheckNtfyFromConfig(ctx, cfg),
		CheckRedisFromConfig(ctx, cfg),
	}
}
