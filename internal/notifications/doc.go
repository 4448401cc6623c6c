// Package notifications delivers job events via pluggable notifiers.
//
// Two transports are provided: ntfy pushes for the milestones a person cares
// about (a batch finished, a batch or file failed) and Redis pub/sub, which
// receives every event as JSON so other processes can follow job progress.
// NewService combines whichever transports are configured and degrades to a
// no-op when none are.
package notifications
