// Package adapter defines the notification boundary for completed pulls.
//
// Adapters publish pull completion events to downstream systems
// (an HTTP endpoint or a Redis channel). The CLI owns adapter lifecycle;
// users provide configuration only.
package adapter

import (
	"context"
	"fmt"
	"time"
)

// EventTypePullCompleted is the event_type of PullCompletedEvent.
const EventTypePullCompleted = "pull_completed"

// ContractVersion is the payload version carried by every event.
const ContractVersion = "1"

// PullCompletedEvent is published after a collector drain.
type PullCompletedEvent struct {
	ContractVersion string   `json:"contract_version"`
	EventType       string   `json:"event_type"` // always "pull_completed"
	SessionID       string   `json:"session_id"`
	RunName         string   `json:"run_name,omitempty"`
	Outcome         string   `json:"outcome"` // success or partial_failure
	ManifestPath    string   `json:"manifest_path"`
	Artifacts       []string `json:"artifacts"`
	BytesPulled     int64    `json:"bytes_pulled"`
	Failures        int      `json:"failures"`
	Timestamp       string   `json:"timestamp"` // RFC 3339
	DurationMs      int64    `json:"duration_ms"`
}

// Adapter publishes pull completion events to a downstream system.
type Adapter interface {
	// Publish sends the event. Must respect context cancellation.
	Publish(ctx context.Context, event *PullCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}

// BaseBackoff is the delay before the first retry; it doubles per retry.
var BaseBackoff = 500 * time.Millisecond

// Retry calls attempt up to 1+retries times with exponential backoff
// between calls. attempt reports whether its failure is worth retrying.
// name prefixes returned errors.
func Retry(ctx context.Context, name string, retries int, attempt func(ctx context.Context) (retriable bool, err error)) error {
	attempts := 1 + retries
	var lastErr error
	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: context canceled: %w", name, err)
		}
		if i > 0 {
			backoff := time.Duration(1<<uint(i-1)) * BaseBackoff
			select {
			case <-ctx.Done():
				return fmt.Errorf("%s: context canceled during backoff: %w", name, ctx.Err())
			case <-time.After(backoff):
			}
		}

		retriable, err := attempt(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retriable {
			return fmt.Errorf("%s: non-retriable error: %w", name, err)
		}
	}
	return fmt.Errorf("%s: failed after %d attempts: %w", name, attempts, lastErr)
}
