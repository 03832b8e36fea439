// Package metrics provides per-session counters for artifact resolution
// and collection.
//
// The Collector is a leaf package with no internal dependencies. Failure
// kinds are plain strings so resolver and collector packages can record
// them without an import cycle.
package metrics

import (
	"maps"
	"sync"
)

// Snapshot is an immutable point-in-time view of all counters.
type Snapshot struct {
	// Resolution
	ResolutionsStarted   int64            `json:"resolutions_started"`
	ResolutionsSucceeded int64            `json:"resolutions_succeeded"`
	ResolutionsFailed    int64            `json:"resolutions_failed"`
	FailuresByKind       map[string]int64 `json:"failures_by_kind"`
	BytesDownloaded      int64            `json:"bytes_downloaded"`
	ArchivesUnpacked     int64            `json:"archives_unpacked"`

	// Collection
	FilesPulled       int64 `json:"files_pulled"`
	DirectoriesPulled int64 `json:"directories_pulled"`
	PullFailures      int64 `json:"pull_failures"`
	CallbackFailures  int64 `json:"callback_failures"`

	// Dimensions
	SessionID string `json:"session_id"`
}

// Collector accumulates counters during a single session.
// Thread-safe via sync.Mutex. All methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	resolutionsStarted   int64
	resolutionsSucceeded int64
	resolutionsFailed    int64
	failuresByKind       map[string]int64
	bytesDownloaded      int64
	archivesUnpacked     int64

	filesPulled       int64
	directoriesPulled int64
	pullFailures      int64
	callbackFailures  int64

	sessionID string
}

// NewCollector creates a Collector for the given session.
func NewCollector(sessionID string) *Collector {
	return &Collector{
		failuresByKind: make(map[string]int64),
		sessionID:      sessionID,
	}
}

// --- Resolution ---

// IncResolutionStarted records a resolution attempt.
func (c *Collector) IncResolutionStarted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.resolutionsStarted++
	c.mu.Unlock()
}

// IncResolutionSucceeded records a successful resolution.
func (c *Collector) IncResolutionSucceeded() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.resolutionsSucceeded++
	c.mu.Unlock()
}

// IncResolutionFailed records a failed resolution under the given kind
// (e.g. "download", "not_found", "unsupported_scheme").
func (c *Collector) IncResolutionFailed(kind string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.resolutionsFailed++
	c.failuresByKind[kind]++
	c.mu.Unlock()
}

// AddBytesDownloaded adds n bytes to the download total.
func (c *Collector) AddBytesDownloaded(n int64) {
	if c == nil || n <= 0 {
		return
	}
	c.mu.Lock()
	c.bytesDownloaded += n
	c.mu.Unlock()
}

// IncArchiveUnpacked records an archive extraction.
func (c *Collector) IncArchiveUnpacked() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.archivesUnpacked++
	c.mu.Unlock()
}

// --- Collection ---

// IncFilePulled records a file pulled from a bridge.
func (c *Collector) IncFilePulled() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.filesPulled++
	c.mu.Unlock()
}

// IncDirectoryPulled records a directory pulled from a bridge.
func (c *Collector) IncDirectoryPulled() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.directoriesPulled++
	c.mu.Unlock()
}

// IncPullFailure records a failed pull.
func (c *Collector) IncPullFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.pullFailures++
	c.mu.Unlock()
}

// IncCallbackFailure records a processing callback that returned an error.
func (c *Collector) IncCallbackFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.callbackFailures++
	c.mu.Unlock()
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all counters.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	byKind := make(map[string]int64, len(c.failuresByKind))
	maps.Copy(byKind, c.failuresByKind)

	return Snapshot{
		ResolutionsStarted:   c.resolutionsStarted,
		ResolutionsSucceeded: c.resolutionsSucceeded,
		ResolutionsFailed:    c.resolutionsFailed,
		FailuresByKind:       byKind,
		BytesDownloaded:      c.bytesDownloaded,
		ArchivesUnpacked:     c.archivesUnpacked,

		FilesPulled:       c.filesPulled,
		DirectoriesPulled: c.directoriesPulled,
		PullFailures:      c.pullFailures,
		CallbackFailures:  c.callbackFailures,

		SessionID: c.sessionID,
	}
}
