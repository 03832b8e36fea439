package reader

import (
	"errors"

	"github.com/justapithecus/hostside/metrics"
	"github.com/justapithecus/hostside/store"
)

// ParseMetricsRecord converts a report metrics record to a Snapshot.
// Numeric fields may be int64 (direct writes) or float64 (JSON round-trips).
func ParseMetricsRecord(record map[string]any) (*metrics.Snapshot, error) {
	if record == nil {
		return nil, errors.New("nil record")
	}

	snap := &metrics.Snapshot{
		ResolutionsStarted:   toInt64(record["resolutions_started"]),
		ResolutionsSucceeded: toInt64(record["resolutions_succeeded"]),
		ResolutionsFailed:    toInt64(record["resolutions_failed"]),
		BytesDownloaded:      toInt64(record["bytes_downloaded"]),
		ArchivesUnpacked:     toInt64(record["archives_unpacked"]),

		FilesPulled:       toInt64(record["files_pulled"]),
		DirectoriesPulled: toInt64(record["directories_pulled"]),
		PullFailures:      toInt64(record["pull_failures"]),
		CallbackFailures:  toInt64(record["callback_failures"]),

		SessionID: toString(record["session"]),
	}
	if fbk, ok := record["failures_by_kind"]; ok && fbk != nil {
		snap.FailuresByKind = parseCounts(fbk)
	}

	if snap.SessionID == "" {
		return nil, errors.New("metrics record missing required field: session")
	}
	return snap, nil
}

// ParseArtifactRecord converts a report artifact record.
func ParseArtifactRecord(record map[string]any) (store.ArtifactRecord, error) {
	a := store.ArtifactRecord{
		Key:         toString(record["key"]),
		Name:        toString(record["name"]),
		Path:        toString(record["path"]),
		SizeBytes:   toInt64(record["size_bytes"]),
		ContentType: toString(record["content_type"]),
		Digest:      toString(record["digest"]),
	}
	a.IsDir, _ = record["is_dir"].(bool)
	if a.Key == "" {
		return a, errors.New("artifact record missing required field: key")
	}
	return a, nil
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	case int:
		return int64(n)
	default:
		return 0
	}
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// parseCounts handles map[string]int64 (direct) and map[string]any
// (JSON round-trip).
func parseCounts(v any) map[string]int64 {
	switch m := v.(type) {
	case map[string]int64:
		return m
	case map[string]any:
		result := make(map[string]int64, len(m))
		for k, val := range m {
			result[k] = toInt64(val)
		}
		return result
	default:
		return nil
	}
}
