package store

import (
	"context"
	"fmt"
	"time"

	"github.com/justapithecus/lode/lode"
)

// Record kind discriminators written to the report dataset.
const (
	RecordKindArtifact = "pulled_artifact"
	RecordKindMetrics  = "metrics"
)

// DefaultReportDataset is the dataset ID used for collection reports.
const DefaultReportDataset = "hostside"

// DeriveDay computes the partition day from a session start time.
// Format: YYYY-MM-DD in UTC.
func DeriveDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// ReportConfig holds the partition keys for one report.
type ReportConfig struct {
	// Dataset is the lode dataset ID (defaults to DefaultReportDataset).
	Dataset string
	// SessionID is the partition key for the harness session.
	SessionID string
	// Day is the partition key derived from session start (YYYY-MM-DD UTC).
	Day string
}

// ArtifactRecord describes one pulled artifact in the report.
type ArtifactRecord struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Path        string `json:"path"`
	IsDir       bool   `json:"is_dir"`
	SizeBytes   int64  `json:"size_bytes"`
	ContentType string `json:"content_type"`
	Digest      string `json:"digest"`
}

// Report writes collection results to a Hive-partitioned lode dataset
// (session/day/record_kind) using the JSONL codec.
type Report struct {
	dataset lode.Dataset
	config  ReportConfig
}

// NewReport creates a report writer over the given store factory.
func NewReport(cfg ReportConfig, factory lode.StoreFactory) (*Report, error) {
	if cfg.Dataset == "" {
		cfg.Dataset = DefaultReportDataset
	}
	if cfg.SessionID == "" {
		return nil, fmt.Errorf("report requires a session id")
	}
	ds, err := NewReportDataset(cfg.Dataset, factory)
	if err != nil {
		return nil, Wrap(err, "init", cfg.Dataset)
	}
	return &Report{dataset: ds, config: cfg}, nil
}

// NewReportDataset opens the report dataset for reading or writing.
// Uses the same codec and layout for both paths.
func NewReportDataset(dataset string, factory lode.StoreFactory) (lode.Dataset, error) {
	return lode.NewDataset(
		lode.DatasetID(dataset),
		factory,
		lode.WithHiveLayout("session", "day", "record_kind"),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
}

// WriteArtifacts writes one record per pulled artifact.
// An empty batch is a no-op.
func (r *Report) WriteArtifacts(ctx context.Context, artifacts []ArtifactRecord) error {
	if len(artifacts) == 0 {
		return nil
	}

	records := make([]any, 0, len(artifacts))
	for _, a := range artifacts {
		records = append(records, map[string]any{
			"record_kind":  RecordKindArtifact,
			"session":      r.config.SessionID,
			"day":          r.config.Day,
			"key":          a.Key,
			"name":         a.Name,
			"path":         a.Path,
			"is_dir":       a.IsDir,
			"size_bytes":   a.SizeBytes,
			"content_type": a.ContentType,
			"digest":       a.Digest,
		})
	}

	if _, err := r.dataset.Write(ctx, records, lode.Metadata{}); err != nil {
		return Wrap(err, "write", r.config.Dataset)
	}
	return nil
}

// WriteMetrics writes a single metrics record. The counters are passed as
// a flat map so this package does not depend on metrics.
func (r *Report) WriteMetrics(ctx context.Context, counters map[string]any, completedAt time.Time) error {
	record := map[string]any{
		"record_kind":  RecordKindMetrics,
		"session":      r.config.SessionID,
		"day":          r.config.Day,
		"completed_at": completedAt.UTC().Format(time.RFC3339Nano),
	}
	for k, v := range counters {
		if _, reserved := record[k]; reserved {
			continue
		}
		record[k] = v
	}

	if _, err := r.dataset.Write(ctx, []any{record}, lode.Metadata{}); err != nil {
		return Wrap(err, "write", r.config.Dataset)
	}
	return nil
}
