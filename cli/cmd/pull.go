package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/justapithecus/lode/lode"
	"github.com/urfave/cli/v2"

	"github.com/justapithecus/hostside/adapter"
	"github.com/justapithecus/hostside/adapter/redis"
	"github.com/justapithecus/hostside/adapter/webhook"
	"github.com/justapithecus/hostside/collector"
	"github.com/justapithecus/hostside/iox"
	"github.com/justapithecus/hostside/metrics"
	"github.com/justapithecus/hostside/store"
)

// DefaultOutputDir receives pulled artifacts when neither --out nor
// collector.output is set.
const DefaultOutputDir = "hostside-out"

// PullSummary is the rendered result of a pull.
type PullSummary struct {
	SessionID string                     `json:"session_id"`
	RunName   string                     `json:"run_name,omitempty"`
	Output    string                     `json:"output"`
	Manifest  string                     `json:"manifest"`
	Artifacts []collector.PulledArtifact `json:"artifacts"`
	Metrics   metrics.Snapshot           `json:"metrics"`
	Errors    []string                   `json:"errors,omitempty"`
}

// PullCommand returns the pull command.
func PullCommand() *cli.Command {
	return &cli.Command{
		Name:  "pull",
		Usage: "Pull metric files from a device store into a local directory",
		Flags: append(CommonFlags(),
			// Source
			&cli.StringFlag{Name: "source-backend", Usage: "Source backend: fs or s3"},
			&cli.StringFlag{Name: "source-path", Usage: "Source directory (fs) or bucket/prefix (s3)"},
			&cli.StringFlag{Name: "source-region", Usage: "Source S3 region"},
			&cli.StringFlag{Name: "source-endpoint", Usage: "Source S3-compatible endpoint URL"},
			&cli.BoolFlag{Name: "source-s3-path-style", Usage: "Force path-style addressing for the source"},
			&cli.StringSliceFlag{Name: "pattern", Usage: "Key regexp to pull (repeatable; first match wins)"},
			&cli.StringFlag{Name: "out", Usage: "Output directory (default: " + DefaultOutputDir + ")"},
			&cli.StringFlag{Name: "run-name", Usage: "Test run name recorded in the manifest"},

			// Report
			&cli.StringFlag{Name: "report-backend", Usage: "Report backend: fs or s3"},
			&cli.StringFlag{Name: "report-path", Usage: "Report directory (fs) or bucket/prefix (s3); empty disables the report"},
			&cli.StringFlag{Name: "report-dataset", Usage: "Report dataset id"},

			// Notify
			&cli.StringFlag{Name: "notify-type", Usage: "Notification adapter: webhook or redis"},
			&cli.StringFlag{Name: "notify-url", Usage: "Webhook endpoint or Redis URL"},
			&cli.StringFlag{Name: "notify-channel", Usage: "Redis channel"},
		),
		Action: pullAction,
	}
}

func pullAction(c *cli.Context) error {
	runName := c.String("run-name")
	s, err := newSession(c, runName)
	if err != nil {
		return err
	}
	defer iox.DiscardErr(s.logger.Sync)

	cc := s.cfg.Collector
	sourcePath := stringOr(c, "source-path", cc.Path)
	if sourcePath == "" {
		return cli.Exit("pull requires --source-path or collector.path", exitUsage)
	}
	patterns := cc.Patterns
	if c.IsSet("pattern") {
		patterns = c.StringSlice("pattern")
	}
	if len(patterns) == 0 {
		return cli.Exit("pull requires at least one --pattern or collector.patterns", exitUsage)
	}
	out := stringOr(c, "out", cc.Output)
	if out == "" {
		out = DefaultOutputDir
	}
	// One run per output directory: the manifest must describe every file in it.
	manifestPath := filepath.Join(out, collector.ManifestFile)
	if _, err := os.Stat(manifestPath); err == nil {
		return cli.Exit(fmt.Sprintf("%s already holds a pull (%s exists); choose another --out", out, collector.ManifestFile), exitUsage)
	} else if !os.IsNotExist(err) {
		return usageError(fmt.Errorf("check output: %w", err))
	}
	s.logger.Sugar().Debugf("pulling %d pattern(s) from %s into %s", len(patterns), sourcePath, out)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, err := store.OpenStore(ctx, stringOr(c, "source-backend", cc.Backend), sourcePath, store.S3Config{
		Region:       stringOr(c, "source-region", cc.Region),
		Endpoint:     stringOr(c, "source-endpoint", cc.Endpoint),
		UsePathStyle: c.Bool("source-s3-path-style") || cc.S3PathStyle,
	})
	if err != nil {
		return usageError(fmt.Errorf("open source: %w", err))
	}

	archiver, err := collector.NewArchiver(out)
	if err != nil {
		return failure("prepare output: %v", err)
	}
	puller, err := collector.NewPuller(collector.Config{
		Bridge:     collector.NewStoreBridge(src, ""),
		StagingDir: out,
		Logger:     s.logger,
		Metrics:    s.metrics,
	})
	if err != nil {
		return failure("%v", err)
	}
	for _, p := range patterns {
		if err := puller.Register(p, archiver); err != nil {
			return usageError(err)
		}
	}

	started := time.Now()
	if err := puller.TestRunStarted(ctx, runName); err != nil {
		return failure("%v", err)
	}
	data, drainErr := puller.TestRunEnded(ctx)
	if data == nil {
		return failure("%v", drainErr)
	}
	if dir := data.StagingDir(); dir != "" {
		if err := os.RemoveAll(dir); err != nil {
			s.logger.Sugar().Warnf("failed to remove staging directory %s: %v", dir, err)
		}
	}

	manifest := collector.NewManifest(s.id, runName, data, time.Now())
	if err := collector.WriteManifest(manifestPath, manifest); err != nil {
		return failure("write manifest: %v", err)
	}

	if err := writeReport(ctx, c, s, manifest, started); err != nil {
		s.logger.Sugar().Errorf("failed to write report: %v", err)
		return failure("write report: %v", err)
	}

	failures := splitErrors(drainErr)
	notifyPulled(ctx, c, s, buildEvent(s.id, runName, manifestPath, manifest, len(failures), started))

	summary := PullSummary{
		SessionID: s.id,
		RunName:   runName,
		Output:    out,
		Manifest:  manifestPath,
		Artifacts: manifest.Artifacts,
		Metrics:   s.metrics.Snapshot(),
	}
	for _, e := range failures {
		summary.Errors = append(summary.Errors, e.Error())
	}
	if err := s.renderer.Render(summary); err != nil {
		return err
	}
	if drainErr != nil {
		return failure("pull completed with %d failure(s)", len(failures))
	}
	return nil
}

// splitErrors flattens a joined drain error into its parts.
func splitErrors(err error) []error {
	if err == nil {
		return nil
	}
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		return joined.Unwrap()
	}
	return []error{err}
}

func buildEvent(sessionID, runName, manifestPath string, m *collector.Manifest, failures int, started time.Time) *adapter.PullCompletedEvent {
	ev := &adapter.PullCompletedEvent{
		ContractVersion: adapter.ContractVersion,
		EventType:       adapter.EventTypePullCompleted,
		SessionID:       sessionID,
		RunName:         runName,
		Outcome:         "success",
		ManifestPath:    manifestPath,
		Artifacts:       make([]string, 0, len(m.Artifacts)),
		Failures:        failures,
		Timestamp:       m.CompletedAt.UTC().Format(time.RFC3339),
		DurationMs:      m.CompletedAt.Sub(started).Milliseconds(),
	}
	if failures > 0 {
		ev.Outcome = "partial_failure"
	}
	for _, a := range m.Artifacts {
		ev.Artifacts = append(ev.Artifacts, a.Name)
		ev.BytesPulled += a.SizeBytes
	}
	return ev
}

// writeReport appends the pull to the report dataset when a report path
// is configured.
func writeReport(ctx context.Context, c *cli.Context, s *session, m *collector.Manifest, started time.Time) error {
	rc := s.cfg.Report
	path := stringOr(c, "report-path", rc.Path)
	if path == "" {
		return nil
	}
	st, err := store.OpenStore(ctx, stringOr(c, "report-backend", rc.Backend), path, store.S3Config{
		Region:       rc.Region,
		Endpoint:     rc.Endpoint,
		UsePathStyle: rc.S3PathStyle,
	})
	if err != nil {
		return err
	}
	rep, err := store.NewReport(store.ReportConfig{
		Dataset:   stringOr(c, "report-dataset", rc.Dataset),
		SessionID: s.id,
		Day:       store.DeriveDay(started),
	}, func() (lode.Store, error) { return st, nil })
	if err != nil {
		return err
	}

	records := make([]store.ArtifactRecord, 0, len(m.Artifacts))
	for _, a := range m.Artifacts {
		records = append(records, store.ArtifactRecord{
			Key:         a.Key,
			Name:        a.Name,
			Path:        a.Path,
			IsDir:       a.IsDir,
			SizeBytes:   a.SizeBytes,
			ContentType: a.ContentType,
			Digest:      a.Digest,
		})
	}
	if err := rep.WriteArtifacts(ctx, records); err != nil {
		return err
	}

	counters, err := snapshotCounters(s.metrics.Snapshot())
	if err != nil {
		return err
	}
	return rep.WriteMetrics(ctx, counters, m.CompletedAt)
}

// snapshotCounters flattens a snapshot into its JSON field names.
func snapshotCounters(snap metrics.Snapshot) (map[string]any, error) {
	b, err := json.Marshal(snap)
	if err != nil {
		return nil, err
	}
	var counters map[string]any
	if err := json.Unmarshal(b, &counters); err != nil {
		return nil, err
	}
	return counters, nil
}

// notifyPulled publishes the completion event. Publish failures are
// logged and never change the command's outcome.
func notifyPulled(ctx context.Context, c *cli.Context, s *session, ev *adapter.PullCompletedEvent) {
	a, err := buildAdapter(c, s)
	if err != nil {
		s.logger.Sugar().Warnf("notification adapter unavailable: %v", err)
		return
	}
	if a == nil {
		return
	}
	defer func() { _ = a.Close() }()

	if err := a.Publish(ctx, ev); err != nil {
		s.logger.Sugar().Warnf("failed to publish pull event: %v", err)
		return
	}
	s.logger.Sugar().Infof("published %s event (%s)", ev.EventType, ev.Outcome)
}

// buildAdapter returns nil when no adapter is configured.
func buildAdapter(c *cli.Context, s *session) (adapter.Adapter, error) {
	nc := s.cfg.Notify
	kind := stringOr(c, "notify-type", nc.Type)
	url := stringOr(c, "notify-url", nc.URL)

	switch kind {
	case "":
		return nil, nil
	case "webhook":
		retries := webhook.DefaultRetries
		if nc.Retries != nil {
			retries = *nc.Retries
		}
		return webhook.New(webhook.Config{
			URL:     url,
			Headers: nc.Headers,
			Timeout: nc.Timeout.Duration,
			Retries: retries,
		})
	case "redis":
		retries := redis.DefaultRetries
		if nc.Retries != nil {
			retries = *nc.Retries
		}
		return redis.New(redis.Config{
			URL:     url,
			Channel: stringOr(c, "notify-channel", nc.Channel),
			Timeout: nc.Timeout.Duration,
			Retries: retries,
		})
	default:
		return nil, fmt.Errorf("unknown notify type %q (must be webhook or redis)", kind)
	}
}
