package reader

import (
	"errors"
	"testing"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/justapithecus/hostside/store"
)

func writeSession(t *testing.T, factory lode.StoreFactory, session string, names ...string) {
	t.Helper()
	r, err := store.NewReport(store.ReportConfig{SessionID: session, Day: "2026-10-15"}, factory)
	if err != nil {
		t.Fatal(err)
	}
	var records []store.ArtifactRecord
	for _, n := range names {
		records = append(records, store.ArtifactRecord{Key: n, Name: n, SizeBytes: 10})
	}
	if err := r.WriteArtifacts(t.Context(), records); err != nil {
		t.Fatal(err)
	}
	counters := map[string]any{
		"files_pulled":     int64(len(names)),
		"failures_by_kind": map[string]int64{"download": 1},
	}
	if err := r.WriteMetrics(t.Context(), counters, time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)); err != nil {
		t.Fatal(err)
	}
}

func openDataset(t *testing.T, factory lode.StoreFactory) lode.Dataset {
	t.Helper()
	ds, err := store.NewReportDataset(store.DefaultReportDataset, factory)
	if err != nil {
		t.Fatal(err)
	}
	return ds
}

func TestReadSession(t *testing.T) {
	mem := lode.NewMemory()
	factory := func() (lode.Store, error) { return mem, nil }
	writeSession(t, factory, "s1", "a", "b")
	writeSession(t, factory, "s2", "c")

	ds := openDataset(t, factory)

	latest, err := ReadSession(t.Context(), ds, "")
	if err != nil {
		t.Fatalf("ReadSession(latest): %v", err)
	}
	if latest.SessionID != "s2" || len(latest.Artifacts) != 1 || latest.Artifacts[0].Key != "c" {
		t.Errorf("latest = %+v", latest)
	}

	first, err := ReadSession(t.Context(), ds, "s1")
	if err != nil {
		t.Fatalf("ReadSession(s1): %v", err)
	}
	if len(first.Artifacts) != 2 || first.Artifacts[0].Key != "a" || first.Artifacts[1].Key != "b" {
		t.Errorf("artifacts = %+v", first.Artifacts)
	}
	if first.Metrics == nil || first.Metrics.FilesPulled != 2 || first.Metrics.FailuresByKind["download"] != 1 {
		t.Errorf("metrics = %+v", first.Metrics)
	}
	if first.Day != "2026-10-15" || first.CompletedAt == "" {
		t.Errorf("report = %+v", first)
	}
}

func TestReadSession_Missing(t *testing.T) {
	mem := lode.NewMemory()
	factory := func() (lode.Store, error) { return mem, nil }
	writeSession(t, factory, "s1", "a")

	_, err := ReadSession(t.Context(), openDataset(t, factory), "nope")
	if !errors.Is(err, ErrNoReport) {
		t.Errorf("err = %v, want ErrNoReport", err)
	}
}

func TestParseMetricsRecord(t *testing.T) {
	tests := []struct {
		name    string
		record  map[string]any
		want    int64
		wantErr bool
	}{
		{"int64", map[string]any{"session": "s", "files_pulled": int64(4)}, 4, false},
		{"json float", map[string]any{"session": "s", "files_pulled": float64(4)}, 4, false},
		{"missing session", map[string]any{"files_pulled": int64(4)}, 0, true},
		{"nil", nil, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := ParseMetricsRecord(tt.record)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && snap.FilesPulled != tt.want {
				t.Errorf("FilesPulled = %d, want %d", snap.FilesPulled, tt.want)
			}
		})
	}
}

func TestParseMetricsRecord_FailuresByKindFromJSON(t *testing.T) {
	snap, err := ParseMetricsRecord(map[string]any{
		"session":          "s",
		"failures_by_kind": map[string]any{"not_found": float64(2)},
	})
	if err != nil {
		t.Fatal(err)
	}
	if snap.FailuresByKind["not_found"] != 2 {
		t.Errorf("FailuresByKind = %v", snap.FailuresByKind)
	}
}

func TestParseArtifactRecord(t *testing.T) {
	a, err := ParseArtifactRecord(map[string]any{
		"key": "trace", "name": "trace.pb", "is_dir": true, "size_bytes": float64(12),
	})
	if err != nil {
		t.Fatal(err)
	}
	if a.Key != "trace" || !a.IsDir || a.SizeBytes != 12 {
		t.Errorf("a = %+v", a)
	}
	if _, err := ParseArtifactRecord(map[string]any{"name": "x"}); err == nil {
		t.Error("missing key should fail")
	}
}
