// Package reader reads pull reports back from the report dataset.
package reader

import (
	"context"
	"errors"
	"fmt"

	"github.com/justapithecus/lode/lode"

	"github.com/justapithecus/hostside/metrics"
	"github.com/justapithecus/hostside/store"
)

// ErrNoReport is returned when the dataset holds no records for the
// requested session.
var ErrNoReport = errors.New("no report records found")

// SessionReport is everything one session wrote to the report dataset.
type SessionReport struct {
	SessionID   string                 `json:"session_id"`
	Day         string                 `json:"day"`
	CompletedAt string                 `json:"completed_at,omitempty"`
	Artifacts   []store.ArtifactRecord `json:"artifacts"`
	Metrics     *metrics.Snapshot      `json:"metrics,omitempty"`
}

// ReadSession collects the records of one session. An empty sessionID
// selects the session of the most recent snapshot.
func ReadSession(ctx context.Context, ds lode.Dataset, sessionID string) (*SessionReport, error) {
	snapshots, err := ds.Snapshots(ctx)
	if err != nil {
		return nil, store.Wrap(err, "snapshots", "report")
	}

	var rep *SessionReport
	// Latest first; records within a snapshot keep write order.
	for i := len(snapshots) - 1; i >= 0; i-- {
		data, err := ds.Read(ctx, snapshots[i].ID)
		if err != nil {
			return nil, store.Wrap(err, "read", fmt.Sprintf("report/snapshot/%s", snapshots[i].ID))
		}
		var batch []store.ArtifactRecord
		for _, item := range data {
			record, ok := item.(map[string]any)
			if !ok {
				continue
			}
			session := toString(record["session"])
			if sessionID == "" {
				sessionID = session
			}
			if session != sessionID {
				continue
			}
			if rep == nil {
				rep = &SessionReport{SessionID: session, Day: toString(record["day"])}
			}
			switch toString(record["record_kind"]) {
			case store.RecordKindArtifact:
				a, err := ParseArtifactRecord(record)
				if err != nil {
					return nil, err
				}
				batch = append(batch, a)
			case store.RecordKindMetrics:
				if err := rep.setMetrics(record); err != nil {
					return nil, err
				}
			}
		}
		if len(batch) > 0 {
			rep.Artifacts = append(batch, rep.Artifacts...)
		}
	}

	if rep == nil {
		return nil, ErrNoReport
	}
	return rep, nil
}

// setMetrics keeps the most recent metrics record.
func (r *SessionReport) setMetrics(record map[string]any) error {
	if r.Metrics != nil {
		return nil
	}
	snap, err := ParseMetricsRecord(record)
	if err != nil {
		return err
	}
	r.Metrics = snap
	r.CompletedAt = toString(record["completed_at"])
	return nil
}
