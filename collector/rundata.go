package collector

import (
	"maps"
	"slices"
	"sync"
)

// PulledArtifact describes one processed entry.
type PulledArtifact struct {
	Key         string `msgpack:"key" json:"key"`
	Name        string `msgpack:"name" json:"name"`
	Path        string `msgpack:"path" json:"path"`
	IsDir       bool   `msgpack:"is_dir" json:"is_dir"`
	SizeBytes   int64  `msgpack:"size_bytes" json:"size_bytes"`
	ContentType string `msgpack:"content_type" json:"content_type"`
	Digest      string `msgpack:"digest" json:"digest"`
}

// RunData accumulates results for one run. Safe for concurrent use.
type RunData struct {
	mu         sync.Mutex
	metrics    map[string]string
	artifacts  []PulledArtifact
	stagingDir string
}

// NewRunData creates an empty accumulator.
func NewRunData() *RunData {
	return &RunData{metrics: make(map[string]string)}
}

// AddMetric records a metric value. A later value for the same key wins.
func (d *RunData) AddMetric(key, value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.metrics[key] = value
}

// Metrics returns a copy of the recorded metrics.
func (d *RunData) Metrics() map[string]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return maps.Clone(d.metrics)
}

// AddArtifact records a processed entry.
func (d *RunData) AddArtifact(a PulledArtifact) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.artifacts = append(d.artifacts, a)
}

// Artifacts returns a copy of the recorded artifacts in processing order.
func (d *RunData) Artifacts() []PulledArtifact {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.artifacts)
}

// StagingDir returns the directory pulled copies were written to, or ""
// if nothing was pulled. The caller may remove it once processing is done.
func (d *RunData) StagingDir() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stagingDir
}

func (d *RunData) setStagingDir(dir string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stagingDir = dir
}
