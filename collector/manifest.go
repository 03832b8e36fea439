package collector

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// ManifestVersion is the current manifest encoding version.
const ManifestVersion = 1

// ManifestFile is the conventional manifest file name.
const ManifestFile = "manifest.msgpack"

// Manifest summarizes one drained run.
type Manifest struct {
	Version     int               `msgpack:"version" json:"version"`
	SessionID   string            `msgpack:"session_id" json:"session_id"`
	RunName     string            `msgpack:"run_name,omitempty" json:"run_name,omitempty"`
	CompletedAt time.Time         `msgpack:"completed_at" json:"completed_at"`
	Metrics     map[string]string `msgpack:"metrics" json:"metrics"`
	Artifacts   []PulledArtifact  `msgpack:"artifacts" json:"artifacts"`
}

// NewManifest snapshots data into a manifest.
func NewManifest(sessionID, runName string, data *RunData, completedAt time.Time) *Manifest {
	return &Manifest{
		Version:     ManifestVersion,
		SessionID:   sessionID,
		RunName:     runName,
		CompletedAt: completedAt.UTC(),
		Metrics:     data.Metrics(),
		Artifacts:   data.Artifacts(),
	}
}

// EncodeManifest encodes m as msgpack.
func EncodeManifest(m *Manifest) ([]byte, error) {
	return msgpack.Marshal(m)
}

// DecodeManifest decodes a msgpack manifest.
func DecodeManifest(b []byte) (*Manifest, error) {
	var m Manifest
	if err := msgpack.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if m.Version != ManifestVersion {
		return nil, fmt.Errorf("unsupported manifest version %d", m.Version)
	}
	return &m, nil
}

// WriteManifest writes m to path via a temp file and rename.
func WriteManifest(path string, m *Manifest) error {
	b, err := EncodeManifest(m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".manifest-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return nil
}

// ReadManifest reads a manifest written by WriteManifest.
func ReadManifest(path string) (*Manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeManifest(b)
}
