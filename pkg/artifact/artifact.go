// Package artifact persists trained models as JSON envelopes. Writes go to a
// temporary file in the target directory that is fsynced and renamed over
// the destination, so readers see either the old or the new file.
package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const FormatVersion = 1

const (
	KindApproval = "approval_forest"
	KindFraud    = "fraud_isoforest"
	KindEncoders = "label_encoders"
)

// ErrModelLoad marks every failure to obtain a usable artifact.
var ErrModelLoad = errors.New("model load failed")

type Envelope struct {
	Kind          string             `json:"kind"`
	FormatVersion int                `json:"format_version"`
	Features      []string           `json:"features,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	Metrics       map[string]float64 `json:"metrics,omitempty"`
	Payload       json.RawMessage    `json:"payload"`
}

// Write marshals payload into an envelope and atomically replaces path.
func Write(path, kind string, features []string, metrics map[string]float64, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", kind, err)
	}

	env := Envelope{
		Kind:          kind,
		FormatVersion: FormatVersion,
		Features:      features,
		CreatedAt:     time.Now().UTC(),
		Metrics:       metrics,
		Payload:       body,
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", kind, err)
	}

	return WriteFileAtomic(path, raw, 0o644)
}

// WriteFileAtomic writes data next to path and renames it into place.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err = os.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}

	if d, derr := os.Open(dir); derr == nil {
		_ = d.Sync()
		d.Close()
	}
	return nil
}

// Read loads an envelope, checks its kind and format version, and decodes
// the payload into out. All failures wrap ErrModelLoad.
func Read(path, kind string, out interface{}) (*Envelope, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrModelLoad, path, err)
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %s: decode envelope: %v", ErrModelLoad, path, err)
	}
	if env.Kind != kind {
		return nil, fmt.Errorf("%w: %s: kind %q, want %q", ErrModelLoad, path, env.Kind, kind)
	}
	if env.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("%w: %s: format version %d, want %d", ErrModelLoad, path, env.FormatVersion, FormatVersion)
	}
	if err := json.Unmarshal(env.Payload, out); err != nil {
		return nil, fmt.Errorf("%w: %s: decode payload: %v", ErrModelLoad, path, err)
	}
	return &env, nil
}

// Fingerprint is a short content hash identifying a loaded artifact.
func (e *Envelope) Fingerprint() string {
	h := sha256.New()
	h.Write([]byte(e.Kind))
	h.Write([]byte(e.CreatedAt.Format(time.RFC3339Nano)))
	h.Write(e.Payload)
	return hex.EncodeToString(h.Sum(nil))[:16]
}
