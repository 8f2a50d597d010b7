package artifact

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Weights []float64 `json:"weights"`
}

func TestWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loan_model.json")
	features := []string{"income", "loan_amount", "credit_score", "tenure"}

	err := Write(path, KindApproval, features, map[string]float64{"accuracy": 0.91}, payload{Weights: []float64{1, 2}})
	require.NoError(t, err)

	var got payload
	env, err := Read(path, KindApproval, &got)
	require.NoError(t, err)

	assert.Equal(t, []float64{1, 2}, got.Weights)
	assert.Equal(t, features, env.Features)
	assert.Equal(t, FormatVersion, env.FormatVersion)
	assert.InDelta(t, 0.91, env.Metrics["accuracy"], 1e-12)
	assert.Len(t, env.Fingerprint(), 16)
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fraud_model.json")

	require.NoError(t, Write(path, KindFraud, nil, nil, payload{}))
	require.NoError(t, Write(path, KindFraud, nil, nil, payload{Weights: []float64{3}}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "fraud_model.json", entries[0].Name())

	var got payload
	_, err = Read(path, KindFraud, &got)
	require.NoError(t, err)
	assert.Equal(t, []float64{3}, got.Weights)
}

func TestWriteIntoMissingDirFails(t *testing.T) {
	err := Write(filepath.Join(t.TempDir(), "nope", "m.json"), KindApproval, nil, nil, payload{})
	require.Error(t, err)
}

func TestReadFailures(t *testing.T) {
	dir := t.TempDir()

	_, err := Read(filepath.Join(dir, "absent.json"), KindApproval, &payload{})
	assert.ErrorIs(t, err, ErrModelLoad)
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	garbage := filepath.Join(dir, "garbage.json")
	require.NoError(t, os.WriteFile(garbage, []byte("{not json"), 0o644))
	_, err = Read(garbage, KindApproval, &payload{})
	assert.ErrorIs(t, err, ErrModelLoad)

	wrongKind := filepath.Join(dir, "fraud.json")
	require.NoError(t, Write(wrongKind, KindFraud, nil, nil, payload{}))
	_, err = Read(wrongKind, KindApproval, &payload{})
	assert.ErrorIs(t, err, ErrModelLoad)

	future := filepath.Join(dir, "future.json")
	raw, _ := json.Marshal(Envelope{Kind: KindApproval, FormatVersion: FormatVersion + 1, Payload: json.RawMessage(`{}`)})
	require.NoError(t, os.WriteFile(future, raw, 0o644))
	_, err = Read(future, KindApproval, &payload{})
	assert.ErrorIs(t, err, ErrModelLoad)

	badPayload := filepath.Join(dir, "bad_payload.json")
	raw, _ = json.Marshal(Envelope{Kind: KindApproval, FormatVersion: FormatVersion, Payload: json.RawMessage(`{"weights":"x"}`)})
	require.NoError(t, os.WriteFile(badPayload, raw, 0o644))
	_, err = Read(badPayload, KindApproval, &payload{})
	assert.ErrorIs(t, err, ErrModelLoad)
}
