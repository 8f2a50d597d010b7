package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func sampleCSV(n int) string {
	var b strings.Builder
	b.WriteString("ID,income,loan_amount,credit_score,tenure,Loan_Approved\n")
	for i := 0; i < n; i++ {
		score := 300 + (i*37)%550
		approved := 0
		if score >= 600 {
			approved = 1
		}
		fmt.Fprintf(&b, "%d,%d,%d,%d,%d,%d\n", i+1, 20000+(i*911)%80000, 5000+(i*353)%45000, score, 12*(1+i%5), approved)
	}
	return b.String()
}

func TestTrainingConfigPrecedence(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "config.yaml", `
training:
  dataset: from_file.xlsx
  trees: 50
  seed: 1
  features: [income, tenure]
`)
	t.Setenv("SMARTLOAN_TRAINING_SEED", "7")

	v := viper.New()
	v.SetConfigFile(cfgPath)
	require.NoError(t, v.ReadInConfig())
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("trees", 0, "")
	require.NoError(t, fs.Parse([]string{"--trees", "10"}))
	require.NoError(t, v.BindPFlag("training.trees", fs.Lookup("trees")))

	cfg, err := trainingConfig(v, false)
	require.NoError(t, err)

	assert.Equal(t, "from_file.xlsx", cfg.Dataset, "file")
	assert.Equal(t, int64(7), cfg.Seed, "env beats file")
	assert.Equal(t, 10, cfg.Trees, "flag beats file")
	assert.Equal(t, []string{"income", "tenure"}, cfg.Features)
	assert.Equal(t, "Loan_Approved", cfg.Target, "struct default")
	assert.Equal(t, 0.2, cfg.TestSize)

	cfg, err = trainingConfig(v, true)
	require.NoError(t, err)
	assert.Empty(t, cfg.Features)
}

func TestTrainingConfigValidates(t *testing.T) {
	v := viper.New()
	v.Set("training.test_size", 1.5)
	_, err := trainingConfig(v, false)
	assert.Error(t, err)
}

func TestApprovalAndFraudCommands(t *testing.T) {
	dir := t.TempDir()
	data := writeFile(t, dir, "loans.csv", sampleCSV(120))
	cfgPath := writeFile(t, dir, "config.yaml", "training:\n  target: Loan_Approved\n")
	out := filepath.Join(dir, "models")

	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs([]string{"all", "--config", cfgPath, "--dataset", data, "--output-dir", out, "--trees", "5", "--quiet"})
	require.NoError(t, root.Execute(), stderr.String())

	for _, name := range []string{"loan_model.json", "encoders.json", "fraud_model.json"} {
		assert.FileExists(t, filepath.Join(out, name))
	}
	assert.Contains(t, stdout.String(), "approval model:")
	assert.Contains(t, stdout.String(), "fraud model:")
}

func TestMissingDatasetFails(t *testing.T) {
	dir := t.TempDir()
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"approval", "--config", writeFile(t, dir, "c.yaml", "training: {}\n"),
		"--dataset", filepath.Join(dir, "absent.csv"), "--output-dir", filepath.Join(dir, "m"), "-q"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load")
	assert.NoDirExists(t, filepath.Join(dir, "m"))
}
