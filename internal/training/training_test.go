package training

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"SmartLoan/internal/services/classifier"
	"SmartLoan/pkg/artifact"
	"SmartLoan/pkg/config"
	"SmartLoan/pkg/dataset"
	"SmartLoan/pkg/ml/encoding"
	"SmartLoan/pkg/ml/forest"
)

// loanCSV writes n rows where approval follows credit score, with a few
// gaps to exercise cleaning. label overrides the approval rule when set.
func loanCSV(t *testing.T, n int, label func(i int, score float64) string) string {
	t.Helper()
	rng := rand.New(rand.NewSource(7))
	var b strings.Builder
	b.WriteString("ID,income,loan_amount,credit_score,tenure,Gender,Loan_Approved\n")
	for i := 0; i < n; i++ {
		income := 20000 + rng.Float64()*80000
		amount := 5000 + rng.Float64()*45000
		score := 300 + rng.Float64()*550
		tenure := []int{6, 12, 24, 36, 60}[rng.Intn(5)]
		gender := []string{"M", "F"}[rng.Intn(2)]

		y := "0"
		if score >= 600 {
			y = "1"
		}
		if label != nil {
			y = label(i, score)
		}

		incomeCell := fmt.Sprintf("%.0f", income)
		if i%17 == 3 {
			incomeCell = ""
		}
		fmt.Fprintf(&b, "%d,%s,%.0f,%.0f,%d,%s,%s\n", i+1, incomeCell, amount, score, tenure, gender, y)
	}

	path := filepath.Join(t.TempDir(), "loans.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func testConfig(dataset, out string) config.TrainingConfig {
	cfg := config.Default().Training
	cfg.Dataset = dataset
	cfg.OutputDir = out
	cfg.Trees = 25
	cfg.Fraud.Trees = 25
	return cfg
}

func TestCleanFillsGaps(t *testing.T) {
	f, err := dataset.ReadCSV(strings.NewReader(
		"ID,income,grade\n1,10,b\n2,,a\n3,30,\n4,40,b\n5,NaN,a\n"))
	require.NoError(t, err)

	cleaned, kinds, err := Clean(f, "ID")
	require.NoError(t, err)

	assert.Equal(t, []string{"income", "grade"}, cleaned.Columns)
	assert.Equal(t, Numeric, kinds["income"])
	assert.Equal(t, Categorical, kinds["grade"])

	income, _ := cleaned.Column("income")
	assert.Equal(t, []string{"10", "30", "30", "40", "30"}, income, "median of 10,30,40")

	grade, _ := cleaned.Column("grade")
	assert.Equal(t, []string{"b", "a", "a", "b", "a"}, grade, "a/b tie resolves to a")

	orig, _ := f.Column("income")
	assert.Equal(t, "", orig[1], "input frame untouched")
}

func TestCleanEvenMedianAndEmptyColumn(t *testing.T) {
	f, err := dataset.ReadCSV(strings.NewReader("x,y\n1,\n2,\n,\n4,\n"))
	require.NoError(t, err)

	_, _, err = Clean(f, "ID")
	assert.ErrorIs(t, err, ErrEmptyColumn)

	f, err = dataset.ReadCSV(strings.NewReader("x\n1\n2\n\n4\n5\n"))
	require.NoError(t, err)
	cleaned, _, err := Clean(f, "ID")
	require.NoError(t, err)
	x, _ := cleaned.Column("x")
	assert.Equal(t, "3", x[2])
}

func TestEncodeTargets(t *testing.T) {
	f, err := dataset.ReadCSV(strings.NewReader("a,g,y\n1,M,Y\n2,F,N\n3,M,Y\n"))
	require.NoError(t, err)
	cleaned, kinds, err := Clean(f, "ID")
	require.NoError(t, err)

	m, err := Encode(cleaned, kinds, "y", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "g"}, m.Features)
	assert.Equal(t, []int{1, 0, 1}, m.Y)
	assert.Equal(t, [][]float64{{1, 1}, {2, 0}, {3, 1}}, m.X)
	assert.Equal(t, []string{"N", "Y"}, m.Encoders[TargetEncoderKey].Classes)
	assert.Equal(t, []string{"F", "M"}, m.Encoders["g"].Classes)

	_, err = Encode(cleaned, kinds, "y", []string{"a", "y"})
	assert.ErrorIs(t, err, ErrTargetIsFeature)

	_, err = Encode(cleaned, kinds, "y", []string{"missing"})
	assert.ErrorIs(t, err, dataset.ErrUnknownColumn)

	f, _ = dataset.ReadCSV(strings.NewReader("a,y\n1,0\n2,2\n"))
	cleaned, kinds, _ = Clean(f, "ID")
	_, err = Encode(cleaned, kinds, "y", nil)
	assert.ErrorIs(t, err, ErrTargetNotBinary)

	f, _ = dataset.ReadCSV(strings.NewReader("a,y\n1,A\n2,B\n3,C\n"))
	cleaned, kinds, _ = Clean(f, "ID")
	_, err = Encode(cleaned, kinds, "y", nil)
	assert.ErrorIs(t, err, ErrTargetNotBinary)
}

func TestSplitIsSeeded(t *testing.T) {
	train1, test1, err := Split(10, 0.2, 42)
	require.NoError(t, err)
	train2, test2, err := Split(10, 0.2, 42)
	require.NoError(t, err)

	assert.Equal(t, train1, train2)
	assert.Equal(t, test1, test2)
	assert.Len(t, test1, 2)
	assert.Len(t, train1, 8)

	_, test3, _ := Split(11, 0.2, 42)
	assert.Len(t, test3, 3, "ceil(11*0.2)")

	_, test4, _ := Split(10, 0.2, 43)
	assert.NotEqual(t, test1, test4)

	_, _, err = Split(1, 0.2, 42)
	assert.ErrorIs(t, err, ErrTooFewRows)
}

func TestEvaluate(t *testing.T) {
	m := Evaluate([]int{1, 1, 0, 0, 1}, []int{1, 0, 0, 1, 1})
	assert.InDelta(t, 0.6, m.Accuracy, 1e-12)
	assert.InDelta(t, 2.0/3, m.Precision, 1e-12)
	assert.InDelta(t, 2.0/3, m.Recall, 1e-12)
	assert.InDelta(t, 2.0/3, m.F1, 1e-12)

	none := Evaluate([]int{0, 0}, []int{0, 0})
	assert.Equal(t, 1.0, none.Accuracy)
	assert.Zero(t, none.Precision)
	assert.Zero(t, none.F1)
}

func TestPipelineEndToEnd(t *testing.T) {
	out := filepath.Join(t.TempDir(), "models")
	cfg := testConfig(loanCSV(t, 200, nil), out)

	var ticks int
	res, err := NewPipeline(cfg, WithProgress(func(done, total int) { ticks++ })).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 25, ticks)
	assert.Equal(t, []string{"income", "loan_amount", "credit_score", "tenure"}, res.Features)
	assert.Equal(t, 160, res.TrainRows)
	assert.Equal(t, 40, res.Metrics.TestRows)
	assert.Greater(t, res.Metrics.Accuracy, 0.85)

	approval, err := classifier.LoadApproval(res.ModelPath)
	require.NoError(t, err)
	assert.InDelta(t, res.Metrics.Accuracy, approval.Metrics()["accuracy"], 1e-12)

	set, err := classifier.CheckEncoders(res.EncodersPath)
	require.NoError(t, err)
	assert.Empty(t, set, "numeric target and features need no encoders")
}

func TestPipelineIsReproducible(t *testing.T) {
	data := loanCSV(t, 120, nil)

	load := func(dir string) *forest.Forest {
		res, err := NewPipeline(testConfig(data, dir)).Run(context.Background())
		require.NoError(t, err)
		var f forest.Forest
		_, err = artifact.Read(res.ModelPath, artifact.KindApproval, &f)
		require.NoError(t, err)
		return &f
	}

	assert.Equal(t, load(t.TempDir()), load(t.TempDir()))
}

func TestPipelineCategoricalTargetFromXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loans.xlsx")
	book := excelize.NewFile()
	require.NoError(t, book.SetSheetRow("Sheet1", "A1", &[]interface{}{"ID", "income", "loan_amount", "credit_score", "tenure", "Loan_Approved"}))
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 60; i++ {
		score := 300 + rng.Intn(550)
		y := "N"
		if score >= 600 {
			y = "Y"
		}
		row := []interface{}{i + 1, 20000 + rng.Intn(80000), 5000 + rng.Intn(45000), score, 36, y}
		require.NoError(t, book.SetSheetRow("Sheet1", fmt.Sprintf("A%d", i+2), &row))
	}
	require.NoError(t, book.SaveAs(path))
	require.NoError(t, book.Close())

	out := t.TempDir()
	res, err := NewPipeline(testConfig(path, out)).Run(context.Background())
	require.NoError(t, err)

	var set encoding.Set
	_, err = artifact.Read(res.EncodersPath, artifact.KindEncoders, &set)
	require.NoError(t, err)
	require.Contains(t, set, TargetEncoderKey)
	assert.Equal(t, []string{"N", "Y"}, set[TargetEncoderKey].Classes)
}

func TestPipelineFailuresWriteNothing(t *testing.T) {
	tests := []struct {
		name  string
		phase Phase
		setup func(t *testing.T, cfg *config.TrainingConfig)
	}{
		{"missing dataset", PhaseLoad, func(t *testing.T, cfg *config.TrainingConfig) {
			cfg.Dataset = filepath.Join(t.TempDir(), "nope.xlsx")
		}},
		{"non-binary target", PhaseEncode, func(t *testing.T, cfg *config.TrainingConfig) {
			cfg.Dataset = loanCSV(t, 50, func(i int, _ float64) string { return fmt.Sprint(i % 3) })
		}},
		{"unknown feature", PhaseEncode, func(t *testing.T, cfg *config.TrainingConfig) {
			cfg.Features = []string{"income", "age"}
		}},
		{"below min accuracy", PhaseEvaluate, func(t *testing.T, cfg *config.TrainingConfig) {
			rng := rand.New(rand.NewSource(11))
			cfg.Dataset = loanCSV(t, 200, func(int, float64) string { return fmt.Sprint(rng.Intn(2)) })
			cfg.MinAccuracy = 0.99
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "models")
			cfg := testConfig(loanCSV(t, 50, nil), out)
			tt.setup(t, &cfg)

			_, err := NewPipeline(cfg).Run(context.Background())
			var failure *Failure
			require.ErrorAs(t, err, &failure)
			assert.Equal(t, tt.phase, failure.Phase)

			_, statErr := os.Stat(out)
			assert.True(t, os.IsNotExist(statErr), "no output dir on failure")
		})
	}
}

func TestPipelineHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPipeline(testConfig(loanCSV(t, 50, nil), t.TempDir())).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFraudPipeline(t *testing.T) {
	out := t.TempDir()
	cfg := testConfig(loanCSV(t, 150, nil), out)

	res, err := NewFraudPipeline(cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 150, res.Rows)
	assert.Equal(t, 0.5, res.Threshold)

	fraud, err := classifier.LoadFraud(res.ModelPath)
	require.NoError(t, err)
	label, err := fraud.Predict(context.Background(), []float64{1e9, 1e9, 1e6, 1000})
	require.NoError(t, err)
	assert.Equal(t, -1, label)

	cfg.Fraud.Contamination = 0.1
	res, err = NewFraudPipeline(cfg).Run(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 0.1, res.OutlierRate, 0.03)
}

func TestFraudPipelineRejectsCategoricalSchemaColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte(
		"ID,income,loan_amount,credit_score,tenure\n1,a,1,1,1\n2,b,2,2,2\n"), 0o644))

	_, err := NewFraudPipeline(testConfig(path, t.TempDir())).Run(context.Background())
	var failure *Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, PhaseEncode, failure.Phase)
	assert.ErrorIs(t, err, ErrCategoricalFeature)
}
