package training

import (
	"fmt"
	"strconv"

	"SmartLoan/pkg/dataset"
	"SmartLoan/pkg/ml/encoding"
)

// TargetEncoderKey is where the target encoder is stored in encoders.json.
const TargetEncoderKey = "target"

// Matrix is an encoded training table.
type Matrix struct {
	Features []string
	X        [][]float64
	Y        []int
	Encoders encoding.Set
}

// Encode turns a cleaned frame into a numeric matrix. An empty features
// list selects every non-target column in frame order. Categorical features
// and a categorical target each get their own LabelEncoder.
func Encode(f *dataset.Frame, kinds map[string]ColumnKind, target string, features []string) (*Matrix, error) {
	targetValues, err := f.Column(target)
	if err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}

	if len(features) == 0 {
		for _, c := range f.Columns {
			if c != target {
				features = append(features, c)
			}
		}
	}

	m := &Matrix{
		Features: append([]string(nil), features...),
		X:        make([][]float64, f.Len()),
		Encoders: encoding.Set{},
	}
	for i := range m.X {
		m.X[i] = make([]float64, len(features))
	}

	m.Y, err = encodeTarget(targetValues, kinds[target], m.Encoders)
	if err != nil {
		return nil, err
	}

	for j, name := range features {
		if name == target {
			return nil, fmt.Errorf("%w: %q", ErrTargetIsFeature, name)
		}
		values, err := f.Column(name)
		if err != nil {
			return nil, fmt.Errorf("feature: %w", err)
		}

		if kinds[name] == Categorical {
			enc := encoding.Fit(values)
			codes, err := enc.TransformAll(values)
			if err != nil {
				return nil, fmt.Errorf("encode %q: %w", name, err)
			}
			for i, c := range codes {
				m.X[i][j] = float64(c)
			}
			m.Encoders[name] = enc
			continue
		}

		for i, v := range values {
			x, ok := parseFloat(v)
			if !ok {
				return nil, fmt.Errorf("column %q row %d: %q is not numeric", name, i+1, v)
			}
			m.X[i][j] = x
		}
	}
	return m, nil
}

func encodeTarget(values []string, kind ColumnKind, encoders encoding.Set) ([]int, error) {
	y := make([]int, len(values))

	if kind == Categorical {
		enc := encoding.Fit(values)
		if enc.Len() != 2 {
			return nil, fmt.Errorf("%w: found %d classes %v", ErrTargetNotBinary, enc.Len(), enc.Classes)
		}
		codes, err := enc.TransformAll(values)
		if err != nil {
			return nil, err
		}
		encoders[TargetEncoderKey] = enc
		return codes, nil
	}

	for i, v := range values {
		x, err := strconv.ParseFloat(v, 64)
		if err != nil || (x != 0 && x != 1) {
			return nil, fmt.Errorf("%w: row %d has %q, want 0 or 1", ErrTargetNotBinary, i+1, v)
		}
		y[i] = int(x)
	}
	return y, nil
}
