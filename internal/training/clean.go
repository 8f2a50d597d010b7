package training

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"SmartLoan/pkg/dataset"
)

type ColumnKind int

const (
	Numeric ColumnKind = iota
	Categorical
)

func (k ColumnKind) String() string {
	if k == Numeric {
		return "numeric"
	}
	return "categorical"
}

// Clean drops idColumn, infers each column's kind and fills gaps: numeric
// columns with their median, categorical ones with their mode. The input
// frame is not modified.
func Clean(f *dataset.Frame, idColumn string) (*dataset.Frame, map[string]ColumnKind, error) {
	out := f.Drop(idColumn)
	if out == f {
		out = &dataset.Frame{Columns: append([]string(nil), f.Columns...), Rows: copyRows(f.Rows)}
	}

	kinds := make(map[string]ColumnKind, len(out.Columns))
	for _, name := range out.Columns {
		values, err := out.Column(name)
		if err != nil {
			return nil, nil, err
		}

		kind, present := inferKind(values)
		if present == 0 {
			return nil, nil, fmt.Errorf("%w: %q", ErrEmptyColumn, name)
		}
		kinds[name] = kind

		var fill string
		if kind == Numeric {
			fill = strconv.FormatFloat(median(values), 'g', -1, 64)
		} else {
			fill = mode(values)
		}
		for i, v := range values {
			if dataset.IsMissing(v) {
				values[i] = fill
			}
		}
		if err := out.SetColumn(name, values); err != nil {
			return nil, nil, err
		}
	}
	return out, kinds, nil
}

func copyRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}

// inferKind reports Numeric when every present cell parses as a finite
// float, and the number of present cells.
func inferKind(values []string) (ColumnKind, int) {
	present := 0
	kind := Numeric
	for _, v := range values {
		if dataset.IsMissing(v) {
			continue
		}
		present++
		if _, ok := parseFloat(v); !ok {
			kind = Categorical
		}
	}
	return kind, present
}

func parseFloat(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func median(values []string) float64 {
	nums := make([]float64, 0, len(values))
	for _, v := range values {
		if dataset.IsMissing(v) {
			continue
		}
		if x, ok := parseFloat(v); ok {
			nums = append(nums, x)
		}
	}
	sort.Float64s(nums)
	n := len(nums)
	if n%2 == 1 {
		return nums[n/2]
	}
	return (nums[n/2-1] + nums[n/2]) / 2
}

// mode returns the most frequent present value; ties go to the
// lexicographically smallest.
func mode(values []string) string {
	counts := make(map[string]int)
	for _, v := range values {
		if !dataset.IsMissing(v) {
			counts[v]++
		}
	}
	best, bestN := "", 0
	for v, n := range counts {
		if n > bestN || (n == bestN && v < best) {
			best, bestN = v, n
		}
	}
	return best
}
