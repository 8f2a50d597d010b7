package training

import (
	"fmt"
	"math"
	"math/rand"
)

// Split shuffles n row indices with a seeded permutation and returns the
// train and test partitions. The test partition holds ceil(n*testSize) rows;
// both partitions keep at least one row.
func Split(n int, testSize float64, seed int64) (train, test []int, err error) {
	if n < 2 {
		return nil, nil, fmt.Errorf("%w: %d", ErrTooFewRows, n)
	}
	perm := rand.New(rand.NewSource(seed)).Perm(n)

	nTest := int(math.Ceil(float64(n) * testSize))
	if nTest < 1 {
		nTest = 1
	}
	if nTest > n-1 {
		nTest = n - 1
	}
	return perm[nTest:], perm[:nTest], nil
}

func take[T any](rows []T, idx []int) []T {
	out := make([]T, len(idx))
	for i, j := range idx {
		out[i] = rows[j]
	}
	return out
}
