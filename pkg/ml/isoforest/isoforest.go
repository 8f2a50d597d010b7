// Package isoforest implements an isolation forest outlier detector.
//
// Each tree isolates a random subsample with random axis-aligned cuts; points
// that isolate in few cuts get a score near 1. Predict labels a sample -1
// when its score exceeds the fitted threshold and 1 otherwise.
package isoforest

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

const eulerGamma = 0.5772156649015329

// AutoThreshold is the score cut used when contamination is not set.
const AutoThreshold = 0.5

const (
	Outlier = -1
	Inlier  = 1
)

var (
	ErrNotFitted    = errors.New("isoforest: model is not fitted")
	ErrEmptyDataset = errors.New("isoforest: empty training set")
	ErrFeatureCount = errors.New("isoforest: feature count mismatch")
)

type Config struct {
	Trees      int
	MaxSamples int
	// Contamination is the expected share of outliers in the training data.
	// Zero selects AutoThreshold.
	Contamination float64
	Seed          int64
	Progress      func(done, total int)
}

type Option func(*Config)

func WithTrees(n int) Option {
	return func(c *Config) { c.Trees = n }
}

func WithMaxSamples(n int) Option {
	return func(c *Config) { c.MaxSamples = n }
}

func WithContamination(v float64) Option {
	return func(c *Config) { c.Contamination = v }
}

func WithSeed(seed int64) Option {
	return func(c *Config) { c.Seed = seed }
}

func WithProgress(fn func(done, total int)) Option {
	return func(c *Config) { c.Progress = fn }
}

func DefaultConfig() Config {
	return Config{
		Trees:      100,
		MaxSamples: 256,
		Seed:       42,
	}
}

// Node is one entry of a flattened isolation tree. Leaves have Left == -1 and
// record how many training points reached them.
type Node struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t"`
	Left      int     `json:"l"`
	Right     int     `json:"r"`
	Size      int     `json:"s,omitempty"`
}

type Tree struct {
	Nodes []Node `json:"nodes"`
}

type Forest struct {
	NFeatures  int     `json:"n_features"`
	MaxSamples int     `json:"max_samples"`
	Threshold  float64 `json:"threshold"`
	Trees      []Tree  `json:"trees"`
}

func Fit(X [][]float64, opts ...Option) (*Forest, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Trees <= 0 {
		return nil, fmt.Errorf("isoforest: trees must be positive, got %d", cfg.Trees)
	}
	if cfg.Contamination < 0 || cfg.Contamination > 0.5 {
		return nil, fmt.Errorf("isoforest: contamination must be in [0, 0.5], got %v", cfg.Contamination)
	}
	if len(X) == 0 {
		return nil, ErrEmptyDataset
	}
	nFeatures := len(X[0])
	if nFeatures == 0 {
		return nil, fmt.Errorf("%w: rows have no features", ErrFeatureCount)
	}
	for i, row := range X {
		if len(row) != nFeatures {
			return nil, fmt.Errorf("%w: row %d has %d features, want %d", ErrFeatureCount, i, len(row), nFeatures)
		}
	}

	maxSamples := cfg.MaxSamples
	if maxSamples <= 0 || maxSamples > len(X) {
		maxSamples = len(X)
	}
	heightLimit := int(math.Ceil(math.Log2(math.Max(float64(maxSamples), 2))))

	rng := rand.New(rand.NewSource(cfg.Seed))
	f := &Forest{
		NFeatures:  nFeatures,
		MaxSamples: maxSamples,
		Threshold:  AutoThreshold,
		Trees:      make([]Tree, 0, cfg.Trees),
	}

	for t := 0; t < cfg.Trees; t++ {
		sample := rng.Perm(len(X))[:maxSamples]
		b := &builder{X: X, rng: rng, limit: heightLimit}
		b.grow(sample, 0)
		f.Trees = append(f.Trees, Tree{Nodes: b.nodes})

		if cfg.Progress != nil {
			cfg.Progress(t+1, cfg.Trees)
		}
	}

	if cfg.Contamination > 0 {
		scores := make([]float64, len(X))
		for i, row := range X {
			scores[i] = f.score(row)
		}
		f.Threshold = quantile(scores, 1-cfg.Contamination)
	}

	return f, nil
}

type builder struct {
	X     [][]float64
	rng   *rand.Rand
	limit int
	nodes []Node
}

func (b *builder) grow(idx []int, depth int) int {
	at := len(b.nodes)
	b.nodes = append(b.nodes, Node{Left: -1, Right: -1, Size: len(idx)})

	if depth >= b.limit || len(idx) <= 1 {
		return at
	}

	// only features that still vary can isolate anything
	var candidates []int
	lo := make([]float64, len(b.X[0]))
	hi := make([]float64, len(b.X[0]))
	for f := range lo {
		lo[f], hi[f] = math.Inf(1), math.Inf(-1)
		for _, i := range idx {
			v := b.X[i][f]
			lo[f] = math.Min(lo[f], v)
			hi[f] = math.Max(hi[f], v)
		}
		if hi[f] > lo[f] {
			candidates = append(candidates, f)
		}
	}
	if len(candidates) == 0 {
		return at
	}

	feature := candidates[b.rng.Intn(len(candidates))]
	threshold := lo[feature] + b.rng.Float64()*(hi[feature]-lo[feature])

	var left, right []int
	for _, i := range idx {
		if b.X[i][feature] < threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return at
	}

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[at] = Node{Feature: feature, Threshold: threshold, Left: l, Right: r}
	return at
}

// averagePathLength is c(n), the mean path length of an unsuccessful BST
// search over n points.
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	m := float64(n - 1)
	return 2*(math.Log(m)+eulerGamma) - 2*m/float64(n)
}

func (t Tree) pathLength(x []float64) float64 {
	i, depth := 0, 0
	for {
		node := t.Nodes[i]
		if node.Left < 0 {
			return float64(depth) + averagePathLength(node.Size)
		}
		if x[node.Feature] < node.Threshold {
			i = node.Left
		} else {
			i = node.Right
		}
		depth++
	}
}

func (f *Forest) score(x []float64) float64 {
	total := 0.0
	for _, t := range f.Trees {
		total += t.pathLength(x)
	}
	mean := total / float64(len(f.Trees))
	norm := averagePathLength(f.MaxSamples)
	if norm == 0 {
		return AutoThreshold
	}
	return math.Pow(2, -mean/norm)
}

// Score returns the anomaly score in (0, 1]; higher is more anomalous.
func (f *Forest) Score(x []float64) (float64, error) {
	if f == nil || len(f.Trees) == 0 {
		return 0, ErrNotFitted
	}
	if len(x) != f.NFeatures {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrFeatureCount, len(x), f.NFeatures)
	}
	return f.score(x), nil
}

// Predict returns Outlier (-1) or Inlier (1).
func (f *Forest) Predict(x []float64) (int, error) {
	s, err := f.Score(x)
	if err != nil {
		return 0, err
	}
	if s > f.Threshold {
		return Outlier, nil
	}
	return Inlier, nil
}

func (f *Forest) Validate() error {
	if f == nil || len(f.Trees) == 0 {
		return ErrNotFitted
	}
	if f.NFeatures < 1 || f.MaxSamples < 1 {
		return fmt.Errorf("isoforest: invalid shape features=%d max_samples=%d", f.NFeatures, f.MaxSamples)
	}
	for ti, t := range f.Trees {
		if len(t.Nodes) == 0 {
			return fmt.Errorf("isoforest: tree %d is empty", ti)
		}
		for ni, n := range t.Nodes {
			if n.Left < 0 {
				continue
			}
			if n.Feature < 0 || n.Feature >= f.NFeatures {
				return fmt.Errorf("isoforest: tree %d node %d splits on feature %d", ti, ni, n.Feature)
			}
			if n.Left <= ni || n.Right <= ni || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
				return fmt.Errorf("isoforest: tree %d node %d has invalid children", ti, ni)
			}
		}
	}
	return nil
}

// quantile uses linear interpolation between closest ranks.
func quantile(values []float64, q float64) float64 {
	s := append([]float64(nil), values...)
	sort.Float64s(s)
	pos := q * float64(len(s)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return s[lo]
	}
	return s[lo] + (s[hi]-s[lo])*(pos-float64(lo))
}
