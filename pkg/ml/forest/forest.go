// Package forest implements a random forest classifier: bagged CART trees
// grown on Gini impurity with a random feature subset at every split.
//
// Class probabilities are the mean of the per-tree leaf distributions, and
// Predict is the argmax of those probabilities with ties going to the lowest
// class. A fitted Forest is immutable and safe for concurrent use.
package forest

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

var (
	ErrNotFitted     = errors.New("forest: model is not fitted")
	ErrEmptyDataset  = errors.New("forest: empty training set")
	ErrFeatureCount  = errors.New("forest: feature count mismatch")
	ErrInvalidLabels = errors.New("forest: labels must be non-negative class indices")
)

type Config struct {
	Trees           int
	MaxDepth        int // 0 means unlimited
	MinSamplesSplit int
	MaxFeatures     int // 0 means floor(sqrt(n_features))
	Bootstrap       bool
	Seed            int64
	Progress        func(done, total int)
}

type Option func(*Config)

func WithTrees(n int) Option {
	return func(c *Config) { c.Trees = n }
}

func WithMaxDepth(d int) Option {
	return func(c *Config) { c.MaxDepth = d }
}

func WithMinSamplesSplit(n int) Option {
	return func(c *Config) { c.MinSamplesSplit = n }
}

func WithMaxFeatures(n int) Option {
	return func(c *Config) { c.MaxFeatures = n }
}

func WithBootstrap(b bool) Option {
	return func(c *Config) { c.Bootstrap = b }
}

func WithSeed(seed int64) Option {
	return func(c *Config) { c.Seed = seed }
}

// WithProgress registers a callback invoked after each tree is grown.
func WithProgress(fn func(done, total int)) Option {
	return func(c *Config) { c.Progress = fn }
}

func DefaultConfig() Config {
	return Config{
		Trees:           200,
		MinSamplesSplit: 2,
		Bootstrap:       true,
		Seed:            42,
	}
}

// Node is one entry of a flattened tree. Leaves have Left == -1 and carry the
// class distribution in Value.
type Node struct {
	Feature   int       `json:"f"`
	Threshold float64   `json:"t"`
	Left      int       `json:"l"`
	Right     int       `json:"r"`
	Value     []float64 `json:"v,omitempty"`
}

type Tree struct {
	Nodes []Node `json:"nodes"`
}

type Forest struct {
	NClasses  int    `json:"n_classes"`
	NFeatures int    `json:"n_features"`
	Trees     []Tree `json:"trees"`
}

// Fit grows a forest on X (rows are samples) and class indices y.
func Fit(X [][]float64, y []int, opts ...Option) (*Forest, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Trees <= 0 {
		return nil, fmt.Errorf("forest: trees must be positive, got %d", cfg.Trees)
	}
	if cfg.MinSamplesSplit < 2 {
		cfg.MinSamplesSplit = 2
	}

	if len(X) == 0 {
		return nil, ErrEmptyDataset
	}
	if len(X) != len(y) {
		return nil, fmt.Errorf("forest: %d rows but %d labels", len(X), len(y))
	}

	nFeatures := len(X[0])
	if nFeatures == 0 {
		return nil, fmt.Errorf("%w: rows have no features", ErrFeatureCount)
	}
	nClasses := 0
	for i, row := range X {
		if len(row) != nFeatures {
			return nil, fmt.Errorf("%w: row %d has %d features, want %d", ErrFeatureCount, i, len(row), nFeatures)
		}
		if y[i] < 0 {
			return nil, ErrInvalidLabels
		}
		if y[i]+1 > nClasses {
			nClasses = y[i] + 1
		}
	}

	maxFeatures := cfg.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = int(math.Sqrt(float64(nFeatures)))
	}
	if maxFeatures < 1 {
		maxFeatures = 1
	}
	if maxFeatures > nFeatures {
		maxFeatures = nFeatures
	}

	master := rand.New(rand.NewSource(cfg.Seed))
	f := &Forest{
		NClasses:  nClasses,
		NFeatures: nFeatures,
		Trees:     make([]Tree, 0, cfg.Trees),
	}

	for t := 0; t < cfg.Trees; t++ {
		rng := rand.New(rand.NewSource(master.Int63()))

		sample := make([]int, len(X))
		if cfg.Bootstrap {
			for i := range sample {
				sample[i] = rng.Intn(len(X))
			}
		} else {
			for i := range sample {
				sample[i] = i
			}
		}

		b := &builder{
			X:           X,
			y:           y,
			nClasses:    nClasses,
			maxFeatures: maxFeatures,
			minSplit:    cfg.MinSamplesSplit,
			maxDepth:    cfg.MaxDepth,
			rng:         rng,
		}
		b.grow(sample, 0)
		f.Trees = append(f.Trees, Tree{Nodes: b.nodes})

		if cfg.Progress != nil {
			cfg.Progress(t+1, cfg.Trees)
		}
	}

	return f, nil
}

type builder struct {
	X           [][]float64
	y           []int
	nClasses    int
	maxFeatures int
	minSplit    int
	maxDepth    int
	rng         *rand.Rand
	nodes       []Node
}

// grow appends the subtree for idx and returns its root index.
func (b *builder) grow(idx []int, depth int) int {
	counts := make([]float64, b.nClasses)
	for _, i := range idx {
		counts[b.y[i]]++
	}

	at := len(b.nodes)
	b.nodes = append(b.nodes, Node{Left: -1, Right: -1})

	if len(idx) < b.minSplit || isPure(counts) || (b.maxDepth > 0 && depth >= b.maxDepth) {
		b.nodes[at].Value = normalize(counts)
		return at
	}

	feature, threshold, ok := b.bestSplit(idx, counts)
	if !ok {
		b.nodes[at].Value = normalize(counts)
		return at
	}

	var left, right []int
	for _, i := range idx {
		if b.X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	if len(left) == 0 || len(right) == 0 {
		b.nodes[at].Value = normalize(counts)
		return at
	}

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[at] = Node{Feature: feature, Threshold: threshold, Left: l, Right: r}
	return at
}

// bestSplit visits features in random order until maxFeatures non-constant
// ones have been evaluated, and returns the split with the lowest weighted
// Gini impurity.
func (b *builder) bestSplit(idx []int, parent []float64) (int, float64, bool) {
	n := float64(len(idx))
	bestScore := math.Inf(1)
	bestFeature, bestThreshold := -1, 0.0

	order := b.rng.Perm(len(b.X[0]))
	visited := 0
	sorted := make([]int, len(idx))

	for _, feature := range order {
		if visited >= b.maxFeatures {
			break
		}

		copy(sorted, idx)
		sort.SliceStable(sorted, func(i, j int) bool {
			return b.X[sorted[i]][feature] < b.X[sorted[j]][feature]
		})
		lo := b.X[sorted[0]][feature]
		hi := b.X[sorted[len(sorted)-1]][feature]
		if lo == hi {
			continue
		}
		visited++

		left := make([]float64, b.nClasses)
		right := append([]float64(nil), parent...)
		for k := 0; k < len(sorted)-1; k++ {
			c := b.y[sorted[k]]
			left[c]++
			right[c]--

			v, next := b.X[sorted[k]][feature], b.X[sorted[k+1]][feature]
			if v == next {
				continue
			}
			nl := float64(k + 1)
			nr := n - nl
			score := (nl*gini(left, nl) + nr*gini(right, nr)) / n
			if score < bestScore {
				bestScore = score
				bestFeature = feature
				bestThreshold = v + (next-v)/2
				if bestThreshold >= next {
					bestThreshold = v
				}
			}
		}
	}

	return bestFeature, bestThreshold, bestFeature >= 0
}

func gini(counts []float64, n float64) float64 {
	if n == 0 {
		return 0
	}
	g := 1.0
	for _, c := range counts {
		p := c / n
		g -= p * p
	}
	return g
}

func isPure(counts []float64) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

func normalize(counts []float64) []float64 {
	total := 0.0
	for _, c := range counts {
		total += c
	}
	out := make([]float64, len(counts))
	if total == 0 {
		return out
	}
	for i, c := range counts {
		out[i] = c / total
	}
	return out
}

func (t Tree) leaf(x []float64) []float64 {
	i := 0
	for {
		node := t.Nodes[i]
		if node.Left < 0 {
			return node.Value
		}
		if x[node.Feature] <= node.Threshold {
			i = node.Left
		} else {
			i = node.Right
		}
	}
}

// PredictProba returns the averaged class distribution for one sample.
func (f *Forest) PredictProba(x []float64) ([]float64, error) {
	if f == nil || len(f.Trees) == 0 {
		return nil, ErrNotFitted
	}
	if len(x) != f.NFeatures {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrFeatureCount, len(x), f.NFeatures)
	}

	proba := make([]float64, f.NClasses)
	for _, t := range f.Trees {
		for c, p := range t.leaf(x) {
			proba[c] += p
		}
	}
	for c := range proba {
		proba[c] /= float64(len(f.Trees))
	}
	return proba, nil
}

// Predict returns the most probable class for one sample.
func (f *Forest) Predict(x []float64) (int, error) {
	proba, err := f.PredictProba(x)
	if err != nil {
		return 0, err
	}
	best := 0
	for c := 1; c < len(proba); c++ {
		if proba[c] > proba[best] {
			best = c
		}
	}
	return best, nil
}

// PredictBatch classifies every row of X.
func (f *Forest) PredictBatch(X [][]float64) ([]int, error) {
	out := make([]int, len(X))
	for i, row := range X {
		c, err := f.Predict(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = c
	}
	return out, nil
}

// Validate checks the structural integrity of a decoded forest.
func (f *Forest) Validate() error {
	if f == nil || len(f.Trees) == 0 {
		return ErrNotFitted
	}
	if f.NClasses < 1 || f.NFeatures < 1 {
		return fmt.Errorf("forest: invalid shape classes=%d features=%d", f.NClasses, f.NFeatures)
	}
	for ti, t := range f.Trees {
		if len(t.Nodes) == 0 {
			return fmt.Errorf("forest: tree %d is empty", ti)
		}
		for ni, n := range t.Nodes {
			if n.Left < 0 {
				if len(n.Value) != f.NClasses {
					return fmt.Errorf("forest: tree %d leaf %d has %d classes", ti, ni, len(n.Value))
				}
				continue
			}
			if n.Feature < 0 || n.Feature >= f.NFeatures {
				return fmt.Errorf("forest: tree %d node %d splits on feature %d", ti, ni, n.Feature)
			}
			if n.Left <= ni || n.Right <= ni || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
				return fmt.Errorf("forest: tree %d node %d has invalid children", ti, ni)
			}
		}
	}
	return nil
}
