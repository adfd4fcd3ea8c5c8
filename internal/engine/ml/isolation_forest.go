package ml

import (
	"errors"
	"math"
	"math/rand"
	"sort"
)

// Package ml implements the unsupervised outlier estimator used by the
// anomaly scorer: an ensemble of random axis-aligned partitioning trees.
// Points that are easy to separate from the bulk of the data need fewer
// partitions to isolate and therefore receive more negative scores.
//
// Scoring convention: Score returns 0.5 - 2^(-E(h)/c(n)), where E(h) is the
// average path length across trees and c(n) the expected path length of an
// unsuccessful BST search. The result lies in (-0.5, 0.5]; lower means more
// anomalous. The decision boundary separating outliers is chosen by the
// caller (typically a contamination quantile of the training scores).
//
// Training is deterministic for a fixed seed, so refitting the same window
// reproduces the same estimator.

// eulerMascheroni is used in the harmonic-number approximation for c(n).
const eulerMascheroni = 0.5772156649

var (
	// ErrNotFitted is returned when scoring before Fit.
	ErrNotFitted = errors.New("isolation forest: not fitted")

	// ErrEmptyTrainingSet is returned when Fit receives no rows.
	ErrEmptyTrainingSet = errors.New("isolation forest: empty training set")
)

// TreeNode is one node of an isolation tree. Exported fields keep the fitted
// estimator serializable for the model registry.
type TreeNode struct {
	SplitFeature int       `json:"f,omitempty"`
	SplitValue   float64   `json:"v,omitempty"`
	Left         *TreeNode `json:"l,omitempty"`
	Right        *TreeNode `json:"r,omitempty"`
	Size         int       `json:"n"`
	Leaf         bool      `json:"leaf,omitempty"`
}

// Forest is a fitted isolation forest.
type Forest struct {
	Trees      []*TreeNode `json:"trees"`
	NumTrees   int         `json:"num_trees"`
	SubSample  int         `json:"sub_sample"`
	MaxDepth   int         `json:"max_depth"`
	Seed       int64       `json:"seed"`
	NumFeature int         `json:"num_features"`
}

// NewForest creates an unfitted forest. A non-positive maxDepth defaults to
// ceil(log2(subSample+1)), the depth at which isolation saturates.
func NewForest(numTrees, subSample, maxDepth int, seed int64) *Forest {
	if maxDepth <= 0 {
		maxDepth = int(math.Ceil(math.Log2(float64(subSample) + 1)))
	}
	return &Forest{
		NumTrees:  numTrees,
		SubSample: subSample,
		MaxDepth:  maxDepth,
		Seed:      seed,
	}
}

// Fit trains the forest on the given feature matrix. Rows must share a single
// width. Fit replaces any previously fitted trees.
func (f *Forest) Fit(rows [][]float64) error {
	if len(rows) == 0 {
		return ErrEmptyTrainingSet
	}
	f.NumFeature = len(rows[0])
	f.Trees = make([]*TreeNode, 0, f.NumTrees)

	rng := rand.New(rand.NewSource(f.Seed))
	for i := 0; i < f.NumTrees; i++ {
		sample := subSample(rows, f.SubSample, rng)
		f.Trees = append(f.Trees, buildTree(sample, 0, f.MaxDepth, rng))
	}
	return nil
}

// Score returns the anomaly score for one row; lower = more anomalous.
func (f *Forest) Score(row []float64) (float64, error) {
	if len(f.Trees) == 0 {
		return 0, ErrNotFitted
	}

	var total float64
	for _, tree := range f.Trees {
		total += pathLength(tree, row, 0)
	}
	avg := total / float64(len(f.Trees))

	n := f.SubSample
	c := averagePathLength(n)
	if c == 0 {
		return 0, nil
	}
	return 0.5 - math.Pow(2, -avg/c), nil
}

// ScoreAll scores every row in order.
func (f *Forest) ScoreAll(rows [][]float64) ([]float64, error) {
	scores := make([]float64, len(rows))
	for i, row := range rows {
		s, err := f.Score(row)
		if err != nil {
			return nil, err
		}
		scores[i] = s
	}
	return scores, nil
}

// Quantile returns the q-th quantile (0..1) of the given scores. It is used
// to derive the outlier decision boundary from training scores.
func Quantile(scores []float64, q float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	sorted := make([]float64, len(scores))
	copy(sorted, scores)
	sort.Float64s(sorted)

	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func subSample(rows [][]float64, size int, rng *rand.Rand) [][]float64 {
	if size > len(rows) {
		size = len(rows)
	}
	shuffled := make([][]float64, len(rows))
	copy(shuffled, rows)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled[:size]
}

func buildTree(rows [][]float64, depth, maxDepth int, rng *rand.Rand) *TreeNode {
	if len(rows) <= 1 || depth >= maxDepth || allIdentical(rows) {
		return &TreeNode{Size: len(rows), Leaf: true}
	}

	splitFeature := rng.Intn(len(rows[0]))
	minVal, maxVal := featureRange(rows, splitFeature)
	if minVal == maxVal {
		return &TreeNode{Size: len(rows), Leaf: true}
	}
	splitValue := minVal + rng.Float64()*(maxVal-minVal)

	left, right := partition(rows, splitFeature, splitValue)
	if len(left) == 0 || len(right) == 0 {
		return &TreeNode{Size: len(rows), Leaf: true}
	}

	return &TreeNode{
		SplitFeature: splitFeature,
		SplitValue:   splitValue,
		Left:         buildTree(left, depth+1, maxDepth, rng),
		Right:        buildTree(right, depth+1, maxDepth, rng),
		Size:         len(rows),
	}
}

func pathLength(node *TreeNode, row []float64, depth int) float64 {
	if node.Leaf {
		return float64(depth) + averagePathLength(node.Size)
	}
	if node.SplitFeature < len(row) && row[node.SplitFeature] < node.SplitValue {
		return pathLength(node.Left, row, depth+1)
	}
	return pathLength(node.Right, row, depth+1)
}

// averagePathLength is c(n) = 2H(n-1) - 2(n-1)/n, the expected path length of
// an unsuccessful search in a BST of n nodes.
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	h := math.Log(float64(n-1)) + eulerMascheroni
	return 2*h - 2*float64(n-1)/float64(n)
}

func allIdentical(rows [][]float64) bool {
	first := rows[0]
	for _, row := range rows[1:] {
		for j := range first {
			if math.Abs(row[j]-first[j]) > 1e-10 {
				return false
			}
		}
	}
	return true
}

func featureRange(rows [][]float64, feature int) (float64, float64) {
	minVal, maxVal := rows[0][feature], rows[0][feature]
	for _, row := range rows {
		if row[feature] < minVal {
			minVal = row[feature]
		}
		if row[feature] > maxVal {
			maxVal = row[feature]
		}
	}
	return minVal, maxVal
}

func partition(rows [][]float64, feature int, value float64) ([][]float64, [][]float64) {
	var left, right [][]float64
	for _, row := range rows {
		if row[feature] < value {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}
	return left, right
}
