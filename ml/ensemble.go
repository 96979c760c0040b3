package ml

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"credit-risk/domain"

	"golang.org/x/text/unicode/norm"
)

// minCover stands in for the weight of empty leaves so that path fractions
// stay defined during attribution.
const minCover = 1e-12

const defaultThreshold = 0.5

// coverTolerance is the relative slack allowed between a stored internal
// cover and the sum of its children.
const coverTolerance = 1e-6

type FeatureInfo struct {
	Name       string           `json:"name"`
	Kind       domain.FieldKind `json:"kind"`
	Categories []string         `json:"categories,omitempty"`
}

// TreeNode is one node of a flattened binary tree. A split sends x right
// when x > Threshold (numeric) or when x is one of Categories (categorical).
type TreeNode struct {
	FeatureIdx int      `json:"feature_idx"`
	Threshold  float64  `json:"threshold,omitempty"`
	Categories []string `json:"categories,omitempty"`
	LeftChild  int      `json:"left_child"`
	RightChild int      `json:"right_child"`
	Value      float64  `json:"value,omitempty"`
	Cover      float64  `json:"cover,omitempty"`
	IsLeaf     bool     `json:"is_leaf"`

	catMask []bool
}

type ObliviousSplit struct {
	FeatureIdx int      `json:"feature_idx"`
	Threshold  float64  `json:"threshold,omitempty"`
	Categories []string `json:"categories,omitempty"`
}

// ObliviousTree is a symmetric tree: every level shares one split and leaf
// i is reached when bit d of i equals the outcome of Splits[d].
type ObliviousTree struct {
	Splits      []ObliviousSplit `json:"splits"`
	LeafValues  []float64        `json:"leaf_values"`
	LeafWeights []float64        `json:"leaf_weights,omitempty"`
}

type TreeSpec struct {
	Nodes     []TreeNode     `json:"nodes,omitempty"`
	Oblivious *ObliviousTree `json:"oblivious,omitempty"`
}

// ModelFile is the on-disk JSON layout of an ensemble.
type ModelFile struct {
	Version   string        `json:"version"`
	Bias      float64       `json:"bias"`
	Threshold float64       `json:"threshold,omitempty"`
	Features  []FeatureInfo `json:"features"`
	Trees     []TreeSpec    `json:"trees"`
}

type tree struct {
	nodes    []TreeNode
	expected float64
}

// Ensemble is a binary gradient-boosted tree classifier. Its raw output is
// in log-odds space. It is immutable once built.
type Ensemble struct {
	version     string
	fingerprint string
	bias        float64
	threshold   float64
	features    []FeatureInfo
	catIndex    []map[string]int
	trees       []tree
	expected    float64
}

// NewEnsemble validates a model file and prepares it for inference.
func NewEnsemble(mf ModelFile) (*Ensemble, error) {
	if len(mf.Features) == 0 {
		return nil, errors.New("model has no features")
	}
	if len(mf.Trees) == 0 {
		return nil, errors.New("model has no trees")
	}

	threshold := mf.Threshold
	if threshold == 0 {
		threshold = defaultThreshold
	}
	if threshold <= 0 || threshold >= 1 {
		return nil, fmt.Errorf("threshold %.4f outside (0,1)", threshold)
	}

	e := &Ensemble{
		version:   mf.Version,
		bias:      mf.Bias,
		threshold: threshold,
		features:  make([]FeatureInfo, len(mf.Features)),
		catIndex:  make([]map[string]int, len(mf.Features)),
		trees:     make([]tree, 0, len(mf.Trees)),
	}

	for i, f := range mf.Features {
		if f.Name == "" {
			return nil, fmt.Errorf("feature %d has no name", i)
		}
		info := FeatureInfo{Name: f.Name, Kind: f.Kind}
		switch f.Kind {
		case domain.Numeric:
		case domain.Categorical:
			if len(f.Categories) == 0 {
				return nil, fmt.Errorf("categorical feature %s has no categories", f.Name)
			}
			idx := make(map[string]int, len(f.Categories))
			for j, c := range f.Categories {
				c = norm.NFC.String(c)
				if _, dup := idx[c]; dup {
					return nil, fmt.Errorf("feature %s: duplicate category %q", f.Name, c)
				}
				idx[c] = j
				info.Categories = append(info.Categories, c)
			}
			e.catIndex[i] = idx
		default:
			return nil, fmt.Errorf("feature %s: unknown kind %q", f.Name, f.Kind)
		}
		e.features[i] = info
	}

	fp, err := fingerprint(mf)
	if err != nil {
		return nil, err
	}
	e.fingerprint = fp

	e.expected = e.bias
	for i, spec := range mf.Trees {
		nodes := spec.Nodes
		if spec.Oblivious != nil {
			if len(nodes) > 0 {
				return nil, fmt.Errorf("tree %d: both nodes and oblivious given", i)
			}
			expanded, err := expandOblivious(*spec.Oblivious)
			if err != nil {
				return nil, fmt.Errorf("tree %d: %w", i, err)
			}
			nodes = expanded
		}
		t, err := e.buildTree(nodes)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		e.trees = append(e.trees, t)
		e.expected += t.expected
	}

	return e, nil
}

// fingerprint identifies the model content regardless of JSON formatting.
func fingerprint(mf ModelFile) (string, error) {
	payload, err := json.Marshal(mf)
	if err != nil {
		return "", fmt.Errorf("fingerprint model: %w", err)
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

func expandOblivious(o ObliviousTree) ([]TreeNode, error) {
	depth := len(o.Splits)
	if depth > 16 {
		return nil, fmt.Errorf("oblivious depth %d too large", depth)
	}
	leaves := 1 << depth
	if len(o.LeafValues) != leaves {
		return nil, fmt.Errorf("oblivious tree of depth %d needs %d leaf values, got %d", depth, leaves, len(o.LeafValues))
	}
	if len(o.LeafWeights) != 0 && len(o.LeafWeights) != leaves {
		return nil, fmt.Errorf("oblivious tree of depth %d needs %d leaf weights, got %d", depth, leaves, len(o.LeafWeights))
	}

	nodes := make([]TreeNode, 0, 2*leaves-1)
	var build func(level, leaf int) int
	build = func(level, leaf int) int {
		idx := len(nodes)
		if level == depth {
			cover := 1.0
			if len(o.LeafWeights) > 0 {
				cover = math.Max(o.LeafWeights[leaf], minCover)
			}
			nodes = append(nodes, TreeNode{
				FeatureIdx: -1,
				LeftChild:  -1,
				RightChild: -1,
				Value:      o.LeafValues[leaf],
				Cover:      cover,
				IsLeaf:     true,
			})
			return idx
		}
		s := o.Splits[level]
		nodes = append(nodes, TreeNode{
			FeatureIdx: s.FeatureIdx,
			Threshold:  s.Threshold,
			Categories: s.Categories,
		})
		left := build(level+1, leaf)
		right := build(level+1, leaf|1<<level)
		nodes[idx].LeftChild = left
		nodes[idx].RightChild = right
		return idx
	}
	build(0, 0)
	return nodes, nil
}

func (e *Ensemble) buildTree(src []TreeNode) (tree, error) {
	if len(src) == 0 {
		return tree{}, errors.New("empty tree")
	}
	nodes := make([]TreeNode, len(src))
	copy(nodes, src)

	state := make([]uint8, len(nodes)) // 0 unseen, 1 on stack, 2 done
	var visit func(idx int) (float64, error)
	visit = func(idx int) (float64, error) {
		if idx < 0 || idx >= len(nodes) {
			return 0, fmt.Errorf("child index %d out of range", idx)
		}
		switch state[idx] {
		case 1:
			return 0, fmt.Errorf("cycle at node %d", idx)
		case 2:
			return 0, fmt.Errorf("node %d reachable twice", idx)
		}
		state[idx] = 1
		defer func() { state[idx] = 2 }()

		n := &nodes[idx]
		if n.IsLeaf {
			if n.Cover < 0 {
				return 0, fmt.Errorf("leaf %d has negative cover", idx)
			}
			if n.Cover == 0 {
				n.Cover = minCover
			}
			return n.Cover, nil
		}

		if n.FeatureIdx < 0 || n.FeatureIdx >= len(e.features) {
			return 0, fmt.Errorf("node %d: feature index %d out of range", idx, n.FeatureIdx)
		}
		if e.features[n.FeatureIdx].Kind == domain.Categorical {
			if len(n.Categories) == 0 {
				return 0, fmt.Errorf("node %d: categorical split without categories", idx)
			}
			f := e.features[n.FeatureIdx]
			n.catMask = make([]bool, len(f.Categories))
			for _, c := range n.Categories {
				j, ok := e.catIndex[n.FeatureIdx][norm.NFC.String(c)]
				if !ok {
					return 0, fmt.Errorf("node %d: category %q not in %s", idx, c, f.Name)
				}
				n.catMask[j] = true
			}
		}

		left, err := visit(n.LeftChild)
		if err != nil {
			return 0, err
		}
		right, err := visit(n.RightChild)
		if err != nil {
			return 0, err
		}
		sum := left + right
		if n.Cover < 0 || (n.Cover > 0 && math.Abs(n.Cover-sum) > coverTolerance*sum) {
			return 0, fmt.Errorf("node %d: cover %g does not match children %g", idx, n.Cover, sum)
		}
		n.Cover = sum
		return n.Cover, nil
	}

	if _, err := visit(0); err != nil {
		return tree{}, err
	}
	for i, s := range state {
		if s == 0 {
			return tree{}, fmt.Errorf("node %d unreachable from root", i)
		}
	}

	t := tree{nodes: nodes}
	t.expected = t.meanValue(0)
	return t, nil
}

// meanValue is the cover-weighted mean leaf value below idx.
func (t tree) meanValue(idx int) float64 {
	n := t.nodes[idx]
	if n.IsLeaf {
		return n.Value
	}
	l, r := t.nodes[n.LeftChild], t.nodes[n.RightChild]
	return (l.Cover*t.meanValue(n.LeftChild) + r.Cover*t.meanValue(n.RightChild)) / (l.Cover + r.Cover)
}

func (n *TreeNode) goesRight(x []float64) bool {
	v := x[n.FeatureIdx]
	if n.catMask != nil {
		i := int(v)
		return i >= 0 && i < len(n.catMask) && n.catMask[i]
	}
	return v > n.Threshold
}

func (t tree) leaf(x []float64) float64 {
	idx := 0
	for {
		n := &t.nodes[idx]
		if n.IsLeaf {
			return n.Value
		}
		if n.goesRight(x) {
			idx = n.RightChild
		} else {
			idx = n.LeftChild
		}
	}
}

func (e *Ensemble) Version() string        { return e.version }
func (e *Ensemble) Fingerprint() string    { return e.fingerprint }
func (e *Ensemble) Threshold() float64     { return e.threshold }
func (e *Ensemble) NumTrees() int          { return len(e.trees) }
func (e *Ensemble) ExpectedValue() float64 { return e.expected }

func (e *Ensemble) Features() []FeatureInfo {
	out := make([]FeatureInfo, len(e.features))
	copy(out, e.features)
	return out
}

// Encode turns a record into a feature vector. Categorical values become
// their index in the model vocabulary.
func (e *Ensemble) Encode(record domain.Record) ([]float64, error) {
	x := make([]float64, len(e.features))
	for i, f := range e.features {
		v, ok := record.Get(f.Name)
		if !ok {
			return nil, fmt.Errorf("record is missing %s", f.Name)
		}
		if v.Kind != f.Kind {
			return nil, fmt.Errorf("%s: record kind %s, model kind %s: %w", f.Name, v.Kind, f.Kind, domain.ErrSchemaMismatch)
		}
		if f.Kind == domain.Numeric {
			if math.IsNaN(v.Number) || math.IsInf(v.Number, 0) {
				return nil, fmt.Errorf("%s: %w", f.Name, domain.ErrOutOfRange)
			}
			x[i] = v.Number
			continue
		}
		j, ok := e.catIndex[i][norm.NFC.String(v.Category)]
		if !ok {
			return nil, fmt.Errorf("%s: category %q: %w", f.Name, v.Category, domain.ErrUnknownLabel)
		}
		x[i] = float64(j)
	}
	return x, nil
}

func (e *Ensemble) checkVector(x []float64) error {
	if len(x) != len(e.features) {
		return fmt.Errorf("expected %d features, got %d", len(e.features), len(x))
	}
	return nil
}

// RawScore returns the log-odds output for x.
func (e *Ensemble) RawScore(x []float64) (float64, error) {
	if err := e.checkVector(x); err != nil {
		return 0, err
	}
	sum := e.bias
	for _, t := range e.trees {
		sum += t.leaf(x)
	}
	return sum, nil
}

// PredictProba returns P(class 1) for x.
func (e *Ensemble) PredictProba(x []float64) (float64, error) {
	raw, err := e.RawScore(x)
	if err != nil {
		return 0, err
	}
	return Sigmoid(raw), nil
}

// Predict returns the class label and P(class 1).
func (e *Ensemble) Predict(x []float64) (int, float64, error) {
	p, err := e.PredictProba(x)
	if err != nil {
		return 0, 0, err
	}
	if p >= e.threshold {
		return 1, p, nil
	}
	return 0, p, nil
}

func Sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
