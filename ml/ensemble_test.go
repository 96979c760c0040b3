package ml

import (
	"math"
	"testing"

	"credit-risk/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleModelPath = "../models/credit_risk.json"

// feature vectors in domain.Schema order, categories as vocabulary indices
var (
	defaultVector = []float64{30, 3000, 0, 0, 0, 0, 2, 0, 0, 0, 0, 0, 0, 0}
	riskyVector   = []float64{22, 1800, 4, 1, 4, 3, 0, 0, 1, 0, 2, 2, 0, 2}
	safeVector    = []float64{45, 9000, 1, 0, 0, 1, 10, 1, 0, 120000, 0, 1, 2, 0}
)

func stumpModel() ModelFile {
	return ModelFile{
		Version: "stump",
		Features: []FeatureInfo{
			{Name: "x", Kind: domain.Numeric},
		},
		Trees: []TreeSpec{{Nodes: []TreeNode{
			{FeatureIdx: 0, Threshold: 5, LeftChild: 1, RightChild: 2},
			{FeatureIdx: -1, LeftChild: -1, RightChild: -1, Value: -1, Cover: 4, IsLeaf: true},
			{FeatureIdx: -1, LeftChild: -1, RightChild: -1, Value: 1, Cover: 6, IsLeaf: true},
		}}},
	}
}

func TestLoadSampleModel(t *testing.T) {
	model, err := LoadModel(sampleModelPath)
	require.NoError(t, err)

	assert.Equal(t, "2024.06-demo", model.Version())
	assert.Equal(t, 7, model.NumTrees())
	assert.Equal(t, 0.5, model.Threshold())
	assert.InDelta(t, -1.2289944444444445, model.ExpectedValue(), 1e-9)
}

func TestPredict_SampleProfiles(t *testing.T) {
	model, err := LoadModel(sampleModelPath)
	require.NoError(t, err)

	tests := []struct {
		name  string
		x     []float64
		raw   float64
		label int
	}{
		{name: "form defaults", x: defaultVector, raw: -1.47, label: 0},
		{name: "risky", x: riskyVector, raw: 3.08, label: 1},
		{name: "safe", x: safeVector, raw: -2.85, label: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := model.RawScore(tt.x)
			require.NoError(t, err)
			assert.InDelta(t, tt.raw, raw, 1e-9)

			label, p, err := model.Predict(tt.x)
			require.NoError(t, err)
			assert.Equal(t, tt.label, label)
			assert.InDelta(t, Sigmoid(tt.raw), p, 1e-12)
		})
	}
}

func TestPredict_WrongVectorLength(t *testing.T) {
	model, err := NewEnsemble(stumpModel())
	require.NoError(t, err)

	_, _, err = model.Predict([]float64{1, 2})
	assert.Error(t, err)
}

func TestNewEnsemble_DerivesInternalCover(t *testing.T) {
	model, err := NewEnsemble(stumpModel())
	require.NoError(t, err)

	assert.Equal(t, 10.0, model.trees[0].nodes[0].Cover)
	assert.InDelta(t, 0.2, model.ExpectedValue(), 1e-12)
}

func TestNewEnsemble_StoredCoversStayAdditive(t *testing.T) {
	mf := ModelFile{
		Features: []FeatureInfo{
			{Name: "a", Kind: domain.Numeric},
			{Name: "b", Kind: domain.Numeric},
		},
		Trees: []TreeSpec{{Nodes: []TreeNode{
			{FeatureIdx: 0, Threshold: 0.5, LeftChild: 1, RightChild: 2, Cover: 100},
			{FeatureIdx: -1, LeftChild: -1, RightChild: -1, Value: 0, Cover: 50, IsLeaf: true},
			{FeatureIdx: 1, Threshold: 0.5, LeftChild: 3, RightChild: 4, Cover: 50.00000001},
			{FeatureIdx: -1, LeftChild: -1, RightChild: -1, Value: 1, Cover: 30, IsLeaf: true},
			{FeatureIdx: -1, LeftChild: -1, RightChild: -1, Value: 2, Cover: 20, IsLeaf: true},
		}}},
	}
	model, err := NewEnsemble(mf)
	require.NoError(t, err)
	assert.Equal(t, 50.0, model.trees[0].nodes[2].Cover)

	x := []float64{1, 0}
	raw, err := model.RawScore(x)
	require.NoError(t, err)
	assert.Equal(t, 1.0, raw)

	phi, err := model.ShapValues(x)
	require.NoError(t, err)
	assert.InDelta(t, raw, model.ExpectedValue()+phi[0]+phi[1], 1e-12)

	mf.Trees[0].Nodes[2].Cover = 10
	_, err = NewEnsemble(mf)
	assert.ErrorContains(t, err, "does not match children")
}

func TestEnsemble_Fingerprint(t *testing.T) {
	a, err := NewEnsemble(stumpModel())
	require.NoError(t, err)
	b, err := NewEnsemble(stumpModel())
	require.NoError(t, err)
	assert.Len(t, a.Fingerprint(), 64)
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	mf := stumpModel()
	mf.Bias = 5
	c, err := NewEnsemble(mf)
	require.NoError(t, err)
	assert.Equal(t, a.Version(), c.Version())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}

func TestNewEnsemble_Oblivious(t *testing.T) {
	mf := ModelFile{
		Features: []FeatureInfo{
			{Name: "a", Kind: domain.Numeric},
			{Name: "b", Kind: domain.Categorical, Categories: []string{"x", "y"}},
		},
		Trees: []TreeSpec{{Oblivious: &ObliviousTree{
			Splits: []ObliviousSplit{
				{FeatureIdx: 0, Threshold: 10},
				{FeatureIdx: 1, Categories: []string{"y"}},
			},
			LeafValues:  []float64{1, 2, 3, 4},
			LeafWeights: []float64{1, 1, 1, 0},
		}}},
	}
	model, err := NewEnsemble(mf)
	require.NoError(t, err)

	cases := []struct {
		x    []float64
		want float64
	}{
		{[]float64{5, 0}, 1},
		{[]float64{15, 0}, 2},
		{[]float64{5, 1}, 3},
		{[]float64{15, 1}, 4},
	}
	for _, c := range cases {
		raw, err := model.RawScore(c.x)
		require.NoError(t, err)
		assert.Equal(t, c.want, raw, "x=%v", c.x)
	}

	// the empty leaf barely counts towards the expectation
	assert.InDelta(t, 2.0, model.ExpectedValue(), 1e-9)
}

func TestNewEnsemble_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ModelFile)
	}{
		{"no trees", func(m *ModelFile) { m.Trees = nil }},
		{"no features", func(m *ModelFile) { m.Features = nil }},
		{"child out of range", func(m *ModelFile) { m.Trees[0].Nodes[0].RightChild = 7 }},
		{"cycle", func(m *ModelFile) { m.Trees[0].Nodes[0].LeftChild = 0 }},
		{"feature out of range", func(m *ModelFile) { m.Trees[0].Nodes[0].FeatureIdx = 3 }},
		{"bad threshold", func(m *ModelFile) { m.Threshold = 1.5 }},
		{"unknown kind", func(m *ModelFile) { m.Features[0].Kind = "text" }},
		{"internal cover mismatch", func(m *ModelFile) { m.Trees[0].Nodes[0].Cover = 100 }},
		{"negative internal cover", func(m *ModelFile) { m.Trees[0].Nodes[0].Cover = -10 }},
		{"unreachable node", func(m *ModelFile) {
			m.Trees[0].Nodes = append(m.Trees[0].Nodes, TreeNode{FeatureIdx: 9, LeftChild: 42, RightChild: -3})
		}},
		{"oblivious leaf count", func(m *ModelFile) {
			m.Trees = append(m.Trees, TreeSpec{Oblivious: &ObliviousTree{
				Splits:     []ObliviousSplit{{FeatureIdx: 0, Threshold: 1}},
				LeafValues: []float64{1},
			}})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mf := stumpModel()
			tt.mutate(&mf)
			_, err := NewEnsemble(mf)
			assert.Error(t, err)
		})
	}
}

func TestNewEnsemble_UnknownSplitCategory(t *testing.T) {
	mf := ModelFile{
		Features: []FeatureInfo{{Name: "c", Kind: domain.Categorical, Categories: []string{"a", "b"}}},
		Trees: []TreeSpec{{Nodes: []TreeNode{
			{FeatureIdx: 0, Categories: []string{"z"}, LeftChild: 1, RightChild: 2},
			{FeatureIdx: -1, LeftChild: -1, RightChild: -1, Cover: 1, IsLeaf: true},
			{FeatureIdx: -1, LeftChild: -1, RightChild: -1, Cover: 1, IsLeaf: true},
		}}},
	}
	_, err := NewEnsemble(mf)
	assert.ErrorContains(t, err, `category "z"`)
}

func TestEncode(t *testing.T) {
	model, err := LoadModel(sampleModelPath)
	require.NoError(t, err)

	record := make(domain.Record, 0, len(domain.Schema))
	for i, spec := range domain.Schema {
		v := domain.FieldValue{Name: spec.Name, Kind: spec.Kind}
		if spec.Kind == domain.Numeric {
			v.Number = riskyVector[i]
		} else {
			v.Category = model.Features()[i].Categories[int(riskyVector[i])]
		}
		record = append(record, v)
	}

	x, err := model.Encode(record)
	require.NoError(t, err)
	assert.Equal(t, riskyVector, x)
}

func TestEncode_Errors(t *testing.T) {
	model, err := NewEnsemble(ModelFile{
		Features: []FeatureInfo{
			{Name: "n", Kind: domain.Numeric},
			{Name: "c", Kind: domain.Categorical, Categories: []string{"a"}},
		},
		Trees: stumpModel().Trees,
	})
	require.NoError(t, err)

	_, err = model.Encode(domain.Record{{Name: "n", Kind: domain.Numeric, Number: 1}})
	assert.ErrorContains(t, err, "missing c")

	_, err = model.Encode(domain.Record{
		{Name: "n", Kind: domain.Numeric, Number: 1},
		{Name: "c", Kind: domain.Categorical, Category: "b"},
	})
	assert.ErrorIs(t, err, domain.ErrUnknownLabel)

	_, err = model.Encode(domain.Record{
		{Name: "n", Kind: domain.Numeric, Number: math.NaN()},
		{Name: "c", Kind: domain.Categorical, Category: "a"},
	})
	assert.ErrorIs(t, err, domain.ErrOutOfRange)

	_, err = model.Encode(domain.Record{
		{Name: "n", Kind: domain.Categorical, Category: "1"},
		{Name: "c", Kind: domain.Categorical, Category: "a"},
	})
	assert.ErrorIs(t, err, domain.ErrSchemaMismatch)
}

func TestCheckSchema_Mismatch(t *testing.T) {
	model, err := NewEnsemble(stumpModel())
	require.NoError(t, err)

	err = CheckSchema(model, domain.Schema)
	assert.ErrorIs(t, err, domain.ErrSchemaMismatch)
}

func TestCheckSchema_CategoryOrderIgnored(t *testing.T) {
	model, err := LoadModel(sampleModelPath)
	require.NoError(t, err)

	features := model.Features()
	cats := features[3].Categories
	assert.Equal(t, []string{"dobra historia", "brak historii"}, cats)
	assert.True(t, sameSet(cats, []string{"brak historii", "dobra historia"}))
	assert.False(t, sameSet(cats, []string{"brak historii"}))
}
