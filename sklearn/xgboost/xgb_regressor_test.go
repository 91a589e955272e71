package xgboost

import (
	"bytes"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/matprop/core/model"
	"github.com/YuminosukeSato/matprop/metrics"
	"github.com/YuminosukeSato/matprop/pkg/errors"
)

func data(n int) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewPCG(3, 5))
	X := mat.NewDense(n, 3, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		a, b, c := rng.Float64(), rng.Float64(), rng.Float64()
		X.SetRow(i, []float64{a, b, c})
		y.Set(i, 0, 5*a*b+math.Exp(c))
	}
	return X, y
}

func TestXGBRegressor_Fit(t *testing.T) {
	X, y := data(200)
	reg := NewXGBRegressor()
	require.NoError(t, reg.Fit(X, y))
	assert.True(t, reg.IsFitted())
	assert.Len(t, reg.Trees, 100)

	pred, err := reg.Predict(X)
	require.NoError(t, err)
	s, err := metrics.Evaluate(model.ColumnValues(y), model.ColumnValues(pred))
	require.NoError(t, err)
	assert.Greater(t, s.R2, 0.98)

	for _, tree := range reg.Trees {
		assert.LessOrEqual(t, treeDepth(&tree), 6)
	}
	for i := 1; i < len(reg.EvalRMSE); i++ {
		assert.LessOrEqual(t, reg.EvalRMSE[i], reg.EvalRMSE[i-1]+1e-12)
	}
}

func TestXGBRegressor_BaseScoreIsMean(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 1, 1, 1})
	y := mat.NewDense(4, 1, []float64{1, 2, 3, 6})
	reg := NewXGBRegressor().WithNEstimators(3)
	require.NoError(t, reg.Fit(X, y))
	assert.Equal(t, 3.0, reg.BaseScore)

	// constant features cannot be split: every round is a single leaf with
	// zero gradient sum
	pred, err := reg.Predict(X)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, pred.At(0, 0), 1e-12)
}

func TestXGBRegressor_ThreeSamples(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{1, 0, 2, 0, 3, 1})
	y := mat.NewDense(3, 1, []float64{10, 20, 60})
	reg := NewXGBRegressor()
	require.NoError(t, reg.Fit(X, y))
	pred, err := reg.Predict(X)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		assert.InDelta(t, y.At(i, 0), pred.At(i, 0), 1.0)
	}
}

func TestXGBRegressor_GammaPrunes(t *testing.T) {
	X, y := data(50)
	reg := NewXGBRegressor().WithGamma(1e9).WithNEstimators(2)
	require.NoError(t, reg.Fit(X, y))
	for _, tree := range reg.Trees {
		assert.Len(t, tree.Nodes, 1)
	}
}

func TestXGBRegressor_Validate(t *testing.T) {
	X, y := data(10)
	tests := []struct {
		name string
		reg  *XGBRegressor
	}{
		{"zero estimators", NewXGBRegressor().WithNEstimators(0)},
		{"zero depth", NewXGBRegressor().WithMaxDepth(0)},
		{"zero learning rate", NewXGBRegressor().WithLearningRate(0)},
		{"negative lambda", NewXGBRegressor().WithRegLambda(-1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ve *errors.ValidationError
			assert.True(t, errors.As(tt.reg.Fit(X, y), &ve))
		})
	}
}

func TestXGBRegressor_SubsampleDeterministic(t *testing.T) {
	X, y := data(100)
	mk := func() *XGBRegressor {
		r := NewXGBRegressor().WithNEstimators(10).WithRandomState(42)
		r.Subsample, r.ColsampleBytree = 0.7, 0.67
		return r
	}
	a, b := mk(), mk()
	require.NoError(t, a.Fit(X, y))
	require.NoError(t, b.Fit(X, y))
	pa, _ := a.Predict(X)
	pb, _ := b.Predict(X)
	assert.True(t, mat.Equal(pa, pb))
}

func TestXGBRegressor_NotFittedAndGob(t *testing.T) {
	reg := NewXGBRegressor().WithNEstimators(5)
	_, err := reg.Predict(mat.NewDense(1, 3, nil))
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	X, y := data(40)
	require.NoError(t, reg.Fit(X, y))
	imp, err := reg.FeatureImportances()
	require.NoError(t, err)
	var sum float64
	for _, v := range imp {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-9)

	var buf bytes.Buffer
	require.NoError(t, model.SaveModelToWriter(reg, &buf))
	var loaded XGBRegressor
	require.NoError(t, model.LoadModelFromReader(&loaded, &buf))
	want, _ := reg.Predict(X)
	got, err := loaded.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(want, got))
}

func treeDepth(t *RegTree) int {
	var walk func(id int) int
	walk = func(id int) int {
		n := t.Nodes[id]
		if n.isLeaf() {
			return 0
		}
		return 1 + max(walk(n.Left), walk(n.Right))
	}
	return walk(0)
}
