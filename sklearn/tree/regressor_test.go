package tree

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/matprop/core/model"
	"github.com/YuminosukeSato/matprop/pkg/errors"
)

func stepData() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(8, 2, []float64{
		0, 5,
		1, 4,
		2, 3,
		3, 2,
		4, 1,
		5, 0,
		6, 1,
		7, 2,
	})
	y := mat.NewDense(8, 1, []float64{1, 1, 1, 1, 10, 10, 10, 10})
	return X, y
}

func TestDecisionTreeRegressor_FitPredict(t *testing.T) {
	X, y := stepData()
	dt := NewDecisionTreeRegressor()
	require.NoError(t, dt.Fit(X, y))
	assert.True(t, dt.IsFitted())

	pred, err := dt.Predict(X)
	require.NoError(t, err)
	for i := 0; i < 8; i++ {
		assert.InDelta(t, y.At(i, 0), pred.At(i, 0), 1e-12)
	}

	// a single split on feature 0 separates the two levels
	assert.Equal(t, 1, dt.Depth())
	assert.Equal(t, 2, dt.NumLeaves())
	assert.Equal(t, 0, dt.Nodes[0].Feature)
	assert.InDelta(t, 3.5, dt.Nodes[0].Threshold, 1e-12)

	imp, err := dt.FeatureImportances()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, imp[0], 1e-12)
}

func TestDecisionTreeRegressor_MaxDepth(t *testing.T) {
	X := mat.NewDense(8, 1, []float64{0, 1, 2, 3, 4, 5, 6, 7})
	y := mat.NewDense(8, 1, []float64{0, 1, 2, 3, 4, 5, 6, 7})

	full := NewDecisionTreeRegressor()
	require.NoError(t, full.Fit(X, y))
	assert.Equal(t, 8, full.NumLeaves())

	stump := NewDecisionTreeRegressor(WithMaxDepth(1))
	require.NoError(t, stump.Fit(X, y))
	assert.Equal(t, 1, stump.Depth())

	pred, err := stump.Predict(mat.NewDense(2, 1, []float64{0, 7}))
	require.NoError(t, err)
	assert.InDelta(t, 1.5, pred.At(0, 0), 1e-12)
	assert.InDelta(t, 5.5, pred.At(1, 0), 1e-12)
}

func TestDecisionTreeRegressor_MinSamplesLeaf(t *testing.T) {
	X := mat.NewDense(6, 1, []float64{0, 1, 2, 3, 4, 5})
	y := mat.NewDense(6, 1, []float64{0, 0, 0, 0, 0, 100})

	dt := NewDecisionTreeRegressor(WithMinSamplesLeaf(2))
	require.NoError(t, dt.Fit(X, y))
	for _, nd := range dt.Nodes {
		if nd.Feature == leaf {
			assert.GreaterOrEqual(t, nd.NSamples, 2)
		}
	}
}

func TestDecisionTreeRegressor_ConstantTarget(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{1, 2, 3})
	y := mat.NewDense(3, 1, []float64{4, 4, 4})
	dt := NewDecisionTreeRegressor()
	require.NoError(t, dt.Fit(X, y))
	assert.Len(t, dt.Nodes, 1)
	assert.Equal(t, 4.0, dt.PredictRow([]float64{100}))
}

func TestDecisionTreeRegressor_Errors(t *testing.T) {
	dt := NewDecisionTreeRegressor()
	_, err := dt.Predict(mat.NewDense(1, 2, []float64{1, 2}))
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	X, y := stepData()
	require.NoError(t, dt.Fit(X, y))
	_, err = dt.Predict(mat.NewDense(1, 3, []float64{1, 2, 3}))
	var dim *errors.DimensionError
	assert.True(t, errors.As(err, &dim))

	err = dt.Fit(X, mat.NewDense(3, 1, nil))
	assert.Error(t, err)

	bad := NewDecisionTreeRegressor(WithCriterion("gini"))
	assert.Error(t, bad.Fit(X, y))
}

func TestDecisionTreeRegressor_GetSetParams(t *testing.T) {
	dt := NewDecisionTreeRegressor()
	params := dt.GetParams()
	assert.Equal(t, "squared_error", params["criterion"])
	assert.Equal(t, 2, params["min_samples_split"])

	require.NoError(t, dt.SetParams(map[string]interface{}{
		"max_depth":        5,
		"min_samples_leaf": 2,
		"random_state":     7,
	}))
	assert.Equal(t, 5, dt.Params.MaxDepth)
	assert.Equal(t, 2, dt.Params.MinSamplesLeaf)
	assert.Equal(t, int64(7), dt.Params.RandomState)

	assert.Error(t, dt.SetParams(map[string]interface{}{"min_samples_split": 1}))
	assert.Error(t, dt.SetParams(map[string]interface{}{"nope": 1}))
	assert.Equal(t, 5, dt.Params.MaxDepth, "failed SetParams must not change params")
}

func TestDecisionTreeRegressor_MaxFeaturesDeterministic(t *testing.T) {
	X, y := stepData()
	a := NewDecisionTreeRegressor(WithMaxFeatures(1), WithRandomState(3))
	b := NewDecisionTreeRegressor(WithMaxFeatures(1), WithRandomState(3))
	require.NoError(t, a.Fit(X, y))
	require.NoError(t, b.Fit(X, y))
	assert.Equal(t, a.Nodes, b.Nodes)
}

func TestDecisionTreeRegressor_GobRoundTrip(t *testing.T) {
	X, y := stepData()
	dt := NewDecisionTreeRegressor()
	require.NoError(t, dt.Fit(X, y))

	var buf bytes.Buffer
	require.NoError(t, model.SaveModelToWriter(dt, &buf))

	var loaded DecisionTreeRegressor
	require.NoError(t, model.LoadModelFromReader(&loaded, &buf))
	assert.True(t, loaded.IsFitted())

	want, err := dt.Predict(X)
	require.NoError(t, err)
	got, err := loaded.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(want, got))
}
