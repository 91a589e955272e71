package lightgbm

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

func regressionData(n int) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewPCG(7, 11))
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		a, b := rng.Float64()*4, rng.Float64()*4
		X.SetRow(i, []float64{a, b})
		y.Set(i, 0, 2*a+math.Cos(b))
	}
	return X, y
}

func TestLGBMRegressor_Fit(t *testing.T) {
	X, y := regressionData(300)
	reg := NewLGBMRegressor()
	require.NoError(t, reg.Fit(X, y))
	assert.True(t, reg.IsFitted())
	assert.Equal(t, 100, reg.Model.NumIteration)

	pred, err := reg.Predict(X)
	require.NoError(t, err)
	s, err := metrics.Evaluate(model.ColumnValues(y), model.ColumnValues(pred))
	require.NoError(t, err)
	assert.Greater(t, s.R2, 0.95)

	// training loss must not increase under L2 boosting
	for i := 1; i < len(reg.TrainingLoss); i++ {
		assert.LessOrEqual(t, reg.TrainingLoss[i], reg.TrainingLoss[i-1]+1e-12)
	}
	for _, tree := range reg.Model.Trees {
		assert.LessOrEqual(t, tree.NumLeaves, 31)
	}
}

func TestLGBMRegressor_SmallDataPredictsMean(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{1, 0, 2, 0, 3, 1})
	y := mat.NewDense(3, 1, []float64{10, 20, 60})
	reg := NewLGBMRegressor()
	require.NoError(t, reg.Fit(X, y))

	pred, err := reg.Predict(X)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		assert.InDelta(t, 30.0, pred.At(i, 0), 1e-9)
	}
}

func TestLGBMRegressor_LeafWiseRespectsNumLeaves(t *testing.T) {
	X, y := regressionData(200)
	reg := NewLGBMRegressor().WithNumLeaves(4).WithMinChildSamples(5).WithNumIterations(5)
	require.NoError(t, reg.Fit(X, y))
	for _, tree := range reg.Model.Trees {
		assert.Equal(t, 4, tree.NumLeaves)
	}
	assert.Greater(t, reg.GetFeatureImportance("split")[0], 0.0)
}

func TestLGBMRegressor_Deterministic(t *testing.T) {
	X, y := regressionData(120)
	a := NewLGBMRegressor()
	a.Subsample, a.SubsampleFreq, a.ColsampleBytree = 0.8, 1, 0.5
	b := NewLGBMRegressor()
	b.Subsample, b.SubsampleFreq, b.ColsampleBytree = 0.8, 1, 0.5
	require.NoError(t, a.Fit(X, y))
	require.NoError(t, b.Fit(X, y))

	pa, err := a.Predict(X)
	require.NoError(t, err)
	pb, err := b.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(pa, pb))
}

func TestLGBMRegressor_Errors(t *testing.T) {
	reg := NewLGBMRegressor()
	_, err := reg.Predict(mat.NewDense(1, 2, nil))
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	X, y := regressionData(50)
	bad := NewLGBMRegressor().WithLearningRate(-1)
	var ve *errors.ValidationError
	assert.True(t, errors.As(bad.Fit(X, y), &ve))

	require.NoError(t, reg.Fit(X, y))
	_, err = reg.Predict(mat.NewDense(1, 3, nil))
	var dim *errors.DimensionError
	assert.True(t, errors.As(err, &dim))

	assert.Error(t, NewLGBMRegressor().WithObjective("poisson").Fit(X, y))
}

func TestLGBMRegressor_GobRoundTrip(t *testing.T) {
	X, y := regressionData(80)
	reg := NewLGBMRegressor().WithNumIterations(10)
	require.NoError(t, reg.Fit(X, y))

	var buf bytes.Buffer
	require.NoError(t, model.SaveModelToWriter(reg, &buf))
	var loaded LGBMRegressor
	require.NoError(t, model.LoadModelFromReader(&loaded, &buf))

	want, err := reg.Predict(X)
	require.NoError(t, err)
	got, err := loaded.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(want, got))
}

func TestObjectives(t *testing.T) {
	l2 := NewL2Objective()
	assert.Equal(t, 1.0, l2.CalculateGradient(3, 2))
	assert.Equal(t, 2.0, l2.GetInitScore([]float64{1, 2, 3}))

	l1 := NewL1Objective()
	assert.Equal(t, -1.0, l1.CalculateGradient(1, 2))
	assert.Equal(t, 2.5, l1.GetInitScore([]float64{1, 2, 3, 10}))

	h := NewHuberObjective(1)
	assert.Equal(t, 1.0, h.CalculateGradient(5, 0))
	assert.InDelta(t, 4.5, h.CalculateLoss(5, 0), 1e-12)

	_, err := CreateObjectiveFunction("gamma", nil)
	assert.Error(t, err)
}

func TestBinMapper(t *testing.T) {
	m := newBinMapper([]float64{3, 1, 2, 2, 1}, 255)
	assert.Equal(t, []float64{1.5, 2.5}, m.Bounds)
	assert.Equal(t, 0, m.bin(1))
	assert.Equal(t, 1, m.bin(2))
	assert.Equal(t, 2, m.bin(3))

	m = newBinMapper([]float64{5, 5, 5}, 255)
	assert.Equal(t, 1, m.numBins())

	values := make([]float64, 1000)
	for i := range values {
		values[i] = float64(i)
	}
	m = newBinMapper(values, 16)
	assert.LessOrEqual(t, m.numBins(), 16)
}
