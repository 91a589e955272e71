package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/matprop/pkg/errors"
)

func vec(v ...float64) *mat.VecDense { return mat.NewVecDense(len(v), v) }

func TestMSE(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   *mat.VecDense
		yPred   *mat.VecDense
		want    float64
		wantErr bool
	}{
		{"perfect prediction", vec(1, 2, 3, 4, 5), vec(1, 2, 3, 4, 5), 0, false},
		{"simple case", vec(1, 2, 3, 4), vec(1.5, 2.5, 2.5, 3.5), 0.25, false},
		{"larger errors", vec(10, 20, 30), vec(12, 18, 33), 17.0 / 3.0, false},
		{"dimension mismatch", vec(1, 2, 3), vec(1, 2), 0, true},
		{"empty vectors", &mat.VecDense{}, &mat.VecDense{}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MSE(tt.yTrue, tt.yPred)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-10)
		})
	}
}

func TestRMSEAndMAE(t *testing.T) {
	rmse, err := RMSE(vec(10, 20, 30), vec(12, 18, 33))
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(17.0/3.0), rmse, 1e-10)

	mae, err := MAE(vec(10, 20, 30), vec(12, 18, 33))
	require.NoError(t, err)
	assert.InDelta(t, 7.0/3.0, mae, 1e-10)

	_, err = MAE(vec(1), vec(1, 2))
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))
}

func TestR2Score(t *testing.T) {
	tests := []struct {
		name  string
		yTrue *mat.VecDense
		yPred *mat.VecDense
		want  float64
	}{
		{"perfect prediction", vec(1, 2, 3, 4, 5), vec(1, 2, 3, 4, 5), 1},
		{"mean prediction", vec(1, 2, 3, 4, 5), vec(3, 3, 3, 3, 3), 0},
		{"good prediction", vec(3, -0.5, 2, 7), vec(2.5, 0, 2, 8), 0.9486081370449679},
		{"worse than mean", vec(1, 2, 3), vec(3, 2, 1), -3},
		{"constant target exact", vec(2, 2, 2), vec(2, 2, 2), 1},
		{"constant target inexact", vec(2, 2, 2), vec(2, 2, 3), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := R2Score(tt.yTrue, tt.yPred)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-10)
		})
	}
}

func TestR2ScoreSingleSampleIsUndefined(t *testing.T) {
	var warned []error
	errors.SetWarningHandler(func(w error) { warned = append(warned, w) })
	defer errors.SetWarningHandler(func(error) {})

	got, err := R2Score(vec(4), vec(4))
	require.NoError(t, err)
	assert.True(t, math.IsNaN(got))
	require.Len(t, warned, 1)
	var w *errors.UndefinedMetricWarning
	assert.True(t, errors.As(warned[0], &w))
	assert.Equal(t, "r2_score", w.Metric)
}

func TestEvaluate(t *testing.T) {
	s, err := Evaluate([]float64{1, 2, 3, 4}, []float64{1.5, 2.5, 2.5, 3.5})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, s.RMSE, 1e-10)
	assert.InDelta(t, 0.5, s.MAE, 1e-10)
	assert.InDelta(t, 0.8, s.R2, 1e-10)

	_, err = Evaluate(nil, nil)
	assert.Error(t, err)
	_, err = Evaluate([]float64{1, 2}, []float64{1})
	assert.Error(t, err)
}
