package model

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/matprop/pkg/errors"
)

func TestStateManagerLifecycle(t *testing.T) {
	s := NewStateManager()
	assert.False(t, s.IsFitted())

	err := s.RequireFitted("XGBRegressor", "Predict")
	var nf *errors.NotFittedError
	require.True(t, errors.As(err, &nf))

	s.SetDimensions(24, 10)
	s.SetFitted()
	assert.True(t, s.IsFitted())
	assert.NoError(t, s.CheckPredictInput("XGBRegressor", 24))

	err = s.CheckPredictInput("XGBRegressor", 3)
	var dim *errors.DimensionError
	require.True(t, errors.As(err, &dim))
	assert.Equal(t, 24, dim.Expected)

	s.Reset()
	assert.False(t, s.IsFitted())
	nf2, ns := s.GetDimensions()
	assert.Zero(t, nf2)
	assert.Zero(t, ns)
}

func TestCheckFitInput(t *testing.T) {
	assert.NoError(t, CheckFitInput("Fit", 5, 24, 5, 1))
	assert.Error(t, CheckFitInput("Fit", 0, 24, 0, 1))
	assert.Error(t, CheckFitInput("Fit", 5, 24, 4, 1))
	assert.Error(t, CheckFitInput("Fit", 5, 24, 5, 2))
}

type persisted struct {
	State  *StateManager
	Values []float64
}

func TestGobRoundTripKeepsFittedState(t *testing.T) {
	in := persisted{State: NewStateManager(), Values: []float64{1.5, 2.5}}
	in.State.SetDimensions(24, 2)
	in.State.SetFitted()

	var buf bytes.Buffer
	require.NoError(t, SaveModelToWriter(&in, &buf))

	var out persisted
	require.NoError(t, LoadModelFromReader(&out, &buf))
	assert.True(t, out.State.IsFitted())
	assert.Equal(t, in.Values, out.Values)
	nf, ns := out.State.GetDimensions()
	assert.Equal(t, 24, nf)
	assert.Equal(t, 2, ns)
}

func TestLoadModelFromReaderRejectsGarbage(t *testing.T) {
	var out persisted
	assert.Error(t, LoadModelFromReader(&out, bytes.NewReader([]byte("not gob"))))
}

func TestColumnHelpers(t *testing.T) {
	y := mat.NewDense(3, 1, []float64{1, 2, 3})
	assert.Equal(t, []float64{1, 2, 3}, ColumnValues(y))
	assert.Same(t, y, ToDense(y))

	v := mat.NewVecDense(2, []float64{4, 5})
	d := ToDense(v)
	r, c := d.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 1, c)
}
