package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecover_WithPanic(t *testing.T) {
	fit := func() (err error) {
		defer Recover(&err, "XGBRegressor.Fit")
		panic("index out of range")
	}

	err := fit()
	require.Error(t, err)

	var panicErr *PanicError
	require.True(t, errors.As(err, &panicErr))
	assert.Equal(t, "XGBRegressor.Fit", panicErr.Operation)
	assert.Equal(t, "index out of range", panicErr.PanicValue)
	assert.NotEmpty(t, panicErr.StackTrace)
	assert.Equal(t, "panic in XGBRegressor.Fit: index out of range", panicErr.Error())
	assert.True(t, IsPanic(err))
}

func TestRecover_WithoutPanic(t *testing.T) {
	fit := func() (err error) {
		defer Recover(&err, "XGBRegressor.Fit")
		return nil
	}
	assert.NoError(t, fit())
}

func TestRecover_WithExistingError(t *testing.T) {
	original := fmt.Errorf("bad input")

	fit := func() (err error) {
		defer Recover(&err, "RandomForestRegressor.Fit")
		err = original
		panic("after error")
	}

	err := fit()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic in RandomForestRegressor.Fit")
	assert.Contains(t, err.Error(), "bad input")
	assert.True(t, errors.Is(err, original))
	assert.False(t, IsPanic(err))
}

func TestSafeExecute(t *testing.T) {
	tests := []struct {
		name      string
		fn        func() error
		wantErr   bool
		wantPanic bool
	}{
		{name: "success", fn: func() error { return nil }},
		{name: "plain error", fn: func() error { return fmt.Errorf("boom") }, wantErr: true},
		{name: "string panic", fn: func() error { panic("boom") }, wantErr: true, wantPanic: true},
		{name: "error panic", fn: func() error { panic(errors.New("boom")) }, wantErr: true, wantPanic: true},
		{name: "int panic", fn: func() error { panic(42) }, wantErr: true, wantPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := SafeExecute("candidate.fit", tt.fn)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantPanic, IsPanic(err))
		})
	}
}

func TestPanicError_String(t *testing.T) {
	pe := NewPanicError("LGBMRegressor.Predict", "nil tree")
	assert.Contains(t, pe.String(), "Stack trace:")
	assert.Contains(t, pe.String(), "nil tree")
}
