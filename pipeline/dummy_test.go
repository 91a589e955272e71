package pipeline

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

type dummyReg struct{}

func (dummyReg) Fit(X, y mat.Matrix) error { return nil }

func (dummyReg) Predict(X mat.Matrix) (mat.Matrix, error) {
	r, _ := X.Dims()
	return mat.NewDense(r, 1, nil), nil
}

func (dummyReg) IsFitted() bool { return true }

// nanReg predicts NaN for every row, like a model fitted on a non-finite target.
type nanReg struct{ dummyReg }

func (nanReg) Predict(X mat.Matrix) (mat.Matrix, error) {
	r, _ := X.Dims()
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		out.Set(i, 0, math.NaN())
	}
	return out, nil
}
