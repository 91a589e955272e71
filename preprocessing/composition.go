// Package preprocessing は化学式を学習用の特徴量行列に変換します。
package preprocessing

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/matprop/chem"
	"github.com/YuminosukeSato/matprop/core/parallel"
	"github.com/YuminosukeSato/matprop/pkg/errors"
)

// parallelThreshold を超える行数の場合のみ並列にパースする
const parallelThreshold = 256

// BuildFeatureMatrix は化学式のリストから len(formulas)×24 の組成行列を作成する。
// 行の順序は入力順と一致し、列は元素語彙の順序に従う。
// gonum は0行の行列を作れないため、空の入力は ValueError になる。
//
// 使用例:
//
//	X, err := preprocessing.BuildFeatureMatrix([]string{"BaTiO3", "0.5BaTiO3-0.5SrTiO3"})
func BuildFeatureMatrix(formulas []string) (*mat.Dense, error) {
	n := len(formulas)
	if n == 0 {
		return nil, errors.NewValueError("BuildFeatureMatrix", "no formulas")
	}
	data := make([]float64, n*chem.NumElements)
	parallel.ParallelizeWithThreshold(n, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			c := chem.Parse(formulas[i])
			copy(data[i*chem.NumElements:(i+1)*chem.NumElements], c[:])
		}
	})
	return mat.NewDense(n, chem.NumElements, data), nil
}

// CompositionVector は単一の組成を 1×24 の行列に変換する
func CompositionVector(c chem.Composition) *mat.Dense {
	return mat.NewDense(1, chem.NumElements, c.Slice())
}
