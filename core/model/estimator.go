package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる。y は n×1 の列ベクトル
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を n×1 の行列で返す
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Regressor は回帰モデルの共通インターフェース
type Regressor interface {
	Fitter
	Predictor
	// IsFitted はモデルが学習済みかどうかを返す
	IsFitted() bool
}

// ColumnValues は n×1 行列を []float64 に変換する
func ColumnValues(y mat.Matrix) []float64 {
	rows, _ := y.Dims()
	out := make([]float64, rows)
	for i := 0; i < rows; i++ {
		out[i] = y.At(i, 0)
	}
	return out
}

// ToDense は任意の mat.Matrix を *mat.Dense に変換する（既に Dense ならそのまま返す）
func ToDense(X mat.Matrix) *mat.Dense {
	if d, ok := X.(*mat.Dense); ok {
		return d
	}
	return mat.DenseCopyOf(X)
}
