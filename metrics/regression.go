// Package metrics は回帰モデルの評価指標を提供します。
package metrics

import (
	"math"

	"github.com/YuminosukeSato/matprop/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Scores は1つの評価セットに対する指標の組です。
type Scores struct {
	R2   float64
	RMSE float64
	MAE  float64
}

// Evaluate はスライス形式の真値と予測値から R²、RMSE、MAE をまとめて計算する
func Evaluate(yTrue, yPred []float64) (Scores, error) {
	if len(yTrue) == 0 {
		return Scores{}, errors.NewValueError("Evaluate", "empty vector")
	}
	if len(yPred) != len(yTrue) {
		return Scores{}, errors.NewDimensionError("Evaluate", len(yTrue), len(yPred), 0)
	}
	t := mat.NewVecDense(len(yTrue), yTrue)
	p := mat.NewVecDense(len(yPred), yPred)

	r2, err := R2Score(t, p)
	if err != nil {
		return Scores{}, err
	}
	rmse, err := RMSE(t, p)
	if err != nil {
		return Scores{}, err
	}
	mae, err := MAE(t, p)
	if err != nil {
		return Scores{}, err
	}
	return Scores{R2: r2, RMSE: rmse, MAE: mae}, nil
}

func checkPair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return n, nil
}

// MSE は平均二乗誤差（Mean Squared Error）を計算する
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	var sum float64
	for i := 0; i < n; i++ {
		diff := yTrue.AtVec(i) - yPred.AtVec(i)
		sum += diff * diff
	}
	return sum / float64(n), nil
}

// RMSE は平方根平均二乗誤差（Root Mean Squared Error）を計算する
func RMSE(yTrue, yPred *mat.VecDense) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE は平均絶対誤差（Mean Absolute Error）を計算する
func MAE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += math.Abs(yTrue.AtVec(i) - yPred.AtVec(i))
	}
	return sum / float64(n), nil
}

// R2Score は決定係数（R²）を計算する。
//
// サンプルが2件未満の場合は NaN を返し UndefinedMetricWarning を発行する。
// yTrue の分散が0の場合は、予測が完全一致なら 1、そうでなければ 0 を返す。
func R2Score(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("R2Score", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if n < 2 {
		errors.Warn(errors.NewUndefinedMetricWarning("r2_score", "less than two samples", math.NaN()))
		return math.NaN(), nil
	}

	var yMean float64
	for i := 0; i < n; i++ {
		yMean += yTrue.AtVec(i)
	}
	yMean /= float64(n)

	var tss, rss float64
	for i := 0; i < n; i++ {
		yt := yTrue.AtVec(i)
		yp := yPred.AtVec(i)
		tss += (yt - yMean) * (yt - yMean)
		rss += (yt - yp) * (yt - yp)
	}

	if tss == 0 {
		if rss == 0 {
			return 1, nil
		}
		return 0, nil
	}
	return 1 - rss/tss, nil
}
