// Package lightgbm implements LightGBM-style gradient boosting for regression
// in pure Go.
//
// Trees are grown leaf-wise: at every step the leaf with the largest split
// gain is split, until NumLeaves is reached or no split improves the
// objective. Feature values are bucketed into at most MaxBin histogram bins
// before training, and split search works on per-leaf gradient histograms.
// The initial score is the objective's optimal constant (the mean for L2).
//
// # scikit-learn Compatible API
//
//	reg := lightgbm.NewLGBMRegressor().
//	    WithNumIterations(200).
//	    WithLearningRate(0.05)
//	if err := reg.Fit(XTrain, yTrain); err != nil {
//	    return err
//	}
//	pred, err := reg.Predict(XTest)
//
// Defaults follow the Python package: 31 leaves, 20 minimum samples per
// leaf, learning rate 0.1 and 100 iterations. With fewer than
// 2*MinChildSamples rows no split is possible and the model predicts the
// training mean.
//
// # Persistence
//
// LGBMRegressor keeps all fitted state in exported fields, so it can be
// written with core/model.SaveModelToWriter and read back with
// core/model.LoadModelFromReader.
package lightgbm
