package lightgbm

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/matprop/core/model"
	"github.com/YuminosukeSato/matprop/pkg/errors"
	"github.com/YuminosukeSato/matprop/pkg/log"
)

// LGBMRegressor implements a LightGBM regressor with scikit-learn compatible API
type LGBMRegressor struct {
	// Model
	Model *Model
	State *model.StateManager

	// Hyperparameters (matching Python LightGBM)
	NumLeaves       int     // Number of leaves in one tree
	MaxDepth        int     // Maximum tree depth, -1 for no limit
	LearningRate    float64 // Boosting learning rate
	NumIterations   int     // Number of boosting iterations
	MinChildSamples int     // Minimum number of data in one leaf
	MinChildWeight  float64 // Minimum sum of hessians in one leaf
	Subsample       float64 // Subsample ratio of training data
	SubsampleFreq   int     // Frequency of subsample
	ColsampleBytree float64 // Subsample ratio of columns when constructing tree
	RegAlpha        float64 // L1 regularization
	RegLambda       float64 // L2 regularization
	RandomState     int     // Random seed
	Objective       string  // regression, regression_l1 or huber
	Verbosity       int     // Verbosity level

	// TrainingLoss is the mean training loss after each iteration.
	TrainingLoss []float64
}

// NewLGBMRegressor creates a new LightGBM regressor with default parameters
func NewLGBMRegressor() *LGBMRegressor {
	return &LGBMRegressor{
		State:           model.NewStateManager(),
		NumLeaves:       31,
		MaxDepth:        -1,
		LearningRate:    0.1,
		NumIterations:   100,
		MinChildSamples: 20,
		MinChildWeight:  1e-3,
		Subsample:       1.0,
		ColsampleBytree: 1.0,
		RandomState:     42,
		Objective:       "regression",
		Verbosity:       -1,
	}
}

// WithNumLeaves sets the number of leaves
func (lgb *LGBMRegressor) WithNumLeaves(n int) *LGBMRegressor {
	lgb.NumLeaves = n
	return lgb
}

// WithMaxDepth sets the maximum depth
func (lgb *LGBMRegressor) WithMaxDepth(d int) *LGBMRegressor {
	lgb.MaxDepth = d
	return lgb
}

// WithLearningRate sets the learning rate
func (lgb *LGBMRegressor) WithLearningRate(lr float64) *LGBMRegressor {
	lgb.LearningRate = lr
	return lgb
}

// WithNumIterations sets the number of iterations
func (lgb *LGBMRegressor) WithNumIterations(n int) *LGBMRegressor {
	lgb.NumIterations = n
	return lgb
}

// WithMinChildSamples sets the minimum samples per leaf
func (lgb *LGBMRegressor) WithMinChildSamples(n int) *LGBMRegressor {
	lgb.MinChildSamples = n
	return lgb
}

// WithRandomState sets the random seed
func (lgb *LGBMRegressor) WithRandomState(seed int) *LGBMRegressor {
	lgb.RandomState = seed
	return lgb
}

// WithObjective sets the objective function
func (lgb *LGBMRegressor) WithObjective(obj string) *LGBMRegressor {
	lgb.Objective = obj
	return lgb
}

// IsFitted reports whether Fit has completed.
func (lgb *LGBMRegressor) IsFitted() bool {
	return lgb.State != nil && lgb.State.IsFitted()
}

// Fit trains the LightGBM regressor
func (lgb *LGBMRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "LGBMRegressor.Fit")

	rows, cols := X.Dims()
	yRows, yCols := y.Dims()
	if err := model.CheckFitInput("LGBMRegressor.Fit", rows, cols, yRows, yCols); err != nil {
		return err
	}
	if lgb.State == nil {
		lgb.State = model.NewStateManager()
	}
	lgb.State.Reset()

	params := TrainingParams{
		NumIterations:   lgb.NumIterations,
		LearningRate:    lgb.LearningRate,
		NumLeaves:       lgb.NumLeaves,
		MaxDepth:        lgb.MaxDepth,
		MinDataInLeaf:   lgb.MinChildSamples,
		MinSumHessian:   lgb.MinChildWeight,
		Lambda:          lgb.RegLambda,
		Alpha:           lgb.RegAlpha,
		BaggingFraction: lgb.Subsample,
		BaggingFreq:     lgb.SubsampleFreq,
		FeatureFraction: lgb.ColsampleBytree,
		Objective:       lgb.Objective,
		Seed:            lgb.RandomState,
		Verbosity:       lgb.Verbosity,
	}

	trainer := NewTrainer(params)
	if err := trainer.Fit(X, y); err != nil {
		return errors.Wrap(err, "training failed")
	}
	lgb.Model = trainer.GetModel()
	lgb.TrainingLoss = trainer.History()
	lgb.State.SetDimensions(cols, rows)
	lgb.State.SetFitted()

	log.GetLoggerWithName("lightgbm.regressor").Debug("Training completed",
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		"iterations", lgb.Model.NumIteration,
		"objective", lgb.Objective,
	)
	return nil
}

// Predict makes predictions for input samples
func (lgb *LGBMRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if lgb.State == nil || lgb.Model == nil {
		return nil, errors.NewNotFittedError("LGBMRegressor", "Predict")
	}
	_, cols := X.Dims()
	if err := lgb.State.CheckPredictInput("LGBMRegressor", cols); err != nil {
		return nil, err
	}
	return lgb.Model.Predict(X)
}

// GetFeatureImportance returns feature importance scores
func (lgb *LGBMRegressor) GetFeatureImportance(importanceType string) []float64 {
	if !lgb.IsFitted() || lgb.Model == nil {
		return nil
	}
	return lgb.Model.GetFeatureImportance(importanceType)
}

// GetParams returns the parameters of the regressor
func (lgb *LGBMRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"num_leaves":        lgb.NumLeaves,
		"max_depth":         lgb.MaxDepth,
		"learning_rate":     lgb.LearningRate,
		"n_estimators":      lgb.NumIterations,
		"min_child_samples": lgb.MinChildSamples,
		"min_child_weight":  lgb.MinChildWeight,
		"subsample":         lgb.Subsample,
		"subsample_freq":    lgb.SubsampleFreq,
		"colsample_bytree":  lgb.ColsampleBytree,
		"reg_alpha":         lgb.RegAlpha,
		"reg_lambda":        lgb.RegLambda,
		"random_state":      lgb.RandomState,
		"objective":         lgb.Objective,
		"verbosity":         lgb.Verbosity,
	}
}

func (lgb *LGBMRegressor) String() string {
	return fmt.Sprintf("LGBMRegressor(n_estimators=%d, num_leaves=%d, learning_rate=%g)",
		lgb.NumIterations, lgb.NumLeaves, lgb.LearningRate)
}
