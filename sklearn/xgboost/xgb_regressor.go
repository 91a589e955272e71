package xgboost

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/matprop/core/model"
	"github.com/YuminosukeSato/matprop/pkg/errors"
	"github.com/YuminosukeSato/matprop/pkg/log"
)

// XGBRegressor is a gradient boosted tree regressor with the XGBoost
// scikit-learn API defaults.
type XGBRegressor struct {
	// Hyperparameters
	NEstimators     int     // Number of boosting rounds
	MaxDepth        int     // Maximum tree depth
	LearningRate    float64 // eta
	RegLambda       float64 // L2 regularization on leaf weights
	RegAlpha        float64 // L1 regularization on leaf weights
	Gamma           float64 // Minimum loss reduction to make a split
	MinChildWeight  float64 // Minimum sum of hessians in a child
	Subsample       float64 // Row subsample ratio per round
	ColsampleBytree float64 // Column subsample ratio per tree
	RandomState     int64

	// Fitted state
	BaseScore float64
	Trees     []RegTree
	// EvalRMSE is the training RMSE after each round.
	EvalRMSE []float64
	State    *model.StateManager
}

// NewXGBRegressor returns a regressor with XGBoost's defaults:
// 100 rounds, depth 6, eta 0.3, lambda 1, min_child_weight 1.
func NewXGBRegressor() *XGBRegressor {
	return &XGBRegressor{
		NEstimators:     100,
		MaxDepth:        6,
		LearningRate:    0.3,
		RegLambda:       1,
		MinChildWeight:  1,
		Subsample:       1,
		ColsampleBytree: 1,
		State:           model.NewStateManager(),
	}
}

// WithNEstimators sets the number of boosting rounds
func (x *XGBRegressor) WithNEstimators(n int) *XGBRegressor {
	x.NEstimators = n
	return x
}

// WithMaxDepth sets the maximum tree depth
func (x *XGBRegressor) WithMaxDepth(d int) *XGBRegressor {
	x.MaxDepth = d
	return x
}

// WithLearningRate sets eta
func (x *XGBRegressor) WithLearningRate(lr float64) *XGBRegressor {
	x.LearningRate = lr
	return x
}

// WithRegLambda sets the L2 regularization
func (x *XGBRegressor) WithRegLambda(l float64) *XGBRegressor {
	x.RegLambda = l
	return x
}

// WithGamma sets the minimum split loss
func (x *XGBRegressor) WithGamma(g float64) *XGBRegressor {
	x.Gamma = g
	return x
}

// WithRandomState sets the seed for row and column subsampling
func (x *XGBRegressor) WithRandomState(seed int64) *XGBRegressor {
	x.RandomState = seed
	return x
}

// Validate checks the hyperparameters.
func (x *XGBRegressor) Validate() error {
	switch {
	case x.NEstimators < 1:
		return errors.NewValidationError("n_estimators", "must be >= 1", x.NEstimators)
	case x.MaxDepth < 1:
		return errors.NewValidationError("max_depth", "must be >= 1", x.MaxDepth)
	case x.LearningRate <= 0:
		return errors.NewValidationError("learning_rate", "must be > 0", x.LearningRate)
	case x.RegLambda < 0:
		return errors.NewValidationError("reg_lambda", "must be >= 0", x.RegLambda)
	case x.RegAlpha < 0:
		return errors.NewValidationError("reg_alpha", "must be >= 0", x.RegAlpha)
	case x.Gamma < 0:
		return errors.NewValidationError("gamma", "must be >= 0", x.Gamma)
	case x.MinChildWeight < 0:
		return errors.NewValidationError("min_child_weight", "must be >= 0", x.MinChildWeight)
	case x.Subsample <= 0 || x.Subsample > 1:
		return errors.NewValidationError("subsample", "must be in (0, 1]", x.Subsample)
	case x.ColsampleBytree <= 0 || x.ColsampleBytree > 1:
		return errors.NewValidationError("colsample_bytree", "must be in (0, 1]", x.ColsampleBytree)
	}
	return nil
}

// IsFitted reports whether Fit has completed.
func (x *XGBRegressor) IsFitted() bool {
	return x.State != nil && x.State.IsFitted()
}

// Fit trains the booster on X (n×d) and y (n×1).
func (x *XGBRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "XGBRegressor.Fit")

	rows, cols := X.Dims()
	yRows, yCols := y.Dims()
	if err := model.CheckFitInput("XGBRegressor.Fit", rows, cols, yRows, yCols); err != nil {
		return err
	}
	if err := x.Validate(); err != nil {
		return err
	}
	if x.State == nil {
		x.State = model.NewStateManager()
	}
	x.State.Reset()

	b := &gbtree{
		p: boostParams{
			maxDepth:       x.MaxDepth,
			eta:            x.LearningRate,
			lambda:         x.RegLambda,
			alpha:          x.RegAlpha,
			gamma:          x.Gamma,
			minChildWeight: x.MinChildWeight,
			subsample:      x.Subsample,
			colsample:      x.ColsampleBytree,
		},
		nRounds: x.NEstimators,
		seed:    uint64(x.RandomState),
	}
	b.train(model.ToDense(X), model.ColumnValues(y))

	x.BaseScore = b.baseScore
	x.Trees = b.trees
	x.EvalRMSE = b.evalRMSE
	x.State.SetDimensions(cols, rows)
	x.State.SetFitted()

	log.GetLoggerWithName("xgboost.regressor").Debug("Training completed",
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		"rounds", len(x.Trees),
		"train_rmse", x.EvalRMSE[len(x.EvalRMSE)-1],
	)
	return nil
}

// Predict returns an n×1 matrix of predictions.
func (x *XGBRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if x.State == nil {
		return nil, errors.NewNotFittedError("XGBRegressor", "Predict")
	}
	rows, cols := X.Dims()
	if err := x.State.CheckPredictInput("XGBRegressor", cols); err != nil {
		return nil, err
	}
	out := mat.NewDense(rows, 1, nil)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, X)
		p := x.BaseScore
		for t := range x.Trees {
			p += x.Trees[t].Predict(row)
		}
		out.Set(i, 0, p)
	}
	return out, nil
}

// FeatureImportances returns the total gain per feature, normalized to sum to 1.
func (x *XGBRegressor) FeatureImportances() ([]float64, error) {
	if !x.IsFitted() {
		return nil, errors.NewNotFittedError("XGBRegressor", "FeatureImportances")
	}
	nFeatures, _ := x.State.GetDimensions()
	out := make([]float64, nFeatures)
	var total float64
	for _, t := range x.Trees {
		for _, n := range t.Nodes {
			if !n.isLeaf() {
				out[n.SplitIndex] += n.LossChg
				total += n.LossChg
			}
		}
	}
	if total > 0 {
		for i := range out {
			out[i] /= total
		}
	}
	return out, nil
}

// GetParams returns the hyperparameters using XGBoost names.
func (x *XGBRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":     x.NEstimators,
		"max_depth":        x.MaxDepth,
		"learning_rate":    x.LearningRate,
		"reg_lambda":       x.RegLambda,
		"reg_alpha":        x.RegAlpha,
		"gamma":            x.Gamma,
		"min_child_weight": x.MinChildWeight,
		"subsample":        x.Subsample,
		"colsample_bytree": x.ColsampleBytree,
		"random_state":     x.RandomState,
	}
}

func (x *XGBRegressor) String() string {
	return fmt.Sprintf("XGBRegressor(n_estimators=%d, max_depth=%d, learning_rate=%g)",
		x.NEstimators, x.MaxDepth, x.LearningRate)
}
