// Package ensemble provides bagged tree ensembles.
package ensemble

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/matprop/core/model"
	"github.com/YuminosukeSato/matprop/core/parallel"
	"github.com/YuminosukeSato/matprop/pkg/errors"
	"github.com/YuminosukeSato/matprop/pkg/log"
	"github.com/YuminosukeSato/matprop/sklearn/tree"
)

const modelName = "RandomForestRegressor"

// ForestParams are the hyperparameters of a RandomForestRegressor.
type ForestParams struct {
	NEstimators     int
	MaxDepth        int // 0 は深さ無制限
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int // 0 は全特徴量（scikit-learn の回帰デフォルト 1.0 と同じ）
	Bootstrap       bool
	RandomState     int64
}

// Option configures a RandomForestRegressor.
type Option func(*ForestParams)

// WithNEstimators sets the number of trees.
func WithNEstimators(n int) Option { return func(p *ForestParams) { p.NEstimators = n } }

// WithMaxDepth limits the depth of every tree. 0 means unlimited.
func WithMaxDepth(d int) Option { return func(p *ForestParams) { p.MaxDepth = d } }

// WithMinSamplesSplit sets the per-tree minimum samples to split.
func WithMinSamplesSplit(n int) Option { return func(p *ForestParams) { p.MinSamplesSplit = n } }

// WithMinSamplesLeaf sets the per-tree minimum samples per leaf.
func WithMinSamplesLeaf(n int) Option { return func(p *ForestParams) { p.MinSamplesLeaf = n } }

// WithMaxFeatures sets the features drawn per split. 0 means all.
func WithMaxFeatures(n int) Option { return func(p *ForestParams) { p.MaxFeatures = n } }

// WithBootstrap toggles sampling rows with replacement for each tree.
func WithBootstrap(b bool) Option { return func(p *ForestParams) { p.Bootstrap = b } }

// WithRandomState seeds bootstrap sampling and per-tree feature sampling.
func WithRandomState(seed int64) Option { return func(p *ForestParams) { p.RandomState = seed } }

// RandomForestRegressor averages bootstrap-trained regression trees.
type RandomForestRegressor struct {
	Params ForestParams
	Trees  []*tree.DecisionTreeRegressor
	State  *model.StateManager
}

// NewRandomForestRegressor creates a forest with scikit-learn's defaults:
// 100 trees, bootstrap, unlimited depth, min_samples_split 2.
func NewRandomForestRegressor(opts ...Option) *RandomForestRegressor {
	p := ForestParams{
		NEstimators:     100,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Bootstrap:       true,
	}
	for _, o := range opts {
		o(&p)
	}
	return &RandomForestRegressor{Params: p, State: model.NewStateManager()}
}

// Validate checks the hyperparameters.
func (p ForestParams) Validate() error {
	if p.NEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be >= 1", p.NEstimators)
	}
	return p.treeParams(0).Validate()
}

func (p ForestParams) treeParams(seed int64) tree.Params {
	return tree.Params{
		Criterion:       "squared_error",
		MaxDepth:        p.MaxDepth,
		MinSamplesSplit: p.MinSamplesSplit,
		MinSamplesLeaf:  p.MinSamplesLeaf,
		MaxFeatures:     p.MaxFeatures,
		RandomState:     seed,
	}
}

// IsFitted reports whether Fit has completed.
func (f *RandomForestRegressor) IsFitted() bool {
	return f.State != nil && f.State.IsFitted()
}

// Fit trains NEstimators trees. Seeds and bootstrap indices are drawn
// sequentially from RandomState before the trees are grown in parallel, so
// the result does not depend on scheduling.
func (f *RandomForestRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, modelName+".Fit")

	rows, cols := X.Dims()
	yRows, yCols := y.Dims()
	if err := model.CheckFitInput(modelName+".Fit", rows, cols, yRows, yCols); err != nil {
		return err
	}
	if err := f.Params.Validate(); err != nil {
		return err
	}
	if f.State == nil {
		f.State = model.NewStateManager()
	}
	f.State.Reset()

	Xd := model.ToDense(X)
	yv := model.ColumnValues(y)

	rng := rand.New(rand.NewPCG(uint64(f.Params.RandomState), uint64(f.Params.NEstimators)))
	seeds := make([]int64, f.Params.NEstimators)
	samples := make([][]int, f.Params.NEstimators)
	for i := range seeds {
		seeds[i] = rng.Int64()
		samples[i] = make([]int, rows)
		for j := range samples[i] {
			if f.Params.Bootstrap {
				samples[i][j] = rng.IntN(rows)
			} else {
				samples[i][j] = j
			}
		}
	}

	trees := make([]*tree.DecisionTreeRegressor, f.Params.NEstimators)
	err = parallel.ParallelizeErr(len(trees), func(start, end int) error {
		for i := start; i < end; i++ {
			Xs, ys := subsample(Xd, yv, samples[i])
			t := &tree.DecisionTreeRegressor{Params: f.Params.treeParams(seeds[i]), State: model.NewStateManager()}
			if err := t.Fit(Xs, ys); err != nil {
				return errors.Wrapf(err, "tree %d", i)
			}
			trees[i] = t
		}
		return nil
	})
	if err != nil {
		return err
	}

	f.Trees = trees
	f.State.SetDimensions(cols, rows)
	f.State.SetFitted()

	log.GetLoggerWithName(modelName).Debug("forest fitted",
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		"forest.trees", len(trees),
	)
	return nil
}

func subsample(X *mat.Dense, y []float64, idx []int) (*mat.Dense, *mat.Dense) {
	_, cols := X.Dims()
	Xs := mat.NewDense(len(idx), cols, nil)
	ys := mat.NewDense(len(idx), 1, nil)
	for i, r := range idx {
		Xs.SetRow(i, X.RawRowView(r))
		ys.Set(i, 0, y[r])
	}
	return Xs, ys
}

// Predict returns the mean prediction of all trees as an n×1 matrix.
func (f *RandomForestRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if f.State == nil {
		return nil, errors.NewNotFittedError(modelName, "Predict")
	}
	rows, cols := X.Dims()
	if err := f.State.CheckPredictInput(modelName, cols); err != nil {
		return nil, err
	}
	out := mat.NewDense(rows, 1, nil)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, X)
		var s float64
		for _, t := range f.Trees {
			s += t.PredictRow(row)
		}
		out.Set(i, 0, s/float64(len(f.Trees)))
	}
	return out, nil
}

// FeatureImportances averages the normalized importances of all trees.
func (f *RandomForestRegressor) FeatureImportances() ([]float64, error) {
	if !f.IsFitted() {
		return nil, errors.NewNotFittedError(modelName, "FeatureImportances")
	}
	nFeatures, _ := f.State.GetDimensions()
	out := make([]float64, nFeatures)
	for _, t := range f.Trees {
		for j, v := range t.Importances {
			out[j] += v / float64(len(f.Trees))
		}
	}
	return out, nil
}

// GetParams returns the hyperparameters using scikit-learn names.
func (f *RandomForestRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":      f.Params.NEstimators,
		"max_depth":         f.Params.MaxDepth,
		"min_samples_split": f.Params.MinSamplesSplit,
		"min_samples_leaf":  f.Params.MinSamplesLeaf,
		"max_features":      f.Params.MaxFeatures,
		"bootstrap":         f.Params.Bootstrap,
		"random_state":      f.Params.RandomState,
	}
}

func (f *RandomForestRegressor) String() string {
	return fmt.Sprintf("%s(n_estimators=%d, max_depth=%d, bootstrap=%t)",
		modelName, f.Params.NEstimators, f.Params.MaxDepth, f.Params.Bootstrap)
}
