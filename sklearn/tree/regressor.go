package tree

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/matprop/core/model"
	"github.com/YuminosukeSato/matprop/pkg/errors"
	"github.com/YuminosukeSato/matprop/pkg/log"
)

const modelName = "DecisionTreeRegressor"

// leaf marks a terminal node in Node.Feature.
const leaf = -1

// Node is one node of a fitted tree, stored in a flat slice.
// Leaves have Feature == -1 and carry the prediction in Value.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     float64
	NSamples  int
	Impurity  float64
}

// Params are the hyperparameters of a DecisionTreeRegressor.
type Params struct {
	Criterion       string
	MaxDepth        int // 0 は深さ無制限
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int // 0 は全特徴量
	RandomState     int64
}

// Option configures a DecisionTreeRegressor.
type Option func(*Params)

// WithCriterion sets the split criterion. Only "squared_error" is supported.
func WithCriterion(c string) Option { return func(p *Params) { p.Criterion = c } }

// WithMaxDepth limits the tree depth. 0 means unlimited.
func WithMaxDepth(d int) Option { return func(p *Params) { p.MaxDepth = d } }

// WithMinSamplesSplit sets the minimum samples required to split a node.
func WithMinSamplesSplit(n int) Option { return func(p *Params) { p.MinSamplesSplit = n } }

// WithMinSamplesLeaf sets the minimum samples each child must keep.
func WithMinSamplesLeaf(n int) Option { return func(p *Params) { p.MinSamplesLeaf = n } }

// WithMaxFeatures sets how many features are drawn at each split. 0 means all.
func WithMaxFeatures(n int) Option { return func(p *Params) { p.MaxFeatures = n } }

// WithRandomState seeds the feature sampling.
func WithRandomState(seed int64) Option { return func(p *Params) { p.RandomState = seed } }

// DecisionTreeRegressor is a CART regression tree.
type DecisionTreeRegressor struct {
	Params      Params
	Nodes       []Node
	Importances []float64
	State       *model.StateManager
}

// NewDecisionTreeRegressor creates a tree with sklearn's defaults:
// squared error, unlimited depth, min_samples_split 2, min_samples_leaf 1.
func NewDecisionTreeRegressor(opts ...Option) *DecisionTreeRegressor {
	p := Params{
		Criterion:       "squared_error",
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
	}
	for _, o := range opts {
		o(&p)
	}
	return &DecisionTreeRegressor{Params: p, State: model.NewStateManager()}
}

// Validate checks the hyperparameters.
func (p Params) Validate() error {
	switch {
	case p.Criterion != "squared_error":
		return errors.NewValidationError("criterion", "only squared_error is supported", p.Criterion)
	case p.MaxDepth < 0:
		return errors.NewValidationError("max_depth", "must be >= 0", p.MaxDepth)
	case p.MinSamplesSplit < 2:
		return errors.NewValidationError("min_samples_split", "must be >= 2", p.MinSamplesSplit)
	case p.MinSamplesLeaf < 1:
		return errors.NewValidationError("min_samples_leaf", "must be >= 1", p.MinSamplesLeaf)
	case p.MaxFeatures < 0:
		return errors.NewValidationError("max_features", "must be >= 0", p.MaxFeatures)
	}
	return nil
}

// IsFitted reports whether Fit has completed.
func (t *DecisionTreeRegressor) IsFitted() bool {
	return t.State != nil && t.State.IsFitted()
}

// Fit grows the tree on X (n×d) and y (n×1).
func (t *DecisionTreeRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, modelName+".Fit")

	rows, cols := X.Dims()
	yRows, yCols := y.Dims()
	if err := model.CheckFitInput(modelName+".Fit", rows, cols, yRows, yCols); err != nil {
		return err
	}
	if err := t.Params.Validate(); err != nil {
		return err
	}
	if t.State == nil {
		t.State = model.NewStateManager()
	}
	t.State.Reset()

	b := &builder{
		params: t.Params,
		X:      model.ToDense(X),
		y:      model.ColumnValues(y),
		nFeat:  cols,
		rng:    rand.New(rand.NewPCG(uint64(t.Params.RandomState), 0x9e3779b97f4a7c15)),
		imp:    make([]float64, cols),
	}
	idx := make([]int, rows)
	for i := range idx {
		idx[i] = i
	}
	b.grow(idx, 0)

	t.Nodes = b.nodes
	t.Importances = normalize(b.imp)
	t.State.SetDimensions(cols, rows)
	t.State.SetFitted()

	log.GetLoggerWithName(modelName).Debug("tree fitted",
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		"tree.nodes", len(t.Nodes),
	)
	return nil
}

// Predict returns an n×1 matrix of predictions.
func (t *DecisionTreeRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if t.State == nil {
		return nil, errors.NewNotFittedError(modelName, "Predict")
	}
	rows, cols := X.Dims()
	if err := t.State.CheckPredictInput(modelName, cols); err != nil {
		return nil, err
	}
	out := mat.NewDense(rows, 1, nil)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, X)
		out.Set(i, 0, t.PredictRow(row))
	}
	return out, nil
}

// PredictRow walks the tree for a single sample. The tree must be fitted.
func (t *DecisionTreeRegressor) PredictRow(x []float64) float64 {
	n := 0
	for t.Nodes[n].Feature != leaf {
		nd := t.Nodes[n]
		if x[nd.Feature] <= nd.Threshold {
			n = nd.Left
		} else {
			n = nd.Right
		}
	}
	return t.Nodes[n].Value
}

// Depth returns the depth of the fitted tree (a single leaf has depth 0).
func (t *DecisionTreeRegressor) Depth() int {
	if len(t.Nodes) == 0 {
		return 0
	}
	var depth func(n int) int
	depth = func(n int) int {
		nd := t.Nodes[n]
		if nd.Feature == leaf {
			return 0
		}
		return 1 + max(depth(nd.Left), depth(nd.Right))
	}
	return depth(0)
}

// NumLeaves returns the number of leaves of the fitted tree.
func (t *DecisionTreeRegressor) NumLeaves() int {
	n := 0
	for _, nd := range t.Nodes {
		if nd.Feature == leaf {
			n++
		}
	}
	return n
}

// FeatureImportances returns the normalized impurity decrease per feature.
func (t *DecisionTreeRegressor) FeatureImportances() ([]float64, error) {
	if !t.IsFitted() {
		return nil, errors.NewNotFittedError(modelName, "FeatureImportances")
	}
	out := make([]float64, len(t.Importances))
	copy(out, t.Importances)
	return out, nil
}

// GetParams returns the hyperparameters using sklearn names.
func (t *DecisionTreeRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"criterion":         t.Params.Criterion,
		"max_depth":         t.Params.MaxDepth,
		"min_samples_split": t.Params.MinSamplesSplit,
		"min_samples_leaf":  t.Params.MinSamplesLeaf,
		"max_features":      t.Params.MaxFeatures,
		"random_state":      t.Params.RandomState,
	}
}

// SetParams updates hyperparameters by sklearn name.
func (t *DecisionTreeRegressor) SetParams(params map[string]interface{}) error {
	p := t.Params
	for k, v := range params {
		switch k {
		case "criterion":
			s, ok := v.(string)
			if !ok {
				return errors.NewValidationError(k, "must be a string", v)
			}
			p.Criterion = s
		case "random_state":
			switch n := v.(type) {
			case int:
				p.RandomState = int64(n)
			case int64:
				p.RandomState = n
			default:
				return errors.NewValidationError(k, "must be an integer", v)
			}
		case "max_depth", "min_samples_split", "min_samples_leaf", "max_features":
			n, ok := v.(int)
			if !ok {
				return errors.NewValidationError(k, "must be an int", v)
			}
			switch k {
			case "max_depth":
				p.MaxDepth = n
			case "min_samples_split":
				p.MinSamplesSplit = n
			case "min_samples_leaf":
				p.MinSamplesLeaf = n
			default:
				p.MaxFeatures = n
			}
		default:
			return errors.NewValidationError(k, "unknown parameter", v)
		}
	}
	if err := p.Validate(); err != nil {
		return err
	}
	t.Params = p
	return nil
}

func (t *DecisionTreeRegressor) String() string {
	if !t.IsFitted() {
		return fmt.Sprintf("%s(max_depth=%d)", modelName, t.Params.MaxDepth)
	}
	return fmt.Sprintf("%s(max_depth=%d, nodes=%d, leaves=%d)", modelName, t.Params.MaxDepth, len(t.Nodes), t.NumLeaves())
}

type builder struct {
	params Params
	X      *mat.Dense
	y      []float64
	nFeat  int
	rng    *rand.Rand
	nodes  []Node
	imp    []float64
}

type split struct {
	feature   int
	threshold float64
	pos       int // idx[:pos] goes left after sorting by feature
	gain      float64
}

func (b *builder) grow(idx []int, depth int) int {
	vals := make([]float64, len(idx))
	for i, r := range idx {
		vals[i] = b.y[r]
	}
	mean, variance := stat.PopMeanVariance(vals, nil)

	id := len(b.nodes)
	b.nodes = append(b.nodes, Node{
		Feature:  leaf,
		Value:    mean,
		NSamples: len(idx),
		Impurity: variance,
	})

	if len(idx) < b.params.MinSamplesSplit ||
		len(idx) < 2*b.params.MinSamplesLeaf ||
		(b.params.MaxDepth > 0 && depth >= b.params.MaxDepth) ||
		variance <= 1e-12 {
		return id
	}

	best, ok := b.bestSplit(idx)
	if !ok {
		return id
	}

	sortByFeature(b.X, idx, best.feature)
	left := append([]int(nil), idx[:best.pos]...)
	right := append([]int(nil), idx[best.pos:]...)

	b.imp[best.feature] += best.gain
	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)

	nd := &b.nodes[id]
	nd.Feature = best.feature
	nd.Threshold = best.threshold
	nd.Left = l
	nd.Right = r
	return id
}

// bestSplit scans candidate features for the split maximizing the weighted
// variance reduction. Ties keep the earlier candidate.
func (b *builder) bestSplit(idx []int) (split, bool) {
	n := len(idx)
	features := b.candidateFeatures()
	var total float64
	for _, r := range idx {
		total += b.y[r]
	}
	parentProxy := total * total / float64(n)

	best := split{gain: 0}
	found := false
	sorted := make([]int, n)
	for _, f := range features {
		copy(sorted, idx)
		sortByFeature(b.X, sorted, f)

		var leftSum float64
		for i := 0; i < n-1; i++ {
			leftSum += b.y[sorted[i]]
			nl, nr := i+1, n-i-1
			if nl < b.params.MinSamplesLeaf || nr < b.params.MinSamplesLeaf {
				continue
			}
			xi := b.X.At(sorted[i], f)
			xn := b.X.At(sorted[i+1], f)
			if xi == xn {
				continue
			}
			rightSum := total - leftSum
			proxy := leftSum*leftSum/float64(nl) + rightSum*rightSum/float64(nr)
			gain := proxy - parentProxy
			if gain > best.gain+1e-12 {
				thr := xi + (xn-xi)/2
				if thr == xn || math.IsInf(thr, 0) {
					thr = xi
				}
				best = split{feature: f, threshold: thr, pos: nl, gain: gain}
				found = true
			}
		}
	}
	return best, found
}

func (b *builder) candidateFeatures() []int {
	k := b.params.MaxFeatures
	if k == 0 || k >= b.nFeat {
		out := make([]int, b.nFeat)
		for i := range out {
			out[i] = i
		}
		return out
	}
	perm := b.rng.Perm(b.nFeat)[:k]
	sort.Ints(perm)
	return perm
}

func sortByFeature(X *mat.Dense, idx []int, f int) {
	sort.SliceStable(idx, func(a, c int) bool {
		return X.At(idx[a], f) < X.At(idx[c], f)
	})
}

func normalize(v []float64) []float64 {
	var s float64
	for _, x := range v {
		s += x
	}
	out := make([]float64, len(v))
	if s == 0 {
		return out
	}
	for i, x := range v {
		out[i] = x / s
	}
	return out
}
