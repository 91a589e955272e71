package lightgbm

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/matprop/pkg/errors"
	"github.com/YuminosukeSato/matprop/pkg/log"
)

// TrainingParams contains all training hyperparameters
type TrainingParams struct {
	// Basic parameters
	NumIterations int     `json:"num_iterations"`
	LearningRate  float64 `json:"learning_rate"`
	NumLeaves     int     `json:"num_leaves"`
	MaxDepth      int     `json:"max_depth"`
	MinDataInLeaf int     `json:"min_data_in_leaf"`

	// Regularization
	Lambda         float64 `json:"lambda_l2"`
	Alpha          float64 `json:"lambda_l1"`
	MinGainToSplit float64 `json:"min_gain_to_split"`
	MinSumHessian  float64 `json:"min_sum_hessian_in_leaf"`

	// Sampling
	BaggingFraction float64 `json:"bagging_fraction"`
	BaggingFreq     int     `json:"bagging_freq"`
	FeatureFraction float64 `json:"feature_fraction"`

	// Histogram parameters
	MaxBin int `json:"max_bin"`

	// Objective
	Objective  string  `json:"objective"`
	HuberDelta float64 `json:"huber_delta"`

	// Other
	Seed      int `json:"seed"`
	Verbosity int `json:"verbosity"`
}

// withDefaults fills zero values with LightGBM's defaults.
func (p TrainingParams) withDefaults() TrainingParams {
	if p.NumIterations == 0 {
		p.NumIterations = 100
	}
	if p.LearningRate == 0 {
		p.LearningRate = 0.1
	}
	if p.NumLeaves == 0 {
		p.NumLeaves = 31
	}
	if p.MaxBin == 0 {
		p.MaxBin = 255
	}
	if p.MinDataInLeaf == 0 {
		p.MinDataInLeaf = 20
	}
	if p.BaggingFraction == 0 {
		p.BaggingFraction = 1.0
	}
	if p.FeatureFraction == 0 {
		p.FeatureFraction = 1.0
	}
	return p
}

// Validate checks the parameters after defaults are applied.
func (p TrainingParams) Validate() error {
	switch {
	case p.NumIterations < 1:
		return errors.NewValidationError("num_iterations", "must be >= 1", p.NumIterations)
	case p.LearningRate <= 0:
		return errors.NewValidationError("learning_rate", "must be > 0", p.LearningRate)
	case p.NumLeaves < 2:
		return errors.NewValidationError("num_leaves", "must be >= 2", p.NumLeaves)
	case p.MinDataInLeaf < 1:
		return errors.NewValidationError("min_data_in_leaf", "must be >= 1", p.MinDataInLeaf)
	case p.MaxBin < 2:
		return errors.NewValidationError("max_bin", "must be >= 2", p.MaxBin)
	case p.BaggingFraction <= 0 || p.BaggingFraction > 1:
		return errors.NewValidationError("bagging_fraction", "must be in (0, 1]", p.BaggingFraction)
	case p.FeatureFraction <= 0 || p.FeatureFraction > 1:
		return errors.NewValidationError("feature_fraction", "must be in (0, 1]", p.FeatureFraction)
	case p.Lambda < 0 || p.Alpha < 0:
		return errors.NewValidationError("lambda", "regularization must be >= 0", p.Lambda)
	}
	return nil
}

// binMapper buckets one feature. Bin b holds values <= Bounds[b]; the last
// bin holds everything above the final bound.
type binMapper struct {
	Bounds []float64
}

func newBinMapper(values []float64, maxBin int) binMapper {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	distinct := sorted[:0:0]
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			distinct = append(distinct, v)
		}
	}
	if len(distinct) <= 1 {
		return binMapper{}
	}
	if len(distinct) <= maxBin {
		bounds := make([]float64, len(distinct)-1)
		for i := range bounds {
			bounds[i] = distinct[i] + (distinct[i+1]-distinct[i])/2
		}
		return binMapper{Bounds: bounds}
	}
	// equal-frequency over samples, deduplicated
	bounds := make([]float64, 0, maxBin-1)
	n := len(sorted)
	for b := 1; b < maxBin; b++ {
		q := b * n / maxBin
		if q <= 0 || q >= n {
			continue
		}
		lo, hi := sorted[q-1], sorted[q]
		if lo == hi {
			continue
		}
		thr := lo + (hi-lo)/2
		if len(bounds) == 0 || thr > bounds[len(bounds)-1] {
			bounds = append(bounds, thr)
		}
	}
	return binMapper{Bounds: bounds}
}

func (m binMapper) numBins() int { return len(m.Bounds) + 1 }

func (m binMapper) bin(v float64) int { return sort.SearchFloat64s(m.Bounds, v) }

// Trainer implements leaf-wise histogram gradient boosting.
type Trainer struct {
	params TrainingParams

	X       *mat.Dense
	y       []float64
	bins    [][]int // [feature][sample]
	mappers []binMapper

	gradients []float64
	hessians  []float64
	scores    []float64

	objective ObjectiveFunction
	initScore float64
	trees     []Tree
	history   []float64
	bag       []int
	rng       *rand.Rand
}

// NewTrainer creates a new trainer. Zero-valued parameters take LightGBM defaults.
func NewTrainer(params TrainingParams) *Trainer {
	return &Trainer{params: params.withDefaults()}
}

// Fit trains the ensemble on X (n×d) and y (n×1).
func (t *Trainer) Fit(X, y mat.Matrix) error {
	if err := t.params.Validate(); err != nil {
		return err
	}
	obj, err := CreateObjectiveFunction(t.params.Objective, &t.params)
	if err != nil {
		return err
	}
	t.objective = obj

	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return errors.NewValueError("Trainer.Fit", "empty training data")
	}
	t.X = denseOf(X)
	t.y = make([]float64, rows)
	for i := range t.y {
		t.y[i] = y.At(i, 0)
	}
	t.rng = rand.New(rand.NewPCG(uint64(t.params.Seed), 0x6c67626d))

	t.buildBins()
	t.initScore = t.objective.GetInitScore(t.y)
	t.scores = make([]float64, rows)
	for i := range t.scores {
		t.scores[i] = t.initScore
	}
	t.gradients = make([]float64, rows)
	t.hessians = make([]float64, rows)
	t.trees = t.trees[:0]
	t.history = t.history[:0]
	t.bag = nil

	logger := log.GetLoggerWithName("lightgbm.trainer")
	row := make([]float64, cols)
	for iter := 0; iter < t.params.NumIterations; iter++ {
		t.calculateGradients()
		tree := t.buildTree(iter)
		t.trees = append(t.trees, tree)

		for i := 0; i < rows; i++ {
			mat.Row(row, i, t.X)
			t.scores[i] += tree.Predict(row)
		}
		loss := t.calculateLoss()
		t.history = append(t.history, loss)

		if t.params.Verbosity > 0 && iter%10 == 0 {
			logger.Debug("Training progress", "iteration", iter, "loss", loss)
		}
	}
	return nil
}

func denseOf(X mat.Matrix) *mat.Dense {
	if d, ok := X.(*mat.Dense); ok {
		return d
	}
	return mat.DenseCopyOf(X)
}

func (t *Trainer) buildBins() {
	rows, cols := t.X.Dims()
	t.mappers = make([]binMapper, cols)
	t.bins = make([][]int, cols)
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, t.X)
		m := newBinMapper(col, t.params.MaxBin)
		t.mappers[j] = m
		b := make([]int, rows)
		for i, v := range col {
			b[i] = m.bin(v)
		}
		t.bins[j] = b
	}
}

func (t *Trainer) calculateGradients() {
	for i, target := range t.y {
		t.gradients[i] = t.objective.CalculateGradient(t.scores[i], target)
		t.hessians[i] = t.objective.CalculateHessian(t.scores[i], target)
	}
}

func (t *Trainer) calculateLoss() float64 {
	var loss float64
	for i, target := range t.y {
		loss += t.objective.CalculateLoss(t.scores[i], target)
	}
	return loss / float64(len(t.y))
}

// SplitInfo describes the best split found for a leaf.
type SplitInfo struct {
	Feature   int
	Bin       int
	Threshold float64
	Gain      float64
	Valid     bool
}

type leafState struct {
	node    int
	indices []int
	depth   int
	sumGrad float64
	sumHess float64
	split   SplitInfo
}

// buildTree grows one tree leaf-wise.
func (t *Trainer) buildTree(iter int) Tree {
	features := t.sampleFeatures()
	indices := t.sampleRows(iter)

	tree := Tree{TreeIndex: iter, ShrinkageRate: t.params.LearningRate}
	root := t.newLeaf(&tree, indices, 0, features)
	leaves := []*leafState{root}

	for len(leaves) < t.params.NumLeaves {
		best := -1
		for i, l := range leaves {
			if l.split.Valid && (best < 0 || l.split.Gain > leaves[best].split.Gain) {
				best = i
			}
		}
		if best < 0 {
			break
		}
		l := leaves[best]
		left, right := t.partition(l.indices, l.split)

		lNode := t.newLeaf(&tree, left, l.depth+1, features)
		rNode := t.newLeaf(&tree, right, l.depth+1, features)

		n := &tree.Nodes[l.node]
		n.SplitFeature = l.split.Feature
		n.Threshold = l.split.Threshold
		n.Gain = l.split.Gain
		n.LeftChild = lNode.node
		n.RightChild = rNode.node
		n.LeafValue = 0

		leaves[best] = lNode
		leaves = append(leaves, rNode)
	}
	tree.NumLeaves = len(leaves)
	return tree
}

func (t *Trainer) newLeaf(tree *Tree, indices []int, depth int, features []int) *leafState {
	l := &leafState{node: len(tree.Nodes), indices: indices, depth: depth}
	for _, i := range indices {
		l.sumGrad += t.gradients[i]
		l.sumHess += t.hessians[i]
	}
	tree.Nodes = append(tree.Nodes, Node{
		LeftChild:  -1,
		RightChild: -1,
		LeafValue:  t.leafOutput(l.sumGrad, l.sumHess) * t.params.LearningRate,
		Count:      len(indices),
	})
	if t.params.MaxDepth <= 0 || depth < t.params.MaxDepth {
		l.split = t.findBestSplit(l, features)
	}
	return l
}

// findBestSplit scans the gradient histogram of every candidate feature.
// Ties keep the lower feature index and the lower bin.
func (t *Trainer) findBestSplit(l *leafState, features []int) SplitInfo {
	best := SplitInfo{Gain: t.params.MinGainToSplit}
	n := len(l.indices)
	if n < 2*t.params.MinDataInLeaf {
		return best
	}
	parent := t.leafScore(l.sumGrad, l.sumHess)

	for _, f := range features {
		m := t.mappers[f]
		nb := m.numBins()
		if nb < 2 {
			continue
		}
		grad := make([]float64, nb)
		hess := make([]float64, nb)
		count := make([]int, nb)
		col := t.bins[f]
		for _, i := range l.indices {
			b := col[i]
			grad[b] += t.gradients[i]
			hess[b] += t.hessians[i]
			count[b]++
		}

		var gl, hl float64
		var cl int
		for b := 0; b < nb-1; b++ {
			gl += grad[b]
			hl += hess[b]
			cl += count[b]
			cr := n - cl
			if cl < t.params.MinDataInLeaf {
				continue
			}
			if cr < t.params.MinDataInLeaf {
				break
			}
			gr, hr := l.sumGrad-gl, l.sumHess-hl
			if hl < t.params.MinSumHessian || hr < t.params.MinSumHessian {
				continue
			}
			gain := t.leafScore(gl, hl) + t.leafScore(gr, hr) - parent
			if gain > best.Gain {
				best = SplitInfo{Feature: f, Bin: b, Threshold: m.Bounds[b], Gain: gain, Valid: true}
			}
		}
	}
	return best
}

func (t *Trainer) partition(indices []int, s SplitInfo) ([]int, []int) {
	var left, right []int
	col := t.bins[s.Feature]
	for _, i := range indices {
		if col[i] <= s.Bin {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return left, right
}

// thresholdL1 applies the L1 soft threshold to a gradient sum.
func (t *Trainer) thresholdL1(g float64) float64 {
	a := t.params.Alpha
	if a == 0 {
		return g
	}
	reg := math.Max(0, math.Abs(g)-a)
	if g < 0 {
		return -reg
	}
	return reg
}

func (t *Trainer) leafOutput(g, h float64) float64 {
	return -t.thresholdL1(g) / (h + t.params.Lambda + 1e-15)
}

func (t *Trainer) leafScore(g, h float64) float64 {
	sg := t.thresholdL1(g)
	return sg * sg / (h + t.params.Lambda + 1e-15)
}

func (t *Trainer) sampleFeatures() []int {
	cols := len(t.mappers)
	all := make([]int, cols)
	for i := range all {
		all[i] = i
	}
	if t.params.FeatureFraction >= 1 {
		return all
	}
	k := max(1, int(math.Round(t.params.FeatureFraction*float64(cols))))
	perm := t.rng.Perm(cols)[:k]
	sort.Ints(perm)
	return perm
}

func (t *Trainer) sampleRows(iter int) []int {
	rows := len(t.y)
	all := make([]int, rows)
	for i := range all {
		all[i] = i
	}
	if t.params.BaggingFraction >= 1 || t.params.BaggingFreq <= 0 {
		return all
	}
	if iter%t.params.BaggingFreq == 0 || t.bag == nil {
		k := max(1, int(t.params.BaggingFraction*float64(rows)))
		t.bag = t.rng.Perm(rows)[:k]
		sort.Ints(t.bag)
	}
	return t.bag
}

// History returns the mean training loss after each iteration.
func (t *Trainer) History() []float64 {
	return append([]float64(nil), t.history...)
}

// GetModel returns the trained model
func (t *Trainer) GetModel() *Model {
	_, cols := t.X.Dims()
	return &Model{
		Objective:    t.objective.Name(),
		NumIteration: len(t.trees),
		LearningRate: t.params.LearningRate,
		NumLeaves:    t.params.NumLeaves,
		MaxDepth:     t.params.MaxDepth,
		NumFeatures:  cols,
		InitScore:    t.initScore,
		Trees:        append([]Tree(nil), t.trees...),
	}
}
