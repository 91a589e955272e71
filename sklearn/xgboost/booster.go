package xgboost

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// RegTreeNode is one node of a boosted tree. Samples with a feature value
// below SplitValue go to Left.
type RegTreeNode struct {
	Left       int
	Right      int
	SplitIndex int
	SplitValue float64
	LossChg    float64
	Weight     float64 // leaf weight, already scaled by eta
	SumHess    float64
}

func (n RegTreeNode) isLeaf() bool { return n.Left < 0 }

// RegTree is a single boosted regression tree.
type RegTree struct {
	Nodes []RegTreeNode
}

// Predict returns the tree contribution for one sample.
func (t *RegTree) Predict(x []float64) float64 {
	id := 0
	for !t.Nodes[id].isLeaf() {
		n := t.Nodes[id]
		if x[n.SplitIndex] < n.SplitValue {
			id = n.Left
		} else {
			id = n.Right
		}
	}
	return t.Nodes[id].Weight
}

// boostParams are the tree-growing knobs taken from XGBRegressor.
type boostParams struct {
	maxDepth       int
	eta            float64
	lambda         float64
	alpha          float64
	gamma          float64
	minChildWeight float64
	subsample      float64
	colsample      float64
}

// treeGrower builds one tree from gradient statistics.
type treeGrower struct {
	p     boostParams
	X     *mat.Dense
	grad  []float64
	hess  []float64
	feats []int
	nodes []RegTreeNode
}

const rtEps = 1e-6

func (g *treeGrower) thresholdL1(w float64) float64 {
	switch {
	case w > g.p.alpha:
		return w - g.p.alpha
	case w < -g.p.alpha:
		return w + g.p.alpha
	}
	return 0
}

func (g *treeGrower) calcGain(sg, sh float64) float64 {
	if sh < g.p.minChildWeight {
		return 0
	}
	t := g.thresholdL1(sg)
	return t * t / (sh + g.p.lambda)
}

func (g *treeGrower) calcWeight(sg, sh float64) float64 {
	if sh < g.p.minChildWeight {
		return 0
	}
	return -g.thresholdL1(sg) / (sh + g.p.lambda)
}

func (g *treeGrower) grow(rows []int, depth int) int {
	var sg, sh float64
	for _, r := range rows {
		sg += g.grad[r]
		sh += g.hess[r]
	}
	id := len(g.nodes)
	g.nodes = append(g.nodes, RegTreeNode{
		Left:    -1,
		Right:   -1,
		Weight:  g.calcWeight(sg, sh) * g.p.eta,
		SumHess: sh,
	})
	if depth >= g.p.maxDepth || len(rows) < 2 {
		return id
	}

	feature, value, lossChg, ok := g.bestSplit(rows, sg, sh)
	if !ok || lossChg-g.p.gamma <= 0 {
		return id
	}

	var left, right []int
	for _, r := range rows {
		if g.X.At(r, feature) < value {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	l := g.grow(left, depth+1)
	rt := g.grow(right, depth+1)

	n := &g.nodes[id]
	n.Left, n.Right = l, rt
	n.SplitIndex, n.SplitValue = feature, value
	n.LossChg = lossChg - g.p.gamma
	n.Weight = 0
	return id
}

// bestSplit enumerates all distinct values per feature. Ties keep the
// earlier feature and the smaller value.
func (g *treeGrower) bestSplit(rows []int, sg, sh float64) (int, float64, float64, bool) {
	rootGain := g.calcGain(sg, sh)
	bestChg := 0.0
	bestFeat, bestVal := -1, 0.0

	sorted := make([]int, len(rows))
	for _, f := range g.feats {
		copy(sorted, rows)
		sort.SliceStable(sorted, func(a, b int) bool {
			return g.X.At(sorted[a], f) < g.X.At(sorted[b], f)
		})
		var lg, lh float64
		for i := 0; i < len(sorted)-1; i++ {
			lg += g.grad[sorted[i]]
			lh += g.hess[sorted[i]]
			cur, next := g.X.At(sorted[i], f), g.X.At(sorted[i+1], f)
			if cur == next {
				continue
			}
			rg, rh := sg-lg, sh-lh
			if lh < g.p.minChildWeight || rh < g.p.minChildWeight {
				continue
			}
			chg := 0.5 * (g.calcGain(lg, lh) + g.calcGain(rg, rh) - rootGain)
			if chg > bestChg+rtEps {
				bestChg = chg
				bestFeat = f
				bestVal = cur + (next-cur)/2
				if bestVal <= cur {
					bestVal = next
				}
			}
		}
	}
	return bestFeat, bestVal, bestChg, bestFeat >= 0
}

// gbtree runs the boosting loop.
type gbtree struct {
	p         boostParams
	nRounds   int
	seed      uint64
	baseScore float64
	trees     []RegTree
	evalRMSE  []float64
}

func (b *gbtree) train(X *mat.Dense, y []float64) {
	rows, cols := X.Dims()
	b.baseScore = stat.Mean(y, nil)
	rng := rand.New(rand.NewPCG(b.seed, 0x786762))

	pred := make([]float64, rows)
	for i := range pred {
		pred[i] = b.baseScore
	}
	grad := make([]float64, rows)
	hess := make([]float64, rows)
	row := make([]float64, cols)

	for round := 0; round < b.nRounds; round++ {
		for i := range pred {
			grad[i] = pred[i] - y[i]
			hess[i] = 1
		}
		g := &treeGrower{
			p:     b.p,
			X:     X,
			grad:  grad,
			hess:  hess,
			feats: sampleIndices(rng, cols, b.p.colsample),
		}
		g.grow(sampleIndices(rng, rows, b.p.subsample), 0)
		tree := RegTree{Nodes: g.nodes}
		b.trees = append(b.trees, tree)

		var sse float64
		for i := range pred {
			mat.Row(row, i, X)
			pred[i] += tree.Predict(row)
			d := pred[i] - y[i]
			sse += d * d
		}
		b.evalRMSE = append(b.evalRMSE, math.Sqrt(sse/float64(rows)))
	}
}

// sampleIndices returns all of [0,n) when ratio >= 1, otherwise a sorted
// random subset of round(ratio*n) indices (at least one).
func sampleIndices(rng *rand.Rand, n int, ratio float64) []int {
	if ratio >= 1 {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}
	k := max(1, int(math.Round(ratio*float64(n))))
	out := rng.Perm(n)[:k]
	sort.Ints(out)
	return out
}
