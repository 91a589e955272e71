package lightgbm

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/matprop/pkg/errors"
)

// Node is a single node of a tree. Leaves have LeftChild == RightChild == -1.
type Node struct {
	LeftChild    int
	RightChild   int
	SplitFeature int
	Threshold    float64 // samples with value <= Threshold go left
	Gain         float64
	LeafValue    float64 // already multiplied by the shrinkage rate
	Count        int
}

// IsLeaf returns true if the node is a leaf node
func (n *Node) IsLeaf() bool {
	return n.LeftChild == -1 && n.RightChild == -1
}

// Tree is one boosting round.
type Tree struct {
	TreeIndex     int
	NumLeaves     int
	ShrinkageRate float64
	Nodes         []Node
}

// Predict returns the contribution of this tree for one sample.
func (t *Tree) Predict(features []float64) float64 {
	id := 0
	for {
		node := &t.Nodes[id]
		if node.IsLeaf() {
			return node.LeafValue
		}
		if features[node.SplitFeature] <= node.Threshold {
			id = node.LeftChild
		} else {
			id = node.RightChild
		}
	}
}

// Model is a trained boosting ensemble.
type Model struct {
	Objective    string
	NumIteration int
	LearningRate float64
	NumLeaves    int
	MaxDepth     int
	NumFeatures  int
	InitScore    float64
	Trees        []Tree
}

// PredictRow returns the raw score for one sample.
func (m *Model) PredictRow(features []float64) float64 {
	pred := m.InitScore
	for i := range m.Trees {
		pred += m.Trees[i].Predict(features)
	}
	return pred
}

// Predict makes predictions for a batch of samples
func (m *Model) Predict(X mat.Matrix) (mat.Matrix, error) {
	rows, cols := X.Dims()
	if cols != m.NumFeatures {
		return nil, errors.NewDimensionError("Model.Predict", m.NumFeatures, cols, 1)
	}
	out := mat.NewDense(rows, 1, nil)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, X)
		out.Set(i, 0, m.PredictRow(row))
	}
	return out, nil
}

// GetFeatureImportance returns per-feature importance. importanceType is
// "split" (number of splits using the feature) or "gain" (total gain).
func (m *Model) GetFeatureImportance(importanceType string) []float64 {
	out := make([]float64, m.NumFeatures)
	for _, t := range m.Trees {
		for _, n := range t.Nodes {
			if n.IsLeaf() {
				continue
			}
			if importanceType == "gain" {
				out[n.SplitFeature] += n.Gain
			} else {
				out[n.SplitFeature]++
			}
		}
	}
	return out
}
