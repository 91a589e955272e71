package lifecycle

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/matprop/artifact"
	"github.com/YuminosukeSato/matprop/candidate"
	"github.com/YuminosukeSato/matprop/chem"
	coremodel "github.com/YuminosukeSato/matprop/core/model"
	"github.com/YuminosukeSato/matprop/preprocessing"
)

// Model is a loaded, ready-to-serve regressor. It is read-only and safe for
// concurrent use.
type Model struct {
	Meta   *artifact.Artifact
	Family candidate.Family
	reg    coremodel.Regressor
}

// Predict estimates the target property of one composition.
func (m *Model) Predict(c chem.Composition) (float64, error) {
	out, err := m.PredictMatrix(preprocessing.CompositionVector(c))
	if err != nil {
		return 0, err
	}
	return out[0], nil
}

// PredictMatrix predicts every row of a feature matrix.
func (m *Model) PredictMatrix(X mat.Matrix) ([]float64, error) {
	pred, err := m.reg.Predict(X)
	if err != nil {
		return nil, err
	}
	return coremodel.ColumnValues(pred), nil
}
