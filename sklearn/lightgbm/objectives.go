package lightgbm

import (
	"math"
	"sort"

	"github.com/YuminosukeSato/matprop/pkg/errors"
)

// ObjectiveFunction defines the loss being minimized by boosting.
type ObjectiveFunction interface {
	// CalculateGradient calculates the gradient for a single sample
	CalculateGradient(prediction, target float64) float64

	// CalculateHessian calculates the hessian for a single sample
	CalculateHessian(prediction, target float64) float64

	// CalculateLoss calculates the loss for a single sample
	CalculateLoss(prediction, target float64) float64

	// GetInitScore returns the optimal constant prediction
	GetInitScore(targets []float64) float64

	// Name returns the LightGBM name of the objective
	Name() string
}

// L2Objective implements squared error.
type L2Objective struct{}

func NewL2Objective() *L2Objective { return &L2Objective{} }

func (o *L2Objective) CalculateGradient(prediction, target float64) float64 {
	return prediction - target
}

func (o *L2Objective) CalculateHessian(_, _ float64) float64 { return 1.0 }

func (o *L2Objective) CalculateLoss(prediction, target float64) float64 {
	diff := prediction - target
	return 0.5 * diff * diff
}

func (o *L2Objective) GetInitScore(targets []float64) float64 {
	if len(targets) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, t := range targets {
		sum += t
	}
	return sum / float64(len(targets))
}

func (o *L2Objective) Name() string { return "regression" }

// L1Objective implements absolute error. The hessian is fixed at 1 as in LightGBM.
type L1Objective struct{}

func NewL1Objective() *L1Objective { return &L1Objective{} }

func (o *L1Objective) CalculateGradient(prediction, target float64) float64 {
	diff := prediction - target
	switch {
	case diff > 0:
		return 1.0
	case diff < 0:
		return -1.0
	}
	return 0.0
}

func (o *L1Objective) CalculateHessian(_, _ float64) float64 { return 1.0 }

func (o *L1Objective) CalculateLoss(prediction, target float64) float64 {
	return math.Abs(prediction - target)
}

func (o *L1Objective) GetInitScore(targets []float64) float64 {
	return median(targets)
}

func (o *L1Objective) Name() string { return "regression_l1" }

// HuberObjective is quadratic within Delta of the target and linear outside.
type HuberObjective struct {
	Delta float64
}

func NewHuberObjective(delta float64) *HuberObjective {
	if delta <= 0 {
		delta = 1.0
	}
	return &HuberObjective{Delta: delta}
}

func (o *HuberObjective) CalculateGradient(prediction, target float64) float64 {
	diff := prediction - target
	if math.Abs(diff) <= o.Delta {
		return diff
	}
	if diff > 0 {
		return o.Delta
	}
	return -o.Delta
}

func (o *HuberObjective) CalculateHessian(prediction, target float64) float64 {
	if math.Abs(prediction-target) <= o.Delta {
		return 1.0
	}
	return 1e-7
}

func (o *HuberObjective) CalculateLoss(prediction, target float64) float64 {
	absDiff := math.Abs(prediction - target)
	if absDiff <= o.Delta {
		return 0.5 * absDiff * absDiff
	}
	return o.Delta * (absDiff - 0.5*o.Delta)
}

func (o *HuberObjective) GetInitScore(targets []float64) float64 {
	return NewL2Objective().GetInitScore(targets)
}

func (o *HuberObjective) Name() string { return "huber" }

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// CreateObjectiveFunction resolves a LightGBM objective name.
func CreateObjectiveFunction(objective string, params *TrainingParams) (ObjectiveFunction, error) {
	switch objective {
	case "", "regression", "regression_l2", "l2", "mean_squared_error", "mse":
		return NewL2Objective(), nil
	case "regression_l1", "l1", "mean_absolute_error", "mae":
		return NewL1Objective(), nil
	case "huber":
		delta := 1.0
		if params != nil && params.HuberDelta > 0 {
			delta = params.HuberDelta
		}
		return NewHuberObjective(delta), nil
	default:
		return nil, errors.NewValidationError("objective", "unknown objective", objective)
	}
}
