package pipeline

import (
	"math"
	"strconv"
)

// Status classifies the outcome of one training run.
type Status string

const (
	StatusOK               Status = "OK"
	StatusTargetNotFound   Status = "TargetNotFound"
	StatusInsufficientData Status = "InsufficientData"
)

// Float is a float64 that encodes NaN and ±Inf as JSON null.
type Float float64

// MarshalJSON implements json.Marshaler.
func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
}

// CandidateMetrics is one row of the per-model comparison table.
type CandidateMetrics struct {
	Model string `json:"model"`
	R2    Float  `json:"r2"`
	RMSE  Float  `json:"rmse"`
	Err   string `json:"error,omitempty"`
}

// Result describes a training run for one target property.
type Result struct {
	Status Status `json:"status"`
	Target string `json:"target"`
	Column string `json:"column,omitempty"`

	Samples        int  `json:"samples"`
	TrainSamples   int  `json:"train_samples"`
	TestSamples    int  `json:"test_samples"`
	SelfEvaluation bool `json:"self_evaluation"`

	BestModel string `json:"best_model,omitempty"`
	BestR2    Float  `json:"best_r2"`
	// RMSE is the RMSE of the first candidate in evaluation order, not of
	// the best one.
	RMSE    Float              `json:"rmse"`
	Metrics []CandidateMetrics `json:"metrics,omitempty"`

	BarChart string `json:"bar_chart,omitempty"`
	Scatter  string `json:"scatter_chart,omitempty"`
	RunID    string `json:"run_id"`
}
