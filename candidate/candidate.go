// Package candidate defines the closed set of regressor families that compete
// in a training run, the hyperparameters callers may override, and the
// payload encoding used when a fitted family is stored as an artifact.
package candidate

import (
	"bytes"
	"fmt"

	"github.com/YuminosukeSato/matprop/core/model"
	"github.com/YuminosukeSato/matprop/pkg/errors"
	"github.com/YuminosukeSato/matprop/sklearn/ensemble"
	"github.com/YuminosukeSato/matprop/sklearn/lightgbm"
	"github.com/YuminosukeSato/matprop/sklearn/xgboost"
)

// Family identifies a regressor family.
type Family int

const (
	// XGBoost is depth-wise exact-greedy gradient boosting. Caller
	// hyperparameters apply to this family only.
	XGBoost Family = iota
	// LightGBM is leaf-wise histogram gradient boosting with library defaults.
	LightGBM
	// RandomForest is a bootstrap-aggregated tree ensemble with library defaults.
	RandomForest
)

var familyNames = [...]string{"XGBoost", "LightGBM", "RandomForest"}

// Families returns every family in evaluation order.
func Families() []Family {
	return []Family{XGBoost, LightGBM, RandomForest}
}

func (f Family) String() string {
	if f < 0 || int(f) >= len(familyNames) {
		return fmt.Sprintf("Family(%d)", int(f))
	}
	return familyNames[f]
}

// ParseFamily resolves a family by its display name.
func ParseFamily(name string) (Family, error) {
	for i, n := range familyNames {
		if n == name {
			return Family(i), nil
		}
	}
	return 0, errors.NewValueError("ParseFamily", fmt.Sprintf("unknown family %q", name))
}

// MarshalText encodes the family as its name.
func (f Family) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText decodes a family name.
func (f *Family) UnmarshalText(b []byte) error {
	v, err := ParseFamily(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// Hyperparameters are the caller-tunable settings of the XGBoost family.
type Hyperparameters struct {
	NEstimators  int     `json:"n_estimators" yaml:"n_estimators"`
	MaxDepth     int     `json:"max_depth" yaml:"max_depth"`
	LearningRate float64 `json:"learning_rate" yaml:"learning_rate"`
}

// DefaultHyperparameters are the defaults of the training upload surface.
func DefaultHyperparameters() Hyperparameters {
	return Hyperparameters{NEstimators: 100, MaxDepth: 5, LearningRate: 0.1}
}

// Validate requires every field to be positive.
func (h Hyperparameters) Validate() error {
	switch {
	case h.NEstimators <= 0:
		return errors.NewValidationError("n_estimators", "must be positive", h.NEstimators)
	case h.MaxDepth <= 0:
		return errors.NewValidationError("max_depth", "must be positive", h.MaxDepth)
	case !(h.LearningRate > 0):
		return errors.NewValidationError("learning_rate", "must be positive", h.LearningRate)
	}
	return nil
}

// New builds an unfitted regressor of family f. hp may be nil; it is applied
// to XGBoost only and must be valid when given.
func New(f Family, seed int64, hp *Hyperparameters) (model.Regressor, error) {
	if hp != nil {
		if err := hp.Validate(); err != nil {
			return nil, err
		}
	}
	switch f {
	case XGBoost:
		reg := xgboost.NewXGBRegressor().WithRandomState(seed)
		if hp != nil {
			reg.WithNEstimators(hp.NEstimators).
				WithMaxDepth(hp.MaxDepth).
				WithLearningRate(hp.LearningRate)
		}
		return reg, nil
	case LightGBM:
		return lightgbm.NewLGBMRegressor().WithRandomState(int(seed)), nil
	case RandomForest:
		return ensemble.NewRandomForestRegressor(ensemble.WithRandomState(seed)), nil
	}
	return nil, errors.NewValueError("candidate.New", fmt.Sprintf("unknown family %d", int(f)))
}

// Params returns the effective hyperparameters of reg under the library's
// own names, or nil when reg does not report them.
func Params(reg model.Regressor) map[string]interface{} {
	if p, ok := reg.(interface{ GetParams() map[string]interface{} }); ok {
		return p.GetParams()
	}
	return nil
}

// Encode serializes a fitted regressor of family f with gob.
func Encode(f Family, reg model.Regressor) ([]byte, error) {
	if !reg.IsFitted() {
		return nil, errors.NewNotFittedError(f.String(), "Encode")
	}
	var buf bytes.Buffer
	if err := model.SaveModelToWriter(reg, &buf); err != nil {
		return nil, errors.Wrapf(err, "encode %s", f)
	}
	return buf.Bytes(), nil
}

// Decode restores a regressor written by Encode.
func Decode(f Family, payload []byte) (model.Regressor, error) {
	var reg model.Regressor
	switch f {
	case XGBoost:
		reg = &xgboost.XGBRegressor{}
	case LightGBM:
		reg = &lightgbm.LGBMRegressor{}
	case RandomForest:
		reg = &ensemble.RandomForestRegressor{}
	default:
		return nil, errors.NewValueError("candidate.Decode", fmt.Sprintf("unknown family %d", int(f)))
	}
	if err := model.LoadModelFromReader(reg, bytes.NewReader(payload)); err != nil {
		return nil, errors.Wrapf(err, "decode %s", f)
	}
	if !reg.IsFitted() {
		return nil, errors.NewNotFittedError(f.String(), "Decode")
	}
	return reg, nil
}
