// Package model provides the estimator interfaces, fitted-state tracking and
// gob persistence shared by the regressor families.
package model

import (
	"sync"

	"github.com/YuminosukeSato/matprop/pkg/errors"
)

// StateManager manages the fitted state of a model in a thread-safe manner.
// Exported fields survive gob encoding so a decoded regressor stays fitted.
type StateManager struct {
	Fitted bool
	mu     sync.RWMutex

	NFeatures int
	NSamples  int
}

// NewStateManager creates a new StateManager instance.
func NewStateManager() *StateManager {
	return &StateManager{}
}

// IsFitted returns whether the model has been fitted.
func (s *StateManager) IsFitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Fitted
}

// SetFitted marks the model as fitted.
func (s *StateManager) SetFitted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fitted = true
}

// Reset resets the fitted state.
func (s *StateManager) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fitted = false
	s.NFeatures = 0
	s.NSamples = 0
}

// SetDimensions sets the number of features and samples seen during fitting.
func (s *StateManager) SetDimensions(nFeatures, nSamples int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.NFeatures = nFeatures
	s.NSamples = nSamples
}

// GetDimensions returns the number of features and samples seen during fitting.
func (s *StateManager) GetDimensions() (nFeatures, nSamples int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.NFeatures, s.NSamples
}

// RequireFitted returns a NotFittedError if the model has not been fitted.
func (s *StateManager) RequireFitted(modelName, method string) error {
	if !s.IsFitted() {
		return errors.NewNotFittedError(modelName, method)
	}
	return nil
}

// CheckPredictInput validates the column count of a prediction input against
// the number of features seen during Fit.
func (s *StateManager) CheckPredictInput(modelName string, cols int) error {
	if err := s.RequireFitted(modelName, "Predict"); err != nil {
		return err
	}
	nFeatures, _ := s.GetDimensions()
	if cols != nFeatures {
		return errors.NewDimensionError(modelName+".Predict", nFeatures, cols, 1)
	}
	return nil
}

// CheckFitInput validates X/y shapes for a regression Fit.
func CheckFitInput(op string, rows, cols, yRows, yCols int) error {
	if rows == 0 || cols == 0 {
		return errors.NewValueError(op, "empty training data")
	}
	if rows != yRows {
		return errors.NewDimensionError(op, rows, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError(op, 1, yCols, 1)
	}
	return nil
}
