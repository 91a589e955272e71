package dataset

import (
	"math"
	"math/rand/v2"
	"strconv"

	"github.com/YuminosukeSato/matprop/pkg/errors"
)

// Samples are the usable (formula, target) pairs of one target column, in
// file order.
type Samples struct {
	Formulas []string
	Targets  []float64
	// Rows holds the zero-based data row each sample came from.
	Rows []int
	// Dropped counts rows with a missing formula or target.
	Dropped int
}

// Len returns the number of usable samples.
func (s *Samples) Len() int { return len(s.Formulas) }

// Select returns the samples at the given positions.
func (s *Samples) Select(idx []int) ([]string, []float64) {
	formulas := make([]string, len(idx))
	targets := make([]float64, len(idx))
	for i, k := range idx {
		formulas[i] = s.Formulas[k]
		targets[i] = s.Targets[k]
	}
	return formulas, targets
}

// Samples collects the rows where both the formula and the target cell are
// present. A target cell that is not a finite number is treated as missing
// and reported with a DataConversionWarning.
func (d *Dataset) Samples(formulaColumn, targetColumn string) (*Samples, error) {
	if !d.HasColumn(formulaColumn) {
		return nil, errors.NewValidationError("formula_column", "column not present in dataset", formulaColumn)
	}
	if !d.HasColumn(targetColumn) {
		return nil, errors.NewValidationError("target_column", "column not present in dataset", targetColumn)
	}

	s := &Samples{}
	for i := range d.rows {
		formula, ok := d.String(i, formulaColumn)
		if !ok {
			s.Dropped++
			continue
		}
		y, ok, err := d.Float(i, targetColumn)
		if err != nil {
			raw, _ := d.String(i, targetColumn)
			errors.Warn(errors.NewDataConversionWarning(targetColumn, i, raw, "not a finite number"))
		}
		if !ok {
			s.Dropped++
			continue
		}
		s.Formulas = append(s.Formulas, formula)
		s.Targets = append(s.Targets, y)
		s.Rows = append(s.Rows, i)
	}
	return s, nil
}

// Split holds train and test positions into a Samples value.
type Split struct {
	Train []int
	Test  []int
	// SelfEvaluation is set when the sample is too small to hold out data
	// and the model is scored on its own training rows.
	SelfEvaluation bool
}

// MinSplitSamples is the smallest sample count that gets a held-out test set.
const MinSplitSamples = 5

// TestFraction is the share of samples held out for scoring.
const TestFraction = 0.2

// TrainTestSplit shuffles n positions with a generator seeded by seed and
// holds out ceil(TestFraction*n) of them. Below MinSplitSamples the train
// and test sets are both every position in order.
func TrainTestSplit(n int, seed int64) Split {
	if n < MinSplitSamples {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return Split{Train: all, Test: all, SelfEvaluation: true}
	}

	rng := rand.New(rand.NewPCG(uint64(seed), uint64(n)))
	perm := rng.Perm(n)
	nTest := int(math.Ceil(TestFraction * float64(n)))
	return Split{Train: perm[nTest:], Test: perm[:nTest]}
}

// DefaultPreviewRows is how many rows Preview returns by default.
const DefaultPreviewRows = 50

// Preview returns up to n rows as column→value maps. Numeric cells become
// float64, missing cells nil, everything else the raw string.
func (d *Dataset) Preview(n int) []map[string]any {
	if n > len(d.rows) {
		n = len(d.rows)
	}
	if n < 0 {
		n = 0
	}
	out := make([]map[string]any, n)
	for i := 0; i < n; i++ {
		row := make(map[string]any, len(d.columns))
		for _, c := range d.columns {
			s, ok := d.String(i, c)
			if !ok {
				row[c] = nil
				continue
			}
			if v, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(v, 0) {
				row[c] = v
			} else {
				row[c] = s
			}
		}
		out[i] = row
	}
	return out
}
