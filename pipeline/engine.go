// Package pipeline trains every candidate regressor family on a dataset,
// scores them on a held-out split and stores the winner as the candidate
// model of the target property.
package pipeline

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/matprop/artifact"
	"github.com/YuminosukeSato/matprop/candidate"
	"github.com/YuminosukeSato/matprop/chem"
	coremodel "github.com/YuminosukeSato/matprop/core/model"
	"github.com/YuminosukeSato/matprop/dataset"
	"github.com/YuminosukeSato/matprop/metrics"
	"github.com/YuminosukeSato/matprop/pkg/errors"
	"github.com/YuminosukeSato/matprop/pkg/log"
	"github.com/YuminosukeSato/matprop/preprocessing"
	"github.com/YuminosukeSato/matprop/report"
)

// DefaultSeed seeds the split and every candidate.
const DefaultSeed = 42

// CandidateSaver persists the winning model of a run.
type CandidateSaver interface {
	SaveCandidate(ctx context.Context, target string, a *artifact.Artifact) error
}

// Engine runs training and evaluation. It holds no per-run state; calls are
// independent.
type Engine struct {
	saver         CandidateSaver
	renderer      report.Renderer
	formulaColumn string
	seed          int64
	logger        log.Logger
	now           func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithRenderer sets the chart renderer. The default draws PNG charts.
func WithRenderer(r report.Renderer) Option { return func(e *Engine) { e.renderer = r } }

// WithFormulaColumn sets the dataset column holding formulas.
func WithFormulaColumn(c string) Option { return func(e *Engine) { e.formulaColumn = c } }

// WithSeed overrides DefaultSeed.
func WithSeed(seed int64) Option { return func(e *Engine) { e.seed = seed } }

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithClock sets the time source used for artifact timestamps.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// NewEngine creates an Engine that stores winners through saver.
func NewEngine(saver CandidateSaver, opts ...Option) *Engine {
	e := &Engine{
		saver:         saver,
		formulaColumn: dataset.DefaultFormulaColumn,
		seed:          DefaultSeed,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.renderer == nil {
		e.renderer = report.NewPNGRenderer()
	}
	if e.logger == nil {
		e.logger = log.GetLoggerWithName("pipeline")
	}
	return e
}

type trained struct {
	family candidate.Family
	reg    coremodel.Regressor
	pred   []float64
	scores metrics.Scores
	err    error
}

// TrainAndEvaluate trains all candidate families for targetKey. A target
// missing from the dataset or without usable rows is reported through
// Result.Status and writes nothing. Errors are returned only for invalid
// hyperparameters, a missing formula column, cancellation, or when the
// winning model cannot be stored.
func (e *Engine) TrainAndEvaluate(ctx context.Context, ds *dataset.Dataset, targetKey string, hp *candidate.Hyperparameters) (*Result, error) {
	if hp != nil {
		if err := hp.Validate(); err != nil {
			return nil, err
		}
	}
	start := time.Now()
	runID := uuid.NewString()
	logger := e.logger.With(log.RunIDKey, runID, log.TargetKey, targetKey)
	res := &Result{Target: targetKey, RunID: runID, BestR2: Float(math.Inf(-1)), RMSE: Float(math.NaN())}

	column, ok := dataset.ResolveColumn(ds.Columns(), targetKey)
	if !ok {
		res.Status = StatusTargetNotFound
		logger.Warn("Target column not found",
			log.ErrorCodeKey, log.ErrorTargetNotFound,
			log.SuggestionKey, "available columns: "+strings.Join(ds.Columns(), ", "),
		)
		return res, nil
	}
	res.Column = column
	logger = logger.With(log.TargetColumnKey, column)

	samples, err := ds.Samples(e.formulaColumn, column)
	if err != nil {
		return nil, err
	}
	res.Samples = samples.Len()
	if samples.Len() == 0 {
		res.Status = StatusInsufficientData
		logger.Warn("No usable rows", log.DroppedRowsKey, samples.Dropped, log.ErrorCodeKey, log.ErrorEmptyData)
		return res, nil
	}

	split := dataset.TrainTestSplit(samples.Len(), e.seed)
	res.TrainSamples, res.TestSamples, res.SelfEvaluation = len(split.Train), len(split.Test), split.SelfEvaluation
	if split.SelfEvaluation {
		logger.Warn("Too few rows for a held-out split, scoring on training data",
			log.SamplesKey, samples.Len())
	}

	trainF, yTrain := samples.Select(split.Train)
	testF, yTest := samples.Select(split.Test)
	Xtr, err := preprocessing.BuildFeatureMatrix(trainF)
	if err != nil {
		return nil, err
	}
	Xte, err := preprocessing.BuildFeatureMatrix(testF)
	if err != nil {
		return nil, err
	}
	ytr := mat.NewDense(len(yTrain), 1, append([]float64(nil), yTrain...))

	logger.Info("Training started",
		log.PhaseKey, log.PhaseTraining,
		log.RandomSeedKey, e.seed,
		log.SamplesKey, samples.Len(),
		log.FeaturesKey, chem.NumElements,
		log.TrainSamplesKey, len(split.Train),
		log.TestSamplesKey, len(split.Test),
		log.DroppedRowsKey, samples.Dropped,
	)

	runs := make([]trained, 0, len(candidate.Families()))
	for _, f := range candidate.Families() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t := e.train(f, hp, Xtr, ytr, Xte, yTest)
		if t.err != nil {
			logger.Warn("Candidate failed", log.ModelNameKey, f.String(), log.ErrAttrKey, t.err)
		} else {
			logger.Info("Candidate evaluated",
				log.PhaseKey, log.PhaseValidation,
				log.ModelNameKey, f.String(),
				log.HyperParamsKey, candidate.Params(t.reg),
				log.R2ScoreKey, t.scores.R2,
				log.RMSEKey, t.scores.RMSE,
			)
		}
		runs = append(runs, t)
		res.Metrics = append(res.Metrics, t.metricsRow())
	}

	best, err := selectBest(runs)
	if err != nil {
		return nil, err
	}
	winner := runs[best]
	res.Status = StatusOK
	res.BestModel = winner.family.String()
	res.BestR2 = Float(math.Inf(-1))
	if winner.err == nil && !math.IsNaN(winner.scores.R2) {
		res.BestR2 = Float(winner.scores.R2)
	}
	res.RMSE = res.Metrics[0].RMSE

	e.renderCharts(res, yTest, samples.Targets, winner, logger)

	payload, err := candidate.Encode(winner.family, winner.reg)
	if err != nil {
		return nil, err
	}
	a := &artifact.Artifact{
		Family:     winner.family.String(),
		Algorithm:  winner.family.String(),
		Target:     targetKey,
		Vocabulary: chem.Elements(),
		NFeatures:  chem.NumElements,
		NSamples:   len(split.Train),
		RunID:      runID,
		TrainedAt:  e.now().UTC(),
		Payload:    payload,
	}
	if err := e.saver.SaveCandidate(ctx, targetKey, a); err != nil {
		return nil, errors.Wrapf(err, "store candidate for %s", targetKey)
	}

	logger.Info("Training finished",
		log.ModelNameKey, res.BestModel,
		log.R2ScoreKey, float64(res.BestR2),
		log.RMSEKey, float64(res.RMSE),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return res, nil
}

// TrainAll runs TrainAndEvaluate for each target in order.
func (e *Engine) TrainAll(ctx context.Context, ds *dataset.Dataset, targets []string, hp *candidate.Hyperparameters) ([]*Result, error) {
	out := make([]*Result, 0, len(targets))
	for _, target := range targets {
		res, err := e.TrainAndEvaluate(ctx, ds, target, hp)
		if err != nil {
			return out, errors.Wrapf(err, "train %s", target)
		}
		out = append(out, res)
	}
	return out, nil
}

func (e *Engine) train(f candidate.Family, hp *candidate.Hyperparameters, Xtr, ytr, Xte mat.Matrix, yTest []float64) trained {
	t := trained{family: f}
	reg, err := candidate.New(f, e.seed, hp)
	if err != nil {
		t.err = err
		return t
	}
	if err := errors.SafeExecute(f.String()+".Fit", func() error { return reg.Fit(Xtr, ytr) }); err != nil {
		t.err = err
		return t
	}
	t.reg = reg
	return score(t, Xte, yTest)
}

// score predicts Xte with the fitted t.reg and evaluates against yTest.
// Non-finite predictions fail the candidate.
func score(t trained, Xte mat.Matrix, yTest []float64) trained {
	name := t.family.String()
	var pred mat.Matrix
	err := errors.SafeExecute(name+".Predict", func() error {
		var perr error
		pred, perr = t.reg.Predict(Xte)
		return perr
	})
	if err != nil {
		t.err = err
		return t
	}
	t.pred = coremodel.ColumnValues(pred)
	if err := errors.CheckNumericalStability(name+".Predict", t.pred); err != nil {
		t.err = err
		return t
	}
	t.scores, t.err = metrics.Evaluate(yTest, t.pred)
	return t
}

func (t trained) metricsRow() CandidateMetrics {
	row := CandidateMetrics{Model: t.family.String(), R2: Float(math.NaN()), RMSE: Float(math.NaN())}
	if t.err != nil {
		row.Err = t.err.Error()
		return row
	}
	row.R2, row.RMSE = Float(t.scores.R2), Float(t.scores.RMSE)
	return row
}

// selectBest returns the candidate with the strictly greatest R²; ties keep
// the earlier one. When no candidate produced a score the first candidate is
// used, provided it was fitted and its predictions were finite.
func selectBest(runs []trained) (int, error) {
	best, bestR2 := -1, math.Inf(-1)
	for i, t := range runs {
		if t.err != nil || math.IsNaN(t.scores.R2) {
			continue
		}
		if t.scores.R2 > bestR2 {
			best, bestR2 = i, t.scores.R2
		}
	}
	if best >= 0 {
		return best, nil
	}
	var unstable *errors.NumericalInstabilityError
	if len(runs) > 0 && runs[0].reg != nil && errors.As(runs[0].err, &unstable) {
		return 0, errors.NewModelError("pipeline.selectBest", "no candidate produced finite predictions", runs[0].err)
	}
	if len(runs) == 0 || runs[0].reg == nil {
		var cause error
		if len(runs) > 0 {
			cause = runs[0].err
		}
		return 0, errors.NewModelError("pipeline.selectBest", "no candidate could be fitted", cause)
	}
	return 0, nil
}

func (e *Engine) renderCharts(res *Result, yTest, allTargets []float64, winner trained, logger log.Logger) {
	labels := make([]string, len(res.Metrics))
	r2 := make([]float64, len(res.Metrics))
	for i, m := range res.Metrics {
		labels[i], r2[i] = m.Model, float64(m.R2)
	}
	bar, err := e.renderer.BarChart(res.Column+" Model Comparison", labels, r2)
	if err != nil {
		logger.Warn("Bar chart failed", log.ErrAttrKey, err)
	}
	res.BarChart = bar

	actual, predicted := yTest, winner.pred
	if len(predicted) != len(actual) {
		actual, predicted = nil, nil
	}
	lo, hi := minMax(allTargets)
	scatter, err := e.renderer.Scatter("Actual vs Predicted ("+res.BestModel+")", actual, predicted, lo, hi)
	if err != nil {
		logger.Warn("Scatter chart failed", log.ErrAttrKey, err)
	}
	res.Scatter = scatter
}

func minMax(v []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, x := range v {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	return lo, hi
}
