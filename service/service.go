// Package service exposes the boundary operations of matprop: inference,
// training from an uploaded CSV, promotion, and the read-only listings.
package service

import (
	"context"
	"io"
	"math"

	"github.com/YuminosukeSato/matprop/artifact"
	"github.com/YuminosukeSato/matprop/candidate"
	"github.com/YuminosukeSato/matprop/chem"
	"github.com/YuminosukeSato/matprop/config"
	"github.com/YuminosukeSato/matprop/dataset"
	"github.com/YuminosukeSato/matprop/lifecycle"
	"github.com/YuminosukeSato/matprop/pipeline"
	"github.com/YuminosukeSato/matprop/pkg/errors"
	"github.com/YuminosukeSato/matprop/pkg/log"
)

// InvalidFormula is the error text of a formula without known elements.
const InvalidFormula = "Invalid Formula"

// PromotedStatus is the status line of a promotion request.
const PromotedStatus = "Models Updated to Production"

// Service wires storage, lifecycle and training together.
type Service struct {
	store       artifact.Store
	manager     *lifecycle.Manager
	engine      *pipeline.Engine
	targets     []string
	previewRows int
	logger      log.Logger
}

// Option configures a Service.
type Option func(*options)

type options struct {
	logger     log.Logger
	engineOpts []pipeline.Option
}

// WithLogger sets the logger shared by the service, the lifecycle manager
// and the engine.
func WithLogger(l log.Logger) Option { return func(o *options) { o.logger = l } }

// WithEngineOptions passes extra options to the training engine.
func WithEngineOptions(opts ...pipeline.Option) Option {
	return func(o *options) { o.engineOpts = append(o.engineOpts, opts...) }
}

// New builds a Service on store using the targets, formula column, seed and
// preview size from cfg.
func New(cfg *config.Config, store artifact.Store, opts ...Option) *Service {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.GetLoggerWithName("service")
	}

	mgr := lifecycle.NewManager(store, lifecycle.WithLogger(o.logger))
	engOpts := append([]pipeline.Option{
		pipeline.WithFormulaColumn(cfg.FormulaColumn),
		pipeline.WithSeed(cfg.RandomSeed),
		pipeline.WithLogger(o.logger),
	}, o.engineOpts...)

	return &Service{
		store:       store,
		manager:     mgr,
		engine:      pipeline.NewEngine(mgr, engOpts...),
		targets:     append([]string(nil), cfg.Targets...),
		previewRows: cfg.PreviewRows,
		logger:      o.logger,
	}
}

// Manager returns the lifecycle manager.
func (s *Service) Manager() *lifecycle.Manager { return s.manager }

// Targets returns the configured target properties.
func (s *Service) Targets() []string { return append([]string(nil), s.targets...) }

// PropertyPrediction is the estimate for one target. Value is nil when no
// production model is available.
type PropertyPrediction struct {
	Target    string   `json:"target"`
	Value     *float64 `json:"value"`
	Available bool     `json:"available"`
}

// Prediction is the response to an inference request.
type Prediction struct {
	Formula     string               `json:"formula"`
	Composition map[string]float64   `json:"composition,omitempty"`
	Properties  []PropertyPrediction `json:"properties,omitempty"`
	Invalid     bool                 `json:"invalid,omitempty"`
	Error       string               `json:"error,omitempty"`
}

// Predict parses formula and asks each target's production model for an
// estimate rounded to two decimals. A formula without any known element is
// reported as invalid and no model is consulted.
func (s *Service) Predict(ctx context.Context, formula string) (*Prediction, error) {
	comp := chem.Parse(formula)
	out := &Prediction{Formula: formula}
	if comp.IsZero() {
		out.Invalid = true
		out.Error = InvalidFormula
		return out, nil
	}
	out.Composition = comp.NonZero()

	for _, target := range s.targets {
		p := PropertyPrediction{Target: target}
		mdl, ok, err := s.manager.LoadProduction(ctx, target)
		if err != nil {
			return nil, err
		}
		if ok {
			v, err := mdl.Predict(comp)
			if err != nil {
				s.logger.Warn("Prediction failed",
					log.TargetKey, target,
					log.FormulaKey, formula,
					log.ErrAttrKey, err,
				)
			} else if !math.IsNaN(v) && !math.IsInf(v, 0) {
				r := math.Round(v*100) / 100
				p.Value, p.Available = &r, true
			}
		}
		out.Properties = append(out.Properties, p)
	}
	return out, nil
}

// TrainingReport holds one engine result per configured target.
type TrainingReport struct {
	Rows    int                         `json:"rows"`
	Results map[string]*pipeline.Result `json:"results"`
}

// Train stores the upload as the current dataset, replacing any previous
// one, and trains every configured target on it.
func (s *Service) Train(ctx context.Context, csv io.Reader, hp *candidate.Hyperparameters) (*TrainingReport, error) {
	if hp != nil {
		if err := hp.Validate(); err != nil {
			return nil, err
		}
	}
	data, err := io.ReadAll(csv)
	if err != nil {
		return nil, errors.Wrap(err, "read upload")
	}
	if err := s.store.Put(ctx, artifact.DatasetName, data); err != nil {
		return nil, errors.Wrap(err, "store dataset")
	}
	ds, err := dataset.ParseBytes(data)
	if err != nil {
		return nil, err
	}
	return s.train(ctx, ds, hp)
}

// Retrain trains every target on the stored dataset. It returns
// dataset.ErrNoDataset when nothing was uploaded yet.
func (s *Service) Retrain(ctx context.Context, hp *candidate.Hyperparameters) (*TrainingReport, error) {
	ds, err := s.CurrentDataset(ctx)
	if err != nil {
		return nil, err
	}
	return s.train(ctx, ds, hp)
}

func (s *Service) train(ctx context.Context, ds *dataset.Dataset, hp *candidate.Hyperparameters) (*TrainingReport, error) {
	results, err := s.engine.TrainAll(ctx, ds, s.targets, hp)
	if err != nil {
		return nil, err
	}
	rep := &TrainingReport{Rows: ds.Len(), Results: make(map[string]*pipeline.Result, len(results))}
	for _, r := range results {
		rep.Results[r.Target] = r
	}
	return rep, nil
}

// PromotionReport is the response to a promotion request.
type PromotionReport struct {
	Status   string                       `json:"status"`
	Outcomes []lifecycle.PromotionOutcome `json:"outcomes"`
}

// PromoteAll promotes the candidate of every target that has one.
func (s *Service) PromoteAll(ctx context.Context) (*PromotionReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &PromotionReport{
		Status:   PromotedStatus,
		Outcomes: s.manager.PromoteAll(ctx, s.targets),
	}, nil
}

// Elements lists the element vocabulary in feature order.
func (s *Service) Elements() []string { return chem.Elements() }

// CurrentDataset loads the most recently uploaded dataset.
func (s *Service) CurrentDataset(ctx context.Context) (*dataset.Dataset, error) {
	data, err := s.store.Get(ctx, artifact.DatasetName)
	if errors.Is(err, artifact.ErrNotFound) {
		return nil, dataset.ErrNoDataset
	}
	if err != nil {
		return nil, errors.Wrap(err, "load dataset")
	}
	return dataset.ParseBytes(data)
}

// DatasetPreview returns the first rows of the current dataset, or an empty
// slice when none was uploaded.
func (s *Service) DatasetPreview(ctx context.Context) ([]map[string]any, error) {
	ds, err := s.CurrentDataset(ctx)
	if errors.Is(err, dataset.ErrNoDataset) {
		return []map[string]any{}, nil
	}
	if err != nil {
		return nil, err
	}
	return ds.Preview(s.previewRows), nil
}

// ModelStatus reports the occupied slots of every target.
func (s *Service) ModelStatus(ctx context.Context) ([]lifecycle.SlotStatus, error) {
	return s.manager.Status(ctx, s.targets)
}
