// Package lifecycle manages the candidate and production slots of every
// target property.
//
// The training pipeline writes candidates; an operator promotes them. Each
// target has its own read/write lock: saving and promoting take the write
// lock, loading takes the read lock, so a promotion never interleaves with a
// load of the same target.
package lifecycle

import (
	"context"
	"sync"

	"github.com/YuminosukeSato/matprop/artifact"
	"github.com/YuminosukeSato/matprop/candidate"
	"github.com/YuminosukeSato/matprop/chem"
	"github.com/YuminosukeSato/matprop/pkg/errors"
	"github.com/YuminosukeSato/matprop/pkg/log"
)

// Manager owns the artifact slots in a Store.
type Manager struct {
	store  artifact.Store
	logger log.Logger

	mu    sync.Mutex
	locks map[string]*sync.RWMutex
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. The default is the "lifecycle" component logger.
func WithLogger(l log.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a Manager on store.
func NewManager(store artifact.Store, opts ...Option) *Manager {
	m := &Manager{
		store: store,
		locks: make(map[string]*sync.RWMutex),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = log.GetLoggerWithName("lifecycle")
	}
	return m
}

// Store returns the underlying artifact store.
func (m *Manager) Store() artifact.Store { return m.store }

func (m *Manager) lock(target string) *sync.RWMutex {
	key := artifact.Canonical(target)
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[key]
	if !ok {
		l = &sync.RWMutex{}
		m.locks[key] = l
	}
	return l
}

// SaveCandidate replaces the candidate slot of target. Production is never
// touched.
func (m *Manager) SaveCandidate(ctx context.Context, target string, a *artifact.Artifact) error {
	if a == nil {
		return errors.NewValueError("lifecycle.SaveCandidate", "nil artifact")
	}
	data, err := artifact.Marshal(a)
	if err != nil {
		return err
	}

	l := m.lock(target)
	l.Lock()
	defer l.Unlock()

	name := artifact.Name(target, artifact.Candidate)
	if err := m.store.Put(ctx, name, data); err != nil {
		return errors.Wrapf(err, "save candidate for %s", target)
	}
	m.logger.Info("Candidate saved",
		log.TargetKey, target,
		log.ArtifactKey, name,
		log.ModelNameKey, a.Algorithm,
		log.RunIDKey, a.RunID,
	)
	return nil
}

// LoadProduction returns the production model of target. The boolean is
// false when the slot is empty or holds an unusable artifact; only storage
// failures are reported as errors.
func (m *Manager) LoadProduction(ctx context.Context, target string) (*Model, bool, error) {
	return m.load(ctx, target, artifact.Production)
}

// LoadCandidate is LoadProduction for the candidate slot.
func (m *Manager) LoadCandidate(ctx context.Context, target string) (*Model, bool, error) {
	return m.load(ctx, target, artifact.Candidate)
}

func (m *Manager) load(ctx context.Context, target string, state artifact.State) (*Model, bool, error) {
	name := artifact.Name(target, state)
	l := m.lock(target)
	l.RLock()
	data, err := m.store.Get(ctx, name)
	l.RUnlock()

	if errors.Is(err, artifact.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "load %s", name)
	}

	mdl, err := m.decode(data)
	if err != nil {
		m.logger.Warn("Ignoring unusable artifact",
			log.TargetKey, target,
			log.ArtifactKey, name,
			log.ArtifactStateKey, string(state),
			log.ErrorCodeKey, log.ErrorCorruptArtifact,
			log.ErrAttrKey, err,
		)
		return nil, false, nil
	}
	return mdl, true, nil
}

func (m *Manager) decode(data []byte) (*Model, error) {
	a, err := artifact.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	if a.NFeatures != chem.NumElements || !chem.SameVocabulary(a.Vocabulary) {
		return nil, errors.NewValidationError("vocabulary", "artifact was trained on a different element vocabulary", a.Vocabulary)
	}
	family, err := candidate.ParseFamily(a.Family)
	if err != nil {
		return nil, err
	}
	reg, err := candidate.Decode(family, a.Payload)
	if err != nil {
		return nil, err
	}
	return &Model{Meta: a, Family: family, reg: reg}, nil
}

// Promote moves the candidate of target into production, replacing any
// existing production model. It reports false when there is no candidate.
func (m *Manager) Promote(ctx context.Context, target string) (bool, error) {
	l := m.lock(target)
	l.Lock()
	defer l.Unlock()

	from := artifact.Name(target, artifact.Candidate)
	to := artifact.Name(target, artifact.Production)
	err := m.store.Rename(ctx, from, to)
	if errors.Is(err, artifact.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "promote %s", target)
	}
	m.logger.Info("Candidate promoted",
		log.TargetKey, target,
		log.ArtifactKey, to,
		log.OperationKey, log.OperationPromote,
	)
	return true, nil
}

// PromotionOutcome is the result of promoting one target.
type PromotionOutcome struct {
	Target   string `json:"target"`
	Promoted bool   `json:"promoted"`
	Error    string `json:"error,omitempty"`
}

// PromoteAll promotes every target independently. A failure on one target
// is recorded in its outcome and does not stop the others.
func (m *Manager) PromoteAll(ctx context.Context, targets []string) []PromotionOutcome {
	out := make([]PromotionOutcome, 0, len(targets))
	for _, target := range targets {
		ok, err := m.Promote(ctx, target)
		o := PromotionOutcome{Target: target, Promoted: ok}
		if err != nil {
			o.Error = err.Error()
			m.logger.Error("Promotion failed", log.TargetKey, target, log.ErrAttrKey, err)
		}
		out = append(out, o)
	}
	return out
}

// SlotStatus reports which slots of a target are occupied.
type SlotStatus struct {
	Target     string `json:"target"`
	Candidate  bool   `json:"candidate"`
	Production bool   `json:"production"`
}

// Status checks the candidate and production slots of every target.
func (m *Manager) Status(ctx context.Context, targets []string) ([]SlotStatus, error) {
	out := make([]SlotStatus, 0, len(targets))
	for _, target := range targets {
		l := m.lock(target)
		l.RLock()
		cand, err := m.store.Exists(ctx, artifact.Name(target, artifact.Candidate))
		if err == nil {
			var prod bool
			prod, err = m.store.Exists(ctx, artifact.Name(target, artifact.Production))
			out = append(out, SlotStatus{Target: target, Candidate: cand, Production: prod})
		}
		l.RUnlock()
		if err != nil {
			return nil, errors.Wrapf(err, "status of %s", target)
		}
	}
	return out, nil
}
