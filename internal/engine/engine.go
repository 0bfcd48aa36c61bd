// Package engine drives a generation run: metadata construction, rule
// application and code model finalization, in that order.
package engine

import (
	"go.uber.org/zap"

	"github.com/mark3labs/endpointgen/internal/codemodel"
	"github.com/mark3labs/endpointgen/internal/config"
	"github.com/mark3labs/endpointgen/internal/errors"
	"github.com/mark3labs/endpointgen/internal/logger"
	"github.com/mark3labs/endpointgen/internal/metadata"
	"github.com/mark3labs/endpointgen/internal/rules"
	"github.com/mark3labs/endpointgen/internal/spec"
	"github.com/mark3labs/endpointgen/internal/types"
)

type Stage int

const (
	Idle Stage = iota
	MetadataBuilt
	RulesApplying
	CodeModelFinalized
)

func (s Stage) String() string {
	switch s {
	case Idle:
		return "Idle"
	case MetadataBuilt:
		return "MetadataBuilt"
	case RulesApplying:
		return "RulesApplying"
	case CodeModelFinalized:
		return "CodeModelFinalized"
	}
	return "Unknown"
}

// ErrInvalidTransition is returned when a stage is entered out of order.
var ErrInvalidTransition = errors.New("invalid engine stage transition")

// Engine runs one generation. It is not reusable: create a new Engine per
// run.
type Engine struct {
	cfg   config.GenerationConfig
	stage Stage
	log   *zap.SugaredLogger

	controller     rules.Target
	implementation rules.Target
	dataClass      rules.Target

	meta   *metadata.Model
	model  *codemodel.Model
	failed bool
}

type Option func(*Engine)

// WithLogger overrides the engine's logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(e *Engine) { e.log = l }
}

// WithTargets replaces the rule targets. Zero-value targets keep the
// defaults.
func WithTargets(controller, implementation, dataClass rules.Target) Option {
	return func(e *Engine) {
		if len(controller.Rules) > 0 {
			e.controller = controller
		}
		if len(implementation.Rules) > 0 {
			e.implementation = implementation
		}
		if len(dataClass.Rules) > 0 {
			e.dataClass = dataClass
		}
	}
}

func New(cfg config.GenerationConfig, opts ...Option) *Engine {
	e := &Engine{
		cfg:            cfg,
		stage:          Idle,
		log:            logger.Named("engine"),
		controller:     rules.ControllerTarget(),
		implementation: rules.ImplementationTarget(),
		dataClass:      rules.DataClassTarget(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Stage() Stage { return e.stage }

func (e *Engine) advance(from, to Stage) error {
	if e.stage != from {
		return errors.Wrapf(ErrInvalidTransition, "%s -> %s (engine is %s)", from, to, e.stage)
	}
	e.log.Debugw("stage transition", "from", from.String(), "to", to.String())
	e.stage = to
	return nil
}

// BuildMetadata canonicalizes parsed. reg may be nil.
func (e *Engine) BuildMetadata(parsed *spec.ParsedSpec, reg *types.Registry) (*metadata.Model, error) {
	if e.stage != Idle {
		return nil, errors.Wrapf(ErrInvalidTransition, "%s -> %s (engine is %s)", Idle, MetadataBuilt, e.stage)
	}
	m, err := metadata.Build(parsed, reg, e.cfg)
	if err != nil {
		return nil, err
	}
	e.meta = m
	if err := e.advance(Idle, MetadataBuilt); err != nil {
		return nil, err
	}
	return m, nil
}

// ApplyRules populates the code model. Each data class and each resource is
// a subtree whose classes are committed only if every rule succeeded.
// Naming conflicts and unresolved types abort at once; rule failures abort
// at once unless CollectFailures is set, in which case they are reported
// together after all subtrees ran.
func (e *Engine) ApplyRules() error {
	if err := e.advance(MetadataBuilt, RulesApplying); err != nil {
		return err
	}
	if err := e.applyRules(); err != nil {
		e.failed = true
		return err
	}
	e.log.Debugw("rules applied", "classes", e.model.Len())
	return nil
}

func (e *Engine) applyRules() error {
	e.model = codemodel.New()
	ctx := rules.NewContext(e.cfg, e.model, e.meta.Types)
	var failures []error

	run := func(label string, apply func() error) error {
		err := apply()
		if err == nil {
			return ctx.Commit()
		}
		ctx.Discard()
		if errors.IsFatal(err) || !e.cfg.CollectFailures {
			return err
		}
		e.log.Warnw("rule failure", "subtree", label, "error", err)
		failures = append(failures, err)
		return nil
	}

	for _, entry := range rules.TypeEntries(e.meta.Types) {
		entries := []rules.Entry{entry}
		if err := run(entry.Path(), func() error { return e.dataClass.Apply(entries, ctx) }); err != nil {
			return err
		}
	}
	for _, r := range e.meta.Resources() {
		if !r.HasActions() {
			continue
		}
		entries := rules.ResourceEntries(r)
		err := run(r.Path, func() error {
			if err := e.controller.Apply(entries, ctx); err != nil {
				return err
			}
			if e.cfg.GenerateImplementation {
				return e.implementation.Apply(entries, ctx)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	if len(failures) > 0 {
		return &errors.Aggregate{Errors: failures}
	}
	return nil
}

// Finalize freezes and returns the code model. A run whose rules failed
// cannot be finalized.
func (e *Engine) Finalize() (*codemodel.Model, error) {
	if e.failed {
		return nil, errors.Wrap(ErrInvalidTransition, "rule application failed")
	}
	if err := e.advance(RulesApplying, CodeModelFinalized); err != nil {
		return nil, err
	}
	e.model.Finalize()
	return e.model, nil
}

// Metadata returns the metadata model once built.
func (e *Engine) Metadata() *metadata.Model { return e.meta }

// Generate runs a whole pipeline on parsed.
func Generate(parsed *spec.ParsedSpec, cfg config.GenerationConfig, opts ...Option) (*codemodel.Model, error) {
	e := New(cfg, opts...)
	if _, err := e.BuildMetadata(parsed, nil); err != nil {
		return nil, err
	}
	if err := e.ApplyRules(); err != nil {
		return nil, err
	}
	return e.Finalize()
}
