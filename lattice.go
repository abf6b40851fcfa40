package lattice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/aretw0/lattice/internal/compiler"
	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/internal/runtime"
	"github.com/aretw0/lattice/internal/validator"
	"github.com/aretw0/lattice/pkg/adapters/memory"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/nodes"
	"github.com/aretw0/lattice/pkg/observability"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/aretw0/lattice/pkg/registry"
)

var (
	// ErrInvalidGraph wraps the validation errors of a rejected graph.
	ErrInvalidGraph = errors.New("graph failed validation")

	// ErrNoLoader is returned by Load when the engine was built without a ScriptLoader.
	ErrNoLoader = errors.New("no script loader configured")
)

type (
	Quotas           = runtime.Quotas
	ValidationResult = validator.Result
)

// DefaultQuotas returns the quotas used when none are configured.
func DefaultQuotas() Quotas { return runtime.DefaultQuotas() }

// Engine is the high-level entry point of the library.
// It owns the loaded scripts and turns triggers into runs of the reactive runtime.
type Engine struct {
	registry  *registry.Registry
	loader    ports.ScriptLoader
	store     ports.StateStore
	listeners []ports.EventListener
	scoped    []func(scriptID string) ports.EventListener
	metrics   *observability.Metrics
	logger    *slog.Logger
	quotas    Quotas
	fold      bool
	autoPrune bool
	maxInput  int
	parser    *compiler.Parser
	runtime   *runtime.Engine

	mu      sync.RWMutex
	scripts map[string]*loadedScript
}

type loadedScript struct {
	graph   *domain.Graph
	context *runtime.ScriptContext
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithRegistry replaces the generic node catalogue.
func WithRegistry(r *registry.Registry) Option {
	return func(e *Engine) {
		e.registry = r
	}
}

// WithLoader sets where Load reads graph documents from.
func WithLoader(l ports.ScriptLoader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithStateStore sets the persistent script state. The default is an in-memory store.
func WithStateStore(s ports.StateStore) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithListener adds a listener receiving the events of every script.
func WithListener(l ports.EventListener) Option {
	return func(e *Engine) {
		e.listeners = append(e.listeners, l)
	}
}

// WithScriptListener adds a listener built per installed script, for consumers that need the script id.
func WithScriptListener(factory func(scriptID string) ports.EventListener) Option {
	return func(e *Engine) {
		e.scoped = append(e.scoped, factory)
	}
}

// WithMetrics records the events of every script into m.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithQuotas sets the base quotas. Documents may override them per script.
func WithQuotas(q Quotas) Option {
	return func(e *Engine) {
		e.quotas = q
	}
}

// WithFolding toggles constant folding of installed graphs. It is on by default.
func WithFolding(enabled bool) Option {
	return func(e *Engine) {
		e.fold = enabled
	}
}

// WithAutoPrune drops redundant data edges reported by the validator before rejecting a graph.
func WithAutoPrune(enabled bool) Option {
	return func(e *Engine) {
		e.autoPrune = enabled
	}
}

// WithMaxInputSize bounds every string of the inputs given to Fire, in bytes.
// Zero keeps the default, which LATTICE_MAX_INPUT_SIZE may override.
func WithMaxInputSize(n int) Option {
	return func(e *Engine) {
		e.maxInput = n
	}
}

// New creates an Engine. Without options it runs the generic node catalogue on in-memory state.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		quotas:  runtime.DefaultQuotas(),
		fold:    true,
		parser:  compiler.NewParser(),
		scripts: make(map[string]*loadedScript),
	}
	for _, opt := range opts {
		opt(e)
	}

	if err := e.quotas.Validate(); err != nil {
		return nil, fmt.Errorf("invalid quotas: %w", err)
	}
	e.quotas = e.quotas.Normalize()

	if e.registry == nil {
		e.registry = nodes.NewRegistry()
	}
	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	if e.store == nil {
		e.store = memory.NewStore(memory.WithMaxEntries(e.quotas.MaxStateEntries))
	}

	e.runtime = runtime.NewEngine(e.registry, runtime.WithLogger(e.logger))
	return e, nil
}

// Load reads a script through the loader, then validates, folds and installs it.
// Quotas in the document override the engine quotas.
func (e *Engine) Load(ctx context.Context, scriptID string) (*domain.Graph, error) {
	if e.loader == nil {
		return nil, ErrNoLoader
	}
	data, err := e.loader.Load(ctx, scriptID)
	if err != nil {
		return nil, err
	}
	script, err := e.parser.Parse(data)
	if err != nil {
		return nil, err
	}
	if script.Graph.ID() != scriptID {
		return nil, fmt.Errorf("script %s: document declares id %q", scriptID, script.Graph.ID())
	}
	return e.installScript(ctx, script)
}

// LoadDocument installs a raw JSON or YAML graph document.
func (e *Engine) LoadDocument(ctx context.Context, data []byte) (*domain.Graph, error) {
	script, err := e.parser.Parse(data)
	if err != nil {
		return nil, err
	}
	return e.installScript(ctx, script)
}

func (e *Engine) installScript(ctx context.Context, script *compiler.Script) (*domain.Graph, error) {
	quotas, err := script.ResolveQuotas(e.quotas)
	if err != nil {
		return nil, err
	}
	return e.install(ctx, script.Graph, quotas)
}

// LoadAll loads every script the loader lists. Failures do not stop the others.
func (e *Engine) LoadAll(ctx context.Context) error {
	if e.loader == nil {
		return ErrNoLoader
	}
	ids, err := e.loader.List(ctx)
	if err != nil {
		return err
	}
	var errs []error
	for _, id := range ids {
		if _, err := e.Load(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Put installs an already built graph with the engine quotas.
func (e *Engine) Put(ctx context.Context, g *domain.Graph) (*domain.Graph, error) {
	return e.install(ctx, g, e.quotas)
}

// install replaces any previous version of the script, cancelling its in-flight runs.
func (e *Engine) install(ctx context.Context, g *domain.Graph, quotas Quotas) (*domain.Graph, error) {
	res := e.Validate(g)
	if !res.Valid && e.autoPrune && len(res.EdgesToRemove) > 0 {
		e.logger.Warn("pruning redundant edges", "script", g.ID(), "edges", res.EdgesToRemove)
		g = validator.PruneEdges(g, res.EdgesToRemove)
		res = e.Validate(g)
	}
	if !res.Valid {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidGraph, g.ID(), res.Err())
	}
	for _, w := range res.Warnings {
		e.logger.Warn("type propagation", "script", g.ID(), "edge", w.EdgeID, "msg", w.Message)
	}

	if e.fold {
		folded, err := compiler.Fold(ctx, g, e.registry, e.logger)
		if err != nil {
			return nil, err
		}
		g = folded
	}

	listeners := []ports.EventListener{observability.NewLogListener(e.logger, g.ID())}
	if e.metrics != nil {
		listeners = append(listeners, e.metrics.Listener(g.ID()))
	}
	for _, factory := range e.scoped {
		listeners = append(listeners, factory(g.ID()))
	}
	listeners = append(listeners, e.listeners...)

	sc := runtime.NewScriptContext(g.ID(),
		runtime.WithListener(observability.NewFanout(listeners...)),
		runtime.WithState(ports.Scope(e.store, g.ID())),
		runtime.WithQuotas(quotas),
	)

	e.mu.Lock()
	prev := e.scripts[g.ID()]
	e.scripts[g.ID()] = &loadedScript{graph: g, context: sc}
	e.mu.Unlock()

	if prev != nil {
		prev.context.Cancel()
	}
	e.logger.Debug("script installed", "script", g.ID(), "nodes", g.Len())
	return g, nil
}

// Validate runs the static checks against the engine registry.
func (e *Engine) Validate(g *domain.Graph) ValidationResult {
	return validator.Validate(g, e.registry)
}

func (e *Engine) lookup(scriptID string) (*loadedScript, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.scripts[scriptID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrScriptNotFound, scriptID)
	}
	return s, nil
}

// Graph returns the installed, possibly folded, graph of a script.
func (e *Engine) Graph(scriptID string) (*domain.Graph, error) {
	s, err := e.lookup(scriptID)
	if err != nil {
		return nil, err
	}
	return s.graph, nil
}

// Triggers lists the trigger nodes of a script.
func (e *Engine) Triggers(scriptID string) ([]string, error) {
	s, err := e.lookup(scriptID)
	if err != nil {
		return nil, err
	}
	return e.runtime.Triggers(s.graph), nil
}

// Fire runs one trigger of a script with the given event inputs.
// Node failures reach the listeners only; the error reports quota aborts, cancellation and unknown ids.
func (e *Engine) Fire(ctx context.Context, scriptID, triggerID string, inputs map[string]any) error {
	s, err := e.lookup(scriptID)
	if err != nil {
		return err
	}
	inputs, err = SanitizeInputs(inputs, e.maxInput)
	if err != nil {
		return fmt.Errorf("trigger inputs: %w", err)
	}
	values, err := domain.ValuesFromMap(inputs)
	if err != nil {
		return fmt.Errorf("trigger inputs: %w", err)
	}
	return e.runtime.ExecuteFromTrigger(ctx, s.graph, triggerID, s.context, values)
}

// Run fires every trigger of a script concurrently and reports whether the script completed cleanly.
func (e *Engine) Run(ctx context.Context, scriptID string) error {
	s, err := e.lookup(scriptID)
	if err != nil {
		return err
	}
	return e.runtime.Execute(ctx, s.graph, s.context)
}

// Cancel stops every in-flight run of a script. Later triggers fail until the script is loaded again.
func (e *Engine) Cancel(scriptID string) error {
	s, err := e.lookup(scriptID)
	if err != nil {
		return err
	}
	s.context.Cancel()
	return nil
}

// Scripts returns the ids of the installed scripts, sorted.
func (e *Engine) Scripts() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ids := make([]string, 0, len(e.scripts))
	for id := range e.scripts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Registry returns the node catalogue the engine executes.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// Loader returns the configured ScriptLoader, or nil.
func (e *Engine) Loader() ports.ScriptLoader {
	return e.loader
}

// Watch returns a channel that signals when a script document changes.
// Returns error if the loader does not support watching.
func (e *Engine) Watch(ctx context.Context) (<-chan string, error) {
	if w, ok := e.loader.(ports.Watchable); ok {
		return w.Watch(ctx)
	}
	return nil, fmt.Errorf("current loader does not support watching")
}

// Close cancels every script and closes the state store when it holds resources.
func (e *Engine) Close() error {
	e.mu.Lock()
	scripts := e.scripts
	e.scripts = make(map[string]*loadedScript)
	e.mu.Unlock()

	for _, s := range scripts {
		s.context.Cancel()
	}
	if c, ok := e.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
