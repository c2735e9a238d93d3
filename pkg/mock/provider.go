package mock

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chameleon-db/chameleon-mock/pkg/engine"
	"github.com/google/uuid"
)

var _ engine.DataProvider = (*Provider)(nil)

// Provider is an in-memory engine.DataProvider answering from registered
// expectations
type Provider struct {
	mu sync.Mutex

	defaults defaultsRegistry
	items    registry[*ItemsMock]
	scalars  registry[*ScalarMock]
	saving   registry[*SavingItemMock]

	debug *engine.DebugContext
}

// Option configures a Provider
type Option func(*Provider)

// WithDebug logs every lookup through dc
func WithDebug(dc *engine.DebugContext) Option {
	return func(p *Provider) {
		p.debug = dc
	}
}

// NewProvider creates an empty provider
func NewProvider(opts ...Option) *Provider {
	p := &Provider{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SetDebug is called by engine.Engine.UseProvider
func (p *Provider) SetDebug(dc *engine.DebugContext) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.debug = dc
}

// ─────────────────────────────────────────────────────────────
// Registration
// ─────────────────────────────────────────────────────────────

// MockDefaultValues returns the default-values mock of schema, creating it on
// first use
func (p *Provider) MockDefaultValues(schema string) *DefaultValuesMock {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.defaults.getOrCreate(schema)
}

// MockItems registers a collection read expectation
func (p *Provider) MockItems(schema string) *ItemsMock {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.items.add(&ItemsMock{spec: newSpec(schema, Items)})
}

// MockScalar registers a single-aggregate read expectation
func (p *Provider) MockScalar(schema string, agg engine.AggregationType) *ScalarMock {
	p.mu.Lock()
	defer p.mu.Unlock()
	m := &ScalarMock{spec: newSpec(schema, Scalar), aggregation: agg}
	if agg == engine.AggregationNone {
		m.fail(errors.New("scalar mocks need an aggregation"))
	}
	return p.scalars.add(m)
}

// MockSavingItem registers an insert, update or delete expectation
func (p *Provider) MockSavingItem(schema string, kind Kind) *SavingItemMock {
	p.mu.Lock()
	defer p.mu.Unlock()
	m := &SavingItemMock{spec: newSpec(schema, kind)}
	if !kind.saving() {
		m.fail(fmt.Errorf("%w: %s is not a saving kind", ErrUnsupportedOperation, kind))
	}
	return p.saving.add(m)
}

// ─────────────────────────────────────────────────────────────
// engine.DataProvider
// ─────────────────────────────────────────────────────────────

// GetDefaultValues answers from the default-values mock of schema. It
// returns (nil, nil) when none is registered.
func (p *Provider) GetDefaultValues(ctx context.Context, schema string) (*engine.DefaultValuesResponse, error) {
	m, err := p.matchDefaults(schema)
	if m == nil || err != nil {
		return nil, err
	}
	return m.response(), nil
}

func (p *Provider) matchDefaults(schema string) (*DefaultValuesMock, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	m, ok := p.defaults.get(schema)
	if !ok {
		p.debug.Log(engine.DebugTrace, "mock: no default values for %s", schema)
		return nil, nil
	}
	if err := m.Err(); err != nil {
		return nil, err
	}
	n := m.onReceived()
	p.debug.Log(engine.DebugTrace, "mock: default values for %s (received %d)", schema, n)
	return m, nil
}

// GetItems answers a read. A query projecting one aggregated column is
// looked up among scalar mocks only; anything else among items mocks. It
// returns (nil, nil) when nothing matches.
//
// Result callbacks run after the provider is unlocked, so they may call
// back into it.
func (p *Provider) GetItems(ctx context.Context, q *engine.SelectQuery) (*engine.ItemsResponse, error) {
	params, err := ExtractSelect(q)
	if err != nil {
		return nil, err
	}

	if isScalarQuery(q) {
		m, err := p.matchScalar(q, params)
		if m == nil || err != nil {
			return nil, err
		}
		return m.response(q), nil
	}

	m, err := p.matchItems(q, params)
	if m == nil || err != nil {
		return nil, err
	}
	return m.response(q), nil
}

func (p *Provider) matchScalar(q *engine.SelectQuery, params Parameters) (*ScalarMock, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	agg := q.Columns[0].Expr.Aggregation
	m, ok, err := p.scalars.find(q.Entity, Scalar, func(m *ScalarMock) bool {
		return m.aggregation == agg && m.checkByParameters(params)
	})
	if err != nil || !ok {
		p.logMiss(Scalar, q.Entity, params, err)
		return nil, err
	}
	p.logHit(&m.spec, m.onReceived())
	return m, nil
}

func (p *Provider) matchItems(q *engine.SelectQuery, params Parameters) (*ItemsMock, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	m, ok, err := p.items.find(q.Entity, Items, func(m *ItemsMock) bool {
		return m.checkByParameters(params)
	})
	if err != nil || !ok {
		p.logMiss(Items, q.Entity, params, err)
		return nil, err
	}
	p.logHit(&m.spec, m.onReceived())
	return m, nil
}

// BatchExecute marks the first matching saving mock of every item as
// received. Unmatched items are ignored; the response is always a success
// with no per-item results.
func (p *Provider) BatchExecute(ctx context.Context, queries []engine.BatchQuery) (*engine.ExecuteResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, q := range queries {
		if err := p.receive(q); err != nil {
			return nil, fmt.Errorf("batch item %d: %w", i, err)
		}
	}
	return &engine.ExecuteResponse{
		Success:      true,
		ErrorMessage: "",
		QueryResults: []engine.ExecuteItemResponse{},
	}, nil
}

func (p *Provider) receive(q engine.BatchQuery) error {
	mut, err := ExtractMutation(q)
	if err != nil {
		return err
	}

	m, ok, err := p.saving.find(mut.Entity, mut.Kind, func(m *SavingItemMock) bool {
		return m.matches(mut.Columns, mut.Params)
	})
	if err != nil {
		return err
	}
	if !ok {
		p.logMiss(mut.Kind, mut.Entity, mut.Params, nil)
		return nil
	}
	p.logHit(&m.spec, m.onReceived())
	return nil
}

func (p *Provider) logHit(s *spec, received int) {
	p.debug.Log(engine.DebugTrace, "mock: %s %s matched %s (received %d)", s.kind, s.schema, s.describe(), received)
}

func (p *Provider) logMiss(kind Kind, entity string, params Parameters, err error) {
	if err != nil {
		p.debug.Log(engine.DebugTrace, "mock: %s %s failed: %v", kind, entity, err)
		return
	}
	p.debug.Log(engine.DebugTrace, "mock: %s %s unmatched for %s", kind, entity, params)
}

// ─────────────────────────────────────────────────────────────
// Verification
// ─────────────────────────────────────────────────────────────

// Specs returns every registered expectation: default values first, then
// items, scalars and saving mocks, each in registration order
func (p *Provider) Specs() []Spec {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []Spec
	out = append(out, p.defaults.all()...)
	out = append(out, p.items.all()...)
	out = append(out, p.scalars.all()...)
	out = append(out, p.saving.all()...)
	return out
}

// Unreceived returns the expectations no request has matched yet
func (p *Provider) Unreceived() []Spec {
	var out []Spec
	for _, s := range p.Specs() {
		if !s.Received() {
			out = append(out, s)
		}
	}
	return out
}

// Verify returns an error for every expectation that was never received or
// that failed to build, joined with errors.Join. It returns nil when all
// expectations were received.
func (p *Provider) Verify() error {
	var errs []error
	for _, s := range p.Specs() {
		if err := s.Err(); err != nil {
			errs = append(errs, err)
			continue
		}
		if !s.Received() {
			errs = append(errs, &UnreceivedError{ID: s.ID(), Kind: s.Kind(), Schema: s.SchemaName()})
		}
	}
	return errors.Join(errs...)
}

// SpecReport summarizes one expectation for display
type SpecReport struct {
	ID        uuid.UUID `json:"id" yaml:"id"`
	Kind      string    `json:"kind" yaml:"kind"`
	Schema    string    `json:"schema" yaml:"schema"`
	Predicate string    `json:"predicate" yaml:"predicate"`
	Received  int       `json:"received" yaml:"received"`
	Error     string    `json:"error,omitempty" yaml:"error,omitempty"`
}

// Report summarizes every registered expectation
func (p *Provider) Report() []SpecReport {
	specs := p.Specs()
	out := make([]SpecReport, len(specs))

	p.mu.Lock()
	defer p.mu.Unlock()
	for i, s := range specs {
		b := s.base()
		r := SpecReport{
			ID:        b.id,
			Kind:      b.kind.String(),
			Schema:    b.schema,
			Predicate: b.describe(),
			Received:  b.ReceivedCount(),
		}
		if err := s.Err(); err != nil {
			r.Error = err.Error()
		}
		out[i] = r
	}
	return out
}
