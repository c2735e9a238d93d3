package mock

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/chameleon-db/chameleon-mock/pkg/engine"
	"github.com/google/uuid"
)

// Kind is the request category an expectation answers
type Kind int

const (
	DefaultValues Kind = iota
	Items
	Scalar
	Insert
	Update
	Delete
)

var kindNames = map[Kind]string{
	DefaultValues: "default_values",
	Items:         "items",
	Scalar:        "scalar",
	Insert:        "insert",
	Update:        "update",
	Delete:        "delete",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind parses a kind name such as "insert" or "default_values"
func ParseKind(s string) (Kind, error) {
	needle := strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == needle {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown mock kind %q", s)
}

// KindOf maps a mutation type to the saving kind that answers it
func KindOf(t engine.MutationType) Kind {
	switch t {
	case engine.MutationInsert:
		return Insert
	case engine.MutationUpdate:
		return Update
	default:
		return Delete
	}
}

func (k Kind) saving() bool {
	return k == Insert || k == Update || k == Delete
}

// Spec is the read-only view of a registered expectation
type Spec interface {
	ID() uuid.UUID
	SchemaName() string
	Kind() Kind
	ReceivedCount() int
	Received() bool
	Err() error
	Parameters() Parameters
	ColumnValues() ColumnValues

	base() *spec
}

// spec holds what every expectation shares: identity, predicates and the
// received counter
type spec struct {
	id      uuid.UUID
	schema  string
	kind    Kind
	params  Parameters
	columns ColumnValues

	received int64 // atomic
	err      error
}

func newSpec(schema string, kind Kind) spec {
	return spec{
		id:      uuid.New(),
		schema:  schema,
		kind:    kind,
		params:  make(Parameters),
		columns: make(ColumnValues),
	}
}

func (s *spec) ID() uuid.UUID      { return s.id }
func (s *spec) SchemaName() string { return s.schema }
func (s *spec) Kind() Kind         { return s.kind }
func (s *spec) ReceivedCount() int { return int(atomic.LoadInt64(&s.received)) }
func (s *spec) Received() bool     { return s.ReceivedCount() > 0 }
func (s *spec) base() *spec        { return s }

// Err returns the first error recorded while building the expectation
func (s *spec) Err() error {
	if s.err == nil {
		return nil
	}
	return &SpecError{ID: s.id, Kind: s.kind, Schema: s.schema, Err: s.err}
}

// Parameters returns a copy of the filter predicate
func (s *spec) Parameters() Parameters {
	out := make(Parameters, len(s.params))
	for c := range s.params {
		out.Add(c)
	}
	return out
}

// ColumnValues returns a copy of the column-value predicate
func (s *spec) ColumnValues() ColumnValues {
	out := make(ColumnValues, len(s.columns))
	for k, v := range s.columns {
		out[k] = v
	}
	return out
}

func (s *spec) fail(err error) {
	if s.err == nil {
		s.err = err
	}
}

func (s *spec) addFilter(field, op string, value interface{}) {
	c, err := extractCondition(s.schema, engine.Cond(field, op, value).Condition)
	if err != nil {
		s.fail(err)
		return
	}
	s.params.Add(c)
}

func (s *spec) addColumn(column string, value interface{}) {
	v, err := NormalizeValue(value)
	if err != nil {
		s.fail(&ExtractionError{Entity: s.schema, Path: column, Reason: err.Error()})
		return
	}
	s.columns[column] = v
}

// checkByParameters reports whether actual satisfies every registered
// filter
func (s *spec) checkByParameters(actual Parameters) bool {
	return actual.Contains(s.params)
}

// checkByColumnValues reports whether actual satisfies every registered
// column value
func (s *spec) checkByColumnValues(actual ColumnValues) bool {
	return actual.Contains(s.columns)
}

// onReceived bumps the counter and returns its new value
func (s *spec) onReceived() int {
	return int(atomic.AddInt64(&s.received, 1))
}

func (s *spec) describe() string {
	var parts []string
	if len(s.params) > 0 {
		parts = append(parts, "filters "+s.params.String())
	}
	if len(s.columns) > 0 {
		parts = append(parts, "values "+s.columns.String())
	}
	if len(parts) == 0 {
		return "any"
	}
	return strings.Join(parts, " ")
}

func copyRow(row engine.Row) engine.Row {
	if row == nil {
		return nil
	}
	out := make(engine.Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}

func copyRows(rows []engine.Row) []engine.Row {
	out := make([]engine.Row, len(rows))
	for i, row := range rows {
		out[i] = copyRow(row)
	}
	return out
}
