package mock

import (
	"fmt"
	"sort"
	"strings"

	"github.com/chameleon-db/chameleon-mock/pkg/engine"
)

// Condition is one normalized filter: field path, canonical operator and
// literal
type Condition struct {
	Path  string
	Op    string
	Value Value
}

func (c Condition) String() string {
	return fmt.Sprintf("%s %s %s", c.Path, c.Op, c.Value)
}

// Parameters is the set of conditions a query filters on. Two queries built
// differently but filtering on the same things have equal Parameters.
type Parameters map[Condition]struct{}

// Add inserts a condition
func (p Parameters) Add(c Condition) {
	p[c] = struct{}{}
}

// Has reports whether c is in the set
func (p Parameters) Has(c Condition) bool {
	_, ok := p[c]
	return ok
}

// Contains reports whether every condition of expected is in p. An empty
// expected set is contained in anything.
func (p Parameters) Contains(expected Parameters) bool {
	for c := range expected {
		if !p.Has(c) {
			return false
		}
	}
	return true
}

// Sorted returns the conditions ordered by path, operator and value
func (p Parameters) Sorted() []Condition {
	out := make([]Condition, 0, len(p))
	for c := range p {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		if out[i].Op != out[j].Op {
			return out[i].Op < out[j].Op
		}
		return out[i].Value.String() < out[j].Value.String()
	})
	return out
}

func (p Parameters) String() string {
	parts := make([]string, 0, len(p))
	for _, c := range p.Sorted() {
		parts = append(parts, c.String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// ColumnValues maps column names to normalized values
type ColumnValues map[string]Value

// Contains reports whether every expected column is present in c with an
// equal value
func (c ColumnValues) Contains(expected ColumnValues) bool {
	for column, want := range expected {
		got, ok := c[column]
		if !ok || got != want {
			return false
		}
	}
	return true
}

func (c ColumnValues) String() string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + c[k].String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// ExtractParameters flattens a filter list into Parameters. Filters in the
// list and And nodes are conjunctions; Or nodes, empty expressions and
// unknown operators are rejected.
func ExtractParameters(entity string, filters []engine.FilterExpr) (Parameters, error) {
	params := make(Parameters)
	for _, f := range filters {
		if err := extractExpr(entity, f, params); err != nil {
			return nil, err
		}
	}
	return params, nil
}

func extractExpr(entity string, expr engine.FilterExpr, params Parameters) error {
	switch {
	case expr.Condition != nil && expr.Binary != nil:
		return &ExtractionError{Entity: entity, Reason: "filter holds both a condition and a binary expression"}

	case expr.Condition != nil:
		c, err := extractCondition(entity, expr.Condition)
		if err != nil {
			return err
		}
		params.Add(c)
		return nil

	case expr.Binary != nil:
		if expr.Binary.Op != engine.LogicalAnd {
			return &ExtractionError{Entity: entity, Reason: fmt.Sprintf("%q expressions cannot be matched", expr.Binary.Op)}
		}
		if err := extractExpr(entity, expr.Binary.Left, params); err != nil {
			return err
		}
		return extractExpr(entity, expr.Binary.Right, params)
	}

	return &ExtractionError{Entity: entity, Reason: "empty filter expression"}
}

func extractCondition(entity string, cond *engine.FilterCondition) (Condition, error) {
	path := cond.Field.String()
	if path == "" {
		return Condition{}, &ExtractionError{Entity: entity, Reason: "condition without a field"}
	}

	op := engine.NormalizeOp(cond.Op)
	if !engine.KnownOp(op) {
		return Condition{}, &ExtractionError{Entity: entity, Path: path, Reason: fmt.Sprintf("unknown operator %q", cond.Op)}
	}

	value, err := normalizeLiteral(cond.Value)
	if err != nil {
		return Condition{}, &ExtractionError{Entity: entity, Path: path, Reason: err.Error()}
	}
	return Condition{Path: path, Op: op, Value: value}, nil
}

// ExtractColumnValues normalizes the column values of an insert or update.
// Map values are JSON objects unless they hold exactly one literal tag
// such as {"Int": 5}; see NormalizeValue.
func ExtractColumnValues(entity string, values map[string]interface{}) (ColumnValues, error) {
	out := make(ColumnValues, len(values))
	for column, raw := range values {
		v, err := NormalizeValue(raw)
		if err != nil {
			return nil, &ExtractionError{Entity: entity, Path: column, Reason: err.Error()}
		}
		out[column] = v
	}
	return out, nil
}

// ExtractSelect returns the predicates of a select query
func ExtractSelect(q *engine.SelectQuery) (Parameters, error) {
	if q == nil {
		return nil, &ExtractionError{Reason: "nil select query"}
	}
	return ExtractParameters(q.Entity, q.Filters)
}

// Mutation is the matchable form of one batch item
type Mutation struct {
	Entity  string
	Kind    Kind
	Columns ColumnValues
	Params  Parameters
}

// ExtractMutation normalizes an insert, update or delete. Any other item,
// including a typed nil, is ErrUnsupportedOperation.
func ExtractMutation(q engine.BatchQuery) (Mutation, error) {
	var (
		m       Mutation
		values  map[string]interface{}
		filters []engine.FilterExpr
	)

	switch q := q.(type) {
	case *engine.InsertQuery:
		if q == nil {
			return m, fmt.Errorf("%w: nil insert", ErrUnsupportedOperation)
		}
		m.Entity, m.Kind, values = q.Entity, Insert, q.Values
	case *engine.UpdateQuery:
		if q == nil {
			return m, fmt.Errorf("%w: nil update", ErrUnsupportedOperation)
		}
		m.Entity, m.Kind, values, filters = q.Entity, Update, q.Values, q.Filters
	case *engine.DeleteQuery:
		if q == nil {
			return m, fmt.Errorf("%w: nil delete", ErrUnsupportedOperation)
		}
		m.Entity, m.Kind, filters = q.Entity, Delete, q.Filters
	default:
		return m, fmt.Errorf("%w: %T", ErrUnsupportedOperation, q)
	}

	var err error
	if m.Columns, err = ExtractColumnValues(m.Entity, values); err != nil {
		return m, err
	}
	if m.Params, err = ExtractParameters(m.Entity, filters); err != nil {
		return m, err
	}
	return m, nil
}

// isScalarQuery reports whether q projects exactly one aggregated column
func isScalarQuery(q *engine.SelectQuery) bool {
	return len(q.Columns) == 1 && q.Columns[0].Expr.Aggregation != engine.AggregationNone
}
