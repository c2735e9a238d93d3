package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// --- Query types ---

// FilterValue is a typed literal: a single entry mapping a type tag to the
// value, e.g. {"String": "ana"} or {"Int": 5}.
type FilterValue map[string]interface{}

// Typed literal tags understood by FilterValue.
const (
	ValueString    = "String"
	ValueInt       = "Int"
	ValueFloat     = "Float"
	ValueDecimal   = "Decimal"
	ValueBool      = "Bool"
	ValueUUID      = "UUID"
	ValueTimestamp = "Timestamp"
	ValueList      = "List"
	ValueNull      = "Null"

	// ValueRaw holds Go values with no literal tag of their own
	// (decimal.Decimal, uuid.UUID, time.Time, typed slices).
	ValueRaw = "Raw"
)

// IsLiteralTag reports whether tag is one of the typed literal tags.
func IsLiteralTag(tag string) bool {
	switch tag {
	case ValueString, ValueInt, ValueFloat, ValueDecimal, ValueBool,
		ValueUUID, ValueTimestamp, ValueList, ValueNull, ValueRaw:
		return true
	}
	return false
}

// Unwrap returns the tag and the raw value of a typed literal.
func (v FilterValue) Unwrap() (string, interface{}, error) {
	if len(v) != 1 {
		return "", nil, fmt.Errorf("typed literal must have exactly one tag, got %d", len(v))
	}
	for tag, raw := range v {
		return tag, raw, nil
	}
	return "", nil, nil
}

// UnmarshalJSON accepts either a typed literal object or a bare scalar.
func (v *FilterValue) UnmarshalJSON(data []byte) error {
	var tagged map[string]interface{}
	if err := json.Unmarshal(data, &tagged); err == nil && tagged != nil {
		*v = tagged
		return nil
	}
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = goValueToFilter(raw)
	return nil
}

// UnmarshalYAML accepts either a typed literal mapping or a bare scalar/sequence.
func (v *FilterValue) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.MappingNode {
		tagged := make(map[string]interface{})
		if err := node.Decode(&tagged); err != nil {
			return err
		}
		*v = tagged
		return nil
	}
	var raw interface{}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*v = goValueToFilter(raw)
	return nil
}

// Filter operators.
const (
	OpEq   = "Eq"
	OpNeq  = "Neq"
	OpGt   = "Gt"
	OpGte  = "Gte"
	OpLt   = "Lt"
	OpLte  = "Lte"
	OpLike = "Like"
	OpIn   = "In"
)

// Logical operators for BinaryExpr.
const (
	LogicalAnd = "And"
	LogicalOr  = "Or"
)

type FilterCondition struct {
	Field FieldPath   `json:"field" yaml:"field"`
	Op    string      `json:"op" yaml:"op"` // "Eq", "Neq", "Gt", etc.
	Value FilterValue `json:"value" yaml:"value"`
}

type FieldPath struct {
	Segments []string `json:"segments" yaml:"segments"`
}

// String joins the path with dots: "orders.total".
func (p FieldPath) String() string {
	return strings.Join(p.Segments, ".")
}

// IsEmpty reports whether the path has no segments (e.g. COUNT(*)).
func (p FieldPath) IsEmpty() bool {
	return len(p.Segments) == 0
}

// UnmarshalJSON accepts "orders.total" as well as {"segments": [...]}.
func (p *FieldPath) UnmarshalJSON(data []byte) error {
	var dotted string
	if err := json.Unmarshal(data, &dotted); err == nil {
		*p = parseFieldPath(dotted)
		return nil
	}
	type plain FieldPath
	return json.Unmarshal(data, (*plain)(p))
}

// UnmarshalYAML accepts "orders.total" as well as {segments: [...]}.
func (p *FieldPath) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*p = parseFieldPath(node.Value)
		return nil
	}
	type plain FieldPath
	return node.Decode((*plain)(p))
}

type FilterExpr struct {
	Condition *FilterCondition `json:"Condition,omitempty" yaml:"condition,omitempty"`
	Binary    *BinaryExpr      `json:"Binary,omitempty" yaml:"binary,omitempty"`
}

type BinaryExpr struct {
	Left  FilterExpr `json:"left" yaml:"left"`
	Op    string     `json:"op" yaml:"op"` // "And", "Or"
	Right FilterExpr `json:"right" yaml:"right"`
}

// Cond builds a single-condition filter expression.
// op: "eq", "neq", "gt", "gte", "lt", "lte", "like", "in"
func Cond(field string, op string, value interface{}) FilterExpr {
	return FilterExpr{
		Condition: &FilterCondition{
			Field: parseFieldPath(field),
			Op:    NormalizeOp(op),
			Value: goValueToFilter(value),
		},
	}
}

// And joins two expressions with a logical AND.
func And(left, right FilterExpr) FilterExpr {
	return FilterExpr{Binary: &BinaryExpr{Left: left, Op: LogicalAnd, Right: right}}
}

// Or joins two expressions with a logical OR.
func Or(left, right FilterExpr) FilterExpr {
	return FilterExpr{Binary: &BinaryExpr{Left: left, Op: LogicalOr, Right: right}}
}

type IncludePath struct {
	Path []string `json:"path" yaml:"path"`
}

type OrderByClause struct {
	Field     string `json:"field" yaml:"field"`
	Direction string `json:"direction" yaml:"direction"` // "Asc", "Desc"
}

// AggregationType is the aggregate function applied to a projected column.
type AggregationType int

const (
	AggregationNone AggregationType = iota
	AggregationCount
	AggregationSum
	AggregationAvg
	AggregationMin
	AggregationMax
)

var aggregationNames = map[AggregationType]string{
	AggregationNone:  "none",
	AggregationCount: "count",
	AggregationSum:   "sum",
	AggregationAvg:   "avg",
	AggregationMin:   "min",
	AggregationMax:   "max",
}

func (a AggregationType) String() string {
	if name, ok := aggregationNames[a]; ok {
		return name
	}
	return fmt.Sprintf("aggregation(%d)", int(a))
}

// ParseAggregationType parses "count", "SUM", "avg", ...
func ParseAggregationType(s string) (AggregationType, error) {
	needle := strings.ToLower(strings.TrimSpace(s))
	if needle == "" {
		return AggregationNone, nil
	}
	for agg, name := range aggregationNames {
		if name == needle {
			return agg, nil
		}
	}
	return AggregationNone, fmt.Errorf("unknown aggregation type %q", s)
}

func (a AggregationType) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *AggregationType) UnmarshalText(text []byte) error {
	parsed, err := ParseAggregationType(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ColumnExpr is the expression behind a projected column. An empty Field with
// an aggregation means "all rows" (COUNT(*)).
type ColumnExpr struct {
	Field       FieldPath       `json:"field" yaml:"field"`
	Aggregation AggregationType `json:"aggregation,omitempty" yaml:"aggregation,omitempty"`
}

type Column struct {
	Alias string     `json:"alias,omitempty" yaml:"alias,omitempty"`
	Expr  ColumnExpr `json:"expr" yaml:"expr"`
}

// Name returns the alias or, failing that, the dotted field path.
func (c Column) Name() string {
	if c.Alias != "" {
		return c.Alias
	}
	return c.Expr.Field.String()
}

// SelectQuery is a read query against a single root entity.
type SelectQuery struct {
	Entity   string          `json:"entity" yaml:"entity"`
	Columns  []Column        `json:"columns" yaml:"columns"`
	Filters  []FilterExpr    `json:"filters" yaml:"filters"`
	Includes []IncludePath   `json:"includes" yaml:"includes"`
	OrderBy  []OrderByClause `json:"order_by" yaml:"order_by"`
	Limit    *uint64         `json:"limit" yaml:"limit"`
	Offset   *uint64         `json:"offset" yaml:"offset"`
}

// QueryResult is what QueryBuilder.Execute hands back.
type QueryResult struct {
	Entity string
	Rows   []Row
}

// --- Query Builder ---

// QueryBuilder provides a chainable API for building queries
type QueryBuilder struct {
	engine     *Engine
	query      SelectQuery
	debugLevel *DebugLevel
}

// NewQuery starts a query that is not bound to an engine. It can be built
// and rendered but not executed.
func NewQuery(entity string) *QueryBuilder {
	return &QueryBuilder{
		query: SelectQuery{
			Entity:   entity,
			Columns:  []Column{},
			Filters:  []FilterExpr{},
			Includes: []IncludePath{},
			OrderBy:  []OrderByClause{},
		},
	}
}

// Query starts a new query for the given entity
func (e *Engine) Query(entity string) *QueryBuilder {
	qb := NewQuery(entity)
	qb.engine = e
	return qb
}

// Select adds plain projected columns
func (qb *QueryBuilder) Select(fields ...string) *QueryBuilder {
	for _, field := range fields {
		qb.query.Columns = append(qb.query.Columns, Column{
			Expr: ColumnExpr{Field: parseFieldPath(field)},
		})
	}
	return qb
}

// Aggregate projects an aggregated column. An empty field aggregates over
// all rows; an empty alias defaults to the function name ("count", "sum").
func (qb *QueryBuilder) Aggregate(agg AggregationType, field string, alias string) *QueryBuilder {
	if alias == "" {
		alias = agg.String()
	}
	qb.query.Columns = append(qb.query.Columns, Column{
		Alias: alias,
		Expr:  ColumnExpr{Field: parseFieldPath(field), Aggregation: agg},
	})
	return qb
}

// Count projects COUNT(field), or COUNT(*) for an empty field
func (qb *QueryBuilder) Count(field string) *QueryBuilder {
	return qb.Aggregate(AggregationCount, field, "")
}

func (qb *QueryBuilder) Sum(field string) *QueryBuilder {
	return qb.Aggregate(AggregationSum, field, "")
}

func (qb *QueryBuilder) Avg(field string) *QueryBuilder {
	return qb.Aggregate(AggregationAvg, field, "")
}

func (qb *QueryBuilder) Min(field string) *QueryBuilder {
	return qb.Aggregate(AggregationMin, field, "")
}

func (qb *QueryBuilder) Max(field string) *QueryBuilder {
	return qb.Aggregate(AggregationMax, field, "")
}

// Filter adds a filter condition
// field: "email" or "orders.total" (supports relation navigation)
// op: "eq", "neq", "gt", "gte", "lt", "lte", "like", "in"
// value: string, int, float, bool, decimal, uuid, time or a slice for "in"
func (qb *QueryBuilder) Filter(field string, op string, value interface{}) *QueryBuilder {
	qb.query.Filters = append(qb.query.Filters, Cond(field, op, value))
	return qb
}

// Where adds a prebuilt filter expression (see And, Or, Cond)
func (qb *QueryBuilder) Where(expr FilterExpr) *QueryBuilder {
	qb.query.Filters = append(qb.query.Filters, expr)
	return qb
}

// Include adds eager loading for a relation
// Supports nested paths: "orders", "orders.items"
func (qb *QueryBuilder) Include(path string) *QueryBuilder {
	qb.query.Includes = append(qb.query.Includes, IncludePath{
		Path: splitPath(path),
	})
	return qb
}

// OrderBy adds a sort clause
// direction: "asc" or "desc"
func (qb *QueryBuilder) OrderBy(field string, direction string) *QueryBuilder {
	dir := "Asc"
	if strings.EqualFold(direction, "desc") {
		dir = "Desc"
	}
	qb.query.OrderBy = append(qb.query.OrderBy, OrderByClause{
		Field:     field,
		Direction: dir,
	})
	return qb
}

// Limit sets the maximum number of results
func (qb *QueryBuilder) Limit(n uint64) *QueryBuilder {
	qb.query.Limit = &n
	return qb
}

// Offset sets the number of results to skip
func (qb *QueryBuilder) Offset(n uint64) *QueryBuilder {
	qb.query.Offset = &n
	return qb
}

// Debug logs this query's SQL regardless of the engine level
func (qb *QueryBuilder) Debug() *QueryBuilder {
	level := DebugSQL
	qb.debugLevel = &level
	return qb
}

// DebugTrace logs a full trace for this query
func (qb *QueryBuilder) DebugTrace() *QueryBuilder {
	level := DebugTrace
	qb.debugLevel = &level
	return qb
}

// getDebugContext resolves the query-level override against the engine's context
func (qb *QueryBuilder) getDebugContext() *DebugContext {
	var base *DebugContext
	if qb.engine != nil && qb.engine.Debug != nil {
		base = qb.engine.Debug
	} else {
		base = DefaultDebugContext()
	}
	if qb.debugLevel == nil {
		return base
	}
	dc := *base
	dc.Level = *qb.debugLevel
	return &dc
}

// Build returns the query object handed to data providers
func (qb *QueryBuilder) Build() *SelectQuery {
	q := qb.query
	return &q
}

// Validate checks the query against the engine's schema. Queries on an
// engine without a schema are not checked.
func (qb *QueryBuilder) Validate() error {
	if qb.engine == nil || qb.engine.schema == nil {
		return nil
	}
	return NewValidator(qb.engine.schema, DefaultValidatorConfig()).ValidateSelect(qb.Build())
}

// ToSQL renders the query without executing it.
// Useful for debugging and testing
func (qb *QueryBuilder) ToSQL() (*Statement, error) {
	dialect := DialectPostgres
	var tables TableNamer
	if qb.engine != nil {
		dialect = qb.engine.dialect
		tables = qb.engine.tableName
	}
	return NewRenderer(dialect, tables).Select(qb.Build())
}

// Execute sends the query to the engine's data provider.
// Returns ErrNoResponse when the provider has nothing for this query.
func (qb *QueryBuilder) Execute(ctx context.Context) (*QueryResult, error) {
	if qb.engine == nil {
		return nil, fmt.Errorf("%w: query built with NewQuery", ErrNoProvider)
	}
	provider, err := qb.engine.requireProvider()
	if err != nil {
		return nil, err
	}

	if err := qb.Validate(); err != nil {
		return nil, err
	}

	q := qb.Build()
	dc := qb.getDebugContext()
	dc.Log(DebugTrace, "select %s (%d columns, %d filters)", q.Entity, len(q.Columns), len(q.Filters))
	if dc.Enabled(DebugSQL) {
		if stmt, err := qb.ToSQL(); err == nil {
			dc.LogSQL(stmt.SQL, stmt.Args)
		}
	}

	resp, err := provider.GetItems(ctx, q)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: select on %s", ErrNoResponse, q.Entity)
	}
	if !resp.Success {
		return nil, &ProviderError{Operation: "select", Entity: q.Entity, Message: resp.ErrorMessage}
	}

	return &QueryResult{
		Entity: q.Entity,
		Rows:   resp.Rows,
	}, nil
}

// --- Helpers ---
func parseFieldPath(path string) FieldPath {
	return FieldPath{Segments: splitPath(path)}
}

func splitPath(path string) []string {
	segments := []string{}
	for _, part := range strings.Split(path, ".") {
		if part = strings.TrimSpace(part); part != "" {
			segments = append(segments, part)
		}
	}
	return segments
}

var goOps = map[string]string{
	"eq":   OpEq,
	"neq":  OpNeq,
	"gt":   OpGt,
	"gte":  OpGte,
	"lt":   OpLt,
	"lte":  OpLte,
	"like": OpLike,
	"in":   OpIn,
}

// NormalizeOp maps "eq"/"EQ"/"Eq" to the canonical operator name. Unknown
// operators are returned unchanged so validation can report them.
func NormalizeOp(op string) string {
	if canonical, ok := goOps[strings.ToLower(strings.TrimSpace(op))]; ok {
		return canonical
	}
	return op
}

// KnownOp reports whether op is one of the canonical operators.
func KnownOp(op string) bool {
	for _, canonical := range goOps {
		if canonical == op {
			return true
		}
	}
	return false
}

func goValueToFilter(value interface{}) FilterValue {
	switch v := value.(type) {
	case FilterValue:
		return v
	case string:
		return FilterValue{ValueString: v}
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return FilterValue{ValueInt: v}
	case float32, float64:
		return FilterValue{ValueFloat: v}
	case bool:
		return FilterValue{ValueBool: v}
	case []interface{}:
		return FilterValue{ValueList: v}
	case nil:
		return FilterValue{ValueNull: nil}
	default:
		return FilterValue{ValueRaw: v}
	}
}

// FilterPaths returns the distinct field paths referenced by the filters,
// sorted.
func FilterPaths(filters []FilterExpr) []string {
	seen := make(map[string]struct{})
	var walk func(expr FilterExpr)
	walk = func(expr FilterExpr) {
		if expr.Condition != nil {
			seen[expr.Condition.Field.String()] = struct{}{}
		}
		if expr.Binary != nil {
			walk(expr.Binary.Left)
			walk(expr.Binary.Right)
		}
	}
	for _, f := range filters {
		walk(f)
	}

	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
