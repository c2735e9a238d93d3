package engine

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Dialect selects placeholder and identifier quoting rules
type Dialect int

const (
	DialectPostgres Dialect = iota
	DialectMySQL
)

func (d Dialect) String() string {
	if d == DialectMySQL {
		return "mysql"
	}
	return "postgres"
}

// ParseDialect accepts "postgres", "postgresql", "pq", "pgx" and "mysql"
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "postgres", "postgresql", "pq", "pgx":
		return DialectPostgres, nil
	case "mysql":
		return DialectMySQL, nil
	default:
		return DialectPostgres, fmt.Errorf("unknown SQL dialect %q", s)
	}
}

func (d Dialect) placeholder(n int) string {
	if d == DialectMySQL {
		return "?"
	}
	return "$" + strconv.Itoa(n)
}

func (d Dialect) quote(ident string) string {
	if d == DialectMySQL {
		return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// TableNamer maps an entity name to its physical table
type TableNamer func(entity string) string

// Statement is rendered SQL plus its positional arguments
type Statement struct {
	SQL  string
	Args []interface{}
}

// Renderer turns query objects into parameterized SQL
type Renderer struct {
	dialect Dialect
	tables  TableNamer
}

// NewRenderer creates a renderer. A nil TableNamer uses entity names as tables.
func NewRenderer(dialect Dialect, tables TableNamer) *Renderer {
	if tables == nil {
		tables = func(entity string) string { return entity }
	}
	return &Renderer{dialect: dialect, tables: tables}
}

// statement accumulates SQL text and arguments for a single render
type statement struct {
	dialect Dialect
	sql     strings.Builder
	args    []interface{}
}

func (s *statement) bind(value interface{}) string {
	s.args = append(s.args, value)
	return s.dialect.placeholder(len(s.args))
}

func (s *statement) done() *Statement {
	return &Statement{SQL: s.sql.String(), Args: s.args}
}

// Select renders a SelectQuery
func (r *Renderer) Select(q *SelectQuery) (*Statement, error) {
	if q == nil || q.Entity == "" {
		return nil, fmt.Errorf("select: entity is required")
	}
	st := &statement{dialect: r.dialect}

	st.sql.WriteString("SELECT ")
	if len(q.Columns) == 0 {
		st.sql.WriteString("*")
	}
	for i, col := range q.Columns {
		if i > 0 {
			st.sql.WriteString(", ")
		}
		st.sql.WriteString(r.column(col))
	}

	st.sql.WriteString(" FROM ")
	st.sql.WriteString(r.dialect.quote(r.tables(q.Entity)))

	if err := r.where(st, q.Filters); err != nil {
		return nil, err
	}

	if len(q.OrderBy) > 0 {
		st.sql.WriteString(" ORDER BY ")
		for i, ob := range q.OrderBy {
			if i > 0 {
				st.sql.WriteString(", ")
			}
			dir := "ASC"
			if strings.EqualFold(ob.Direction, "desc") {
				dir = "DESC"
			}
			st.sql.WriteString(r.path(parseFieldPath(ob.Field)) + " " + dir)
		}
	}

	if q.Limit != nil {
		fmt.Fprintf(&st.sql, " LIMIT %d", *q.Limit)
	}
	if q.Offset != nil {
		fmt.Fprintf(&st.sql, " OFFSET %d", *q.Offset)
	}

	return st.done(), nil
}

// Insert renders an InsertQuery with columns in sorted order
func (r *Renderer) Insert(q *InsertQuery) (*Statement, error) {
	if len(q.Values) == 0 {
		return nil, fmt.Errorf("insert into %s: no values", q.Entity)
	}
	st := &statement{dialect: r.dialect}

	cols := sortedKeys(q.Values)
	quoted := make([]string, len(cols))
	placeholders := make([]string, len(cols))
	for i, col := range cols {
		quoted[i] = r.dialect.quote(col)
		placeholders[i] = st.bind(q.Values[col])
	}

	fmt.Fprintf(&st.sql, "INSERT INTO %s (%s) VALUES (%s)",
		r.dialect.quote(r.tables(q.Entity)),
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "),
	)
	return st.done(), nil
}

// Update renders an UpdateQuery. No filters means no WHERE clause.
func (r *Renderer) Update(q *UpdateQuery) (*Statement, error) {
	if len(q.Values) == 0 {
		return nil, fmt.Errorf("update %s: no values", q.Entity)
	}
	st := &statement{dialect: r.dialect}

	cols := sortedKeys(q.Values)
	sets := make([]string, len(cols))
	for i, col := range cols {
		sets[i] = r.dialect.quote(col) + " = " + st.bind(q.Values[col])
	}

	fmt.Fprintf(&st.sql, "UPDATE %s SET %s",
		r.dialect.quote(r.tables(q.Entity)),
		strings.Join(sets, ", "),
	)
	if err := r.where(st, q.Filters); err != nil {
		return nil, err
	}
	return st.done(), nil
}

// Delete renders a DeleteQuery
func (r *Renderer) Delete(q *DeleteQuery) (*Statement, error) {
	st := &statement{dialect: r.dialect}
	fmt.Fprintf(&st.sql, "DELETE FROM %s", r.dialect.quote(r.tables(q.Entity)))
	if err := r.where(st, q.Filters); err != nil {
		return nil, err
	}
	return st.done(), nil
}

// Batch renders any batch item
func (r *Renderer) Batch(q BatchQuery) (*Statement, error) {
	switch bq := q.(type) {
	case *InsertQuery:
		return r.Insert(bq)
	case *UpdateQuery:
		return r.Update(bq)
	case *DeleteQuery:
		return r.Delete(bq)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedOperation, q)
	}
}

func (r *Renderer) column(col Column) string {
	var expr string
	switch {
	case col.Expr.Aggregation == AggregationNone:
		expr = r.path(col.Expr.Field)
	case col.Expr.Field.IsEmpty():
		expr = strings.ToUpper(col.Expr.Aggregation.String()) + "(*)"
	default:
		expr = strings.ToUpper(col.Expr.Aggregation.String()) + "(" + r.path(col.Expr.Field) + ")"
	}
	if col.Alias != "" {
		expr += " AS " + r.dialect.quote(col.Alias)
	}
	return expr
}

func (r *Renderer) path(p FieldPath) string {
	quoted := make([]string, len(p.Segments))
	for i, seg := range p.Segments {
		quoted[i] = r.dialect.quote(seg)
	}
	return strings.Join(quoted, ".")
}

func (r *Renderer) where(st *statement, filters []FilterExpr) error {
	if len(filters) == 0 {
		return nil
	}
	parts := make([]string, 0, len(filters))
	for _, f := range filters {
		part, err := r.expr(st, f, false)
		if err != nil {
			return err
		}
		parts = append(parts, part)
	}
	st.sql.WriteString(" WHERE ")
	st.sql.WriteString(strings.Join(parts, " AND "))
	return nil
}

func (r *Renderer) expr(st *statement, e FilterExpr, nested bool) (string, error) {
	switch {
	case e.Condition != nil:
		return r.condition(st, e.Condition)
	case e.Binary != nil:
		var joiner string
		switch e.Binary.Op {
		case LogicalAnd:
			joiner = " AND "
		case LogicalOr:
			joiner = " OR "
		default:
			return "", fmt.Errorf("unknown logical operator %q", e.Binary.Op)
		}
		left, err := r.expr(st, e.Binary.Left, true)
		if err != nil {
			return "", err
		}
		right, err := r.expr(st, e.Binary.Right, true)
		if err != nil {
			return "", err
		}
		out := left + joiner + right
		if nested || e.Binary.Op == LogicalOr {
			out = "(" + out + ")"
		}
		return out, nil
	default:
		return "", fmt.Errorf("empty filter expression")
	}
}

var comparisonSQL = map[string]string{
	OpEq:   "=",
	OpNeq:  "<>",
	OpGt:   ">",
	OpGte:  ">=",
	OpLt:   "<",
	OpLte:  "<=",
	OpLike: "LIKE",
}

func (r *Renderer) condition(st *statement, c *FilterCondition) (string, error) {
	col := r.path(c.Field)
	value, err := LiteralValue(c.Value)
	if err != nil {
		return "", fmt.Errorf("filter on %s: %w", c.Field, err)
	}

	if c.Op == OpIn {
		items, ok := asList(value)
		if !ok {
			items = []interface{}{value}
		}
		if len(items) == 0 {
			return "1 = 0", nil
		}
		placeholders := make([]string, len(items))
		for i, item := range items {
			placeholders[i] = st.bind(item)
		}
		return col + " IN (" + strings.Join(placeholders, ", ") + ")", nil
	}

	sqlOp, ok := comparisonSQL[c.Op]
	if !ok {
		return "", &UnknownOperatorError{Field: c.Field.String(), Operator: c.Op}
	}
	if value == nil {
		switch c.Op {
		case OpEq:
			return col + " IS NULL", nil
		case OpNeq:
			return col + " IS NOT NULL", nil
		}
	}
	return col + " " + sqlOp + " " + st.bind(value), nil
}

// LiteralValue returns the Go value carried by a typed literal. Null yields
// nil and List yields []interface{}.
func LiteralValue(v FilterValue) (interface{}, error) {
	tag, raw, err := v.Unwrap()
	if err != nil {
		return nil, err
	}
	switch tag {
	case ValueNull:
		return nil, nil
	case ValueList:
		items, ok := asList(raw)
		if !ok {
			return nil, fmt.Errorf("List literal holds %T", raw)
		}
		return items, nil
	case ValueString, ValueInt, ValueFloat, ValueDecimal, ValueBool, ValueUUID, ValueTimestamp, ValueRaw:
		return raw, nil
	default:
		return nil, fmt.Errorf("unknown literal tag %q", tag)
	}
}

// asList flattens any slice or array (except []byte) into []interface{}
func asList(v interface{}) ([]interface{}, bool) {
	if items, ok := v.([]interface{}); ok {
		return items, true
	}
	if _, ok := v.([]byte); ok {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}
	// uuid.UUID is a [16]byte
	if rv.Kind() == reflect.Array && rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	items := make([]interface{}, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
