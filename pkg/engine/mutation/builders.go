package mutation

import (
	"context"
	"os"

	"github.com/chameleon-db/chameleon-mock/pkg/engine"
)

// BatchExecutor runs mutations. *engine.Engine satisfies it.
type BatchExecutor interface {
	ExecuteBatch(ctx context.Context, queries ...engine.BatchQuery) (*engine.ExecuteResponse, error)
}

// settings shared by all builders
type settings struct {
	schema   *engine.Schema
	config   engine.ValidatorConfig
	executor BatchExecutor
	debugCtx *engine.DebugContext
	dialect  engine.Dialect

	debug  bool
	dryRun bool
}

func newSettings(schema *engine.Schema) settings {
	return settings{
		schema: schema,
		config: engine.DefaultValidatorConfig(),
	}
}

// SetDialect selects the dialect used when logging SQL
func (s *settings) SetDialect(d engine.Dialect) {
	s.dialect = d
}

func (s *settings) debugContext() *engine.DebugContext {
	if !s.debug {
		return s.debugCtx
	}
	dc := engine.DebugContext{Writer: os.Stdout, ColorOutput: true}
	if s.debugCtx != nil {
		dc = *s.debugCtx
	}
	if dc.Level < engine.DebugSQL {
		dc.Level = engine.DebugSQL
	}
	return &dc
}

func (s *settings) render(q engine.BatchQuery) (*engine.Statement, error) {
	return engine.NewRenderer(s.dialect, tableNamer(s.schema)).Batch(q)
}

// run executes a single validated mutation through the executor
func (s *settings) run(ctx context.Context, q engine.BatchQuery) (*engine.ExecuteItemResponse, error) {
	if dc := s.debugContext(); dc.Enabled(engine.DebugSQL) {
		if stmt, err := s.render(q); err == nil {
			dc.LogSQL(stmt.SQL, stmt.Args)
		}
	}

	if s.dryRun {
		return &engine.ExecuteItemResponse{Success: true}, nil
	}
	if s.executor == nil {
		return nil, engine.ErrNoProvider
	}

	resp, err := s.executor.ExecuteBatch(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(resp.QueryResults) > 0 {
		item := resp.QueryResults[0]
		return &item, nil
	}
	return &engine.ExecuteItemResponse{Success: resp.Success, ErrorMessage: resp.ErrorMessage}, nil
}

func tableNamer(schema *engine.Schema) engine.TableNamer {
	return func(entity string) string {
		if schema != nil {
			if ent := schema.GetEntity(entity); ent != nil {
				return ent.TableName()
			}
		}
		return entity
	}
}

// ============================================================
// INSERT BUILDER
// ============================================================

type InsertBuilder struct {
	settings
	entity string
	values map[string]interface{}
}

func NewInsertBuilder(schema *engine.Schema, entity string) *InsertBuilder {
	return &InsertBuilder{
		settings: newSettings(schema),
		entity:   entity,
		values:   make(map[string]interface{}),
	}
}

// WithExecutor sets where Execute sends the mutation
func (ib *InsertBuilder) WithExecutor(x BatchExecutor) *InsertBuilder {
	ib.executor = x
	return ib
}

// WithDebugContext sets the debug context used for SQL logging
func (ib *InsertBuilder) WithDebugContext(dc *engine.DebugContext) *InsertBuilder {
	ib.debugCtx = dc
	return ib
}

func (ib *InsertBuilder) Set(field string, value interface{}) engine.InsertMutation {
	ib.values[field] = value
	return ib
}

func (ib *InsertBuilder) Debug() *InsertBuilder {
	ib.debug = true
	return ib
}

func (ib *InsertBuilder) DryRun() *InsertBuilder {
	ib.dryRun = true
	return ib
}

// Build validates the values and returns the insert query
func (ib *InsertBuilder) Build() (*engine.InsertQuery, error) {
	values := make(map[string]interface{}, len(ib.values))
	for k, v := range ib.values {
		values[k] = v
	}
	q := &engine.InsertQuery{Entity: ib.entity, Values: values}

	validator := engine.NewValidator(ib.schema, ib.config)
	if err := validator.ValidateInsert(q); err != nil {
		return nil, err
	}
	return q, nil
}

// ToSQL renders the validated insert in the given dialect
func (ib *InsertBuilder) ToSQL(dialect engine.Dialect) (*engine.Statement, error) {
	q, err := ib.Build()
	if err != nil {
		return nil, err
	}
	return engine.NewRenderer(dialect, tableNamer(ib.schema)).Insert(q)
}

func (ib *InsertBuilder) Execute(ctx context.Context) (*engine.ExecuteItemResponse, error) {
	q, err := ib.Build()
	if err != nil {
		return nil, err
	}
	return ib.run(ctx, q)
}

// ============================================================
// UPDATE BUILDER
// ============================================================

type UpdateBuilder struct {
	settings
	entity   string
	filters  []engine.FilterExpr
	updates  map[string]interface{}
	forceAll bool
}

func NewUpdateBuilder(schema *engine.Schema, entity string) *UpdateBuilder {
	return &UpdateBuilder{
		settings: newSettings(schema),
		entity:   entity,
		filters:  []engine.FilterExpr{},
		updates:  make(map[string]interface{}),
	}
}

func (ub *UpdateBuilder) WithExecutor(x BatchExecutor) *UpdateBuilder {
	ub.executor = x
	return ub
}

func (ub *UpdateBuilder) WithDebugContext(dc *engine.DebugContext) *UpdateBuilder {
	ub.debugCtx = dc
	return ub
}

func (ub *UpdateBuilder) Filter(field string, op string, value interface{}) engine.UpdateMutation {
	ub.filters = append(ub.filters, engine.Cond(field, op, value))
	return ub
}

func (ub *UpdateBuilder) Set(field string, value interface{}) engine.UpdateMutation {
	ub.updates[field] = value
	return ub
}

func (ub *UpdateBuilder) ForceUpdateAll() engine.UpdateMutation {
	ub.forceAll = true
	return ub
}

func (ub *UpdateBuilder) Debug() *UpdateBuilder {
	ub.debug = true
	return ub
}

func (ub *UpdateBuilder) DryRun() *UpdateBuilder {
	ub.dryRun = true
	return ub
}

func (ub *UpdateBuilder) Build() (*engine.UpdateQuery, error) {
	values := make(map[string]interface{}, len(ub.updates))
	for k, v := range ub.updates {
		values[k] = v
	}
	q := &engine.UpdateQuery{
		Entity:  ub.entity,
		Values:  values,
		Filters: append([]engine.FilterExpr(nil), ub.filters...),
	}

	validator := engine.NewValidator(ub.schema, ub.config)
	if err := validator.ValidateUpdate(q, ub.forceAll); err != nil {
		return nil, err
	}
	return q, nil
}

func (ub *UpdateBuilder) ToSQL(dialect engine.Dialect) (*engine.Statement, error) {
	q, err := ub.Build()
	if err != nil {
		return nil, err
	}
	return engine.NewRenderer(dialect, tableNamer(ub.schema)).Update(q)
}

func (ub *UpdateBuilder) Execute(ctx context.Context) (*engine.ExecuteItemResponse, error) {
	q, err := ub.Build()
	if err != nil {
		return nil, err
	}
	return ub.run(ctx, q)
}

// ============================================================
// DELETE BUILDER
// ============================================================

type DeleteBuilder struct {
	settings
	entity         string
	filters        []engine.FilterExpr
	forceDeleteAll bool
}

func NewDeleteBuilder(schema *engine.Schema, entity string) *DeleteBuilder {
	return &DeleteBuilder{
		settings: newSettings(schema),
		entity:   entity,
		filters:  []engine.FilterExpr{},
	}
}

func (db *DeleteBuilder) WithExecutor(x BatchExecutor) *DeleteBuilder {
	db.executor = x
	return db
}

func (db *DeleteBuilder) WithDebugContext(dc *engine.DebugContext) *DeleteBuilder {
	db.debugCtx = dc
	return db
}

func (db *DeleteBuilder) Filter(field string, op string, value interface{}) engine.DeleteMutation {
	db.filters = append(db.filters, engine.Cond(field, op, value))
	return db
}

func (db *DeleteBuilder) ForceDeleteAll() engine.DeleteMutation {
	db.forceDeleteAll = true
	return db
}

func (db *DeleteBuilder) Debug() *DeleteBuilder {
	db.debug = true
	return db
}

func (db *DeleteBuilder) DryRun() *DeleteBuilder {
	db.dryRun = true
	return db
}

func (db *DeleteBuilder) Build() (*engine.DeleteQuery, error) {
	q := &engine.DeleteQuery{
		Entity:  db.entity,
		Filters: append([]engine.FilterExpr(nil), db.filters...),
	}

	validator := engine.NewValidator(db.schema, db.config)
	if err := validator.ValidateDelete(q, db.forceDeleteAll); err != nil {
		return nil, err
	}
	return q, nil
}

func (db *DeleteBuilder) ToSQL(dialect engine.Dialect) (*engine.Statement, error) {
	q, err := db.Build()
	if err != nil {
		return nil, err
	}
	return engine.NewRenderer(dialect, tableNamer(db.schema)).Delete(q)
}

func (db *DeleteBuilder) Execute(ctx context.Context) (*engine.ExecuteItemResponse, error) {
	q, err := db.Build()
	if err != nil {
		return nil, err
	}
	return db.run(ctx, q)
}
