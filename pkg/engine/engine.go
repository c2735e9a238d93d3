package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Version of the chameleon-mock engine
const Version = "0.3.0"

// Engine is the main entry point: it owns the schema, the data provider
// and the mutation factory
type Engine struct {
	schema    *Schema
	provider  DataProvider
	connector *Connector
	dialect   Dialect

	// Debug context
	Debug *DebugContext

	// Mutation factory (abstract, injected)
	mutations MutationFactory
}

// debugSetter is implemented by providers that log through the engine's
// debug context
type debugSetter interface {
	SetDebug(dc *DebugContext)
}

// ============================================================
// ENGINE INITIALIZATION
// ============================================================

// NewEngine creates an engine without schema or provider
func NewEngine() *Engine {
	return &Engine{
		Debug:   DefaultDebugContext(),
		dialect: DialectPostgres,
	}
}

// NewEngineWithSchema creates an engine and loads a JSON or YAML schema file
//
// Usage:
//
//	eng, err := engine.NewEngineWithSchema("schema.yml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	eng.UseProvider(mock.NewProvider())
func NewEngineWithSchema(schemaPath string) (*Engine, error) {
	eng := NewEngine()
	if _, err := eng.LoadSchemaFromFile(schemaPath); err != nil {
		return nil, err
	}
	return eng, nil
}

// WithDebug sets the debug level and returns the engine
func (e *Engine) WithDebug(level DebugLevel) *Engine {
	writer := io.Writer(os.Stdout)
	colored := true
	if e.Debug != nil {
		writer = e.Debug.Writer
		colored = e.Debug.ColorOutput
	}
	e.Debug = &DebugContext{
		Level:       level,
		Writer:      writer,
		ColorOutput: colored,
	}
	if ds, ok := e.provider.(debugSetter); ok {
		ds.SetDebug(e.Debug)
	}
	return e
}

// SetDialect selects the SQL dialect used by ToSQL
func (e *Engine) SetDialect(d Dialect) {
	e.dialect = d
}

// Dialect returns the SQL dialect used by ToSQL
func (e *Engine) Dialect() Dialect {
	return e.dialect
}

// ─────────────────────────────────────────────────────────────
// Schema handling
// ─────────────────────────────────────────────────────────────

// LoadSchemaFromString parses a schema from JSON (leading '{') or YAML
func (e *Engine) LoadSchemaFromString(input string) (*Schema, error) {
	var (
		schema *Schema
		err    error
	)
	if strings.HasPrefix(strings.TrimSpace(input), "{") {
		schema, err = ParseSchemaJSON(input)
	} else {
		schema, err = ParseSchemaYAML(input)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	if len(schema.Entities) == 0 {
		return nil, fmt.Errorf("failed to parse schema: no entities declared")
	}

	e.schema = schema
	return schema, nil
}

// LoadSchemaFromFile loads a schema from a .json, .yml or .yaml file
func (e *Engine) LoadSchemaFromFile(path string) (*Schema, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}

	var schema *Schema
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		schema, err = ParseSchemaJSON(string(content))
	case ".yml", ".yaml":
		schema, err = ParseSchemaYAML(string(content))
	default:
		return e.LoadSchemaFromString(string(content))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema %s: %w", path, locateParseError(path, string(content), err))
	}
	e.schema = schema
	return schema, nil
}

// SetSchema replaces the loaded schema
func (e *Engine) SetSchema(schema *Schema) {
	e.schema = schema
}

// Schema returns the currently loaded schema (nil if none)
func (e *Engine) Schema() *Schema {
	return e.schema
}

func (e *Engine) tableName(entity string) string {
	return schemaTables(e.schema)(entity)
}

// ─────────────────────────────────────────────────────────────
// Provider handling
// ─────────────────────────────────────────────────────────────

// UseProvider attaches a data provider (a mock, an executor, ...)
func (e *Engine) UseProvider(p DataProvider) *Engine {
	e.provider = p
	if ds, ok := p.(debugSetter); ok {
		ds.SetDebug(e.Debug)
	}
	if sq, ok := p.(*SQLExecutor); ok {
		e.dialect = sq.Dialect()
	}
	return e
}

// Provider returns the attached data provider
func (e *Engine) Provider() DataProvider {
	return e.provider
}

func (e *Engine) requireProvider() (DataProvider, error) {
	if e.provider == nil {
		return nil, ErrNoProvider
	}
	return e.provider, nil
}

// Open resolves uri through the provider registry and attaches the result
func (e *Engine) Open(ctx context.Context, uri string) error {
	p, err := OpenProvider(ctx, uri, e.schema)
	if err != nil {
		return err
	}
	e.UseProvider(p)
	return nil
}

// Connect establishes a PostgreSQL pool and uses it as the provider
func (e *Engine) Connect(ctx context.Context, config ConnectorConfig) error {
	e.connector = NewConnector(config)
	e.connector.SetDebug(e.Debug)
	if err := e.connector.Connect(ctx); err != nil {
		return err
	}
	e.UseProvider(NewExecutor(e.connector, e.schema))
	return nil
}

// Close releases the provider if it holds resources
func (e *Engine) Close() {
	if c, ok := e.provider.(io.Closer); ok {
		_ = c.Close()
	}
	if e.connector != nil {
		e.connector.Close()
	}
}

// IsConnected returns true if connected to a database
func (e *Engine) IsConnected() bool {
	return e.connector != nil && e.connector.IsConnected()
}

// Ping verifies the database connection is alive
func (e *Engine) Ping(ctx context.Context) error {
	if e.connector == nil {
		return ErrNotConnected
	}
	return e.connector.Ping(ctx)
}

// ─────────────────────────────────────────────────────────────
// Reads and batches
// ─────────────────────────────────────────────────────────────

// DefaultValues asks the provider for an entity's default column values
func (e *Engine) DefaultValues(ctx context.Context, entity string) (Row, error) {
	provider, err := e.requireProvider()
	if err != nil {
		return nil, err
	}
	e.Debug.Log(DebugTrace, "default values for %s", entity)

	resp, err := provider.GetDefaultValues(ctx, entity)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: default values of %s", ErrNoResponse, entity)
	}
	if !resp.Success {
		return nil, &ProviderError{Operation: "default values", Entity: entity, Message: resp.ErrorMessage}
	}
	return resp.Values, nil
}

// ExecuteBatch sends mutations to the provider in one call
func (e *Engine) ExecuteBatch(ctx context.Context, queries ...BatchQuery) (*ExecuteResponse, error) {
	provider, err := e.requireProvider()
	if err != nil {
		return nil, err
	}
	e.Debug.Log(DebugTrace, "batch of %d mutations", len(queries))

	resp, err := provider.BatchExecute(ctx, queries)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: batch", ErrNoResponse)
	}
	if !resp.Success {
		return resp, &ProviderError{Operation: "batch", Entity: batchEntities(queries), Message: resp.ErrorMessage}
	}
	return resp, nil
}

// BatchBuilder collects mutations for a single ExecuteBatch call
type BatchBuilder struct {
	engine  *Engine
	queries []BatchQuery
}

// Batch starts collecting mutations
func (e *Engine) Batch() *BatchBuilder {
	return &BatchBuilder{engine: e}
}

// Add appends mutations to the batch
func (b *BatchBuilder) Add(queries ...BatchQuery) *BatchBuilder {
	b.queries = append(b.queries, queries...)
	return b
}

// Len returns the number of collected mutations
func (b *BatchBuilder) Len() int {
	return len(b.queries)
}

// Execute sends the collected mutations
func (b *BatchBuilder) Execute(ctx context.Context) (*ExecuteResponse, error) {
	return b.engine.ExecuteBatch(ctx, b.queries...)
}

func batchEntities(queries []BatchQuery) string {
	seen := make(map[string]bool)
	var names []string
	for _, q := range queries {
		if q == nil || seen[q.EntityName()] {
			continue
		}
		seen[q.EntityName()] = true
		names = append(names, q.EntityName())
	}
	return strings.Join(names, ",")
}

// ─────────────────────────────────────────────────────────────
// Mutation wiring (NO concrete dependencies)
// ─────────────────────────────────────────────────────────────

// SetMutationFactory injects a mutation factory implementation
func (e *Engine) SetMutationFactory(factory MutationFactory) {
	e.mutations = factory
}

func (e *Engine) ensureMutationFactory() {
	if e.mutations == nil {
		panic(
			"mutation factory not initialized\n" +
				"Call mutation.Register(engine) after loading schema",
		)
	}
}

// Insert starts a new INSERT mutation
func (e *Engine) Insert(entity string) InsertMutation {
	e.ensureSchemaLoaded()
	e.ensureMutationFactory()
	return e.mutations.NewInsert(entity)
}

// Update starts a new UPDATE mutation
func (e *Engine) Update(entity string) UpdateMutation {
	e.ensureSchemaLoaded()
	e.ensureMutationFactory()
	return e.mutations.NewUpdate(entity)
}

// Delete starts a new DELETE mutation
func (e *Engine) Delete(entity string) DeleteMutation {
	e.ensureSchemaLoaded()
	e.ensureMutationFactory()
	return e.mutations.NewDelete(entity)
}

func (e *Engine) ensureSchemaLoaded() {
	if e.schema == nil {
		panic("schema not loaded")
	}
}
