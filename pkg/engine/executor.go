package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Executor is a DataProvider backed by a PostgreSQL pool
type Executor struct {
	connector *Connector
	schema    *Schema
	renderer  *Renderer
	debug     *DebugContext
}

// NewExecutor creates an executor from a connector. The schema supplies
// table names and default values and may be nil.
func NewExecutor(connector *Connector, schema *Schema) *Executor {
	return &Executor{
		connector: connector,
		schema:    schema,
		renderer:  NewRenderer(DialectPostgres, schemaTables(schema)),
	}
}

// SetDebug attaches a debug context for SQL and trace output
func (ex *Executor) SetDebug(dc *DebugContext) {
	ex.debug = dc
	ex.connector.SetDebug(dc)
}

// Close releases the pool
func (ex *Executor) Close() error {
	ex.connector.Close()
	return nil
}

// GetDefaultValues answers from the schema's declared defaults
func (ex *Executor) GetDefaultValues(ctx context.Context, entity string) (*DefaultValuesResponse, error) {
	return schemaDefaults(ex.schema, entity), nil
}

// GetItems runs the select against the pool
func (ex *Executor) GetItems(ctx context.Context, query *SelectQuery) (*ItemsResponse, error) {
	if !ex.connector.IsConnected() {
		return nil, ErrNotConnected
	}

	stmt, err := ex.renderer.Select(query)
	if err != nil {
		return nil, fmt.Errorf("SQL generation failed: %w", err)
	}
	ex.debug.LogSQL(stmt.SQL, stmt.Args)

	start := time.Now()
	rows, err := ex.connector.Pool().Query(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return &ItemsResponse{Success: false, ErrorMessage: err.Error()}, nil
	}
	defer rows.Close()

	result, err := scanRows(rows)
	if err != nil {
		return &ItemsResponse{Success: false, ErrorMessage: err.Error()}, nil
	}
	ex.debug.LogQuery(stmt.SQL, time.Since(start), len(result))

	return &ItemsResponse{Success: true, Rows: result}, nil
}

// BatchExecute runs every mutation inside one transaction
func (ex *Executor) BatchExecute(ctx context.Context, queries []BatchQuery) (*ExecuteResponse, error) {
	if !ex.connector.IsConnected() {
		return nil, ErrNotConnected
	}

	statements := make([]*Statement, 0, len(queries))
	for _, q := range queries {
		stmt, err := ex.renderer.Batch(q)
		if err != nil {
			return nil, err
		}
		statements = append(statements, stmt)
	}

	tx, err := ex.connector.Pool().Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	resp := &ExecuteResponse{Success: true, QueryResults: []ExecuteItemResponse{}}
	for _, stmt := range statements {
		ex.debug.LogSQL(stmt.SQL, stmt.Args)
		tag, err := tx.Exec(ctx, stmt.SQL, stmt.Args...)
		if err != nil {
			resp.Success = false
			resp.ErrorMessage = err.Error()
			resp.QueryResults = append(resp.QueryResults, ExecuteItemResponse{ErrorMessage: err.Error()})
			return resp, nil
		}
		resp.QueryResults = append(resp.QueryResults, ExecuteItemResponse{
			Success:      true,
			RowsAffected: tag.RowsAffected(),
		})
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return resp, nil
}

// scanRows converts pgx rows into our Row type
func scanRows(rows pgx.Rows) ([]Row, error) {
	result := []Row{}
	columns := rows.FieldDescriptions()

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(Row)
		for i, col := range columns {
			row[col.Name] = normalizeColumnValue(values[i])
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// normalizeColumnValue turns driver-specific values into plain Go values
func normalizeColumnValue(value interface{}) interface{} {
	switch v := value.(type) {
	case [16]byte: // PostgreSQL UUID
		return uuid.UUID(v).String()
	case []byte:
		return string(v)
	default:
		return value
	}
}

func schemaTables(schema *Schema) TableNamer {
	return func(entity string) string {
		if schema != nil {
			if ent := schema.GetEntity(entity); ent != nil {
				return ent.TableName()
			}
		}
		return entity
	}
}

func schemaDefaults(schema *Schema, entity string) *DefaultValuesResponse {
	if schema == nil {
		return &DefaultValuesResponse{Success: false, ErrorMessage: ErrNoSchema.Error()}
	}
	ent := schema.GetEntity(entity)
	if ent == nil {
		return &DefaultValuesResponse{
			Success:      false,
			ErrorMessage: fmt.Sprintf("unknown entity %q", entity),
		}
	}
	return &DefaultValuesResponse{Success: true, Values: ent.Defaults()}
}
