package engine

import "context"

// ============================================================
// MUTATION TYPES
// ============================================================

type MutationType int

const (
	MutationInsert MutationType = iota
	MutationUpdate
	MutationDelete
)

func (t MutationType) String() string {
	switch t {
	case MutationInsert:
		return "insert"
	case MutationUpdate:
		return "update"
	case MutationDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// BatchQuery is one mutation inside a batch. The set of implementations is
// closed: *InsertQuery, *UpdateQuery and *DeleteQuery.
type BatchQuery interface {
	Kind() MutationType
	EntityName() string
	batchQuery()
}

// InsertQuery assigns column values to a new record.
type InsertQuery struct {
	Entity string                 `json:"entity" yaml:"entity"`
	Values map[string]interface{} `json:"values" yaml:"values"`
}

// UpdateQuery assigns column values to the records matched by Filters.
type UpdateQuery struct {
	Entity  string                 `json:"entity" yaml:"entity"`
	Values  map[string]interface{} `json:"values" yaml:"values"`
	Filters []FilterExpr           `json:"filters" yaml:"filters"`
}

// DeleteQuery removes the records matched by Filters.
type DeleteQuery struct {
	Entity  string       `json:"entity" yaml:"entity"`
	Filters []FilterExpr `json:"filters" yaml:"filters"`
}

func (q *InsertQuery) Kind() MutationType { return MutationInsert }
func (q *UpdateQuery) Kind() MutationType { return MutationUpdate }
func (q *DeleteQuery) Kind() MutationType { return MutationDelete }

func (q *InsertQuery) EntityName() string { return q.Entity }
func (q *UpdateQuery) EntityName() string { return q.Entity }
func (q *DeleteQuery) EntityName() string { return q.Entity }

func (*InsertQuery) batchQuery() {}
func (*UpdateQuery) batchQuery() {}
func (*DeleteQuery) batchQuery() {}

// ============================================================
// RESPONSES
// ============================================================

// Row is a single record keyed by column name.
type Row map[string]interface{}

// ItemsResponse answers a select query.
type ItemsResponse struct {
	Success      bool   `json:"success"`
	Rows         []Row  `json:"rows"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// DefaultValuesResponse carries the default column values of an entity.
type DefaultValuesResponse struct {
	Success      bool   `json:"success"`
	Values       Row    `json:"values"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// ExecuteItemResponse is the outcome of a single mutation in a batch.
type ExecuteItemResponse struct {
	Success      bool   `json:"success"`
	RowsAffected int64  `json:"rows_affected"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// ExecuteResponse answers a batch.
type ExecuteResponse struct {
	Success      bool                  `json:"success"`
	ErrorMessage string                `json:"error_message"`
	QueryResults []ExecuteItemResponse `json:"query_results"`
}

// ============================================================
// DATA PROVIDER
// ============================================================

// DataProvider is the data-access boundary the engine talks to. A nil
// response with a nil error means the provider has no answer for the query
// (the mock provider uses this for unregistered expectations).
type DataProvider interface {
	GetDefaultValues(ctx context.Context, entity string) (*DefaultValuesResponse, error)
	GetItems(ctx context.Context, query *SelectQuery) (*ItemsResponse, error)
	BatchExecute(ctx context.Context, queries []BatchQuery) (*ExecuteResponse, error)
}

// ============================================================
// MUTATION BUILDER INTERFACES
// ============================================================

// InsertMutation builds and executes INSERT operations
type InsertMutation interface {
	// Set adds a field to insert
	Set(field string, value interface{}) InsertMutation

	// Build validates the input and returns the query object
	Build() (*InsertQuery, error)

	// Execute validates and runs the mutation
	Execute(ctx context.Context) (*ExecuteItemResponse, error)
}

// UpdateMutation builds and executes UPDATE operations
type UpdateMutation interface {
	// Set adds a field to update
	Set(field string, value interface{}) UpdateMutation

	// Filter adds a filter condition (WHERE clause)
	// Operators: eq, neq, gt, gte, lt, lte, like, in
	Filter(field string, operator string, value interface{}) UpdateMutation

	// ForceUpdateAll allows an update without filters
	ForceUpdateAll() UpdateMutation

	Build() (*UpdateQuery, error)
	Execute(ctx context.Context) (*ExecuteItemResponse, error)
}

// DeleteMutation builds and executes DELETE operations
type DeleteMutation interface {
	// Filter adds a filter condition (WHERE clause)
	Filter(field string, operator string, value interface{}) DeleteMutation

	// ForceDeleteAll allows a delete without filters
	ForceDeleteAll() DeleteMutation

	Build() (*DeleteQuery, error)
	Execute(ctx context.Context) (*ExecuteItemResponse, error)
}

// ============================================================
// FACTORY
// ============================================================

// MutationFactory creates mutation builders
//
// Engine delegates all mutation creation to this factory, which keeps the
// engine free of concrete builder dependencies (see pkg/mutation).
type MutationFactory interface {
	NewInsert(entity string) InsertMutation
	NewUpdate(entity string) UpdateMutation
	NewDelete(entity string) DeleteMutation
}
