package mutation

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/chameleon-db/chameleon-mock/pkg/engine"
)

// Helper: create test schema
func testSchema() *engine.Schema {
	schema := &engine.Schema{
		Entities: []*engine.Entity{
			{
				Name:  "User",
				Table: "users",
				Fields: map[string]*engine.Field{
					"id": {
						Name:       "id",
						Type:       engine.FieldTypeUUID,
						PrimaryKey: true,
					},
					"email": {
						Name:   "email",
						Type:   engine.FieldTypeString,
						Unique: true,
					},
					"name": {
						Name: "name",
						Type: engine.FieldTypeString,
					},
					"age": {
						Name:     "age",
						Type:     engine.FieldTypeInt,
						Nullable: true,
					},
				},
			},
		},
	}
	return schema
}

// recordingExecutor captures batches instead of running them
type recordingExecutor struct {
	batches [][]engine.BatchQuery
	resp    *engine.ExecuteResponse
	err     error
}

func (r *recordingExecutor) ExecuteBatch(ctx context.Context, queries ...engine.BatchQuery) (*engine.ExecuteResponse, error) {
	r.batches = append(r.batches, queries)
	if r.err != nil {
		return nil, r.err
	}
	if r.resp != nil {
		return r.resp, nil
	}
	return &engine.ExecuteResponse{Success: true, QueryResults: []engine.ExecuteItemResponse{}}, nil
}

// ============================================================
// INSERT BUILDER TESTS
// ============================================================

func TestInsertBuilder_Set(t *testing.T) {
	schema := testSchema()
	builder := NewInsertBuilder(schema, "User")

	// Test chainable API
	result := builder.Set("email", "ana@mail.com").Set("name", "Ana")

	if result != builder {
		t.Error("Set() should return builder for chaining")
	}

	if builder.values["email"] != "ana@mail.com" {
		t.Errorf("Expected email='ana@mail.com', got '%v'", builder.values["email"])
	}

	if builder.values["name"] != "Ana" {
		t.Errorf("Expected name='Ana', got '%v'", builder.values["name"])
	}
}

func TestInsertBuilder_DebugAndDryRun(t *testing.T) {
	builder := NewInsertBuilder(testSchema(), "User")

	if builder.Debug() != builder || !builder.debug {
		t.Error("Debug() should set the flag and return builder")
	}
	if builder.DryRun() != builder || !builder.dryRun {
		t.Error("DryRun() should set the flag and return builder")
	}
}

func TestInsertBuilder_Build(t *testing.T) {
	builder := NewInsertBuilder(testSchema(), "User")
	builder.Set("email", "ana@mail.com").Set("name", "Ana")

	q, err := builder.Build()
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	if q.Kind() != engine.MutationInsert {
		t.Errorf("Expected MutationInsert, got %v", q.Kind())
	}
	if q.Entity != "User" {
		t.Errorf("Expected entity='User', got '%s'", q.Entity)
	}
	if len(q.Values) != 2 {
		t.Errorf("Expected 2 values, got %d", len(q.Values))
	}
}

func TestInsertBuilder_BuildErrors(t *testing.T) {
	tests := []struct {
		name   string
		entity string
		values map[string]interface{}
		code   string
	}{
		{"unknown entity", "NonExistent", map[string]interface{}{"field": "value"}, "UNKNOWN_ENTITY"},
		{"unknown field", "User", map[string]interface{}{"email": "a@b.co", "name": "A", "unknown_field": "x"}, "UNKNOWN_FIELD"},
		{"bad email", "User", map[string]interface{}{"email": "not-an-email", "name": "A"}, "FORMAT_ERROR"},
		{"missing required", "User", map[string]interface{}{"email": "a@b.co"}, "NOT_NULL_VIOLATION"},
		{"type mismatch", "User", map[string]interface{}{"email": "a@b.co", "name": "A", "age": "old"}, "TYPE_MISMATCH"},
		{"bad uuid", "User", map[string]interface{}{"id": "123", "email": "a@b.co", "name": "A"}, "FORMAT_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			builder := NewInsertBuilder(testSchema(), tt.entity)
			for k, v := range tt.values {
				builder.Set(k, v)
			}

			_, err := builder.Build()
			if err == nil {
				t.Fatal("Build() should fail")
			}
			if got := engine.ErrorCode(err); got != tt.code {
				t.Errorf("Expected code %s, got %s (%v)", tt.code, got, err)
			}
		})
	}
}

func TestInsertBuilder_ToSQL(t *testing.T) {
	builder := NewInsertBuilder(testSchema(), "User")
	builder.Set("name", "Ana").Set("email", "ana@mail.com")

	stmt, err := builder.ToSQL(engine.DialectPostgres)
	if err != nil {
		t.Fatalf("ToSQL() failed: %v", err)
	}

	want := `INSERT INTO "users" ("email", "name") VALUES ($1, $2)`
	if stmt.SQL != want {
		t.Errorf("Expected %s, got %s", want, stmt.SQL)
	}
	if len(stmt.Args) != 2 || stmt.Args[0] != "ana@mail.com" {
		t.Errorf("Unexpected args %v", stmt.Args)
	}

	mysqlStmt, err := builder.ToSQL(engine.DialectMySQL)
	if err != nil {
		t.Fatalf("ToSQL(mysql) failed: %v", err)
	}
	if mysqlStmt.SQL != "INSERT INTO `users` (`email`, `name`) VALUES (?, ?)" {
		t.Errorf("Unexpected mysql SQL %s", mysqlStmt.SQL)
	}
}

func TestInsertBuilder_Execute(t *testing.T) {
	exec := &recordingExecutor{}
	builder := NewInsertBuilder(testSchema(), "User").WithExecutor(exec)
	builder.Set("email", "ana@mail.com").Set("name", "Ana")

	resp, err := builder.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if !resp.Success {
		t.Error("Expected success")
	}
	if len(exec.batches) != 1 || len(exec.batches[0]) != 1 {
		t.Fatalf("Expected one single-item batch, got %v", exec.batches)
	}
	if _, ok := exec.batches[0][0].(*engine.InsertQuery); !ok {
		t.Errorf("Expected *engine.InsertQuery, got %T", exec.batches[0][0])
	}
}

func TestInsertBuilder_Execute_NoExecutor(t *testing.T) {
	builder := NewInsertBuilder(testSchema(), "User")
	builder.Set("email", "ana@mail.com").Set("name", "Ana")

	_, err := builder.Execute(context.Background())
	if !errors.Is(err, engine.ErrNoProvider) {
		t.Errorf("Expected ErrNoProvider, got %v", err)
	}
}

func TestInsertBuilder_DryRun_NoExecution(t *testing.T) {
	var buf bytes.Buffer
	exec := &recordingExecutor{}
	builder := NewInsertBuilder(testSchema(), "User").
		WithExecutor(exec).
		WithDebugContext(&engine.DebugContext{Writer: &buf}).
		DryRun().
		Debug()
	builder.Set("email", "ana@mail.com").Set("name", "Ana")

	resp, err := builder.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if !resp.Success || resp.RowsAffected != 0 {
		t.Errorf("Unexpected dry-run response %+v", resp)
	}
	if len(exec.batches) != 0 {
		t.Error("Dry run should not reach the executor")
	}
	if !strings.Contains(buf.String(), `INSERT INTO "users"`) {
		t.Errorf("Expected SQL in debug output, got %q", buf.String())
	}
}

// ============================================================
// UPDATE BUILDER TESTS
// ============================================================

func TestUpdateBuilder_Filter_And_Set(t *testing.T) {
	builder := NewUpdateBuilder(testSchema(), "User")
	builder.Filter("email", "eq", "ana@mail.com").Set("name", "Ana Updated")

	if len(builder.filters) != 1 {
		t.Errorf("Expected 1 filter, got %d", len(builder.filters))
	}
	if builder.filters[0].Condition.Op != engine.OpEq {
		t.Errorf("Expected normalized operator Eq, got %s", builder.filters[0].Condition.Op)
	}
	if builder.updates["name"] != "Ana Updated" {
		t.Errorf("Expected name='Ana Updated', got '%v'", builder.updates["name"])
	}
}

func TestUpdateBuilder_Build(t *testing.T) {
	builder := NewUpdateBuilder(testSchema(), "User")
	builder.Filter("email", "eq", "ana@mail.com").Set("name", "Ana Updated")

	q, err := builder.Build()
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	if q.Kind() != engine.MutationUpdate {
		t.Errorf("Expected MutationUpdate, got %v", q.Kind())
	}
	if len(q.Filters) != 1 || len(q.Values) != 1 {
		t.Errorf("Unexpected query %+v", q)
	}
}

func TestUpdateBuilder_Build_NoFilter(t *testing.T) {
	builder := NewUpdateBuilder(testSchema(), "User")
	builder.Set("name", "Everyone")

	_, err := builder.Build()
	if !engine.IsSafetyError(err) {
		t.Errorf("Expected safety error, got %v", err)
	}
}

func TestUpdateBuilder_ForceUpdateAll(t *testing.T) {
	builder := NewUpdateBuilder(testSchema(), "User")
	builder.Set("name", "Everyone").ForceUpdateAll()

	if !builder.forceAll {
		t.Error("ForceUpdateAll flag not set")
	}
	if _, err := builder.Build(); err != nil {
		t.Errorf("Build() with ForceUpdateAll failed: %v", err)
	}
}

func TestUpdateBuilder_Build_UpdatePrimaryKey(t *testing.T) {
	builder := NewUpdateBuilder(testSchema(), "User")
	builder.Filter("email", "eq", "ana@mail.com").Set("id", "7f0c2bde-3c29-4c4e-9a8b-3d8ac0b6f3a1")

	_, err := builder.Build()
	if got := engine.ErrorCode(err); got != "PRIMARY_KEY_CONSTRAINT" {
		t.Errorf("Expected PRIMARY_KEY_CONSTRAINT, got %s", got)
	}
}

func TestUpdateBuilder_Build_UnknownFilterField(t *testing.T) {
	builder := NewUpdateBuilder(testSchema(), "User")
	builder.Filter("nickname", "eq", "ana").Set("name", "Ana")

	_, err := builder.Build()
	if got := engine.ErrorCode(err); got != "UNKNOWN_FIELD" {
		t.Errorf("Expected UNKNOWN_FIELD, got %s", got)
	}
}

func TestUpdateBuilder_ToSQL(t *testing.T) {
	builder := NewUpdateBuilder(testSchema(), "User")
	builder.Filter("email", "eq", "ana@mail.com").Set("name", "Ana").Set("age", 31)

	stmt, err := builder.ToSQL(engine.DialectPostgres)
	if err != nil {
		t.Fatalf("ToSQL() failed: %v", err)
	}
	want := `UPDATE "users" SET "age" = $1, "name" = $2 WHERE "email" = $3`
	if stmt.SQL != want {
		t.Errorf("Expected %s, got %s", want, stmt.SQL)
	}
	if len(stmt.Args) != 3 || stmt.Args[2] != "ana@mail.com" {
		t.Errorf("Unexpected args %v", stmt.Args)
	}
}

func TestUpdateBuilder_Execute(t *testing.T) {
	exec := &recordingExecutor{resp: &engine.ExecuteResponse{
		Success:      true,
		QueryResults: []engine.ExecuteItemResponse{{Success: true, RowsAffected: 3}},
	}}
	builder := NewUpdateBuilder(testSchema(), "User").WithExecutor(exec)
	builder.Filter("age", "gt", 30).Set("name", "Senior")

	resp, err := builder.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if resp.RowsAffected != 3 {
		t.Errorf("Expected 3 rows affected, got %d", resp.RowsAffected)
	}
}

// ============================================================
// DELETE BUILDER TESTS
// ============================================================

func TestDeleteBuilder_Build(t *testing.T) {
	builder := NewDeleteBuilder(testSchema(), "User")
	builder.Filter("email", "eq", "ana@mail.com")

	q, err := builder.Build()
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	if q.Kind() != engine.MutationDelete {
		t.Errorf("Expected MutationDelete, got %v", q.Kind())
	}
}

func TestDeleteBuilder_Build_NoFilter(t *testing.T) {
	builder := NewDeleteBuilder(testSchema(), "User")

	_, err := builder.Build()
	if !engine.IsSafetyError(err) {
		t.Errorf("Expected safety error, got %v", err)
	}
}

func TestDeleteBuilder_Build_ForceDeleteAll(t *testing.T) {
	builder := NewDeleteBuilder(testSchema(), "User")
	builder.ForceDeleteAll()

	if _, err := builder.Build(); err != nil {
		t.Errorf("Build() with ForceDeleteAll failed: %v", err)
	}

	stmt, err := builder.ToSQL(engine.DialectPostgres)
	if err != nil {
		t.Fatalf("ToSQL() failed: %v", err)
	}
	if stmt.SQL != `DELETE FROM "users"` {
		t.Errorf("Unexpected SQL %s", stmt.SQL)
	}
}

func TestDeleteBuilder_MultipleFilters(t *testing.T) {
	builder := NewDeleteBuilder(testSchema(), "User")
	builder.Filter("age", "lt", 18).Filter("name", "like", "Test%")

	stmt, err := builder.ToSQL(engine.DialectMySQL)
	if err != nil {
		t.Fatalf("ToSQL() failed: %v", err)
	}
	want := "DELETE FROM `users` WHERE `age` < ? AND `name` LIKE ?"
	if stmt.SQL != want {
		t.Errorf("Expected %s, got %s", want, stmt.SQL)
	}
}

func TestDeleteBuilder_Execute_PropagatesError(t *testing.T) {
	boom := errors.New("boom")
	builder := NewDeleteBuilder(testSchema(), "User").WithExecutor(&recordingExecutor{err: boom})
	builder.Filter("email", "eq", "ana@mail.com")

	_, err := builder.Execute(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("Expected boom, got %v", err)
	}
}
