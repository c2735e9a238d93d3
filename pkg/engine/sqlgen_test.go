package engine

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSelect(t *testing.T) {
	id := uuid.MustParse("7f0c2bde-3c29-4c4e-9a8b-3d8ac0b6f3a1")

	tests := []struct {
		name     string
		query    *SelectQuery
		dialect  Dialect
		wantSQL  string
		wantArgs []interface{}
	}{
		{
			name:    "all columns",
			query:   NewQuery("User").Build(),
			wantSQL: `SELECT * FROM "User"`,
		},
		{
			name:     "projection and filter",
			query:    NewQuery("User").Select("id", "email").Filter("age", "gte", 18).Build(),
			wantSQL:  `SELECT "id", "email" FROM "User" WHERE "age" >= $1`,
			wantArgs: []interface{}{18},
		},
		{
			name:    "count star",
			query:   NewQuery("User").Count("").Build(),
			wantSQL: `SELECT COUNT(*) AS "count" FROM "User"`,
		},
		{
			name:    "aggregate with alias",
			query:   NewQuery("Order").Aggregate(AggregationSum, "total", "revenue").Build(),
			wantSQL: `SELECT SUM("total") AS "revenue" FROM "Order"`,
		},
		{
			name:     "in list",
			query:    NewQuery("User").Filter("name", "in", []string{"Ana", "Bob"}).Build(),
			wantSQL:  `SELECT * FROM "User" WHERE "name" IN ($1, $2)`,
			wantArgs: []interface{}{"Ana", "Bob"},
		},
		{
			name:    "empty in list",
			query:   NewQuery("User").Filter("name", "in", []interface{}{}).Build(),
			wantSQL: `SELECT * FROM "User" WHERE 1 = 0`,
		},
		{
			name:    "null checks",
			query:   NewQuery("User").Filter("deleted_at", "eq", nil).Filter("email", "neq", nil).Build(),
			wantSQL: `SELECT * FROM "User" WHERE "deleted_at" IS NULL AND "email" IS NOT NULL`,
		},
		{
			name: "or tree",
			query: NewQuery("User").
				Where(Or(Cond("name", "eq", "Ana"), And(Cond("age", "gt", 30), Cond("age", "lt", 40)))).
				Build(),
			wantSQL:  `SELECT * FROM "User" WHERE ("name" = $1 OR ("age" > $2 AND "age" < $3))`,
			wantArgs: []interface{}{"Ana", 30, 40},
		},
		{
			name:     "uuid stays scalar",
			query:    NewQuery("User").Filter("id", "eq", id).Build(),
			wantSQL:  `SELECT * FROM "User" WHERE "id" = $1`,
			wantArgs: []interface{}{id},
		},
		{
			name:     "order, limit and offset in mysql",
			query:    NewQuery("User").Filter("name", "like", "A%").OrderBy("name", "desc").Limit(10).Offset(20).Build(),
			dialect:  DialectMySQL,
			wantSQL:  "SELECT * FROM `User` WHERE `name` LIKE ? ORDER BY `name` DESC LIMIT 10 OFFSET 20",
			wantArgs: []interface{}{"A%"},
		},
		{
			name:    "relation path",
			query:   NewQuery("User").Select("orders.total").Build(),
			wantSQL: `SELECT "orders"."total" FROM "User"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := NewRenderer(tt.dialect, nil).Select(tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, stmt.SQL)
			assert.Equal(t, tt.wantArgs, stmt.Args)
		})
	}
}

func TestRenderUsesTableNames(t *testing.T) {
	tables := func(entity string) string { return "app_" + entity }

	stmt, err := NewRenderer(DialectPostgres, tables).Delete(&DeleteQuery{
		Entity:  "user",
		Filters: []FilterExpr{Cond("id", "eq", 1)},
	})
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "app_user" WHERE "id" = $1`, stmt.SQL)
}

func TestRenderBatch(t *testing.T) {
	r := NewRenderer(DialectPostgres, nil)

	insert, err := r.Batch(&InsertQuery{Entity: "User", Values: map[string]interface{}{"name": "Ana", "age": 30}})
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "User" ("age", "name") VALUES ($1, $2)`, insert.SQL)
	assert.Equal(t, []interface{}{30, "Ana"}, insert.Args)

	update, err := r.Batch(&UpdateQuery{
		Entity:  "User",
		Values:  map[string]interface{}{"name": "Bob"},
		Filters: []FilterExpr{Cond("id", "eq", 7)},
	})
	require.NoError(t, err)
	assert.Equal(t, `UPDATE "User" SET "name" = $1 WHERE "id" = $2`, update.SQL)

	_, err = r.Batch(nil)
	assert.ErrorIs(t, err, ErrUnsupportedOperation)

	_, err = r.Insert(&InsertQuery{Entity: "User"})
	assert.Error(t, err)
}

func TestRenderErrors(t *testing.T) {
	r := NewRenderer(DialectPostgres, nil)

	_, err := r.Select(&SelectQuery{})
	assert.Error(t, err)

	_, err = r.Select(NewQuery("User").Filter("name", "matches", "x").Build())
	assert.Equal(t, "UNKNOWN_OPERATOR", ErrorCode(err))

	_, err = r.Select(NewQuery("User").Where(FilterExpr{}).Build())
	assert.Error(t, err)

	_, err = r.Select(&SelectQuery{
		Entity: "User",
		Filters: []FilterExpr{{Condition: &FilterCondition{
			Field: parseFieldPath("name"),
			Op:    OpEq,
			Value: FilterValue{"Blob": "x"},
		}}},
	})
	assert.Error(t, err)
}

func TestParseDialect(t *testing.T) {
	for _, name := range []string{"postgres", "postgresql", "pq", "pgx", ""} {
		d, err := ParseDialect(name)
		require.NoError(t, err)
		assert.Equal(t, DialectPostgres, d)
	}

	d, err := ParseDialect("MySQL")
	require.NoError(t, err)
	assert.Equal(t, DialectMySQL, d)
	assert.Equal(t, "mysql", d.String())

	_, err = ParseDialect("oracle")
	assert.Error(t, err)
}
