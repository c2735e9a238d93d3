package engine

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestSchema is a single User entity shared by the engine tests
func setupTestSchema() *Schema {
	return &Schema{
		Entities: []*Entity{
			{
				Name: "User",
				Fields: map[string]*Field{
					"id":    {Name: "id", Type: FieldTypeUUID, PrimaryKey: true},
					"email": {Name: "email", Type: FieldTypeString, Unique: true},
					"name":  {Name: "name", Type: FieldTypeString},
				},
				Relations: map[string]*Relation{},
			},
		},
	}
}

func plainDebug(level DebugLevel) (*DebugContext, *bytes.Buffer) {
	var buf bytes.Buffer
	return &DebugContext{Level: level, Writer: &buf}, &buf
}

func TestParseDebugLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    DebugLevel
		wantErr bool
	}{
		{"", DebugNone, false},
		{"0", DebugNone, false},
		{"none", DebugNone, false},
		{"1", DebugSQL, false},
		{" SQL ", DebugSQL, false},
		{"trace", DebugTrace, false},
		{"Explain", DebugExplain, false},
		{"verbose", DebugNone, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDebugLevel(tt.in)
			if tt.wantErr {
				assert.ErrorContains(t, err, "unknown debug level")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			// config files store the String form
			back, err := ParseDebugLevel(got.String())
			require.NoError(t, err)
			assert.Equal(t, got, back)
		})
	}
}

func TestDebugContextFromEnv(t *testing.T) {
	t.Setenv("CHAMELEON_DEBUG", "trace")
	assert.Equal(t, DebugTrace, DebugContextFromEnv().Level)

	t.Setenv("CHAMELEON_DEBUG", "loud")
	assert.Equal(t, DebugNone, DebugContextFromEnv().Level)
}

func TestDebugEnabled(t *testing.T) {
	var nilCtx *DebugContext
	assert.False(t, nilCtx.Enabled(DebugSQL))
	assert.NotPanics(t, func() { nilCtx.Log(DebugTrace, "ignored") })

	dc, _ := plainDebug(DebugTrace)
	assert.True(t, dc.Enabled(DebugSQL))
	assert.True(t, dc.Enabled(DebugTrace))
	assert.False(t, dc.Enabled(DebugExplain))
	assert.False(t, dc.Enabled(DebugNone), "DebugNone is never a message level")
}

func TestDebugLogPrefixes(t *testing.T) {
	dc, buf := plainDebug(DebugExplain)
	dc.Log(DebugSQL, "one")
	dc.Log(DebugTrace, "two %d", 2)
	dc.Log(DebugExplain, "three")

	assert.Equal(t, "[DEBUG] one\n[TRACE] two 2\n[EXPLAIN] three\n", buf.String())

	dc, buf = plainDebug(DebugSQL)
	dc.Log(DebugTrace, "hidden")
	assert.Empty(t, buf.String())
}

func TestDebugLogSQL(t *testing.T) {
	dc, buf := plainDebug(DebugSQL)
	dc.LogSQL(`SELECT * FROM "Contact"`, nil)
	assert.Contains(t, buf.String(), "[SQL]\nSELECT * FROM \"Contact\"\n")
	assert.NotContains(t, buf.String(), "args:")

	buf.Reset()
	dc.LogSQL(`SELECT * FROM "Contact" WHERE "Age" >= $1 AND "Name" = $2`, []interface{}{18, "Alice"})
	assert.Contains(t, buf.String(), "args: [18 Alice]")

	// query traces need Trace
	dc.LogQuery("SELECT 1", time.Millisecond, 3)
	assert.NotContains(t, buf.String(), "Query Trace")
	dc.Level = DebugTrace
	dc.LogQuery("SELECT 1", time.Millisecond, 3)
	assert.Contains(t, buf.String(), "│ Rows: 3")
}

func TestQueryDebugOverridesEngineLevel(t *testing.T) {
	eng := NewEngine()
	eng.Debug.Level = DebugSQL

	assert.Equal(t, DebugSQL, eng.Query("User").getDebugContext().Level)
	assert.Equal(t, DebugTrace, eng.Query("User").DebugTrace().getDebugContext().Level)

	// the override is a copy
	eng.Query("User").DebugTrace().getDebugContext()
	assert.Equal(t, DebugSQL, eng.Debug.Level)

	assert.Equal(t, DebugNone, NewQuery("User").getDebugContext().Level)
}

func TestQueryDebugLogsSQL(t *testing.T) {
	var buf bytes.Buffer
	eng := NewEngine()
	eng.Debug.Writer = &buf
	eng.Debug.ColorOutput = false
	eng.UseProvider(stubProvider{})

	_, err := eng.Query("User").Filter("email", "eq", "ana@mail.com").Debug().Execute(context.Background())
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `SELECT * FROM "User" WHERE "email" = $1`)
	assert.Contains(t, buf.String(), "args: [ana@mail.com]")
	assert.NotContains(t, buf.String(), "[TRACE]")
}

func TestEngineTraceLogsRequests(t *testing.T) {
	var buf bytes.Buffer
	eng := NewEngine().WithDebug(DebugTrace)
	eng.Debug.Writer = &buf
	eng.Debug.ColorOutput = false
	eng.UseProvider(stubProvider{})
	ctx := context.Background()

	_, err := eng.Query("User").Filter("name", "eq", "Ana").Execute(ctx)
	require.NoError(t, err)
	_, err = eng.DefaultValues(ctx, "User")
	require.NoError(t, err)
	_, err = eng.Batch().Add(&DeleteQuery{Entity: "User"}).Execute(ctx)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var traces []string
	for _, l := range lines {
		if strings.HasPrefix(l, "[TRACE] ") {
			traces = append(traces, strings.TrimPrefix(l, "[TRACE] "))
		}
	}
	assert.Equal(t, []string{
		"select User (0 columns, 1 filters)",
		"default values for User",
		"batch of 1 mutations",
	}, traces)
}
