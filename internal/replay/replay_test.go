package replay

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/chameleon-db/chameleon-mock/pkg/engine"
	"github.com/chameleon-db/chameleon-mock/pkg/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const checkoutScript = `
name: checkout
steps:
  - default_values: Order
  - name: find alice
    select:
      entity: Contact
      filters:
        - {field: Name, value: Alice}
        - {field: Age, op: gte, value: {Int: 18}}
  - select:
      entity: Contact
      filters: [{field: Name, value: Bob}]
  - select: {entity: Order, aggregate: {function: count}}
  - batch:
      - {operation: insert, entity: Order, values: {Total: 10, Status: new}}
      - {operation: delete, entity: Order, filters: [{field: Id, value: 7}]}
  - batch:
      - {operation: upsert, entity: Order}
`

func newProvider() *mock.Provider {
	p := mock.NewProvider()
	p.MockDefaultValues("Order").Set("Status", "new")
	p.MockItems("Contact").
		FilterEq("Name", "Alice").
		Returns(engine.Row{"Name": "Alice", "Age": 30})
	p.MockScalar("Order", engine.AggregationCount).ReturnsValue(3)
	p.MockSavingItem("Order", mock.Insert).Set("Total", 10)
	p.MockSavingItem("Order", mock.Update).FilterEq("Id", 1)
	return p
}

func TestRunScript(t *testing.T) {
	script, err := DecodeScript("yaml", []byte(checkoutScript))
	require.NoError(t, err)

	summary, err := NewRunner(engine.NewEngine(), newProvider()).Run(context.Background(), script)
	require.NoError(t, err)
	require.Len(t, summary.Results, 6)

	r := summary.Results
	assert.Equal(t, OutcomeHit, r[0].Outcome)
	assert.Equal(t, "new", r[0].Rows[0]["Status"])

	assert.Equal(t, "find alice", r[1].Label)
	assert.Equal(t, OutcomeHit, r[1].Outcome)
	require.Len(t, r[1].Rows, 1)

	assert.Equal(t, OutcomeMiss, r[2].Outcome)
	assert.NoError(t, r[2].Err)

	assert.Equal(t, "count on Order", r[3].Label)
	assert.Equal(t, OutcomeHit, r[3].Outcome)
	assert.Equal(t, 3, r[3].Rows[0]["count"])

	// insert matches, delete has no mock
	assert.Equal(t, OutcomeMiss, r[4].Outcome)
	assert.Equal(t, 1, r[4].Matched)

	assert.Equal(t, OutcomeError, r[5].Outcome)
	assert.ErrorContains(t, r[5].Err, "upsert")

	hits, misses, errs := summary.Counts()
	assert.Equal(t, []int{3, 2, 1}, []int{hits, misses, errs})

	require.Len(t, summary.Unreceived, 1)
	assert.Equal(t, "update", summary.Unreceived[0].Kind)
	assert.True(t, summary.Failed(false))
}

func TestSummaryFailed(t *testing.T) {
	s := &Summary{Results: []StepResult{{Outcome: OutcomeHit}, {Outcome: OutcomeMiss}}}
	assert.False(t, s.Failed(false))
	assert.True(t, s.Failed(true))

	s = &Summary{Results: []StepResult{{Outcome: OutcomeHit}}, Unreceived: []mock.SpecReport{{Kind: "items"}}}
	assert.False(t, s.Failed(false))
	assert.True(t, s.Failed(true))
}

func TestDecodeScriptErrors(t *testing.T) {
	tests := []struct {
		name   string
		format string
		input  string
		want   string
	}{
		{"no steps", "yaml", "name: empty\n", "no steps"},
		{"two requests", "yaml", "steps:\n  - default_values: A\n    select: {entity: A}\n", "exactly one"},
		{"empty step", "yaml", "steps:\n  - name: nothing\n", "got 0"},
		{"select without entity", "yaml", "steps:\n  - select: {limit: 1}\n", "without entity"},
		{"unknown json field", "json", `{"steps": [{"default_values": "A", "bogus": 1}]}`, "bogus"},
		{"format", "xml", "", "unsupported"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeScript(tt.format, []byte(tt.input))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoadScriptNamesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smoke.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"steps": [{"select": {"entity": "Contact", "limit": 5}}]}`), 0o644))

	script, err := LoadScript(path)
	require.NoError(t, err)
	assert.Equal(t, "smoke", script.Name)
	assert.Equal(t, "select Contact", script.Steps[0].Label())

	summary, err := NewRunner(engine.NewEngine(), mock.NewProvider()).Run(context.Background(), script)
	require.NoError(t, err)
	assert.Equal(t, OutcomeMiss, summary.Results[0].Outcome)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	script, err := DecodeScript("yaml", []byte(checkoutScript))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	summary, err := NewRunner(engine.NewEngine(), newProvider()).Run(ctx, script)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, summary.Results)
}
