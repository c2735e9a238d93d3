package mock

import (
	"errors"

	"github.com/chameleon-db/chameleon-mock/pkg/engine"
)

// ItemsMock answers collection reads of one entity
type ItemsMock struct {
	spec
	rows     []engine.Row
	fn       func(q *engine.SelectQuery) []engine.Row
	errorMsg string
}

// Filter narrows the expectation to queries carrying this condition
func (m *ItemsMock) Filter(field, op string, value interface{}) *ItemsMock {
	m.addFilter(field, op, value)
	return m
}

// FilterEq is Filter with the Eq operator
func (m *ItemsMock) FilterEq(field string, value interface{}) *ItemsMock {
	return m.Filter(field, engine.OpEq, value)
}

// Returns sets the rows handed back on every match
func (m *ItemsMock) Returns(rows ...engine.Row) *ItemsMock {
	m.rows = copyRows(rows)
	m.fn = nil
	m.errorMsg = ""
	return m
}

// ReturnsFunc computes the rows from the matched query
func (m *ItemsMock) ReturnsFunc(fn func(q *engine.SelectQuery) []engine.Row) *ItemsMock {
	if fn == nil {
		m.fail(errors.New("nil rows function"))
		return m
	}
	m.fn = fn
	m.rows = nil
	m.errorMsg = ""
	return m
}

// ReturnsError answers every match with a failed response
func (m *ItemsMock) ReturnsError(message string) *ItemsMock {
	m.errorMsg = message
	return m
}

func (m *ItemsMock) response(q *engine.SelectQuery) *engine.ItemsResponse {
	if m.errorMsg != "" {
		return &engine.ItemsResponse{Success: false, Rows: []engine.Row{}, ErrorMessage: m.errorMsg}
	}
	rows := copyRows(m.rows)
	if m.fn != nil {
		rows = m.fn(q)
		if rows == nil {
			rows = []engine.Row{}
		}
	}
	return &engine.ItemsResponse{Success: true, Rows: rows}
}

// ScalarMock answers single-aggregate reads such as COUNT(*) of one entity
type ScalarMock struct {
	spec
	aggregation engine.AggregationType
	value       interface{}
	fn          func(q *engine.SelectQuery) interface{}
	errorMsg    string
}

// Aggregation returns the aggregate the expectation answers
func (m *ScalarMock) Aggregation() engine.AggregationType {
	return m.aggregation
}

func (m *ScalarMock) Filter(field, op string, value interface{}) *ScalarMock {
	m.addFilter(field, op, value)
	return m
}

func (m *ScalarMock) FilterEq(field string, value interface{}) *ScalarMock {
	return m.Filter(field, engine.OpEq, value)
}

// ReturnsValue sets the aggregate value
func (m *ScalarMock) ReturnsValue(v interface{}) *ScalarMock {
	m.value = v
	m.fn = nil
	m.errorMsg = ""
	return m
}

// ReturnsFunc computes the aggregate value from the matched query
func (m *ScalarMock) ReturnsFunc(fn func(q *engine.SelectQuery) interface{}) *ScalarMock {
	if fn == nil {
		m.fail(errors.New("nil value function"))
		return m
	}
	m.fn = fn
	m.value = nil
	m.errorMsg = ""
	return m
}

func (m *ScalarMock) ReturnsError(message string) *ScalarMock {
	m.errorMsg = message
	return m
}

// response wraps the value in a single row keyed by the projected column
func (m *ScalarMock) response(q *engine.SelectQuery) *engine.ItemsResponse {
	if m.errorMsg != "" {
		return &engine.ItemsResponse{Success: false, Rows: []engine.Row{}, ErrorMessage: m.errorMsg}
	}
	value := m.value
	if m.fn != nil {
		value = m.fn(q)
	}

	column := q.Columns[0]
	name := column.Name()
	if name == "" {
		name = column.Expr.Aggregation.String()
	}
	return &engine.ItemsResponse{Success: true, Rows: []engine.Row{{name: value}}}
}
