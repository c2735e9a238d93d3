package mock

import (
	"errors"

	"github.com/chameleon-db/chameleon-mock/pkg/engine"
)

// DefaultValuesMock answers default-values requests for one entity. There is
// at most one per entity; registering again returns the same mock.
type DefaultValuesMock struct {
	spec
	values   engine.Row
	fn       func() engine.Row
	errorMsg string
}

// ReturnsValues replaces the default values
func (m *DefaultValuesMock) ReturnsValues(values engine.Row) *DefaultValuesMock {
	m.values = copyRow(values)
	if m.values == nil {
		m.values = engine.Row{}
	}
	m.fn = nil
	m.errorMsg = ""
	return m
}

// Set adds or replaces a single default value
func (m *DefaultValuesMock) Set(column string, value interface{}) *DefaultValuesMock {
	if m.values == nil {
		m.values = engine.Row{}
	}
	m.values[column] = value
	return m
}

// ReturnsFunc computes the default values on every request
func (m *DefaultValuesMock) ReturnsFunc(fn func() engine.Row) *DefaultValuesMock {
	if fn == nil {
		m.fail(errors.New("nil values function"))
		return m
	}
	m.fn = fn
	m.errorMsg = ""
	return m
}

func (m *DefaultValuesMock) ReturnsError(message string) *DefaultValuesMock {
	m.errorMsg = message
	return m
}

func (m *DefaultValuesMock) response() *engine.DefaultValuesResponse {
	if m.errorMsg != "" {
		return &engine.DefaultValuesResponse{Success: false, Values: engine.Row{}, ErrorMessage: m.errorMsg}
	}
	values := copyRow(m.values)
	if m.fn != nil {
		values = m.fn()
	}
	if values == nil {
		values = engine.Row{}
	}
	return &engine.DefaultValuesResponse{Success: true, Values: values}
}
