package mock

import (
	"fmt"

	"github.com/chameleon-db/chameleon-mock/pkg/engine"
)

// SavingItemMock expects an insert, update or delete of one entity. Inserts
// match on column values, deletes on filters, updates on both.
type SavingItemMock struct {
	spec
}

// Set expects the mutation to assign value to column
func (m *SavingItemMock) Set(column string, value interface{}) *SavingItemMock {
	if m.kind == Delete {
		m.fail(fmt.Errorf("delete mocks cannot expect column %q", column))
		return m
	}
	m.addColumn(column, value)
	return m
}

// Filter expects the mutation to carry this condition
func (m *SavingItemMock) Filter(field, op string, value interface{}) *SavingItemMock {
	if m.kind == Insert {
		m.fail(fmt.Errorf("insert mocks cannot expect filter on %q", field))
		return m
	}
	m.addFilter(field, op, value)
	return m
}

func (m *SavingItemMock) FilterEq(field string, value interface{}) *SavingItemMock {
	return m.Filter(field, engine.OpEq, value)
}

// matches reports whether the mutation satisfies the expectation
func (m *SavingItemMock) matches(columns ColumnValues, params Parameters) bool {
	switch m.kind {
	case Insert:
		return m.checkByColumnValues(columns)
	case Update:
		return m.checkByColumnValues(columns) && m.checkByParameters(params)
	case Delete:
		return m.checkByParameters(params)
	}
	return false
}
