package fixtures

import (
	"fmt"
	"sort"

	"github.com/chameleon-db/chameleon-mock/pkg/engine"
	"github.com/chameleon-db/chameleon-mock/pkg/mock"
)

// Issue is a fixture that does not fit the schema
type Issue struct {
	Origin Origin
	Err    error
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s: %v", i.Origin, i.Err)
}

func (i Issue) Unwrap() error {
	return i.Err
}

// Check validates every fixture against the schema: the entity must exist
// and every filter path and column must resolve to a field
func Check(schema *engine.Schema, merged *Merged) []Issue {
	validator := engine.NewValidator(schema, engine.DefaultValidatorConfig())
	f := merged.Fixtures

	var issues []Issue
	next := 0
	report := func(err error) {
		if err != nil {
			issues = append(issues, Issue{Origin: merged.Origins[next], Err: err})
		}
		next++
	}

	for _, d := range f.DefaultValues {
		report(validator.ValidateSelect(selectOf(d.Entity, columns(d.Values), nil)))
	}
	for _, it := range f.Items {
		report(validator.ValidateSelect(selectOf(it.Entity, nil, it.Filters)))
	}
	for _, s := range f.Scalars {
		err := validator.ValidateSelect(selectOf(s.Entity, nil, s.Filters))
		if err == nil {
			_, err = engine.ParseAggregationType(s.Aggregation)
		}
		report(err)
	}
	for _, s := range f.Saving {
		err := validator.ValidateSelect(selectOf(s.Entity, columns(s.Values), s.Filters))
		if err == nil {
			_, err = mock.ParseKind(s.Operation)
		}
		report(err)
	}

	return issues
}

func selectOf(entity string, cols []string, filters []mock.FilterFixture) *engine.SelectQuery {
	qb := engine.NewQuery(entity).Select(cols...)
	for _, c := range filters {
		op := c.Op
		if op == "" {
			op = engine.OpEq
		}
		qb.Filter(c.Field, op, c.Value)
	}
	return qb.Build()
}

func columns(values map[string]interface{}) []string {
	out := make([]string, 0, len(values))
	for k := range values {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
