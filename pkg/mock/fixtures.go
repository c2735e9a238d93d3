package mock

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/chameleon-db/chameleon-mock/pkg/engine"
	"gopkg.in/yaml.v3"
)

// Fixtures declares expectations in a file instead of code
//
//	default_values:
//	  - entity: Contact
//	    values: {Active: true}
//	items:
//	  - entity: Contact
//	    filters:
//	      - {field: Name, op: eq, value: Alice}
//	    rows:
//	      - {Name: Alice, Age: 30}
//	scalars:
//	  - entity: Contact
//	    aggregation: count
//	    value: 2
//	saving:
//	  - entity: Contact
//	    operation: insert
//	    values: {Name: Bob}
type Fixtures struct {
	DefaultValues []DefaultValuesFixture `json:"default_values" yaml:"default_values" toml:"default_values"`
	Items         []ItemsFixture         `json:"items" yaml:"items" toml:"items"`
	Scalars       []ScalarFixture        `json:"scalars" yaml:"scalars" toml:"scalars"`
	Saving        []SavingFixture        `json:"saving" yaml:"saving" toml:"saving"`
}

// FilterFixture is one condition. Value may be a plain scalar, a list or a
// typed literal such as {Int: 5}.
type FilterFixture struct {
	Field string      `json:"field" yaml:"field" toml:"field"`
	Op    string      `json:"op" yaml:"op" toml:"op"`
	Value interface{} `json:"value" yaml:"value" toml:"value"`
}

type DefaultValuesFixture struct {
	Entity string                 `json:"entity" yaml:"entity" toml:"entity"`
	Values map[string]interface{} `json:"values" yaml:"values" toml:"values"`
	Error  string                 `json:"error,omitempty" yaml:"error,omitempty" toml:"error,omitempty"`
}

type ItemsFixture struct {
	Entity  string                   `json:"entity" yaml:"entity" toml:"entity"`
	Filters []FilterFixture          `json:"filters" yaml:"filters" toml:"filters"`
	Rows    []map[string]interface{} `json:"rows" yaml:"rows" toml:"rows"`
	Error   string                   `json:"error,omitempty" yaml:"error,omitempty" toml:"error,omitempty"`
}

type ScalarFixture struct {
	Entity      string          `json:"entity" yaml:"entity" toml:"entity"`
	Aggregation string          `json:"aggregation" yaml:"aggregation" toml:"aggregation"`
	Filters     []FilterFixture `json:"filters" yaml:"filters" toml:"filters"`
	Value       interface{}     `json:"value" yaml:"value" toml:"value"`
	Error       string          `json:"error,omitempty" yaml:"error,omitempty" toml:"error,omitempty"`
}

type SavingFixture struct {
	Entity    string                 `json:"entity" yaml:"entity" toml:"entity"`
	Operation string                 `json:"operation" yaml:"operation" toml:"operation"`
	Values    map[string]interface{} `json:"values" yaml:"values" toml:"values"`
	Filters   []FilterFixture        `json:"filters" yaml:"filters" toml:"filters"`
}

// DecodeFixtures parses fixtures in the given format: yaml, yml, toml or
// json
func DecodeFixtures(format string, data []byte) (*Fixtures, error) {
	var f Fixtures
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse yaml fixtures: %w", err)
		}
	case "toml":
		if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&f); err != nil {
			return nil, fmt.Errorf("failed to parse toml fixtures: %w", err)
		}
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("failed to parse json fixtures: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported fixtures format %q", format)
	}
	return &f, nil
}

// LoadFixtures reads a fixtures file, picking the format from its extension
func LoadFixtures(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixtures: %w", err)
	}
	f, err := DecodeFixtures(filepath.Ext(path), data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Merge appends other's fixtures after f's
func (f *Fixtures) Merge(other *Fixtures) {
	if other == nil {
		return
	}
	f.DefaultValues = append(f.DefaultValues, other.DefaultValues...)
	f.Items = append(f.Items, other.Items...)
	f.Scalars = append(f.Scalars, other.Scalars...)
	f.Saving = append(f.Saving, other.Saving...)
}

// Len returns the number of declared expectations
func (f *Fixtures) Len() int {
	return len(f.DefaultValues) + len(f.Items) + len(f.Scalars) + len(f.Saving)
}

// Entities returns the distinct entity names referenced, sorted
func (f *Fixtures) Entities() []string {
	seen := make(map[string]struct{})
	for _, d := range f.DefaultValues {
		seen[d.Entity] = struct{}{}
	}
	for _, i := range f.Items {
		seen[i.Entity] = struct{}{}
	}
	for _, s := range f.Scalars {
		seen[s.Entity] = struct{}{}
	}
	for _, s := range f.Saving {
		seen[s.Entity] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Apply registers every fixture on p in declaration order. It returns the
// joined builder errors; the valid fixtures are registered regardless.
func (f *Fixtures) Apply(p *Provider) error {
	var errs []error
	check := func(s Spec) {
		if err := s.Err(); err != nil {
			errs = append(errs, err)
		}
	}

	for _, d := range f.DefaultValues {
		m := p.MockDefaultValues(d.Entity)
		for column, value := range d.Values {
			m.Set(column, value)
		}
		if d.Error != "" {
			m.ReturnsError(d.Error)
		}
		check(m)
	}

	for _, i := range f.Items {
		m := p.MockItems(i.Entity)
		for _, c := range i.Filters {
			m.Filter(c.Field, opOrEq(c.Op), c.Value)
		}
		rows := make([]engine.Row, len(i.Rows))
		for n, row := range i.Rows {
			rows[n] = engine.Row(row)
		}
		m.Returns(rows...)
		if i.Error != "" {
			m.ReturnsError(i.Error)
		}
		check(m)
	}

	for _, s := range f.Scalars {
		agg, err := engine.ParseAggregationType(s.Aggregation)
		if err != nil {
			errs = append(errs, fmt.Errorf("scalar fixture for %s: %w", s.Entity, err))
			continue
		}
		m := p.MockScalar(s.Entity, agg)
		for _, c := range s.Filters {
			m.Filter(c.Field, opOrEq(c.Op), c.Value)
		}
		m.ReturnsValue(s.Value)
		if s.Error != "" {
			m.ReturnsError(s.Error)
		}
		check(m)
	}

	for _, s := range f.Saving {
		kind, err := ParseKind(s.Operation)
		if err != nil {
			errs = append(errs, fmt.Errorf("saving fixture for %s: %w", s.Entity, err))
			continue
		}
		m := p.MockSavingItem(s.Entity, kind)
		for column, value := range s.Values {
			m.Set(column, value)
		}
		for _, c := range s.Filters {
			m.Filter(c.Field, opOrEq(c.Op), c.Value)
		}
		check(m)
	}

	return errors.Join(errs...)
}

func opOrEq(op string) string {
	if op == "" {
		return engine.OpEq
	}
	return op
}
