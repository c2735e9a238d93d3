package replay

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chameleon-db/chameleon-mock/pkg/engine"
	"github.com/chameleon-db/chameleon-mock/pkg/mock"
	"gopkg.in/yaml.v3"
)

// Script is a sequence of requests played against a provider
//
//	name: checkout
//	steps:
//	  - default_values: Order
//	  - select:
//	      entity: Contact
//	      filters: [{field: Name, value: Alice}]
//	  - select: {entity: Order, aggregate: {function: count}}
//	  - batch:
//	      - {operation: insert, entity: Order, values: {Total: 10}}
type Script struct {
	Name  string `json:"name" yaml:"name"`
	Steps []Step `json:"steps" yaml:"steps"`
}

// Step holds exactly one of DefaultValues, Select or Batch
type Step struct {
	Name          string         `json:"name,omitempty" yaml:"name,omitempty"`
	DefaultValues string         `json:"default_values,omitempty" yaml:"default_values,omitempty"`
	Select        *SelectStep    `json:"select,omitempty" yaml:"select,omitempty"`
	Batch         []MutationStep `json:"batch,omitempty" yaml:"batch,omitempty"`
}

type SelectStep struct {
	Entity    string               `json:"entity" yaml:"entity"`
	Columns   []string             `json:"columns,omitempty" yaml:"columns,omitempty"`
	Aggregate *AggregateStep       `json:"aggregate,omitempty" yaml:"aggregate,omitempty"`
	Filters   []mock.FilterFixture `json:"filters,omitempty" yaml:"filters,omitempty"`
	Limit     uint64               `json:"limit,omitempty" yaml:"limit,omitempty"`
}

// AggregateStep turns a select into a scalar query
type AggregateStep struct {
	Function string `json:"function" yaml:"function"`
	Field    string `json:"field,omitempty" yaml:"field,omitempty"`
	Alias    string `json:"alias,omitempty" yaml:"alias,omitempty"`
}

type MutationStep struct {
	Operation string                 `json:"operation" yaml:"operation"`
	Entity    string                 `json:"entity" yaml:"entity"`
	Values    map[string]interface{} `json:"values,omitempty" yaml:"values,omitempty"`
	Filters   []mock.FilterFixture   `json:"filters,omitempty" yaml:"filters,omitempty"`
}

// Kind names the request type of the step
func (s Step) Kind() string {
	switch {
	case s.DefaultValues != "":
		return "default_values"
	case s.Select != nil:
		return "select"
	case len(s.Batch) > 0:
		return "batch"
	default:
		return "empty"
	}
}

// Label is the step name, or a description of the request
func (s Step) Label() string {
	if s.Name != "" {
		return s.Name
	}
	switch s.Kind() {
	case "default_values":
		return "default values of " + s.DefaultValues
	case "select":
		if s.Select.Aggregate != nil {
			return fmt.Sprintf("%s on %s", strings.ToLower(s.Select.Aggregate.Function), s.Select.Entity)
		}
		return "select " + s.Select.Entity
	case "batch":
		ops := make([]string, len(s.Batch))
		for i, m := range s.Batch {
			ops[i] = strings.ToLower(m.Operation) + " " + m.Entity
		}
		return "batch [" + strings.Join(ops, ", ") + "]"
	}
	return "empty step"
}

// Validate checks that every step carries exactly one request
func (s *Script) Validate() error {
	if len(s.Steps) == 0 {
		return fmt.Errorf("script %q has no steps", s.Name)
	}
	for i, step := range s.Steps {
		set := 0
		if step.DefaultValues != "" {
			set++
		}
		if step.Select != nil {
			set++
		}
		if len(step.Batch) > 0 {
			set++
		}
		if set != 1 {
			return fmt.Errorf("step %d: expected exactly one of default_values, select or batch, got %d", i+1, set)
		}
		if step.Select != nil && step.Select.Entity == "" {
			return fmt.Errorf("step %d: select without entity", i+1)
		}
	}
	return nil
}

// DecodeScript parses a YAML or JSON script
func DecodeScript(format string, data []byte) (*Script, error) {
	var s Script
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("failed to parse script: %w", err)
		}
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&s); err != nil {
			return nil, fmt.Errorf("failed to parse script: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported script format %q", format)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadScript reads a script file, picking the format from its extension
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	s, err := DecodeScript(filepath.Ext(path), data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return s, nil
}

func (m MutationStep) query() (engine.BatchQuery, error) {
	switch strings.ToLower(m.Operation) {
	case "insert":
		return &engine.InsertQuery{Entity: m.Entity, Values: m.Values}, nil
	case "update":
		return &engine.UpdateQuery{Entity: m.Entity, Values: m.Values, Filters: filters(m.Filters)}, nil
	case "delete":
		return &engine.DeleteQuery{Entity: m.Entity, Filters: filters(m.Filters)}, nil
	default:
		return nil, fmt.Errorf("unknown operation %q on %s", m.Operation, m.Entity)
	}
}

func (s *SelectStep) apply(qb *engine.QueryBuilder) error {
	qb.Select(s.Columns...)
	if s.Aggregate != nil {
		agg, err := engine.ParseAggregationType(s.Aggregate.Function)
		if err != nil {
			return err
		}
		if agg == engine.AggregationNone {
			return fmt.Errorf("aggregate on %s needs a function", s.Entity)
		}
		qb.Aggregate(agg, s.Aggregate.Field, s.Aggregate.Alias)
	}
	for _, f := range filters(s.Filters) {
		qb.Where(f)
	}
	if s.Limit > 0 {
		qb.Limit(s.Limit)
	}
	return nil
}

func filters(fs []mock.FilterFixture) []engine.FilterExpr {
	out := make([]engine.FilterExpr, len(fs))
	for i, f := range fs {
		op := f.Op
		if op == "" {
			op = engine.OpEq
		}
		out[i] = engine.Cond(f.Field, op, f.Value)
	}
	return out
}
