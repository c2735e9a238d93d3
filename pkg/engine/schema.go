package engine

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Schema represents the complete database schema
type Schema struct {
	Entities []*Entity `json:"entities" yaml:"entities"`
}

// Entity represents a database entity (table)
type Entity struct {
	Name      string               `json:"name" yaml:"name"`
	Table     string               `json:"table,omitempty" yaml:"table,omitempty"`
	Fields    map[string]*Field    `json:"fields" yaml:"fields"`
	Relations map[string]*Relation `json:"relations,omitempty" yaml:"relations,omitempty"`
}

// Field represents an entity field (column)
type Field struct {
	Name       string      `json:"name" yaml:"name"`
	Type       FieldType   `json:"field_type" yaml:"type"`
	Nullable   bool        `json:"nullable" yaml:"nullable"`
	Unique     bool        `json:"unique" yaml:"unique"`
	PrimaryKey bool        `json:"primary_key" yaml:"primary_key"`
	Default    interface{} `json:"default,omitempty" yaml:"default,omitempty"`
}

// FieldType represents the type of a field
type FieldType string

const (
	FieldTypeUUID      FieldType = "UUID"
	FieldTypeString    FieldType = "String"
	FieldTypeInt       FieldType = "Int"
	FieldTypeDecimal   FieldType = "Decimal"
	FieldTypeBool      FieldType = "Bool"
	FieldTypeTimestamp FieldType = "Timestamp"
)

// Relation represents a relationship between entities
type Relation struct {
	Name         string       `json:"name" yaml:"name"`
	Kind         RelationKind `json:"kind" yaml:"kind"`
	TargetEntity string       `json:"target_entity" yaml:"target_entity"`
	ForeignKey   *string      `json:"foreign_key,omitempty" yaml:"foreign_key,omitempty"`
	Through      *string      `json:"through,omitempty" yaml:"through,omitempty"`
}

// RelationKind represents the type of relationship
type RelationKind string

const (
	RelationHasOne     RelationKind = "HasOne"
	RelationHasMany    RelationKind = "HasMany"
	RelationBelongsTo  RelationKind = "BelongsTo"
	RelationManyToMany RelationKind = "ManyToMany"
)

// ParseSchemaJSON parses a JSON string into a Schema
func ParseSchemaJSON(jsonStr string) (*Schema, error) {
	var schema Schema
	if err := json.Unmarshal([]byte(jsonStr), &schema); err != nil {
		return nil, err
	}
	return schema.normalize()
}

// ParseSchemaYAML parses a YAML document into a Schema
func ParseSchemaYAML(input string) (*Schema, error) {
	var schema Schema
	if err := yaml.Unmarshal([]byte(input), &schema); err != nil {
		return nil, err
	}
	return schema.normalize()
}

// ToJSON converts a Schema to JSON string
func (s *Schema) ToJSON() (string, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// GetEntity returns an entity by name, or nil if not found
func (s *Schema) GetEntity(name string) *Entity {
	for _, entity := range s.Entities {
		if entity.Name == name {
			return entity
		}
	}
	return nil
}

// EntityNames returns the entity names in declaration order
func (s *Schema) EntityNames() []string {
	names := make([]string, 0, len(s.Entities))
	for _, entity := range s.Entities {
		names = append(names, entity.Name)
	}
	return names
}

// FieldNames returns the sorted field names of the entity
func (e *Entity) FieldNames() []string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TableName returns the physical table, defaulting to the entity name
func (e *Entity) TableName() string {
	if e.Table != "" {
		return e.Table
	}
	return e.Name
}

// Defaults returns the declared default values of the entity's fields
func (e *Entity) Defaults() Row {
	values := make(Row)
	for name, field := range e.Fields {
		if field.Default != nil {
			values[name] = field.Default
		}
	}
	return values
}

// normalize fills names from map keys and checks for duplicate entities
func (s *Schema) normalize() (*Schema, error) {
	seen := make(map[string]bool)
	for i, entity := range s.Entities {
		if entity == nil || strings.TrimSpace(entity.Name) == "" {
			return nil, fmt.Errorf("entity #%d has no name", i)
		}
		if seen[entity.Name] {
			return nil, fmt.Errorf("duplicate entity %q", entity.Name)
		}
		seen[entity.Name] = true

		for name, field := range entity.Fields {
			if field == nil {
				field = &Field{Type: FieldTypeString}
				entity.Fields[name] = field
			}
			if field.Name == "" {
				field.Name = name
			}
		}
		for name, rel := range entity.Relations {
			if rel != nil && rel.Name == "" {
				rel.Name = name
			}
		}
	}
	return s, nil
}
