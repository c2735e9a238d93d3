package engine

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ============================================================
// VALIDATOR CONFIG
// ============================================================

type ValidatorConfig struct {
	StrictTypes     bool
	ValidateFormats bool
}

func DefaultValidatorConfig() ValidatorConfig {
	return ValidatorConfig{
		StrictTypes:     true,
		ValidateFormats: true,
	}
}

// ============================================================
// VALIDATOR
// ============================================================

type Validator struct {
	schema *Schema
	config ValidatorConfig
}

func NewValidator(schema *Schema, config ValidatorConfig) *Validator {
	return &Validator{
		schema: schema,
		config: config,
	}
}

// ============================================================
// INSERT VALIDATION
// ============================================================

func (v *Validator) ValidateInsert(q *InsertQuery) error {
	ent, err := v.entity(q.Entity)
	if err != nil {
		return err
	}

	for _, fieldName := range sortedKeys(q.Values) {
		if err := v.validateInsertField(ent, fieldName, q.Values[fieldName]); err != nil {
			return err
		}
	}

	return v.validateRequiredFields(ent, q.Values)
}

func (v *Validator) validateInsertField(
	ent *Entity,
	fieldName string,
	value interface{},
) error {
	field, err := v.field(ent, fieldName)
	if err != nil {
		return err
	}

	if err := v.validateFieldType(field, fieldName, value); err != nil {
		return err
	}

	return v.validateFieldFormat(fieldName, value)
}

// ============================================================
// UPDATE VALIDATION
// ============================================================

func (v *Validator) ValidateUpdate(q *UpdateQuery, forceAll bool) error {
	ent, err := v.entity(q.Entity)
	if err != nil {
		return err
	}

	if len(q.Filters) == 0 && !forceAll {
		return &SafetyError{
			Operation:  "update_without_filter",
			Message:    "UPDATE requires a WHERE clause",
			Suggestion: "Use Filter() or ForceUpdateAll()",
		}
	}

	if err := v.validateFilters(ent, q.Filters); err != nil {
		return err
	}

	if len(q.Values) == 0 {
		return &ConstraintError{
			Type:       "empty_update",
			Field:      "*",
			Suggestion: "Use Set() to assign at least one field",
		}
	}

	for _, fieldName := range sortedKeys(q.Values) {
		value := q.Values[fieldName]
		field, err := v.field(ent, fieldName)
		if err != nil {
			return err
		}

		if field.PrimaryKey {
			return &ConstraintError{
				Type:       "primary_key",
				Field:      fieldName,
				Value:      value,
				Suggestion: "Primary keys cannot be updated",
			}
		}

		if err := v.validateFieldType(field, fieldName, value); err != nil {
			return err
		}
		if err := v.validateFieldFormat(fieldName, value); err != nil {
			return err
		}
	}

	return nil
}

// ============================================================
// DELETE VALIDATION
// ============================================================

func (v *Validator) ValidateDelete(q *DeleteQuery, forceDeleteAll bool) error {
	ent, err := v.entity(q.Entity)
	if err != nil {
		return err
	}

	if len(q.Filters) == 0 && !forceDeleteAll {
		return &SafetyError{
			Operation:  "delete_without_filter",
			Message:    "DELETE without WHERE is blocked",
			Suggestion: "Use Filter() or ForceDeleteAll()",
		}
	}

	return v.validateFilters(ent, q.Filters)
}

// ============================================================
// SELECT VALIDATION
// ============================================================

// ValidateSelect checks entity, projected fields, filters and includes
func (v *Validator) ValidateSelect(q *SelectQuery) error {
	ent, err := v.entity(q.Entity)
	if err != nil {
		return err
	}

	for _, col := range q.Columns {
		if col.Expr.Field.IsEmpty() {
			if col.Expr.Aggregation != AggregationCount {
				return &UnknownFieldError{Entity: ent.Name, Field: "*", Available: ent.FieldNames()}
			}
			continue
		}
		if _, err := v.resolvePath(ent, col.Expr.Field.Segments); err != nil {
			return err
		}
	}

	for _, inc := range q.Includes {
		current := ent
		for _, rel := range inc.Path {
			next, err := v.relation(current, rel)
			if err != nil {
				return err
			}
			current = next
		}
	}

	return v.validateFilters(ent, q.Filters)
}

func (v *Validator) validateFilters(ent *Entity, filters []FilterExpr) error {
	for _, f := range filters {
		if err := v.validateFilterExpr(ent, f); err != nil {
			return err
		}
	}
	return nil
}

func (v *Validator) validateFilterExpr(ent *Entity, f FilterExpr) error {
	switch {
	case f.Condition != nil:
		c := f.Condition
		field, err := v.resolvePath(ent, c.Field.Segments)
		if err != nil {
			return err
		}
		if !KnownOp(c.Op) {
			return &UnknownOperatorError{Field: c.Field.String(), Operator: c.Op}
		}
		if c.Op == OpLike && field.Type != FieldTypeString {
			return &TypeMismatchError{
				Field:        c.Field.String(),
				ExpectedType: "String",
				ReceivedType: string(field.Type),
				Value:        c.Value,
				Suggestion:   "LIKE only applies to string fields",
			}
		}
		return nil
	case f.Binary != nil:
		if err := v.validateFilterExpr(ent, f.Binary.Left); err != nil {
			return err
		}
		return v.validateFilterExpr(ent, f.Binary.Right)
	default:
		return fmt.Errorf("empty filter expression on %s", ent.Name)
	}
}

// ============================================================
// FIELD TYPE VALIDATION
// ============================================================

func (v *Validator) validateFieldType(
	field *Field,
	fieldName string,
	value interface{},
) error {
	if value == nil {
		if field.Nullable {
			return nil
		}
		return &NotNullError{
			Field:      fieldName,
			Suggestion: "This field cannot be null",
		}
	}

	if !v.config.StrictTypes {
		return nil
	}

	mismatch := func(suggestion string) error {
		return &TypeMismatchError{
			Field:        fieldName,
			ExpectedType: string(field.Type),
			ReceivedType: fmt.Sprintf("%T", value),
			Value:        value,
			Suggestion:   suggestion,
		}
	}

	switch field.Type {
	case FieldTypeUUID:
		switch val := value.(type) {
		case uuid.UUID, [16]byte:
		case string:
			if !isValidUUID(val) {
				return &FieldFormatError{
					Field:      fieldName,
					Format:     "UUID",
					Value:      val,
					Suggestion: "Use uuid.New().String()",
				}
			}
		default:
			return mismatch("Pass a uuid.UUID or its string form")
		}

	case FieldTypeString:
		if _, ok := value.(string); !ok {
			return mismatch("Pass a string")
		}

	case FieldTypeInt:
		switch val := value.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		case float64:
			if val != math.Trunc(val) {
				return mismatch("Pass a whole number")
			}
		default:
			return mismatch("Pass an integer")
		}

	case FieldTypeDecimal:
		switch val := value.(type) {
		case decimal.Decimal, *decimal.Decimal,
			int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64,
			float32, float64:
		case string:
			if _, err := decimal.NewFromString(val); err != nil {
				return &FieldFormatError{
					Field:      fieldName,
					Format:     "decimal",
					Value:      val,
					Suggestion: "Use decimal.NewFromString or a numeric literal",
				}
			}
		default:
			return mismatch("Pass a decimal.Decimal or a number")
		}

	case FieldTypeBool:
		if _, ok := value.(bool); !ok {
			return mismatch("Pass true or false")
		}

	case FieldTypeTimestamp:
		switch val := value.(type) {
		case time.Time, *time.Time:
		case string:
			if _, err := time.Parse(time.RFC3339Nano, val); err != nil {
				return &FieldFormatError{
					Field:      fieldName,
					Format:     "RFC 3339 timestamp",
					Value:      val,
					Suggestion: "Pass a time.Time or e.g. 2024-01-02T15:04:05Z",
				}
			}
		default:
			return mismatch("Pass a time.Time")
		}
	}

	return nil
}

// ============================================================
// FORMAT VALIDATION
// ============================================================

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func (v *Validator) validateFieldFormat(
	fieldName string,
	value interface{},
) error {
	if !v.config.ValidateFormats {
		return nil
	}
	str, ok := value.(string)
	if !ok || str == "" {
		return nil
	}

	if strings.Contains(strings.ToLower(fieldName), "email") {
		if !isValidEmail(str) {
			return &FieldFormatError{
				Field:      fieldName,
				Format:     "email",
				Value:      str,
				Suggestion: "Use a valid email address",
			}
		}
	}

	return nil
}

// ============================================================
// REQUIRED FIELDS
// ============================================================

func (v *Validator) validateRequiredFields(
	ent *Entity,
	provided map[string]interface{},
) error {
	for _, name := range ent.FieldNames() {
		field := ent.Fields[name]
		if field.Nullable || field.Default != nil || field.PrimaryKey {
			continue
		}

		if _, ok := provided[name]; !ok {
			return &NotNullError{
				Field:      name,
				Suggestion: "This field is required",
			}
		}
	}
	return nil
}

// ============================================================
// HELPERS
// ============================================================

func (v *Validator) entity(name string) (*Entity, error) {
	if v.schema == nil {
		return nil, ErrNoSchema
	}
	ent := v.schema.GetEntity(name)
	if ent == nil {
		return nil, &UnknownEntityError{
			Entity:    name,
			Available: v.getAvailableEntities(),
		}
	}
	return ent, nil
}

func (v *Validator) field(ent *Entity, name string) (*Field, error) {
	field, ok := ent.Fields[name]
	if !ok {
		return nil, &UnknownFieldError{
			Entity:    ent.Name,
			Field:     name,
			Available: ent.FieldNames(),
		}
	}
	return field, nil
}

func (v *Validator) relation(ent *Entity, name string) (*Entity, error) {
	rel, ok := ent.Relations[name]
	if !ok || rel == nil {
		return nil, &UnknownFieldError{
			Entity:    ent.Name,
			Field:     name,
			Available: relationNames(ent),
		}
	}
	return v.entity(rel.TargetEntity)
}

// resolvePath walks relations for all but the last segment
func (v *Validator) resolvePath(ent *Entity, segments []string) (*Field, error) {
	if len(segments) == 0 {
		return nil, &UnknownFieldError{Entity: ent.Name, Field: "", Available: ent.FieldNames()}
	}
	current := ent
	for _, seg := range segments[:len(segments)-1] {
		next, err := v.relation(current, seg)
		if err != nil {
			return nil, err
		}
		current = next
	}
	return v.field(current, segments[len(segments)-1])
}

func (v *Validator) getAvailableEntities() []string {
	entities := v.schema.EntityNames()
	sort.Strings(entities)
	return entities
}

func relationNames(ent *Entity) []string {
	names := make([]string, 0, len(ent.Relations))
	for name := range ent.Relations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

func isValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}
