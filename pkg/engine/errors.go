package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
)

var (
	// ErrNoSchema is returned when an operation needs a loaded schema.
	ErrNoSchema = errors.New("no schema loaded")

	// ErrNoProvider is returned when no data provider is attached to the engine.
	ErrNoProvider = errors.New("no data provider configured")

	// ErrNotConnected is returned by database-backed providers before Connect.
	ErrNotConnected = errors.New("not connected to database")

	// ErrNoResponse means the provider had no answer for the query.
	ErrNoResponse = errors.New("no response for query")

	// ErrUnsupportedOperation is returned for batch items that are not an
	// insert, update or delete.
	ErrUnsupportedOperation = errors.New("unsupported batch operation")

	// ErrUnknownScheme is returned by OpenProvider for unregistered URI schemes.
	ErrUnknownScheme = errors.New("unknown provider scheme")
)

// ProviderError wraps an unsuccessful provider response.
type ProviderError struct {
	Operation string
	Entity    string
	Message   string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s on %s failed: %s", e.Operation, e.Entity, e.Message)
}

// ============================================================
// VALIDATION ERRORS (before the query reaches a provider)
// ============================================================

// ValidationError is the base interface for all schema validation errors
type ValidationError interface {
	error
	Code() string       // Error code for programmatic handling
	IsValidationError() // Marker method
}

// TypeMismatchError: Value doesn't match field type
type TypeMismatchError struct {
	Field        string
	ExpectedType string
	ReceivedType string
	Value        interface{}
	Suggestion   string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf(
		"TypeMismatchError: Field '%s'\n"+
			"  Expected type: %s\n"+
			"  Received type: %s (value: %v)\n"+
			"  Suggestion: %s",
		e.Field, e.ExpectedType, e.ReceivedType, e.Value, e.Suggestion,
	)
}

func (e *TypeMismatchError) Code() string       { return "TYPE_MISMATCH" }
func (e *TypeMismatchError) IsValidationError() {}

// FieldFormatError: Invalid format (e.g., email, uuid)
type FieldFormatError struct {
	Field      string
	Format     string
	Value      string
	Suggestion string
}

func (e *FieldFormatError) Error() string {
	return fmt.Sprintf(
		"FormatError: Field '%s'\n"+
			"  Expected format: %s\n"+
			"  Provided value: %q\n"+
			"  Suggestion: %s",
		e.Field, e.Format, e.Value, e.Suggestion,
	)
}

func (e *FieldFormatError) Code() string       { return "FORMAT_ERROR" }
func (e *FieldFormatError) IsValidationError() {}

// ConstraintError: Generic constraint violation
type ConstraintError struct {
	Type       string // "primary_key", "unique", "not_null"
	Field      string
	Value      interface{}
	Suggestion string
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf(
		"ConstraintError: %s constraint violation\n"+
			"  Field: %s\n"+
			"  Value: %v\n"+
			"  Suggestion: %s",
		e.Type, e.Field, e.Value, e.Suggestion,
	)
}

func (e *ConstraintError) Code() string       { return strings.ToUpper(e.Type) + "_CONSTRAINT" }
func (e *ConstraintError) IsValidationError() {}

// NotNullError: Required field is null
type NotNullError struct {
	Field      string
	Suggestion string
}

func (e *NotNullError) Error() string {
	return fmt.Sprintf(
		"NotNullError: Field '%s' cannot be null\n"+
			"  Suggestion: %s",
		e.Field, e.Suggestion,
	)
}

func (e *NotNullError) Code() string       { return "NOT_NULL_VIOLATION" }
func (e *NotNullError) IsValidationError() {}

// UnknownFieldError: Field doesn't exist in schema
type UnknownFieldError struct {
	Entity    string
	Field     string
	Available []string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf(
		"UnknownFieldError: Entity '%s' has no field '%s'\n"+
			"  Available fields: %v",
		e.Entity, e.Field, e.Available,
	)
}

func (e *UnknownFieldError) Code() string       { return "UNKNOWN_FIELD" }
func (e *UnknownFieldError) IsValidationError() {}

// UnknownEntityError: Entity doesn't exist in schema
type UnknownEntityError struct {
	Entity    string
	Available []string
}

func (e *UnknownEntityError) Error() string {
	return fmt.Sprintf(
		"UnknownEntityError: Entity '%s' not found in schema\n"+
			"  Available entities: %v",
		e.Entity, e.Available,
	)
}

func (e *UnknownEntityError) Code() string       { return "UNKNOWN_ENTITY" }
func (e *UnknownEntityError) IsValidationError() {}

// UnknownOperatorError: filter operator is not supported
type UnknownOperatorError struct {
	Field    string
	Operator string
}

func (e *UnknownOperatorError) Error() string {
	return fmt.Sprintf(
		"UnknownOperatorError: Field '%s' uses unsupported operator '%s'\n"+
			"  Supported: eq, neq, gt, gte, lt, lte, like, in",
		e.Field, e.Operator,
	)
}

func (e *UnknownOperatorError) Code() string       { return "UNKNOWN_OPERATOR" }
func (e *UnknownOperatorError) IsValidationError() {}

// SafetyError: Safety guard prevented operation
type SafetyError struct {
	Operation  string // "delete_without_filter", "update_without_filter"
	Message    string
	Suggestion string
}

func (e *SafetyError) Error() string {
	return fmt.Sprintf(
		"SafetyError: Operation blocked by safety guard\n"+
			"  Operation: %s\n"+
			"  Message: %s\n"+
			"  Suggestion: %s",
		e.Operation, e.Message, e.Suggestion,
	)
}

func (e *SafetyError) Code() string       { return "SAFETY_VIOLATION" }
func (e *SafetyError) IsValidationError() {}

// ============================================================
// HELPER FUNCTIONS
// ============================================================

// IsValidationError checks if err is (or wraps) a validation error
func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// ErrorCode extracts the error code
func ErrorCode(err error) string {
	var ve ValidationError
	if errors.As(err, &ve) {
		return ve.Code()
	}
	return "UNKNOWN_ERROR"
}

// IsSafetyError checks if error is a safety violation
func IsSafetyError(err error) bool {
	var se *SafetyError
	return errors.As(err, &se)
}

// FormatError renders an error for terminal output
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	var pe *ParseError
	if errors.As(err, &pe) {
		return formatParseError(pe)
	}

	var b strings.Builder

	errorColor := color.New(color.FgRed, color.Bold)
	errorColor.Fprintf(&b, "Error: ")

	lines := strings.Split(err.Error(), "\n")
	fmt.Fprintf(&b, "%s\n", lines[0])

	if IsValidationError(err) {
		codeColor := color.New(color.FgCyan)
		codeColor.Fprintf(&b, "  --> ")
		fmt.Fprintf(&b, "%s\n", ErrorCode(err))
	}

	for _, line := range lines[1:] {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "Suggestion:") {
			helpColor := color.New(color.FgYellow, color.Bold)
			helpColor.Fprintf(&b, "  Help: ")
			fmt.Fprintf(&b, "%s\n", strings.TrimSpace(strings.TrimPrefix(trimmed, "Suggestion:")))
			continue
		}
		fmt.Fprintf(&b, "%s\n", line)
	}

	return b.String()
}
