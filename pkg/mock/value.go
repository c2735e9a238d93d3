package mock

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/chameleon-db/chameleon-mock/pkg/engine"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ValueKind is the normalized type of a Value
type ValueKind int

const (
	ValueNull ValueKind = iota
	ValueString
	ValueNumber
	ValueBool
	ValueUUID
	ValueTime
	ValueList
	ValueObject
)

var valueKindNames = [...]string{"null", "string", "number", "bool", "uuid", "time", "list", "object"}

func (k ValueKind) String() string {
	if int(k) < len(valueKindNames) {
		return valueKindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a normalized, comparable literal. Numbers of any Go type share
// one canonical decimal text, so int64(5), 5.0 and decimal.NewFromInt(5)
// are equal.
type Value struct {
	Kind ValueKind
	Text string
}

func (v Value) String() string {
	switch v.Kind {
	case ValueNull:
		return "null"
	case ValueString:
		return strconv.Quote(v.Text)
	case ValueList:
		items := decodeList(v.Text)
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = item.Kind.String() + ":" + item.Text
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return v.Text
	}
}

// NormalizeValue turns a Go value into a Value. Typed literals
// (engine.FilterValue, or a single-key map such as {"Int": 5} whose key is
// a literal tag) are unwrapped first. Any other map is a JSON object and
// compares by its canonical encoding; a JSON column holding exactly one
// key named like a tag is still read as a literal.
func NormalizeValue(raw interface{}) (Value, error) {
	switch v := raw.(type) {
	case nil:
		return Value{Kind: ValueNull}, nil
	case Value:
		return v, nil
	case engine.FilterValue:
		return normalizeLiteral(v)
	case map[string]interface{}:
		if len(v) == 1 {
			for tag := range v {
				if engine.IsLiteralTag(tag) {
					return normalizeLiteral(engine.FilterValue(v))
				}
			}
		}
		return objectValue(v)
	case string:
		return Value{Kind: ValueString, Text: v}, nil
	case []byte:
		return Value{Kind: ValueString, Text: string(v)}, nil
	case bool:
		return Value{Kind: ValueBool, Text: strconv.FormatBool(v)}, nil
	case int:
		return number(decimal.NewFromInt(int64(v))), nil
	case int8:
		return number(decimal.NewFromInt(int64(v))), nil
	case int16:
		return number(decimal.NewFromInt(int64(v))), nil
	case int32:
		return number(decimal.NewFromInt32(v)), nil
	case int64:
		return number(decimal.NewFromInt(v)), nil
	case uint:
		return number(decimal.NewFromUint64(uint64(v))), nil
	case uint8:
		return number(decimal.NewFromUint64(uint64(v))), nil
	case uint16:
		return number(decimal.NewFromUint64(uint64(v))), nil
	case uint32:
		return number(decimal.NewFromUint64(uint64(v))), nil
	case uint64:
		return number(decimal.NewFromUint64(v)), nil
	case float32:
		return floatValue(float64(v))
	case float64:
		return floatValue(v)
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return Value{}, err
		}
		return number(d), nil
	case decimal.Decimal:
		return number(v), nil
	case uuid.UUID:
		return Value{Kind: ValueUUID, Text: v.String()}, nil
	case time.Time:
		return timeValue(v), nil
	}

	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return Value{Kind: ValueNull}, nil
		}
		return NormalizeValue(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		items := make([]interface{}, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return listValue(items)
	}

	return Value{}, fmt.Errorf("unsupported value type %T", raw)
}

// normalizeLiteral unwraps a typed literal, checking the raw value against
// the tag
func normalizeLiteral(fv engine.FilterValue) (Value, error) {
	tag, raw, err := fv.Unwrap()
	if err != nil {
		return Value{}, err
	}

	switch tag {
	case engine.ValueNull:
		return Value{Kind: ValueNull}, nil

	case engine.ValueString:
		s, ok := raw.(string)
		if !ok {
			return Value{}, fmt.Errorf("String literal holds %T", raw)
		}
		return Value{Kind: ValueString, Text: s}, nil

	case engine.ValueInt, engine.ValueFloat, engine.ValueDecimal:
		if s, ok := raw.(string); ok {
			d, err := decimal.NewFromString(s)
			if err != nil {
				return Value{}, fmt.Errorf("%s literal %q: %w", tag, s, err)
			}
			return number(d), nil
		}
		v, err := NormalizeValue(raw)
		if err != nil {
			return Value{}, err
		}
		if v.Kind != ValueNumber {
			return Value{}, fmt.Errorf("%s literal holds %T", tag, raw)
		}
		return v, nil

	case engine.ValueBool:
		switch b := raw.(type) {
		case bool:
			return Value{Kind: ValueBool, Text: strconv.FormatBool(b)}, nil
		case string:
			parsed, err := strconv.ParseBool(b)
			if err != nil {
				return Value{}, fmt.Errorf("Bool literal %q: %w", b, err)
			}
			return Value{Kind: ValueBool, Text: strconv.FormatBool(parsed)}, nil
		}
		return Value{}, fmt.Errorf("Bool literal holds %T", raw)

	case engine.ValueUUID:
		switch id := raw.(type) {
		case uuid.UUID:
			return Value{Kind: ValueUUID, Text: id.String()}, nil
		case string:
			parsed, err := uuid.Parse(id)
			if err != nil {
				return Value{}, fmt.Errorf("UUID literal %q: %w", id, err)
			}
			return Value{Kind: ValueUUID, Text: parsed.String()}, nil
		}
		return Value{}, fmt.Errorf("UUID literal holds %T", raw)

	case engine.ValueTimestamp:
		switch ts := raw.(type) {
		case time.Time:
			return timeValue(ts), nil
		case string:
			parsed, err := time.Parse(time.RFC3339Nano, ts)
			if err != nil {
				return Value{}, fmt.Errorf("Timestamp literal %q: %w", ts, err)
			}
			return timeValue(parsed), nil
		}
		return Value{}, fmt.Errorf("Timestamp literal holds %T", raw)

	case engine.ValueList:
		v, err := NormalizeValue(raw)
		if err != nil {
			return Value{}, err
		}
		if v.Kind != ValueList {
			return Value{}, fmt.Errorf("List literal holds %T", raw)
		}
		return v, nil

	case engine.ValueRaw:
		return NormalizeValue(raw)

	default:
		return Value{}, fmt.Errorf("unknown literal tag %q", tag)
	}
}

func number(d decimal.Decimal) Value {
	return Value{Kind: ValueNumber, Text: d.String()}
}

func floatValue(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, fmt.Errorf("non-finite number %v", f)
	}
	return number(decimal.NewFromFloat(f)), nil
}

func timeValue(t time.Time) Value {
	return Value{Kind: ValueTime, Text: t.UTC().Format(time.RFC3339Nano)}
}

// listValue normalizes every item and sorts them, so In lists compare
// regardless of order. Items are stored as kind:len:text so that no item
// text can forge an item boundary.
func listValue(items []interface{}) (Value, error) {
	encoded := make([]string, len(items))
	for i, item := range items {
		v, err := NormalizeValue(item)
		if err != nil {
			return Value{}, fmt.Errorf("list item %d: %w", i, err)
		}
		if v.Kind == ValueList {
			return Value{}, fmt.Errorf("list item %d: nested lists are not supported", i)
		}
		encoded[i] = strconv.Itoa(int(v.Kind)) + ":" + strconv.Itoa(len(v.Text)) + ":" + v.Text
	}
	sort.Strings(encoded)
	return Value{Kind: ValueList, Text: strings.Join(encoded, "")}, nil
}

func decodeList(text string) []Value {
	var out []Value
	for text != "" {
		kind, rest, ok := strings.Cut(text, ":")
		if !ok {
			break
		}
		size, rest, ok := strings.Cut(rest, ":")
		if !ok {
			break
		}
		k, err1 := strconv.Atoi(kind)
		n, err2 := strconv.Atoi(size)
		if err1 != nil || err2 != nil || n > len(rest) {
			break
		}
		out = append(out, Value{Kind: ValueKind(k), Text: rest[:n]})
		text = rest[n:]
	}
	return out
}

// objectValue encodes a JSON object with sorted keys. Nested values keep
// their JSON form, so 1 and 1.0 encode alike.
func objectValue(m map[string]interface{}) (Value, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return Value{}, fmt.Errorf("object value: %w", err)
	}
	return Value{Kind: ValueObject, Text: string(data)}, nil
}
