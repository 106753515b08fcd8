package value

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/mesh-intelligence/settings-sdk/internal/codec"
)

// Conversion errors.
var (
	ErrUnsupportedType = errors.New("unsupported type for settings value")
	ErrIntOutOfRange   = errors.New("integer out of range")
	ErrTrailingData    = errors.New("trailing data after value")
)

// FromNative converts plain Go data to a Value. It accepts the shapes produced
// by encoding/json (with or without UseNumber), by the CBOR decoder, and
// ordinary Go literals: nil, bools, integers, floats, strings, slices, arrays,
// and maps with string keys. Values and *Values pass through.
func FromNative(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case *Value:
		if t == nil {
			return Null(), nil
		}
		return *t, nil
	case bool:
		return Bool(t), nil
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint:
		return fromUint(uint64(t))
	case uint8:
		return Int(int64(t)), nil
	case uint16:
		return Int(int64(t)), nil
	case uint32:
		return Int(int64(t)), nil
	case uint64:
		return fromUint(t)
	case float32:
		return Float(float64(t)), nil
	case float64:
		return Float(t), nil
	case string:
		return String(t), nil
	case json.Number:
		return fromNumber(t)
	case []byte:
		return Value{}, fmt.Errorf("%w: byte string", ErrUnsupportedType)
	case []any:
		items := make([]Value, len(t))
		for i, it := range t {
			v, err := FromNative(it)
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			items[i] = v
		}
		return Value{kind: KindSequence, items: items}, nil
	case []Value:
		return Sequence(t...), nil
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, it := range t {
			v, err := FromNative(it)
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", k, err)
			}
			m[k] = v
		}
		return Value{kind: KindMapping, fields: m}, nil
	case map[string]Value:
		return Mapping(t), nil
	case map[any]any:
		m := make(map[string]Value, len(t))
		for k, it := range t {
			key, ok := k.(string)
			if !ok {
				return Value{}, fmt.Errorf("%w: mapping key of type %T", ErrUnsupportedType, k)
			}
			v, err := FromNative(it)
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", key, err)
			}
			m[key] = v
		}
		return Value{kind: KindMapping, fields: m}, nil
	}
	return fromReflect(reflect.ValueOf(x))
}

// fromReflect handles typed slices and string-keyed maps such as []string or
// map[string]int that the fast path above does not list.
func fromReflect(rv reflect.Value) (Value, error) {
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return Null(), nil
		}
		return FromNative(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return Null(), nil
		}
		items := make([]Value, rv.Len())
		for i := range items {
			v, err := FromNative(rv.Index(i).Interface())
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			items[i] = v
		}
		return Value{kind: KindSequence, items: items}, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return Value{}, fmt.Errorf("%w: %s", ErrUnsupportedType, rv.Type())
		}
		m := make(map[string]Value, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key := iter.Key().String()
			v, err := FromNative(iter.Value().Interface())
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", key, err)
			}
			m[key] = v
		}
		return Value{kind: KindMapping, fields: m}, nil
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return fromUint(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return Float(rv.Float()), nil
	}
	if !rv.IsValid() {
		return Null(), nil
	}
	return Value{}, fmt.Errorf("%w: %s", ErrUnsupportedType, rv.Type())
}

func fromUint(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return Value{}, fmt.Errorf("%w: %d", ErrIntOutOfRange, u)
	}
	return Int(int64(u)), nil
}

// fromNumber keeps the int/float distinction of a JSON literal: "1500" is an
// Int, "1500.0" and "1.5e3" are Floats.
func fromNumber(n json.Number) (Value, error) {
	s := n.String()
	if strings.ContainsAny(s, ".eE") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Value{}, fmt.Errorf("parse number %q: %w", s, err)
		}
		return Float(f), nil
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return Value{}, fmt.Errorf("%w: %s", ErrIntOutOfRange, s)
	}
	return Int(i), nil
}

// Native converts v to plain Go data: nil, bool, int64, float64, string,
// []any, and map[string]any.
func (v Value) Native() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindSequence:
		out := make([]any, len(v.items))
		for i, it := range v.items {
			out[i] = it.Native()
		}
		return out
	case KindMapping:
		out := make(map[string]any, len(v.fields))
		for k, f := range v.fields {
			out[k] = f.Native()
		}
		return out
	}
	return nil
}

// Parse decodes a single JSON document into a Value. Comments and trailing
// commas are accepted, so hand-written inputs can be annotated.
func Parse(data []byte) (Value, error) {
	return decodeJSON(jsonc.ToJSON(data))
}

// MustParse is Parse for literals known to be valid. It panics on error.
func MustParse(s string) Value {
	v, err := Parse([]byte(s))
	if err != nil {
		panic("value.MustParse: " + err.Error())
	}
	return v
}

func decodeJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var x any
	if err := dec.Decode(&x); err != nil {
		return Value{}, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Value{}, ErrTrailingData
	}
	return FromNative(x)
}

// MarshalJSON encodes v as JSON with mapping keys in sorted order.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Native())
}

// UnmarshalJSON decodes JSON into v, keeping integer literals as Ints.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := decodeJSON(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// MarshalCBOR encodes v as deterministic CBOR. Unlike JSON, CBOR keeps the
// distinction between Int and Float on the wire.
func (v Value) MarshalCBOR() ([]byte, error) {
	return codec.Marshal(v.Native())
}

// UnmarshalCBOR decodes CBOR into v.
func (v *Value) UnmarshalCBOR(data []byte) error {
	var x any
	if err := codec.Unmarshal(data, &x); err != nil {
		return err
	}
	parsed, err := FromNative(x)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
