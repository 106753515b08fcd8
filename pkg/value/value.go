// Package value implements the tree representation shared by every part of
// the settings SDK.
//
// A Value is Null, a scalar (bool, int, float, string), a Sequence of Values,
// or a Mapping from string keys to Values. Trees carry no schema version;
// the version is always supplied next to them. Values are immutable by
// convention: every operation that changes a tree returns a new one, so a
// caller's tree is never modified behind its back.
package value

import (
	"maps"
	"slices"
)

// Kind identifies the variant held by a Value.
type Kind uint8

// Value kinds. The zero Kind is KindNull so the zero Value is Null.
const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindSequence
	KindMapping
)

var kindNames = [...]string{
	KindNull:     "null",
	KindBool:     "bool",
	KindInt:      "int",
	KindFloat:    "float",
	KindString:   "string",
	KindSequence: "sequence",
	KindMapping:  "mapping",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Value is one node of a settings tree.
type Value struct {
	kind   Kind
	b      bool
	i      int64
	f      float64
	s      string
	items  []Value
	fields map[string]Value
}

// Null returns the null value. It is the same as the zero Value.
func Null() Value { return Value{} }

// Bool returns a boolean scalar.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int returns an integer scalar.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a floating point scalar.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// String returns a string scalar.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Sequence returns an ordered list of values. The slice is copied.
func Sequence(items ...Value) Value {
	out := make([]Value, len(items))
	copy(out, items)
	return Value{kind: KindSequence, items: out}
}

// Mapping returns a keyed mapping. The map is copied; a nil map yields an
// empty mapping.
func Mapping(fields map[string]Value) Value {
	m := make(map[string]Value, len(fields))
	maps.Copy(m, fields)
	return Value{kind: KindMapping, fields: m}
}

// Object builds a mapping from alternating key, value arguments. It panics on
// an odd argument count or a non-string key; it is meant for literals in
// extension code and tests.
func Object(kv ...any) Value {
	if len(kv)%2 != 0 {
		panic("value.Object: odd number of arguments")
	}
	m := make(map[string]Value, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			panic("value.Object: key is not a string")
		}
		v, err := FromNative(kv[i+1])
		if err != nil {
			panic("value.Object: " + err.Error())
		}
		m[key] = v
	}
	return Value{kind: KindMapping, fields: m}
}

// Kind reports which variant v holds.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean held by v.
func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBool
}

// AsInt returns the integer held by v.
func (v Value) AsInt() (int64, bool) {
	return v.i, v.kind == KindInt
}

// AsFloat returns the number held by v. Integers widen to float64.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	}
	return 0, false
}

// AsString returns the string held by v.
func (v Value) AsString() (string, bool) {
	return v.s, v.kind == KindString
}

// Len returns the number of items in a sequence or keys in a mapping, and
// zero for everything else.
func (v Value) Len() int {
	switch v.kind {
	case KindSequence:
		return len(v.items)
	case KindMapping:
		return len(v.fields)
	}
	return 0
}

// Items returns a copy of a sequence's items. It returns nil for other kinds.
func (v Value) Items() []Value {
	if v.kind != KindSequence {
		return nil
	}
	return slices.Clone(v.items)
}

// Index returns the i-th item of a sequence.
func (v Value) Index(i int) (Value, bool) {
	if v.kind != KindSequence || i < 0 || i >= len(v.items) {
		return Value{}, false
	}
	return v.items[i], true
}

// Keys returns a mapping's keys in sorted order. It returns nil for other
// kinds.
func (v Value) Keys() []string {
	if v.kind != KindMapping {
		return nil
	}
	return slices.Sorted(maps.Keys(v.fields))
}

// Field returns the value stored under key in a mapping.
func (v Value) Field(key string) (Value, bool) {
	if v.kind != KindMapping {
		return Value{}, false
	}
	f, ok := v.fields[key]
	return f, ok
}

// With returns a copy of the mapping v with key set to f. A non-mapping v is
// treated as an empty mapping.
func (v Value) With(key string, f Value) Value {
	m := make(map[string]Value, len(v.fields)+1)
	if v.kind == KindMapping {
		maps.Copy(m, v.fields)
	}
	m[key] = f
	return Value{kind: KindMapping, fields: m}
}

// Without returns a copy of the mapping v with key removed. Non-mappings are
// returned unchanged.
func (v Value) Without(key string) Value {
	if v.kind != KindMapping {
		return v
	}
	m := maps.Clone(v.fields)
	delete(m, key)
	return Value{kind: KindMapping, fields: m}
}

// Lookup follows p from v and returns the value found there.
func (v Value) Lookup(p Path) (Value, bool) {
	cur := v
	for _, seg := range p {
		var ok bool
		if seg.isIndex {
			cur, ok = cur.Index(seg.Index)
		} else {
			cur, ok = cur.Field(seg.Key)
		}
		if !ok {
			return Value{}, false
		}
	}
	return cur, true
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	switch v.kind {
	case KindSequence:
		items := make([]Value, len(v.items))
		for i, it := range v.items {
			items[i] = it.Clone()
		}
		return Value{kind: KindSequence, items: items}
	case KindMapping:
		m := make(map[string]Value, len(v.fields))
		for k, f := range v.fields {
			m[k] = f.Clone()
		}
		return Value{kind: KindMapping, fields: m}
	}
	return v
}

// Equal reports whether a and b are the same tree. Kinds must match exactly:
// Int(1) and Float(1) are different values.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindInt:
		return a.i == b.i
	case KindFloat:
		return a.f == b.f
	case KindString:
		return a.s == b.s
	case KindSequence:
		return slices.EqualFunc(a.items, b.items, Equal)
	case KindMapping:
		return maps.EqualFunc(a.fields, b.fields, Equal)
	}
	return false
}

// Equal reports whether v and other are the same tree.
func (v Value) Equal(other Value) bool { return Equal(v, other) }

// String renders v as compact JSON. Values that cannot be represented in
// JSON (NaN, infinities) render as their kind in angle brackets.
func (v Value) String() string {
	b, err := v.MarshalJSON()
	if err != nil {
		return "<" + v.kind.String() + ">"
	}
	return string(b)
}
