// Package model declares the typed shape of one schema version.
//
// A Model pairs a Version with a fixed, inspectable Type declaration. Decode
// checks a value.Value against the declaration and yields a Document;
// Encode turns the Document back into a tree. Validate goes further: it
// collects every shape and constraint problem and then runs the model's
// cross-field invariants.
package model

import (
	"fmt"

	"github.com/mesh-intelligence/settings-sdk/pkg/value"
)

// TypeKind names a node of a type declaration.
type TypeKind string

// Type kinds.
const (
	TypeBool   TypeKind = "bool"
	TypeInt    TypeKind = "int"
	TypeFloat  TypeKind = "float"
	TypeString TypeKind = "string"
	TypeAny    TypeKind = "any"
	TypeList   TypeKind = "list"
	TypeMap    TypeKind = "map"
	TypeObject TypeKind = "object"
)

// Type is one node of a type declaration. Lists and maps carry their element
// type in Elem; objects carry their fields in declaration order.
type Type struct {
	Kind   TypeKind `json:"kind"`
	Elem   *Type    `json:"elem,omitempty"`
	Fields []Field  `json:"fields,omitempty"`
}

// Bool declares a boolean.
func Bool() Type { return Type{Kind: TypeBool} }

// Int declares an integer.
func Int() Type { return Type{Kind: TypeInt} }

// Float declares a floating point number. Integers are accepted and widened.
func Float() Type { return Type{Kind: TypeFloat} }

// String declares a string.
func String() Type { return Type{Kind: TypeString} }

// Any accepts every tree unchanged.
func Any() Type { return Type{Kind: TypeAny} }

// ListOf declares a sequence whose items have type elem.
func ListOf(elem Type) Type { return Type{Kind: TypeList, Elem: &elem} }

// MapOf declares a mapping with arbitrary keys whose values have type elem.
func MapOf(elem Type) Type { return Type{Kind: TypeMap, Elem: &elem} }

// Object declares a mapping with a fixed set of named fields.
func Object(fields ...Field) Type {
	return Type{Kind: TypeObject, Fields: append([]Field(nil), fields...)}
}

func (t Type) String() string {
	switch t.Kind {
	case TypeList:
		return "list<" + t.Elem.String() + ">"
	case TypeMap:
		return "map<" + t.Elem.String() + ">"
	}
	return string(t.Kind)
}

// field returns the declared field called name.
func (t Type) field(name string) (Field, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Field is one named member of an Object.
type Field struct {
	Name      string       `json:"name"`
	Type      Type         `json:"type"`
	Required  bool         `json:"required"`
	AllowNull bool         `json:"nullable,omitempty"`
	Default   *value.Value `json:"default,omitempty"`
	Enum      []string     `json:"enum,omitempty"`
	Min       *float64     `json:"min,omitempty"`
	Max       *float64     `json:"max,omitempty"`
}

// Required declares a field that must be present unless it has a default.
func Required(name string, t Type) Field {
	return Field{Name: name, Type: t, Required: true}
}

// Optional declares a field that may be absent.
func Optional(name string, t Type) Field {
	return Field{Name: name, Type: t}
}

// WithDefault sets the value filled in when the field is absent.
func (f Field) WithDefault(v value.Value) Field {
	d := v.Clone()
	f.Default = &d
	return f
}

// OneOf restricts a string field to the listed values.
func (f Field) OneOf(allowed ...string) Field {
	f.Enum = append([]string(nil), allowed...)
	return f
}

// Range restricts a numeric field to [min, max].
func (f Field) Range(min, max float64) Field {
	f.Min = &min
	f.Max = &max
	return f
}

// Nullable lets the field hold an explicit null.
func (f Field) Nullable() Field {
	f.AllowNull = true
	return f
}

// check reports declaration errors: unknown kinds, missing element types,
// duplicate or empty field names, constraints on the wrong kind, and
// defaults that do not fit their field.
func (t Type) check(path value.Path) error {
	switch t.Kind {
	case TypeBool, TypeInt, TypeFloat, TypeString, TypeAny:
		return nil
	case TypeList, TypeMap:
		if t.Elem == nil {
			return fmt.Errorf("%s: %s without element type", path, t.Kind)
		}
		return t.Elem.check(path.Index(0))
	case TypeObject:
		seen := make(map[string]bool, len(t.Fields))
		for _, f := range t.Fields {
			if f.Name == "" {
				return fmt.Errorf("%s: field with empty name", path)
			}
			if seen[f.Name] {
				return fmt.Errorf("%s: field %q declared twice", path, f.Name)
			}
			seen[f.Name] = true
			fp := path.Key(f.Name)
			if err := f.Type.check(fp); err != nil {
				return err
			}
			if len(f.Enum) > 0 && f.Type.Kind != TypeString {
				return fmt.Errorf("%s: enum on %s field", fp, f.Type)
			}
			if (f.Min != nil || f.Max != nil) && f.Type.Kind != TypeInt && f.Type.Kind != TypeFloat {
				return fmt.Errorf("%s: range on %s field", fp, f.Type)
			}
			if f.Min != nil && f.Max != nil && *f.Min > *f.Max {
				return fmt.Errorf("%s: empty range [%v, %v]", fp, *f.Min, *f.Max)
			}
			if f.Default != nil {
				c := &collector{constraints: true}
				f.checkField(*f.Default, fp, c)
				if len(c.violations) > 0 {
					return fmt.Errorf("default for %s: %s", fp, c.violations[0].Message)
				}
			}
		}
		return nil
	}
	return fmt.Errorf("%s: unknown type kind %q", path, t.Kind)
}
