package model

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/mesh-intelligence/settings-sdk/pkg/types"
	"github.com/mesh-intelligence/settings-sdk/pkg/value"
)

// Violation rules reported by the shape walk.
const (
	RuleType     = "type"
	RuleRequired = "required"
	RuleNull     = "null"
	RuleUnknown  = "unknown"
	RuleEnum     = "enum"
	RuleRange    = "range"
)

// collector gathers problems found while walking a tree. In decode mode
// (first set) the walk stops at the first shape problem; constraints are only
// checked when constraints is set. A partial walk accepts missing required
// fields.
type collector struct {
	first       bool
	constraints bool
	lenient     bool
	partial     bool
	shape       int
	violations  []types.Violation
}

func (c *collector) shapeProblem(path value.Path, rule, format string, args ...any) {
	c.shape++
	c.violations = append(c.violations, types.Violation{
		Path:    path.String(),
		Message: fmt.Sprintf(format, args...),
		Rule:    rule,
	})
}

func (c *collector) constraint(path value.Path, rule, format string, args ...any) {
	c.violations = append(c.violations, types.Violation{
		Path:    path.String(),
		Message: fmt.Sprintf(format, args...),
		Rule:    rule,
	})
}

func (c *collector) stop() bool { return c.first && c.shape > 0 }

// walk checks v against t and returns the canonical form of v: defaults
// filled, dropped fields removed, numbers in their declared kind. The result
// is meaningless once a shape problem has been recorded.
func walk(t Type, v value.Value, path value.Path, c *collector) value.Value {
	switch t.Kind {
	case TypeAny:
		return v
	case TypeBool:
		if v.Kind() != value.KindBool {
			c.shapeProblem(path, RuleType, "expected bool, got %s", v.Kind())
		}
		return v
	case TypeString:
		if v.Kind() != value.KindString {
			c.shapeProblem(path, RuleType, "expected string, got %s", v.Kind())
		}
		return v
	case TypeInt:
		return walkInt(v, path, c)
	case TypeFloat:
		f, ok := v.AsFloat()
		if !ok {
			c.shapeProblem(path, RuleType, "expected float, got %s", v.Kind())
			return v
		}
		return value.Float(f)
	case TypeList:
		if v.Kind() != value.KindSequence {
			c.shapeProblem(path, RuleType, "expected list, got %s", v.Kind())
			return v
		}
		items := v.Items()
		for i, it := range items {
			items[i] = walk(*t.Elem, it, path.Index(i), c)
			if c.stop() {
				return v
			}
		}
		return value.Sequence(items...)
	case TypeMap:
		if v.Kind() != value.KindMapping {
			c.shapeProblem(path, RuleType, "expected map, got %s", v.Kind())
			return v
		}
		out := make(map[string]value.Value, v.Len())
		for _, k := range v.Keys() {
			fv, _ := v.Field(k)
			out[k] = walk(*t.Elem, fv, path.Key(k), c)
			if c.stop() {
				return v
			}
		}
		return value.Mapping(out)
	case TypeObject:
		return walkObject(t, v, path, c)
	}
	c.shapeProblem(path, RuleType, "undeclared type %q", t.Kind)
	return v
}

// Floats with no fractional part are accepted for integer fields so that
// trees which passed through a float-only encoding still decode.
func walkInt(v value.Value, path value.Path, c *collector) value.Value {
	switch v.Kind() {
	case value.KindInt:
		return v
	case value.KindFloat:
		f, _ := v.AsFloat()
		if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
			return value.Int(int64(f))
		}
		c.shapeProblem(path, RuleType, "expected int, got non-integral float %v", f)
		return v
	}
	c.shapeProblem(path, RuleType, "expected int, got %s", v.Kind())
	return v
}

func walkObject(t Type, v value.Value, path value.Path, c *collector) value.Value {
	if v.Kind() != value.KindMapping {
		c.shapeProblem(path, RuleType, "expected object, got %s", v.Kind())
		return v
	}
	out := make(map[string]value.Value, len(t.Fields))
	for _, f := range t.Fields {
		fp := path.Key(f.Name)
		fv, present := v.Field(f.Name)
		// A null on a field that may be absent, or that has a default,
		// reads as absent.
		if present && fv.IsNull() && !f.AllowNull && (!f.Required || f.Default != nil || c.partial) {
			present = false
		}
		if !present {
			switch {
			case f.Default != nil:
				out[f.Name] = *f.Default
			case f.Required && !c.partial:
				c.shapeProblem(fp, RuleRequired, "missing required field")
			}
			if c.stop() {
				return v
			}
			continue
		}
		out[f.Name] = f.checkField(fv, fp, c)
		if c.stop() {
			return v
		}
	}
	for _, k := range v.Keys() {
		if _, declared := t.field(k); declared || c.lenient {
			continue
		}
		c.shapeProblem(path.Key(k), RuleUnknown, "unknown field")
		if c.stop() {
			return v
		}
	}
	return value.Mapping(out)
}

// checkField walks one present field value and, when the collector asks for
// it, applies the field's enum and range constraints.
func (f Field) checkField(v value.Value, path value.Path, c *collector) value.Value {
	if v.IsNull() {
		if !f.AllowNull {
			c.shapeProblem(path, RuleNull, "field must not be null")
		}
		return v
	}
	before := c.shape
	out := walk(f.Type, v, path, c)
	if !c.constraints || c.shape > before {
		return out
	}
	if len(f.Enum) > 0 {
		s, _ := out.AsString()
		if !slices.Contains(f.Enum, s) {
			c.constraint(path, RuleEnum, "%q is not one of %s", s, strings.Join(f.Enum, ", "))
		}
	}
	if n, ok := out.AsFloat(); ok {
		if f.Min != nil && n < *f.Min {
			c.constraint(path, RuleRange, "%v is below the minimum %v", n, *f.Min)
		}
		if f.Max != nil && n > *f.Max {
			c.constraint(path, RuleRange, "%v is above the maximum %v", n, *f.Max)
		}
	}
	return out
}
