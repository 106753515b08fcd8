package value

// Merge overlays fragment onto base and returns the result.
//
// When both sides are mappings the keys are unioned and shared keys are
// merged recursively, with the fragment's value winning at the leaves. In
// every other case the fragment replaces the base outright. In particular a
// sequence in the fragment replaces the base sequence wholesale; sequences
// are never concatenated. A null in the fragment is an ordinary value and
// replaces what was there.
//
// Neither input is modified.
func Merge(base, fragment Value) Value {
	if base.kind != KindMapping || fragment.kind != KindMapping {
		return fragment.Clone()
	}
	out := make(map[string]Value, len(base.fields)+len(fragment.fields))
	for k, v := range base.fields {
		out[k] = v.Clone()
	}
	for k, fv := range fragment.fields {
		if bv, ok := base.fields[k]; ok {
			out[k] = Merge(bv, fv)
			continue
		}
		out[k] = fv.Clone()
	}
	return Value{kind: KindMapping, fields: out}
}
