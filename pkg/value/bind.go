package value

import (
	"encoding/json"
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// Bind decodes v into target, which must be a pointer. Struct fields are
// matched by their json tag names so the same struct can describe both the
// wire shape and the typed view. Keys in v that target has no field for are
// an error, as are scalar type mismatches; nothing is coerced.
func Bind(v Value, target any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		Result:      target,
		ErrorUnused: true,
	})
	if err != nil {
		return fmt.Errorf("bind: %w", err)
	}
	if err := dec.Decode(v.Native()); err != nil {
		return fmt.Errorf("bind: %w", err)
	}
	return nil
}

// FromStruct converts a typed value back to a tree using its json encoding,
// so json tags and omitempty apply exactly as they do on the wire.
func FromStruct(x any) (Value, error) {
	data, err := json.Marshal(x)
	if err != nil {
		return Value{}, fmt.Errorf("from struct: %w", err)
	}
	return decodeJSON(data)
}
