package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Field is one typed field of a collection.
//
// ID is assigned by the remote store. It is never compared and is carried forward unchanged
// whenever a field is merged.
type Field struct {
	ID   string
	Name string
	Type FieldType

	System      Value[bool]
	Hidden      Value[bool]
	Presentable Value[bool]
	Required    Value[bool]

	// Options holds the kind-specific attributes. Nil is treated as empty options of Type.
	Options Options

	// Extra keeps keys this package does not model, as raw JSON.
	Extra map[string]json.RawMessage
}

// NewField returns a field of the given kind with empty options.
func NewField(name string, kind FieldType) Field {
	return Field{Name: name, Type: kind, Options: NewOptions(kind)}
}

// Opts returns the field's options, allocating empty ones when unset.
func (f *Field) Opts() Options {
	if f.Options == nil || f.Options.Kind() != f.Type {
		f.Options = NewOptions(f.Type)
	}
	return f.Options
}

// Clone returns a deep enough copy that mutating the clone's attributes leaves f untouched.
func (f Field) Clone() Field {
	c := f
	if f.Options != nil {
		c.Options = f.Options.clone()
	}
	if f.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(f.Extra))
		for k, v := range f.Extra {
			c.Extra[k] = v
		}
	}
	return c
}

// Properties lists the field's attribute keys that were specified, in wire order.
// The id, name and type keys are not included.
func (f Field) Properties() []string {
	var keys []string
	for _, p := range f.props() {
		if p.prop.Specified() {
			keys = append(keys, p.key)
		}
	}
	return keys
}

// props returns the common and kind-specific attributes of f.
// The returned properties point into f, so callers that need to write must pass a pointer.
func (f *Field) props() []namedProperty {
	common := []namedProperty{
		{"system", &f.System},
		{"hidden", &f.Hidden},
		{"presentable", &f.Presentable},
		{"required", &f.Required},
	}
	return append(common, f.Opts().properties()...)
}

// lookup returns the attribute stored under key and whether the key is modelled.
func (f *Field) lookup(key string) (property, bool) {
	for _, p := range f.props() {
		if p.key == key {
			return p.prop, true
		}
	}
	return nil, false
}

// UnmarshalJSON decodes a wire field into its typed variant.
func (f *Field) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*f = Field{}
	for key, dst := range map[string]*string{"id": &f.ID, "name": &f.Name} {
		if r, ok := raw[key]; ok {
			if !isNull(r) {
				if err := json.Unmarshal(r, dst); err != nil {
					return fmt.Errorf("field %s: %w", key, err)
				}
			}
			delete(raw, key)
		}
	}
	if r, ok := raw["type"]; ok {
		var kind string
		if err := json.Unmarshal(r, &kind); err != nil {
			return fmt.Errorf("field %q type: %w", f.Name, err)
		}
		f.Type = FieldType(kind)
		delete(raw, "type")
	}

	f.Options = NewOptions(f.Type)
	for _, p := range f.props() {
		r, ok := raw[p.key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(r, p.prop); err != nil {
			return fmt.Errorf("field %q attribute %s: %w", f.Name, p.key, err)
		}
		delete(raw, p.key)
	}

	if len(raw) > 0 {
		f.Extra = raw
	}
	return nil
}

// MarshalJSON encodes the field back to its wire form. Unspecified attributes are omitted.
func (f Field) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(f.Extra)+8)
	for k, v := range f.Extra {
		out[k] = v
	}
	if f.ID != "" {
		out["id"] = f.ID
	}
	out["name"] = f.Name
	if f.Type != "" {
		out["type"] = f.Type
	}
	for _, p := range f.props() {
		if p.prop.Specified() {
			out[p.key] = p.prop
		}
	}
	return json.Marshal(out)
}

func isNull(r json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(r), []byte("null"))
}
