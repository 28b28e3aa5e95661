package schema

import (
	"bytes"
	"encoding/json"
	"reflect"
)

// Value is a schema attribute that distinguishes three states: the key is absent from the
// document (unspecified), the key is present with JSON null, or the key carries a value.
//
// Comparisons treat "unspecified" and "null" alike, because a remote that omits a key
// reports the same thing as one that nulls it.
type Value[T any] struct {
	set   bool
	valid bool
	v     T
}

// Of returns a specified, non-null value.
func Of[T any](v T) Value[T] {
	return Value[T]{set: true, valid: true, v: v}
}

// Null returns a specified null value.
func Null[T any]() Value[T] {
	return Value[T]{set: true}
}

// Specified reports whether the key was present in the source document.
func (v Value[T]) Specified() bool {
	return v.set
}

// IsNull reports whether the value is null or unspecified.
func (v Value[T]) IsNull() bool {
	return !v.valid
}

// Get returns the value and whether it is non-null.
func (v Value[T]) Get() (T, bool) {
	return v.v, v.valid
}

// Or returns the value, or def when it is null or unspecified.
func (v Value[T]) Or(def T) T {
	if !v.valid {
		return def
	}
	return v.v
}

// IsZero lets encoding/json's omitzero drop unspecified values.
func (v Value[T]) IsZero() bool {
	return !v.set
}

// Equal compares two values. Null and unspecified are equal to each other.
func (v Value[T]) Equal(o Value[T]) bool {
	if !v.valid || !o.valid {
		return v.valid == o.valid
	}
	return reflect.DeepEqual(v.v, o.v)
}

// MarshalJSON encodes null for null and unspecified values.
func (v Value[T]) MarshalJSON() ([]byte, error) {
	if !v.valid {
		return []byte("null"), nil
	}
	return json.Marshal(v.v)
}

// UnmarshalJSON marks the value as specified.
func (v *Value[T]) UnmarshalJSON(data []byte) error {
	v.set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		var zero T
		v.valid = false
		v.v = zero
		return nil
	}
	if err := json.Unmarshal(data, &v.v); err != nil {
		return err
	}
	v.valid = true
	return nil
}

func (v *Value[T]) sameAs(p property) bool {
	o, ok := p.(*Value[T])
	if !ok {
		return false
	}
	return v.Equal(*o)
}

func (v *Value[T]) assign(p property) {
	if o, ok := p.(*Value[T]); ok {
		*v = *o
	}
}

// property is the type-erased view of a Value used when walking a field's attributes.
type property interface {
	json.Marshaler
	json.Unmarshaler
	Specified() bool
	sameAs(p property) bool
	assign(p property)
}

// namedProperty binds a wire key to the attribute it decodes into.
type namedProperty struct {
	key  string
	prop property
}
