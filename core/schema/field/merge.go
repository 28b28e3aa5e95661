// Package field implements the two field merge policies used by reconciliation.
//
// Ensure is additive and conservative: it creates a field when missing and otherwise
// leaves whatever the remote has alone. Overlay is declarative: the target is
// authoritative for every attribute it specifies. They encode different safety intents
// and are deliberately kept apart.
package field

import (
	"schema-manager/core/schema"
)

// Ensure appends desired when no field with its name exists. An existing field always
// wins, so server-assigned ids and edits made outside the definition are preserved.
func Ensure(fields []schema.Field, desired schema.Field) ([]schema.Field, bool) {
	if desired.Name == "" {
		return fields, false
	}
	for _, f := range fields {
		if f.Name == desired.Name {
			return fields, false
		}
	}
	out := make([]schema.Field, 0, len(fields)+1)
	out = append(out, fields...)
	return append(out, desired), true
}

// SetRequired sets the required flag of the named field. Other fields pass through
// unchanged and in order. An unspecified flag counts as false.
func SetRequired(fields []schema.Field, name string, required bool) ([]schema.Field, bool) {
	changed := false
	out := make([]schema.Field, 0, len(fields))
	for _, f := range fields {
		if f.Name != name || f.Required.Or(false) == required {
			out = append(out, f)
			continue
		}
		updated := f.Clone()
		updated.Required = schema.Of(required)
		out = append(out, updated)
		changed = true
	}
	if !changed {
		return fields, false
	}
	return out, true
}

// Changed returns the attribute keys target specifies with a value different from
// existing. The server-assigned id is excluded.
func Changed(existing, target schema.Field) []string {
	return schema.ChangedAttributes(existing, target)
}

// Overlay merges target over existing: the result starts from the existing field's full
// state and takes every attribute target specifies. The existing id is kept.
func Overlay(existing, target schema.Field) schema.Field {
	return schema.OverlayAttributes(existing, target)
}

// Index builds a name lookup of fields.
func Index(fields []schema.Field) map[string]schema.Field {
	m := make(map[string]schema.Field, len(fields))
	for _, f := range fields {
		m[f.Name] = f
	}
	return m
}
