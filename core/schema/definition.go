package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"schema-manager/core/schema/index"
)

// ErrInvalidDefinition is returned when a definition breaks a structural invariant.
var ErrInvalidDefinition = errors.New("invalid schema definition")

// Definition is the ordered target schema. Collections are reconciled in this order,
// so a collection referenced by a relation must be listed before the collection that
// references it.
type Definition []Collection

// Names returns the collection names in order.
func (d Definition) Names() []string {
	names := make([]string, 0, len(d))
	for _, c := range d {
		names = append(names, c.Name)
	}
	return names
}

// Lookup returns the collection with the given name.
func (d Definition) Lookup(name string) (Collection, bool) {
	for _, c := range d {
		if c.Name == name {
			return c, true
		}
	}
	return Collection{}, false
}

// Validate checks that every collection has a unique non-empty name, that field names are
// unique within a collection, that index names are unique within a collection and that a
// parseable index is declared on its own collection.
func (d Definition) Validate() error {
	seen := make(map[string]struct{}, len(d))
	for i, c := range d {
		if c.Name == "" {
			return fmt.Errorf("%w: collection #%d has no name", ErrInvalidDefinition, i)
		}
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("%w: collection %q declared twice", ErrInvalidDefinition, c.Name)
		}
		seen[c.Name] = struct{}{}

		fields := make(map[string]struct{}, len(c.Fields))
		for j, f := range c.Fields {
			if f.Name == "" {
				return fmt.Errorf("%w: %s field #%d has no name", ErrInvalidDefinition, c.Name, j)
			}
			if _, dup := fields[f.Name]; dup {
				return fmt.Errorf("%w: %s.%s declared twice", ErrInvalidDefinition, c.Name, f.Name)
			}
			fields[f.Name] = struct{}{}
		}

		indexes := make(map[string]struct{}, len(c.Indexes))
		for _, def := range c.Indexes {
			name, ok := index.Name(def)
			if !ok {
				continue
			}
			if _, dup := indexes[name]; dup {
				return fmt.Errorf("%w: %s index %q declared twice", ErrInvalidDefinition, c.Name, name)
			}
			indexes[name] = struct{}{}

			// The remote rejects an index on another table and fails the whole update.
			if idx, err := index.Parse(def); err == nil && idx.Table != c.Name {
				table := idx.Table
				idx.Table = c.Name
				return fmt.Errorf("%w: %s index %q targets table %q, expected %s",
					ErrInvalidDefinition, c.Name, name, table, idx.String())
			}
		}
	}
	return nil
}

// ParseDefinition decodes and validates a JSON array of collections. Every collection must
// carry a fields key: an omitted list would read as empty and drop every remote field.
func ParseDefinition(data []byte) (Definition, error) {
	var raw []map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse schema definition: %w", err)
	}
	var def Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse schema definition: %w", err)
	}
	for i, keys := range raw {
		if r, ok := keys["fields"]; !ok || isNull(r) {
			return nil, fmt.Errorf("%w: collection %q has no fields list", ErrInvalidDefinition, def[i].Name)
		}
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}

// LoadDefinition reads a definition file from disk.
func LoadDefinition(path string) (Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema definition: %w", err)
	}
	return ParseDefinition(data)
}
