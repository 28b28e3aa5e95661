package schema

import (
	"encoding/json"
	"fmt"
)

// CollectionType is the kind tag of a collection.
type CollectionType string

const (
	CollectionBase CollectionType = "base"
	CollectionAuth CollectionType = "auth"
	CollectionView CollectionType = "view"
)

// RuleKind names one of the five access rules of a collection.
type RuleKind string

const (
	ListRule   RuleKind = "listRule"
	ViewRule   RuleKind = "viewRule"
	CreateRule RuleKind = "createRule"
	UpdateRule RuleKind = "updateRule"
	DeleteRule RuleKind = "deleteRule"
)

// RuleKinds lists the rule kinds in wire order.
var RuleKinds = []RuleKind{ListRule, ViewRule, CreateRule, UpdateRule, DeleteRule}

// Rules holds a collection's access predicates. A rule that is unspecified was not
// declared; a null rule is declared and distinct from the empty string.
type Rules struct {
	List   Value[string]
	View   Value[string]
	Create Value[string]
	Update Value[string]
	Delete Value[string]
}

func (r *Rules) ref(kind RuleKind) *Value[string] {
	switch kind {
	case ListRule:
		return &r.List
	case ViewRule:
		return &r.View
	case CreateRule:
		return &r.Create
	case UpdateRule:
		return &r.Update
	case DeleteRule:
		return &r.Delete
	default:
		return nil
	}
}

// Get returns the rule of the given kind.
func (r Rules) Get(kind RuleKind) Value[string] {
	if v := r.ref(kind); v != nil {
		return *v
	}
	return Value[string]{}
}

// Set stores the rule of the given kind. Unknown kinds are ignored.
func (r *Rules) Set(kind RuleKind, v Value[string]) {
	if dst := r.ref(kind); dst != nil {
		*dst = v
	}
}

// Collection is one collection definition, either declared by a target or reported by
// the remote store.
type Collection struct {
	ID      string
	Name    string
	Type    CollectionType
	Fields  []Field
	Indexes []string
	Rules   Rules

	// Extra keeps keys this package does not model (auth options, viewQuery, timestamps).
	Extra map[string]json.RawMessage
}

// Field returns the field with the given name.
func (c Collection) Field(name string) (Field, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// FieldNames returns the field names in declaration order.
func (c Collection) FieldNames() []string {
	names := make([]string, 0, len(c.Fields))
	for _, f := range c.Fields {
		names = append(names, f.Name)
	}
	return names
}

// UnmarshalJSON decodes a wire collection.
func (c *Collection) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*c = Collection{}
	var kind string
	for key, dst := range map[string]*string{"id": &c.ID, "name": &c.Name, "type": &kind} {
		if r, ok := raw[key]; ok {
			if !isNull(r) {
				if err := json.Unmarshal(r, dst); err != nil {
					return fmt.Errorf("collection %s: %w", key, err)
				}
			}
			delete(raw, key)
		}
	}
	c.Type = CollectionType(kind)

	if r, ok := raw["fields"]; ok {
		if !isNull(r) {
			if err := json.Unmarshal(r, &c.Fields); err != nil {
				return fmt.Errorf("collection %q fields: %w", c.Name, err)
			}
		}
		delete(raw, "fields")
	}
	if r, ok := raw["indexes"]; ok {
		if !isNull(r) {
			if err := json.Unmarshal(r, &c.Indexes); err != nil {
				return fmt.Errorf("collection %q indexes: %w", c.Name, err)
			}
		}
		delete(raw, "indexes")
	}
	for _, kind := range RuleKinds {
		r, ok := raw[string(kind)]
		if !ok {
			continue
		}
		if err := json.Unmarshal(r, c.Rules.ref(kind)); err != nil {
			return fmt.Errorf("collection %q %s: %w", c.Name, kind, err)
		}
		delete(raw, string(kind))
	}

	if len(raw) > 0 {
		c.Extra = raw
	}
	return nil
}

// MarshalJSON encodes the collection in the remote's create format.
func (c Collection) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.Extra)+10)
	for k, v := range c.Extra {
		out[k] = v
	}
	if c.ID != "" {
		out["id"] = c.ID
	}
	out["name"] = c.Name
	if c.Type != "" {
		out["type"] = c.Type
	}
	fields := c.Fields
	if fields == nil {
		fields = []Field{}
	}
	out["fields"] = fields
	if c.Indexes != nil {
		out["indexes"] = c.Indexes
	}
	for _, kind := range RuleKinds {
		if v := c.Rules.Get(kind); v.Specified() {
			out[string(kind)] = v
		}
	}
	return json.Marshal(out)
}
