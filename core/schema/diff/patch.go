package diff

import (
	"encoding/json"
	"fmt"
	"strings"

	"schema-manager/core/schema"
)

// SectionFields and SectionIndexes name the non-rule sections of a patch.
const (
	SectionFields  = "fields"
	SectionIndexes = "indexes"
)

// Patch is a sparse collection update. Only sections that changed are present;
// an omitted section is left as-is by the remote.
type Patch struct {
	Fields     []schema.Field
	HasFields  bool
	Rules      schema.Rules
	Indexes    []string
	HasIndexes bool
}

// SetFields stages the full field list.
func (p *Patch) SetFields(fields []schema.Field) {
	p.Fields = fields
	p.HasFields = true
}

// SetIndexes stages the full index set.
func (p *Patch) SetIndexes(indexes []string) {
	p.Indexes = indexes
	p.HasIndexes = true
}

// IsEmpty reports whether the patch changes nothing. An empty patch must not be sent.
func (p Patch) IsEmpty() bool {
	return len(p.Sections()) == 0
}

// Sections lists the populated sections in wire order.
func (p Patch) Sections() []string {
	var sections []string
	if p.HasFields {
		sections = append(sections, SectionFields)
	}
	for _, kind := range schema.RuleKinds {
		if p.Rules.Get(kind).Specified() {
			sections = append(sections, string(kind))
		}
	}
	if p.HasIndexes {
		sections = append(sections, SectionIndexes)
	}
	return sections
}

// MarshalJSON encodes only the populated sections.
func (p Patch) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 7)
	if p.HasFields {
		fields := p.Fields
		if fields == nil {
			fields = []schema.Field{}
		}
		out[SectionFields] = fields
	}
	for _, kind := range schema.RuleKinds {
		if v := p.Rules.Get(kind); v.Specified() {
			out[string(kind)] = v
		}
	}
	if p.HasIndexes {
		indexes := p.Indexes
		if indexes == nil {
			indexes = []string{}
		}
		out[SectionIndexes] = indexes
	}
	return json.Marshal(out)
}

// Action is the kind of a single change.
type Action string

const (
	ActionAdd    Action = "add"
	ActionUpdate Action = "update"
	ActionRemove Action = "remove"
)

// Change is one entry of the human-readable change summary.
type Change struct {
	Section string   `json:"section"`
	Action  Action   `json:"action"`
	Name    string   `json:"name"`
	Keys    []string `json:"keys,omitempty"`
}

// String renders the change as a short summary line, e.g. "* fields.name (required)".
func (c Change) String() string {
	sign := "*"
	switch c.Action {
	case ActionAdd:
		sign = "+"
	case ActionRemove:
		sign = "-"
	}
	s := fmt.Sprintf("%s %s.%s", sign, c.Section, c.Name)
	if c.Section == c.Name {
		s = fmt.Sprintf("%s %s", sign, c.Section)
	}
	if len(c.Keys) > 0 {
		s += " (" + strings.Join(c.Keys, ", ") + ")"
	}
	return s
}

// Apply returns c with the patch's sections written over it, the way the remote applies a
// PATCH. Fields without an id keep the id of the previous field with the same name.
func Apply(c schema.Collection, p Patch) schema.Collection {
	out := c
	if p.HasFields {
		ids := make(map[string]string, len(c.Fields))
		for _, f := range c.Fields {
			ids[f.Name] = f.ID
		}
		out.Fields = make([]schema.Field, 0, len(p.Fields))
		for _, f := range p.Fields {
			f = f.Clone()
			if f.ID == "" {
				f.ID = ids[f.Name]
			}
			out.Fields = append(out.Fields, f)
		}
	}
	for _, kind := range schema.RuleKinds {
		if v := p.Rules.Get(kind); v.Specified() {
			out.Rules.Set(kind, v)
		}
	}
	if p.HasIndexes {
		out.Indexes = append([]string(nil), p.Indexes...)
	}
	return out
}
