package schema

import (
	"encoding/json"
	"reflect"
	"sort"
)

// ChangedAttributes lists the attribute keys that target specifies and whose value differs
// from existing, in wire order. The id is never compared.
func ChangedAttributes(existing, target Field) []string {
	var changed []string
	if target.Type != "" && target.Type != existing.Type {
		changed = append(changed, "type")
	}

	for _, p := range target.props() {
		if !p.prop.Specified() {
			continue
		}
		if cur, ok := existing.lookup(p.key); ok {
			if !cur.sameAs(p.prop) {
				changed = append(changed, p.key)
			}
			continue
		}
		if !rawEqual(existing.Extra[p.key], mustRaw(p.prop)) {
			changed = append(changed, p.key)
		}
	}

	for _, key := range sortedKeys(target.Extra) {
		raw := target.Extra[key]
		if cur, ok := existing.lookup(key); ok {
			if !rawEqual(mustRaw(cur), raw) {
				changed = append(changed, key)
			}
			continue
		}
		if !rawEqual(existing.Extra[key], raw) {
			changed = append(changed, key)
		}
	}
	return changed
}

// OverlayAttributes returns a copy of existing with every attribute target specifies
// written over it. The existing id and name are kept. When the kind changes, the target's
// options replace the old ones wholesale since the old kind's attributes no longer apply.
func OverlayAttributes(existing, target Field) Field {
	merged := existing.Clone()
	if target.Type != "" && target.Type != existing.Type {
		merged.Type = target.Type
		merged.Options = target.Opts().clone()
	}

	for _, p := range target.props() {
		if !p.prop.Specified() {
			continue
		}
		if dst, ok := merged.lookup(p.key); ok {
			dst.assign(p.prop)
		}
	}

	for _, key := range sortedKeys(target.Extra) {
		raw := target.Extra[key]
		if dst, ok := merged.lookup(key); ok {
			if err := json.Unmarshal(raw, dst); err == nil {
				continue
			}
		}
		if merged.Extra == nil {
			merged.Extra = make(map[string]json.RawMessage)
		}
		merged.Extra[key] = raw
	}

	merged.ID = existing.ID
	merged.Name = existing.Name
	return merged
}

// rawEqual compares two JSON documents structurally. Absent and null are equal.
func rawEqual(a, b json.RawMessage) bool {
	var av, bv any
	if len(a) > 0 {
		if err := json.Unmarshal(a, &av); err != nil {
			return false
		}
	}
	if len(b) > 0 {
		if err := json.Unmarshal(b, &bv); err != nil {
			return false
		}
	}
	return reflect.DeepEqual(av, bv)
}

func mustRaw(p property) json.RawMessage {
	if !p.Specified() {
		return nil
	}
	data, err := p.MarshalJSON()
	if err != nil {
		return nil
	}
	return data
}

func sortedKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
