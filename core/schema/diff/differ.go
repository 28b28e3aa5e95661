package diff

import (
	"schema-manager/core/schema"
	"schema-manager/core/schema/field"
	"schema-manager/core/schema/index"

	"go.uber.org/zap"
)

// DefaultReserved lists the field names the remote owns on every collection.
var DefaultReserved = []string{"id", "created", "updated"}

// Result is the outcome of diffing one collection.
type Result struct {
	Collection string
	Patch      Patch
	Changes    []Change
}

// IsNoop reports whether nothing needs to be written.
func (r Result) IsNoop() bool {
	return r.Patch.IsEmpty()
}

// Sections lists the dirty sections of the patch.
func (r Result) Sections() []string {
	return r.Patch.Sections()
}

// Differ compares a target collection against the remote one.
type Differ struct {
	reserved map[string]struct{}
	logger   *zap.Logger
}

// New creates a differ. Fields named in reserved are never removed by omission.
func New(logger *zap.Logger, reserved []string) *Differ {
	if logger == nil {
		logger = zap.NewNop()
	}
	set := make(map[string]struct{}, len(reserved))
	for _, name := range reserved {
		set[name] = struct{}{}
	}
	return &Differ{reserved: set, logger: logger}
}

// IsReserved reports whether name is a system-reserved field name.
func (d *Differ) IsReserved(name string) bool {
	_, ok := d.reserved[name]
	return ok
}

// Diff computes the patch that converges existing towards target across fields,
// access rules and indexes. An empty patch means the collection is up to date.
func (d *Differ) Diff(existing, target schema.Collection) Result {
	l := d.logger.With(zap.String("collection", target.Name))
	res := Result{Collection: target.Name}

	fields, fieldChanges := d.diffFields(l, existing, target)
	if len(fieldChanges) > 0 {
		res.Patch.SetFields(fields)
		res.Changes = append(res.Changes, fieldChanges...)
	}

	for _, kind := range schema.RuleKinds {
		want := target.Rules.Get(kind)
		if !want.Specified() {
			continue
		}
		if want.Equal(existing.Rules.Get(kind)) {
			continue
		}
		res.Patch.Rules.Set(kind, want)
		res.Changes = append(res.Changes, Change{Section: string(kind), Action: ActionUpdate, Name: string(kind)})
	}

	indexes, indexChanges := d.diffIndexes(l, existing.Indexes, target.Indexes)
	if len(indexChanges) > 0 {
		res.Patch.SetIndexes(indexes)
		res.Changes = append(res.Changes, indexChanges...)
	}

	return res
}

// diffFields stages the target fields in target order and then drops unreserved fields the
// target no longer declares.
func (d *Differ) diffFields(l *zap.Logger, existing, target schema.Collection) ([]schema.Field, []Change) {
	current := field.Index(existing.Fields)
	staged := make([]schema.Field, 0, len(target.Fields))
	var changes []Change

	for _, want := range target.Fields {
		have, ok := current[want.Name]
		if !ok {
			l.Debug("New field detected", zap.String("field", want.Name))
			staged = append(staged, want)
			changes = append(changes, Change{Section: SectionFields, Action: ActionAdd, Name: want.Name})
			continue
		}
		if keys := field.Changed(have, want); len(keys) > 0 {
			l.Debug("Field update detected", zap.String("field", want.Name), zap.Strings("keys", keys))
			staged = append(staged, field.Overlay(have, want))
			changes = append(changes, Change{Section: SectionFields, Action: ActionUpdate, Name: want.Name, Keys: keys})
			continue
		}
		staged = append(staged, have)
	}

	declared := make(map[string]struct{}, len(target.Fields))
	for _, f := range target.Fields {
		declared[f.Name] = struct{}{}
	}
	for _, have := range existing.Fields {
		if _, ok := declared[have.Name]; ok {
			continue
		}
		if d.IsReserved(have.Name) {
			// Reserved fields the target omits are kept where the remote has them.
			staged = insertReserved(staged, existing.Fields, have)
			continue
		}
		// Removal by omission: the field is left out of the staged list and the remote
		// drops it on PATCH.
		l.Warn("Field removal detected", zap.String("field", have.Name), zap.String("type", string(have.Type)))
		changes = append(changes, Change{Section: SectionFields, Action: ActionRemove, Name: have.Name})
	}

	return staged, changes
}

// diffIndexes upserts every desired index into the existing set.
func (d *Differ) diffIndexes(l *zap.Logger, existing, desired []string) ([]string, []Change) {
	set := existing
	var changes []Change
	for _, def := range desired {
		name, ok := index.Name(def)
		if !ok {
			l.Warn("Index name unparseable, comparing by exact text", zap.String("index", def))
			name = def
		}
		known := false
		for _, have := range set {
			if (ok && index.Same(have, def)) || have == def {
				known = true
				break
			}
		}
		next, changed := index.Upsert(set, def)
		if !changed {
			continue
		}
		set = next
		action := ActionAdd
		if known {
			action = ActionUpdate
		}
		changes = append(changes, Change{Section: SectionIndexes, Action: action, Name: name})
	}
	return set, changes
}

// insertReserved places a reserved field the target left out back into the staged list,
// ahead of the first staged field that followed it remotely.
func insertReserved(staged, existing []schema.Field, f schema.Field) []schema.Field {
	pos := -1
	for i, e := range existing {
		if e.Name == f.Name {
			pos = i
			break
		}
	}
	after := make(map[string]struct{})
	for _, e := range existing[pos+1:] {
		after[e.Name] = struct{}{}
	}
	for i, s := range staged {
		if _, ok := after[s.Name]; ok {
			out := make([]schema.Field, 0, len(staged)+1)
			out = append(out, staged[:i]...)
			out = append(out, f)
			return append(out, staged[i:]...)
		}
	}
	return append(staged, f)
}
