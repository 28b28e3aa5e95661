package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"schema-manager/core/pocketbase"
	"schema-manager/core/schema"
	"schema-manager/core/schema/diff"
	"schema-manager/core/schema/field"
	"schema-manager/core/schema/index"

	"go.uber.org/zap"
)

// Adjustment is an additive change to one existing collection. Unlike a full definition it
// only ever adds fields and indexes; existing fields are never overwritten or removed.
type Adjustment struct {
	// Collection is the name of the collection to adjust.
	Collection string `json:"collection"`

	// Fields are appended when no field of the same name exists.
	Fields []schema.Field `json:"fields,omitempty"`

	// Required sets the required flag of existing fields by name.
	Required map[string]bool `json:"required,omitempty"`

	// Indexes are upserted by index name.
	Indexes []string `json:"indexes,omitempty"`

	// Rules are set when declared and different from the remote.
	Rules map[schema.RuleKind]schema.Value[string] `json:"rules,omitempty"`
}

// WithSecret returns a copy of a with schema.SecretPlaceholder replaced by secret in its rules.
func (a Adjustment) WithSecret(secret string) Adjustment {
	if len(a.Rules) == 0 {
		return a
	}
	c := schema.Collection{}
	for kind, v := range a.Rules {
		c.Rules.Set(kind, v)
	}
	c = c.WithSecret(secret)
	out := a
	out.Rules = make(map[schema.RuleKind]schema.Value[string], len(a.Rules))
	for kind := range a.Rules {
		out.Rules[kind] = c.Rules.Get(kind)
	}
	return out
}

// HasPlaceholder reports whether a rule of a still refers to schema.SecretPlaceholder.
func (a Adjustment) HasPlaceholder() bool {
	c := schema.Collection{}
	for kind, v := range a.Rules {
		c.Rules.Set(kind, v)
	}
	return c.HasPlaceholder()
}

// LoadAdjustments reads a JSON array of adjustments from path.
func LoadAdjustments(path string) ([]Adjustment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read adjustments: %w", err)
	}
	var adjustments []Adjustment
	if err := json.Unmarshal(data, &adjustments); err != nil {
		return nil, fmt.Errorf("failed to parse adjustments: %w", err)
	}
	for i, adj := range adjustments {
		if adj.Collection == "" {
			return nil, fmt.Errorf("adjustment %d: collection name is required", i)
		}
		for kind := range adj.Rules {
			if !isRuleKind(kind) {
				return nil, fmt.Errorf("adjustment %d: unknown rule %q", i, kind)
			}
		}
	}
	return adjustments, nil
}

// Ensure applies each adjustment to its existing collection. Absent collections are never
// created; they are reported as failed.
func (r *Reconciler) Ensure(ctx context.Context, adjustments []Adjustment) *Report {
	report := newReport("ensure", r.opts.DryRun)
	l := r.logger.With(zap.String("run_id", report.RunID))
	l.Info("Ensure started", zap.Int("collections", len(adjustments)), zap.Bool("dry_run", report.DryRun))

	for _, adj := range adjustments {
		report.Results = append(report.Results, r.ensureOne(ctx, l, adj, report.DryRun))
	}

	report.FinishedAt = time.Now()
	l.Info("Ensure finished", zap.Any("summary", report.Summary()), zap.Int("failed", report.Failed()))
	return report
}

func (r *Reconciler) ensureOne(ctx context.Context, l *zap.Logger, adj Adjustment, dryRun bool) Result {
	l = l.With(zap.String("collection", adj.Collection))
	res := Result{Collection: adj.Collection}

	existing, err := r.store.GetCollection(ctx, adj.Collection)
	if err != nil {
		if errors.Is(err, pocketbase.ErrNotFound) {
			l.Warn("Collection not found, skipping adjustment")
		} else {
			l.Error("Collection lookup failed", zap.Error(err))
		}
		return failed(res, err)
	}

	patch, changes := planAdjustment(l, existing, adj)
	res.Changes = changes
	res.Sections = patch.Sections()
	if patch.IsEmpty() {
		res.Status = StatusUpToDate
		return res
	}
	if dryRun {
		res.Status = StatusWouldPatch
		return res
	}

	addr := existing.ID
	if addr == "" {
		addr = existing.Name
	}
	if _, err := r.store.UpdateCollection(ctx, addr, patch); err != nil {
		l.Error("Adjustment failed", zap.Strings("sections", res.Sections), zap.Error(err))
		return failed(res, err)
	}
	res.Status = StatusPatched
	l.Info("Collection adjusted", zap.Strings("sections", res.Sections))
	return res
}

// planAdjustment computes the sparse patch for one adjustment.
func planAdjustment(l *zap.Logger, existing schema.Collection, adj Adjustment) (diff.Patch, []diff.Change) {
	var patch diff.Patch
	var changes []diff.Change

	fields := existing.Fields
	fieldsDirty := false
	for _, desired := range adj.Fields {
		next, added := field.Ensure(fields, desired)
		if !added {
			continue
		}
		fields = next
		fieldsDirty = true
		changes = append(changes, diff.Change{Section: diff.SectionFields, Action: diff.ActionAdd, Name: desired.Name})
	}

	names := make([]string, 0, len(adj.Required))
	for name := range adj.Required {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		next, changed := field.SetRequired(fields, name, adj.Required[name])
		if !changed {
			continue
		}
		fields = next
		fieldsDirty = true
		changes = append(changes, diff.Change{Section: diff.SectionFields, Action: diff.ActionUpdate, Name: name, Keys: []string{"required"}})
	}
	if fieldsDirty {
		patch.SetFields(fields)
	}

	for _, kind := range schema.RuleKinds {
		want, ok := adj.Rules[kind]
		if !ok || !want.Specified() || want.Equal(existing.Rules.Get(kind)) {
			continue
		}
		patch.Rules.Set(kind, want)
		changes = append(changes, diff.Change{Section: string(kind), Action: diff.ActionUpdate, Name: string(kind)})
	}

	indexes := existing.Indexes
	indexesDirty := false
	for _, def := range adj.Indexes {
		name, ok := index.Name(def)
		if !ok {
			l.Warn("Index name unparseable, comparing by exact text", zap.String("index", def))
			name = def
		}
		action := diff.ActionAdd
		for _, have := range indexes {
			if ok && index.Same(have, def) {
				action = diff.ActionUpdate
				break
			}
		}
		next, changed := index.Upsert(indexes, def)
		if !changed {
			continue
		}
		indexes = next
		indexesDirty = true
		changes = append(changes, diff.Change{Section: diff.SectionIndexes, Action: action, Name: name})
	}
	if indexesDirty {
		patch.SetIndexes(indexes)
	}

	return patch, changes
}

func isRuleKind(kind schema.RuleKind) bool {
	for _, k := range schema.RuleKinds {
		if k == kind {
			return true
		}
	}
	return false
}
