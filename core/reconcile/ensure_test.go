package reconcile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"schema-manager/core/schema"
	"schema-manager/core/schema/diff"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const addressesRemote = `{"id":"pbc_addr","name":"addresses","type":"base","fields":[
	{"id":"a_id","name":"id","type":"text","system":true},
	{"id":"a_line1","name":"line1","type":"text","required":false},
	{"id":"a_city","name":"city","type":"text","required":true}
],"indexes":["CREATE INDEX ` + "`idx_city`" + ` ON ` + "`addresses`" + ` (` + "`city`" + `)"],
"listRule":"","deleteRule":null}`

func writeAdjustments(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "adjustments.json")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestLoadAdjustments(t *testing.T) {
	path := writeAdjustments(t, `[{
		"collection": "addresses",
		"fields": [{"name":"phone","type":"text"}],
		"required": {"line1": true},
		"indexes": ["CREATE INDEX `+"`idx_phone`"+` ON `+"`addresses`"+` (`+"`phone`"+`)"],
		"rules": {"listRule": "@request.auth.id != ''", "deleteRule": null}
	}]`)

	adjustments, err := LoadAdjustments(path)
	require.NoError(t, err)
	require.Len(t, adjustments, 1)

	adj := adjustments[0]
	assert.Equal(t, "addresses", adj.Collection)
	assert.Equal(t, map[string]bool{"line1": true}, adj.Required)
	assert.True(t, adj.Rules[schema.DeleteRule].Specified())
	assert.True(t, adj.Rules[schema.DeleteRule].IsNull())

	_, err = LoadAdjustments(writeAdjustments(t, `[{"fields":[]}]`))
	assert.Error(t, err)

	_, err = LoadAdjustments(writeAdjustments(t, `[{"collection":"a","rules":{"bogusRule":""}}]`))
	assert.Error(t, err)

	_, err = LoadAdjustments(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestEnsure_AppliesAdditiveChanges(t *testing.T) {
	store := newMemStore(decode(t, addressesRemote))
	r := New(store, nil, Options{})

	adjustments := []Adjustment{{
		Collection: "addresses",
		Fields: []schema.Field{
			schema.NewField("phone", schema.TypeText),
			schema.NewField("city", schema.TypeEditor),
		},
		Required: map[string]bool{"line1": true, "city": true},
		Indexes:  []string{"CREATE INDEX `idx_phone` ON `addresses` (`phone`)"},
		Rules: map[schema.RuleKind]schema.Value[string]{
			schema.ListRule:   schema.Of(""),
			schema.DeleteRule: schema.Of("@request.auth.id != ''"),
		},
	}}

	report := r.Ensure(context.Background(), adjustments)
	require.Len(t, report.Results, 1)
	res := report.Results[0]
	assert.Equal(t, "ensure", report.Kind)
	assert.Equal(t, StatusPatched, res.Status)
	assert.Equal(t, []string{diff.SectionFields, "deleteRule", diff.SectionIndexes}, res.Sections)

	after := store.collections["addresses"]
	assert.Equal(t, []string{"id", "line1", "city", "phone"}, after.FieldNames())
	city, _ := after.Field("city")
	assert.Equal(t, schema.TypeText, city.Type, "existing field wins")
	line1, _ := after.Field("line1")
	assert.True(t, line1.Required.Or(false))
	assert.Equal(t, "a_line1", line1.ID)
	assert.Len(t, after.Indexes, 2)

	again := r.Ensure(context.Background(), adjustments)
	assert.Equal(t, StatusUpToDate, again.Results[0].Status)
	assert.Len(t, store.updates, 1)
}

func TestEnsure_MissingCollectionFails(t *testing.T) {
	store := newMemStore()
	r := New(store, nil, Options{})

	report := r.Ensure(context.Background(), []Adjustment{{Collection: "ghost", Required: map[string]bool{"x": true}}})
	assert.Equal(t, StatusFailed, report.Results[0].Status)
	assert.Contains(t, report.Results[0].Error, "not found")
	assert.Zero(t, store.creates)
}

func TestEnsure_DryRun(t *testing.T) {
	ms := new(mockStore)
	ms.On("GetCollection", mock.Anything, "addresses").Return(decode(t, addressesRemote), nil)

	r := New(ms, nil, Options{DryRun: true})
	report := r.Ensure(context.Background(), []Adjustment{{Collection: "addresses", Required: map[string]bool{"line1": true}}})

	assert.True(t, report.DryRun)
	assert.Equal(t, StatusWouldPatch, report.Results[0].Status)
	assert.Equal(t, []diff.Change{{Section: diff.SectionFields, Action: diff.ActionUpdate, Name: "line1", Keys: []string{"required"}}}, report.Results[0].Changes)
	ms.AssertNotCalled(t, "UpdateCollection", mock.Anything, mock.Anything, mock.Anything)
}

func TestEnsure_UnnamedIndexWarns(t *testing.T) {
	ms := new(mockStore)
	ms.On("GetCollection", mock.Anything, "addresses").Return(decode(t, addressesRemote), nil)

	core, logs := observer.New(zapcore.WarnLevel)
	r := New(ms, zap.New(core), Options{DryRun: true})
	raw := "CREATE INDEX idx_line1 ON addresses (line1)"
	report := r.Ensure(context.Background(), []Adjustment{{Collection: "addresses", Indexes: []string{raw}}})

	assert.Equal(t, StatusWouldPatch, report.Results[0].Status)
	assert.Equal(t, []diff.Change{{Section: diff.SectionIndexes, Action: diff.ActionAdd, Name: raw}}, report.Results[0].Changes)

	entries := logs.FilterMessage("Index name unparseable, comparing by exact text").All()
	require.Len(t, entries, 1)
	assert.Equal(t, raw, entries[0].ContextMap()["index"])
	assert.Equal(t, "addresses", entries[0].ContextMap()["collection"])
}

func TestAdjustment_WithSecret(t *testing.T) {
	adj := Adjustment{
		Collection: "orders",
		Rules: map[schema.RuleKind]schema.Value[string]{
			schema.CreateRule: schema.Of(`@request.headers.x_webhook_secret = "__WEBHOOK_SECRET__"`),
			schema.ViewRule:   schema.Null[string](),
		},
	}
	assert.True(t, adj.HasPlaceholder())

	resolved := adj.WithSecret("s")
	assert.False(t, resolved.HasPlaceholder())
	assert.Equal(t, `@request.headers.x_webhook_secret = "s"`, resolved.Rules[schema.CreateRule].Or(""))
	assert.True(t, resolved.Rules[schema.ViewRule].IsNull())
	assert.True(t, adj.HasPlaceholder(), "input untouched")
}
