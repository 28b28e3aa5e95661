package diff

import (
	"encoding/json"
	"testing"

	"schema-manager/core/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func mustCollection(t *testing.T, data string) schema.Collection {
	t.Helper()
	var c schema.Collection
	require.NoError(t, json.Unmarshal([]byte(data), &c))
	return c
}

const productsRemote = `{
	"id": "pbc_products",
	"name": "products",
	"type": "base",
	"fields": [
		{"id": "text_id", "name": "id", "type": "text", "system": true, "primaryKey": true, "required": true},
		{"id": "text_name", "name": "name", "type": "text", "required": false, "presentable": true},
		{"id": "num_price", "name": "price", "type": "number", "min": 0, "max": null, "onlyInt": false},
		{"id": "ad_created", "name": "created", "type": "autodate", "system": true, "onCreate": true, "onUpdate": false},
		{"id": "ad_updated", "name": "updated", "type": "autodate", "system": true, "onCreate": true, "onUpdate": true}
	],
	"indexes": ["CREATE INDEX ` + "`idx_a`" + ` ON ` + "`products`" + ` (` + "`x`" + `)"],
	"listRule": "",
	"viewRule": "",
	"createRule": "@request.auth.id != ''",
	"updateRule": "@request.auth.id != ''",
	"deleteRule": null
}`

func newDiffer() *Differ {
	return New(zap.NewNop(), DefaultReserved)
}

func TestDiff_IdenticalIsNoop(t *testing.T) {
	c := mustCollection(t, productsRemote)
	res := newDiffer().Diff(c, c)
	assert.True(t, res.IsNoop())
	assert.Empty(t, res.Changes)
	assert.Empty(t, res.Sections())

	out, err := json.Marshal(res.Patch)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(out))
}

func TestDiff_RequiredFlip(t *testing.T) {
	existing := mustCollection(t, `{"id":"c1","name":"items","fields":[
		{"id":"text_id","name":"id","type":"text","system":true},
		{"id":"text_name","name":"name","type":"text","required":false}
	]}`)
	target := mustCollection(t, `{"name":"items","fields":[{"name":"name","type":"text","required":true}]}`)

	res := newDiffer().Diff(existing, target)

	assert.Equal(t, []string{SectionFields}, res.Sections())
	require.Len(t, res.Changes, 1)
	assert.Equal(t, Change{Section: SectionFields, Action: ActionUpdate, Name: "name", Keys: []string{"required"}}, res.Changes[0])

	name, ok := schema.Collection{Fields: res.Patch.Fields}.Field("name")
	require.True(t, ok)
	assert.True(t, name.Required.Or(false))
	assert.Equal(t, "text_name", name.ID, "server id must survive the merge")

	_, ok = schema.Collection{Fields: res.Patch.Fields}.Field("id")
	assert.True(t, ok, "reserved field stays in the payload")
}

func TestDiff_RemovalByOmission(t *testing.T) {
	existing := mustCollection(t, `{"name":"items","fields":[
		{"id":"f_id","name":"id","type":"text","system":true},
		{"id":"f_name","name":"name","type":"text"},
		{"id":"f_extra","name":"extra","type":"text"}
	]}`)
	target := mustCollection(t, `{"name":"items","fields":[{"name":"name","type":"text"}]}`)

	core, logs := observer.New(zapcore.WarnLevel)
	res := New(zap.New(core), DefaultReserved).Diff(existing, target)

	assert.Equal(t, []string{SectionFields}, res.Sections())
	assert.Equal(t, []string{"id", "name"}, fieldNames(res.Patch.Fields))
	assert.Equal(t, []Change{{Section: SectionFields, Action: ActionRemove, Name: "extra"}}, res.Changes)

	entries := logs.FilterMessage("Field removal detected").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "extra", entries[0].ContextMap()["field"])
}

func TestDiff_ReservedNeverRemoved(t *testing.T) {
	existing := mustCollection(t, productsRemote)
	targets := []string{
		`{"name":"products","fields":[]}`,
		`{"name":"products","fields":[{"name":"name","type":"text","presentable":true}]}`,
		`{"name":"products","fields":[{"name":"sku","type":"text"}]}`,
	}

	for _, doc := range targets {
		res := newDiffer().Diff(existing, mustCollection(t, doc))
		require.True(t, res.Patch.HasFields)
		names := fieldNames(res.Patch.Fields)
		assert.Contains(t, names, "id")
		assert.Contains(t, names, "created")
		assert.Contains(t, names, "updated")
		for _, c := range res.Changes {
			if c.Action == ActionRemove {
				assert.NotContains(t, DefaultReserved, c.Name)
			}
		}
	}
}

func TestDiff_ReservedListIsCallerSupplied(t *testing.T) {
	existing := mustCollection(t, `{"name":"items","fields":[{"name":"id","type":"text"},{"name":"legacy","type":"text"}]}`)
	target := mustCollection(t, `{"name":"items","fields":[]}`)

	res := New(nil, []string{"id", "legacy"}).Diff(existing, target)
	assert.True(t, res.IsNoop())

	res = New(nil, nil).Diff(existing, target)
	assert.Len(t, res.Changes, 2)
	assert.Empty(t, res.Patch.Fields)
}

func TestDiff_AddedFieldKeepsTargetOrder(t *testing.T) {
	existing := mustCollection(t, `{"name":"items","fields":[{"id":"a1","name":"a","type":"text"},{"id":"b1","name":"b","type":"text"}]}`)
	target := mustCollection(t, `{"name":"items","fields":[{"name":"b","type":"text"},{"name":"new","type":"bool"},{"name":"a","type":"text"}]}`)

	res := newDiffer().Diff(existing, target)
	assert.Equal(t, []string{"b", "new", "a"}, fieldNames(res.Patch.Fields))
	assert.Equal(t, []Change{{Section: SectionFields, Action: ActionAdd, Name: "new"}}, res.Changes)
}

func TestDiff_IndexRedeclared(t *testing.T) {
	existing := mustCollection(t, productsRemote)
	target := mustCollection(t, `{"name":"products","fields":[`+fieldsOf(t, existing)+`],
		"indexes":["CREATE INDEX `+"`idx_a`"+` ON `+"`products`"+` (`+"`x`"+`, `+"`y`"+`)"]}`)

	res := newDiffer().Diff(existing, target)

	assert.Equal(t, []string{SectionIndexes}, res.Sections())
	assert.Equal(t, []string{"CREATE INDEX `idx_a` ON `products` (`x`, `y`)"}, res.Patch.Indexes)
	assert.Equal(t, []Change{{Section: SectionIndexes, Action: ActionUpdate, Name: "idx_a"}}, res.Changes)
}

func TestDiff_IndexesAddedAndUnparseable(t *testing.T) {
	existing := mustCollection(t, `{"name":"t","fields":[],"indexes":["CREATE INDEX raw_idx ON t (a)"]}`)
	target := mustCollection(t, `{"name":"t","fields":[],"indexes":[
		"CREATE INDEX raw_idx ON t (a)",
		"CREATE UNIQUE INDEX `+"`idx_b`"+` ON `+"`t`"+` (`+"`b`"+`)"
	]}`)

	core, logs := observer.New(zapcore.WarnLevel)
	res := New(zap.New(core), DefaultReserved).Diff(existing, target)

	assert.Equal(t, []string{SectionIndexes}, res.Sections())
	assert.Len(t, res.Patch.Indexes, 2)
	assert.Equal(t, []Change{{Section: SectionIndexes, Action: ActionAdd, Name: "idx_b"}}, res.Changes)
	assert.Equal(t, 1, logs.FilterMessage("Index name unparseable, comparing by exact text").Len())
}

func TestDiff_PartialRules(t *testing.T) {
	existing := mustCollection(t, productsRemote)
	target := mustCollection(t, `{"name":"products","fields":[`+fieldsOf(t, existing)+`],
		"createRule":"@request.headers.x_webhook_secret = \"s\""}`)

	res := newDiffer().Diff(existing, target)

	assert.Equal(t, []string{"createRule"}, res.Sections())
	assert.Equal(t, `@request.headers.x_webhook_secret = "s"`, res.Patch.Rules.Create.Or(""))
	assert.False(t, res.Patch.Rules.Update.Specified(), "undeclared rules are untouched")

	out, err := json.Marshal(res.Patch)
	require.NoError(t, err)
	assert.JSONEq(t, `{"createRule":"@request.headers.x_webhook_secret = \"s\""}`, string(out))
}

func TestDiff_RuleNullVersusEmpty(t *testing.T) {
	existing := mustCollection(t, `{"name":"t","fields":[],"listRule":null,"viewRule":"","deleteRule":null}`)
	target := mustCollection(t, `{"name":"t","fields":[],"listRule":"","viewRule":null,"deleteRule":null}`)

	res := newDiffer().Diff(existing, target)
	assert.Equal(t, []string{"listRule", "viewRule"}, res.Sections())

	out, err := json.Marshal(res.Patch)
	require.NoError(t, err)
	assert.JSONEq(t, `{"listRule":"","viewRule":null}`, string(out))
}

func TestDiff_ApplyTwiceIsNoop(t *testing.T) {
	existing := mustCollection(t, productsRemote)
	target := mustCollection(t, `{
		"name": "products",
		"type": "base",
		"fields": [
			{"name": "name", "type": "text", "required": true, "presentable": true},
			{"name": "price", "type": "number", "min": 1, "max": null, "onlyInt": false},
			{"name": "stock_status", "type": "select", "maxSelect": 1, "values": ["in_stock", "low_stock", "out_of_stock"]}
		],
		"indexes": [
			"CREATE INDEX `+"`idx_a`"+` ON `+"`products`"+` (`+"`x`"+`, `+"`y`"+`)",
			"CREATE UNIQUE INDEX `+"`idx_sku`"+` ON `+"`products`"+` (`+"`sku`"+`) WHERE `+"`sku`"+` != ''"
		],
		"listRule": "",
		"updateRule": null
	}`)

	d := newDiffer()
	first := d.Diff(existing, target)
	require.False(t, first.IsNoop())
	assert.ElementsMatch(t, []string{SectionFields, "updateRule", SectionIndexes}, first.Sections())

	applied := Apply(existing, first.Patch)
	second := d.Diff(applied, target)
	assert.True(t, second.IsNoop(), "second pass must be a no-op, got %v", second.Changes)

	price, _ := applied.Field("price")
	assert.Equal(t, "num_price", price.ID)
}

func TestChange_String(t *testing.T) {
	assert.Equal(t, "+ fields.phone", Change{Section: SectionFields, Action: ActionAdd, Name: "phone"}.String())
	assert.Equal(t, "* fields.name (required, max)", Change{Section: SectionFields, Action: ActionUpdate, Name: "name", Keys: []string{"required", "max"}}.String())
	assert.Equal(t, "- fields.extra", Change{Section: SectionFields, Action: ActionRemove, Name: "extra"}.String())
	assert.Equal(t, "* listRule", Change{Section: "listRule", Action: ActionUpdate, Name: "listRule"}.String())
}

func fieldNames(fields []schema.Field) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, f.Name)
	}
	return out
}

// fieldsOf renders a collection's fields as a JSON list body so a target can reuse them.
func fieldsOf(t *testing.T, c schema.Collection) string {
	t.Helper()
	data, err := json.Marshal(c.Fields)
	require.NoError(t, err)
	return string(data[1 : len(data)-1])
}
