package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"schema-manager/core/pocketbase"
	"schema-manager/core/schema"
	"schema-manager/core/schema/diff"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory remote that applies patches the way the remote does.
type memStore struct {
	collections map[string]schema.Collection
	creates     int
	updates     []string
	failCreate  map[string]error
	failUpdate  map[string]error
	failLookup  map[string]error
	nextID      int
}

func newMemStore(existing ...schema.Collection) *memStore {
	s := &memStore{
		collections: map[string]schema.Collection{},
		failCreate:  map[string]error{},
		failUpdate:  map[string]error{},
		failLookup:  map[string]error{},
	}
	for _, c := range existing {
		s.collections[c.Name] = c
	}
	return s
}

func (s *memStore) GetCollection(_ context.Context, name string) (schema.Collection, error) {
	if err := s.failLookup[name]; err != nil {
		return schema.Collection{}, err
	}
	c, ok := s.collections[name]
	if !ok {
		return schema.Collection{}, fmt.Errorf("%w: %s", pocketbase.ErrNotFound, name)
	}
	return c, nil
}

func (s *memStore) CreateCollection(_ context.Context, c schema.Collection) (schema.Collection, error) {
	if err := s.failCreate[c.Name]; err != nil {
		return schema.Collection{}, err
	}
	s.creates++
	s.nextID++
	c.Fields = append([]schema.Field(nil), c.Fields...)
	c.ID = fmt.Sprintf("pbc_%d", s.nextID)
	for i := range c.Fields {
		c.Fields[i].ID = fmt.Sprintf("%s_f%d", c.ID, i)
	}
	s.collections[c.Name] = c
	return c, nil
}

func (s *memStore) UpdateCollection(_ context.Context, idOrName string, p diff.Patch) (schema.Collection, error) {
	for name, c := range s.collections {
		if c.ID != idOrName && name != idOrName {
			continue
		}
		if err := s.failUpdate[name]; err != nil {
			return schema.Collection{}, err
		}
		s.updates = append(s.updates, idOrName)
		c = diff.Apply(c, p)
		s.collections[name] = c
		return c, nil
	}
	return schema.Collection{}, &pocketbase.APIError{Status: http.StatusNotFound, Message: "missing"}
}

// mockStore records calls for assertions on what was (not) written.
type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetCollection(ctx context.Context, name string) (schema.Collection, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(schema.Collection), args.Error(1)
}

func (m *mockStore) CreateCollection(ctx context.Context, c schema.Collection) (schema.Collection, error) {
	args := m.Called(ctx, c)
	return args.Get(0).(schema.Collection), args.Error(1)
}

func (m *mockStore) UpdateCollection(ctx context.Context, idOrName string, p diff.Patch) (schema.Collection, error) {
	args := m.Called(ctx, idOrName, p)
	return args.Get(0).(schema.Collection), args.Error(1)
}

func decode(t *testing.T, data string) schema.Collection {
	t.Helper()
	var c schema.Collection
	require.NoError(t, json.Unmarshal([]byte(data), &c))
	return c
}

func definition(t *testing.T, data string) schema.Definition {
	t.Helper()
	def, err := schema.ParseDefinition([]byte(data))
	require.NoError(t, err)
	return def
}

const usersRemote = `{"id":"pbc_users","name":"users","type":"auth","fields":[
	{"id":"u_id","name":"id","type":"text","system":true},
	{"id":"u_name","name":"name","type":"text","required":false},
	{"id":"u_extra","name":"extra","type":"text"},
	{"id":"u_created","name":"created","type":"autodate","onCreate":true,"onUpdate":false},
	{"id":"u_updated","name":"updated","type":"autodate","onCreate":true,"onUpdate":true}
],"indexes":["CREATE INDEX ` + "`idx_a`" + ` ON ` + "`users`" + ` (` + "`x`" + `)"],
"listRule":"","viewRule":"","createRule":null,"updateRule":null,"deleteRule":null}`

func TestReconcile_CreatesAbsentCollection(t *testing.T) {
	store := newMemStore()
	r := New(store, nil, Options{})

	def := definition(t, `[{"name":"orders","type":"base","fields":[{"name":"total","type":"number"}],"listRule":""}]`)
	report := r.Reconcile(context.Background(), def)

	require.Len(t, report.Results, 1)
	assert.Equal(t, StatusCreated, report.Results[0].Status)
	assert.Equal(t, 1, store.creates)
	assert.Empty(t, store.updates)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, "reconcile", report.Kind)

	created := store.collections["orders"]
	assert.Equal(t, []string{"total"}, created.FieldNames())
	assert.NotEmpty(t, created.Fields[0].ID, "ids are assigned remotely")
}

func TestReconcile_RequiredFlipAndRemoval(t *testing.T) {
	store := newMemStore(decode(t, usersRemote))
	r := New(store, nil, Options{})

	def := definition(t, `[{"name":"users","type":"auth","fields":[{"name":"name","type":"text","required":true}]}]`)
	report := r.Reconcile(context.Background(), def)

	require.Len(t, report.Results, 1)
	res := report.Results[0]
	assert.Equal(t, StatusPatched, res.Status)
	assert.Equal(t, []string{diff.SectionFields}, res.Sections)
	assert.Equal(t, []string{"pbc_users"}, store.updates, "patch is addressed by id")

	after := store.collections["users"]
	assert.Equal(t, []string{"id", "name", "created", "updated"}, after.FieldNames())
	name, _ := after.Field("name")
	assert.True(t, name.Required.Or(false))
	assert.Equal(t, "u_name", name.ID)

	var removed []string
	for _, c := range res.Changes {
		if c.Action == diff.ActionRemove {
			removed = append(removed, c.Name)
		}
	}
	assert.Equal(t, []string{"extra"}, removed)
}

func TestReconcile_SecondRunIsUpToDate(t *testing.T) {
	store := newMemStore(decode(t, usersRemote))
	r := New(store, nil, Options{})

	def := definition(t, `[
		{"name":"users","type":"auth","fields":[
			{"name":"name","type":"text","required":true},
			{"name":"extra","type":"text"},
			{"name":"avatar","type":"file","maxSelect":1,"maxSize":5242880,"mimeTypes":["image/png"]}
		],
		"indexes":["CREATE INDEX `+"`idx_a`"+` ON `+"`users`"+` (`+"`x`"+`, `+"`y`"+`)"],
		"createRule":"@request.headers.x_webhook_secret = \"s\""},
		{"name":"orders","type":"base","fields":[{"name":"total","type":"number"}]}
	]`)

	first := r.Reconcile(context.Background(), def)
	assert.Equal(t, StatusPatched, first.Results[0].Status)
	assert.Equal(t, []string{diff.SectionFields, "createRule", diff.SectionIndexes}, first.Results[0].Sections)
	assert.Equal(t, StatusCreated, first.Results[1].Status)

	second := r.Reconcile(context.Background(), def)
	for _, res := range second.Results {
		assert.Equal(t, StatusUpToDate, res.Status, res.Collection)
	}
	assert.Len(t, store.updates, 1)
	assert.Equal(t, 1, store.creates)
}

func TestReconcile_IndexRedeclare(t *testing.T) {
	store := newMemStore(decode(t, usersRemote))
	r := New(store, nil, Options{Reserved: []string{"id", "created", "updated", "name", "extra"}})

	def := definition(t, `[{"name":"users","type":"auth","fields":[],
		"indexes":["CREATE INDEX `+"`idx_a`"+` ON `+"`users`"+` (`+"`x`"+`, `+"`y`"+`)"]}]`)
	report := r.Reconcile(context.Background(), def)

	res := report.Results[0]
	assert.Equal(t, StatusPatched, res.Status)
	assert.Equal(t, []string{diff.SectionIndexes}, res.Sections)
	assert.Equal(t, []string{"CREATE INDEX `idx_a` ON `users` (`x`, `y`)"}, store.collections["users"].Indexes)
}

func TestReconcile_PartialRules(t *testing.T) {
	ms := new(mockStore)
	existing := decode(t, usersRemote)
	ms.On("GetCollection", mock.Anything, "users").Return(existing, nil)
	ms.On("UpdateCollection", mock.Anything, "pbc_users", mock.MatchedBy(func(p diff.Patch) bool {
		return len(p.Sections()) == 1 && p.Sections()[0] == "createRule"
	})).Return(existing, nil)

	r := New(ms, nil, Options{Reserved: []string{"id", "name", "extra", "created", "updated"}})
	def := definition(t, `[{"name":"users","type":"auth","fields":[],"createRule":"@request.auth.id != ''"}]`)
	report := r.Reconcile(context.Background(), def)

	assert.Equal(t, StatusPatched, report.Results[0].Status)
	assert.Equal(t, []string{"createRule"}, report.Results[0].Sections)
	ms.AssertExpectations(t)
}

func TestReconcile_UpToDateIssuesNoWrite(t *testing.T) {
	ms := new(mockStore)
	existing := decode(t, usersRemote)
	ms.On("GetCollection", mock.Anything, "users").Return(existing, nil)

	r := New(ms, nil, Options{})
	report := r.Reconcile(context.Background(), schema.Definition{existing})

	assert.Equal(t, StatusUpToDate, report.Results[0].Status)
	ms.AssertNotCalled(t, "UpdateCollection", mock.Anything, mock.Anything, mock.Anything)
	ms.AssertNotCalled(t, "CreateCollection", mock.Anything, mock.Anything)
}

func TestReconcile_FailuresDoNotHaltRun(t *testing.T) {
	store := newMemStore(decode(t, usersRemote))
	store.failUpdate["users"] = &pocketbase.APIError{Status: http.StatusBadRequest, Message: "Failed to update collection."}
	store.failCreate["bad"] = &pocketbase.APIError{Status: http.StatusBadRequest, Message: "Failed to create collection."}
	r := New(store, nil, Options{})

	def := definition(t, `[
		{"name":"bad","fields":[]},
		{"name":"users","type":"auth","fields":[{"name":"name","type":"text","required":true}]},
		{"name":"good","fields":[]}
	]`)
	report := r.Reconcile(context.Background(), def)

	require.Len(t, report.Results, 3)
	assert.Equal(t, []string{"bad", "users", "good"}, []string{report.Results[0].Collection, report.Results[1].Collection, report.Results[2].Collection})
	assert.Equal(t, StatusFailed, report.Results[0].Status)
	assert.Equal(t, http.StatusBadRequest, report.Results[0].StatusCode)
	assert.Equal(t, StatusFailed, report.Results[1].Status)
	assert.Contains(t, report.Results[1].Error, "Failed to update collection.")
	assert.Equal(t, StatusCreated, report.Results[2].Status)
	assert.Equal(t, 2, report.Failed())
	assert.Equal(t, 1, report.Summary()[StatusCreated])
}

func TestReconcile_LookupFailureAttemptsCreate(t *testing.T) {
	store := newMemStore()
	store.failLookup["flaky"] = errors.New("connection reset")
	r := New(store, nil, Options{})

	action := r.PlanCollection(context.Background(), schema.Collection{Name: "flaky"})
	assert.Equal(t, ActionCreate, action.Type)
	assert.Contains(t, action.Reason, "connection reset")

	res := r.ApplyAction(context.Background(), action)
	assert.Equal(t, StatusCreated, res.Status)
	assert.Equal(t, 1, store.creates)
}

func TestReconcile_DryRun(t *testing.T) {
	ms := new(mockStore)
	ms.On("GetCollection", mock.Anything, "users").Return(decode(t, usersRemote), nil)
	ms.On("GetCollection", mock.Anything, "orders").Return(schema.Collection{}, pocketbase.ErrNotFound)

	r := New(ms, nil, Options{})
	def := definition(t, `[
		{"name":"users","type":"auth","fields":[{"name":"name","type":"text","required":true}]},
		{"name":"orders","fields":[]}
	]`)
	report := r.DryRun(context.Background(), def)

	assert.True(t, report.DryRun)
	assert.Equal(t, StatusWouldPatch, report.Results[0].Status)
	assert.NotEmpty(t, report.Results[0].Changes)
	assert.Equal(t, StatusWouldCreate, report.Results[1].Status)
	ms.AssertNotCalled(t, "UpdateCollection", mock.Anything, mock.Anything, mock.Anything)
	ms.AssertNotCalled(t, "CreateCollection", mock.Anything, mock.Anything)

	dry := New(ms, nil, Options{DryRun: true})
	assert.True(t, dry.Reconcile(context.Background(), def).DryRun)
}

func TestReconcile_CanceledContext(t *testing.T) {
	store := newMemStore()
	r := New(store, nil, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report := r.Reconcile(ctx, definition(t, `[{"name":"a","fields":[]},{"name":"b","fields":[]}]`))

	assert.Equal(t, 2, report.Failed())
	assert.Zero(t, store.creates)
}
