package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"schema-manager/core/database"
	"schema-manager/core/reconcile"
	"schema-manager/core/schema/diff"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}

	dialector := mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	})
	gormDB, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening gorm database", err)
	}

	return gormDB, mock
}

func setupSQLite(t *testing.T) *Repository {
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	repo := NewRepository(db)
	require.NoError(t, repo.Migrate(context.Background()))
	return repo
}

func sampleReport(id string, started time.Time) *reconcile.Report {
	return &reconcile.Report{
		RunID:      id,
		Kind:       "reconcile",
		StartedAt:  started,
		FinishedAt: started.Add(2 * time.Second),
		Results: []reconcile.Result{
			{Collection: "users", Status: reconcile.StatusCreated},
			{
				Collection: "products",
				Status:     reconcile.StatusPatched,
				Sections:   []string{"fields", "indexes"},
				Changes: []diff.Change{
					{Section: diff.SectionFields, Action: diff.ActionRemove, Name: "legacy"},
					{Section: diff.SectionIndexes, Action: diff.ActionAdd, Name: "idx_sku"},
				},
			},
			{Collection: "orders", Status: reconcile.StatusFailed, StatusCode: 400, Error: "Failed to update collection."},
		},
	}
}

func TestRepository_SaveAndGet(t *testing.T) {
	repo := setupSQLite(t)
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Save(ctx, sampleReport("run-1", started)))

	run, err := repo.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "reconcile", run.Kind)
	assert.Equal(t, 3, run.Total)
	assert.Equal(t, 1, run.Failed)
	require.Len(t, run.Collections, 3)

	names := []string{run.Collections[0].Collection, run.Collections[1].Collection, run.Collections[2].Collection}
	assert.Equal(t, []string{"users", "products", "orders"}, names)

	products := run.Collections[1].Result()
	assert.Equal(t, reconcile.StatusPatched, products.Status)
	assert.Equal(t, []string{"fields", "indexes"}, products.Sections)
	require.Len(t, products.Changes, 2)
	assert.Equal(t, "legacy", products.Changes[0].Name)

	orders := run.Collections[2].Result()
	assert.Equal(t, 400, orders.StatusCode)
	assert.Equal(t, "Failed to update collection.", orders.Error)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestRepository_List(t *testing.T) {
	repo := setupSQLite(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Save(ctx, sampleReport(id, base.Add(time.Duration(i)*time.Minute))))
	}

	runs, err := repo.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].RunID)
	assert.Equal(t, "b", runs[1].RunID)
	assert.Empty(t, runs[0].Collections)

	all, err := repo.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRepository_SaveDuplicateRunID(t *testing.T) {
	repo := setupSQLite(t)
	ctx := context.Background()
	report := sampleReport("dup", time.Now())

	require.NoError(t, repo.Save(ctx, report))
	assert.Error(t, repo.Save(ctx, report))
}

func TestRepository_SaveError(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `schema_runs`").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := repo.Save(context.Background(), sampleReport("run-x", time.Now()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run-x")
	assert.Contains(t, err.Error(), "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ListError(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewRepository(db)

	mock.ExpectQuery("SELECT \\* FROM `schema_runs`").WillReturnError(errors.New("connection reset"))

	_, err := repo.List(context.Background(), 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFromReport_DryRun(t *testing.T) {
	report := &reconcile.Report{
		RunID:  "dry",
		Kind:   "reconcile",
		DryRun: true,
		Results: []reconcile.Result{
			{Collection: "users", Status: reconcile.StatusWouldCreate},
		},
	}

	run := FromReport(report)
	assert.True(t, run.DryRun)
	assert.Equal(t, 0, run.Failed)
	require.Len(t, run.Collections, 1)
	assert.Equal(t, "dry", run.Collections[0].RunID)
	assert.Empty(t, run.Collections[0].Changes)
}
