package checks

import (
	"context"
	"errors"
	"testing"

	"schema-manager/core/database"
	"schema-manager/core/schema"
	"schema-manager/core/storage/mocks"
	"schema-manager/feature/schema/history"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRemote struct {
	authErr     error
	listErr     error
	collections []schema.Collection
}

func (f fakeRemote) Authenticate(ctx context.Context) error { return f.authErr }

func (f fakeRemote) ListCollections(ctx context.Context) ([]schema.Collection, error) {
	return f.collections, f.listErr
}

func TestCheckRemote(t *testing.T) {
	ctx := context.Background()
	remote := fakeRemote{collections: []schema.Collection{{Name: "users"}, {Name: "products"}}}

	report, err := CheckRemote(ctx, remote, []string{"users", "orders", "products"})
	require.NoError(t, err)
	assert.True(t, report.Reachable)
	assert.Equal(t, 2, report.Collections)
	assert.Equal(t, []string{"orders"}, report.Missing)

	report, err = CheckRemote(ctx, fakeRemote{authErr: errors.New("bad credentials")}, nil)
	assert.Error(t, err)
	assert.False(t, report.Reachable)
	assert.Equal(t, "bad credentials", report.Error)

	report, err = CheckRemote(ctx, fakeRemote{listErr: errors.New("timeout")}, nil)
	assert.Error(t, err)
	assert.False(t, report.Reachable)
}

func TestCheckStorage(t *testing.T) {
	ctx := context.Background()

	t.Run("Missing Bucket", func(t *testing.T) {
		m := new(mocks.Client)
		m.On("BucketExists", ctx, "snapshots-bucket").Return(false, nil)

		report, err := CheckStorage(ctx, m, "snapshots-bucket", "snapshots")
		require.NoError(t, err)
		assert.False(t, report.Exists)
		m.AssertNotCalled(t, "ListObjects", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Counts Snapshots", func(t *testing.T) {
		m := new(mocks.Client)
		m.On("BucketExists", ctx, "snapshots-bucket").Return(true, nil)
		ch := make(chan minio.ObjectInfo, 3)
		ch <- minio.ObjectInfo{Key: "snapshots/a.json"}
		ch <- minio.ObjectInfo{Key: "snapshots/b.json"}
		ch <- minio.ObjectInfo{Key: "snapshots/notes.txt"}
		close(ch)
		m.On("ListObjects", ctx, "snapshots-bucket", minio.ListObjectsOptions{Prefix: "snapshots/", Recursive: true}).
			Return((<-chan minio.ObjectInfo)(ch))

		report, err := CheckStorage(ctx, m, "snapshots-bucket", "/snapshots/")
		require.NoError(t, err)
		assert.True(t, report.Exists)
		assert.Equal(t, 2, report.Snapshots)
	})

	t.Run("Error", func(t *testing.T) {
		m := new(mocks.Client)
		m.On("BucketExists", ctx, "snapshots-bucket").Return(false, errors.New("denied"))

		_, err := CheckStorage(ctx, m, "snapshots-bucket", "")
		assert.Error(t, err)
	})
}

func TestFixStorage(t *testing.T) {
	ctx := context.Background()
	m := new(mocks.Client)
	m.On("BucketExists", ctx, "snapshots-bucket").Return(false, nil)
	m.On("MakeBucket", ctx, "snapshots-bucket", minio.MakeBucketOptions{Region: "us-east-1"}).Return(nil)

	require.NoError(t, FixStorage(ctx, m, "snapshots-bucket", "us-east-1", zap.NewNop()))
	m.AssertExpectations(t)
}

func TestCheckHistory(t *testing.T) {
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)

	_, err = CheckHistory(nil)
	assert.Error(t, err)

	report, err := CheckHistory(db, history.Run{}, history.RunCollection{})
	require.NoError(t, err)
	assert.False(t, report.Matched, "tables do not exist yet")
	assert.Equal(t, "error", report.Tables["schema_runs"].Status)
	assert.Contains(t, report.Tables["schema_runs"].MissingColumns, "run_id")

	require.NoError(t, history.NewRepository(db).Migrate(context.Background()))

	report, err = CheckHistory(db, history.Run{}, &history.RunCollection{})
	require.NoError(t, err)
	assert.True(t, report.Matched)
	assert.Equal(t, "sqlite", report.Driver)
	assert.Equal(t, "ok", report.Tables["schema_run_collections"].Status)
}

func TestCheckHistory_NoTableName(t *testing.T) {
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)

	type orphan struct {
		ID int `gorm:"column:id"`
	}
	_, err = CheckHistory(db, orphan{})
	assert.Error(t, err)
}
