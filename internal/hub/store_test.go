package hub

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BotBlake/jellybench/pkg/models"
)

// Helper function to create test database
func newTestDB(t *testing.T) *DB {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	db, err := OpenDB(dbPath)
	require.NoError(t, err)

	err = db.Migrate(context.Background())
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func testRecord(id string, receivedAt time.Time) *models.SubmissionRecord {
	return &models.SubmissionRecord{
		ID:         id,
		Token:      "tok-" + id,
		ReceivedAt: receivedAt,
		Report: &models.BenchmarkReport{
			SchemaVersion: models.SchemaVersion,
			Hardware: models.HardwareInfo{
				CPUModel: "AMD Ryzen 9 5950X",
				OS:       "linux",
				Arch:     "amd64",
			},
			Results: []models.CapacityResult{
				{
					Path:                 models.PathCPU,
					MaxConcurrentStreams: 4,
					Batches: []models.BatchSummary{
						{Workers: 1, Passed: true, Stats: models.BatchStats{MinFactor: 2.1, MedianFactor: 2.1, MaxFactor: 2.1}},
					},
				},
			},
		},
	}
}

func TestStore_CreateAndGet(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	record := testRecord("sub-001", time.Now().UTC())
	require.NoError(t, store.Create(ctx, record))

	retrieved, err := store.Get(ctx, "sub-001")
	require.NoError(t, err)
	assert.Equal(t, record.ID, retrieved.ID)
	assert.Equal(t, record.Token, retrieved.Token)
	require.NotNil(t, retrieved.Report)
	assert.Equal(t, "AMD Ryzen 9 5950X", retrieved.Report.Hardware.CPUModel)
	require.Len(t, retrieved.Report.Results, 1)
	assert.Equal(t, 4, retrieved.Report.Results[0].MaxConcurrentStreams)
}

func TestStore_Get_NotFound(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	_, err := store.Get(ctx, "nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_List_NewestFirst(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, store.Create(ctx, testRecord("sub-old", base.Add(-2*time.Hour))))
	require.NoError(t, store.Create(ctx, testRecord("sub-new", base)))
	require.NoError(t, store.Create(ctx, testRecord("sub-mid", base.Add(-time.Hour))))

	records, err := store.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "sub-new", records[0].ID)
	assert.Equal(t, "sub-mid", records[1].ID)
	assert.Equal(t, "sub-old", records[2].ID)
}

func TestStore_List_Limit(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	base := time.Now().UTC()
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Create(ctx, testRecord(id, base.Add(time.Duration(i)*time.Minute))))
	}

	records, err := store.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestStore_Count(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	require.NoError(t, store.Create(ctx, testRecord("sub-1", time.Now().UTC())))
	require.NoError(t, store.Create(ctx, testRecord("sub-2", time.Now().UTC())))

	count, err = store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestStore_Create_DuplicateID(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	record := testRecord("sub-dup", time.Now().UTC())
	require.NoError(t, store.Create(ctx, record))
	assert.Error(t, store.Create(ctx, record))
}
