package snapstore

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"hirewatch-backend/lib/jobtable"
	"hirewatch-backend/lib/telemetry"

	"github.com/stretchr/testify/require"
)

func testBatch(date string, ids ...string) []jobtable.Record {
	batch := make([]jobtable.Record, 0, len(ids))
	for _, id := range ids {
		batch = append(batch, jobtable.Record{
			"job_id":        id,
			"snapshot_date": date,
			"title":         "Engineer " + id,
		})
	}
	return batch
}

func TestWriteSnapshotDedupesBatch(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:snapstore")
	defer cleanup()

	store := NewRawStore(t.TempDir())
	batch := testBatch("2099-01-01", "1", "2", "1")

	path, err := store.WriteSnapshot(context.Background(), batch)
	require.NoError(t, err)
	require.Equal(t, ".parquet", filepath.Ext(path))

	recs, err := readPart(path)
	require.NoError(t, err)
	require.Len(t, recs, 2)
}

func TestWriteSnapshotAppendsParts(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:snapstore")
	defer cleanup()

	store := NewRawStore(t.TempDir())
	ctx := context.Background()

	first, err := store.WriteSnapshot(ctx, testBatch("2099-01-01", "1"))
	require.NoError(t, err)
	second, err := store.WriteSnapshot(ctx, testBatch("2099-01-01", "2"))
	require.NoError(t, err)

	require.Equal(t, "part-000.parquet", filepath.Base(first))
	require.Equal(t, "part-001.parquet", filepath.Base(second))
	require.FileExists(t, first)
	require.FileExists(t, second)

	tbl, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, tbl.Rows, 2)
}

func TestLoadKeepsOverlappingJobsAcrossDates(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:snapstore")
	defer cleanup()

	store := NewRawStore(t.TempDir())
	ctx := context.Background()

	_, err := store.WriteSnapshot(ctx, testBatch("2099-01-01", "1", "2"))
	require.NoError(t, err)
	_, err = store.WriteSnapshot(ctx, testBatch("2099-01-02", "1", "2"))
	require.NoError(t, err)

	tbl, err := store.Load(ctx)
	require.NoError(t, err)
	// same job on two dates is two distinct observations
	require.Len(t, tbl.Rows, 4)
}

func TestLoadDedupesRedundantParts(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:snapstore")
	defer cleanup()

	store := NewRawStore(t.TempDir())
	ctx := context.Background()

	_, err := store.WriteSnapshot(ctx, testBatch("2099-01-01", "1", "2"))
	require.NoError(t, err)
	_, err = store.WriteSnapshot(ctx, testBatch("2099-01-01", "2", "3"))
	require.NoError(t, err)

	tbl, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, tbl.Rows, 3)
}

func TestLoadMissingRoot(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:snapstore")
	defer cleanup()

	root := filepath.Join(t.TempDir(), "does-not-exist")

	tbl, err := NewRawStore(root).Load(context.Background())
	require.NoError(t, err)
	require.Empty(t, tbl.Rows)
	require.Equal(t, rawPlaceholderColumns, tbl.Columns)

	tbl, err = NewCleanStore(root).Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, cleanPlaceholderColumns, tbl.Columns)
}

func TestWriteSnapshotEmptyBatch(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:snapstore")
	defer cleanup()

	_, err := NewRawStore(t.TempDir()).WriteSnapshot(context.Background(), nil)
	require.ErrorIs(t, err, ErrEmptyBatch)
}

func TestLoadReadsJSONParts(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:snapstore")
	defer cleanup()

	root := t.TempDir()
	partitionDir := filepath.Join(root, "snapshot_date=2099-01-01")
	require.NoError(t, os.MkdirAll(partitionDir, 0o755))

	tbl := jobtable.New(testBatch("2099-01-01", "1", "2"))
	require.NoError(t, writeJSONPart(filepath.Join(partitionDir, "part-000.json"), tbl))

	loaded, err := NewRawStore(root).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, loaded.Rows, 2)
	require.True(t, loaded.HasColumn("title"))
}

func TestJSONPartCountsTowardNumbering(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:snapstore")
	defer cleanup()

	root := t.TempDir()
	partitionDir := filepath.Join(root, "snapshot_date=2099-01-01")
	require.NoError(t, os.MkdirAll(partitionDir, 0o755))
	tbl := jobtable.New(testBatch("2099-01-01", "1"))
	require.NoError(t, writeJSONPart(filepath.Join(partitionDir, "part-000.json"), tbl))

	path, err := NewRawStore(root).WriteSnapshot(context.Background(), testBatch("2099-01-01", "2"))
	require.NoError(t, err)
	require.Equal(t, "part-001.parquet", filepath.Base(path))
}

// captureHandler records warning messages so tests can assert that a
// part was skipped rather than silently dropped.
type captureHandler struct {
	mu       sync.Mutex
	messages []string
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, rec slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, rec.Message)
	return nil
}

func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *captureHandler) WithGroup(string) slog.Handler      { return h }

func TestLoadSkipsCorruptPart(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:snapstore")
	defer cleanup()

	root := t.TempDir()
	store := NewRawStore(root)
	ctx := context.Background()

	_, err := store.WriteSnapshot(ctx, testBatch("2099-01-01", "1", "2"))
	require.NoError(t, err)

	corruptDir := filepath.Join(root, "snapshot_date=2099-01-02")
	require.NoError(t, os.MkdirAll(corruptDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(corruptDir, "part-000.parquet"), []byte("not parquet"), 0o644))

	capture := &captureHandler{}
	store.SetLogger(slog.New(capture))

	tbl, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, tbl.Rows, 2)
	require.Contains(t, capture.messages, "skipping unreadable part")
}

func TestLoadWithoutKeyColumns(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:snapstore")
	defer cleanup()

	writeKeyless := func(root string) {
		partitionDir := filepath.Join(root, "snapshot_date=2099-01-01")
		require.NoError(t, os.MkdirAll(partitionDir, 0o755))
		tbl := jobtable.New([]jobtable.Record{
			{"title": "Engineer"},
			{"title": "Analyst"},
		})
		require.NoError(t, writeJSONPart(filepath.Join(partitionDir, "part-000.json"), tbl))
	}

	cleanRoot := t.TempDir()
	writeKeyless(cleanRoot)
	tbl, err := NewCleanStore(cleanRoot).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, tbl.Rows, 2)

	rawRoot := t.TempDir()
	writeKeyless(rawRoot)
	_, err = NewRawStore(rawRoot).Load(context.Background())
	require.Error(t, err)
}

func TestParquetRoundTripPreservesTypes(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:snapstore")
	defer cleanup()

	store := NewRawStore(t.TempDir())
	batch := []jobtable.Record{
		{
			"job_id":        "1",
			"snapshot_date": "2099-01-01",
			"title":         "Engineer",
			"salary_min":    float64(120000),
			"remote":        true,
			"departments":   []any{map[string]any{"name": "Data"}},
		},
	}

	path, err := store.WriteSnapshot(context.Background(), batch)
	require.NoError(t, err)

	recs, err := readPart(path)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	rec := recs[0]
	require.Equal(t, "1", rec["job_id"])
	require.Equal(t, "Engineer", rec["title"])
	require.Equal(t, float64(120000), rec["salary_min"])
	require.Equal(t, true, rec["remote"])
	// nested values survive as compact JSON text
	require.Equal(t, `[{"name":"Data"}]`, rec["departments"])
}
