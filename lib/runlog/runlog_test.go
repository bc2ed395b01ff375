package runlog

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func TestLog(t *testing.T) {
	sqlite, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	log, err := NewLog(sqlite)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	{
		runs, err := log.List(ctx)
		if err != nil {
			t.Fatal(err)
		}
		require.Len(t, runs, 0)
	}
	{
		base := time.Unix(1735689600, 0)
		err := log.Append(ctx, Run{
			Board:        "upstart",
			SnapshotDate: "2099-01-01",
			PartPath:     "data/raw/snapshot_date=2099-01-01/part-000.parquet",
			RecordCount:  42,
			StartedAt:    base,
			Duration:     90 * time.Second,
		})
		if err != nil {
			t.Fatal(err)
		}
		err = log.Append(ctx, Run{
			Board:        "upstart",
			SnapshotDate: "2099-01-02",
			PartPath:     "data/raw/snapshot_date=2099-01-02/part-000.parquet",
			RecordCount:  45,
			StartedAt:    base.Add(24 * time.Hour),
			Duration:     80 * time.Second,
		})
		if err != nil {
			t.Fatal(err)
		}

		runs, err := log.List(ctx)
		if err != nil {
			t.Fatal(err)
		}
		require.Len(t, runs, 2)
		// newest first
		require.Equal(t, "2099-01-02", runs[0].SnapshotDate)
		require.EqualValues(t, 45, runs[0].RecordCount)
		require.Equal(t, 80*time.Second, runs[0].Duration)
		require.Equal(t, "2099-01-01", runs[1].SnapshotDate)
	}
}
