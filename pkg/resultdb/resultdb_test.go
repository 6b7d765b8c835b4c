package resultdb

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/detbench/pkg/bench"
	"github.com/cyclopcam/detbench/pkg/nn"
	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
)

const testDBFile = "test-resultdb.sqlite"

func removeTestDB() {
	os.Remove(testDBFile)
	os.Remove(testDBFile + "-shm")
	os.Remove(testDBFile + "-wal")
}

func createTestDB(t *testing.T) *ResultDB {
	removeTestDB()
	db, err := NewResultDB(logs.NewTestingLog(t), testDBFile)
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
		removeTestDB()
	})
	return db
}

func sampleResults() []bench.Result {
	return []bench.Result{
		{
			BatchSize: 1,
			Batches:   4,
			Images:    4,
			Trials: []bench.TrialRecord{
				{Trial: 0, Elapsed: 40 * time.Millisecond, Batches: 4, Images: 4, PerImage: 10 * time.Millisecond, PerBatch: 10 * time.Millisecond, Detections: 7},
				{Trial: 1, Elapsed: 48 * time.Millisecond, Batches: 4, Images: 4, PerImage: 12 * time.Millisecond, PerBatch: 12 * time.Millisecond, Detections: 7},
			},
			MeanPerImage:   11 * time.Millisecond,
			StdDevPerImage: time.Millisecond,
			MeanPerBatch:   11 * time.Millisecond,
		},
		{
			BatchSize: 8,
			Trials:    []bench.TrialRecord{},
		},
		{
			BatchSize: 2,
			Batches:   2,
			Images:    4,
			Trials:    []bench.TrialRecord{},
			Error:     "batch size 2, trial 0, batch 1: detector failure",
		},
	}
}

func sampleRun() *Run {
	return &Run{
		Detector:    "simulated",
		Description: "unit test",
		Images:      4,
		Config: &dbh.JSONField[RunConfigJSON]{
			Data: RunConfigJSON{
				Bench:     bench.Config{BatchSizes: []int{1, 8, 2}, Trials: 2, Postprocess: true},
				Detection: *nn.NewDetectionParams(),
			},
		},
	}
}

func TestSaveAndGetRun(t *testing.T) {
	db := createTestDB(t)

	run := sampleRun()
	results := sampleResults()
	require.NoError(t, db.SaveRun(run, results))
	require.NotEqual(t, int64(0), run.ID)
	require.False(t, run.CreatedAt.IsZero())
	require.Len(t, run.BatchResults, 3)

	loaded, err := db.GetRun(run.ID)
	require.NoError(t, err)
	require.Equal(t, "simulated", loaded.Detector)
	require.Equal(t, "unit test", loaded.Description)
	require.Equal(t, 4, loaded.Images)
	require.Equal(t, []int{1, 8, 2}, loaded.Config.Data.Bench.BatchSizes)
	require.Equal(t, float32(0.3), loaded.Config.Data.Detection.NmsIouThreshold)
	require.Len(t, loaded.BatchResults, 3)

	for i, br := range loaded.BatchResults {
		require.Equal(t, results[i], br.ToBenchResult())
	}
	require.Equal(t, 11*time.Millisecond, loaded.BatchResults[0].MeanPerImage)
	require.Len(t, loaded.BatchResults[0].Trials, 2)
	require.Equal(t, 48*time.Millisecond, loaded.BatchResults[0].Trials[1].Elapsed)
	require.Contains(t, loaded.BatchResults[2].Error, "detector failure")

	_, err = db.GetRun(run.ID + 100)
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestListRuns(t *testing.T) {
	db := createTestDB(t)

	runs, err := db.ListRuns()
	require.NoError(t, err)
	require.Empty(t, runs)

	first := sampleRun()
	require.NoError(t, db.SaveRun(first, sampleResults()))
	second := sampleRun()
	second.Description = "second"
	require.NoError(t, db.SaveRun(second, nil))

	runs, err = db.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, second.ID, runs[0].ID)
	require.Equal(t, first.ID, runs[1].ID)
	require.Empty(t, runs[0].BatchResults)

	// A run without results
	loaded, err := db.GetRun(second.ID)
	require.NoError(t, err)
	require.Empty(t, loaded.BatchResults)
}

func TestReopen(t *testing.T) {
	db := createTestDB(t)
	run := sampleRun()
	require.NoError(t, db.SaveRun(run, sampleResults()))
	require.NoError(t, db.Close())

	// Migrations must not run twice
	db2, err := NewResultDB(logs.NewTestingLog(t), testDBFile)
	require.NoError(t, err)
	defer db2.Close()
	loaded, err := db2.GetRun(run.ID)
	require.NoError(t, err)
	require.Len(t, loaded.BatchResults, 3)
}
