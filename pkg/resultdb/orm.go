package resultdb

import (
	"time"

	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/detbench/pkg/bench"
	"github.com/cyclopcam/detbench/pkg/nn"
)

// BaseModel is our base class for a GORM model.
// The default GORM Model uses int, but we prefer int64
type BaseModel struct {
	ID int64 `gorm:"primaryKey" json:"id"`
}

// A Run is one invocation of the benchmark, over all of its batch sizes
type Run struct {
	BaseModel
	CreatedAt    dbh.IntTime                   `json:"createdAt"`
	Detector     string                        `json:"detector"`    // eg "simulated"
	Description  string                        `json:"description"` // Free text, such as the image folder
	Images       int                           `json:"images"`      // Number of images that were loaded
	Config       *dbh.JSONField[RunConfigJSON] `json:"config"`
	BatchResults []*BatchResult                `gorm:"-" json:"batchResults,omitempty"` // Only populated by GetRun
}

// RunConfigJSON is stored as JSON inside Run
type RunConfigJSON struct {
	Bench     bench.Config       `json:"bench"`
	Detection nn.DetectionParams `json:"detection"`
}

// Durations are stored as integer nanoseconds
type BatchResult struct {
	BaseModel
	RunID          int64         `json:"runId"`
	BatchSize      int           `json:"batchSize"`
	Batches        int           `json:"batches"`
	Images         int           `json:"images"`
	MeanPerImage   time.Duration `json:"meanPerImage"`
	StdDevPerImage time.Duration `json:"stdDevPerImage"`
	MeanPerBatch   time.Duration `json:"meanPerBatch"`
	Error          string        `json:"error,omitempty"`
	Trials         []*Trial      `gorm:"-" json:"trials,omitempty"`
}

type Trial struct {
	BaseModel
	BatchResultID int64         `json:"batchResultId"`
	Trial         int           `json:"trial"`
	Elapsed       time.Duration `json:"elapsed"`
	Batches       int           `json:"batches"`
	Images        int           `json:"images"`
	PerImage      time.Duration `json:"perImage"`
	PerBatch      time.Duration `json:"perBatch"`
	Detections    int           `json:"detections"`
}

func makeBatchResult(runID int64, r *bench.Result) *BatchResult {
	return &BatchResult{
		RunID:          runID,
		BatchSize:      r.BatchSize,
		Batches:        r.Batches,
		Images:         r.Images,
		MeanPerImage:   r.MeanPerImage,
		StdDevPerImage: r.StdDevPerImage,
		MeanPerBatch:   r.MeanPerBatch,
		Error:          r.Error,
	}
}

func makeTrial(batchResultID int64, t *bench.TrialRecord) *Trial {
	return &Trial{
		BatchResultID: batchResultID,
		Trial:         t.Trial,
		Elapsed:       t.Elapsed,
		Batches:       t.Batches,
		Images:        t.Images,
		PerImage:      t.PerImage,
		PerBatch:      t.PerBatch,
		Detections:    t.Detections,
	}
}

// ToBenchResult converts a stored batch result (and its trials, if loaded) back into a bench.Result
func (b *BatchResult) ToBenchResult() bench.Result {
	r := bench.Result{
		BatchSize:      b.BatchSize,
		Batches:        b.Batches,
		Images:         b.Images,
		Trials:         []bench.TrialRecord{},
		MeanPerImage:   b.MeanPerImage,
		StdDevPerImage: b.StdDevPerImage,
		MeanPerBatch:   b.MeanPerBatch,
		Error:          b.Error,
	}
	for _, t := range b.Trials {
		r.Trials = append(r.Trials, bench.TrialRecord{
			Trial:      t.Trial,
			Elapsed:    t.Elapsed,
			Batches:    t.Batches,
			Images:     t.Images,
			PerImage:   t.PerImage,
			PerBatch:   t.PerBatch,
			Detections: t.Detections,
		})
	}
	return r
}
