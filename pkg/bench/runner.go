package bench

import (
	"errors"
	"fmt"
	"time"

	"github.com/cyclopcam/detbench/pkg/nn"
	"github.com/cyclopcam/detbench/pkg/perfstats"
	"github.com/cyclopcam/detbench/pkg/stats"
	"github.com/cyclopcam/logs"
)

// Config controls which batch sizes are measured, and how
type Config struct {
	BatchSizes       []int `json:"batchSizes"`       // Measured in this order
	Trials           int   `json:"trials"`           // Number of passes over the image set, per batch size
	Postprocess      bool  `json:"postprocess"`      // Run per-class NMS on the detector output (not timed)
	FilterDetections bool  `json:"filterDetections"` // Drop detections below the probability threshold
}

func (c *Config) Validate() error {
	if len(c.BatchSizes) == 0 {
		return fmt.Errorf("%w: no batch sizes", nn.ErrInvalidArgument)
	}
	for _, b := range c.BatchSizes {
		if b <= 0 {
			return fmt.Errorf("%w: batch size %v", nn.ErrInvalidArgument, b)
		}
	}
	if c.Trials <= 0 {
		return fmt.Errorf("%w: trials %v", nn.ErrInvalidArgument, c.Trials)
	}
	return nil
}

// TrialRecord is one full pass over all of the batches of a single batch size
type TrialRecord struct {
	Trial      int           `json:"trial"`
	Elapsed    time.Duration `json:"elapsed"`    // Sum of the detector-reported time of every batch
	Batches    int           `json:"batches"`    // Number of batches run
	Images     int           `json:"images"`     // Number of images run
	PerImage   time.Duration `json:"perImage"`   // Elapsed / Images
	PerBatch   time.Duration `json:"perBatch"`   // Elapsed / Batches
	Detections int           `json:"detections"` // Detections kept by post-processing, if enabled
}

// Result is the outcome of benchmarking a single batch size.
// Durations are encoded in JSON as integer nanoseconds.
type Result struct {
	BatchSize      int           `json:"batchSize"`
	Batches        int           `json:"batches"` // Batches per trial
	Images         int           `json:"images"`  // Images per trial (Batches * BatchSize)
	Trials         []TrialRecord `json:"trials"`
	MeanPerImage   time.Duration `json:"meanPerImage"`
	StdDevPerImage time.Duration `json:"stdDevPerImage"` // Population standard deviation over trials
	MeanPerBatch   time.Duration `json:"meanPerBatch"`
	Error          string        `json:"error,omitempty"`
	Err            error         `json:"-"`
}

// Empty is true when there were too few images to form a single batch
func (r *Result) Empty() bool {
	return r.Batches == 0 && r.Err == nil && r.Error == ""
}

func (r *Result) Failed() bool {
	return r.Err != nil || r.Error != ""
}

// TrialError identifies the batch during which a benchmark was aborted
type TrialError struct {
	BatchSize int
	Trial     int
	Batch     int
	Err       error
}

func (e *TrialError) Error() string {
	return fmt.Sprintf("batch size %v, trial %v, batch %v: %v", e.BatchSize, e.Trial, e.Batch, e.Err)
}

func (e *TrialError) Unwrap() error {
	return e.Err
}

// Runner measures the forward-pass latency of a Detector at various batch sizes.
// Batches are submitted one at a time, so a Runner must not be shared between goroutines.
type Runner struct {
	// If not nil, called for every post-processed image, after its batch has been timed.
	// 'image' is the index of the image within the trial.
	OnDetections func(batchSize, trial, image int, set nn.DetectionSet)

	log  logs.Log
	cfg  Config
	post *nn.Postprocessor
}

// NewRunner creates a Runner.
// 'post' may be nil if cfg.Postprocess is false.
func NewRunner(log logs.Log, cfg Config, post *nn.Postprocessor) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Postprocess && post == nil {
		return nil, fmt.Errorf("%w: post-processing is enabled, but no postprocessor was given", nn.ErrInvalidArgument)
	}
	return &Runner{
		log:  log,
		cfg:  cfg,
		post: post,
	}, nil
}

func (r *Runner) Config() Config {
	return r.cfg
}

// Run benchmarks every configured batch size, in order.
// A failure aborts only the batch size that it occurred in. The Result for that size has its
// Err set, and the remaining sizes still run. The first error encountered is returned.
func (r *Runner) Run(det nn.Detector, images []nn.ImageCrop) ([]Result, error) {
	var firstErr error
	results := make([]Result, 0, len(r.cfg.BatchSizes))
	for _, batchSize := range r.cfg.BatchSizes {
		res, err := r.RunBatchSize(det, images, batchSize)
		if err != nil {
			r.log.Errorf("Batch size %v failed: %v", batchSize, err)
			if firstErr == nil {
				firstErr = err
			}
			if res == nil {
				res = &Result{BatchSize: batchSize}
				res.setError(err)
			}
		}
		results = append(results, *res)
	}
	return results, firstErr
}

// RunBatchSize runs all trials for a single batch size.
// If there are fewer images than batchSize, then the detector is never called, and the
// returned Result is Empty.
// If the detector fails, the trial is aborted with a *TrialError. In that case the returned
// Result is still valid, holding the trials that completed, with Err set.
func (r *Runner) RunBatchSize(det nn.Detector, images []nn.ImageCrop, batchSize int) (*Result, error) {
	batches, err := MakeBatches(images, batchSize)
	if err != nil {
		return nil, err
	}
	res := &Result{
		BatchSize: batchSize,
		Batches:   len(batches),
		Images:    len(batches) * batchSize,
		Trials:    []TrialRecord{},
	}
	if len(batches) == 0 {
		r.log.Warnf("Batch size %v: only %v images, so no batches to run", batchSize, len(images))
		return res, nil
	}

	for trial := 0; trial < r.cfg.Trials; trial++ {
		rec, err := r.runTrial(det, batches, batchSize, trial)
		if err != nil {
			res.setError(err)
			return res, err
		}
		r.log.Infof("Batch size %v, trial %v: %.4f s/batch, %.4f s/image", batchSize, trial, rec.PerBatch.Seconds(), rec.PerImage.Seconds())
		res.Trials = append(res.Trials, *rec)
	}

	perImage := make([]time.Duration, len(res.Trials))
	perBatch := make([]time.Duration, len(res.Trials))
	for i, t := range res.Trials {
		perImage[i] = t.PerImage
		perBatch[i] = t.PerBatch
	}
	mean, std := stats.MeanStdDev(perfstats.Seconds(perImage))
	res.MeanPerImage = secondsToDuration(mean)
	res.StdDevPerImage = secondsToDuration(std)
	res.MeanPerBatch = secondsToDuration(stats.Mean(perfstats.Seconds(perBatch)))
	r.log.Infof("Batch size %v: mean %.4f s/image, std %.4f s/image", batchSize, mean, std)

	return res, nil
}

func (r *Runner) runTrial(det nn.Detector, batches [][]nn.ImageCrop, batchSize, trial int) (*TrialRecord, error) {
	elapsed := perfstats.TimeAccumulator{}
	detections := 0
	for i, batch := range batches {
		out, err := det.DetectBatch(batch)
		if err == nil {
			err = out.Validate(len(batch))
		} else if !errors.Is(err, nn.ErrDetectorFailure) {
			err = fmt.Errorf("%w: %w", nn.ErrDetectorFailure, err)
		}
		if err != nil {
			return nil, &TrialError{BatchSize: batchSize, Trial: trial, Batch: i, Err: err}
		}
		elapsed.AddSample(out.Elapsed)

		if r.cfg.Postprocess {
			sets, err := r.post.ProcessBatch(out, r.cfg.FilterDetections)
			if err != nil {
				return nil, &TrialError{BatchSize: batchSize, Trial: trial, Batch: i, Err: err}
			}
			for j, set := range sets {
				detections += set.Count()
				if r.OnDetections != nil {
					r.OnDetections(batchSize, trial, i*batchSize+j, set)
				}
			}
		}
	}
	nimages := len(batches) * batchSize
	return &TrialRecord{
		Trial:      trial,
		Elapsed:    elapsed.Total,
		Batches:    len(batches),
		Images:     nimages,
		PerImage:   elapsed.AveragePer(nimages),
		PerBatch:   elapsed.Average(),
		Detections: detections,
	}, nil
}

func (r *Result) setError(err error) {
	r.Err = err
	r.Error = err.Error()
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
