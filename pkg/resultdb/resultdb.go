package resultdb

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/detbench/pkg/bench"
	"github.com/cyclopcam/logs"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("Not found")

// ResultDB stores benchmark runs in sqlite
type ResultDB struct {
	Log logs.Log
	DB  *gorm.DB
}

// Open or create a result DB
func NewResultDB(logger logs.Log, dbFilename string) (*ResultDB, error) {
	os.MkdirAll(filepath.Dir(dbFilename), 0777)
	resultDB, err := dbh.OpenDB(logger, dbh.MakeSqliteConfig(dbFilename), Migrations(logger), 0)
	if err != nil {
		return nil, fmt.Errorf("Failed to open database %v: %w", dbFilename, err)
	}
	return &ResultDB{
		Log: logger,
		DB:  resultDB,
	}, nil
}

func (r *ResultDB) Close() error {
	db, err := r.DB.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

// SaveRun inserts 'run', along with all of its results, in a single transaction.
// On success, run.ID is populated. If run.CreatedAt is zero, it is set to the current time.
// Results of batch sizes that failed are saved too, with their error message.
func (r *ResultDB) SaveRun(run *Run, results []bench.Result) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = dbh.MakeIntTime(time.Now())
	}
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(run).Error; err != nil {
			return err
		}
		run.BatchResults = nil
		for i := range results {
			br := makeBatchResult(run.ID, &results[i])
			if err := tx.Create(br).Error; err != nil {
				return err
			}
			for j := range results[i].Trials {
				trial := makeTrial(br.ID, &results[i].Trials[j])
				if err := tx.Create(trial).Error; err != nil {
					return err
				}
				br.Trials = append(br.Trials, trial)
			}
			run.BatchResults = append(run.BatchResults, br)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("Failed to save run: %w", err)
	}
	r.Log.Infof("Saved run %v with %v batch sizes", run.ID, len(results))
	return nil
}

// ListRuns returns all runs, newest first, without their results
func (r *ResultDB) ListRuns() ([]Run, error) {
	runs := []Run{}
	if err := r.DB.Order("id DESC").Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

// GetRun returns a run, along with its batch results and their trials.
// Returns ErrNotFound if the run does not exist.
func (r *ResultDB) GetRun(id int64) (*Run, error) {
	run := Run{}
	if err := r.DB.First(&run, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: run %v", ErrNotFound, id)
		}
		return nil, err
	}
	if err := r.DB.Where("run_id = ?", id).Order("id").Find(&run.BatchResults).Error; err != nil {
		return nil, err
	}
	if len(run.BatchResults) == 0 {
		return &run, nil
	}

	ids := []int64{}
	byID := map[int64]*BatchResult{}
	for _, br := range run.BatchResults {
		ids = append(ids, br.ID)
		byID[br.ID] = br
	}
	trials := []*Trial{}
	if err := r.DB.Where("batch_result_id IN ?", ids).Order("batch_result_id, trial").Find(&trials).Error; err != nil {
		return nil, err
	}
	for _, t := range trials {
		br := byID[t.BatchResultID]
		br.Trials = append(br.Trials, t)
	}
	return &run, nil
}
