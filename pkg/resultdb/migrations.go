package resultdb

import (
	"github.com/BurntSushi/migration"
	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
)

func Migrations(log logs.Log) []migration.Migrator {
	migs := []migration.Migrator{}
	idx := 0

	migs = append(migs, dbh.MakeMigrationFromSQL(log, &idx,
		`
		CREATE TABLE run(
			id INTEGER PRIMARY KEY,
			created_at INT NOT NULL,
			detector TEXT NOT NULL,
			description TEXT,
			images INT NOT NULL,
			config BLOB
		);

		CREATE TABLE batch_result(
			id INTEGER PRIMARY KEY,
			run_id INT NOT NULL,
			batch_size INT NOT NULL,
			batches INT NOT NULL,
			images INT NOT NULL,
			mean_per_image INT NOT NULL,
			std_dev_per_image INT NOT NULL,
			mean_per_batch INT NOT NULL,
			error TEXT
		);

		CREATE TABLE trial(
			id INTEGER PRIMARY KEY,
			batch_result_id INT NOT NULL,
			trial INT NOT NULL,
			elapsed INT NOT NULL,
			batches INT NOT NULL,
			images INT NOT NULL,
			per_image INT NOT NULL,
			per_batch INT NOT NULL,
			detections INT NOT NULL
		);
	`))

	migs = append(migs, dbh.MakeMigrationFromSQL(log, &idx,
		`
		CREATE INDEX idx_batch_result_run_id ON batch_result(run_id);
		CREATE INDEX idx_trial_batch_result_id ON trial(batch_result_id);
	`))

	return migs
}
