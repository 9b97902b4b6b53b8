package database

// SQL schemas for all ClickHouse tables

const (
	// ObservationsTableSQL creates the thermal_observations table, an
	// alternative training source to the CSV export
	ObservationsTableSQL = `
		CREATE TABLE IF NOT EXISTS thermal_observations (
			timestamp DateTime64(3),
			import_id UUID,
			row_number UInt32,
			bmi Nullable(Float64),
			mean_sa02 Nullable(Float64),
			hrv_sdnn Nullable(Float64),
			hr_mean Nullable(Float64),
			gender Nullable(String),
			age Nullable(Float64),
			temp_median Nullable(Float64)
		) ENGINE = MergeTree()
		ORDER BY (timestamp, import_id, row_number)
		PARTITION BY toYYYYMM(timestamp)
	`

	// PredictionsTableSQL creates the thermal_predictions table
	PredictionsTableSQL = `
		CREATE TABLE IF NOT EXISTS thermal_predictions (
			timestamp DateTime64(3),
			model_type String,
			feature_set String,
			hr_mean Float64,
			hrv_sdnn Float64,
			bmi Float64,
			mean_sa02 Float64,
			gender String,
			age Float64,
			temperature Float64,
			category LowCardinality(String),
			latency_ms Float64
		) ENGINE = MergeTree()
		ORDER BY (feature_set, timestamp)
		PARTITION BY toYYYYMM(timestamp)
	`

	// TrainingRunsTableSQL creates the thermal_training_runs table
	TrainingRunsTableSQL = `
		CREATE TABLE IF NOT EXISTS thermal_training_runs (
			timestamp DateTime64(3),
			run_id String,
			kind LowCardinality(String),
			feature_set String,
			model_type String,
			train_rows UInt32,
			test_rows UInt32,
			metrics Map(String, Float64),
			artifact_path String
		) ENGINE = MergeTree()
		ORDER BY (feature_set, timestamp)
	`
)

// AllTables returns all table creation SQL statements
func AllTables() []string {
	return []string{
		ObservationsTableSQL,
		PredictionsTableSQL,
		TrainingRunsTableSQL,
	}
}
