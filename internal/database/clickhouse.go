package database

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/google/uuid"

	"thermal-backend/internal/models"
	"thermal-backend/pkg/logger"
)

type ClickHouseDB struct {
	conn driver.Conn
}

// NewClickHouseDB connects to ClickHouse and bootstraps the schema
func NewClickHouseDB(ctx context.Context, addr, database, username, password string) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})

	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	db, err := newClickHouseDB(ctx, conn)
	if err != nil {
		return nil, err
	}
	logger.Infof("ClickHouse: connected to %s", addr)
	return db, nil
}

// newClickHouseDB pings an open connection and creates missing tables,
// closing the connection on failure
func newClickHouseDB(ctx context.Context, conn driver.Conn) (*ClickHouseDB, error) {
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	db := &ClickHouseDB{conn: conn}
	if err := db.initSchema(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return db, nil
}

func (db *ClickHouseDB) initSchema(ctx context.Context) error {
	for _, tableSQL := range AllTables() {
		if err := db.conn.Exec(ctx, tableSQL); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	logger.Info("ClickHouse: schema initialized")
	return nil
}

// SavePrediction appends one served prediction to the log
func (db *ClickHouseDB) SavePrediction(ctx context.Context, p *models.PredictionLog) error {
	query := `
		INSERT INTO thermal_predictions (
			timestamp, model_type, feature_set, hr_mean, hrv_sdnn, bmi,
			mean_sa02, gender, age, temperature, category, latency_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := db.conn.Exec(ctx, query,
		p.Timestamp, p.ModelType, p.FeatureSet, p.HRMean, p.HRVSDNN, p.BMI,
		p.MeanSpO2, p.Gender, p.Age, p.Temperature, p.Category, p.LatencyMs,
	)
	if err != nil {
		return fmt.Errorf("failed to save prediction: %w", err)
	}
	return nil
}

// SaveTrainingRun records the summary of one training run
func (db *ClickHouseDB) SaveTrainingRun(ctx context.Context, run *models.TrainingRun) error {
	query := `
		INSERT INTO thermal_training_runs (
			timestamp, run_id, kind, feature_set, model_type,
			train_rows, test_rows, metrics, artifact_path
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := db.conn.Exec(ctx, query,
		run.Timestamp, run.RunID, run.Kind, run.FeatureSet, run.ModelType,
		uint32(run.TrainRows), uint32(run.TestRows), run.Metrics, run.ArtifactPath,
	)
	if err != nil {
		return fmt.Errorf("failed to save training run: %w", err)
	}
	return nil
}

// SaveObservations batch-inserts records under a fresh import id, numbering
// rows from 1 within the import. It returns the import id.
func (db *ClickHouseDB) SaveObservations(ctx context.Context, records []models.Record) (uuid.UUID, error) {
	importID := uuid.New()
	batch, err := db.conn.PrepareBatch(ctx, `
		INSERT INTO thermal_observations (
			timestamp, import_id, row_number, bmi, mean_sa02, hrv_sdnn, hr_mean, gender, age, temp_median
		)
	`)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to prepare observation batch: %w", err)
	}

	now := time.Now().UTC()
	for i, r := range records {
		if err := batch.Append(
			now, importID, uint32(i+1), r.BMI, r.MeanSpO2, r.HRVSDNN, r.HRMean, r.Gender, r.Age, r.TempMedian,
		); err != nil {
			_ = batch.Abort()
			return uuid.Nil, fmt.Errorf("failed to append observation %d: %w", i, err)
		}
	}

	if err := batch.Send(); err != nil {
		return uuid.Nil, fmt.Errorf("failed to send observation batch: %w", err)
	}
	logger.Infof("ClickHouse: stored %d observations as import %s", len(records), importID)
	return importID, nil
}

// LoadObservations returns every stored observation
func (db *ClickHouseDB) LoadObservations(ctx context.Context) ([]models.Record, error) {
	query := `
		SELECT bmi, mean_sa02, hrv_sdnn, hr_mean, gender, age, temp_median
		FROM thermal_observations
		ORDER BY timestamp, import_id, row_number
	`

	rows, err := db.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query observations: %w", err)
	}
	defer rows.Close()

	var records []models.Record
	for rows.Next() {
		var r models.Record
		if err := rows.Scan(&r.BMI, &r.MeanSpO2, &r.HRVSDNN, &r.HRMean, &r.Gender, &r.Age, &r.TempMedian); err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read observations: %w", err)
	}
	return records, nil
}

// Close closes the database connection
func (db *ClickHouseDB) Close() error {
	return db.conn.Close()
}
