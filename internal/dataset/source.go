// Package dataset loads and cleans subject observations for training.
package dataset

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/spf13/cast"

	"thermal-backend/internal/models"
)

// Source yields raw records
type Source interface {
	Load(ctx context.Context) ([]models.Record, error)
	Describe() string
}

// csvRow mirrors the merged observation export. Cells stay strings so that
// blanks and NaN markers can be told apart from zeros.
type csvRow struct {
	SID        string `csv:"sid"`
	BMI        string `csv:"bmi"`
	MeanSpO2   string `csv:"mean_sa02"`
	HRVSDNN    string `csv:"HRV_SDNN"`
	HRMean     string `csv:"HR_mean"`
	Gender     string `csv:"gender"`
	Age        string `csv:"age"`
	TempMedian string `csv:"TEMP_median"`
}

// CSVSource reads records from a CSV file with a header row
type CSVSource struct {
	Path string
}

func (s CSVSource) Describe() string {
	return "csv:" + s.Path
}

// Load parses every row; unparseable numeric cells become missing values
func (s CSVSource) Load(ctx context.Context) ([]models.Record, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	var rows []*csvRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse dataset %s: %w", s.Path, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records := make([]models.Record, len(rows))
	for i, r := range rows {
		records[i] = models.Record{
			BMI:        parseFloat(r.BMI),
			MeanSpO2:   parseFloat(r.MeanSpO2),
			HRVSDNN:    parseFloat(r.HRVSDNN),
			HRMean:     parseFloat(r.HRMean),
			Gender:     parseString(r.Gender),
			Age:        parseFloat(r.Age),
			TempMedian: parseFloat(r.TempMedian),
		}
	}
	return records, nil
}

// ObservationStore is a database holding observations
type ObservationStore interface {
	LoadObservations(ctx context.Context) ([]models.Record, error)
}

// StoreSource reads records from an observation store
type StoreSource struct {
	Store ObservationStore
	Name  string
}

func (s StoreSource) Describe() string {
	return s.Name
}

func (s StoreSource) Load(ctx context.Context) ([]models.Record, error) {
	records, err := s.Store.LoadObservations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load observations: %w", err)
	}
	return records, nil
}

var nullMarkers = map[string]bool{"": true, "nan": true, "na": true, "null": true, "none": true}

func parseFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if nullMarkers[strings.ToLower(s)] {
		return nil
	}
	v, err := cast.ToFloat64E(s)
	if err != nil || math.IsNaN(v) {
		return nil
	}
	return &v
}

func parseString(s string) *string {
	s = strings.TrimSpace(s)
	if nullMarkers[strings.ToLower(s)] {
		return nil
	}
	return &s
}
