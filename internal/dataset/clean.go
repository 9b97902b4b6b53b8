package dataset

import (
	"thermal-backend/internal/features"
	"thermal-backend/internal/models"
)

// CleanStats counts rows dropped by each rule
type CleanStats struct {
	Total     int
	Missing   int
	ZeroTemp  int
	ZeroHeart int
	Kept      int
}

// Clean drops rows missing any field the set needs or the target, rows
// whose target is zero (sensor error) and rows with a zero heart rate
func Clean(set features.Set, records []models.Record) ([]models.Record, CleanStats) {
	stats := CleanStats{Total: len(records)}
	fields := set.RequiredFields()
	kept := make([]models.Record, 0, len(records))
	for _, r := range records {
		if r.TempMedian == nil || hasMissing(r, fields) {
			stats.Missing++
			continue
		}
		if *r.TempMedian == 0 {
			stats.ZeroTemp++
			continue
		}
		if r.HRMean != nil && *r.HRMean == 0 {
			stats.ZeroHeart++
			continue
		}
		kept = append(kept, r)
	}
	stats.Kept = len(kept)
	return kept, stats
}

func hasMissing(r models.Record, fields []string) bool {
	for _, f := range fields {
		switch f {
		case features.FieldHRMean:
			if r.HRMean == nil {
				return true
			}
		case features.FieldHRVSDNN:
			if r.HRVSDNN == nil {
				return true
			}
		case features.FieldBMI:
			if r.BMI == nil {
				return true
			}
		case features.FieldMeanSpO2:
			if r.MeanSpO2 == nil {
				return true
			}
		case features.FieldGender:
			if r.Gender == nil {
				return true
			}
		case features.FieldAge:
			if r.Age == nil {
				return true
			}
		}
	}
	return false
}

// Targets extracts the regression target of cleaned records
func Targets(records []models.Record) []float64 {
	y := make([]float64, len(records))
	for i, r := range records {
		y[i] = *r.TempMedian
	}
	return y
}

// Ages extracts age, zero where absent
func Ages(records []models.Record) []float64 {
	out := make([]float64, len(records))
	for i, r := range records {
		if r.Age != nil {
			out[i] = *r.Age
		}
	}
	return out
}
