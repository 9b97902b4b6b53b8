package features

import (
	"fmt"
	"math"
	"strings"

	"thermal-backend/internal/models"
	"thermal-backend/pkg/errors"
)

// Vector is one record's model input
type Vector struct {
	Numeric     map[string]float64
	Categorical map[string]string
}

type raw struct {
	hrMean, hrvSDNN, bmi, spo2, age float64
	gender                          string
}

type rule struct {
	requires []string
	compute  func(r raw) float64
}

var rules = map[string]rule{
	BMI:      {requires: []string{FieldBMI}, compute: func(r raw) float64 { return r.bmi }},
	MeanSpO2: {requires: []string{FieldMeanSpO2}, compute: func(r raw) float64 { return r.spo2 }},
	HRVSDNN:  {requires: []string{FieldHRVSDNN}, compute: func(r raw) float64 { return r.hrvSDNN }},
	HRMean:   {requires: []string{FieldHRMean}, compute: func(r raw) float64 { return r.hrMean }},
	Age:      {requires: []string{FieldAge}, compute: func(r raw) float64 { return r.age }},
	HRVHRRatio: {
		requires: []string{FieldHRVSDNN, FieldHRMean},
		compute:  func(r raw) float64 { return r.hrvSDNN / r.hrMean },
	},
	BMIHRInteraction: {
		requires: []string{FieldBMI, FieldHRMean},
		compute:  func(r raw) float64 { return r.bmi * r.hrMean },
	},
	AgeBMIInteraction: {
		requires: []string{FieldAge, FieldBMI},
		compute:  func(r raw) float64 { return r.age * r.bmi },
	},
	AgeHRVRatio: {
		requires: []string{FieldAge, FieldHRVSDNN},
		compute:  func(r raw) float64 { return r.age / (r.hrvSDNN + 1) },
	},
	Gender: {requires: []string{FieldGender}},
}

// Derive validates a record against the set and computes its vector.
// The first missing field in validation order is reported.
func Derive(set Set, rec models.Record) (Vector, error) {
	var in raw
	for _, field := range set.RequiredFields() {
		var err error
		switch field {
		case FieldHRMean:
			in.hrMean, err = finite(field, rec.HRMean)
			if err == nil && in.hrMean == 0 {
				err = errors.InvalidField(field, in.hrMean, "must be non-zero")
			}
		case FieldHRVSDNN:
			in.hrvSDNN, err = finite(field, rec.HRVSDNN)
		case FieldBMI:
			in.bmi, err = finite(field, rec.BMI)
		case FieldMeanSpO2:
			in.spo2, err = finite(field, rec.MeanSpO2)
		case FieldAge:
			in.age, err = finite(field, rec.Age)
		case FieldGender:
			in.gender, err = normalizeGender(rec.Gender)
		}
		if err != nil {
			return Vector{}, err
		}
	}

	vec := Vector{
		Numeric:     make(map[string]float64, len(set.Numeric)),
		Categorical: make(map[string]string, len(set.Categorical)),
	}
	for _, name := range set.Numeric {
		vec.Numeric[name] = rules[name].compute(in)
	}
	for _, name := range set.Categorical {
		vec.Categorical[name] = in.gender
	}
	return vec, nil
}

// DeriveAll derives every record, stopping at the first invalid row
func DeriveAll(set Set, records []models.Record) ([]Vector, error) {
	out := make([]Vector, len(records))
	for i, rec := range records {
		vec, err := Derive(set, rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = vec
	}
	return out, nil
}

func finite(field string, v *float64) (float64, error) {
	if v == nil {
		return 0, errors.MissingField(field)
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0, errors.InvalidField(field, *v, "must be a finite number")
	}
	return *v, nil
}

func normalizeGender(g *string) (string, error) {
	if g == nil {
		return "", errors.MissingField(FieldGender)
	}
	v := strings.ToUpper(strings.TrimSpace(*g))
	if v == "" {
		return "", errors.MissingField(FieldGender)
	}
	return v, nil
}
