// Package features derives model inputs from raw physiological records.
package features

import (
	"fmt"
	"sort"
)

// Column names as they appear in the training data and the artifact
const (
	BMI               = "bmi"
	MeanSpO2          = "mean_sa02"
	HRVSDNN           = "HRV_SDNN"
	HRMean            = "HR_mean"
	Age               = "age"
	Gender            = "gender"
	HRVHRRatio        = "hrv_hr_ratio"
	BMIHRInteraction  = "bmi_hr_interaction"
	AgeBMIInteraction = "age_bmi_interaction"
	AgeHRVRatio       = "age_hrv_ratio"
)

// Raw request fields, in the order they are validated
const (
	FieldHRMean   = "hr_mean"
	FieldHRVSDNN  = "hrv_sdnn"
	FieldBMI      = "bmi"
	FieldMeanSpO2 = "mean_sa02"
	FieldGender   = "gender"
	FieldAge      = "age"
)

var fieldOrder = []string{FieldHRMean, FieldHRVSDNN, FieldBMI, FieldMeanSpO2, FieldGender, FieldAge}

// Encoding selects how categorical columns are one-hot encoded
type Encoding int

const (
	// DropFirst omits the first sorted level of each column
	DropFirst Encoding = iota
	// Full keeps one indicator per level
	Full
)

func (e Encoding) String() string {
	if e == Full {
		return "full"
	}
	return "drop_first"
}

// Set is one feature-set configuration: the numeric columns (raw or
// derived) and categorical columns a model consumes.
type Set struct {
	Name        string
	Numeric     []string
	Categorical []string
	Encoding    Encoding
}

// Columns returns numeric then categorical column names
func (s Set) Columns() []string {
	cols := make([]string, 0, len(s.Numeric)+len(s.Categorical))
	cols = append(cols, s.Numeric...)
	return append(cols, s.Categorical...)
}

// RequiredFields returns the raw fields the set needs, in validation order
func (s Set) RequiredFields() []string {
	need := make(map[string]bool)
	for _, name := range s.Numeric {
		for _, f := range rules[name].requires {
			need[f] = true
		}
	}
	for _, name := range s.Categorical {
		for _, f := range rules[name].requires {
			need[f] = true
		}
	}

	fields := make([]string, 0, len(need))
	for _, f := range fieldOrder {
		if need[f] {
			fields = append(fields, f)
		}
	}
	return fields
}

// HasAge reports whether the set consumes age
func (s Set) HasAge() bool {
	for _, f := range s.RequiredFields() {
		if f == FieldAge {
			return true
		}
	}
	return false
}

var (
	V3 = Set{
		Name:    "v3",
		Numeric: []string{HRMean, HRVSDNN, BMI, MeanSpO2},
	}

	V3Gender = Set{
		Name:        "v3_gender",
		Numeric:     []string{HRMean, HRVSDNN, BMI, MeanSpO2},
		Categorical: []string{Gender},
		Encoding:    Full,
	}

	Service = Set{
		Name:        "service",
		Numeric:     []string{BMI, MeanSpO2, HRVSDNN, HRVHRRatio, BMIHRInteraction},
		Categorical: []string{Gender},
		Encoding:    DropFirst,
	}

	ServiceAge = Set{
		Name: "service_age",
		Numeric: []string{
			BMI, MeanSpO2, HRVSDNN, HRVHRRatio, BMIHRInteraction,
			Age, AgeBMIInteraction, AgeHRVRatio,
		},
		Categorical: []string{Gender},
		Encoding:    DropFirst,
	}
)

var registry = map[string]Set{
	V3.Name:         V3,
	V3Gender.Name:   V3Gender,
	Service.Name:    Service,
	ServiceAge.Name: ServiceAge,
}

// Lookup returns a registered feature set by name
func Lookup(name string) (Set, error) {
	set, ok := registry[name]
	if !ok {
		return Set{}, fmt.Errorf("unknown feature set %q (known: %v)", name, Names())
	}
	return set, nil
}

// Names lists the registered feature sets
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
