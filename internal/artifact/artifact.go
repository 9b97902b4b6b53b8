// Package artifact persists fitted models. A file is a magic header
// followed by a snappy-framed gob stream holding the metadata and then the
// model payload.
package artifact

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/golang/snappy"

	"thermal-backend/internal/ml/classifier"
	"thermal-backend/internal/ml/ensemble"
	"thermal-backend/internal/preprocess"
	"thermal-backend/pkg/errors"
	"thermal-backend/pkg/logger"
)

// SchemaVersion is bumped whenever the payload layout changes
const SchemaVersion = 1

const magic = "THERMAL-ARTIFACT\n"

// Kind is the model family stored in a file
type Kind string

const (
	KindRegression     Kind = "regression"
	KindClassification Kind = "classification"
)

// Targets
const (
	TargetTemperature = "TEMP_median"
	TargetComfort     = "temperature_label"
)

// Metadata describes a stored model
type Metadata struct {
	SchemaVersion int
	Kind          Kind
	FeatureSet    string
	Features      []string
	Target        string
	ModelType     string
	CreatedAt     time.Time
	Metrics       map[string]float64
}

// EnsembleBundle is a fitted temperature ensemble
type EnsembleBundle struct {
	Metadata
	Ensemble *ensemble.Voting
}

// ClassifierBundle is one fitted comfort classifier with its pipeline
type ClassifierBundle struct {
	Metadata
	Pipeline *preprocess.Pipeline
	Model    classifier.Model
	Labels   []string
}

// SaveEnsemble writes an ensemble bundle
func SaveEnsemble(path string, b *EnsembleBundle) error {
	b.SchemaVersion = SchemaVersion
	b.Kind = KindRegression
	b.Features = b.Ensemble.InputColumns()
	return write(path, b.Metadata, b.Ensemble)
}

// LoadEnsemble reads an ensemble bundle and checks its columns
func LoadEnsemble(path string) (*EnsembleBundle, error) {
	b := &EnsembleBundle{}
	meta, err := read(path, KindRegression, &b.Ensemble)
	if err != nil {
		return nil, err
	}
	b.Metadata = meta
	if err := sameColumns(meta.Features, b.Ensemble.InputColumns()); err != nil {
		return nil, err
	}
	return b, nil
}

// SaveClassifier writes a classifier bundle
func SaveClassifier(path string, b *ClassifierBundle) error {
	b.SchemaVersion = SchemaVersion
	b.Kind = KindClassification
	b.Features = b.Pipeline.InputColumns()
	payload := classifierPayload{Pipeline: b.Pipeline, Model: b.Model, Labels: b.Labels}
	return write(path, b.Metadata, &payload)
}

// LoadClassifier reads a classifier bundle
func LoadClassifier(path string) (*ClassifierBundle, error) {
	var payload classifierPayload
	meta, err := read(path, KindClassification, &payload)
	if err != nil {
		return nil, err
	}
	if err := sameColumns(meta.Features, payload.Pipeline.InputColumns()); err != nil {
		return nil, err
	}
	return &ClassifierBundle{
		Metadata: meta,
		Pipeline: payload.Pipeline,
		Model:    payload.Model,
		Labels:   payload.Labels,
	}, nil
}

type classifierPayload struct {
	Pipeline *preprocess.Pipeline
	Model    classifier.Model
	Labels   []string
}

// ReadMetadata decodes only the metadata block
func ReadMetadata(path string) (Metadata, error) {
	f, err := open(path)
	if err != nil {
		return Metadata{}, err
	}
	defer f.Close()

	dec, err := decoder(f)
	if err != nil {
		return Metadata{}, fmt.Errorf("%s: %w", path, err)
	}
	var meta Metadata
	if err := dec.Decode(&meta); err != nil {
		return Metadata{}, errors.Wrapf(err, "failed to decode metadata from %s", path)
	}
	return meta, nil
}

func write(path string, meta Metadata, payload interface{}) error {
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now().UTC()
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".artifact-*")
	if err != nil {
		return fmt.Errorf("failed to create artifact file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.WriteString(tmp, magic); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write artifact header: %w", err)
	}
	zw := snappy.NewBufferedWriter(tmp)
	enc := gob.NewEncoder(zw)
	if err := enc.Encode(meta); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	if err := enc.Encode(payload); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode model: %w", err)
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to flush artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move artifact into place: %w", err)
	}

	if info, err := os.Stat(path); err == nil {
		logger.Infof("Artifact: saved %s model to %s (%s)", meta.ModelType, path, humanize.Bytes(uint64(info.Size())))
	}
	return nil
}

func read(path string, kind Kind, payload interface{}) (Metadata, error) {
	f, err := open(path)
	if err != nil {
		return Metadata{}, err
	}
	defer f.Close()

	dec, err := decoder(f)
	if err != nil {
		return Metadata{}, fmt.Errorf("%s: %w", path, err)
	}
	var meta Metadata
	if err := dec.Decode(&meta); err != nil {
		return Metadata{}, errors.Wrapf(err, "failed to decode metadata from %s", path)
	}
	if meta.SchemaVersion != SchemaVersion {
		return Metadata{}, fmt.Errorf("artifact %s has schema version %d, want %d", path, meta.SchemaVersion, SchemaVersion)
	}
	if meta.Kind != kind {
		return Metadata{}, fmt.Errorf("artifact %s holds a %s model, want %s", path, meta.Kind, kind)
	}
	if err := dec.Decode(payload); err != nil {
		return Metadata{}, errors.Wrapf(err, "failed to decode model from %s", path)
	}
	return meta, nil
}

func open(path string) (*os.File, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, &errors.ArtifactMissingError{Path: path}
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to open artifact")
	}
	return f, nil
}

func decoder(f *os.File) (*gob.Decoder, error) {
	br := bufio.NewReader(f)
	header := make([]byte, len(magic))
	if _, err := io.ReadFull(br, header); err != nil || string(header) != magic {
		return nil, fmt.Errorf("not a model artifact")
	}
	return gob.NewDecoder(snappy.NewReader(br)), nil
}

func sameColumns(expected, got []string) error {
	if len(expected) != len(got) {
		return &errors.SchemaError{Expected: expected, Got: got}
	}
	for i := range expected {
		if expected[i] != got[i] {
			return &errors.SchemaError{Expected: expected, Got: got}
		}
	}
	return nil
}
