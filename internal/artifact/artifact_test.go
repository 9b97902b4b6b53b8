package artifact

import (
	"context"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thermal-backend/internal/features"
	"thermal-backend/internal/ml/classifier"
	"thermal-backend/internal/ml/ensemble"
	"thermal-backend/internal/models"
	"thermal-backend/internal/preprocess"
	"thermal-backend/pkg/errors"
	"thermal-backend/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.SetForTest()
	os.Exit(m.Run())
}

func trainingFrame(t *testing.T, set features.Set, n int) (*preprocess.Frame, []float64) {
	r := rand.New(rand.NewSource(9))
	records := make([]models.Record, n)
	y := make([]float64, n)
	for i := range records {
		g := "F"
		if i%2 == 0 {
			g = "M"
		}
		records[i] = models.Record{
			HRMean:   models.Float(60 + r.Float64()*40),
			HRVSDNN:  models.Float(20 + r.Float64()*60),
			BMI:      models.Float(18 + r.Float64()*12),
			MeanSpO2: models.Float(95 + r.Float64()*4),
			Gender:   models.String(g),
			Age:      models.Float(float64(20 + r.Intn(50))),
		}
		y[i] = 33 + r.Float64()*3
	}
	vecs, err := features.DeriveAll(set, records)
	require.NoError(t, err)
	return preprocess.FrameFromVectors(vecs), y
}

func TestEnsembleRoundTrip(t *testing.T) {
	frame, y := trainingFrame(t, features.ServiceAge, 60)
	v := ensemble.New(features.ServiceAge, ensemble.DefaultConfig().Scaled(5))
	require.NoError(t, v.Fit(context.Background(), frame, y))

	path := filepath.Join(t.TempDir(), "nested", "model.bin")
	require.NoError(t, SaveEnsemble(path, &EnsembleBundle{
		Metadata: Metadata{
			FeatureSet: features.ServiceAge.Name,
			Target:     TargetTemperature,
			ModelType:  "VotingRegressor",
			Metrics:    map[string]float64{"r2": 0.5},
		},
		Ensemble: v,
	}))

	loaded, err := LoadEnsemble(path)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, loaded.SchemaVersion)
	assert.Equal(t, KindRegression, loaded.Kind)
	assert.Equal(t, features.ServiceAge.Columns(), loaded.Features)
	assert.Equal(t, 0.5, loaded.Metrics["r2"])
	assert.False(t, loaded.CreatedAt.IsZero())

	want, err := v.Predict(frame)
	require.NoError(t, err)
	got, err := loaded.Ensemble.Predict(frame)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	meta, err := ReadMetadata(path)
	require.NoError(t, err)
	assert.Equal(t, "VotingRegressor", meta.ModelType)
}

func TestMissingArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.bin")
	_, err := LoadEnsemble(path)

	var missing *errors.ArtifactMissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, path, missing.Path)

	_, err = ReadMetadata(path)
	assert.ErrorAs(t, err, &missing)
}

func TestRejectsForeignFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.bin")
	require.NoError(t, os.WriteFile(path, []byte("not a model"), 0o644))

	_, err := LoadEnsemble(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a model artifact")
}

func TestTruncatedArtifactWrapsDecodeError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.bin")
	require.NoError(t, os.WriteFile(path, []byte(magic), 0o644))

	_, err := LoadEnsemble(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode metadata from "+path)
	assert.ErrorIs(t, err, io.EOF)
}

func TestClassifierRoundTripAndKindCheck(t *testing.T) {
	frame, y := trainingFrame(t, features.V3Gender, 40)
	labels := make([]int, len(y))
	for i := range labels {
		labels[i] = i % 3
	}
	p := preprocess.New(features.V3Gender, false)
	x, err := p.FitTransform(frame)
	require.NoError(t, err)
	m := classifier.NewDecisionTree(10, 5, 2, 42)
	require.NoError(t, m.Fit(context.Background(), x, labels, 3))

	path := filepath.Join(t.TempDir(), "tree.bin")
	require.NoError(t, SaveClassifier(path, &ClassifierBundle{
		Metadata: Metadata{FeatureSet: features.V3Gender.Name, Target: TargetComfort, ModelType: "Decision Tree"},
		Pipeline: p,
		Model:    m,
		Labels:   []string{"cold", "comfortable", "hot"},
	}))

	loaded, err := LoadClassifier(path)
	require.NoError(t, err)
	assert.Equal(t, m.Predict(x), loaded.Model.Predict(x))
	assert.Equal(t, []string{"cold", "comfortable", "hot"}, loaded.Labels)

	_, err = LoadEnsemble(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "classification")
}
