package main

import (
	"context"
	"encoding/json"
	"math"
	"math/rand"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thermal-backend/internal/artifact"
	"thermal-backend/internal/comfort"
	"thermal-backend/internal/features"
	"thermal-backend/internal/ml/ensemble"
	"thermal-backend/internal/models"
	"thermal-backend/internal/preprocess"
	"thermal-backend/pkg/config"
	apperrors "thermal-backend/pkg/errors"
	"thermal-backend/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.SetForTest()
	os.Exit(m.Run())
}

func testConfig(artifactPath string, port int) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:            "127.0.0.1",
			Port:            port,
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    5 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Model: config.ModelConfig{
			ArtifactPath: artifactPath,
			FeatureSet:   features.ServiceAge.Name,
		},
	}
}

func writeArtifact(t *testing.T) string {
	t.Helper()
	r := rand.New(rand.NewSource(11))
	records := make([]models.Record, 80)
	y := make([]float64, len(records))
	for i := range records {
		hr := 60 + r.Float64()*40
		gender := "M"
		if i%2 == 0 {
			gender = "F"
		}
		records[i] = models.Record{
			HRMean:   models.Float(hr),
			HRVSDNN:  models.Float(20 + r.Float64()*60),
			BMI:      models.Float(18 + r.Float64()*12),
			MeanSpO2: models.Float(95 + r.Float64()*4),
			Gender:   models.String(gender),
			Age:      models.Float(float64(20 + r.Intn(50))),
		}
		y[i] = 34 + (hr-60)/25
	}
	vecs, err := features.DeriveAll(features.ServiceAge, records)
	require.NoError(t, err)

	v := ensemble.New(features.ServiceAge, ensemble.DefaultConfig().Scaled(5))
	require.NoError(t, v.Fit(context.Background(), preprocess.FrameFromVectors(vecs), y))

	path := filepath.Join(t.TempDir(), "ensemble.bin")
	require.NoError(t, artifact.SaveEnsemble(path, &artifact.EnsembleBundle{
		Metadata: artifact.Metadata{
			FeatureSet: features.ServiceAge.Name,
			Target:     artifact.TargetTemperature,
			ModelType:  "VotingRegressor",
		},
		Ensemble: v,
	}))
	return path
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestRunAbortsWithoutArtifact(t *testing.T) {
	port := freePort(t)
	cfg := testConfig(filepath.Join(t.TempDir(), "missing.bin"), port)

	err := run(context.Background(), cfg)
	var missing *apperrors.ArtifactMissingError
	require.ErrorAs(t, err, &missing)

	// the port was never bound
	ln, err := net.Listen("tcp", cfg.Server.Addr())
	require.NoError(t, err)
	ln.Close()
}

func TestRunRejectsUnknownFeatureSet(t *testing.T) {
	cfg := testConfig(writeArtifact(t), freePort(t))
	cfg.Model.FeatureSet = "v9"
	assert.Error(t, run(context.Background(), cfg))
}

func TestServeEndToEnd(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx, testConfig(writeArtifact(t), 0))
	require.NoError(t, err)
	defer a.close()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- a.serve(ctx, ln) }()

	base := "http://" + ln.Addr().String()
	body := `{"hr_mean": 72.0, "hrv_sdnn": 45.2, "bmi": 22.5, "mean_sa02": 98.5, "gender": "F", "age": 30}`
	resp, err := http.Post(base+"/predict", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Success              bool    `json:"success"`
		PredictedTemperature float64 `json:"predicted_temperature"`
		TemperatureCategory  string  `json:"temperature_category"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.True(t, out.Success)
	assert.False(t, math.IsNaN(out.PredictedTemperature) || math.IsInf(out.PredictedTemperature, 0))
	assert.Equal(t, comfort.Serving.Classify(out.PredictedTemperature).Label(), out.TemperatureCategory)

	missing := strings.Replace(body, `, "gender": "F"`, "", 1)
	resp2, err := http.Post(base+"/predict", "application/json", strings.NewReader(missing))
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp2.StatusCode)
	var errBody map[string]string
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&errBody))
	assert.Equal(t, "Missing required parameter: gender", errBody["error"])

	resp3, err := http.Get(base + "/air_conditioner/state")
	require.NoError(t, err)
	resp3.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp3.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
