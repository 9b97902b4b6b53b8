package services

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thermal-backend/internal/artifact"
	"thermal-backend/internal/comfort"
	"thermal-backend/internal/features"
	"thermal-backend/internal/ml/ensemble"
	"thermal-backend/internal/models"
	"thermal-backend/internal/preprocess"
	"thermal-backend/internal/thinq"
	apperrors "thermal-backend/pkg/errors"
	"thermal-backend/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.SetForTest()
	os.Exit(m.Run())
}

var (
	bundleOnce sync.Once
	testBundle *artifact.EnsembleBundle
	bundleErr  error
)

// fittedBundle trains a small service_age ensemble once per test binary
func fittedBundle(t *testing.T) *artifact.EnsembleBundle {
	t.Helper()
	bundleOnce.Do(func() {
		r := rand.New(rand.NewSource(7))
		records := make([]models.Record, 150)
		y := make([]float64, len(records))
		for i := range records {
			hr := 60 + r.Float64()*40
			hrv := 20 + r.Float64()*60
			gender := "M"
			if i%2 == 0 {
				gender = "F"
			}
			records[i] = models.Record{
				HRMean:   models.Float(hr),
				HRVSDNN:  models.Float(hrv),
				BMI:      models.Float(18 + r.Float64()*12),
				MeanSpO2: models.Float(95 + r.Float64()*4),
				Gender:   models.String(gender),
				Age:      models.Float(float64(20 + r.Intn(50))),
			}
			y[i] = 34 + (hr-60)/25 + r.NormFloat64()*0.1
		}

		vecs, err := features.DeriveAll(features.ServiceAge, records)
		if err != nil {
			bundleErr = err
			return
		}
		v := ensemble.New(features.ServiceAge, ensemble.DefaultConfig().Scaled(10))
		if err := v.Fit(context.Background(), preprocess.FrameFromVectors(vecs), y); err != nil {
			bundleErr = err
			return
		}
		testBundle = &artifact.EnsembleBundle{
			Metadata: artifact.Metadata{
				Kind:       artifact.KindRegression,
				FeatureSet: features.ServiceAge.Name,
				Features:   v.InputColumns(),
				Target:     artifact.TargetTemperature,
				ModelType:  "VotingRegressor",
			},
			Ensemble: v,
		}
	})
	require.NoError(t, bundleErr)
	return testBundle
}

func servingRecord() models.Record {
	return models.Record{
		HRMean:   models.Float(72.0),
		HRVSDNN:  models.Float(45.2),
		BMI:      models.Float(22.5),
		MeanSpO2: models.Float(98.5),
		Gender:   models.String("F"),
		Age:      models.Float(30),
	}
}

type fakeRecorder struct {
	logs []*models.PredictionLog
	err  error
}

func (r *fakeRecorder) SavePrediction(ctx context.Context, p *models.PredictionLog) error {
	r.logs = append(r.logs, p)
	return r.err
}

type fakePublisher struct {
	decisions []*models.ComfortDecision
	err       error
}

func (p *fakePublisher) Publish(ctx context.Context, d *models.ComfortDecision) error {
	p.decisions = append(p.decisions, d)
	return p.err
}

func TestPredictServingScenario(t *testing.T) {
	svc, err := NewPredictionService(fittedBundle(t), PredictionServiceConfig{FeatureSet: features.ServiceAge})
	require.NoError(t, err)

	p, err := svc.Predict(context.Background(), servingRecord())
	require.NoError(t, err)

	assert.False(t, math.IsNaN(p.Temperature))
	assert.False(t, math.IsInf(p.Temperature, 0))
	want := comfort.Serving.Classify(p.Temperature)
	assert.Equal(t, want.String(), p.Category)
	assert.Equal(t, want.Label(), p.Label)
	assert.Contains(t, []string{"추움", "적정", "더움"}, p.Label)
}

func TestPredictIsDeterministic(t *testing.T) {
	svc, err := NewPredictionService(fittedBundle(t), PredictionServiceConfig{FeatureSet: features.ServiceAge})
	require.NoError(t, err)

	a, err := svc.Predict(context.Background(), servingRecord())
	require.NoError(t, err)
	b, err := svc.Predict(context.Background(), servingRecord())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestPredictMissingGender(t *testing.T) {
	svc, err := NewPredictionService(fittedBundle(t), PredictionServiceConfig{FeatureSet: features.ServiceAge})
	require.NoError(t, err)

	rec := servingRecord()
	rec.Gender = nil
	_, err = svc.Predict(context.Background(), rec)

	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "gender", verr.Field)
	assert.Equal(t, "Missing required parameter: gender", verr.Error())
}

func TestNewPredictionServiceSchemaMismatch(t *testing.T) {
	_, err := NewPredictionService(fittedBundle(t), PredictionServiceConfig{FeatureSet: features.Service})

	var schemaErr *apperrors.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Contains(t, schemaErr.Expected, features.HRVHRRatio)
}

func TestNewPredictionServiceWithoutModel(t *testing.T) {
	_, err := NewPredictionService(nil, PredictionServiceConfig{FeatureSet: features.ServiceAge})
	assert.ErrorIs(t, err, apperrors.ErrModelNotLoaded)
}

func TestSinksReceivePrediction(t *testing.T) {
	recorder := &fakeRecorder{}
	publisher := &fakePublisher{}
	svc, err := NewPredictionService(fittedBundle(t), PredictionServiceConfig{
		FeatureSet: features.ServiceAge,
		DeviceID:   "ac-1",
		Recorder:   recorder,
		Publisher:  publisher,
	})
	require.NoError(t, err)

	p, err := svc.Predict(context.Background(), servingRecord())
	require.NoError(t, err)

	require.Len(t, recorder.logs, 1)
	assert.Equal(t, "F", recorder.logs[0].Gender)
	assert.Equal(t, 72.0, recorder.logs[0].HRMean)
	assert.Equal(t, p.Temperature, recorder.logs[0].Temperature)
	assert.Equal(t, features.ServiceAge.Name, recorder.logs[0].FeatureSet)

	require.Len(t, publisher.decisions, 1)
	assert.Equal(t, "ac-1", publisher.decisions[0].DeviceID)
	assert.Equal(t, p.Label, publisher.decisions[0].Label)
}

func TestSinkFailuresDoNotFailPrediction(t *testing.T) {
	svc, err := NewPredictionService(fittedBundle(t), PredictionServiceConfig{
		FeatureSet: features.ServiceAge,
		Recorder:   &fakeRecorder{err: errors.New("clickhouse down")},
		Publisher:  &fakePublisher{err: errors.New("channel full")},
	})
	require.NoError(t, err)

	_, err = svc.Predict(context.Background(), servingRecord())
	assert.NoError(t, err)
}

func TestModelInfo(t *testing.T) {
	svc, err := NewPredictionService(fittedBundle(t), PredictionServiceConfig{FeatureSet: features.ServiceAge})
	require.NoError(t, err)

	info := svc.ModelInfo()
	assert.True(t, info.ModelLoaded)
	assert.Equal(t, "VotingRegressor", info.ModelType)
	assert.Equal(t, artifact.TargetTemperature, info.Target)
	assert.Equal(t, features.ServiceAge.Columns(), info.Features)
}

type fakeDevice struct {
	state    *thinq.DeviceState
	commands []thinq.Command
	err      error
}

func (d *fakeDevice) State(ctx context.Context, deviceID string) (*thinq.DeviceState, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.state, nil
}

func (d *fakeDevice) Control(ctx context.Context, deviceID string, command thinq.Command) error {
	d.commands = append(d.commands, command)
	return d.err
}

func TestAirconState(t *testing.T) {
	state := &thinq.DeviceState{}
	state.Operation.AirConOperationMode = thinq.PowerOff
	state.AirConJobMode.CurrentJobMode = "AUTO"

	svc := NewAirconService(&fakeDevice{state: state}, "ac-1")
	resp, err := svc.State(context.Background())
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, "ac-1", resp.DeviceID)
	assert.False(t, resp.State.PowerOn)
	assert.Equal(t, "AUTO", resp.State.JobMode)
}

func TestAirconControl(t *testing.T) {
	device := &fakeDevice{}
	svc := NewAirconService(device, "ac-1")

	resp, err := svc.Control(context.Background(), models.ControlRequest{Action: models.ActionSetMode, Mode: "냉방"})
	require.NoError(t, err)
	assert.Equal(t, &models.ControlResponse{Success: true, Action: models.ActionSetMode}, resp)

	require.Len(t, device.commands, 1)
	assert.Equal(t, thinq.Command{"airConJobMode": map[string]interface{}{"currentJobMode": "COOL"}}, device.commands[0])
}

func TestAirconControlUnsupported(t *testing.T) {
	device := &fakeDevice{}
	_, err := NewAirconService(device, "ac-1").Control(context.Background(), models.ControlRequest{Action: "dance"})

	var unsupported *apperrors.UnsupportedActionError
	require.ErrorAs(t, err, &unsupported)
	assert.Empty(t, device.commands)
}

func TestAirconControlUpstreamError(t *testing.T) {
	upstream := &apperrors.UpstreamError{StatusCode: 409, Body: "device busy"}
	on := true
	_, err := NewAirconService(&fakeDevice{err: upstream}, "ac-1").
		Control(context.Background(), models.ControlRequest{Action: models.ActionSetPower, PowerOn: &on})

	var got *apperrors.UpstreamError
	require.ErrorAs(t, err, &got)
	assert.Equal(t, 409, got.StatusCode)
}
