package api

import (
	"encoding/json"
	"math"
	"net/http"
	"strings"

	"github.com/spf13/cast"

	"thermal-backend/internal/features"
	"thermal-backend/internal/models"
	apperrors "thermal-backend/pkg/errors"
	"thermal-backend/pkg/logger"
)

// HealthResponse reports liveness and model state
type HealthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}

// PredictResponse is a successful prediction with the normalized input echoed
type PredictResponse struct {
	Success              bool                   `json:"success"`
	PredictedTemperature float64                `json:"predicted_temperature"`
	TemperatureCategory  string                 `json:"temperature_category"`
	InputData            map[string]interface{} `json:"input_data"`
}

func (rt *Router) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:      "healthy",
		ModelLoaded: rt.predictor != nil,
	})
}

func (rt *Router) modelInfo(w http.ResponseWriter, r *http.Request) {
	if rt.predictor == nil {
		writeError(w, http.StatusInternalServerError, "Model not loaded")
		return
	}
	writeJSON(w, http.StatusOK, rt.predictor.ModelInfo())
}

func (rt *Router) predict(w http.ResponseWriter, r *http.Request) {
	if rt.predictor == nil {
		writeError(w, http.StatusInternalServerError, "Model not loaded")
		return
	}

	var body map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body == nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	rec, echo, err := parseRecord(body)
	if err != nil {
		status, message := statusFor(err)
		writeError(w, status, message)
		return
	}

	prediction, err := rt.predictor.Predict(r.Context(), rec)
	if err != nil {
		status, message := statusFor(err)
		if status >= http.StatusInternalServerError {
			logger.Errorf("API: prediction failed: %v", err)
			message = "Prediction failed: " + message
		}
		writeError(w, status, message)
		return
	}

	writeJSON(w, http.StatusOK, PredictResponse{
		Success:              true,
		PredictedTemperature: prediction.Temperature,
		TemperatureCategory:  prediction.Label,
		InputData:            echo,
	})
}

// parseRecord coerces the loosely typed body into a record. Absent or null
// fields stay nil so the first missing one is reported in field order. Age is
// truncated to a whole number of years.
func parseRecord(body map[string]interface{}) (models.Record, map[string]interface{}, error) {
	var rec models.Record
	echo := make(map[string]interface{}, len(body))

	numeric := []struct {
		field string
		dst   **float64
	}{
		{features.FieldHRMean, &rec.HRMean},
		{features.FieldHRVSDNN, &rec.HRVSDNN},
		{features.FieldBMI, &rec.BMI},
		{features.FieldMeanSpO2, &rec.MeanSpO2},
		{features.FieldAge, &rec.Age},
	}
	for _, n := range numeric {
		raw, ok := body[n.field]
		if !ok || raw == nil {
			continue
		}
		v, err := cast.ToFloat64E(raw)
		if err != nil {
			return rec, nil, apperrors.InvalidField(n.field, raw, "must be a number")
		}
		if n.field == features.FieldAge {
			v = math.Trunc(v)
			echo[n.field] = int(v)
		} else {
			echo[n.field] = v
		}
		*n.dst = models.Float(v)
	}

	if raw, ok := body[features.FieldGender]; ok && raw != nil {
		g, err := cast.ToStringE(raw)
		if err != nil {
			return rec, nil, apperrors.InvalidField(features.FieldGender, raw, "must be a string")
		}
		rec.Gender = models.String(g)
		echo[features.FieldGender] = g
	}

	return rec, echo, nil
}

func (rt *Router) airconState(w http.ResponseWriter, r *http.Request) {
	if rt.aircon == nil {
		writeJSON(w, http.StatusServiceUnavailable, models.AirconStateResponse{Error: "Air conditioner relay not configured"})
		return
	}

	resp, err := rt.aircon.State(r.Context())
	if err != nil {
		status, message := statusFor(err)
		writeJSON(w, status, models.AirconStateResponse{Error: message})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (rt *Router) airconControl(w http.ResponseWriter, r *http.Request) {
	if rt.aircon == nil {
		writeJSON(w, http.StatusServiceUnavailable, models.ControlResponse{Error: "Air conditioner relay not configured"})
		return
	}

	var req models.ControlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ControlResponse{Error: "Invalid JSON body"})
		return
	}
	req.Unit = strings.ToUpper(strings.TrimSpace(req.Unit))
	if err := rt.validate.Struct(req); err != nil {
		_, message := statusFor(validationError(err))
		writeJSON(w, http.StatusBadRequest, models.ControlResponse{Action: req.Action, Error: message})
		return
	}

	resp, err := rt.aircon.Control(r.Context(), req)
	if err != nil {
		status, message := statusFor(err)
		writeJSON(w, status, models.ControlResponse{Action: req.Action, Error: message})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
