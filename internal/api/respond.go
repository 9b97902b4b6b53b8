package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	apperrors "thermal-backend/pkg/errors"
	"thermal-backend/pkg/logger"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warnf("API: failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// statusFor maps an error to its HTTP status and client-facing message
func statusFor(err error) (int, string) {
	var (
		validation  *apperrors.ValidationError
		unsupported *apperrors.UnsupportedActionError
		upstream    *apperrors.UpstreamError
	)

	switch {
	case apperrors.As(err, &validation):
		return http.StatusBadRequest, validation.Error()
	case apperrors.As(err, &unsupported):
		return http.StatusBadRequest, unsupported.Error()
	case apperrors.As(err, &upstream):
		// a failed relay never reports success
		if upstream.StatusCode < 400 {
			message := upstream.Body
			if message == "" {
				message = upstream.Error()
			}
			return http.StatusBadGateway, message
		}
		message := upstream.Body
		if message == "" {
			message = http.StatusText(upstream.StatusCode)
		}
		return upstream.StatusCode, message
	case apperrors.Is(err, apperrors.ErrModelNotLoaded):
		return http.StatusInternalServerError, "Model not loaded"
	}
	return http.StatusInternalServerError, err.Error()
}

// validationError converts the first validator failure into a ValidationError
func validationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return err
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "required", "required_if":
		return apperrors.MissingField(fe.Field())
	case "oneof":
		return apperrors.InvalidField(fe.Field(), fe.Value(), "must be one of "+fe.Param())
	}
	return apperrors.InvalidField(fe.Field(), fe.Value(), "failed "+fe.Tag())
}
