package services

import (
	"context"

	"thermal-backend/internal/metrics"
	"thermal-backend/internal/models"
	"thermal-backend/internal/thinq"
	apperrors "thermal-backend/pkg/errors"
	"thermal-backend/pkg/logger"
)

// DeviceClient is the device API the relay forwards to
type DeviceClient interface {
	State(ctx context.Context, deviceID string) (*thinq.DeviceState, error)
	Control(ctx context.Context, deviceID string, command thinq.Command) error
}

// AirconService relays air conditioner reads and commands. It keeps no
// state between calls.
type AirconService struct {
	client   DeviceClient
	deviceID string
}

// NewAirconService creates a relay for one device
func NewAirconService(client DeviceClient, deviceID string) *AirconService {
	return &AirconService{
		client:   client,
		deviceID: deviceID,
	}
}

// State fetches the current device state
func (s *AirconService) State(ctx context.Context) (*models.AirconStateResponse, error) {
	state, err := s.client.State(ctx, s.deviceID)
	metrics.RecordAirconRequest("state", err)
	if err != nil {
		logger.Warnf("AirconService: state request failed: %v", err)
		return nil, err
	}

	return &models.AirconStateResponse{
		Success:  true,
		DeviceID: s.deviceID,
		State:    state.ToModel(),
	}, nil
}

// Control translates and forwards one command
func (s *AirconService) Control(ctx context.Context, req models.ControlRequest) (*models.ControlResponse, error) {
	command, err := thinq.BuildCommand(req)
	if err != nil {
		action := req.Action
		var unsupported *apperrors.UnsupportedActionError
		if apperrors.As(err, &unsupported) {
			action = "unsupported"
		}
		metrics.RecordAirconRequest(action, err)
		return nil, err
	}

	err = s.client.Control(ctx, s.deviceID, command)
	metrics.RecordAirconRequest(req.Action, err)
	if err != nil {
		logger.Warnf("AirconService: %s failed: %v", req.Action, err)
		return nil, err
	}

	logger.Infof("AirconService: %s sent to %s", req.Action, s.deviceID)
	return &models.ControlResponse{
		Success: true,
		Action:  req.Action,
	}, nil
}
