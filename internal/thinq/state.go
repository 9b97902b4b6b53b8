package thinq

import "thermal-backend/internal/models"

// StateEnvelope is the device API response wrapper
type StateEnvelope struct {
	MessageID string      `json:"messageId"`
	Timestamp string      `json:"timestamp"`
	Response  DeviceState `json:"response"`
}

// DeviceState is the air conditioner state as reported by the device API
type DeviceState struct {
	AirConJobMode struct {
		CurrentJobMode string `json:"currentJobMode"`
	} `json:"airConJobMode"`
	Operation struct {
		AirConOperationMode   string `json:"airConOperationMode"`
		AirCleanOperationMode string `json:"airCleanOperationMode,omitempty"`
	} `json:"operation"`
	Temperature struct {
		CurrentTemperature *float64 `json:"currentTemperature"`
		TargetTemperature  *float64 `json:"targetTemperature"`
		Unit               string   `json:"unit"`
	} `json:"temperature"`
	AirFlow struct {
		WindStrength string `json:"windStrength"`
	} `json:"airFlow"`
	AirQualitySensor struct {
		PM1      *float64 `json:"PM1"`
		PM2      *float64 `json:"PM2"`
		PM10     *float64 `json:"PM10"`
		Humidity *float64 `json:"humidity"`
	} `json:"airQualitySensor"`
	FilterInfo struct {
		FilterRemainPercent *float64 `json:"filterRemainPercent"`
	} `json:"filterInfo"`
}

// ToModel flattens the device state for the mobile client
func (s *DeviceState) ToModel() *models.AirconState {
	unit := s.Temperature.Unit
	if unit == "" {
		unit = "C"
	}

	return &models.AirconState{
		PowerOn:            s.Operation.AirConOperationMode == PowerOn,
		CurrentTemperature: s.Temperature.CurrentTemperature,
		TargetTemperature:  s.Temperature.TargetTemperature,
		TemperatureUnit:    unit,
		JobMode:            s.AirConJobMode.CurrentJobMode,
		WindStrength:       s.AirFlow.WindStrength,
		AirQuality: models.AirQuality{
			PM1:      s.AirQualitySensor.PM1,
			PM2:      s.AirQualitySensor.PM2,
			PM10:     s.AirQualitySensor.PM10,
			Humidity: s.AirQualitySensor.Humidity,
		},
		FilterPercent: s.FilterInfo.FilterRemainPercent,
	}
}
