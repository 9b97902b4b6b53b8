package models

// AirQuality mirrors the air quality sensor block of the device state
type AirQuality struct {
	PM1      *float64 `json:"pm1"`
	PM2      *float64 `json:"pm2"`
	PM10     *float64 `json:"pm10"`
	Humidity *float64 `json:"humidity"`
}

// AirconState is the device state as consumed by the mobile client
type AirconState struct {
	PowerOn            bool       `json:"power_on"`
	CurrentTemperature *float64   `json:"current_temperature"`
	TargetTemperature  *float64   `json:"target_temperature"`
	TemperatureUnit    string     `json:"temperature_unit"`
	JobMode            string     `json:"job_mode"`
	WindStrength       string     `json:"wind_strength"`
	AirQuality         AirQuality `json:"air_quality"`
	FilterPercent      *float64   `json:"filter_percent"`
}

// AirconStateResponse wraps the relayed device state
type AirconStateResponse struct {
	Success  bool         `json:"success"`
	DeviceID string       `json:"device_id,omitempty"`
	State    *AirconState `json:"state,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// ControlRequest is one air conditioner command
type ControlRequest struct {
	Action            string   `json:"action" validate:"required"`
	TargetTemperature *float64 `json:"target_temperature,omitempty" validate:"required_if=Action set_temperature"`
	Unit              string   `json:"unit,omitempty" validate:"omitempty,oneof=C F"`
	Mode              string   `json:"mode,omitempty" validate:"required_if=Action set_mode"`
	Strength          string   `json:"strength,omitempty" validate:"required_if=Action set_wind_strength"`
	PowerOn           *bool    `json:"power_on,omitempty" validate:"required_if=Action set_power"`
}

// ControlResponse acknowledges a relayed command
type ControlResponse struct {
	Success bool   `json:"success"`
	Action  string `json:"action,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Supported control actions
const (
	ActionSetTemperature  = "set_temperature"
	ActionSetMode         = "set_mode"
	ActionSetWindStrength = "set_wind_strength"
	ActionSetPower        = "set_power"
)
