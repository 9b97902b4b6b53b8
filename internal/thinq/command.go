package thinq

import (
	"strings"

	"thermal-backend/internal/models"
	apperrors "thermal-backend/pkg/errors"
)

// Operation modes
const (
	PowerOn  = "POWER_ON"
	PowerOff = "POWER_OFF"
)

// Command is a device control body, e.g. {"airFlow":{"windStrength":"HIGH"}}
type Command map[string]interface{}

var jobModeAliases = map[string]string{
	"냉방":   "COOL",
	"제습":   "AIR_DRY",
	"공기청정": "AIR_CLEAN",
	"자동":   "AUTO",
}

var windStrengthAliases = map[string]string{
	"강":  "HIGH",
	"중":  "MID",
	"약":  "LOW",
	"자동": "AUTO",
}

// JobMode resolves a Korean alias or passes an English mode through upper-cased
func JobMode(mode string) string {
	return resolve(jobModeAliases, mode)
}

// WindStrength resolves a Korean alias or passes an English strength through upper-cased
func WindStrength(strength string) string {
	return resolve(windStrengthAliases, strength)
}

func resolve(aliases map[string]string, v string) string {
	v = strings.TrimSpace(v)
	if mapped, ok := aliases[v]; ok {
		return mapped
	}
	return strings.ToUpper(v)
}

// BuildCommand translates a control request into a device command body
func BuildCommand(req models.ControlRequest) (Command, error) {
	switch req.Action {
	case models.ActionSetTemperature:
		if req.TargetTemperature == nil {
			return nil, apperrors.MissingField("target_temperature")
		}
		unit := strings.ToUpper(req.Unit)
		if unit == "" {
			unit = "C"
		}
		return Command{
			"temperature": map[string]interface{}{
				"targetTemperature": *req.TargetTemperature,
				"unit":              unit,
			},
		}, nil

	case models.ActionSetMode:
		if req.Mode == "" {
			return nil, apperrors.MissingField("mode")
		}
		return Command{
			"airConJobMode": map[string]interface{}{
				"currentJobMode": JobMode(req.Mode),
			},
		}, nil

	case models.ActionSetWindStrength:
		if req.Strength == "" {
			return nil, apperrors.MissingField("strength")
		}
		return Command{
			"airFlow": map[string]interface{}{
				"windStrength": WindStrength(req.Strength),
			},
		}, nil

	case models.ActionSetPower:
		if req.PowerOn == nil {
			return nil, apperrors.MissingField("power_on")
		}
		mode := PowerOff
		if *req.PowerOn {
			mode = PowerOn
		}
		return Command{
			"operation": map[string]interface{}{
				"airConOperationMode": mode,
			},
		}, nil
	}

	return nil, &apperrors.UnsupportedActionError{Action: req.Action}
}
