package service

import (
	"time"

	"go.uber.org/zap"
)

const (
	MIN_VALID_TEMP = -20.0
	MAX_VALID_TEMP = 50.0
)

// TemperatureValidator rejects physically implausible sensor readings
// before they reach the control loop.
type TemperatureValidator struct {
	maxChangePerMin float64
	logger          *zap.Logger
}

func NewTemperatureValidator(maxChangePerMin float64, logger *zap.Logger) *TemperatureValidator {
	return &TemperatureValidator{
		maxChangePerMin: maxChangePerMin,
		logger:          logger,
	}
}

func (v *TemperatureValidator) InValidRange(temp float64) bool {
	if temp < MIN_VALID_TEMP || temp > MAX_VALID_TEMP {
		v.logger.Warn("temperature outside valid range",
			zap.Float64("temp", temp),
			zap.Float64("min", MIN_VALID_TEMP),
			zap.Float64("max", MAX_VALID_TEMP))
		return false
	}
	return true
}

// PlausibleChange checks the rate of change against the configured
// maximum. A first reading (no previous value) is always plausible.
func (v *TemperatureValidator) PlausibleChange(current, previous float64, elapsed time.Duration) bool {
	if elapsed <= 0 {
		v.logger.Warn("invalid time delta for plausibility check", zap.Duration("elapsed", elapsed))
		return false
	}
	maxChange := v.maxChangePerMin * elapsed.Minutes()
	actual := current - previous
	if actual < 0 {
		actual = -actual
	}
	if actual > maxChange {
		v.logger.Warn("implausible temperature change",
			zap.Float64("change", actual),
			zap.Float64("max_change", maxChange),
			zap.Duration("elapsed", elapsed))
		return false
	}
	return true
}
