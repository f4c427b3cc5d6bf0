package service

import (
	"heatwarden2mqtt/internal/core/domain"
)

const MaxSetpoint = 30.0

// SetpointCalculator turns a room target into the setpoint commanded
// to a TRV. When enabled and an offset is known it overdrives the
// valve proportionally to the room deficit so the radiator keeps
// flowing even though the valve's own sensor reads warm. With no
// learned offset or a missing room reading the target passes through
// unchanged apart from clamping.
type SetpointCalculator struct {
	enabled            bool
	overshootMax       float64
	overshootThreshold float64
	cooldownOffset     float64
	frostProtection    float64
	lastCommanded      map[string]float64
}

func NewSetpointCalculator(enabled bool, overshootMax, overshootThreshold, cooldownOffset, frostProtection float64) *SetpointCalculator {
	return &SetpointCalculator{
		enabled:            enabled,
		overshootMax:       overshootMax,
		overshootThreshold: overshootThreshold,
		cooldownOffset:     cooldownOffset,
		frostProtection:    frostProtection,
		lastCommanded:      map[string]float64{},
	}
}

// Compute derives the setpoint for one TRV. offset is the learned
// TRV-minus-room difference, roomTemp the resolved room temperature.
func (c *SetpointCalculator) Compute(target float64, roomTemp, offset *float64) float64 {
	if !c.enabled || offset == nil || roomTemp == nil {
		return c.clamp(target)
	}

	// Room already warmer than wanted: command below target so the
	// valve closes, compensated so the valve sensor agrees.
	if *roomTemp >= target+c.overshootThreshold {
		return c.clamp(target - c.cooldownOffset + *offset)
	}

	deficit := target - *roomTemp
	var boost float64
	switch {
	case deficit > 3.0:
		boost = c.overshootMax
	case deficit > 1.5:
		boost = min(deficit*1.5, c.overshootMax)
	case deficit > 0.5:
		boost = 1.5
	default:
		boost = 0.5
	}
	return c.clamp(target + boost + *offset)
}

func (c *SetpointCalculator) clamp(v float64) float64 {
	if v < c.frostProtection {
		return c.frostProtection
	}
	if v > MaxSetpoint {
		return MaxSetpoint
	}
	return v
}

// RecordCommand remembers the setpoint last sent to a TRV, which the
// manual override detector compares against the reported one.
func (c *SetpointCalculator) RecordCommand(trvID string, setpoint float64) {
	c.lastCommanded[trvID] = setpoint
}

func (c *SetpointCalculator) LastCommanded(trvID string) *float64 {
	v, ok := c.lastCommanded[trvID]
	if !ok {
		return nil
	}
	return &v
}

// Command builds the setpoint command for one TRV and records it.
func (c *SetpointCalculator) Command(zoneID, roomID, trvID string, target float64, roomTemp, offset *float64) domain.SetpointCommand {
	sp := c.Compute(target, roomTemp, offset)
	c.RecordCommand(trvID, sp)
	return domain.SetpointCommand{
		ZoneID:   zoneID,
		RoomID:   roomID,
		TRVID:    trvID,
		Setpoint: sp,
	}
}
