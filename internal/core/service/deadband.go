package service

import (
	"heatwarden2mqtt/internal/core/domain"
)

// Narrow band used while a room is still climbing to a new target, so
// small sensor noise near the threshold cannot turn heating off before
// the target has actually been reached once.
const MinimalDeadband = 0.1

// DeadbandController applies hysteresis to the per-room heating
// decision. Each room carries a target-reached latch: until the
// measured temperature touches the target the minimal deadband
// applies, afterwards the configured full deadband takes over.
type DeadbandController struct {
	states map[string]domain.DeadbandState
}

func NewDeadbandController() *DeadbandController {
	return &DeadbandController{states: map[string]domain.DeadbandState{}}
}

// Update evaluates the heating decision for one room and returns it
// alongside the updated state. A nil measured temperature means the
// room cannot demand heat.
func (c *DeadbandController) Update(key string, measured *float64, target, fullDeadband float64) (bool, domain.DeadbandState) {
	state, ok := c.states[key]
	if !ok || !state.Initialized {
		state = domain.DeadbandState{
			PreviousTarget: target,
			Initialized:    true,
		}
	}

	// A target change restarts the climb with the minimal band.
	if TargetChanged(target, state.PreviousTarget) {
		state.TargetReached = false
		state.PreviousTarget = target
	}

	if measured == nil {
		state.NeedsHeating = false
		c.states[key] = state
		return false, state
	}

	if !state.TargetReached && *measured >= target {
		state.TargetReached = true
	}

	deadband := MinimalDeadband
	if state.TargetReached {
		deadband = fullDeadband
	}

	state.NeedsHeating = *measured < target-deadband
	c.states[key] = state
	return state.NeedsHeating, state
}

func (c *DeadbandController) State(key string) (domain.DeadbandState, bool) {
	s, ok := c.states[key]
	return s, ok
}

func (c *DeadbandController) SnapshotState() map[string]domain.DeadbandState {
	out := make(map[string]domain.DeadbandState, len(c.states))
	for k, v := range c.states {
		out[k] = v
	}
	return out
}

func (c *DeadbandController) Restore(states map[string]domain.DeadbandState) {
	c.states = map[string]domain.DeadbandState{}
	for k, v := range states {
		c.states[k] = v
	}
}
