package service

import (
	"time"

	"heatwarden2mqtt/internal/core/domain"
)

// OffsetLearner tracks, per TRV, the exponential moving average of the
// difference between the TRV internal sensor and the room sensor. The
// offset compensates for the valve sitting close to the radiator and
// reading warmer than the room.
type OffsetLearner struct {
	alpha   float64
	offsets map[string]domain.OffsetState
}

func NewOffsetLearner(alpha float64) *OffsetLearner {
	return &OffsetLearner{
		alpha:   alpha,
		offsets: map[string]domain.OffsetState{},
	}
}

// Observe feeds one paired sample into the EMA. Ticks where either
// reading is missing are skipped, the average is not decayed.
func (l *OffsetLearner) Observe(trvID string, trvTemp, roomTemp *float64, now time.Time) {
	if trvTemp == nil || roomTemp == nil {
		return
	}
	diff := *trvTemp - *roomTemp
	state := l.offsets[trvID]
	if !state.Initialized {
		state.EMA = diff
		state.Initialized = true
	} else {
		state.EMA = l.alpha*diff + (1-l.alpha)*state.EMA
	}
	state.UpdatedAt = now
	l.offsets[trvID] = state
}

// Current returns the learned offset for a TRV, or nil when no sample
// has ever been observed.
func (l *OffsetLearner) Current(trvID string) *float64 {
	state, ok := l.offsets[trvID]
	if !ok || !state.Initialized {
		return nil
	}
	v := state.EMA
	return &v
}

func (l *OffsetLearner) SnapshotState() map[string]domain.OffsetState {
	out := make(map[string]domain.OffsetState, len(l.offsets))
	for k, v := range l.offsets {
		out[k] = v
	}
	return out
}

func (l *OffsetLearner) Restore(offsets map[string]domain.OffsetState) {
	l.offsets = map[string]domain.OffsetState{}
	for k, v := range offsets {
		l.offsets[k] = v
	}
}
