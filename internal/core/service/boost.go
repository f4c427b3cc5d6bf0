package service

import (
	"errors"
	"time"

	"heatwarden2mqtt/internal/core/domain"

	"go.uber.org/zap"
)

// Temperature added over the current room temperature when a boost is
// requested without an explicit target.
const DefaultBoostIncrease = 2.0

var ErrRoomTempUnresolved = errors.New("room temperature unresolved, cannot derive boost temperature")

// BoostManager tracks temporary per-room target overrides. Expiry is
// lazy: expired entries are dropped the first time they are read past
// their end time, there is no timer.
type BoostManager struct {
	defaultDuration time.Duration
	boosts          map[string]domain.BoostState
	logger          *zap.Logger
}

func NewBoostManager(defaultDuration time.Duration, logger *zap.Logger) *BoostManager {
	return &BoostManager{
		defaultDuration: defaultDuration,
		boosts:          map[string]domain.BoostState{},
		logger:          logger,
	}
}

// Set places a boost on a room, replacing any existing one. When no
// temperature is given it is derived from the resolved room
// temperature; an unresolved room rejects the boost.
func (m *BoostManager) Set(zoneID, roomID string, duration *time.Duration, temperature, roomTemp *float64, now time.Time) (domain.BoostState, error) {
	d := m.defaultDuration
	if duration != nil {
		d = *duration
	}
	if d <= 0 {
		return domain.BoostState{}, errors.New("boost duration must be positive")
	}

	var temp float64
	if temperature != nil {
		temp = *temperature
	} else {
		if roomTemp == nil {
			return domain.BoostState{}, ErrRoomTempUnresolved
		}
		temp = *roomTemp + DefaultBoostIncrease
	}

	boost := domain.BoostState{
		Temperature: temp,
		CreatedAt:   now,
		Duration:    d,
	}
	m.boosts[domain.RoomKey(zoneID, roomID)] = boost
	m.logger.Info("boost set",
		zap.String("zone", zoneID),
		zap.String("room", roomID),
		zap.Float64("temperature", temp),
		zap.Duration("duration", d))
	return boost, nil
}

// Effective returns the active boost for a room, or nil. Expired
// boosts are removed on read.
func (m *BoostManager) Effective(zoneID, roomID string, now time.Time) *domain.BoostState {
	key := domain.RoomKey(zoneID, roomID)
	boost, ok := m.boosts[key]
	if !ok {
		return nil
	}
	if boost.Expired(now) {
		delete(m.boosts, key)
		m.logger.Debug("boost expired",
			zap.String("zone", zoneID),
			zap.String("room", roomID))
		return nil
	}
	return &boost
}

func (m *BoostManager) Clear(zoneID, roomID string) bool {
	key := domain.RoomKey(zoneID, roomID)
	if _, ok := m.boosts[key]; !ok {
		return false
	}
	delete(m.boosts, key)
	m.logger.Info("boost cleared",
		zap.String("zone", zoneID),
		zap.String("room", roomID))
	return true
}

func (m *BoostManager) SnapshotState() map[string]domain.BoostState {
	out := make(map[string]domain.BoostState, len(m.boosts))
	for k, v := range m.boosts {
		out[k] = v
	}
	return out
}

// Restore loads persisted boosts, dropping the ones that expired while
// the process was down.
func (m *BoostManager) Restore(boosts map[string]domain.BoostState, now time.Time) {
	m.boosts = map[string]domain.BoostState{}
	for k, v := range boosts {
		if !v.Expired(now) {
			m.boosts[k] = v
		}
	}
}
