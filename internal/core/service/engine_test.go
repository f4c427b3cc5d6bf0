package service

import (
	"testing"
	"time"

	"heatwarden2mqtt/internal/config"
	"heatwarden2mqtt/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func engineConfig() *config.Config {
	return &config.Config{
		Control: config.ControlConfig{
			UpdateIntervalSeconds:  30,
			SensorTimeoutMinutes:   15,
			FallbackMode:           "zone_average",
			MinimumTemp:            16.0,
			FrostProtectionTemp:    7.0,
			HeatingDemandMode:      "any_room",
			HeatingDeadband:        0.5,
			BoostDurationMinutes:   30,
			TRVOvershootEnabled:    true,
			TRVOvershootMax:        5.0,
			TRVOvershootThreshold:  0.3,
			TRVCooldownOffset:      1.0,
			TRVOffsetEMAAlpha:      0.15,
			MaxTempChangePerMinute: 2.0,
		},
		Analytics: config.AnalyticsConfig{
			Enabled:     true,
			HistorySize: 30,
			MinSamples:  3,
			Smoothing:   0.3,
		},
	}
}

func engineZones() []domain.Zone {
	return []domain.Zone{
		{
			ID:         "living",
			Name:       "Living",
			DemandMode: domain.DemandAnyRoom,
			Deadband:   0.5,
			Fallback:   domain.FallbackZoneAverage,
			Schedule: domain.Schedule{
				Weekday: []domain.SchedulePeriod{
					{StartMinutes: 0, EndMinutes: 24 * 60, Target: 20},
				},
				Weekend: []domain.SchedulePeriod{
					{StartMinutes: 0, EndMinutes: 24 * 60, Target: 20},
				},
			},
			Rooms: []domain.Room{
				{
					ID:      "main",
					Name:    "Main",
					ZoneID:  "living",
					Sensors: []domain.SensorRef{{TemperatureID: "sensor/living"}},
					TRVs:    []string{"trv/living"},
				},
			},
		},
	}
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e := NewEngine(engineConfig(), engineZones(), zap.NewNop())
	t.Cleanup(e.Close)
	return e
}

func engineSnapshot(now time.Time, roomTemp, trvTemp, trvSetpoint float64) domain.Snapshot {
	return snapAt(now, map[string]domain.EntityState{
		"sensor/living":          entity(roomTemp, now),
		"trv/living/temperature": entity(trvTemp, now),
		"trv/living/setpoint":    entity(trvSetpoint, now),
	})
}

func TestTickColdRoomDemandsHeat(t *testing.T) {

	require := require.New(t)
	e := newTestEngine(t)
	now := time.Now()

	result := e.Tick(engineSnapshot(now, 18.0, 19.0, 20.0))

	require.Len(result.Zones, 1)
	room := result.Zones[0].Rooms[0]
	require.True(room.NeedsHeating)
	require.Equal(20.0, room.EffectiveTarget)
	require.Equal(TargetSourceSchedule, room.TargetSource)
	require.True(result.Zones[0].HeatingDemand)
	require.True(result.Global.HeatingDemand)
	require.Equal(1, result.Global.ZonesDemanding)
}

func TestTickWarmRoomNoDemand(t *testing.T) {

	require := require.New(t)
	e := newTestEngine(t)
	now := time.Now()

	result := e.Tick(engineSnapshot(now, 21.0, 22.0, 20.0))

	room := result.Zones[0].Rooms[0]
	require.False(room.NeedsHeating)
	require.False(result.Global.HeatingDemand)
}

func TestTickEmitsSetpointCommand(t *testing.T) {

	require := require.New(t)
	e := newTestEngine(t)
	now := time.Now()

	// trv reads 1 degree warm, room 1 degree short: deficit boost 1.5
	// plus offset 1.0 on top of target 20
	result := e.Tick(engineSnapshot(now, 19.0, 20.0, 20.0))

	require.Len(result.Commands, 1)
	cmd := result.Commands[0]
	require.Equal("trv/living", cmd.TRVID)
	require.InDelta(22.5, cmd.Setpoint, 1e-9)

	info := result.Zones[0].Rooms[0].TRVs[0]
	require.NotNil(info.LearnedOffset)
	require.InDelta(1.0, *info.LearnedOffset, 1e-9)
}

func TestTickSkipsCommandWhenSetpointMatches(t *testing.T) {

	require := require.New(t)
	e := newTestEngine(t)
	now := time.Now()

	// reported setpoint already equals what would be commanded
	result := e.Tick(engineSnapshot(now, 19.0, 20.0, 22.5))
	require.Empty(result.Commands)
}

func TestAwayModeForcesFrostProtection(t *testing.T) {

	require := require.New(t)
	e := newTestEngine(t)
	now := time.Now()

	require.NoError(e.SetMode(domain.ModeAway))
	result := e.Tick(engineSnapshot(now, 18.0, 19.0, 20.0))

	room := result.Zones[0].Rooms[0]
	require.Equal(7.0, room.EffectiveTarget)
	require.Equal(TargetSourceAway, room.TargetSource)
	require.False(room.NeedsHeating)
	require.Equal(domain.ModeAway, result.Global.Mode)
}

func TestSetModeRejectsUnknown(t *testing.T) {

	assert := assert.New(t)
	e := newTestEngine(t)

	assert.Error(e.SetMode(domain.GlobalMode("party")))
	assert.Equal(domain.ModeSchedule, e.Mode())
}

func TestBoostOverridesSchedule(t *testing.T) {

	require := require.New(t)
	e := newTestEngine(t)
	now := time.Now()
	snap := engineSnapshot(now, 20.2, 21.0, 20.0)

	boost, err := e.SetBoost("living", "main", nil, f(23.0), snap)
	require.NoError(err)
	require.Equal(23.0, boost.Temperature)

	result := e.Tick(snap)
	room := result.Zones[0].Rooms[0]
	require.Equal(23.0, room.EffectiveTarget)
	require.Equal(TargetSourceBoost, room.TargetSource)
	require.NotNil(room.Boost)
	require.True(result.Zones[0].HeatingDemand)
	require.Contains(result.Zones[0].BoostedRooms, "main")
}

func TestBoostDerivedFromRoomTemperature(t *testing.T) {

	require := require.New(t)
	e := newTestEngine(t)
	now := time.Now()
	snap := engineSnapshot(now, 19.0, 20.0, 20.0)

	boost, err := e.SetBoost("living", "main", nil, nil, snap)
	require.NoError(err)
	require.Equal(21.0, boost.Temperature)
}

func TestBoostExpiresDuringTick(t *testing.T) {

	require := require.New(t)
	e := newTestEngine(t)
	now := time.Now()
	snap := engineSnapshot(now, 20.0, 21.0, 20.0)

	d := 10 * time.Minute
	_, err := e.SetBoost("living", "main", &d, f(23.0), snap)
	require.NoError(err)

	later := engineSnapshot(now.Add(15*time.Minute), 20.0, 21.0, 20.0)
	result := e.Tick(later)
	room := result.Zones[0].Rooms[0]
	require.Equal(TargetSourceSchedule, room.TargetSource)
	require.Nil(room.Boost)
}

func TestClearBoost(t *testing.T) {

	require := require.New(t)
	e := newTestEngine(t)
	now := time.Now()
	snap := engineSnapshot(now, 20.0, 21.0, 20.0)

	cleared, err := e.ClearBoost("living", "main")
	require.NoError(err)
	require.False(cleared)

	_, err = e.SetBoost("living", "main", nil, f(23.0), snap)
	require.NoError(err)
	cleared, err = e.ClearBoost("living", "main")
	require.NoError(err)
	require.True(cleared)

	_, err = e.ClearBoost("living", "nope")
	require.Error(err)
}

func TestManualZoneTemperature(t *testing.T) {

	require := require.New(t)
	e := newTestEngine(t)
	now := time.Now()

	require.NoError(e.SetZoneTemperature("living", 22.0, now))
	result := e.Tick(engineSnapshot(now, 20.0, 21.0, 20.0))
	room := result.Zones[0].Rooms[0]
	require.Equal(22.0, room.EffectiveTarget)
	require.Equal(TargetSourceManual, room.TargetSource)

	require.Error(e.SetZoneTemperature("nope", 22.0, now))
	require.Error(e.SetZoneTemperature("living", 45.0, now))
}

func TestManualOverrideSuppressesCommands(t *testing.T) {

	require := require.New(t)
	e := newTestEngine(t)
	now := time.Now()

	// first tick commands a setpoint
	result := e.Tick(engineSnapshot(now, 19.0, 20.0, 20.0))
	require.Len(result.Commands, 1)

	// the valve now reports something far from what was commanded
	result = e.Tick(engineSnapshot(now.Add(time.Minute), 19.0, 20.0, 25.0))
	require.Empty(result.Commands)
	room := result.Zones[0].Rooms[0]
	require.True(room.ManualOverride)
	require.True(room.TRVs[0].ManualOverride)
}

func TestIgnoreManualOverride(t *testing.T) {

	require := require.New(t)
	e := newTestEngine(t)
	now := time.Now()

	require.NoError(e.SetIgnoreManualOverride("living", "main", true))

	e.Tick(engineSnapshot(now, 19.0, 20.0, 20.0))
	result := e.Tick(engineSnapshot(now.Add(time.Minute), 19.0, 20.0, 25.0))

	require.False(result.Zones[0].Rooms[0].ManualOverride)
	require.NotEmpty(result.Commands)
}

func TestPersistRoundTrip(t *testing.T) {

	require := require.New(t)
	e := newTestEngine(t)
	now := time.Now()
	snap := engineSnapshot(now, 19.0, 20.0, 20.0)

	require.NoError(e.SetMode(domain.ModeAway))
	require.NoError(e.SetMode(domain.ModeSchedule))
	_, err := e.SetBoost("living", "main", nil, f(23.0), snap)
	require.NoError(err)
	e.Tick(snap)

	state := e.PersistedState()
	require.Contains(state.Boosts, "living/main")
	require.Contains(state.Offsets, "trv/living")
	require.Contains(state.Deadband, "living/main")

	restored := NewEngine(engineConfig(), engineZones(), zap.NewNop())
	defer restored.Close()
	restored.Restore(state, now)

	require.Equal(domain.ModeSchedule, restored.Mode())
	result := restored.Tick(snap)
	room := result.Zones[0].Rooms[0]
	require.Equal(TargetSourceBoost, room.TargetSource)
	require.True(restored.Dirty())
}

func TestDirtyTracking(t *testing.T) {

	assert := assert.New(t)
	e := newTestEngine(t)
	now := time.Now()

	e.Restore(domain.NewPersistedState(), now)
	assert.False(e.Dirty())

	e.Tick(engineSnapshot(now, 19.0, 20.0, 20.0))
	assert.True(e.Dirty())

	e.MarkPersisted()
	assert.False(e.Dirty())
}
