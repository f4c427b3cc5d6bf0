package config

import (
	"testing"

	"heatwarden2mqtt/internal/core/domain"

	"github.com/stretchr/testify/require"
)

func baseConfig() Config {
	return Config{
		Control: ControlConfig{
			FallbackMode:      "trv",
			HeatingDemandMode: "any_room",
			HeatingDeadband:   0.3,
		},
		Zones: map[string]ZoneConfig{
			"living": {
				Rooms: map[string]RoomConfig{
					"main": {
						Sensors: []any{
							"sensor/living",
							map[string]any{"temperature": "sensor/hall", "last_seen": "sensor/hall/last_seen"},
						},
						TRVs: []string{"trv/living"},
					},
				},
				Schedule: ScheduleConfig{
					Weekday: []PeriodConfig{
						{Start: "06:00", End: "22:00", Temperature: 20.0},
					},
				},
			},
		},
	}
}

func TestNormalizeZones(t *testing.T) {
	require := require.New(t)

	cfg := baseConfig()
	zones, err := cfg.NormalizeZones()
	require.NoError(err)
	require.Len(zones, 1)

	zone := zones[0]
	require.Equal("living", zone.ID)
	require.Equal(domain.DemandAnyRoom, zone.DemandMode)
	require.Equal(domain.FallbackTRV, zone.Fallback)
	require.Equal(0.3, zone.Deadband)

	require.Len(zone.Rooms, 1)
	room := zone.Rooms[0]
	require.Len(room.Sensors, 2)
	require.Equal(domain.SensorRef{TemperatureID: "sensor/living"}, room.Sensors[0])
	require.Equal(domain.SensorRef{TemperatureID: "sensor/hall", LastSeenID: "sensor/hall/last_seen"}, room.Sensors[1])

	require.Len(zone.Schedule.Weekday, 1)
	require.Equal(360, zone.Schedule.Weekday[0].StartMinutes)
	require.Equal(1320, zone.Schedule.Weekday[0].EndMinutes)
}

func TestNormalizeZonesPerZoneOverrides(t *testing.T) {
	require := require.New(t)

	deadband := 0.5
	cfg := baseConfig()
	zc := cfg.Zones["living"]
	zc.HeatingDemandMode = "zone_average"
	zc.HeatingDeadband = &deadband
	cfg.Zones["living"] = zc

	zones, err := cfg.NormalizeZones()
	require.NoError(err)
	require.Equal(domain.DemandZoneAverage, zones[0].DemandMode)
	require.Equal(0.5, zones[0].Deadband)
}

func TestNormalizeZonesRejectsOverlappingPeriods(t *testing.T) {
	require := require.New(t)

	cfg := baseConfig()
	zc := cfg.Zones["living"]
	zc.Schedule.Weekday = []PeriodConfig{
		{Start: "06:00", End: "12:00", Temperature: 20.0},
		{Start: "11:00", End: "22:00", Temperature: 19.0},
	}
	cfg.Zones["living"] = zc

	_, err := cfg.NormalizeZones()
	require.Error(err)
}

func TestNormalizeZonesRejectsBadDemandMode(t *testing.T) {
	require := require.New(t)

	cfg := baseConfig()
	zc := cfg.Zones["living"]
	zc.HeatingDemandMode = "all_rooms"
	cfg.Zones["living"] = zc

	_, err := cfg.NormalizeZones()
	require.Error(err)
}

func TestNormalizeZonesRejectsInvertedPeriod(t *testing.T) {
	require := require.New(t)

	cfg := baseConfig()
	zc := cfg.Zones["living"]
	zc.Schedule.Weekend = []PeriodConfig{
		{Start: "22:00", End: "06:00", Temperature: 18.0},
	}
	cfg.Zones["living"] = zc

	_, err := cfg.NormalizeZones()
	require.Error(err)
}

func TestParseTimeOfDay(t *testing.T) {
	require := require.New(t)

	v, err := ParseTimeOfDay("07:30")
	require.NoError(err)
	require.Equal(450, v)

	_, err = ParseTimeOfDay("24:00")
	require.Error(err)
	_, err = ParseTimeOfDay("0700")
	require.Error(err)
}
