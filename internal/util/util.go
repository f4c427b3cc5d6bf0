package util

import (
	"heatwarden2mqtt/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		MQTT: config.MQTTConfig{
			Host:      "localhost",
			Port:      1883,
			BaseTopic: "heatwarden",
		},
		Boiler: config.BoilerConfig{
			Enabled:    true,
			Host:       "-.-.-.-",
			Port:       502,
			UnitId:     1,
			DemandCoil: 0,
		},
		Control: config.ControlConfig{
			UpdateIntervalSeconds:  30,
			SensorTimeoutMinutes:   15,
			FallbackMode:           "trv",
			MinimumTemp:            5.0,
			FrostProtectionTemp:    7.0,
			HeatingDemandMode:      "any_room",
			HeatingDeadband:        0.3,
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
			HistorySize: 20,
			MinSamples:  5,
			Smoothing:   0.3,
		},
		Zones: map[string]config.ZoneConfig{
			"living": {
				Name: "Living zone",
				Rooms: map[string]config.RoomConfig{
					"main": {
						Name:    "Living room",
						Sensors: []any{"sensor/living"},
						TRVs:    []string{"trv/living"},
					},
				},
				Schedule: config.ScheduleConfig{
					Weekday: []config.PeriodConfig{
						{Start: "06:00", End: "22:00", Temperature: 20.0},
					},
					Weekend: []config.PeriodConfig{
						{Start: "07:00", End: "23:00", Temperature: 20.5},
					},
				},
			},
		},
		StateFile: "data/state.json",
		Port:      8080,
	}
}
