package config

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"heatwarden2mqtt/internal/core/domain"

	"go.uber.org/zap/zapcore"
)

type Config struct {
	LogLevel zapcore.Level
	MQTT     MQTTConfig   `mapstructure:"mqtt"`
	Boiler   BoilerConfig `mapstructure:"boiler"`

	Control   ControlConfig         `mapstructure:"control"`
	Analytics AnalyticsConfig       `mapstructure:"analytics"`
	Zones     map[string]ZoneConfig `mapstructure:"zones"`

	StateFile string `mapstructure:"state_file"`
	Port      uint   `mapstructure:"port"`
	HttpLog   bool   `mapstructure:"http_log"`
}

type MQTTConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

type BoilerConfig struct {
	Enabled    bool
	Host       string
	Port       uint
	UnitId     uint `mapstructure:"unit_id"`
	DemandCoil uint `mapstructure:"demand_coil"`
}

type ControlConfig struct {
	UpdateIntervalSeconds  uint32  `mapstructure:"update_interval"`
	SensorTimeoutMinutes   uint32  `mapstructure:"sensor_timeout_minutes"`
	FallbackMode           string  `mapstructure:"fallback_mode"`
	MinimumTemp            float64 `mapstructure:"minimum_temp"`
	FrostProtectionTemp    float64 `mapstructure:"frost_protection_temp"`
	HeatingDemandMode      string  `mapstructure:"heating_demand_mode"`
	HeatingDeadband        float64 `mapstructure:"heating_deadband"`
	BoostDurationMinutes   uint32  `mapstructure:"boost_duration"`
	TRVOvershootEnabled    bool    `mapstructure:"trv_overshoot_enabled"`
	TRVOvershootMax        float64 `mapstructure:"trv_overshoot_max"`
	TRVOvershootThreshold  float64 `mapstructure:"trv_overshoot_threshold"`
	TRVCooldownOffset      float64 `mapstructure:"trv_cooldown_offset"`
	TRVOffsetEMAAlpha      float64 `mapstructure:"trv_offset_ema_alpha"`
	MaxTempChangePerMinute float64 `mapstructure:"max_temp_change_per_minute"`
}

type AnalyticsConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	HistorySize int     `mapstructure:"history_size"`
	MinSamples  int     `mapstructure:"min_samples"`
	Smoothing   float64 `mapstructure:"derivative_smoothing_factor"`
}

type ZoneConfig struct {
	Name     string                `mapstructure:"name"`
	Rooms    map[string]RoomConfig `mapstructure:"rooms"`
	Schedule ScheduleConfig        `mapstructure:"schedule"`

	// Optional per-zone overrides of the global control settings.
	HeatingDemandMode string   `mapstructure:"heating_demand_mode"`
	HeatingDeadband   *float64 `mapstructure:"heating_deadband"`
	FallbackMode      string   `mapstructure:"fallback_mode"`
}

type RoomConfig struct {
	Name                 string   `mapstructure:"name"`
	Sensors              []any    `mapstructure:"sensors"`
	TRVs                 []string `mapstructure:"trvs"`
	IgnoreManualOverride bool     `mapstructure:"ignore_manual_override"`
}

type ScheduleConfig struct {
	Weekday []PeriodConfig `mapstructure:"weekday"`
	Weekend []PeriodConfig `mapstructure:"weekend"`
}

type PeriodConfig struct {
	Start       string  `mapstructure:"start"`
	End         string  `mapstructure:"end"`
	Temperature float64 `mapstructure:"temperature"`
}

func (c *Config) UpdateInterval() time.Duration {
	return time.Duration(c.Control.UpdateIntervalSeconds) * time.Second
}

func (c *Config) SensorTimeout() time.Duration {
	return time.Duration(c.Control.SensorTimeoutMinutes) * time.Minute
}

func (c *Config) BoostDuration() time.Duration {
	return time.Duration(c.Control.BoostDurationMinutes) * time.Minute
}

// NormalizeZones validates the zone/room/schedule configuration and
// converts it into the domain model the engine consumes. All reference
// and schedule errors are reported here, at startup; the tick loop
// never revalidates.
func (c *Config) NormalizeZones() ([]domain.Zone, error) {
	if len(c.Zones) == 0 {
		return nil, errors.New("config contains no zones")
	}

	zoneIDs := make([]string, 0, len(c.Zones))
	for id := range c.Zones {
		zoneIDs = append(zoneIDs, id)
	}
	sort.Strings(zoneIDs)

	zones := make([]domain.Zone, 0, len(zoneIDs))
	for _, zoneID := range zoneIDs {
		zc := c.Zones[zoneID]
		zone, err := c.normalizeZone(zoneID, zc)
		if err != nil {
			return nil, err
		}
		zones = append(zones, zone)
	}
	return zones, nil
}

func (c *Config) normalizeZone(zoneID string, zc ZoneConfig) (domain.Zone, error) {
	if len(zc.Rooms) == 0 {
		return domain.Zone{}, fmt.Errorf("zone %s has no rooms", zoneID)
	}

	demandMode := zc.HeatingDemandMode
	if demandMode == "" {
		demandMode = c.Control.HeatingDemandMode
	}
	if err := checkDemandMode(demandMode); err != nil {
		return domain.Zone{}, fmt.Errorf("zone %s: %w", zoneID, err)
	}

	fallback := zc.FallbackMode
	if fallback == "" {
		fallback = c.Control.FallbackMode
	}
	if err := checkFallbackMode(fallback); err != nil {
		return domain.Zone{}, fmt.Errorf("zone %s: %w", zoneID, err)
	}

	deadband := c.Control.HeatingDeadband
	if zc.HeatingDeadband != nil {
		deadband = *zc.HeatingDeadband
	}
	if deadband <= 0 {
		return domain.Zone{}, fmt.Errorf("zone %s: heating_deadband must be > 0", zoneID)
	}

	schedule, err := normalizeSchedule(zoneID, zc.Schedule)
	if err != nil {
		return domain.Zone{}, err
	}

	name := zc.Name
	if name == "" {
		name = zoneID
	}

	roomIDs := make([]string, 0, len(zc.Rooms))
	for id := range zc.Rooms {
		roomIDs = append(roomIDs, id)
	}
	sort.Strings(roomIDs)

	rooms := make([]domain.Room, 0, len(roomIDs))
	for _, roomID := range roomIDs {
		room, err := normalizeRoom(zoneID, roomID, zc.Rooms[roomID])
		if err != nil {
			return domain.Zone{}, err
		}
		rooms = append(rooms, room)
	}

	return domain.Zone{
		ID:         zoneID,
		Name:       name,
		Rooms:      rooms,
		Schedule:   schedule,
		DemandMode: domain.DemandMode(demandMode),
		Deadband:   deadband,
		Fallback:   domain.FallbackMode(fallback),
	}, nil
}

func normalizeRoom(zoneID, roomID string, rc RoomConfig) (domain.Room, error) {
	sensors := make([]domain.SensorRef, 0, len(rc.Sensors))
	for _, raw := range rc.Sensors {
		ref, err := normalizeSensorRef(raw)
		if err != nil {
			return domain.Room{}, fmt.Errorf("zone %s room %s: %w", zoneID, roomID, err)
		}
		sensors = append(sensors, ref)
	}

	for _, trv := range rc.TRVs {
		if strings.TrimSpace(trv) == "" {
			return domain.Room{}, fmt.Errorf("zone %s room %s: empty trv id", zoneID, roomID)
		}
	}

	name := rc.Name
	if name == "" {
		name = roomID
	}

	return domain.Room{
		ID:                   roomID,
		Name:                 name,
		ZoneID:               zoneID,
		Sensors:              sensors,
		TRVs:                 rc.TRVs,
		IgnoreManualOverride: rc.IgnoreManualOverride,
	}, nil
}

// normalizeSensorRef accepts the two configured sensor shapes: a bare
// entity id, or {temperature: id, last_seen: id}.
func normalizeSensorRef(raw any) (domain.SensorRef, error) {
	switch v := raw.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return domain.SensorRef{}, errors.New("empty sensor id")
		}
		return domain.SensorRef{TemperatureID: v}, nil
	case map[string]any:
		tempID, _ := v["temperature"].(string)
		if strings.TrimSpace(tempID) == "" {
			return domain.SensorRef{}, fmt.Errorf("sensor entry %v has no temperature id", v)
		}
		lastSeenID, _ := v["last_seen"].(string)
		return domain.SensorRef{TemperatureID: tempID, LastSeenID: lastSeenID}, nil
	default:
		return domain.SensorRef{}, fmt.Errorf("invalid sensor entry of type %T", raw)
	}
}

func normalizeSchedule(zoneID string, sc ScheduleConfig) (domain.Schedule, error) {
	weekday, err := normalizePeriods(zoneID, "weekday", sc.Weekday)
	if err != nil {
		return domain.Schedule{}, err
	}
	weekend, err := normalizePeriods(zoneID, "weekend", sc.Weekend)
	if err != nil {
		return domain.Schedule{}, err
	}
	return domain.Schedule{Weekday: weekday, Weekend: weekend}, nil
}

func normalizePeriods(zoneID, day string, periods []PeriodConfig) ([]domain.SchedulePeriod, error) {
	out := make([]domain.SchedulePeriod, 0, len(periods))
	for _, p := range periods {
		start, err := ParseTimeOfDay(p.Start)
		if err != nil {
			return nil, fmt.Errorf("zone %s %s period start %q: %w", zoneID, day, p.Start, err)
		}
		end, err := ParseTimeOfDay(p.End)
		if err != nil {
			return nil, fmt.Errorf("zone %s %s period end %q: %w", zoneID, day, p.End, err)
		}
		if end <= start {
			return nil, fmt.Errorf("zone %s %s period %s-%s: end must be after start", zoneID, day, p.Start, p.End)
		}
		out = append(out, domain.SchedulePeriod{
			StartMinutes: start,
			EndMinutes:   end,
			Target:       p.Temperature,
		})
	}
	// pairwise overlap check, list order is preserved
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[i].StartMinutes < out[j].EndMinutes && out[j].StartMinutes < out[i].EndMinutes {
				return nil, fmt.Errorf("zone %s %s schedule: periods %d and %d overlap", zoneID, day, i, j)
			}
		}
	}
	return out, nil
}

// ParseTimeOfDay parses "HH:MM" into minutes since midnight.
func ParseTimeOfDay(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, errors.New("expected HH:MM")
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, errors.New("invalid hour")
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, errors.New("invalid minute")
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, errors.New("time of day out of range")
	}
	return h*60 + m, nil
}

func checkFallbackMode(mode string) error {
	switch domain.FallbackMode(mode) {
	case domain.FallbackZoneAverage, domain.FallbackTRV, domain.FallbackLastKnown:
		return nil
	}
	return fmt.Errorf("invalid fallback_mode %q", mode)
}

func checkDemandMode(mode string) error {
	switch domain.DemandMode(mode) {
	case domain.DemandAnyRoom, domain.DemandZoneAverage:
		return nil
	}
	return fmt.Errorf("invalid heating_demand_mode %q", mode)
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}
