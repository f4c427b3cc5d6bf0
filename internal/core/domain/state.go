package domain

import "time"

// SensorStatus describes why a sensor did or did not contribute to a
// room temperature on a given tick.
type SensorStatus string

const (
	SensorActive      SensorStatus = "active"
	SensorTimeout     SensorStatus = "timeout"
	SensorUnavailable SensorStatus = "unavailable"
	SensorInvalid     SensorStatus = "invalid"
)

// Temperature sources reported per room.
const (
	SourceLocalSensors = "local_sensors"
	SourceZoneAverage  = "zone_average"
	SourceTRV          = "trv"
	SourceLastKnown    = "last_known"
	SourceUnavailable  = "unavailable"
)

// Last-seen timestamp sources per sensor.
const (
	LastSeenDedicatedSensor = "dedicated_sensor"
	LastSeenStateUpdated    = "state_last_updated"
)

type SensorReading struct {
	EntityID       string
	Value          *float64
	LastSeen       *time.Time
	LastSeenSource string
	Status         SensorStatus
}

// TemperatureReading is the resolved temperature of a room. Value is
// nil when resolution failed entirely.
type TemperatureReading struct {
	Value    *float64
	Source   string
	Sensors  []SensorReading
	LastSeen *time.Time
}

// BoostState is a temporary per-room target override. It expires
// lazily: reads past CreatedAt+Duration treat it as absent.
type BoostState struct {
	Temperature float64       `json:"temperature"`
	CreatedAt   time.Time     `json:"created_at"`
	Duration    time.Duration `json:"duration"`
}

func (b BoostState) EndTime() time.Time {
	return b.CreatedAt.Add(b.Duration)
}

func (b BoostState) Expired(now time.Time) bool {
	return !now.Before(b.EndTime())
}

// DeadbandState is the per-room hysteresis state of the smart deadband
// state machine.
type DeadbandState struct {
	PreviousTarget float64 `json:"previous_target"`
	TargetReached  bool    `json:"target_reached"`
	NeedsHeating   bool    `json:"needs_heating"`
	Initialized    bool    `json:"initialized"`
}

// OffsetState is the learned sensor bias of one TRV: an exponential
// moving average of (trv internal temperature - room temperature).
type OffsetState struct {
	EMA         float64   `json:"ema"`
	Initialized bool      `json:"initialized"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ManualZoneTemp is a manual per-zone target that holds until the
// scheduled target next changes.
type ManualZoneTemp struct {
	Temperature       float64 `json:"temperature"`
	LastScheduledTemp float64 `json:"last_scheduled_temp"`
}

// EntityState is the last payload seen on an entity topic.
type EntityState struct {
	Value       string
	LastUpdated time.Time
}

// Snapshot is the consistent view of all entity states a tick computes
// from. It is immutable for the duration of the tick.
type Snapshot struct {
	Now      time.Time
	Entities map[string]EntityState
}

func (s Snapshot) Get(id string) (EntityState, bool) {
	e, ok := s.Entities[id]
	return e, ok
}

// SetpointCommand is a commanded TRV setpoint produced by a tick.
type SetpointCommand struct {
	ZoneID   string
	RoomID   string
	TRVID    string
	Setpoint float64
}

// TRVInfo is diagnostic per-TRV data exposed on room results.
type TRVInfo struct {
	TRVID             string
	InternalTemp      *float64
	CurrentOffset     *float64
	LearnedOffset     *float64
	ReportedSetpoint  *float64
	CommandedSetpoint *float64
	ManualOverride    bool
}

// AnalyticsData is the heating performance estimate for a room.
type AnalyticsData struct {
	HeatingRate *float64 `json:"heating_rate"` // degC per hour
	CoolingRate *float64 `json:"cooling_rate"`
	ETAMinutes  *int     `json:"eta_minutes"`
	Confidence  float64  `json:"confidence"`
	Samples     int      `json:"samples_count"`
	Trend       string   `json:"trend"`
}

type RoomResult struct {
	ZoneID            string
	RoomID            string
	Name              string
	Temperature       *float64
	TemperatureSource string
	SensorsStatus     []SensorReading
	EffectiveTarget   float64
	TargetSource      string // away, boost, manual, schedule
	NeedsHeating      bool
	Boost             *BoostState
	TRVs              []TRVInfo
	ManualOverride    bool
	Analytics         *AnalyticsData
}

type ZoneResult struct {
	ZoneID           string
	Name             string
	Rooms            []RoomResult
	HeatingDemand    bool
	DemandMode       DemandMode
	RoomsNeedingHeat []string
	BoostedRooms     []string
}

type GlobalResult struct {
	HeatingDemand    bool
	Mode             GlobalMode
	TotalZones       int
	ZonesDemanding   int
	ZonesNeedingHeat []string
	RoomsNeedingHeat []string
	BoostedRooms     []string
}

// TickResult is everything one engine pass produces.
type TickResult struct {
	Zones    []ZoneResult
	Global   GlobalResult
	Commands []SetpointCommand
}

// PersistedState is the round-trippable engine state. Keys are
// "zone/room" for per-room maps and the TRV id for offsets.
type PersistedState struct {
	Mode           GlobalMode                `json:"mode"`
	Boosts         map[string]BoostState     `json:"boosts"`
	Offsets        map[string]OffsetState    `json:"offsets"`
	Deadband       map[string]DeadbandState  `json:"deadband"`
	ManualZoneTemp map[string]ManualZoneTemp `json:"manual_zone_temp"`
}

func NewPersistedState() PersistedState {
	return PersistedState{
		Mode:           ModeSchedule,
		Boosts:         map[string]BoostState{},
		Offsets:        map[string]OffsetState{},
		Deadband:       map[string]DeadbandState{},
		ManualZoneTemp: map[string]ManualZoneTemp{},
	}
}

// RoomKey builds the "zone/room" key used by per-room persisted maps.
func RoomKey(zoneID, roomID string) string {
	return zoneID + "/" + roomID
}
