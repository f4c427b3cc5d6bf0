package domain

// GlobalMode selects between normal scheduled operation and away mode.
// Away forces every room's effective target to the frost protection
// temperature.
type GlobalMode string

const (
	ModeSchedule GlobalMode = "schedule"
	ModeAway     GlobalMode = "away"
)

// FallbackMode selects the temperature source used when no sensor in a
// room reported recently enough.
type FallbackMode string

const (
	FallbackZoneAverage FallbackMode = "zone_average"
	FallbackTRV         FallbackMode = "trv"
	FallbackLastKnown   FallbackMode = "last_known"
)

// DemandMode selects how per-room results fold into a zone heating
// demand.
type DemandMode string

const (
	DemandAnyRoom     DemandMode = "any_room"
	DemandZoneAverage DemandMode = "zone_average"
)

// SensorRef is the normalized form of a configured sensor. Bare-id
// sensor entries have an empty LastSeenID.
type SensorRef struct {
	TemperatureID string
	LastSeenID    string
}

// SchedulePeriod is a half-open [Start, End) time-of-day range in
// minutes since midnight.
type SchedulePeriod struct {
	StartMinutes int
	EndMinutes   int
	Target       float64
}

type Schedule struct {
	Weekday []SchedulePeriod
	Weekend []SchedulePeriod
}

type Room struct {
	ID                   string
	Name                 string
	ZoneID               string
	Sensors              []SensorRef
	TRVs                 []string
	IgnoreManualOverride bool
}

// Zone owns its rooms. DemandMode, Deadband and FallbackMode are the
// zone-effective settings (global defaults already applied by config
// normalization).
type Zone struct {
	ID         string
	Name       string
	Rooms      []Room
	Schedule   Schedule
	DemandMode DemandMode
	Deadband   float64
	Fallback   FallbackMode
}
