package service

import (
	"strconv"
	"testing"
	"time"

	"heatwarden2mqtt/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestResolver() *TemperatureResolver {
	validator := NewTemperatureValidator(1.0, zap.NewNop())
	return NewTemperatureResolver(15*time.Minute, validator, zap.NewNop())
}

func testZone(fallback domain.FallbackMode) domain.Zone {
	return domain.Zone{
		ID:       "living",
		Fallback: fallback,
		Rooms: []domain.Room{
			{
				ID:     "main",
				ZoneID: "living",
				Sensors: []domain.SensorRef{
					{TemperatureID: "sensor/main_a"},
					{TemperatureID: "sensor/main_b"},
				},
				TRVs: []string{"trv/main"},
			},
			{
				ID:     "corner",
				ZoneID: "living",
				Sensors: []domain.SensorRef{
					{TemperatureID: "sensor/corner"},
				},
			},
		},
	}
}

func snapAt(now time.Time, entities map[string]domain.EntityState) domain.Snapshot {
	return domain.Snapshot{Now: now, Entities: entities}
}

func entity(value float64, at time.Time) domain.EntityState {
	return domain.EntityState{Value: strconv.FormatFloat(value, 'f', -1, 64), LastUpdated: at}
}

func TestResolveRoomAveragesActiveSensors(t *testing.T) {

	require := require.New(t)
	r := newTestResolver()
	defer r.Close()
	now := time.Now()
	zone := testZone(domain.FallbackZoneAverage)

	snap := snapAt(now, map[string]domain.EntityState{
		"sensor/main_a": entity(20.0, now.Add(-time.Minute)),
		"sensor/main_b": entity(21.0, now.Add(-2*time.Minute)),
	})

	reading := r.ResolveRoom(zone, zone.Rooms[0], snap)
	require.NotNil(reading.Value)
	require.Equal(20.5, *reading.Value)
	require.Equal(domain.SourceLocalSensors, reading.Source)
	require.Len(reading.Sensors, 2)
}

func TestResolveRoomSensorTimeout(t *testing.T) {

	require := require.New(t)
	r := newTestResolver()
	defer r.Close()
	now := time.Now()
	zone := testZone(domain.FallbackZoneAverage)

	snap := snapAt(now, map[string]domain.EntityState{
		"sensor/main_a": entity(20.0, now.Add(-20*time.Minute)),
		"sensor/main_b": entity(21.0, now.Add(-time.Minute)),
	})

	reading := r.ResolveRoom(zone, zone.Rooms[0], snap)
	require.NotNil(reading.Value)
	require.Equal(21.0, *reading.Value)
	require.Equal(domain.SensorTimeout, reading.Sensors[0].Status)
	require.Equal(domain.SensorActive, reading.Sensors[1].Status)
}

func TestResolveRoomNoSensorsIsUnavailable(t *testing.T) {

	assert := assert.New(t)
	r := newTestResolver()
	defer r.Close()
	zone := testZone(domain.FallbackZoneAverage)
	bare := domain.Room{ID: "bare", ZoneID: "living"}

	reading := r.ResolveRoom(zone, bare, snapAt(time.Now(), nil))
	assert.Nil(reading.Value)
	assert.Equal(domain.SourceUnavailable, reading.Source)
}

func TestResolveRoomInvalidPayload(t *testing.T) {

	require := require.New(t)
	r := newTestResolver()
	defer r.Close()
	now := time.Now()
	zone := testZone(domain.FallbackZoneAverage)

	snap := snapAt(now, map[string]domain.EntityState{
		"sensor/main_a": {Value: "unavailable", LastUpdated: now},
		"sensor/main_b": {Value: "garbage", LastUpdated: now},
	})

	reading := r.ResolveRoom(zone, zone.Rooms[0], snap)
	require.Nil(reading.Value)
	require.Equal(domain.SensorUnavailable, reading.Sensors[0].Status)
	require.Equal(domain.SensorInvalid, reading.Sensors[1].Status)
}

func TestResolveRoomOutOfRangeRejected(t *testing.T) {

	require := require.New(t)
	r := newTestResolver()
	defer r.Close()
	now := time.Now()
	zone := testZone(domain.FallbackZoneAverage)

	snap := snapAt(now, map[string]domain.EntityState{
		"sensor/corner": entity(72.0, now),
	})

	reading := r.ResolveRoom(zone, zone.Rooms[1], snap)
	require.Nil(reading.Value)
	require.Equal(domain.SensorInvalid, reading.Sensors[0].Status)
}

func TestFallbackTRV(t *testing.T) {

	require := require.New(t)
	r := newTestResolver()
	defer r.Close()
	now := time.Now()
	zone := testZone(domain.FallbackTRV)

	snap := snapAt(now, map[string]domain.EntityState{
		"sensor/main_a":        entity(20.0, now.Add(-time.Hour)),
		"trv/main/temperature": entity(22.5, now),
	})

	reading := r.ResolveRoom(zone, zone.Rooms[0], snap)
	require.NotNil(reading.Value)
	require.Equal(22.5, *reading.Value)
	require.Equal(domain.SourceTRV, reading.Source)
}

func TestFallbackLastKnown(t *testing.T) {

	require := require.New(t)
	r := newTestResolver()
	defer r.Close()
	zone := testZone(domain.FallbackLastKnown)
	start := time.Now()

	// a fresh reading populates the cache
	snap := snapAt(start, map[string]domain.EntityState{
		"sensor/corner": entity(19.5, start),
	})
	reading := r.ResolveRoom(zone, zone.Rooms[1], snap)
	require.Equal(domain.SourceLocalSensors, reading.Source)

	// later the sensor is stale but the cached value backs the room
	later := start.Add(time.Hour)
	snap = snapAt(later, map[string]domain.EntityState{
		"sensor/corner": entity(19.5, start),
	})
	reading = r.ResolveRoom(zone, zone.Rooms[1], snap)
	require.NotNil(reading.Value)
	require.Equal(19.5, *reading.Value)
	require.Equal(domain.SourceLastKnown, reading.Source)
}

func TestFallbackLastKnownFirstReadingAlreadyStale(t *testing.T) {

	require := require.New(t)
	r := newTestResolver()
	defer r.Close()
	now := time.Now()

	zone := domain.Zone{
		ID:       "z",
		Fallback: domain.FallbackLastKnown,
		Rooms: []domain.Room{
			{
				ID:     "r",
				ZoneID: "z",
				Sensors: []domain.SensorRef{
					{TemperatureID: "sensor/a", LastSeenID: "sensor/a_last_seen"},
				},
			},
		},
	}

	// first reading after a restart: the dedicated last-seen already
	// puts the sensor past the timeout, but 19.5 is still its last
	// known value
	snap := snapAt(now, map[string]domain.EntityState{
		"sensor/a":           entity(19.5, now),
		"sensor/a_last_seen": {Value: now.Add(-2 * time.Hour).Format(time.RFC3339), LastUpdated: now},
	})

	reading := r.ResolveRoom(zone, zone.Rooms[0], snap)
	require.Equal(domain.SensorTimeout, reading.Sensors[0].Status)
	require.NotNil(reading.Value)
	require.Equal(19.5, *reading.Value)
	require.Equal(domain.SourceLastKnown, reading.Source)
}

func TestFallbackZoneAverage(t *testing.T) {

	require := require.New(t)
	r := newTestResolver()
	defer r.Close()
	zone := testZone(domain.FallbackZoneAverage)
	start := time.Now()

	// both rooms report once so the cache holds zone-wide values
	snap := snapAt(start, map[string]domain.EntityState{
		"sensor/main_a": entity(20.0, start),
		"sensor/main_b": entity(21.0, start),
		"sensor/corner": entity(19.0, start),
	})
	r.ResolveRoom(zone, zone.Rooms[0], snap)
	r.ResolveRoom(zone, zone.Rooms[1], snap)

	// corner's sensor goes stale, zone average backs it
	later := start.Add(time.Hour)
	snap = snapAt(later, map[string]domain.EntityState{
		"sensor/corner": entity(19.0, start),
	})
	reading := r.ResolveRoom(zone, zone.Rooms[1], snap)
	require.NotNil(reading.Value)
	require.Equal(20.0, *reading.Value)
	require.Equal(domain.SourceZoneAverage, reading.Source)
}

func TestDedicatedLastSeenSensor(t *testing.T) {

	require := require.New(t)
	r := newTestResolver()
	defer r.Close()
	now := time.Now()

	zone := domain.Zone{
		ID:       "z",
		Fallback: domain.FallbackLastKnown,
		Rooms: []domain.Room{
			{
				ID:     "r",
				ZoneID: "z",
				Sensors: []domain.SensorRef{
					{TemperatureID: "sensor/a", LastSeenID: "sensor/a_last_seen"},
				},
			},
		},
	}

	// the state update is recent but the dedicated last-seen says the
	// sensor itself has been silent for an hour
	snap := snapAt(now, map[string]domain.EntityState{
		"sensor/a":           entity(20.0, now.Add(-time.Minute)),
		"sensor/a_last_seen": {Value: now.Add(-time.Hour).Format(time.RFC3339), LastUpdated: now},
	})

	reading := r.ResolveRoom(zone, zone.Rooms[0], snap)
	require.Equal(domain.SensorTimeout, reading.Sensors[0].Status)
	require.Equal(domain.LastSeenDedicatedSensor, reading.Sensors[0].LastSeenSource)
}

func TestImplausibleJumpRejected(t *testing.T) {

	require := require.New(t)
	r := newTestResolver()
	defer r.Close()
	zone := testZone(domain.FallbackLastKnown)
	start := time.Now()

	snap := snapAt(start, map[string]domain.EntityState{
		"sensor/corner": entity(20.0, start),
	})
	r.ResolveRoom(zone, zone.Rooms[1], snap)

	// 8 degrees in two minutes exceeds the configured 1 degC/min
	later := start.Add(2 * time.Minute)
	snap = snapAt(later, map[string]domain.EntityState{
		"sensor/corner": entity(28.0, later),
	})
	reading := r.ResolveRoom(zone, zone.Rooms[1], snap)
	require.Equal(domain.SensorInvalid, reading.Sensors[0].Status)
}
