package service

import (
	"strconv"
	"time"

	"heatwarden2mqtt/internal/core/domain"

	ttlcache "github.com/jellydator/ttlcache/v2"
	"go.uber.org/zap"
)

// Retention of last-known sensor values. Long enough that a flaky
// sensor still contributes to last_known/zone_average fallbacks
// overnight.
const lastKnownRetention = 48 * time.Hour

type lastKnownValue struct {
	value float64
	at    time.Time
}

// TemperatureResolver resolves a room's current temperature from its
// configured sensors, applying timeout, validation and fallback rules.
// It keeps a cache of last-known per-sensor values that backs the
// last_known and zone_average fallback modes.
type TemperatureResolver struct {
	timeout   time.Duration
	validator *TemperatureValidator
	lastKnown *ttlcache.Cache
	logger    *zap.Logger
}

func NewTemperatureResolver(timeout time.Duration, validator *TemperatureValidator, logger *zap.Logger) *TemperatureResolver {
	cache := ttlcache.NewCache()
	cache.SetTTL(lastKnownRetention)
	cache.SkipTTLExtensionOnHit(true)
	return &TemperatureResolver{
		timeout:   timeout,
		validator: validator,
		lastKnown: cache,
		logger:    logger,
	}
}

func (r *TemperatureResolver) Close() {
	r.lastKnown.Close()
}

// ResolveRoom resolves a room temperature from the snapshot. A room
// without sensors resolves as unavailable: the caller must not learn
// offsets or accept boosts for it this tick.
func (r *TemperatureResolver) ResolveRoom(zone domain.Zone, room domain.Room, snap domain.Snapshot) domain.TemperatureReading {
	if len(room.Sensors) == 0 {
		return domain.TemperatureReading{Source: domain.SourceUnavailable}
	}

	var valid []float64
	var statuses []domain.SensorReading
	var mostRecent *time.Time

	for _, ref := range room.Sensors {
		reading := r.readSensor(ref, snap)
		statuses = append(statuses, reading)
		if reading.LastSeen != nil && (mostRecent == nil || reading.LastSeen.After(*mostRecent)) {
			mostRecent = reading.LastSeen
		}
		if reading.Status == domain.SensorActive {
			valid = append(valid, *reading.Value)
		}
	}

	if len(valid) > 0 {
		avg := mean(valid)
		return domain.TemperatureReading{
			Value:    &avg,
			Source:   domain.SourceLocalSensors,
			Sensors:  statuses,
			LastSeen: mostRecent,
		}
	}

	// No qualifying sensor: fall back per zone configuration.
	value, source := r.fallback(zone, room, snap)
	return domain.TemperatureReading{
		Value:    value,
		Source:   source,
		Sensors:  statuses,
		LastSeen: mostRecent,
	}
}

func (r *TemperatureResolver) readSensor(ref domain.SensorRef, snap domain.Snapshot) domain.SensorReading {
	reading := domain.SensorReading{
		EntityID: ref.TemperatureID,
		Status:   domain.SensorUnavailable,
	}

	entity, ok := snap.Get(ref.TemperatureID)
	if !ok || entity.Value == "" || entity.Value == "unknown" || entity.Value == "unavailable" {
		return reading
	}

	temp, err := strconv.ParseFloat(entity.Value, 64)
	if err != nil {
		r.logger.Warn("invalid temperature payload",
			zap.String("sensor", ref.TemperatureID),
			zap.String("payload", entity.Value))
		reading.Status = domain.SensorInvalid
		return reading
	}
	if !r.validator.InValidRange(temp) {
		reading.Status = domain.SensorInvalid
		return reading
	}

	lastSeen, lastSeenSource := r.resolveLastSeen(ref, entity, snap)
	reading.Value = &temp
	reading.LastSeen = &lastSeen
	reading.LastSeenSource = lastSeenSource

	if prev, ok := r.cached(ref.TemperatureID); ok && !lastSeen.Equal(prev.at) {
		if !r.validator.PlausibleChange(temp, prev.value, lastSeen.Sub(prev.at)) {
			reading.Status = domain.SensorInvalid
			return reading
		}
	}

	if snap.Now.Sub(lastSeen) <= r.timeout {
		reading.Status = domain.SensorActive
	} else {
		reading.Status = domain.SensorTimeout
	}
	// A timed out reading is still the sensor's last known value.
	r.lastKnown.Set(ref.TemperatureID, lastKnownValue{value: temp, at: lastSeen})
	return reading
}

// resolveLastSeen prefers a configured dedicated last-seen entity
// (ISO-8601 payload) over the state's own update timestamp.
func (r *TemperatureResolver) resolveLastSeen(ref domain.SensorRef, entity domain.EntityState, snap domain.Snapshot) (time.Time, string) {
	if ref.LastSeenID != "" {
		if ls, ok := snap.Get(ref.LastSeenID); ok && ls.Value != "" && ls.Value != "unknown" && ls.Value != "unavailable" {
			if ts, err := time.Parse(time.RFC3339, ls.Value); err == nil {
				return ts, domain.LastSeenDedicatedSensor
			}
			r.logger.Warn("failed to parse last_seen payload",
				zap.String("sensor", ref.LastSeenID),
				zap.String("payload", ls.Value))
		}
	}
	return entity.LastUpdated, domain.LastSeenStateUpdated
}

func (r *TemperatureResolver) fallback(zone domain.Zone, room domain.Room, snap domain.Snapshot) (*float64, string) {
	switch zone.Fallback {
	case domain.FallbackTRV:
		if v := r.trvAverage(room, snap); v != nil {
			return v, domain.SourceTRV
		}
	case domain.FallbackLastKnown:
		if v := r.lastKnownAverage(room.Sensors); v != nil {
			return v, domain.SourceLastKnown
		}
	default: // zone_average
		if v := r.ZoneAverage(zone); v != nil {
			return v, domain.SourceZoneAverage
		}
	}
	return nil, domain.SourceUnavailable
}

// ZoneAverage is the mean of the last-known values of every sensor in
// the zone.
func (r *TemperatureResolver) ZoneAverage(zone domain.Zone) *float64 {
	var temps []float64
	for _, room := range zone.Rooms {
		for _, ref := range room.Sensors {
			if v, ok := r.cached(ref.TemperatureID); ok {
				temps = append(temps, v.value)
			}
		}
	}
	if len(temps) == 0 {
		return nil
	}
	avg := mean(temps)
	return &avg
}

func (r *TemperatureResolver) trvAverage(room domain.Room, snap domain.Snapshot) *float64 {
	var temps []float64
	for _, trvID := range room.TRVs {
		if v := ParseEntityFloat(snap, TRVTemperatureEntity(trvID)); v != nil {
			temps = append(temps, *v)
		}
	}
	if len(temps) == 0 {
		return nil
	}
	avg := mean(temps)
	return &avg
}

func (r *TemperatureResolver) lastKnownAverage(sensors []domain.SensorRef) *float64 {
	var temps []float64
	for _, ref := range sensors {
		if v, ok := r.cached(ref.TemperatureID); ok {
			temps = append(temps, v.value)
		}
	}
	if len(temps) == 0 {
		return nil
	}
	avg := mean(temps)
	return &avg
}

func (r *TemperatureResolver) cached(sensorID string) (lastKnownValue, bool) {
	v, err := r.lastKnown.Get(sensorID)
	if err != nil {
		return lastKnownValue{}, false
	}
	lv, ok := v.(lastKnownValue)
	return lv, ok
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// TRVTemperatureEntity is the entity id of a TRV's internal
// temperature sensor.
func TRVTemperatureEntity(trvID string) string {
	return trvID + "/temperature"
}

// TRVSetpointEntity is the entity id of a TRV's reported setpoint.
func TRVSetpointEntity(trvID string) string {
	return trvID + "/setpoint"
}

// ParseEntityFloat parses a numeric entity payload, nil when missing
// or non-numeric.
func ParseEntityFloat(snap domain.Snapshot, id string) *float64 {
	entity, ok := snap.Get(id)
	if !ok || entity.Value == "" || entity.Value == "unknown" || entity.Value == "unavailable" {
		return nil
	}
	v, err := strconv.ParseFloat(entity.Value, 64)
	if err != nil {
		return nil
	}
	return &v
}
