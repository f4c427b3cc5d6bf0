package events

import (
	. "heatwarden2mqtt/internal/core/domain"
)

// TickResultToUpdateEvents flattens one control pass into sensor
// update events for publishing.
func TickResultToUpdateEvents(result TickResult) []SensorUpdateEvent {
	var events []SensorUpdateEvent

	events = append(events, TextSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: SENSOR_ID_MODE},
		Value:                  string(result.Global.Mode),
	})
	events = append(events, BinarySensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: SENSOR_ID_HEATING_DEMAND},
		Value:                  result.Global.HeatingDemand,
	})
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: SENSOR_ID_ZONES_DEMAND},
		Value:                  float64(result.Global.ZonesDemanding),
		Decimals:               0,
	})

	for _, zone := range result.Zones {
		events = append(events, BinarySensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: ZoneHeatingDemandSensorId(zone.ZoneID)},
			Value:                  zone.HeatingDemand,
		})
		for _, room := range zone.Rooms {
			events = append(events, roomUpdateEvents(zone.ZoneID, room)...)
		}
	}
	return events
}

func roomUpdateEvents(zoneId string, room RoomResult) []SensorUpdateEvent {
	var events []SensorUpdateEvent

	if room.Temperature != nil {
		events = append(events, FloatSensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: RoomSensorId(zoneId, room.RoomID, "temperature")},
			Value:                  *room.Temperature,
			Decimals:               1,
		})
	} else {
		events = append(events, TextSensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: RoomSensorId(zoneId, room.RoomID, "temperature")},
			Value:                  "unavailable",
		})
	}
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: RoomSensorId(zoneId, room.RoomID, "target")},
		Value:                  room.EffectiveTarget,
		Decimals:               1,
	})
	events = append(events, BinarySensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: RoomSensorId(zoneId, room.RoomID, "heating")},
		Value:                  room.NeedsHeating,
	})
	events = append(events, BinarySensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: RoomSensorId(zoneId, room.RoomID, "boost")},
		Value:                  room.Boost != nil,
	})
	events = append(events, TextSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: RoomSensorId(zoneId, room.RoomID, "temperature_source")},
		Value:                  room.TemperatureSource,
	})
	events = append(events, BinarySensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: RoomSensorId(zoneId, room.RoomID, "manual_override")},
		Value:                  room.ManualOverride,
	})

	if room.Analytics != nil {
		events = append(events, TextSensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: RoomSensorId(zoneId, room.RoomID, "trend")},
			Value:                  room.Analytics.Trend,
		})
		if room.Analytics.ETAMinutes != nil {
			events = append(events, FloatSensorUpdateEvent{
				SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: RoomSensorId(zoneId, room.RoomID, "eta")},
				Value:                  float64(*room.Analytics.ETAMinutes),
				Decimals:               0,
			})
		}
	}
	return events
}

// IgnoreOverrideSwitchEvents reflects the per-room ignore flags on
// their switch state topics.
func IgnoreOverrideSwitchEvents(zones []ZoneResult, flags map[string]bool) []SensorUpdateEvent {
	var events []SensorUpdateEvent
	for _, zone := range zones {
		for _, room := range zone.Rooms {
			events = append(events, SwitchUpdateEvent{
				SensorUpdateEventMixIn: SensorUpdateEventMixIn{Id: IgnoreOverrideSwitchId(zone.ZoneID, room.RoomID)},
				Value:                  flags[RoomKey(zone.ZoneID, room.RoomID)],
			})
		}
	}
	return events
}
