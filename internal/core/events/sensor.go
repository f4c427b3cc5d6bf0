package events

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	. "heatwarden2mqtt/internal/core/domain"

	"github.com/carlmjohnson/versioninfo"
)

const (
	SENSOR_ID_HEATING_DEMAND = "heating_demand"
	SENSOR_ID_MODE           = "mode"
	SENSOR_ID_ZONES_DEMAND   = "zones_demanding"
	SENSOR_ID_BOILER_STATE   = "boiler_demand"
)

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("heatwarden_bridge_%s", md5HashShort(baseTopic)),
		Manufacturer: "Heatwarden",
		Model:        "Heatwarden",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("Heatwarden %s", md5HashShort(baseTopic)),
	}
}

func ZoneHeatingDemandSensorId(zoneId string) string {
	return fmt.Sprintf("zone_%s_heating_demand", zoneId)
}

func RoomSensorId(zoneId, roomId, suffix string) string {
	return fmt.Sprintf("zone_%s_room_%s_%s", zoneId, roomId, suffix)
}

func IgnoreOverrideSwitchId(zoneId, roomId string) string {
	return fmt.Sprintf("zone_%s_room_%s_ignore_override", zoneId, roomId)
}

// ControllerSensors is the discovery catalog for the whole controller:
// global mode and demand, per-zone demand, and the per-room
// temperature, target and status entities.
func ControllerSensors(device Device, zones []Zone) []GenericSensor {

	sensors := []GenericSensor{
		{
			Device:      device,
			Id:          SENSOR_ID_BRIDGE_STATE,
			SensorType:  SENSOR_TYPE_BINARY,
			Name:        "Bridge state",
			DeviceClass: DEVICE_CLASS_CONNECTIVITY,
			UniqueId:    uniqueId(device.Id, SENSOR_ID_BRIDGE_STATE),
		},
		{
			Device:     device,
			Id:         SENSOR_ID_MODE,
			SensorType: SENSOR_TYPE_SENSOR,
			Name:       "Mode",
			Icon:       "mdi:calendar-clock",
			UniqueId:   uniqueId(device.Id, SENSOR_ID_MODE),
		},
		{
			Device:      device,
			Id:          SENSOR_ID_HEATING_DEMAND,
			SensorType:  SENSOR_TYPE_BINARY,
			Name:        "Heating demand",
			DeviceClass: DEVICE_CLASS_HEAT,
			UniqueId:    uniqueId(device.Id, SENSOR_ID_HEATING_DEMAND),
		},
		{
			Device:         device,
			Id:             SENSOR_ID_ZONES_DEMAND,
			SensorType:     SENSOR_TYPE_SENSOR,
			Name:           "Zones demanding heat",
			EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
			UniqueId:       uniqueId(device.Id, SENSOR_ID_ZONES_DEMAND),
		},
		{
			Device:         device,
			Id:             SENSOR_ID_BOILER_STATE,
			SensorType:     SENSOR_TYPE_BINARY,
			Name:           "Boiler demand relay",
			DeviceClass:    DEVICE_CLASS_RUNNING,
			EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
			UniqueId:       uniqueId(device.Id, SENSOR_ID_BOILER_STATE),
		},
	}

	for _, zone := range zones {
		sensors = append(sensors, GenericSensor{
			Device:      device,
			Id:          ZoneHeatingDemandSensorId(zone.ID),
			SensorType:  SENSOR_TYPE_BINARY,
			Name:        fmt.Sprintf("%s heating demand", zone.Name),
			DeviceClass: DEVICE_CLASS_HEAT,
			UniqueId:    uniqueId(device.Id, ZoneHeatingDemandSensorId(zone.ID)),
		})
		for _, room := range zone.Rooms {
			sensors = append(sensors, roomSensors(device, zone, room)...)
		}
	}
	return sensors
}

func roomSensors(device Device, zone Zone, room Room) []GenericSensor {
	return []GenericSensor{
		{
			Device:            device,
			Id:                RoomSensorId(zone.ID, room.ID, "temperature"),
			SensorType:        SENSOR_TYPE_SENSOR,
			Name:              fmt.Sprintf("%s temperature", room.Name),
			StateClass:        STATE_CLASS_MEASUREMENT,
			DeviceClass:       DEVICE_CLASS_TEMPERATURE,
			UnitOfMeasurement: "°C",
			UniqueId:          uniqueId(device.Id, RoomSensorId(zone.ID, room.ID, "temperature")),
		},
		{
			Device:            device,
			Id:                RoomSensorId(zone.ID, room.ID, "target"),
			SensorType:        SENSOR_TYPE_SENSOR,
			Name:              fmt.Sprintf("%s target", room.Name),
			StateClass:        STATE_CLASS_MEASUREMENT,
			DeviceClass:       DEVICE_CLASS_TEMPERATURE,
			UnitOfMeasurement: "°C",
			Icon:              "mdi:thermostat",
			UniqueId:          uniqueId(device.Id, RoomSensorId(zone.ID, room.ID, "target")),
		},
		{
			Device:      device,
			Id:          RoomSensorId(zone.ID, room.ID, "heating"),
			SensorType:  SENSOR_TYPE_BINARY,
			Name:        fmt.Sprintf("%s heating", room.Name),
			DeviceClass: DEVICE_CLASS_HEAT,
			UniqueId:    uniqueId(device.Id, RoomSensorId(zone.ID, room.ID, "heating")),
		},
		{
			Device:     device,
			Id:         RoomSensorId(zone.ID, room.ID, "boost"),
			SensorType: SENSOR_TYPE_BINARY,
			Name:       fmt.Sprintf("%s boost", room.Name),
			Icon:       "mdi:rocket-launch",
			UniqueId:   uniqueId(device.Id, RoomSensorId(zone.ID, room.ID, "boost")),
		},
		{
			Device:         device,
			Id:             RoomSensorId(zone.ID, room.ID, "temperature_source"),
			SensorType:     SENSOR_TYPE_SENSOR,
			Name:           fmt.Sprintf("%s temperature source", room.Name),
			EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
			UniqueId:       uniqueId(device.Id, RoomSensorId(zone.ID, room.ID, "temperature_source")),
		},
		{
			Device:         device,
			Id:             RoomSensorId(zone.ID, room.ID, "trend"),
			SensorType:     SENSOR_TYPE_SENSOR,
			Name:           fmt.Sprintf("%s trend", room.Name),
			EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
			Icon:           "mdi:trending-up",
			UniqueId:       uniqueId(device.Id, RoomSensorId(zone.ID, room.ID, "trend")),
		},
		{
			Device:            device,
			Id:                RoomSensorId(zone.ID, room.ID, "eta"),
			SensorType:        SENSOR_TYPE_SENSOR,
			Name:              fmt.Sprintf("%s time to target", room.Name),
			StateClass:        STATE_CLASS_MEASUREMENT,
			DeviceClass:       DEVICE_CLASS_DURATION,
			UnitOfMeasurement: "min",
			EntityCategory:    ENTITY_CLASS_DIAGNOSTIC,
			UniqueId:          uniqueId(device.Id, RoomSensorId(zone.ID, room.ID, "eta")),
		},
		{
			Device:      device,
			Id:          RoomSensorId(zone.ID, room.ID, "manual_override"),
			SensorType:  SENSOR_TYPE_BINARY,
			Name:        fmt.Sprintf("%s manual override", room.Name),
			DeviceClass: "problem",
			UniqueId:    uniqueId(device.Id, RoomSensorId(zone.ID, room.ID, "manual_override")),
		},
	}
}

// IgnoreOverrideSwitches exposes the per-room ignore flag as HA
// switches.
func IgnoreOverrideSwitches(device Device, zones []Zone) []GenericSwitch {
	var switches []GenericSwitch
	for _, zone := range zones {
		for _, room := range zone.Rooms {
			id := IgnoreOverrideSwitchId(zone.ID, room.ID)
			switches = append(switches, GenericSwitch{
				Device:   device,
				Id:       id,
				Name:     fmt.Sprintf("%s ignore manual override", room.Name),
				Icon:     "mdi:hand-back-right-off",
				UniqueId: uniqueId(device.Id, id),
			})
		}
	}
	return switches
}

func uniqueId(baseId, id string) string {
	return fmt.Sprintf("uid_%s_%s", baseId, id)
}

func md5Hash(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])
}

func md5HashShort(text string) string {
	return md5Hash(text)[0:8]
}
