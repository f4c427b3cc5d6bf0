package domain

const (
	SENSOR_ID_BRIDGE_STATE = "bridge"

	SENSOR_TYPE_SENSOR = "sensor"
	SENSOR_TYPE_BINARY = "binary_sensor"

	STATE_CLASS_MEASUREMENT = "measurement"
	STATE_CLASS_DURATION    = "duration"

	DEVICE_CLASS_TEMPERATURE  = "temperature"
	DEVICE_CLASS_RUNNING      = "running"
	DEVICE_CLASS_HEAT         = "heat"
	DEVICE_CLASS_CONNECTIVITY = "connectivity"
	DEVICE_CLASS_DURATION     = "duration"

	ENTITY_CLASS_DIAGNOSTIC = "diagnostic"
	ENTITY_CLASS_CONFIG     = "config"
)

type Device struct {
	Id           string
	Name         string
	Version      string
	Model        string
	Manufacturer string
	ViaDevice    string
}

type GenericSensor struct {
	Device            Device
	Id                string
	SensorType        string
	Name              string
	UniqueId          string
	UnitOfMeasurement string
	StateClass        string // measurement, duration
	DeviceClass       string // temperature, running, problem
	EntityCategory    string // diagnostic, config, nil
	EnabledByDefault  *bool
	Icon              string
}

type GenericSwitch struct {
	Device   Device
	Id       string
	Name     string
	UniqueId string
	Icon     string
}
