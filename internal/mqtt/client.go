package mqtt

import (
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"time"

	"heatwarden2mqtt/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	MQTT_PAYLOAD_ONLINE  = "online"
	MQTT_PAYLOAD_OFFLINE = "offline"
	MQTT_PAYLOAD_ON      = "on"
	MQTT_PAYLOAD_OFF     = "off"

	COMMAND_BOOST            = "boost"
	COMMAND_MODE             = "mode"
	COMMAND_ZONE_TEMPERATURE = "zone_temperature"
	COMMAND_IGNORE_OVERRIDE  = "ignore_override"
	COMMAND_SWITCH           = "switch"
)

func OptsFromConfig(cfg *config.Config) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTT.Host, cfg.MQTT.Port))
	opts.SetClientID(fmt.Sprintf("heatwarden_%d", rand.Intn(1000)))
	if cfg.MQTT.Username != "" && cfg.MQTT.Password != "" {
		opts.SetUsername(cfg.MQTT.Username)
		opts.SetPassword(cfg.MQTT.Password)
	}
	opts.WillEnabled = true
	opts.WillPayload = []byte(MQTT_PAYLOAD_OFFLINE)
	opts.WillRetained = true
	opts.WillTopic = bridgeStateTopic(cfg.MQTT.BaseTopic)
	opts.WillQos = 0

	return opts
}

func CreateMQTTClient(cfg *config.Config, opts *mqtt.ClientOptions, onConnectHandler func(client mqtt.Client),
	onConnectionLostHandler func(mqtt.Client, error)) *MQTTClient {
	if onConnectHandler != nil {
		opts.OnConnect = onConnectHandler
	}
	if onConnectionLostHandler != nil {
		opts.OnConnectionLost = onConnectionLostHandler
	}
	return &MQTTClient{
		client:                mqtt.NewClient(opts),
		cfg:                   cfg.MQTT,
		boostCommandRegexp:    boostCommandExtractor(cfg.MQTT.BaseTopic),
		modeCommandRegexp:     modeCommandExtractor(cfg.MQTT.BaseTopic),
		zoneTempCommandRegexp: zoneTemperatureCommandExtractor(cfg.MQTT.BaseTopic),
		overrideCommandRegexp: ignoreOverrideCommandExtractor(cfg.MQTT.BaseTopic),
		switchCommandRegexp:   switchCommandExtractor(cfg.MQTT.BaseTopic),
	}
}

type MQTTClient struct {
	client                mqtt.Client
	cfg                   config.MQTTConfig
	boostCommandRegexp    *regexp.Regexp
	modeCommandRegexp     *regexp.Regexp
	zoneTempCommandRegexp *regexp.Regexp
	overrideCommandRegexp *regexp.Regexp
	switchCommandRegexp   *regexp.Regexp
}

// ParsedMQTTCommand is a command topic match. ZoneId and RoomId are
// set for the commands scoped to them.
type ParsedMQTTCommand struct {
	Command string
	ZoneId  string
	RoomId  string
	Payload string
}

func (c *MQTTClient) baseTopic() string {
	return c.cfg.BaseTopic
}

func (c *MQTTClient) BridgeStateTopic() string {
	return bridgeStateTopic(c.baseTopic())
}

func (c *MQTTClient) SensorStateTopic(sensorId string) string {
	return fmt.Sprintf("%s/sensor/%s/state", c.baseTopic(), sensorId)
}

func (c *MQTTClient) BinarySensorStateTopic(sensorId string) string {
	return fmt.Sprintf("%s/binary_sensor/%s/state", c.baseTopic(), sensorId)
}

func (c *MQTTClient) SwitchStateTopic(switchId string) string {
	return fmt.Sprintf("%s/switch/%s/state", c.baseTopic(), switchId)
}

func (c *MQTTClient) SwitchCommandTopic(switchId string) string {
	return fmt.Sprintf("%s/switch/%s/command", c.baseTopic(), switchId)
}

func (c *MQTTClient) BoostCommandTopic(zoneId, roomId string) string {
	return fmt.Sprintf("%s/zone/%s/room/%s/boost/set", c.baseTopic(), zoneId, roomId)
}

func (c *MQTTClient) ModeCommandTopic() string {
	return fmt.Sprintf("%s/mode/set", c.baseTopic())
}

func (c *MQTTClient) ZoneTemperatureCommandTopic(zoneId string) string {
	return fmt.Sprintf("%s/zone/%s/temperature/set", c.baseTopic(), zoneId)
}

func (c *MQTTClient) IgnoreOverrideCommandTopic(zoneId, roomId string) string {
	return fmt.Sprintf("%s/zone/%s/room/%s/ignore_override/set", c.baseTopic(), zoneId, roomId)
}

// SetpointCommandTopic is the external TRV command topic, outside the
// bridge's own base topic.
func SetpointCommandTopic(trvBaseTopic string) string {
	return trvBaseTopic + "/setpoint/set"
}

func (c *MQTTClient) ParseMQTTCommand(msg mqtt.Message) (*ParsedMQTTCommand, error) {
	topic := msg.Topic()
	payload := string(msg.Payload())

	if m := c.boostCommandRegexp.FindAllStringSubmatch(topic, 1); len(m) > 0 && len(m[0]) == 3 {
		return &ParsedMQTTCommand{
			Command: COMMAND_BOOST,
			ZoneId:  m[0][1],
			RoomId:  m[0][2],
			Payload: payload,
		}, nil
	}
	if c.modeCommandRegexp.MatchString(topic) {
		return &ParsedMQTTCommand{
			Command: COMMAND_MODE,
			Payload: payload,
		}, nil
	}
	if m := c.zoneTempCommandRegexp.FindAllStringSubmatch(topic, 1); len(m) > 0 && len(m[0]) == 2 {
		return &ParsedMQTTCommand{
			Command: COMMAND_ZONE_TEMPERATURE,
			ZoneId:  m[0][1],
			Payload: payload,
		}, nil
	}
	if m := c.overrideCommandRegexp.FindAllStringSubmatch(topic, 1); len(m) > 0 && len(m[0]) == 3 {
		return &ParsedMQTTCommand{
			Command: COMMAND_IGNORE_OVERRIDE,
			ZoneId:  m[0][1],
			RoomId:  m[0][2],
			Payload: payload,
		}, nil
	}
	if m := c.switchCommandRegexp.FindAllStringSubmatch(topic, 1); len(m) > 0 && len(m[0]) == 2 {
		return &ParsedMQTTCommand{
			Command: COMMAND_SWITCH,
			ZoneId:  m[0][1],
			Payload: payload,
		}, nil
	}
	return nil, errors.New("invalid command")
}

func (c *MQTTClient) Publish(topic string, payload any, qos byte, retain bool, continuation func(error), timeout time.Duration) {
	token := c.client.Publish(topic, qos, retain, payload)
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT publish timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *MQTTClient) Subscribe(topic string, qos byte, handler mqtt.MessageHandler, continuation func(error), timeout time.Duration) {
	token := c.client.Subscribe(topic, qos, handler)
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT subscribe timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *MQTTClient) SubscribeToCommandTopic(handler mqtt.MessageHandler, continuation func(error), timeout time.Duration) {
	c.Subscribe(c.commandTopic(), 1, handler, continuation, timeout)
}

func (c *MQTTClient) Unsubscribe(topic string, continuation func(error), timeout time.Duration) {
	token := c.client.Unsubscribe(topic)
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT unsubscribe timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *MQTTClient) Connect(continuation func(error), timeout time.Duration) {
	token := c.client.Connect()
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT connect timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *MQTTClient) Disconnect(timeout time.Duration) {
	c.client.Disconnect(uint(timeout.Milliseconds()))
}

func (c *MQTTClient) commandTopic() string {
	return fmt.Sprintf("%s/#", c.baseTopic())
}

func boostCommandExtractor(baseTopic string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf("%s/zone/([a-zA-Z0-9_]+)/room/([a-zA-Z0-9_]+)/boost/set", baseTopic))
}

func modeCommandExtractor(baseTopic string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf("%s/mode/set", baseTopic))
}

func zoneTemperatureCommandExtractor(baseTopic string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf("%s/zone/([a-zA-Z0-9_]+)/temperature/set", baseTopic))
}

func ignoreOverrideCommandExtractor(baseTopic string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf("%s/zone/([a-zA-Z0-9_]+)/room/([a-zA-Z0-9_]+)/ignore_override/set", baseTopic))
}

func switchCommandExtractor(baseTopic string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf("%s/switch/([a-zA-Z0-9_]+)/command", baseTopic))
}

func bridgeStateTopic(baseTopic string) string {
	return fmt.Sprintf("%s/bridge/state", baseTopic)
}
