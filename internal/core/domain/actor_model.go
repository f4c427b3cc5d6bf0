package domain

const (
	ACTOR_ID_CONTROLLER = "controller"
	ACTOR_ID_MQTT       = "mqtt"
	ACTOR_ID_BOILER     = "boiler"
)

// EntityUpdate carries one MQTT entity state change from the MQTT
// actor to the controller.
type EntityUpdate struct {
	EntityID string
	Payload  string
}

// SubscribeEntitiesRequest asks the MQTT actor to subscribe to the
// given entity topics and stream EntityUpdate messages to its parent.
type SubscribeEntitiesRequest struct {
	ActorRequestMixIn
	EntityIDs []string
}

type SubscribeEntitiesResponse struct {
	ActorResponseMixIn
}

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

type PublishSensorUpdateRequest struct {
	ActorRequestMixIn
	Retain bool
	Event  SensorUpdateEvent
}

type PublishSensorUpdateResponse struct {
	ActorResponseMixIn
}

type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	Sensors  []GenericSensor
	Switches []GenericSwitch
}

type PublishDiscoveryResponse struct {
	ActorResponseMixIn
}

// CommandSetpointRequest asks the MQTT actor to publish a TRV setpoint
// command.
type CommandSetpointRequest struct {
	ActorRequestMixIn
	Command SetpointCommand
}

type CommandSetpointResponse struct {
	ActorResponseMixIn
	Command SetpointCommand
}

// SetDemandRequest asks the boiler actor to drive the heat demand
// relay.
type SetDemandRequest struct {
	ActorRequestMixIn
	Demand bool
}

type SetDemandResponse struct {
	ActorResponseMixIn
	Demand bool
}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}
