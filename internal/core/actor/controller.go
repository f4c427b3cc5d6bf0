package actor

import (
	"errors"
	"fmt"
	"log"
	"time"

	adactor "heatwarden2mqtt/internal/adapter/actor"
	"heatwarden2mqtt/internal/config"
	"heatwarden2mqtt/internal/core/domain"
	"heatwarden2mqtt/internal/core/events"
	"heatwarden2mqtt/internal/core/service"
	"heatwarden2mqtt/internal/storage"
	. "heatwarden2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

type MQTTActorProvider func() *adactor.MQTTActor

type BoilerActorProvider func() *adactor.BoilerActor

// ControllerActor owns the control loop. It keeps the latest entity
// state reported by the MQTT actor, runs the engine on a timer, routes
// the resulting setpoint commands and sensor updates back to MQTT and
// drives the boiler relay on global demand changes.
type ControllerActor struct {
	config   *config.Config
	zones    []domain.Zone
	behavior actor.Behavior
	stash    *Stash

	engine    *service.Engine
	store     *storage.Store
	scheduler *scheduler.TimerScheduler

	entities   map[string]domain.EntityState
	lastResult *domain.TickResult
	lastDemand *bool

	currentHealthCheck  healthCheckResult
	mqttActor           *actor.PID
	boilerActor         *actor.PID
	mqttActorProvider   MQTTActorProvider
	boilerActorProvider BoilerActorProvider
	logger              *zap.Logger
}

type controllerTick struct {
}

type healthCheckResult struct {
	mqttActorHealthy   bool
	boilerActorHealthy bool
	checksExpected     int
	checksReceived     int
	respondTo          *actor.PID
}

func NewControllerActor(config *config.Config, zones []domain.Zone, store *storage.Store,
	mqttActorProvider MQTTActorProvider, boilerActorProvider BoilerActorProvider, logger *zap.Logger) *ControllerActor {
	act := &ControllerActor{
		config:              config,
		zones:               zones,
		behavior:            actor.NewBehavior(),
		stash:               &Stash{},
		engine:              service.NewEngine(config, zones, logger),
		store:               store,
		entities:            map[string]domain.EntityState{},
		mqttActorProvider:   mqttActorProvider,
		boilerActorProvider: boilerActorProvider,
		logger:              ActorLogger(domain.ACTOR_ID_CONTROLLER, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *ControllerActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *ControllerActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("controller@starting started")

		state.currentHealthCheck = healthCheckResult{}
		state.currentHealthCheck.reset()

		// restore persisted engine state
		persisted, err := state.store.Load(time.Now())
		if err != nil {
			state.logger.Warn("controller@starting state restore failed, starting fresh", zap.Error(err))
		}
		state.engine.Restore(persisted, time.Now())

		// start MQTT child
		mqttActorPID, err := state.startMQTTActor(ctx)
		if err != nil {
			panic(err)
		}
		state.mqttActor = mqttActorPID

		// start boiler child
		if state.boilerActorProvider != nil {
			boilerActorPID, err := state.startBoilerActor(ctx)
			if err != nil {
				panic(err)
			}
			state.boilerActor = boilerActorPID
		}

		// subscribe to every sensor and TRV topic
		ctx.Request(state.mqttActor, domain.SubscribeEntitiesRequest{
			EntityIDs: collectEntityIds(state.zones),
		})
	case domain.SubscribeEntitiesResponse:
		if msg.HasResponseError() {
			state.logger.Error("controller@starting entity subscription failed", zap.Error(msg.GetResponseError()))
			panic(msg.GetResponseError())
		}
		state.logger.Debug("controller@starting subscribed to entities")

		// publish HA discovery
		if state.config.MQTT.HADiscoveryEnable {
			device := events.BridgeDevice(state.config.MQTT.BaseTopic)
			ctx.Send(state.mqttActor, domain.PublishDiscoveryRequest{
				Sensors:  events.ControllerSensors(device, state.zones),
				Switches: events.IgnoreOverrideSwitches(device, state.zones),
			})
		}

		state.scheduler = scheduler.NewTimerScheduler(ctx)
		state.scheduler.RequestOnce(state.config.UpdateInterval(), ctx.Self(), controllerTick{})

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("controller@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *ControllerActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case controllerTick:
		state.logger.Debug("controller@default tick")
		state.runTick(ctx)
		state.scheduler.RequestOnce(state.config.UpdateInterval(), ctx.Self(), controllerTick{})
	case domain.EntityUpdate:
		state.entities[msg.EntityID] = domain.EntityState{
			Value:       msg.Payload,
			LastUpdated: time.Now(),
		}
	case adactor.ParsedCommand:
		state.logger.Debug("controller@default parsedCommand", zap.Any("command", msg.Command))
		if msg.Command != nil {
			cmd, err := ParsedMQTTCommandToCommand(*msg.Command)
			if err != nil {
				state.logger.Warn("controller@default invalid command payload", zap.Error(err))
			} else if cmd != nil {
				ctx.Send(ctx.Self(), cmd)
			}
		}
	case domain.SetBoostRequest:
		boost, err := state.engine.SetBoost(msg.ZoneID, msg.RoomID, msg.Duration, msg.Temperature, state.snapshot())
		state.respondEngine(ctx, msg, domain.SetBoostResponse{
			EngineResponseMixIn: engineError(err),
			Boost:               boost,
		}, err)
	case domain.ClearBoostRequest:
		cleared, err := state.engine.ClearBoost(msg.ZoneID, msg.RoomID)
		state.respondEngine(ctx, msg, domain.ClearBoostResponse{
			EngineResponseMixIn: engineError(err),
			Cleared:             cleared,
		}, err)
	case domain.SetModeRequest:
		err := state.engine.SetMode(msg.Mode)
		state.respondEngine(ctx, msg, domain.SetModeResponse{
			EngineResponseMixIn: engineError(err),
			Mode:                state.engine.Mode(),
		}, err)
	case domain.SetZoneTemperatureRequest:
		err := state.engine.SetZoneTemperature(msg.ZoneID, msg.Temperature, time.Now())
		state.respondEngine(ctx, msg, domain.SetZoneTemperatureResponse{
			EngineResponseMixIn: engineError(err),
		}, err)
	case domain.IgnoreManualOverrideRequest:
		err := state.engine.SetIgnoreManualOverride(msg.ZoneID, msg.RoomID, msg.Ignore)
		state.respondEngine(ctx, msg, domain.IgnoreManualOverrideResponse{
			EngineResponseMixIn: engineError(err),
			Ignore:              msg.Ignore,
		}, err)
	case domain.GetControllerStateRequest:
		state.logger.Debug("controller@default GetControllerStateRequest")
		resp := domain.GetControllerStateResponse{Mode: state.engine.Mode()}
		if state.lastResult != nil {
			resp.Zones = state.lastResult.Zones
			resp.Global = state.lastResult.Global
		}
		ForRequest(msg).Respond(ctx, resp)
	case domain.ActorHealthRequest:
		state.logger.Debug("controller@default ActorHealthRequest")
		state.currentHealthCheck.reset()
		state.currentHealthCheck.respondTo = ctx.Sender()
		state.currentHealthCheck.checksExpected = 1
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_MQTT,
				Healthy: false,
			}
		})
		if state.boilerActor != nil {
			state.currentHealthCheck.checksExpected = 2
			PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.boilerActor, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
				return domain.ActorHealthResponse{
					Id:      domain.ACTOR_ID_BOILER,
					Healthy: false,
				}
			})
		}
		ctx.SetReceiveTimeout(1 * time.Second)
		state.behavior.BecomeStacked(state.HealthCheckReceive)
	case domain.SetDemandResponse:
		if msg.HasResponseError() {
			state.logger.Error("controller@default boiler demand write failed", zap.Error(msg.GetResponseError()))
			// force a retry next tick
			state.lastDemand = nil
		} else {
			ctx.Send(state.mqttActor, domain.PublishSensorUpdateRequest{
				Event: domain.BinarySensorUpdateEvent{
					SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{Id: events.SENSOR_ID_BOILER_STATE},
					Value:                  msg.Demand,
				},
			})
		}
	case *actor.Terminated:
		if msg.Who.Id == fmt.Sprintf("%s/%s", domain.ACTOR_ID_CONTROLLER, domain.ACTOR_ID_MQTT) {
			state.logger.Error("controller@default mqtt terminated")
			panic(errors.New("mqtt terminated"))
		}
	case *actor.Stopping:
		state.persistIfDirty()
	default:
		state.logger.Debug("controller@default unhandled", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *ControllerActor) HealthCheckReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.ReceiveTimeout:
		// a child that does not answer in time counts as unhealthy
		state.currentHealthCheck.respond(ctx, state.boilerActor != nil)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthResponse:
		state.logger.Debug("controller@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.currentHealthCheck.checksReceived++
		if msg.Healthy {
			if msg.Id == domain.ACTOR_ID_MQTT {
				state.currentHealthCheck.mqttActorHealthy = true
			} else if msg.Id == domain.ACTOR_ID_BOILER {
				state.currentHealthCheck.boilerActorHealthy = true
			}
		}
		if state.currentHealthCheck.allReceived() {
			state.currentHealthCheck.respond(ctx, state.boilerActor != nil)
			state.behavior.UnbecomeStacked()
			state.stash.UnstashAll(ctx)
		} else {
			ctx.SetReceiveTimeout(1 * time.Second)
		}
	default:
		state.logger.Debug("controller@healthcheck stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

// runTick executes one engine pass over the current entity snapshot and
// ships commands, sensor updates and boiler demand out of the system.
func (state *ControllerActor) runTick(ctx actor.Context) {
	result := state.engine.Tick(state.snapshot())
	state.lastResult = &result

	for _, cmd := range result.Commands {
		ctx.Send(state.mqttActor, domain.CommandSetpointRequest{Command: cmd})
	}

	for _, ev := range events.TickResultToUpdateEvents(result) {
		ctx.Send(state.mqttActor, domain.PublishSensorUpdateRequest{Event: ev})
	}
	for _, ev := range events.IgnoreOverrideSwitchEvents(result.Zones, state.engine.IgnoreFlags()) {
		ctx.Send(state.mqttActor, domain.PublishSensorUpdateRequest{Event: ev, Retain: true})
	}

	if state.boilerActor != nil {
		demand := result.Global.HeatingDemand
		if state.lastDemand == nil || *state.lastDemand != demand {
			state.logger.Info("controller@tick boiler demand change", zap.Bool("demand", demand))
			ctx.Request(state.boilerActor, domain.SetDemandRequest{Demand: demand})
			state.lastDemand = &demand
		}
	}

	state.persistIfDirty()
}

func (state *ControllerActor) persistIfDirty() {
	if !state.engine.Dirty() {
		return
	}
	if err := state.store.Save(state.engine.PersistedState()); err != nil {
		state.logger.Error("controller: state save failed", zap.Error(err))
		return
	}
	state.engine.MarkPersisted()
}

func (state *ControllerActor) snapshot() domain.Snapshot {
	entities := make(map[string]domain.EntityState, len(state.entities))
	for id, e := range state.entities {
		entities[id] = e
	}
	return domain.Snapshot{Now: time.Now(), Entities: entities}
}

// respondEngine answers an engine command when it carries a reply
// target. Commands arriving over MQTT have none; state changes still
// surface through the immediate refresh below.
func (state *ControllerActor) respondEngine(ctx actor.Context, req domain.EngineRequest, resp domain.EngineResponse, err error) {
	if err != nil {
		state.logger.Warn("controller@default engine command rejected",
			zap.String("command", req.EngineCommand()), zap.Error(err))
	}
	if replyTo := ForRequest(req).ReplyTo(ctx); replyTo != nil {
		ctx.Send(replyTo, resp)
	}
	if err == nil {
		state.runTick(ctx)
	}
}

func (state *ControllerActor) startMQTTActor(ctx actor.Context) (*actor.PID, error) {
	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	mqttProps := actor.PropsFromProducer(func() actor.Actor {
		return state.mqttActorProvider()
	}, actor.WithSupervisor(supervisor))
	return ctx.SpawnNamed(mqttProps, domain.ACTOR_ID_MQTT)
}

func (state *ControllerActor) startBoilerActor(ctx actor.Context) (*actor.PID, error) {
	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, decider)

	boilerProps := actor.PropsFromProducer(func() actor.Actor {
		return state.boilerActorProvider()
	}, actor.WithSupervisor(supervisor))
	return ctx.SpawnNamed(boilerProps, domain.ACTOR_ID_BOILER)
}

// collectEntityIds lists every MQTT topic the engine reads: sensor
// temperature and last_seen topics plus TRV temperature and setpoint
// topics.
func collectEntityIds(zones []domain.Zone) []string {
	seen := map[string]bool{}
	var ids []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, zone := range zones {
		for _, room := range zone.Rooms {
			for _, sensor := range room.Sensors {
				add(sensor.TemperatureID)
				add(sensor.LastSeenID)
			}
			for _, trv := range room.TRVs {
				add(service.TRVTemperatureEntity(trv))
				add(service.TRVSetpointEntity(trv))
			}
		}
	}
	return ids
}

func engineError(err error) domain.EngineResponseMixIn {
	return domain.EngineResponseMixIn{
		ActorResponseMixIn: domain.ActorResponseMixIn{
			ResponseError: err,
		},
	}
}

func (state *healthCheckResult) reset() {
	state.mqttActorHealthy = false
	state.boilerActorHealthy = false
	state.checksExpected = 0
	state.checksReceived = 0
}

func (state *healthCheckResult) allReceived() bool {
	return state.checksReceived == state.checksExpected
}

func (state *healthCheckResult) allHealthy(boilerEnabled bool) bool {
	if boilerEnabled && !state.boilerActorHealthy {
		return false
	}
	return state.mqttActorHealthy
}

func (state *healthCheckResult) respond(ctx actor.Context, boilerEnabled bool) {
	resp := domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_CONTROLLER,
		Healthy: state.allHealthy(boilerEnabled),
	}
	if state.respondTo != nil {
		ctx.Send(state.respondTo, resp)
	}
}
