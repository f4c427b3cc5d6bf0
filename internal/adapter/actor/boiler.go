package actor

import (
	"fmt"
	"time"

	"heatwarden2mqtt/internal/core/domain"
	"heatwarden2mqtt/internal/util/actorutil"
	"heatwarden2mqtt/pkg/boilermodbus"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/reugn/go-quartz/logger"
	"go.uber.org/zap"
)

type BoilerActor struct {
	behavior actor.Behavior
	stash    *actorutil.Stash
	relay    boilermodbus.BoilerRelay
	logger   *zap.Logger
}

type backgroundTaskResult struct {
	message any
	replyTo *actor.PID
}

func NewBoilerActor(relay boilermodbus.BoilerRelay, logger *zap.Logger) *BoilerActor {
	act := &BoilerActor{
		relay:    relay,
		behavior: actor.NewBehavior(),
		stash:    &actorutil.Stash{},
		logger:   actorutil.ActorLogger(domain.ACTOR_ID_BOILER, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *BoilerActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *BoilerActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("boiler@starting started")
		if state.relay != nil {
			if err := state.relay.Open(); err != nil {
				panic(err)
			}
		}
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
		if state.relay != nil {
			state.relay.Close()
		}
	default:
		state.logger.Debug("boiler@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *BoilerActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("boiler@default ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_BOILER,
			Healthy: true,
			State:   "idle",
		})
	case domain.SetDemandRequest:
		state.logger.Debug("boiler@default SetDemandRequest", zap.Bool("demand", msg.Demand))
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, func() (*domain.SetDemandResponse, error) {
			return state.setDemand(msg.Demand)
		}), mapTaskResult[domain.SetDemandResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.SetDemandResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(2 * time.Second).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingRelay)
	case *actor.Stopping:
		if state.relay != nil {
			state.relay.SetDemand(false)
			state.relay.Close()
		}
	default:
		state.logger.Debug("boiler@default unhandled", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *BoilerActor) WaitingRelay(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case backgroundTaskResult:
		state.logger.Debug("boiler@waitingRelay backgroundTaskResult", zap.String("type", fmt.Sprintf("%T", msg.message)))
		if msg.replyTo != nil {
			ctx.Send(msg.replyTo, msg.message)
		}
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case *actor.Stopping:
		if state.relay != nil {
			state.relay.Close()
		}
	default:
		state.logger.Debug("boiler@waitingRelay stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (a *BoilerActor) setDemand(demand bool) (*domain.SetDemandResponse, error) {
	if a.relay != nil {
		if err := a.relay.SetDemand(demand); err != nil {
			logger.Error(err)
			return nil, err
		}
	}
	return &domain.SetDemandResponse{Demand: demand}, nil
}

func mapTaskResult[T any](sender *actor.PID) func(t *T) *backgroundTaskResult {
	return func(t *T) *backgroundTaskResult {
		return &backgroundTaskResult{
			message: *t,
			replyTo: sender,
		}
	}
}
