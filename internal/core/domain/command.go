package domain

import (
	"fmt"
	"time"
)

// EngineRequest

type EngineRequest interface {
	ActorRequest
	EngineCommand() string
}

type EngineRequestMixIn struct {
	ActorRequestMixIn
}

func (r EngineRequestMixIn) EngineCommand() string {
	return fmt.Sprintf("%T", r)
}

// EngineResponse

type EngineResponse interface {
	ActorResponse
	EngineResponse() string
}

type EngineResponseMixIn struct {
	ActorResponseMixIn
}

func (r EngineResponseMixIn) EngineResponse() string {
	return fmt.Sprintf("%T", r)
}

// Engine commands

type SetBoostRequest struct {
	EngineRequestMixIn
	ZoneID      string
	RoomID      string
	Duration    *time.Duration
	Temperature *float64
}

type SetBoostResponse struct {
	EngineResponseMixIn
	Boost *BoostState
}

type ClearBoostRequest struct {
	EngineRequestMixIn
	ZoneID string
	RoomID string
}

type ClearBoostResponse struct {
	EngineResponseMixIn
	Cleared bool
}

type SetModeRequest struct {
	EngineRequestMixIn
	Mode GlobalMode
}

type SetModeResponse struct {
	EngineResponseMixIn
	Mode GlobalMode
}

type SetZoneTemperatureRequest struct {
	EngineRequestMixIn
	ZoneID      string
	Temperature float64
}

type SetZoneTemperatureResponse struct {
	EngineResponseMixIn
}

type IgnoreManualOverrideRequest struct {
	EngineRequestMixIn
	ZoneID string
	RoomID string
	Ignore bool
}

type IgnoreManualOverrideResponse struct {
	EngineResponseMixIn
	Ignore bool
}

type GetControllerStateRequest struct {
	EngineRequestMixIn
}

type GetControllerStateResponse struct {
	EngineResponseMixIn
	Mode   GlobalMode
	Zones  []ZoneResult
	Global GlobalResult
}

// ensure interface compliance
var _ EngineRequest = (*SetBoostRequest)(nil)
var _ EngineResponse = (*SetBoostResponse)(nil)
