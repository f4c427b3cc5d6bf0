package actorutil

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"heatwarden2mqtt/internal/core/domain"
	"heatwarden2mqtt/internal/mqtt"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/lmittmann/tint"
	"go.uber.org/zap"
)

func PipeToSelfWithRecover(ctx actor.Context, future *actor.Future, mapFn func(error) any) {
	ctx.ReenterAfter(future, func(msg any, err error) {
		if err != nil {
			ctx.Send(ctx.Self(), mapFn(err))
			return
		}
		ctx.Send(ctx.Self(), msg)
	})
}

func NewActorSystemWithZapLogger(logger *zap.Logger) *actor.ActorSystem {
	stdOutLogger := zap.NewStdLog(logger)

	var slogLevel slog.Level = slog.LevelInfo

	switch logger.Level() {
	case zap.DebugLevel:
		slogLevel = slog.LevelDebug
	case zap.InfoLevel:
		slogLevel = slog.LevelInfo
	case zap.WarnLevel:
		slogLevel = slog.LevelWarn
	case zap.ErrorLevel:
		slogLevel = slog.LevelError
	case zap.PanicLevel:
		slogLevel = slog.LevelError
	}

	return actor.NewActorSystem(actor.WithLoggerFactory(func(system *actor.ActorSystem) *slog.Logger {

		// create a new logger
		return slog.New(tint.NewHandler(stdOutLogger.Writer(), &tint.Options{
			Level:      slogLevel,
			TimeFormat: time.DateTime,
		}))
	}))
}

func ActorLogger(actorName string, logger *zap.Logger) *zap.Logger {
	return logger.With(zap.String("actor", actorName))
}

// boostPayload is the optional JSON body of a boost command.
type boostPayload struct {
	Temperature     *float64 `json:"temperature"`
	DurationMinutes *uint    `json:"duration_minutes"`
}

// ParsedMQTTCommandToCommand maps a parsed command topic to the engine
// request it stands for. Unknown commands map to (nil, nil).
func ParsedMQTTCommandToCommand(cmd mqtt.ParsedMQTTCommand) (domain.EngineRequest, error) {
	switch cmd.Command {
	case mqtt.COMMAND_BOOST:
		return boostCommand(cmd)
	case mqtt.COMMAND_MODE:
		switch cmd.Payload {
		case string(domain.ModeSchedule), string(domain.ModeAway):
			return domain.SetModeRequest{Mode: domain.GlobalMode(cmd.Payload)}, nil
		}
		return nil, fmt.Errorf("invalid mode %q", cmd.Payload)
	case mqtt.COMMAND_ZONE_TEMPERATURE:
		value, err := strconv.ParseFloat(cmd.Payload, 64)
		if err != nil {
			return nil, err
		}
		return domain.SetZoneTemperatureRequest{
			ZoneID:      cmd.ZoneId,
			Temperature: value,
		}, nil
	case mqtt.COMMAND_IGNORE_OVERRIDE:
		return domain.IgnoreManualOverrideRequest{
			ZoneID: cmd.ZoneId,
			RoomID: cmd.RoomId,
			Ignore: cmd.Payload == mqtt.MQTT_PAYLOAD_ON,
		}, nil
	case mqtt.COMMAND_SWITCH:
		zoneId, roomId, ok := parseIgnoreOverrideSwitchId(cmd.ZoneId)
		if !ok {
			return nil, nil
		}
		return domain.IgnoreManualOverrideRequest{
			ZoneID: zoneId,
			RoomID: roomId,
			Ignore: cmd.Payload == mqtt.MQTT_PAYLOAD_ON,
		}, nil
	}
	return nil, nil
}

func boostCommand(cmd mqtt.ParsedMQTTCommand) (domain.EngineRequest, error) {
	if cmd.Payload == mqtt.MQTT_PAYLOAD_OFF {
		return domain.ClearBoostRequest{
			ZoneID: cmd.ZoneId,
			RoomID: cmd.RoomId,
		}, nil
	}

	req := domain.SetBoostRequest{
		ZoneID: cmd.ZoneId,
		RoomID: cmd.RoomId,
	}
	if cmd.Payload == "" || cmd.Payload == mqtt.MQTT_PAYLOAD_ON {
		return req, nil
	}

	var payload boostPayload
	if err := json.Unmarshal([]byte(cmd.Payload), &payload); err != nil {
		return nil, fmt.Errorf("invalid boost payload: %w", err)
	}
	req.Temperature = payload.Temperature
	if payload.DurationMinutes != nil {
		d := time.Duration(*payload.DurationMinutes) * time.Minute
		req.Duration = &d
	}
	return req, nil
}

// parseIgnoreOverrideSwitchId splits "zone_<z>_room_<r>_ignore_override"
// back into its zone and room ids.
func parseIgnoreOverrideSwitchId(id string) (string, string, bool) {
	body, found := strings.CutSuffix(id, "_ignore_override")
	if !found {
		return "", "", false
	}
	body, found = strings.CutPrefix(body, "zone_")
	if !found {
		return "", "", false
	}
	zoneId, roomId, found := strings.Cut(body, "_room_")
	if !found || zoneId == "" || roomId == "" {
		return "", "", false
	}
	return zoneId, roomId, true
}
