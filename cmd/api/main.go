package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	adactor "heatwarden2mqtt/internal/adapter/actor"
	"heatwarden2mqtt/internal/config"
	"heatwarden2mqtt/internal/core/actor"
	"heatwarden2mqtt/internal/server"
	"heatwarden2mqtt/internal/storage"
	"heatwarden2mqtt/internal/util/actorutil"
	"heatwarden2mqtt/pkg/boilermodbus"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {

	// load and print config
	cfg, err := initConfig()
	if err != nil {
		slog.Error("config errors", "error", err)
		return
	}
	safePrintConfig(*cfg)

	zones, err := cfg.NormalizeZones()
	if err != nil {
		slog.Error("zone config errors", "error", err)
		return
	}

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	ctx := as.Root

	defer logger.Sync()

	store := storage.NewStore(afero.NewOsFs(), cfg.StateFile, logger)

	// init boiler actor provider
	boilerProv, err := boilerActorProvider(cfg, logger)
	if err != nil {
		panic(err)
	}

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewControllerActor(cfg, zones, store, mqttActorProvider(cfg, logger), boilerProv, logger)
	})
	pid, err := ctx.SpawnNamed(props, "controller")
	if err != nil {
		return
	}

	server := server.NewServer(*cfg, ctx, pid)
	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(server, done)

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")

	ctx.Stop(pid)
	as.Shutdown()
}

func initConfig() (*config.Config, error) {

	// alias PORT => HEATWARDEN_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("HEATWARDEN_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("heatwarden")
	viper.AutomaticEnv()

	// if defined, try to load config from yaml file
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			viper.SetConfigFile(cfgFile)

			err = viper.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	// parse log level
	switch viper.GetString("log_level") {
	case "trace":
		cfg.LogLevel = zap.DebugLevel
	case "debug":
		cfg.LogLevel = zap.DebugLevel
	case "info":
		cfg.LogLevel = zap.InfoLevel
	case "error":
		cfg.LogLevel = zap.ErrorLevel
	case "warn":
		cfg.LogLevel = zap.WarnLevel
	case "fatal":
		cfg.LogLevel = zap.FatalLevel
	default:
		cfg.LogLevel = zap.InfoLevel
	}

	// check and fix base topic
	baseTopic, err := config.CheckMQTTTopic(cfg.MQTT.BaseTopic)
	if err != nil {
		return nil, errors.New("invalid base topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.BaseTopic = baseTopic

	// check and fix homeassistant discovery topic
	hadBaseTopic, err := config.CheckMQTTTopic(cfg.MQTT.HADiscoveryTopic)
	if err != nil {
		return nil, errors.New("invalid homeassistant discovery topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.HADiscoveryTopic = hadBaseTopic

	// check bounds
	if cfg.Control.UpdateIntervalSeconds < 5 {
		return nil, errors.New("config param control.update_interval should be >= 5s")
	}
	if cfg.Control.SensorTimeoutMinutes == 0 {
		return nil, errors.New("config param control.sensor_timeout_minutes should be > 0")
	}
	if cfg.Control.HeatingDeadband <= 0 {
		return nil, errors.New("config param control.heating_deadband should be > 0")
	}
	if cfg.Control.TRVOffsetEMAAlpha <= 0 || cfg.Control.TRVOffsetEMAAlpha > 1 {
		return nil, errors.New("config param control.trv_offset_ema_alpha should be in (0, 1]")
	}
	if cfg.Control.TRVOvershootMax < 0 {
		return nil, errors.New("config param control.trv_overshoot_max should be >= 0")
	}
	if cfg.Control.FrostProtectionTemp < cfg.Control.MinimumTemp {
		return nil, errors.New("config param control.frost_protection_temp should be >= control.minimum_temp")
	}
	if cfg.Analytics.Enabled && cfg.Analytics.HistorySize < 2 {
		return nil, errors.New("config param analytics.history_size should be >= 2")
	}
	if cfg.Analytics.Smoothing <= 0 || cfg.Analytics.Smoothing > 1 {
		return nil, errors.New("config param analytics.derivative_smoothing_factor should be in (0, 1]")
	}

	return &cfg, nil
}

func boilerActorProvider(cfg *config.Config, logger *zap.Logger) (actor.BoilerActorProvider, error) {
	if !cfg.Boiler.Enabled {
		return nil, nil
	}

	relay, err := boilermodbus.CreateBoilerRelay(cfg.Boiler.Host, cfg.Boiler.Port,
		uint8(cfg.Boiler.UnitId), uint16(cfg.Boiler.DemandCoil), 1*time.Second, logger)
	if err != nil {
		return nil, err
	}

	return func() *adactor.BoilerActor {
		return adactor.NewBoilerActor(relay, logger)
	}, nil
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	return func() *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, logger)
	}
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("mqtt.ha_discovery_enable", false)
	viper.SetDefault("mqtt.base_topic", "heatwarden")
	viper.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
	viper.SetDefault("control.update_interval", 60)
	viper.SetDefault("control.sensor_timeout_minutes", 15)
	viper.SetDefault("control.fallback_mode", "zone_average")
	viper.SetDefault("control.minimum_temp", 15.0)
	viper.SetDefault("control.frost_protection_temp", 15.0)
	viper.SetDefault("control.heating_demand_mode", "any_room")
	viper.SetDefault("control.heating_deadband", 0.3)
	viper.SetDefault("control.boost_duration", 30)
	viper.SetDefault("control.trv_overshoot_enabled", true)
	viper.SetDefault("control.trv_overshoot_max", 5.0)
	viper.SetDefault("control.trv_overshoot_threshold", 0.3)
	viper.SetDefault("control.trv_cooldown_offset", 1.0)
	viper.SetDefault("control.trv_offset_ema_alpha", 0.15)
	viper.SetDefault("control.max_temp_change_per_minute", 0.5)
	viper.SetDefault("analytics.enabled", true)
	viper.SetDefault("analytics.history_size", 30)
	viper.SetDefault("analytics.min_samples", 3)
	viper.SetDefault("analytics.derivative_smoothing_factor", 0.3)
	viper.SetDefault("boiler.enabled", false)
	viper.SetDefault("boiler.port", 502)
	viper.SetDefault("boiler.unit_id", 1)
	viper.SetDefault("boiler.demand_coil", 0)
	viper.SetDefault("state_file", "heatwarden_state.json")
	viper.SetDefault("port", 8080)
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	slog.Info("Using", "config", cfg)
}
