package service

import (
	"fmt"
	"time"

	"heatwarden2mqtt/internal/config"
	"heatwarden2mqtt/internal/core/domain"

	"go.uber.org/zap"
)

// Target sources reported on room results.
const (
	TargetSourceAway     = "away"
	TargetSourceBoost    = "boost"
	TargetSourceManual   = "manual"
	TargetSourceSchedule = "schedule"
)

// Engine is the single-threaded control core. Tick and every command
// method mutate internal state, so all calls must come from one
// goroutine; the controller actor provides that serialization.
type Engine struct {
	zones           []domain.Zone
	mode            domain.GlobalMode
	frostProtection float64

	temps     *TemperatureResolver
	schedules *ScheduleResolver
	boosts    *BoostManager
	deadband  *DeadbandController
	offsets   *OffsetLearner
	setpoints *SetpointCalculator
	analytics *HeatingAnalytics

	ignoreOverride map[string]bool
	manualTemps    map[string]domain.ManualZoneTemp

	dirty  bool
	logger *zap.Logger
}

func NewEngine(cfg *config.Config, zones []domain.Zone, logger *zap.Logger) *Engine {
	validator := NewTemperatureValidator(cfg.Control.MaxTempChangePerMinute, logger)
	ignore := map[string]bool{}
	for _, z := range zones {
		for _, r := range z.Rooms {
			ignore[domain.RoomKey(z.ID, r.ID)] = r.IgnoreManualOverride
		}
	}
	return &Engine{
		zones:           zones,
		mode:            domain.ModeSchedule,
		frostProtection: cfg.Control.FrostProtectionTemp,
		temps:           NewTemperatureResolver(cfg.SensorTimeout(), validator, logger),
		schedules:       NewScheduleResolver(cfg.Control.MinimumTemp),
		boosts:          NewBoostManager(cfg.BoostDuration(), logger),
		deadband:        NewDeadbandController(),
		offsets:         NewOffsetLearner(cfg.Control.TRVOffsetEMAAlpha),
		setpoints: NewSetpointCalculator(cfg.Control.TRVOvershootEnabled,
			cfg.Control.TRVOvershootMax, cfg.Control.TRVOvershootThreshold,
			cfg.Control.TRVCooldownOffset, cfg.Control.FrostProtectionTemp),
		analytics: NewHeatingAnalytics(cfg.Analytics.Enabled,
			cfg.Analytics.HistorySize, cfg.Analytics.MinSamples, cfg.Analytics.Smoothing),
		ignoreOverride: ignore,
		manualTemps:    map[string]domain.ManualZoneTemp{},
		logger:         logger,
	}
}

func (e *Engine) Close() {
	e.temps.Close()
}

// Tick runs one full control pass over the snapshot.
func (e *Engine) Tick(snap domain.Snapshot) domain.TickResult {
	result := domain.TickResult{}

	for _, zone := range e.zones {
		zr := e.tickZone(zone, snap, &result.Commands)
		result.Zones = append(result.Zones, zr)
	}

	result.Global = e.globalResult(result.Zones)
	e.dirty = true
	return result
}

func (e *Engine) tickZone(zone domain.Zone, snap domain.Snapshot, commands *[]domain.SetpointCommand) domain.ZoneResult {
	zr := domain.ZoneResult{
		ZoneID:     zone.ID,
		Name:       zone.Name,
		DemandMode: zone.DemandMode,
	}

	scheduled := e.schedules.ScheduledTarget(zone.Schedule, snap.Now)
	e.expireManualTemp(zone.ID, scheduled)

	for _, room := range zone.Rooms {
		rr := e.tickRoom(zone, room, scheduled, snap, commands)
		zr.Rooms = append(zr.Rooms, rr)
		if rr.NeedsHeating {
			zr.RoomsNeedingHeat = append(zr.RoomsNeedingHeat, room.ID)
		}
		if rr.Boost != nil {
			zr.BoostedRooms = append(zr.BoostedRooms, room.ID)
		}
	}

	zr.HeatingDemand = ZoneDemand(zr.Rooms, zone.DemandMode, zone.Deadband)
	return zr
}

func (e *Engine) tickRoom(zone domain.Zone, room domain.Room, scheduled float64, snap domain.Snapshot, commands *[]domain.SetpointCommand) domain.RoomResult {
	key := domain.RoomKey(zone.ID, room.ID)
	reading := e.temps.ResolveRoom(zone, room, snap)

	target, source, boost := e.effectiveTarget(zone.ID, room.ID, scheduled, snap.Now)

	needsHeating, _ := e.deadband.Update(key, reading.Value, target, zone.Deadband)

	rr := domain.RoomResult{
		ZoneID:            zone.ID,
		RoomID:            room.ID,
		Name:              room.Name,
		Temperature:       reading.Value,
		TemperatureSource: reading.Source,
		SensorsStatus:     reading.Sensors,
		EffectiveTarget:   target,
		TargetSource:      source,
		NeedsHeating:      needsHeating,
		Boost:             boost,
	}

	for _, trvID := range room.TRVs {
		info := e.tickTRV(zone.ID, room.ID, trvID, target, reading.Value, snap, commands)
		rr.TRVs = append(rr.TRVs, info)
		if info.ManualOverride {
			rr.ManualOverride = true
		}
	}

	e.analytics.Record(key, reading.Value, needsHeating, snap.Now)
	rr.Analytics = e.analytics.Report(key, reading.Value, target)
	return rr
}

func (e *Engine) tickTRV(zoneID, roomID, trvID string, target float64, roomTemp *float64, snap domain.Snapshot, commands *[]domain.SetpointCommand) domain.TRVInfo {
	trvTemp := ParseEntityFloat(snap, TRVTemperatureEntity(trvID))
	reported := ParseEntityFloat(snap, TRVSetpointEntity(trvID))

	e.offsets.Observe(trvID, trvTemp, roomTemp, snap.Now)
	offset := e.offsets.Current(trvID)

	lastCommanded := e.setpoints.LastCommanded(trvID)
	override := ManualOverride(reported, lastCommanded, e.ignoreOverride[domain.RoomKey(zoneID, roomID)])
	if override {
		e.logger.Info("manual override detected, skipping setpoint command",
			zap.String("trv", trvID),
			zap.Float64("reported", *reported),
			zap.Float64("commanded", *lastCommanded))
	}

	info := domain.TRVInfo{
		TRVID:            trvID,
		InternalTemp:     trvTemp,
		LearnedOffset:    offset,
		ReportedSetpoint: reported,
		ManualOverride:   override,
	}
	if trvTemp != nil && roomTemp != nil {
		diff := *trvTemp - *roomTemp
		info.CurrentOffset = &diff
	}

	if !override {
		cmd := e.setpoints.Command(zoneID, roomID, trvID, target, roomTemp, offset)
		info.CommandedSetpoint = &cmd.Setpoint
		// Only emit a command when the wanted setpoint differs from
		// what the valve already reports.
		if reported == nil || TargetChanged(cmd.Setpoint, *reported) {
			*commands = append(*commands, cmd)
		}
	}
	return info
}

// effectiveTarget applies the precedence away > boost > manual zone
// temperature > schedule.
func (e *Engine) effectiveTarget(zoneID, roomID string, scheduled float64, now time.Time) (float64, string, *domain.BoostState) {
	if e.mode == domain.ModeAway {
		return e.frostProtection, TargetSourceAway, nil
	}
	if boost := e.boosts.Effective(zoneID, roomID, now); boost != nil {
		return boost.Temperature, TargetSourceBoost, boost
	}
	if manual, ok := e.manualTemps[zoneID]; ok {
		return manual.Temperature, TargetSourceManual, nil
	}
	return scheduled, TargetSourceSchedule, nil
}

// expireManualTemp drops a zone's manual temperature once the schedule
// moves to a different target than the one active when it was set.
func (e *Engine) expireManualTemp(zoneID string, scheduled float64) {
	manual, ok := e.manualTemps[zoneID]
	if !ok {
		return
	}
	if TargetChanged(scheduled, manual.LastScheduledTemp) {
		delete(e.manualTemps, zoneID)
		e.dirty = true
		e.logger.Info("manual zone temperature expired on schedule change",
			zap.String("zone", zoneID),
			zap.Float64("scheduled", scheduled))
	}
}

func (e *Engine) globalResult(zones []domain.ZoneResult) domain.GlobalResult {
	gr := domain.GlobalResult{
		HeatingDemand: GlobalDemand(zones),
		Mode:          e.mode,
		TotalZones:    len(zones),
	}
	for _, z := range zones {
		if z.HeatingDemand {
			gr.ZonesDemanding++
			gr.ZonesNeedingHeat = append(gr.ZonesNeedingHeat, z.ZoneID)
		}
		for _, id := range z.RoomsNeedingHeat {
			gr.RoomsNeedingHeat = append(gr.RoomsNeedingHeat, domain.RoomKey(z.ZoneID, id))
		}
		for _, id := range z.BoostedRooms {
			gr.BoostedRooms = append(gr.BoostedRooms, domain.RoomKey(z.ZoneID, id))
		}
	}
	return gr
}

// SetBoost places a boost on a room. When no explicit temperature is
// given the room temperature is resolved from the snapshot to derive
// one.
func (e *Engine) SetBoost(zoneID, roomID string, duration *time.Duration, temperature *float64, snap domain.Snapshot) (*domain.BoostState, error) {
	zone, room, err := e.findRoom(zoneID, roomID)
	if err != nil {
		return nil, err
	}
	var roomTemp *float64
	if temperature == nil {
		reading := e.temps.ResolveRoom(*zone, *room, snap)
		roomTemp = reading.Value
	}
	boost, err := e.boosts.Set(zoneID, roomID, duration, temperature, roomTemp, snap.Now)
	if err != nil {
		return nil, err
	}
	e.dirty = true
	return &boost, nil
}

func (e *Engine) ClearBoost(zoneID, roomID string) (bool, error) {
	if _, _, err := e.findRoom(zoneID, roomID); err != nil {
		return false, err
	}
	cleared := e.boosts.Clear(zoneID, roomID)
	if cleared {
		e.dirty = true
	}
	return cleared, nil
}

func (e *Engine) SetMode(mode domain.GlobalMode) error {
	if mode != domain.ModeSchedule && mode != domain.ModeAway {
		return fmt.Errorf("unknown mode %q", mode)
	}
	if e.mode != mode {
		e.mode = mode
		e.dirty = true
		e.logger.Info("global mode changed", zap.String("mode", string(mode)))
	}
	return nil
}

func (e *Engine) Mode() domain.GlobalMode {
	return e.mode
}

// SetZoneTemperature sets a manual target for a zone that holds until
// the schedule next changes.
func (e *Engine) SetZoneTemperature(zoneID string, temperature float64, now time.Time) error {
	zone := e.findZone(zoneID)
	if zone == nil {
		return fmt.Errorf("unknown zone %q", zoneID)
	}
	if temperature < e.frostProtection || temperature > MaxSetpoint {
		return fmt.Errorf("temperature %.1f out of range [%.1f, %.1f]",
			temperature, e.frostProtection, MaxSetpoint)
	}
	e.manualTemps[zoneID] = domain.ManualZoneTemp{
		Temperature:       temperature,
		LastScheduledTemp: e.schedules.ScheduledTarget(zone.Schedule, now),
	}
	e.dirty = true
	e.logger.Info("manual zone temperature set",
		zap.String("zone", zoneID),
		zap.Float64("temperature", temperature))
	return nil
}

func (e *Engine) SetIgnoreManualOverride(zoneID, roomID string, ignore bool) error {
	if _, _, err := e.findRoom(zoneID, roomID); err != nil {
		return err
	}
	e.ignoreOverride[domain.RoomKey(zoneID, roomID)] = ignore
	return nil
}

// IgnoreFlags exposes the per-room ignore state for publishing.
func (e *Engine) IgnoreFlags() map[string]bool {
	out := make(map[string]bool, len(e.ignoreOverride))
	for k, v := range e.ignoreOverride {
		out[k] = v
	}
	return out
}

func (e *Engine) findZone(zoneID string) *domain.Zone {
	for i := range e.zones {
		if e.zones[i].ID == zoneID {
			return &e.zones[i]
		}
	}
	return nil
}

func (e *Engine) findRoom(zoneID, roomID string) (*domain.Zone, *domain.Room, error) {
	zone := e.findZone(zoneID)
	if zone == nil {
		return nil, nil, fmt.Errorf("unknown zone %q", zoneID)
	}
	for i := range zone.Rooms {
		if zone.Rooms[i].ID == roomID {
			return zone, &zone.Rooms[i], nil
		}
	}
	return nil, nil, fmt.Errorf("unknown room %q in zone %q", roomID, zoneID)
}

// Dirty reports whether state changed since the last MarkPersisted.
func (e *Engine) Dirty() bool {
	return e.dirty
}

func (e *Engine) MarkPersisted() {
	e.dirty = false
}

// PersistedState snapshots the engine state for the store.
func (e *Engine) PersistedState() domain.PersistedState {
	manual := make(map[string]domain.ManualZoneTemp, len(e.manualTemps))
	for k, v := range e.manualTemps {
		manual[k] = v
	}
	return domain.PersistedState{
		Mode:           e.mode,
		Boosts:         e.boosts.SnapshotState(),
		Offsets:        e.offsets.SnapshotState(),
		Deadband:       e.deadband.SnapshotState(),
		ManualZoneTemp: manual,
	}
}

// Restore loads persisted state, dropping boosts that expired while
// the process was down.
func (e *Engine) Restore(state domain.PersistedState, now time.Time) {
	if state.Mode == domain.ModeAway {
		e.mode = domain.ModeAway
	} else {
		e.mode = domain.ModeSchedule
	}
	e.boosts.Restore(state.Boosts, now)
	e.offsets.Restore(state.Offsets)
	e.deadband.Restore(state.Deadband)
	e.manualTemps = map[string]domain.ManualZoneTemp{}
	for k, v := range state.ManualZoneTemp {
		e.manualTemps[k] = v
	}
	e.dirty = false
}
