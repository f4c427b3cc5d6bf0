package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"heatwarden2mqtt/internal/core/domain"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Store persists the engine state as a JSON document. A missing or
// corrupt file never blocks startup: Load falls back to a fresh state
// and reports the problem to the caller.
type Store struct {
	fs     afero.Fs
	path   string
	logger *zap.Logger
}

func NewStore(fs afero.Fs, path string, logger *zap.Logger) *Store {
	return &Store{fs: fs, path: path, logger: logger}
}

// persistedDocument is the on-disk shape. Offsets is raw so legacy
// formats can still be decoded.
type persistedDocument struct {
	Mode           domain.GlobalMode                `json:"mode"`
	Boosts         map[string]domain.BoostState     `json:"boosts"`
	Offsets        json.RawMessage                  `json:"offsets"`
	Deadband       map[string]domain.DeadbandState  `json:"deadband"`
	ManualZoneTemp map[string]domain.ManualZoneTemp `json:"manual_zone_temp"`
}

// Load reads the persisted state. The returned state is always usable,
// the error only reports why parts of it may be fresh.
func (s *Store) Load(now time.Time) (domain.PersistedState, error) {
	state := domain.NewPersistedState()

	exists, err := afero.Exists(s.fs, s.path)
	if err != nil {
		return state, fmt.Errorf("stat state file: %w", err)
	}
	if !exists {
		s.logger.Info("no state file, starting fresh", zap.String("path", s.path))
		return state, nil
	}

	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return state, fmt.Errorf("read state file: %w", err)
	}

	var doc persistedDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return state, fmt.Errorf("parse state file: %w", err)
	}

	if doc.Mode == domain.ModeAway {
		state.Mode = domain.ModeAway
	}
	for k, v := range doc.Boosts {
		state.Boosts[k] = v
	}
	for k, v := range doc.Deadband {
		state.Deadband[k] = v
	}
	for k, v := range doc.ManualZoneTemp {
		state.ManualZoneTemp[k] = v
	}
	state.Offsets = s.decodeOffsets(doc.Offsets, now)

	s.logger.Info("state loaded",
		zap.String("path", s.path),
		zap.Int("boosts", len(state.Boosts)),
		zap.Int("offsets", len(state.Offsets)))
	return state, nil
}

// Save writes the state atomically via a temp file rename.
func (s *Store) Save(state domain.PersistedState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, os.FileMode(0o644)); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

// decodeOffsets accepts three historical formats for the offsets map:
// the current OffsetState objects, a bare number per TRV, and the
// oldest one, a list of recent samples per TRV which migrates to an
// EMA seeded with the list average. Values may additionally be nested
// under zone/room maps from before offsets were keyed by TRV alone.
func (s *Store) decodeOffsets(raw json.RawMessage, now time.Time) map[string]domain.OffsetState {
	out := map[string]domain.OffsetState{}
	if len(raw) == 0 {
		return out
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		s.logger.Warn("discarding unreadable offsets", zap.Error(err))
		return out
	}
	for key, value := range top {
		s.decodeOffsetValue(key, value, now, out)
	}
	return out
}

func (s *Store) decodeOffsetValue(key string, raw json.RawMessage, now time.Time, out map[string]domain.OffsetState) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err == nil {
		if _, ok := fields["ema"]; ok {
			var state domain.OffsetState
			if err := json.Unmarshal(raw, &state); err == nil {
				out[key] = state
				return
			}
		}
		// nested map from before offsets were keyed by TRV id alone:
		// the innermost key is the TRV id
		for innerKey, innerValue := range fields {
			s.decodeOffsetValue(innerKey, innerValue, now, out)
		}
		return
	}

	var flat float64
	if err := json.Unmarshal(raw, &flat); err == nil {
		out[key] = domain.OffsetState{EMA: flat, Initialized: true, UpdatedAt: now}
		return
	}

	var samples []float64
	if err := json.Unmarshal(raw, &samples); err == nil {
		if len(samples) == 0 {
			return
		}
		sum := 0.0
		for _, v := range samples {
			sum += v
		}
		out[key] = domain.OffsetState{
			EMA:         sum / float64(len(samples)),
			Initialized: true,
			UpdatedAt:   now,
		}
		s.logger.Info("migrated legacy offset samples",
			zap.String("trv", key),
			zap.Int("samples", len(samples)))
		return
	}

	s.logger.Warn("discarding unreadable offset entry", zap.String("key", key))
}
