// Package config holds the engine's tunable constants and loads them from
// YAML. Every threshold the promotion/demotion and skip algorithms use is
// injected at construction time, never hard-coded at call sites, so the
// property tests pin the semantics while deployments tune the numbers.
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/helixlearn/helix/internal/mastery"
	"github.com/helixlearn/helix/internal/record"
	"github.com/helixlearn/helix/internal/reposition"
)

// DefaultRotateEvery is the cadence trigger: rotate after this many
// answered questions. Zero in the file keeps the default; the facade treats
// a negative value as "manual rotation only".
const DefaultRotateEvery = 10

// Duration wraps time.Duration with YAML support for strings like "10m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("config: duration must be a string: %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// MasteryTunables configures the boundary tracker. Zero values fall back
// to the mastery package defaults.
type MasteryTunables struct {
	Alpha              float64  `yaml:"alpha"`
	PromoteThreshold   int      `yaml:"promote_threshold"`
	DemoteThreshold    int      `yaml:"demote_threshold"`
	DwellWindow        Duration `yaml:"dwell_window"`
	ResponseCeilingsMs []int64  `yaml:"response_ceilings_ms"` // empty → defaults; otherwise exactly 5 values
}

// RepositionTunables configures the skip computation. Zero values fall
// back to the reposition package defaults.
type RepositionTunables struct {
	BaseSkip           int   `yaml:"base_skip"`
	MinSkip            int   `yaml:"min_skip"`
	ExpectedResponseMs int64 `yaml:"expected_response_ms"`
}

// Tunables aggregates all injectable constants.
type Tunables struct {
	Mastery     MasteryTunables    `yaml:"mastery"`
	Reposition  RepositionTunables `yaml:"reposition"`
	RotateEvery int                `yaml:"rotate_every"` // zero → 10, negative → manual only
}

// Default returns the tunables the engine ships with.
func Default() Tunables {
	return Tunables{RotateEvery: DefaultRotateEvery}
}

// Load reads tunables from a YAML file. Unknown fields are rejected so a
// typoed key fails loudly instead of silently keeping a default.
func Load(path string) (Tunables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Tunables{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	t := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		return Tunables{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	trackerCfg, err := t.TrackerConfig()
	if err != nil {
		return Tunables{}, err
	}
	if _, err := mastery.NewTracker(trackerCfg); err != nil {
		return Tunables{}, err
	}
	if _, err := reposition.NewEngine(t.SkipConfig()); err != nil {
		return Tunables{}, err
	}
	return t, nil
}

// TrackerConfig converts the mastery tunables into a tracker config,
// validating the ceiling count.
func (t Tunables) TrackerConfig() (mastery.Config, error) {
	cfg := mastery.Config{
		Alpha:            t.Mastery.Alpha,
		PromoteThreshold: t.Mastery.PromoteThreshold,
		DemoteThreshold:  t.Mastery.DemoteThreshold,
		DwellWindow:      time.Duration(t.Mastery.DwellWindow),
	}
	switch len(t.Mastery.ResponseCeilingsMs) {
	case 0:
		// Keep the zero array: the tracker fills in its defaults.
	case record.LevelCount:
		copy(cfg.ResponseCeilingsMs[:], t.Mastery.ResponseCeilingsMs)
	default:
		return mastery.Config{}, fmt.Errorf("%w: response_ceilings_ms needs %d values, got %d",
			mastery.ErrInvalidConfig, record.LevelCount, len(t.Mastery.ResponseCeilingsMs))
	}
	return cfg, nil
}

// SkipConfig converts the reposition tunables into a skip config.
func (t Tunables) SkipConfig() reposition.SkipConfig {
	return reposition.SkipConfig{
		BaseSkip:           t.Reposition.BaseSkip,
		MinSkip:            t.Reposition.MinSkip,
		ExpectedResponseMs: t.Reposition.ExpectedResponseMs,
	}
}

// EffectiveRotateEvery resolves the cadence: zero means default, negative
// disables cadence rotation entirely.
func (t Tunables) EffectiveRotateEvery() int {
	if t.RotateEvery == 0 {
		return DefaultRotateEvery
	}
	if t.RotateEvery < 0 {
		return 0
	}
	return t.RotateEvery
}
