// Package config loads the neuromesh run configuration from YAML, applies
// environment overrides and validates the result.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/neuromesh/core"
	"github.com/signalsfoundry/neuromesh/internal/logging"
	"github.com/signalsfoundry/neuromesh/internal/observability"
	"github.com/signalsfoundry/neuromesh/noise"
	"github.com/signalsfoundry/neuromesh/scene"
	"github.com/signalsfoundry/neuromesh/timectrl"
)

// validate is a singleton validator instance
var validate = validator.New()

// Source kinds for NetworkConfig.Source.
const (
	SourceIcosphere = "icosphere"
)

// Config is the complete run configuration.
type Config struct {
	Simulation SimulationConfig            `yaml:"simulation"`
	Neuron     NeuronConfig                `yaml:"neuron"`
	Synapse    SynapseConfig               `yaml:"synapse"`
	Network    NetworkConfig               `yaml:"network"`
	Geometry   scene.Params                `yaml:"geometry"`
	Noise      noise.Config                `yaml:"noise"`
	Materials  MaterialsConfig             `yaml:"materials"`
	Input      InputConfig                 `yaml:"input"`
	Logging    LoggingConfig               `yaml:"logging"`
	Metrics    MetricsConfig               `yaml:"metrics"`
	Tracing    observability.TracingConfig `yaml:"tracing"`
}

// SimulationConfig drives the frame loop.
type SimulationConfig struct {
	Seed uint64 `yaml:"seed"`

	TickInterval time.Duration `yaml:"tick_interval" validate:"gt=0"`
	Frame        time.Duration `yaml:"frame" validate:"gt=0"`
	Mode         string        `yaml:"mode" validate:"oneof=realtime accelerated"`

	// Duration bounds a run in frame time. Zero runs until interrupted.
	Duration time.Duration `yaml:"duration" validate:"gte=0"`

	// Stimuli excite neurons once before the first tick.
	Stimuli []StimulusConfig `yaml:"stimuli" validate:"dive"`
}

// StimulusConfig is one initial excitation.
type StimulusConfig struct {
	Neuron   int     `yaml:"neuron" validate:"gte=0"`
	Strength float64 `yaml:"strength"`
}

// NeuronConfig mirrors core.NeuronParams.
type NeuronConfig struct {
	BaseThreshold          float64 `yaml:"base_threshold"`
	RefractoryTicks        int     `yaml:"refractory_ticks" validate:"gte=0"`
	ThresholdJumpMax       float64 `yaml:"threshold_jump_max" validate:"gte=0"`
	ThresholdDecayMax      float64 `yaml:"threshold_decay_max" validate:"gte=0"`
	DecayAfterInactive     int     `yaml:"decay_after_inactive" validate:"gte=0"`
	SpontaneousProbability float64 `yaml:"spontaneous_probability" validate:"gte=0,lte=1"`
	SpontaneousBoost       float64 `yaml:"spontaneous_boost"`
}

// SynapseConfig mirrors core.SynapseParams.
type SynapseConfig struct {
	CooldownTicks int     `yaml:"cooldown_ticks" validate:"gte=1"`
	Strength      float64 `yaml:"strength"`
}

// NetworkConfig selects the source mesh and how it is turned into a
// network.
type NetworkConfig struct {
	// Source is "icosphere" or the path of a Wavefront OBJ file.
	Source       string `yaml:"source" validate:"required"`
	Subdivisions int    `yaml:"subdivisions" validate:"gte=0,lte=6"`

	DedupTolerance     float64 `yaml:"dedup_tolerance" validate:"gt=0"`
	MatchTolerance     float64 `yaml:"match_tolerance" validate:"gt=0"`
	EdgeThresholdAngle float64 `yaml:"edge_threshold_angle" validate:"gte=0,lte=180"`
}

// MaterialsConfig overrides the band palettes, active band first.
type MaterialsConfig struct {
	Neuron  []string `yaml:"neuron" validate:"omitempty,len=5,dive,hexcolor"`
	Synapse []string `yaml:"synapse" validate:"omitempty,len=5,dive,hexcolor"`
}

// InputConfig tunes pointer input.
type InputConfig struct {
	PointerStrength float64 `yaml:"pointer_strength" validate:"gt=0"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level     string `yaml:"level" validate:"oneof=debug info warn error"`
	Format    string `yaml:"format" validate:"oneof=text json"`
	AddSource bool   `yaml:"add_source"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address of /metrics. Empty disables the endpoint.
	Addr string `yaml:"addr" validate:"omitempty,hostname_port"`
}

// Default returns the configuration the visualisation ships with.
func Default() Config {
	np := core.DefaultNeuronParams()
	sp := core.DefaultSynapseParams()
	bo := core.DefaultBuildOptions()
	return Config{
		Simulation: SimulationConfig{
			TickInterval: timectrl.DefaultInterval,
			Frame:        timectrl.DefaultFrame,
			Mode:         "realtime",
			Stimuli: []StimulusConfig{
				{Neuron: 1, Strength: 4},
				{Neuron: 0, Strength: 4},
			},
		},
		Neuron: NeuronConfig{
			BaseThreshold:          np.BaseThreshold,
			RefractoryTicks:        np.RefractoryTicks,
			ThresholdJumpMax:       np.ThresholdJumpMax,
			ThresholdDecayMax:      np.ThresholdDecayMax,
			DecayAfterInactive:     np.DecayAfterInactive,
			SpontaneousProbability: np.SpontaneousProbability,
			SpontaneousBoost:       np.SpontaneousBoost,
		},
		Synapse: SynapseConfig{
			CooldownTicks: sp.CooldownTicks,
			Strength:      sp.Strength,
		},
		Network: NetworkConfig{
			Source:             SourceIcosphere,
			Subdivisions:       2,
			DedupTolerance:     bo.DedupTolerance,
			MatchTolerance:     bo.MatchTolerance,
			EdgeThresholdAngle: bo.EdgeThresholdAngle,
		},
		Geometry: scene.DefaultParams(),
		Noise:    noise.DefaultConfig(),
		Input:    InputConfig{PointerStrength: scene.DefaultPointerStrength},
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Tracing:  observability.DefaultTracingConfig(),
	}
}

// Load reads path, applies environment overrides and validates the
// result. An empty path loads the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		cfg := Default()
		if err := cfg.applyEnv(); err != nil {
			return cfg, err
		}
		return cfg, cfg.Validate()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(bytes.NewReader(raw))
	if err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML from r over the defaults, applies environment
// overrides and validates the result. Unknown keys are rejected.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	if raw := os.Getenv("NEUROMESH_SEED"); raw != "" {
		seed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("NEUROMESH_SEED: %w", err)
		}
		c.Simulation.Seed = seed
	}
	if raw := os.Getenv("NEUROMESH_TICK_INTERVAL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("NEUROMESH_TICK_INTERVAL: %w", err)
		}
		c.Simulation.TickInterval = d
	}
	if addr, ok := os.LookupEnv("NEUROMESH_METRICS_ADDR"); ok {
		c.Metrics.Addr = addr
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		c.Logging.Format = format
	}
	c.Tracing = c.Tracing.WithEnv()
	return nil
}

// Validate checks every struct tag constraint and the palette overrides.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	if _, err := c.MaterialTable(); err != nil {
		return err
	}
	return nil
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	msgs := make([]error, 0, len(validationErrs))
	for _, e := range validationErrs {
		field := e.Namespace()
		param := e.Param()

		switch e.Tag() {
		case "required":
			msgs = append(msgs, fmt.Errorf("%s: field is required", field))
		case "gt":
			msgs = append(msgs, fmt.Errorf("%s: must be greater than %s", field, param))
		case "gte", "min":
			msgs = append(msgs, fmt.Errorf("%s: must be at least %s", field, param))
		case "lte", "max":
			msgs = append(msgs, fmt.Errorf("%s: must not exceed %s", field, param))
		case "oneof":
			msgs = append(msgs, fmt.Errorf("%s: must be one of [%s], got %v", field, param, e.Value()))
		case "len":
			msgs = append(msgs, fmt.Errorf("%s: must have exactly %s entries", field, param))
		case "hexcolor":
			msgs = append(msgs, fmt.Errorf("%s: %v is not a hex colour", field, e.Value()))
		default:
			msgs = append(msgs, fmt.Errorf("%s: validation failed (%s)", field, e.Tag()))
		}
	}
	return errors.Join(msgs...)
}

// NeuronParams converts the neuron section.
func (c Config) NeuronParams() core.NeuronParams {
	n := c.Neuron
	return core.NeuronParams{
		BaseThreshold:          n.BaseThreshold,
		RefractoryTicks:        n.RefractoryTicks,
		ThresholdJumpMax:       n.ThresholdJumpMax,
		ThresholdDecayMax:      n.ThresholdDecayMax,
		DecayAfterInactive:     n.DecayAfterInactive,
		SpontaneousProbability: n.SpontaneousProbability,
		SpontaneousBoost:       n.SpontaneousBoost,
	}
}

// SynapseParams converts the synapse section.
func (c Config) SynapseParams() core.SynapseParams {
	return core.SynapseParams{
		CooldownTicks: c.Synapse.CooldownTicks,
		Strength:      c.Synapse.Strength,
	}
}

// BuildOptions converts the network section. The logger is left unset.
func (c Config) BuildOptions() core.BuildOptions {
	return core.BuildOptions{
		NeuronParams:       c.NeuronParams(),
		SynapseParams:      c.SynapseParams(),
		DedupTolerance:     c.Network.DedupTolerance,
		MatchTolerance:     c.Network.MatchTolerance,
		EdgeThresholdAngle: c.Network.EdgeThresholdAngle,
	}
}

// NoiseConfig returns the noise section seeded from the simulation seed
// when the section carries no seed of its own.
func (c Config) NoiseConfig() noise.Config {
	n := c.Noise
	if n.Seed == 0 {
		n.Seed = int64(c.Simulation.Seed)
	}
	return n
}

// MaterialTable builds the palettes, applying any overrides.
func (c Config) MaterialTable() (*scene.MaterialTable, error) {
	t := scene.DefaultMaterials()
	if len(c.Materials.Neuron) > 0 {
		p, err := scene.NewPalette("neuron", c.Materials.Neuron)
		if err != nil {
			return nil, fmt.Errorf("materials: %w", err)
		}
		t.Neuron = p
	}
	if len(c.Materials.Synapse) > 0 {
		p, err := scene.NewPalette("synapse", c.Materials.Synapse)
		if err != nil {
			return nil, fmt.Errorf("materials: %w", err)
		}
		t.Synapse = p
	}
	return t, nil
}

// Mode converts the simulation mode.
func (c Config) Mode() timectrl.Mode {
	if c.Simulation.Mode == "accelerated" {
		return timectrl.Accelerated
	}
	return timectrl.RealTime
}

// LoggerConfig converts the logging section.
func (c Config) LoggerConfig() logging.Config {
	return logging.Config{
		Level:     c.Logging.Level,
		Format:    c.Logging.Format,
		AddSource: c.Logging.AddSource,
	}
}
