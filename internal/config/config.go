package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/magbrake/internal/dynamo"
	"github.com/san-kum/magbrake/internal/physics"
)

const (
	DefaultT0 = 0.0
	DefaultTf = 6.0
	DefaultDt = 0.01
	DefaultX0 = 10.0
	DefaultY0 = 0.0

	// MaxPoints caps the grid size of a single run.
	MaxPoints = 10_000_000
)

type Config struct {
	Name          string            `yaml:"name" toml:"name" json:"name"`
	Constants     physics.Constants `yaml:"constants" toml:"constants" json:"constants"`
	Integration   IntegrationConfig `yaml:"integration" toml:"integration" json:"integration"`
	InitState     InitStateConfig   `yaml:"init_state" toml:"init_state" json:"init_state"`
	ValidateState bool              `yaml:"validate_state" toml:"validate_state" json:"validate_state"`
}

type IntegrationConfig struct {
	T0        float64          `yaml:"t0" toml:"t0" json:"t0"`
	Tf        float64          `yaml:"tf" toml:"tf" json:"tf"`
	Dt        float64          `yaml:"dt" toml:"dt" json:"dt"`
	Grid      dynamo.GridMode  `yaml:"grid" toml:"grid" json:"grid"`
	Alignment dynamo.Alignment `yaml:"alignment" toml:"alignment" json:"alignment"`
}

type InitStateConfig struct {
	X float64 `yaml:"x" toml:"x" json:"x"`
	Y float64 `yaml:"y" toml:"y" json:"y"`
}

func DefaultConfig() *Config {
	return &Config{
		Name:      "ring",
		Constants: physics.DefaultConstants(),
		Integration: IntegrationConfig{
			T0:        DefaultT0,
			Tf:        DefaultTf,
			Dt:        DefaultDt,
			Grid:      dynamo.GridMatched,
			Alignment: dynamo.PostStep,
		},
		InitState: InitStateConfig{X: DefaultX0, Y: DefaultY0},
	}
}

// Load reads a config file over the defaults. Files ending in .toml are
// decoded as TOML, anything else as YAML.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := LoadInto(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadInto decodes a config file over cfg. Keys missing from the file keep
// their current values.
func LoadInto(path string, cfg *Config) error {
	if isTOML(path) {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func Save(path string, cfg *Config) error {
	if isTOML(path) {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		return toml.NewEncoder(f).Encode(cfg)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Validate checks the constants and integration settings before a run.
// Every problem is reported, each wrapping dynamo.ErrParameterBounds.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format+": %w", append(args, dynamo.ErrParameterBounds)...))
	}

	k := c.Constants
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"gravity", k.Gravity}, {"mass", k.Mass}, {"mu", k.Mu}, {"mu0", k.Mu0},
		{"radius", k.Radius}, {"resistivity", k.Resistivity},
		{"t0", c.Integration.T0}, {"tf", c.Integration.Tf}, {"dt", c.Integration.Dt},
		{"x0", c.InitState.X}, {"y0", c.InitState.Y},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			bad("%s must be finite, got %v", f.name, f.v)
		}
	}

	if k.Mass <= 0 {
		bad("mass must be positive, got %g", k.Mass)
	}
	if k.Radius <= 0 {
		bad("radius must be positive, got %g", k.Radius)
	}
	if k.Resistivity <= 0 {
		bad("resistivity must be positive, got %g", k.Resistivity)
	}
	if k.Mu < 0 || k.Mu0 < 0 {
		bad("permeabilities must be non-negative, got mu=%g mu0=%g", k.Mu, k.Mu0)
	}

	in := c.Integration
	if in.Dt <= 0 {
		bad("dt must be positive, got %g", in.Dt)
	} else if in.Tf <= in.T0 {
		bad("tf (%g) must exceed t0 (%g)", in.Tf, in.T0)
	} else if n := (in.Tf - in.T0) / in.Dt; n > MaxPoints || math.IsNaN(n) {
		bad("interval [%g, %g] with dt %g needs more than %d points", in.T0, in.Tf, in.Dt, MaxPoints)
	} else if c.SimConfig().Steps() < 1 {
		bad("interval [%g, %g] holds no step of %g", in.T0, in.Tf, in.Dt)
	}

	switch in.Grid {
	case "", dynamo.GridMatched, dynamo.StrictStep:
	default:
		bad("unknown grid %q (want %s or %s)", in.Grid, dynamo.GridMatched, dynamo.StrictStep)
	}
	switch in.Alignment {
	case "", dynamo.PostStep, dynamo.Aligned:
	default:
		bad("unknown alignment %q (want %s or %s)", in.Alignment, dynamo.PostStep, dynamo.Aligned)
	}

	return errors.Join(errs...)
}

func (c *Config) System() *physics.MagneticBrake {
	return physics.NewMagneticBrakeWith(c.Constants)
}

func (c *Config) SimConfig() dynamo.Config {
	return dynamo.Config{
		T0:            c.Integration.T0,
		Tf:            c.Integration.Tf,
		Dt:            c.Integration.Dt,
		Grid:          c.Integration.Grid,
		Alignment:     c.Integration.Alignment,
		ValidateState: c.ValidateState,
	}
}

func (c *Config) GetInitState() dynamo.State {
	return dynamo.State{c.InitState.X, c.InitState.Y}
}

// Clone returns an independent copy.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}
