package config

import (
	"sort"

	"github.com/san-kum/magbrake/internal/dynamo"
	"github.com/san-kum/magbrake/internal/physics"
)

func preset(name string, mutate func(*Config)) *Config {
	cfg := DefaultConfig()
	cfg.Name = name
	mutate(cfg)
	return cfg
}

var Presets = map[string]*Config{
	"ring": preset("ring", func(c *Config) {}),
	"fine": preset("fine", func(c *Config) {
		c.Integration.Dt = 0.0001
	}),
	"weak": preset("weak", func(c *Config) {
		c.Constants.Mu = 2e4
	}),
	"free_fall": preset("free_fall", func(c *Config) {
		c.Constants.Mu = 0
	}),
	"resistive": preset("resistive", func(c *Config) {
		c.Constants.Resistivity = 9e-4
	}),
	"aligned": preset("aligned", func(c *Config) {
		c.Integration.Grid = dynamo.StrictStep
		c.Integration.Alignment = dynamo.Aligned
	}),
	"wide_ring": preset("wide_ring", func(c *Config) {
		c.Constants = physics.DefaultConstants()
		c.Constants.Radius = 0.16
		c.Constants.Resistivity = 1.44e-3
	}),
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
