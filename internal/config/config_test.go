package config

import (
	"errors"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/magbrake/internal/dynamo"
	"github.com/san-kum/magbrake/internal/physics"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Name != "ring" {
		t.Errorf("expected name ring, got %s", cfg.Name)
	}
	if cfg.Constants != physics.DefaultConstants() {
		t.Errorf("expected default constants, got %+v", cfg.Constants)
	}
	if cfg.Integration.Dt != 0.01 || cfg.Integration.Tf != 6 {
		t.Errorf("unexpected integration settings %+v", cfg.Integration)
	}
	if cfg.SimConfig().Steps() != 600 {
		t.Errorf("expected 600 steps, got %d", cfg.SimConfig().Steps())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("weak")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Constants.Mu != 2e4 {
		t.Errorf("expected mu 2e4, got %g", cfg.Constants.Mu)
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestGetPreset_ReturnsCopy(t *testing.T) {
	cfg := GetPreset("ring")
	cfg.Constants.Mass = 99

	if Presets["ring"].Constants.Mass == 99 {
		t.Error("mutating a preset copy changed the registry")
	}
}

func TestPresetsValidate(t *testing.T) {
	for _, name := range ListPresets() {
		t.Run(name, func(t *testing.T) {
			cfg := GetPreset(name)
			if cfg.Name != name {
				t.Errorf("preset %s carries name %s", name, cfg.Name)
			}
			if err := cfg.Validate(); err != nil {
				t.Errorf("preset %s invalid: %v", name, err)
			}
		})
	}
}

func TestListPresets(t *testing.T) {
	names := ListPresets()
	if len(names) != len(Presets) {
		t.Fatalf("expected %d presets, got %d", len(Presets), len(names))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Errorf("presets not sorted: %v", names)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero resistivity", func(c *Config) { c.Constants.Resistivity = 0 }},
		{"negative resistivity", func(c *Config) { c.Constants.Resistivity = -1 }},
		{"zero mass", func(c *Config) { c.Constants.Mass = 0 }},
		{"zero radius", func(c *Config) { c.Constants.Radius = 0 }},
		{"negative mu", func(c *Config) { c.Constants.Mu = -1 }},
		{"nan gravity", func(c *Config) { c.Constants.Gravity = math.NaN() }},
		{"zero dt", func(c *Config) { c.Integration.Dt = 0 }},
		{"negative dt", func(c *Config) { c.Integration.Dt = -0.01 }},
		{"empty interval", func(c *Config) { c.Integration.Tf = c.Integration.T0 }},
		{"step longer than interval", func(c *Config) { c.Integration.Dt = 10 }},
		{"infinite x0", func(c *Config) { c.InitState.X = math.Inf(1) }},
		{"unknown grid", func(c *Config) { c.Integration.Grid = "adaptive" }},
		{"unknown alignment", func(c *Config) { c.Integration.Alignment = "pre_step" }},
		{"too many points", func(c *Config) { c.Integration.Dt = 1e-15 }},
		{"denormal dt", func(c *Config) { c.Integration.Dt = 5e-324 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, dynamo.ErrParameterBounds) {
				t.Errorf("expected ErrParameterBounds, got %v", err)
			}
		})
	}
}

func TestValidate_PointLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Integration.Tf = 1
	cfg.Integration.Dt = 1.0 / (MaxPoints / 2)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("%d points should validate: %v", MaxPoints/2, err)
	}

	cfg.Integration.Dt = 1.0 / (2 * MaxPoints)
	if err := cfg.Validate(); !errors.Is(err, dynamo.ErrParameterBounds) {
		t.Errorf("expected ErrParameterBounds, got %v", err)
	}
}

func TestValidate_StableErrorOrder(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Constants.Gravity = math.NaN()
	cfg.Constants.Radius = math.Inf(1)
	cfg.InitState.Y = math.NaN()

	first := cfg.Validate().Error()
	for i := 0; i < 20; i++ {
		if got := cfg.Validate().Error(); got != first {
			t.Fatalf("error text changed between calls:\n%s\n%s", first, got)
		}
	}

	g, r, y := strings.Index(first, "gravity"), strings.Index(first, "radius"), strings.Index(first, "y0")
	if g < 0 || r < 0 || y < 0 || !(g < r && r < y) {
		t.Errorf("expected gravity, radius, y0 in order: %s", first)
	}
}

func TestValidate_ZeroMuIsFreeFall(t *testing.T) {
	cfg := GetPreset("free_fall")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("free fall should validate: %v", err)
	}
	if cfg.System().K() != 0 {
		t.Errorf("expected zero coupling constant, got %g", cfg.System().K())
	}
}

func TestGetInitState(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InitState = InitStateConfig{X: 3, Y: -1}

	x := cfg.GetInitState()
	if len(x) != 2 || x[0] != 3 || x[1] != -1 {
		t.Errorf("unexpected initial state %v", x)
	}
}

func TestSimConfig(t *testing.T) {
	cfg := GetPreset("aligned")
	cfg.ValidateState = true

	sc := cfg.SimConfig()
	if sc.Grid != dynamo.StrictStep || sc.Alignment != dynamo.Aligned {
		t.Errorf("expected strict/aligned, got %s/%s", sc.Grid, sc.Alignment)
	}
	if !sc.ValidateState {
		t.Error("ValidateState not carried over")
	}
}

func TestSaveLoad_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")

	cfg := GetPreset("weak")
	cfg.Integration.Tf = 2
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Name != "weak" || loaded.Constants.Mu != 2e4 || loaded.Integration.Tf != 2 {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
}

func TestSaveLoad_TOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.toml")

	cfg := GetPreset("aligned")
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Integration.Alignment != dynamo.Aligned {
		t.Errorf("expected aligned, got %s", loaded.Integration.Alignment)
	}
	if loaded.Constants != cfg.Constants {
		t.Errorf("constants mismatch: %+v vs %+v", loaded.Constants, cfg.Constants)
	}
}

func TestLoadInto_KeepsPreset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "step.yaml")
	if err := os.WriteFile(path, []byte("integration:\n  dt: 0.002\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := GetPreset("weak")
	if err := LoadInto(path, cfg); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Constants.Mu != 2e4 {
		t.Errorf("preset mu lost: %g", cfg.Constants.Mu)
	}
	if cfg.Integration.Dt != 0.002 {
		t.Errorf("file dt not applied: %g", cfg.Integration.Dt)
	}
	if cfg.Name != "weak" {
		t.Errorf("name = %q", cfg.Name)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	data := []byte("constants:\n  mass: 0.2\nintegration:\n  dt: 0.005\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Constants.Mass != 0.2 || cfg.Integration.Dt != 0.005 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.Constants.Radius != physics.DefaultRadius || cfg.Integration.Tf != DefaultTf {
		t.Errorf("defaults lost: %+v", cfg)
	}
	if cfg.InitState.X != DefaultX0 {
		t.Errorf("expected x0 %g, got %g", DefaultX0, cfg.InitState.X)
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("MAGBRAKE_DATA", "/tmp/runs")
	t.Setenv("MAGBRAKE_LOG_LEVEL", "debug")
	t.Setenv("MAGBRAKE_ADDR", "")
	t.Setenv("MAGBRAKE_CORS_ORIGINS", "http://localhost:5173, ,https://example.org")

	env := LoadEnv()
	if env.DataDir != "/tmp/runs" {
		t.Errorf("expected data dir from env, got %s", env.DataDir)
	}
	if env.Addr != ":8080" {
		t.Errorf("expected default addr, got %s", env.Addr)
	}
	if len(env.CORSOrigins) != 2 || env.CORSOrigins[1] != "https://example.org" {
		t.Errorf("unexpected origins %v", env.CORSOrigins)
	}
	if ParseLevel(env.LogLevel) != slog.LevelDebug {
		t.Errorf("expected debug level, got %v", ParseLevel(env.LogLevel))
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"bogus": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
