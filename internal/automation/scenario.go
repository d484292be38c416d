// Package automation runs scripted batches of falls described in YAML.
package automation

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/magbrake/internal/analysis"
	"github.com/san-kum/magbrake/internal/config"
	"github.com/san-kum/magbrake/internal/dynamo"
	"github.com/san-kum/magbrake/internal/integrators"
	"github.com/san-kum/magbrake/internal/metrics"
	"github.com/san-kum/magbrake/internal/sim"
	"github.com/san-kum/magbrake/internal/storage"
)

// Scenario defines a scripted sequence of runs.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep starts from a preset and overrides what it names. Params
// are constant names as accepted by MagneticBrake.SetParam.
type ScenarioStep struct {
	Preset    string                  `yaml:"preset"`
	SaveAs    string                  `yaml:"save_as"`
	Params    map[string]float64      `yaml:"params"`
	Dt        float64                 `yaml:"dt"`
	Tf        float64                 `yaml:"tf"`
	Grid      dynamo.GridMode         `yaml:"grid"`
	Alignment dynamo.Alignment        `yaml:"alignment"`
	InitState *config.InitStateConfig `yaml:"init_state"`
}

type StepResult struct {
	Step    int
	Name    string
	RunID   string
	Summary analysis.Summary
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %s has no steps", path)
	}

	return &scenario, nil
}

// Config resolves the step into a validated configuration.
func (s ScenarioStep) Config() (*config.Config, error) {
	preset := s.Preset
	if preset == "" {
		preset = "ring"
	}
	cfg := config.GetPreset(preset)
	if cfg == nil {
		return nil, fmt.Errorf("unknown preset: %s", preset)
	}

	if len(s.Params) > 0 {
		m := cfg.System()
		if err := applyParams(m, s.Params); err != nil {
			return nil, err
		}
		cfg.Constants = m.Constants
	}
	if s.Dt != 0 {
		cfg.Integration.Dt = s.Dt
	}
	if s.Tf != 0 {
		cfg.Integration.Tf = s.Tf
	}
	if s.Grid != "" {
		cfg.Integration.Grid = s.Grid
	}
	if s.Alignment != "" {
		cfg.Integration.Alignment = s.Alignment
	}
	if s.InitState != nil {
		cfg.InitState = *s.InitState
	}
	if s.SaveAs != "" {
		cfg.Name = s.SaveAs
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RunScenario executes the steps in order. When st is non-nil every run
// is stored. It stops at the first failing step.
func RunScenario(ctx context.Context, scenario *Scenario, st *storage.Store) ([]StepResult, error) {
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		cfg, err := step.Config()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}

		slog.Info("scenario step", "scenario", scenario.Name, "step", i+1, "of", len(scenario.Steps), "name", cfg.Name)

		model := cfg.System()
		s := sim.New(model, integrators.NewRK4())
		for _, m := range metrics.Defaults(model) {
			s.AddMetric(m)
		}

		tr, err := s.Run(ctx, cfg.GetInitState(), cfg.SimConfig())
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		res := StepResult{
			Step:    i + 1,
			Name:    cfg.Name,
			Summary: analysis.Summarize(tr, model),
		}
		if st != nil {
			if res.RunID, err = st.Save(cfg, tr); err != nil {
				return results, fmt.Errorf("step %d save: %w", i+1, err)
			}
		}

		results = append(results, res)
	}

	return results, nil
}

func applyParams(c dynamo.Configurable, params map[string]float64) error {
	for k, v := range params {
		if err := c.SetParam(k, v); err != nil {
			return err
		}
	}
	return nil
}
