package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/san-kum/magbrake/internal/analysis"
	"github.com/san-kum/magbrake/internal/config"
	"github.com/san-kum/magbrake/internal/dynamo"
	"github.com/san-kum/magbrake/internal/integrators"
	"github.com/san-kum/magbrake/internal/metrics"
	"github.com/san-kum/magbrake/internal/sim"
	"github.com/san-kum/magbrake/internal/storage"
)

var startTime = time.Now()

const maxBodyBytes = 1 << 20

func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "magbrake",
		"uptime":  time.Since(startTime).String(),
	})
}

func ListPresets(c *gin.Context) {
	presets := make([]*config.Config, 0, len(config.Presets))
	for _, name := range config.ListPresets() {
		presets = append(presets, config.GetPreset(name))
	}
	c.JSON(http.StatusOK, gin.H{"presets": presets})
}

type simulateResponse struct {
	ID         string             `json:"id,omitempty"`
	Config     *config.Config     `json:"config"`
	K          float64            `json:"k"`
	Summary    analysis.Summary   `json:"summary"`
	Trajectory *dynamo.Trajectory `json:"trajectory"`
}

// Simulate runs the posted configuration. The body is a config object laid
// over the preset named by its "preset" field (ring when absent). With
// ?save=true the run is also stored.
func Simulate(st *storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		cfg, err := decodeConfig(body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := cfg.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		sc := cfg.SimConfig()
		sc.ValidateState = true

		model := cfg.System()
		s := sim.New(model, integrators.NewRK4())
		s.SetLogger(slog.Default().With("route", c.FullPath(), "preset", cfg.Name))
		for _, m := range metrics.Defaults(model) {
			s.AddMetric(m)
		}

		tr, err := s.Run(c.Request.Context(), cfg.GetInitState(), sc)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, dynamo.ErrInvalidState) {
				status = http.StatusUnprocessableEntity
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		resp := simulateResponse{
			Config:     cfg,
			K:          model.K(),
			Summary:    analysis.Summarize(tr, model),
			Trajectory: tr,
		}
		dropNonFinite(tr.Metrics)

		if c.Query("save") == "true" {
			id, err := st.Save(cfg, tr)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			resp.ID = id
		}

		c.JSON(http.StatusOK, resp)
	}
}

func decodeConfig(body []byte) (*config.Config, error) {
	var head struct {
		Preset string `json:"preset"`
	}
	if len(body) == 0 {
		body = []byte("{}")
	}
	if err := json.Unmarshal(body, &head); err != nil {
		return nil, err
	}
	if head.Preset == "" {
		head.Preset = "ring"
	}

	cfg := config.GetPreset(head.Preset)
	if cfg == nil {
		return nil, errors.New("unknown preset: " + head.Preset)
	}
	if err := json.Unmarshal(body, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func ListRuns(st *storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		runs, err := st.List()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"runs": runs})
	}
}

func GetRun(st *storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")

		meta, err := st.Load(id)
		if err != nil {
			respondStoreError(c, err)
			return
		}
		tr, err := st.LoadTrajectory(id)
		if err != nil {
			respondStoreError(c, err)
			return
		}
		if !finite(tr) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error": "trajectory holds non-finite samples; export it as CSV instead",
				"run":   meta,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"run": meta, "trajectory": tr})
	}
}

func DeleteRun(st *storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := st.Delete(c.Param("id")); err != nil {
			respondStoreError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func respondStoreError(c *gin.Context, err error) {
	if errors.Is(err, dynamo.ErrRunNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func finite(tr *dynamo.Trajectory) bool {
	for _, series := range [][]float64{tr.Times, tr.Positions, tr.Velocities, tr.Accelerations} {
		for _, v := range series {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

func dropNonFinite(m map[string]float64) {
	for k, v := range m {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			delete(m, k)
		}
	}
}
