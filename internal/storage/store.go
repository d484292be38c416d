package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/magbrake/internal/config"
	"github.com/san-kum/magbrake/internal/dynamo"
	"github.com/san-kum/magbrake/internal/physics"
)

const (
	metadataFile   = "metadata.json"
	trajectoryFile = "trajectory.csv"
	catalogFile    = "catalog.db"
)

var csvHeader = []string{"time", "position", "velocity", "acceleration"}

type Store struct {
	baseDir string
	cat     *catalog
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	if err := os.MkdirAll(s.baseDir, 0755); err != nil {
		return err
	}
	cat, err := openCatalog(filepath.Join(s.baseDir, catalogFile))
	if err != nil {
		return err
	}
	s.cat = cat
	return nil
}

func (s *Store) Close() error {
	if s.cat == nil {
		return nil
	}
	return s.cat.close()
}

type RunMetadata struct {
	ID          string                   `json:"id"`
	Name        string                   `json:"name"`
	Timestamp   time.Time                `json:"timestamp"`
	Constants   physics.Constants        `json:"constants"`
	K           float64                  `json:"k"`
	Integration config.IntegrationConfig `json:"integration"`
	InitState   config.InitStateConfig   `json:"init_state"`
	Points      int                      `json:"points"`
	Metrics     map[string]float64       `json:"metrics"`
}

// Config rebuilds the configuration that produced the run.
func (m *RunMetadata) Config() *config.Config {
	return &config.Config{
		Name:        m.Name,
		Constants:   m.Constants,
		Integration: m.Integration,
		InitState:   m.InitState,
	}
}

func (s *Store) Save(cfg *config.Config, tr *dynamo.Trajectory) (string, error) {
	if s.cat == nil {
		return "", errors.New("store not initialized")
	}

	name := runName(cfg.Name)
	runID := fmt.Sprintf("%s_%s", name, strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	now := time.Now()
	if err := s.writeRun(runDir, runID, name, now, cfg, tr); err != nil {
		if rmErr := os.RemoveAll(runDir); rmErr != nil {
			slog.Warn("could not remove partial run", "id", runID, "error", rmErr)
		}
		return "", err
	}

	slog.Debug("run saved", "id", runID, "points", tr.Len())
	return runID, nil
}

func (s *Store) writeRun(runDir, runID, name string, now time.Time, cfg *config.Config, tr *dynamo.Trajectory) error {
	meta := RunMetadata{
		ID:          runID,
		Name:        name,
		Timestamp:   now,
		Constants:   cfg.Constants,
		K:           cfg.Constants.K(),
		Integration: cfg.Integration,
		InitState:   cfg.InitState,
		Points:      tr.Len(),
		Metrics:     finiteMetrics(tr.Metrics),
	}
	if err := writeJSONFile(filepath.Join(runDir, metadataFile), meta); err != nil {
		return err
	}
	if err := writeCSVFile(filepath.Join(runDir, trajectoryFile), tr); err != nil {
		return err
	}

	row := catalogRow{
		ID:        runID,
		Name:      name,
		CreatedAt: now.UnixNano(),
		Points:    tr.Len(),
		Dt:        cfg.Integration.Dt,
		Tf:        cfg.Integration.Tf,
	}
	if _, x, y, _, ok := tr.Last(); ok {
		row.FinalPosition, row.FinalVelocity = x, y
	}
	if err := s.cat.insert(row); err != nil {
		return fmt.Errorf("catalog %s: %w", runID, err)
	}
	return nil
}

func runName(name string) string {
	if name == "" {
		return "custom"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		}
		return '_'
	}, name)
}

// finiteMetrics drops values JSON cannot encode.
func finiteMetrics(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out[k] = v
	}
	return out
}

func writeJSONFile(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeCSVFile(path string, tr *dynamo.Trajectory) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, tr); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// List returns catalogued runs, newest first.
func (s *Store) List() ([]RunSummary, error) {
	if s.cat == nil {
		return nil, errors.New("store not initialized")
	}
	return s.cat.list()
}

func (s *Store) runDir(runID string) (string, error) {
	if runID == "" || runID != filepath.Base(runID) || strings.HasPrefix(runID, ".") {
		return "", fmt.Errorf("run %q: %w", runID, dynamo.ErrRunNotFound)
	}
	return filepath.Join(s.baseDir, runID), nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	dir, err := s.runDir(runID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("run %q: %w", runID, dynamo.ErrRunNotFound)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %q metadata: %w", runID, err)
	}

	return &meta, nil
}

// LoadTrajectory reads the stored samples back. Step size, grid and
// alignment come from the run's metadata.
func (s *Store) LoadTrajectory(runID string) (*dynamo.Trajectory, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filepath.Join(s.baseDir, runID, trajectoryFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("run %q trajectory: %w", runID, dynamo.ErrRunNotFound)
		}
		return nil, err
	}
	defer file.Close()

	tr, err := ReadCSV(file)
	if err != nil {
		return nil, fmt.Errorf("run %q trajectory: %w", runID, err)
	}
	tr.Dt = meta.Integration.Dt
	tr.Grid = meta.Integration.Grid
	tr.Alignment = meta.Integration.Alignment
	for k, v := range meta.Metrics {
		tr.Metrics[k] = v
	}

	return tr, nil
}

func (s *Store) Delete(runID string) error {
	dir, err := s.runDir(runID)
	if err != nil {
		return err
	}
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("run %q: %w", runID, dynamo.ErrRunNotFound)
		}
		return err
	}

	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	if s.cat != nil {
		if err := s.cat.remove(runID); err != nil {
			return fmt.Errorf("catalog %s: %w", runID, err)
		}
	}
	return nil
}

// WriteCSV writes one row per sample. Floats use the shortest exact
// representation so a reload reproduces them bit for bit.
func WriteCSV(w io.Writer, tr *dynamo.Trajectory) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for i := 0; i < tr.Len(); i++ {
		row := []string{
			formatFloat(tr.Times[i]),
			formatFloat(tr.Positions[i]),
			formatFloat(tr.Velocities[i]),
			formatFloat(tr.Accelerations[i]),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func ReadCSV(r io.Reader) (*dynamo.Trajectory, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(csvHeader)

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.New("missing header")
	}
	for j, name := range csvHeader {
		if records[0][j] != name {
			return nil, fmt.Errorf("unexpected column %q, want %q", records[0][j], name)
		}
	}

	tr := dynamo.NewTrajectory(len(records) - 1)
	for i, rec := range records[1:] {
		var vals [4]float64
		for j, field := range rec {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", i+1, csvHeader[j], err)
			}
			vals[j] = v
		}
		tr.Append(vals[0], dynamo.State{vals[1], vals[2]}, vals[3])
	}

	return tr, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
