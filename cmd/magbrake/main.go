package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/san-kum/magbrake/internal/analysis"
	"github.com/san-kum/magbrake/internal/api"
	"github.com/san-kum/magbrake/internal/automation"
	"github.com/san-kum/magbrake/internal/config"
	"github.com/san-kum/magbrake/internal/dynamo"
	"github.com/san-kum/magbrake/internal/export"
	"github.com/san-kum/magbrake/internal/integrators"
	"github.com/san-kum/magbrake/internal/metrics"
	"github.com/san-kum/magbrake/internal/physics"
	"github.com/san-kum/magbrake/internal/sim"
	"github.com/san-kum/magbrake/internal/storage"
	"github.com/san-kum/magbrake/internal/viz"
)

var (
	env      config.Env
	dataDir  string
	logLevel string

	configFile string
	t0, tf, dt float64
	x0, y0     float64
	mu, mass   float64
	radius     float64
	resist     float64
	grid       string
	alignment  string
	validate   bool
	noSave     bool
	showPlot   bool

	plotWidth  int
	plotHeight int
	outFile    string
	configOut  string
	svgWidth   int
	svgHeight  int

	orderTf    float64
	orderSteps []float64
	orderRef   float64

	sweepParam  string
	sweepFrom   float64
	sweepTo     float64
	sweepPoints int
	workers     int

	addr string
)

func main() {
	env = config.LoadEnv()

	rootCmd := &cobra.Command{
		Use:           "magbrake",
		Short:         "magnetic dipole falling through a conducting ring",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogger(logLevel)
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", env.DataDir, "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", env.LogLevel, "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "integrate a fall and store the run",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addModelFlags(runCmd)
	runCmd.Flags().BoolVar(&validate, "validate", false, "stop at the first non-finite state")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	runCmd.Flags().BoolVar(&showPlot, "plot", false, "plot the run when done")
	addPlotFlags(runCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs, newest first",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show run metadata and summary",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot height, velocity and acceleration",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	addPlotFlags(plotCmd)

	phaseCmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "velocity against height",
		Args:  cobra.ExactArgs(1),
		RunE:  phasePlot,
	}
	addPlotFlags(phaseCmd)

	replayCmd := &cobra.Command{
		Use:   "replay [run_id]",
		Short: "play a stored run back in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  replayRun,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run data to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "render the three panels to SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")
	exportSVGCmd.Flags().IntVar(&svgWidth, "width", 1500, "image width")
	exportSVGCmd.Flags().IntVar(&svgHeight, "height", 400, "image height")

	batchCmd := &cobra.Command{
		Use:   "batch [scenario.yaml]",
		Short: "run every step of a scenario file",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch,
	}
	batchCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the runs")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	configCmd := &cobra.Command{
		Use:   "config [preset]",
		Short: "write a preset to a yaml or toml file",
		Args:  cobra.MaximumNArgs(1),
		RunE:  writeConfig,
	}
	configCmd.Flags().StringVarP(&configOut, "out", "o", "magbrake.yaml", "output file (.yaml or .toml)")

	orderCmd := &cobra.Command{
		Use:   "order [preset]",
		Short: "measure the order of accuracy against a fine-step reference",
		Args:  cobra.MaximumNArgs(1),
		RunE:  convergenceOrder,
	}
	orderCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml or toml)")
	orderCmd.Flags().Float64Var(&orderTf, "horizon", 1, "length of every run [s]")
	orderCmd.Flags().Float64SliceVar(&orderSteps, "steps", []float64{1.0 / 32, 1.0 / 64, 1.0 / 128}, "step sizes, largest first")
	orderCmd.Flags().Float64Var(&orderRef, "ref-dt", 1.0/16384, "reference step size")

	sweepCmd := &cobra.Command{
		Use:   "sweep [preset]",
		Short: "vary one constant and compare the falls",
		Args:  cobra.MaximumNArgs(1),
		RunE:  sweepParameter,
	}
	sweepCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml or toml)")
	sweepCmd.Flags().StringVar(&sweepParam, "param", "mu", "constant to vary")
	sweepCmd.Flags().Float64Var(&sweepFrom, "from", 0, "first value")
	sweepCmd.Flags().Float64Var(&sweepTo, "to", physics.DefaultMu, "last value")
	sweepCmd.Flags().IntVar(&sweepPoints, "points", 11, "number of runs")
	sweepCmd.Flags().IntVar(&workers, "workers", 0, "concurrent runs (0 = one per CPU)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  serve,
	}
	serveCmd.Flags().StringVar(&addr, "addr", env.Addr, "listen address")

	deleteCmd := &cobra.Command{
		Use:   "delete [run_id]",
		Short: "delete a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  deleteRun,
	}

	rootCmd.AddCommand(runCmd, listCmd, showCmd, plotCmd, phaseCmd, replayCmd, exportJSONCmd, exportCSVCmd,
		exportSVGCmd, batchCmd, presetsCmd, configCmd, orderCmd, sweepCmd, serveCmd, deleteCmd)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func setupLogger(level string) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: config.ParseLevel(level),
	}))
	slog.SetDefault(logger)
}

func addModelFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml or toml)")
	cmd.Flags().Float64Var(&t0, "t0", config.DefaultT0, "start time [s]")
	cmd.Flags().Float64Var(&tf, "tf", config.DefaultTf, "end time [s]")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "step size [s]")
	cmd.Flags().Float64Var(&x0, "x0", config.DefaultX0, "initial height [m]")
	cmd.Flags().Float64Var(&y0, "y0", config.DefaultY0, "initial velocity [m/s]")
	cmd.Flags().Float64Var(&mu, "mu", physics.DefaultMu, "relative permeability")
	cmd.Flags().Float64Var(&mass, "mass", physics.DefaultMass, "dipole mass [kg]")
	cmd.Flags().Float64Var(&radius, "radius", physics.DefaultRadius, "ring radius [m]")
	cmd.Flags().Float64Var(&resist, "resistivity", physics.DefaultResistivity, "ring resistance [ohm]")
	cmd.Flags().StringVar(&grid, "grid", string(dynamo.GridMatched), "time grid (grid_matched, strict_step)")
	cmd.Flags().StringVar(&alignment, "alignment", string(dynamo.PostStep), "sample alignment (post_step, aligned)")
}

func addPlotFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&plotWidth, "width", 80, "plot width")
	cmd.Flags().IntVar(&plotHeight, "height", 10, "plot height")
}

// loadConfig decodes the config file over the preset, then applies
// explicitly set flags.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	name := "ring"
	if len(args) > 0 {
		name = args[0]
	}
	cfg := config.GetPreset(name)
	if cfg == nil {
		return nil, fmt.Errorf("unknown preset: %s (available: %v)", name, config.ListPresets())
	}

	if configFile != "" {
		if err := config.LoadInto(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if cfg.Name == "" || (cfg.Name == name && len(args) == 0) {
			cfg.Name = "custom"
		}
	}

	flags := cmd.Flags()
	custom := false
	setF := func(flag string, dst *float64, v float64) {
		if flags.Lookup(flag) != nil && flags.Changed(flag) {
			*dst = v
			custom = true
		}
	}
	setF("t0", &cfg.Integration.T0, t0)
	setF("tf", &cfg.Integration.Tf, tf)
	setF("dt", &cfg.Integration.Dt, dt)
	setF("x0", &cfg.InitState.X, x0)
	setF("y0", &cfg.InitState.Y, y0)
	setF("mu", &cfg.Constants.Mu, mu)
	setF("mass", &cfg.Constants.Mass, mass)
	setF("radius", &cfg.Constants.Radius, radius)
	setF("resistivity", &cfg.Constants.Resistivity, resist)
	if flags.Lookup("grid") != nil && flags.Changed("grid") {
		cfg.Integration.Grid = dynamo.GridMode(grid)
	}
	if flags.Lookup("alignment") != nil && flags.Changed("alignment") {
		cfg.Integration.Alignment = dynamo.Alignment(alignment)
	}
	if flags.Lookup("validate") != nil && flags.Changed("validate") {
		cfg.ValidateState = validate
	}
	if custom && configFile == "" {
		cfg.Name = name + "-custom"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openStore() (*storage.Store, error) {
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return nil, fmt.Errorf("open data dir %s: %w", dataDir, err)
	}
	return st, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	model := cfg.System()
	logger := slog.Default().With("preset", cfg.Name)
	s := sim.New(model, integrators.NewRK4())
	s.SetLogger(logger)
	for _, m := range metrics.Defaults(model) {
		s.AddMetric(m)
	}
	s.AddObserver(sim.NewProgressLogger(logger, cfg.SimConfig().Steps()))

	slog.Info("running", "preset", cfg.Name, "k", model.K(), "dt", cfg.Integration.Dt, "tf", cfg.Integration.Tf)

	start := time.Now()
	tr, runErr := s.Run(ctx, cfg.GetInitState(), cfg.SimConfig())
	if tr == nil {
		return runErr
	}
	elapsed := time.Since(start)

	if runErr != nil {
		var simErr *dynamo.SimulationError
		if !errors.As(runErr, &simErr) {
			return runErr
		}
		slog.Warn("run stopped early", "step", simErr.Step, "time", simErr.Time, "error", runErr)
	}

	printSummary(cfg, tr, elapsed)

	if !noSave {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		runID, err := st.Save(cfg, tr)
		if err != nil {
			return err
		}
		fmt.Println(viz.KeyValue("run id", runID))
	}

	if showPlot {
		fmt.Println()
		fmt.Println(viz.GraphStyle.Render(viz.Plot(tr, plotWidth, plotHeight)))
	}

	return runErr
}

func printSummary(cfg *config.Config, tr *dynamo.Trajectory, elapsed time.Duration) {
	s := analysis.Summarize(tr, cfg.System())

	fmt.Println(viz.TitleStyle.Render("magnetic brake: " + cfg.Name))
	rows := [][2]string{
		{"k", formatG(cfg.Constants.K())},
		{"points", humanize.Comma(int64(s.Points))},
		{"final time", formatG(s.FinalTime) + " s"},
		{"final height", formatG(s.FinalPosition) + " m"},
		{"final velocity", formatG(s.FinalVelocity) + " m/s"},
		{"fastest fall", fmt.Sprintf("%s m/s at t=%s s", formatG(s.MinVelocity), formatG(s.MinVelocityTime))},
		{"peak braking", fmt.Sprintf("%s N at t=%s s", formatG(s.PeakBraking), formatG(s.PeakBrakingTime))},
	}
	for _, name := range []string{"energy_loss", "max_speed", "stability"} {
		if v, ok := tr.Metrics[name]; ok {
			rows = append(rows, [2]string{name, formatG(v)})
		}
	}
	if elapsed > 0 {
		rows = append(rows, [2]string{"elapsed", elapsed.Round(time.Microsecond).String()})
	}
	fmt.Println(viz.Table(rows))
}

func formatG(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

func listRuns(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPOINTS\tDT\tTF\tFINAL X\tFINAL V\tCREATED")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%g\t%g\t%.4f\t%.4f\t%s\n",
			run.ID,
			run.Name,
			humanize.Comma(int64(run.Points)),
			run.Dt,
			run.Tf,
			run.FinalPosition,
			run.FinalVelocity,
			humanize.Time(run.CreatedAt),
		)
	}

	return w.Flush()
}

func loadRun(runID string) (*storage.RunMetadata, *dynamo.Trajectory, error) {
	st, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	defer st.Close()

	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	tr, err := st.LoadTrajectory(runID)
	if err != nil {
		return nil, nil, err
	}
	return meta, tr, nil
}

func showRun(cmd *cobra.Command, args []string) error {
	meta, tr, err := loadRun(args[0])
	if err != nil {
		return err
	}

	fmt.Println(viz.HeaderStyle.Render(meta.ID))
	fmt.Println(viz.Table([][2]string{
		{"created", meta.Timestamp.Format(time.RFC3339) + " (" + humanize.Time(meta.Timestamp) + ")"},
		{"mass", formatG(meta.Constants.Mass) + " kg"},
		{"mu", formatG(meta.Constants.Mu)},
		{"radius", formatG(meta.Constants.Radius) + " m"},
		{"resistivity", formatG(meta.Constants.Resistivity) + " ohm"},
		{"x0, y0", formatG(meta.InitState.X) + ", " + formatG(meta.InitState.Y)},
		{"interval", fmt.Sprintf("[%s, %s] s", formatG(meta.Integration.T0), formatG(meta.Integration.Tf))},
		{"grid", fmt.Sprintf("%s / %s", meta.Integration.Grid, meta.Integration.Alignment)},
	}))
	fmt.Println(viz.Separator(48))

	cfg := meta.Config()
	printSummary(cfg, tr, 0)
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, tr, err := loadRun(args[0])
	if err != nil {
		return err
	}

	out := viz.Plot(tr, plotWidth, plotHeight)
	if out == "" {
		return fmt.Errorf("run %s has no finite samples to plot", meta.ID)
	}
	fmt.Println(viz.TitleStyle.Render(meta.ID))
	fmt.Println(viz.GraphStyle.Render(out))
	return nil
}

func phasePlot(cmd *cobra.Command, args []string) error {
	meta, tr, err := loadRun(args[0])
	if err != nil {
		return err
	}

	art := analysis.NewPhasePortrait(tr).ASCII(plotWidth, plotHeight*2)
	if art == "" {
		return fmt.Errorf("run %s has no finite samples", meta.ID)
	}
	fmt.Println(viz.TitleStyle.Render(meta.ID + ": velocity vs height"))
	fmt.Print(art)
	return nil
}

func replayRun(cmd *cobra.Command, args []string) error {
	meta, tr, err := loadRun(args[0])
	if err != nil {
		return err
	}

	p := tea.NewProgram(viz.NewReplay(tr, meta.ID))
	_, err = p.Run()
	return err
}

// output returns stdout or the file named by --out.
func output() (io.WriteCloser, error) {
	if outFile == "" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(outFile)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func exportJSON(cmd *cobra.Command, args []string) error {
	meta, tr, err := loadRun(args[0])
	if err != nil {
		return err
	}

	w, err := output()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := storage.ExportJSON(w, meta, tr); err != nil {
		return fmt.Errorf("export %s: %w", meta.ID, err)
	}
	if outFile != "" {
		if info, err := os.Stat(outFile); err == nil {
			slog.Info("exported", "file", outFile, "size", humanize.Bytes(uint64(info.Size())))
		}
	}
	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	_, tr, err := loadRun(args[0])
	if err != nil {
		return err
	}

	w, err := output()
	if err != nil {
		return err
	}
	defer w.Close()

	return storage.WriteCSV(w, tr)
}

func exportSVG(cmd *cobra.Command, args []string) error {
	_, tr, err := loadRun(args[0])
	if err != nil {
		return err
	}

	w, err := output()
	if err != nil {
		return err
	}
	defer w.Close()

	return export.TrajectorySVG(w, tr, svgWidth, svgHeight)
}

func runBatch(cmd *cobra.Command, args []string) error {
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	var st *storage.Store
	if !noSave {
		if st, err = openStore(); err != nil {
			return err
		}
		defer st.Close()
	}

	results, runErr := automation.RunScenario(ctx, scenario, st)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tNAME\tRUN\tFINAL X\tFINAL V\tFASTEST")
	for _, r := range results {
		id := r.RunID
		if id == "" {
			id = "-"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%.4f\t%.4f\t%.4f\n",
			r.Step, r.Name, id, r.Summary.FinalPosition, r.Summary.FinalVelocity, r.Summary.MinVelocity)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return runErr
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tK\tMU\tR\tA\tDT\tGRID\tALIGNMENT")
	for _, name := range config.ListPresets() {
		cfg := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%s\t%g\t%g\t%g\t%g\t%s\t%s\n",
			name,
			formatG(cfg.Constants.K()),
			cfg.Constants.Mu,
			cfg.Constants.Resistivity,
			cfg.Constants.Radius,
			cfg.Integration.Dt,
			cfg.Integration.Grid,
			cfg.Integration.Alignment,
		)
	}
	return w.Flush()
}

func writeConfig(cmd *cobra.Command, args []string) error {
	name := "ring"
	if len(args) > 0 {
		name = args[0]
	}
	cfg := config.GetPreset(name)
	if cfg == nil {
		return fmt.Errorf("unknown preset: %s (available: %v)", name, config.ListPresets())
	}
	if err := config.Save(configOut, cfg); err != nil {
		return err
	}
	slog.Info("config written", "preset", name, "file", configOut)
	return nil
}

func convergenceOrder(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	cfg.Integration.Tf = cfg.Integration.T0 + orderTf
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	var ref analysis.Reference
	if cfg.Constants.K() == 0 {
		ref = analysis.FreeFallReference(cfg)
		slog.Info("no braking, using the closed-form free fall")
	} else {
		slog.Info("integrating reference", "dt", orderRef)
		ref, err = analysis.FineReference(ctx, cfg, orderRef)
		if err != nil {
			return err
		}
	}

	samples, err := analysis.ConvergenceStudy(ctx, cfg, orderSteps, ref)
	if err != nil {
		return err
	}
	orders := analysis.ObservedOrder(samples)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DT\tT\tERROR\tORDER")
	for i, s := range samples {
		order := "-"
		if i > 0 && !math.IsNaN(orders[i-1]) {
			order = fmt.Sprintf("%.3f", orders[i-1])
		}
		fmt.Fprintf(w, "%g\t%g\t%.3e\t%s\n", s.Dt, s.Time, s.Error, order)
	}
	return w.Flush()
}

func sweepParameter(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	start := time.Now()
	points, err := analysis.Sweep(ctx, cfg, sweepParam, sweepFrom, sweepTo, sweepPoints, workers)
	if err != nil {
		return err
	}
	slog.Info("sweep finished", "runs", len(points), "elapsed", time.Since(start))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tK\tFINAL X\tFINAL V\tFASTEST\n", strings.ToUpper(sweepParam))
	for _, p := range points {
		fmt.Fprintf(w, "%g\t%s\t%.4f\t%.4f\t%.4f\n", p.Value, formatG(p.K), p.FinalPosition, p.FinalVelocity, p.MinVelocity)
	}
	return w.Flush()
}

func serve(cmd *cobra.Command, args []string) error {
	if config.ParseLevel(logLevel) > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewRouter(st, env.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := signalContext()
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", addr, "data", dataDir)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		slog.Info("shutting down")
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		return srv.Shutdown(shutdownCtx)
	}
}

func deleteRun(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Delete(args[0]); err != nil {
		return err
	}
	fmt.Printf("deleted %s\n", args[0])
	return nil
}
