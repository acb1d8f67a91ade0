package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-echarts/go-echarts/v2/components"

	"github.com/lumen-phi/photonic-core/internal/design"
	"github.com/lumen-phi/photonic-core/internal/drc"
	"github.com/lumen-phi/photonic-core/internal/efficiency"
	"github.com/lumen-phi/photonic-core/internal/geometry"
	"github.com/lumen-phi/photonic-core/internal/mask"
	"github.com/lumen-phi/photonic-core/internal/oscillator"
	"github.com/lumen-phi/photonic-core/internal/report"
	"github.com/lumen-phi/photonic-core/internal/resonance"
	"github.com/lumen-phi/photonic-core/internal/store"
	"github.com/lumen-phi/photonic-core/internal/sweep"
	"github.com/lumen-phi/photonic-core/pkg/config"
	"github.com/lumen-phi/photonic-core/pkg/faults"
	"github.com/lumen-phi/photonic-core/pkg/logger"
	"github.com/lumen-phi/photonic-core/pkg/models"
)

const usageText = "usage: photonctl <generate-layout|simulate|run-oscillator|efficiency|compare-designs|sweep|runs|show> [flags]"

func main() {
	err := run(context.Background(), os.Args[1:])
	if err == nil {
		return
	}
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	fmt.Fprintln(os.Stderr, err)
	var ue *usageError
	if errors.As(err, &ue) {
		os.Exit(2)
	}
	os.Exit(1)
}

func run(ctx context.Context, args []string) error {
	// Command output goes to stdout; logs stay on stderr.
	logger.SetDefault(logger.NewText("info", os.Stderr))

	if len(args) == 0 {
		return usagef("missing command")
	}

	switch args[0] {
	case "generate-layout":
		return runGenerateLayout(ctx, args[1:])
	case "simulate":
		return runSimulate(ctx, args[1:])
	case "run-oscillator":
		return runOscillator(ctx, args[1:])
	case "efficiency":
		return runEfficiency(ctx, args[1:])
	case "compare-designs":
		return runCompareDesigns(ctx, args[1:])
	case "sweep":
		return runSweep(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "show":
		return runShow(ctx, args[1:])
	default:
		return usagef("unknown command: %s", args[0])
	}
}

// usageError marks a bad invocation so main can exit 2 instead of 1.
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...) + "\n" + usageText}
}

// parseFlags classifies flag parse failures as usage errors.
func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return &usageError{msg: err.Error()}
	}
	return nil
}

func runGenerateLayout(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("generate-layout", flag.ContinueOnError)
	chipPath := fs.String("chip", "", "chip config YAML path")
	outPath := fs.String("out", "layout.phim", "mask output path")
	jsonOut := fs.Bool("json", false, "emit the layout summary as JSON")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *chipPath == "" {
		return usagef("generate-layout requires --chip")
	}

	cfg, err := config.LoadChipConfig(*chipPath)
	if err != nil {
		return err
	}
	logger.SetDefault(logger.NewText(cfg.LogLevel, os.Stderr))

	layout, err := geometry.Build(cfg)
	if err != nil {
		return err
	}
	if err := drc.NewChecker().Check(layout, cfg); err != nil {
		return err
	}

	data, err := mask.Encode(layout, cfg.PointsPerRing)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*outPath, data, 0o644); err != nil {
		return faults.Serialization("write mask", *outPath, err)
	}

	summary := geometry.Summarize(layout, cfg)
	summary.MaskBytes = len(data)

	if *jsonOut {
		return emitJSON(summary)
	}
	fmt.Printf("cell=%s rings=%d primitives=%d\n", summary.Cell, summary.Rings, summary.Primitives)
	fmt.Printf("radii_um=%s\n", formatRadii(summary.RadiiUm))
	fmt.Printf("die_um=%.1fx%.1f chip_um=%.0fx%.0f utilization_pct=%.1f\n",
		summary.WidthUm, summary.HeightUm, summary.ChipWidthUm, summary.ChipHeightUm, summary.UtilizationPct)
	fmt.Printf("mask=%s size=%s\n", *outPath, humanize.Bytes(uint64(len(data))))
	return nil
}

func runSimulate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("simulate", flag.ContinueOnError)
	maskPath := fs.String("mask", "", "mask file to simulate")
	chipPath := fs.String("chip", "", "chip config YAML path (regenerates the layout)")
	scenarioPath := fs.String("scenario", "", "scenario YAML path")
	outPath := fs.String("out", "", "write the JSON report to this path")
	chartPath := fs.String("chart", "", "write the bus spectrum as an HTML chart")
	jsonOut := fs.Bool("json", false, "emit the full report as JSON")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *scenarioPath == "" {
		return usagef("simulate requires --scenario")
	}

	scenario, err := config.LoadScenario(*scenarioPath)
	if err != nil {
		return err
	}
	logger.SetDefault(logger.NewText(scenario.LogLevel, os.Stderr))

	var radii []float64
	var gapNm float64
	switch {
	case *maskPath != "" && *chipPath != "":
		return usagef("use either --mask or --chip, not both")
	case *maskPath != "":
		layout, err := mask.ReadFile(*maskPath)
		if err != nil {
			return err
		}
		if len(layout.Rings) == 0 {
			return faults.Layoutf(layout.Cell, "mask carries no rings to simulate")
		}
		radii = layout.Radii()
		gapNm = layout.Rings[0].GapUm * 1000
	case *chipPath != "":
		chip, err := config.LoadChipConfig(*chipPath)
		if err != nil {
			return err
		}
		layout, err := geometry.Build(chip)
		if err != nil {
			return err
		}
		radii = layout.Radii()
		gapNm = chip.CouplingGapNm
	default:
		return usagef("simulate requires --mask or --chip")
	}

	sim := resonance.NewSimulator(scenario)
	rep, err := sim.Run(ctx, radii, gapNm)
	if err != nil {
		return err
	}

	if scenario.Efficiency != nil {
		var trace *models.OscillatorTrace
		if scenario.Efficiency.Curve == "trace" && scenario.Oscillator != nil {
			trace, err = oscillator.NewEnsemble(scenario.Oscillator).Run(ctx)
			if err != nil {
				return err
			}
		}
		eff, err := efficiency.Evaluate(scenario.Efficiency, scenario.Oscillator, trace)
		if err != nil {
			return err
		}
		rep.Efficiency = eff
	}

	if *chartPath != "" {
		grid := resonance.WavelengthGrid(scenario.Physics)
		cascade := resonance.NewCascade(scenario.Physics, radii, gapNm, rep.Rings)
		if err := writeChart(*chartPath, report.SpectrumChart(grid, cascade.Sweep(grid))); err != nil {
			return err
		}
	}
	if *outPath != "" {
		if err := writeJSONFile(*outPath, rep); err != nil {
			return err
		}
	}
	if *jsonOut {
		return emitJSON(rep)
	}

	fmt.Printf("status=%s rings=%d crosstalk_pairs=%d elapsed_ms=%d\n",
		rep.Status, len(rep.Rings), len(rep.Crosstalk), rep.ElapsedMs)
	for _, ring := range rep.Rings {
		if ring.Failed {
			fmt.Printf("ring=%d radius_um=%.3f failed reason=%q\n",
				ring.RingIndex, ring.RadiusUm, ring.FailureReason)
			continue
		}
		fmt.Printf("ring=%d radius_um=%.3f resonance_nm=%.3f loaded_q=%.0f fwhm_nm=%.4f fsr_nm=%.3f finesse=%.1f t_peak=%.4f\n",
			ring.RingIndex, ring.RadiusUm, ring.ResonantWavelengthNm, ring.LoadedQ,
			ring.FWHMNm, ring.FSRNm, ring.Finesse, ring.PeakTransmission)
	}
	if rep.Cascade != nil {
		fmt.Printf("cascade min_transmission=%.4g at_nm=%.3f worst_insertion_loss_db=%.2f\n",
			rep.Cascade.MinTransmission, rep.Cascade.MinTransmissionAtNm, rep.Cascade.WorstInsertionLossDB)
	}
	if rep.Efficiency != nil {
		fmt.Printf("efficiency curve=%s ratio=%.3f energy_active_j=%.6g energy_resonant_j=%.6g\n",
			rep.Efficiency.CoherenceCurve, rep.Efficiency.Ratio,
			rep.Efficiency.EnergyActiveJ, rep.Efficiency.EnergyResonantJ)
	}
	if *outPath != "" {
		fmt.Printf("report=%s\n", *outPath)
	}
	return nil
}

func runOscillator(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run-oscillator", flag.ContinueOnError)
	scenarioPath := fs.String("scenario", "", "scenario YAML path with an oscillator block")
	outPath := fs.String("out", "", "write the trace JSON to this path")
	chartPath := fs.String("chart", "", "write the coherence trace as an HTML chart")
	jsonOut := fs.Bool("json", false, "emit the full trace as JSON")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *scenarioPath == "" {
		return usagef("run-oscillator requires --scenario")
	}

	scenario, err := config.LoadScenario(*scenarioPath)
	if err != nil {
		return err
	}
	logger.SetDefault(logger.NewText(scenario.LogLevel, os.Stderr))
	if scenario.Oscillator == nil {
		return faults.Configf("oscillator", "scenario carries no oscillator block")
	}

	trace, runErr := oscillator.NewEnsemble(scenario.Oscillator).Run(ctx)
	if trace == nil {
		return runErr
	}

	// A diverged run still emits its trace before reporting the failure.
	if *chartPath != "" {
		if err := writeChart(*chartPath, report.CoherenceChart(trace, scenario.Oscillator.LockThreshold)); err != nil {
			return err
		}
	}
	if *outPath != "" {
		if err := writeJSONFile(*outPath, trace); err != nil {
			return err
		}
	}
	if *jsonOut {
		if err := emitJSON(trace); err != nil {
			return err
		}
		return runErr
	}

	fmt.Printf("state=%s locked=%t lock_step=%d steps=%d oscillators=%d final_r=%.4f\n",
		trace.State, trace.Locked, trace.LockStep, trace.Steps, trace.Oscillators,
		trace.Coherence[len(trace.Coherence)-1])
	for _, tr := range trace.Transitions {
		fmt.Printf("transition step=%d %s->%s reason=%q\n", tr.Step, tr.From, tr.To, tr.Reason)
	}
	if *outPath != "" {
		fmt.Printf("trace=%s\n", *outPath)
	}
	return runErr
}

func runEfficiency(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("efficiency", flag.ContinueOnError)
	scenarioPath := fs.String("scenario", "", "scenario YAML path with an efficiency block")
	jsonOut := fs.Bool("json", false, "emit the report as JSON")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *scenarioPath == "" {
		return usagef("efficiency requires --scenario")
	}

	scenario, err := config.LoadScenario(*scenarioPath)
	if err != nil {
		return err
	}
	logger.SetDefault(logger.NewText(scenario.LogLevel, os.Stderr))
	if scenario.Efficiency == nil {
		return faults.Configf("efficiency", "scenario carries no efficiency block")
	}

	var trace *models.OscillatorTrace
	if scenario.Efficiency.Curve == "trace" {
		if scenario.Oscillator == nil {
			return faults.Configf("efficiency.curve", "trace curve requires an oscillator block")
		}
		trace, err = oscillator.NewEnsemble(scenario.Oscillator).Run(ctx)
		if err != nil {
			return err
		}
	}

	rep, err := efficiency.Evaluate(scenario.Efficiency, scenario.Oscillator, trace)
	if err != nil {
		return err
	}

	if *jsonOut {
		return emitJSON(rep)
	}
	fmt.Printf("curve=%s horizon_s=%.3f lock_time_s=%.4f\n", rep.CoherenceCurve, rep.HorizonS, rep.LockTimeS)
	fmt.Printf("energy_active_j=%.6g energy_resonant_j=%.6g ratio=%.3f\n",
		rep.EnergyActiveJ, rep.EnergyResonantJ, rep.Ratio)
	return nil
}

func runCompareDesigns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("compare-designs", flag.ContinueOnError)
	chipPath := fs.String("chip", "", "chip config YAML path")
	scenarioPath := fs.String("scenario", "", "scenario YAML path")
	objectiveName := fs.String("objective", "mean_loaded_q", "objective: mean_loaded_q|worst_insertion_loss_db|min_finesse|crosstalk_pairs")
	strategyName := fs.String("strategy", "best_score", "winner selection: best_score|pareto")
	secondary := fs.String("secondary", "", "comma-separated secondary objectives for pareto selection")
	jsonOut := fs.Bool("json", false, "emit the study report as JSON")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *chipPath == "" || *scenarioPath == "" {
		return usagef("compare-designs requires --chip and --scenario")
	}

	chip, err := config.LoadChipConfig(*chipPath)
	if err != nil {
		return err
	}
	scenario, err := config.LoadScenario(*scenarioPath)
	if err != nil {
		return err
	}
	logger.SetDefault(logger.NewText(scenario.LogLevel, os.Stderr))

	study, err := design.NewStudy(scenario, *objectiveName)
	if err != nil {
		return err
	}
	switch *strategyName {
	case "best_score":
	case "pareto":
		objectives, err := parseObjectives(*secondary)
		if err != nil {
			return err
		}
		study.WithStrategy(design.NewParetoStrategy(objectives))
	default:
		return usagef("unknown strategy: %s", *strategyName)
	}

	radii := geometry.Ladder(chip.BaseRadiusUm, chip.Phi, chip.RingCount)
	rep, err := study.Run(ctx, radii)
	if err != nil {
		return err
	}

	if *jsonOut {
		return emitJSON(rep)
	}
	fmt.Printf("objective=%s strategy=%s baseline=%s winner=%s improvement_pct=%.2f\n",
		rep.Objective, rep.Strategy, rep.Baseline, rep.Winner, rep.ImprovementPct)
	for _, v := range rep.Variants {
		fmt.Printf("variant=%s mean_loaded_q=%.0f min_finesse=%.1f worst_insertion_loss_db=%.2f crosstalk_pairs=%d failed_rings=%d score=%.4f\n",
			v.Variant, v.MeanLoadedQ, v.MinFinesse, v.WorstInsertionLossDB,
			v.CrosstalkPairs, v.FailedRings, v.Score)
	}
	return nil
}

func runSweep(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("sweep", flag.ContinueOnError)
	chipPath := fs.String("chip", "", "chip config YAML path")
	scenarioPath := fs.String("scenario", "", "scenario YAML path")
	axis := fs.String("axis", "", "swept axis: coupling_gap_nm|base_radius_um")
	from := fs.Float64("from", 0, "sweep start value")
	to := fs.Float64("to", 0, "sweep end value")
	points := fs.Int("points", 0, "grid point count")
	scale := fs.String("scale", "", "grid spacing: linear|log|golden")
	csvPath := fs.String("csv", "", "write the per-point series as CSV")
	chartPath := fs.String("chart", "", "write the sweep curves as an HTML chart")
	jsonOut := fs.Bool("json", false, "emit the sweep result as JSON")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *chipPath == "" || *scenarioPath == "" {
		return usagef("sweep requires --chip and --scenario")
	}
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	chip, err := config.LoadChipConfig(*chipPath)
	if err != nil {
		return err
	}
	scenario, err := config.LoadScenario(*scenarioPath)
	if err != nil {
		return err
	}
	logger.SetDefault(logger.NewText(scenario.LogLevel, os.Stderr))

	// Flags override the scenario's sweep block field by field.
	spec := scenario.Sweep
	if spec == nil {
		spec = &config.Sweep{}
	}
	if setFlags["axis"] {
		spec.Axis = *axis
	}
	if setFlags["from"] {
		spec.From = *from
	}
	if setFlags["to"] {
		spec.To = *to
	}
	if setFlags["points"] {
		spec.Points = *points
	}
	if setFlags["scale"] {
		spec.Scale = *scale
	}
	if err := config.NormalizeSweep(spec); err != nil {
		return err
	}

	res, err := sweep.NewRunner(chip, scenario).Run(ctx, spec)
	if err != nil {
		return err
	}

	if *csvPath != "" {
		f, err := os.Create(*csvPath)
		if err != nil {
			return faults.Serialization("write csv", *csvPath, err)
		}
		if err := res.WriteCSV(f); err != nil {
			f.Close()
			return faults.Serialization("write csv", *csvPath, err)
		}
		if err := f.Close(); err != nil {
			return faults.Serialization("write csv", *csvPath, err)
		}
	}
	if *chartPath != "" {
		if err := writeChart(*chartPath, report.SweepQChart(res), report.SweepSplitChart(res)); err != nil {
			return err
		}
	}
	if *jsonOut {
		return emitJSON(res)
	}

	fmt.Printf("axis=%s scale=%s points=%d q_trend=%s elapsed_ms=%d\n",
		res.Axis, res.Scale, len(res.Points), res.QTrend, res.ElapsedMs)
	for _, p := range res.Points {
		splitDisplay := "untunable"
		if p.SplitTunable {
			splitDisplay = fmt.Sprintf("%.3f%%", p.SplitErrorPct)
		}
		fmt.Printf("value=%.3f mean_loaded_q=%.0f min_finesse=%.1f worst_insertion_loss_db=%.2f crosstalk_pairs=%d failed_rings=%d split_error=%s\n",
			p.Value, p.MeanLoadedQ, p.MinFinesse, p.WorstInsertionLossDB,
			p.CrosstalkPairs, p.FailedRings, splitDisplay)
	}
	if *csvPath != "" {
		fmt.Printf("csv=%s\n", *csvPath)
	}
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	dbPath := fs.String("db", "photond.db", "SQLite archive path")
	kind := fs.String("kind", "", "filter by run kind: generate|simulate|oscillator")
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit the runs list as JSON")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *limit <= 0 {
		return usagef("limit must be > 0")
	}

	arch, err := store.Open(*dbPath)
	if err != nil {
		return err
	}
	defer arch.Close()

	var recs []*store.Record
	if *kind != "" {
		recs, err = arch.ListByKind(ctx, *kind, *limit)
	} else {
		recs, err = arch.ListRecords(ctx, *limit)
	}
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Println("no archived runs")
		return nil
	}

	if *jsonOut {
		type runsItem struct {
			RunID           string `json:"run_id"`
			Kind            string `json:"kind"`
			Status          string `json:"status"`
			CreatedAtUnixMs int64  `json:"created_at_unix_ms"`
			EndedAtUnixMs   int64  `json:"ended_at_unix_ms,omitempty"`
			Error           string `json:"error,omitempty"`
			ReportBytes     int    `json:"report_bytes"`
		}
		items := make([]runsItem, 0, len(recs))
		for _, rec := range recs {
			items = append(items, runsItem{
				RunID:           rec.ID,
				Kind:            rec.Kind,
				Status:          rec.Status,
				CreatedAtUnixMs: rec.CreatedAtUnixMs,
				EndedAtUnixMs:   rec.EndedAtUnixMs,
				Error:           rec.Error,
				ReportBytes:     len(rec.Report),
			})
		}
		return emitJSON(items)
	}

	for _, rec := range recs {
		errDisplay := ""
		if rec.Error != "" {
			errDisplay = fmt.Sprintf(" error=%q", rec.Error)
		}
		fmt.Printf("run_id=%s kind=%s status=%s created=%s report=%s%s\n",
			rec.ID, rec.Kind, rec.Status,
			humanize.Time(time.UnixMilli(rec.CreatedAtUnixMs)),
			humanize.Bytes(uint64(len(rec.Report))), errDisplay)
	}
	return nil
}

func runShow(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	dbPath := fs.String("db", "photond.db", "SQLite archive path")
	runID := fs.String("run-id", "", "archived run id")
	jsonOut := fs.Bool("json", false, "emit the full record as JSON")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *runID == "" {
		return usagef("show requires --run-id")
	}

	arch, err := store.Open(*dbPath)
	if err != nil {
		return err
	}
	defer arch.Close()

	rec, found, err := arch.GetRecord(ctx, *runID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("run %s not found in archive %s", *runID, *dbPath)
	}

	if *jsonOut {
		return emitJSON(rec)
	}

	fmt.Printf("run_id=%s kind=%s status=%s\n", rec.ID, rec.Kind, rec.Status)
	fmt.Printf("created=%s", humanize.Time(time.UnixMilli(rec.CreatedAtUnixMs)))
	if rec.StartedAtUnixMs > 0 && rec.EndedAtUnixMs > 0 {
		fmt.Printf(" duration=%s", time.Duration(rec.EndedAtUnixMs-rec.StartedAtUnixMs)*time.Millisecond)
	}
	fmt.Println()
	if rec.Error != "" {
		fmt.Printf("error=%s\n", rec.Error)
	}
	if rec.Report != "" {
		var buf bytes.Buffer
		if err := json.Indent(&buf, []byte(rec.Report), "", "  "); err != nil {
			fmt.Println(rec.Report)
		} else {
			fmt.Println(buf.String())
		}
	}
	return nil
}

func parseObjectives(names string) ([]design.Objective, error) {
	if names == "" {
		return nil, nil
	}
	var objectives []design.Objective
	for _, name := range strings.Split(names, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		obj, err := design.NewObjective(name)
		if err != nil {
			return nil, err
		}
		objectives = append(objectives, obj)
	}
	return objectives, nil
}

func formatRadii(radii []float64) string {
	parts := make([]string, len(radii))
	for i, r := range radii {
		parts[i] = fmt.Sprintf("%.3f", r)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func emitJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return faults.Serialization("encode report", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return faults.Serialization("write report", path, err)
	}
	return nil
}

func writeChart(path string, charters ...components.Charter) error {
	f, err := os.Create(path)
	if err != nil {
		return faults.Serialization("write chart", path, err)
	}
	defer f.Close()
	if err := report.WritePage(f, charters...); err != nil {
		return faults.Serialization("render chart", path, err)
	}
	return nil
}
