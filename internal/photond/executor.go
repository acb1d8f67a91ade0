package photond

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/lumen-phi/photonic-core/internal/drc"
	"github.com/lumen-phi/photonic-core/internal/efficiency"
	"github.com/lumen-phi/photonic-core/internal/geometry"
	"github.com/lumen-phi/photonic-core/internal/mask"
	"github.com/lumen-phi/photonic-core/internal/metrics"
	"github.com/lumen-phi/photonic-core/internal/oscillator"
	"github.com/lumen-phi/photonic-core/internal/resonance"
	"github.com/lumen-phi/photonic-core/internal/store"
	"github.com/lumen-phi/photonic-core/pkg/config"
	"github.com/lumen-phi/photonic-core/pkg/faults"
	"github.com/lumen-phi/photonic-core/pkg/logger"
	"github.com/lumen-phi/photonic-core/pkg/models"
)

var (
	ErrRunNotFound  = errors.New("run not found")
	ErrRunTerminal  = errors.New("run is terminal")
	ErrRunIDMissing = errors.New("run_id is required")
)

// RunExecutor executes runs asynchronously with per-run cancellation. On
// terminal status it fires the completion webhook and archives the run when
// a notifier or archive is attached.
type RunExecutor struct {
	store    *RunStore
	notifier *Notifier
	archive  *store.Archive

	defaultCallbackURL string
	callbackSecret     string

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func NewRunExecutor(runs *RunStore) *RunExecutor {
	return &RunExecutor{
		store:   runs,
		cancels: make(map[string]context.CancelFunc),
	}
}

// WithNotifier attaches the completion webhook. The default URL is used for
// runs submitted without their own callback; {run_id} in either URL is
// replaced with the run's ID.
func (e *RunExecutor) WithNotifier(n *Notifier, defaultURL, secret string) *RunExecutor {
	e.notifier = n
	e.defaultCallbackURL = defaultURL
	e.callbackSecret = secret
	return e
}

// WithArchive attaches the durable run archive.
func (e *RunExecutor) WithArchive(a *store.Archive) *RunExecutor {
	e.archive = a
	return e
}

// Start begins executing a run asynchronously. Returns the updated run
// state (running) or an error.
func (e *RunExecutor) Start(runID string) (*RunRecord, error) {
	if runID == "" {
		return nil, ErrRunIDMissing
	}

	rec, ok := e.store.Get(runID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	if rec.Run.Status == models.RunStatusRunning {
		return rec, nil
	}
	if rec.Run.Status.Terminal() {
		return nil, fmt.Errorf("%w: %s", ErrRunTerminal, runID)
	}

	updated, err := e.store.SetStatus(runID, models.RunStatusRunning, "")
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.mu.Lock()
	if old, exists := e.cancels[runID]; exists {
		old()
	}
	e.cancels[runID] = cancel
	e.mu.Unlock()

	go e.execute(ctx, runID)
	return updated, nil
}

// Stop requests cancellation for a running run and marks it cancelled.
func (e *RunExecutor) Stop(runID string) (*RunRecord, error) {
	if runID == "" {
		return nil, ErrRunIDMissing
	}

	e.mu.Lock()
	cancel, ok := e.cancels[runID]
	e.mu.Unlock()

	if ok {
		cancel()
	}

	updated, err := e.store.SetStatus(runID, models.RunStatusCancelled, "")
	if err != nil {
		return nil, err
	}
	e.finish(updated)
	return updated, nil
}

func (e *RunExecutor) cleanup(runID string) {
	e.mu.Lock()
	if cancel, ok := e.cancels[runID]; ok {
		cancel()
		delete(e.cancels, runID)
	}
	e.mu.Unlock()
}

func (e *RunExecutor) execute(ctx context.Context, runID string) {
	defer e.cleanup(runID)

	rec, ok := e.store.Get(runID)
	if !ok {
		logger.Error("run not found", "run_id", runID)
		return
	}
	if rec.Input == nil {
		e.fail(runID, "run has no input")
		return
	}

	var artifacts *RunArtifacts
	var err error
	switch rec.Run.Kind {
	case models.RunKindGenerate:
		artifacts, err = e.runGenerate(ctx, rec)
	case models.RunKindSimulate:
		artifacts, err = e.runSimulate(ctx, rec)
	case models.RunKindOscillator:
		artifacts, err = e.runOscillator(ctx, runID, rec)
	default:
		err = fmt.Errorf("unknown run kind: %q", rec.Run.Kind)
	}

	if artifacts != nil {
		if setErr := e.store.SetArtifacts(runID, artifacts); setErr != nil {
			logger.Error("failed to set artifacts", "run_id", runID, "error", setErr)
		}
	}

	if err != nil {
		if ctx.Err() != nil {
			// Stop already marked the run cancelled and notified.
			logger.Info("run cancelled", "run_id", runID)
			return
		}
		e.fail(runID, err.Error())
		return
	}

	status := models.RunStatusCompleted
	if artifacts != nil && artifacts.Report != nil && artifacts.Report.Degraded() {
		status = models.RunStatusDegraded
	}

	updated, setErr := e.store.SetStatus(runID, status, "")
	if setErr != nil {
		logger.Error("failed to set completed status", "run_id", runID, "error", setErr)
		return
	}
	logger.Info("run completed", "run_id", runID, "kind", string(rec.Run.Kind), "status", string(status))
	e.finish(updated)
}

func (e *RunExecutor) fail(runID, reason string) {
	updated, err := e.store.SetStatus(runID, models.RunStatusFailed, reason)
	if err != nil {
		logger.Error("failed to set failed status", "run_id", runID, "error", err)
		return
	}
	logger.Warn("run failed", "run_id", runID, "reason", reason)
	e.finish(updated)
}

// finish runs the terminal-status side effects: webhook and archive.
func (e *RunExecutor) finish(rec *RunRecord) {
	if rec == nil || rec.Run == nil {
		return
	}

	if e.notifier != nil {
		url := e.defaultCallbackURL
		if rec.Input != nil && rec.Input.CallbackURL != "" {
			url = rec.Input.CallbackURL
		}
		e.notifier.Notify(url, e.callbackSecret, rec.Run)
	}

	if e.archive != nil {
		inputJSON, _ := json.Marshal(rec.Input)
		reportJSON, _ := json.Marshal(rec.Artifacts)
		archRec := store.FromRun(rec.Run, string(inputJSON), string(reportJSON))
		if err := e.archive.SaveRecord(context.Background(), archRec); err != nil {
			logger.Error("failed to archive run", "run_id", rec.Run.ID, "error", err)
		}
	}
}

// runGenerate builds the layout from the chip config, checks the design
// rules, and encodes the mask.
func (e *RunExecutor) runGenerate(ctx context.Context, rec *RunRecord) (*RunArtifacts, error) {
	if rec.Input.ChipYAML == "" {
		return nil, faults.Configf("chip_yaml", "generate run requires a chip config")
	}
	chip, err := config.ParseChipConfigYAMLString(rec.Input.ChipYAML)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	layout, err := geometry.Build(chip)
	if err != nil {
		return nil, err
	}
	if err := drc.NewChecker().Check(layout, chip); err != nil {
		return nil, err
	}

	data, err := mask.Encode(layout, chip.PointsPerRing)
	if err != nil {
		return nil, err
	}

	summary := geometry.Summarize(layout, chip)
	summary.MaskBytes = len(data)
	return &RunArtifacts{Layout: &summary, Mask: data}, nil
}

// runSimulate builds the ring bank from the chip config and characterizes
// it against the scenario, with the optional efficiency section appended.
func (e *RunExecutor) runSimulate(ctx context.Context, rec *RunRecord) (*RunArtifacts, error) {
	if rec.Input.ChipYAML == "" {
		return nil, faults.Configf("chip_yaml", "simulate run requires a chip config")
	}
	if rec.Input.ScenarioYAML == "" {
		return nil, faults.Configf("scenario_yaml", "simulate run requires a scenario")
	}
	chip, err := config.ParseChipConfigYAMLString(rec.Input.ChipYAML)
	if err != nil {
		return nil, err
	}
	scenario, err := config.ParseScenarioYAMLString(rec.Input.ScenarioYAML)
	if err != nil {
		return nil, err
	}

	layout, err := geometry.Build(chip)
	if err != nil {
		return nil, err
	}

	collector := metrics.NewCollector()
	if err := e.store.SetCollector(rec.Run.ID, collector); err != nil {
		logger.Error("failed to store collector", "run_id", rec.Run.ID, "error", err)
	}

	sim := resonance.NewSimulator(scenario)
	report, err := sim.Run(ctx, layout.Radii(), chip.CouplingGapNm)
	if err != nil {
		return nil, err
	}
	metrics.RecordRingResults(collector, report.Rings)
	metrics.RecordCascade(collector, report.Cascade)

	artifacts := &RunArtifacts{Report: report}

	if scenario.Efficiency != nil {
		var trace *models.OscillatorTrace
		if scenario.Efficiency.Curve == "trace" && scenario.Oscillator != nil {
			ens := oscillator.NewEnsemble(scenario.Oscillator).
				WithStepReporter(func(step int, coherence float64) {
					collector.Record(metrics.SeriesCoherence, coherence, int64(step), nil)
				})
			trace, err = ens.Run(ctx)
			if err != nil {
				return artifacts, err
			}
			artifacts.Trace = trace
		}
		eff, err := efficiency.Evaluate(scenario.Efficiency, scenario.Oscillator, trace)
		if err != nil {
			return artifacts, err
		}
		report.Efficiency = eff
		artifacts.Efficiency = eff
	}

	return artifacts, nil
}

// runOscillator steps the phase-lock ensemble, streaming coherence into the
// run's collector as it goes. A diverged ensemble fails the run but keeps
// the trace as evidence.
func (e *RunExecutor) runOscillator(ctx context.Context, runID string, rec *RunRecord) (*RunArtifacts, error) {
	if rec.Input.ScenarioYAML == "" {
		return nil, faults.Configf("scenario_yaml", "oscillator run requires a scenario")
	}
	scenario, err := config.ParseScenarioYAMLString(rec.Input.ScenarioYAML)
	if err != nil {
		return nil, err
	}
	if scenario.Oscillator == nil {
		return nil, faults.Configf("oscillator", "scenario has no oscillator section")
	}

	collector := metrics.NewCollector()
	if err := e.store.SetCollector(runID, collector); err != nil {
		logger.Error("failed to store collector", "run_id", runID, "error", err)
	}

	ens := oscillator.NewEnsemble(scenario.Oscillator).
		WithStepReporter(func(step int, coherence float64) {
			collector.Record(metrics.SeriesCoherence, coherence, int64(step), nil)
		})

	trace, err := ens.Run(ctx)
	if err != nil {
		if trace == nil {
			return nil, err
		}
		// A convergence failure still carries the trace.
		metrics.RecordFinalPhases(collector, trace)
		return &RunArtifacts{Trace: trace}, err
	}
	metrics.RecordFinalPhases(collector, trace)

	artifacts := &RunArtifacts{Trace: trace}
	if scenario.Efficiency != nil {
		eff, err := efficiency.Evaluate(scenario.Efficiency, scenario.Oscillator, trace)
		if err != nil {
			return artifacts, err
		}
		artifacts.Efficiency = eff
	}
	return artifacts, nil
}
