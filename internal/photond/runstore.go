package photond

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lumen-phi/photonic-core/internal/metrics"
	"github.com/lumen-phi/photonic-core/pkg/models"
	"github.com/lumen-phi/photonic-core/pkg/utils"
)

// RunInput carries the YAML payloads submitted with a run. Which fields are
// required depends on the run kind: generate needs the chip config, simulate
// needs both, oscillator needs the scenario.
type RunInput struct {
	ChipYAML     string `json:"chip_yaml,omitempty"`
	ScenarioYAML string `json:"scenario_yaml,omitempty"`
	CallbackURL  string `json:"callback_url,omitempty"`
}

// RunArtifacts holds the documents a finished run produced. The raw mask is
// kept out of JSON bodies and served as a binary download.
type RunArtifacts struct {
	Layout     *models.LayoutSummary    `json:"layout,omitempty"`
	Report     *models.SimulationReport `json:"report,omitempty"`
	Trace      *models.OscillatorTrace  `json:"trace,omitempty"`
	Efficiency *models.EfficiencyReport `json:"efficiency,omitempty"`
	Mask       []byte                   `json:"-"`
}

type RunRecord struct {
	Run       *models.Run
	Input     *RunInput
	Artifacts *RunArtifacts
}

// RunStore tracks live runs in memory. Durable archiving is the executor's
// concern, not the store's.
type RunStore struct {
	mu         sync.RWMutex
	runs       map[string]*RunRecord
	collectors map[string]*metrics.Collector
}

func NewRunStore() *RunStore {
	return &RunStore{
		runs:       make(map[string]*RunRecord),
		collectors: make(map[string]*metrics.Collector),
	}
}

func nowUnixMs() int64 {
	return time.Now().UTC().UnixMilli()
}

func validKind(kind models.RunKind) bool {
	switch kind {
	case models.RunKindGenerate, models.RunKindSimulate, models.RunKindOscillator:
		return true
	}
	return false
}

func (s *RunStore) Create(runID string, kind models.RunKind, input *RunInput) (*RunRecord, error) {
	if !validKind(kind) {
		return nil, fmt.Errorf("unknown run kind: %q", kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if runID == "" {
		runID = utils.GenerateRunID()
	}
	if _, exists := s.runs[runID]; exists {
		return nil, fmt.Errorf("run already exists: %s", runID)
	}

	rec := &RunRecord{
		Run: &models.Run{
			ID:              runID,
			Kind:            kind,
			Status:          models.RunStatusPending,
			CreatedAtUnixMs: nowUnixMs(),
		},
		Input: input,
	}
	s.runs[runID] = rec
	return rec, nil
}

func (s *RunStore) Get(runID string) (*RunRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.runs[runID]
	return rec, ok
}

// List returns up to limit runs, newest first.
func (s *RunStore) List(limit int) []*RunRecord {
	return s.ListFiltered(limit, 0, "")
}

// ListFiltered returns runs newest first, optionally filtered by status,
// skipping offset entries. An empty status matches everything.
func (s *RunStore) ListFiltered(limit, offset int, status models.RunStatus) []*RunRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	matched := make([]*RunRecord, 0, len(s.runs))
	for _, rec := range s.runs {
		if status != "" && rec.Run.Status != status {
			continue
		}
		matched = append(matched, rec)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Run.CreatedAtUnixMs != matched[j].Run.CreatedAtUnixMs {
			return matched[i].Run.CreatedAtUnixMs > matched[j].Run.CreatedAtUnixMs
		}
		return matched[i].Run.ID < matched[j].Run.ID
	})

	if offset >= len(matched) {
		return nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched
}

func (s *RunStore) SetStatus(runID string, status models.RunStatus, errMsg string) (*RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.runs[runID]
	if !ok {
		return nil, fmt.Errorf("run not found: %s", runID)
	}

	rec.Run.Status = status
	if errMsg != "" {
		rec.Run.Error = errMsg
	}

	switch status {
	case models.RunStatusRunning:
		if rec.Run.StartedAtUnixMs == 0 {
			rec.Run.StartedAtUnixMs = nowUnixMs()
		}
	case models.RunStatusCompleted, models.RunStatusDegraded,
		models.RunStatusFailed, models.RunStatusCancelled:
		rec.Run.EndedAtUnixMs = nowUnixMs()
	}

	return rec, nil
}

func (s *RunStore) SetArtifacts(runID string, artifacts *RunArtifacts) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("run not found: %s", runID)
	}
	rec.Artifacts = artifacts
	return nil
}

// SetCollector attaches the live metrics collector for a run so handlers
// can stream progress while the run executes.
func (s *RunStore) SetCollector(runID string, c *metrics.Collector) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[runID]; !ok {
		return fmt.Errorf("run not found: %s", runID)
	}
	s.collectors[runID] = c
	return nil
}

func (s *RunStore) GetCollector(runID string) (*metrics.Collector, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collectors[runID]
	return c, ok
}
