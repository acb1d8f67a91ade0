package photond

import (
	"strings"
	"testing"

	"github.com/lumen-phi/photonic-core/internal/metrics"
	"github.com/lumen-phi/photonic-core/pkg/models"
)

func TestRunStoreCreateAndGet(t *testing.T) {
	store := NewRunStore()

	rec, err := store.Create("", models.RunKindOscillator, &RunInput{ScenarioYAML: "oscillator: {}"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if rec == nil || rec.Run == nil {
		t.Fatalf("Create returned nil record/run")
	}
	if rec.Run.ID == "" {
		t.Fatalf("expected generated run id")
	}
	if !strings.HasPrefix(rec.Run.ID, "run-") {
		t.Errorf("expected generated id with run- prefix, got %q", rec.Run.ID)
	}
	if rec.Run.Status != models.RunStatusPending {
		t.Fatalf("expected status pending, got %v", rec.Run.Status)
	}
	if rec.Run.Kind != models.RunKindOscillator {
		t.Fatalf("expected kind oscillator, got %v", rec.Run.Kind)
	}
	if rec.Run.CreatedAtUnixMs == 0 {
		t.Fatalf("expected created_at_unix_ms to be set")
	}

	got, ok := store.Get(rec.Run.ID)
	if !ok {
		t.Fatalf("expected run to exist")
	}
	if got.Run.ID != rec.Run.ID {
		t.Fatalf("expected same run id")
	}
	if got.Input == nil || got.Input.ScenarioYAML != "oscillator: {}" {
		t.Fatalf("expected input to be retained")
	}
}

func TestRunStoreCreateDuplicate(t *testing.T) {
	store := NewRunStore()
	_, err := store.Create("run-1", models.RunKindGenerate, &RunInput{ChipYAML: "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = store.Create("run-1", models.RunKindGenerate, &RunInput{ChipYAML: "y"})
	if err == nil {
		t.Fatalf("expected duplicate error")
	}
	if !strings.Contains(err.Error(), "already exists") {
		t.Errorf("expected already exists error, got %v", err)
	}
}

func TestRunStoreCreateUnknownKind(t *testing.T) {
	store := NewRunStore()
	_, err := store.Create("run-1", models.RunKind("warp"), &RunInput{})
	if err == nil {
		t.Fatalf("expected unknown kind error")
	}
	if !strings.Contains(err.Error(), "unknown run kind") {
		t.Errorf("expected unknown run kind error, got %v", err)
	}
}

func TestRunStoreGetMissing(t *testing.T) {
	store := NewRunStore()
	if _, ok := store.Get("nope"); ok {
		t.Fatalf("expected missing run")
	}
}

func TestRunStoreSetStatusSetsTimestamps(t *testing.T) {
	store := NewRunStore()
	rec, err := store.Create("run-1", models.RunKindSimulate, &RunInput{ChipYAML: "x", ScenarioYAML: "y"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	if rec.Run.StartedAtUnixMs != 0 || rec.Run.EndedAtUnixMs != 0 {
		t.Fatalf("expected timestamps not set initially")
	}

	rec, err = store.SetStatus("run-1", models.RunStatusRunning, "")
	if err != nil {
		t.Fatalf("SetStatus running error: %v", err)
	}
	if rec.Run.StartedAtUnixMs == 0 {
		t.Fatalf("expected started_at_unix_ms set")
	}
	if rec.Run.EndedAtUnixMs != 0 {
		t.Fatalf("did not expect ended_at_unix_ms set for running")
	}

	rec, err = store.SetStatus("run-1", models.RunStatusCompleted, "")
	if err != nil {
		t.Fatalf("SetStatus completed error: %v", err)
	}
	if rec.Run.EndedAtUnixMs == 0 {
		t.Fatalf("expected ended_at_unix_ms set")
	}
}

func TestRunStoreSetStatusRecordsError(t *testing.T) {
	store := NewRunStore()
	if _, err := store.Create("run-1", models.RunKindOscillator, &RunInput{ScenarioYAML: "x"}); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	rec, err := store.SetStatus("run-1", models.RunStatusFailed, "ensemble diverged")
	if err != nil {
		t.Fatalf("SetStatus failed error: %v", err)
	}
	if rec.Run.Error != "ensemble diverged" {
		t.Errorf("expected error message recorded, got %q", rec.Run.Error)
	}
	if rec.Run.EndedAtUnixMs == 0 {
		t.Errorf("expected ended_at_unix_ms set for failed run")
	}
}

func TestRunStoreSetStatusMissing(t *testing.T) {
	store := NewRunStore()
	if _, err := store.SetStatus("nope", models.RunStatusRunning, ""); err == nil {
		t.Fatalf("expected error for missing run")
	}
}

func TestRunStoreSetArtifacts(t *testing.T) {
	store := NewRunStore()
	if _, err := store.Create("run-1", models.RunKindGenerate, &RunInput{ChipYAML: "x"}); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	artifacts := &RunArtifacts{
		Layout: &models.LayoutSummary{Rings: 5},
		Mask:   []byte{0xde, 0xad},
	}
	if err := store.SetArtifacts("run-1", artifacts); err != nil {
		t.Fatalf("SetArtifacts error: %v", err)
	}

	rec, ok := store.Get("run-1")
	if !ok {
		t.Fatalf("expected run to exist")
	}
	if rec.Artifacts == nil || rec.Artifacts.Layout == nil {
		t.Fatalf("expected artifacts to be stored")
	}
	if rec.Artifacts.Layout.Rings != 5 {
		t.Errorf("expected 5 rings, got %d", rec.Artifacts.Layout.Rings)
	}
	if len(rec.Artifacts.Mask) != 2 {
		t.Errorf("expected mask bytes retained, got %d", len(rec.Artifacts.Mask))
	}
}

func TestRunStoreListLimit(t *testing.T) {
	store := NewRunStore()
	for i := 0; i < 10; i++ {
		if _, err := store.Create("", models.RunKindGenerate, &RunInput{ChipYAML: "x"}); err != nil {
			t.Fatalf("Create error: %v", err)
		}
	}

	recs := store.List(3)
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
}

func TestRunStoreListFilteredOrdering(t *testing.T) {
	store := NewRunStore()
	a, _ := store.Create("run-a", models.RunKindGenerate, &RunInput{ChipYAML: "x"})
	b, _ := store.Create("run-b", models.RunKindGenerate, &RunInput{ChipYAML: "x"})
	c, _ := store.Create("run-c", models.RunKindGenerate, &RunInput{ChipYAML: "x"})
	a.Run.CreatedAtUnixMs = 1000
	b.Run.CreatedAtUnixMs = 1001
	c.Run.CreatedAtUnixMs = 1002

	recs := store.ListFiltered(10, 0, "")
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	if recs[0].Run.ID != "run-c" || recs[1].Run.ID != "run-b" || recs[2].Run.ID != "run-a" {
		t.Errorf("expected newest-first ordering, got %s, %s, %s",
			recs[0].Run.ID, recs[1].Run.ID, recs[2].Run.ID)
	}

	recs = store.ListFiltered(2, 1, "")
	if len(recs) != 2 {
		t.Fatalf("expected 2 records with offset, got %d", len(recs))
	}
	if recs[0].Run.ID != "run-b" {
		t.Errorf("expected run-b first after offset 1, got %s", recs[0].Run.ID)
	}
}

func TestRunStoreListFilteredStatus(t *testing.T) {
	store := NewRunStore()
	for _, id := range []string{"run-a", "run-b", "run-c"} {
		if _, err := store.Create(id, models.RunKindOscillator, &RunInput{ScenarioYAML: "x"}); err != nil {
			t.Fatalf("Create error: %v", err)
		}
	}
	if _, err := store.SetStatus("run-b", models.RunStatusRunning, ""); err != nil {
		t.Fatalf("SetStatus error: %v", err)
	}

	recs := store.ListFiltered(10, 0, models.RunStatusRunning)
	if len(recs) != 1 {
		t.Fatalf("expected 1 running record, got %d", len(recs))
	}
	if recs[0].Run.ID != "run-b" {
		t.Errorf("expected run-b, got %s", recs[0].Run.ID)
	}

	recs = store.ListFiltered(10, 0, models.RunStatusPending)
	if len(recs) != 2 {
		t.Fatalf("expected 2 pending records, got %d", len(recs))
	}
}

func TestRunStoreCollector(t *testing.T) {
	store := NewRunStore()
	if _, err := store.Create("run-1", models.RunKindOscillator, &RunInput{ScenarioYAML: "x"}); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	if _, ok := store.GetCollector("run-1"); ok {
		t.Fatalf("did not expect collector before SetCollector")
	}

	c := metrics.NewCollector()
	c.Record(metrics.SeriesCoherence, 0.42, 0, nil)
	if err := store.SetCollector("run-1", c); err != nil {
		t.Fatalf("SetCollector error: %v", err)
	}

	got, ok := store.GetCollector("run-1")
	if !ok || got == nil {
		t.Fatalf("expected collector to be stored")
	}
	if got.Len(metrics.SeriesCoherence, nil) != 1 {
		t.Errorf("expected 1 coherence point, got %d", got.Len(metrics.SeriesCoherence, nil))
	}

	if err := store.SetCollector("missing", c); err == nil {
		t.Errorf("expected error for missing run")
	}
}
