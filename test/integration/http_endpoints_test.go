//go:build integration
// +build integration

package integration_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lumen-phi/photonic-core/internal/mask"
	"github.com/lumen-phi/photonic-core/internal/photond"
	"github.com/lumen-phi/photonic-core/pkg/models"
)

const daemonChipYAML = `
base_radius_um: 5.0
ring_count: 3
coupling_gap_nm: 200
`

const daemonScenarioYAML = `
physics:
  points: 401
efficiency:
  curve: logistic
  p_active_mw: 10
  p_maintain_mw: 1
  lock_time_s: 0.2
`

func newDaemonHandler() (http.Handler, *photond.RunStore) {
	runs := photond.NewRunStore()
	srv := photond.NewHTTPServer(runs, photond.NewRunExecutor(runs))
	return srv.Handler(), runs
}

func getJSON(t *testing.T, h http.Handler, path string) (int, map[string]any) {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]any
	if rr.Body.Len() > 0 && strings.Contains(rr.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatalf("invalid json from GET %s: %v", path, err)
		}
	}
	return rr.Code, body
}

func postJSON(t *testing.T, h http.Handler, path string, payload any) (int, map[string]any) {
	t.Helper()
	var reqBody *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(http.MethodPost, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var body map[string]any
	if rr.Body.Len() > 0 {
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatalf("invalid json from POST %s: %v", path, err)
		}
	}
	return rr.Code, body
}

// waitForTerminalOverHTTP polls GET /api/v1/runs/{id} until the run reaches
// a terminal status, using only the public surface.
func waitForTerminalOverHTTP(t *testing.T, h http.Handler, runID string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		code, body := getJSON(t, h, "/api/v1/runs/"+runID)
		if code != http.StatusOK {
			t.Fatalf("expected status 200 polling run %s, got %d", runID, code)
		}
		run, ok := body["run"].(map[string]any)
		if !ok {
			t.Fatalf("expected run object for %s", runID)
		}
		switch run["status"].(string) {
		case "completed", "degraded", "failed", "cancelled":
			return run
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("run %s did not reach a terminal status", runID)
	return nil
}

func TestIntegration_HTTPEndpoints_GenerateLifecycle(t *testing.T) {
	h, _ := newDaemonHandler()

	code, body := postJSON(t, h, "/api/v1/runs", map[string]any{
		"run_id":    "gen-1",
		"kind":      "generate",
		"chip_yaml": daemonChipYAML,
	})
	if code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %v", code, body)
	}
	run := body["run"].(map[string]any)
	if run["status"].(string) != "pending" {
		t.Fatalf("expected pending run, got %v", run["status"])
	}

	code, body = postJSON(t, h, "/api/v1/runs/gen-1:start", nil)
	if code != http.StatusOK {
		t.Fatalf("expected status 200 on start, got %d: %v", code, body)
	}

	run = waitForTerminalOverHTTP(t, h, "gen-1")
	if run["status"].(string) != "completed" {
		t.Fatalf("expected completed, got %v (error: %v)", run["status"], run["error"])
	}

	code, body = getJSON(t, h, "/api/v1/runs/gen-1/report")
	if code != http.StatusOK {
		t.Fatalf("expected status 200 on report, got %d", code)
	}
	layout, ok := body["layout"].(map[string]any)
	if !ok {
		t.Fatalf("expected layout in report, got %v", body)
	}
	if int(layout["rings"].(float64)) != 3 {
		t.Fatalf("expected 3 rings in layout summary, got %v", layout["rings"])
	}
	if layout["mask_bytes"].(float64) <= 0 {
		t.Fatalf("expected positive mask size, got %v", layout["mask_bytes"])
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/runs/gen-1/mask", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200 on mask download, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/octet-stream" {
		t.Fatalf("expected octet-stream mask, got %q", ct)
	}
	decoded, err := mask.Decode(rr.Body.Bytes())
	if err != nil {
		t.Fatalf("downloaded mask failed to decode: %v", err)
	}
	if len(decoded.Rings) != 3 {
		t.Fatalf("expected 3 rings in the downloaded mask, got %d", len(decoded.Rings))
	}
}

func TestIntegration_HTTPEndpoints_SimulateReport(t *testing.T) {
	h, _ := newDaemonHandler()

	code, body := postJSON(t, h, "/api/v1/runs", map[string]any{
		"run_id":        "sim-1",
		"kind":          "simulate",
		"chip_yaml":     daemonChipYAML,
		"scenario_yaml": daemonScenarioYAML,
	})
	if code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %v", code, body)
	}
	if code, body = postJSON(t, h, "/api/v1/runs/sim-1:start", nil); code != http.StatusOK {
		t.Fatalf("expected status 200 on start, got %d: %v", code, body)
	}

	run := waitForTerminalOverHTTP(t, h, "sim-1")
	if run["status"].(string) != "completed" {
		t.Fatalf("expected completed, got %v (error: %v)", run["status"], run["error"])
	}

	code, body = getJSON(t, h, "/api/v1/runs/sim-1/report")
	if code != http.StatusOK {
		t.Fatalf("expected status 200 on report, got %d", code)
	}
	report, ok := body["report"].(map[string]any)
	if !ok {
		t.Fatalf("expected simulation report, got %v", body)
	}
	rings, ok := report["rings"].([]any)
	if !ok || len(rings) != 3 {
		t.Fatalf("expected 3 ring results, got %v", report["rings"])
	}
	for _, ringAny := range rings {
		ring := ringAny.(map[string]any)
		if failed, ok := ring["failed"].(bool); ok && failed {
			t.Fatalf("ring %v failed: %v", ring["ring_index"], ring["failure_reason"])
		}
		if ring["loaded_q"].(float64) <= 0 {
			t.Fatalf("expected positive loaded Q, got %v", ring["loaded_q"])
		}
	}
	if _, ok := report["cascade"].(map[string]any); !ok {
		t.Fatalf("expected cascade summary in report")
	}
	if _, ok := body["efficiency"].(map[string]any); !ok {
		t.Fatalf("expected efficiency artifact alongside the report")
	}
}

func TestIntegration_HTTPEndpoints_ListPaginationAndFilter(t *testing.T) {
	h, runs := newDaemonHandler()

	for i := 0; i < 5; i++ {
		runID := fmt.Sprintf("run-%d", i)
		if _, err := runs.Create(runID, models.RunKindGenerate, &photond.RunInput{ChipYAML: daemonChipYAML}); err != nil {
			t.Fatalf("Create error: %v", err)
		}
		switch i % 3 {
		case 1:
			runs.SetStatus(runID, models.RunStatusRunning, "")
		case 2:
			runs.SetStatus(runID, models.RunStatusCompleted, "")
		}
	}

	code, body := getJSON(t, h, "/api/v1/runs")
	if code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", code)
	}
	if got := body["runs"].([]any); len(got) != 5 {
		t.Fatalf("expected 5 runs, got %d", len(got))
	}
	pagination := body["pagination"].(map[string]any)
	if int(pagination["count"].(float64)) != 5 {
		t.Fatalf("expected pagination count 5, got %v", pagination["count"])
	}

	code, body = getJSON(t, h, "/api/v1/runs?limit=2&offset=1")
	if code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", code)
	}
	if got := body["runs"].([]any); len(got) != 2 {
		t.Fatalf("expected 2 runs with limit=2, got %d", len(got))
	}

	code, body = getJSON(t, h, "/api/v1/runs?status=completed")
	if code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", code)
	}
	got := body["runs"].([]any)
	if len(got) != 1 {
		t.Fatalf("expected 1 completed run, got %d", len(got))
	}
	for _, runAny := range got {
		run := runAny.(map[string]any)
		if run["status"].(string) != "completed" {
			t.Fatalf("expected completed status, got %v", run["status"])
		}
	}
}

func TestIntegration_HTTPEndpoints_ErrorPaths(t *testing.T) {
	h, runs := newDaemonHandler()

	code, _ := getJSON(t, h, "/api/v1/runs/missing")
	if code != http.StatusNotFound {
		t.Fatalf("expected status 404 for an unknown run, got %d", code)
	}

	code, body := postJSON(t, h, "/api/v1/runs", map[string]any{"chip_yaml": daemonChipYAML})
	if code != http.StatusBadRequest {
		t.Fatalf("expected status 400 without a kind, got %d: %v", code, body)
	}

	code, body = postJSON(t, h, "/api/v1/runs", map[string]any{"run_id": "dup-1", "kind": "generate", "chip_yaml": daemonChipYAML})
	if code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %v", code, body)
	}
	code, body = postJSON(t, h, "/api/v1/runs", map[string]any{"run_id": "dup-1", "kind": "generate", "chip_yaml": daemonChipYAML})
	if code != http.StatusConflict {
		t.Fatalf("expected status 409 for a duplicate run id, got %d: %v", code, body)
	}

	if _, err := runs.SetStatus("dup-1", models.RunStatusCompleted, ""); err != nil {
		t.Fatalf("SetStatus error: %v", err)
	}
	code, body = postJSON(t, h, "/api/v1/runs/dup-1:start", nil)
	if code != http.StatusConflict {
		t.Fatalf("expected status 409 starting a terminal run, got %d: %v", code, body)
	}

	code, _ = getJSON(t, h, "/healthz")
	if code != http.StatusOK {
		t.Fatalf("expected status 200 from healthz, got %d", code)
	}
}
