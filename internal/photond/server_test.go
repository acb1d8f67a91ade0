package photond

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lumen-phi/photonic-core/pkg/models"
)

func newTestServer() (*HTTPServer, *RunStore) {
	runs := NewRunStore()
	return NewHTTPServer(runs, NewRunExecutor(runs)), runs
}

func postJSON(t *testing.T, srv *HTTPServer, path string, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	srv.Handler().ServeHTTP(rr, req)
	return rr
}

func getPath(srv *HTTPServer, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	srv.Handler().ServeHTTP(rr, req)
	return rr
}

func TestHTTPServerHealthz(t *testing.T) {
	srv, _ := newTestServer()
	rr := getPath(srv, "/healthz")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("expected status ok, got %v", body["status"])
	}
	if body["timestamp"] == "" {
		t.Fatalf("expected timestamp to be set")
	}
}

func TestHTTPServerCreateRun(t *testing.T) {
	srv, _ := newTestServer()
	rr := postJSON(t, srv, "/api/v1/runs", map[string]any{
		"kind":      "generate",
		"chip_yaml": testChipYAML,
	})

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	run, ok := resp["run"].(map[string]any)
	if !ok {
		t.Fatalf("expected run in response")
	}
	if run["id"] == "" {
		t.Fatalf("expected run id to be set")
	}
	if run["status"] != "pending" {
		t.Fatalf("expected pending status, got %v", run["status"])
	}
	if run["kind"] != "generate" {
		t.Fatalf("expected generate kind, got %v", run["kind"])
	}
}

func TestHTTPServerCreateRunUnknownKind(t *testing.T) {
	srv, _ := newTestServer()
	rr := postJSON(t, srv, "/api/v1/runs", map[string]any{
		"kind": "warp",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestHTTPServerCreateRunMissingKind(t *testing.T) {
	srv, _ := newTestServer()
	rr := postJSON(t, srv, "/api/v1/runs", map[string]any{
		"chip_yaml": testChipYAML,
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestHTTPServerCreateRunDuplicate(t *testing.T) {
	srv, _ := newTestServer()
	body := map[string]any{
		"run_id":    "run-1",
		"kind":      "generate",
		"chip_yaml": testChipYAML,
	}
	if rr := postJSON(t, srv, "/api/v1/runs", body); rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rr.Code)
	}
	if rr := postJSON(t, srv, "/api/v1/runs", body); rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}
}

func TestHTTPServerGetRun(t *testing.T) {
	srv, runs := newTestServer()
	if _, err := runs.Create("test-run", models.RunKindSimulate, &RunInput{
		ChipYAML:     testChipYAML,
		ScenarioYAML: testScenarioYAML,
	}); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	rr := getPath(srv, "/api/v1/runs/test-run")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	run, ok := resp["run"].(map[string]any)
	if !ok {
		t.Fatalf("expected run in response")
	}
	if run["id"] != "test-run" {
		t.Fatalf("expected run id test-run, got %v", run["id"])
	}
}

func TestHTTPServerGetRunNotFound(t *testing.T) {
	srv, _ := newTestServer()
	rr := getPath(srv, "/api/v1/runs/nonexistent")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestHTTPServerListRuns(t *testing.T) {
	srv, runs := newTestServer()
	for _, id := range []string{"run-a", "run-b", "run-c"} {
		if _, err := runs.Create(id, models.RunKindGenerate, &RunInput{ChipYAML: testChipYAML}); err != nil {
			t.Fatalf("Create error: %v", err)
		}
	}
	if _, err := runs.SetStatus("run-b", models.RunStatusRunning, ""); err != nil {
		t.Fatalf("SetStatus error: %v", err)
	}

	rr := getPath(srv, "/api/v1/runs?limit=2")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp struct {
		Runs       []*models.Run  `json:"runs"`
		Pagination map[string]any `json:"pagination"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp.Runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(resp.Runs))
	}
	if resp.Pagination["limit"].(float64) != 2 {
		t.Errorf("expected pagination limit 2, got %v", resp.Pagination["limit"])
	}
	if resp.Pagination["count"].(float64) != 2 {
		t.Errorf("expected pagination count 2, got %v", resp.Pagination["count"])
	}

	rr = getPath(srv, "/api/v1/runs?status=running")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp.Runs) != 1 {
		t.Fatalf("expected 1 running run, got %d", len(resp.Runs))
	}
	if resp.Runs[0].ID != "run-b" {
		t.Errorf("expected run-b, got %s", resp.Runs[0].ID)
	}
}

func TestHTTPServerStartRun(t *testing.T) {
	srv, runs := newTestServer()
	if _, err := runs.Create("run-1", models.RunKindGenerate, &RunInput{ChipYAML: testChipYAML}); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	rr := postJSON(t, srv, "/api/v1/runs/run-1:start", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	run, ok := resp["run"].(map[string]any)
	if !ok {
		t.Fatalf("expected run in response")
	}
	if run["status"] != "running" {
		t.Fatalf("expected running status, got %v", run["status"])
	}

	waitForTerminal(t, runs, "run-1")
}

func TestHTTPServerStartRunNotFound(t *testing.T) {
	srv, _ := newTestServer()
	rr := postJSON(t, srv, "/api/v1/runs/nope:start", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestHTTPServerStartRunTerminal(t *testing.T) {
	srv, runs := newTestServer()
	if _, err := runs.Create("run-1", models.RunKindGenerate, &RunInput{ChipYAML: testChipYAML}); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if _, err := runs.SetStatus("run-1", models.RunStatusCompleted, ""); err != nil {
		t.Fatalf("SetStatus error: %v", err)
	}

	rr := postJSON(t, srv, "/api/v1/runs/run-1:start", nil)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestHTTPServerStopRun(t *testing.T) {
	srv, runs := newTestServer()
	if _, err := runs.Create("run-1", models.RunKindOscillator, &RunInput{ScenarioYAML: longRunYAML}); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if _, err := srv.Executor.Start("run-1"); err != nil {
		t.Fatalf("Start error: %v", err)
	}

	rr := postJSON(t, srv, "/api/v1/runs/run-1:stop", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	run, ok := resp["run"].(map[string]any)
	if !ok {
		t.Fatalf("expected run in response")
	}
	if run["status"] != "cancelled" {
		t.Fatalf("expected cancelled status, got %v", run["status"])
	}
}

func TestHTTPServerStopRunNotFound(t *testing.T) {
	srv, _ := newTestServer()
	rr := postJSON(t, srv, "/api/v1/runs/nope:stop", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestHTTPServerReportLifecycle(t *testing.T) {
	srv, runs := newTestServer()
	if _, err := runs.Create("run-1", models.RunKindGenerate, &RunInput{ChipYAML: testChipYAML}); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	// No artifacts yet.
	if rr := getPath(srv, "/api/v1/runs/run-1/report"); rr.Code != http.StatusPreconditionFailed {
		t.Fatalf("expected status 412 before run, got %d", rr.Code)
	}

	if _, err := srv.Executor.Start("run-1"); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	waitForTerminal(t, runs, "run-1")

	rr := getPath(srv, "/api/v1/runs/run-1/report")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	layout, ok := resp["layout"].(map[string]any)
	if !ok {
		t.Fatalf("expected layout in report")
	}
	if layout["rings"].(float64) != 3 {
		t.Errorf("expected 3 rings, got %v", layout["rings"])
	}
	if _, ok := resp["run"]; !ok {
		t.Errorf("expected run in report")
	}
}

func TestHTTPServerMaskDownload(t *testing.T) {
	srv, runs := newTestServer()
	if _, err := runs.Create("run-1", models.RunKindGenerate, &RunInput{ChipYAML: testChipYAML}); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	if rr := getPath(srv, "/api/v1/runs/run-1/mask"); rr.Code != http.StatusPreconditionFailed {
		t.Fatalf("expected status 412 before run, got %d", rr.Code)
	}

	if _, err := srv.Executor.Start("run-1"); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	rec := waitForTerminal(t, runs, "run-1")

	rr := getPath(srv, "/api/v1/runs/run-1/mask")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/octet-stream" {
		t.Errorf("expected octet-stream content type, got %q", ct)
	}
	if !bytes.Equal(rr.Body.Bytes(), rec.Artifacts.Mask) {
		t.Errorf("expected mask bytes to match stored artifact")
	}
}

func TestHTTPServerTraceStream(t *testing.T) {
	srv, runs := newTestServer()
	if _, err := runs.Create("run-1", models.RunKindOscillator, &RunInput{ScenarioYAML: testOscillatorYAML}); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if _, err := srv.Executor.Start("run-1"); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	rec := waitForTerminal(t, runs, "run-1")
	if rec.Run.Status != models.RunStatusCompleted {
		t.Fatalf("expected completed, got %v (error: %s)", rec.Run.Status, rec.Run.Error)
	}

	// The run is terminal, so the stream drains the whole trace on the
	// first tick and closes.
	rr := getPath(srv, "/api/v1/runs/run-1/trace/stream?interval_ms=10")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("expected event-stream content type, got %q", ct)
	}

	body := rr.Body.String()
	if !strings.Contains(body, "event: status_change") {
		t.Errorf("expected status_change event, got: %s", body)
	}
	if !strings.Contains(body, "event: complete") {
		t.Errorf("expected complete event, got: %s", body)
	}

	// Pull the coherence batch out of the stream and count its points.
	idx := strings.Index(body, "event: coherence\ndata: ")
	if idx < 0 {
		t.Fatalf("expected coherence event, got: %s", body)
	}
	payload := body[idx+len("event: coherence\ndata: "):]
	payload = payload[:strings.Index(payload, "\n")]
	var batch struct {
		Points []struct {
			Step  int64   `json:"step"`
			Value float64 `json:"value"`
		} `json:"points"`
	}
	if err := json.Unmarshal([]byte(payload), &batch); err != nil {
		t.Fatalf("invalid coherence payload: %v", err)
	}
	if want := rec.Artifacts.Trace.Steps + 1; len(batch.Points) != want {
		t.Errorf("expected %d coherence points, got %d", want, len(batch.Points))
	}
	if len(batch.Points) > 0 && batch.Points[0].Step != 0 {
		t.Errorf("expected first point at step 0, got %d", batch.Points[0].Step)
	}
}

func TestHTTPServerTraceStreamNotFound(t *testing.T) {
	srv, _ := newTestServer()
	rr := getPath(srv, "/api/v1/runs/nope/trace/stream")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestHTTPServerMethodNotAllowed(t *testing.T) {
	srv, runs := newTestServer()
	if _, err := runs.Create("run-1", models.RunKindGenerate, &RunInput{ChipYAML: testChipYAML}); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/runs", nil)
	srv.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPut, "/api/v1/runs/run-1", nil)
	srv.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", rr.Code)
	}
}
