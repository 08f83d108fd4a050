package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/diagenlab/diagen/internal/engine"
	"github.com/diagenlab/diagen/internal/model"
	"github.com/diagenlab/diagen/internal/store"
)

// fakeGenerator returns a canned result or error.
type fakeGenerator struct {
	result     *model.PipelineResult
	err        error
	lastReq    engine.GenerateRequest
	calls      int
	onGenerate func()
}

func (g *fakeGenerator) Generate(_ context.Context, req engine.GenerateRequest) (*model.PipelineResult, error) {
	g.calls++
	g.lastReq = req
	if g.onGenerate != nil {
		g.onGenerate()
	}
	if g.err != nil {
		return nil, g.err
	}
	return g.result, nil
}

func newTestServer(t *testing.T, g Generator) (*Server, *store.Store, string) {
	t.Helper()
	dir := t.TempDir()
	db, err := store.OpenSQLite(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	st, err := store.New(db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	outputDir := filepath.Join(dir, "output")
	return New(st, g, outputDir, ""), st, outputDir
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestImageModels(t *testing.T) {
	srv, _, _ := newTestServer(t, &fakeGenerator{})
	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/image-models", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var models []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &models); err != nil {
		t.Fatal(err)
	}
	if len(models) != 3 {
		t.Errorf("got %d models, want 3", len(models))
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestSlideFormats(t *testing.T) {
	srv, _, _ := newTestServer(t, &fakeGenerator{})
	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/slide-formats", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var formats []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &formats); err != nil {
		t.Fatal(err)
	}
	if len(formats) != 3 {
		t.Errorf("got %d formats, want 3", len(formats))
	}
}

// writeRunMetadata drops a run_metadata.json into dir so the handler can
// pull the category into the run history.
func writeRunMetadata(t *testing.T, dir, category string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	raw, err := json.Marshal(model.RunMetadata{Category: category})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "run_metadata.json"), raw, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestGenerate_Success(t *testing.T) {
	gen := &fakeGenerator{}
	srv, st, outputDir := newTestServer(t, gen)
	runDir := filepath.Join(outputDir, "run1")
	writeRunMetadata(t, runDir, "pipeline")
	gen.result = &model.PipelineResult{
		ImagePath:   filepath.Join(runDir, "final.png"),
		RoundsTaken: 2,
		Approved:    true,
		RunDir:      runDir,
	}

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/generate",
		`{"brief": "supply chain flow", "max_rounds": 2}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["image_url"] != "/output/run1/final.png" {
		t.Errorf("image_url = %v", body["image_url"])
	}
	if body["rounds_taken"] != float64(2) || body["approved"] != true {
		t.Errorf("body = %v", body)
	}
	if gen.lastReq.Brief != "supply chain flow" || gen.lastReq.MaxRounds != 2 {
		t.Errorf("generator request = %+v", gen.lastReq)
	}

	// The run record is completed in the store.
	runID, _ := body["run_id"].(string)
	run, err := st.GetRun(context.Background(), runID)
	if err != nil || run == nil {
		t.Fatalf("run record missing: %v", err)
	}
	if run.Status != model.StatusDone {
		t.Errorf("run status = %q", run.Status)
	}
	if run.Category == nil || *run.Category != "pipeline" {
		t.Errorf("run category = %v, want pipeline", run.Category)
	}
}

func TestGenerate_BookkeepingSurvivesClientDisconnect(t *testing.T) {
	gen := &fakeGenerator{}
	srv, st, outputDir := newTestServer(t, gen)
	runDir := filepath.Join(outputDir, "run1")
	gen.result = &model.PipelineResult{
		ImagePath: filepath.Join(runDir, "final.png"),
		Approved:  true,
		RunDir:    runDir,
	}

	// The client goes away while the pipeline is still running.
	ctx, cancel := context.WithCancel(context.Background())
	gen.onGenerate = cancel

	req := httptest.NewRequest(http.MethodPost, "/api/generate",
		strings.NewReader(`{"brief": "a funnel"}`)).WithContext(ctx)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	runs, err := st.ListRuns(context.Background(), model.RunFilter{})
	if err != nil || len(runs) != 1 {
		t.Fatalf("runs = %d (%v)", len(runs), err)
	}
	if runs[0].Status != model.StatusDone {
		t.Errorf("run status = %q, want DONE despite disconnect", runs[0].Status)
	}
}

func TestGenerate_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"empty brief", `{"brief": ""}`, "Brief is required."},
		{"whitespace brief", `{"brief": "   "}`, "Brief is required."},
		{"unknown model", `{"brief": "x", "image_model": "foo-model-9"}`, "Unknown image model"},
		{"unknown slide format", `{"brief": "x", "slide_format": "a0_poster"}`, "Unknown slide format"},
		{"invalid json", `{not json`, "invalid JSON body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{}
			srv, _, _ := newTestServer(t, gen)

			rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/generate", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			body := decodeBody(t, rec)
			msg, _ := body["error"].(string)
			if !strings.Contains(msg, tt.want) {
				t.Errorf("error = %q, want containing %q", msg, tt.want)
			}
			if gen.calls != 0 {
				t.Error("pipeline must not run for invalid input")
			}
		})
	}
}

func TestGenerate_PipelineFailure(t *testing.T) {
	gen := &fakeGenerator{err: &engine.StepError{Step: "planner", Err: errors.New("model unreachable")}}
	srv, st, _ := newTestServer(t, gen)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/generate", `{"brief": "a funnel"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	body := decodeBody(t, rec)
	msg, _ := body["error"].(string)
	if strings.Contains(msg, "model unreachable") {
		t.Error("internal error details must not leak to clients")
	}

	// The run record is marked FAILED with step info.
	runs, err := st.ListRuns(context.Background(), model.RunFilter{Status: []string{model.StatusFailed}})
	if err != nil || len(runs) != 1 {
		t.Fatalf("failed runs = %d (%v)", len(runs), err)
	}
	if runs[0].ErrorInfo == nil || !strings.Contains(*runs[0].ErrorInfo, "planner") {
		t.Errorf("error_info = %v", runs[0].ErrorInfo)
	}
}

func TestEnqueueRun(t *testing.T) {
	gen := &fakeGenerator{}
	srv, st, _ := newTestServer(t, gen)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/runs",
		`{"brief": "a comparison of three plans", "slide_format": "widescreen_16_9"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["status"] != model.StatusQueued {
		t.Errorf("status field = %v", body["status"])
	}
	if gen.calls != 0 {
		t.Error("enqueue must not run the pipeline synchronously")
	}

	id, _ := body["id"].(string)
	run, err := st.GetRun(context.Background(), id)
	if err != nil || run == nil {
		t.Fatalf("queued run missing: %v", err)
	}
	if run.SlideFormat != "widescreen_16_9" || run.Status != model.StatusQueued {
		t.Errorf("run = %+v", run)
	}
}

func TestListRuns_StatusFilter(t *testing.T) {
	srv, st, _ := newTestServer(t, &fakeGenerator{})
	ctx := context.Background()

	q := model.NewRun("q1", "queued brief", "original", "", 3)
	d := model.NewRun("d1", "done brief", "original", "", 3)
	for _, r := range []model.Run{q, d} {
		if err := st.CreateRun(ctx, r); err != nil {
			t.Fatal(err)
		}
	}
	if err := st.CompleteRun(ctx, "d1", store.RunCompletion{}); err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/runs?status=DONE", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var runs []model.Run
	if err := json.Unmarshal(rec.Body.Bytes(), &runs); err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].ID != "d1" {
		t.Errorf("runs = %+v", runs)
	}
}

func TestGetRun(t *testing.T) {
	srv, st, outputDir := newTestServer(t, &fakeGenerator{})
	ctx := context.Background()

	run := model.NewRun("r1", "brief", "original", "", 3)
	if err := st.CreateRun(ctx, run); err != nil {
		t.Fatal(err)
	}
	if err := st.CompleteRun(ctx, "r1", store.RunCompletion{
		ImagePath: filepath.Join(outputDir, "run1", "final.png"),
	}); err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/runs/r1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["image_url"] != "/output/run1/final.png" {
		t.Errorf("image_url = %v", body["image_url"])
	}

	rec = doJSON(t, srv.Handler(), http.MethodGet, "/api/runs/ghost", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing run status = %d, want 404", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv, _, _ := newTestServer(t, &fakeGenerator{})

	req := httptest.NewRequest(http.MethodOptions, "/api/generate", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("allow-origin = %q", got)
	}
}
