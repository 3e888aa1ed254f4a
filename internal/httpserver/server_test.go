package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/ccollicutt/logdoctor/pkg/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const sessionLog = "2024-01-01 08:00:00 [INFO] x.cpp:1 START_TRACKING\n" +
	"2024-01-01 12:00:00 [INFO] x.cpp:2 STOP_TRACKING [SHUTDOWN]"

func newTestServer(t *testing.T, mutate func(*config.Config)) http.Handler {
	t.Helper()
	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	return NewServer(cfg, nil).Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("response is not JSON: %v\n%s", err, w.Body.String())
	}
	return out
}

func TestHandleHealth(t *testing.T) {
	w := do(t, newTestServer(t, nil), http.MethodGet, "/api/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	resp := decode(t, w)
	if resp["status"] != "ok" {
		t.Errorf("expected status ok, got %v", resp["status"])
	}
	if _, ok := resp["uptime"]; !ok {
		t.Error("missing uptime")
	}
}

func TestHandleAnalyze_Text(t *testing.T) {
	body, _ := json.Marshal(map[string]any{"text": sessionLog})
	w := do(t, newTestServer(t, nil), http.MethodPost, "/api/analyze", string(body))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := decode(t, w)
	summary, ok := resp["summary"].(map[string]any)
	if !ok {
		t.Fatalf("missing summary: %v", resp)
	}
	if summary["sessions"] != float64(1) || summary["trackedSeconds"] != float64(4*3600) {
		t.Errorf("summary = %v", summary)
	}
	if resp["id"] == "" {
		t.Error("missing report id")
	}
	meta := resp["metadata"].(map[string]any)
	if sources := meta["sources"].([]any); len(sources) != 1 || sources[0] != "request" {
		t.Errorf("sources = %v", sources)
	}
}

func TestHandleAnalyze_FilesAndOptions(t *testing.T) {
	body := `{
		"files": [
			{"name": "day2.log", "content": "2024-01-02 08:00:00 [INFO] x.cpp:1 START_TRACKING\n2024-01-02 09:00:00 [INFO] x.cpp:2 STOP_TRACKING [SHUTDOWN]"},
			{"name": "day1.log", "content": "2024-01-01 08:00:00 [INFO] x.cpp:1 START_TRACKING\n2024-01-01 10:00:00 [INFO] x.cpp:2 STOP_TRACKING [SHUTDOWN]"}
		],
		"options": {"from": "2024-01-02", "noise_filter": false, "timezone_offset": "+02:00"}
	}`
	w := do(t, newTestServer(t, nil), http.MethodPost, "/api/analyze", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := decode(t, w)
	summary := resp["summary"].(map[string]any)
	if summary["sessions"] != float64(1) || summary["trackedSeconds"] != float64(3600) {
		t.Errorf("summary = %v", summary)
	}
	meta := resp["metadata"].(map[string]any)
	if meta["timezoneOffset"] != "+02:00" {
		t.Errorf("timezoneOffset = %v", meta["timezoneOffset"])
	}
	result := resp["result"].(map[string]any)
	if files := result["files"].([]any); len(files) != 2 || files[0] != "day1.log" {
		t.Errorf("result files = %v", files)
	}
}

func TestHandleAnalyze_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"text": `},
		{"not an object", `["a"]`},
		{"missing input", `{"options": {}}`},
		{"text not string", `{"text": 42}`},
		{"files not array", `{"files": "a.log"}`},
		{"empty files", `{"files": []}`},
		{"file without content", `{"files": [{"name": "a.log"}]}`},
		{"bad option type", `{"text": "x", "options": {"include_debug": "yes"}}`},
		{"bad date", `{"text": "x", "options": {"from": "Jan 1"}}`},
		{"bad timezone", `{"text": "x", "options": {"timezone_offset": "later"}}`},
	}
	h := newTestServer(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/api/analyze", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
			if resp := decode(t, w); resp["code"] != "invalid_input" {
				t.Errorf("code = %v", resp["code"])
			}
		})
	}
}

func TestHandleAnalyze_BodyTooLarge(t *testing.T) {
	h := newTestServer(t, func(c *config.Config) { c.Server.MaxBodyBytes = 64 })
	body, _ := json.Marshal(map[string]any{"text": sessionLog})

	w := do(t, h, http.MethodPost, "/api/analyze", string(body))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d: %s", w.Code, w.Body.String())
	}
}

func TestHandleAnalyze_InputTooLarge(t *testing.T) {
	h := newTestServer(t, func(c *config.Config) { c.Analysis.MaxInputBytes = 16 })
	body, _ := json.Marshal(map[string]any{"text": sessionLog})

	w := do(t, h, http.MethodPost, "/api/analyze", string(body))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d: %s", w.Code, w.Body.String())
	}
	if resp := decode(t, w); resp["code"] != "input_too_large" {
		t.Errorf("code = %v", resp["code"])
	}
}

func TestHandleExplain(t *testing.T) {
	h := newTestServer(t, nil)

	w := do(t, h, http.MethodPost, "/api/explain", `{"line": "2024-01-15 10:30:00 [ERROR] app.cpp:12 main_watchdog hit"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	if resp["severity"] != "critical" || resp["text"] != "The app froze or became unresponsive" {
		t.Errorf("explanation = %v", resp)
	}

	if w := do(t, h, http.MethodPost, "/api/explain", `{"line": "heartbeat ok"}`); w.Code != http.StatusNotFound {
		t.Errorf("unknown line: expected 404, got %d", w.Code)
	}
	if w := do(t, h, http.MethodPost, "/api/explain", `{}`); w.Code != http.StatusBadRequest {
		t.Errorf("missing line: expected 400, got %d", w.Code)
	}
}

func TestHandleSearch(t *testing.T) {
	h := newTestServer(t, nil)
	body, _ := json.Marshal(map[string]string{"text": sessionLog, "term": "stop_tracking"})

	w := do(t, h, http.MethodPost, "/api/search", string(body))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	if resp["count"] != float64(1) {
		t.Errorf("count = %v", resp["count"])
	}
	matches := resp["matches"].([]any)
	first := matches[0].(map[string]any)
	if first["lineNum"] != float64(2) || !strings.Contains(first["line"].(string), "STOP_TRACKING") {
		t.Errorf("match = %v", first)
	}

	if w := do(t, h, http.MethodPost, "/api/search", `{"text": "x"}`); w.Code != http.StatusBadRequest {
		t.Errorf("missing term: expected 400, got %d", w.Code)
	}
}

func TestServer_StartStop(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.Addr = "127.0.0.1:0"
	s := NewServer(cfg, nil)
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	resp, err := http.Get("http://" + s.Addr() + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health: %v", err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(buf.String(), `"status":"ok"`) {
		t.Errorf("health = %d %s", resp.StatusCode, buf.String())
	}
}
