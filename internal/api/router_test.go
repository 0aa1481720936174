package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"MarketPulse/internal/ingest"
	"MarketPulse/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type fakeIngestor struct {
	params []ingest.Params
	last   *model.Report
	err    error
}

func (f *fakeIngestor) RunNow(_ context.Context, p ingest.Params) (*model.Report, error) {
	f.params = append(f.params, p)
	if f.err != nil {
		return nil, f.err
	}
	f.last = &model.Report{OK: true, RunID: "r1", Interval: p.Interval, Symbols: []string{"BTC"}}
	return f.last, nil
}

func (f *fakeIngestor) LastReport() *model.Report { return f.last }

func init() { gin.SetMode(gin.TestMode) }

func serve(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestIngest(t *testing.T) {
	ing := &fakeIngestor{}
	engine := NewRouter(ing, nil).Engine()

	w := serve(t, engine, http.MethodGet, "/api/ingest?interval=1h&n=120&limit=5")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var report model.Report
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !report.OK || report.Interval != "1h" {
		t.Errorf("unexpected report: %+v", report)
	}
	if got := ing.params[0]; got != (ingest.Params{Interval: "1h", Count: 120, Limit: 5}) {
		t.Errorf("unexpected params: %+v", got)
	}
}

func TestIngestBadParams(t *testing.T) {
	ing := &fakeIngestor{}
	engine := NewRouter(ing, nil).Engine()
	for _, target := range []string{"/api/ingest?n=abc", "/api/ingest?limit=-1"} {
		if w := serve(t, engine, http.MethodGet, target); w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, w.Code)
		}
	}
	if len(ing.params) != 0 {
		t.Errorf("expected no runs, got %d", len(ing.params))
	}
}

func TestIngestFatal(t *testing.T) {
	ing := &fakeIngestor{err: fmt.Errorf("%w: no destination configured", ingest.ErrRunFatal)}
	w := serve(t, NewRouter(ing, nil).Engine(), http.MethodPost, "/api/ingest")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	var body map[string]any
	json.Unmarshal(w.Body.Bytes(), &body)
	if body["ok"] != false || !strings.Contains(body["error"].(string), "no destination") {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestReport(t *testing.T) {
	ing := &fakeIngestor{}
	engine := NewRouter(ing, nil).Engine()
	if w := serve(t, engine, http.MethodGet, "/api/report"); w.Code != http.StatusNotFound {
		t.Errorf("status = %d before any run, want 404", w.Code)
	}
	ing.RunNow(context.Background(), ingest.Params{Interval: "4h"})
	w := serve(t, engine, http.MethodGet, "/api/report")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"runId":"r1"`) {
		t.Errorf("unexpected response %d: %s", w.Code, w.Body.String())
	}
}

func TestHealthAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "pulse_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	engine := NewRouter(&fakeIngestor{}, promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Engine()
	if w := serve(t, engine, http.MethodGet, "/healthz"); w.Code != http.StatusOK {
		t.Errorf("healthz status = %d", w.Code)
	}
	w := serve(t, engine, http.MethodGet, "/metrics")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "pulse_test_total 1") {
		t.Errorf("unexpected metrics response %d: %s", w.Code, w.Body.String())
	}
}
