package http

import (
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go-ndr-export-dashboard/internal/config"
	emrstore "go-ndr-export-dashboard/internal/connectors/emr"
	"go-ndr-export-dashboard/internal/dashboard"
)

func newIdleDashboard() *dashboard.Dashboard {
	client := emrstore.NewClient("", time.Second)
	return dashboard.New(client, 10*time.Second, "1990-01-01", "")
}

func TestDashboardStateHandler_ReturnsSnapshot(t *testing.T) {
	h := dashboardStateHandler(newIdleDashboard())

	req := httptest.NewRequest(nethttp.MethodGet, "/api/v1/dashboard", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != nethttp.StatusOK {
		t.Fatalf("expected status %d, got %d", nethttp.StatusOK, rr.Code)
	}

	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	data, ok := payload["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object, got %v", payload)
	}
	if data["format"] != "xml" {
		t.Fatalf("expected default xml format, got %v", data["format"])
	}
}

func TestDashboardStateHandler_RejectsPost(t *testing.T) {
	h := dashboardStateHandler(newIdleDashboard())

	req := httptest.NewRequest(nethttp.MethodPost, "/api/v1/dashboard", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != nethttp.StatusMethodNotAllowed {
		t.Fatalf("expected status %d, got %d", nethttp.StatusMethodNotAllowed, rr.Code)
	}
}

func TestFileActionRouter_InvalidIDReturnsBadRequest(t *testing.T) {
	h := fileActionRouter(newIdleDashboard(), emrstore.NewClient("", time.Second))

	req := httptest.NewRequest(nethttp.MethodPost, "/api/v1/files/abc/delete", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != nethttp.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", nethttp.StatusBadRequest, rr.Code)
	}
}

func TestFileActionRouter_UnknownActionReturnsNotFound(t *testing.T) {
	h := fileActionRouter(newIdleDashboard(), emrstore.NewClient("", time.Second))

	req := httptest.NewRequest(nethttp.MethodGet, "/api/v1/files/3/unknown", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != nethttp.StatusNotFound {
		t.Fatalf("expected status %d, got %d", nethttp.StatusNotFound, rr.Code)
	}
}

func TestFileActionRouter_LifecycleRejectsGet(t *testing.T) {
	h := fileActionRouter(newIdleDashboard(), emrstore.NewClient("", time.Second))

	req := httptest.NewRequest(nethttp.MethodGet, "/api/v1/files/3/pause", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != nethttp.StatusMethodNotAllowed {
		t.Fatalf("expected status %d, got %d", nethttp.StatusMethodNotAllowed, rr.Code)
	}
}

func TestFileActionRouter_BatchesForUnknownFileIsEmpty(t *testing.T) {
	h := fileActionRouter(newIdleDashboard(), emrstore.NewClient("", time.Second))

	req := httptest.NewRequest(nethttp.MethodGet, "/api/v1/files/3/batches", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != nethttp.StatusOK {
		t.Fatalf("expected status %d, got %d", nethttp.StatusOK, rr.Code)
	}

	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	meta := payload["meta"].(map[string]any)
	if meta["count"].(float64) != 0 {
		t.Fatalf("expected empty batch list, got %v", payload)
	}
}

func TestExportHandler_InvalidBody(t *testing.T) {
	h := exportHandler(newIdleDashboard())

	req := httptest.NewRequest(nethttp.MethodPost, "/api/v1/export", strings.NewReader("{"))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != nethttp.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", nethttp.StatusBadRequest, rr.Code)
	}
}

func TestFormatHandler_XMLSelection(t *testing.T) {
	h := formatHandler(newIdleDashboard())

	req := httptest.NewRequest(nethttp.MethodPost, "/api/v1/format", strings.NewReader(`{"format":"xml"}`))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != nethttp.StatusOK {
		t.Fatalf("expected status %d, got %d", nethttp.StatusOK, rr.Code)
	}

	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	data := payload["data"].(map[string]any)
	if data["format"] != "xml" || data["authRequired"] == true {
		t.Fatalf("unexpected decision: %v", data)
	}
}

func TestPresetsHandler_StoreDisabled(t *testing.T) {
	h := presetsHandler(nil)

	req := httptest.NewRequest(nethttp.MethodGet, "/api/v1/presets", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != nethttp.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", nethttp.StatusServiceUnavailable, rr.Code)
	}
}

func TestPresetDetailHandler_InvalidID(t *testing.T) {
	h := presetDetailHandler(nil)

	req := httptest.NewRequest(nethttp.MethodGet, "/api/v1/presets/abc", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != nethttp.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", nethttp.StatusServiceUnavailable, rr.Code)
	}
}

func TestExportDefaultsHandler(t *testing.T) {
	cfg := config.Config{DefaultFromDate: "1990-01-01", PollInterval: 10 * time.Second, EMRBaseURL: "http://127.0.0.1:8081"}
	h := exportDefaultsHandler(cfg)

	req := httptest.NewRequest(nethttp.MethodGet, "/api/v1/settings/export-defaults", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != nethttp.StatusOK {
		t.Fatalf("expected status %d, got %d", nethttp.StatusOK, rr.Code)
	}

	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	data := payload["data"].(map[string]any)
	if data["default_from_date"] != "1990-01-01" {
		t.Fatalf("unexpected defaults: %v", data)
	}
}

func TestServicesStatusHandler_AllDisabled(t *testing.T) {
	h := servicesStatusHandler(nil, nil, nil)

	req := httptest.NewRequest(nethttp.MethodGet, "/api/v1/status/services", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != nethttp.StatusOK {
		t.Fatalf("expected status %d, got %d", nethttp.StatusOK, rr.Code)
	}

	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	services := payload["services"].(map[string]any)
	for _, name := range []string{"openmrs_db", "emr_backend", "ndr_service"} {
		svc, ok := services[name].(map[string]any)
		if !ok || svc["enabled"] != false {
			t.Fatalf("expected %s disabled, got %v", name, services[name])
		}
	}
}

func TestNormalizeMetricPath(t *testing.T) {
	cases := map[string]string{
		"/":                        "/",
		"/metrics":                 "/metrics",
		"/api/v1/files/12/delete":  "/api/v1/files/{id}/delete",
		"/api/v1/files/12/batches": "/api/v1/files/{id}/batches",
		"/api/v1/presets/9":        "/api/v1/presets/{id}",
		"/api/v1/export":           "/api/v1/export",
	}
	for in, want := range cases {
		if got := normalizeMetricPath(in); got != want {
			t.Fatalf("normalizeMetricPath(%q) = %q, want %q", in, got, want)
		}
	}
}
