package parking

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
)

func newTestRouter(t *testing.T, ms *memStore) *mux.Router {
	t.Helper()
	svc := newTestService(ms)
	h := NewHandler(svc, nil, nil, nil, t.TempDir(), nil)
	r := mux.NewRouter()
	if err := h.Register(r); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return r
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var env envelope
	if rec.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode envelope: %v (body %s)", err, rec.Body.String())
		}
	}
	return rec, env
}

func TestProcessAndExitOverHTTP(t *testing.T) {
	ms := newMemStore(FloorCount, SlotsPerFloor)
	r := newTestRouter(t, ms)

	rec, env := doJSON(t, r, http.MethodPost, "/api/process", map[string]interface{}{
		"brand": "toyota",
		"texts": []map[string]interface{}{
			{"text": "30A 12345", "confidence": 0.93},
			{"text": "COROLA", "confidence": 0.81},
		},
	})
	if rec.Code != http.StatusOK || !env.Success {
		t.Fatalf("process: code = %d, body = %s", rec.Code, rec.Body.String())
	}

	var data struct {
		Vehicle      Vehicle `json:"vehicle"`
		MatchedModel string  `json:"matched_model"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.Vehicle.AssignedSlot != "II.A" || data.MatchedModel != "COROLLA" {
		t.Fatalf("unexpected process result: %+v", data)
	}

	rec, env = doJSON(t, r, http.MethodPost, "/api/exit", map[string]string{
		"license_plate": "30A12345",
	})
	if rec.Code != http.StatusOK || !env.Success {
		t.Fatalf("exit: code = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ms.occupiedCount() != 0 {
		t.Fatalf("occupied = %d after exit, want 0", ms.occupiedCount())
	}

	rec, env = doJSON(t, r, http.MethodPost, "/api/exit", map[string]string{
		"license_plate": "30A12345",
	})
	if rec.Code != http.StatusNotFound || env.Error.Code != "vehicle_not_found" {
		t.Fatalf("second exit: code = %d, error = %+v", rec.Code, env.Error)
	}
}

func TestProcessRejectsInvalidPayload(t *testing.T) {
	r := newTestRouter(t, newMemStore(FloorCount, SlotsPerFloor))

	req := httptest.NewRequest(http.MethodPost, "/api/process", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400", rec.Code)
	}

	rec2, env := doJSON(t, r, http.MethodPost, "/api/process", map[string]interface{}{
		"brand": "toyota",
		"texts": []map[string]interface{}{{"confidence": 0.5}}, // 缺 text
	})
	if rec2.Code != http.StatusBadRequest || env.Error.Code != "invalid_payload" {
		t.Fatalf("code = %d, error = %+v", rec2.Code, env.Error)
	}
}

func TestProcessParkingFullReturnsConflict(t *testing.T) {
	ms := newMemStore(1, 1)
	r := newTestRouter(t, ms)

	body := map[string]interface{}{"brand": "honda",
		"texts": []map[string]interface{}{{"text": "CIVIC", "confidence": 0.9}}}

	if rec, _ := doJSON(t, r, http.MethodPost, "/api/process", body); rec.Code != http.StatusOK {
		t.Fatalf("first process: code = %d", rec.Code)
	}
	rec, env := doJSON(t, r, http.MethodPost, "/api/process", body)
	if rec.Code != http.StatusConflict || env.Error.Code != "parking_full" {
		t.Fatalf("code = %d, error = %+v", rec.Code, env.Error)
	}
}

func TestVehicleLookupAndDelete(t *testing.T) {
	ms := newMemStore(FloorCount, SlotsPerFloor)
	r := newTestRouter(t, ms)

	_, env := doJSON(t, r, http.MethodPost, "/api/process", map[string]interface{}{
		"brand": "honda",
		"texts": []map[string]interface{}{{"text": "CIVIC", "confidence": 0.9}},
	})
	var data struct {
		Vehicle Vehicle `json:"vehicle"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}

	rec, _ := doJSON(t, r, http.MethodGet, "/api/vehicle/1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get vehicle: code = %d", rec.Code)
	}

	rec, _ = doJSON(t, r, http.MethodDelete, "/api/vehicle/1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete vehicle: code = %d", rec.Code)
	}
	if ms.occupiedCount() != 0 {
		t.Fatalf("occupied = %d after delete, want 0", ms.occupiedCount())
	}

	rec, env = doJSON(t, r, http.MethodGet, "/api/vehicle/1", nil)
	if rec.Code != http.StatusNotFound || env.Error.Code != "vehicle_not_found" {
		t.Fatalf("get deleted: code = %d, error = %+v", rec.Code, env.Error)
	}
}

func TestClearHistoryUsesDeleteMethod(t *testing.T) {
	ms := newMemStore(FloorCount, SlotsPerFloor)
	r := newTestRouter(t, ms)

	doJSON(t, r, http.MethodPost, "/api/process", map[string]interface{}{
		"brand": "toyota",
		"texts": []map[string]interface{}{{"text": "30A 33333", "confidence": 0.9}, {"text": "CAMRY", "confidence": 0.9}},
	})
	doJSON(t, r, http.MethodPost, "/api/exit", map[string]string{"license_plate": "30A33333"})

	rec, env := doJSON(t, r, http.MethodDelete, "/api/clear-history", nil)
	if rec.Code != http.StatusOK || !env.Success {
		t.Fatalf("DELETE clear-history: code = %d, body = %s", rec.Code, rec.Body.String())
	}
	if rec2, _ := doJSON(t, r, http.MethodPost, "/api/clear-history", nil); rec2.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST clear-history: code = %d, want 405", rec2.Code)
	}

	vehicles, err := ms.ListRecent(nil, 10)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if len(vehicles) != 0 {
		t.Fatalf("exited rows survived clear-history: %d", len(vehicles))
	}
}

func TestRecentRejectsBadLimit(t *testing.T) {
	r := newTestRouter(t, newMemStore(FloorCount, SlotsPerFloor))
	rec, env := doJSON(t, r, http.MethodGet, "/api/recent?limit=abc", nil)
	if rec.Code != http.StatusBadRequest || env.Error.Code != "invalid_payload" {
		t.Fatalf("code = %d, error = %+v", rec.Code, env.Error)
	}
}

func TestExportFormats(t *testing.T) {
	ms := newMemStore(FloorCount, SlotsPerFloor)
	r := newTestRouter(t, ms)

	doJSON(t, r, http.MethodPost, "/api/process", map[string]interface{}{
		"brand": "honda",
		"texts": []map[string]interface{}{{"text": "CIVIC", "confidence": 0.9}},
	})

	rec, env := doJSON(t, r, http.MethodGet, "/api/export-data", nil)
	if rec.Code != http.StatusOK || !env.Success {
		t.Fatalf("json export: code = %d", rec.Code)
	}
	var snap Snapshot
	if err := json.Unmarshal(env.Data, &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.Summary.ParkedVehicles != 1 || snap.Summary.TotalSlots != int64(FloorCount*SlotsPerFloor) {
		t.Fatalf("summary = %+v", snap.Summary)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/export-data?format=xlsx", nil)
	xrec := httptest.NewRecorder()
	r.ServeHTTP(xrec, req)
	if xrec.Code != http.StatusOK {
		t.Fatalf("xlsx export: code = %d", xrec.Code)
	}
	if ct := xrec.Header().Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Fatalf("xlsx Content-Type = %q", ct)
	}
	if xrec.Body.Len() == 0 {
		t.Fatalf("xlsx export body is empty")
	}
}

func TestRateLimitedProcess(t *testing.T) {
	svc := newTestService(newMemStore(FloorCount, SlotsPerFloor))
	h := NewHandler(svc, nil, nil, denyAllLimiter{}, t.TempDir(), nil)
	r := mux.NewRouter()
	if err := h.Register(r); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	rec, env := doJSON(t, r, http.MethodPost, "/api/process", map[string]interface{}{"brand": "honda"})
	if rec.Code != http.StatusTooManyRequests || env.Error.Code != "rate_limited" {
		t.Fatalf("code = %d, error = %+v", rec.Code, env.Error)
	}
}

type denyAllLimiter struct{}

func (denyAllLimiter) Allow(ctx context.Context) bool { return false }
