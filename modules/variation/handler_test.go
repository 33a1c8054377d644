package variation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
)

func newTestRouter(env *testEnv) *mux.Router {
	r := mux.NewRouter()
	NewHandler(env.service).RegisterRoutes(r)
	return r
}

func TestHandleStartReturnsPlaceholdersImmediately(t *testing.T) {
	env := newTestEnv(true)
	router := newTestRouter(env)

	body, _ := json.Marshal(testRequest(4))
	req := httptest.NewRequest("POST", "/api/variations", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp StartResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if !resp.Success {
		t.Fatalf("response not successful: %s", resp.ErrorMessage)
	}
	if resp.Timestamp == 0 {
		t.Error("response missing batch timestamp")
	}
	if len(resp.Placeholders) != 4 {
		t.Fatalf("response has %d placeholders, want 4", len(resp.Placeholders))
	}
	for i, p := range resp.Placeholders {
		want := fmt.Sprintf("variation-%d-%d", resp.Timestamp, i)
		if p.ID != want {
			t.Errorf("placeholder %d id = %q, want %q", i, p.ID, want)
		}
	}
}

func TestHandleStartRejectsInvalidBody(t *testing.T) {
	env := newTestEnv(true)
	router := newTestRouter(env)

	req := httptest.NewRequest("POST", "/api/variations", bytes.NewReader([]byte("{broken")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp StartResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Success {
		t.Error("broken JSON should not succeed")
	}
}

func TestHandleStartRejectsMissingSource(t *testing.T) {
	env := newTestEnv(true)
	router := newTestRouter(env)

	req := httptest.NewRequest("POST", "/api/variations", bytes.NewReader([]byte(`{"count": 4}`)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp StartResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Success {
		t.Error("missing source should not succeed")
	}
}

func TestHandleBatchStatus(t *testing.T) {
	env := newTestEnv(true)
	router := newTestRouter(env)

	batch, err := env.service.StartBatch(context.Background(), testRequest(4))
	if err != nil {
		t.Fatalf("StartBatch error: %v", err)
	}

	req := httptest.NewRequest("GET", fmt.Sprintf("/api/variations/%d", batch.Timestamp), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp BatchStatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if !resp.Success {
		t.Fatalf("status request failed: %s", resp.ErrorMessage)
	}
	if len(resp.Placeholders) != 4 {
		t.Errorf("status has %d placeholders, want 4", len(resp.Placeholders))
	}
	if len(resp.Tasks) != 4 {
		t.Errorf("status has %d tasks, want 4", len(resp.Tasks))
	}
}

func TestHandleBatchStatusBadTimestamp(t *testing.T) {
	env := newTestEnv(true)
	router := newTestRouter(env)

	req := httptest.NewRequest("GET", "/api/variations/notanumber", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleResultAppliesOutcome(t *testing.T) {
	env := newTestEnv(true)
	router := newTestRouter(env)

	batch, err := env.service.StartBatch(context.Background(), testRequest(4))
	if err != nil {
		t.Fatalf("StartBatch error: %v", err)
	}

	body, _ := json.Marshal(ResultRequest{
		SlotID:   batch.SlotIDs[0],
		Success:  true,
		FinalSrc: "https://store.example.com/final.webp",
	})
	req := httptest.NewRequest("POST", "/api/variations/result", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp map[string]any
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if success, _ := resp["success"].(bool); !success {
		t.Fatalf("result callback failed: %v", resp)
	}

	p, _ := env.service.placeholders.Get(batch.SlotIDs[0])
	if p.IsLoading || p.FinalSrc != "https://store.example.com/final.webp" {
		t.Errorf("outcome not applied: %+v", p)
	}
}

func TestHandleResultRequiresSlotID(t *testing.T) {
	env := newTestEnv(true)
	router := newTestRouter(env)

	req := httptest.NewRequest("POST", "/api/variations/result", bytes.NewReader([]byte(`{"success": true}`)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp map[string]any
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if success, _ := resp["success"].(bool); success {
		t.Error("missing slotId should not succeed")
	}
}
