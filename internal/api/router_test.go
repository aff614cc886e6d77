package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"commitrogue/internal/content"
	"commitrogue/internal/db"
	"commitrogue/internal/history"
	mw "commitrogue/internal/middleware"
)

const testSecret = "router-test-secret"

func testServer(t *testing.T) *Server {
	t.Helper()
	reg, err := content.Load(content.LoadOptions{})
	if err != nil {
		t.Fatalf("load content: %v", err)
	}
	store, err := db.NewStore(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewServer(Options{
		Store:      store,
		Registry:   reg,
		AuthSecret: testSecret,
	})
}

func authed(t *testing.T, req *http.Request, userID string) *http.Request {
	t.Helper()
	token, err := mw.IssueToken(testSecret, userID, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func createRun(t *testing.T, s *Server, seed int64) (runID string, view map[string]any) {
	t.Helper()
	body, _ := json.Marshal(map[string]any{
		"seed":         seed,
		"character_id": "junior_dev",
		"records":      history.Synthetic(seed, 30),
	})
	req := httptest.NewRequest(http.MethodPost, "/api/runs", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create run: %d %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Success bool           `json:"success"`
		Data    map[string]any `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	id, _ := resp.Data["run_id"].(string)
	if id == "" {
		t.Fatalf("create response has no run_id: %s", rec.Body.String())
	}
	return id, resp.Data
}

func TestCreateRunReturnsRouteView(t *testing.T) {
	s := testServer(t)
	_, view := createRun(t, s, 11)

	if view["phase"] != "route" {
		t.Errorf("phase = %v, want route", view["phase"])
	}
	next, _ := view["next_nodes"].([]any)
	if len(next) != 1 {
		t.Errorf("next_nodes = %v, want single entry node", view["next_nodes"])
	}
}

func TestCreateRunRejectsBadInput(t *testing.T) {
	s := testServer(t)

	cases := []map[string]any{
		{"character_id": "junior_dev"},                                    // no records
		{"character_id": "../x", "records": history.Synthetic(1, 5)},      // bad id
		{"character_id": "junior_dev", "records": history.Synthetic(1, 5), "difficulty": 99},
	}
	for i, c := range cases {
		body, _ := json.Marshal(c)
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/runs", bytes.NewReader(body)))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("case %d: %d, want 400", i, rec.Code)
		}
	}
}

func TestProtectedEndpointsRequireAuth(t *testing.T) {
	s := testServer(t)
	runID, _ := createRun(t, s, 12)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs/"+runID, nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated get run: %d, want 401", rec.Code)
	}
}

func TestApplyActionAdvancesRun(t *testing.T) {
	s := testServer(t)
	runID, view := createRun(t, s, 13)
	next := view["next_nodes"].([]any)

	body, _ := json.Marshal(map[string]any{
		"type":    "choose_node",
		"node_id": next[0],
	})
	req := authed(t, httptest.NewRequest(http.MethodPost, "/api/runs/"+runID+"/actions", bytes.NewReader(body)), "u1")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("apply action: %d %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data struct {
			Events []json.RawMessage `json:"events"`
			View   map[string]any    `json:"view"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Data.Events) == 0 {
		t.Errorf("action produced no events")
	}
	if resp.Data.View["phase"] == "route" && len(resp.Data.View["next_nodes"].([]any)) == 1 {
		t.Errorf("run did not advance past the entry node")
	}
}

func TestIllegalActionMapsToConflict(t *testing.T) {
	s := testServer(t)
	runID, _ := createRun(t, s, 14)

	body, _ := json.Marshal(map[string]any{"type": "end_turn"})
	req := authed(t, httptest.NewRequest(http.MethodPost, "/api/runs/"+runID+"/actions", bytes.NewReader(body)), "u1")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Errorf("end_turn on route: %d, want 409", rec.Code)
	}
}

func TestEventsAfterFilter(t *testing.T) {
	s := testServer(t)
	runID, _ := createRun(t, s, 15)

	req := authed(t, httptest.NewRequest(http.MethodGet, "/api/runs/"+runID+"/events?after=1", nil), "u1")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("get events: %d", rec.Code)
	}

	var resp struct {
		Data []struct {
			Seq uint64 `json:"seq"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	for _, ev := range resp.Data {
		if ev.Seq <= 1 {
			t.Errorf("event seq %d returned despite after=1", ev.Seq)
		}
	}
}

func TestSaveAndResumeRun(t *testing.T) {
	s := testServer(t)
	runID, _ := createRun(t, s, 16)

	req := authed(t, httptest.NewRequest(http.MethodPost, "/api/runs/"+runID+"/save", nil), "u1")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("save run: %d %s", rec.Code, rec.Body.String())
	}

	req = authed(t, httptest.NewRequest(http.MethodPost, "/api/runs/"+runID+"/resume", nil), "u1")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("resume run: %d %s", rec.Code, rec.Body.String())
	}
}

func TestGetUnknownRun(t *testing.T) {
	s := testServer(t)
	req := authed(t, httptest.NewRequest(http.MethodGet, "/api/runs/no-such-run", nil), "u1")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown run: %d, want 404", rec.Code)
	}
}

func TestContentEndpointIsPublic(t *testing.T) {
	s := testServer(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/content", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("get content: %d", rec.Code)
	}
	var resp struct {
		Data struct {
			Hash  string `json:"hash"`
			Packs []struct {
				ID string `json:"id"`
			} `json:"packs"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode content: %v", err)
	}
	if resp.Data.Hash == "" {
		t.Errorf("content hash is empty")
	}
	if len(resp.Data.Packs) == 0 || resp.Data.Packs[0].ID != "core" {
		t.Errorf("packs = %v, want core first", resp.Data.Packs)
	}
}
