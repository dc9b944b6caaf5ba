package poller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/geoscope-ai/geoscope/internal/audit"
)

func TestClientStartAndWait(t *testing.T) {
	var polls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/audits":
			var req startRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Domain != "example.com" {
				t.Errorf("unexpected start request: %+v (%v)", req, err)
			}
			w.WriteHeader(http.StatusAccepted)
			_ = json.NewEncoder(w).Encode(startResponse{SessionID: "sess-1", TotalPages: len(req.Pages)})
		case r.Method == http.MethodGet && r.URL.Path == "/api/audits/sess-1":
			state := audit.StateAnalyzing
			if atomic.AddInt32(&polls, 1) >= 2 {
				state = audit.StateCompleted
			}
			_ = json.NewEncoder(w).Encode(audit.Session{SessionID: "sess-1", State: state})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := New(srv.URL, "", 10*time.Millisecond)

	sessionID, err := client.Start(context.Background(), "example.com", []string{"/", "/pricing"})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if sessionID != "sess-1" {
		t.Fatalf("expected sess-1, got %q", sessionID)
	}

	snap, err := client.Wait(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("wait failed: %v", err)
	}
	if snap.State != audit.StateCompleted {
		t.Fatalf("expected completed, got %s", snap.State)
	}
	if atomic.LoadInt32(&polls) < 2 {
		t.Fatalf("expected at least two polls, got %d", polls)
	}
}

func TestClientStartSurfacesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(errorResponse{Error: "page list exceeds the maximum page count"})
	}))
	defer srv.Close()

	client := New(srv.URL, "", 10*time.Millisecond)
	if _, err := client.Start(context.Background(), "example.com", []string{"/"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestClientWaitDetachesOnCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(audit.Session{SessionID: "sess-1", State: audit.StateAnalyzing})
	}))
	defer srv.Close()

	client := New(srv.URL, "", 10*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := client.Wait(ctx, "sess-1"); err == nil {
		t.Fatalf("expected context error")
	}
}
