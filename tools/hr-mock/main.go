// A stand-in for the HR backend during local testing. Each write route's
// behavior is scriptable at runtime, so the fallback chain can be exercised
// against permission errors, transient errors and outages:
//
//	curl -X PUT 'localhost:8081/_mode?route=records&mode=forbidden'
//
// Modes: ok, forbidden (403), invalid (422), flaky (alternating 502), down (503).
package main

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"
)

type mockState struct {
	mu     sync.Mutex
	modes  map[string]string
	flaky  map[string]bool
	events []map[string]any
}

func newMockState() *mockState {
	return &mockState{
		modes: map[string]string{"records": "ok", "approvals": "ok", "punch": "ok"},
		flaky: map[string]bool{},
	}
}

// apply answers according to the route's scripted mode and reports whether
// the request should proceed.
func (s *mockState) apply(route string, w http.ResponseWriter) bool {
	s.mu.Lock()
	mode := s.modes[route]
	if mode == "flaky" {
		s.flaky[route] = !s.flaky[route]
		if s.flaky[route] {
			mode = "transient"
		} else {
			mode = "ok"
		}
	}
	s.mu.Unlock()

	switch mode {
	case "forbidden":
		http.Error(w, `{"code":"PERM_DENIED","message":"route disabled for this company"}`, http.StatusForbidden)
		return false
	case "invalid":
		http.Error(w, `{"code":"VALIDATION","message":"payload rejected"}`, http.StatusUnprocessableEntity)
		return false
	case "transient":
		http.Error(w, "bad gateway", http.StatusBadGateway)
		return false
	case "down":
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return false
	}
	return true
}

func (s *mockState) recordEvent(action string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, map[string]any{"kind": action, "at": time.Now().Format(time.RFC3339)})
}

func main() {
	state := newMockState()

	http.HandleFunc("/_mode", func(w http.ResponseWriter, r *http.Request) {
		route := r.URL.Query().Get("route")
		mode := r.URL.Query().Get("mode")
		state.mu.Lock()
		state.modes[route] = mode
		state.mu.Unlock()
		log.Printf("Route %q now answers %q", route, mode)
		w.WriteHeader(http.StatusOK)
	})

	http.HandleFunc("/api/v1/attendance/events", func(w http.ResponseWriter, r *http.Request) {
		state.mu.Lock()
		events := append([]map[string]any(nil), state.events...)
		state.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{"events": events})
	})

	http.HandleFunc("/api/v1/attendance/records", func(w http.ResponseWriter, r *http.Request) {
		if !state.apply("records", w) {
			return
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if action, _ := body["action"].(string); action != "" {
			state.recordEvent(action)
		}
		log.Printf("Direct record write accepted: %v", body)
		w.WriteHeader(http.StatusOK)
	})

	http.HandleFunc("/api/v1/approvals", func(w http.ResponseWriter, r *http.Request) {
		if !state.apply("approvals", w) {
			return
		}
		log.Println("Approval request accepted")
		w.WriteHeader(http.StatusOK)
	})

	http.HandleFunc("/api/v1/punch", func(w http.ResponseWriter, r *http.Request) {
		if !state.apply("punch", w) {
			return
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if action, _ := body["action"].(string); action != "" {
			state.recordEvent(action)
		}
		log.Println("Punch event accepted")
		w.WriteHeader(http.StatusOK)
	})

	log.Println("HR mock server starting on port 8081...")
	log.Fatal(http.ListenAndServe(":8081", nil))
}
