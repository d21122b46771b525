package replay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestParseFinalResults(t *testing.T) {
	data := []byte(`{
		"session_key": 9617,
		"results": [
			{"driver_number": 1, "position": 2, "laps_completed": 56, "final_position": 812.5},
			{"driver_number": 16, "position": 1, "laps_completed": 56},
			{"position": 3}
		]
	}`)

	results, err := ParseFinalResults(data)
	if err != nil {
		t.Fatalf("Failed to parse results: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 usable rows (one has no identifier), got %d", len(results))
	}
	if results[0].EntityID != "1" || results[0].Position != 2 {
		t.Errorf("Unexpected first row: %+v", results[0])
	}
	if results[0].FinishingLap != 56 {
		t.Errorf("Expected finishing lap 56, got %d", results[0].FinishingLap)
	}
	if results[0].FinishMetric != 812.5 {
		t.Errorf("Expected finish metric 812.5, got %f", results[0].FinishMetric)
	}
}

func TestParseFinalResultsEmpty(t *testing.T) {
	for _, data := range []string{`{}`, `{"results": []}`, `{"results": [{"position": 1}]}`, `not json`} {
		if _, err := ParseFinalResults([]byte(data)); err == nil {
			t.Errorf("Expected error for payload %q", data)
		}
	}
}

func TestFetchFinalResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/race-results/9617" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results": [{"driver_number": 44, "position": 1, "laps_completed": 70}]}`))
	}))
	defer server.Close()

	results, err := FetchFinalResults(context.Background(), nil, server.URL, "9617")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(results) != 1 || results[0].EntityID != "44" {
		t.Errorf("Unexpected results: %+v", results)
	}

	if _, err := FetchFinalResults(context.Background(), nil, server.URL, "missing"); err == nil {
		t.Error("Expected error for unknown session")
	}
}

func TestLoadFinalResultsInstallsOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": [
			{"driver_number": 16, "position": 1, "laps_completed": 2},
			{"driver_number": 1, "position": 2, "laps_completed": 2}
		]}`))
	}))
	defer server.Close()

	engine, _ := newTestEngine(t)
	engine.LoadFinalResults(server.URL)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		engine.mu.Lock()
		installed := engine.animator.HasFinalResults()
		engine.mu.Unlock()
		if installed {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	status := engine.Status()
	if len(status.Frame.Standings) == 0 {
		t.Fatal("Expected standings in status")
	}
	if status.Frame.Standings[0].EntityID != "16" || !status.Frame.Standings[0].Final {
		t.Errorf("Final order should lead with entity 16, got %+v", status.Frame.Standings[0])
	}
}

func TestLoadFinalResultsFailureKeepsLiveStandings(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	engine, _ := newTestEngine(t)
	engine.LoadFinalResults(server.URL)

	time.Sleep(100 * time.Millisecond)

	engine.mu.Lock()
	installed := engine.animator.HasFinalResults()
	engine.mu.Unlock()
	if installed {
		t.Error("Failed fetch must leave live standings authoritative")
	}

	// Playback is unaffected.
	if err := engine.Play(); err != nil {
		t.Errorf("Play should still work after a failed fetch: %v", err)
	}
}
