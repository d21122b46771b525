package replay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const resultsFetchTimeout = 15 * time.Second

// FetchFinalResults retrieves the authoritative finishing order for a
// session from a results endpoint. The response uses the same permissive
// payload conventions as the dataset itself.
func FetchFinalResults(ctx context.Context, client *http.Client, baseURL, sessionKey string) ([]FinalResult, error) {
	if client == nil {
		client = http.DefaultClient
	}

	url := fmt.Sprintf("%s/api/race-results/%s", baseURL, sessionKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build results request: %v", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("results request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("results request failed: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read results response: %v", err)
	}

	return ParseFinalResults(body)
}

// ParseFinalResults decodes a results payload into finishing order rows.
func ParseFinalResults(data []byte) ([]FinalResult, error) {
	var payload map[string]interface{}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse results payload: %v", err)
	}

	rows, ok := payload["results"].([]interface{})
	if !ok || len(rows) == 0 {
		return nil, fmt.Errorf("results payload contains no results")
	}

	results := make([]FinalResult, 0, len(rows))
	for _, raw := range rows {
		record, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		id := asString(record["driver_number"])
		if id == "" {
			id = asString(record["entity_id"])
		}
		if id == "" {
			continue
		}
		results = append(results, FinalResult{
			EntityID:     id,
			Position:     asInt(record["position"]),
			FinishingLap: asInt(record["laps_completed"]),
			FinishMetric: asFloat(record["final_position"]),
		})
	}

	if len(results) == 0 {
		return nil, fmt.Errorf("results payload contains no usable rows")
	}
	return results, nil
}

// LoadFinalResults fetches the finishing order for the currently loaded
// session in the background and installs it on completion. The fetch
// never blocks the frame loop; failure is logged at warning level and
// live standings stay authoritative. A dataset swap while the fetch is
// in flight makes the result a no-op via the generation check.
func (e *Engine) LoadFinalResults(baseURL string) {
	e.mu.Lock()
	if e.store == nil || baseURL == "" {
		e.mu.Unlock()
		return
	}
	sessionKey := e.store.SessionKey
	generation := e.store.Generation
	e.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), resultsFetchTimeout)
		defer cancel()

		results, err := FetchFinalResults(ctx, nil, baseURL, sessionKey)
		if err != nil {
			e.warnf("final results unavailable for session %s: %v", sessionKey, err)
			return
		}
		e.SetFinalResults(generation, results)
	}()
}
