package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"roombot/internal/chat"
	"roombot/internal/kv"
)

type CheckResult struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Latency int64  `json:"latency_ms"`
	Error   string `json:"error,omitempty"`
}

type Status struct {
	OK        bool          `json:"ok"`
	Checks    []CheckResult `json:"checks"`
	CheckedAt time.Time     `json:"checked_at"`
}

// CheckAll reports on the chat connection and the score store.
func CheckAll(ctx context.Context, client *chat.Client, store kv.Store) Status {
	checks := []CheckResult{
		checkConnection(client),
		checkStore(ctx, store),
	}
	allOK := true
	for _, c := range checks {
		if !c.OK {
			allOK = false
		}
	}
	return Status{OK: allOK, Checks: checks, CheckedAt: time.Now().UTC()}
}

func checkConnection(client *chat.Client) CheckResult {
	result := CheckResult{Name: "chat"}
	state := client.State()
	result.OK = state == chat.StateOpen
	if !result.OK {
		// Reconnect is the supervisor's job; health just reports it.
		result.Error = fmt.Sprintf("connection %s", state)
	}
	return result
}

func checkStore(ctx context.Context, store kv.Store) CheckResult {
	start := time.Now()
	result := CheckResult{Name: "store"}
	if err := store.Ping(ctx); err != nil {
		result.Error = err.Error()
	} else {
		result.OK = true
	}
	result.Latency = time.Since(start).Milliseconds()
	return result
}

// Handler serves the aggregated status as JSON, 503 when degraded.
func Handler(client *chat.Client, store kv.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		st := CheckAll(ctx, client, store)
		w.Header().Set("Content-Type", "application/json")
		if !st.OK {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(st)
	}
}
