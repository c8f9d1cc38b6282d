package http

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"finlink/internal/domain/sync"
	"finlink/internal/interfaces/scheduler"
)

// JobSubmitter queues background work. Satisfied by scheduler.WorkerPool.
type JobSubmitter interface {
	Submit(job scheduler.Job) error
}

// SyncHandler exposes the two request-driven sync triggers: the synchronous
// on-demand refresh and the fire-and-forget login hook.
type SyncHandler struct {
	orch *sync.Orchestrator
	pool JobSubmitter
}

func NewSyncHandler(orch *sync.Orchestrator, pool JobSubmitter) *SyncHandler {
	return &SyncHandler{orch: orch, pool: pool}
}

// HandleSyncUser runs a synchronous sync of all the user's connected accounts
// and returns the per-run summary. The optional windowDays query parameter
// widens the transaction lookback; the orchestrator clamps it.
func (h *SyncHandler) HandleSyncUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := pathUserID(w, r)
	if !ok {
		return
	}

	windowDays := 0
	if raw := r.URL.Query().Get("windowDays"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			http.Error(w, "Invalid windowDays", http.StatusBadRequest)
			return
		}
		windowDays = v
	}

	summary, err := h.orch.SyncUser(r.Context(), userID, windowDays)
	if err != nil {
		log.Printf("On-demand sync failed for user %d: %v", userID, err)
		http.Error(w, "Sync failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

// HandleLoginSync queues a background sync for the user and returns
// immediately. Login latency must not absorb aggregator round-trips, so the
// response carries no sync result.
func (h *SyncHandler) HandleLoginSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := pathUserID(w, r)
	if !ok {
		return
	}

	if err := h.pool.Submit(scheduler.NewLoginSyncJob(userID, h.orch)); err != nil {
		// A dropped login sync is recoverable: the next trigger covers it.
		log.Printf("Login sync for user %d not queued: %v", userID, err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"status": "queued"})
}
