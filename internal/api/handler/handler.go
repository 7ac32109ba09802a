package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/sky-zhang01/punchpilot-sub001/internal/calendar"
	"github.com/sky-zhang01/punchpilot-sub001/internal/core/model"
	"github.com/sky-zhang01/punchpilot-sub001/internal/engine"
	"github.com/sky-zhang01/punchpilot-sub001/internal/ports"
	"github.com/sky-zhang01/punchpilot-sub001/internal/scheduler"
	"github.com/sky-zhang01/punchpilot-sub001/internal/task"
)

// AttendanceHandler exposes the scheduler, engine and task orchestrator
// over HTTP.
type AttendanceHandler struct {
	Scheduler *scheduler.Scheduler
	Engine    *engine.Engine
	Tasks     *task.Orchestrator
	Calendar  *calendar.Resolver
	Countries []string
	ExecLog   ports.ExecutionLog
}

// GetState reports the scheduler's last detected punch state.
func (h *AttendanceHandler) GetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"state": h.Scheduler.CurrentState()})
}

// GetPlan runs detection and planning for the current moment without
// executing anything.
func (h *AttendanceHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.Scheduler.PlanNow(r.Context())
	if err != nil {
		http.Error(w, "Failed to compute plan", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// TriggerAction runs one clock action immediately, bypassing the schedule.
func (h *AttendanceHandler) TriggerAction(w http.ResponseWriter, r *http.Request) {
	kind := model.ActionKind(mux.Vars(r)["kind"])
	valid := false
	for _, a := range model.AllActions {
		if a == kind {
			valid = true
		}
	}
	if !valid {
		http.Error(w, "Unknown action kind", http.StatusBadRequest)
		return
	}

	res := h.Scheduler.TriggerAction(r.Context(), kind)
	if !res.Success {
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"success":  false,
			"error":    res.Err.Error(),
			"attempts": res.Attempts,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"tierUsed": res.TierUsed.String(),
		"attempts": res.Attempts,
	})
}

type batchRequest struct {
	Operations []model.Operation `json:"operations"`
}

// SubmitBatch starts a background batch and returns its task ID right away.
// Clients poll GetBatch for progress.
func (h *AttendanceHandler) SubmitBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Operations) == 0 {
		http.Error(w, "At least one operation is required", http.StatusBadRequest)
		return
	}
	for _, op := range req.Operations {
		if op.Kind == "" || op.Date == "" {
			http.Error(w, "Every operation needs kind and date", http.StatusBadRequest)
			return
		}
	}

	ops := req.Operations
	id := h.Tasks.Submit(func(ctx context.Context) []model.BatchItemResult {
		return h.Engine.ExecuteBatch(ctx, ops)
	})

	log.Ctx(r.Context()).Info().Str("task_id", id).Int("items", len(ops)).Msg("Batch accepted")
	writeJSON(w, http.StatusAccepted, map[string]any{"taskId": id})
}

// GetBatch reports a background batch's status and per-item results.
func (h *AttendanceHandler) GetBatch(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["taskId"]
	t, ok := h.Tasks.Status(id)
	if !ok {
		http.Error(w, "Unknown or expired task", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// AbandonBatch asks a running batch to stop between items.
func (h *AttendanceHandler) AbandonBatch(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["taskId"]
	if !h.Tasks.Abandon(id) {
		http.Error(w, "Task is not running", http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"taskId": id, "abandoned": true})
}

// GetSchedule reports today's resolved schedule times.
func (h *AttendanceHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Scheduler.ResolvedSchedule(r.Context(), time.Now())
	if err != nil {
		http.Error(w, "Failed to resolve schedule", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// ExplainSkip answers whether a date is a skip day and why. Defaults to
// today when no date query parameter is given.
func (h *AttendanceHandler) ExplainSkip(w http.ResponseWriter, r *http.Request) {
	date := time.Now()
	if q := r.URL.Query().Get("date"); q != "" {
		parsed, err := time.ParseInLocation("2006-01-02", q, time.Local)
		if err != nil {
			http.Error(w, "date must be yyyy-mm-dd", http.StatusBadRequest)
			return
		}
		date = parsed
	}
	skip, reason := h.Calendar.Explain(date, h.Countries)
	writeJSON(w, http.StatusOK, map[string]any{
		"date":          model.DateKey(date),
		"skip":          skip,
		"reason":        reason,
		"countries":     h.Countries,
		"knownRuleSets": h.Calendar.Countries(),
	})
}

// GetLog returns execution records for one day (?date=) or a range
// (?from=&to=). With no parameters it returns today.
func (h *AttendanceHandler) GetLog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		recs []model.ExecutionRecord
		err  error
	)
	switch {
	case q.Get("from") != "" && q.Get("to") != "":
		recs, err = h.ExecLog.QueryRange(r.Context(), q.Get("from"), q.Get("to"))
	case q.Get("date") != "":
		recs, err = h.ExecLog.QueryByDate(r.Context(), q.Get("date"))
	default:
		recs, err = h.ExecLog.QueryByDate(r.Context(), model.DateKey(time.Now()))
	}
	if err != nil {
		http.Error(w, "Failed to query execution log", http.StatusInternalServerError)
		return
	}
	if recs == nil {
		recs = []model.ExecutionRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
