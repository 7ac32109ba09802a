package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/sky-zhang01/punchpilot-sub001/internal/api/handler"
)

// NewRouter sets up the gorilla/mux router and defines all API routes.
func NewRouter(h *handler.AttendanceHandler) *mux.Router {

	r := mux.NewRouter()

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/state", h.GetState).Methods(http.MethodGet)
	api.HandleFunc("/plan", h.GetPlan).Methods(http.MethodGet)
	api.HandleFunc("/actions/{kind}", h.TriggerAction).Methods(http.MethodPost)
	api.HandleFunc("/batch", h.SubmitBatch).Methods(http.MethodPost)
	api.HandleFunc("/batch/{taskId}", h.GetBatch).Methods(http.MethodGet)
	api.HandleFunc("/batch/{taskId}", h.AbandonBatch).Methods(http.MethodDelete)
	api.HandleFunc("/schedule", h.GetSchedule).Methods(http.MethodGet)
	api.HandleFunc("/calendar/skip", h.ExplainSkip).Methods(http.MethodGet)
	api.HandleFunc("/log", h.GetLog).Methods(http.MethodGet)
	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Service is operational."))
	}).Methods(http.MethodGet)

	return r
}
