package app

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/planit/planit/internal/config"
	"github.com/planit/planit/internal/rest"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies, cfg config.Application) {

	r.HandleFunc("/api/health", health).Methods("GET")
	if cfg.Metrics.Enabled {
		r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	}

	// Events
	events := r.PathPrefix("/api/events").Subrouter()
	events.Use(requireUser)
	events.HandleFunc("", deps.EventHandler.ListEvents).Methods("GET")
	events.HandleFunc("", deps.EventHandler.CreateEvent).Methods("POST")
	events.HandleFunc("/export.ics", deps.EventHandler.ExportCalendar).Methods("GET")
	events.HandleFunc("/date/{date}", deps.EventHandler.ListEventsOnDate).Methods("GET")
	events.HandleFunc("/{id}", deps.EventHandler.GetEvent).Methods("GET")
	events.HandleFunc("/{id}", deps.EventHandler.UpdateEvent).Methods("PUT")
	events.HandleFunc("/{id}", deps.EventHandler.DeleteEvent).Methods("DELETE")

	// Calendar
	cal := r.PathPrefix("/api/calendar").Subrouter()
	cal.Use(requireUser)
	cal.HandleFunc("/month", deps.CalendarHandler.GetMonth).Methods("GET")
	cal.HandleFunc("/month/current", deps.CalendarHandler.GetCurrentMonth).Methods("GET")
	cal.HandleFunc("/day/{date}", deps.CalendarHandler.GetDay).Methods("GET")

	// User
	users := r.PathPrefix("/api/user").Subrouter()
	users.Use(requireUser)
	users.HandleFunc("/current", deps.UserHandler.CurrentUser).Methods("GET")
}

func health(w http.ResponseWriter, r *http.Request) {
	rest.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
