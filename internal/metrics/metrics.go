package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
	"github.com/planit/planit/internal/event_bus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "planit_http_requests_total",
		Help: "Total number of HTTP requests, labelled by route, method and status code.",
	}, []string{"route", "method", "code"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "planit_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds, labelled by route and method.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	EventMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "planit_event_mutations_total",
		Help: "Total number of scheduled event changes, labelled by operation.",
	}, []string{"operation"})

	ScheduledWeekdays = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "planit_scheduled_events_weekday_total",
		Help: "Events created or moved, labelled by the weekday of their date.",
	}, []string{"weekday"})
)

// Middleware records request count and latency per route template, so that
// /api/events/{id} is one series regardless of the id.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)

		route := routeTemplate(r)
		HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(m.Code)).Inc()
		HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(m.Duration.Seconds())
	})
}

func routeTemplate(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return "unmatched"
	}
	template, err := route.GetPathTemplate()
	if err != nil {
		return "unmatched"
	}
	return template
}

// SubscribeEvents counts event mutations published on the bus.
func SubscribeEvents(bus *event_bus.EventBus) {
	changed := func(operation string) func(event_bus.MessageT[event_bus.EventChanged]) error {
		return func(m event_bus.MessageT[event_bus.EventChanged]) error {
			EventMutations.WithLabelValues(operation).Inc()
			ScheduledWeekdays.WithLabelValues(m.Data.Date.In(time.UTC).Weekday().String()).Inc()
			return nil
		}
	}
	event_bus.SubscribeTyped(bus, event_bus.TopicEventCreated, changed("created"))
	event_bus.SubscribeTyped(bus, event_bus.TopicEventUpdated, changed("updated"))
	event_bus.SubscribeTyped(bus, event_bus.TopicEventDeleted, func(event_bus.MessageT[event_bus.EventDeleted]) error {
		EventMutations.WithLabelValues("deleted").Inc()
		return nil
	})
}
