package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/gorilla/mux"
	"github.com/planit/planit/internal/event_bus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_RecordsRouteTemplate(t *testing.T) {
	// given
	r := mux.NewRouter()
	r.Use(Middleware)
	r.HandleFunc("/api/things/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}).Methods("GET")
	before := testutil.ToFloat64(HTTPRequests.WithLabelValues("/api/things/{id}", "GET", "418"))

	// when
	for _, id := range []string{"1", "2"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/things/"+id, nil))
		require.Equal(t, http.StatusTeapot, w.Code)
	}

	// then
	after := testutil.ToFloat64(HTTPRequests.WithLabelValues("/api/things/{id}", "GET", "418"))
	assert.Equal(t, 2.0, after-before)
}

func TestMiddleware_DefaultsToOK(t *testing.T) {
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	before := testutil.ToFloat64(HTTPRequests.WithLabelValues("unmatched", "GET", "200"))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/anything", nil))

	after := testutil.ToFloat64(HTTPRequests.WithLabelValues("unmatched", "GET", "200"))
	assert.Equal(t, 1.0, after-before)
}

func TestSubscribeEvents(t *testing.T) {
	// given
	bus := event_bus.NewEventBus()
	SubscribeEvents(bus)
	ctx := context.Background()
	created := testutil.ToFloat64(EventMutations.WithLabelValues("created"))
	updated := testutil.ToFloat64(EventMutations.WithLabelValues("updated"))
	deleted := testutil.ToFloat64(EventMutations.WithLabelValues("deleted"))
	thursdays := testutil.ToFloat64(ScheduledWeekdays.WithLabelValues("Thursday"))

	// when
	thursday := civil.Date{Year: 2024, Month: time.February, Day: 15}
	require.NoError(t, bus.Publish(event_bus.NewMessage(ctx, event_bus.TopicEventCreated, event_bus.EventChanged{Id: "1", Date: thursday})))
	require.NoError(t, bus.Publish(event_bus.NewMessage(ctx, event_bus.TopicEventUpdated, event_bus.EventChanged{Id: "1", Date: thursday})))
	require.NoError(t, bus.Publish(event_bus.NewMessage(ctx, event_bus.TopicEventDeleted, event_bus.EventDeleted{Id: "1"})))

	// then
	assert.Equal(t, 1.0, testutil.ToFloat64(EventMutations.WithLabelValues("created"))-created)
	assert.Equal(t, 1.0, testutil.ToFloat64(EventMutations.WithLabelValues("updated"))-updated)
	assert.Equal(t, 1.0, testutil.ToFloat64(EventMutations.WithLabelValues("deleted"))-deleted)
	assert.Equal(t, 2.0, testutil.ToFloat64(ScheduledWeekdays.WithLabelValues("Thursday"))-thursdays)
}

func TestSubscribeEvents_IgnoresForeignPayloads(t *testing.T) {
	bus := event_bus.NewEventBus()
	SubscribeEvents(bus)
	before := testutil.ToFloat64(EventMutations.WithLabelValues("deleted"))

	err := bus.Publish(event_bus.NewMessage(context.Background(), event_bus.TopicEventDeleted, "not a deletion"))

	require.NoError(t, err)
	assert.Equal(t, 0.0, testutil.ToFloat64(EventMutations.WithLabelValues("deleted"))-before)
}
