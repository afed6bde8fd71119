package event

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"cloud.google.com/go/civil"
	"github.com/gorilla/mux"
	"github.com/planit/planit/internal/rest"
	"github.com/planit/planit/pkg/user"
	"github.com/samber/mo"
	log "github.com/sirupsen/logrus"
)

type EventDTO struct {
	Id          string     `json:"id"`
	Name        string     `json:"name"`
	Date        string     `json:"date"`
	Time        string     `json:"time"`
	Venue       string     `json:"venue"`
	Location    string     `json:"location"`
	Description string     `json:"description"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

type CreateEventDTO struct {
	Name        string `json:"name"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Venue       string `json:"venue"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

// UpdateEventDTO carries only the fields the client wants to change.
type UpdateEventDTO struct {
	Name        *string `json:"name"`
	Date        *string `json:"date"`
	Time        *string `json:"time"`
	Venue       *string `json:"venue"`
	Location    *string `json:"location"`
	Description *string `json:"description"`
}

type Handler struct {
	service Service
}

func NewEventHandler(service Service) *Handler {
	return &Handler{service: service}
}

// ListEvents godoc
// @Summary List events
// @Description Get all events of the current user ordered by date and time
// @Tags Event
// @Produce json
// @Success 200 {array} EventDTO
// @Failure 401 {object} rest.ErrorResponse "No authenticated user"
// @Router /api/events [get]
// @Security XUserId
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	log.Debug("Listing events")
	events, err := h.service.ListEvents(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, eventsToDTO(events))
}

// ListEventsOnDate godoc
// @Summary List events on a date
// @Description Get events of the current user on the given date ordered by time
// @Tags Event
// @Produce json
// @Param date path string true "Date (YYYY-MM-DD)"
// @Success 200 {array} EventDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid date"
// @Failure 401 {object} rest.ErrorResponse "No authenticated user"
// @Router /api/events/date/{date} [get]
// @Security XUserId
func (h *Handler) ListEventsOnDate(w http.ResponseWriter, r *http.Request) {
	dateParam := mux.Vars(r)["date"]
	log.Debugf("Listing events on %s", dateParam)

	date, err := civil.ParseDate(dateParam)
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid date", "date must be in YYYY-MM-DD format")
		return
	}

	events, err := h.service.ListEventsOnDate(r.Context(), date)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, eventsToDTO(events))
}

// GetEvent godoc
// @Summary Get event
// @Tags Event
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} EventDTO
// @Failure 404 {object} rest.ErrorResponse "Event not found"
// @Router /api/events/{id} [get]
// @Security XUserId
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.service.GetEvent(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, eventToDTO(event))
}

// CreateEvent godoc
// @Summary Create event
// @Description Schedule a new event for the current user
// @Tags Event
// @Accept json
// @Produce json
// @Param event body CreateEventDTO true "Event"
// @Success 201 {object} EventDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid event"
// @Failure 413 {object} rest.ErrorResponse "Request body too large"
// @Failure 401 {object} rest.ErrorResponse "No authenticated user"
// @Router /api/events [post]
// @Security XUserId
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	log.Debug("Creating new event")
	var dto CreateEventDTO
	if !decodeBody(w, r, &dto) {
		return
	}

	fields := Fields{
		Name:        dto.Name,
		Time:        dto.Time,
		Venue:       dto.Venue,
		Location:    dto.Location,
		Description: dto.Description,
	}
	if dto.Date != "" {
		date, err := civil.ParseDate(dto.Date)
		if err != nil {
			rest.WriteError(w, http.StatusBadRequest, "Invalid date", "date must be in YYYY-MM-DD format")
			return
		}
		fields.Date = date
	}

	event, err := h.service.CreateEvent(r.Context(), fields)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, eventToDTO(event))
}

// UpdateEvent godoc
// @Summary Update event
// @Description Change the provided fields of an event. Empty name, date, time or venue are ignored.
// @Tags Event
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param event body UpdateEventDTO true "Changed fields"
// @Success 200 {object} EventDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid event"
// @Failure 413 {object} rest.ErrorResponse "Request body too large"
// @Failure 404 {object} rest.ErrorResponse "Event not found"
// @Router /api/events/{id} [put]
// @Security XUserId
func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	log.Debugf("Updating event %s", id)

	var dto UpdateEventDTO
	if !decodeBody(w, r, &dto) {
		return
	}

	patch := Patch{
		Name:        mo.PointerToOption(dto.Name),
		Time:        mo.PointerToOption(dto.Time),
		Venue:       mo.PointerToOption(dto.Venue),
		Location:    mo.PointerToOption(dto.Location),
		Description: mo.PointerToOption(dto.Description),
	}
	if dto.Date != nil && *dto.Date != "" {
		date, err := civil.ParseDate(*dto.Date)
		if err != nil {
			rest.WriteError(w, http.StatusBadRequest, "Invalid date", "date must be in YYYY-MM-DD format")
			return
		}
		patch.Date = mo.Some(date)
	}

	event, err := h.service.UpdateEvent(r.Context(), id, patch)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, eventToDTO(event))
}

// DeleteEvent godoc
// @Summary Delete event
// @Tags Event
// @Param id path string true "Event ID"
// @Success 204 "No Content"
// @Failure 404 {object} rest.ErrorResponse "Event not found"
// @Router /api/events/{id} [delete]
// @Security XUserId
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	log.Debugf("Deleting event %s", id)

	if err := h.service.DeleteEvent(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportCalendar godoc
// @Summary Export events as iCalendar
// @Tags Event
// @Produce text/calendar
// @Success 200 {string} string "iCalendar feed"
// @Router /api/events/export.ics [get]
// @Security XUserId
func (h *Handler) ExportCalendar(w http.ResponseWriter, r *http.Request) {
	feed, err := h.service.ExportCalendar(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="planit.ics"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(feed)); err != nil {
		log.Errorf("failed to write calendar feed: %v", err)
	}
}

// maxBodyBytes caps event request bodies; a description fits comfortably within it.
const maxBodyBytes = 1 << 20

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(dst)
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		log.Warnf("Rejecting request body over %d bytes", tooLarge.Limit)
		rest.WriteError(w, http.StatusRequestEntityTooLarge, "Request body too large", err.Error())
		return false
	case err != nil:
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return false
	}
	return true
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidEvent), errors.Is(err, ErrEventInPast):
		rest.WriteError(w, http.StatusBadRequest, "Invalid event", err.Error())
	case errors.Is(err, ErrEventNotFound):
		rest.WriteError(w, http.StatusNotFound, "Event not found", "")
	case errors.Is(err, user.ErrNoUser):
		rest.WriteError(w, http.StatusUnauthorized, "Unauthorized", "")
	default:
		log.Errorf("event request failed: %v", err)
		rest.WriteError(w, http.StatusInternalServerError, "Internal server error", "")
	}
}

func eventsToDTO(events []Event) []EventDTO {
	dtos := make([]EventDTO, 0, len(events))
	for _, e := range events {
		dtos = append(dtos, eventToDTO(e))
	}
	return dtos
}

func eventToDTO(e Event) EventDTO {
	dto := EventDTO{
		Id:          e.Id,
		Name:        e.Name,
		Date:        e.Date.String(),
		Time:        e.Time,
		Venue:       e.Venue,
		Location:    e.Location,
		Description: e.Description,
	}
	if !e.CreatedAt.IsZero() {
		dto.CreatedAt = &e.CreatedAt
	}
	if !e.UpdatedAt.IsZero() {
		dto.UpdatedAt = &e.UpdatedAt
	}
	return dto
}
