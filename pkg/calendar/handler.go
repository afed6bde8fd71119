package calendar

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
	"github.com/gorilla/mux"
	"github.com/planit/planit/internal/rest"
	"github.com/planit/planit/pkg/event"
	"github.com/planit/planit/pkg/user"
	log "github.com/sirupsen/logrus"
)

type DayDTO struct {
	DayNumber      int    `json:"dayNumber"`
	Date           string `json:"date"`
	IsCurrentMonth bool   `json:"isCurrentMonth"`
	IsToday        bool   `json:"isToday"`
	IsPast         bool   `json:"isPast"`
	EventCount     int    `json:"eventCount"`
}

type MonthDTO struct {
	Year        int      `json:"year"`
	Month       int      `json:"month"`
	Today       string   `json:"today"`
	HasPrevious bool     `json:"hasPrevious"`
	HasNext     bool     `json:"hasNext"`
	Days        []DayDTO `json:"days"`
}

type DayViewDTO struct {
	Date    string        `json:"date"`
	IsToday bool          `json:"isToday"`
	IsPast  bool          `json:"isPast"`
	Events  []DayEventDTO `json:"events"`
}

type DayEventDTO struct {
	Id          string `json:"id"`
	Name        string `json:"name"`
	Time        string `json:"time"`
	Venue       string `json:"venue"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// GetMonth godoc
// @Summary Get month view
// @Description Get the 42 day grid of a month with the number of events on each day
// @Tags Calendar
// @Produce json
// @Param year query int true "Year"
// @Param month query int true "Month (1-12)"
// @Success 200 {object} MonthDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid month or outside of navigation window"
// @Failure 401 {object} rest.ErrorResponse "No authenticated user"
// @Router /api/calendar/month [get]
// @Security XUserId
func (h *Handler) GetMonth(w http.ResponseWriter, r *http.Request) {
	yearParam := r.URL.Query().Get("year")
	monthParam := r.URL.Query().Get("month")
	log.Debugf("Getting month view for %s-%s", yearParam, monthParam)

	year, err := strconv.Atoi(yearParam)
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid year", "year must be a number")
		return
	}
	month, err := strconv.Atoi(monthParam)
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid month", "month must be a number between 1 and 12")
		return
	}

	view, err := h.service.GetMonth(r.Context(), year, time.Month(month))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, monthToDTO(view))
}

// GetCurrentMonth godoc
// @Summary Get current month view
// @Tags Calendar
// @Produce json
// @Success 200 {object} MonthDTO
// @Failure 401 {object} rest.ErrorResponse "No authenticated user"
// @Router /api/calendar/month/current [get]
// @Security XUserId
func (h *Handler) GetCurrentMonth(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.GetCurrentMonth(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, monthToDTO(view))
}

// GetDay godoc
// @Summary Get day view
// @Description Get the events of a single day ordered by time
// @Tags Calendar
// @Produce json
// @Param date path string true "Date (YYYY-MM-DD)"
// @Success 200 {object} DayViewDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid date"
// @Failure 401 {object} rest.ErrorResponse "No authenticated user"
// @Router /api/calendar/day/{date} [get]
// @Security XUserId
func (h *Handler) GetDay(w http.ResponseWriter, r *http.Request) {
	date, err := civil.ParseDate(mux.Vars(r)["date"])
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid date", "date must be in YYYY-MM-DD format")
		return
	}

	view, err := h.service.GetDay(r.Context(), date)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, dayViewToDTO(view))
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidMonth):
		rest.WriteError(w, http.StatusBadRequest, "Invalid month", err.Error())
	case errors.Is(err, ErrMonthOutOfRange):
		rest.WriteError(w, http.StatusBadRequest, "Month out of range", err.Error())
	case errors.Is(err, user.ErrNoUser):
		rest.WriteError(w, http.StatusUnauthorized, "Unauthorized", "")
	default:
		log.Errorf("calendar request failed: %v", err)
		rest.WriteError(w, http.StatusInternalServerError, "Internal server error", "")
	}
}

func monthToDTO(view MonthView) MonthDTO {
	days := make([]DayDTO, 0, len(view.Days))
	for _, d := range view.Days {
		days = append(days, DayDTO{
			DayNumber:      d.DayNumber,
			Date:           d.Date.String(),
			IsCurrentMonth: d.IsCurrentMonth,
			IsToday:        d.IsToday,
			IsPast:         d.IsPast,
			EventCount:     d.EventCount,
		})
	}
	return MonthDTO{
		Year:        view.Year,
		Month:       int(view.Month),
		Today:       view.Today.String(),
		HasPrevious: view.HasPrevious,
		HasNext:     view.HasNext,
		Days:        days,
	}
}

func dayViewToDTO(view DayView) DayViewDTO {
	return DayViewDTO{
		Date:    view.Date.String(),
		IsToday: view.IsToday,
		IsPast:  view.IsPast,
		Events:  eventsToDTO(view.Events),
	}
}

func eventsToDTO(events []event.Event) []DayEventDTO {
	dtos := make([]DayEventDTO, 0, len(events))
	for _, e := range events {
		dtos = append(dtos, DayEventDTO{
			Id:          e.Id,
			Name:        e.Name,
			Time:        e.Time,
			Venue:       e.Venue,
			Location:    e.Location,
			Description: e.Description,
		})
	}
	return dtos
}
