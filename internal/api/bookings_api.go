package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"meetroom/internal/metrics"
	"meetroom/internal/models"
	"meetroom/internal/service"
)

// SubmitBookingRequest is the request body for POST /api/v1/bookings.
type SubmitBookingRequest struct {
	RequesterName  string   `json:"requester_name"`
	RequesterEmail string   `json:"requester_email"`
	Date           string   `json:"date"`       // Format: YYYY-MM-DD
	StartTime      string   `json:"start_time"` // Format: HH:MM
	EndTime        string   `json:"end_time"`   // Format: HH:MM
	Subject        string   `json:"subject"`
	Participants   string   `json:"participants,omitempty"`
	Equipment      []string `json:"equipment,omitempty"`
	Notes          string   `json:"notes,omitempty"`
}

// handleBookings serves the booking collection.
// GET  /api/v1/bookings?status=pending&date=YYYY-MM-DD
// POST /api/v1/bookings
func (s *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListBookings(w, r)
	case http.MethodPost:
		s.handleSubmitBooking(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleSubmitBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("submit_booking")

	var req SubmitBookingRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	date, window, err := parseSchedule(req.Date, req.StartTime, req.EndTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if s.limiter != nil {
		key := strings.ToLower(strings.TrimSpace(req.RequesterEmail))
		allowed, err := s.limiter.Allow(r.Context(), key)
		if err != nil {
			s.log.Warn().Err(err).Msg("rate limiter check failed, allowing request")
		} else if !allowed {
			writeServiceError(w, service.ErrRateLimited)
			return
		}
	}

	booking, err := s.svc.Submit(r.Context(), service.SubmitRequest{
		RequesterName:  req.RequesterName,
		RequesterEmail: req.RequesterEmail,
		Date:           date,
		Window:         window,
		Subject:        req.Subject,
		Participants:   req.Participants,
		Equipment:      req.Equipment,
		Notes:          req.Notes,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, booking)
}

func (s *HTTPServer) handleListBookings(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("list_bookings")

	filter := service.ListFilter{Status: r.URL.Query().Get("status")}
	switch filter.Status {
	case "", models.StatusPending, models.StatusApproved, models.StatusRejected:
	default:
		writeError(w, http.StatusBadRequest, "unknown status filter")
		return
	}

	if dateStr := r.URL.Query().Get("date"); dateStr != "" {
		date, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
			return
		}
		filter.Date = &date
	}

	bookings, err := s.svc.ListBookings(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

// handleDecision approves or rejects a pending booking.
// POST /api/v1/bookings/{id}/approve
// POST /api/v1/bookings/{id}/reject
func (s *HTTPServer) handleDecision(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("decision")

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	const prefix = "/api/v1/bookings/"
	rest := strings.TrimPrefix(r.URL.Path, prefix)
	id, action, ok := strings.Cut(rest, "/")
	if !ok || id == "" {
		writeError(w, http.StatusBadRequest, "invalid path")
		return
	}

	actor := service.Principal{Name: "api", Admin: true}
	var err error
	switch action {
	case "approve":
		err = s.svc.Approve(r.Context(), actor, id)
	case "reject":
		err = s.svc.Reject(r.Context(), actor, id)
	default:
		writeError(w, http.StatusNotFound, "unknown action")
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleCalendar returns approved bookings in a date range as calendar events.
// GET /api/v1/calendar?start=YYYY-MM-DD&end=YYYY-MM-DD
func (s *HTTPServer) handleCalendar(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("calendar")

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	start, err := time.Parse("2006-01-02", r.URL.Query().Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start format; expected YYYY-MM-DD")
		return
	}
	end, err := time.Parse("2006-01-02", r.URL.Query().Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end format; expected YYYY-MM-DD")
		return
	}
	if start.After(end) {
		writeError(w, http.StatusBadRequest, "start must be before or equal to end")
		return
	}

	events, err := s.svc.CalendarEvents(r.Context(), start, end)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func parseSchedule(dateStr, startStr, endStr string) (time.Time, models.TimeWindow, error) {
	if dateStr == "" {
		return time.Time{}, models.TimeWindow{}, fmt.Errorf("date is required")
	}
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return time.Time{}, models.TimeWindow{}, fmt.Errorf("invalid date format; expected YYYY-MM-DD")
	}
	window, err := models.ParseTimeWindow(startStr, endStr)
	if err != nil {
		return time.Time{}, models.TimeWindow{}, err
	}
	return date, window, nil
}
