package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"meetroom/internal/models"
	"meetroom/internal/service"
)

const testAPIKey = "valid-key"

type ErrorResponse struct {
	Error string `json:"error"`
}

type stubRepo struct {
	mu       sync.Mutex
	bookings []models.Booking
}

func (r *stubRepo) FetchAll(ctx context.Context) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Booking, len(r.bookings))
	copy(out, r.bookings)
	return out, nil
}

func (r *stubRepo) Append(ctx context.Context, b *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bookings = append(r.bookings, *b)
	return nil
}

func (r *stubRepo) UpdateStatus(ctx context.Context, id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.bookings {
		if r.bookings[i].ID == id {
			r.bookings[i].Status = status
			return nil
		}
	}
	return models.ErrNotFound
}

type noopNotifier struct{}

func (noopNotifier) Notify(ctx context.Context, to, subject, body string) error { return nil }

type noopEvents struct{}

func (noopEvents) Publish(eventType string, payload any) {}

type testServer struct {
	*HTTPServer
	repo *stubRepo
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	repo := &stubRepo{}
	logger := zerolog.New(io.Discard)
	svc := service.NewBookingService(repo, noopNotifier{}, noopEvents{}, "admin@example.com", 365, &logger)
	return &testServer{
		HTTPServer: NewHTTPServer(":0", svc, nil, testAPIKey, &logger),
		repo:       repo,
	}
}

// futureDate returns a date safely inside the booking horizon.
func futureDate() string {
	return time.Now().AddDate(0, 0, 7).Format("2006-01-02")
}

func submitBody(overrides map[string]any) []byte {
	body := map[string]any{
		"requester_name":  "Ana Souza",
		"requester_email": "ana@example.com",
		"date":            futureDate(),
		"start_time":      "09:00",
		"end_time":        "10:00",
		"subject":         "Sprint planning",
	}
	for k, v := range overrides {
		if v == nil {
			delete(body, k)
			continue
		}
		body[k] = v
	}
	b, _ := json.Marshal(body)
	return b
}

func doJSON(t *testing.T, srv *testServer, method, path string, body []byte, apiKey string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-Api-Key", apiKey)
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestHandleSubmitBooking_Validation(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name       string
		body       []byte
		wantStatus int
		wantError  string
	}{
		{
			name:       "invalid JSON",
			body:       []byte("not json"),
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid JSON body",
		},
		{
			name:       "unknown field",
			body:       submitBody(map[string]any{"room": "blue"}),
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid JSON body",
		},
		{
			name:       "missing date",
			body:       submitBody(map[string]any{"date": nil}),
			wantStatus: http.StatusBadRequest,
			wantError:  "date is required",
		},
		{
			name:       "bad date format",
			body:       submitBody(map[string]any{"date": "01/06/2025"}),
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid date format; expected YYYY-MM-DD",
		},
		{
			name:       "inverted window",
			body:       submitBody(map[string]any{"start_time": "11:00", "end_time": "10:00"}),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing requester name",
			body:       submitBody(map[string]any{"requester_name": ""}),
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid requester_name: required",
		},
		{
			name:       "bad email",
			body:       submitBody(map[string]any{"requester_email": "not-an-address"}),
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid requester_email: not a valid address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, srv, http.MethodPost, "/api/v1/bookings", tt.body, "")
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantError != "" {
				var resp ErrorResponse
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("unmarshal error response: %v", err)
				}
				if resp.Error != tt.wantError {
					t.Errorf("error = %q, want %q", resp.Error, tt.wantError)
				}
			}
		})
	}
}

func TestHandleSubmitBooking_Success(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/bookings", submitBody(nil), "")
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d (body %s)", w.Code, http.StatusCreated, w.Body.String())
	}

	var booking models.Booking
	if err := json.Unmarshal(w.Body.Bytes(), &booking); err != nil {
		t.Fatalf("unmarshal booking: %v", err)
	}
	if booking.ID == "" {
		t.Error("booking ID not assigned")
	}
	if booking.Status != models.StatusPending {
		t.Errorf("status = %q, want %q", booking.Status, models.StatusPending)
	}
}

func TestHandleDecision(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/bookings", submitBody(nil), "")
	if w.Code != http.StatusCreated {
		t.Fatalf("submit failed: %d %s", w.Code, w.Body.String())
	}
	var booking models.Booking
	if err := json.Unmarshal(w.Body.Bytes(), &booking); err != nil {
		t.Fatalf("unmarshal booking: %v", err)
	}

	approvePath := fmt.Sprintf("/api/v1/bookings/%s/approve", booking.ID)

	t.Run("requires API key", func(t *testing.T) {
		w := doJSON(t, srv, http.MethodPost, approvePath, nil, "")
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})

	t.Run("wrong API key", func(t *testing.T) {
		w := doJSON(t, srv, http.MethodPost, approvePath, nil, "wrong-key")
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})

	t.Run("unknown booking", func(t *testing.T) {
		w := doJSON(t, srv, http.MethodPost, "/api/v1/bookings/missing/approve", nil, testAPIKey)
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
		}
	})

	t.Run("unknown action", func(t *testing.T) {
		w := doJSON(t, srv, http.MethodPost, fmt.Sprintf("/api/v1/bookings/%s/cancel", booking.ID), nil, testAPIKey)
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
		}
	})

	t.Run("approve", func(t *testing.T) {
		w := doJSON(t, srv, http.MethodPost, approvePath, nil, testAPIKey)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d (body %s)", w.Code, http.StatusOK, w.Body.String())
		}
	})

	t.Run("second decision conflicts", func(t *testing.T) {
		w := doJSON(t, srv, http.MethodPost, fmt.Sprintf("/api/v1/bookings/%s/reject", booking.ID), nil, testAPIKey)
		if w.Code != http.StatusConflict {
			t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
		}
	})

	t.Run("overlapping submission conflicts", func(t *testing.T) {
		w := doJSON(t, srv, http.MethodPost, "/api/v1/bookings", submitBody(map[string]any{
			"requester_email": "bruno@example.com",
			"start_time":      "09:30",
			"end_time":        "10:30",
		}), "")
		if w.Code != http.StatusConflict {
			t.Errorf("status = %d, want %d (body %s)", w.Code, http.StatusConflict, w.Body.String())
		}
	})
}

func TestHandleListBookings(t *testing.T) {
	srv := newTestServer(t)

	for _, windows := range [][2]string{{"09:00", "09:30"}, {"11:00", "11:30"}} {
		w := doJSON(t, srv, http.MethodPost, "/api/v1/bookings", submitBody(map[string]any{
			"start_time": windows[0],
			"end_time":   windows[1],
		}), "")
		if w.Code != http.StatusCreated {
			t.Fatalf("submit failed: %d %s", w.Code, w.Body.String())
		}
	}

	t.Run("all", func(t *testing.T) {
		w := doJSON(t, srv, http.MethodGet, "/api/v1/bookings", nil, "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		var resp struct {
			Bookings []models.Booking `json:"bookings"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if len(resp.Bookings) != 2 {
			t.Errorf("got %d bookings, want 2", len(resp.Bookings))
		}
	})

	t.Run("status filter", func(t *testing.T) {
		w := doJSON(t, srv, http.MethodGet, "/api/v1/bookings?status=approved", nil, "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		var resp struct {
			Bookings []models.Booking `json:"bookings"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if len(resp.Bookings) != 0 {
			t.Errorf("got %d approved bookings, want 0", len(resp.Bookings))
		}
	})

	t.Run("unknown status", func(t *testing.T) {
		w := doJSON(t, srv, http.MethodGet, "/api/v1/bookings?status=archived", nil, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("bad date filter", func(t *testing.T) {
		w := doJSON(t, srv, http.MethodGet, "/api/v1/bookings?date=yesterday", nil, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

func TestHandleCalendar(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/bookings", submitBody(nil), "")
	if w.Code != http.StatusCreated {
		t.Fatalf("submit failed: %d %s", w.Code, w.Body.String())
	}
	var booking models.Booking
	if err := json.Unmarshal(w.Body.Bytes(), &booking); err != nil {
		t.Fatalf("unmarshal booking: %v", err)
	}

	rangeQuery := fmt.Sprintf("start=%s&end=%s", futureDate(), futureDate())

	t.Run("pending bookings excluded", func(t *testing.T) {
		w := doJSON(t, srv, http.MethodGet, "/api/v1/calendar?"+rangeQuery, nil, "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d (body %s)", w.Code, w.Body.String())
		}
		var resp struct {
			Events []service.CalendarEvent `json:"events"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if len(resp.Events) != 0 {
			t.Errorf("got %d events, want 0 before approval", len(resp.Events))
		}
	})

	t.Run("approved bookings shown", func(t *testing.T) {
		w := doJSON(t, srv, http.MethodPost, fmt.Sprintf("/api/v1/bookings/%s/approve", booking.ID), nil, testAPIKey)
		if w.Code != http.StatusOK {
			t.Fatalf("approve failed: %d %s", w.Code, w.Body.String())
		}

		w = doJSON(t, srv, http.MethodGet, "/api/v1/calendar?"+rangeQuery, nil, "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		var resp struct {
			Events []service.CalendarEvent `json:"events"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if len(resp.Events) != 1 {
			t.Fatalf("got %d events, want 1", len(resp.Events))
		}
		if resp.Events[0].Title != "Sprint planning (Ana Souza)" {
			t.Errorf("title = %q", resp.Events[0].Title)
		}
	})

	t.Run("missing range", func(t *testing.T) {
		w := doJSON(t, srv, http.MethodGet, "/api/v1/calendar", nil, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("inverted range", func(t *testing.T) {
		end := time.Now().AddDate(0, 0, 1).Format("2006-01-02")
		w := doJSON(t, srv, http.MethodGet, fmt.Sprintf("/api/v1/calendar?start=%s&end=%s", futureDate(), end), nil, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

func TestHandleExport(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/bookings", submitBody(nil), "")
	if w.Code != http.StatusCreated {
		t.Fatalf("submit failed: %d %s", w.Code, w.Body.String())
	}

	t.Run("requires API key", func(t *testing.T) {
		w := doJSON(t, srv, http.MethodGet, "/api/v1/export", nil, "")
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})

	t.Run("streams workbook", func(t *testing.T) {
		w := doJSON(t, srv, http.MethodGet, "/api/v1/export", nil, testAPIKey)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		if ct := w.Header().Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
			t.Errorf("content type = %q", ct)
		}
		if w.Body.Len() == 0 {
			t.Error("empty export body")
		}
	})
}
