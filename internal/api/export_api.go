package api

import (
	"fmt"
	"net/http"
	"time"

	"meetroom/internal/export"
	"meetroom/internal/metrics"
	"meetroom/internal/service"
)

// handleExport streams the full booking log as an xlsx workbook.
// GET /api/v1/export
func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("export")

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	bookings, err := s.svc.ListBookings(r.Context(), service.ListFilter{})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	filename := fmt.Sprintf("bookings_%s.xlsx", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := export.WriteBookings(w, bookings); err != nil {
		s.log.Error().Err(err).Msg("failed to write export workbook")
	}
}
