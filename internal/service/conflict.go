package service

import (
	"time"

	"meetroom/internal/models"
)

// HasConflict reports whether the candidate window overlaps any approved
// booking on the given date. Only approved, same-date records participate,
// regardless of what the caller passes in. Pending and rejected bookings
// never block a candidate, so several pending requests may compete for one
// slot until one is approved.
func HasConflict(existing []models.Booking, date time.Time, window models.TimeWindow) bool {
	for i := range existing {
		b := &existing[i]
		if b.Status != models.StatusApproved {
			continue
		}
		if !models.SameDate(b.Date, date) {
			continue
		}
		if window.Overlaps(b.Window) {
			return true
		}
	}
	return false
}
