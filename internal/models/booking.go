package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Booking statuses. A booking starts as pending and is moved exactly once
// to approved or rejected by an administrator.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// ErrNotFound is returned by storage when no booking matches the given ID.
var ErrNotFound = errors.New("booking not found")

// Equipment tags a requester may ask for.
const (
	EquipProjector    = "projector"
	EquipWebcam       = "webcam"
	EquipWhiteboard   = "whiteboard"
	EquipRefreshments = "refreshments"
)

var equipmentTags = map[string]bool{
	EquipProjector:    true,
	EquipWebcam:       true,
	EquipWhiteboard:   true,
	EquipRefreshments: true,
}

// KnownEquipment reports whether tag is one of the supported equipment tags.
func KnownEquipment(tag string) bool {
	return equipmentTags[tag]
}

// Booking represents one meeting room reservation request.
// Only Status changes after creation.
type Booking struct {
	ID             string     `json:"id"`
	RequesterName  string     `json:"requester_name"`
	RequesterEmail string     `json:"requester_email"`
	Date           time.Time  `json:"date"`
	Window         TimeWindow `json:"window"`
	Subject        string     `json:"subject"`
	Participants   string     `json:"participants,omitempty"`
	Equipment      []string   `json:"equipment,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
}

// NormalizeDate strips the time-of-day component, keeping only the calendar date.
func NormalizeDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SameDate reports whether a and b fall on the same calendar date.
func SameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// OverlapsWith reports whether two bookings occupy overlapping time on the
// same date. Window boundaries are half-open, so back-to-back bookings do
// not overlap.
func (b *Booking) OverlapsWith(other *Booking) bool {
	if !SameDate(b.Date, other.Date) {
		return false
	}
	return b.Window.Overlaps(other.Window)
}

// StartAt returns the booking start as a full timestamp.
func (b *Booking) StartAt() time.Time {
	return b.Date.Add(time.Duration(b.Window.Start) * time.Minute)
}

// EndAt returns the booking end as a full timestamp.
func (b *Booking) EndAt() time.Time {
	return b.Date.Add(time.Duration(b.Window.End) * time.Minute)
}

// Duration returns the booked length of the window.
func (b *Booking) Duration() time.Duration {
	return time.Duration(b.Window.End-b.Window.Start) * time.Minute
}

// EquipmentList renders the equipment tags as a comma-separated string for
// storage and export.
func (b *Booking) EquipmentList() string {
	return strings.Join(b.Equipment, ", ")
}

// SplitEquipment parses a comma-separated equipment string back into tags.
func SplitEquipment(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

func (b *Booking) String() string {
	return fmt.Sprintf("%s %s %s %q (%s)", b.Date.Format("2006-01-02"), b.Window, b.RequesterName, b.Subject, b.Status)
}
