package service

import (
	"context"
	"time"

	"meetroom/internal/models"
)

// Repository is the storage contract the workflow needs. The collection is
// owned entirely by the implementation; the workflow re-reads it at the
// start of every operation instead of caching.
type Repository interface {
	// FetchAll returns the current full booking collection, any order.
	FetchAll(ctx context.Context) ([]models.Booking, error)

	// Append stores a new booking.
	Append(ctx context.Context, booking *models.Booking) error

	// UpdateStatus sets the status of an existing booking. Returns
	// models.ErrNotFound when the ID is absent.
	UpdateStatus(ctx context.Context, id, status string) error
}

// Notifier delivers a message to a single address. Failures are reported
// but never abort the operation that triggered the notification.
type Notifier interface {
	Notify(ctx context.Context, to, subject, bodyHTML string) error
}

// EventPublisher announces booking lifecycle events to in-process subscribers.
type EventPublisher interface {
	Publish(eventType string, payload interface{})
}

// Clock supplies the current time; injected so date validation is testable.
type Clock interface {
	Now() time.Time
}

// RealClock is the production Clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// Principal identifies the caller of an administrative operation. The
// workflow does not check credentials itself; the transport layer
// authenticates and sets Admin.
type Principal struct {
	Name  string
	Admin bool
}
