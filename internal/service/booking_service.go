package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"meetroom/internal/metrics"
	"meetroom/internal/models"
)

// Event types published on the bus.
const (
	EventBookingCreated  = "booking.created"
	EventBookingApproved = "booking.approved"
	EventBookingRejected = "booking.rejected"
)

// SubmitRequest carries a new reservation request.
type SubmitRequest struct {
	RequesterName  string
	RequesterEmail string
	Date           time.Time
	Window         models.TimeWindow
	Subject        string
	Participants   string
	Equipment      []string
	Notes          string
}

// BookingService implements the reservation workflow: submission with
// conflict checking, and the one-way pending -> approved/rejected
// transitions. It holds no state between calls; every operation re-reads
// the collection through the repository.
type BookingService struct {
	repo       Repository
	notifier   Notifier
	events     EventPublisher
	clock      Clock
	adminEmail string
	maxAdvance time.Duration // 0 disables the guard
	logger     *zerolog.Logger
}

// NewBookingService wires the workflow to its gateways. maxAdvanceDays
// limits how far ahead a room can be requested; 0 means no limit.
func NewBookingService(repo Repository, notifier Notifier, events EventPublisher, adminEmail string, maxAdvanceDays int, logger *zerolog.Logger) *BookingService {
	svc := &BookingService{
		repo:       repo,
		notifier:   notifier,
		events:     events,
		clock:      RealClock{},
		adminEmail: adminEmail,
		logger:     logger,
	}
	if maxAdvanceDays > 0 {
		svc.maxAdvance = time.Duration(maxAdvanceDays) * 24 * time.Hour
	}
	return svc
}

// WithClock replaces the clock, for tests.
func (s *BookingService) WithClock(clock Clock) *BookingService {
	s.clock = clock
	return s
}

func (s *BookingService) validateSubmit(req *SubmitRequest) error {
	if strings.TrimSpace(req.RequesterName) == "" {
		return invalidField("requester_name", "required")
	}
	if strings.TrimSpace(req.RequesterEmail) == "" {
		return invalidField("requester_email", "required")
	}
	if _, err := mail.ParseAddress(req.RequesterEmail); err != nil {
		return invalidField("requester_email", "not a valid address")
	}
	if strings.TrimSpace(req.Subject) == "" {
		return invalidField("subject", "required")
	}
	if req.Window.IsZero() || req.Window.Start >= req.Window.End {
		return invalidField("window", "end must be after start")
	}
	if req.Date.IsZero() {
		return invalidField("date", "required")
	}
	today := models.NormalizeDate(s.clock.Now())
	date := models.NormalizeDate(req.Date)
	if date.Before(today) {
		return invalidField("date", "cannot book in the past")
	}
	if s.maxAdvance > 0 && date.After(today.Add(s.maxAdvance)) {
		return invalidField("date", "too far in the future")
	}
	for _, tag := range req.Equipment {
		if !models.KnownEquipment(tag) {
			return invalidField("equipment", "unknown tag "+tag)
		}
	}
	return nil
}

// Submit validates the request, checks it against the approved set and
// stores a new pending booking. Validation and the conflict check both run
// before any write, so a failed submission leaves no partial state.
// Notifications to the requester and the administrator are best-effort and
// independent of each other.
func (s *BookingService) Submit(ctx context.Context, req SubmitRequest) (*models.Booking, error) {
	if err := s.validateSubmit(&req); err != nil {
		metrics.IncSubmission("invalid")
		return nil, err
	}

	all, err := s.repo.FetchAll(ctx)
	if err != nil {
		metrics.IncSubmission("error")
		return nil, storageErr("fetch", err)
	}
	date := models.NormalizeDate(req.Date)
	if HasConflict(all, date, req.Window) {
		metrics.IncSubmission("conflict")
		return nil, ErrConflict
	}

	booking := &models.Booking{
		ID:             uuid.NewString(),
		RequesterName:  strings.TrimSpace(req.RequesterName),
		RequesterEmail: strings.TrimSpace(req.RequesterEmail),
		Date:           date,
		Window:         req.Window,
		Subject:        strings.TrimSpace(req.Subject),
		Participants:   req.Participants,
		Equipment:      req.Equipment,
		Notes:          req.Notes,
		Status:         models.StatusPending,
		CreatedAt:      s.clock.Now(),
	}

	if err := s.repo.Append(ctx, booking); err != nil {
		metrics.IncSubmission("error")
		return nil, storageErr("append", err)
	}

	s.logger.Info().
		Str("booking_id", booking.ID).
		Str("date", booking.Date.Format("2006-01-02")).
		Str("window", booking.Window.String()).
		Msg("booking submitted")
	metrics.IncSubmission("accepted")
	s.publish(EventBookingCreated, booking)

	subject, body := requestReceivedMail(booking)
	s.notify(ctx, booking.RequesterEmail, subject, body)

	subject, body = awaitingDecisionMail(booking)
	s.notify(ctx, s.adminEmail, subject, body)

	return booking, nil
}

// Approve moves a pending booking to approved. The conflict check is re-run
// against the current approved set right before the status write: another
// administrator may have approved an overlapping request since this one was
// submitted, and the last caller must detect that instead of corrupting the
// schedule. On conflict the booking stays pending.
func (s *BookingService) Approve(ctx context.Context, actor Principal, id string) error {
	if !actor.Admin {
		return ErrUnauthorized
	}

	all, err := s.repo.FetchAll(ctx)
	if err != nil {
		return storageErr("fetch", err)
	}
	booking := findByID(all, id)
	if booking == nil {
		return models.ErrNotFound
	}
	if booking.Status != models.StatusPending {
		return ErrInvalidTransition
	}
	if HasConflict(all, booking.Date, booking.Window) {
		metrics.IncDecision("conflict")
		return ErrConflict
	}

	if err := s.repo.UpdateStatus(ctx, id, models.StatusApproved); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		return storageErr("update status", err)
	}
	booking.Status = models.StatusApproved

	s.logger.Info().
		Str("booking_id", id).
		Str("admin", actor.Name).
		Msg("booking approved")
	metrics.IncDecision("approved")
	s.publish(EventBookingApproved, booking)

	subject, body := approvedMail(booking)
	s.notify(ctx, booking.RequesterEmail, subject, body)
	return nil
}

// Reject moves a pending booking to rejected. Rejection can never create a
// scheduling conflict, so no re-check is needed.
func (s *BookingService) Reject(ctx context.Context, actor Principal, id string) error {
	if !actor.Admin {
		return ErrUnauthorized
	}

	all, err := s.repo.FetchAll(ctx)
	if err != nil {
		return storageErr("fetch", err)
	}
	booking := findByID(all, id)
	if booking == nil {
		return models.ErrNotFound
	}
	if booking.Status != models.StatusPending {
		return ErrInvalidTransition
	}

	if err := s.repo.UpdateStatus(ctx, id, models.StatusRejected); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		return storageErr("update status", err)
	}
	booking.Status = models.StatusRejected

	s.logger.Info().
		Str("booking_id", id).
		Str("admin", actor.Name).
		Msg("booking rejected")
	metrics.IncDecision("rejected")
	s.publish(EventBookingRejected, booking)

	subject, body := rejectedMail(booking)
	s.notify(ctx, booking.RequesterEmail, subject, body)
	return nil
}

// ListFilter narrows ListBookings output.
type ListFilter struct {
	Status string
	Date   *time.Time
}

// ListBookings returns bookings matching the filter, for the admin panel
// and the calendar view.
func (s *BookingService) ListBookings(ctx context.Context, filter ListFilter) ([]models.Booking, error) {
	all, err := s.repo.FetchAll(ctx)
	if err != nil {
		return nil, storageErr("fetch", err)
	}
	out := make([]models.Booking, 0, len(all))
	for _, b := range all {
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		if filter.Date != nil && !models.SameDate(b.Date, *filter.Date) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

// CalendarEvent is an approved booking rendered for the calendar view.
type CalendarEvent struct {
	Title string    `json:"title"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Color string    `json:"color"`
}

// CalendarEvents returns approved bookings in [from, to] as calendar events.
func (s *BookingService) CalendarEvents(ctx context.Context, from, to time.Time) ([]CalendarEvent, error) {
	all, err := s.repo.FetchAll(ctx)
	if err != nil {
		return nil, storageErr("fetch", err)
	}
	from = models.NormalizeDate(from)
	to = models.NormalizeDate(to)

	events := make([]CalendarEvent, 0)
	for i := range all {
		b := &all[i]
		if b.Status != models.StatusApproved {
			continue
		}
		if b.Date.Before(from) || b.Date.After(to) {
			continue
		}
		events = append(events, CalendarEvent{
			Title: b.Subject + " (" + b.RequesterName + ")",
			Start: b.StartAt(),
			End:   b.EndAt(),
			Color: "green",
		})
	}
	return events, nil
}

func findByID(bookings []models.Booking, id string) *models.Booking {
	for i := range bookings {
		if bookings[i].ID == id {
			return &bookings[i]
		}
	}
	return nil
}

// notify delivers one message best-effort. A delivery failure is logged and
// counted but never surfaces to the caller: the triggering state change has
// already been committed.
func (s *BookingService) notify(ctx context.Context, to, subject, body string) {
	if s.notifier == nil || to == "" {
		return
	}
	if err := s.notifier.Notify(ctx, to, subject, body); err != nil {
		metrics.IncNotifyFailure()
		s.logger.Warn().Err(err).Str("to", to).Str("subject", subject).Msg("notification failed")
	}
}

func (s *BookingService) publish(eventType string, booking *models.Booking) {
	if s.events == nil {
		return
	}
	s.events.Publish(eventType, booking)
}
