package reminders

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"meetroom/internal/models"
	"meetroom/internal/service"
)

// Config holds the reminder scheduler settings.
type Config struct {
	// Timezone the daily run time is interpreted in (e.g. "America/Sao_Paulo").
	Timezone string
	// DailyHour is the hour (0-23) when reminders go out.
	DailyHour int
	// DailyMinute is the minute (0-59) when reminders go out.
	DailyMinute int
	// CheckInterval is how often to check whether it is time to run.
	CheckInterval time.Duration
	// Retries is how many times a failed send is retried.
	Retries int
	// RetryDelay is the pause between retries.
	RetryDelay time.Duration
}

// DefaultConfig returns the default scheduler settings: remind at 08:00 UTC
// for meetings happening the next day.
func DefaultConfig() Config {
	return Config{
		Timezone:      "UTC",
		DailyHour:     8,
		DailyMinute:   0,
		CheckInterval: time.Minute,
		Retries:       2,
		RetryDelay:    5 * time.Second,
	}
}

// Scheduler mails requesters of approved bookings the day before their
// meeting. It runs once per day; delivery failures are retried a few times
// and then dropped, never blocking the next day's run.
type Scheduler struct {
	config   Config
	repo     service.Repository
	notifier service.Notifier
	location *time.Location
	logger   *zerolog.Logger

	mu          sync.Mutex
	lastRunDate string // YYYY-MM-DD of last run
	running     bool
	stopCh      chan struct{}
}

// NewScheduler builds a reminder scheduler over the booking storage and the
// notification channel.
func NewScheduler(config Config, repo service.Repository, notifier service.Notifier, logger *zerolog.Logger) (*Scheduler, error) {
	loc, err := time.LoadLocation(config.Timezone)
	if err != nil {
		return nil, fmt.Errorf("reminder timezone: %w", err)
	}

	return &Scheduler{
		config:   config,
		repo:     repo,
		notifier: notifier,
		location: loc,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}, nil
}

// Start begins the scheduler loop and blocks until the context is cancelled
// or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info().
		Str("timezone", s.config.Timezone).
		Str("daily_time", fmt.Sprintf("%02d:%02d", s.config.DailyHour, s.config.DailyMinute)).
		Msg("reminder scheduler started")

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("reminder scheduler stopped by context")
			return
		case <-s.stopCh:
			s.logger.Info().Msg("reminder scheduler stopped")
			return
		case <-ticker.C:
			s.checkAndRun(ctx)
		}
	}
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.running {
		s.running = false
		close(s.stopCh)
	}
	s.mu.Unlock()
}

// IsRunning reports whether the scheduler loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) checkAndRun(ctx context.Context) {
	now := time.Now().In(s.location)
	today := now.Format("2006-01-02")

	s.mu.Lock()
	alreadyRan := s.lastRunDate == today
	s.mu.Unlock()

	if alreadyRan {
		return
	}
	if now.Hour() != s.config.DailyHour || now.Minute() != s.config.DailyMinute {
		return
	}

	s.mu.Lock()
	s.lastRunDate = today
	s.mu.Unlock()

	s.processReminders(ctx, now)
}

// RunNow forces an immediate reminder pass, regardless of the daily time.
func (s *Scheduler) RunNow(ctx context.Context) {
	s.logger.Info().Msg("manual reminder processing triggered")
	s.processReminders(ctx, time.Now().In(s.location))
}

func (s *Scheduler) processReminders(ctx context.Context, now time.Time) {
	start := time.Now()

	all, err := s.repo.FetchAll(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to fetch bookings for reminders")
		return
	}

	due := DueTomorrow(all, now)
	s.logger.Info().Int("count", len(due)).Msg("found bookings due tomorrow")

	sent, failed := 0, 0
	for i := range due {
		select {
		case <-ctx.Done():
			s.logger.Info().
				Int("processed", sent+failed).
				Int("remaining", len(due)-sent-failed).
				Msg("reminder processing interrupted")
			return
		default:
		}

		if err := s.sendWithRetry(ctx, &due[i]); err != nil {
			failed++
		} else {
			sent++
		}
	}

	s.logger.Info().
		Int("total", len(due)).
		Int("sent", sent).
		Int("failed", failed).
		Dur("duration", time.Since(start)).
		Msg("daily reminders processed")
}

func (s *Scheduler) sendWithRetry(ctx context.Context, b *models.Booking) error {
	subject, body := reminderMail(b)

	var lastErr error
	for attempt := 0; attempt <= s.config.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(s.config.RetryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = s.notifier.Notify(ctx, b.RequesterEmail, subject, body)
		if lastErr == nil {
			s.logger.Info().Str("booking_id", b.ID).Str("to", b.RequesterEmail).Msg("reminder sent")
			return nil
		}
		s.logger.Warn().Err(lastErr).
			Str("booking_id", b.ID).
			Int("attempt", attempt+1).
			Msg("reminder send failed")
	}

	s.logger.Error().Err(lastErr).Str("booking_id", b.ID).Msg("reminder retries exhausted")
	return lastErr
}

// DueTomorrow returns the approved bookings scheduled for the calendar day
// after now.
func DueTomorrow(bookings []models.Booking, now time.Time) []models.Booking {
	tomorrow := models.NormalizeDate(now).AddDate(0, 0, 1)
	var due []models.Booking
	for _, b := range bookings {
		if b.Status != models.StatusApproved {
			continue
		}
		if !models.SameDate(b.Date, tomorrow) {
			continue
		}
		due = append(due, b)
	}
	return due
}

func reminderMail(b *models.Booking) (subject, body string) {
	subject = "Reminder: your meeting is tomorrow"
	body = fmt.Sprintf(`<h3>Hello, %s!</h3>
<p>This is a reminder of your meeting room reservation tomorrow.</p>
<ul>
<li><strong>Date:</strong> %s</li>
<li><strong>Time:</strong> %s &ndash; %s</li>
<li><strong>Subject:</strong> %s</li>
</ul>`,
		b.RequesterName,
		b.Date.Format("02/01/2006"),
		b.Window.Start, b.Window.End,
		b.Subject,
	)
	return subject, body
}
