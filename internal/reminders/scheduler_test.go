package reminders

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetroom/internal/models"
)

type listRepo struct {
	bookings []models.Booking
}

func (r *listRepo) FetchAll(ctx context.Context) ([]models.Booking, error) {
	return r.bookings, nil
}

func (r *listRepo) Append(ctx context.Context, b *models.Booking) error { return nil }

func (r *listRepo) UpdateStatus(ctx context.Context, id, status string) error { return nil }

type recordingNotifier struct {
	mu    sync.Mutex
	sent  []string
	fails int
}

func (n *recordingNotifier) Notify(ctx context.Context, to, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fails > 0 {
		n.fails--
		return errors.New("smtp unavailable")
	}
	n.sent = append(n.sent, to)
	return nil
}

func booking(id, email, status string, date time.Time) models.Booking {
	window, _ := models.ParseTimeWindow("09:00", "10:00")
	return models.Booking{
		ID:             id,
		RequesterName:  "Ana Souza",
		RequesterEmail: email,
		Date:           date,
		Window:         window,
		Subject:        "Planning",
		Status:         status,
	}
}

func TestDueTomorrow(t *testing.T) {
	now := time.Date(2025, 6, 1, 15, 30, 0, 0, time.UTC)
	tomorrow := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	today := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	later := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)

	bookings := []models.Booking{
		booking("a", "a@example.com", models.StatusApproved, tomorrow),
		booking("b", "b@example.com", models.StatusPending, tomorrow),
		booking("c", "c@example.com", models.StatusApproved, today),
		booking("d", "d@example.com", models.StatusApproved, later),
		booking("e", "e@example.com", models.StatusRejected, tomorrow),
	}

	due := DueTomorrow(bookings, now)
	require.Len(t, due, 1)
	assert.Equal(t, "a", due[0].ID)
}

func newTestScheduler(t *testing.T, repo *listRepo, notifier *recordingNotifier) *Scheduler {
	t.Helper()
	cfg := DefaultConfig()
	cfg.RetryDelay = time.Millisecond
	logger := zerolog.New(io.Discard)
	s, err := NewScheduler(cfg, repo, notifier, &logger)
	require.NoError(t, err)
	return s
}

func TestRunNow_SendsDueReminders(t *testing.T) {
	tomorrow := models.NormalizeDate(time.Now()).AddDate(0, 0, 1)
	repo := &listRepo{bookings: []models.Booking{
		booking("a", "a@example.com", models.StatusApproved, tomorrow),
		booking("b", "b@example.com", models.StatusPending, tomorrow),
	}}
	notifier := &recordingNotifier{}

	s := newTestScheduler(t, repo, notifier)
	s.RunNow(context.Background())

	assert.Equal(t, []string{"a@example.com"}, notifier.sent)
}

func TestSendWithRetry_RecoversFromTransientFailure(t *testing.T) {
	tomorrow := models.NormalizeDate(time.Now()).AddDate(0, 0, 1)
	repo := &listRepo{bookings: []models.Booking{
		booking("a", "a@example.com", models.StatusApproved, tomorrow),
	}}
	notifier := &recordingNotifier{fails: 1}

	s := newTestScheduler(t, repo, notifier)
	s.RunNow(context.Background())

	assert.Equal(t, []string{"a@example.com"}, notifier.sent)
}

func TestSendWithRetry_GivesUpAfterRetries(t *testing.T) {
	tomorrow := models.NormalizeDate(time.Now()).AddDate(0, 0, 1)
	repo := &listRepo{bookings: []models.Booking{
		booking("a", "a@example.com", models.StatusApproved, tomorrow),
	}}
	notifier := &recordingNotifier{fails: 10}

	s := newTestScheduler(t, repo, notifier)
	s.RunNow(context.Background())

	assert.Empty(t, notifier.sent)
}

func TestSchedulerStartStop(t *testing.T) {
	repo := &listRepo{}
	notifier := &recordingNotifier{}
	s := newTestScheduler(t, repo, notifier)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	require.Eventually(t, s.IsRunning, time.Second, 5*time.Millisecond)
	s.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.False(t, s.IsRunning())
}
