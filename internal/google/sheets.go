// Package google mirrors the booking collection into a Google Sheets
// spreadsheet so the administrator keeps the familiar tabular view. The
// mirror is best-effort: SQLite stays the source of truth and a failed
// sync never affects the workflow.
package google

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"meetroom/internal/events"
	"meetroom/internal/metrics"
	"meetroom/internal/models"
	"meetroom/internal/service"
)

// statusColumn is the named column holding the booking status. Updates go
// to this column by letter, never by offset from another cell.
const statusColumn = "J"

// syncTimeout bounds one Sheets API call issued from an event handler.
const syncTimeout = 20 * time.Second

var headerRow = []interface{}{
	"ID", "Name", "Email", "Date", "Start", "End",
	"Subject", "Participants", "Notes", "Status", "Created At", "Equipment",
}

// SheetsService pushes booking rows to one worksheet. A row cache maps
// booking IDs to sheet rows so status updates avoid rescanning the ID
// column on every decision.
type SheetsService struct {
	svc           *sheets.Service
	spreadsheetID string
	sheetName     string

	rowCache map[string]int
	cacheMu  sync.Mutex

	// dispatch runs one sync task off the publisher's goroutine, so a slow
	// Sheets call never delays the operation that raised the event.
	dispatch func(func())

	logger *zerolog.Logger
}

// NewSheetsService authenticates with a service account credentials file
// and binds to the given spreadsheet and worksheet.
func NewSheetsService(ctx context.Context, credentialsFile, spreadsheetID, sheetName string, logger *zerolog.Logger) (*SheetsService, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	conf, err := google.JWTConfigFromJSON(data, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	svc, err := sheets.NewService(ctx, option.WithHTTPClient(conf.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("sheets client: %w", err)
	}

	return &SheetsService{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		rowCache:      make(map[string]int),
		dispatch:      func(task func()) { go task() },
		logger:        logger,
	}, nil
}

// Subscribe attaches the mirror to booking lifecycle events.
func (s *SheetsService) Subscribe(bus *events.Bus) {
	bus.Subscribe(service.EventBookingCreated, func(e events.Event) {
		booking, ok := e.Payload.(*models.Booking)
		if !ok {
			return
		}
		s.dispatch(func() {
			ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
			defer cancel()
			if err := s.AppendBooking(ctx, booking); err != nil {
				metrics.IncSheetsSyncFailure()
				s.logger.Warn().Err(err).Str("booking_id", booking.ID).Msg("sheets append failed")
			}
		})
	})

	onDecision := func(e events.Event) {
		booking, ok := e.Payload.(*models.Booking)
		if !ok {
			return
		}
		s.dispatch(func() {
			ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
			defer cancel()
			if err := s.UpdateStatus(ctx, booking.ID, booking.Status); err != nil {
				metrics.IncSheetsSyncFailure()
				s.logger.Warn().Err(err).Str("booking_id", booking.ID).Msg("sheets status update failed")
			}
		})
	}
	bus.Subscribe(service.EventBookingApproved, onDecision)
	bus.Subscribe(service.EventBookingRejected, onDecision)
}

// EnsureHeader writes the header row if the sheet is empty.
func (s *SheetsService) EnsureHeader(ctx context.Context) error {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.sheetName+"!1:1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if len(resp.Values) > 0 {
		return nil
	}
	vr := &sheets.ValueRange{Values: [][]interface{}{headerRow}}
	_, err = s.svc.Spreadsheets.Values.
		Update(s.spreadsheetID, s.sheetName+"!A1", vr).
		ValueInputOption("RAW").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return nil
}

// AppendBooking adds one booking row to the sheet.
func (s *SheetsService) AppendBooking(ctx context.Context, b *models.Booking) error {
	vr := &sheets.ValueRange{Values: [][]interface{}{bookingRowValues(b)}}
	resp, err := s.svc.Spreadsheets.Values.
		Append(s.spreadsheetID, s.sheetName+"!A:L", vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append booking %s: %w", b.ID, err)
	}

	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		if row, ok := rowFromRange(resp.Updates.UpdatedRange); ok {
			s.setCachedRow(b.ID, row)
		}
	}
	return nil
}

// UpdateStatus writes the new status into the status column of the row
// holding the booking ID.
func (s *SheetsService) UpdateStatus(ctx context.Context, id, status string) error {
	row, ok := s.getCachedRow(id)
	if !ok {
		var err error
		row, err = s.findRow(ctx, id)
		if err != nil {
			return err
		}
	}

	cell := fmt.Sprintf("%s!%s%d", s.sheetName, statusColumn, row)
	vr := &sheets.ValueRange{Values: [][]interface{}{{status}}}
	_, err := s.svc.Spreadsheets.Values.
		Update(s.spreadsheetID, cell, vr).
		ValueInputOption("RAW").
		Context(ctx).Do()
	if err != nil {
		// The cached row may be stale after manual sheet edits.
		s.deleteCachedRow(id)
		return fmt.Errorf("update status of %s: %w", id, err)
	}
	return nil
}

// findRow scans the ID column for the booking and caches the hit.
func (s *SheetsService) findRow(ctx context.Context, id string) (int, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.sheetName+"!A:A").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("scan id column: %w", err)
	}
	for i, rowValues := range resp.Values {
		if len(rowValues) > 0 && fmt.Sprint(rowValues[0]) == id {
			row := i + 1
			s.setCachedRow(id, row)
			return row, nil
		}
	}
	return 0, fmt.Errorf("booking %s: %w", id, models.ErrNotFound)
}

func bookingRowValues(b *models.Booking) []interface{} {
	return []interface{}{
		b.ID,
		b.RequesterName,
		b.RequesterEmail,
		b.Date.Format("2006-01-02"),
		b.Window.Start.String(),
		b.Window.End.String(),
		b.Subject,
		b.Participants,
		b.Notes,
		b.Status,
		b.CreatedAt.Format("2006-01-02 15:04:05"),
		b.EquipmentList(),
	}
}

// rowFromRange extracts the row number of the first cell reference in an
// A1 range like "Bookings!A7:L7". The sheet name before the '!' is skipped
// entirely; names like "Sheet1" contain digits that are not row numbers.
func rowFromRange(a1 string) (int, bool) {
	if i := strings.LastIndexByte(a1, '!'); i >= 0 {
		a1 = a1[i+1:]
	}
	row := 0
	seen := false
	for i := 0; i < len(a1); i++ {
		c := a1[i]
		if c >= '0' && c <= '9' {
			row = row*10 + int(c-'0')
			seen = true
			continue
		}
		if seen {
			break
		}
	}
	return row, seen && row > 0
}

func (s *SheetsService) setCachedRow(id string, row int) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache[id] = row
}

func (s *SheetsService) getCachedRow(id string) (int, bool) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	row, ok := s.rowCache[id]
	return row, ok
}

func (s *SheetsService) deleteCachedRow(id string) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	delete(s.rowCache, id)
}

// ClearCache drops all cached row positions.
func (s *SheetsService) ClearCache() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache = make(map[string]int)
}
