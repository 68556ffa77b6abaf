package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"meetroom/internal/models"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

// DB stores booking records in SQLite and implements the workflow's
// Repository contract.
type DB struct {
	*sql.DB
	logger *zerolog.Logger
}

// NewDB opens (and if needed creates) the database at path.
func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// WAL mode and a busy timeout keep concurrent submitters and
	// administrators from tripping over each other.
	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	instance := &DB{DB: db, logger: logger}
	if err := instance.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("database initialized")
	return instance, nil
}

func (db *DB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS bookings (
			id TEXT PRIMARY KEY,
			requester_name TEXT NOT NULL,
			requester_email TEXT NOT NULL,
			date TEXT NOT NULL,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			subject TEXT NOT NULL,
			participants TEXT,
			equipment TEXT,
			notes TEXT,
			status TEXT NOT NULL DEFAULT 'pending',
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_date ON bookings(date)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_date_status ON bookings(date, status)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

// FetchAll returns the full booking collection.
func (db *DB) FetchAll(ctx context.Context) ([]models.Booking, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, requester_name, requester_email, date, start_time, end_time,
		       subject, participants, equipment, notes, status, created_at
		FROM bookings ORDER BY date, start_time`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

// Append stores a new booking.
func (db *DB) Append(ctx context.Context, b *models.Booking) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO bookings (id, requester_name, requester_email, date, start_time, end_time,
		                      subject, participants, equipment, notes, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.RequesterName, b.RequesterEmail,
		b.Date.Format("2006-01-02"),
		b.Window.Start.String(), b.Window.End.String(),
		b.Subject, b.Participants, b.EquipmentList(), b.Notes,
		b.Status, b.CreatedAt,
	)
	return err
}

// UpdateStatus sets the status of a booking by ID. The status is a named
// column; reports models.ErrNotFound when the ID is absent.
func (db *DB) UpdateStatus(ctx context.Context, id, status string) error {
	res, err := db.ExecContext(ctx,
		"UPDATE bookings SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrNotFound
	}
	return nil
}

// GetBooking returns one booking by ID, or models.ErrNotFound.
func (db *DB) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, requester_name, requester_email, date, start_time, end_time,
		       subject, participants, equipment, notes, status, created_at
		FROM bookings WHERE id = ?`, id)
	b, err := scanBooking(row)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(row scanner) (*models.Booking, error) {
	var b models.Booking
	var date, start, end string
	var participants, equipment, notes sql.NullString

	err := row.Scan(&b.ID, &b.RequesterName, &b.RequesterEmail, &date, &start, &end,
		&b.Subject, &participants, &equipment, &notes, &b.Status, &b.CreatedAt)
	if err != nil {
		return nil, err
	}

	b.Date, err = time.ParseInLocation("2006-01-02", date, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("booking %s: bad date %q: %w", b.ID, date, err)
	}
	b.Window, err = models.ParseTimeWindow(start, end)
	if err != nil {
		return nil, fmt.Errorf("booking %s: bad window: %w", b.ID, err)
	}
	b.Participants = participants.String
	b.Equipment = models.SplitEquipment(equipment.String)
	b.Notes = notes.String
	return &b, nil
}
