// Package export renders the booking collection as an Excel workbook for
// the administrator.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"meetroom/internal/models"
)

const sheetName = "Bookings"

var columns = []string{
	"ID", "Requester", "Email", "Date", "Start", "End",
	"Subject", "Participants", "Equipment", "Notes", "Status", "Created At",
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
		b.EquipmentList(),
		b.Notes,
		b.Status,
		b.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// BuildWorkbook produces a single-sheet workbook with one row per booking.
func BuildWorkbook(bookings []models.Booking) (*excelize.File, error) {
	file := excelize.NewFile()
	file.SetSheetName("Sheet1", sheetName)

	if err := writeRow(file, 1, toCells(columns)); err != nil {
		return nil, err
	}
	if style, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		start, _ := excelize.CoordinatesToCellName(1, 1)
		end, _ := excelize.CoordinatesToCellName(len(columns), 1)
		_ = file.SetCellStyle(sheetName, start, end, style)
	}

	for i := range bookings {
		if err := writeRow(file, i+2, bookingRowValues(&bookings[i])); err != nil {
			return nil, err
		}
	}
	return file, nil
}

// WriteBookings builds the workbook and streams it to w.
func WriteBookings(w io.Writer, bookings []models.Booking) error {
	file, err := BuildWorkbook(bookings)
	if err != nil {
		return err
	}
	defer file.Close()
	return file.Write(w)
}

func writeRow(file *excelize.File, row int, values []interface{}) error {
	for i, val := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := file.SetCellValue(sheetName, cell, val); err != nil {
			return fmt.Errorf("set cell %s: %w", cell, err)
		}
	}
	return nil
}

func toCells(headers []string) []interface{} {
	out := make([]interface{}, len(headers))
	for i, h := range headers {
		out[i] = h
	}
	return out
}
