package sheet

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/amarjeet4296/hcn-email-management/internal/booking"
	"github.com/amarjeet4296/hcn-email-management/internal/logger"
)

// dateColumns hold calendar dates; Excel stores them as serial numbers
var dateColumns = map[string]bool{
	booking.ColFromDate:    true,
	booking.ColToDate:      true,
	booking.ColBookingDate: true,
}

// timestampColumns hold workflow timestamps
var timestampColumns = map[string]bool{
	booking.ColEmailSentTime: true,
	booking.ColReminderTime:  true,
}

// Workbook is a booking.Store backed by an .xlsx file
type Workbook struct {
	path      string
	sheet     string
	headerRow int

	mu sync.Mutex
}

// NewWorkbook creates a store for the given file and sheet. headerRow is
// 1-based; data starts on the following row.
func NewWorkbook(path, sheet string, headerRow int) *Workbook {
	if headerRow < 1 {
		headerRow = 1
	}
	return &Workbook{path: path, sheet: sheet, headerRow: headerRow}
}

// Path returns the workbook file path
func (w *Workbook) Path() string {
	return w.path
}

// ReadAll reads every non-blank data row in sheet order
func (w *Workbook) ReadAll(ctx context.Context) ([]booking.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", booking.ErrStoreUnavailable, err)
	}
	defer f.Close()

	rows, err := f.GetRows(w.sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: sheet %q: %v", booking.ErrStoreUnavailable, w.sheet, err)
	}
	if len(rows) < w.headerRow {
		return nil, fmt.Errorf("%w: sheet %q has no header row %d", booking.ErrStoreUnavailable, w.sheet, w.headerRow)
	}

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	return w.parseRows(rows, date1904), nil
}

// WriteBack writes the tracked columns of the given records, creating any
// missing tracked column in the header row. Other columns are untouched.
func (w *Workbook) WriteBack(ctx context.Context, changed []booking.Record) error {
	if len(changed) == 0 {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return fmt.Errorf("%w: %v", booking.ErrStoreUnavailable, err)
	}
	defer f.Close()

	rows, err := f.GetRows(w.sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return fmt.Errorf("%w: sheet %q: %v", booking.ErrStoreUnavailable, w.sheet, err)
	}
	if len(rows) < w.headerRow {
		return fmt.Errorf("%w: sheet %q has no header row %d", booking.ErrStoreUnavailable, w.sheet, w.headerRow)
	}

	header := trimAll(rows[w.headerRow-1])
	columns := make(map[string]int, len(header))
	maxCol := 0
	for idx, name := range header {
		if name == "" {
			continue
		}
		columns[name] = idx + 1
		maxCol = idx + 1
	}

	for _, name := range booking.TrackedColumns {
		if _, ok := columns[name]; ok {
			continue
		}
		maxCol++
		columns[name] = maxCol
		cell, err := excelize.CoordinatesToCellName(maxCol, w.headerRow)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(w.sheet, cell, name); err != nil {
			return fmt.Errorf("add column %s: %w", name, err)
		}
	}

	rowBySerial := make(map[int]int)
	for _, rec := range w.parseRows(rows, false) {
		rowBySerial[rec.Serial] = rec.Row
	}

	written := 0
	for _, rec := range changed {
		if err := ctx.Err(); err != nil {
			return err
		}
		rowNum, ok := rowBySerial[rec.Serial]
		if !ok {
			logger.WithModule("sheet").Warnf("Booking %d not found in sheet, skipping write", rec.Serial)
			continue
		}
		for name, value := range rec.TrackedValues() {
			cell, err := excelize.CoordinatesToCellName(columns[name], rowNum)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(w.sheet, cell, value); err != nil {
				return fmt.Errorf("write %s for booking %d: %w", name, rec.Serial, err)
			}
		}
		written++
	}

	if err := f.Save(); err != nil {
		return fmt.Errorf("%w: save: %v", booking.ErrStoreUnavailable, err)
	}

	logger.WithModule("sheet").Infof("Saved %d booking(s) to %s", written, w.path)
	return nil
}

// parseRows turns the data rows into records. Blank rows are skipped and a
// duplicate SrNo is replaced by the row number, so ReadAll and WriteBack
// always agree on where a serial lives.
func (w *Workbook) parseRows(rows [][]string, date1904 bool) []booking.Record {
	header := trimAll(rows[w.headerRow-1])
	records := make([]booking.Record, 0, len(rows)-w.headerRow)
	seen := make(map[int]int)

	for i := w.headerRow; i < len(rows); i++ {
		rowNum := i + 1
		fields := make(map[string]string, len(header))
		blank := true
		for col, name := range header {
			if name == "" {
				continue
			}
			val := ""
			if col < len(rows[i]) {
				val = strings.TrimSpace(rows[i][col])
			}
			if val != "" {
				blank = false
			}
			fields[name] = normalizeCell(name, val, date1904)
		}
		if blank {
			continue
		}

		rec := recordFromFields(fields, rowNum)
		if prev, dup := seen[rec.Serial]; dup {
			logger.WithModule("sheet").Warnf("Duplicate SrNo %d on rows %d and %d, using row number", rec.Serial, prev, rowNum)
			rec.Serial = rowNum
		}
		seen[rec.Serial] = rowNum
		records = append(records, rec)
	}
	return records
}

func recordFromFields(fields map[string]string, rowNum int) booking.Record {
	serial, ok := parseSerial(fields[booking.ColSerial])
	if !ok {
		serial = rowNum
	}
	return booking.Record{
		Row:               rowNum,
		Serial:            serial,
		Status:            fields[booking.ColStatus],
		GuestName:         fields[booking.ColGuestName],
		HotelName:         fields[booking.ColHotelName],
		CityName:          fields[booking.ColCityName],
		CountryName:       fields[booking.ColCountryName],
		FromDate:          fields[booking.ColFromDate],
		ToDate:            fields[booking.ColToDate],
		RoomType:          fields[booking.ColRoomType],
		NoOfRooms:         fields[booking.ColNoOfRooms],
		NoOfPax:           fields[booking.ColNoOfPax],
		SupplierName:      fields[booking.ColSupplierName],
		OurReference:      fields[booking.ColFileNo],
		SupplierReference: fields[booking.ColSupplierRef],
		SupplierHCN:       fields[booking.ColSupplierHCN],
		AgentName:         fields[booking.ColAgentName],
		AgentEmail:        fields[booking.ColAgentEmail],
		BookingDate:       fields[booking.ColBookingDate],
		EmailSent:         fields[booking.ColEmailSent],
		EmailSentAt:       fields[booking.ColEmailSentTime],
		ReminderSent:      fields[booking.ColReminderSent],
		ReminderSentAt:    fields[booking.ColReminderTime],
		Issue:             booking.ParseIssue(fields[booking.ColIssue]),
		Fields:            fields,
	}
}

// normalizeCell converts Excel serial dates in date and timestamp columns
func normalizeCell(column, val string, date1904 bool) string {
	if val == "" || (!dateColumns[column] && !timestampColumns[column]) {
		return val
	}
	serial, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return val
	}
	t, err := excelize.ExcelDateToTime(serial, date1904)
	if err != nil {
		return val
	}
	if timestampColumns[column] || serial != math.Trunc(serial) {
		return t.Format(booking.TimeLayout)
	}
	return t.Format("2006-01-02")
}

func parseSerial(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

func trimAll(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.TrimSpace(c)
	}
	return out
}
