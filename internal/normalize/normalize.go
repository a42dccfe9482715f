// Package normalize turns spreadsheet and feed rows into per-date
// booking events.
package normalize

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/evcraddock/house-calendar/internal/calendar"
	"github.com/evcraddock/house-calendar/internal/dateutil"
)

// thaiMonths holds the full Thai month names, January first.
var thaiMonths = [12]string{
	"มกราคม", "กุมภาพันธ์", "มีนาคม", "เมษายน", "พฤษภาคม", "มิถุนายน",
	"กรกฎาคม", "สิงหาคม", "กันยายน", "ตุลาคม", "พฤศจิกายน", "ธันวาคม",
}

var fourDigits = regexp.MustCompile(`\d{4}`)

// BookingEvent is one normalized status report for one house and date.
type BookingEvent struct {
	HouseName string          `json:"houseName"`
	HouseCode string          `json:"houseCode,omitempty"`
	Date      string          `json:"date"`
	Status    calendar.Status `json:"status"`
	RawStatus string          `json:"rawStatus,omitempty"`
}

// Key is the grouping key used to resolve the event's house: the code
// when present, otherwise the name.
func (e BookingEvent) Key() string {
	if e.HouseCode != "" {
		return "code:" + e.HouseCode
	}
	return "name:" + e.HouseName
}

// ParseError describes input that could not be normalized.
type ParseError struct {
	Row    int
	Field  Field
	Value  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("row %d: %s %q: %s", e.Row, e.Field, e.Value, e.Reason)
}

// Result is the outcome of normalizing a batch of rows.
type Result struct {
	Events []BookingEvent
	// Discarded holds one error per row that produced no events.
	Discarded []*ParseError
	// SkippedDays holds day numbers dropped from otherwise valid rows.
	SkippedDays []*ParseError
}

// Rows normalizes every row. Bad rows are collected, never fatal.
func Rows(rows []Row) Result {
	var res Result
	for i, row := range rows {
		events, skipped, err := normalizeRow(i, row)
		if err != nil {
			res.Discarded = append(res.Discarded, err)
			continue
		}
		res.Events = append(res.Events, events...)
		res.SkippedDays = append(res.SkippedDays, skipped...)
	}
	return res
}

// MonthYear resolves text such as "มกราคม 2569" to a Gregorian year and month.
func MonthYear(text string) (int, time.Month, error) {
	month := time.Month(0)
	for i, name := range thaiMonths {
		if strings.Contains(text, name) {
			month = time.Month(i + 1)
			break
		}
	}
	if month == 0 {
		return 0, 0, errors.New("no Thai month name")
	}

	m := fourDigits.FindString(dateutil.FoldThaiDigits(text))
	if m == "" {
		return 0, 0, errors.New("no 4-digit year")
	}
	be, err := strconv.Atoi(m)
	if err != nil {
		return 0, 0, fmt.Errorf("parsing year: %w", err)
	}
	return dateutil.BuddhistToGregorianYear(be), month, nil
}

func normalizeRow(i int, row Row) ([]BookingEvent, []*ParseError, *ParseError) {
	name := Lookup(row, FieldHouseName)
	if name == "" {
		return nil, nil, &ParseError{Row: i, Field: FieldHouseName, Reason: "missing"}
	}
	monthText := Lookup(row, FieldMonthYear)
	if monthText == "" {
		return nil, nil, &ParseError{Row: i, Field: FieldMonthYear, Reason: "missing"}
	}
	year, month, err := MonthYear(monthText)
	if err != nil {
		return nil, nil, &ParseError{Row: i, Field: FieldMonthYear, Value: monthText, Reason: err.Error()}
	}

	code := Lookup(row, FieldHouseCode)
	rawStatus := Lookup(row, FieldStatus)
	status := Status(rawStatus)
	dayText := Lookup(row, FieldDays)
	last := dateutil.DaysIn(year, month)

	var events []BookingEvent
	var skipped []*ParseError
	for _, day := range dateutil.ExtractDayNumbers(dayText) {
		if day < 1 || day > 31 {
			skipped = append(skipped, &ParseError{Row: i, Field: FieldDays, Value: strconv.Itoa(day), Reason: "outside 1-31"})
			continue
		}
		if day > last {
			skipped = append(skipped, &ParseError{Row: i, Field: FieldDays, Value: strconv.Itoa(day), Reason: fmt.Sprintf("%s has %d days", month, last)})
			continue
		}
		events = append(events, BookingEvent{
			HouseName: name,
			HouseCode: code,
			Date:      dateutil.Format(dateutil.Date(year, month, day)),
			Status:    status,
			RawStatus: rawStatus,
		})
	}

	if len(events) == 0 {
		return nil, nil, &ParseError{Row: i, Field: FieldDays, Value: dayText, Reason: "no valid day numbers"}
	}
	return events, skipped, nil
}
