package calendar

import (
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/evcraddock/house-calendar/internal/dateutil"
)

// MaxRangeDays caps the number of dates one explicit range may cover.
const MaxRangeDays = 3 * 366

// RangeSpec selects a span of dates either by explicit endpoints or by
// a whole month. Exactly one form must be given.
type RangeSpec struct {
	Start string `json:"startDate,omitempty"`
	End   string `json:"endDate,omitempty"`
	Year  int    `json:"year,omitempty"`
	Month int    `json:"month,omitempty"`
}

// Resolve returns the first and last date of the range.
func (r RangeSpec) Resolve() (time.Time, time.Time, error) {
	hasDates := r.Start != "" || r.End != ""
	hasMonth := r.Year != 0 || r.Month != 0

	switch {
	case hasDates && hasMonth:
		return time.Time{}, time.Time{}, ErrRangeRequired
	case hasDates:
		if r.Start == "" || r.End == "" {
			return time.Time{}, time.Time{}, ErrRangeRequired
		}
		return parseRange(r.Start, r.End)
	case hasMonth:
		if r.Year == 0 || r.Month == 0 {
			return time.Time{}, time.Time{}, ErrRangeRequired
		}
		if r.Month < 1 || r.Month > 12 {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: month must be 1-12, got %d", ErrValidation, r.Month)
		}
		first, last := dateutil.MonthBounds(r.Year, time.Month(r.Month))
		return first, last, nil
	default:
		return time.Time{}, time.Time{}, ErrRangeRequired
	}
}

func parseRange(start, end string) (time.Time, time.Time, error) {
	s, err := dateutil.Parse(start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: startDate: %v", ErrValidation, err)
	}
	e, err := dateutil.Parse(end)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: endDate: %v", ErrValidation, err)
	}
	if days := int(e.Sub(s)/(24*time.Hour)) + 1; days > MaxRangeDays {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: range covers %d days, limit is %d", ErrValidation, days, MaxRangeDays)
	}
	return s, e, nil
}

// WeekdayMapping maps a weekday index (0 = Sunday) to a price.
// A null entry leaves that weekday unchanged.
type WeekdayMapping map[int]decimal.NullDecimal

// Validate checks that m is non-empty, keyed by 0-6, and has no
// negative prices.
func (m WeekdayMapping) Validate() error {
	if len(m) == 0 {
		return fmt.Errorf("%w: weekday price mapping is required", ErrValidation)
	}
	for day, p := range m {
		if day < 0 || day > 6 {
			return fmt.Errorf("%w: weekday must be 0-6, got %d", ErrValidation, day)
		}
		if p.Valid && p.Decimal.IsNegative() {
			return fmt.Errorf("%w: price for weekday %d is negative", ErrValidation, day)
		}
	}
	return nil
}

// HolidayRequest assigns one price to a set of dates, given either as
// an explicit list or as a start/end range.
type HolidayRequest struct {
	Dates []string            `json:"dates,omitempty"`
	Start string              `json:"startDate,omitempty"`
	End   string              `json:"endDate,omitempty"`
	Price decimal.NullDecimal `json:"price"`
}

// targets validates the request and returns the canonical dates it covers.
func (h HolidayRequest) targets() ([]string, error) {
	if !h.Price.Valid {
		return nil, fmt.Errorf("%w: price is required", ErrValidation)
	}
	if h.Price.Decimal.IsNegative() {
		return nil, fmt.Errorf("%w: price is negative", ErrValidation)
	}

	hasRange := h.Start != "" || h.End != ""
	switch {
	case len(h.Dates) > 0 && hasRange:
		return nil, fmt.Errorf("%w: provide either dates or startDate/endDate, not both", ErrValidation)
	case len(h.Dates) > 0:
		var out []string
		for _, d := range h.Dates {
			t, err := dateutil.Parse(d)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrValidation, err)
			}
			if s := dateutil.Format(t); !slices.Contains(out, s) {
				out = append(out, s)
			}
		}
		return out, nil
	case hasRange:
		if h.Start == "" || h.End == "" {
			return nil, fmt.Errorf("%w: both startDate and endDate are required", ErrValidation)
		}
		start, end, err := parseRange(h.Start, h.End)
		if err != nil {
			return nil, err
		}
		var out []string
		for d := range dateutil.DaysInclusive(start, end) {
			out = append(out, dateutil.Format(d))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: dates or startDate/endDate are required", ErrValidation)
	}
}
