// Package dateutil handles canonical calendar dates.
//
// A civil date is represented as a time.Time at midnight UTC so that
// day arithmetic never crosses a DST or zone boundary.
package dateutil

import (
	"fmt"
	"iter"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Layout is the canonical date string format.
const Layout = "2006-01-02"

// buddhistEraOffset is the difference between Buddhist Era and Gregorian years.
const buddhistEraOffset = 543

// Date returns midnight UTC of the given civil date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Format renders t as YYYY-MM-DD.
func Format(t time.Time) string {
	return t.Format(Layout)
}

// Parse reads a canonical YYYY-MM-DD string.
func Parse(s string) (time.Time, error) {
	t, err := time.ParseInLocation(Layout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return t, nil
}

// Valid reports whether s is a canonical date string.
func Valid(s string) bool {
	t, err := time.ParseInLocation(Layout, s, time.UTC)
	return err == nil && t.Format(Layout) == s
}

// DaysInclusive yields every date from start to end, both ends included.
// The sequence is empty when start is after end, and may be ranged over
// more than once.
func DaysInclusive(start, end time.Time) iter.Seq[time.Time] {
	start = truncate(start)
	end = truncate(end)
	return func(yield func(time.Time) bool) {
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			if !yield(d) {
				return
			}
		}
	}
}

// WeekdayOf returns the weekday index of t: 0 is Sunday, 6 is Saturday.
func WeekdayOf(t time.Time) int {
	return int(t.Weekday())
}

// BuddhistToGregorianYear converts a Buddhist Era year to Gregorian.
func BuddhistToGregorianYear(n int) int {
	return n - buddhistEraOffset
}

// MonthBounds returns the first and last day of the given month.
func MonthBounds(year int, month time.Month) (time.Time, time.Time) {
	first := Date(year, month, 1)
	return first, first.AddDate(0, 1, -1)
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	_, last := MonthBounds(year, month)
	return last.Day()
}

var digitRun = regexp.MustCompile(`\d+`)

var thaiDigits = strings.NewReplacer(
	"๐", "0", "๑", "1", "๒", "2", "๓", "3", "๔", "4",
	"๕", "5", "๖", "6", "๗", "7", "๘", "8", "๙", "9",
)

// FoldThaiDigits replaces Thai digits with their ASCII equivalents.
func FoldThaiDigits(s string) string {
	return thaiDigits.Replace(s)
}

// ExtractDayNumbers returns every integer found in cell, in order of
// appearance, with repeated values dropped. Thai digits are accepted.
// No range validation is done here.
func ExtractDayNumbers(cell string) []int {
	var days []int
	for _, m := range digitRun.FindAllString(FoldThaiDigits(cell), -1) {
		n, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		if slices.Contains(days, n) {
			continue
		}
		days = append(days, n)
	}
	return days
}

func truncate(t time.Time) time.Time {
	return Date(t.Year(), t.Month(), t.Day())
}
