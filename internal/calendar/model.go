// Package calendar holds the per-house date calendar and the operations
// that write to it: bulk weekday and holiday pricing and the manual
// override gate. Feed-driven writes go through ApplyFeedStatus.
package calendar

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices are plain JSON numbers on the wire.
	decimal.MarshalJSONWithoutQuotes = true
}

// Status is the occupancy state of a date.
type Status string

const (
	StatusAvailable Status = "available"
	StatusBooked    Status = "booked"
	StatusClosed    Status = "closed"
)

// Valid returns true if s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusBooked, StatusClosed:
		return true
	}
	return false
}

// ParseStatus validates an enumerated status value. Blank input means
// available. Free text is not accepted here; see package normalize.
func ParseStatus(s string) (Status, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return StatusAvailable, nil
	}
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: unknown status %q (want available, booked or closed)", ErrValidation, s)
	}
	return st, nil
}

// Source records which writer last set a date's status.
type Source string

const (
	SourceUnset   Source = "unset"
	SourceManual  Source = "manual"
	SourceScraper Source = "scraper"
)

// Ownership is the provenance state of a date.
type Ownership string

const (
	OwnershipUnset   Ownership = "unset"
	OwnershipScraper Ownership = "scraper-owned"
	OwnershipManual  Ownership = "manual-owned"
)

// PriceRecord is the calendar entry for one date.
type PriceRecord struct {
	Price      decimal.NullDecimal `json:"price"`
	Status     Status              `json:"status"`
	IsHoliday  bool                `json:"isHoliday"`
	Manual     bool                `json:"manual"`
	ManualAt   *time.Time          `json:"manualAt,omitempty"`
	Source     Source              `json:"source"`
	LastSyncAt *time.Time          `json:"lastSyncAt,omitempty"`
}

// NewRecord returns the record implied for a date that was never written.
func NewRecord() PriceRecord {
	return PriceRecord{Status: StatusAvailable, Source: SourceUnset}
}

// Ownership derives the provenance state of the record.
func (r PriceRecord) Ownership() Ownership {
	switch {
	case r.Manual:
		return OwnershipManual
	case r.Source == SourceScraper:
		return OwnershipScraper
	default:
		return OwnershipUnset
	}
}

// Prices maps canonical date strings to records.
type Prices map[string]PriceRecord

// Get returns the record for date, or a fresh record if none exists.
func (p Prices) Get(date string) PriceRecord {
	if r, ok := p[date]; ok {
		return r
	}
	return NewRecord()
}

// Dates returns the dates in p in ascending order.
func (p Prices) Dates() []string {
	return slices.Sorted(maps.Keys(p))
}

// Merge copies every record of patch into p.
func (p Prices) Merge(patch Prices) {
	maps.Copy(p, patch)
}

// AvailableDates returns the sorted dates whose status is available.
func (p Prices) AvailableDates() []string {
	var out []string
	for _, d := range p.Dates() {
		if p[d].Status == StatusAvailable {
			out = append(out, d)
		}
	}
	return out
}
