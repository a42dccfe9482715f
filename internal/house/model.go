// Package house provides the house model and its SQLite-backed calendar store.
package house

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/evcraddock/house-calendar/internal/calendar"
)

// DefaultCapacity is used for houses created without an explicit capacity.
const DefaultCapacity = 10

// ErrNotFound is returned when a house lookup matches nothing.
var ErrNotFound = calendar.ErrNotFound

// House is a rentable unit with its own calendar.
type House struct {
	ID            int64                   `json:"id"`
	Name          string                  `json:"name"`
	Code          string                  `json:"code,omitempty"`
	ExternalCode  string                  `json:"externalCode,omitempty"`
	Capacity      int                     `json:"capacity"`
	Zone          string                  `json:"zone"`
	Prices        calendar.Prices         `json:"prices,omitempty"`
	WeekdayPrices calendar.WeekdayMapping `json:"weekdayPrices,omitempty"`
	LastSyncAt    *time.Time              `json:"lastSyncAt,omitempty"`
	CreatedAt     time.Time               `json:"createdAt"`
	UpdatedAt     time.Time               `json:"updatedAt"`
}

// scanHouse scans a house from a database row. Prices are not loaded.
func scanHouse(row interface{ Scan(...interface{}) error }) (*House, error) {
	var h House
	var weekdayJSON string
	var lastSync sql.NullTime

	err := row.Scan(
		&h.ID, &h.Name, &h.Code, &h.ExternalCode, &h.Capacity, &h.Zone,
		&weekdayJSON, &lastSync, &h.CreatedAt, &h.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastSync.Valid {
		t := lastSync.Time.UTC()
		h.LastSyncAt = &t
	}
	if weekdayJSON != "" && weekdayJSON != "{}" {
		var m calendar.WeekdayMapping
		if err := json.Unmarshal([]byte(weekdayJSON), &m); err == nil {
			h.WeekdayPrices = m
		}
	}

	return &h, nil
}

// scanRecord scans one calendar_days row.
func scanRecord(row interface{ Scan(...interface{}) error }) (string, calendar.PriceRecord, error) {
	var date, status, source string
	var rec calendar.PriceRecord
	var manualAt, lastSync sql.NullTime

	err := row.Scan(&date, &rec.Price, &status, &rec.IsHoliday, &rec.Manual, &manualAt, &source, &lastSync)
	if err != nil {
		return "", rec, err
	}

	rec.Status = calendar.Status(status)
	rec.Source = calendar.Source(source)
	if rec.Source == "" {
		rec.Source = calendar.SourceUnset
	}
	if manualAt.Valid {
		t := manualAt.Time.UTC()
		rec.ManualAt = &t
	}
	if lastSync.Valid {
		t := lastSync.Time.UTC()
		rec.LastSyncAt = &t
	}

	return date, rec, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
