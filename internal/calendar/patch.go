package calendar

import (
	"time"

	"github.com/shopspring/decimal"
)

// Each writer changes a record only through one of these functions.
// Precedence between writers is decided here and nowhere else.

// applyWeekdayPrice sets the price unless the date is a holiday.
func applyWeekdayPrice(r PriceRecord, price decimal.Decimal) (PriceRecord, bool) {
	if r.IsHoliday {
		return r, false
	}
	r.Price = decimal.NewNullDecimal(price)
	return r, true
}

// applyHolidayPrice sets the price and marks the date as a holiday.
func applyHolidayPrice(r PriceRecord, price decimal.Decimal) PriceRecord {
	r.Price = decimal.NewNullDecimal(price)
	r.IsHoliday = true
	return r
}

// setManual claims the date for the administrator.
func setManual(r PriceRecord, price decimal.NullDecimal, status Status, now time.Time) PriceRecord {
	if price.Valid {
		r.Price = price
	}
	r.Status = status
	r.Manual = true
	r.ManualAt = &now
	r.Source = SourceManual
	return r
}

// clearManual releases the date back to automated writers.
func clearManual(r PriceRecord) PriceRecord {
	r.Manual = false
	r.ManualAt = nil
	r.Source = SourceUnset
	return r
}

// ApplyFeedStatus applies a feed-reported status to r. Records owned by
// the administrator are returned unchanged with applied set to false.
func ApplyFeedStatus(r PriceRecord, status Status, now time.Time) (rec PriceRecord, applied bool) {
	if r.Manual {
		return r, false
	}
	r.Status = status
	r.Source = SourceScraper
	r.LastSyncAt = &now
	return r, true
}
