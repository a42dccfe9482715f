package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/evcraddock/house-calendar/internal/dateutil"
)

// Mutation receives a house's current calendar and returns the records
// to write back. It must not modify current.
type Mutation func(current Prices) (Prices, error)

// Store is the persistence contract the calendar writers rely on.
type Store interface {
	// UpdatePrices runs m against the house's calendar as one
	// read-merge-write and returns the full calendar afterwards.
	// It returns an error wrapping ErrNotFound for an unknown house.
	UpdatePrices(ctx context.Context, houseID int64, m Mutation) (Prices, error)
	// SaveWeekdayPrices records the last weekday mapping applied.
	SaveWeekdayPrices(ctx context.Context, houseID int64, m WeekdayMapping) error
}

// Service runs the administrator-facing calendar operations.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates a calendar service.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// SetClock overrides the time source used for manualAt.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// ApplyWeekdayPricing sets prices by weekday across a range. Holiday
// dates keep their price. Status, manual and source are never changed.
func (s *Service) ApplyWeekdayPricing(ctx context.Context, houseID int64, r RangeSpec, mapping WeekdayMapping) (Prices, error) {
	start, end, err := r.Resolve()
	if err != nil {
		return nil, err
	}
	if err := mapping.Validate(); err != nil {
		return nil, err
	}

	prices, err := s.store.UpdatePrices(ctx, houseID, func(current Prices) (Prices, error) {
		patch := Prices{}
		for day := range dateutil.DaysInclusive(start, end) {
			price, ok := mapping[dateutil.WeekdayOf(day)]
			if !ok || !price.Valid {
				continue
			}
			date := dateutil.Format(day)
			if rec, changed := applyWeekdayPrice(current.Get(date), price.Decimal); changed {
				patch[date] = rec
			}
		}
		return patch, nil
	})
	if err != nil {
		return nil, fmt.Errorf("applying weekday prices to house %d: %w", houseID, err)
	}

	if err := s.store.SaveWeekdayPrices(ctx, houseID, mapping); err != nil {
		return nil, fmt.Errorf("saving weekday prices for house %d: %w", houseID, err)
	}

	return prices, nil
}

// ApplyHolidayPricing sets a fixed price on each target date and flags
// it as a holiday. Status is preserved.
func (s *Service) ApplyHolidayPricing(ctx context.Context, houseID int64, req HolidayRequest) (Prices, error) {
	dates, err := req.targets()
	if err != nil {
		return nil, err
	}

	prices, err := s.store.UpdatePrices(ctx, houseID, func(current Prices) (Prices, error) {
		patch := make(Prices, len(dates))
		for _, date := range dates {
			patch[date] = applyHolidayPrice(current.Get(date), req.Price.Decimal)
		}
		return patch, nil
	})
	if err != nil {
		return nil, fmt.Errorf("applying holiday prices to house %d: %w", houseID, err)
	}
	return prices, nil
}

// SetManual pins a date's status (and optionally price) so that feed
// writers leave it alone until ClearManual. A blank status means available.
func (s *Service) SetManual(ctx context.Context, houseID int64, date string, price decimal.NullDecimal, status Status) (Prices, error) {
	day, err := dateutil.Parse(date)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if status == "" {
		status = StatusAvailable
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	if price.Valid && price.Decimal.IsNegative() {
		return nil, fmt.Errorf("%w: price is negative", ErrValidation)
	}

	key := dateutil.Format(day)
	now := s.now().UTC()
	prices, err := s.store.UpdatePrices(ctx, houseID, func(current Prices) (Prices, error) {
		return Prices{key: setManual(current.Get(key), price, status, now)}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("setting manual override on house %d %s: %w", houseID, key, err)
	}
	return prices, nil
}

// ClearManual releases a date so the feed may overwrite it again.
// Price and status stay as last set. Clearing a date that has no
// record is a no-op.
func (s *Service) ClearManual(ctx context.Context, houseID int64, date string) (Prices, error) {
	day, err := dateutil.Parse(date)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	key := dateutil.Format(day)
	prices, err := s.store.UpdatePrices(ctx, houseID, func(current Prices) (Prices, error) {
		rec, ok := current[key]
		if !ok {
			return nil, nil
		}
		return Prices{key: clearManual(rec)}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("clearing manual override on house %d %s: %w", houseID, key, err)
	}
	return prices, nil
}
