// Package feedsync merges external booking events into house calendars
// without overwriting dates an administrator has pinned.
package feedsync

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/google/uuid"

	"github.com/evcraddock/house-calendar/internal/calendar"
	"github.com/evcraddock/house-calendar/internal/house"
	"github.com/evcraddock/house-calendar/internal/normalize"
)

// Fetcher returns the raw feed rows.
type Fetcher interface {
	Fetch(ctx context.Context) ([]normalize.Row, error)
}

// Store is the house persistence the merger needs.
type Store interface {
	FindByCode(ctx context.Context, code string) (*house.House, error)
	FindByName(ctx context.Context, name string) (*house.House, error)
	Create(ctx context.Context, h *house.House) (*house.House, error)
	SetCode(ctx context.Context, houseID int64, code string) error
	UpdatePrices(ctx context.Context, houseID int64, m calendar.Mutation) (calendar.Prices, error)
	MarkSynced(ctx context.Context, houseID int64, at time.Time) error
}

// Options configures a Merger.
type Options struct {
	// Workers is the number of houses merged concurrently. Values below
	// 2 merge sequentially.
	Workers int
	// Capacity is assigned to houses created by a merge.
	Capacity int
	Logger   *slog.Logger
}

// Merger runs feed synchronisation.
type Merger struct {
	fetcher  Fetcher
	store    Store
	workers  int
	capacity int
	logger   *slog.Logger
	now      func() time.Time
}

// NewMerger creates a merger. fetcher may be nil when only Merge is used.
func NewMerger(fetcher Fetcher, store Store, opts Options) *Merger {
	if opts.Capacity <= 0 {
		opts.Capacity = house.DefaultCapacity
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Merger{
		fetcher:  fetcher,
		store:    store,
		workers:  opts.Workers,
		capacity: opts.Capacity,
		logger:   opts.Logger,
		now:      time.Now,
	}
}

// SetClock overrides the time source.
func (m *Merger) SetClock(now func() time.Time) {
	m.now = now
}

// Summary reports what a run did.
type Summary struct {
	RunID         uuid.UUID    `json:"runId"`
	StartedAt     time.Time    `json:"startedAt"`
	FinishedAt    time.Time    `json:"finishedAt"`
	RowsFetched   int          `json:"rowsFetched"`
	RowsDiscarded int          `json:"rowsDiscarded"`
	DaysSkipped   int          `json:"daysSkipped"`
	EventsApplied int          `json:"eventsApplied"`
	HousesUpdated int          `json:"housesUpdated"`
	HousesCreated int          `json:"housesCreated"`
	SkippedManual int          `json:"skippedManual"`
	Errors        []HouseError `json:"errors"`
}

// Run fetches the feed and merges it. A fetch failure returns a
// *SyncError and leaves every house untouched. Per-house failures are
// reported in the summary.
func (m *Merger) Run(ctx context.Context) (*Summary, error) {
	runID := uuid.New()
	started := m.now().UTC()

	if m.fetcher == nil {
		return nil, &SyncError{RunID: runID, Err: errors.New("no feed configured")}
	}

	rows, err := m.fetcher.Fetch(ctx)
	if err != nil {
		m.logger.Error("feed sync aborted", "run_id", runID, "err", err)
		return nil, &SyncError{RunID: runID, Err: err}
	}

	res := normalize.Rows(rows)
	for _, pe := range res.Discarded {
		m.logger.Debug("discarded feed row", "run_id", runID, "err", pe)
	}

	sum := m.merge(ctx, runID, started, res.Events)
	sum.RowsFetched = len(rows)
	sum.RowsDiscarded = len(res.Discarded)
	sum.DaysSkipped = len(res.SkippedDays)

	m.logger.Info("feed sync complete",
		"run_id", runID,
		"rows", sum.RowsFetched,
		"discarded", sum.RowsDiscarded,
		"houses_updated", sum.HousesUpdated,
		"houses_created", sum.HousesCreated,
		"skipped_manual", sum.SkippedManual,
		"errors", len(sum.Errors),
		"duration", sum.FinishedAt.Sub(sum.StartedAt).String(),
	)
	return sum, nil
}

// Merge applies already-normalized events, as the spreadsheet importer does.
func (m *Merger) Merge(ctx context.Context, events []normalize.BookingEvent) *Summary {
	return m.merge(ctx, uuid.New(), m.now().UTC(), events)
}

type group struct {
	key    string
	name   string
	code   string
	events []normalize.BookingEvent
}

type houseResult struct {
	created bool
	applied int
	skipped int
	err     *HouseError
}

// groupEvents buckets events by resolution key in first-seen order.
func groupEvents(events []normalize.BookingEvent) []*group {
	var groups []*group
	index := map[string]*group{}
	for _, ev := range events {
		k := ev.Key()
		g, ok := index[k]
		if !ok {
			g = &group{key: k, name: ev.HouseName, code: ev.HouseCode}
			index[k] = g
			groups = append(groups, g)
		}
		g.events = append(g.events, ev)
	}
	return groups
}

func (m *Merger) merge(ctx context.Context, runID uuid.UUID, started time.Time, events []normalize.BookingEvent) *Summary {
	sum := &Summary{RunID: runID, StartedAt: started, Errors: []HouseError{}}
	groups := groupEvents(events)
	now := m.now().UTC()

	var mu sync.Mutex
	record := func(r houseResult) {
		mu.Lock()
		defer mu.Unlock()
		if r.err != nil {
			sum.Errors = append(sum.Errors, *r.err)
			m.logger.Warn("merging house failed", "run_id", runID, "key", r.err.Key, "err", r.err.Message)
			return
		}
		sum.HousesUpdated++
		if r.created {
			sum.HousesCreated++
		}
		sum.EventsApplied += r.applied
		sum.SkippedManual += r.skipped
	}

	if m.workers > 1 && len(groups) > 1 {
		wp := workerpool.New(m.workers)
		for _, g := range groups {
			wp.Submit(func() {
				record(m.mergeGroup(ctx, g, now))
			})
		}
		wp.StopWait()
	} else {
		for _, g := range groups {
			record(m.mergeGroup(ctx, g, now))
		}
	}

	slices.SortFunc(sum.Errors, func(a, b HouseError) int {
		return cmp.Compare(a.Key, b.Key)
	})
	sum.FinishedAt = m.now().UTC()
	return sum
}

func (m *Merger) mergeGroup(ctx context.Context, g *group, now time.Time) houseResult {
	if err := ctx.Err(); err != nil {
		return houseResult{err: ptr(newHouseError(g.key, 0, err))}
	}

	h, created, err := m.resolve(ctx, g)
	if err != nil {
		return houseResult{err: ptr(newHouseError(g.key, 0, err))}
	}

	var applied, skipped int
	_, err = m.store.UpdatePrices(ctx, h.ID, func(current calendar.Prices) (calendar.Prices, error) {
		applied, skipped = 0, 0
		patch := calendar.Prices{}
		for _, ev := range g.events {
			rec, ok := patch[ev.Date]
			if !ok {
				rec = current.Get(ev.Date)
			}
			rec, ok = calendar.ApplyFeedStatus(rec, ev.Status, now)
			if !ok {
				skipped++
				continue
			}
			patch[ev.Date] = rec
			applied++
		}
		return patch, nil
	})
	if err != nil {
		return houseResult{err: ptr(newHouseError(g.key, h.ID, fmt.Errorf("writing prices: %w", err)))}
	}

	if err := m.store.MarkSynced(ctx, h.ID, now); err != nil {
		return houseResult{err: ptr(newHouseError(g.key, h.ID, fmt.Errorf("marking synced: %w", err)))}
	}

	return houseResult{created: created, applied: applied, skipped: skipped}
}

// resolve finds the group's house by exact code, then exact name, and
// creates it when neither matches.
func (m *Merger) resolve(ctx context.Context, g *group) (*house.House, bool, error) {
	if g.code != "" {
		h, err := m.store.FindByCode(ctx, g.code)
		if err == nil {
			return h, false, nil
		}
		if !errors.Is(err, house.ErrNotFound) {
			return nil, false, fmt.Errorf("finding house by code: %w", err)
		}
	}

	if g.name != "" {
		h, err := m.store.FindByName(ctx, g.name)
		if err == nil {
			if h.Code == "" && g.code != "" {
				if err := m.store.SetCode(ctx, h.ID, g.code); err != nil {
					return nil, false, fmt.Errorf("backfilling house code: %w", err)
				}
				h.Code = g.code
			}
			return h, false, nil
		}
		if !errors.Is(err, house.ErrNotFound) {
			return nil, false, fmt.Errorf("finding house by name: %w", err)
		}
	}

	name := cmp.Or(g.name, g.code, "Unnamed")
	h, err := m.store.Create(ctx, &house.House{Name: name, Code: g.code, Capacity: m.capacity})
	if err != nil {
		return nil, false, fmt.Errorf("creating house: %w", err)
	}
	m.logger.Info("created house from feed", "id", h.ID, "name", h.Name, "code", h.Code)
	return h, true, nil
}

func ptr[T any](v T) *T {
	return &v
}
