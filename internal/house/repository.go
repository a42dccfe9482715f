package house

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/evcraddock/house-calendar/internal/calendar"
	"github.com/evcraddock/house-calendar/internal/db"
)

// Repository provides house CRUD and calendar persistence.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a house repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const selectColumns = `id, name, code, external_code, capacity, zone, weekday_prices_json, last_sync_at, created_at, updated_at`

const upsertDaySQL = `INSERT INTO calendar_days
	(house_id, date, price, status, is_holiday, manual, manual_at, source, last_sync_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(house_id, date) DO UPDATE SET
		price = excluded.price,
		status = excluded.status,
		is_holiday = excluded.is_holiday,
		manual = excluded.manual,
		manual_at = excluded.manual_at,
		source = excluded.source,
		last_sync_at = excluded.last_sync_at`

// Create inserts a house with an ID taken from the houses counter.
func (r *Repository) Create(ctx context.Context, h *House) (_ *House, err error) {
	name := strings.TrimSpace(h.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: house name is required", calendar.ErrValidation)
	}
	capacity := h.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	id, err := db.NextID(ctx, tx, "houses")
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO houses (id, name, code, external_code, capacity, zone) VALUES (?, ?, ?, ?, ?, ?)`,
		id, name, strings.TrimSpace(h.Code), strings.TrimSpace(h.ExternalCode), capacity, h.Zone,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting house: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing house: %w", err)
	}

	return r.GetByID(ctx, id)
}

// GetByID returns a house with its full calendar.
func (r *Repository) GetByID(ctx context.Context, id int64) (*House, error) {
	h, err := r.getOne(ctx, r.db, "id = ?", id)
	if err != nil {
		return nil, err
	}

	h.Prices, err = readPrices(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	return h, nil
}

// FindByCode returns the house whose code matches exactly. Prices are not loaded.
func (r *Repository) FindByCode(ctx context.Context, code string) (*House, error) {
	if code == "" {
		return nil, fmt.Errorf("house with empty code: %w", ErrNotFound)
	}
	return r.getOne(ctx, r.db, "code = ?", code)
}

// FindByName returns the house whose name matches exactly. Prices are not loaded.
func (r *Repository) FindByName(ctx context.Context, name string) (*House, error) {
	if name == "" {
		return nil, fmt.Errorf("house with empty name: %w", ErrNotFound)
	}
	return r.getOne(ctx, r.db, "name = ?", name)
}

func (r *Repository) getOne(ctx context.Context, q querier, where string, arg any) (*House, error) {
	query := fmt.Sprintf("SELECT %s FROM houses WHERE %s ORDER BY id LIMIT 1", selectColumns, where)
	h, err := scanHouse(q.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("house %s %v: %w", strings.TrimSuffix(where, " = ?"), arg, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying house: %w", err)
	}
	return h, nil
}

// List returns all houses ordered by ID. Prices are not loaded.
func (r *Repository) List(ctx context.Context) (houses []*House, err error) {
	query := fmt.Sprintf("SELECT %s FROM houses ORDER BY id", selectColumns)
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing houses: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", closeErr)
		}
	}()

	for rows.Next() {
		h, err := scanHouse(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning house: %w", err)
		}
		houses = append(houses, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating houses: %w", err)
	}

	return houses, nil
}

// ReadPrices returns the calendar of a house.
func (r *Repository) ReadPrices(ctx context.Context, houseID int64) (calendar.Prices, error) {
	if _, err := r.getOne(ctx, r.db, "id = ?", houseID); err != nil {
		return nil, err
	}
	return readPrices(ctx, r.db, houseID)
}

func readPrices(ctx context.Context, q querier, houseID int64) (prices calendar.Prices, err error) {
	rows, err := q.QueryContext(ctx,
		`SELECT date, price, status, is_holiday, manual, manual_at, source, last_sync_at
		 FROM calendar_days WHERE house_id = ? ORDER BY date`,
		houseID,
	)
	if err != nil {
		return nil, fmt.Errorf("reading prices for house %d: %w", houseID, err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", closeErr)
		}
	}()

	prices = calendar.Prices{}
	for rows.Next() {
		date, rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning price record: %w", err)
		}
		prices[date] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating price records: %w", err)
	}
	return prices, nil
}

// UpdatePrices performs one read-merge-write of a house calendar inside
// a transaction and returns the merged calendar.
func (r *Repository) UpdatePrices(ctx context.Context, houseID int64, m calendar.Mutation) (_ calendar.Prices, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err := r.getOne(ctx, tx, "id = ?", houseID); err != nil {
		return nil, err
	}

	current, err := readPrices(ctx, tx, houseID)
	if err != nil {
		return nil, err
	}

	patch, err := m(maps.Clone(current))
	if err != nil {
		return nil, err
	}

	if len(patch) > 0 {
		if err := writePrices(ctx, tx, houseID, patch); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing prices: %w", err)
	}

	current.Merge(patch)
	return current, nil
}

// WritePrices upserts the given records into a house calendar.
func (r *Repository) WritePrices(ctx context.Context, houseID int64, patch calendar.Prices) error {
	_, err := r.UpdatePrices(ctx, houseID, func(calendar.Prices) (calendar.Prices, error) {
		return patch, nil
	})
	return err
}

func writePrices(ctx context.Context, q querier, houseID int64, patch calendar.Prices) error {
	for _, date := range patch.Dates() {
		rec := patch[date]
		source := rec.Source
		if source == "" {
			source = calendar.SourceUnset
		}
		_, err := q.ExecContext(ctx, upsertDaySQL,
			houseID, date, rec.Price, string(rec.Status), rec.IsHoliday, rec.Manual,
			nullTime(rec.ManualAt), string(source), nullTime(rec.LastSyncAt),
		)
		if err != nil {
			return fmt.Errorf("writing %s for house %d: %w", date, houseID, err)
		}
	}

	_, err := q.ExecContext(ctx, "UPDATE houses SET updated_at = CURRENT_TIMESTAMP WHERE id = ?", houseID)
	if err != nil {
		return fmt.Errorf("touching house %d: %w", houseID, err)
	}
	return nil
}

// SaveWeekdayPrices stores the last weekday mapping applied to a house.
func (r *Repository) SaveWeekdayPrices(ctx context.Context, houseID int64, m calendar.WeekdayMapping) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding weekday prices: %w", err)
	}
	return r.exec(ctx, houseID,
		"UPDATE houses SET weekday_prices_json = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		string(data), houseID,
	)
}

// SetCode assigns a short code to a house.
func (r *Repository) SetCode(ctx context.Context, houseID int64, code string) error {
	return r.exec(ctx, houseID,
		"UPDATE houses SET code = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		strings.TrimSpace(code), houseID,
	)
}

// MarkSynced stamps the house-level last sync time.
func (r *Repository) MarkSynced(ctx context.Context, houseID int64, at time.Time) error {
	return r.exec(ctx, houseID,
		"UPDATE houses SET last_sync_at = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		at.UTC(), houseID,
	)
}

// Delete removes a house. Its calendar cascades.
func (r *Repository) Delete(ctx context.Context, houseID int64) error {
	return r.exec(ctx, houseID, "DELETE FROM houses WHERE id = ?", houseID)
}

// exec runs a single-row statement and reports ErrNotFound when nothing matched.
func (r *Repository) exec(ctx context.Context, houseID int64, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating house %d: %w", houseID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("house %d: %w", houseID, ErrNotFound)
	}

	return nil
}
