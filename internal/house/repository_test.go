package house

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/evcraddock/house-calendar/internal/calendar"
	"github.com/evcraddock/house-calendar/internal/db"
)

func testRepo(t *testing.T) *Repository {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	d, err := db.Open(path)
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() {
		if err := d.Close(); err != nil {
			t.Errorf("closing test db: %v", err)
		}
	})
	return NewRepository(d)
}

func price(v int64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromInt(v))
}

func TestCreateAndGet(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	h, err := repo.Create(ctx, &House{Name: " Baan Suan ", Code: "BS01", Zone: "Hua Hin"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if h.ID != 1 {
		t.Errorf("ID = %d, want 1", h.ID)
	}
	if h.Name != "Baan Suan" {
		t.Errorf("Name = %q, want trimmed", h.Name)
	}
	if h.Capacity != DefaultCapacity {
		t.Errorf("Capacity = %d, want %d", h.Capacity, DefaultCapacity)
	}
	if len(h.Prices) != 0 {
		t.Errorf("new house has %d prices", len(h.Prices))
	}

	h2, err := repo.Create(ctx, &House{Name: "Pool Villa", Capacity: 20})
	if err != nil {
		t.Fatalf("Create second: %v", err)
	}
	if h2.ID != 2 || h2.Capacity != 20 {
		t.Errorf("second house = %+v", h2)
	}
}

func TestCreateIDsSurviveDelete(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	h1, err := repo.Create(ctx, &House{Name: "A"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Delete(ctx, h1.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	h2, err := repo.Create(ctx, &House{Name: "B"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if h2.ID == h1.ID {
		t.Errorf("ID %d was reused", h2.ID)
	}
}

func TestCreateRequiresName(t *testing.T) {
	repo := testRepo(t)
	_, err := repo.Create(context.Background(), &House{Name: "  "})
	if !errors.Is(err, calendar.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestFind(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, &House{Name: "บ้านสวน", Code: "BS01"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	tests := []struct {
		name    string
		find    func() (*House, error)
		wantErr bool
	}{
		{"by code", func() (*House, error) { return repo.FindByCode(ctx, "BS01") }, false},
		{"by name", func() (*House, error) { return repo.FindByName(ctx, "บ้านสวน") }, false},
		{"code is exact", func() (*House, error) { return repo.FindByCode(ctx, "bs01") }, true},
		{"unknown name", func() (*House, error) { return repo.FindByName(ctx, "บ้านทะเล") }, true},
		{"empty code", func() (*House, error) { return repo.FindByCode(ctx, "") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := tt.find()
			if tt.wantErr {
				if !errors.Is(err, ErrNotFound) {
					t.Errorf("err = %v, want ErrNotFound", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if h.ID != created.ID {
				t.Errorf("ID = %d, want %d", h.ID, created.ID)
			}
		})
	}
}

func TestList(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	for _, name := range []string{"A", "B", "C"} {
		if _, err := repo.Create(ctx, &House{Name: name}); err != nil {
			t.Fatalf("Create %s: %v", name, err)
		}
	}

	houses, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(houses) != 3 {
		t.Fatalf("got %d houses, want 3", len(houses))
	}
	if houses[0].Name != "A" || houses[2].Name != "C" {
		t.Errorf("unexpected order: %s, %s", houses[0].Name, houses[2].Name)
	}
}

func TestUpdatePricesRoundTrip(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	h, err := repo.Create(ctx, &House{Name: "A"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	manualAt := time.Date(2026, 1, 10, 8, 30, 0, 0, time.UTC)
	syncAt := time.Date(2026, 1, 11, 9, 0, 0, 0, time.UTC)
	patch := calendar.Prices{
		"2026-01-13": {Price: price(1500), Status: calendar.StatusBooked, Manual: true, ManualAt: &manualAt, Source: calendar.SourceManual},
		"2026-01-14": {Status: calendar.StatusClosed, Source: calendar.SourceScraper, LastSyncAt: &syncAt},
		"2026-02-14": {Price: decimal.NewNullDecimal(decimal.RequireFromString("4999.50")), Status: calendar.StatusAvailable, IsHoliday: true},
	}

	merged, err := repo.UpdatePrices(ctx, h.ID, func(current calendar.Prices) (calendar.Prices, error) {
		if len(current) != 0 {
			t.Errorf("current has %d records, want 0", len(current))
		}
		return patch, nil
	})
	if err != nil {
		t.Fatalf("UpdatePrices: %v", err)
	}
	if len(merged) != 3 {
		t.Errorf("merged has %d records, want 3", len(merged))
	}

	got, err := repo.ReadPrices(ctx, h.ID)
	if err != nil {
		t.Fatalf("ReadPrices: %v", err)
	}

	manual := got["2026-01-13"]
	if !manual.Price.Decimal.Equal(decimal.NewFromInt(1500)) || !manual.Manual || manual.Source != calendar.SourceManual {
		t.Errorf("manual record = %+v", manual)
	}
	if manual.ManualAt == nil || !manual.ManualAt.Equal(manualAt) {
		t.Errorf("manualAt = %v, want %v", manual.ManualAt, manualAt)
	}

	scraped := got["2026-01-14"]
	if scraped.Price.Valid {
		t.Errorf("price = %v, want null", scraped.Price)
	}
	if scraped.LastSyncAt == nil || !scraped.LastSyncAt.Equal(syncAt) {
		t.Errorf("lastSyncAt = %v, want %v", scraped.LastSyncAt, syncAt)
	}

	holiday := got["2026-02-14"]
	if !holiday.IsHoliday || holiday.Price.Decimal.String() != "4999.5" {
		t.Errorf("holiday record = %+v", holiday)
	}
	if holiday.Source != calendar.SourceUnset {
		t.Errorf("blank source stored as %q, want unset", holiday.Source)
	}
}

func TestUpdatePricesMutationErrorRollsBack(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	h, err := repo.Create(ctx, &House{Name: "A"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	boom := errors.New("boom")
	_, err = repo.UpdatePrices(ctx, h.ID, func(calendar.Prices) (calendar.Prices, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	// A write rejected by the status constraint must not leave partial rows.
	_, err = repo.UpdatePrices(ctx, h.ID, func(calendar.Prices) (calendar.Prices, error) {
		return calendar.Prices{
			"2026-01-01": {Status: calendar.StatusBooked},
			"2026-01-02": {Status: calendar.Status("pending")},
		}, nil
	})
	if err == nil {
		t.Fatal("expected constraint error, got nil")
	}

	got, err := repo.ReadPrices(ctx, h.ID)
	if err != nil {
		t.Fatalf("ReadPrices: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d records after rollback, want 0", len(got))
	}
}

func TestUpdatePricesUnknownHouse(t *testing.T) {
	repo := testRepo(t)
	_, err := repo.UpdatePrices(context.Background(), 404, func(calendar.Prices) (calendar.Prices, error) {
		return nil, nil
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestHouseUpdates(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	h, err := repo.Create(ctx, &House{Name: "A"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := repo.SetCode(ctx, h.ID, "A01"); err != nil {
		t.Fatalf("SetCode: %v", err)
	}
	at := time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)
	if err := repo.MarkSynced(ctx, h.ID, at); err != nil {
		t.Fatalf("MarkSynced: %v", err)
	}
	mapping := calendar.WeekdayMapping{5: price(2000), 6: price(2500)}
	if err := repo.SaveWeekdayPrices(ctx, h.ID, mapping); err != nil {
		t.Fatalf("SaveWeekdayPrices: %v", err)
	}

	got, err := repo.GetByID(ctx, h.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Code != "A01" {
		t.Errorf("Code = %q", got.Code)
	}
	if got.LastSyncAt == nil || !got.LastSyncAt.Equal(at) {
		t.Errorf("LastSyncAt = %v, want %v", got.LastSyncAt, at)
	}
	if p := got.WeekdayPrices[6]; !p.Valid || !p.Decimal.Equal(decimal.NewFromInt(2500)) {
		t.Errorf("WeekdayPrices = %v", got.WeekdayPrices)
	}

	for name, fn := range map[string]func() error{
		"SetCode":    func() error { return repo.SetCode(ctx, 99, "X") },
		"MarkSynced": func() error { return repo.MarkSynced(ctx, 99, at) },
		"Delete":     func() error { return repo.Delete(ctx, 99) },
	} {
		if err := fn(); !errors.Is(err, ErrNotFound) {
			t.Errorf("%s on unknown house: err = %v, want ErrNotFound", name, err)
		}
	}
}

func TestServiceAgainstRepository(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	h, err := repo.Create(ctx, &House{Name: "A"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	svc := calendar.NewService(repo)
	if _, err := svc.SetManual(ctx, h.ID, "2026-03-01", price(3000), calendar.StatusClosed); err != nil {
		t.Fatalf("SetManual: %v", err)
	}
	prices, err := svc.ApplyWeekdayPricing(ctx, h.ID, calendar.RangeSpec{Year: 2026, Month: 3}, calendar.WeekdayMapping{0: price(1000)})
	if err != nil {
		t.Fatalf("ApplyWeekdayPricing: %v", err)
	}

	// 2026-03-01 is a Sunday.
	rec := prices["2026-03-01"]
	if !rec.Manual || rec.Status != calendar.StatusClosed || !rec.Price.Decimal.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("record = %+v", rec)
	}
	if len(prices) != 5 {
		t.Errorf("got %d records, want 5 Sundays", len(prices))
	}
}

var _ calendar.Store = (*Repository)(nil)
