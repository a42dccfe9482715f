package web

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/evcraddock/house-calendar/internal/calendar"
	"github.com/evcraddock/house-calendar/internal/house"
	"github.com/evcraddock/house-calendar/internal/ics"
)

// availability is the public view of one house.
type availability struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	Capacity       int             `json:"capacity"`
	Zone           string          `json:"zone"`
	AvailableDates []string        `json:"availableDates"`
	TotalAvailable int             `json:"totalAvailable"`
	AllPrices      calendar.Prices `json:"allPrices,omitempty"`
}

func newAvailability(h *house.House, prices calendar.Prices) availability {
	dates := prices.AvailableDates()
	if dates == nil {
		dates = []string{}
	}
	return availability{
		ID:             h.ID,
		Name:           h.Name,
		Capacity:       h.Capacity,
		Zone:           h.Zone,
		AvailableDates: dates,
		TotalAvailable: len(dates),
	}
}

// handlePublicAvailable serves /api/public/available-dates[/{id}]
// without authentication.
func (s *Server) handlePublicAvailable(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodGet {
		apiError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/public/available-dates")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		s.publicAll(w, r)
		return
	}

	id, err := strconv.ParseInt(path, 10, 64)
	if err != nil {
		apiError(w, "invalid house ID", http.StatusBadRequest)
		return
	}
	s.publicOne(w, r, id)
}

func (s *Server) publicAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var out []availability
	if s.cached(ctx, "all", &out) {
		apiJSON(w, out, http.StatusOK)
		return
	}

	houses, err := s.houses.List(ctx)
	if err != nil {
		apiFailure(w, "listing houses", err)
		return
	}
	out = make([]availability, 0, len(houses))
	for _, h := range houses {
		prices, err := s.houses.ReadPrices(ctx, h.ID)
		if err != nil {
			apiFailure(w, "reading prices", err)
			return
		}
		out = append(out, newAvailability(h, prices))
	}

	s.store(ctx, "all", out)
	apiJSON(w, out, http.StatusOK)
}

func (s *Server) publicOne(w http.ResponseWriter, r *http.Request, id int64) {
	ctx := r.Context()
	key := strconv.FormatInt(id, 10)
	var out availability
	if s.cached(ctx, key, &out) {
		apiJSON(w, out, http.StatusOK)
		return
	}

	h, err := s.houses.GetByID(ctx, id)
	if err != nil {
		apiFailure(w, "loading house", err)
		return
	}
	out = newAvailability(h, h.Prices)
	out.AllPrices = h.Prices

	s.store(ctx, key, out)
	apiJSON(w, out, http.StatusOK)
}

// handlePublicCalendar serves /api/public/calendar/{id}.ics.
func (s *Server) handlePublicCalendar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		apiError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/public/calendar/")
	id, err := strconv.ParseInt(strings.TrimSuffix(path, ".ics"), 10, 64)
	if err != nil {
		apiError(w, "invalid house ID", http.StatusBadRequest)
		return
	}

	h, err := s.houses.GetByID(r.Context(), id)
	if err != nil {
		apiFailure(w, "loading house", err)
		return
	}

	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	if err := ics.Write(w, h, h.Prices, time.Now()); err != nil {
		s.logger.Warn("writing calendar export", "house_id", id, "err", err)
	}
}

func (s *Server) cached(ctx context.Context, key string, dst any) bool {
	hit, err := s.cache.Get(ctx, key, dst)
	if err != nil {
		s.logger.Warn("reading availability cache", "key", key, "err", err)
		return false
	}
	return hit
}

func (s *Server) store(ctx context.Context, key string, v any) {
	if err := s.cache.Set(ctx, key, v); err != nil {
		s.logger.Warn("writing availability cache", "key", key, "err", err)
	}
}
