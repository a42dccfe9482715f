package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/evcraddock/house-calendar/internal/calendar"
	"github.com/evcraddock/house-calendar/internal/feedsync"
	"github.com/evcraddock/house-calendar/internal/notify"
	"github.com/evcraddock/house-calendar/internal/scheduler"
)

const maxUploadSize = 32 << 20

// apiError writes a JSON error response.
func apiError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	resp := map[string]string{"error": msg}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, `{"error":"encode failed"}`, http.StatusInternalServerError)
	}
}

// apiJSON writes a JSON response with the given status code.
func apiJSON(w http.ResponseWriter, data interface{}, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, `{"error":"encode failed"}`, http.StatusInternalServerError)
	}
}

// apiFailure maps a domain error to a status code.
func apiFailure(w http.ResponseWriter, op string, err error) {
	var syncErr *feedsync.SyncError
	switch {
	case errors.Is(err, calendar.ErrValidation), errors.Is(err, calendar.ErrRangeRequired):
		apiError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, calendar.ErrNotFound):
		apiError(w, "house not found", http.StatusNotFound)
	case errors.Is(err, scheduler.ErrRunInProgress):
		apiError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, scheduler.ErrStopped):
		apiError(w, err.Error(), http.StatusServiceUnavailable)
	case errors.As(err, &syncErr):
		apiError(w, err.Error(), http.StatusBadGateway)
	default:
		apiError(w, fmt.Sprintf("%s: %v", op, err), http.StatusInternalServerError)
	}
}

// decodeBody decodes and validates a JSON request body.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		apiError(w, "invalid JSON body", http.StatusBadRequest)
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		apiError(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

type weekdayPricesRequest struct {
	calendar.RangeSpec
	Prices calendar.WeekdayMapping `json:"prices" validate:"required"`
}

type manualRequest struct {
	Date   string              `json:"date" validate:"required"`
	Price  decimal.NullDecimal `json:"price"`
	Status string              `json:"status" validate:"omitempty,oneof=available booked closed"`
}

type pricesResponse struct {
	HouseID int64           `json:"houseId"`
	Prices  calendar.Prices `json:"prices"`
}

// handleAPIHouses routes /api/houses requests.
func (s *Server) handleAPIHouses(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/houses")
	path = strings.TrimPrefix(path, "/")

	// /api/houses
	if path == "" {
		if r.Method != http.MethodGet {
			apiError(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.apiListHouses(w, r)
		return
	}

	// /api/houses/{id}/weekday-prices
	if idStr, ok := strings.CutSuffix(path, "/weekday-prices"); ok {
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			apiError(w, "invalid house ID", http.StatusBadRequest)
			return
		}
		if r.Method != http.MethodPost {
			apiError(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.apiWeekdayPrices(w, r, id)
		return
	}

	// /api/houses/{id}/holiday-prices
	if idStr, ok := strings.CutSuffix(path, "/holiday-prices"); ok {
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			apiError(w, "invalid house ID", http.StatusBadRequest)
			return
		}
		if r.Method != http.MethodPost {
			apiError(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.apiHolidayPrices(w, r, id)
		return
	}

	// /api/houses/{id}/manual
	if idStr, ok := strings.CutSuffix(path, "/manual"); ok {
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			apiError(w, "invalid house ID", http.StatusBadRequest)
			return
		}
		switch r.Method {
		case http.MethodPut:
			s.apiSetManual(w, r, id)
		case http.MethodDelete:
			s.apiClearManual(w, r, id)
		default:
			apiError(w, "method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	// /api/houses/{id}
	id, err := strconv.ParseInt(path, 10, 64)
	if err != nil {
		apiError(w, "invalid house ID", http.StatusBadRequest)
		return
	}
	if r.Method != http.MethodGet {
		apiError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.apiGetHouse(w, r, id)
}

func (s *Server) apiListHouses(w http.ResponseWriter, r *http.Request) {
	houses, err := s.houses.List(r.Context())
	if err != nil {
		apiFailure(w, "listing houses", err)
		return
	}
	apiJSON(w, houses, http.StatusOK)
}

func (s *Server) apiGetHouse(w http.ResponseWriter, r *http.Request, id int64) {
	h, err := s.houses.GetByID(r.Context(), id)
	if err != nil {
		apiFailure(w, "loading house", err)
		return
	}
	apiJSON(w, h, http.StatusOK)
}

func (s *Server) apiWeekdayPrices(w http.ResponseWriter, r *http.Request, id int64) {
	var req weekdayPricesRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	prices, err := s.calendar.ApplyWeekdayPricing(r.Context(), id, req.RangeSpec, req.Prices)
	if err != nil {
		apiFailure(w, "applying weekday prices", err)
		return
	}
	s.invalidate(r.Context())
	apiJSON(w, pricesResponse{HouseID: id, Prices: prices}, http.StatusOK)
}

func (s *Server) apiHolidayPrices(w http.ResponseWriter, r *http.Request, id int64) {
	var req calendar.HolidayRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	prices, err := s.calendar.ApplyHolidayPricing(r.Context(), id, req)
	if err != nil {
		apiFailure(w, "applying holiday prices", err)
		return
	}
	s.invalidate(r.Context())
	apiJSON(w, pricesResponse{HouseID: id, Prices: prices}, http.StatusOK)
}

func (s *Server) apiSetManual(w http.ResponseWriter, r *http.Request, id int64) {
	var req manualRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	prices, err := s.calendar.SetManual(r.Context(), id, req.Date, req.Price, calendar.Status(req.Status))
	if err != nil {
		apiFailure(w, "setting manual override", err)
		return
	}
	s.invalidate(r.Context())
	apiJSON(w, pricesResponse{HouseID: id, Prices: prices}, http.StatusOK)
}

func (s *Server) apiClearManual(w http.ResponseWriter, r *http.Request, id int64) {
	date := r.URL.Query().Get("date")
	if date == "" {
		apiError(w, "date query parameter is required", http.StatusBadRequest)
		return
	}

	prices, err := s.calendar.ClearManual(r.Context(), id, date)
	if err != nil {
		apiFailure(w, "clearing manual override", err)
		return
	}
	s.invalidate(r.Context())
	apiJSON(w, pricesResponse{HouseID: id, Prices: prices}, http.StatusOK)
}

type syncStatus struct {
	Running   bool              `json:"running"`
	Last      *feedsync.Summary `json:"last,omitempty"`
	LastError string            `json:"lastError,omitempty"`
}

// handleAPISync reports (GET) or starts (POST) a feed sync.
func (s *Server) handleAPISync(w http.ResponseWriter, r *http.Request) {
	if s.sync == nil {
		apiError(w, "sync not configured", http.StatusServiceUnavailable)
		return
	}

	switch r.Method {
	case http.MethodGet:
		last, err := s.sync.Last()
		st := syncStatus{Running: s.sync.Running(), Last: last}
		if err != nil {
			st.LastError = err.Error()
		}
		apiJSON(w, st, http.StatusOK)
	case http.MethodPost:
		// A dropped client must not abort a half-merged run.
		sum, err := s.sync.Trigger(context.WithoutCancel(r.Context()))
		if err != nil {
			apiFailure(w, "running sync", err)
			return
		}
		apiJSON(w, sum, http.StatusOK)
	default:
		apiError(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleAPIImport merges an uploaded .xlsx workbook.
func (s *Server) handleAPIImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		apiError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.importer == nil {
		apiError(w, "import not configured", http.StatusServiceUnavailable)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		apiError(w, "expected multipart form with a file field", http.StatusBadRequest)
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		apiError(w, "file is required", http.StatusBadRequest)
		return
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			s.logger.Warn("closing upload", "err", cerr)
		}
	}()

	res, err := s.importer.Import(r.Context(), file)
	if err != nil {
		apiError(w, fmt.Sprintf("importing workbook: %v", err), http.StatusBadRequest)
		return
	}

	s.invalidate(r.Context())
	if s.notifier != nil {
		if err := s.notifier.Publish(r.Context(), notify.EventFromSummary(res.Summary, "import")); err != nil {
			s.logger.Warn("publishing import event", "err", err)
		}
	}
	apiJSON(w, res, http.StatusOK)
}
