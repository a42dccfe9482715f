// Package web provides the JSON API for house calendars.
package web

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/evcraddock/house-calendar/internal/cache"
	"github.com/evcraddock/house-calendar/internal/calendar"
	"github.com/evcraddock/house-calendar/internal/feedsync"
	"github.com/evcraddock/house-calendar/internal/house"
	"github.com/evcraddock/house-calendar/internal/importer"
	"github.com/evcraddock/house-calendar/internal/logging"
	"github.com/evcraddock/house-calendar/internal/notify"
)

// Syncer runs feed syncs on demand.
type Syncer interface {
	Trigger(ctx context.Context) (*feedsync.Summary, error)
	Running() bool
	Last() (*feedsync.Summary, error)
}

// Importer merges an uploaded workbook.
type Importer interface {
	Import(ctx context.Context, r io.Reader) (*importer.Result, error)
}

// Notifier announces completed imports.
type Notifier interface {
	Publish(ctx context.Context, ev notify.SyncCompleted) error
}

// Options wires the server's collaborators. Houses is required; a nil
// Sync or Importer makes those endpoints answer 503.
type Options struct {
	Houses   *house.Repository
	Sync     Syncer
	Importer Importer
	Notifier Notifier
	Cache    *cache.Cache
	Logger   *slog.Logger
}

// Server is the API HTTP server.
type Server struct {
	houses   *house.Repository
	calendar *calendar.Service
	sync     Syncer
	importer Importer
	notifier Notifier
	cache    *cache.Cache
	logger   *slog.Logger
	validate *validator.Validate
	mux      *http.ServeMux
	handler  http.Handler
}

// NewServer creates an API server.
func NewServer(opts Options) (*Server, error) {
	if opts.Houses == nil {
		return nil, errors.New("creating server: house repository is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Server{
		houses:   opts.Houses,
		calendar: calendar.NewService(opts.Houses),
		sync:     opts.Sync,
		importer: opts.Importer,
		notifier: opts.Notifier,
		cache:    opts.Cache,
		logger:   opts.Logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		mux:      http.NewServeMux(),
	}

	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/houses", s.handleAPIHouses)
	s.mux.HandleFunc("/api/houses/", s.handleAPIHouses)
	s.mux.HandleFunc("/api/sync", s.handleAPISync)
	s.mux.HandleFunc("/api/import", s.handleAPIImport)
	s.mux.HandleFunc("/api/public/available-dates", s.handlePublicAvailable)
	s.mux.HandleFunc("/api/public/available-dates/", s.handlePublicAvailable)
	s.mux.HandleFunc("/api/public/calendar/", s.handlePublicCalendar)

	s.handler = logging.RequestLogger(opts.Logger, s.mux)
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	apiJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// invalidate drops cached availability after a calendar write.
func (s *Server) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("invalidating availability cache", "err", err)
	}
}
