// Package cli defines the cobra command tree for house-calendar.
package cli

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evcraddock/house-calendar/internal/cache"
	"github.com/evcraddock/house-calendar/internal/config"
	"github.com/evcraddock/house-calendar/internal/db"
	"github.com/evcraddock/house-calendar/internal/feed"
	"github.com/evcraddock/house-calendar/internal/feedsync"
	"github.com/evcraddock/house-calendar/internal/house"
	"github.com/evcraddock/house-calendar/internal/logging"
)

var (
	flagFormat string
	flagDB     string
	flagConfig string
)

// NewRootCmd creates the root cobra command with global flags.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "hc",
		Short:         "Manage rental house calendars",
		Long:          "Keep per-house booking calendars in sync with the booking feed, set weekday and holiday prices, and pin dates by hand.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format (text|json)")
	root.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite database path (default: ~/.house-calendar/calendar.db)")
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: ~/.config/hc/config.yaml)")

	root.AddCommand(
		newServeCmd(),
		newSyncCmd(),
		newImportCmd(),
		newWeekdayCmd(),
		newHolidayCmd(),
		newManualCmd(),
		newHousesCmd(),
		newShowCmd(),
		newVersionCmd(),
	)

	return root
}

// loadConfig reads the config file, .env and HC_* variables, then
// applies the --db flag.
func loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}

	path := flagConfig
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if flagDB != "" {
		cfg.DBPath = flagDB
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openDB opens the SQLite database from the config or the default path.
func openDB(cfg *config.Config) (*sql.DB, error) {
	path := cfg.DBPath
	if path == "" {
		var err error
		path, err = db.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return db.Open(path)
}

// openRepo loads the config and opens the house repository.
func openRepo() (*config.Config, *house.Repository, *sql.DB, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	database, err := openDB(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, house.NewRepository(database), database, nil
}

// newMerger builds a merger from the config. Without a feed URL the
// merger still imports, but Run reports that no feed is configured.
func newMerger(cfg *config.Config, repo *house.Repository, logger *slog.Logger) (*feedsync.Merger, error) {
	var fetcher feedsync.Fetcher
	if strings.TrimSpace(cfg.Feed.URL) != "" {
		client, err := feed.NewClient(cfg.Feed.URL, cfg.Feed.Timeout)
		if err != nil {
			return nil, err
		}
		fetcher = client
	}
	return feedsync.NewMerger(fetcher, repo, feedsync.Options{
		Workers:  cfg.Sync.Workers,
		Capacity: cfg.Houses.Capacity,
		Logger:   logger,
	}), nil
}

// invalidateCache drops cached public availability after a CLI write.
// It does nothing when Redis is not configured; failures only warn, and
// the entries then expire with their TTL.
func invalidateCache(cmd *cobra.Command, cfg *config.Config) {
	if cfg.Redis.Addr == "" {
		return
	}
	logger := logging.New(cmd.ErrOrStderr(), cfg.DevMode)
	ctx := cmd.Context()

	rdb, err := cache.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Warn("availability cache not invalidated", "err", err)
		return
	}
	defer func() { _ = rdb.Close() }()

	if err := cache.New(rdb, cfg.Redis.TTL).Invalidate(ctx); err != nil {
		logger.Warn("availability cache not invalidated", "err", err)
	}
}

// parseHouseID parses a house ID argument.
func parseHouseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid house ID: %s", s)
	}
	return id, nil
}

// isJSON returns true if the --format flag is set to json.
func isJSON() bool {
	return flagFormat == "json"
}

// closeDB closes the database, logging any error to stderr.
func closeDB(database *sql.DB) {
	if err := database.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing database: %v\n", err)
	}
}
