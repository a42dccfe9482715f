package cli

import (
	"github.com/spf13/cobra"

	"github.com/evcraddock/house-calendar/internal/logging"
	"github.com/evcraddock/house-calendar/internal/notify"
)

func newSyncCmd() *cobra.Command {
	var feedURL string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync calendars from the booking feed",
		Long:  "Fetch the booking feed once and merge it into every house calendar. Dates pinned by hand are left alone.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, feedURL)
		},
	}

	cmd.Flags().StringVar(&feedURL, "url", "", "feed URL (default from config)")

	return cmd
}

func runSync(cmd *cobra.Command, feedURL string) error {
	cfg, repo, database, err := openRepo()
	if err != nil {
		return err
	}
	defer closeDB(database)
	if feedURL != "" {
		cfg.Feed.URL = feedURL
	}

	logger := logging.New(cmd.ErrOrStderr(), cfg.DevMode)
	merger, err := newMerger(cfg, repo, logger)
	if err != nil {
		return err
	}

	sum, err := merger.Run(cmd.Context())
	if err != nil {
		return err
	}
	invalidateCache(cmd, cfg)
	notify.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Queue, logger).Hook("feed")(cmd.Context(), sum)

	if isJSON() {
		return printJSON(cmd.OutOrStdout(), sum)
	}
	printSummary(cmd.OutOrStdout(), sum)
	return nil
}
