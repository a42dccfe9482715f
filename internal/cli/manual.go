package cli

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/evcraddock/house-calendar/internal/calendar"
	"github.com/evcraddock/house-calendar/internal/dateutil"
)

func newManualCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manual",
		Short: "Pin or release dates by hand",
		Long:  "A pinned date keeps its status through every feed sync until it is cleared.",
	}
	cmd.AddCommand(newManualSetCmd(), newManualClearCmd())
	return cmd
}

func newManualSetCmd() *cobra.Command {
	var status, price string

	cmd := &cobra.Command{
		Use:   "set <house-id> <date>",
		Short: "Pin a date's status and price",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseHouseID(args[0])
			if err != nil {
				return err
			}
			st, err := calendar.ParseStatus(status)
			if err != nil {
				return err
			}
			var p decimal.NullDecimal
			if price != "" {
				d, err := decimal.NewFromString(price)
				if err != nil {
					return fmt.Errorf("invalid price %q", price)
				}
				p = decimal.NewNullDecimal(d)
			}

			cfg, repo, database, err := openRepo()
			if err != nil {
				return err
			}
			defer closeDB(database)

			prices, err := calendar.NewService(repo).SetManual(cmd.Context(), id, args[1], p, st)
			if err != nil {
				return err
			}
			invalidateCache(cmd, cfg)
			return printManual(cmd, id, args[1], prices, "pinned")
		},
	}

	cmd.Flags().StringVar(&status, "status", "available", "available, booked or closed")
	cmd.Flags().StringVar(&price, "price", "", "price for the date (default: unchanged)")

	return cmd
}

func newManualClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <house-id> <date>",
		Short: "Release a pinned date back to the feed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseHouseID(args[0])
			if err != nil {
				return err
			}

			cfg, repo, database, err := openRepo()
			if err != nil {
				return err
			}
			defer closeDB(database)

			prices, err := calendar.NewService(repo).ClearManual(cmd.Context(), id, args[1])
			if err != nil {
				return err
			}
			invalidateCache(cmd, cfg)
			return printManual(cmd, id, args[1], prices, "released")
		},
	}
}

func printManual(cmd *cobra.Command, id int64, date string, prices calendar.Prices, verb string) error {
	w := cmd.OutOrStdout()
	key := date
	if d, err := dateutil.Parse(date); err == nil {
		key = dateutil.Format(d)
	}

	if isJSON() {
		return printJSON(w, map[string]any{"houseId": id, "date": key, "record": prices.Get(key)})
	}

	fmt.Fprintf(w, "House #%d %s %s\n\n", id, key, verb)
	return printCalendar(w, prices, key, key)
}
