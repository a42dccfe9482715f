package cli

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/evcraddock/house-calendar/internal/calendar"
)

func newHolidayCmd() *cobra.Command {
	var (
		req   calendar.HolidayRequest
		price string
	)

	cmd := &cobra.Command{
		Use:   "holiday <house-id>",
		Short: "Set holiday prices",
		Long: `Mark dates as holidays and give them one price. Status is untouched.

  hc holiday 3 --date 2026-04-13 --date 2026-04-14 --price 4000
  hc holiday 3 --start 2026-12-29 --end 2027-01-02 --price 5000`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if price != "" {
				p, err := decimal.NewFromString(price)
				if err != nil {
					return fmt.Errorf("invalid price %q", price)
				}
				req.Price = decimal.NewNullDecimal(p)
			}
			return runHoliday(cmd, args[0], req)
		},
	}

	cmd.Flags().StringSliceVar(&req.Dates, "date", nil, "holiday date YYYY-MM-DD (repeatable)")
	cmd.Flags().StringVar(&req.Start, "start", "", "first date of a holiday range")
	cmd.Flags().StringVar(&req.End, "end", "", "last date of a holiday range")
	cmd.Flags().StringVar(&price, "price", "", "holiday price")

	return cmd
}

func runHoliday(cmd *cobra.Command, idArg string, req calendar.HolidayRequest) error {
	id, err := parseHouseID(idArg)
	if err != nil {
		return err
	}

	cfg, repo, database, err := openRepo()
	if err != nil {
		return err
	}
	defer closeDB(database)

	prices, err := calendar.NewService(repo).ApplyHolidayPricing(cmd.Context(), id, req)
	if err != nil {
		return err
	}
	invalidateCache(cmd, cfg)

	w := cmd.OutOrStdout()
	if isJSON() {
		return printJSON(w, map[string]any{"houseId": id, "prices": prices})
	}

	from, to := req.Start, req.End
	if len(req.Dates) > 0 {
		from, to = slices.Min(req.Dates), slices.Max(req.Dates)
	}
	fmt.Fprintf(w, "Holiday prices applied to house #%d\n\n", id)
	return printCalendar(w, prices, from, to)
}
