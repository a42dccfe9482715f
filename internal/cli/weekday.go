package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/evcraddock/house-calendar/internal/calendar"
	"github.com/evcraddock/house-calendar/internal/dateutil"
)

var weekdayNames = map[string]int{
	"sun": 0, "sunday": 0,
	"mon": 1, "monday": 1,
	"tue": 2, "tuesday": 2,
	"wed": 3, "wednesday": 3,
	"thu": 4, "thursday": 4,
	"fri": 5, "friday": 5,
	"sat": 6, "saturday": 6,
}

func newWeekdayCmd() *cobra.Command {
	var (
		r      calendar.RangeSpec
		prices []string
	)

	cmd := &cobra.Command{
		Use:   "weekday <house-id>",
		Short: "Set prices by day of week",
		Long: `Set prices by day of week across a date range or a whole month.
Holiday dates keep their price; status and manual pins are untouched.

  hc weekday 3 --year 2026 --month 1 --price mon=1500 --price fri=2500`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWeekday(cmd, args[0], r, prices)
		},
	}

	cmd.Flags().StringVar(&r.Start, "start", "", "first date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&r.End, "end", "", "last date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&r.Year, "year", 0, "year of the month to price")
	cmd.Flags().IntVar(&r.Month, "month", 0, "month to price (1-12)")
	cmd.Flags().StringArrayVar(&prices, "price", nil, "weekday=price, weekday as 0-6 or sun..sat; price may be null (repeatable)")

	return cmd
}

func runWeekday(cmd *cobra.Command, idArg string, r calendar.RangeSpec, priceArgs []string) error {
	id, err := parseHouseID(idArg)
	if err != nil {
		return err
	}
	mapping, err := parseWeekdayPrices(priceArgs)
	if err != nil {
		return err
	}

	cfg, repo, database, err := openRepo()
	if err != nil {
		return err
	}
	defer closeDB(database)

	prices, err := calendar.NewService(repo).ApplyWeekdayPricing(cmd.Context(), id, r, mapping)
	if err != nil {
		return err
	}
	invalidateCache(cmd, cfg)

	w := cmd.OutOrStdout()
	if isJSON() {
		return printJSON(w, map[string]any{"houseId": id, "prices": prices})
	}

	first, last, _ := r.Resolve()
	fmt.Fprintf(w, "Weekday prices applied to house #%d\n\n", id)
	return printCalendar(w, prices, dateutil.Format(first), dateutil.Format(last))
}

// parseWeekdayPrices turns "mon=1500" style flags into a mapping.
func parseWeekdayPrices(args []string) (calendar.WeekdayMapping, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("at least one --price is required")
	}

	m := calendar.WeekdayMapping{}
	for _, arg := range args {
		dayStr, priceStr, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --price %q (want weekday=price)", arg)
		}

		day, err := weekdayIndex(dayStr)
		if err != nil {
			return nil, err
		}

		priceStr = strings.TrimSpace(priceStr)
		if priceStr == "" || strings.EqualFold(priceStr, "null") {
			m[day] = decimal.NullDecimal{}
			continue
		}
		p, err := decimal.NewFromString(priceStr)
		if err != nil {
			return nil, fmt.Errorf("invalid price %q for %s", priceStr, dayStr)
		}
		m[day] = decimal.NewNullDecimal(p)
	}
	return m, nil
}

func weekdayIndex(s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if d, ok := weekdayNames[s]; ok {
		return d, nil
	}
	d, err := strconv.Atoi(s)
	if err != nil || d < 0 || d > 6 {
		return 0, fmt.Errorf("invalid weekday %q (want 0-6 or sun..sat)", s)
	}
	return d, nil
}
