package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/evcraddock/house-calendar/internal/dateutil"
	"github.com/evcraddock/house-calendar/internal/ics"
)

func newShowCmd() *cobra.Command {
	var (
		month  string
		asICal bool
	)

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a house and its calendar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd, args[0], month, asICal)
		},
	}

	cmd.Flags().StringVar(&month, "month", "", "only show one month (YYYY-MM)")
	cmd.Flags().BoolVar(&asICal, "ics", false, "print booked and closed dates as iCalendar")

	return cmd
}

func runShow(cmd *cobra.Command, idArg, month string, asICal bool) error {
	id, err := parseHouseID(idArg)
	if err != nil {
		return err
	}

	var from, to string
	if month != "" {
		m, err := time.Parse("2006-01", month)
		if err != nil {
			return fmt.Errorf("invalid month %q (want YYYY-MM)", month)
		}
		first, last := dateutil.MonthBounds(m.Year(), m.Month())
		from, to = dateutil.Format(first), dateutil.Format(last)
	}

	_, repo, database, err := openRepo()
	if err != nil {
		return err
	}
	defer closeDB(database)

	h, err := repo.GetByID(cmd.Context(), id)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if asICal {
		return ics.Write(w, h, h.Prices, time.Now())
	}
	if isJSON() {
		return printJSON(w, h)
	}

	printHouseSummary(w, h)
	fmt.Fprintln(w)
	return printCalendar(w, h.Prices, from, to)
}
