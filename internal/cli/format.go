package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"github.com/evcraddock/house-calendar/internal/calendar"
	"github.com/evcraddock/house-calendar/internal/feedsync"
	"github.com/evcraddock/house-calendar/internal/house"
)

// printJSON marshals v as indented JSON and writes it to w.
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printHouseSummary prints a single house header in text format.
func printHouseSummary(w io.Writer, h *house.House) {
	fmt.Fprintf(w, "House #%d\n", h.ID)
	fmt.Fprintf(w, "  Name:     %s\n", h.Name)
	if h.Code != "" {
		fmt.Fprintf(w, "  Code:     %s\n", h.Code)
	}
	if h.Zone != "" {
		fmt.Fprintf(w, "  Zone:     %s\n", h.Zone)
	}
	fmt.Fprintf(w, "  Capacity: %d\n", h.Capacity)
	if h.LastSyncAt != nil {
		fmt.Fprintf(w, "  Synced:   %s\n", h.LastSyncAt.Local().Format("2006-01-02 15:04"))
	}
}

// printHouseTable prints a list of houses as a formatted table.
func printHouseTable(w io.Writer, houses []*house.House) error {
	if len(houses) == 0 {
		fmt.Fprintln(w, "No houses found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "ID\tNAME\tCODE\tZONE\tCAP\tLAST SYNC"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	if _, err := fmt.Fprintln(tw, "--\t----\t----\t----\t---\t---------"); err != nil {
		return fmt.Errorf("writing table separator: %w", err)
	}

	for _, h := range houses {
		synced := "-"
		if h.LastSyncAt != nil {
			synced = h.LastSyncAt.Local().Format("2006-01-02 15:04")
		}
		if _, err := fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\n",
			h.ID, truncate(h.Name, 40), dash(h.Code), dash(h.Zone), h.Capacity, synced); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flushing table: %w", err)
	}

	fmt.Fprintf(w, "\nTotal: %d houses\n", len(houses))
	return nil
}

// printCalendar prints the records whose date falls in [from, to]. An
// empty bound is open.
func printCalendar(w io.Writer, prices calendar.Prices, from, to string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "DATE\tPRICE\tSTATUS\tFLAGS\tSOURCE"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}

	n := 0
	for _, date := range prices.Dates() {
		if (from != "" && date < from) || (to != "" && date > to) {
			continue
		}
		rec := prices[date]
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			date, formatPrice(rec.Price), rec.Status, recordFlags(rec), rec.Source); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
		n++
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flushing table: %w", err)
	}
	if n == 0 {
		fmt.Fprintln(w, "No calendar entries.")
	}
	return nil
}

// printSummary prints a sync or import summary in text format.
func printSummary(w io.Writer, sum *feedsync.Summary) {
	fmt.Fprintf(w, "Run %s\n", sum.RunID)
	fmt.Fprintf(w, "  Houses updated: %d (%d created)\n", sum.HousesUpdated, sum.HousesCreated)
	fmt.Fprintf(w, "  Dates applied:  %d\n", sum.EventsApplied)
	fmt.Fprintf(w, "  Manual skipped: %d\n", sum.SkippedManual)
	if sum.RowsFetched > 0 || sum.RowsDiscarded > 0 {
		fmt.Fprintf(w, "  Rows:           %d fetched, %d discarded\n", sum.RowsFetched, sum.RowsDiscarded)
	}
	for _, e := range sum.Errors {
		fmt.Fprintf(w, "  ! %s\n", e.Error())
	}
}

func recordFlags(rec calendar.PriceRecord) string {
	var flags []string
	if rec.IsHoliday {
		flags = append(flags, "holiday")
	}
	if rec.Manual {
		flags = append(flags, "manual")
	}
	if len(flags) == 0 {
		return "-"
	}
	return strings.Join(flags, ",")
}

// formatPrice formats a price with thousands separators.
func formatPrice(p decimal.NullDecimal) string {
	if !p.Valid {
		return "-"
	}

	s := p.Decimal.String()
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, hasFrac := strings.Cut(s, ".")

	var parts []string
	for len(whole) > 3 {
		parts = append([]string{whole[len(whole)-3:]}, parts...)
		whole = whole[:len(whole)-3]
	}
	parts = append([]string{whole}, parts...)

	out := sign + strings.Join(parts, ",")
	if hasFrac {
		out += "." + frac
	}
	return out
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// truncate shortens a string to maxLen runes, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
