package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evcraddock/house-calendar/internal/importer"
	"github.com/evcraddock/house-calendar/internal/logging"
	"github.com/evcraddock/house-calendar/internal/notify"
)

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.xlsx>",
		Short: "Import bookings from a spreadsheet",
		Long:  "Read booking rows from the first sheet of an .xlsx workbook and merge them like a feed sync.",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, repo, database, err := openRepo()
	if err != nil {
		return err
	}
	defer closeDB(database)

	logger := logging.New(cmd.ErrOrStderr(), cfg.DevMode)
	merger, err := newMerger(cfg, repo, logger)
	if err != nil {
		return err
	}

	res, err := importer.New(merger).ImportFile(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	invalidateCache(cmd, cfg)
	notify.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Queue, logger).Hook("import")(cmd.Context(), res.Summary)

	w := cmd.OutOrStdout()
	if isJSON() {
		return printJSON(w, res)
	}

	fmt.Fprintf(w, "Imported %d rows from %s\n", res.Rows, args[0])
	for _, d := range res.Discarded {
		fmt.Fprintf(w, "  skipped %s\n", d.Error())
	}
	for _, d := range res.Skipped {
		fmt.Fprintf(w, "  ignored day %s\n", d.Error())
	}
	printSummary(w, res.Summary)
	return nil
}
