package cli

import (
	"github.com/spf13/cobra"
)

func newHousesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "houses",
		Short: "List houses",
		Args:  cobra.NoArgs,
		RunE:  runHouses,
	}
}

func runHouses(cmd *cobra.Command, args []string) error {
	_, repo, database, err := openRepo()
	if err != nil {
		return err
	}
	defer closeDB(database)

	houses, err := repo.List(cmd.Context())
	if err != nil {
		return err
	}

	if isJSON() {
		return printJSON(cmd.OutOrStdout(), houses)
	}
	return printHouseTable(cmd.OutOrStdout(), houses)
}
