package cli

import (
	"adeptly/internal/importer"

	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import problems from an .xlsx or .csv file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		sheet, _ := cmd.Flags().GetString("sheet")
		result, err := importer.New(e.db, e.log).ImportFile(cmd.Context(), importer.ImportConfig{
			FilePath:  args[0],
			SheetName: sheet,
		})
		if err != nil {
			return err
		}
		return printJSONReport(cmd, result)
	},
}

func init() {
	importCmd.Flags().String("sheet", "", "Worksheet to read (first sheet by default)")
}
