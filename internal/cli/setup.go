package cli

import (
	"adeptly/internal/services"

	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup [file]",
	Short: "Initialize an empty database and import problems into an empty catalog",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		var path string
		if len(args) == 1 {
			path = args[0]
		}
		report, err := services.Setup(cmd.Context(), e.db, path, e.log)
		if err != nil {
			return err
		}
		return printJSONReport(cmd, report)
	},
}
