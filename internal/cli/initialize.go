package cli

import (
	"adeptly/internal/models"

	"github.com/spf13/cobra"
)

var initializeCmd = &cobra.Command{
	Use:   "initialize",
	Short: "Create the default topics and ranks (idempotent)",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		report, err := models.SeedDefaults(cmd.Context(), e.db)
		if err != nil {
			return err
		}
		e.log.Info("initialization finished",
			"topics_created", len(report.TopicsCreated),
			"ranks_created", len(report.RanksCreated),
		)
		return printJSONReport(cmd, report)
	},
}
