package cli

import (
	"errors"

	"adeptly/internal/services"

	"github.com/spf13/cobra"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Compare topic stats with the experience ledger and list duplicate topics",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		report, err := services.NewLedgerAuditor(e.db, e.log).Run(cmd.Context())
		if err != nil {
			return err
		}
		if err := printJSONReport(cmd, report); err != nil {
			return err
		}
		strict, _ := cmd.Flags().GetBool("strict")
		if strict && !report.Clean() {
			return errors.New("ledger audit found inconsistencies")
		}
		return nil
	},
}

func init() {
	auditCmd.Flags().Bool("strict", false, "Exit non-zero when the audit is not clean")
}
