package cli

import (
	"fmt"

	"adeptly/internal/oss"
	"adeptly/internal/services"

	"github.com/spf13/cobra"
)

var diagramCmd = &cobra.Command{
	Use:   "diagram <problem-name> <key>",
	Short: "Attach a stored diagram to a problem",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		var diagrams services.DiagramStore
		if e.cfg.OSS.Enabled {
			store, err := oss.NewDiagramStore(e.cfg.OSS)
			if err != nil {
				return fmt.Errorf("init diagram store: %w", err)
			}
			diagrams = store
		}

		solution, _ := cmd.Flags().GetBool("solution")
		catalog := services.NewCatalogService(e.db, nil, diagrams, e.log)
		problem, err := catalog.AttachDiagram(cmd.Context(), args[0], args[1], solution)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "attached %s to problem %d (%s)\n", args[1], problem.ID, problem.Name)
		return nil
	},
}

func init() {
	diagramCmd.Flags().Bool("solution", false, "Attach as the solution diagram instead of the problem diagram")
}
