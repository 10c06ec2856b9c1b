package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"assay.dev/pkg/assay/internal/domain"
)

// viewCmd represents the view command.
var viewCmd = newViewCmd()

func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view",
		Short: "View the last synthesis report",
		Long:  "View the report saved by the last synth run in the reports directory.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return workflow.View(commandContext(cmd), domain.ViewArgs{Reports: viper.GetString(outputFlagName)})
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(viewCmd)
}
