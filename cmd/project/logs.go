package project

import (
	"github.com/spf13/cobra"

	"github.com/slipway-sh/slipway/app"
	"github.com/slipway-sh/slipway/cmd/output"
	"github.com/slipway-sh/slipway/cmd/utils"
)

func NewCmdProjectLogs() *cobra.Command {
	var tail int

	cmd := &cobra.Command{
		Use:   "logs <owner> <name>",
		Short: "Show the project container's logs",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			logs, err := app.GetProjectService().Logs(cmd.Context(), args[0], args[1], tail)
			if err != nil {
				utils.HandleCommandError("getting project logs", err)
				return
			}

			if logs == "" {
				_ = output.FprintPlain(cmd, "No logs available.")
				return
			}
			if err := output.FprintPlain(cmd, "%s", logs); err != nil {
				utils.HandleCommandError("printing project logs", err)
			}
		},
	}

	cmd.Flags().IntVarP(&tail, "tail", "n", 100, "Number of log lines to show")
	return cmd
}
