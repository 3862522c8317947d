package project

import (
	"github.com/spf13/cobra"

	"github.com/slipway-sh/slipway/app"
	"github.com/slipway-sh/slipway/cmd/output"
	"github.com/slipway-sh/slipway/cmd/utils"
)

func NewCmdProjectBuilds() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "builds <owner> <name>",
		Short: "List builds for a project",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			builds, err := app.GetProjectService().ListBuilds(args[0], args[1], limit)
			if err != nil {
				utils.HandleCommandError("listing builds", err)
				return
			}

			out, err := output.PrintBuildList(builds)
			if err != nil {
				utils.HandleCommandError("printing build list table", err)
				return
			}

			if err := output.FprintPlain(cmd, "%s", out); err != nil {
				utils.HandleCommandError("printing build list output", err)
			}
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of builds to show")
	return cmd
}
