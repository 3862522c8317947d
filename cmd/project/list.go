package project

import (
	"github.com/spf13/cobra"

	"github.com/slipway-sh/slipway/app"
	"github.com/slipway-sh/slipway/cmd/output"
	"github.com/slipway-sh/slipway/cmd/utils"
)

func NewCmdProjectList() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all projects",
		Long: `Display all projects currently managed by Slipway.

Shows project information in a table format including owner, name and
creation timestamp.`,
		Run: func(cmd *cobra.Command, args []string) {
			projects, err := app.GetProjectService().List()
			if err != nil {
				utils.HandleCommandError("listing projects", err)
				return
			}

			out, err := output.PrintProjectList(projects)
			if err != nil {
				utils.HandleCommandError("printing project list table", err)
				return
			}

			if err := output.FprintPlain(cmd, "%s", out); err != nil {
				utils.HandleCommandError("printing project list output", err)
			}
		},
	}
}
