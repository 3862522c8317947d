package project

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/slipway-sh/slipway/app"
	"github.com/slipway-sh/slipway/cmd/output"
	"github.com/slipway-sh/slipway/cmd/utils"
)

func NewCmdProjectRemove() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <owner> <name>",
		Short: "Remove a project and everything it owns",
		Long: `Tear down a project: its container, database sibling, network, volume,
image, git repository and database records.

Teardown continues past individual failures and reports the outcome per
resource.`,
		Args: cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			statuses := app.GetProjectService().Delete(cmd.Context(), args[0], args[1])

			resources := make([]string, 0, len(statuses))
			for resource := range statuses {
				resources = append(resources, resource)
			}
			sort.Strings(resources)

			var data [][]string
			for _, resource := range resources {
				data = append(data, []string{resource, statuses[resource]})
			}

			table, err := output.PrintTable([]string{"Resource", "Status"}, data)
			if err != nil {
				utils.HandleCommandError("printing removal results", err)
				return
			}
			if err := output.FprintPlain(cmd, "%s", table); err != nil {
				utils.HandleCommandError("printing removal results", err)
			}
		},
	}
}
