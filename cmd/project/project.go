// Package project provides commands for managing Slipway projects.
package project

import "github.com/spf13/cobra"

func NewCmdProject() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage Slipway projects",
	}

	cmd.AddCommand(NewCmdProjectList())
	cmd.AddCommand(NewCmdProjectCreate())
	cmd.AddCommand(NewCmdProjectShow())
	cmd.AddCommand(NewCmdProjectRemove())
	cmd.AddCommand(NewCmdProjectBuilds())
	cmd.AddCommand(NewCmdProjectLogs())
	return cmd
}
