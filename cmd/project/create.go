package project

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/slipway-sh/slipway/app"
	"github.com/slipway-sh/slipway/cmd/output"
	"github.com/slipway-sh/slipway/cmd/utils"
)

func NewCmdProjectCreate() *cobra.Command {
	var envPairs []string

	cmd := &cobra.Command{
		Use:   "create <owner> <name>",
		Short: "Create a new project",
		Long: `Create a project: its bare git repository, database records and the
API token used as the git password.

The token is printed once and cannot be recovered afterwards.`,
		Args: cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			env := map[string]string{}
			for _, pair := range envPairs {
				key, value, found := strings.Cut(pair, "=")
				if !found || key == "" {
					utils.HandleCommandError("parsing environment variable",
						fmt.Errorf("expected KEY=VALUE, got %q", pair))
					return
				}
				env[key] = value
			}

			result, err := app.GetProjectService().Create(args[0], args[1], env)
			if err != nil {
				utils.HandleCommandError("creating project", err)
				return
			}

			details, err := output.PrintProjectDetails(result.Project, result.DomainURL)
			if err != nil {
				utils.HandleCommandError("printing project details", err)
				return
			}

			if err := output.FprintSuccess(cmd, "Project created."); err != nil {
				utils.HandleCommandError("printing project output", err)
				return
			}
			if err := output.FprintPlain(cmd, "%s", details); err != nil {
				utils.HandleCommandError("printing project output", err)
				return
			}
			if err := output.FprintPlain(cmd,
				"Git credentials (shown once):\n  username: %s\n  password: %s",
				result.GitUsername, result.GitPassword); err != nil {
				utils.HandleCommandError("printing project output", err)
			}
		},
	}

	cmd.Flags().StringArrayVarP(&envPairs, "env", "e", nil,
		"Environment variable KEY=VALUE (repeatable)")
	return cmd
}
