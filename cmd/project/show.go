package project

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/slipway-sh/slipway/app"
	"github.com/slipway-sh/slipway/cmd/output"
	"github.com/slipway-sh/slipway/cmd/utils"
	"github.com/slipway-sh/slipway/domain"
)

func NewCmdProjectShow() *cobra.Command {
	return &cobra.Command{
		Use:   "show <owner> <name>",
		Short: "Show project details",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			svc := app.GetProjectService()
			cfg := app.GetConfig()

			proj, err := svc.Get(args[0], args[1])
			if err != nil {
				utils.HandleCommandError("getting project", err)
				return
			}

			details, err := output.PrintProjectDetails(proj, proj.DomainURL(cfg.BaseDomain, cfg.Secure))
			if err != nil {
				utils.HandleCommandError("printing project details", err)
				return
			}
			if err := output.FprintPlain(cmd, "%s", details); err != nil {
				utils.HandleCommandError("printing project output", err)
				return
			}

			build, err := svc.LatestBuild(args[0], args[1])
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					_ = output.FprintPlain(cmd, "No builds yet.")
					return
				}
				utils.HandleCommandError("getting latest build", err)
				return
			}

			if err := output.FprintPlain(cmd, "Latest build: %s (%s)",
				build.Status.Display(), build.Commit); err != nil {
				utils.HandleCommandError("printing project output", err)
			}
		},
	}
}
