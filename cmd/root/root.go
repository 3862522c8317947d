// Package root implements the command line interface for Slipway.
package root

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/slipway-sh/slipway/app"
	"github.com/slipway-sh/slipway/cmd/output"
	"github.com/slipway-sh/slipway/cmd/project"
	"github.com/slipway-sh/slipway/cmd/server"
	"github.com/slipway-sh/slipway/cmd/version"
	"github.com/slipway-sh/slipway/config"
	"github.com/slipway-sh/slipway/logging"
)

var appConfig *config.Config

func Execute() {
	if err := NewCmdRoot(config.GetDefaultDataDir()).Execute(); err != nil {
		os.Exit(1)
	}
}

func NewCmdRoot(defaultDataDir string) *cobra.Command {
	var dataDir string

	cmd := &cobra.Command{
		Use:   "slipway",
		Short: "Self-hosted push-to-deploy platform",
		Long: `Slipway runs applications from git pushes. Push to a project's
repository and Slipway builds a container image with buildpacks, starts it
and routes a subdomain to it.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// The server command loads its own configuration from the
			// config file and version needs none.
			if cmd.Name() == "server" || cmd.Name() == "version" {
				return
			}

			var err error
			appConfig, err = config.NewConfigForCLI(dataDir)
			if err != nil {
				log.Fatalf("Failed to initialize configuration: %s", err)
			}

			// CLI flags override config
			colorDisabled := !appConfig.ColorEnabled
			if output.NoColor.IsSet() {
				colorDisabled = true
			}
			output.InitColors(colorDisabled)

			logLevel := appConfig.LogLevel
			if logging.LogLevel.IsSet() {
				logLevel = logging.LogLevel.String()
			}
			logging.InitLogging(logLevel, appConfig.LogFormat)

			if err := app.InitializeWithConfig(appConfig); err != nil {
				log.Fatalf("Failed to initialize application: %s", err)
			}
		},
	}

	cmd.PersistentFlags().
		StringVarP(&dataDir, "data-dir", "d", defaultDataDir, "Data directory for Slipway state and repositories")
	cmd.PersistentFlags().VarP(logging.LogLevel, "log-level", "l", "Set log verbosity level")
	cmd.PersistentFlags().VarP(output.NoColor, "no-color", "c", "Disable colored terminal output")

	cmd.AddCommand(project.NewCmdProject())
	cmd.AddCommand(server.NewCmdServer())
	cmd.AddCommand(version.NewCmdVersion())
	return cmd
}
