// Package version provides the version command for Slipway.
package version

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/slipway-sh/slipway/app"
)

// NewCmdVersion creates the version command
func NewCmdVersion() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version information for Slipway.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), app.Version)
			return err
		},
	}
}
