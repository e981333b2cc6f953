package commands

import (
	"fmt"

	"github.com/prometheus/common/version"
	"github.com/spf13/cobra"
)

// GetCurrentVersion is set by main so commands can report the build
// version without importing it.
var GetCurrentVersion func() string

func currentVersion() string {
	if GetCurrentVersion == nil {
		return "dev"
	}
	if v := GetCurrentVersion(); v != "" {
		return v
	}
	return "dev"
}

func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and build information",
		Run: func(cmd *cobra.Command, args []string) {
			version.Version = currentVersion()
			fmt.Fprintln(cmd.OutOrStdout(), version.Print("nselfadmin"))
		},
	}
}
