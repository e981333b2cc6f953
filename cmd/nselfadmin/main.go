package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"nselfadmin/internal/commands"
	"nselfadmin/internal/ui"
)

// VERSION is set during build via ldflags
var VERSION string

// getCurrentVersion returns the ldflags version, falling back to version.txt.
func getCurrentVersion() string {
	version := VERSION
	if version == "" {
		if versionData, err := os.ReadFile("version.txt"); err == nil {
			version = strings.TrimSpace(string(versionData))
		}
	}
	return version
}

func main() {
	commands.GetCurrentVersion = getCurrentVersion

	rootCmd := &cobra.Command{
		Use:                "nselfadmin",
		Short:              "Sync engine for the nself admin dashboard",
		DisableSuggestions: true,
		SilenceUsage:       true,
		SilenceErrors:      true,
		CompletionOptions:  cobra.CompletionOptions{DisableDefaultCmd: true},
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Lookup("version").Changed {
				fmt.Printf("v%s\n", getCurrentVersion())
				return nil
			}

			ui.PrintHeader()

			ui.PrintSection("Quick Start")
			ui.PrintKeyValue("Run in foreground", "nselfadmin daemon")
			ui.PrintKeyValue("Install service", "nselfadmin service install")
			ui.PrintKeyValue("Check status", "nselfadmin status")
			ui.PrintKeyValue("Tune a source", "nselfadmin set containers.interval=2s")
			ui.PrintSectionEnd()

			ui.PrintStatus("info", "Use 'nselfadmin [command] --help' for detailed help")
			return nil
		},
	}

	rootCmd.Flags().BoolP("version", "v", false, "Show version information")
	rootCmd.PersistentFlags().StringVarP(&commands.ConfigPath, "config", "c", "", "config file (default $HOME/.nselfadmin/config.yaml)")

	rootCmd.AddCommand(commands.NewDaemonCmd())
	rootCmd.AddCommand(commands.NewStatusCmd())
	rootCmd.AddCommand(commands.NewSetCmd())
	rootCmd.AddCommand(commands.NewConfigCmd())
	rootCmd.AddCommand(commands.NewServiceCmd())
	rootCmd.AddCommand(commands.NewStopCmd())
	rootCmd.AddCommand(commands.NewCleanupCmd())
	rootCmd.AddCommand(commands.NewVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		ui.PrintStatus("error", err.Error())
		os.Exit(1)
	}
}
