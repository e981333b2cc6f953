package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"nselfadmin/internal/config"
	"nselfadmin/internal/ui"
)

// NewConfigCmd creates the config command
func NewConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long: `Show the configuration the daemon would run with: file values merged
over defaults and NSELFADMIN_* environment overrides.

Use 'nselfadmin set' to change source intervals.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ui.PrintHeader()

			ui.PrintSection("Configuration")
			if cfg.File != "" {
				ui.PrintKeyValue("File", cfg.File)
			} else {
				ui.PrintKeyValue("File", "none (defaults)")
			}
			ui.PrintKeyValue("Log", cfg.Log.File)
			ui.PrintKeyValue("Debug", fmt.Sprintf("%t", cfg.Log.Debug))
			ui.PrintSectionEnd()

			ui.PrintSection("Collaborator")
			ui.PrintKeyValue("Base URL", cfg.Collaborator.BaseURL)
			ui.PrintKeyValue("Token", maskToken(cfg.Collaborator.Token))
			ui.PrintKeyValue("Timeout", cfg.Collaborator.Timeout.String())
			ui.PrintKeyValue("Push stream", cfg.Realtime.URL)
			ui.PrintKeyValue("Push enabled", fmt.Sprintf("%t", cfg.Realtime.Enabled))
			ui.PrintKeyValue("Reconnect", fmt.Sprintf("%t (%s - %s)",
				cfg.Realtime.Reconnect, cfg.Realtime.MinInterval, cfg.Realtime.MaxInterval))
			ui.PrintSectionEnd()

			ui.PrintSection("Runtime")
			ui.PrintKeyValue("Provider", cfg.Runtime.Provider)
			ui.PrintKeyValue("Binary", cfg.Runtime.Binary)
			ui.PrintKeyValue("Cache TTL", cfg.Runtime.CacheTTL.String())
			ui.PrintKeyValue("Storage capacity", fmt.Sprintf("%.0f GB", cfg.Runtime.StorageCapacityGB))
			ui.PrintKeyValue("API listen", cfg.Server.Listen)
			if cfg.OTel.Endpoint != "" {
				ui.PrintKeyValue("OTLP endpoint", cfg.OTel.Endpoint)
				ui.PrintKeyValue("OTLP interval", cfg.OTel.Interval.String())
			} else {
				ui.PrintKeyValue("OTLP export", "disabled")
			}
			ui.PrintSectionEnd()

			ui.PrintSection("Sources")
			for _, name := range sourceNames() {
				sc := cfg.Source(name)
				state := "enabled"
				if !sc.Enabled {
					state = "disabled"
				}
				ui.PrintKeyValue(name, fmt.Sprintf("every %s, %s", sc.Interval, state))
			}
			ui.PrintSectionEnd()
			return nil
		},
	}
}

func sourceNames() []string {
	names := make([]string, 0, len(config.DefaultSourceIntervals))
	for name := range config.DefaultSourceIntervals {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// maskToken keeps the first and last four characters of long tokens.
func maskToken(token string) string {
	switch {
	case token == "":
		return "not set"
	case len(token) <= 8:
		return "********"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
