package commands

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"nselfadmin/internal/collectors"
	"nselfadmin/internal/config"
	"nselfadmin/internal/process"
	"nselfadmin/internal/scheduler"
	"nselfadmin/internal/server"
	"nselfadmin/internal/ui"
)

// sourceChange collects the settings one "set" call changes for a source.
type sourceChange struct {
	Name     string
	Interval *time.Duration
	Enabled  *bool
}

// NewSetCmd creates the set command
func NewSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <source>.<key>=<value>...",
		Short: "Change a source's polling interval or enable it",
		Long: `Change per-source polling settings. The configuration file is updated
and, when the daemon is running, the change is applied live.

Sources: project, system, containers, container_stats, database
Keys:
  • interval  - polling interval (Go duration, e.g. 5s, 1m)
  • enabled   - true or false

Examples:
  nselfadmin set containers.interval=2s
  nselfadmin set database.enabled=false system.interval=10s`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			changes, err := parseAssignments(args)
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ui.PrintHeader()
			ui.PrintSection("Configuring Sources")

			applyChanges(cfg, changes)
			for _, ch := range changes {
				sc := cfg.Source(ch.Name)
				ui.PrintStatus("success", fmt.Sprintf("%s: enabled=%t interval=%s", ch.Name, sc.Enabled, sc.Interval))
			}

			path := configFile(cfg)
			if err := config.SaveConfig(cfg, path); err != nil {
				ui.PrintStatus("error", fmt.Sprintf("Failed to save config: %v", err))
				ui.PrintSectionEnd()
				return err
			}
			ui.PrintStatus("success", fmt.Sprintf("Configuration saved to %s", path))

			running, _, _ := process.Check()
			if !running {
				ui.PrintStatus("info", "Daemon is not running, changes apply on next start")
				ui.PrintSectionEnd()
				return nil
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			client := apiClient(cfg)
			for _, ch := range changes {
				st, err := pushChange(ctx, client, ch)
				if err != nil {
					ui.PrintStatus("warning", fmt.Sprintf("Live update of %s failed: %v", ch.Name, err))
					continue
				}
				ui.PrintStatus("success", fmt.Sprintf("Daemon updated %s (interval %s, enabled %t)", st.Name, st.Interval, st.Enabled))
			}
			ui.PrintSectionEnd()
			return nil
		},
	}
}

// parseAssignments parses "source.key=value" arguments. Several arguments
// for one source merge into a single change; order follows source name.
func parseAssignments(args []string) ([]sourceChange, error) {
	byName := make(map[string]*sourceChange)
	for _, arg := range args {
		lhs, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("invalid format %q: want source.key=value", arg)
		}
		name, key, ok := strings.Cut(lhs, ".")
		if !ok {
			return nil, fmt.Errorf("invalid format %q: want source.key=value", arg)
		}
		if _, known := config.DefaultSourceIntervals[name]; !known {
			return nil, fmt.Errorf("unknown source %q", name)
		}

		ch, seen := byName[name]
		if !seen {
			ch = &sourceChange{Name: name}
			byName[name] = ch
		}

		switch key {
		case "interval":
			d, err := time.ParseDuration(value)
			if err != nil {
				return nil, fmt.Errorf("invalid interval for %s: %w", name, err)
			}
			if d <= 0 {
				return nil, fmt.Errorf("interval for %s must be positive", name)
			}
			ch.Interval = &d
		case "enabled":
			b, err := strconv.ParseBool(value)
			if err != nil {
				return nil, fmt.Errorf("invalid enabled value for %s: %q", name, value)
			}
			ch.Enabled = &b
		default:
			return nil, fmt.Errorf("unknown key %q for %s (want interval or enabled)", key, name)
		}
	}

	changes := make([]sourceChange, 0, len(byName))
	for _, ch := range byName {
		changes = append(changes, *ch)
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Name < changes[j].Name })
	return changes, nil
}

// applyChanges writes changes into cfg.Sources.
func applyChanges(cfg *config.Config, changes []sourceChange) {
	if cfg.Sources == nil {
		cfg.Sources = make(map[string]config.SourceConfig)
	}
	for _, ch := range changes {
		sc := cfg.Source(ch.Name)
		if ch.Interval != nil {
			sc.Interval = *ch.Interval
		}
		if ch.Enabled != nil {
			sc.Enabled = *ch.Enabled
		}
		cfg.Sources[ch.Name] = sc
	}
}

// pushChange applies ch to the running daemon through its API.
func pushChange(ctx context.Context, client *collectors.Client, ch sourceChange) (scheduler.SourceStatus, error) {
	var update server.SourceUpdate
	if ch.Interval != nil {
		s := ch.Interval.String()
		update.Interval = &s
	}
	update.Enabled = ch.Enabled

	path := strings.Replace(server.PathSchedulerSource, ":name", ch.Name, 1)
	return collectors.Send[scheduler.SourceStatus](ctx, client, http.MethodPut, path, update)
}
