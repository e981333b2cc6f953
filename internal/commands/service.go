package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"nselfadmin/internal/service"
	"nselfadmin/internal/ui"
)

// NewServiceCmd creates the service command with subcommands
func NewServiceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage the nselfadmin system service",
		Long: `Manage the daemon as a system service (systemd on Linux, launchd on macOS).

Examples:
  nselfadmin service install   # Install and enable the service
  nselfadmin service start     # Start the service
  nselfadmin service status    # Check service status
  nselfadmin service remove    # Remove the service`,
	}

	cmd.AddCommand(serviceAction("install", "Install the daemon as a system service", "Installing Service",
		func(svc *service.Service) (string, error) { return svc.Install(ConfigPath) }))
	cmd.AddCommand(serviceAction("remove", "Remove the system service", "Removing Service",
		func(svc *service.Service) (string, error) {
			// A service that is not running fails to stop; removal still proceeds.
			_, _ = svc.Stop()
			return svc.Remove()
		}))
	cmd.AddCommand(serviceAction("start", "Start the system service", "Starting Service",
		func(svc *service.Service) (string, error) { return svc.Start() }))
	cmd.AddCommand(serviceAction("stop", "Stop the system service", "Stopping Service",
		func(svc *service.Service) (string, error) { return svc.Stop() }))
	cmd.AddCommand(serviceAction("restart", "Restart the system service", "Restarting Service",
		func(svc *service.Service) (string, error) {
			_, _ = svc.Stop()
			return svc.Start()
		}))
	cmd.AddCommand(serviceAction("status", "Check the system service status", "Service Status",
		func(svc *service.Service) (string, error) { return svc.Status() }))

	return cmd
}

func serviceAction(use, short, title string, fn func(*service.Service) (string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			ui.PrintHeader()
			ui.PrintSection(title)
			defer ui.PrintSectionEnd()

			svc, err := service.New()
			if err != nil {
				ui.PrintStatus("error", fmt.Sprintf("Failed to create service: %v", err))
				return err
			}

			status, err := fn(svc)
			if err != nil {
				ui.PrintStatus("error", fmt.Sprintf("Failed to %s: %v", use, err))
				return err
			}
			ui.PrintStatus("success", status)
			if use == "install" {
				ui.PrintStatus("info", "Run 'nselfadmin service start' to start syncing")
			}
			return nil
		},
	}
}
