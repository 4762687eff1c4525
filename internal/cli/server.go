package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"sentinelhive/internal/firewall"
	"sentinelhive/internal/logging"
	"sentinelhive/internal/supervisor"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Manage the API server processes",
}

var serverStartCmd = &cobra.Command{
	Use:       "start [all|client|db]",
	Short:     "Start server process(es)",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"all", "client", "db"},
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSupervisor(args, func(ctx context.Context, sup *supervisor.Supervisor, services []supervisor.ServiceName) error {
			for _, svc := range services {
				status, err := sup.Start(ctx, svc)
				printStatus(status)
				if err != nil {
					return err
				}
			}
			return nil
		})
	},
}

var serverStopCmd = &cobra.Command{
	Use:       "stop [all|client|db]",
	Short:     "Stop server process(es)",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"all", "client", "db"},
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSupervisor(args, func(ctx context.Context, sup *supervisor.Supervisor, services []supervisor.ServiceName) error {
			// Stop in reverse start order.
			for i := len(services) - 1; i >= 0; i-- {
				status, err := sup.Stop(ctx, services[i])
				printStatus(status)
				if err != nil {
					return err
				}
			}
			return nil
		})
	},
}

var serverStatusCmd = &cobra.Command{
	Use:       "status [all|client|db]",
	Short:     "Show server process status",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"all", "client", "db"},
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSupervisor(args, func(_ context.Context, sup *supervisor.Supervisor, services []supervisor.ServiceName) error {
			for _, svc := range services {
				status, err := sup.Status(svc)
				if err != nil {
					return err
				}
				printStatus(status)
			}
			return nil
		})
	},
}

var serverFirewallCmd = &cobra.Command{
	Use:       "firewall <enable|disable|status>",
	Short:     "Toggle or inspect the host firewall",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"enable", "disable", "status"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctrl := firewall.NewController(cfg.Firewall.UseSudo, logging.New(cfg.App.Env, "firewall"))
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		switch args[0] {
		case "enable":
			if err := ctrl.Enable(ctx); err != nil {
				return err
			}
			fmt.Println("firewall enabled")
		case "disable":
			if err := ctrl.Disable(ctx); err != nil {
				return err
			}
			fmt.Println("firewall disabled")
		case "status":
			active, err := ctrl.Active(ctx)
			if err != nil {
				return err
			}
			if active {
				fmt.Println("firewall: active")
			} else {
				fmt.Println("firewall: inactive")
			}
		default:
			return fmt.Errorf("unknown firewall action %q", args[0])
		}
		return nil
	},
}

func init() {
	serverCmd.AddCommand(serverStartCmd)
	serverCmd.AddCommand(serverStopCmd)
	serverCmd.AddCommand(serverStatusCmd)
	serverCmd.AddCommand(serverFirewallCmd)
	rootCmd.AddCommand(serverCmd)
}

func withSupervisor(args []string, fn func(context.Context, *supervisor.Supervisor, []supervisor.ServiceName) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	selector := "all"
	if len(args) == 1 {
		selector = args[0]
	}
	services, err := supervisor.Services(selector)
	if err != nil {
		return err
	}

	sup := supervisor.New(cfg, logging.New(cfg.App.Env, "supervisor"))
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	return fn(ctx, sup, services)
}

func printStatus(status supervisor.Status) {
	line := fmt.Sprintf("%-8s %-8s", status.Service, status.State)
	if status.PID != 0 {
		line += fmt.Sprintf("  pid=%d", status.PID)
	}
	if status.Addr != "" {
		line += fmt.Sprintf("  addr=%s", status.Addr)
	}
	if status.Uptime > 0 {
		line += fmt.Sprintf("  uptime=%s", status.Uptime.Round(time.Second))
	}
	if status.Reason != "" {
		line += fmt.Sprintf("  reason=%s", status.Reason)
	}
	fmt.Println(line)
}
