package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kayz/promptblocks/internal/service"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newServiceCommand())
}

func newServiceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage the background web editor service",
		Long:  `Install, uninstall, start, stop, or check the status of the promptblocks web service.`,
	}

	var port int
	var logPath string
	installCmd := &cobra.Command{
		Use:   "install",
		Short: "Install the web editor as a system service (requires root)",
		RunE: func(cmd *cobra.Command, args []string) error {
			execPath, err := os.Executable()
			if err != nil {
				return fmt.Errorf("get executable path: %w", err)
			}
			unit := service.Unit{Port: port, LogPath: logPath}
			if configPath != "" {
				if unit.ConfigPath, err = filepath.Abs(configPath); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Installing promptblocks service...")
			if err := service.Install(execPath, unit); err != nil {
				return fmt.Errorf("install service: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Service installed successfully!")
			return nil
		},
	}
	installCmd.Flags().IntVar(&port, "port", 0, "Port for the service (default: from config)")
	installCmd.Flags().StringVar(&logPath, "log-file", "", "Service stdout/stderr file")

	uninstallCmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Uninstall the service",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := service.Uninstall(); err != nil {
				return fmt.Errorf("uninstall service: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Service uninstalled.")
			return nil
		},
	}

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the service",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := service.Start(); err != nil {
				return fmt.Errorf("start service: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Service started.")
			return nil
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the service",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := service.Stop(); err != nil {
				return fmt.Errorf("stop service: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Service stopped.")
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show service status",
		Run: func(cmd *cobra.Command, args []string) {
			switch {
			case !service.IsInstalled():
				fmt.Fprintln(cmd.OutOrStdout(), "Service is not installed.")
			case service.IsRunning():
				fmt.Fprintln(cmd.OutOrStdout(), "Service is running.")
			default:
				fmt.Fprintln(cmd.OutOrStdout(), "Service is installed but not running.")
			}
		},
	}

	cmd.AddCommand(installCmd, uninstallCmd, startCmd, stopCmd, statusCmd)
	return cmd
}
