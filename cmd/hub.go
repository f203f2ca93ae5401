package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"magnetar/internal/cli"
	"magnetar/internal/hub"
	"magnetar/internal/logger"
)

var (
	hubConfigPath string
	hubDebugFlag  bool
	hubTestFlag   bool
	hubAPIURL     string
)

var hubCmd = &cobra.Command{
	Use:   "hub",
	Short: "Start the Magnetar hub daemon",
	Long: `Magnetar Hub is a daemon that manages the players listed in its
configuration file and exposes them over an HTTP action API.
Actions on one player are serialized; retried requests carrying the same
X-Nonce header are answered from cache instead of pressing twice.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.SetSilentMode(false)
		if hubDebugFlag {
			logger.SetLevel(logger.LOG_DEBUG)
		} else {
			logger.SetLevel(logger.LOG_INFO)
		}

		log := logger.GetLogger("cmd")
		log.Info().
			Str("config_path", hubConfigPath).
			Bool("debug", hubDebugFlag).
			Bool("test", hubTestFlag).
			Msg("Starting Magnetar hub daemon")

		if _, err := os.Stat(hubConfigPath); errors.Is(err, os.ErrNotExist) {
			defaultConfig := hub.NewDefaultConfig()
			if err := hub.SaveConfig(defaultConfig, hubConfigPath); err != nil {
				log.Error().Err(err).Msg("Failed to create default config file")
				return fmt.Errorf("failed to create default config file: %w", err)
			}
			log.Info().
				Str("config_path", hubConfigPath).
				Msg("Created default configuration file. Please edit it with your settings.")
			return nil
		}

		daemon, err := hub.NewDaemon(hubConfigPath, hubDebugFlag, hubTestFlag)
		if err != nil {
			log.Error().Err(err).Msg("Failed to create hub daemon")
			return fmt.Errorf("failed to create hub daemon: %w", err)
		}

		if err := daemon.Start(); err != nil {
			log.Error().Err(err).Msg("Hub daemon stopped with error")
			return fmt.Errorf("hub daemon error: %w", err)
		}

		return nil
	},
}

var hubStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check hub daemon status",
	Long:  `Query the health endpoint of a running hub daemon.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := &http.Client{Timeout: 5 * time.Second}
		resp, err := client.Get(hubAPIURL + "/health")
		if err != nil {
			return fmt.Errorf("hub is not reachable at %s: %w", hubAPIURL, err)
		}
		defer resp.Body.Close()

		var health hub.APIResponse
		if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
			return fmt.Errorf("failed to decode health response: %w", err)
		}
		if !health.Success {
			return fmt.Errorf("hub reported unhealthy: %s", health.Error)
		}

		data, _ := health.Data.(map[string]interface{})
		cmd.Printf("Hub %v is %v with %v device(s)\n", data["hub_id"], data["status"], data["device_count"])
		return nil
	},
}

var hubConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage hub configuration",
	Long:  `Generate or validate hub configuration files.`,
}

var hubConfigGenerateCmd = &cobra.Command{
	Use:   "generate [config-file]",
	Short: "Generate default configuration file",
	Long:  `Generate a default configuration file with the factory connection settings.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := hubConfigPath
		if len(args) > 0 {
			configPath = args[0]
		}

		if err := hub.SaveConfig(hub.NewDefaultConfig(), configPath); err != nil {
			return fmt.Errorf("failed to save default config: %w", err)
		}
		logger.Info("Generated default hub configuration")

		cmd.Printf("Default configuration saved to: %s\n", configPath)
		cmd.Println("Pair each player with 'magnetar remote pair --save' or edit the file directly.")
		return nil
	},
}

var hubConfigValidateCmd = &cobra.Command{
	Use:   "validate [config-file]",
	Short: "Validate configuration file",
	Long:  `Validate a hub configuration file for syntax and required fields.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := hubConfigPath
		if len(args) > 0 {
			configPath = args[0]
		}

		config, err := hub.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}

		cmd.Printf("Configuration file is valid: %s\n", configPath)
		cmd.Printf("API listen address: %s\n", config.ListenAddress())
		cmd.Printf("Configured devices: %d\n", len(config.Devices))

		for _, device := range config.Devices {
			cmd.Printf("  - %s at %s (%d baud)\n", device.ID, device.Parameters().URL(), device.BaudRate)
		}

		return nil
	},
}

var hubConfigListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured devices",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		devices, err := cli.NewConfigManager(hubConfigPath).ListDevices()
		if err != nil {
			return err
		}

		for _, device := range devices {
			cmd.Printf("%-20s %-12s %s (%d baud)\n", device.ID, device.Name, device.Parameters().URL(), device.BaudRate)
		}
		return nil
	},
}

var hubConfigShowCmd = &cobra.Command{
	Use:   "show [device-id]",
	Short: "Show one configured device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		device, err := cli.NewConfigManager(hubConfigPath).GetDevice(args[0])
		if err != nil {
			return err
		}

		cmd.Printf("ID:        %s\n", device.ID)
		cmd.Printf("Name:      %s\n", device.Name)
		cmd.Printf("Address:   %s\n", device.Parameters().URL())
		cmd.Printf("Baud rate: %d\n", device.BaudRate)
		return nil
	},
}

var hubConfigRemoveCmd = &cobra.Command{
	Use:   "remove [device-id]",
	Short: "Remove a configured device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager := cli.NewConfigManager(hubConfigPath)
		if err := manager.BackupConfig(); err != nil {
			return fmt.Errorf("failed to back up config: %w", err)
		}
		if err := manager.RemoveDevice(args[0]); err != nil {
			return err
		}

		cmd.Printf("Removed device %q (previous config saved to %s.backup)\n", args[0], manager.GetConfigPath())
		return nil
	},
}

var hubConfigBackupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Back up the configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		manager := cli.NewConfigManager(hubConfigPath)
		if err := manager.BackupConfig(); err != nil {
			return fmt.Errorf("failed to back up config: %w", err)
		}

		cmd.Printf("Configuration saved to %s.backup\n", manager.GetConfigPath())
		return nil
	},
}

var hubConfigRestoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore the configuration file from its backup",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		manager := cli.NewConfigManager(hubConfigPath)
		if err := manager.RestoreFromBackup(); err != nil {
			return err
		}

		cmd.Printf("Configuration restored to %s\n", manager.GetConfigPath())
		return nil
	},
}

func init() {
	hubCmd.Flags().StringVarP(&hubConfigPath, "config", "c", "hub.yml", "Path to hub configuration file")
	hubCmd.Flags().BoolVarP(&hubDebugFlag, "debug", "d", false, "Enable debug logging")
	hubCmd.Flags().BoolVar(&hubTestFlag, "test", false, "Enable test mode (simulated players)")

	hubCmd.AddCommand(hubStatusCmd)
	hubCmd.AddCommand(hubConfigCmd)
	hubConfigCmd.AddCommand(hubConfigGenerateCmd)
	hubConfigCmd.AddCommand(hubConfigValidateCmd)
	hubConfigCmd.AddCommand(hubConfigListCmd)
	hubConfigCmd.AddCommand(hubConfigShowCmd)
	hubConfigCmd.AddCommand(hubConfigRemoveCmd)
	hubConfigCmd.AddCommand(hubConfigBackupCmd)
	hubConfigCmd.AddCommand(hubConfigRestoreCmd)

	hubStatusCmd.Flags().StringVar(&hubAPIURL, "api", "http://localhost:8081", "Base URL of the hub API")
	hubConfigGenerateCmd.Flags().StringVarP(&hubConfigPath, "config", "c", "hub.yml", "Path for generated configuration file")
	hubConfigValidateCmd.Flags().StringVarP(&hubConfigPath, "config", "c", "hub.yml", "Path to configuration file to validate")
	for _, c := range []*cobra.Command{hubConfigListCmd, hubConfigShowCmd, hubConfigRemoveCmd, hubConfigBackupCmd, hubConfigRestoreCmd} {
		c.Flags().StringVarP(&hubConfigPath, "config", "c", "hub.yml", "Path to hub configuration file")
	}
}
