package cmd

import (
	"github.com/spf13/cobra"
	"magnetar/cmd/cli"
	"magnetar/internal/logger"
)

var (
	debugFlag bool
	testFlag  bool
)

var cliCmd = &cobra.Command{
	Use:   "cli",
	Short: "Start the interactive remote",
	Long: `Launch the interactive Terminal User Interface (TUI) for Magnetar.
Enter the player's host, port and baud rate, pair with it, then drive it
from an on-screen remote.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if debugFlag || testFlag {
			logger.SetSilentMode(false)
			if debugFlag {
				logger.SetLevel(logger.LOG_DEBUG)
			}
		} else {
			logger.SetSilentMode(true)
		}

		log := logger.GetLogger("cmd")
		log.Info().
			Bool("debug", debugFlag).
			Bool("test", testFlag).
			Msg("Starting Magnetar CLI interface")

		if err := cli.StartTUI(debugFlag, testFlag); err != nil {
			log.Error().Err(err).Msg("Failed to start TUI")
			return err
		}

		return nil
	},
}

func init() {
	cliCmd.Flags().BoolVar(&debugFlag, "debug", false, "Enable debug logging for device sessions")
	cliCmd.Flags().BoolVar(&testFlag, "test", false, "Enable test mode (simulated player)")
}
