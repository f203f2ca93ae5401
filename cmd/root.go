package cmd

import (
	"github.com/spf13/cobra"
	"magnetar/internal/logger"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "magnetar",
	Short: "Magnetar - remote control for Magnetar media players",
	Long: `Magnetar drives Magnetar media players over their serial-over-TCP
control port. It can press single buttons, pair with a player, run a hub
that exposes players over HTTP, and open an interactive remote.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logger.SetSilentMode(false)
			logger.SetLevel(logger.LOG_DEBUG)
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(cliCmd)
	rootCmd.AddCommand(hubCmd)
	rootCmd.AddCommand(remoteCmd)
}
