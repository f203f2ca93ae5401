package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"magnetar/internal/cli"
	"magnetar/internal/hub"
	"magnetar/internal/logger"
	"magnetar/internal/magnetar"
)

var (
	remoteHost       string
	remotePort       int
	remoteBaud       int
	remoteSerial     string
	remoteDebug      bool
	remoteTest       bool
	remoteSave       bool
	remoteConfigPath string
	remoteDeviceID   string
)

var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Control a Magnetar player directly",
	Long: `Send remote control actions to a Magnetar player over its serial link.
Each action opens a fresh connection, sends its commands 400ms apart and closes it.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if remoteDebug || verbose {
			logger.SetSilentMode(false)
			logger.SetLevel(logger.LOG_DEBUG)
		}
	},
}

var remotePressCmd = &cobra.Command{
	Use:   "press [action]",
	Short: "Press a remote button",
	Long: `Press a remote button on the player.
Run 'magnetar remote list' to see the available actions.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: magnetar.ActionKeys(),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := strings.ToLower(args[0])
		remote := magnetar.NewMagnetarRemote("cli", remoteParameters(), nil, remoteOptions()...)

		responses, err := remote.Press(contextOrBackground(cmd), key)
		if err != nil {
			if errors.Is(err, magnetar.ErrUnknownAction) {
				return fmt.Errorf("unknown action %q (see 'magnetar remote list')", key)
			}
			logger.Error(err, "Failed to press button")
			return err
		}

		cmd.Printf("%s: %d/%d acknowledged\n", key, magnetar.CountAcks(responses), len(responses))
		return nil
	},
}

var remoteSendCmd = &cobra.Command{
	Use:   "send [code]...",
	Short: "Send raw command codes",
	Long: `Send command codes such as PON or NDN in the given order, one session
for the whole sequence. Codes are case-insensitive.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		seq := make(magnetar.Sequence, 0, len(args))
		for _, arg := range args {
			code, err := magnetar.ParseCode(arg)
			if err != nil {
				return err
			}
			seq = append(seq, code)
		}

		client := magnetar.NewMagnetarClient(remoteParameters(), remoteOptions()...)
		responses, err := client.Execute(contextOrBackground(cmd), seq)
		if err != nil {
			logger.Error(err, "Failed to send codes")
			return err
		}

		for i, code := range seq {
			cmd.Printf("%s: %q\n", code, responses[i])
		}
		return nil
	},
}

var remoteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available actions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.Println("Available actions:")
		for _, action := range magnetar.Catalog() {
			cmd.Printf("  %-18s %-18s %s\n", action.Key, action.Name, strings.Join(action.Sequence.Strings(), " "))
		}
		return nil
	},
}

var remotePairCmd = &cobra.Command{
	Use:   "pair",
	Short: "Check that a player answers on the given connection",
	Long: `Send a power-on command and require the player to acknowledge it.
With --save the confirmed parameters are stored in the hub configuration.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		params := remoteParameters()
		if err := params.Validate(); err != nil {
			return err
		}

		client := magnetar.NewMagnetarClient(params, remoteOptions()...)
		if err := magnetar.Pair(contextOrBackground(cmd), client); err != nil {
			return fmt.Errorf("cannot connect to %s: %w", params.URL(), err)
		}
		cmd.Printf("Paired with %s\n", params.URL())

		if !remoteSave {
			return nil
		}

		device := hub.DeviceConfig{
			ID:       remoteDeviceID,
			Name:     "Magnetar",
			Host:     params.Host,
			Port:     params.Port,
			BaudRate: params.BaudRate,
			Device:   params.Device,
		}
		if device.Device != "" {
			device.Host = ""
			device.Port = 0
		}

		id, err := cli.NewConfigManager(remoteConfigPath).SavePairedDevice(device)
		if err != nil {
			return fmt.Errorf("failed to save device: %w", err)
		}
		cmd.Printf("Saved device %q to %s\n", id, remoteConfigPath)
		return nil
	},
}

func remoteParameters() magnetar.ConnectionParameters {
	return magnetar.ConnectionParameters{
		Host:     remoteHost,
		Port:     remotePort,
		BaudRate: remoteBaud,
		Device:   remoteSerial,
	}
}

func remoteOptions() []magnetar.Option {
	return []magnetar.Option{
		magnetar.WithDebug(remoteDebug),
		magnetar.WithTestMode(remoteTest),
	}
}

func init() {
	remoteCmd.PersistentFlags().StringVarP(&remoteHost, "host", "H", magnetar.DefaultHost, "Player host address")
	remoteCmd.PersistentFlags().IntVarP(&remotePort, "port", "p", magnetar.DefaultPort, "Player control port")
	remoteCmd.PersistentFlags().IntVarP(&remoteBaud, "baud", "b", magnetar.DefaultBaudRate, "Serial baud rate")
	remoteCmd.PersistentFlags().StringVar(&remoteSerial, "device", "", "Local serial device (replaces host and port)")
	remoteCmd.PersistentFlags().BoolVarP(&remoteDebug, "debug", "d", false, "Enable debug logging")
	remoteCmd.PersistentFlags().BoolVar(&remoteTest, "test", false, "Enable test mode (simulated player)")

	remotePairCmd.Flags().BoolVar(&remoteSave, "save", false, "Save the paired player to the hub configuration")
	remotePairCmd.Flags().StringVarP(&remoteConfigPath, "config", "c", "hub.yml", "Hub configuration file used by --save")
	remotePairCmd.Flags().StringVar(&remoteDeviceID, "id", "living_room_player", "Device ID used by --save")

	remoteCmd.AddCommand(remotePressCmd)
	remoteCmd.AddCommand(remoteListCmd)
	remoteCmd.AddCommand(remoteSendCmd)
	remoteCmd.AddCommand(remotePairCmd)
}

// contextOrBackground guards commands executed without ExecuteContext
func contextOrBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
