package cmd

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/minnowstack/minnow/cmd/internal/connect"
	"github.com/minnowstack/minnow/cmd/internal/route"
	"github.com/minnowstack/minnow/printer"
	"github.com/minnowstack/minnow/util"
	"github.com/minnowstack/minnow/version"
)

var debugFlag bool

var rootCmd = &cobra.Command{
	Use:           "minnow",
	Short:         "A user-space TCP/IP stack.",
	Long:          "minnow assembles byte streams from unreliable segments, resolves Ethernet addresses with ARP, and forwards IPv4 datagrams between interfaces.",
	Version:       version.CLIDisplayString(),
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command, exiting the process with the
// requested code on failure.
func Execute() {
	if cmd, err := rootCmd.ExecuteC(); err != nil {
		cmd.Println(cmd.UsageString())

		exitCode := 1
		var exitErr util.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode
		}
		printer.Stderr.Errorf("%s\n", err)
		os.Exit(exitCode)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "If set, outputs detailed information for debugging.")
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))

	rootCmd.PersistentFlags().IntP("verbose", "v", 0, "Verbosity level for debug output.")
	viper.BindPFlag("verbose-level", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(route.Cmd)
	rootCmd.AddCommand(connect.Cmd)
}
