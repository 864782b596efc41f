// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "losenet",
	Short: "losenet - a tiny ARP/UDP/TCP responder over a raw Ethernet link",
	Long: `losenet decodes Ethernet frames from a raw link and answers on behalf of one
IPv4/MAC identity: ARP requests for its address, UDP datagrams to a small
application and single-exchange TCP sessions (handshake, one request, teardown).

Links:
  - afpacket: live AF_PACKET socket on a Linux interface
  - pcapfile: replay a capture file and record replies to another`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"config file path (defaults and LOSENET_* environment when empty)")

	// Add subcommands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(decodeCmd)
}
