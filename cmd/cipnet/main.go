package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cipnet",
		Short: "CIP/EtherNet-IP client",
		Long: `cipnet talks CIP over EtherNet/IP to industrial controllers:
device identity, attribute reads, service discovery, and connected
messaging probes, optionally routed through intermediate devices.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&globalOpts.Host, "ip", "", "target IP address or hostname")
	rootCmd.PersistentFlags().IntVar(&globalOpts.Port, "port", 44818, "target TCP port")
	rootCmd.PersistentFlags().StringVar(&globalOpts.Route, "route", "", "CIP route, pairs of port/link (e.g. \"1/0\" or \"backplane/2\")")
	rootCmd.PersistentFlags().IntVar(&globalOpts.TimeoutSeconds, "timeout", 5, "socket timeout in seconds")
	rootCmd.PersistentFlags().StringVar(&globalOpts.ConfigFile, "config", "", "YAML config file (flags override)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.LogLevel, "log-level", "error", "log level: silent, error, info, verbose, debug")
	rootCmd.PersistentFlags().StringVar(&globalOpts.LogFile, "log-file", "", "also write logs to this file")
	rootCmd.PersistentFlags().StringVar(&globalOpts.CaptureFile, "capture", "", "record the exchange to this pcap file")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newIdentityCmd())
	rootCmd.AddCommand(newReadCmd())
	rootCmd.AddCommand(newAttrsCmd())
	rootCmd.AddCommand(newServicesCmd())
	rootCmd.AddCommand(newForwardOpenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(os.Stdout, "cipnet version %s\n", version)
			fmt.Fprintf(os.Stdout, "commit: %s\n", commit)
			fmt.Fprintf(os.Stdout, "date: %s\n", date)
		},
	}
}
