package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for onioncrawl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "onioncrawl",
		Short: "Breadth-first crawler for Tor onion services",
		Long: `onioncrawl crawls Tor onion services breadth-first through a SOCKS5 proxy.

Every visited page is stored with its status, title, text preview, meta
tags and outbound onion links. A crawl can be interrupted and resumed:
URLs already in the store are not fetched again.

By default a Tor daemon is expected at 127.0.0.1:9050.
Use --embedded-tor to start a private daemon instead.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewStatsCmd())
	cmd.AddCommand(NewReportCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command and exits with status 1 on error.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
