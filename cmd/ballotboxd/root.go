package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ballotboxd <subcommand>",
	Short: "runs the voting pipeline services",
	Long:  `runs the voting pipeline services: the vote intake, the tally worker and the results server`,
	Run:   nil,
}

func init() {
	cobra.OnInitialize()
	rootCmd.PersistentFlags().StringP("config-file", "c", "", "Path to the config file (eg ./config.yaml) [Optional]")
}
