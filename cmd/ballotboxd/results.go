package main

import (
	"github.com/pkg/profile"
	"github.com/spf13/cobra"

	"github.com/votingapp/ballot-box/internal/transport/results"
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "start the results server",
	Run:   runResults,
}

func init() {
	rootCmd.AddCommand(resultsCmd)
}

func runResults(cmd *cobra.Command, args []string) {
	config := loadConfigOrPanic(cmd)

	if config.Profiling {
		defer profile.Start(profile.ProfilePath(".")).Stop()
	}

	store := openTallyStoreOrPanic(config)
	server := results.New(store, parseChoicesOrPanic(config), config.ResultsListenPort)

	startServerOrPanic(server)

	waitForTermination()

	shutdownServerOrPanic(server)
	shutdownStoreOrPanic(store)
}
