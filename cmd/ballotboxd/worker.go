package main

import (
	"github.com/pkg/profile"
	"github.com/spf13/cobra"

	"github.com/votingapp/ballot-box/internal/worker"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "start the tally worker",
	Run:   runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) {
	config := loadConfigOrPanic(cmd)

	if config.Profiling {
		defer profile.Start(profile.ProfilePath(".")).Stop()
	}

	queue := connectToQueueOrPanic(config)
	store := openTallyStoreOrPanic(config)

	tallyWorker := worker.New(queue, store, parseChoicesOrPanic(config))
	startWorkerOrPanic(tallyWorker)

	waitForTermination()

	shutdownWorkerOrPanic(tallyWorker)
}
