package main

import (
	"github.com/pkg/profile"
	"github.com/spf13/cobra"

	"github.com/votingapp/ballot-box/internal/transport/vote"
)

var voteCmd = &cobra.Command{
	Use:   "vote",
	Short: "start the vote intake server",
	Run:   runVote,
}

func init() {
	rootCmd.AddCommand(voteCmd)
}

func runVote(cmd *cobra.Command, args []string) {
	config := loadConfigOrPanic(cmd)

	if config.Profiling {
		defer profile.Start(profile.ProfilePath(".")).Stop()
	}

	queue := connectToQueueOrPanic(config)
	server := vote.New(queue, parseChoicesOrPanic(config), config.VoteListenPort)

	startServerOrPanic(server)

	waitForTermination()

	shutdownServerOrPanic(server)
	shutdownQueueOrPanic(queue)
}
