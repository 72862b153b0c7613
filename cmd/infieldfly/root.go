package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "infieldfly",
		Short:         "Tracks airing episodes from torrent search to converted files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newDaemonCommand(),
		newRunCommand(),
		newStatusCommand(),
		newSearchCommand(),
		newListSeriesCommand(),
		newUpdateDBCommand(),
		newConvertCommand(),
		newNotifyTestCommand(),
	)

	return root
}
