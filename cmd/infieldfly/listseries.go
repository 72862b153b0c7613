package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newListSeriesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list-series <keyword>",
		Short: "List the known episodes of a tracked series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			series, err := a.episodes.TrackedSeriesByKeyword(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if series == nil {
				return fmt.Errorf("no tracked series matches keyword %q", args[0])
			}

			fmt.Printf("%s (%s, %s)\n", series.Name, series.Year, series.Status)
			for _, ep := range series.Episodes {
				fmt.Printf("  s%02de%02d  %-10s  %s\n", ep.SeasonNumber, ep.EpisodeNumber, ep.Airdate, ep.Title)
			}
			return nil
		},
	}
}
