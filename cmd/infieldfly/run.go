package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/infieldfly/infieldfly/internal/controllers"
	"github.com/infieldfly/infieldfly/internal/models"
)

func newRunCommand() *cobra.Command {
	var (
		skipSearch  bool
		skipAdd     bool
		skipPoll    bool
		skipConvert bool
		airdate     string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a single pipeline cycle and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			opts := controllers.CycleOptions{
				SkipSearch:  skipSearch,
				SkipAdd:     skipAdd,
				SkipPoll:    skipPoll,
				SkipConvert: skipConvert,
			}
			if airdate != "" {
				date, err := time.Parse(models.DateLayout, airdate)
				if err != nil {
					return fmt.Errorf("invalid airdate %q: %w", airdate, err)
				}
				opts.ReferenceDate = date
			}

			return a.engine.RunCycle(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolVar(&skipSearch, "skip-search", false, "skip the discovery and search stage")
	cmd.Flags().BoolVar(&skipAdd, "skip-add", false, "skip submitting magnets to the download daemon")
	cmd.Flags().BoolVar(&skipPoll, "skip-poll", false, "skip polling download progress")
	cmd.Flags().BoolVar(&skipConvert, "skip-convert", false, "skip converting finished downloads")
	cmd.Flags().StringVar(&airdate, "airdate", "", "airdate to search episodes for (YYYY-MM-DD, default today)")

	return cmd
}
