package main

import (
	"github.com/spf13/cobra"
)

func newUpdateDBCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "update-db",
		Short: "Refresh cached episode metadata for tracked series",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			return a.episodes.UpdateAll(cmd.Context(), force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "refresh ended series as well")

	return cmd
}
