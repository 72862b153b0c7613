package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the current jobs and what each is doing",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			jobs, err := a.store.LoadAll()
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				fmt.Println("No jobs")
				return nil
			}

			for _, job := range jobs {
				fmt.Printf("%s  %-12s %s\n", job.ID, job.Status, job.Description())
			}
			return nil
		},
	}
}
