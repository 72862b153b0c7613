package main

import (
	"github.com/spf13/cobra"
)

func newNotifyTestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "notify-test",
		Short: "Send a test notification to verify the SMS configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			return a.notifier.NotifyDownload("notification test")
		},
	}
}
