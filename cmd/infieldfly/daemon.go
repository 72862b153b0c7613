package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/infieldfly/infieldfly/internal/api"
	"github.com/infieldfly/infieldfly/internal/scheduler"
)

func newDaemonCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the pipeline on a schedule with the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			a.logger.Info("Starting infieldfly")

			sched := scheduler.NewScheduler(a.engine, a.episodes, a.logger)
			if err := sched.Start(); err != nil {
				return err
			}
			defer sched.Stop()

			server := api.NewServer(a.cfg, a.store, a.downloadCtrl, a.logger)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			serverErrChan := make(chan error, 1)
			go func() {
				if err := server.Start(ctx); err != nil {
					serverErrChan <- err
				}
			}()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

			a.logger.Info("infieldfly is running")

			select {
			case sig := <-sigChan:
				a.logger.WithField("signal", sig.String()).Info("Shutting down")
				cancel()
			case err := <-serverErrChan:
				return err
			}

			return nil
		},
	}
}
