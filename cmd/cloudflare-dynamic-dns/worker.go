package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/psyb0t/cloudflare-dynamic-dns/internal/config"
	"github.com/psyb0t/cloudflare-dynamic-dns/internal/controller"
	_ "github.com/psyb0t/cloudflare-dynamic-dns/internal/dns/providers"
)

func newWorkerCommand() *cobra.Command {
	return &cobra.Command{
		Use:    workerCommand,
		Short:  "Run one reconciliation job over a config snapshot read from stdin",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			workerLog := log.Log.WithName("worker").WithValues("pid", os.Getpid())
			workerLog.Info("worker process start")

			cfg, err := config.Decode(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("unable to read config snapshot: %w", err)
			}

			job := &controller.JobRunner{
				Log:      workerLog,
				Reporter: controller.NewJSONReporter(cmd.OutOrStdout()),
			}
			if err := job.Run(cmd.Context(), cfg); err != nil {
				workerLog.Error(err, "job aborted")
				return err
			}

			workerLog.Info("worker process end")
			return nil
		},
	}
}
