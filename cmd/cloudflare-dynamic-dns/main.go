package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	"sigs.k8s.io/controller-runtime/pkg/manager/signals"
	"sigs.k8s.io/controller-runtime/pkg/metrics"

	"github.com/psyb0t/cloudflare-dynamic-dns/internal/config"
	"github.com/psyb0t/cloudflare-dynamic-dns/internal/supervisor"
)

var Version = "dev"

// workerCommand is the hidden subcommand the Supervisor re-executes.
const workerCommand = "worker"

type options struct {
	configPath          string
	metricsBindAddress  string
	healthProbeBindAddr string
	zap                 zap.Options
}

func main() {
	if err := newRootCommand().ExecuteContext(signals.SetupSignalHandler()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{zap: zap.Options{Development: true}}

	logFlags := flag.NewFlagSet("zap", flag.ExitOnError)
	opts.zap.BindFlags(logFlags)

	root := &cobra.Command{
		Use:           "cloudflare-dynamic-dns",
		Short:         "Keep Cloudflare A records pointed at this machine's public IP",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			log.SetLogger(zap.New(zap.UseFlagOptions(&opts.zap)))
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSupervisor(cmd.Context(), opts, forwardedLogFlags(cmd.Flags(), logFlags))
		},
	}
	root.PersistentFlags().AddGoFlagSet(logFlags)
	root.Flags().StringVar(&opts.configPath, "config", "", "Config file path (default $CONFIG_PATH or "+config.DefaultPath+").")
	root.Flags().StringVar(&opts.metricsBindAddress, "metrics-bind-address", "0", "Address the metrics endpoint binds to. \"0\" disables it.")
	root.Flags().StringVar(&opts.healthProbeBindAddr, "health-probe-bind-address", "0", "Address the health probe endpoint binds to. \"0\" disables it.")

	root.AddCommand(newWorkerCommand())
	return root
}

func runSupervisor(ctx context.Context, opts *options, logArgs []string) error {
	setupLog := log.Log.WithName("setup")
	setupLog.Info("starting cloudflare-dynamic-dns", "version", Version)

	path := opts.configPath
	if path == "" {
		path = config.Path()
	}

	// Fail fast on a broken config before entering the loop.
	if _, err := config.LoadFromPath(path); err != nil {
		return fmt.Errorf("unable to load config: %w", err)
	}
	setupLog.Info("loaded config", "path", path)

	m := supervisor.NewMetrics(metrics.Registry)
	sup := &supervisor.Supervisor{
		Load: func() (*config.Config, error) { return config.LoadFromPath(path) },
		Spawner: &supervisor.ProcessSpawner{
			Args:     append([]string{workerCommand}, logArgs...),
			OnReport: m.ObserveReport,
			Log:      log.Log.WithName("worker-output"),
		},
		Log:     log.Log.WithName("supervisor"),
		Metrics: m,
	}

	if err := serveProbes(ctx, log.Log.WithName("probes"), opts, sup.Check); err != nil {
		return err
	}

	return sup.Run(ctx)
}

// forwardedLogFlags returns the log flags set on the command line so the
// worker logs the same way.
func forwardedLogFlags(set *pflag.FlagSet, logFlags *flag.FlagSet) []string {
	var args []string
	set.Visit(func(f *pflag.Flag) {
		if logFlags.Lookup(f.Name) != nil {
			args = append(args, "--"+f.Name+"="+f.Value.String())
		}
	})
	return args
}

func isDisabled(addr string) bool {
	addr = strings.TrimSpace(addr)
	return addr == "" || addr == "0"
}
