package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/cobra"

	"permanode/internal/archiver"
	"permanode/internal/config"
	"permanode/internal/kvstore"
	"permanode/internal/requester"
	"permanode/internal/supervisor"
	"permanode/pkg/logging"
)

var serveWaitForStartup bool

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Collector/Solidifier/Archiver pipeline until terminated",
		Long: `Loads config.yaml, connects to the KV store and remote gateway
endpoints, and drives one Collector, one Archiver, and collectors_count
Solidifiers until the process receives SIGINT/SIGTERM or a component
fails.

Under systemd, serve reports READY=1 once the pipeline is wired and
watermarked, and WATCHDOG=1 on the interval systemd configured.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	cmd.Flags().BoolVar(&serveWaitForStartup, "wait-for-startup", false, "show a spinner while resolving the archiver's startup watermark")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logging.Init(logging.ParseLevel(cfg.LogLevel), os.Stderr)

	store, err := kvstore.NewValkeyStore(cfg.KVAddr)
	if err != nil {
		return fmt.Errorf("connecting to kv store: %w", err)
	}
	defer store.Close()

	client := requester.NewHTTPClient(cfg.RequesterTimeout, cfg.RequesterConcurrency)

	sys, err := supervisor.New(cfg, store, client)
	if err != nil {
		return fmt.Errorf("constructing pipeline: %w", err)
	}

	var s *spinner.Spinner
	if serveWaitForStartup {
		s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		s.Suffix = " Resolving archiver startup watermark..."
		s.Start()
	}
	next, err := archiver.ResolveStartupWatermark(cfg.LogsDir)
	if s != nil {
		s.Stop()
	}
	if err != nil {
		return fmt.Errorf("resolving startup watermark: %w", err)
	}
	logging.Info("CLI", "resuming archive from milestone %d", next)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sys.StartArchiver(next)

	runErr := make(chan error, 1)
	go func() { runErr <- sys.Run(ctx) }()

	notifyReady()
	stopWatchdog := watchdogLoop(ctx)
	defer stopWatchdog()

	err = <-runErr
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("pipeline stopped: %w", err)
	}
	return nil
}

// notifyReady reports READY=1 to systemd. It is a no-op outside of
// NotifyAccess=all services (NOTIFY_SOCKET unset).
func notifyReady() {
	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		logging.Debug("CLI", "systemd notify ready: %v", err)
	}
}

// watchdogLoop pings WATCHDOG=1 at half the interval systemd configured via
// WATCHDOG_USEC, if any. The returned func stops the ticker.
func watchdogLoop(ctx context.Context) func() {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return func() {}
	}

	ticker := time.NewTicker(interval / 2)
	done := make(chan struct{})
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				if _, err := daemon.SdNotify(false, daemon.SdNotifyWatchdog); err != nil {
					logging.Debug("CLI", "systemd watchdog ping: %v", err)
				}
			}
		}
	}()
	return func() { close(done) }
}
