package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/BartoszJatczyszyn/journai/internal/connectivity"
	"github.com/BartoszJatczyszyn/journai/internal/daemon"
	"github.com/BartoszJatczyszyn/journai/internal/dashboard"
	"github.com/BartoszJatczyszyn/journai/internal/engine"
	"github.com/BartoszJatczyszyn/journai/internal/ui"
)

var daemonCmd = &cobra.Command{
	Use:     "daemon",
	GroupID: "sync",
	Short:   "Start the background sync service (foreground)",
	Long: `Start the sync daemon in foreground mode.

The daemon will:
  1. Watch the drafts spool directory for entry edits
  2. Debounce rapid edits and sync them to the remote store
  3. Queue payloads locally while offline and flush on reconnect
  4. Probe the server periodically to detect connectivity
  5. Serve a WebSocket dashboard with live sync status

Write a draft as {date}.json in the spool directory, e.g.:

  echo '{"mood": 4, "workout": true}' > ~/.journai/drafts/2026-08-30.json

Connect a WebSocket client to ws://localhost:<dashboard_port>/ws for
real-time updates.`,
	Run: func(cmd *cobra.Command, args []string) {
		logger := serviceLogger("[journai] ")

		store, err := openStore()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()

		// Connectivity probes the server's health endpoint.
		probe := connectivity.NewProbeSource(serverURL()+"/health", probeInterval())
		monitor := connectivity.NewMonitor(probe, serviceLogger("[connectivity] "))
		probe.Start()
		defer probe.Stop()
		monitor.Start()
		defer monitor.Stop()

		// Dashboard broadcasts engine and connectivity events.
		dashPort := viper.GetInt("dashboard_port")
		dashServer := dashboard.NewServer(&dashboard.Config{
			Port:   dashPort,
			Logger: serviceLogger("[dashboard] "),
		})
		if err := dashServer.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to start dashboard: %v\n", err)
			os.Exit(1)
		}
		defer func() {
			if err := dashServer.Stop(); err != nil {
				logger.Printf("Dashboard shutdown error: %v", err)
			}
		}()
		handler := dashboard.NewHandler(dashServer, serviceLogger("[dashboard] "))
		monitor.OnChange(handler.OnConnectivityChange)

		d, err := daemon.New(store, newClient(), monitor, spoolDir(), &daemon.Config{
			FlushInterval: flushInterval(),
			Engine: &engine.Config{
				DebounceInterval: debounceInterval(),
				Logger:           serviceLogger("[engine] "),
			},
			Logger: serviceLogger("[daemon] "),
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to create daemon: %v\n", err)
			os.Exit(1)
		}
		d.OnStatus(handler.OnSnapshot)

		fmt.Printf("%s Starting sync daemon...\n", ui.RenderAccent("🚀"))
		fmt.Printf("   Server: %s\n", serverURL())
		fmt.Printf("   Spool: %s\n", spoolDir())
		fmt.Printf("   Store: %s\n", dbPath())
		fmt.Printf("   Dashboard: ws://localhost:%d/ws\n", dashPort)
		fmt.Printf("\nPress Ctrl+C to stop\n\n")

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		if err := d.Start(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Daemon stopped with error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}
