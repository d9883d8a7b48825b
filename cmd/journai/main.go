// Command journai is an offline-first diary sync client.
//
// Entries are flat field maps keyed by day (ratings, measurements,
// habit flags, free-form notes). Edits sync to a remote entry store;
// when the network is down they queue locally and flush on reconnect.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "journai",
	Short: "Offline-first diary sync client",
	Long: `journai keeps daily diary entries in sync with a remote entry store.

Edits made while offline are queued in a local SQLite database and
flushed automatically when connectivity returns. Run 'journai daemon'
for continuous background sync, or use 'set' and 'edit' for one-shot
updates.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "entry", Title: "Entry Commands:"},
		&cobra.Group{ID: "sync", Title: "Sync Commands:"},
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
