package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/BartoszJatczyszyn/journai/internal/engine"
	"github.com/BartoszJatczyszyn/journai/internal/journal"
	"github.com/BartoszJatczyszyn/journai/internal/ui"
)

var setCmd = &cobra.Command{
	Use:     "set [date] field=value...",
	GroupID: "entry",
	Short:   "Set entry fields for a day",
	Long: `Set one or more fields on a day's entry and sync immediately.

The date may be YYYY-MM-DD or natural language ("yesterday",
"last monday"); it defaults to today when the first argument contains
an equals sign.

Fields:
  mood, energy, stress    ratings 1-5
  sleep_hours, weight_kg  decimal values
  workout, meditation     true/false
  notes                   free text (empty string clears the note)

Examples:
  journai set mood=4 energy=3
  journai set yesterday sleep_hours=7.5 workout=true
  journai set 2026-08-28 notes="long run in the rain"`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dateExpr := ""
		if !strings.Contains(args[0], "=") {
			dateExpr = args[0]
			args = args[1:]
		}
		if len(args) == 0 {
			fmt.Fprintf(os.Stderr, "Error: no field=value pairs given\n")
			os.Exit(1)
		}

		day, err := resolveDay(dateExpr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fields := journal.Fields{}
		notes, notesGiven := "", false
		for _, arg := range args {
			name, raw, ok := strings.Cut(arg, "=")
			if !ok {
				fmt.Fprintf(os.Stderr, "Error: %q is not a field=value pair\n", arg)
				os.Exit(1)
			}
			if name == "notes" {
				notes, notesGiven = raw, true
				continue
			}
			value := parseValue(raw)
			if err := journal.ValidateField(name, value); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			fields[name] = value
		}

		store, err := openStore()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()

		logger := quietLogger("[journai] ")
		monitor := newMonitor(logger)
		e := engine.New(day, nil, store, newClient(), monitor, &engine.Config{
			DebounceInterval: debounceInterval(),
			Logger:           logger,
		})
		defer e.Close()

		e.ApplyDraft(fields)
		if notesGiven {
			e.SetNotes(notes)
		}

		if err := e.Save(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", ui.RenderErr("✗"), err)
			os.Exit(1)
		}

		printOutcome(e.Snapshot())
	},
}

// parseValue interprets a raw flag value as bool, number, or string.
func parseValue(raw string) any {
	switch raw {
	case "true":
		return true
	case "false":
		return false
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

// printOutcome reports the result of a one-shot save.
func printOutcome(snap engine.Snapshot) {
	switch snap.Status {
	case engine.StatusSaved:
		fmt.Printf("%s %s %s\n", ui.RenderPass("✓"), ui.RenderAccent(snap.Day.String()), snap.Label)
	case engine.StatusQueuedOffline:
		fmt.Printf("%s %s %s (%d pending)\n", ui.RenderWarn("⚠"), ui.RenderAccent(snap.Day.String()), snap.Label, snap.QueuedCount)
	default:
		fmt.Printf("%s No changes\n", ui.RenderDim("·"))
	}
}

func init() {
	rootCmd.AddCommand(setCmd)
}
