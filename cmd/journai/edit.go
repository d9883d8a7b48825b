package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/BartoszJatczyszyn/journai/internal/engine"
	"github.com/BartoszJatczyszyn/journai/internal/journal"
	"github.com/BartoszJatczyszyn/journai/internal/ui"
)

var editCmd = &cobra.Command{
	Use:     "edit [date]",
	GroupID: "entry",
	Short:   "Edit a day's entry interactively",
	Long: `Open an interactive form for a day's entry and sync on submit.

The date defaults to today. Leave a decimal field blank to skip it.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dateExpr := ""
		if len(args) > 0 {
			dateExpr = args[0]
		}
		day, err := resolveDay(dateExpr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		var (
			mood       = 3
			energy     = 3
			stress     = 3
			sleepHours string
			weightKg   string
			workout    bool
			meditation bool
			notes      string
		)

		form := huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[int]().
					Title("Mood").
					Options(ratingOptions()...).
					Value(&mood),
				huh.NewSelect[int]().
					Title("Energy").
					Options(ratingOptions()...).
					Value(&energy),
				huh.NewSelect[int]().
					Title("Stress").
					Options(ratingOptions()...).
					Value(&stress),
			),
			huh.NewGroup(
				huh.NewInput().
					Title("Sleep hours").
					Placeholder("7.5").
					Validate(validateDecimal).
					Value(&sleepHours),
				huh.NewInput().
					Title("Weight (kg)").
					Placeholder("72.4").
					Validate(validateDecimal).
					Value(&weightKg),
				huh.NewConfirm().
					Title("Workout today?").
					Value(&workout),
				huh.NewConfirm().
					Title("Meditation today?").
					Value(&meditation),
			),
			huh.NewGroup(
				huh.NewText().
					Title("Notes").
					Value(&notes),
			),
		)

		if err := form.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fields := journal.Fields{
			"mood":       mood,
			"energy":     energy,
			"stress":     stress,
			"workout":    workout,
			"meditation": meditation,
		}
		if v := strings.TrimSpace(sleepHours); v != "" {
			f, _ := strconv.ParseFloat(v, 64)
			fields["sleep_hours"] = f
		}
		if v := strings.TrimSpace(weightKg); v != "" {
			f, _ := strconv.ParseFloat(v, 64)
			fields["weight_kg"] = f
		}

		store, err := openStore()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()

		logger := quietLogger("[journai] ")
		e := engine.New(day, nil, store, newClient(), newMonitor(logger), &engine.Config{
			DebounceInterval: debounceInterval(),
			Logger:           logger,
		})
		defer e.Close()

		e.ApplyDraft(fields)
		e.SetNotes(notes)

		if err := e.Save(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", ui.RenderErr("✗"), err)
			os.Exit(1)
		}

		printOutcome(e.Snapshot())
	},
}

func ratingOptions() []huh.Option[int] {
	return []huh.Option[int]{
		huh.NewOption("1 (lowest)", 1),
		huh.NewOption("2", 2),
		huh.NewOption("3", 3),
		huh.NewOption("4", 4),
		huh.NewOption("5 (highest)", 5),
	}
}

func validateDecimal(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("must be a number")
	}
	if f < 0 {
		return fmt.Errorf("must not be negative")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(editCmd)
}
