package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/BartoszJatczyszyn/journai/internal/journal"
	"github.com/BartoszJatczyszyn/journai/internal/queue"
	"github.com/BartoszJatczyszyn/journai/internal/ui"
)

// statusReport is the machine-readable shape of 'journai status'.
type statusReport struct {
	Day         string         `yaml:"day"`
	QueuedCount int            `yaml:"queued_count"`
	Pending     journal.Fields `yaml:"pending,omitempty"`
	QueuedAt    []string       `yaml:"queued_at,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:     "status [date]",
	GroupID: "sync",
	Short:   "Show sync status for a day",
	Long: `Display the offline queue state for a day's entry.

Shows how many payloads are queued, when they were queued, and the
merged fields that will be sent on the next flush.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		asYAML, _ := cmd.Flags().GetBool("yaml")
		allDays, _ := cmd.Flags().GetBool("all")

		if allDays {
			runStatusAll(asYAML)
			return
		}

		dateExpr := ""
		if len(args) > 0 {
			dateExpr = args[0]
		}
		day, err := resolveDay(dateExpr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		store, err := openStore()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()

		q := queue.New(store, day)
		entries, err := q.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading queue: %v\n", err)
			os.Exit(1)
		}

		report := statusReport{
			Day:         day.String(),
			QueuedCount: len(entries),
		}
		if len(entries) > 0 {
			report.Pending = queue.Merge(entries)
			for _, e := range entries {
				report.QueuedAt = append(report.QueuedAt, e.Timestamp.Format("2006-01-02 15:04:05"))
			}
		}

		if asYAML {
			out, err := yaml.Marshal(report)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error encoding report: %v\n", err)
				os.Exit(1)
			}
			fmt.Print(string(out))
			return
		}

		fmt.Printf("\n%s Sync status for %s\n\n", ui.RenderAccent("📊"), ui.RenderAccent(report.Day))
		if report.QueuedCount == 0 {
			fmt.Printf("%s Nothing queued, entry is in sync\n\n", ui.RenderPass("✓"))
			return
		}

		fmt.Printf("%s %d payload(s) queued offline\n", ui.RenderWarn("⚠"), report.QueuedCount)
		for i, at := range report.QueuedAt {
			fmt.Printf("   %d. queued at %s\n", i+1, ui.RenderDim(at))
		}
		fmt.Printf("\nPending fields on next flush:\n")
		for name, value := range report.Pending {
			fmt.Printf("   %s = %v\n", name, value)
		}
		fmt.Println()
	},
}

// runStatusAll reports every day that still has queued payloads.
func runStatusAll(asYAML bool) {
	store, err := openStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	days, err := queue.PendingDays(store)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing queues: %v\n", err)
		os.Exit(1)
	}

	var reports []statusReport
	for _, day := range days {
		entries, err := queue.New(store, day).Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading queue for %s: %v\n", day, err)
			os.Exit(1)
		}
		if len(entries) == 0 {
			continue
		}
		reports = append(reports, statusReport{
			Day:         day.String(),
			QueuedCount: len(entries),
			Pending:     queue.Merge(entries),
		})
	}

	if asYAML {
		out, err := yaml.Marshal(reports)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding report: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(string(out))
		return
	}

	if len(reports) == 0 {
		fmt.Printf("\n%s All entries in sync\n\n", ui.RenderPass("✓"))
		return
	}

	fmt.Printf("\n%s Days with queued payloads\n\n", ui.RenderAccent("📊"))
	for _, r := range reports {
		fmt.Printf("%s %s: %d payload(s) queued\n", ui.RenderWarn("⚠"), ui.RenderAccent(r.Day), r.QueuedCount)
	}
	fmt.Println()
}

func init() {
	statusCmd.Flags().Bool("yaml", false, "Emit the report as YAML")
	statusCmd.Flags().Bool("all", false, "Report every day with queued payloads")
	rootCmd.AddCommand(statusCmd)
}
