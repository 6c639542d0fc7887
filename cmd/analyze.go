package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskforge/taskforge/internal/engine"
	"github.com/taskforge/taskforge/models"
)

var analyzeApply bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Generate a task plan from the project's phase content",
	Long: `Analyze reads the project snapshot, builds a generation prompt from its
phases, existing tasks, roster and computed timeline, and prints the
proposed tasks. With --apply the result is reconciled into the stored
task set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := getStore()
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		snap, err := s.Load()
		if err != nil {
			return err
		}

		eng, err := newEngine(cmd.Context())
		if err != nil {
			return err
		}

		req := requestFromSnapshot(snap)
		res, err := eng.AnalyzeProject(cmd.Context(), req)
		if err != nil {
			return fmt.Errorf("analyze project: %w", err)
		}

		tasks, err := eng.DetectDuplicates(cmd.Context(), res.Tasks, snap.Tasks)
		if err != nil {
			return err
		}

		printCandidates(cmd, tasks)
		if res.Summary != "" {
			cmd.Println("\nSummary:", res.Summary)
		}
		for _, step := range res.NextSteps {
			cmd.Println("Next:", step)
		}
		for _, blocker := range res.Blockers {
			cmd.Println("Blocker:", blocker)
		}
		printUsage(cmd, res.Usage)

		if analyzeApply {
			return applyCandidates(cmd, eng, s, snap.Tasks, tasks)
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeApply, "apply", false, "merge generated tasks into the stored task set")
	rootCmd.AddCommand(analyzeCmd)
}

func printCandidates(cmd *cobra.Command, tasks []models.CandidateTask) {
	if len(tasks) == 0 {
		cmd.Println("No tasks generated.")
		return
	}
	for _, t := range tasks {
		line := fmt.Sprintf("- [%s] %s (phase %d", t.Priority, t.Title, t.PhaseNumber)
		if t.DueDate != nil {
			line += ", due " + t.DueDate.Format("2006-01-02")
		}
		line += ")"
		if t.DuplicateStatus != "" && t.DuplicateStatus != models.DuplicateUnique {
			line += " — " + string(t.DuplicateStatus)
		}
		cmd.Println(line)
	}
}

func printUsage(cmd *cobra.Command, usage engine.UsageTotals) {
	if usage.Usage.Total() == 0 {
		return
	}
	cmd.Printf("\nTokens: %d in / %d out (%s, $%.4f)\n",
		usage.Usage.InputTokens, usage.Usage.OutputTokens, usage.Model, usage.Cost)
}
