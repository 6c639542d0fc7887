package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/taskforge/taskforge/internal/engine"
	"github.com/taskforge/taskforge/models"
	"github.com/taskforge/taskforge/store"
)

var generateApply bool

var generateCmd = &cobra.Command{
	Use:   "generate [description...]",
	Short: "Generate tasks from a free-text description",
	Long: `Generate extracts concrete tasks from your description, scoped to the
project's phases. Durations mentioned in the text ("we have 2 weeks")
feed the date calculation.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		freeText := strings.Join(args, " ")

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

		res, err := eng.GenerateTasksFromPrompt(cmd.Context(), freeText, requestFromSnapshot(snap))
		if err != nil {
			return fmt.Errorf("generate tasks: %w", err)
		}

		tasks, err := eng.DetectDuplicates(cmd.Context(), res.Tasks, snap.Tasks)
		if err != nil {
			return err
		}

		printCandidates(cmd, tasks)
		if res.Summary != "" {
			cmd.Println("\nSummary:", res.Summary)
		}
		printUsage(cmd, res.Usage)

		if generateApply {
			return applyCandidates(cmd, eng, s, snap.Tasks, tasks)
		}
		return nil
	},
}

func init() {
	generateCmd.Flags().BoolVar(&generateApply, "apply", false, "merge generated tasks into the stored task set")
	rootCmd.AddCommand(generateCmd)
}

// applyCandidates reconciles candidates into the stored task set,
// dropping exact duplicates first.
func applyCandidates(cmd *cobra.Command, eng *engine.Engine, s store.ProjectStore, existing []models.Task, candidates []models.CandidateTask) error {
	kept := make([]models.CandidateTask, 0, len(candidates))
	for _, c := range candidates {
		if c.DuplicateStatus == models.DuplicateExact {
			continue
		}
		kept = append(kept, c)
	}

	plan := eng.MergeTasks(existing, kept)
	if plan.Empty() {
		cmd.Println("Nothing to apply.")
		return nil
	}
	if err := s.ApplyPlan(plan); err != nil {
		return fmt.Errorf("apply plan: %w", err)
	}
	cmd.Printf("Applied: %d inserted, %d updated, %d archived.\n",
		len(plan.ToInsert), len(plan.ToUpdate), len(plan.ToArchive))
	return nil
}
