package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/taskforge/taskforge/internal/engine"
	"github.com/taskforge/taskforge/models"
)

var mergeDryRun bool

var mergeCmd = &cobra.Command{
	Use:   "merge <candidates.json>",
	Short: "Reconcile a generated task batch into the stored task set",
	Long: `Merge reads a JSON array of candidate tasks (as produced by analyze or
generate) and applies the reconciliation rules: AI-generated matches are
updated, user-authored matches only get missing dates backfilled, new
tasks are inserted, and done AI tasks absent from the batch are
archived.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read candidates: %w", err)
		}
		var candidates []models.CandidateTask
		if err := json.Unmarshal(raw, &candidates); err != nil {
			return fmt.Errorf("parse candidates: %w", err)
		}

		s, err := getStore()
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		snap, err := s.Load()
		if err != nil {
			return err
		}

		// Merging is a local operation; no provider needed.
		eng := engine.New(nil)

		plan := eng.MergeTasks(snap.Tasks, candidates)
		cmd.Printf("Plan: %d inserts, %d updates, %d archives.\n",
			len(plan.ToInsert), len(plan.ToUpdate), len(plan.ToArchive))
		if mergeDryRun || plan.Empty() {
			return nil
		}
		if err := s.ApplyPlan(plan); err != nil {
			return fmt.Errorf("apply plan: %w", err)
		}
		cmd.Println("Applied.")
		return nil
	},
}

func init() {
	mergeCmd.Flags().BoolVar(&mergeDryRun, "dry-run", false, "print the plan without applying it")
	rootCmd.AddCommand(mergeCmd)
}
