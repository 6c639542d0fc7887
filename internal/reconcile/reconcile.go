// Package reconcile merges a freshly generated task batch into an
// existing task set without destroying user edits. Matching here is a
// deliberately loose title comparison; semantic duplicate detection is
// the similarity engine's job upstream.
package reconcile

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskforge/taskforge/internal/utils"
	"github.com/taskforge/taskforge/models"
)

// Plan partitions the outcome of a merge into the three write batches a
// datastore applies. Atomicity of the batch is the store's concern.
type Plan struct {
	ToUpdate  []models.Task
	ToInsert  []models.Task
	ToArchive []models.Task
}

// Empty reports whether the plan changes nothing.
func (p Plan) Empty() bool {
	return len(p.ToUpdate) == 0 && len(p.ToInsert) == 0 && len(p.ToArchive) == 0
}

// Merge reconciles generated candidates against existing tasks:
//
//   - a candidate matching an AI-generated task overwrites its title,
//     description, phase, priority and tags; dates only when the
//     candidate supplies them; the assignee is never silently
//     reassigned, and a changelog line lands in Notes when the
//     description changed
//   - a candidate matching a user-authored task only backfills missing
//     dates, protecting manual edits from regeneration
//   - unmatched candidates become inserts
//   - done AI-generated tasks absent from the new batch are archived,
//     never deleted
//
// Inputs are not mutated; tasks in the plan are copies. Merge is
// idempotent: re-running with the same batch yields an empty plan.
func Merge(existing []models.Task, generated []models.CandidateTask, now time.Time) Plan {
	var plan Plan
	matched := make(map[string]bool, len(existing))

	for _, c := range generated {
		idx := findMatch(c.Title, existing, matched)
		if idx < 0 {
			plan.ToInsert = append(plan.ToInsert, models.NewTask(uuid.New().String(), c))
			continue
		}
		matched[existing[idx].ID] = true
		if updated, changed := applyCandidate(existing[idx], c, now); changed {
			plan.ToUpdate = append(plan.ToUpdate, updated)
		}
	}

	for _, ex := range existing {
		if matched[ex.ID] {
			continue
		}
		if ex.AIGenerated && ex.Status == models.StatusDone {
			archived := ex
			archived.Status = models.StatusArchived
			archived.UpdatedAt = now
			plan.ToArchive = append(plan.ToArchive, archived)
		}
	}
	return plan
}

// findMatch locates the first unmatched, unarchived existing task whose
// normalized title equals or contains (either direction) the candidate
// title. Equality beats containment.
func findMatch(title string, existing []models.Task, matched map[string]bool) int {
	norm := utils.NormalizeTitle(title)
	if norm == "" {
		return -1
	}
	containIdx := -1
	for i, ex := range existing {
		if matched[ex.ID] || ex.Status == models.StatusArchived {
			continue
		}
		exNorm := utils.NormalizeTitle(ex.Title)
		if exNorm == norm {
			return i
		}
		if containIdx < 0 && (strings.Contains(exNorm, norm) || strings.Contains(norm, exNorm)) {
			containIdx = i
		}
	}
	return containIdx
}

// applyCandidate merges one candidate into one existing task and
// reports whether anything actually changed.
func applyCandidate(ex models.Task, c models.CandidateTask, now time.Time) (models.Task, bool) {
	updated := ex
	if ex.AIGenerated {
		updated.Title = c.Title
		updated.Description = c.Description
		updated.PhaseNumber = c.PhaseNumber
		updated.Priority = c.Priority
		updated.Tags = c.Tags
		if len(c.SourceRefs) > 0 {
			updated.SourceRefs = c.SourceRefs
		}
		if c.StartDate != nil {
			updated.StartDate = c.StartDate
		}
		if c.DueDate != nil {
			updated.DueDate = c.DueDate
		}
		if updated.AssigneeID == nil {
			updated.AssigneeID = c.AssigneeID
		}
		if c.EstimatedHours != nil {
			updated.EstimatedHours = c.EstimatedHours
		}
		if updated.Description != ex.Description {
			updated.Notes = appendChangelog(ex.Notes, now)
		}
	} else {
		if ex.StartDate == nil && c.StartDate != nil {
			updated.StartDate = c.StartDate
		}
		if ex.DueDate == nil && c.DueDate != nil {
			updated.DueDate = c.DueDate
		}
	}

	if !taskChanged(ex, updated) {
		return ex, false
	}
	updated.UpdatedAt = now
	return updated, true
}

func appendChangelog(notes string, now time.Time) string {
	line := fmt.Sprintf("[%s] Description updated by regeneration.", now.Format("2006-01-02"))
	if notes == "" {
		return line
	}
	return notes + "\n" + line
}

// taskChanged compares the merge-relevant fields, ignoring UpdatedAt.
func taskChanged(a, b models.Task) bool {
	if a.Title != b.Title || a.Description != b.Description ||
		a.PhaseNumber != b.PhaseNumber || a.Priority != b.Priority ||
		a.Notes != b.Notes {
		return true
	}
	if !equalStrPtr(a.AssigneeID, b.AssigneeID) {
		return true
	}
	if !equalTimePtr(a.StartDate, b.StartDate) || !equalTimePtr(a.DueDate, b.DueDate) {
		return true
	}
	if !equalFloatPtr(a.EstimatedHours, b.EstimatedHours) {
		return true
	}
	if len(a.Tags) != len(b.Tags) {
		return true
	}
	for i := range a.Tags {
		if a.Tags[i] != b.Tags[i] {
			return true
		}
	}
	if len(a.SourceRefs) != len(b.SourceRefs) {
		return true
	}
	for i := range a.SourceRefs {
		if a.SourceRefs[i] != b.SourceRefs[i] {
			return true
		}
	}
	return false
}

func equalStrPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func equalFloatPtr(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
