package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// TaskStatus represents the possible statuses of a task.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in_progress"
	StatusDone       TaskStatus = "done"
	StatusArchived   TaskStatus = "archived"
)

// TaskPriority represents the priority levels of a task.
type TaskPriority string

const (
	PriorityLow      TaskPriority = "low"
	PriorityMedium   TaskPriority = "medium"
	PriorityHigh     TaskPriority = "high"
	PriorityCritical TaskPriority = "critical"
)

// DuplicateStatus classifies a candidate task against the existing task set.
type DuplicateStatus string

const (
	DuplicateUnique   DuplicateStatus = "unique"
	DuplicatePossible DuplicateStatus = "possible_duplicate"
	DuplicateExact    DuplicateStatus = "exact_duplicate"
)

// SourceRef links a task back to the phase field that produced it,
// enabling change detection across regeneration runs.
type SourceRef struct {
	PhaseNumber int    `json:"phaseNumber" validate:"required,min=1"`
	FieldKey    string `json:"fieldKey" validate:"required"`
	FieldHash   string `json:"fieldHash,omitempty"`
}

// Task represents a persisted unit of project work.
type Task struct {
	ID             string       `json:"id" validate:"required,uuid4"`
	Title          string       `json:"title" validate:"required,min=1,max=255"`
	Description    string       `json:"description,omitempty"`
	PhaseNumber    int          `json:"phaseNumber" validate:"min=0"`
	Status         TaskStatus   `json:"status" validate:"required,oneof=todo in_progress done archived"`
	Priority       TaskPriority `json:"priority" validate:"required,oneof=low medium high critical"`
	AssigneeID     *string      `json:"assigneeId,omitempty"`
	StartDate      *time.Time   `json:"startDate,omitempty"`
	DueDate        *time.Time   `json:"dueDate,omitempty"`
	EstimatedHours *float64     `json:"estimatedHours,omitempty" validate:"omitempty,gt=0"`
	Tags           []string     `json:"tags,omitempty"`
	SourceRefs     []SourceRef  `json:"sourceRefs,omitempty" validate:"dive"`
	AIGenerated    bool         `json:"aiGenerated"`
	Notes          string       `json:"notes,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

// CandidateTask is a task proposed by generation. It carries the same
// payload as Task minus identity, plus the duplicate classification the
// reconciler consumes. Candidates are transient: after reconciliation
// they are either promoted, merged into an existing task, or discarded.
type CandidateTask struct {
	Title           string          `json:"title" validate:"required,min=1,max=255"`
	Description     string          `json:"description,omitempty"`
	PhaseNumber     int             `json:"phaseNumber" validate:"min=0"`
	Priority        TaskPriority    `json:"priority" validate:"required,oneof=low medium high critical"`
	AssigneeID      *string         `json:"assigneeId,omitempty"`
	StartDate       *time.Time      `json:"startDate,omitempty"`
	DueDate         *time.Time      `json:"dueDate,omitempty"`
	EstimatedHours  *float64        `json:"estimatedHours,omitempty"`
	Tags            []string        `json:"tags,omitempty"`
	SourceRefs      []SourceRef     `json:"sourceRefs,omitempty"`
	DuplicateStatus DuplicateStatus `json:"duplicateStatus,omitempty"`
	ExistingTaskID  *string         `json:"existingTaskId,omitempty"`
}

// HasDates reports whether both calendar dates are set.
func (t *Task) HasDates() bool {
	return t.StartDate != nil && t.DueDate != nil
}

// DatesValid checks the start<=due invariant. Tasks with a missing date
// are considered valid here; repair is the scheduler's job.
func (t *Task) DatesValid() bool {
	if !t.HasDates() {
		return true
	}
	return !t.StartDate.After(*t.DueDate)
}

// NewTask promotes a candidate into a persistable task with the given
// identity. The caller supplies the id so stores stay in control of id
// generation policy.
func NewTask(id string, c CandidateTask) Task {
	now := time.Now()
	return Task{
		ID:             id,
		Title:          c.Title,
		Description:    c.Description,
		PhaseNumber:    c.PhaseNumber,
		Status:         StatusTodo,
		Priority:       c.Priority,
		AssigneeID:     c.AssigneeID,
		StartDate:      c.StartDate,
		DueDate:        c.DueDate,
		EstimatedHours: c.EstimatedHours,
		Tags:           c.Tags,
		SourceRefs:     c.SourceRefs,
		AIGenerated:    true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// global validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// ValidateStruct performs validation on any struct that has validation tags.
func ValidateStruct(s interface{}) error {
	if validate == nil {
		validate = validator.New()
	}
	err := validate.Struct(s)
	if err != nil {
		validationErrors := err.(validator.ValidationErrors)
		var msgs []string
		for _, e := range validationErrors {
			msgs = append(msgs, fmt.Sprintf("field '%s' failed rule '%s' (value: '%v')", e.StructNamespace(), e.Tag(), e.Value()))
		}
		return fmt.Errorf("%s", strings.Join(msgs, "; "))
	}
	return nil
}
