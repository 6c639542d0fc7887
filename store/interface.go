package store

import (
	"github.com/taskforge/taskforge/internal/reconcile"
	"github.com/taskforge/taskforge/models"
)

// ProjectStore defines the persistence contract the engine's callers
// use: load a project snapshot, and apply a reconciliation plan as
// insert/update/archive batches. The engine itself never persists;
// atomicity of a batch is the store's responsibility.
type ProjectStore interface {
	// Initialize configures the store with backend-specific settings
	// (file path, format, DSN). Must be called before any other method.
	Initialize(config map[string]string) error

	// Load returns the project's full state: phases, tasks, roster.
	Load() (*Snapshot, error)

	// Save replaces the project's state with the given snapshot.
	Save(snapshot *Snapshot) error

	// ListTasks returns the tasks passing the filter; a nil filter
	// returns everything.
	ListTasks(filterFn func(models.Task) bool) ([]models.Task, error)

	// ApplyPlan applies a reconciliation plan as one batch: updates and
	// archives by task id, inserts appended.
	ApplyPlan(plan reconcile.Plan) error

	// Close releases held resources such as file locks or connections.
	Close() error
}

// Snapshot is one project's complete persisted state.
type Snapshot struct {
	ProjectName string              `json:"projectName"`
	Phases      []models.Phase      `json:"phases,omitempty"`
	Tasks       []models.Task       `json:"tasks,omitempty"`
	Roster      []models.TeamMember `json:"roster,omitempty"`
}
