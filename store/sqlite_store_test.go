package store

import (
	"path/filepath"
	"testing"

	"github.com/taskforge/taskforge/internal/reconcile"
	"github.com/taskforge/taskforge/models"
)

func newSQLiteStore(t *testing.T) *SQLiteProjectStore {
	t.Helper()
	s := NewSQLiteProjectStore()
	dsn := filepath.Join(t.TempDir(), "project.db")
	if err := s.Initialize(map[string]string{dsnKey: dsn}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore_SaveLoadRoundTrip(t *testing.T) {
	s := newSQLiteStore(t)
	if err := s.Save(sampleSnapshot()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.ProjectName != "Atlas" || len(got.Phases) != 2 || len(got.Tasks) != 1 || len(got.Roster) != 1 {
		t.Fatalf("round trip lost data: %+v", got)
	}
	if got.Phases[0].Data["notes"] != "2 weeks" {
		t.Errorf("phase data lost: %+v", got.Phases[0])
	}
}

func TestSQLiteStore_ApplyPlanTransactional(t *testing.T) {
	s := newSQLiteStore(t)
	snap := sampleSnapshot()
	if err := s.Save(snap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	updated := snap.Tasks[0]
	updated.Status = models.StatusArchived

	// The update targets a known task but the batch also updates an
	// unknown one; nothing may land.
	plan := reconcile.Plan{
		ToUpdate: []models.Task{updated, {ID: "missing", Title: "x"}},
	}
	if err := s.ApplyPlan(plan); err == nil {
		t.Fatal("expected error for unknown task in batch")
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Tasks[0].Status == models.StatusArchived {
		t.Error("partial batch was committed; plan application must be atomic")
	}
}

func TestSQLiteStore_ApplyPlanInsertAndArchive(t *testing.T) {
	s := newSQLiteStore(t)
	snap := sampleSnapshot()
	if err := s.Save(snap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	archived := snap.Tasks[0]
	archived.Status = models.StatusArchived
	inserted := models.NewTask("3f2a6d1e-0000-4000-8000-000000000003", models.CandidateTask{
		Title:    "Draft launch checklist",
		Priority: models.PriorityLow,
	})

	err := s.ApplyPlan(reconcile.Plan{
		ToArchive: []models.Task{archived},
		ToInsert:  []models.Task{inserted},
	})
	if err != nil {
		t.Fatalf("ApplyPlan: %v", err)
	}

	tasks, err := s.ListTasks(nil)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("tasks = %d, want 2", len(tasks))
	}
	statuses := map[string]models.TaskStatus{}
	for _, task := range tasks {
		statuses[task.Title] = task.Status
	}
	if statuses["Set up CI pipeline"] != models.StatusArchived {
		t.Error("archive not applied")
	}
	if statuses["Draft launch checklist"] != models.StatusTodo {
		t.Error("insert not applied")
	}
}
