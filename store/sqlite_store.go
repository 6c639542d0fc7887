package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/taskforge/taskforge/internal/reconcile"
	"github.com/taskforge/taskforge/models"
)

const dsnKey = "dsn"

// SQLiteProjectStore implements ProjectStore on an embedded SQLite
// database. Rows hold JSON payloads keyed by id, so the task shape can
// evolve without migrations; plans apply inside one transaction.
type SQLiteProjectStore struct {
	db *sql.DB
}

// NewSQLiteProjectStore creates an unconfigured store; call Initialize
// before use.
func NewSQLiteProjectStore() *SQLiteProjectStore {
	return &SQLiteProjectStore{}
}

// Initialize opens the database at the configured DSN and creates the
// schema when missing.
func (s *SQLiteProjectStore) Initialize(config map[string]string) error {
	dsn := config[dsnKey]
	if dsn == "" {
		dsn = "project.db"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS project (id INTEGER PRIMARY KEY CHECK (id = 1), name TEXT NOT NULL)`,
		`CREATE TABLE IF NOT EXISTS phases (phase_number INTEGER PRIMARY KEY, payload TEXT NOT NULL)`,
		`CREATE TABLE IF NOT EXISTS tasks (id TEXT PRIMARY KEY, payload TEXT NOT NULL)`,
		`CREATE TABLE IF NOT EXISTS members (user_id TEXT PRIMARY KEY, payload TEXT NOT NULL)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return fmt.Errorf("create schema: %w", err)
		}
	}
	s.db = db
	return nil
}

// Load assembles the snapshot from all four tables.
func (s *SQLiteProjectStore) Load() (*Snapshot, error) {
	if s.db == nil {
		return nil, errors.New("store not initialized")
	}
	snap := &Snapshot{}

	err := s.db.QueryRow(`SELECT name FROM project WHERE id = 1`).Scan(&snap.ProjectName)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	if err := loadRows(s.db, `SELECT payload FROM phases ORDER BY phase_number`, &snap.Phases); err != nil {
		return nil, err
	}
	if err := loadRows(s.db, `SELECT payload FROM tasks ORDER BY id`, &snap.Tasks); err != nil {
		return nil, err
	}
	if err := loadRows(s.db, `SELECT payload FROM members ORDER BY user_id`, &snap.Roster); err != nil {
		return nil, err
	}
	return snap, nil
}

func loadRows[T any](db *sql.DB, query string, out *[]T) error {
	rows, err := db.Query(query)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return err
		}
		var v T
		if err := json.Unmarshal([]byte(payload), &v); err != nil {
			return err
		}
		*out = append(*out, v)
	}
	return rows.Err()
}

// Save replaces all project state in one transaction.
func (s *SQLiteProjectStore) Save(snapshot *Snapshot) error {
	if s.db == nil {
		return errors.New("store not initialized")
	}
	if snapshot == nil {
		return errors.New("nil snapshot")
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"project", "phases", "tasks", "members"} {
		if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(`INSERT INTO project (id, name) VALUES (1, ?)`, snapshot.ProjectName); err != nil {
		return err
	}
	for _, p := range snapshot.Phases {
		if err := insertJSON(tx, `INSERT INTO phases (phase_number, payload) VALUES (?, ?)`, p.PhaseNumber, p); err != nil {
			return err
		}
	}
	for _, t := range snapshot.Tasks {
		if err := insertJSON(tx, `INSERT INTO tasks (id, payload) VALUES (?, ?)`, t.ID, t); err != nil {
			return err
		}
	}
	for _, m := range snapshot.Roster {
		if err := insertJSON(tx, `INSERT INTO members (user_id, payload) VALUES (?, ?)`, m.UserID, m); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func insertJSON(tx *sql.Tx, query string, key any, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = tx.Exec(query, key, string(payload))
	return err
}

// ListTasks returns tasks passing the filter.
func (s *SQLiteProjectStore) ListTasks(filterFn func(models.Task) bool) ([]models.Task, error) {
	snap, err := s.Load()
	if err != nil {
		return nil, err
	}
	if filterFn == nil {
		return snap.Tasks, nil
	}
	var out []models.Task
	for _, t := range snap.Tasks {
		if filterFn(t) {
			out = append(out, t)
		}
	}
	return out, nil
}

// ApplyPlan applies the plan's batches inside one transaction: either
// the whole plan lands or none of it does.
func (s *SQLiteProjectStore) ApplyPlan(plan reconcile.Plan) error {
	if s.db == nil {
		return errors.New("store not initialized")
	}
	if plan.Empty() {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, t := range append(plan.ToUpdate, plan.ToArchive...) {
		payload, err := json.Marshal(t)
		if err != nil {
			return err
		}
		res, err := tx.Exec(`UPDATE tasks SET payload = ? WHERE id = ?`, string(payload), t.ID)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("update for unknown task %s", t.ID)
		}
	}
	for _, t := range plan.ToInsert {
		if err := insertJSON(tx, `INSERT INTO tasks (id, payload) VALUES (?, ?)`, t.ID, t); err != nil {
			return fmt.Errorf("insert task %s: %w", t.ID, err)
		}
	}
	return tx.Commit()
}

// Close closes the database handle.
func (s *SQLiteProjectStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
