package store

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/gofrs/flock"
	yaml "gopkg.in/yaml.v3"

	"github.com/taskforge/taskforge/internal/reconcile"
	"github.com/taskforge/taskforge/models"
)

const (
	defaultDataFile   = "project.json"
	dataFileKey       = "dataFile"
	dataFileFormatKey = "dataFileFormat"
	formatJSON        = "json"
	formatYAML        = "yaml"
	formatTOML        = "toml"
	checksumSuffix    = ".checksum"
)

// FileProjectStore implements ProjectStore on a snapshot file. It
// supports JSON, YAML and TOML, guards the file with flock, and keeps a
// checksum sidecar to detect corruption.
type FileProjectStore struct {
	filePath string
	format   string
	flk      *flock.Flock
	snapshot Snapshot
}

// NewFileProjectStore creates an unconfigured store; call Initialize
// before use.
func NewFileProjectStore() *FileProjectStore {
	return &FileProjectStore{}
}

// Initialize configures file path and format, acquires the lock once to
// create the file if needed, and loads the current snapshot.
func (s *FileProjectStore) Initialize(config map[string]string) error {
	s.filePath = config[dataFileKey]
	if s.filePath == "" {
		s.filePath = defaultDataFile
	}

	if val := config[dataFileFormatKey]; val != "" {
		switch strings.ToLower(val) {
		case formatJSON, formatYAML, formatTOML:
			s.format = strings.ToLower(val)
		default:
			return fmt.Errorf("unsupported dataFileFormat: %s (supported: json, yaml, toml)", val)
		}
	} else {
		s.format = formatJSON
	}

	if dir := filepath.Dir(s.filePath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	s.flk = flock.New(s.filePath)
	if err := s.flk.Lock(); err != nil {
		return fmt.Errorf("acquire lock for %s: %w", s.filePath, err)
	}
	defer func() { _ = s.flk.Unlock() }()

	return s.loadLocked()
}

// Load returns a copy of the current snapshot.
func (s *FileProjectStore) Load() (*Snapshot, error) {
	if err := s.flk.RLock(); err != nil {
		return nil, err
	}
	defer func() { _ = s.flk.Unlock() }()
	if err := s.loadLocked(); err != nil {
		return nil, err
	}
	snap := s.snapshot
	snap.Phases = append([]models.Phase(nil), s.snapshot.Phases...)
	snap.Tasks = append([]models.Task(nil), s.snapshot.Tasks...)
	snap.Roster = append([]models.TeamMember(nil), s.snapshot.Roster...)
	return &snap, nil
}

// Save replaces the stored snapshot.
func (s *FileProjectStore) Save(snapshot *Snapshot) error {
	if snapshot == nil {
		return errors.New("nil snapshot")
	}
	if err := s.flk.Lock(); err != nil {
		return err
	}
	defer func() { _ = s.flk.Unlock() }()
	s.snapshot = *snapshot
	return s.saveLocked()
}

// ListTasks returns tasks passing the filter.
func (s *FileProjectStore) ListTasks(filterFn func(models.Task) bool) ([]models.Task, error) {
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

// ApplyPlan applies updates and archives by task id and appends
// inserts, in one locked read-modify-write.
func (s *FileProjectStore) ApplyPlan(plan reconcile.Plan) error {
	if plan.Empty() {
		return nil
	}
	if err := s.flk.Lock(); err != nil {
		return err
	}
	defer func() { _ = s.flk.Unlock() }()
	if err := s.loadLocked(); err != nil {
		return err
	}

	byID := make(map[string]int, len(s.snapshot.Tasks))
	for i, t := range s.snapshot.Tasks {
		byID[t.ID] = i
	}
	for _, t := range plan.ToUpdate {
		i, ok := byID[t.ID]
		if !ok {
			return fmt.Errorf("update for unknown task %s", t.ID)
		}
		s.snapshot.Tasks[i] = t
	}
	for _, t := range plan.ToArchive {
		i, ok := byID[t.ID]
		if !ok {
			return fmt.Errorf("archive for unknown task %s", t.ID)
		}
		s.snapshot.Tasks[i] = t
	}
	for _, t := range plan.ToInsert {
		if _, exists := byID[t.ID]; exists {
			return fmt.Errorf("insert for existing task %s", t.ID)
		}
		s.snapshot.Tasks = append(s.snapshot.Tasks, t)
	}

	return s.saveLocked()
}

// Close releases the file lock.
func (s *FileProjectStore) Close() error {
	if s.flk == nil {
		return nil
	}
	return s.flk.Unlock()
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// loadLocked reads and verifies the snapshot file. Caller holds the lock.
func (s *FileProjectStore) loadLocked() error {
	checksumPath := s.filePath + checksumSuffix

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.snapshot = Snapshot{}
			_ = os.Remove(checksumPath)
			return nil
		}
		return fmt.Errorf("read %s: %w", s.filePath, err)
	}

	if expected, err := os.ReadFile(checksumPath); err == nil {
		if got := checksum(data); got != strings.TrimSpace(string(expected)) {
			return fmt.Errorf("checksum mismatch for %s: file is corrupt or was modified outside the store", s.filePath)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("read checksum %s: %w", checksumPath, err)
	}

	if len(data) == 0 {
		s.snapshot = Snapshot{}
		return nil
	}

	var snap Snapshot
	switch s.format {
	case formatJSON:
		err = json.Unmarshal(data, &snap)
	case formatYAML:
		err = yaml.Unmarshal(data, &snap)
	case formatTOML:
		err = toml.Unmarshal(data, &snap)
	}
	if err != nil {
		return fmt.Errorf("unmarshal %s from %s: %w", s.format, s.filePath, err)
	}
	s.snapshot = snap
	return nil
}

// saveLocked writes snapshot and checksum atomically via temp files.
// Caller holds the lock.
func (s *FileProjectStore) saveLocked() error {
	var data []byte
	var err error
	switch s.format {
	case formatJSON:
		data, err = json.MarshalIndent(s.snapshot, "", "  ")
	case formatYAML:
		data, err = yaml.Marshal(s.snapshot)
	case formatTOML:
		buf := new(bytes.Buffer)
		err = toml.NewEncoder(buf).Encode(s.snapshot)
		data = buf.Bytes()
	}
	if err != nil {
		return fmt.Errorf("marshal snapshot to %s: %w", s.format, err)
	}

	tmpPath := s.filePath + ".tmp"
	checksumPath := s.filePath + checksumSuffix
	tmpChecksumPath := checksumPath + ".tmp"
	defer func() {
		_ = os.Remove(tmpPath)
		_ = os.Remove(tmpChecksumPath)
	}()

	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmpPath, err)
	}
	if err := os.WriteFile(tmpChecksumPath, []byte(checksum(data)), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmpChecksumPath, err)
	}
	if err := os.Rename(tmpPath, s.filePath); err != nil {
		return fmt.Errorf("rename data file: %w", err)
	}
	if err := os.Rename(tmpChecksumPath, checksumPath); err != nil {
		return fmt.Errorf("rename checksum file: %w", err)
	}
	return nil
}
