// Package session persists and retrieves conversation sessions as
// one-file-per-session JSON documents under a sessions directory.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/brynhild/brynhild/pkg/models"
)

// Manager reads and writes Session documents under Dir.
type Manager struct {
	Dir string
}

// NewManager builds a Manager rooted at dir, creating it if absent.
func NewManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Manager{Dir: dir}, nil
}

func (m *Manager) path(id string) (string, error) {
	if err := models.ValidateSessionID(id); err != nil {
		return "", err
	}
	return filepath.Join(m.Dir, id+".json"), nil
}

// Save writes s to disk, validating its id before touching the
// filesystem.
func (m *Manager) Save(s *models.Session) error {
	path, err := m.path(s.ID)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Load reads the session named id.
func (m *Manager) Load(id string) (*models.Session, error) {
	path, err := m.path(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s models.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Delete removes the session named id.
func (m *Manager) Delete(id string) error {
	path, err := m.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Exists reports whether a session named id has been saved.
func (m *Manager) Exists(id string) bool {
	path, err := m.path(id)
	if err != nil {
		return false
	}
	_, statErr := os.Stat(path)
	return statErr == nil
}

// ListSessions returns every saved session, most recently updated first.
func (m *Manager) ListSessions() ([]*models.Session, error) {
	entries, err := os.ReadDir(m.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var sessions []*models.Session
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		id := e.Name()[:len(e.Name())-len(".json")]
		if models.ValidateSessionID(id) != nil {
			continue
		}
		s, err := m.Load(id)
		if err != nil {
			continue
		}
		sessions = append(sessions, s)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions, nil
}

// Rename moves a session from oldID to newID: it loads under oldID,
// rewrites the id, saves under newID, then deletes oldID. These are
// separate file operations, not one atomic step. It fails without
// touching anything if newID is already taken.
func (m *Manager) Rename(oldID, newID string) error {
	if m.Exists(newID) {
		return fmt.Errorf("session: %q already exists", newID)
	}
	s, err := m.Load(oldID)
	if err != nil {
		return err
	}
	s.ID = newID
	if err := m.Save(s); err != nil {
		return err
	}
	return m.Delete(oldID)
}
