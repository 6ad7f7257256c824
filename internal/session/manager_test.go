package session

import (
	"testing"
	"time"

	"github.com/brynhild/brynhild/pkg/models"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	s := &models.Session{ID: "abc12345", CWD: "/tmp", CreatedAt: time.Now(), UpdatedAt: time.Now(), Model: "m", Provider: "p"}
	if err := m.Save(s); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := m.Load("abc12345")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.ID != s.ID || loaded.CWD != s.CWD {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestLoadRejectsPathTraversalID(t *testing.T) {
	m, _ := NewManager(t.TempDir())
	if _, err := m.Load("../../etc/passwd"); err == nil {
		t.Error("expected rejection of traversal id")
	}
}

func TestListSessionsSortedByUpdatedDesc(t *testing.T) {
	m, _ := NewManager(t.TempDir())
	older := time.Now().Add(-time.Hour)
	newer := time.Now()
	m.Save(&models.Session{ID: "aaaaaaaa", UpdatedAt: older})
	m.Save(&models.Session{ID: "bbbbbbbb", UpdatedAt: newer})

	list, err := m.ListSessions()
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(list) != 2 || list[0].ID != "bbbbbbbb" {
		t.Errorf("expected newest first, got %+v", list)
	}
}

func TestRenameFailsIfTargetExists(t *testing.T) {
	m, _ := NewManager(t.TempDir())
	m.Save(&models.Session{ID: "aaaaaaaa"})
	m.Save(&models.Session{ID: "bbbbbbbb"})

	if err := m.Rename("aaaaaaaa", "bbbbbbbb"); err == nil {
		t.Error("expected rename to fail when target exists")
	}
}

func TestRenameMovesSession(t *testing.T) {
	m, _ := NewManager(t.TempDir())
	m.Save(&models.Session{ID: "aaaaaaaa", Title: "hi"})

	if err := m.Rename("aaaaaaaa", "new-name"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if m.Exists("aaaaaaaa") {
		t.Error("old id should no longer exist")
	}
	loaded, err := m.Load("new-name")
	if err != nil || loaded.Title != "hi" {
		t.Errorf("expected renamed session to carry over content, got %+v err=%v", loaded, err)
	}
}
