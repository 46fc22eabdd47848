package cron

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func storePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "reminders.json")
}

func TestAddPersistsAndLists(t *testing.T) {
	path := storePath(t)
	s := NewService(path)

	r := NewReminder("daily-log", Schedule{Kind: "cron", Expr: "0 0 9 * * *"}, "web", "u1", "Time to log inventory.")
	if _, err := s.Add(r); err != nil {
		t.Fatalf("Add: %v", err)
	}

	list := s.List()
	if len(list) != 1 || list[0].Name != "daily-log" {
		t.Fatalf("List = %+v", list)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read store: %v", err)
	}
	var stored []Reminder
	if err := json.Unmarshal(data, &stored); err != nil {
		t.Fatalf("parse store: %v", err)
	}
	if len(stored) != 1 || stored[0].ID != r.ID {
		t.Errorf("stored = %+v", stored)
	}
}

func TestLoadOnStart(t *testing.T) {
	path := storePath(t)

	first := NewService(path)
	r := NewReminder("weekly", Schedule{Kind: "every", EveryMs: 3600_000}, "telegram", "123", "Weekly check.")
	if _, err := first.Add(r); err != nil {
		t.Fatalf("Add: %v", err)
	}

	second := NewService(path)
	if err := second.load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	list := second.List()
	if len(list) != 1 || list[0].Message != "Weekly check." {
		t.Errorf("List after reload = %+v", list)
	}
}

func TestRemove(t *testing.T) {
	s := NewService(storePath(t))
	r := NewReminder("once", Schedule{Kind: "at", AtMs: 1}, "web", "u1", "Now.")
	if _, err := s.Add(r); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if !s.Remove(r.ID) {
		t.Fatal("Remove returned false for existing reminder")
	}
	if s.Remove(r.ID) {
		t.Fatal("Remove returned true for missing reminder")
	}
	if got := s.List(); len(got) != 0 {
		t.Errorf("List = %+v, want empty", got)
	}
}

func TestEnableToggle(t *testing.T) {
	s := NewService(storePath(t))
	r := NewReminder("toggle", Schedule{Kind: "every", EveryMs: 1000}, "web", "u1", "Hi.")
	if _, err := s.Add(r); err != nil {
		t.Fatalf("Add: %v", err)
	}

	got, err := s.Enable(r.ID, false)
	if err != nil {
		t.Fatalf("Enable: %v", err)
	}
	if got.Enabled {
		t.Error("reminder still enabled after disable")
	}

	if _, err := s.Enable("missing", true); err == nil {
		t.Error("want error for unknown reminder")
	}
}

func TestFireUpdatesStateAndHandlesDeleteAfterRun(t *testing.T) {
	s := NewService(storePath(t))

	keep := NewReminder("keep", Schedule{Kind: "every", EveryMs: 1000}, "web", "u1", "Hi.")
	once := NewReminder("once", Schedule{Kind: "at", AtMs: 1}, "web", "u1", "Bye.")
	once.DeleteAfterRun = true
	if _, err := s.Add(keep); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Add(once); err != nil {
		t.Fatal(err)
	}

	var fired []string
	s.OnReminder = func(r Reminder) error {
		fired = append(fired, r.Name)
		if r.Name == "keep" {
			return errors.New("channel down")
		}
		return nil
	}

	s.fire(keep)
	s.fire(once)

	if len(fired) != 2 {
		t.Fatalf("fired = %v", fired)
	}

	list := s.List()
	if len(list) != 1 || list[0].Name != "keep" {
		t.Fatalf("List after delete-after-run = %+v", list)
	}
	if list[0].State.LastStatus != "error" || list[0].State.LastError == "" {
		t.Errorf("keep state = %+v, want recorded error", list[0].State)
	}
	if list[0].State.LastRunAtMs == 0 {
		t.Error("LastRunAtMs not set")
	}
}

func TestSeededRemindersStayOutOfStore(t *testing.T) {
	path := storePath(t)
	s := NewService(path)
	s.Seed([]Reminder{NewReminder("from-config", Schedule{Kind: "cron", Expr: "0 0 9 * * *"}, "web", "u1", "Hi.")})

	if got := s.List(); len(got) != 0 {
		t.Errorf("List = %+v, seeded reminders must not be listed", got)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("seeding must not write the store file")
	}
}
