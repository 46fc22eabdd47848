package cron

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	rcron "github.com/robfig/cron/v3"
)

// Service schedules reminders and fires OnReminder when each one is due.
// Reminders added through Add are persisted as JSON at storePath; Seed
// registers config-defined reminders for the process lifetime only.
type Service struct {
	storePath  string
	mu         sync.Mutex
	reminders  []Reminder
	seeded     []Reminder
	OnReminder func(r Reminder) error
	cron       *rcron.Cron
	entryMap   map[string]rcron.EntryID // reminder ID -> cron entry ID
	cancel     context.CancelFunc
	stopCh     chan struct{}
}

func NewService(storePath string) *Service {
	return &Service{
		storePath: storePath,
		entryMap:  make(map[string]rcron.EntryID),
	}
}

// Seed registers reminders that live outside the JSON store, typically the
// ones declared in the config file. Call before Start.
func (s *Service) Seed(reminders []Reminder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seeded = append(s.seeded, reminders...)
}

func (s *Service) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	stopCh := make(chan struct{})
	s.mu.Lock()
	s.cancel = cancel
	s.stopCh = stopCh
	s.mu.Unlock()

	if err := s.load(); err != nil {
		log.Printf("[cron] warning: failed to load reminders: %v", err)
	}

	s.cron = rcron.New(rcron.WithSeconds())

	s.mu.Lock()
	for i := range s.reminders {
		if s.reminders[i].Enabled && s.reminders[i].Schedule.Kind == "cron" {
			s.register(&s.reminders[i])
		}
	}
	for i := range s.seeded {
		if s.seeded[i].Enabled && s.seeded[i].Schedule.Kind == "cron" {
			s.register(&s.seeded[i])
		}
	}
	total := len(s.reminders) + len(s.seeded)
	s.mu.Unlock()

	s.cron.Start()
	log.Printf("[cron] started with %d reminders", total)

	// "every" and "at" schedules run off a plain ticker.
	go s.tickLoop(runCtx)

	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-stopCh:
			return
		}
	}()

	return nil
}

func (s *Service) register(r *Reminder) {
	reminder := *r
	id, err := s.cron.AddFunc(r.Schedule.Expr, func() {
		s.fire(reminder)
	})
	if err != nil {
		log.Printf("[cron] failed to register reminder %s (%s): %v", r.Name, r.Schedule.Expr, err)
		return
	}
	s.entryMap[r.ID] = id
}

func (s *Service) fire(r Reminder) {
	log.Printf("[cron] firing reminder %s (%s)", r.Name, r.ID)

	if s.OnReminder == nil {
		log.Printf("[cron] no OnReminder handler set")
		return
	}

	err := s.OnReminder(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.reminders {
		if s.reminders[i].ID != r.ID {
			continue
		}
		s.reminders[i].State.LastRunAtMs = time.Now().UnixMilli()
		if err != nil {
			s.reminders[i].State.LastStatus = "error"
			s.reminders[i].State.LastError = err.Error()
			log.Printf("[cron] reminder %s error: %v", r.Name, err)
		} else {
			s.reminders[i].State.LastStatus = "ok"
			s.reminders[i].State.LastError = ""
		}

		if s.reminders[i].DeleteAfterRun {
			if entryID, ok := s.entryMap[r.ID]; ok && s.cron != nil {
				s.cron.Remove(entryID)
				delete(s.entryMap, r.ID)
			}
			s.reminders = append(s.reminders[:i], s.reminders[i+1:]...)
		}
		_ = s.save()
		return
	}

	if err != nil {
		log.Printf("[cron] reminder %s error: %v", r.Name, err)
	}
}

func (s *Service) tickLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now().UnixMilli()
			s.mu.Lock()
			for i := range s.reminders {
				r := &s.reminders[i]
				if !r.Enabled {
					continue
				}
				switch r.Schedule.Kind {
				case "every":
					if r.Schedule.EveryMs > 0 && now >= r.State.LastRunAtMs+r.Schedule.EveryMs {
						reminder := *r
						s.mu.Unlock()
						s.fire(reminder)
						s.mu.Lock()
					}
				case "at":
					if r.Schedule.AtMs > 0 && now >= r.Schedule.AtMs {
						reminder := *r
						r.Enabled = false
						s.mu.Unlock()
						s.fire(reminder)
						s.mu.Lock()
					}
				}
			}
			s.mu.Unlock()
		case <-ctx.Done():
			return
		}
	}
}

func (s *Service) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	stopCh := s.stopCh
	s.cancel = nil
	s.stopCh = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if stopCh != nil {
		close(stopCh)
	}

	if s.cron != nil {
		stopCtx := s.cron.Stop()
		select {
		case <-stopCtx.Done():
		case <-time.After(5 * time.Second):
			log.Printf("[cron] stop timeout waiting for running reminders")
		}
	}
	log.Printf("[cron] stopped")
}

func (s *Service) Add(r Reminder) (*Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reminders = append(s.reminders, r)

	if r.Schedule.Kind == "cron" && s.cron != nil {
		s.register(&s.reminders[len(s.reminders)-1])
	}

	if err := s.save(); err != nil {
		return nil, fmt.Errorf("save reminders: %w", err)
	}

	added := s.reminders[len(s.reminders)-1]
	return &added, nil
}

func (s *Service) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, r := range s.reminders {
		if r.ID == id {
			if entryID, ok := s.entryMap[id]; ok {
				s.cron.Remove(entryID)
				delete(s.entryMap, id)
			}
			s.reminders = append(s.reminders[:i], s.reminders[i+1:]...)
			_ = s.save()
			return true
		}
	}
	return false
}

// List returns the persisted reminders; seeded ones are excluded.
func (s *Service) List() []Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Reminder, len(s.reminders))
	copy(out, s.reminders)
	return out
}

func (s *Service) Enable(id string, enabled bool) (*Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.reminders {
		if s.reminders[i].ID != id {
			continue
		}
		s.reminders[i].Enabled = enabled
		if s.reminders[i].Schedule.Kind == "cron" && s.cron != nil {
			if enabled {
				if _, ok := s.entryMap[id]; !ok {
					s.register(&s.reminders[i])
				}
			} else if entryID, ok := s.entryMap[id]; ok {
				s.cron.Remove(entryID)
				delete(s.entryMap, id)
			}
		}
		_ = s.save()
		r := s.reminders[i]
		return &r, nil
	}
	return nil, fmt.Errorf("reminder %s not found", id)
}

func (s *Service) load() error {
	data, err := os.ReadFile(s.storePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, &s.reminders)
}

func (s *Service) save() error {
	if err := os.MkdirAll(filepath.Dir(s.storePath), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s.reminders, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.storePath, data, 0644)
}
