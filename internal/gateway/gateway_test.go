package gateway

import (
	"context"
	"errors"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/warelinehq/wareline/internal/bus"
	"github.com/warelinehq/wareline/internal/config"
	"github.com/warelinehq/wareline/internal/cron"
	"github.com/warelinehq/wareline/internal/store"
)

func testReminder() cron.Reminder {
	return cron.NewReminder("daily", cron.Schedule{Kind: "cron", Expr: "0 0 9 * * *"},
		"web", "u1", "Time to log inventory.")
}

type memStore struct {
	sectors    []store.Sector
	warehouses []store.Warehouse
	logs       []store.LogRecord
	closed     bool
}

func (m *memStore) FindSectors(ctx context.Context, owner string) ([]store.Sector, error) {
	var out []store.Sector
	for _, s := range m.sectors {
		if s.Owner == owner && !s.Deleted {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memStore) FindSectorByName(ctx context.Context, name, owner string) (*store.Sector, error) {
	for i, s := range m.sectors {
		if s.Owner == owner && !s.Deleted && s.Name == name {
			return &m.sectors[i], nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) FindSectorByNameFold(ctx context.Context, name, owner string) (*store.Sector, error) {
	for i, s := range m.sectors {
		if s.Owner == owner && !s.Deleted && strings.EqualFold(s.Name, name) {
			return &m.sectors[i], nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) FindWarehouses(ctx context.Context, owner, sectorID string) ([]store.Warehouse, error) {
	var out []store.Warehouse
	for _, w := range m.warehouses {
		if w.Owner == owner && w.SectorID == sectorID {
			out = append(out, w)
		}
	}
	return out, nil
}

func (m *memStore) FindWarehouseByName(ctx context.Context, name, sectorID, owner string) (*store.Warehouse, error) {
	for i, w := range m.warehouses {
		if w.Owner == owner && w.SectorID == sectorID && strings.EqualFold(w.Name, name) {
			return &m.warehouses[i], nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) InsertLog(ctx context.Context, rec store.LogRecord) (string, error) {
	m.logs = append(m.logs, rec)
	return "log-1", nil
}

func (m *memStore) CreateSector(ctx context.Context, s store.Sector) (string, error) {
	m.sectors = append(m.sectors, s)
	return s.ID, nil
}

func (m *memStore) CreateWarehouse(ctx context.Context, w store.Warehouse) (string, error) {
	m.warehouses = append(m.warehouses, w)
	return w.ID, nil
}

func (m *memStore) Ping(ctx context.Context) error { return nil }

func (m *memStore) Close() error {
	m.closed = true
	return nil
}

func testGateway(t *testing.T, st *memStore, sigCh chan os.Signal) *Gateway {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Channels.Web.Enabled = false

	g, err := NewWithOptions(cfg, Options{
		StoreFactory: func(dbPath string) (store.Store, error) { return st, nil },
		SignalChan:   sigCh,
	})
	if err != nil {
		t.Fatalf("NewWithOptions: %v", err)
	}
	return g
}

func TestGateway_Respond(t *testing.T) {
	st := &memStore{
		sectors: []store.Sector{{ID: "sec-1", Name: "Sector 1", Owner: "u1"}},
	}
	g := testGateway(t, st, nil)

	got := g.Respond(context.Background(), "u1", "show me my sectors list")
	if got != "Your created sectors are: Sector 1." {
		t.Errorf("Respond = %q", got)
	}
}

func TestGateway_RunProcessesInbound(t *testing.T) {
	st := &memStore{
		sectors: []store.Sector{{ID: "sec-1", Name: "Sector 1", Owner: "u1"}},
	}
	sigCh := make(chan os.Signal, 1)
	g := testGateway(t, st, sigCh)

	replies := make(chan bus.OutboundMessage, 1)
	g.bus.SubscribeOutbound("test", func(msg bus.OutboundMessage) {
		replies <- msg
	})

	done := make(chan error, 1)
	go func() { done <- g.Run(context.Background()) }()

	g.bus.Inbound <- bus.InboundMessage{
		Channel:   "test",
		SenderID:  "u1",
		ChatID:    "chat-1",
		Content:   "show me my sectors list",
		Timestamp: time.Now(),
	}

	select {
	case msg := <-replies:
		if msg.ChatID != "chat-1" || msg.Content != "Your created sectors are: Sector 1." {
			t.Errorf("outbound = %+v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no outbound reply within 2s")
	}

	sigCh <- syscall.SIGTERM
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after signal")
	}
	if !st.closed {
		t.Error("store not closed on shutdown")
	}
}

func TestGateway_StoreFactoryError(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Channels.Web.Enabled = false

	_, err := NewWithOptions(cfg, Options{
		StoreFactory: func(dbPath string) (store.Store, error) {
			return nil, errors.New("disk full")
		},
	})
	if err == nil {
		t.Fatal("want error when store cannot be created")
	}
}

func TestGateway_ReminderDispatchesOutbound(t *testing.T) {
	st := &memStore{}
	g := testGateway(t, st, nil)

	replies := make(chan bus.OutboundMessage, 1)
	g.bus.SubscribeOutbound("web", func(msg bus.OutboundMessage) {
		replies <- msg
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go g.bus.DispatchOutbound(ctx)

	if err := g.cron.OnReminder(testReminder()); err != nil {
		t.Fatalf("OnReminder: %v", err)
	}

	select {
	case msg := <-replies:
		if msg.ChatID != "u1" || msg.Content != "Time to log inventory." {
			t.Errorf("outbound = %+v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reminder not dispatched within 2s")
	}
}
