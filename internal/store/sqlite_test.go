package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "inventory.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestFindSectors_ScopedByOwnerAndDeleted(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateSector(ctx, Sector{Name: "Sector 1", Owner: "u1"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateSector(ctx, Sector{Name: "Sector 2", Owner: "u1", Deleted: true}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateSector(ctx, Sector{Name: "Sector 1", Owner: "u2"}); err != nil {
		t.Fatal(err)
	}

	sectors, err := s.FindSectors(ctx, "u1")
	if err != nil {
		t.Fatalf("find sectors: %v", err)
	}
	if len(sectors) != 1 {
		t.Fatalf("got %d sectors, want 1", len(sectors))
	}
	if sectors[0].Name != "Sector 1" || sectors[0].Owner != "u1" {
		t.Errorf("unexpected sector: %+v", sectors[0])
	}
}

func TestFindSectorByName_ExactVsFold(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateSector(ctx, Sector{Name: "North Yard", Owner: "u1"})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.FindSectorByName(ctx, "north yard", "u1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("exact lookup should be case-sensitive, got err = %v", err)
	}

	sec, err := s.FindSectorByNameFold(ctx, "north yard", "u1")
	if err != nil {
		t.Fatalf("fold lookup: %v", err)
	}
	if sec.ID != id {
		t.Errorf("fold lookup ID = %q, want %q", sec.ID, id)
	}

	if _, err := s.FindSectorByNameFold(ctx, "north yard", "u2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("fold lookup must stay owner-scoped, got err = %v", err)
	}
}

func TestWarehouseRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sectorID, err := s.CreateSector(ctx, Sector{Name: "Sector 1", Owner: "u1"})
	if err != nil {
		t.Fatal(err)
	}

	cols := []Column{
		{Title: "Day", DataIndex: "day", DataType: "date"},
		{Title: "Quantity", DataIndex: "qty", DataType: "number"},
	}
	if _, err := s.CreateWarehouse(ctx, Warehouse{Name: "Warehouse 1", Owner: "u1", SectorID: sectorID, Columns: cols}); err != nil {
		t.Fatal(err)
	}

	w, err := s.FindWarehouseByName(ctx, "warehouse 1", sectorID, "u1")
	if err != nil {
		t.Fatalf("find warehouse: %v", err)
	}
	if len(w.Columns) != 2 || w.Columns[1].DataIndex != "qty" {
		t.Errorf("columns did not round-trip: %+v", w.Columns)
	}

	inv := w.InventoryColumns()
	if len(inv) != 1 || inv[0].DataIndex != "qty" {
		t.Errorf("InventoryColumns = %+v, want just qty", inv)
	}

	// Same name under a different sector must not resolve.
	if _, err := s.FindWarehouseByName(ctx, "Warehouse 1", "other-sector", "u1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("lookup must be sector-scoped, got err = %v", err)
	}
	// Same name under a different owner must not resolve.
	if _, err := s.FindWarehouseByName(ctx, "Warehouse 1", sectorID, "u2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("lookup must be owner-scoped, got err = %v", err)
	}
}

func TestInsertAndFindLogs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.InsertLog(ctx, LogRecord{
		WarehouseID: "w1",
		Owner:       "u1",
		Data:        map[string]any{"day": "2026-08-28T00:00:00Z", "qty": 50.0},
	})
	if err != nil {
		t.Fatalf("insert log: %v", err)
	}
	if id == "" {
		t.Fatal("expected generated log id")
	}

	logs, err := s.FindLogs(ctx, "u1", "w1")
	if err != nil {
		t.Fatalf("find logs: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("got %d logs, want 1", len(logs))
	}
	if logs[0].Data["qty"] != 50.0 {
		t.Errorf("qty = %v, want 50", logs[0].Data["qty"])
	}
}

func TestStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateSector(ctx, Sector{Name: "Sector 1", Owner: "u1"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateSector(ctx, Sector{Name: "Gone", Owner: "u1", Deleted: true}); err != nil {
		t.Fatal(err)
	}

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Sectors != 1 {
		t.Errorf("Sectors = %d, want 1 (deleted excluded)", st.Sectors)
	}
}
