package chat

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/warelinehq/wareline/internal/store"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "inventory.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustCreateSector(t *testing.T, s store.Store, name, owner string) string {
	t.Helper()
	id, err := s.CreateSector(context.Background(), store.Sector{Name: name, Owner: owner})
	if err != nil {
		t.Fatalf("create sector %q: %v", name, err)
	}
	return id
}

func TestResolveSector_ExactMatch(t *testing.T) {
	s := newTestStore(t)
	r := NewResolver(s)

	id := mustCreateSector(t, s, "Sector 1", "u1")

	sec, err := r.ResolveSector(context.Background(), "Sector 1", "u1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if sec.ID != id {
		t.Errorf("ID = %q, want %q", sec.ID, id)
	}
}

func TestResolveSector_OwnerIsolation(t *testing.T) {
	s := newTestStore(t)
	r := NewResolver(s)

	mustCreateSector(t, s, "Sector 1", "u1")
	otherID := mustCreateSector(t, s, "Sector 1", "u2")

	sec, err := r.ResolveSector(context.Background(), "Sector 1", "u2")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if sec.ID != otherID {
		t.Errorf("resolved u1's sector for u2")
	}

	if _, err := r.ResolveSector(context.Background(), "Sector 1", "u3"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound for non-owner", err)
	}
}

func TestResolveSector_CaseInsensitiveTier(t *testing.T) {
	s := newTestStore(t)
	r := NewResolver(s)

	id := mustCreateSector(t, s, "North Yard", "u1")

	sec, err := r.ResolveSector(context.Background(), "north yard", "u1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if sec.ID != id {
		t.Errorf("ID = %q, want %q", sec.ID, id)
	}
}

// The case-insensitive tier must win before the numeric-suffix scan runs,
// even when both would match.
func TestResolveSector_FoldTierWinsOverSuffix(t *testing.T) {
	s := newTestStore(t)
	r := NewResolver(s)

	// "Dock 2" ends with "2" and would satisfy the suffix scan for "Sector 2".
	mustCreateSector(t, s, "Dock 2", "u1")
	foldID := mustCreateSector(t, s, "SECTOR 2", "u1")

	sec, err := r.ResolveSector(context.Background(), "Sector 2", "u1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if sec.ID != foldID {
		t.Errorf("resolved %q (%s), want the case-insensitive match", sec.Name, sec.ID)
	}
}

func TestResolveSector_NumericSuffixFallback(t *testing.T) {
	s := newTestStore(t)
	r := NewResolver(s)

	mustCreateSector(t, s, "Cold Storage 1", "u1")
	wantID := mustCreateSector(t, s, "Cold Storage 2", "u1")

	sec, err := r.ResolveSector(context.Background(), "Sector 2", "u1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if sec.ID != wantID {
		t.Errorf("resolved %q, want Cold Storage 2", sec.Name)
	}
}

func TestResolveSector_SuffixRequiresSectorPrefix(t *testing.T) {
	s := newTestStore(t)
	r := NewResolver(s)

	mustCreateSector(t, s, "Cold Storage 2", "u1")

	// A bare token without the "Sector " prefix never reaches the suffix scan.
	if _, err := r.ResolveSector(context.Background(), "2", "u1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestResolveWarehouse(t *testing.T) {
	s := newTestStore(t)
	r := NewResolver(s)
	ctx := context.Background()

	sectorID := mustCreateSector(t, s, "Sector 1", "u1")
	id, err := s.CreateWarehouse(ctx, store.Warehouse{Name: "Warehouse 1", Owner: "u1", SectorID: sectorID})
	if err != nil {
		t.Fatal(err)
	}

	w, err := r.ResolveWarehouse(ctx, "warehouse 1", sectorID, "u1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if w.ID != id {
		t.Errorf("ID = %q, want %q", w.ID, id)
	}

	// No numeric-suffix fallback for warehouses.
	if _, err := r.ResolveWarehouse(ctx, "Warehouse 99", sectorID, "u1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
